package retrieval

import "github.com/poiesic/placerank/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(requestID string, q core.Query)
	AfterExpansion(original, effective string)
	CacheHit(key string)
	AfterRetrieval(hits []core.ScoredResult, total int)
	Finish(results []core.ScoredResult, total int)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.Query)                {}
func (n *noopMonitor) AfterExpansion(_, _ string)                  {}
func (n *noopMonitor) CacheHit(_ string)                           {}
func (n *noopMonitor) AfterRetrieval(_ []core.ScoredResult, _ int) {}
func (n *noopMonitor) Finish(_ []core.ScoredResult, _ int)         {}
