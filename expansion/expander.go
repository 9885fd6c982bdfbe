package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/placerank/core"
)

// Connectors understood by the index query parser.
const (
	// DefaultConnector joins candidates with whitespace, so they combine
	// under the index's configured term policy.
	DefaultConnector = " "
	// OrConnector makes each word and its candidates an explicit alternative.
	OrConnector = " OR "
)

// Expander rewrites query text. Implementations never fail on
// out-of-vocabulary input; they return the text unchanged instead.
type Expander interface {
	Expand(ctx context.Context, text, connector string) (string, error)
}

// TokenExpansion lists the accepted candidates for one query word.
type TokenExpansion struct {
	Token      string
	Candidates []core.ExpansionCandidate
}

// Explainer exposes the candidates behind an expansion.
type Explainer interface {
	Explain(ctx context.Context, text string) ([]TokenExpansion, error)
}

// NoExpansion is the identity expander.
type NoExpansion struct{}

var (
	_ Expander  = NoExpansion{}
	_ Explainer = NoExpansion{}
)

// Expand returns text unchanged.
func (NoExpansion) Expand(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

// Explain implements Explainer. The identity expander has no candidates.
func (NoExpansion) Explain(context.Context, string) ([]TokenExpansion, error) {
	return nil, nil
}

// Strategy names an expansion variant.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyThesaurus
	StrategyGenerative
)

func (s Strategy) String() string {
	switch s {
	case StrategyThesaurus:
		return "thesaurus"
	case StrategyGenerative:
		return "generative"
	}
	return "none"
}

// ParseStrategy accepts "none", "thesaurus" or "generative".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return StrategyNone, nil
	case "thesaurus", "wordnet":
		return StrategyThesaurus, nil
	case "generative", "mlm", "bert":
		return StrategyGenerative, nil
	}
	return 0, fmt.Errorf("%w: unknown expansion strategy %q", core.ErrInvalidConfig, s)
}

// Defaults for the embedding-filtered expanders.
const (
	DefaultTopN                = 3
	DefaultThreshold           = 0.8
	DefaultTopK                = 10
	DefaultGenerativeThreshold = 0.9
)

type settings struct {
	topN      int
	topK      int
	threshold float64
	logger    *slog.Logger
}

// Option configures ThesaurusExpansion and GenerativeExpansion.
type Option func(*settings) error

// WithTopN caps the candidates kept per word. Only ThesaurusExpansion uses it.
func WithTopN(n int) Option {
	return func(s *settings) error {
		if n < 1 {
			return fmt.Errorf("%w: top n %d", ErrInvalidOption, n)
		}
		s.topN = n
		return nil
	}
}

// WithTopK sets how many fillers are requested per word. Only
// GenerativeExpansion uses it.
func WithTopK(k int) Option {
	return func(s *settings) error {
		if k < 1 {
			return fmt.Errorf("%w: top k %d", ErrInvalidOption, k)
		}
		s.topK = k
		return nil
	}
}

// WithThreshold sets the minimum similarity for a candidate to be kept.
func WithThreshold(t float64) Option {
	return func(s *settings) error {
		if t < -1 || t > 1 {
			return fmt.Errorf("%w: threshold %v", ErrInvalidOption, t)
		}
		s.threshold = t
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

func newSettings(threshold float64, component string, opts []Option) (*settings, error) {
	s := &settings{
		topN:      DefaultTopN,
		topK:      DefaultTopK,
		threshold: threshold,
		logger:    slog.Default().With("component", component),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
