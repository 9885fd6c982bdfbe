package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/poiesic/placerank/core"
)

// Request describes one search over the index.
type Request struct {
	// Text is the query in the index query syntax.
	Text string
	// Fields selects the fields each term is matched against.
	// Empty means core.DefaultSearchFields.
	Fields core.SearchFields
	// Policy combines top-level terms that have no explicit operator.
	Policy core.TermPolicy
	// RoomType, when set, keeps only listings whose room type equals it
	// ignoring case and surrounding space.
	RoomType string
	// Weight, when set, computes each hit's final score from its lexical
	// score during the search pass.
	Weight core.WeightFunc
	// Offset and Limit select the returned page. Limit <= 0 returns every
	// hit from Offset on.
	Offset int
	Limit  int
}

// Page is one page of search results.
type Page struct {
	// Hits are ordered by final score descending, then listing ID.
	Hits []core.ScoredResult
	// Total counts every hit that passed the room type filter.
	Total int
}

// Searcher is a scoped search handle. It must not be kept across requests.
type Searcher interface {
	// Search runs a query and returns one page of results.
	Search(ctx context.Context, req Request) (*Page, error)
	// Suggest returns text with unknown words replaced by their closest
	// indexed term. It never runs a search.
	Suggest(ctx context.Context, text string) (string, error)
	// Close releases the handle.
	Close() error
}

// Source hands out search handles.
type Source interface {
	Searcher() (Searcher, error)
}

var _ Source = (*Index)(nil)

type searcher struct {
	idx     *Index
	release func()
	once    sync.Once
	closed  bool
}

var _ Searcher = (*searcher)(nil)

// Close implements Searcher.
func (s *searcher) Close() error {
	s.once.Do(func() {
		s.closed = true
		s.release()
	})
	return nil
}

// Search implements Searcher.
func (s *searcher) Search(ctx context.Context, req Request) (*Page, error) {
	if s.closed {
		return nil, ErrSearcherClosed
	}
	fields := req.Fields
	if fields.Empty() {
		fields = core.DefaultSearchFields
	}

	tree, err := parse(req.Text)
	if err != nil {
		return nil, err
	}
	q := s.idx.build(tree, fields.Fields(), req.Policy)
	if q == nil {
		return &Page{Hits: []core.ScoredResult{}}, nil
	}

	count, err := s.idx.bleve.DocCount()
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if count == 0 {
		return &Page{Hits: []core.ScoredResult{}}, nil
	}

	// Every hit is needed: the room filter and weighting both change the
	// page boundaries.
	sr := bleve.NewSearchRequestOptions(q, int(count), 0, false)
	sr.Fields = []string{core.FieldNameName, core.FieldNameRoomType}
	res, err := s.idx.bleve.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	room := normalizeRoomType(req.RoomType)
	hits := make([]core.ScoredResult, 0, len(res.Hits))
	for _, h := range res.Hits {
		roomType := stringField(h.Fields, core.FieldNameRoomType)
		if room != "" && normalizeRoomType(roomType) != room {
			continue
		}
		id, err := parseDocID(h.ID)
		if err != nil {
			return nil, err
		}
		final := h.Score
		if req.Weight != nil {
			final = req.Weight(id, h.Score)
		}
		hits = append(hits, core.ScoredResult{
			DocumentID:   id,
			Name:         stringField(h.Fields, core.FieldNameName),
			RoomType:     roomType,
			LexicalScore: h.Score,
			FinalScore:   final,
		})
	}

	core.SortResults(hits)
	return &Page{
		Hits:  core.Paginate(hits, req.Offset, req.Limit),
		Total: len(hits),
	}, nil
}

// build converts a parsed expression into a bleve query. It returns nil
// when nothing in the expression can match, such as a query made only of
// stop words.
func (i *Index) build(n *node, fields []string, policy core.TermPolicy) query.Query {
	if n == nil {
		return nil
	}
	switch n.kind {
	case nodeTerm, nodePhrase:
		return i.clause(n, fields)
	case nodeNot:
		inner := i.build(n.children[0], fields, policy)
		if inner == nil {
			return nil
		}
		return query.NewBooleanQuery(nil, nil, []query.Query{inner})
	case nodeAnd:
		return i.combine(n.children, fields, policy, core.TermPolicyAnd)
	case nodeOr:
		return i.combine(n.children, fields, policy, core.TermPolicyOr)
	case nodeSeq:
		return i.combine(n.children, fields, policy, policy)
	}
	return nil
}

func (i *Index) combine(children []*node, fields []string, policy, op core.TermPolicy) query.Query {
	var positive, negative []query.Query
	for _, c := range children {
		if c.kind == nodeNot && op == core.TermPolicyAnd {
			if q := i.build(c.children[0], fields, policy); q != nil {
				negative = append(negative, q)
			}
			continue
		}
		if q := i.build(c, fields, policy); q != nil {
			positive = append(positive, q)
		}
	}

	var must []query.Query
	switch {
	case len(positive) == 1:
		must = positive
	case len(positive) > 1 && op == core.TermPolicyAnd:
		must = []query.Query{query.NewConjunctionQuery(positive)}
	case len(positive) > 1:
		must = []query.Query{query.NewDisjunctionQuery(positive)}
	}

	if len(negative) == 0 {
		if len(must) == 0 {
			return nil
		}
		return must[0]
	}
	// With no positive clause this matches everything except the negations.
	return query.NewBooleanQuery(must, nil, negative)
}

// clause matches a word or phrase in any of the selected fields.
func (i *Index) clause(n *node, fields []string) query.Query {
	if !i.analyzes(n.text) {
		return nil
	}
	alternatives := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		var q query.Query
		if n.kind == nodePhrase {
			mp := query.NewMatchPhraseQuery(n.text)
			mp.SetField(f)
			if f == core.FieldNameName {
				mp.SetBoost(NameBoost)
			}
			q = mp
		} else {
			m := query.NewMatchQuery(n.text)
			m.SetField(f)
			m.SetOperator(query.MatchQueryOperatorAnd)
			if f == core.FieldNameName {
				m.SetBoost(NameBoost)
			}
			q = m
		}
		alternatives = append(alternatives, q)
	}
	if len(alternatives) == 1 {
		return alternatives[0]
	}
	return query.NewDisjunctionQuery(alternatives)
}

// analyzes reports whether text yields at least one indexed token.
func (i *Index) analyzes(text string) bool {
	analyzer := i.bleve.Mapping().AnalyzerNamed(ListingAnalyzer)
	if analyzer == nil {
		return true
	}
	return len(analyzer.Analyze([]byte(text))) > 0
}
