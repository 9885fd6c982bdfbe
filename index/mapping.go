package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/kljensen/snowball/english"

	"github.com/poiesic/placerank/core"
)

// Analyzer and filter names registered with bleve.
const (
	ListingAnalyzer  = "placerank_listing"
	StemFilterName   = "placerank_stem_en"
	spellingAnalyzer = "placerank_spelling"
	roomTypeAnalyzer = "placerank_room_type"
)

// Internal fields.
const (
	fieldRoomTypeKey = "room_type_key"
	fieldSpelling    = "spelling"
)

// NameBoost weights matches in the listing name above the other fields.
const NameBoost = 1.5

func init() {
	if err := registry.RegisterTokenFilter(StemFilterName, newStemFilter); err != nil {
		panic(err)
	}
}

// stemFilter applies the Snowball English stemmer to each token.
type stemFilter struct{}

func newStemFilter(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return stemFilter{}, nil
}

func (stemFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		tok.Term = []byte(english.Stem(string(tok.Term), false))
	}
	return input
}

func newMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	analyzers := map[string]map[string]interface{}{
		ListingAnalyzer: {
			"type":          custom.Name,
			"tokenizer":     unicode.Name,
			"token_filters": []string{lowercase.Name, en.StopName, StemFilterName},
		},
		spellingAnalyzer: {
			"type":          custom.Name,
			"tokenizer":     unicode.Name,
			"token_filters": []string{lowercase.Name},
		},
		roomTypeAnalyzer: {
			"type":          custom.Name,
			"tokenizer":     single.Name,
			"token_filters": []string{lowercase.Name},
		},
	}
	for name, config := range analyzers {
		if err := im.AddCustomAnalyzer(name, config); err != nil {
			return nil, err
		}
	}

	textField := func(analyzer string, store bool) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = analyzer
		f.Store = store
		f.IncludeInAll = false
		return f
	}

	listing := bleve.NewDocumentStaticMapping()
	listing.AddFieldMappingsAt(core.FieldNameName, textField(ListingAnalyzer, true))
	listing.AddFieldMappingsAt(core.FieldNameRoomType, textField(ListingAnalyzer, true))
	listing.AddFieldMappingsAt(core.FieldNameDescription, textField(ListingAnalyzer, true))
	listing.AddFieldMappingsAt(core.FieldNameNeighborhoodOverview, textField(ListingAnalyzer, true))
	listing.AddFieldMappingsAt(fieldRoomTypeKey, textField(roomTypeAnalyzer, false))
	listing.AddFieldMappingsAt(fieldSpelling, textField(spellingAnalyzer, false))

	im.DefaultMapping = listing
	im.DefaultAnalyzer = ListingAnalyzer
	return im, nil
}

// document is the indexed form of a listing.
func document(l *core.Listing) map[string]interface{} {
	return map[string]interface{}{
		core.FieldNameName:                 l.Name,
		core.FieldNameRoomType:             l.RoomType,
		core.FieldNameDescription:          l.Description,
		core.FieldNameNeighborhoodOverview: l.NeighborhoodOverview,
		fieldRoomTypeKey:                   normalizeRoomType(l.RoomType),
		fieldSpelling: l.Name + " " + l.RoomType + " " +
			l.Description + " " + l.NeighborhoodOverview,
	}
}
