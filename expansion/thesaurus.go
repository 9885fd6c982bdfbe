package expansion

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed thesaurus_en.yaml
var defaultThesaurusYAML []byte

// Thesaurus returns lemma-level synonyms for a word.
type Thesaurus interface {
	// Synonyms returns the synonyms of word in a stable order, excluding
	// word itself. Unknown words yield nil.
	Synonyms(word string) []string
}

// MapThesaurus is an in-memory Thesaurus built from synonym groups. Every
// member of a group is a synonym of every other member.
type MapThesaurus struct {
	entries map[string][]string
}

var _ Thesaurus = (*MapThesaurus)(nil)

type thesaurusFile struct {
	Groups [][]string `yaml:"groups"`
}

// NewMapThesaurus builds a thesaurus from synonym groups. Words are
// lower-cased; underscores mark multi-word lemmas.
func NewMapThesaurus(groups [][]string) *MapThesaurus {
	sets := make(map[string]map[string]struct{})
	for _, group := range groups {
		words := make([]string, 0, len(group))
		for _, w := range group {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				words = append(words, w)
			}
		}
		for _, w := range words {
			set, ok := sets[w]
			if !ok {
				set = make(map[string]struct{})
				sets[w] = set
			}
			for _, o := range words {
				if o != w {
					set[o] = struct{}{}
				}
			}
		}
	}

	entries := make(map[string][]string, len(sets))
	for w, set := range sets {
		if len(set) == 0 {
			continue
		}
		syns := make([]string, 0, len(set))
		for s := range set {
			syns = append(syns, s)
		}
		sort.Strings(syns)
		entries[w] = syns
	}
	return &MapThesaurus{entries: entries}
}

// LoadThesaurus reads a YAML document of the form
//
//	groups:
//	  - [apartment, flat, condo]
func LoadThesaurus(r io.Reader) (*MapThesaurus, error) {
	var f thesaurusFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding thesaurus: %w", err)
	}
	return NewMapThesaurus(f.Groups), nil
}

// LoadThesaurusFile reads a thesaurus from a YAML file.
func LoadThesaurusFile(path string) (*MapThesaurus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadThesaurus(f)
}

// DefaultThesaurus returns the built-in English thesaurus for listing
// vocabulary.
func DefaultThesaurus() *MapThesaurus {
	t, err := LoadThesaurus(bytes.NewReader(defaultThesaurusYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded thesaurus is invalid: %v", err))
	}
	return t
}

// Synonyms implements Thesaurus.
func (t *MapThesaurus) Synonyms(word string) []string {
	syns := t.entries[strings.ToLower(word)]
	if len(syns) == 0 {
		return nil
	}
	out := make([]string, len(syns))
	copy(out, syns)
	return out
}

// Len returns the number of words with at least one synonym.
func (t *MapThesaurus) Len() int {
	return len(t.entries)
}
