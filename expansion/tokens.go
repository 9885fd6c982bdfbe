package expansion

import (
	"strings"
	"unicode"
)

// syntaxChars have meaning to the index query parser.
const syntaxChars = "\"():*?^~[]{}\\+-!"

var operators = map[string]struct{}{"AND": {}, "OR": {}, "NOT": {}}

type piece struct {
	text string
	word bool // expandable plain word
}

// splitQuery cuts text into pieces at whitespace. Quoted phrases stay whole,
// parentheses become their own pieces, and only bare words are marked
// expandable.
func splitQuery(text string) []piece {
	var (
		out []piece
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		s := buf.String()
		buf.Reset()
		out = append(out, piece{text: s, word: isWord(s)})
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			flush()
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			if j < len(runes) {
				j++ // include closing quote
			}
			out = append(out, piece{text: string(runes[i:j])})
			i = j - 1
		case r == '(' || r == ')':
			flush()
			out = append(out, piece{text: string(r)})
		case unicode.IsSpace(r):
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return out
}

func isWord(s string) bool {
	if _, op := operators[s]; op {
		return false
	}
	if strings.ContainsAny(s, syntaxChars) {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// joinPieces reassembles pieces with single spaces, keeping parentheses
// tight against their contents.
func joinPieces(pieces []string) string {
	var b strings.Builder
	for i, p := range pieces {
		if i > 0 && p != ")" && pieces[i-1] != "(" {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// plainSentence returns the words of pieces as a natural-language sentence
// for embedding, with operators and syntax dropped. replace, when >= 0,
// substitutes the piece at that index with sub.
func plainSentence(pieces []piece, replace int, sub string) string {
	words := make([]string, 0, len(pieces))
	for i, p := range pieces {
		if i == replace {
			words = append(words, sub)
			continue
		}
		if _, op := operators[p.text]; op || p.text == "(" || p.text == ")" {
			continue
		}
		words = append(words, strings.Trim(p.text, `"`))
	}
	return strings.Join(words, " ")
}

// sanitizeCandidate normalizes a thesaurus lemma or model filler into query
// text. It returns "" for candidates that would change the query structure.
// Multi-word candidates become quoted phrases.
func sanitizeCandidate(c string) string {
	c = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(c, "_", " ")))
	if c == "" || strings.ContainsAny(c, syntaxChars) {
		return ""
	}
	fields := strings.Fields(c)
	if len(fields) == 1 {
		if _, op := operators[strings.ToUpper(c)]; op {
			return ""
		}
		return c
	}
	return `"` + strings.Join(fields, " ") + `"`
}

// assemble rebuilds the query with every expanded word followed by its
// candidates.
func assemble(pieces []piece, expansions map[int][]string, connector string) string {
	out := make([]string, 0, len(pieces))
	for i, p := range pieces {
		cands := expansions[i]
		if len(cands) == 0 {
			out = append(out, p.text)
			continue
		}
		out = append(out, p.text+connector+strings.Join(cands, connector))
	}
	return joinPieces(out)
}
