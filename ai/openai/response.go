package openai

import (
	"strings"
	"unicode"
)

// cleanResponse turns a chat completion into something encoding/json accepts.
func cleanResponse(s string) string {
	return repairJSON(stripCodeFence(s))
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON patches the object syntax chat models tend to get wrong in JSON
// mode: keys missing their opening quote, bare keys and trailing commas.
// String contents are never touched.
func repairJSON(s string) string {
	var (
		b        strings.Builder
		nesting  []byte
		last     byte
		inString bool
	)
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' {
				inString = false
				last = c
			}
			continue
		case c == '"':
			inString = true
		case c == '{' || c == '[':
			nesting = append(nesting, c)
		case c == '}' || c == ']':
			if len(nesting) > 0 {
				nesting = nesting[:len(nesting)-1]
			}
		case c == ',' && closesNext(s[i+1:]):
			continue
		case isKeyByte(c) && !isDigit(c) && len(nesting) > 0 && nesting[len(nesting)-1] == '{' && (last == '{' || last == ','):
			j := i
			for j < len(s) && isKeyByte(s[j]) {
				j++
			}
			b.WriteByte('"')
			b.WriteString(s[i:j])
			b.WriteByte('"')
			last = '"'
			if j < len(s) && s[j] == '"' {
				i = j
			} else {
				i = j - 1
			}
			continue
		}
		b.WriteByte(c)
		if !unicode.IsSpace(rune(c)) {
			last = c
		}
	}
	return b.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}

func isKeyByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// normalizeToken lower-cases a candidate word and drops punctuation.
func normalizeToken(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.TrimSpace(s)
}
