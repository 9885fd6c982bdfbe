package index

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/poiesic/placerank/core"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPhrase
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func (t token) String() string {
	switch t.kind {
	case tokPhrase:
		return `"` + t.text + `"`
	case tokLParen:
		return "("
	case tokRParen:
		return ")"
	}
	return t.text
}

func lex(text string) ([]token, error) {
	var (
		out []token
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		w := buf.String()
		buf.Reset()
		switch w {
		case "AND":
			out = append(out, token{kind: tokAnd, text: w})
		case "OR":
			out = append(out, token{kind: tokOr, text: w})
		case "NOT":
			out = append(out, token{kind: tokNot, text: w})
		default:
			out = append(out, token{kind: tokWord, text: w})
		}
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			flush()
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			if end == len(runes) {
				return nil, fmt.Errorf("%w: unterminated phrase", core.ErrInvalidQuery)
			}
			phrase := strings.Join(strings.Fields(string(runes[i+1:end])), " ")
			if phrase != "" {
				out = append(out, token{kind: tokPhrase, text: phrase})
			}
			i = end
		case r == '(':
			flush()
			out = append(out, token{kind: tokLParen})
		case r == ')':
			flush()
			out = append(out, token{kind: tokRParen})
		case unicode.IsSpace(r):
			flush()
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return out, nil
}

type nodeKind int

const (
	nodeTerm nodeKind = iota
	nodePhrase
	nodeSeq
	nodeAnd
	nodeOr
	nodeNot
)

// node is a parsed query expression. Seq nodes combine their children with
// the caller's TermPolicy; And and Or nodes are explicit operators.
type node struct {
	kind     nodeKind
	text     string
	children []*node
}

type parser struct {
	tokens []token
	pos    int
}

// parse turns query text into an expression tree. Blank text yields nil.
func parse(text string) (*node, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	p := &parser{tokens: tokens}
	n, err := p.seq()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q", core.ErrInvalidQuery, p.tokens[p.pos])
	}
	return n, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) seq() (*node, error) {
	var children []*node
	for {
		t, ok := p.peek()
		if !ok || t.kind == tokRParen {
			break
		}
		n, err := p.or()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	switch len(children) {
	case 0:
		return nil, fmt.Errorf("%w: empty expression", core.ErrInvalidQuery)
	case 1:
		return children[0], nil
	}
	return &node{kind: nodeSeq, children: children}, nil
}

func (p *parser) or() (*node, error) {
	return p.binary(tokOr, nodeOr, p.and)
}

func (p *parser) and() (*node, error) {
	return p.binary(tokAnd, nodeAnd, p.unary)
}

func (p *parser) binary(op tokenKind, kind nodeKind, operand func() (*node, error)) (*node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	children := []*node{first}
	for {
		t, ok := p.peek()
		if !ok || t.kind != op {
			break
		}
		p.pos++
		next, err := operand()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &node{kind: kind, children: children}, nil
}

func (p *parser) unary() (*node, error) {
	t, ok := p.peek()
	if ok && t.kind == tokNot {
		p.pos++
		child, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeNot, children: []*node{child}}, nil
	}
	return p.atom()
}

func (p *parser) atom() (*node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: dangling operator", core.ErrInvalidQuery)
	}
	p.pos++
	switch t.kind {
	case tokWord:
		return &node{kind: nodeTerm, text: t.text}, nil
	case tokPhrase:
		return &node{kind: nodePhrase, text: t.text}, nil
	case tokLParen:
		n, err := p.seq()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis", core.ErrInvalidQuery)
		}
		p.pos++
		return n, nil
	}
	return nil, fmt.Errorf("%w: unexpected %q", core.ErrInvalidQuery, t)
}

// render writes tokens back as query text.
func render(tokens []token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && t.kind != tokRParen && tokens[i-1].kind != tokLParen {
			b.WriteByte(' ')
		}
		b.WriteString(t.String())
	}
	return b.String()
}
