package requirement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/frederic-klein/specsync/internal/version"
)

// Marker is a parsed PEP 508 environment marker.
type Marker struct {
	text string
	root markerNode
}

func (m *Marker) String() string {
	return m.text
}

// Evaluate reports whether the marker holds under env. Comparisons against
// "extra" always hold: every extra an upstream project declares is packaged.
func (m *Marker) Evaluate(env Environment) (bool, error) {
	return m.root.eval(env)
}

type markerNode interface {
	eval(env Environment) (bool, error)
}

type boolNode struct {
	and         bool
	left, right markerNode
}

func (n *boolNode) eval(env Environment) (bool, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if n.and && !left {
		return false, nil
	}
	if !n.and && left {
		return true, nil
	}
	return n.right.eval(env)
}

type operand struct {
	variable string // empty for string literals
	literal  string
}

func (o operand) value(env Environment) (string, error) {
	if o.variable == "" {
		return o.literal, nil
	}
	v, ok := env.Lookup(o.variable)
	if !ok {
		return "", fmt.Errorf("unknown marker variable %q", o.variable)
	}
	return v, nil
}

type compareNode struct {
	left, right operand
	op          string
}

func (n *compareNode) eval(env Environment) (bool, error) {
	if n.left.variable == "extra" || n.right.variable == "extra" {
		return true, nil
	}
	lhs, err := n.left.value(env)
	if err != nil {
		return false, err
	}
	rhs, err := n.right.value(env)
	if err != nil {
		return false, err
	}

	switch n.op {
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	case "===":
		return lhs == rhs, nil
	}

	if (n.op == "==" || n.op == "!=") && strings.HasSuffix(rhs, ".*") {
		prefix := strings.TrimSuffix(rhs, "*")
		match := strings.HasPrefix(lhs+".", prefix)
		return match == (n.op == "=="), nil
	}

	if version.Valid(lhs) && version.Valid(rhs) {
		return compareVersions(lhs, rhs, n.op)
	}
	return compareStrings(lhs, rhs, n.op)
}

func compareVersions(lhs, rhs, op string) (bool, error) {
	cmp := version.Compare(lhs, rhs)
	switch op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "~=":
		parts := strings.Split(rhs, ".")
		if len(parts) < 2 {
			return false, fmt.Errorf("~= needs at least two release segments, got %q", rhs)
		}
		prefix := strings.Join(parts[:len(parts)-1], ".") + "."
		return cmp >= 0 && strings.HasPrefix(lhs+".", prefix), nil
	}
	return false, fmt.Errorf("unsupported marker operator %q", op)
}

func compareStrings(lhs, rhs, op string) (bool, error) {
	switch op {
	case "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case ">=":
		return lhs >= rhs, nil
	}
	return false, fmt.Errorf("operator %q needs version operands, got %q and %q", op, lhs, rhs)
}

// ParseMarker parses a marker expression such as
// `python_version < "3" and sys_platform == 'linux'`.
func ParseMarker(text string) (*Marker, error) {
	tokens, err := tokenizeMarker(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty marker")
	}
	p := &markerParser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q in marker", p.tokens[p.pos].text)
	}
	return &Marker{text: strings.TrimSpace(text), root: root}, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

var markerOps = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">"}

func tokenizeMarker(s string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end == -1 {
				return nil, fmt.Errorf("unterminated string in marker %q", s)
			}
			tokens = append(tokens, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case isIdentByte(c):
			j := i
			for j < len(s) && (isIdentByte(s[j]) || s[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokIdent, s[i:j]})
			i = j
		default:
			matched := false
			for _, op := range markerOps {
				if strings.HasPrefix(s[i:], op) {
					tokens = append(tokens, token{tokOp, op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("unexpected character %q in marker %q", c, s)
			}
		}
	}
	return tokens, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type markerParser struct {
	tokens []token
	pos    int
}

func (p *markerParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *markerParser) keyword(word string) bool {
	tok, ok := p.peek()
	if ok && tok.kind == tokIdent && tok.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *markerParser) parseOr() (markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolNode{and: false, left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (markerNode, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = &boolNode{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (markerNode, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, errors.New("unexpected end of marker")
	}
	if tok.kind == tokLParen {
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok, ok := p.peek(); !ok || tok.kind != tokRParen {
			return nil, errors.New("missing closing parenthesis in marker")
		}
		p.pos++
		return node, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if left.variable == "" && right.variable == "" {
		return nil, errors.New("marker compares two literals")
	}
	return &compareNode{left: left, right: right, op: op}, nil
}

func (p *markerParser) parseOperand() (operand, error) {
	tok, ok := p.peek()
	if !ok {
		return operand{}, errors.New("unexpected end of marker")
	}
	p.pos++
	switch tok.kind {
	case tokString:
		return operand{literal: tok.text}, nil
	case tokIdent:
		if !knownVariables[tok.text] {
			return operand{}, fmt.Errorf("unknown marker variable %q", tok.text)
		}
		return operand{variable: tok.text}, nil
	}
	return operand{}, fmt.Errorf("unexpected %q in marker", tok.text)
}

func (p *markerParser) parseOperator() (string, error) {
	tok, ok := p.peek()
	if !ok {
		return "", errors.New("missing operator in marker")
	}
	p.pos++
	switch {
	case tok.kind == tokOp:
		return tok.text, nil
	case tok.kind == tokIdent && tok.text == "in":
		return "in", nil
	case tok.kind == tokIdent && tok.text == "not":
		if p.keyword("in") {
			return "not in", nil
		}
	}
	return "", fmt.Errorf("unexpected %q where a marker operator was expected", tok.text)
}
