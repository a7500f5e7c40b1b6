package extractor

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// maxNameDepth bounds how far module-level name references are followed.
const maxNameDepth = 8

// readSetupPy statically reads the keyword arguments of the setup() call in
// setup.py. Only literal values are understood: strings, lists, tuples,
// dicts, module-level names bound to those and "+" concatenation. A keyword
// whose value is computed at runtime is treated as absent.
func readSetupPy(files archiveFiles) (*fields, error) {
	src, ok := files.get("setup.py")
	if !ok {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing setup.py: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	sp := &setupPy{src: src, names: moduleAssignments(root, src)}

	call := findSetupCall(root, src)
	if call == nil {
		return nil, nil
	}

	f := &fields{}
	args := call.ChildByFieldName("arguments")
	for i := 0; args != nil && i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "keyword_argument" {
			continue
		}
		name := arg.ChildByFieldName("name").Content(src)
		value := arg.ChildByFieldName("value")

		switch name {
		case "install_requires":
			if v, ok := sp.eval(value, 0); ok {
				f.install, f.hasInstall = v.lines(), true
			}
		case "tests_require":
			if v, ok := sp.eval(value, 0); ok {
				f.tests, f.hasTests = v.lines(), true
			}
		case "extras_require":
			if v, ok := sp.eval(value, 0); ok && v.dict != nil {
				f.extras, f.hasExtras = v.dict, true
			}
		}
	}

	if !f.hasInstall && !f.hasExtras && !f.hasTests {
		return nil, nil
	}
	return f, nil
}

// pyValue is a statically evaluated Python literal.
type pyValue struct {
	list []string            // str, list or tuple of str
	dict map[string][]string // dict of str to str/list
}

func (v pyValue) lines() []string {
	var out []string
	for _, s := range v.list {
		out = append(out, splitLines(s)...)
	}
	return out
}

type setupPy struct {
	src   []byte
	names map[string]*sitter.Node
}

func (sp *setupPy) eval(n *sitter.Node, depth int) (pyValue, bool) {
	if n == nil || depth > maxNameDepth {
		return pyValue{}, false
	}

	switch n.Type() {
	case "string", "concatenated_string":
		s, ok := stringLiteral(n, sp.src)
		return pyValue{list: []string{s}}, ok

	case "list", "tuple":
		var out []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "comment" {
				continue
			}
			v, ok := sp.eval(child, depth+1)
			if !ok || v.dict != nil {
				return pyValue{}, false
			}
			out = append(out, v.list...)
		}
		return pyValue{list: out}, true

	case "dictionary":
		dict := make(map[string][]string)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			pair := n.NamedChild(i)
			if pair.Type() == "comment" {
				continue
			}
			if pair.Type() != "pair" {
				return pyValue{}, false
			}
			key, ok := stringLiteral(pair.ChildByFieldName("key"), sp.src)
			if !ok {
				return pyValue{}, false
			}
			v, ok := sp.eval(pair.ChildByFieldName("value"), depth+1)
			if !ok || v.dict != nil {
				return pyValue{}, false
			}
			dict[key] = v.lines()
		}
		return pyValue{dict: dict}, true

	case "parenthesized_expression":
		if n.NamedChildCount() != 1 {
			return pyValue{}, false
		}
		return sp.eval(n.NamedChild(0), depth+1)

	case "identifier":
		bound, ok := sp.names[n.Content(sp.src)]
		if !ok {
			return pyValue{}, false
		}
		return sp.eval(bound, depth+1)

	case "binary_operator":
		op := n.ChildByFieldName("operator")
		if op == nil || op.Type() != "+" {
			return pyValue{}, false
		}
		left, ok := sp.eval(n.ChildByFieldName("left"), depth+1)
		if !ok || left.dict != nil {
			return pyValue{}, false
		}
		right, ok := sp.eval(n.ChildByFieldName("right"), depth+1)
		if !ok || right.dict != nil {
			return pyValue{}, false
		}
		return pyValue{list: append(append([]string{}, left.list...), right.list...)}, true
	}
	return pyValue{}, false
}

// moduleAssignments maps each simple module-level name to the expression
// last assigned to it.
func moduleAssignments(root *sitter.Node, src []byte) map[string]*sitter.Node {
	names := make(map[string]*sitter.Node)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign.Type() != "assignment" {
			continue
		}
		left, right := assign.ChildByFieldName("left"), assign.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != "identifier" {
			continue
		}
		names[left.Content(src)] = right
	}
	return names
}

// findSetupCall returns the first call to setup() or <module>.setup().
func findSetupCall(n *sitter.Node, src []byte) *sitter.Node {
	if n.Type() == "call" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				if fn.Content(src) == "setup" {
					return n
				}
			case "attribute":
				if attr := fn.ChildByFieldName("attribute"); attr != nil && attr.Content(src) == "setup" {
					return n
				}
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if call := findSetupCall(n.NamedChild(i), src); call != nil {
			return call
		}
	}
	return nil
}

// stringLiteral returns the value of a plain or implicitly concatenated
// string literal. Escape sequences are kept as written; f-strings and byte
// strings are rejected.
func stringLiteral(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	if n.Type() == "concatenated_string" {
		var b strings.Builder
		for i := 0; i < int(n.NamedChildCount()); i++ {
			part, ok := stringLiteral(n.NamedChild(i), src)
			if !ok {
				return "", false
			}
			b.WriteString(part)
		}
		return b.String(), true
	}
	if n.Type() != "string" {
		return "", false
	}

	text := n.Content(src)
	prefixEnd := strings.IndexAny(text, `'"`)
	if prefixEnd == -1 {
		return "", false
	}
	prefix := strings.ToLower(text[:prefixEnd])
	if strings.ContainsAny(prefix, "fb") {
		return "", false
	}
	text = text[prefixEnd:]

	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(text) >= 2*len(quote) && strings.HasPrefix(text, quote) && strings.HasSuffix(text, quote) {
			return text[len(quote) : len(text)-len(quote)], true
		}
	}
	return "", false
}
