// Package specfile reads, rewrites and writes RPM spec files. Only
// Requires and BuildRequires directives are interpreted; every other line is
// carried through byte for byte.
package specfile

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/rpmpack"
)

var (
	directiveRe = regexp.MustCompile(`(?i)^(Requires(\([^)]*\))?|BuildRequires):\s*`)
	operatorRe  = regexp.MustCompile(`^(<=|>=|==|<|>|=)$`)
)

// File is a parsed spec file.
type File struct {
	Lines []*Line
}

// Line is a single line of a spec file. Text excludes the line terminator,
// Ending holds it ("\n", "\r\n" or "" for a final unterminated line).
type Line struct {
	Text      string
	Ending    string
	Directive *Directive // nil for lines that are not Requires/BuildRequires
}

// Directive is a Requires or BuildRequires line split into its prefix
// ("Requires:       ") and its value.
type Directive struct {
	Prefix string
	Value  string
}

// Entry is one relation of a directive value.
type Entry struct {
	Raw      string            // as written, e.g. "python-foo >= 1.2"
	Relation *rpmpack.Relation // nil when rpm would reject the entry
}

// Name returns the package name of the entry, or "" when the entry does
// not name a single package.
func (e Entry) Name() string {
	if !e.Package() {
		return ""
	}
	return e.Relation.Name
}

// Package reports whether the entry names a single package. Rich
// dependencies such as "(python-foo or python-bar)" do not.
func (e Entry) Package() bool {
	if e.Relation == nil || e.Relation.Name == "" || strings.HasPrefix(e.Relation.Name, "(") {
		return false
	}
	return e.Relation.Sense&rpmpack.SenseRPMLIB == 0
}

// FirstToken returns the package name of the first entry of the value, or
// "" when the value is empty or starts with a rich dependency.
func (d *Directive) FirstToken() string {
	entries := d.Entries()
	if len(entries) == 0 {
		return ""
	}
	return entries[0].Name()
}

// Entries lists the relations of the directive value. Entries are separated
// by commas or whitespace; an operator and version following a name belong
// to it, and a parenthesized rich dependency is a single entry.
func (d *Directive) Entries() []Entry {
	tokens := splitTokens(d.Value)

	var entries []Entry
	for i := 0; i < len(tokens); i++ {
		raw := tokens[i]
		switch {
		case i+2 < len(tokens) && operatorRe.MatchString(tokens[i+1]):
			raw = strings.Join(tokens[i:i+3], " ")
			i += 2
		case i+1 < len(tokens) && !strings.HasPrefix(raw, "(") &&
			(strings.ContainsAny(raw[len(raw)-1:], "<>=") || strings.ContainsAny(tokens[i+1][:1], "<>=")):
			raw += tokens[i+1]
			i++
		}
		entries = append(entries, Entry{Raw: raw, Relation: relation(raw)})
	}
	return entries
}

// relation parses an entry the way rpm reads a dependency. "==" is
// accepted as a spelling of "=".
func relation(raw string) *rpmpack.Relation {
	rel, err := rpmpack.NewRelation(strings.Replace(raw, "==", "=", 1))
	if err != nil {
		return nil
	}
	return rel
}

// splitTokens splits a directive value on commas and whitespace, keeping
// each balanced parenthesized group together.
func splitTokens(value string) []string {
	var tokens []string
	var current strings.Builder
	depth := 0
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range value {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return tokens
}

// Parser reads spec files.
type Parser struct {
	r io.Reader
}

// NewParser creates a new spec file parser.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: r}
}

// Parse reads all lines from the underlying reader.
func (p *Parser) Parse() (*File, error) {
	data, err := io.ReadAll(p.r)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse splits text into classified lines.
func Parse(text string) *File {
	f := &File{}
	for _, chunk := range strings.SplitAfter(text, "\n") {
		if chunk == "" {
			continue
		}
		line := &Line{Text: chunk}
		switch {
		case strings.HasSuffix(chunk, "\r\n"):
			line.Text, line.Ending = chunk[:len(chunk)-2], "\r\n"
		case strings.HasSuffix(chunk, "\n"):
			line.Text, line.Ending = chunk[:len(chunk)-1], "\n"
		}
		line.Directive = parseDirective(line.Text)
		f.Lines = append(f.Lines, line)
	}
	return f
}

func parseDirective(text string) *Directive {
	loc := directiveRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	return &Directive{Prefix: text[:loc[1]], Value: text[loc[1]:]}
}

// Directives returns the Requires/BuildRequires lines in file order.
func (f *File) Directives() []*Line {
	var lines []*Line
	for _, line := range f.Lines {
		if line.Directive != nil {
			lines = append(lines, line)
		}
	}
	return lines
}

// SetRequirement replaces the value of a directive line with name and an
// optional minimum version, keeping the directive prefix and line ending.
// It returns the entries after the first one, which the rewrite removes.
func (l *Line) SetRequirement(name, minVersion string) []string {
	var dropped []string
	for i, entry := range l.Directive.Entries() {
		if i > 0 {
			dropped = append(dropped, entry.Raw)
		}
	}

	value := name
	if minVersion != "" {
		value += " >= " + minVersion
	}
	l.Directive.Value = value
	l.Text = l.Directive.Prefix + value
	return dropped
}
