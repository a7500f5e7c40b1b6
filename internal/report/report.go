// Package report holds the diagnostics produced while synchronizing a spec
// file and prints them for the packager.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/frederic-klein/specsync/internal/dist"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Kind classifies a diagnostic.
type Kind string

const (
	// KindMissingUpstreamRequirement: an upstream requirement has no spec entry.
	KindMissingUpstreamRequirement Kind = "MissingUpstreamRequirement"
	// KindStaleSpecRequirement: a spec entry has no upstream requirement.
	KindStaleSpecRequirement Kind = "StaleSpecRequirement"
)

// Diagnostic is a single reportable finding.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Name     string
	Category dist.Category // set for missing requirements only
	SpecFile string
}

// Message returns the diagnostic text without its severity prefix.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case KindMissingUpstreamRequirement:
		return fmt.Sprintf("%s (%s) not found in %s", d.Name, d.Category, d.SpecFile)
	case KindStaleSpecRequirement:
		return fmt.Sprintf("%s not found in upstream metadata (%s)", d.Name, d.SpecFile)
	}
	return d.Name
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Severity, d.Message())
}

// Report is the outcome of auditing one spec file.
type Report struct {
	SpecFile   string
	Missing    []dist.Requirement
	Unexpected []string
	Rewritten  int      // directive lines rewritten
	Dropped    []string // entries removed from rewritten lines
}

// New creates an empty report for specFile.
func New(specFile string) *Report {
	return &Report{SpecFile: specFile}
}

// AddMissing records an upstream requirement absent from the spec file.
func (r *Report) AddMissing(req dist.Requirement) {
	r.Missing = append(r.Missing, req)
}

// AddUnexpected records a spec entry with no upstream counterpart.
func (r *Report) AddUnexpected(name string) {
	r.Unexpected = append(r.Unexpected, name)
}

// HasErrors reports whether any ERROR diagnostic is present.
func (r *Report) HasErrors() bool {
	return len(r.Missing) > 0
}

// Empty reports whether there is nothing to print.
func (r *Report) Empty() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// Diagnostics returns errors then warnings, each group sorted by name.
func (r *Report) Diagnostics() []Diagnostic {
	missing := make([]dist.Requirement, len(r.Missing))
	copy(missing, r.Missing)
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].Name < missing[j].Name
	})
	unexpected := make([]string, len(r.Unexpected))
	copy(unexpected, r.Unexpected)
	sort.Strings(unexpected)

	diags := make([]Diagnostic, 0, len(missing)+len(unexpected))
	for _, req := range missing {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Kind:     KindMissingUpstreamRequirement,
			Name:     req.Name,
			Category: req.Category,
			SpecFile: r.SpecFile,
		})
	}
	for _, name := range unexpected {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Kind:     KindStaleSpecRequirement,
			Name:     name,
			SpecFile: r.SpecFile,
		})
	}
	return diags
}

var (
	errorPrefix   = color.New(color.FgRed, color.Bold)
	warningPrefix = color.New(color.FgYellow)
)

// Print writes one line per diagnostic to w. Prefixes are coloured unless
// color.NoColor is set, which fatih/color does when stdout is not a terminal.
func (r *Report) Print(w io.Writer) error {
	for _, d := range r.Diagnostics() {
		prefix := warningPrefix
		if d.Severity == SeverityError {
			prefix = errorPrefix
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", prefix.Sprint(string(d.Severity)), d.Message()); err != nil {
			return err
		}
	}
	return nil
}
