package resolver

import (
	"errors"
	"sort"
	"strings"

	"github.com/frederic-klein/specsync/internal/dist"
	"github.com/frederic-klein/specsync/internal/requirement"
	"github.com/frederic-klein/specsync/internal/version"
)

// DiscardReason explains why a raw requirement produced no entry.
type DiscardReason string

const (
	ReasonNotRequirement DiscardReason = "not-a-requirement"
	ReasonMarker         DiscardReason = "marker"
	ReasonIgnored        DiscardReason = "ignored"
)

// Discard records a raw requirement that was dropped.
type Discard struct {
	Raw      string
	Name     string // canonical name, empty for not-a-requirement lines
	Category dist.Category
	Reason   DiscardReason
}

// Result is the sanitized form of one requirement category.
type Result struct {
	Requirements dist.Requirements
	Discarded    []Discard
}

// Sanitizer turns raw requirement strings into canonical requirements for a
// fixed target environment and ignore list.
type Sanitizer struct {
	env    requirement.Environment
	ignore map[string]bool
}

// NewSanitizer creates a sanitizer. ignore holds lowercased package names
// and is matched case-insensitively; it is not modified.
func NewSanitizer(env requirement.Environment, ignore map[string]bool) *Sanitizer {
	return &Sanitizer{env: env, ignore: ignore}
}

// Ignored reports whether name is on the ignore list.
func (s *Sanitizer) Ignored(name string) bool {
	return s.ignore[strings.ToLower(name)]
}

// Sanitize cleans, parses and filters raws, tagging each result with category.
// A later entry for the same name overwrites an earlier one.
func (s *Sanitizer) Sanitize(category dist.Category, raws []string) (*Result, error) {
	result := &Result{Requirements: make(dist.Requirements)}

	for _, raw := range raws {
		line, err := requirement.Clean(raw)
		if errors.Is(err, requirement.ErrNotRequirement) {
			if strings.TrimSpace(raw) != "" {
				result.Discarded = append(result.Discarded, Discard{
					Raw: raw, Category: category, Reason: ReasonNotRequirement,
				})
			}
			continue
		}

		req, err := requirement.Parse(line)
		if err != nil {
			return nil, err
		}
		name := CanonicalName(req.Name)

		applies, err := req.Applies(s.env)
		if err != nil {
			return nil, &requirement.MalformedError{Raw: raw, Err: err}
		}
		if !applies {
			result.Discarded = append(result.Discarded, Discard{
				Raw: raw, Name: name, Category: category, Reason: ReasonMarker,
			})
			continue
		}

		result.Requirements[name] = dist.Requirement{
			Name:       name,
			MinVersion: version.ToRPM(version.Minimum(req.Specifiers)),
			Category:   category,
		}
	}

	for _, name := range result.Requirements.Names() {
		if s.Ignored(name) {
			delete(result.Requirements, name)
			result.Discarded = append(result.Discarded, Discard{
				Name: name, Category: category, Reason: ReasonIgnored,
			})
		}
	}
	return result, nil
}

// CanonicalName maps a Python project name to its RPM package name.
func CanonicalName(name string) string {
	return dist.NamePrefix + strings.ToLower(name)
}

// FlattenExtras turns an extras_require mapping into plain requirement
// strings. Keys of the form "[extra][:marker]" add their marker to every
// value; keys are visited in sorted order.
func FlattenExtras(extras map[string][]string) []string {
	keys := make([]string, 0, len(extras))
	for key := range extras {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		keyMarker := ""
		if idx := strings.Index(key, ":"); idx != -1 {
			keyMarker = strings.TrimSpace(key[idx+1:])
		}

		for _, value := range extras[key] {
			for _, raw := range strings.Split(value, "\n") {
				line, err := requirement.Clean(raw)
				if err != nil {
					continue
				}
				out = append(out, withMarker(line, keyMarker))
			}
		}
	}
	return out
}

func withMarker(line, marker string) string {
	if marker == "" {
		return line
	}
	// URL requirements need whitespace before the marker separator, since
	// ";" may appear inside the URL.
	sep, joined := ";", "; "
	if strings.Contains(line, "@") {
		sep, joined = " ;", " ; "
	}
	if idx := strings.Index(line, sep); idx != -1 {
		own := strings.TrimSpace(line[idx+len(sep):])
		return strings.TrimRight(line[:idx], " ") + joined + "(" + own + ") and (" + marker + ")"
	}
	return line + joined + marker
}
