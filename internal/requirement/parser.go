// Package requirement parses PEP 508 requirement strings and evaluates
// their environment markers against a fixed target environment.
package requirement

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/frederic-klein/specsync/internal/version"
)

var (
	// ErrNotRequirement signals a line that carries no requirement, such as a
	// blank line, a comment, a section header or a pip option.
	ErrNotRequirement = errors.New("not a requirement")

	// ErrMalformedRequirement is wrapped by every MalformedError.
	ErrMalformedRequirement = errors.New("malformed requirement")
)

// MalformedError reports a string that is not valid requirement syntax.
type MalformedError struct {
	Raw string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed requirement %q: %v", e.Raw, e.Err)
}

func (e *MalformedError) Unwrap() []error {
	return []error{ErrMalformedRequirement, e.Err}
}

// Requirement is a parsed requirement string.
type Requirement struct {
	Name       string
	Extras     []string
	Specifiers []version.Specifier
	URL        string
	Marker     *Marker // nil when the requirement is unconditional
}

// Applies reports whether the requirement is wanted under env.
func (r *Requirement) Applies(env Environment) (bool, error) {
	if r.Marker == nil {
		return true, nil
	}
	return r.Marker.Evaluate(env)
}

var (
	tarballURLRe = regexp.MustCompile(`^https?://tarballs\.openstack\.org/([^/\s]+)/`)
	clientNameRe = regexp.MustCompile(`(?i)^python-(\w+client)$`)
	nameRe       = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*`)
	extrasRe     = regexp.MustCompile(`^\[([^\]]*)\]\s*`)
	identifierRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

// Parse parses a cleaned requirement string (see Clean).
func Parse(raw string) (*Requirement, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, ErrNotRequirement
	}

	// Legacy tarball references name the project in the URL path.
	if matches := tarballURLRe.FindStringSubmatch(s); matches != nil {
		s = matches[1]
	}

	req, err := parse(s)
	if err != nil {
		return nil, &MalformedError{Raw: raw, Err: err}
	}

	if matches := clientNameRe.FindStringSubmatch(req.Name); matches != nil {
		req.Name = matches[1]
	}
	return req, nil
}

func parse(s string) (*Requirement, error) {
	matches := nameRe.FindStringSubmatch(s)
	if matches == nil {
		return nil, errors.New("missing package name")
	}
	req := &Requirement{Name: matches[1]}
	rest := s[len(matches[0]):]

	if matches := extrasRe.FindStringSubmatch(rest); matches != nil {
		for _, extra := range strings.Split(matches[1], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !identifierRe.MatchString(extra) {
				return nil, fmt.Errorf("invalid extra %q", extra)
			}
			req.Extras = append(req.Extras, extra)
		}
		rest = rest[len(matches[0]):]
	}

	var markerText string
	hasMarker := false
	if strings.HasPrefix(rest, "@") {
		// URL requirements need whitespace before the marker separator, since
		// ";" may legitimately appear inside a URL.
		urlPart := strings.TrimSpace(rest[1:])
		if idx := strings.Index(urlPart, " ;"); idx != -1 {
			markerText = urlPart[idx+2:]
			hasMarker = true
			urlPart = strings.TrimSpace(urlPart[:idx])
		}
		if urlPart == "" {
			return nil, errors.New("missing URL after @")
		}
		req.URL = urlPart
	} else {
		specText := rest
		if idx := strings.Index(rest, ";"); idx != -1 {
			specText = rest[:idx]
			markerText = rest[idx+1:]
			hasMarker = true
		}
		specText = strings.TrimSpace(specText)
		if strings.HasPrefix(specText, "(") {
			if !strings.HasSuffix(specText, ")") {
				return nil, errors.New("unbalanced parentheses in version specifier")
			}
			specText = specText[1 : len(specText)-1]
		}
		specs, err := version.ParseSpecifierSet(specText)
		if err != nil {
			return nil, err
		}
		req.Specifiers = specs
	}

	if hasMarker {
		marker, err := ParseMarker(markerText)
		if err != nil {
			return nil, err
		}
		req.Marker = marker
	}
	return req, nil
}

var (
	commentRe     = regexp.MustCompile(`(^|\s+)#.*$`)
	editableURLRe = regexp.MustCompile(`(^|\s)-e\s+\S+`)
)

// Clean strips comments, surrounding whitespace and inline "-e <url>"
// fragments from a requirements line. It returns ErrNotRequirement for lines
// that carry nothing to parse: blanks, "-f" find-links, "[section]" headers
// and other pip options.
func Clean(line string) (string, error) {
	line = commentRe.ReplaceAllString(line, "")
	line = editableURLRe.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return "", ErrNotRequirement
	case strings.HasPrefix(line, "-f"), strings.HasPrefix(line, "["):
		return "", ErrNotRequirement
	case strings.HasPrefix(line, "-"):
		return "", ErrNotRequirement
	}
	return line, nil
}
