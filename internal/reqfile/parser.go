// Package reqfile reads pip/setuptools requirement files: requirements.txt,
// test-requirements.txt and the requires.txt written into *.egg-info.
package reqfile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Parser parses requirement files.
type Parser struct{}

// NewParser creates a new requirement file parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseResult contains the requirement lines of a file. Lines before the
// first section header are top-level; requires.txt lists each extra under
// a "[extra]" or "[extra:marker]" header.
type ParseResult struct {
	Requirements []string
	Sections     map[string][]string
}

// NewParseResult creates an empty parse result.
func NewParseResult() *ParseResult {
	return &ParseResult{
		Sections: make(map[string][]string),
	}
}

var sectionRe = regexp.MustCompile(`^\s*\[([^\]]*)\]\s*$`)

// Parse reads requirement lines from r. Comment and blank lines are dropped;
// everything else is returned verbatim for the sanitizer to interpret.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	result := NewParseResult()
	section := ""
	inSection := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Skip comments and empty lines
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if matches := sectionRe.FindStringSubmatch(line); matches != nil {
			section = strings.TrimSpace(matches[1])
			inSection = true
			if _, ok := result.Sections[section]; !ok {
				result.Sections[section] = nil
			}
			continue
		}

		if inSection {
			result.Sections[section] = append(result.Sections[section], trimmed)
		} else {
			result.Requirements = append(result.Requirements, trimmed)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading requirement file: %w", err)
	}

	return result, nil
}
