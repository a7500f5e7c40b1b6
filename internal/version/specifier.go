// Package version models Python version specifiers and translates
// Python versions into RPM comparable tokens.
package version

import (
	"fmt"
	"regexp"
	"strings"
)

// Operator is a PEP 440 comparison operator.
type Operator string

const (
	OpArbitrary    Operator = "==="
	OpCompatible   Operator = "~="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
)

// LowerBound reports whether a constraint with this operator can establish
// a minimum version.
func (o Operator) LowerBound() bool {
	return o != OpNotEqual && o != OpLess
}

// Specifier is a single version constraint such as ">=1.0".
type Specifier struct {
	Operator Operator
	Version  string
}

func (s Specifier) String() string {
	return string(s.Operator) + s.Version
}

var specifierRe = regexp.MustCompile(`^\s*(===|~=|==|!=|<=|>=|<|>)\s*([A-Za-z0-9_.*+!-]+)\s*$`)

// ParseSpecifier parses one constraint like ">= 1.0".
func ParseSpecifier(s string) (Specifier, error) {
	matches := specifierRe.FindStringSubmatch(s)
	if matches == nil {
		return Specifier{}, fmt.Errorf("invalid version specifier %q", strings.TrimSpace(s))
	}
	op := Operator(matches[1])
	ver := matches[2]
	if strings.Contains(strings.TrimSuffix(ver, ".*"), "*") {
		return Specifier{}, fmt.Errorf("invalid wildcard in %q", strings.TrimSpace(s))
	}
	if strings.HasSuffix(ver, ".*") && op != OpEqual && op != OpNotEqual {
		return Specifier{}, fmt.Errorf("wildcard only allowed with == and != in %q", strings.TrimSpace(s))
	}
	return Specifier{Operator: op, Version: ver}, nil
}

// ParseSpecifierSet parses a comma separated list of constraints.
// An empty string yields an empty set.
func ParseSpecifierSet(s string) ([]Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var specs []Specifier
	for _, part := range strings.Split(s, ",") {
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
