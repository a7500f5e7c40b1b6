package dist

import (
	"sort"
	"strings"
)

// NamePrefix is prepended to every Python package name to form the RPM name.
const NamePrefix = "python-"

// Category represents the metadata key a requirement came from.
type Category string

const (
	CategoryInstall Category = "install"
	CategoryExtras  Category = "extras"
	CategoryTests   Category = "tests"
)

// Requirement is a canonical dependency entry.
type Requirement struct {
	Name       string   // e.g., "python-oslo.config"
	MinVersion string   // RPM comparable, e.g., "1.2~xbeta1"; empty when unconstrained
	Category   Category // where the requirement came from
}

// Requirements maps a normalized name to its canonical requirement.
type Requirements map[string]Requirement

// Names returns the requirement names in sorted order.
func (r Requirements) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a requirement by name, ignoring case.
func (r Requirements) Lookup(name string) (Requirement, bool) {
	if req, ok := r[name]; ok {
		return req, true
	}
	for key, req := range r {
		if strings.EqualFold(key, name) {
			return req, true
		}
	}
	return Requirement{}, false
}

// Metadata holds the raw requirement strings of a source archive.
type Metadata struct {
	InstallRequires []string
	ExtrasRequire   map[string][]string // "[extra][:marker]" -> requirements
	TestsRequire    []string
}

// NewMetadata creates empty metadata.
func NewMetadata() *Metadata {
	return &Metadata{
		ExtrasRequire: make(map[string][]string),
	}
}

// Empty reports whether no requirement of any category is present.
func (m *Metadata) Empty() bool {
	if m == nil {
		return true
	}
	return len(m.InstallRequires) == 0 && len(m.ExtrasRequire) == 0 && len(m.TestsRequire) == 0
}
