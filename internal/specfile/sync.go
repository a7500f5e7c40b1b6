package specfile

import (
	"sort"
	"strings"

	"github.com/frederic-klein/specsync/internal/dist"
	"github.com/frederic-klein/specsync/internal/report"
)

// docSuffix marks documentation subpackages, which only carry build
// requirements for the docs and are exempt from the audit.
const docSuffix = "-doc"

// Ignorer decides whether a package name is exempt from the audit.
type Ignorer interface {
	Ignored(name string) bool
}

// Synchronize rewrites the directive lines of f that require a package in
// reqs so they carry the upstream minimum version, and audits the file
// against reqs. name is the spec file base name without ".spec"; the audit
// is skipped for names ending in "-doc". ignore may be nil.
func Synchronize(name string, f *File, reqs dist.Requirements, ignore Ignorer) *report.Report {
	rep := report.New(name + ".spec")

	// Spec entries are collected before any line is rewritten.
	seen := make(map[string]string)
	for _, line := range f.Directives() {
		for _, entry := range line.Directive.Entries() {
			entryName := entry.Name()
			if entryName == "" {
				continue
			}
			if _, ok := seen[strings.ToLower(entryName)]; !ok {
				seen[strings.ToLower(entryName)] = entryName
			}
		}
	}

	present := make(map[string]bool)
	for _, line := range f.Directives() {
		token := line.Directive.FirstToken()
		if token == "" {
			continue
		}
		req, ok := reqs.Lookup(token)
		if !ok {
			continue
		}
		present[req.Name] = true
		rep.Dropped = append(rep.Dropped, line.SetRequirement(token, req.MinVersion)...)
		rep.Rewritten++
	}

	if strings.HasSuffix(name, docSuffix) {
		return rep
	}

	for _, reqName := range reqs.Names() {
		if !present[reqName] {
			rep.AddMissing(reqs[reqName])
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entryName := seen[key]
		if !strings.HasPrefix(key, dist.NamePrefix) || strings.Contains(entryName, "%") {
			continue
		}
		if _, ok := reqs.Lookup(entryName); ok {
			continue
		}
		if ignore != nil && ignore.Ignored(entryName) {
			continue
		}
		rep.AddUnexpected(entryName)
	}
	return rep
}
