package extractor

import (
	"bytes"
	"sort"
	"strings"

	"github.com/frederic-klein/specsync/internal/reqfile"
)

// readEggInfo reads the requires.txt setuptools writes into *.egg-info.
// Top-level lines are install requirements; each section is an extras key.
func readEggInfo(files archiveFiles) (*fields, error) {
	var candidates []string
	for name := range files {
		if strings.HasSuffix(name, ".egg-info/requires.txt") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// Prefer the shallowest egg-info, it belongs to the top-level project.
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := strings.Count(candidates[i], "/"), strings.Count(candidates[j], "/")
		if di != dj {
			return di < dj
		}
		return candidates[i] < candidates[j]
	})

	result, err := reqfile.NewParser().Parse(bytes.NewReader(files[candidates[0]]))
	if err != nil {
		return nil, err
	}
	f := &fields{
		install:    result.Requirements,
		hasInstall: true,
		extras:     make(map[string][]string),
	}
	for key, reqs := range result.Sections {
		f.extras[key] = reqs
	}
	f.hasExtras = len(f.extras) > 0
	return f, nil
}

// readRequirementFiles reads pbr-style requirements.txt and test-requirements.txt.
func readRequirementFiles(files archiveFiles) (*fields, error) {
	f := &fields{}
	parser := reqfile.NewParser()

	if data, ok := files.get("requirements.txt"); ok {
		result, err := parser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		f.install = result.Requirements
		f.hasInstall = true
	}
	if data, ok := files.get("test-requirements.txt"); ok {
		result, err := parser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		f.tests = result.Requirements
		f.hasTests = true
	}
	if !f.hasInstall && !f.hasTests {
		return nil, nil
	}
	return f, nil
}
