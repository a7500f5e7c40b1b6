package extractor

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

type pyprojectFile struct {
	Project *struct {
		Dependencies         *[]string           `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// readPyproject reads PEP 621 [project] metadata.
func readPyproject(files archiveFiles) (*fields, error) {
	data, ok := files.get("pyproject.toml")
	if !ok {
		return nil, nil
	}

	var p pyprojectFile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing pyproject.toml: %w", err)
	}
	if p.Project == nil {
		return nil, nil
	}

	f := &fields{}
	if p.Project.Dependencies != nil {
		f.install = *p.Project.Dependencies
		f.hasInstall = true
	}
	if p.Project.OptionalDependencies != nil {
		f.extras = p.Project.OptionalDependencies
		f.hasExtras = true
	}
	if !f.hasInstall && !f.hasExtras {
		return nil, nil
	}
	return f, nil
}
