package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-ini/ini"

	"github.com/frederic-klein/specsync/internal/reqfile"
)

// readSetupCfg reads declarative setuptools configuration:
//
//	[options]
//	install_requires =
//	    six>=1.9
//	tests_require = file: test-requirements.txt
//
//	[options.extras_require]
//	test = mock>=2.0
func readSetupCfg(files archiveFiles) (*fields, error) {
	data, ok := files.get("setup.cfg")
	if !ok {
		return nil, nil
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
		KeyValueDelimiters:         "=",
		SkipUnrecognizableLines:    true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parsing setup.cfg: %w", err)
	}

	f := &fields{}
	if options, err := cfg.GetSection("options"); err == nil {
		if options.HasKey("install_requires") {
			if f.install, err = cfgValue(files, options.Key("install_requires").String()); err != nil {
				return nil, err
			}
			f.hasInstall = true
		}
		if options.HasKey("tests_require") {
			if f.tests, err = cfgValue(files, options.Key("tests_require").String()); err != nil {
				return nil, err
			}
			f.hasTests = true
		}
	}

	if extras, err := cfg.GetSection("options.extras_require"); err == nil {
		f.extras = make(map[string][]string)
		for _, key := range extras.Keys() {
			reqs, err := cfgValue(files, key.String())
			if err != nil {
				return nil, err
			}
			f.extras[key.Name()] = reqs
		}
		f.hasExtras = true
	}

	if !f.hasInstall && !f.hasExtras && !f.hasTests {
		return nil, nil
	}
	return f, nil
}

// cfgValue expands a setup.cfg list value, following "file:" references to
// requirement files inside the archive.
func cfgValue(files archiveFiles, value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "file:") {
		return splitLines(value), nil
	}

	var out []string
	for _, name := range strings.Split(strings.TrimPrefix(value, "file:"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		data, ok := files.get(name)
		if !ok {
			return nil, fmt.Errorf("setup.cfg references missing file %q", name)
		}
		result, err := reqfile.NewParser().Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		out = append(out, result.Requirements...)
	}
	return out, nil
}
