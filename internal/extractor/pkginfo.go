package extractor

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

var extraMarkerRe = regexp.MustCompile(`extra\s*==\s*['"]([^'"]+)['"]`)

// readPkgInfo reads Requires-Dist headers from a core metadata PKG-INFO file.
// Entries qualified by an "extra == ..." marker are listed under that extra.
func readPkgInfo(files archiveFiles) (*fields, error) {
	data, ok := files.get("PKG-INFO")
	if !ok {
		return nil, nil
	}

	f := &fields{extras: make(map[string][]string)}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		// Headers end at the first blank line, the description follows
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(name, "Requires-Dist") {
			continue
		}
		value = strings.TrimSpace(value)
		f.hasInstall = true

		if matches := extraMarkerRe.FindStringSubmatch(value); matches != nil {
			f.extras[matches[1]] = append(f.extras[matches[1]], value)
			f.hasExtras = true
			continue
		}
		f.install = append(f.install, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !f.hasInstall {
		return nil, nil
	}
	return f, nil
}
