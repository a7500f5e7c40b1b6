package version

import (
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
	rpmversion "github.com/knqyf263/go-rpm-version"
)

// Compare orders two Python versions. Versions that are not valid PEP 440
// are compared with rpmvercmp instead.
func Compare(a, b string) int {
	va, errA := pep440.Parse(a)
	vb, errB := pep440.Parse(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return CompareRPM(a, b)
}

// CompareRPM orders two versions the way rpm does, including "~".
func CompareRPM(a, b string) int {
	return rpmversion.NewVersion(a).Compare(rpmversion.NewVersion(b))
}

// Valid reports whether v parses as a PEP 440 version.
func Valid(v string) bool {
	_, err := pep440.Parse(strings.TrimSpace(v))
	return err == nil
}

// Minimum returns the lowest version allowed by specs, considering only
// operators that can act as a lower bound. It returns "" when no specifier
// constrains the minimum.
func Minimum(specs []Specifier) string {
	lowest := ""
	for _, spec := range specs {
		if !spec.Operator.LowerBound() {
			continue
		}
		ver := strings.TrimSuffix(spec.Version, ".*")
		if ver == "" {
			continue
		}
		if lowest == "" || Compare(ver, lowest) < 0 {
			lowest = ver
		}
	}
	return lowest
}
