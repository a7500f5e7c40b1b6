package version

import (
	"regexp"
	"strings"
)

var (
	preSpellingRe = regexp.MustCompile(`[-_.]?(alpha|beta|preview|pre|rc|c|a|b)(?:[-_.]?(\d+))?`)
	devSpellingRe = regexp.MustCompile(`[-_.]?dev(?:[-_.]?(\d+))?`)
	preReleaseRe  = regexp.MustCompile(`\d(a|b|rc)\d*|\.dev\d*`)
)

// rpmReplacements rewrites pre-release markers so that rpmvercmp keeps the
// PEP 440 order dev < a < b < rc < final. Order matters: "~xbeta" contains
// an "a", so "a" must be replaced before "b".
var rpmReplacements = []struct{ old, new string }{
	{"a", "~xalpha"},
	{"b", "~xbeta"},
	{"rc", "~xrc"},
	{".dev", "~dev"},
}

// IsPreRelease reports whether v carries an alpha, beta, rc or dev marker.
func IsPreRelease(v string) bool {
	public, _ := splitLocal(canonical(v))
	return preReleaseRe.MatchString(public)
}

// ToRPM converts a Python version into a token that rpm orders the same way
// Python does. Final and post releases are returned unchanged.
//
// Python considers 1.1a10 > 1.1.dev10 while rpm would order 1.1~a10 before
// 1.1~dev10, hence the "x" sentinel in front of the alpha, beta and rc tags.
func ToRPM(v string) string {
	if !IsPreRelease(v) {
		return v
	}
	public, local := splitLocal(canonical(v))
	for _, r := range rpmReplacements {
		public = strings.ReplaceAll(public, r.old, r.new)
	}
	return public + local
}

// canonical lower-cases v and rewrites alternative pre-release spellings to
// their PEP 440 normal form (1.0-Alpha.2 -> 1.0a2, 1.0-dev -> 1.0.dev0).
func canonical(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "v")
	public, local := splitLocal(v)

	public = devSpellingRe.ReplaceAllStringFunc(public, func(m string) string {
		num := devSpellingRe.FindStringSubmatch(m)[1]
		if num == "" {
			num = "0"
		}
		return ".dev" + num
	})
	public = preSpellingRe.ReplaceAllStringFunc(public, func(m string) string {
		sub := preSpellingRe.FindStringSubmatch(m)
		num := sub[2]
		if num == "" {
			num = "0"
		}
		switch sub[1] {
		case "alpha", "a":
			return "a" + num
		case "beta", "b":
			return "b" + num
		default:
			return "rc" + num
		}
	})
	return public + local
}

func splitLocal(v string) (string, string) {
	if idx := strings.Index(v, "+"); idx != -1 {
		return v[:idx], v[idx:]
	}
	return v, ""
}
