package breaks

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a release version of a module, e.g. "1.2.0" or "v1.2.0".
// The original spelling is kept so documents round-trip unchanged;
// comparisons use semantic version ordering.
type Version string

// ParseVersion validates s as a semantic version. A leading "v" is optional.
func ParseVersion(s string) (Version, error) {
	v := Version(strings.TrimSpace(s))
	if v == "" {
		return "", fmt.Errorf("version is empty")
	}
	if !semver.IsValid(v.Semver()) {
		return "", fmt.Errorf("version %q is not a valid semantic version", s)
	}
	return v, nil
}

// Semver returns the version in the "vMAJOR.MINOR.PATCH" form expected by
// golang.org/x/mod/semver.
func (v Version) Semver() string {
	s := string(v)
	if strings.HasPrefix(s, "v") {
		return s
	}
	return "v" + s
}

// Valid reports whether v is a well formed semantic version.
func (v Version) Valid() bool {
	return semver.IsValid(v.Semver())
}

// Compare returns -1, 0 or +1 following semver precedence. Two spellings of
// the same version ("1.2.0" and "v1.2.0") compare equal.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.Semver(), o.Semver())
}

// Same reports whether v and o name the same release.
func (v Version) Same(o Version) bool {
	if v == o {
		return true
	}
	return v.Valid() && o.Valid() && v.Compare(o) == 0
}

func (v Version) String() string {
	return string(v)
}

// Canonical returns the "vMAJOR.MINOR.PATCH[-pre]" form of v, so that every
// spelling of one release maps to the same value. A malformed version is
// returned unchanged.
func (v Version) Canonical() Version {
	if !v.Valid() {
		return v
	}
	return Version(semver.Canonical(v.Semver()))
}
