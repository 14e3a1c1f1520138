package breaks

import (
	"fmt"
	"path"
	"strings"
)

// GroupAndName identifies one module of a multi-module project. Its text
// form is "group:name".
type GroupAndName struct {
	Group string
	Name  string
}

// ParseGroupAndName parses the "group:name" form.
func ParseGroupAndName(s string) (GroupAndName, error) {
	group, name, ok := strings.Cut(s, ":")
	if !ok {
		return GroupAndName{}, fmt.Errorf("module identity %q must have the form group:name", s)
	}
	g := GroupAndName{Group: strings.TrimSpace(group), Name: strings.TrimSpace(name)}
	if err := g.validate(); err != nil {
		return GroupAndName{}, fmt.Errorf("module identity %q: %w", s, err)
	}
	return g, nil
}

// ModuleIdentity maps a Go module path onto a group and name: the last path
// element is the name, everything before it is the group.
// "github.com/acme/foo" becomes "github.com/acme:foo".
func ModuleIdentity(modulePath string) GroupAndName {
	return GroupAndName{Group: path.Dir(modulePath), Name: path.Base(modulePath)}
}

// IsZero reports whether g is the zero identity, which never names a module.
func (g GroupAndName) IsZero() bool {
	return g == GroupAndName{}
}

func (g GroupAndName) validate() error {
	if g.Group == "" {
		return fmt.Errorf("group is empty")
	}
	if g.Name == "" {
		return fmt.Errorf("name is empty")
	}
	if strings.Contains(g.Name, ":") {
		return fmt.Errorf("name %q contains ':'", g.Name)
	}
	return nil
}

func (g GroupAndName) String() string {
	return g.Group + ":" + g.Name
}

// Compare orders identities by group, then name.
func (g GroupAndName) Compare(o GroupAndName) int {
	if c := strings.Compare(g.Group, o.Group); c != 0 {
		return c
	}
	return strings.Compare(g.Name, o.Name)
}

// JustificationAndVersion is the key that groups accepted breaks: every break
// accepted for the same reason after the same release is stored together.
type JustificationAndVersion struct {
	Justification string
	Version       Version
}

// Canonical returns k with its version in canonical form. Keys naming the same
// release under different spellings have equal canonical keys.
func (k JustificationAndVersion) Canonical() JustificationAndVersion {
	return JustificationAndVersion{Justification: k.Justification, Version: k.Version.Canonical()}
}

// Same reports whether k and o have the same justification and name the same
// release.
func (k JustificationAndVersion) Same(o JustificationAndVersion) bool {
	return k.Justification == o.Justification && k.Version.Same(o.Version)
}

func (k JustificationAndVersion) String() string {
	return fmt.Sprintf("%q after %s", k.Justification, k.Version)
}

// Compare orders keys by version, then justification text. Spellings of the
// same release are only told apart when everything else is equal.
func (k JustificationAndVersion) Compare(o JustificationAndVersion) int {
	if k.Version.Valid() && o.Version.Valid() {
		if c := k.Version.Compare(o.Version); c != 0 {
			return c
		}
	} else if c := strings.Compare(string(k.Version), string(o.Version)); c != 0 {
		return c
	}
	if c := strings.Compare(k.Justification, o.Justification); c != 0 {
		return c
	}
	return strings.Compare(string(k.Version), string(o.Version))
}
