package revconfig

import (
	"cmp"
	"fmt"
	"regexp"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// DefaultTemplate is the report template used when no fragment names one.
const DefaultTemplate = "breakcheck-results"

// Reporter controls where and how the analyzer writes its report. Empty
// fields are unset.
type Reporter struct {
	OutputPath string
	Template   string
}

// Ignore is a break the analyzer must not report, with the reason it was
// accepted.
type Ignore struct {
	Break         breaks.AcceptedBreak
	Justification string
}

// Rule selects packages by import path. Exclude rules win over include
// rules; a module without include rules includes every package.
type Rule struct {
	Exclude bool
	Pattern string
}

// Fragment is one partial analyzer configuration. The zero value sets
// nothing.
type Fragment struct {
	// Name identifies the fragment in error messages.
	Name string
	// Driver selects the analyzer language driver. Unlike other scalars it
	// cannot be overridden: two fragments naming different drivers conflict.
	Driver   string
	Reporter Reporter
	Ignored  breaks.PerModule[breaks.Set[Ignore]]
	Filters  breaks.PerModule[breaks.Set[Rule]]
}

// New returns an empty fragment called name.
func New(name string) Fragment {
	return Fragment{Name: name}
}

// Defaults returns the built-in fragment every merge starts from.
func Defaults() Fragment {
	return New("defaults").WithReporter("", DefaultTemplate)
}

// WithDriver returns a copy of f that selects driver.
func (f Fragment) WithDriver(driver string) Fragment {
	f.Driver = driver
	return f
}

// WithReporter returns a copy of f with the given reporter settings. Empty
// arguments leave the setting unset.
func (f Fragment) WithReporter(outputPath, template string) Fragment {
	f.Reporter = Reporter{OutputPath: outputPath, Template: template}
	return f
}

// WithIgnored returns a copy of f that also ignores the given breaks in
// module.
func (f Fragment) WithIgnored(module breaks.GroupAndName, justification string, accepted ...breaks.AcceptedBreak) (Fragment, error) {
	ignores := make([]Ignore, len(accepted))
	for i, b := range accepted {
		ignores[i] = Ignore{Break: b, Justification: justification}
	}
	add, err := breaks.NewPerModule(map[breaks.GroupAndName]breaks.Set[Ignore]{module: breaks.NewSet(ignores...)})
	if err != nil {
		return Fragment{}, fmt.Errorf("fragment %s: %w", f.Name, err)
	}
	f.Ignored = breaks.UnionPerModule(f.Ignored, add)
	return f, nil
}

// WithFilter returns a copy of f with extra include and exclude patterns for
// the packages of module.
func (f Fragment) WithFilter(module breaks.GroupAndName, include, exclude []string) (Fragment, error) {
	rules := make([]Rule, 0, len(include)+len(exclude))
	for _, p := range include {
		rules = append(rules, Rule{Pattern: p})
	}
	for _, p := range exclude {
		rules = append(rules, Rule{Exclude: true, Pattern: p})
	}
	add, err := breaks.NewPerModule(map[breaks.GroupAndName]breaks.Set[Rule]{module: breaks.NewSet(rules...)})
	if err != nil {
		return Fragment{}, fmt.Errorf("fragment %s: %w", f.Name, err)
	}
	f.Filters = breaks.UnionPerModule(f.Filters, add)
	return f, nil
}

// FromAccepted returns a fragment ignoring every break accepted for module
// when it is compared against baseline.
func FromAccepted(name string, module breaks.GroupAndName, baseline breaks.Version, collections []breaks.BreakCollection) (Fragment, error) {
	f := New(name)
	for _, c := range collections {
		if !c.AfterVersion.Same(baseline) {
			continue
		}
		set := c.ForModule(module)
		if set.Len() == 0 {
			continue
		}
		var err error
		f, err = f.WithIgnored(module, c.Justification, set.Sorted(breaks.CompareAcceptedBreaks)...)
		if err != nil {
			return Fragment{}, err
		}
	}
	return f, nil
}

// IsIgnored reports whether b, detected in module, is ignored.
func (f Fragment) IsIgnored(module breaks.GroupAndName, b breaks.AcceptedBreak) bool {
	_, ok := f.Lookup(module, b)
	return ok
}

// Lookup returns the ignore entry covering b in module. When several
// justifications accept the same break the first in sort order wins.
func (f Fragment) Lookup(module breaks.GroupAndName, b breaks.AcceptedBreak) (Ignore, bool) {
	set, ok := f.Ignored.Get(module)
	if !ok {
		return Ignore{}, false
	}
	for _, ig := range set.Sorted(compareIgnores) {
		if ig.Break == b {
			return ig, true
		}
	}
	return Ignore{}, false
}

// PackageFilter returns a predicate selecting the packages of module that
// the analyzer compares.
func (f Fragment) PackageFilter(module breaks.GroupAndName) (func(importPath string) bool, error) {
	set, ok := f.Filters.Get(module)
	if !ok || set.Len() == 0 {
		return func(string) bool { return true }, nil
	}

	var include, exclude []*regexp.Regexp
	for _, r := range set.Sorted(compareRules) {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("filter for %s: %w", module, err)
		}
		if r.Exclude {
			exclude = append(exclude, re)
		} else {
			include = append(include, re)
		}
	}

	return func(importPath string) bool {
		for _, re := range exclude {
			if re.MatchString(importPath) {
				return false
			}
		}
		if len(include) == 0 {
			return true
		}
		for _, re := range include {
			if re.MatchString(importPath) {
				return true
			}
		}
		return false
	}, nil
}

func compareIgnores(a, b Ignore) int {
	return cmp.Or(a.Break.Compare(b.Break), cmp.Compare(a.Justification, b.Justification))
}

// compareRules orders include rules before exclude rules.
func compareRules(a, b Rule) int {
	if a.Exclude != b.Exclude {
		if a.Exclude {
			return 1
		}
		return -1
	}
	return cmp.Compare(a.Pattern, b.Pattern)
}
