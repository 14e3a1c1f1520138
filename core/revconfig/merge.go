package revconfig

import (
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// MergeAll merges fragments left to right into one fragment.
//
// Reporter settings take the value of the last fragment that sets them.
// Ignored breaks and filters are unioned. A driver may be set by any number
// of fragments as long as they agree. Every fragment is checked for values
// that cannot be serialized before anything is merged, so a failure names
// the fragment that introduced the value.
func MergeAll(fragments ...Fragment) (Fragment, error) {
	for _, f := range fragments {
		if err := f.check(); err != nil {
			return Fragment{}, err
		}
	}

	var (
		out        Fragment
		names      []string
		driverFrom string
	)
	for _, f := range fragments {
		if f.Name != "" {
			names = append(names, f.Name)
		}
		if f.Driver != "" {
			if out.Driver != "" && out.Driver != f.Driver {
				return Fragment{}, &MergeConflictError{
					Field:     "driver",
					Fragments: [2]string{driverFrom, f.Name},
					Values:    [2]string{out.Driver, f.Driver},
				}
			}
			if out.Driver == "" {
				out.Driver, driverFrom = f.Driver, f.Name
			}
		}
		out.Reporter = out.Reporter.merge(f.Reporter)
		out.Ignored = breaks.UnionPerModule(out.Ignored, f.Ignored)
		out.Filters = breaks.UnionPerModule(out.Filters, f.Filters)
	}
	out.Name = strings.Join(names, "+")
	return out, nil
}

func (r Reporter) merge(later Reporter) Reporter {
	if later.OutputPath != "" {
		r.OutputPath = later.OutputPath
	}
	if later.Template != "" {
		r.Template = later.Template
	}
	return r
}

// Equal reports whether f and o configure the same thing. Names are not
// compared.
func (f Fragment) Equal(o Fragment) bool {
	return f.Driver == o.Driver &&
		f.Reporter == o.Reporter &&
		breaks.EqualSets(f.Ignored, o.Ignored) &&
		breaks.EqualSets(f.Filters, o.Filters)
}
