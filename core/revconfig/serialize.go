package revconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/validation"
)

type wireConfig struct {
	Driver   string        `json:"driver,omitempty" validate:"omitempty,safetext"`
	Reporter *wireReporter `json:"reporter,omitempty"`
	Ignore   []wireIgnore  `json:"ignore,omitempty" validate:"dive"`
	Filters  []wireFilter  `json:"filters,omitempty" validate:"dive"`
}

type wireReporter struct {
	Output   string `json:"output,omitempty" validate:"omitempty,safetext"`
	Template string `json:"template,omitempty" validate:"omitempty,safetext"`
}

type wireIgnore struct {
	Module        string `json:"module" validate:"required,module"`
	Code          string `json:"code" validate:"required,safetext"`
	Old           string `json:"old,omitempty" validate:"omitempty,safetext"`
	New           string `json:"new,omitempty" validate:"omitempty,safetext"`
	Justification string `json:"justification,omitempty" validate:"omitempty,safetext"`
}

type wireFilter struct {
	Module  string   `json:"module" validate:"required,module"`
	Include []string `json:"include,omitempty" validate:"dive,required,safetext,regexp"`
	Exclude []string `json:"exclude,omitempty" validate:"dive,required,safetext,regexp"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validation.New("json")
	validation.MustRegister(v, "safetext", func(fl validator.FieldLevel) bool {
		return safeText(fl.Field().String())
	})
	return v
}

// safeText reports whether s survives a JSON round trip unchanged and
// contains no control characters other than tab and line breaks.
func safeText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "safetext":
		return fmt.Sprintf("%q contains invalid UTF-8 or control characters", fe.Value())
	case "regexp":
		return fmt.Sprintf("%q is not a valid regular expression", fe.Value())
	case "module":
		return fmt.Sprintf("%q is not a group:name module identity", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func (f Fragment) wire() wireConfig {
	w := wireConfig{Driver: f.Driver}
	if f.Reporter != (Reporter{}) {
		w.Reporter = &wireReporter{Output: f.Reporter.OutputPath, Template: f.Reporter.Template}
	}
	for module, set := range f.Ignored.All() {
		for _, ig := range set.Sorted(compareIgnores) {
			w.Ignore = append(w.Ignore, wireIgnore{
				Module:        module.String(),
				Code:          ig.Break.Code,
				Old:           ig.Break.OldElement,
				New:           ig.Break.NewElement,
				Justification: ig.Justification,
			})
		}
	}
	for module, set := range f.Filters.All() {
		if set.Len() == 0 {
			continue
		}
		wf := wireFilter{Module: module.String()}
		for _, r := range set.Sorted(compareRules) {
			if r.Exclude {
				wf.Exclude = append(wf.Exclude, r.Pattern)
			} else {
				wf.Include = append(wf.Include, r.Pattern)
			}
		}
		w.Filters = append(w.Filters, wf)
	}
	return w
}

// check validates the serialized form of f.
func (f Fragment) check() error {
	return checkWire(f.Name, f.wire())
}

func checkWire(fragment string, w wireConfig) error {
	err := validate.Struct(w)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating fragment %q: %w", fragment, err)
	}
	fe := fieldErrs[0]
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	return &SerializationError{Fragment: fragment, Field: field, Reason: reason(fe)}
}

// Encode serializes f into the JSON document read by Decode. The output is
// deterministic: modules, breaks and patterns are sorted.
func Encode(f Fragment) ([]byte, error) {
	w := f.wire()
	if err := checkWire(f.Name, w); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Decode parses a document produced by Encode. The returned fragment is
// named name.
func Decode(name string, data []byte) (Fragment, error) {
	var w wireConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return Fragment{}, fmt.Errorf("decoding analyzer configuration: %w", err)
	}
	if err := checkWire(name, w); err != nil {
		return Fragment{}, err
	}

	f := New(name).WithDriver(w.Driver)
	if w.Reporter != nil {
		f = f.WithReporter(w.Reporter.Output, w.Reporter.Template)
	}
	for _, ig := range w.Ignore {
		module, err := breaks.ParseGroupAndName(ig.Module)
		if err != nil {
			return Fragment{}, err
		}
		b := breaks.AcceptedBreak{Code: ig.Code, OldElement: ig.Old, NewElement: ig.New}
		if f, err = f.WithIgnored(module, ig.Justification, b); err != nil {
			return Fragment{}, err
		}
	}
	for _, wf := range w.Filters {
		module, err := breaks.ParseGroupAndName(wf.Module)
		if err != nil {
			return Fragment{}, err
		}
		if f, err = f.WithFilter(module, wf.Include, wf.Exclude); err != nil {
			return Fragment{}, err
		}
	}
	return f, nil
}
