// Package settings loads the optional breakcheck.toml project file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/emenda-labs/breakcheck/core/breakfile"
	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/revconfig"
	"github.com/emenda-labs/breakcheck/core/validation"
)

// FileName is the name of the settings file.
const FileName = "breakcheck.toml"

// Settings is the content of breakcheck.toml.
type Settings struct {
	AcceptedBreaksFile string   `toml:"acceptedBreaksFile"`
	Driver             string   `toml:"driver" validate:"omitempty,oneof=go"`
	Report             Report   `toml:"report"`
	Filters            []Filter `toml:"filters" validate:"dive"`
}

// Report configures the analyzer report.
type Report struct {
	Output   string `toml:"output"`
	Template string `toml:"template"`
}

// Filter restricts which packages of a module are compared.
type Filter struct {
	Module  string   `toml:"module" validate:"required,module"`
	Include []string `toml:"include" validate:"dive,required,regexp"`
	Exclude []string `toml:"exclude" validate:"dive,required,regexp"`
}

// Project is a loaded settings file and the directory it governs.
type Project struct {
	// Path is the settings file, empty when none was found.
	Path string
	// Root is the directory holding the settings file, or the start
	// directory when there is none.
	Root     string
	Settings Settings
}

var validate = validation.New("toml")

// Find walks up from startDir looking for breakcheck.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and decodes the settings governing startDir. A missing file
// yields default settings rooted at startDir.
func Load(startDir string) (Project, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Project{}, err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return Project{}, fmt.Errorf("failed to resolve start directory: %w", err)
		}
		return Project{Root: root}, nil
	}
	s, err := Decode(path)
	if err != nil {
		return Project{}, err
	}
	return Project{Path: path, Root: filepath.Dir(path), Settings: s}, nil
}

// Decode reads and validates the settings file at path. Unknown keys are
// rejected.
func Decode(path string) (Settings, error) {
	var s Settings
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Settings{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, formatValidationError(err))
	}
	return s, nil
}

func formatValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "module":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a group:name module identity", field, fe.Value()))
		case "regexp":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a valid regular expression", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// AcceptedBreaksPath returns the accepted-breaks document of the project.
func (p Project) AcceptedBreaksPath() string {
	rel := p.Settings.AcceptedBreaksFile
	if rel == "" {
		rel = breakfile.DefaultPath
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Fragment converts the settings into an analyzer configuration fragment.
// A relative report output is resolved against the project root.
func (p Project) Fragment() (revconfig.Fragment, error) {
	s := p.Settings
	output := s.Report.Output
	if output != "" && !filepath.IsAbs(output) {
		output = filepath.Join(p.Root, filepath.FromSlash(output))
	}
	f := revconfig.New("settings").WithDriver(s.Driver).WithReporter(output, s.Report.Template)
	for _, filter := range s.Filters {
		module, err := breaks.ParseGroupAndName(filter.Module)
		if err != nil {
			return revconfig.Fragment{}, err
		}
		if f, err = f.WithFilter(module, filter.Include, filter.Exclude); err != nil {
			return revconfig.Fragment{}, err
		}
	}
	return f, nil
}
