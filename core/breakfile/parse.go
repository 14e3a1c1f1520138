package breakfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/emenda-labs/breakcheck/core/breaks"
	"github.com/emenda-labs/breakcheck/core/breaks/legacy"
	"github.com/emenda-labs/breakcheck/core/validation"
)

// ErrUnknownSchema is returned for documents written by a newer schema.
var ErrUnknownSchema = errors.New("unknown accepted-breaks schema")

const (
	keySchemaVersion    = "schemaVersion"
	keyAcceptedBreaks   = "acceptedBreaks"
	keyVersionOverrides = "versionOverrides"
)

type wireDocument struct {
	SchemaVersion    int               `yaml:"schemaVersion,omitempty"`
	AcceptedBreaks   yaml.Node         `yaml:"acceptedBreaks,omitempty" validate:"-"`
	VersionOverrides map[string]string `yaml:"versionOverrides,omitempty" validate:"dive,keys,override_key,endkeys,version"`
}

type wireCollection struct {
	Justification string                 `yaml:"justification" validate:"required,notblank"`
	AfterVersion  string                 `yaml:"afterVersion" validate:"required,version"`
	Breaks        map[string][]wireBreak `yaml:"breaks" validate:"dive,keys,module,endkeys,dive"`
}

type wireBreak struct {
	Code string `yaml:"code" validate:"required,notblank"`
	Old  string `yaml:"old,omitempty"`
	New  string `yaml:"new,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validation.New("yaml")
	validation.MustRegister(v, "override_key", func(fl validator.FieldLevel) bool {
		_, err := ParseOverrideKey(fl.Field().String())
		return err == nil
	})
	return v
}

// formatValidationError turns validator output into one readable error.
func formatValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		switch fe.Tag() {
		case "required", "notblank":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "version":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a semantic version", field, fe.Value()))
		case "module":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a group:name module identity", field, fe.Value()))
		case "override_key":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not a group:name@version key", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Parse decodes an accepted-breaks document. The schema is taken from the
// schemaVersion marker when present, otherwise from the shape of
// acceptedBreaks: a mapping is the deprecated per-version schema, a
// sequence is the current one. Deprecated content is upgraded and the
// returned document has Migrated set.
func Parse(data []byte) (Document, error) {
	doc := Document{VersionOverrides: map[OverrideKey]breaks.Version{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var wire wireDocument
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return Document{}, fmt.Errorf("decoding accepted breaks: %w", err)
	}
	if err := validate.Struct(wire); err != nil {
		return Document{}, fmt.Errorf("invalid accepted breaks: %w", formatValidationError(err))
	}

	for rawKey, rawVersion := range wire.VersionOverrides {
		key, err := ParseOverrideKey(rawKey)
		if err != nil {
			return Document{}, err
		}
		doc.VersionOverrides[key] = breaks.Version(rawVersion)
	}

	node := &wire.AcceptedBreaks
	if isNull(node) {
		if wire.SchemaVersion > CurrentSchema {
			return Document{}, fmt.Errorf("%w: schemaVersion %d", ErrUnknownSchema, wire.SchemaVersion)
		}
		return doc, nil
	}

	switch wire.SchemaVersion {
	case 0:
		if node.Kind == yaml.MappingNode {
			return parseLegacy(node, doc)
		}
		return parseCurrent(node, doc)
	case 1:
		return parseLegacy(node, doc)
	case CurrentSchema:
		return parseCurrent(node, doc)
	default:
		return Document{}, fmt.Errorf("%w: schemaVersion %d", ErrUnknownSchema, wire.SchemaVersion)
	}
}

// ReadFile reads and parses the document at path. A missing file yields an
// empty document and nil text.
func ReadFile(path string) ([]byte, Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc, _ := Parse(nil)
			return nil, doc, nil
		}
		return nil, Document{}, fmt.Errorf("reading accepted breaks: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, doc, nil
}

func isNull(node *yaml.Node) bool {
	return node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

func parseLegacy(node *yaml.Node, doc Document) (Document, error) {
	if node.Kind != yaml.MappingNode {
		return Document{}, fmt.Errorf("deprecated acceptedBreaks must be a mapping of version to modules (line %d)", node.Line)
	}
	var old legacy.Document
	if err := node.Decode(&old); err != nil {
		return Document{}, fmt.Errorf("decoding deprecated accepted breaks: %w", err)
	}
	collections, err := old.Upgrade()
	if err != nil {
		return Document{}, err
	}
	doc.AcceptedBreaks = collections
	doc.Migrated = true
	return doc, nil
}

func parseCurrent(node *yaml.Node, doc Document) (Document, error) {
	if node.Kind != yaml.SequenceNode {
		return Document{}, fmt.Errorf("acceptedBreaks must be a list of collections (line %d)", node.Line)
	}
	var wire []wireCollection
	if err := node.Decode(&wire); err != nil {
		return Document{}, fmt.Errorf("decoding accepted breaks: %w", err)
	}
	if err := validate.Var(wire, "dive"); err != nil {
		return Document{}, fmt.Errorf("invalid accepted breaks: %w", formatValidationError(err))
	}

	collections := make([]breaks.BreakCollection, 0, len(wire))
	for _, wc := range wire {
		c, err := wc.collection()
		if err != nil {
			return Document{}, err
		}
		collections = append(collections, c)
	}
	doc.AcceptedBreaks = breaks.MergeCollections(collections...)
	return doc, nil
}

func (wc wireCollection) collection() (breaks.BreakCollection, error) {
	perModule := make(map[breaks.GroupAndName]breaks.Set[breaks.AcceptedBreak], len(wc.Breaks))
	for rawModule, wbs := range wc.Breaks {
		module, err := breaks.ParseGroupAndName(rawModule)
		if err != nil {
			return breaks.BreakCollection{}, err
		}
		accepted := make([]breaks.AcceptedBreak, len(wbs))
		for i, wb := range wbs {
			accepted[i] = breaks.AcceptedBreak{Code: wb.Code, OldElement: wb.Old, NewElement: wb.New}
		}
		perModule[module] = breaks.NewSet(accepted...)
	}
	pm, err := breaks.NewPerModule(perModule)
	if err != nil {
		return breaks.BreakCollection{}, err
	}
	return breaks.NewBreakCollection(wc.Justification, breaks.Version(wc.AfterVersion), pm)
}

func toWireCollections(collections []breaks.BreakCollection) []wireCollection {
	out := make([]wireCollection, 0, len(collections))
	for _, c := range collections {
		wc := wireCollection{
			Justification: c.Justification,
			AfterVersion:  c.AfterVersion.String(),
			Breaks:        make(map[string][]wireBreak, c.Breaks.Len()),
		}
		for module, set := range c.Breaks.All() {
			for _, b := range set.Sorted(breaks.CompareAcceptedBreaks) {
				wc.Breaks[module.String()] = append(wc.Breaks[module.String()], wireBreak{Code: b.Code, Old: b.OldElement, New: b.NewElement})
			}
		}
		out = append(out, wc)
	}
	return out
}

func toWireOverrides(overrides map[OverrideKey]breaks.Version) map[string]string {
	out := make(map[string]string, len(overrides))
	for k, v := range overrides {
		out[k.String()] = v.String()
	}
	return out
}
