package changespec

import (
	"strings"

	"github.com/emenda-labs/breakcheck/core/breaks"
)

// ChangeKind represents the type of breaking API change.
type ChangeKind string

const (
	ChangeKindRenamed          ChangeKind = "renamed"
	ChangeKindSignatureChanged ChangeKind = "signature_changed"
	ChangeKindRemoved          ChangeKind = "removed"
	ChangeKindTypeChanged      ChangeKind = "type_changed"
)

// CodePrefix namespaces the break codes of the Go driver.
const CodePrefix = "go."

// Change represents a single breaking API change between two versions.
type Change struct {
	Kind         ChangeKind `json:"kind"`
	Symbol       string     `json:"symbol"`
	Package      string     `json:"package"`
	OldSignature string     `json:"old_signature,omitempty"`
	NewSignature string     `json:"new_signature,omitempty"`
	NewName      string     `json:"new_name,omitempty"`
}

// Code is the break code recorded when the change is accepted.
func (c Change) Code() string {
	return CodePrefix + string(c.Kind)
}

// OldElement describes the symbol before the change.
func (c Change) OldElement() string {
	return descriptor(c.Package, c.Symbol, c.OldSignature)
}

// NewElement describes the symbol after the change. Removed symbols have
// none.
func (c Change) NewElement() string {
	switch c.Kind {
	case ChangeKindRemoved:
		return ""
	case ChangeKindRenamed:
		return descriptor(c.Package, c.NewName, c.NewSignature)
	default:
		return descriptor(c.Package, c.Symbol, c.NewSignature)
	}
}

// Break converts c into the record stored in the accepted-breaks file.
func (c Change) Break() breaks.AcceptedBreak {
	return breaks.AcceptedBreak{Code: c.Code(), OldElement: c.OldElement(), NewElement: c.NewElement()}
}

func descriptor(pkg, symbol, signature string) string {
	return strings.TrimSpace(pkg + "." + symbol + " " + signature)
}

// ChangeSpec is the full set of breaking changes between two module versions.
type ChangeSpec struct {
	Module     string   `json:"module"`
	OldVersion string   `json:"old_version"`
	NewVersion string   `json:"new_version"`
	Changes    []Change `json:"changes"`
}
