package symbols

// SymbolKind identifies what kind of exported Go symbol this is.
type SymbolKind string

const (
	SymbolFunc      SymbolKind = "func"
	SymbolType      SymbolKind = "type"
	SymbolMethod    SymbolKind = "method"
	SymbolField     SymbolKind = "field"
	SymbolConst     SymbolKind = "const"
	SymbolVar       SymbolKind = "var"
	SymbolInterface SymbolKind = "interface"
)

// IsType reports whether k declares a named type.
func (k SymbolKind) IsType() bool {
	return k == SymbolType || k == SymbolInterface
}

// IsMember reports whether k belongs to a named type.
func (k SymbolKind) IsMember() bool {
	return k == SymbolMethod || k == SymbolField
}

// Symbol represents a single exported Go symbol. Members of a type are
// named "Type.Member".
type Symbol struct {
	Name      string     `json:"name" msgpack:"name"`
	Kind      SymbolKind `json:"kind" msgpack:"kind"`
	Package   string     `json:"package" msgpack:"package"`
	Receiver  string     `json:"receiver,omitempty" msgpack:"receiver,omitempty"`
	Signature string     `json:"signature,omitempty" msgpack:"signature,omitempty"`
}

// Symbols is the full set of exports from a Go module version.
type Symbols struct {
	Module  string   `json:"module" msgpack:"module"`
	Version string   `json:"version" msgpack:"version"`
	Entries []Symbol `json:"entries" msgpack:"entries"`
}
