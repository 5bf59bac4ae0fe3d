package wasm

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether two signatures are identical.
func (ft FuncType) Equal(other FuncType) bool {
	return sameValTypes(ft.Params, other.Params) && sameValTypes(ft.Results, other.Results)
}

func sameValTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Import is a function import.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Limits bounds a memory in 64 KiB pages.
type Limits struct {
	Max *uint32
	Min uint32
}

// Global is a module-defined global. Init is a constant expression
// terminated by OpEnd.
type Global struct {
	Init    []byte
	Type    ValType
	Mutable bool
}

// Export exposes a function, memory or global by name.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Local declares Count locals of one type.
type Local struct {
	Count uint32
	Type  ValType
}

// FuncBody is the code of a module-defined function. Code is terminated
// by OpEnd.
type FuncBody struct {
	Locals []Local
	Code   []byte
}

// Data is an active segment copied into memory 0 at Offset on
// instantiation.
type Data struct {
	Init   []byte
	Offset uint32
}

// Module is a core module in the order its sections are encoded.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index per module-defined function
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Code     []FuncBody
	Data     []Data
}
