package wasm

import "strings"

// Module represents a parsed WebAssembly module. Only the sections the
// packaging pipeline inspects are decoded fully; code bodies are kept as
// raw bytes and everything else is skipped during parsing.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices for locally defined functions
	Memories []MemoryType
	Exports  []Export
	Code     []FuncBody
}

// FuncType represents a function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// String renders the signature as "(i32, i32) -> (i32)".
func (ft FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range ft.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> (")
	for i, r := range ft.Results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Equal reports whether two signatures match exactly.
func (ft FuncType) Equal(other FuncType) bool {
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i := range ft.Params {
		if ft.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range ft.Results {
		if ft.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

// ValType represents a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Import represents an imported function, table, memory, global, or tag.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes an imported item. TypeIdx is only meaningful for
// function imports (Kind == KindFunc).
type ImportDesc struct {
	Kind    byte
	TypeIdx uint32
}

// MemoryType describes a linear memory with size limits in pages.
type MemoryType struct {
	Min uint32
	Max *uint32
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody holds a function's raw body bytes: the locals vector followed by
// the instruction sequence including the trailing end opcode.
type FuncBody struct {
	Body []byte
}

// NumImportedFuncs returns the number of imported functions.
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			count++
		}
	}
	return count
}

// FuncImports returns the function imports in declaration order.
func (m *Module) FuncImports() []Import {
	var out []Import
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			out = append(out, imp)
		}
	}
	return out
}

// ExportedFunc returns the export entry for a function export by name.
func (m *Module) ExportedFunc(name string) (Export, bool) {
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Name == name {
			return exp, true
		}
	}
	return Export{}, false
}

// GetFuncType returns the signature of a function by its index, counting
// imported functions first, or nil when the index is out of range.
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		seen := uint32(0)
		for i := range m.Imports {
			if m.Imports[i].Desc.Kind != KindFunc {
				continue
			}
			if seen == funcIdx {
				return m.typeAt(m.Imports[i].Desc.TypeIdx)
			}
			seen++
		}
		return nil
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Funcs) {
		return nil
	}
	return m.typeAt(m.Funcs[localIdx])
}

func (m *Module) typeAt(typeIdx uint32) *FuncType {
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// Type returns the function type at the given type index, or nil when the
// index is out of range.
func (m *Module) Type(typeIdx uint32) *FuncType {
	return m.typeAt(typeIdx)
}

// AddType adds a function type and returns its index, reusing an existing
// equal entry.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, ft)
	return idx
}

// IsModule reports whether data starts with the wasm magic and version.
func IsModule(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return data[0] == 0x00 && data[1] == 0x61 && data[2] == 0x73 && data[3] == 0x6D &&
		data[4] == 0x01 && data[5] == 0x00 && data[6] == 0x00 && data[7] == 0x00
}
