package wasm

import "encoding/binary"

// Encode serializes the module to the WebAssembly binary format. Only the
// sections the Module type carries are emitted, in canonical order.
func (m *Module) Encode() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, Magic)
	binary.LittleEndian.PutUint32(out[4:], Version)

	if len(m.Types) > 0 {
		out = appendSection(out, SectionType, encodeTypeSection(m.Types))
	}
	if len(m.Imports) > 0 {
		out = appendSection(out, SectionImport, encodeImportSection(m.Imports))
	}
	if len(m.Funcs) > 0 {
		out = appendSection(out, SectionFunction, encodeFunctionSection(m.Funcs))
	}
	if len(m.Memories) > 0 {
		out = appendSection(out, SectionMemory, encodeMemorySection(m.Memories))
	}
	if len(m.Exports) > 0 {
		out = appendSection(out, SectionExport, encodeExportSection(m.Exports))
	}
	if len(m.Code) > 0 {
		out = appendSection(out, SectionCode, encodeCodeSection(m.Code))
	}
	return out
}

func appendSection(dst []byte, id byte, body []byte) []byte {
	dst = append(dst, id)
	dst = AppendLEB128u(dst, uint32(len(body)))
	return append(dst, body...)
}

func appendName(dst []byte, name string) []byte {
	dst = AppendLEB128u(dst, uint32(len(name)))
	return append(dst, name...)
}

func encodeTypeSection(types []FuncType) []byte {
	var b []byte
	b = AppendLEB128u(b, uint32(len(types)))
	for _, ft := range types {
		b = append(b, FuncTypeByte)
		b = AppendLEB128u(b, uint32(len(ft.Params)))
		for _, p := range ft.Params {
			b = append(b, byte(p))
		}
		b = AppendLEB128u(b, uint32(len(ft.Results)))
		for _, r := range ft.Results {
			b = append(b, byte(r))
		}
	}
	return b
}

func encodeImportSection(imports []Import) []byte {
	var b []byte
	b = AppendLEB128u(b, uint32(len(imports)))
	for _, imp := range imports {
		b = appendName(b, imp.Module)
		b = appendName(b, imp.Name)
		b = append(b, imp.Desc.Kind)
		// Only function imports are encodable; the pipeline never
		// synthesizes other kinds.
		b = AppendLEB128u(b, imp.Desc.TypeIdx)
	}
	return b
}

func encodeFunctionSection(funcs []uint32) []byte {
	var b []byte
	b = AppendLEB128u(b, uint32(len(funcs)))
	for _, typeIdx := range funcs {
		b = AppendLEB128u(b, typeIdx)
	}
	return b
}

func encodeMemorySection(memories []MemoryType) []byte {
	var b []byte
	b = AppendLEB128u(b, uint32(len(memories)))
	for _, mt := range memories {
		if mt.Max != nil {
			b = append(b, 0x01)
			b = AppendLEB128u(b, mt.Min)
			b = AppendLEB128u(b, *mt.Max)
		} else {
			b = append(b, 0x00)
			b = AppendLEB128u(b, mt.Min)
		}
	}
	return b
}

func encodeExportSection(exports []Export) []byte {
	var b []byte
	b = AppendLEB128u(b, uint32(len(exports)))
	for _, exp := range exports {
		b = appendName(b, exp.Name)
		b = append(b, exp.Kind)
		b = AppendLEB128u(b, exp.Idx)
	}
	return b
}

func encodeCodeSection(code []FuncBody) []byte {
	var b []byte
	b = AppendLEB128u(b, uint32(len(code)))
	for _, fb := range code {
		b = AppendLEB128u(b, uint32(len(fb.Body)))
		b = append(b, fb.Body...)
	}
	return b
}
