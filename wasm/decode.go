package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// reader is a bounds-checked cursor over a byte slice.
type reader struct {
	data []byte
	off  int
}

func (r *reader) rem() int { return len(r.data) - r.off }

func (r *reader) readByte() (byte, error) {
	if r.rem() < 1 {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) readU32() (uint32, error) {
	v, n, err := ReadLEB128u(r.data[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.rem() < n {
		return nil, ErrUnexpectedEOF
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) readName() (string, error) {
	n, err := r.readU32()
	if err != nil {
		return "", err
	}
	raw, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("name is not valid UTF-8")
	}
	return string(raw), nil
}

// ParseModule parses a WebAssembly binary module. Only the type, import,
// function, memory, export and code sections are decoded; custom and all
// other sections are skipped. Truncated or malformed input is rejected.
func ParseModule(data []byte) (*Module, error) {
	if len(data) < 8 {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(data) != Magic {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(data[4:]) != Version {
		return nil, ErrInvalidVersion
	}

	r := &reader{data: data, off: 8}
	m := &Module{}

	// Sections must appear in canonical order, which differs from raw IDs
	// (DataCount precedes Code, Tag sits between Memory and Global).
	var lastOrder int
	for r.rem() > 0 {
		sectionID, err := r.readByte()
		if err != nil {
			return nil, fmt.Errorf("section header: %w", err)
		}
		if sectionID != SectionCustom {
			order, ok := sectionOrder(sectionID)
			if !ok {
				return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
			}
			if order <= lastOrder {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			lastOrder = order
		}

		sectionSize, err := r.readU32()
		if err != nil {
			return nil, fmt.Errorf("section size: %w", err)
		}
		sectionData, err := r.readBytes(int(sectionSize))
		if err != nil {
			return nil, fmt.Errorf("section data: %w", err)
		}

		sr := &reader{data: sectionData}
		switch sectionID {
		case SectionType:
			if err := parseTypeSection(sr, m); err != nil {
				return nil, fmt.Errorf("type section: %w", err)
			}
		case SectionImport:
			if err := parseImportSection(sr, m); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
		case SectionFunction:
			if err := parseFunctionSection(sr, m); err != nil {
				return nil, fmt.Errorf("function section: %w", err)
			}
		case SectionMemory:
			if err := parseMemorySection(sr, m); err != nil {
				return nil, fmt.Errorf("memory section: %w", err)
			}
		case SectionExport:
			if err := parseExportSection(sr, m); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
		case SectionCode:
			if err := parseCodeSection(sr, m); err != nil {
				return nil, fmt.Errorf("code section: %w", err)
			}
		default:
			// Skipped: the pipeline only needs signatures, imports and
			// exports. Section bytes were already consumed above.
		}
	}

	return m, nil
}

func sectionOrder(id byte) (int, bool) {
	switch id {
	case SectionType:
		return 1, true
	case SectionImport:
		return 2, true
	case SectionFunction:
		return 3, true
	case SectionTable:
		return 4, true
	case SectionMemory:
		return 5, true
	case SectionTag:
		return 6, true
	case SectionGlobal:
		return 7, true
	case SectionExport:
		return 8, true
	case SectionStart:
		return 9, true
	case SectionElement:
		return 10, true
	case SectionDataCount:
		return 11, true
	case SectionCode:
		return 12, true
	case SectionData:
		return 13, true
	default:
		return 0, false
	}
}

func readValType(r *reader) (ValType, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch ValType(b) {
	case ValI32, ValI64, ValF32, ValF64:
		return ValType(b), nil
	default:
		return 0, fmt.Errorf("unsupported value type 0x%02x", b)
	}
}

func parseTypeSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.readByte()
		if err != nil {
			return fmt.Errorf("read type form at index %d: %w", i, err)
		}
		if form != FuncTypeByte {
			return fmt.Errorf("expected functype (0x60), got 0x%02x", form)
		}

		var ft FuncType
		nparams, err := r.readU32()
		if err != nil {
			return err
		}
		for j := uint32(0); j < nparams; j++ {
			vt, err := readValType(r)
			if err != nil {
				return err
			}
			ft.Params = append(ft.Params, vt)
		}
		nresults, err := r.readU32()
		if err != nil {
			return err
		}
		for j := uint32(0); j < nresults; j++ {
			vt, err := readValType(r)
			if err != nil {
				return err
			}
			ft.Results = append(ft.Results, vt)
		}
		m.Types = append(m.Types, ft)
	}
	return nil
}

func parseLimits(r *reader) (MemoryType, error) {
	flags, err := r.readByte()
	if err != nil {
		return MemoryType{}, err
	}
	min, err := r.readU32()
	if err != nil {
		return MemoryType{}, err
	}
	mt := MemoryType{Min: min}
	if flags&0x01 != 0 {
		max, err := r.readU32()
		if err != nil {
			return MemoryType{}, err
		}
		mt.Max = &max
	}
	return mt, nil
}

func parseImportSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		module, err := r.readName()
		if err != nil {
			return fmt.Errorf("import %d module: %w", i, err)
		}
		name, err := r.readName()
		if err != nil {
			return fmt.Errorf("import %d name: %w", i, err)
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
		switch kind {
		case KindFunc:
			typeIdx, err := r.readU32()
			if err != nil {
				return err
			}
			imp.Desc.TypeIdx = typeIdx
		case KindTable:
			if _, err := r.readByte(); err != nil { // elem type
				return err
			}
			if _, err := parseLimits(r); err != nil {
				return err
			}
		case KindMemory:
			if _, err := parseLimits(r); err != nil {
				return err
			}
		case KindGlobal:
			if _, err := r.readByte(); err != nil { // valtype
				return err
			}
			if _, err := r.readByte(); err != nil { // mutability
				return err
			}
		case KindTag:
			if _, err := r.readByte(); err != nil { // attribute
				return err
			}
			if _, err := r.readU32(); err != nil { // type index
				return err
			}
		default:
			return fmt.Errorf("import %d: unknown kind 0x%02x", i, kind)
		}
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func parseFunctionSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		typeIdx, err := r.readU32()
		if err != nil {
			return err
		}
		m.Funcs[i] = typeIdx
	}
	return nil
}

func parseMemorySection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		mt, err := parseLimits(r)
		if err != nil {
			return err
		}
		m.Memories = append(m.Memories, mt)
	}
	return nil
}

func parseExportSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return fmt.Errorf("export %d name: %w", i, err)
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
	}
	return nil
}

func parseCodeSection(r *reader, m *Module) error {
	count, err := r.readU32()
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, count)
	for i := uint32(0); i < count; i++ {
		size, err := r.readU32()
		if err != nil {
			return err
		}
		body, err := r.readBytes(int(size))
		if err != nil {
			return err
		}
		m.Code[i] = FuncBody{Body: body}
	}
	return nil
}
