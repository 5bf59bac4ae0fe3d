package wasm

import (
	"fmt"

	"github.com/wippyai/render-worker/wasm/internal/binary"
)

// Encode writes the module in the binary format. Empty sections are
// omitted.
func (m *Module) Encode() []byte {
	var w binary.Buffer
	w.Fixed32(Magic)
	w.Fixed32(Version)

	vec(&w, SectionType, len(m.Types), func(sec *binary.Buffer, i int) {
		ft := m.Types[i]
		sec.Byte(FuncTypeByte)
		valTypes(sec, ft.Params)
		valTypes(sec, ft.Results)
	})
	vec(&w, SectionImport, len(m.Imports), func(sec *binary.Buffer, i int) {
		imp := m.Imports[i]
		sec.Name(imp.Module)
		sec.Name(imp.Name)
		sec.Byte(KindFunc)
		sec.U32(imp.TypeIdx)
	})
	vec(&w, SectionFunction, len(m.Funcs), func(sec *binary.Buffer, i int) {
		sec.U32(m.Funcs[i])
	})
	vec(&w, SectionMemory, len(m.Memories), func(sec *binary.Buffer, i int) {
		limits(sec, m.Memories[i])
	})
	vec(&w, SectionGlobal, len(m.Globals), func(sec *binary.Buffer, i int) {
		g := m.Globals[i]
		sec.Byte(byte(g.Type))
		mut := byte(0)
		if g.Mutable {
			mut = 1
		}
		sec.Byte(mut)
		sec.Raw(g.Init)
	})
	vec(&w, SectionExport, len(m.Exports), func(sec *binary.Buffer, i int) {
		exp := m.Exports[i]
		sec.Name(exp.Name)
		sec.Byte(exp.Kind)
		sec.U32(exp.Idx)
	})
	vec(&w, SectionCode, len(m.Code), func(sec *binary.Buffer, i int) {
		body := m.Code[i]
		sec.Sized(func(fn *binary.Buffer) {
			fn.U32(uint32(len(body.Locals)))
			for _, l := range body.Locals {
				fn.U32(l.Count)
				fn.Byte(byte(l.Type))
			}
			fn.Raw(body.Code)
		})
	})
	vec(&w, SectionData, len(m.Data), func(sec *binary.Buffer, i int) {
		d := m.Data[i]
		sec.U32(0) // active, memory 0
		sec.Byte(OpI32Const)
		sec.S32(int32(d.Offset))
		sec.Byte(OpEnd)
		sec.U32(uint32(len(d.Init)))
		sec.Raw(d.Init)
	})

	return w.Bytes()
}

// Validate checks index references and section counts. It does not
// type-check function bodies.
func (m *Module) Validate() error {
	numTypes := uint32(len(m.Types))
	for i, imp := range m.Imports {
		if imp.TypeIdx >= numTypes {
			return fmt.Errorf("import %d (%s.%s): type index %d out of range", i, imp.Module, imp.Name, imp.TypeIdx)
		}
	}
	for i, idx := range m.Funcs {
		if idx >= numTypes {
			return fmt.Errorf("function %d: type index %d out of range", i, idx)
		}
	}
	if len(m.Funcs) != len(m.Code) {
		return fmt.Errorf("function count %d does not match code count %d", len(m.Funcs), len(m.Code))
	}
	for i, l := range m.Memories {
		if l.Max != nil && *l.Max < l.Min {
			return fmt.Errorf("memory %d: max %d below min %d", i, *l.Max, l.Min)
		}
	}

	if len(m.Data) > 0 && len(m.Memories) == 0 {
		return fmt.Errorf("%d data segment(s) without a memory", len(m.Data))
	}

	numFuncs := uint32(len(m.Imports) + len(m.Funcs))
	seen := make(map[string]bool, len(m.Exports))
	for _, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("duplicate export %q", exp.Name)
		}
		seen[exp.Name] = true

		var limit uint32
		switch exp.Kind {
		case KindFunc:
			limit = numFuncs
		case KindMemory:
			limit = uint32(len(m.Memories))
		case KindGlobal:
			limit = uint32(len(m.Globals))
		default:
			return fmt.Errorf("export %q: unsupported kind %d", exp.Name, exp.Kind)
		}
		if exp.Idx >= limit {
			return fmt.Errorf("export %q: index %d out of range", exp.Name, exp.Idx)
		}
	}
	return nil
}

// vec writes a section holding n entries, or nothing when n is zero.
func vec(w *binary.Buffer, id byte, n int, entry func(sec *binary.Buffer, i int)) {
	if n == 0 {
		return
	}
	w.Section(id, func(sec *binary.Buffer) {
		sec.U32(uint32(n))
		for i := 0; i < n; i++ {
			entry(sec, i)
		}
	})
}

func valTypes(w *binary.Buffer, types []ValType) {
	w.U32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func limits(w *binary.Buffer, l Limits) {
	if l.Max != nil {
		w.Byte(LimitsHasMax)
		w.U32(l.Min)
		w.U32(*l.Max)
		return
	}
	w.Byte(0)
	w.U32(l.Min)
}
