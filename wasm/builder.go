package wasm

// Builder assembles a Module, resolving type and function indices.
// Function imports must all be declared before the first AddFunc since
// imported functions occupy the low end of the function index space.
type Builder struct {
	m Module
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Type returns the index of ft, adding it if not yet present.
func (b *Builder) Type(ft FuncType) uint32 {
	for i, t := range b.m.Types {
		if t.Equal(ft) {
			return uint32(i)
		}
	}
	b.m.Types = append(b.m.Types, ft)
	return uint32(len(b.m.Types) - 1)
}

// ImportFunc declares a function import and returns its function index.
// It panics if a module-defined function was already added.
func (b *Builder) ImportFunc(module, name string, ft FuncType) uint32 {
	if len(b.m.Funcs) > 0 {
		panic("wasm: ImportFunc after AddFunc")
	}
	b.m.Imports = append(b.m.Imports, Import{Module: module, Name: name, TypeIdx: b.Type(ft)})
	return uint32(len(b.m.Imports) - 1)
}

// AddFunc defines a function and returns its function index. A non-empty
// name also exports it.
func (b *Builder) AddFunc(name string, ft FuncType, locals []Local, code []byte) uint32 {
	b.m.Funcs = append(b.m.Funcs, b.Type(ft))
	b.m.Code = append(b.m.Code, FuncBody{Locals: locals, Code: code})
	idx := uint32(len(b.m.Imports) + len(b.m.Funcs) - 1)
	if name != "" {
		b.m.Exports = append(b.m.Exports, Export{Name: name, Kind: KindFunc, Idx: idx})
	}
	return idx
}

// AddGlobal defines a mutable global and returns its index.
func (b *Builder) AddGlobal(t ValType, init []byte) uint32 {
	b.m.Globals = append(b.m.Globals, Global{Type: t, Mutable: true, Init: init})
	return uint32(len(b.m.Globals) - 1)
}

// AddMemory defines a memory and exports it under name when non-empty.
func (b *Builder) AddMemory(name string, l Limits) uint32 {
	b.m.Memories = append(b.m.Memories, l)
	idx := uint32(len(b.m.Memories) - 1)
	if name != "" {
		b.m.Exports = append(b.m.Exports, Export{Name: name, Kind: KindMemory, Idx: idx})
	}
	return idx
}

// AddData places init in memory 0 at offset.
func (b *Builder) AddData(offset uint32, init []byte) {
	b.m.Data = append(b.m.Data, Data{Offset: offset, Init: init})
}

// Export exposes an existing definition under name.
func (b *Builder) Export(name string, kind byte, idx uint32) {
	b.m.Exports = append(b.m.Exports, Export{Name: name, Kind: kind, Idx: idx})
}

// Module returns the assembled module.
func (b *Builder) Module() *Module {
	return &b.m
}
