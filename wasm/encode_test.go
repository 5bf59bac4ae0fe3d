package wasm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/render-worker/wasm"
)

func TestEncodeEmptyModule(t *testing.T) {
	m := &wasm.Module{}
	data := m.Encode()

	if len(data) != 8 {
		t.Errorf("expected 8 bytes for empty module, got %d", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0x00, 0x61, 0x73, 0x6D}) {
		t.Error("invalid magic number")
	}
	if !bytes.Equal(data[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Error("invalid version")
	}
}

func TestEncodeTypeSection(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValF32}},
		},
	}
	want := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		wasm.SectionType, 0x06, 0x01, 0x60, 0x01, 0x7F, 0x01, 0x7D,
	}
	if got := m.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode = %x, want %x", got, want)
	}
}

func TestBuilderCompilesAndRuns(t *testing.T) {
	ctx := context.Background()

	b := wasm.NewBuilder()
	var logged []float32
	f32 := []wasm.ValType{wasm.ValF32}
	logIdx := b.ImportFunc("env", "log", wasm.FuncType{Params: f32})
	counter := b.AddGlobal(wasm.ValI32, wasm.ConstI32(0))
	b.AddMemory("memory", wasm.Limits{Min: 1})
	b.AddData(8, []byte("hi"))
	b.Export("counter", wasm.KindGlobal, counter)

	b.AddFunc("bump", wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}, nil,
		wasm.NewExpr().
			GlobalGet(counter).I32Const(1).Op(wasm.OpI32Add).GlobalSet(counter).
			GlobalGet(counter).
			End().Bytes())
	b.AddFunc("scale", wasm.FuncType{Params: f32}, nil,
		wasm.NewExpr().
			LocalGet(0).F32Const(2).Op(wasm.OpF32Mul).Call(logIdx).
			End().Bytes())
	b.AddFunc("gate", wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}}, nil,
		wasm.NewExpr().
			LocalGet(0).Op(wasm.OpI32Eqz).If().Return().End().
			F32Const(-1).Call(logIdx).
			End().Bytes())

	m := b.Module()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			logged = append(logged, api.DecodeF32(stack[0]))
		}), []api.ValueType{api.ValueTypeF32}, nil).
		Export("log").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("host module: %v", err)
	}

	mod, err := r.Instantiate(ctx, m.Encode())
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	for want := uint64(1); want <= 3; want++ {
		res, err := mod.ExportedFunction("bump").Call(ctx)
		if err != nil {
			t.Fatalf("bump: %v", err)
		}
		if res[0] != want {
			t.Errorf("bump = %d, want %d", res[0], want)
		}
	}

	if _, err := mod.ExportedFunction("scale").Call(ctx, api.EncodeF32(1.5)); err != nil {
		t.Fatalf("scale: %v", err)
	}
	if _, err := mod.ExportedFunction("gate").Call(ctx, 0); err != nil {
		t.Fatalf("gate(0): %v", err)
	}
	if _, err := mod.ExportedFunction("gate").Call(ctx, 1); err != nil {
		t.Fatalf("gate(1): %v", err)
	}
	if len(logged) != 2 || logged[0] != 3 || logged[1] != -1 {
		t.Errorf("logged = %v, want [3 -1]", logged)
	}
	if mod.Memory() == nil {
		t.Fatal("memory not exported")
	}
	if data, ok := mod.Memory().Read(8, 2); !ok || string(data) != "hi" {
		t.Errorf("data segment = %q, %v", data, ok)
	}
	if g := mod.ExportedGlobal("counter"); g == nil || g.Get() != 3 {
		t.Errorf("exported counter = %v", g)
	}
}

func TestBuilderTypeDedup(t *testing.T) {
	b := wasm.NewBuilder()
	a := b.Type(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	c := b.Type(wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	d := b.Type(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}})
	if a != c {
		t.Errorf("identical types got indices %d and %d", a, c)
	}
	if a == d {
		t.Error("distinct types share an index")
	}
}

func TestBuilderImportAfterFuncPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	b := wasm.NewBuilder()
	b.AddFunc("", wasm.FuncType{}, nil, wasm.NewExpr().End().Bytes())
	b.ImportFunc("env", "late", wasm.FuncType{})
}

func TestValidate(t *testing.T) {
	one := uint32(1)
	tests := []struct {
		mod  *wasm.Module
		name string
	}{
		{name: "import type out of range", mod: &wasm.Module{Imports: []wasm.Import{{Module: "env", Name: "f", TypeIdx: 0}}}},
		{name: "func type out of range", mod: &wasm.Module{Funcs: []uint32{0}, Code: []wasm.FuncBody{{}}}},
		{name: "code count mismatch", mod: &wasm.Module{Types: []wasm.FuncType{{}}, Funcs: []uint32{0}}},
		{name: "memory max below min", mod: &wasm.Module{Memories: []wasm.Limits{{Min: 2, Max: &one}}}},
		{name: "export out of range", mod: &wasm.Module{Exports: []wasm.Export{{Name: "f", Kind: wasm.KindFunc, Idx: 0}}}},
		{name: "duplicate export", mod: &wasm.Module{
			Globals: []wasm.Global{{Type: wasm.ValI32, Init: wasm.ConstI32(0)}},
			Exports: []wasm.Export{{Name: "g", Kind: wasm.KindGlobal}, {Name: "g", Kind: wasm.KindGlobal}},
		}},
		{name: "data without memory", mod: &wasm.Module{Data: []wasm.Data{{Init: []byte{1}}}}},
		{name: "unsupported kind", mod: &wasm.Module{Exports: []wasm.Export{{Name: "t", Kind: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.mod.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValTypeString(t *testing.T) {
	for v, want := range map[wasm.ValType]string{
		wasm.ValI32: "i32", wasm.ValI64: "i64", wasm.ValF32: "f32", wasm.ValF64: "f64", 0x01: "unknown",
	} {
		if v.String() != want {
			t.Errorf("%x.String() = %q, want %q", byte(v), v.String(), want)
		}
	}
}
