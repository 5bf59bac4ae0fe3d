// Package wasm encodes core WebAssembly modules.
//
// It covers the subset needed to assemble small graphics modules in
// process: function types, function imports, memories, globals, exports
// and function bodies. Modules are built either directly as a Module value
// or incrementally with a Builder, and function bodies with Expr:
//
//	b := wasm.NewBuilder()
//	draw := b.ImportFunc("env", "render_frame", wasm.FuncType{Params: []wasm.ValType{wasm.ValF32}})
//	b.AddFunc("frame", wasm.FuncType{Params: []wasm.ValType{wasm.ValF32}}, nil,
//		wasm.NewExpr().LocalGet(0).Call(draw).End().Bytes())
//	bin := b.Module().Encode()
//
// Encoding does not type-check function bodies; the runtime that compiles
// the module does.
package wasm
