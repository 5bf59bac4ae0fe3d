package guest

import (
	"encoding/binary"

	"github.com/wippyai/render-worker/wasm"
)

// DemoRotation is the demo module's starting angle in degrees.
const DemoRotation = 45.0

// Exported demo globals, readable through Instance.Global.
const (
	DemoGlobalRotation     = "rotation"
	DemoGlobalRunning      = "is_running"
	DemoGlobalInitialized  = "is_initialized"
	DemoGlobalWidth        = "canvas_width"
	DemoGlobalHeight       = "canvas_height"
	DemoGlobalMouseButtons = "mouse_buttons"
)

// Guest memory layout for the demo's WASI output.
const (
	demoIovInit    = 0
	demoIovCleanup = 8
	demoNWritten   = 16
	demoMsgInit    = 64
	demoMsgCleanup = 128
)

var (
	demoInitMsg    = []byte("demo: graphics initialized\n")
	demoCleanupMsg = []byte("demo: cleanup done\n")
)

// DemoModule assembles the reference graphics module. It spins a triangle
// at 60 degrees per second while running, asking the host to draw after
// every change, and tracks the canvas size, cursor and pressed buttons.
func DemoModule() []byte {
	return DemoModuleWithout()
}

// DemoModuleWithout assembles the demo module leaving the named entry
// points unexported.
func DemoModuleWithout(omit ...string) []byte {
	skip := make(map[string]bool, len(omit))
	for _, n := range omit {
		skip[n] = true
	}
	name := func(n string) string {
		if skip[n] {
			return ""
		}
		return n
	}

	i32, f32, f64 := wasm.ValI32, wasm.ValF32, wasm.ValF64
	b := wasm.NewBuilder()

	render := b.ImportFunc(HostModule, HostRenderFrame, wasm.FuncType{Params: []wasm.ValType{f32}})
	fdWrite := b.ImportFunc(wasiModule, "fd_write", wasm.FuncType{
		Params:  []wasm.ValType{i32, i32, i32, i32},
		Results: []wasm.ValType{i32},
	})

	initialized := b.AddGlobal(i32, wasm.ConstI32(0))
	running := b.AddGlobal(i32, wasm.ConstI32(0))
	width := b.AddGlobal(i32, wasm.ConstI32(800))
	height := b.AddGlobal(i32, wasm.ConstI32(600))
	mouseX := b.AddGlobal(f64, wasm.ConstF64(0))
	mouseY := b.AddGlobal(f64, wasm.ConstF64(0))
	buttons := b.AddGlobal(i32, wasm.ConstI32(0))
	rotation := b.AddGlobal(f32, wasm.ConstF32(DemoRotation))

	b.AddMemory("memory", wasm.Limits{Min: 1})
	b.AddData(0, demoIovecs())
	b.AddData(demoMsgInit, demoInitMsg)
	b.AddData(demoMsgCleanup, demoCleanupMsg)

	emit := func(e *wasm.Expr, iov int32) *wasm.Expr {
		return e.I32Const(1).I32Const(iov).I32Const(1).I32Const(demoNWritten).
			Call(fdWrite).Op(wasm.OpDrop)
	}

	void := wasm.FuncType{}

	b.AddFunc(name(FuncInitLibs), wasm.FuncType{Params: []wasm.ValType{i32, i32}}, nil,
		emit(wasm.NewExpr().
			GlobalGet(initialized).If().Return().End().
			LocalGet(0).GlobalSet(width).
			LocalGet(1).GlobalSet(height).
			GlobalGet(rotation).Call(render).
			I32Const(1).GlobalSet(initialized), demoIovInit).
			End().Bytes())

	b.AddFunc(name(FuncFrame), wasm.FuncType{Params: []wasm.ValType{f32}}, nil,
		wasm.NewExpr().
			GlobalGet(initialized).Op(wasm.OpI32Eqz).
			GlobalGet(running).Op(wasm.OpI32Eqz).
			Op(wasm.OpI32Or).If().Return().End().
			GlobalGet(rotation).LocalGet(0).F32Const(60).Op(wasm.OpF32Mul, wasm.OpF32Add).GlobalSet(rotation).
			GlobalGet(rotation).F32Const(360).Op(wasm.OpF32Gt).If().
			GlobalGet(rotation).F32Const(360).Op(wasm.OpF32Sub).GlobalSet(rotation).
			End().
			GlobalGet(rotation).Call(render).
			End().Bytes())

	b.AddFunc(name(FuncStartRendering), void, nil,
		wasm.NewExpr().
			I32Const(1).GlobalSet(running).
			GlobalGet(rotation).Call(render).
			End().Bytes())

	b.AddFunc(name(FuncStopRendering), void, nil,
		wasm.NewExpr().
			I32Const(0).GlobalSet(running).
			End().Bytes())

	b.AddFunc(name(FuncHandleMouseMove), wasm.FuncType{Params: []wasm.ValType{f64, f64}}, nil,
		wasm.NewExpr().
			LocalGet(0).GlobalSet(mouseX).
			LocalGet(1).GlobalSet(mouseY).
			End().Bytes())

	b.AddFunc(name(FuncHandleMouseButton), wasm.FuncType{Params: []wasm.ValType{i32, i32}}, nil,
		wasm.NewExpr().
			LocalGet(1).I32Const(1).Op(wasm.OpI32Eq).If().
			GlobalGet(buttons).I32Const(1).LocalGet(0).Op(wasm.OpI32Shl, wasm.OpI32Or).GlobalSet(buttons).
			Else().
			GlobalGet(buttons).I32Const(1).LocalGet(0).Op(wasm.OpI32Shl).I32Const(-1).Op(wasm.OpI32Xor, wasm.OpI32And).GlobalSet(buttons).
			End().
			End().Bytes())

	b.AddFunc(name(FuncHandleResize), wasm.FuncType{Params: []wasm.ValType{i32, i32}}, nil,
		wasm.NewExpr().
			LocalGet(0).GlobalSet(width).
			LocalGet(1).GlobalSet(height).
			End().Bytes())

	b.AddFunc(name(FuncCleanup), void, nil,
		emit(wasm.NewExpr().
			GlobalGet(initialized).Op(wasm.OpI32Eqz).If().Return().End().
			I32Const(0).GlobalSet(initialized).
			I32Const(0).GlobalSet(running), demoIovCleanup).
			End().Bytes())

	b.Export(DemoGlobalRotation, wasm.KindGlobal, rotation)
	b.Export(DemoGlobalRunning, wasm.KindGlobal, running)
	b.Export(DemoGlobalInitialized, wasm.KindGlobal, initialized)
	b.Export(DemoGlobalWidth, wasm.KindGlobal, width)
	b.Export(DemoGlobalHeight, wasm.KindGlobal, height)
	b.Export(DemoGlobalMouseButtons, wasm.KindGlobal, buttons)

	return b.Module().Encode()
}

// demoIovecs lays out the two single-entry iovec arrays fd_write reads.
func demoIovecs() []byte {
	buf := make([]byte, demoNWritten+4)
	binary.LittleEndian.PutUint32(buf[demoIovInit:], demoMsgInit)
	binary.LittleEndian.PutUint32(buf[demoIovInit+4:], uint32(len(demoInitMsg)))
	binary.LittleEndian.PutUint32(buf[demoIovCleanup:], demoMsgCleanup)
	binary.LittleEndian.PutUint32(buf[demoIovCleanup+4:], uint32(len(demoCleanupMsg)))
	return buf
}
