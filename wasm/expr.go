package wasm

import "github.com/wippyai/render-worker/wasm/internal/binary"

// Expr accumulates an instruction sequence. Methods return the receiver
// so sequences read top to bottom.
type Expr struct {
	w binary.Buffer
}

// NewExpr starts an empty instruction sequence.
func NewExpr() *Expr {
	return &Expr{}
}

// Op appends an opcode without immediates.
func (e *Expr) Op(ops ...byte) *Expr {
	for _, op := range ops {
		e.w.Byte(op)
	}
	return e
}

func (e *Expr) LocalGet(idx uint32) *Expr {
	e.w.Byte(OpLocalGet)
	e.w.U32(idx)
	return e
}

func (e *Expr) LocalSet(idx uint32) *Expr {
	e.w.Byte(OpLocalSet)
	e.w.U32(idx)
	return e
}

func (e *Expr) GlobalGet(idx uint32) *Expr {
	e.w.Byte(OpGlobalGet)
	e.w.U32(idx)
	return e
}

func (e *Expr) GlobalSet(idx uint32) *Expr {
	e.w.Byte(OpGlobalSet)
	e.w.U32(idx)
	return e
}

func (e *Expr) I32Const(v int32) *Expr {
	e.w.Byte(OpI32Const)
	e.w.S32(v)
	return e
}

func (e *Expr) I64Const(v int64) *Expr {
	e.w.Byte(OpI64Const)
	e.w.S64(v)
	return e
}

func (e *Expr) F32Const(v float32) *Expr {
	e.w.Byte(OpF32Const)
	e.w.F32(v)
	return e
}

func (e *Expr) F64Const(v float64) *Expr {
	e.w.Byte(OpF64Const)
	e.w.F64(v)
	return e
}

func (e *Expr) Call(funcIdx uint32) *Expr {
	e.w.Byte(OpCall)
	e.w.U32(funcIdx)
	return e
}

// If opens an if block with no result. Close it with End.
func (e *Expr) If() *Expr {
	e.w.Byte(OpIf)
	e.w.Byte(BlockTypeVoid)
	return e
}

func (e *Expr) Else() *Expr {
	e.w.Byte(OpElse)
	return e
}

func (e *Expr) Return() *Expr {
	e.w.Byte(OpReturn)
	return e
}

func (e *Expr) End() *Expr {
	e.w.Byte(OpEnd)
	return e
}

// Bytes returns the encoded sequence.
func (e *Expr) Bytes() []byte {
	return e.w.Bytes()
}

// ConstI32 returns a constant initializer expression for an i32 global.
func ConstI32(v int32) []byte {
	return NewExpr().I32Const(v).End().Bytes()
}

// ConstF32 returns a constant initializer expression for an f32 global.
func ConstF32(v float32) []byte {
	return NewExpr().F32Const(v).End().Bytes()
}

// ConstF64 returns a constant initializer expression for an f64 global.
func ConstF64(v float64) []byte {
	return NewExpr().F64Const(v).End().Bytes()
}
