// Package binary appends the primitive encodings of the WebAssembly
// binary format.
package binary

import (
	"encoding/binary"
	"math"
)

// Buffer is an append-only byte sequence. The zero value is ready to use.
type Buffer struct {
	b []byte
}

func (w *Buffer) Bytes() []byte {
	return w.b
}

func (w *Buffer) Len() int {
	return len(w.b)
}

func (w *Buffer) Byte(b byte) {
	w.b = append(w.b, b)
}

// Raw appends data unchanged.
func (w *Buffer) Raw(data []byte) {
	w.b = append(w.b, data...)
}

// U32 appends v as unsigned LEB128.
func (w *Buffer) U32(v uint32) {
	for v >= 0x80 {
		w.b = append(w.b, byte(v)|0x80)
		v >>= 7
	}
	w.b = append(w.b, byte(v))
}

// S32 appends v as signed LEB128.
func (w *Buffer) S32(v int32) {
	w.S64(int64(v))
}

// S64 appends v as signed LEB128.
func (w *Buffer) S64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		w.b = append(w.b, b)
		if done {
			return
		}
	}
}

// Fixed32 appends v as four little-endian bytes.
func (w *Buffer) Fixed32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

func (w *Buffer) F32(v float32) {
	w.Fixed32(math.Float32bits(v))
}

func (w *Buffer) F64(v float64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, math.Float64bits(v))
}

// Name appends a length-prefixed UTF-8 string.
func (w *Buffer) Name(s string) {
	w.U32(uint32(len(s)))
	w.b = append(w.b, s...)
}

// Sized appends whatever fill writes, preceded by its byte length.
func (w *Buffer) Sized(fill func(*Buffer)) {
	var inner Buffer
	fill(&inner)
	w.U32(uint32(inner.Len()))
	w.Raw(inner.b)
}

// Section appends a section with the given id.
func (w *Buffer) Section(id byte, fill func(*Buffer)) {
	w.Byte(id)
	w.Sized(fill)
}
