package message

import (
	"encoding/binary"
	"math"

	"github.com/sessamekesh/turnlink/pkg/errors"
)

const (
	maxStringLength = math.MaxUint16
	maxListLength   = math.MaxUint16
	maxBlobLength   = math.MaxUint32
)

// wireWriter appends little-endian fields to a buffer. The first error is
// latched so per-kind encoders can write unconditionally and check once.
type wireWriter struct {
	out         []byte
	messageName string
	err         error
}

func (w *wireWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *wireWriter) u8(v uint8) {
	w.out = append(w.out, v)
}

func (w *wireWriter) boolean(v bool) {
	if v {
		w.out = append(w.out, 1)
	} else {
		w.out = append(w.out, 0)
	}
}

func (w *wireWriter) u16(v uint16) {
	w.out = binary.LittleEndian.AppendUint16(w.out, v)
}

func (w *wireWriter) u32(v uint32) {
	w.out = binary.LittleEndian.AppendUint32(w.out, v)
}

func (w *wireWriter) i32(v int32) {
	w.out = binary.LittleEndian.AppendUint32(w.out, uint32(v))
}

func (w *wireWriter) i64(v int64) {
	w.out = binary.LittleEndian.AppendUint64(w.out, uint64(v))
}

func (w *wireWriter) str(fieldName string, s string) {
	if len(s) > maxStringLength {
		w.fail(&errors.FieldTooLong{
			MessageName: w.messageName,
			FieldName:   fieldName,
			Length:      len(s),
			MaxLength:   maxStringLength,
		})
		return
	}
	w.u16(uint16(len(s)))
	w.out = append(w.out, s...)
}

func (w *wireWriter) blob(fieldName string, b []byte) {
	if uint64(len(b)) > maxBlobLength {
		w.fail(&errors.FieldTooLong{
			MessageName: w.messageName,
			FieldName:   fieldName,
			Length:      len(b),
			MaxLength:   maxBlobLength,
		})
		return
	}
	w.u32(uint32(len(b)))
	w.out = append(w.out, b...)
}

func (w *wireWriter) count(fieldName string, n int) bool {
	if n > maxListLength {
		w.fail(&errors.FieldTooLong{
			MessageName: w.messageName,
			FieldName:   fieldName,
			Length:      n,
			MaxLength:   maxListLength,
		})
		return false
	}
	w.u16(uint16(n))
	return true
}

// wireReader walks a packet with a read pointer. Like the writer, the first
// error sticks and every later read returns a zero value.
type wireReader struct {
	msg         []byte
	ptr         int
	messageName string
	err         error
}

func (r *wireReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.msg) < r.ptr+n {
		r.err = &errors.Underflow{
			MessageName: r.messageName,
			MsgSize:     len(r.msg),
			MinimumSize: r.ptr + n,
		}
		return false
	}
	return true
}

func (r *wireReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.msg[r.ptr]
	r.ptr++
	return v
}

func (r *wireReader) boolean() bool {
	return r.u8() > 0
}

func (r *wireReader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.msg[r.ptr : r.ptr+2])
	r.ptr += 2
	return v
}

func (r *wireReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.msg[r.ptr : r.ptr+4])
	r.ptr += 4
	return v
}

func (r *wireReader) i32() int32 {
	return int32(r.u32())
}

func (r *wireReader) i64() int64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.msg[r.ptr : r.ptr+8])
	r.ptr += 8
	return int64(v)
}

func (r *wireReader) str() string {
	n := int(r.u16())
	if !r.need(n) {
		return ""
	}
	s := string(r.msg[r.ptr : r.ptr+n])
	r.ptr += n
	return s
}

// blob copies, so decoded messages never alias the transport's buffer. An
// empty blob decodes as an empty, non-nil slice.
func (r *wireReader) blob() []byte {
	n := int(r.u32())
	if !r.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.msg[r.ptr:r.ptr+n])
	r.ptr += n
	return b
}

func (r *wireReader) count() int {
	return int(r.u16())
}

func (r *wireReader) remaining() int {
	return len(r.msg) - r.ptr
}
