package serialize

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Snapshot layout, all integers big endian:
//
//	[Magic:4][Version:2][World][BodyCount:4][Body records][JointCount:4][Joint records]
//
// Bodies, shapes and joints are framed as [Tag:1][Len:4][Payload] so that a
// reader can skip the records it does not understand.
var magic = [4]byte{'P', 'L', 'N', 'K'}

const (
	Version    = 1
	headerSize = 6
	recordSize = 5
)

type writer struct {
	buf []byte
}

func (w *writer) uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) uint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) uint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) int32(v int32) {
	w.uint32(uint32(v))
}

func (w *writer) float64(v float64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *writer) bool(v bool) {
	if v {
		w.uint8(1)
	} else {
		w.uint8(0)
	}
}

func (w *writer) vec2(v mgl64.Vec2) {
	w.float64(v[0])
	w.float64(v[1])
}

// record frames the payload written by fn.
func (w *writer) record(tag uint8, fn func(payload *writer) error) error {
	var payload writer
	if err := fn(&payload); err != nil {
		return err
	}
	w.uint8(tag)
	w.uint32(uint32(len(payload.buf)))
	w.buf = append(w.buf, payload.buf...)
	return nil
}

func (w *writer) flush(out io.Writer) error {
	_, err := out.Write(w.buf)
	return errors.Wrap(err, "serialize: write snapshot")
}

// reader keeps the first error. Reads past the end return zero values.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = errors.Wrap(io.ErrUnexpectedEOF, "serialize: truncated snapshot")
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) int32() int32 {
	return int32(r.uint32())
}

func (r *reader) float64() float64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (r *reader) bool() bool {
	return r.uint8() != 0
}

func (r *reader) vec2() mgl64.Vec2 {
	return mgl64.Vec2{r.float64(), r.float64()}
}

// count reads an element count, bounded by the remaining bytes so that a
// corrupt snapshot cannot trigger a huge allocation.
func (r *reader) count(minSize int) int {
	n := int(r.uint32())
	if r.err == nil && n*minSize > len(r.data)-r.off {
		r.err = errors.Wrapf(io.ErrUnexpectedEOF, "serialize: %d elements do not fit the snapshot", n)
		return 0
	}
	return n
}

// record returns the tag and a reader over the payload of the next record.
func (r *reader) record() (uint8, *reader) {
	tag := r.uint8()
	size := r.uint32()
	payload := r.next(int(size))
	return tag, &reader{data: payload, err: r.err}
}
