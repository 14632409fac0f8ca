// Package bits reads and writes the bit-oriented syntax of H.264 and H.265 parameter sets.
package bits

import (
	"errors"
	"io"
)

var ErrGolombOverflow = errors.New("bits: exponential golomb code too long")

const maxGolombZeros = 31

// GolombBitReader reads bits MSB first from R.
type GolombBitReader struct {
	R    io.Reader
	buf  [1]byte
	left byte
	read int
}

func (r *GolombBitReader) ReadBit() (res uint, err error) {
	if r.left == 0 {
		if _, err = io.ReadFull(r.R, r.buf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return
		}
		r.left = 8
	}
	r.left--
	r.read++
	res = uint(r.buf[0]>>r.left) & 1
	return
}

func (r *GolombBitReader) ReadBits(n int) (res uint, err error) {
	for i := range n {
		var bit uint
		if bit, err = r.ReadBit(); err != nil {
			return
		}
		res |= bit << uint(n-i-1) //nolint:gosec
	}
	return
}

func (r *GolombBitReader) ReadBits32(n uint) (uint32, error) {
	res, err := r.ReadBits64(n)
	return uint32(res), err //nolint:gosec
}

func (r *GolombBitReader) ReadBits64(n uint) (res uint64, err error) {
	for i := range n {
		var bit uint
		if bit, err = r.ReadBit(); err != nil {
			return
		}
		res |= uint64(bit) << (n - i - 1)
	}
	return
}

// ReadFlag reads one bit as a bool.
func (r *GolombBitReader) ReadFlag() (bool, error) {
	bit, err := r.ReadBit()
	return bit == 1, err
}

// ReadExponentialGolombCode reads an unsigned ue(v) value.
func (r *GolombBitReader) ReadExponentialGolombCode() (res uint, err error) {
	i := 0
	for {
		var bit uint
		if bit, err = r.ReadBit(); err != nil {
			return
		}
		if bit == 1 {
			break
		}
		if i++; i > maxGolombZeros {
			return 0, ErrGolombOverflow
		}
	}
	if res, err = r.ReadBits(i); err != nil {
		return
	}
	res += (1 << uint(i)) - 1 //nolint:gosec
	return
}

// ReadSE reads a signed se(v) value.
func (r *GolombBitReader) ReadSE() (res int, err error) {
	var u uint
	if u, err = r.ReadExponentialGolombCode(); err != nil {
		return
	}
	if u&1 == 1 {
		return int((u + 1) / 2), nil //nolint:gosec
	}
	return -int(u / 2), nil //nolint:gosec
}

// Consumed returns the number of bits read so far.
func (r *GolombBitReader) Consumed() int {
	return r.read
}

// Writer is the inverse of GolombBitReader. It is used to build parameter sets.
type Writer struct {
	buf  []byte
	used byte
}

func (w *Writer) WriteBit(bit uint) {
	if w.used == 0 {
		w.buf = append(w.buf, 0)
	}
	if bit&1 == 1 {
		w.buf[len(w.buf)-1] |= 0x80 >> w.used
	}
	w.used = (w.used + 1) % 8 //nolint:mnd
}

func (w *Writer) WriteFlag(v bool) {
	if v {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

func (w *Writer) WriteBits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteBit(uint(v>>uint(i)) & 1) //nolint:gosec
	}
}

// WriteUE writes an unsigned ue(v) value.
func (w *Writer) WriteUE(v uint) {
	v++
	n := 0
	for x := v; x > 1; x >>= 1 {
		n++
	}
	w.WriteBits(0, n)
	w.WriteBits(uint64(v), n+1)
}

// WriteSE writes a signed se(v) value.
func (w *Writer) WriteSE(v int) {
	if v > 0 {
		w.WriteUE(uint(2*v - 1)) //nolint:gosec
	} else {
		w.WriteUE(uint(-2 * v)) //nolint:gosec
	}
}

// TrailingBits writes rbsp_trailing_bits and returns the payload.
func (w *Writer) TrailingBits() []byte {
	w.WriteBit(1)
	for w.used != 0 {
		w.WriteBit(0)
	}
	return w.buf
}

// Bytes returns the written bits, the last byte zero padded.
func (w *Writer) Bytes() []byte {
	return w.buf
}
