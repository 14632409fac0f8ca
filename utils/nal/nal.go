// Package nal splits NAL unit streams and converts between escaped payloads and RBSP.
package nal

import (
	"github.com/ugparu/vkvideo/utils/bits/pio"
)

// Format is the framing a NAL unit stream was found in.
type Format int

const (
	FormatRaw    Format = iota // A single unframed NAL unit.
	FormatAVCC                 // 4-byte big-endian length prefixes.
	FormatAnnexB               // 3 or 4 byte start codes.
)

func (f Format) String() string {
	switch f {
	case FormatAVCC:
		return "AVCC"
	case FormatAnnexB:
		return "ANNEXB"
	case FormatRaw:
	}
	return "RAW"
}

// MinNaluSize is the minimum size of a length prefixed NAL unit.
const MinNaluSize = 4

// startCode returns the length of the start code at pos, or 0 if there is none.
func startCode(b []byte, pos int) int {
	if pos+2 >= len(b) || b[pos] != 0 {
		return 0
	}
	switch v := pio.U24BE(b[pos:]); {
	case v == 1:
		return 3 //nolint:mnd
	case v == 0 && pos+3 < len(b) && b[pos+3] == 1:
		return 4 //nolint:mnd
	}
	return 0
}

func splitAnnexB(b []byte) [][]byte {
	var nalus [][]byte
	pos := startCode(b, 0)
	start := pos
	for pos < len(b) {
		n := startCode(b, pos)
		if n == 0 {
			pos++
			continue
		}
		if end := trimTrailingZeros(b[start:pos]); len(end) > 0 {
			nalus = append(nalus, end)
		}
		pos += n
		start = pos
	}
	if start < len(b) {
		nalus = append(nalus, b[start:])
	}
	return nalus
}

// trimTrailingZeros drops trailing_zero_8bits in front of a 4-byte start code.
func trimTrailingZeros(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}

func splitAVCC(b []byte) ([][]byte, bool) {
	var nalus [][]byte
	for len(b) >= MinNaluSize {
		n := pio.U32BE(b)
		b = b[MinNaluSize:]
		if n > uint32(len(b)) { //nolint:gosec
			return nil, false
		}
		if n > 0 {
			nalus = append(nalus, b[:n])
		}
		b = b[n:]
	}
	return nalus, len(b) == 0 && len(nalus) > 0
}

// SplitNALUs splits b into NAL units. Annex-B start codes take precedence over length prefixes,
// since a start code is never a valid length for the data following it.
func SplitNALUs(b []byte) ([][]byte, Format) {
	if len(b) < MinNaluSize {
		return [][]byte{b}, FormatRaw
	}
	if pio.U24BE(b) == 1 || pio.U32BE(b) == 1 {
		return splitAnnexB(b), FormatAnnexB
	}
	if nalus, ok := splitAVCC(b); ok {
		return nalus, FormatAVCC
	}
	return [][]byte{b}, FormatRaw
}

// ToRBSP removes emulation prevention bytes (0x000003 -> 0x0000).
func ToRBSP(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 3 { //nolint:mnd
			zeros = 0
			continue
		}
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, c)
	}
	return out
}

// FromRBSP inserts emulation prevention bytes so that the payload contains no start code prefix.
func FromRBSP(b []byte) []byte {
	out := make([]byte, 0, len(b)+len(b)/2) //nolint:mnd
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c <= 3 { //nolint:mnd
			out = append(out, 3) //nolint:mnd
			zeros = 0
		}
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, c)
	}
	return out
}

// AnnexB joins NAL units with 4-byte start codes.
func AnnexB(nalus ...[]byte) []byte {
	var out []byte
	for _, n := range nalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, n...)
	}
	return out
}

// StopBit returns the position, in bits from the start of rbsp, of the rbsp_stop_one_bit, or -1
// if the payload is all zeros.
func StopBit(rbsp []byte) int {
	for i := len(rbsp) - 1; i >= 0; i-- {
		c := rbsp[i]
		if c == 0 {
			continue
		}
		bit := 7 //nolint:mnd
		for c&1 == 0 {
			c >>= 1
			bit--
		}
		return i*8 + bit //nolint:mnd
	}
	return -1
}
