// Package profile describes video profiles and resolves the capability limits a device reports for them.
package profile

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ugparu/vkvideo"
)

type ChromaSubsampling uint32

const (
	ChromaSubsamplingMonochrome ChromaSubsampling = 0x1
	ChromaSubsampling420        ChromaSubsampling = 0x2
	ChromaSubsampling422        ChromaSubsampling = 0x4
	ChromaSubsampling444        ChromaSubsampling = 0x8
)

type ComponentBitDepth uint32

const (
	ComponentBitDepth8  ComponentBitDepth = 0x1
	ComponentBitDepth10 ComponentBitDepth = 0x4
	ComponentBitDepth12 ComponentBitDepth = 0x10
)

// PictureLayout is the H.264 decode picture layout. Any layout other than progressive enables
// interlaced content.
type PictureLayout uint32

const (
	PictureLayoutProgressive                PictureLayout = 0
	PictureLayoutInterlacedInterleavedLines PictureLayout = 0x1
	PictureLayoutInterlacedSeparatePlanes   PictureLayout = 0x2
)

var (
	ErrUnsupported    = errors.New("profile: video profile is not supported")
	ErrInvalidProfile = errors.New("profile: invalid video profile")
)

// Profile identifies a codec operation and its picture attributes. It is immutable and compared by
// value, so it can be used directly as a map key.
type Profile struct {
	Operation         vkvideo.CodecOperation
	ChromaSubsampling ChromaSubsampling
	LumaBitDepth      ComponentBitDepth
	ChromaBitDepth    ComponentBitDepth
	StdProfile        uint32        // std.H264ProfileIdc, std.H265ProfileIdc or std.AV1Profile.
	PictureLayout     PictureLayout // H.264 decode only.
	FilmGrainSupport  bool          // AV1 decode only.
}

// Interlaced reports whether the profile allows field pictures.
func (p Profile) Interlaced() bool {
	return p.Operation == vkvideo.OperationDecodeH264 && p.PictureLayout != PictureLayoutProgressive
}

func (p Profile) String() string {
	return fmt.Sprintf("PROFILE op=%v chroma=%#x luma=%#x chromaDepth=%#x std=%d layout=%d grain=%t",
		p.Operation, uint32(p.ChromaSubsampling), uint32(p.LumaBitDepth), uint32(p.ChromaBitDepth),
		p.StdProfile, p.PictureLayout, p.FilmGrainSupport)
}

// Validate checks the structural rules of the profile itself.
func (p Profile) Validate() error {
	if p.Operation.Codec() == vkvideo.CodecUnknown {
		return fmt.Errorf("%w: unknown codec operation %#x", ErrInvalidProfile, uint32(p.Operation))
	}
	if bits.OnesCount32(uint32(p.ChromaSubsampling)) != 1 {
		return fmt.Errorf("%w: exactly one chroma subsampling bit must be set", ErrInvalidProfile)
	}
	if bits.OnesCount32(uint32(p.LumaBitDepth)) != 1 {
		return fmt.Errorf("%w: exactly one luma bit depth bit must be set", ErrInvalidProfile)
	}
	if p.ChromaSubsampling != ChromaSubsamplingMonochrome && bits.OnesCount32(uint32(p.ChromaBitDepth)) != 1 {
		return fmt.Errorf("%w: exactly one chroma bit depth bit must be set", ErrInvalidProfile)
	}
	if p.PictureLayout != PictureLayoutProgressive && p.Operation != vkvideo.OperationDecodeH264 {
		return fmt.Errorf("%w: picture layout is only defined for H.264 decode", ErrInvalidProfile)
	}
	if p.FilmGrainSupport && p.Operation != vkvideo.OperationDecodeAV1 {
		return fmt.Errorf("%w: film grain support is only defined for AV1 decode", ErrInvalidProfile)
	}
	return nil
}
