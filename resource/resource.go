// Package resource holds the image, buffer and query pool facts the checker consumes from the
// generic object tracker.
package resource

import (
	"slices"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/profile"
)

type ImageUsage uint32

const (
	ImageUsageDecodeDst            ImageUsage = 0x1
	ImageUsageDecodeDpb            ImageUsage = 0x2
	ImageUsageEncodeSrc            ImageUsage = 0x4
	ImageUsageEncodeDpb            ImageUsage = 0x8
	ImageUsageQuantizationDeltaMap ImageUsage = 0x10
	ImageUsageEmphasisMap          ImageUsage = 0x20
)

type BufferUsage uint32

const (
	BufferUsageDecodeSrc BufferUsage = 0x1
	BufferUsageEncodeDst BufferUsage = 0x2
)

type ImageLayout uint32

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutDecodeDst
	ImageLayoutDecodeDpb
	ImageLayoutEncodeSrc
	ImageLayoutEncodeDpb
	ImageLayoutQuantizationMap
)

func (l ImageLayout) String() string {
	switch l {
	case ImageLayoutUndefined:
		return "UNDEFINED"
	case ImageLayoutGeneral:
		return "GENERAL"
	case ImageLayoutDecodeDst:
		return "VIDEO_DECODE_DST"
	case ImageLayoutDecodeDpb:
		return "VIDEO_DECODE_DPB"
	case ImageLayoutEncodeSrc:
		return "VIDEO_ENCODE_SRC"
	case ImageLayoutEncodeDpb:
		return "VIDEO_ENCODE_DPB"
	case ImageLayoutQuantizationMap:
		return "VIDEO_ENCODE_QUANTIZATION_MAP"
	}
	return "UNKNOWN"
}

type QueryType uint32

const (
	QueryTypeOther QueryType = iota
	QueryTypeResultStatusOnly
	QueryTypeEncodeFeedback
)

func (q QueryType) String() string {
	switch q {
	case QueryTypeResultStatusOnly:
		return "RESULT_STATUS_ONLY"
	case QueryTypeEncodeFeedback:
		return "VIDEO_ENCODE_FEEDBACK"
	}
	return "OTHER"
}

// ImageView describes an image view and the image it was created from.
type ImageView struct {
	Handle         vkvideo.Handle
	Image          vkvideo.Handle
	Format         vkvideo.Format
	Usage          ImageUsage
	Extent         vkvideo.Extent2D
	BaseArrayLayer uint32
	LayerCount     uint32
	Profiles       []profile.Profile // Video profiles the image was created for.
	Protected      bool
	TexelSize      vkvideo.Extent2D // Quantization map texel size, zero for other images.
}

// SupportsProfile reports whether the image was created to be used with p.
func (v *ImageView) SupportsProfile(p profile.Profile) bool {
	return slices.Contains(v.Profiles, p)
}

// Buffer describes a bitstream buffer.
type Buffer struct {
	Handle    vkvideo.Handle
	Size      uint64
	Usage     BufferUsage
	Profiles  []profile.Profile
	Protected bool
}

// SupportsProfile reports whether the buffer was created to be used with p.
func (b *Buffer) SupportsProfile(p profile.Profile) bool {
	return slices.Contains(b.Profiles, p)
}

// QueryPool describes a query pool.
type QueryPool struct {
	Handle        vkvideo.Handle
	Type          QueryType
	Count         uint32
	Profile       *profile.Profile // Video profile the pool was created with, if any.
	FeedbackFlags profile.EncodeFeedbackFlags
}

// Lookup answers handle to state queries. Implementations must be safe for concurrent readers.
type Lookup interface {
	ImageView(h vkvideo.Handle) (*ImageView, bool)
	Buffer(h vkvideo.Handle) (*Buffer, bool)
	QueryPool(h vkvideo.Handle) (*QueryPool, bool)
}

// Layouts answers the current layout of an image subresource as recorded in a command buffer.
type Layouts interface {
	ImageLayout(image vkvideo.Handle, layer uint32) (ImageLayout, bool)
}
