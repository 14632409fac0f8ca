package profile

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/std"
)

type CapabilityFlags uint32

const (
	CapabilityProtectedContent        CapabilityFlags = 0x1
	CapabilitySeparateReferenceImages CapabilityFlags = 0x2
)

type DecodeCapabilityFlags uint32

const (
	DecodeDpbAndOutputCoincide DecodeCapabilityFlags = 0x1
	DecodeDpbAndOutputDistinct DecodeCapabilityFlags = 0x2
)

type EncodeCapabilityFlags uint32

const (
	EncodePrecedingExternallyEncodedBytes           EncodeCapabilityFlags = 0x1
	EncodeInsufficientBitstreamBufferRangeDetection EncodeCapabilityFlags = 0x2
	EncodeQuantizationDeltaMap                      EncodeCapabilityFlags = 0x4
	EncodeEmphasisMap                               EncodeCapabilityFlags = 0x8
)

// RateControlMode is both a single mode and, in capabilities, the set of supported modes.
// The default mode has no bit of its own.
type RateControlMode uint32

const (
	RateControlDefault  RateControlMode = 0
	RateControlDisabled RateControlMode = 0x1
	RateControlCBR      RateControlMode = 0x2
	RateControlVBR      RateControlMode = 0x4
)

func (m RateControlMode) String() string {
	switch m {
	case RateControlDefault:
		return "DEFAULT"
	case RateControlDisabled:
		return "DISABLED"
	case RateControlCBR:
		return "CBR"
	case RateControlVBR:
		return "VBR"
	}
	return "INVALID"
}

type EncodeFeedbackFlags uint32

const (
	EncodeFeedbackBitstreamBufferOffset EncodeFeedbackFlags = 0x1
	EncodeFeedbackBitstreamBytesWritten EncodeFeedbackFlags = 0x2
	EncodeFeedbackBitstreamHasOverrides EncodeFeedbackFlags = 0x4
)

// Capabilities is the fixed set of limits a device reports for one profile. Values obtained from a
// Resolver are shared and must not be modified.
type Capabilities struct {
	Flags                             CapabilityFlags
	MinBitstreamBufferOffsetAlignment uint64
	MinBitstreamBufferSizeAlignment   uint64
	PictureAccessGranularity          vkvideo.Extent2D
	MinCodedExtent                    vkvideo.Extent2D
	MaxCodedExtent                    vkvideo.Extent2D
	MaxDpbSlots                       uint32
	MaxActiveReferencePictures        uint32

	Decode *DecodeCapabilities
	Encode *EncodeCapabilities

	H264Decode *H264DecodeCapabilities
	H265Decode *H265DecodeCapabilities
	AV1Decode  *AV1DecodeCapabilities
	H264Encode *H264EncodeCapabilities
	H265Encode *H265EncodeCapabilities
	AV1Encode  *AV1EncodeCapabilities
}

// Complete reports whether the operation-kind and codec records op needs are present.
func (c *Capabilities) Complete(op vkvideo.CodecOperation) bool {
	switch op {
	case vkvideo.OperationDecodeH264:
		return c.Decode != nil && c.H264Decode != nil
	case vkvideo.OperationDecodeH265:
		return c.Decode != nil && c.H265Decode != nil
	case vkvideo.OperationDecodeAV1:
		return c.Decode != nil && c.AV1Decode != nil
	case vkvideo.OperationEncodeH264:
		return c.Encode != nil && c.H264Encode != nil
	case vkvideo.OperationEncodeH265:
		return c.Encode != nil && c.H265Encode != nil
	case vkvideo.OperationEncodeAV1:
		return c.Encode != nil && c.AV1Encode != nil
	case vkvideo.OperationNone:
	}
	return false
}

type DecodeCapabilities struct {
	Flags DecodeCapabilityFlags
}

type EncodeCapabilities struct {
	Flags                         EncodeCapabilityFlags
	RateControlModes              RateControlMode
	MaxRateControlLayers          uint32
	MaxBitrate                    uint64
	MaxQualityLevels              uint32
	EncodeInputPictureGranularity vkvideo.Extent2D
	SupportedEncodeFeedbackFlags  EncodeFeedbackFlags
	MaxQuantizationMapExtent      vkvideo.Extent2D
	DeltaMapTexelSizes            []vkvideo.Extent2D
	EmphasisMapTexelSizes         []vkvideo.Extent2D
}

type H264DecodeCapabilities struct {
	MaxLevelIdc            std.H264LevelIdc
	FieldOffsetGranularity vkvideo.Offset2D
}

type H265DecodeCapabilities struct {
	MaxLevelIdc std.H265LevelIdc
}

type AV1DecodeCapabilities struct {
	MaxLevel std.AV1Level
}

type H264EncodeCapabilityFlags uint32

const (
	H264EncodeHRDCompliance          H264EncodeCapabilityFlags = 0x1
	H264EncodeRowUnalignedSlice      H264EncodeCapabilityFlags = 0x4
	H264EncodeDifferentSliceType     H264EncodeCapabilityFlags = 0x8
	H264EncodeBFrameInL0List         H264EncodeCapabilityFlags = 0x10
	H264EncodeBFrameInL1List         H264EncodeCapabilityFlags = 0x20
	H264EncodePerPictureTypeMinMaxQp H264EncodeCapabilityFlags = 0x40
	H264EncodePerSliceConstantQp     H264EncodeCapabilityFlags = 0x80
	H264EncodeGeneratePrefixNalu     H264EncodeCapabilityFlags = 0x100
)

type H264EncodeCapabilities struct {
	Flags                            H264EncodeCapabilityFlags
	MaxLevelIdc                      std.H264LevelIdc
	MaxSliceCount                    uint32
	MaxPPictureL0ReferenceCount      uint32
	MaxBPictureL0ReferenceCount      uint32
	MaxL1ReferenceCount              uint32
	MaxTemporalLayerCount            uint32
	ExpectDyadicTemporalLayerPattern bool
	MinQp                            int32
	MaxQp                            int32
	PrefersGopRemainingFrames        bool
	RequiresGopRemainingFrames       bool
}

type H265EncodeCapabilityFlags uint32

const (
	H265EncodeHRDCompliance                H265EncodeCapabilityFlags = 0x1
	H265EncodeRowUnalignedSliceSegment     H265EncodeCapabilityFlags = 0x4
	H265EncodeDifferentSliceSegmentType    H265EncodeCapabilityFlags = 0x8
	H265EncodeBFrameInL0List               H265EncodeCapabilityFlags = 0x10
	H265EncodeBFrameInL1List               H265EncodeCapabilityFlags = 0x20
	H265EncodePerPictureTypeMinMaxQp       H265EncodeCapabilityFlags = 0x40
	H265EncodePerSliceSegmentConstantQp    H265EncodeCapabilityFlags = 0x80
	H265EncodeMultipleTilesPerSliceSegment H265EncodeCapabilityFlags = 0x100
	H265EncodeMultipleSliceSegmentsPerTile H265EncodeCapabilityFlags = 0x200
)

type H265CtbSizeFlags uint32

const (
	H265CtbSize16 H265CtbSizeFlags = 0x1
	H265CtbSize32 H265CtbSizeFlags = 0x2
	H265CtbSize64 H265CtbSizeFlags = 0x4
)

// MinSize returns the smallest supported CTB edge length, or zero if none is supported.
func (f H265CtbSizeFlags) MinSize() uint32 {
	switch {
	case f&H265CtbSize16 != 0:
		return 16 //nolint:mnd
	case f&H265CtbSize32 != 0:
		return 32 //nolint:mnd
	case f&H265CtbSize64 != 0:
		return 64 //nolint:mnd
	}
	return 0
}

// MaxSize returns the largest supported CTB edge length, or zero if none is supported.
func (f H265CtbSizeFlags) MaxSize() uint32 {
	switch {
	case f&H265CtbSize64 != 0:
		return 64 //nolint:mnd
	case f&H265CtbSize32 != 0:
		return 32 //nolint:mnd
	case f&H265CtbSize16 != 0:
		return 16 //nolint:mnd
	}
	return 0
}

// Has reports whether a CTB edge length is supported.
func (f H265CtbSizeFlags) Has(size uint32) bool {
	switch size {
	case 16: //nolint:mnd
		return f&H265CtbSize16 != 0
	case 32: //nolint:mnd
		return f&H265CtbSize32 != 0
	case 64: //nolint:mnd
		return f&H265CtbSize64 != 0
	}
	return false
}

type H265EncodeCapabilities struct {
	Flags                               H265EncodeCapabilityFlags
	MaxLevelIdc                         std.H265LevelIdc
	MaxSliceSegmentCount                uint32
	MaxTiles                            vkvideo.Extent2D
	CtbSizes                            H265CtbSizeFlags
	MaxPPictureL0ReferenceCount         uint32
	MaxBPictureL0ReferenceCount         uint32
	MaxL1ReferenceCount                 uint32
	MaxSubLayerCount                    uint32
	ExpectDyadicTemporalSubLayerPattern bool
	MinQp                               int32
	MaxQp                               int32
	PrefersGopRemainingFrames           bool
	RequiresGopRemainingFrames          bool
}

type AV1EncodeCapabilityFlags uint32

const (
	AV1EncodePerRateControlGroupMinMaxQIndex AV1EncodeCapabilityFlags = 0x1
	AV1EncodeGenerateObuExtensionHeader      AV1EncodeCapabilityFlags = 0x2
	AV1EncodePrimaryReferenceCdfOnly         AV1EncodeCapabilityFlags = 0x4
	AV1EncodeFrameSizeOverride               AV1EncodeCapabilityFlags = 0x8
	AV1EncodeMotionVectorScaling             AV1EncodeCapabilityFlags = 0x10
)

type AV1SuperblockSizeFlags uint32

const (
	AV1SuperblockSize64  AV1SuperblockSizeFlags = 0x1
	AV1SuperblockSize128 AV1SuperblockSizeFlags = 0x2
)

type AV1EncodeCapabilities struct {
	Flags                                         AV1EncodeCapabilityFlags
	MaxLevel                                      std.AV1Level
	CodedPictureAlignment                         vkvideo.Extent2D
	MaxTiles                                      vkvideo.Extent2D
	SuperblockSizes                               AV1SuperblockSizeFlags
	MaxSingleReferenceCount                       uint32
	SingleReferenceNameMask                       uint32
	MaxUnidirectionalCompoundReferenceCount       uint32
	MaxUnidirectionalCompoundGroup1ReferenceCount uint32
	UnidirectionalCompoundReferenceNameMask       uint32
	MaxBidirectionalCompoundReferenceCount        uint32
	MaxBidirectionalCompoundGroup1ReferenceCount  uint32
	MaxBidirectionalCompoundGroup2ReferenceCount  uint32
	BidirectionalCompoundReferenceNameMask        uint32
	MaxTemporalLayerCount                         uint32
	MaxSpatialLayerCount                          uint32
	MaxOperatingPoints                            uint32
	MinQIndex                                     uint32
	MaxQIndex                                     uint32
	PrefersGopRemainingFrames                     bool
	RequiresGopRemainingFrames                    bool
}

// TexelSizes returns the quantization map texel sizes supported for the given map kind.
func (c *EncodeCapabilities) TexelSizes(emphasis bool) []vkvideo.Extent2D {
	if emphasis {
		return c.EmphasisMapTexelSizes
	}
	return c.DeltaMapTexelSizes
}
