package coding

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

// ReferenceSlot names a DPB slot and the picture resource associated with it. The codec member
// matching the session carries the codec-level description of the picture.
type ReferenceSlot struct {
	SlotIndex int32
	Picture   *vkvideo.PictureResource

	H264 *std.H264ReferenceInfo
	H265 *std.H265ReferenceInfo
	AV1  *std.AV1ReferenceInfo
}

// BeginInfo starts a coding scope.
type BeginInfo struct {
	Session        *session.Session
	Parameters     *params.Parameters
	ReferenceSlots []ReferenceSlot
	RateControl    *RateControlInfo
}

type ControlFlags uint32

const (
	ControlReset              ControlFlags = 0x1
	ControlEncodeRateControl  ControlFlags = 0x2
	ControlEncodeQualityLevel ControlFlags = 0x4
	controlEncodeOnly                      = ControlEncodeRateControl | ControlEncodeQualityLevel
	controlKnown                           = ControlReset | controlEncodeOnly
)

type ControlInfo struct {
	Flags        ControlFlags
	RateControl  *RateControlInfo
	QualityLevel uint32
}

// InlineQuery is a query issued by the coding command itself.
type InlineQuery struct {
	Pool       vkvideo.Handle
	FirstQuery uint32
	QueryCount uint32
}

type DecodeInfo struct {
	SrcBuffer          vkvideo.Handle
	SrcBufferOffset    uint64
	SrcBufferRange     uint64
	DstPicture         vkvideo.PictureResource
	SetupReferenceSlot *ReferenceSlot
	ReferenceSlots     []ReferenceSlot
	InlineQuery        *InlineQuery

	H264 *H264DecodeInfo
	H265 *H265DecodeInfo
	AV1  *AV1DecodeInfo
}

type H264DecodeInfo struct {
	StdPictureInfo *std.H264DecodePictureInfo
	SliceOffsets   []uint32
	// Inline parameter sets, only allowed for sessions created with inline session parameters.
	InlineSPS *std.H264SequenceParameterSet
	InlinePPS *std.H264PictureParameterSet
}

type H265DecodeInfo struct {
	StdPictureInfo      *std.H265DecodePictureInfo
	SliceSegmentOffsets []uint32
	InlineVPS           *std.H265VideoParameterSet
	InlineSPS           *std.H265SequenceParameterSet
	InlinePPS           *std.H265PictureParameterSet
}

type AV1DecodeInfo struct {
	StdPictureInfo *std.AV1DecodePictureInfo
	// ReferenceNameSlotIndices maps each reference name to a DPB slot, -1 when unused.
	ReferenceNameSlotIndices [std.AV1RefsPerFrame]int32
	FrameHeaderOffset        uint32
	TileOffsets              []uint32
	TileSizes                []uint32
	InlineSequenceHeader     *std.AV1SequenceHeader
}

type EncodeFlags uint32

const (
	EncodeWithQuantizationDeltaMap EncodeFlags = 0x1
	EncodeWithEmphasisMap          EncodeFlags = 0x2
)

// QuantizationMap is the quantization map image used by an encode command.
type QuantizationMap struct {
	ImageView vkvideo.Handle
	Extent    vkvideo.Extent2D
}

type EncodeInfo struct {
	Flags                           EncodeFlags
	DstBuffer                       vkvideo.Handle
	DstBufferOffset                 uint64
	DstBufferRange                  uint64
	SrcPicture                      vkvideo.PictureResource
	SetupReferenceSlot              *ReferenceSlot
	ReferenceSlots                  []ReferenceSlot
	PrecedingExternallyEncodedBytes uint32
	InlineQuery                     *InlineQuery
	QuantizationMap                 *QuantizationMap

	H264 *H264EncodeInfo
	H265 *H265EncodeInfo
	AV1  *AV1EncodeInfo
}

type H264Slice struct {
	ConstantQp     int32
	StdSliceHeader *std.H264SliceHeader
}

type H264EncodeInfo struct {
	StdPictureInfo     *std.H264EncodePictureInfo
	Slices             []H264Slice
	GeneratePrefixNalu bool
}

type H265SliceSegment struct {
	ConstantQp            int32
	StdSliceSegmentHeader *std.H265SliceSegmentHeader
}

type H265EncodeInfo struct {
	StdPictureInfo *std.H265EncodePictureInfo
	SliceSegments  []H265SliceSegment
}

type AV1PredictionMode uint32

const (
	AV1PredictionIntraOnly AV1PredictionMode = iota
	AV1PredictionSingleReference
	AV1PredictionUnidirectionalCompound
	AV1PredictionBidirectionalCompound
)

func (m AV1PredictionMode) String() string {
	switch m {
	case AV1PredictionIntraOnly:
		return "intra-only"
	case AV1PredictionSingleReference:
		return "single-reference"
	case AV1PredictionUnidirectionalCompound:
		return "unidirectional-compound"
	case AV1PredictionBidirectionalCompound:
		return "bidirectional-compound"
	}
	return "unknown"
}

type AV1EncodeInfo struct {
	StdPictureInfo             *std.AV1EncodePictureInfo
	PredictionMode             AV1PredictionMode
	ConstantQIndex             uint32
	ReferenceNameSlotIndices   [std.AV1RefsPerFrame]int32
	PrimaryReferenceCdfOnly    bool
	GenerateObuExtensionHeader bool
}
