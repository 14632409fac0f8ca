package profile

import (
	"sync"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/std"
)

// StaticProvider serves capabilities from an in-memory table.
type StaticProvider struct {
	mu    sync.RWMutex
	table map[Profile]*Capabilities
}

// NewStaticProvider creates an empty table.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{table: make(map[Profile]*Capabilities)}
}

// Register adds or replaces the capabilities of p.
func (s *StaticProvider) Register(p Profile, caps *Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[p] = caps
}

func (s *StaticProvider) VideoCapabilities(p Profile) (*Capabilities, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps, ok := s.table[p]
	if !ok {
		return nil, ErrUnsupported
	}
	return caps, nil
}

// Profiles returns the registered profiles in registration-independent order.
func (s *StaticProvider) Profiles() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.table))
	for p := range s.table {
		out = append(out, p)
	}
	return out
}

// Default profiles registered by DefaultProvider. All are 4:2:0 8-bit.
var (
	H264DecodeProfile = Profile{
		Operation:         vkvideo.OperationDecodeH264,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.H264ProfileIdcHigh),
	}
	H264DecodeInterlacedProfile = Profile{
		Operation:         vkvideo.OperationDecodeH264,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.H264ProfileIdcHigh),
		PictureLayout:     PictureLayoutInterlacedInterleavedLines,
	}
	H265DecodeProfile = Profile{
		Operation:         vkvideo.OperationDecodeH265,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.H265ProfileIdcMain),
	}
	AV1DecodeProfile = Profile{
		Operation:         vkvideo.OperationDecodeAV1,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.AV1ProfileMain),
	}
	AV1DecodeFilmGrainProfile = Profile{
		Operation:         vkvideo.OperationDecodeAV1,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.AV1ProfileMain),
		FilmGrainSupport:  true,
	}
	H264EncodeProfile = Profile{
		Operation:         vkvideo.OperationEncodeH264,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.H264ProfileIdcHigh),
	}
	H265EncodeProfile = Profile{
		Operation:         vkvideo.OperationEncodeH265,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.H265ProfileIdcMain),
	}
	AV1EncodeProfile = Profile{
		Operation:         vkvideo.OperationEncodeAV1,
		ChromaSubsampling: ChromaSubsampling420,
		LumaBitDepth:      ComponentBitDepth8,
		ChromaBitDepth:    ComponentBitDepth8,
		StdProfile:        uint32(std.AV1ProfileMain),
	}
)

func baseCapabilities(granularity uint32) Capabilities {
	return Capabilities{
		MinBitstreamBufferOffsetAlignment: 256, //nolint:mnd
		MinBitstreamBufferSizeAlignment:   256, //nolint:mnd
		PictureAccessGranularity:          vkvideo.Extent2D{Width: granularity, Height: granularity},
		MinCodedExtent:                    vkvideo.Extent2D{Width: 16, Height: 16},     //nolint:mnd
		MaxCodedExtent:                    vkvideo.Extent2D{Width: 4096, Height: 4096}, //nolint:mnd
		MaxDpbSlots:                       17,                                          //nolint:mnd
		MaxActiveReferencePictures:        16,                                          //nolint:mnd
	}
}

func encodeCapabilities() *EncodeCapabilities {
	return &EncodeCapabilities{
		Flags:                         EncodeQuantizationDeltaMap | EncodeEmphasisMap,
		RateControlModes:              RateControlDisabled | RateControlCBR | RateControlVBR,
		MaxRateControlLayers:          4,                                       //nolint:mnd
		MaxBitrate:                    100_000_000,                             //nolint:mnd
		MaxQualityLevels:              4,                                       //nolint:mnd
		EncodeInputPictureGranularity: vkvideo.Extent2D{Width: 16, Height: 16}, //nolint:mnd
		SupportedEncodeFeedbackFlags:  EncodeFeedbackBitstreamBufferOffset | EncodeFeedbackBitstreamBytesWritten,
		MaxQuantizationMapExtent:      vkvideo.Extent2D{Width: 256, Height: 256}, //nolint:mnd
		DeltaMapTexelSizes:            []vkvideo.Extent2D{{Width: 16, Height: 16}},
		EmphasisMapTexelSizes:         []vkvideo.Extent2D{{Width: 16, Height: 16}, {Width: 32, Height: 32}},
	}
}

// DefaultProvider returns a provider knowing representative limits for every default profile.
//
//nolint:mnd // capability numbers are representative device limits
func DefaultProvider() *StaticProvider {
	s := NewStaticProvider()

	h264Decode := baseCapabilities(16)
	h264Decode.Decode = &DecodeCapabilities{Flags: DecodeDpbAndOutputCoincide}
	h264Decode.H264Decode = &H264DecodeCapabilities{MaxLevelIdc: 52, FieldOffsetGranularity: vkvideo.Offset2D{X: 0, Y: 16}}
	s.Register(H264DecodeProfile, &h264Decode)
	h264DecodeInterlaced := h264Decode
	s.Register(H264DecodeInterlacedProfile, &h264DecodeInterlaced)

	h265Decode := baseCapabilities(16)
	h265Decode.Decode = &DecodeCapabilities{Flags: DecodeDpbAndOutputCoincide | DecodeDpbAndOutputDistinct}
	h265Decode.H265Decode = &H265DecodeCapabilities{MaxLevelIdc: 153}
	s.Register(H265DecodeProfile, &h265Decode)

	av1Decode := baseCapabilities(8)
	av1Decode.MaxDpbSlots = 9
	av1Decode.MaxActiveReferencePictures = 7
	av1Decode.Decode = &DecodeCapabilities{Flags: DecodeDpbAndOutputCoincide}
	av1Decode.AV1Decode = &AV1DecodeCapabilities{MaxLevel: 15}
	s.Register(AV1DecodeProfile, &av1Decode)
	av1DecodeGrain := av1Decode
	s.Register(AV1DecodeFilmGrainProfile, &av1DecodeGrain)

	h264Encode := baseCapabilities(16)
	h264Encode.Encode = encodeCapabilities()
	h264Encode.H264Encode = &H264EncodeCapabilities{
		Flags:                       H264EncodeDifferentSliceType | H264EncodeBFrameInL0List,
		MaxLevelIdc:                 52,
		MaxSliceCount:               8,
		MaxPPictureL0ReferenceCount: 4,
		MaxBPictureL0ReferenceCount: 4,
		MaxL1ReferenceCount:         2,
		MaxTemporalLayerCount:       4,
		MinQp:                       0,
		MaxQp:                       51,
	}
	s.Register(H264EncodeProfile, &h264Encode)

	h265Encode := baseCapabilities(32)
	h265Encode.Encode = encodeCapabilities()
	h265Encode.H265Encode = &H265EncodeCapabilities{
		Flags:                       H265EncodeDifferentSliceSegmentType | H265EncodeBFrameInL0List | H265EncodeMultipleTilesPerSliceSegment,
		MaxLevelIdc:                 153,
		MaxSliceSegmentCount:        8,
		MaxTiles:                    vkvideo.Extent2D{Width: 4, Height: 4},
		CtbSizes:                    H265CtbSize32 | H265CtbSize64,
		MaxPPictureL0ReferenceCount: 4,
		MaxBPictureL0ReferenceCount: 4,
		MaxL1ReferenceCount:         2,
		MaxSubLayerCount:            4,
		MinQp:                       0,
		MaxQp:                       51,
	}
	s.Register(H265EncodeProfile, &h265Encode)

	av1Encode := baseCapabilities(8)
	av1Encode.MaxDpbSlots = 9
	av1Encode.MaxActiveReferencePictures = 7
	av1Encode.Encode = encodeCapabilities()
	av1Encode.Encode.Flags = EncodeQuantizationDeltaMap
	av1Encode.Encode.EmphasisMapTexelSizes = nil
	av1Encode.AV1Encode = &AV1EncodeCapabilities{
		Flags:                                   AV1EncodePrimaryReferenceCdfOnly,
		MaxLevel:                                15,
		CodedPictureAlignment:                   vkvideo.Extent2D{Width: 8, Height: 8},
		MaxTiles:                                vkvideo.Extent2D{Width: 8, Height: 8},
		SuperblockSizes:                         AV1SuperblockSize64 | AV1SuperblockSize128,
		MaxSingleReferenceCount:                 1,
		SingleReferenceNameMask:                 0x7f,
		MaxUnidirectionalCompoundReferenceCount: 2,
		MaxUnidirectionalCompoundGroup1ReferenceCount: 2,
		UnidirectionalCompoundReferenceNameMask:       0x0f,
		MaxBidirectionalCompoundReferenceCount:        2,
		MaxBidirectionalCompoundGroup1ReferenceCount:  1,
		MaxBidirectionalCompoundGroup2ReferenceCount:  1,
		BidirectionalCompoundReferenceNameMask:        0x7f,
		MaxTemporalLayerCount:                         4,
		MaxSpatialLayerCount:                          1,
		MaxOperatingPoints:                            4,
		MinQIndex:                                     1,
		MaxQIndex:                                     255,
	}
	s.Register(AV1EncodeProfile, &av1Encode)

	return s
}
