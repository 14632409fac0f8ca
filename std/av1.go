package std

type AV1Profile uint32

const (
	AV1ProfileMain         AV1Profile = 0
	AV1ProfileHigh         AV1Profile = 1
	AV1ProfileProfessional AV1Profile = 2
)

type AV1Level uint32

type AV1FrameType uint32

const (
	AV1FrameTypeKey       AV1FrameType = 0
	AV1FrameTypeInter     AV1FrameType = 1
	AV1FrameTypeIntraOnly AV1FrameType = 2
	AV1FrameTypeSwitch    AV1FrameType = 3
)

// AV1ReferenceName indexes the seven named references (LAST_FRAME .. ALTREF_FRAME) minus one.
type AV1ReferenceName uint8

const (
	AV1ReferenceLast AV1ReferenceName = iota
	AV1ReferenceLast2
	AV1ReferenceLast3
	AV1ReferenceGolden
	AV1ReferenceBwdref
	AV1ReferenceAltref2
	AV1ReferenceAltref
)

type AV1SequenceHeaderFlags struct {
	StillPicture              bool
	ReducedStillPictureHeader bool
	Use128x128Superblock      bool
	EnableFilterIntra         bool
	EnableOrderHint           bool
	EnableCdef                bool
	EnableRestoration         bool
	FilmGrainParamsPresent    bool
	TimingInfoPresent         bool
}

type AV1SequenceHeader struct {
	Flags                      AV1SequenceHeaderFlags
	SeqProfile                 AV1Profile
	FrameWidthBitsMinus1       uint8
	FrameHeightBitsMinus1      uint8
	MaxFrameWidthMinus1        uint16
	MaxFrameHeightMinus1       uint16
	OrderHintBitsMinus1        uint8
	SeqForceIntegerMv          uint8
	SeqForceScreenContentTools uint8
}

// SuperblockSize returns the superblock edge length in luma samples.
func (h *AV1SequenceHeader) SuperblockSize() uint32 {
	if h.Flags.Use128x128Superblock {
		return 128 //nolint:mnd
	}
	return 64 //nolint:mnd
}

type AV1OperatingPointInfo struct {
	OperatingPointIdc   uint16
	SeqLevelIdx         uint8
	SeqTier             uint8
	DecoderModelPresent bool
}

type AV1TileInfoFlags struct {
	UniformTileSpacing bool
}

type AV1TileInfo struct {
	Flags               AV1TileInfoFlags
	TileCols            uint8
	TileRows            uint8
	ContextUpdateTileID uint16
	TileSizeBytesMinus1 uint8
}

type AV1DecodePictureInfoFlags struct {
	ErrorResilientMode          bool
	DisableCdfUpdate            bool
	UseSuperres                 bool
	RenderAndFrameSizeDifferent bool
	AllowIntrabc                bool
	ApplyGrain                  bool
	ShowFrame                   bool
}

type AV1DecodePictureInfo struct {
	Flags             AV1DecodePictureInfoFlags
	FrameType         AV1FrameType
	CurrentFrameID    uint32
	OrderHint         uint8
	PrimaryRefFrame   uint8
	RefreshFrameFlags uint8
	TileInfo          *AV1TileInfo
}

type AV1ReferenceInfoFlags struct {
	DisableFrameEndUpdateCdf bool
	SegmentationEnabled      bool
}

type AV1ReferenceInfo struct {
	Flags            AV1ReferenceInfoFlags
	FrameType        AV1FrameType
	RefFrameSignBias uint8
	OrderHint        uint8
	SavedOrderHints  [AV1NumRefFrames]uint8
}

type AV1EncodePictureInfoFlags struct {
	ErrorResilientMode bool
	DisableCdfUpdate   bool
	AllowIntrabc       bool
	ShowFrame          bool
	ShowableFrame      bool
}

type AV1EncodePictureInfo struct {
	Flags             AV1EncodePictureInfoFlags
	FrameType         AV1FrameType
	OrderHint         uint8
	PrimaryRefFrame   uint8
	RefreshFrameFlags uint8
	RefFrameIdx       [AV1RefsPerFrame]int8
	TileInfo          *AV1TileInfo
}
