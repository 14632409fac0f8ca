package std

type H265ProfileIdc uint32

const (
	H265ProfileIdcMain                  H265ProfileIdc = 1
	H265ProfileIdcMain10                H265ProfileIdc = 2
	H265ProfileIdcMainStillPicture      H265ProfileIdc = 3
	H265ProfileIdcFormatRangeExtensions H265ProfileIdc = 4
)

type H265LevelIdc uint32

type H265PictureType uint32

const (
	H265PictureTypeP   H265PictureType = 0
	H265PictureTypeB   H265PictureType = 1
	H265PictureTypeI   H265PictureType = 2
	H265PictureTypeIDR H265PictureType = 3
)

type H265SliceType uint32

const (
	H265SliceTypeB H265SliceType = 0
	H265SliceTypeP H265SliceType = 1
	H265SliceTypeI H265SliceType = 2
)

type H265VideoParameterSet struct {
	VpsVideoParameterSetID uint8
	VpsMaxSubLayersMinus1  uint8
	VpsTemporalIDNesting   bool
	GeneralProfileIdc      H265ProfileIdc
	GeneralLevelIdc        H265LevelIdc
}

type H265SequenceParameterSet struct {
	SpsVideoParameterSetID               uint8
	SpsSeqParameterSetID                 uint8
	SpsMaxSubLayersMinus1                uint8
	GeneralProfileIdc                    H265ProfileIdc
	GeneralLevelIdc                      H265LevelIdc
	ChromaFormatIdc                      uint32
	PicWidthInLumaSamples                uint32
	PicHeightInLumaSamples               uint32
	BitDepthLumaMinus8                   uint8
	BitDepthChromaMinus8                 uint8
	Log2MaxPicOrderCntLsbMinus4          uint8
	Log2MinLumaCodingBlockSizeMinus3     uint8
	Log2DiffMaxMinLumaCodingBlockSize    uint8
	Log2MinLumaTransformBlockSizeMinus2  uint8
	Log2DiffMaxMinLumaTransformBlockSize uint8
	NumShortTermRefPicSets               uint8
	NumLongTermRefPicsSps                uint8
}

// CtbLog2Size returns log2 of the coding tree block size the SPS selects.
func (s *H265SequenceParameterSet) CtbLog2Size() uint32 {
	return uint32(s.Log2MinLumaCodingBlockSizeMinus3) + 3 + uint32(s.Log2DiffMaxMinLumaCodingBlockSize) //nolint:mnd
}

type H265PpsFlags struct {
	DependentSliceSegmentsEnabled bool
	SignDataHiding                bool
	CabacInitPresent              bool
	ConstrainedIntraPred          bool
	TransformSkipEnabled          bool
	CuQpDeltaEnabled              bool
	TilesEnabled                  bool
	EntropyCodingSyncEnabled      bool
	UniformSpacing                bool
	LoopFilterAcrossTilesEnabled  bool
}

type H265PictureParameterSet struct {
	Flags                          H265PpsFlags
	PpsPicParameterSetID           uint8
	PpsSeqParameterSetID           uint8
	SpsVideoParameterSetID         uint8
	NumRefIdxL0DefaultActiveMinus1 uint8
	NumRefIdxL1DefaultActiveMinus1 uint8
	InitQpMinus26                  int8
	NumTileColumnsMinus1           uint8
	NumTileRowsMinus1              uint8
}

type H265DecodePictureInfoFlags struct {
	IrapPic                   bool
	IdrPic                    bool
	IsReference               bool
	ShortTermRefPicSetSpsFlag bool
}

type H265DecodePictureInfo struct {
	Flags                  H265DecodePictureInfoFlags
	SpsVideoParameterSetID uint8
	PpsSeqParameterSetID   uint8
	PpsPicParameterSetID   uint8
	PicOrderCntVal         int32
	RefPicSetStCurrBefore  [8]uint8
	RefPicSetStCurrAfter   [8]uint8
	RefPicSetLtCurr        [8]uint8
}

type H265ReferenceInfoFlags struct {
	UsedForLongTermReference bool
	UnusedForReference       bool
}

// H265ReferenceInfo describes the picture held by one DPB slot. PicType and TemporalID are only
// meaningful for encode.
type H265ReferenceInfo struct {
	Flags          H265ReferenceInfoFlags
	PicType        H265PictureType
	PicOrderCntVal int32
	TemporalID     uint8
}

type H265EncodePictureInfoFlags struct {
	IsReference              bool
	IrapPic                  bool
	UsedForLongTermReference bool
	DiscardablePic           bool
	CrossLayerBla            bool
	PicOutput                bool
	NoOutputOfPriorPics      bool
}

type H265ReferenceListsInfo struct {
	NumRefIdxL0ActiveMinus1 uint8
	NumRefIdxL1ActiveMinus1 uint8
	RefPicList0             [H265MaxNumListRef]uint8
	RefPicList1             [H265MaxNumListRef]uint8
}

type H265EncodePictureInfo struct {
	Flags                  H265EncodePictureInfoFlags
	PicType                H265PictureType
	SpsVideoParameterSetID uint8
	PpsSeqParameterSetID   uint8
	PpsPicParameterSetID   uint8
	PicOrderCntVal         int32
	TemporalID             uint8
	RefLists               *H265ReferenceListsInfo
}

type H265SliceSegmentHeader struct {
	SliceType             H265SliceType
	SliceQpDelta          int8
	DependentSliceSegment bool
}
