package std

type H264ProfileIdc uint32

const (
	H264ProfileIdcBaseline          H264ProfileIdc = 66
	H264ProfileIdcMain              H264ProfileIdc = 77
	H264ProfileIdcHigh              H264ProfileIdc = 100
	H264ProfileIdcHigh444Predictive H264ProfileIdc = 244
)

type H264LevelIdc uint32

type H264PictureType uint32

const (
	H264PictureTypeP   H264PictureType = 0
	H264PictureTypeB   H264PictureType = 1
	H264PictureTypeI   H264PictureType = 2
	H264PictureTypeIDR H264PictureType = 5
)

type H264SliceType uint32

const (
	H264SliceTypeP H264SliceType = 0
	H264SliceTypeB H264SliceType = 1
	H264SliceTypeI H264SliceType = 2
)

type H264SpsFlags struct {
	FrameMbsOnly                bool
	MbAdaptiveFrameField        bool
	Direct8x8Inference          bool
	FrameCropping               bool
	SeparateColourPlane         bool
	QpprimeYZeroTransformBypass bool
	VuiParametersPresent        bool
}

type H264SequenceParameterSet struct {
	Flags                       H264SpsFlags
	ProfileIdc                  H264ProfileIdc
	LevelIdc                    H264LevelIdc
	ChromaFormatIdc             uint32
	SeqParameterSetID           uint8
	BitDepthLumaMinus8          uint8
	BitDepthChromaMinus8        uint8
	Log2MaxFrameNumMinus4       uint8
	PicOrderCntType             uint8
	Log2MaxPicOrderCntLsbMinus4 uint8
	MaxNumRefFrames             uint8
	PicWidthInMbsMinus1         uint32
	PicHeightInMapUnitsMinus1   uint32
	FrameCropLeftOffset         uint32
	FrameCropRightOffset        uint32
	FrameCropTopOffset          uint32
	FrameCropBottomOffset       uint32
}

type H264PpsFlags struct {
	Transform8x8Mode                  bool
	RedundantPicCntPresent            bool
	ConstrainedIntraPred              bool
	DeblockingFilterControlPresent    bool
	WeightedPred                      bool
	BottomFieldPicOrderInFramePresent bool
	EntropyCodingMode                 bool
}

type H264PictureParameterSet struct {
	Flags                          H264PpsFlags
	SeqParameterSetID              uint8
	PicParameterSetID              uint8
	NumRefIdxL0DefaultActiveMinus1 uint8
	NumRefIdxL1DefaultActiveMinus1 uint8
	WeightedBipredIdc              uint8
	PicInitQpMinus26               int8
	PicInitQsMinus26               int8
	ChromaQpIndexOffset            int8
	SecondChromaQpIndexOffset      int8
}

type H264DecodePictureInfoFlags struct {
	FieldPic               bool
	IsIntra                bool
	IdrPic                 bool
	BottomField            bool
	IsReference            bool
	ComplementaryFieldPair bool
}

type H264DecodePictureInfo struct {
	Flags             H264DecodePictureInfoFlags
	SeqParameterSetID uint8
	PicParameterSetID uint8
	FrameNum          uint16
	IdrPicID          uint16
	PicOrderCnt       [2]int32
}

type H264ReferenceInfoFlags struct {
	TopField                 bool
	BottomField              bool
	UsedForLongTermReference bool
	IsNonExisting            bool
}

// H264ReferenceInfo describes the picture held by one DPB slot. PrimaryPicType is only
// meaningful for encode.
type H264ReferenceInfo struct {
	Flags          H264ReferenceInfoFlags
	PrimaryPicType H264PictureType
	FrameNum       uint32
	PicOrderCnt    [2]int32
	LongTermPicNum uint16
}

type H264EncodePictureInfoFlags struct {
	IdrPic                    bool
	IsReference               bool
	NoOutputOfPriorPics       bool
	LongTermReference         bool
	AdaptiveRefPicMarkingMode bool
}

type H264ReferenceListsInfo struct {
	NumRefIdxL0ActiveMinus1 uint8
	NumRefIdxL1ActiveMinus1 uint8
	RefPicList0             [H264MaxNumListRef]uint8
	RefPicList1             [H264MaxNumListRef]uint8
}

type H264EncodePictureInfo struct {
	Flags             H264EncodePictureInfoFlags
	SeqParameterSetID uint8
	PicParameterSetID uint8
	IdrPicID          uint16
	PrimaryPicType    H264PictureType
	FrameNum          uint32
	PicOrderCnt       int32
	RefLists          *H264ReferenceListsInfo
}

type H264SliceHeader struct {
	SliceType                  H264SliceType
	DisableDeblockingFilterIdc uint32
	SliceQpDelta               int8
}
