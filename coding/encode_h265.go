package coding

import (
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/std"
)

func (c *command) encodeH265(info *H265EncodeInfo, e *EncodeInfo) (reference, ok bool) {
	if info == nil || info.StdPictureInfo == nil {
		c.addf(report.StructuralError, RuleMissingPictureInfo, "H.265 encode picture info is missing")
		return true, false
	}
	pic := info.StdPictureInfo
	caps := c.caps.H265Encode

	switch n := len(info.SliceSegments); {
	case n == 0:
		c.addf(report.StructuralError, RuleSliceCount, "naluSliceSegmentEntryCount must not be zero")
	case uint32(n) > caps.MaxSliceSegmentCount:
		c.addf(report.CapacityError, RuleSliceCount, "%d slice segments exceed maxSliceSegmentCount %d", n, caps.MaxSliceSegmentCount)
	}
	c.checkBlockCount(len(info.SliceSegments), e.SrcPicture.CodedExtent, c.h265CtbSize(pic),
		caps.Flags&profile.H265EncodeRowUnalignedSliceSegment != 0, RuleH265SegmentExtent, "slice segments")
	qps := make([]int32, len(info.SliceSegments))
	var types []std.H265SliceType
	for i, s := range info.SliceSegments {
		qps[i] = s.ConstantQp
		if s.StdSliceSegmentHeader == nil {
			c.addf(report.StructuralError, RuleSliceHeader, "pNaluSliceSegmentEntries[%d].pStdSliceSegmentHeader is missing", i)
			continue
		}
		types = append(types, s.StdSliceSegmentHeader.SliceType)
	}
	checkSliceTypes(c, types, caps.Flags&profile.H265EncodeDifferentSliceSegmentType != 0, "pNaluSliceSegmentEntries")
	c.checkConstantQp(qps, caps.Flags&profile.H265EncodePerSliceSegmentConstantQp != 0, "pNaluSliceSegmentEntries")

	c.h265ParameterSets(pic.SpsVideoParameterSetID, pic.PpsSeqParameterSetID, pic.PpsPicParameterSetID, nil, nil, nil)
	c.h265Tiles(pic, len(info.SliceSegments))
	c.requireReferenceInfo(e.SetupReferenceSlot, e.ReferenceSlots, func(s *ReferenceSlot) bool { return s.H265 != nil }, "H.265")

	idr := pic.PicType == std.H265PictureTypeIDR
	if idr && !pic.Flags.IrapPic {
		c.addf(report.ConsistencyError, RuleIdrFlag, "an IDR picture must be an IRAP picture")
	}
	if idr && len(e.ReferenceSlots) > 0 {
		c.addf(report.ConsistencyError, RuleIntraReferences, "an IDR picture must not use reference pictures, got %d", len(e.ReferenceSlots))
	}

	if uint32(pic.TemporalID) >= caps.MaxSubLayerCount {
		c.addf(report.RangeError, RuleTemporalID, "TemporalId %d is not below maxSubLayerCount %d", pic.TemporalID, caps.MaxSubLayerCount)
	}
	for i, ref := range e.ReferenceSlots {
		if ref.H265 != nil && ref.H265.TemporalID > pic.TemporalID {
			c.addf(report.ConsistencyError, RuleTemporalID, "pReferenceSlots[%d] has TemporalId %d above the picture's %d",
				i, ref.H265.TemporalID, pic.TemporalID)
		}
	}

	if l := pic.RefLists; l != nil && (pic.PicType == std.H265PictureTypeP || pic.PicType == std.H265PictureTypeB) {
		isB := func(s *ReferenceSlot) bool { return s.H265 != nil && s.H265.PicType == std.H265PictureTypeB }
		l0Max := caps.MaxPPictureL0ReferenceCount
		if pic.PicType == std.H265PictureTypeB {
			l0Max = caps.MaxBPictureL0ReferenceCount
		}
		c.checkRefList(refList{
			name: "RefPicList0", entries: l.RefPicList0[:], active: int(l.NumRefIdxL0ActiveMinus1) + 1,
			max: l0Max, bAllowed: caps.Flags&profile.H265EncodeBFrameInL0List != 0,
		}, e.ReferenceSlots, isB)
		if pic.PicType == std.H265PictureTypeB {
			c.checkRefList(refList{
				name: "RefPicList1", entries: l.RefPicList1[:], active: int(l.NumRefIdxL1ActiveMinus1) + 1,
				max: caps.MaxL1ReferenceCount, bAllowed: caps.Flags&profile.H265EncodeBFrameInL1List != 0,
			}, e.ReferenceSlots, isB)
		}
	}
	return pic.Flags.IsReference, true
}

// h265Tiles checks the slice segment to tile mapping the profile supports.
func (c *command) h265Tiles(pic *std.H265EncodePictureInfo, segments int) {
	p := c.sc.params
	if p == nil || segments == 0 {
		return
	}
	var pps std.H265PictureParameterSet
	var found bool
	p.Read(func(v params.View) {
		pps, found = v.H265PPS(pic.SpsVideoParameterSetID, pic.PpsSeqParameterSetID, pic.PpsPicParameterSetID)
	})
	if !found || !pps.Flags.TilesEnabled {
		return
	}
	tiles := (int(pps.NumTileColumnsMinus1) + 1) * (int(pps.NumTileRowsMinus1) + 1)
	c.tiles = uint32(tiles) //nolint:gosec
	flags := c.caps.H265Encode.Flags
	if segments < tiles && flags&profile.H265EncodeMultipleTilesPerSliceSegment == 0 {
		c.addf(report.UnsupportedError, RuleH265Tiles, "%d slice segments cover %d tiles but the profile does not allow multiple tiles per slice segment",
			segments, tiles)
	}
	if segments > tiles && flags&profile.H265EncodeMultipleSliceSegmentsPerTile == 0 {
		c.addf(report.UnsupportedError, RuleH265Tiles, "%d slice segments cover %d tiles but the profile does not allow multiple slice segments per tile",
			segments, tiles)
	}
}

// h265CtbSize returns the CTB size of the picture's SPS, or the largest one the profile supports
// when the SPS is not available.
func (c *command) h265CtbSize(pic *std.H265EncodePictureInfo) uint32 {
	if p := c.sc.params; p != nil {
		if sps, ok := p.H265SPS(pic.SpsVideoParameterSetID, pic.PpsSeqParameterSetID); ok {
			return 1 << sps.CtbLog2Size()
		}
	}
	return c.caps.H265Encode.CtbSizes.MaxSize()
}
