package coding

import (
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/std"
)

const h264MacroblockSize = 16

func (c *command) encodeH264(info *H264EncodeInfo, e *EncodeInfo) (reference, ok bool) {
	if info == nil || info.StdPictureInfo == nil {
		c.addf(report.StructuralError, RuleMissingPictureInfo, "H.264 encode picture info is missing")
		return true, false
	}
	pic := info.StdPictureInfo
	caps := c.caps.H264Encode

	switch n := len(info.Slices); {
	case n == 0:
		c.addf(report.StructuralError, RuleSliceCount, "naluSliceEntryCount must not be zero")
	case uint32(n) > caps.MaxSliceCount:
		c.addf(report.CapacityError, RuleSliceCount, "%d slices exceed maxSliceCount %d", n, caps.MaxSliceCount)
	}
	c.checkBlockCount(len(info.Slices), e.SrcPicture.CodedExtent, h264MacroblockSize,
		caps.Flags&profile.H264EncodeRowUnalignedSlice != 0, RuleH264SliceExtent, "slices")
	qps := make([]int32, len(info.Slices))
	var types []std.H264SliceType
	for i, s := range info.Slices {
		qps[i] = s.ConstantQp
		if s.StdSliceHeader == nil {
			c.addf(report.StructuralError, RuleSliceHeader, "pNaluSliceEntries[%d].pStdSliceHeader is missing", i)
			continue
		}
		types = append(types, s.StdSliceHeader.SliceType)
	}
	checkSliceTypes(c, types, caps.Flags&profile.H264EncodeDifferentSliceType != 0, "pNaluSliceEntries")
	c.checkConstantQp(qps, caps.Flags&profile.H264EncodePerSliceConstantQp != 0, "pNaluSliceEntries")
	if info.GeneratePrefixNalu && caps.Flags&profile.H264EncodeGeneratePrefixNalu == 0 {
		c.addf(report.UnsupportedError, RulePrefixNalu, "generatePrefixNalu is set but the profile cannot generate prefix NAL units")
	}

	c.h264ParameterSets(pic.SeqParameterSetID, pic.PicParameterSetID, nil, nil)
	c.requireReferenceInfo(e.SetupReferenceSlot, e.ReferenceSlots, func(s *ReferenceSlot) bool { return s.H264 != nil }, "H.264")

	idr := pic.PrimaryPicType == std.H264PictureTypeIDR
	if idr != pic.Flags.IdrPic {
		c.addf(report.ConsistencyError, RuleIdrFlag, "primary_pic_type %d disagrees with the IDR flag %t", pic.PrimaryPicType, pic.Flags.IdrPic)
	}
	if idr && len(e.ReferenceSlots) > 0 {
		c.addf(report.ConsistencyError, RuleIntraReferences, "an IDR picture must not use reference pictures, got %d", len(e.ReferenceSlots))
	}

	if l := pic.RefLists; l != nil && (pic.PrimaryPicType == std.H264PictureTypeP || pic.PrimaryPicType == std.H264PictureTypeB) {
		isB := func(s *ReferenceSlot) bool { return s.H264 != nil && s.H264.PrimaryPicType == std.H264PictureTypeB }
		l0Max := caps.MaxPPictureL0ReferenceCount
		if pic.PrimaryPicType == std.H264PictureTypeB {
			l0Max = caps.MaxBPictureL0ReferenceCount
		}
		c.checkRefList(refList{
			name: "RefPicList0", entries: l.RefPicList0[:], active: int(l.NumRefIdxL0ActiveMinus1) + 1,
			max: l0Max, bAllowed: caps.Flags&profile.H264EncodeBFrameInL0List != 0,
		}, e.ReferenceSlots, isB)
		if pic.PrimaryPicType == std.H264PictureTypeB {
			c.checkRefList(refList{
				name: "RefPicList1", entries: l.RefPicList1[:], active: int(l.NumRefIdxL1ActiveMinus1) + 1,
				max: caps.MaxL1ReferenceCount, bAllowed: caps.Flags&profile.H264EncodeBFrameInL1List != 0,
			}, e.ReferenceSlots, isB)
		}
	}
	return pic.Flags.IsReference, true
}
