package coding

import (
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

func (c *command) decodeH265(info *H265DecodeInfo, d *DecodeInfo) (reference, ok bool) {
	if info == nil || info.StdPictureInfo == nil {
		c.addf(report.StructuralError, RuleMissingPictureInfo, "H.265 decode picture info is missing")
		return true, false
	}
	pic := info.StdPictureInfo
	c.checkSliceOffsets(info.SliceSegmentOffsets, d.SrcBufferRange, "pSliceSegmentOffsets")
	c.h265ParameterSets(pic.SpsVideoParameterSetID, pic.PpsSeqParameterSetID, pic.PpsPicParameterSetID,
		info.InlineVPS, info.InlineSPS, info.InlinePPS)
	c.requireReferenceInfo(d.SetupReferenceSlot, d.ReferenceSlots, func(s *ReferenceSlot) bool { return s.H265 != nil }, "H.265")

	refs := referenceIndices(d.ReferenceSlots)
	sets := []struct {
		name string
		list []uint8
	}{
		{"RefPicSetStCurrBefore", pic.RefPicSetStCurrBefore[:]},
		{"RefPicSetStCurrAfter", pic.RefPicSetStCurrAfter[:]},
		{"RefPicSetLtCurr", pic.RefPicSetLtCurr[:]},
	}
	for _, set := range sets {
		for i, slot := range set.list {
			if slot == std.NoReferencePicture {
				continue
			}
			if _, found := refs[int32(slot)]; !found {
				c.addf(report.ConsistencyError, RuleH265RefPicSet, "%s[%d] names DPB slot %d which is not a reference slot of the command",
					set.name, i, slot)
			}
		}
	}
	if pic.Flags.IdrPic && len(d.ReferenceSlots) > 0 {
		c.addf(report.ConsistencyError, RuleH265RefPicSet, "IDR picture must not use reference pictures, got %d", len(d.ReferenceSlots))
	}
	return pic.Flags.IsReference, true
}

// h265ParameterSets checks that the VPS, SPS and PPS a picture refers to are available, either
// inline or in the bound parameters object.
func (c *command) h265ParameterSets(vpsID, spsID, ppsID uint8,
	inlineVPS *std.H265VideoParameterSet, inlineSPS *std.H265SequenceParameterSet, inlinePPS *std.H265PictureParameterSet,
) {
	if (inlineVPS != nil || inlineSPS != nil || inlinePPS != nil) && !c.sc.session.HasFlags(session.CreateInlineSessionParameters) {
		c.addf(report.ConsistencyError, RuleInlineParameters, "inline parameter sets require a session created with inline session parameters")
	}
	if inlineVPS != nil && inlineVPS.VpsVideoParameterSetID != vpsID {
		c.addf(report.ConsistencyError, RuleInlineMismatch, "inline VPS id %d differs from the picture's VPS id %d",
			inlineVPS.VpsVideoParameterSetID, vpsID)
	}
	if inlineSPS != nil && (inlineSPS.SpsVideoParameterSetID != vpsID || inlineSPS.SpsSeqParameterSetID != spsID) {
		c.addf(report.ConsistencyError, RuleInlineMismatch, "inline SPS (%d,%d) differs from the picture's (%d,%d)",
			inlineSPS.SpsVideoParameterSetID, inlineSPS.SpsSeqParameterSetID, vpsID, spsID)
	}
	if inlinePPS != nil && (inlinePPS.SpsVideoParameterSetID != vpsID || inlinePPS.PpsSeqParameterSetID != spsID ||
		inlinePPS.PpsPicParameterSetID != ppsID) {
		c.addf(report.ConsistencyError, RuleInlineMismatch, "inline PPS (%d,%d,%d) differs from the picture's (%d,%d,%d)",
			inlinePPS.SpsVideoParameterSetID, inlinePPS.PpsSeqParameterSetID, inlinePPS.PpsPicParameterSetID, vpsID, spsID, ppsID)
	}
	needVPS, needSPS, needPPS := inlineVPS == nil, inlineSPS == nil, inlinePPS == nil
	if !needVPS && !needSPS && !needPPS {
		return
	}
	p := c.sc.params
	if p == nil {
		c.addf(report.StructuralError, RuleParametersMissing, "no video session parameters are bound to supply VPS %d / SPS %d / PPS %d",
			vpsID, spsID, ppsID)
		return
	}
	p.Read(func(v params.View) {
		if _, ok := v.H265VPS(vpsID); needVPS && !ok {
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "H.265 VPS %d is not in the bound parameters", vpsID)
		}
		if _, ok := v.H265SPS(vpsID, spsID); needSPS && !ok {
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "H.265 SPS (%d,%d) is not in the bound parameters", vpsID, spsID)
		}
		if _, ok := v.H265PPS(vpsID, spsID, ppsID); needPPS && !ok {
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "H.265 PPS (%d,%d,%d) is not in the bound parameters", vpsID, spsID, ppsID)
		}
	})
}
