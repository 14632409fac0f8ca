package coding

import (
	"github.com/ugparu/vkvideo/dpb"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

func (c *command) decodeH264(info *H264DecodeInfo, d *DecodeInfo) (reference, ok bool) {
	if info == nil || info.StdPictureInfo == nil {
		c.addf(report.StructuralError, RuleMissingPictureInfo, "H.264 decode picture info is missing")
		return true, false
	}
	pic := info.StdPictureInfo
	c.checkSliceOffsets(info.SliceOffsets, d.SrcBufferRange, "pSliceOffsets")
	c.h264ParameterSets(pic.SeqParameterSetID, pic.PicParameterSetID, info.InlineSPS, info.InlinePPS)
	c.requireReferenceInfo(d.SetupReferenceSlot, d.ReferenceSlots, func(s *ReferenceSlot) bool { return s.H264 != nil }, "H.264")

	interlaced := c.sc.session.Profile().Interlaced()
	picKind := dpb.Frame
	if pic.Flags.FieldPic {
		picKind = dpb.TopField
		if pic.Flags.BottomField {
			picKind = dpb.BottomField
		}
		if !interlaced {
			c.addf(report.ConsistencyError, RuleFieldUnsupported, "field picture decoded with a progressive profile")
		}
	}
	if s := d.SetupReferenceSlot; s != nil && s.H264 != nil {
		if k := h264Kind(s.H264); k != picKind {
			c.addf(report.ConsistencyError, RuleFieldMismatch,
				"pSetupReferenceSlot describes a %v but the decoded picture is a %v", k, picKind)
		}
	}
	for i, ref := range d.ReferenceSlots {
		if ref.H264 == nil {
			continue
		}
		k := h264Kind(ref.H264)
		switch {
		case k != dpb.Frame && !interlaced:
			c.addf(report.ConsistencyError, RuleFieldUnsupported,
				"pReferenceSlots[%d] references a %v with a progressive profile", i, k)
		case !pic.Flags.FieldPic && (k == dpb.TopField || k == dpb.BottomField):
			c.addf(report.ConsistencyError, RuleFieldMismatch,
				"pReferenceSlots[%d] references a single %v field from a frame picture", i, k)
		}
	}
	return pic.Flags.IsReference, true
}

// h264ParameterSets checks that the SPS and PPS a picture refers to are available, either inline
// or in the bound parameters object.
func (c *command) h264ParameterSets(spsID, ppsID uint8, inlineSPS *std.H264SequenceParameterSet, inlinePPS *std.H264PictureParameterSet) {
	if (inlineSPS != nil || inlinePPS != nil) && !c.sc.session.HasFlags(session.CreateInlineSessionParameters) {
		c.addf(report.ConsistencyError, RuleInlineParameters, "inline parameter sets require a session created with inline session parameters")
	}
	if inlineSPS != nil && inlineSPS.SeqParameterSetID != spsID {
		c.addf(report.ConsistencyError, RuleInlineMismatch, "inline SPS id %d differs from the picture's SPS id %d", inlineSPS.SeqParameterSetID, spsID)
	}
	if inlinePPS != nil && (inlinePPS.SeqParameterSetID != spsID || inlinePPS.PicParameterSetID != ppsID) {
		c.addf(report.ConsistencyError, RuleInlineMismatch, "inline PPS (%d,%d) differs from the picture's (%d,%d)",
			inlinePPS.SeqParameterSetID, inlinePPS.PicParameterSetID, spsID, ppsID)
	}
	needSPS, needPPS := inlineSPS == nil, inlinePPS == nil
	if !needSPS && !needPPS {
		return
	}
	p := c.sc.params
	if p == nil {
		c.addf(report.StructuralError, RuleParametersMissing, "no video session parameters are bound to supply SPS %d / PPS %d", spsID, ppsID)
		return
	}
	p.Read(func(v params.View) {
		if _, ok := v.H264SPS(spsID); needSPS && !ok {
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "H.264 SPS %d is not in the bound parameters", spsID)
		}
		if _, ok := v.H264PPS(spsID, ppsID); needPPS && !ok {
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "H.264 PPS (%d,%d) is not in the bound parameters", spsID, ppsID)
		}
	})
}
