package coding

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
)

// DecodeVideo validates a decode command recorded in the active coding scope.
func (r *Recorder) DecodeVideo(info DecodeInfo) report.List {
	decode := false
	c, diags := r.command("vkCmdDecodeVideoKHR", &decode)
	if c == nil {
		return diags
	}

	c.requireParameters()
	c.checkBitstream(info.SrcBuffer, info.SrcBufferOffset, info.SrcBufferRange, resource.BufferUsageDecodeSrc, "srcBuffer")

	setup := info.SetupReferenceSlot
	setupKind := slotKind(setup)
	coincide := setup != nil && setup.Picture != nil && *setup.Picture == info.DstPicture
	dstUse := pictureUse{usage: resource.ImageUsageDecodeDst, layout: resource.ImageLayoutDecodeDst}
	if coincide {
		dstUse = pictureUse{usage: resource.ImageUsageDecodeDst | resource.ImageUsageDecodeDpb, layout: resource.ImageLayoutDecodeDpb}
	}
	c.checkPicture(info.DstPicture, dstUse, "dstPictureResource")
	setupValid := c.checkSetup(setup, setupKind, pictureUse{usage: resource.ImageUsageDecodeDpb, layout: resource.ImageLayoutDecodeDpb})
	if setup != nil && setup.Picture != nil {
		c.checkOutputMode(coincide, c.filmGrainApplied(info))
	}
	c.checkReferences(info.ReferenceSlots, slotKinds(info.ReferenceSlots),
		pictureUse{usage: resource.ImageUsageDecodeDpb, layout: resource.ImageLayoutDecodeDpb})

	var reference, ok bool
	switch c.sc.session.Operation() {
	case vkvideo.OperationDecodeH264:
		reference, ok = c.decodeH264(info.H264, &info)
	case vkvideo.OperationDecodeH265:
		reference, ok = c.decodeH265(info.H265, &info)
	case vkvideo.OperationDecodeAV1:
		reference, ok = c.decodeAV1(info.AV1, &info)
	case vkvideo.OperationNone, vkvideo.OperationEncodeH264, vkvideo.OperationEncodeH265, vkvideo.OperationEncodeAV1:
	}
	c.setupEffect(setup, setupKind, setupValid, reference)
	if !ok {
		return c.finish()
	}

	c.checkQueries(info.InlineQuery, false)
	return c.finish()
}

func (c *command) filmGrainApplied(info DecodeInfo) bool {
	return c.sc.session.Operation() == vkvideo.OperationDecodeAV1 &&
		info.AV1 != nil && info.AV1.StdPictureInfo != nil && info.AV1.StdPictureInfo.Flags.ApplyGrain
}

// checkOutputMode checks whether the decode output may coincide with or be distinct from the
// reconstructed picture. With AV1 film grain applied the output must be distinct, and distinct
// output is then allowed even without the distinct capability.
func (c *command) checkOutputMode(coincide, filmGrain bool) {
	flags := c.caps.Decode.Flags
	switch {
	case coincide && filmGrain:
		c.addf(report.ConsistencyError, RuleFilmGrainOutput,
			"dstPictureResource must differ from the reconstructed picture when film grain is applied")
	case coincide && flags&profile.DecodeDpbAndOutputCoincide == 0:
		c.addf(report.UnsupportedError, RuleDpbCoincide,
			"dstPictureResource matches the reconstructed picture but the profile does not support coinciding DPB and output")
	case !coincide && !filmGrain && flags&profile.DecodeDpbAndOutputDistinct == 0:
		c.addf(report.UnsupportedError, RuleDpbDistinct,
			"dstPictureResource differs from the reconstructed picture but the profile does not support distinct DPB and output")
	}
}

// checkSliceOffsets checks that every slice or tile offset lies inside the source buffer range.
func (c *command) checkSliceOffsets(offsets []uint32, srcRange uint64, what string) {
	if len(offsets) == 0 {
		c.addf(report.StructuralError, RuleSliceCount, "%s count must not be zero", what)
		return
	}
	for i, off := range offsets {
		if uint64(off) >= srcRange {
			c.addf(report.RangeError, RuleSliceOffset, "%s[%d] offset %d is not inside srcBufferRange %d", what, i, off, srcRange)
		}
	}
}

// requireReferenceInfo checks that the setup slot and every reference slot carry codec reference info.
func (c *command) requireReferenceInfo(setup *ReferenceSlot, refs []ReferenceSlot, has func(*ReferenceSlot) bool, codec string) {
	if setup != nil && !has(setup) {
		c.addf(report.StructuralError, RuleMissingReferenceInfo, "pSetupReferenceSlot lacks the %s reference info", codec)
	}
	for i := range refs {
		if !has(&refs[i]) {
			c.addf(report.StructuralError, RuleMissingReferenceInfo, "pReferenceSlots[%d] lacks the %s reference info", i, codec)
		}
	}
}
