package coding

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

// EncodeVideo validates an encode command recorded in the active coding scope.
func (r *Recorder) EncodeVideo(info EncodeInfo) report.List {
	encode := true
	c, diags := r.command("vkCmdEncodeVideoKHR", &encode)
	if c == nil {
		return diags
	}

	c.requireParameters()
	c.checkBitstream(info.DstBuffer, info.DstBufferOffset, info.DstBufferRange, resource.BufferUsageEncodeDst, "dstBuffer")
	c.checkPicture(info.SrcPicture, pictureUse{usage: resource.ImageUsageEncodeSrc, layout: resource.ImageLayoutEncodeSrc},
		"srcPictureResource")

	dpbUse := pictureUse{usage: resource.ImageUsageEncodeDpb, layout: resource.ImageLayoutEncodeDpb}
	setup := info.SetupReferenceSlot
	setupKind := slotKind(setup)
	setupValid := c.checkSetup(setup, setupKind, dpbUse)
	c.checkReferences(info.ReferenceSlots, slotKinds(info.ReferenceSlots), dpbUse)

	if info.PrecedingExternallyEncodedBytes > 0 && c.caps.Encode.Flags&profile.EncodePrecedingExternallyEncodedBytes == 0 {
		c.addf(report.UnsupportedError, RulePrecedingBytes,
			"precedingExternallyEncodedBytes is %d but the profile does not support externally encoded bytes",
			info.PrecedingExternallyEncodedBytes)
	}
	c.checkQuantizationMap(info)

	var reference, ok bool
	switch c.sc.session.Operation() {
	case vkvideo.OperationEncodeH264:
		reference, ok = c.encodeH264(info.H264, &info)
	case vkvideo.OperationEncodeH265:
		reference, ok = c.encodeH265(info.H265, &info)
	case vkvideo.OperationEncodeAV1:
		reference, ok = c.encodeAV1(info.AV1, &info)
	case vkvideo.OperationNone, vkvideo.OperationDecodeH264, vkvideo.OperationDecodeH265, vkvideo.OperationDecodeAV1:
	}
	c.setupEffect(setup, setupKind, setupValid, reference)
	if !ok {
		return c.finish()
	}

	c.checkQueries(info.InlineQuery, true)
	return c.finish()
}

// checkQuantizationMap validates the quantization map requested by an encode command against the
// session, the bound parameters and the profile.
func (c *command) checkQuantizationMap(info EncodeInfo) {
	delta := info.Flags&EncodeWithQuantizationDeltaMap != 0
	emphasis := info.Flags&EncodeWithEmphasisMap != 0
	if !delta && !emphasis {
		return
	}
	if delta && emphasis {
		c.addf(report.ConsistencyError, RuleQuantizationMapFlags, "a quantization delta map and an emphasis map cannot be used together")
		return
	}

	kind, sessionFlag, capFlag := params.QuantizationMapDelta, session.CreateAllowEncodeQuantizationDeltaMap, profile.EncodeQuantizationDeltaMap
	mapUsage := resource.ImageUsageQuantizationDeltaMap
	if emphasis {
		kind, sessionFlag, capFlag = params.QuantizationMapEmphasis, session.CreateAllowEncodeEmphasisMap, profile.EncodeEmphasisMap
		mapUsage = resource.ImageUsageEmphasisMap
		if m := c.sc.rateControl.Mode; m == profile.RateControlDefault || m == profile.RateControlDisabled {
			c.addf(report.ConsistencyError, RuleEmphasisMapRateControl, "an emphasis map needs CBR or VBR rate control, the mode is %v", m)
		}
	}
	if c.caps.Encode.Flags&capFlag == 0 {
		c.addf(report.UnsupportedError, RuleQuantizationMapFlags, "the profile does not support %v", kindName(kind))
	}
	if !c.sc.session.HasFlags(sessionFlag) {
		c.addf(report.ConsistencyError, RuleQuantizationMapSession, "the video session was not created to allow %v", kindName(kind))
	}

	var texel vkvideo.Extent2D
	if p := c.sc.params; p != nil {
		qm := p.QuantizationMap()
		if qm.Kind != kind {
			c.addf(report.ConsistencyError, RuleQuantizationMapParams,
				"the bound parameters were not created compatible with %v", kindName(kind))
		}
		texel = qm.TexelSize
	}

	m := info.QuantizationMap
	if m == nil {
		c.addf(report.StructuralError, RuleQuantizationMapMissing, "%v requested without a quantization map", kindName(kind))
		return
	}
	view, ok := c.r.resources.ImageView(m.ImageView)
	if !ok {
		c.addf(report.StructuralError, RuleQuantizationMapMissing, "quantizationMap %v is not a live image view", m.ImageView)
		return
	}
	if view.Usage&mapUsage == 0 {
		c.addf(report.ConsistencyError, RuleQuantizationMapUsage, "quantizationMap usage %#x lacks %#x", uint32(view.Usage), uint32(mapUsage))
	}
	if !texel.IsZero() && view.TexelSize != texel {
		c.addf(report.ConsistencyError, RuleQuantizationMapTexel,
			"quantizationMap texel size %v differs from the parameters' texel size %v", view.TexelSize, texel)
	}
	if texel.IsZero() {
		texel = view.TexelSize
	}
	if texel.IsZero() {
		return
	}
	need := info.SrcPicture.CodedExtent.DivRoundUp(texel)
	if !m.Extent.AtLeast(need) || !m.Extent.Within(c.caps.Encode.MaxQuantizationMapExtent) {
		c.addf(report.RangeError, RuleQuantizationMapExtent, "quantizationMapExtent %v is outside [%v, %v]",
			m.Extent, need, c.caps.Encode.MaxQuantizationMapExtent)
	}
}

func kindName(k params.QuantizationMapKind) string {
	if k == params.QuantizationMapEmphasis {
		return "an emphasis map"
	}
	return "a quantization delta map"
}

// checkConstantQp validates per-slice constant QP values against the scope's rate control mode.
// Constant QP is only meaningful with rate control disabled, where it must lie in the profile range.
func (c *command) checkConstantQp(qps []int32, perSlice bool, what string) {
	limits, _ := qpLimitsFor(c.caps, c.sc.session.Operation())
	if c.sc.rateControl.Mode != profile.RateControlDisabled {
		for i, qp := range qps {
			if qp != 0 {
				c.addf(report.ConsistencyError, RuleConstantQpRateControl,
					"%s[%d] constant %s %d must be zero unless rate control is disabled", what, i, limits.name, qp)
			}
		}
		return
	}
	for i, qp := range qps {
		if qp < limits.min || qp > limits.max {
			c.addf(report.RangeError, RuleConstantQp, "%s[%d] constant %s %d is outside [%d, %d]",
				what, i, limits.name, qp, limits.min, limits.max)
		}
		if !perSlice && i > 0 && qp != qps[0] {
			c.addf(report.UnsupportedError, RuleConstantQpUniform,
				"%s[%d] constant %s %d differs from %d but the profile requires the same value for every slice",
				what, i, limits.name, qp, qps[0])
		}
	}
}

// checkBlockCount checks a slice, slice segment or tile count against the coding blocks of the
// source picture. Unless slices may start mid-row, each one needs a row of blocks of its own.
func (c *command) checkBlockCount(count int, extent vkvideo.Extent2D, block uint32, rowUnaligned bool, rule, what string) {
	if count == 0 || block == 0 {
		return
	}
	grid := extent.DivRoundUp(vkvideo.Extent2D{Width: block, Height: block})
	limit, unit := uint64(grid.Height), "rows"
	if rowUnaligned {
		limit, unit = uint64(grid.Width)*uint64(grid.Height), "blocks"
	}
	if uint64(count) > limit {
		c.addf(report.RangeError, rule, "%d %s exceed the %d %dx%d coding block %s of the %v source picture",
			count, what, limit, block, block, unit, extent)
	}
}

// refList is one reference picture list of an H.264 or H.265 encode command.
type refList struct {
	name     string
	entries  []uint8
	active   int
	max      uint32
	bAllowed bool
}

// checkRefList checks that the active entries of a reference list name reference slots of the
// command. isB reports whether the picture held by a slot is a B picture.
func (c *command) checkRefList(l refList, refs []ReferenceSlot, isB func(*ReferenceSlot) bool) {
	if uint32(l.active) > l.max { //nolint:gosec
		c.addf(report.CapacityError, RuleRefListCount, "%s has %d active entries, the profile allows %d", l.name, l.active, l.max)
	}
	idx := referenceIndices(refs)
	for i := 0; i < l.active && i < len(l.entries); i++ {
		slot := l.entries[i]
		if slot == std.NoReferencePicture {
			continue
		}
		j, ok := idx[int32(slot)]
		if !ok {
			c.addf(report.ConsistencyError, RuleRefListEntry, "%s[%d] names DPB slot %d which is not a reference slot of the command",
				l.name, i, slot)
			continue
		}
		if !l.bAllowed && isB(&refs[j]) {
			c.addf(report.UnsupportedError, RuleBFrameInList, "%s[%d] names a B picture but the profile does not allow B pictures in %s",
				l.name, i, l.name)
		}
	}
}

// checkSliceTypes reports slices of differing types when the profile does not allow them.
func checkSliceTypes[T comparable](c *command, types []T, allowed bool, what string) {
	if allowed {
		return
	}
	for i := 1; i < len(types); i++ {
		if types[i] != types[0] {
			c.addf(report.UnsupportedError, RuleSliceType, "%s[%d] has a different slice type than %s[0]", what, i, what)
			return
		}
	}
}
