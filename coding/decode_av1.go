package coding

import (
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/session"
)

func (c *command) decodeAV1(info *AV1DecodeInfo, d *DecodeInfo) (reference, ok bool) {
	if info == nil || info.StdPictureInfo == nil {
		c.addf(report.StructuralError, RuleMissingPictureInfo, "AV1 decode picture info is missing")
		return true, false
	}
	pic := info.StdPictureInfo
	if pic.Flags.ApplyGrain && !c.sc.session.Profile().FilmGrainSupport {
		c.addf(report.UnsupportedError, RuleAV1FilmGrain, "film grain is applied but the profile does not enable film grain support")
	}
	c.requireReferenceInfo(d.SetupReferenceSlot, d.ReferenceSlots, func(s *ReferenceSlot) bool { return s.AV1 != nil }, "AV1")

	if uint64(info.FrameHeaderOffset) >= d.SrcBufferRange {
		c.addf(report.RangeError, RuleAV1FrameHeaderOffset, "frameHeaderOffset %d is not inside srcBufferRange %d",
			info.FrameHeaderOffset, d.SrcBufferRange)
	}
	switch {
	case len(info.TileOffsets) == 0 || len(info.TileOffsets) != len(info.TileSizes):
		c.addf(report.StructuralError, RuleAV1TileCount, "%d tile offsets and %d tile sizes must be equal and non-zero",
			len(info.TileOffsets), len(info.TileSizes))
	default:
		for i := range info.TileOffsets {
			if end := uint64(info.TileOffsets[i]) + uint64(info.TileSizes[i]); end > d.SrcBufferRange {
				c.addf(report.RangeError, RuleAV1TileOffset, "tile %d ends at %d beyond srcBufferRange %d", i, end, d.SrcBufferRange)
			}
		}
		if ti := pic.TileInfo; ti != nil && int(ti.TileCols)*int(ti.TileRows) != len(info.TileOffsets) {
			c.addf(report.ConsistencyError, RuleAV1TileCount, "%d tiles given for a %dx%d tile layout",
				len(info.TileOffsets), ti.TileCols, ti.TileRows)
		}
	}

	c.av1SequenceHeader(info.InlineSequenceHeader != nil)
	if info.InlineSequenceHeader != nil && !c.sc.session.HasFlags(session.CreateInlineSessionParameters) {
		c.addf(report.ConsistencyError, RuleInlineParameters, "an inline sequence header requires a session created with inline session parameters")
	}

	c.checkReferenceNames(info.ReferenceNameSlotIndices[:], d.ReferenceSlots)
	return pic.RefreshFrameFlags != 0, true
}

// av1SequenceHeader checks that a sequence header is available when none is supplied inline.
func (c *command) av1SequenceHeader(inline bool) {
	if inline {
		return
	}
	p := c.sc.params
	if p == nil {
		c.addf(report.StructuralError, RuleParametersMissing, "no video session parameters are bound to supply the AV1 sequence header")
		return
	}
	p.Read(func(v params.View) {
		if _, ok := v.AV1SequenceHeader(); !ok {
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "the bound parameters hold no AV1 sequence header")
		}
	})
}

// checkReferenceNames checks that the reference name table and the reference slot list name the
// same DPB slots. It returns the mask of used reference names.
func (c *command) checkReferenceNames(names []int32, refs []ReferenceSlot) (used uint32, count int) {
	slots := referenceIndices(refs)
	named := make(map[int32]bool)
	for i, slot := range names {
		if slot < 0 {
			continue
		}
		used |= 1 << i
		count++
		named[slot] = true
		if _, ok := slots[slot]; !ok {
			c.addf(report.ConsistencyError, RuleAV1ReferenceNames,
				"referenceNameSlotIndices[%d] names DPB slot %d which is not a reference slot of the command", i, slot)
		}
	}
	for i, ref := range refs {
		if !named[ref.SlotIndex] {
			c.addf(report.ConsistencyError, RuleAV1ReferenceNames,
				"pReferenceSlots[%d] (slot %d) is not named by referenceNameSlotIndices", i, ref.SlotIndex)
		}
	}
	return
}
