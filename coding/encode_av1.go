package coding

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/std"
)

func (c *command) encodeAV1(info *AV1EncodeInfo, e *EncodeInfo) (reference, ok bool) {
	if info == nil || info.StdPictureInfo == nil {
		c.addf(report.StructuralError, RuleMissingPictureInfo, "AV1 encode picture info is missing")
		return true, false
	}
	pic := info.StdPictureInfo
	caps := c.caps.AV1Encode

	c.requireReferenceInfo(e.SetupReferenceSlot, e.ReferenceSlots, func(s *ReferenceSlot) bool { return s.AV1 != nil }, "AV1")
	mask, count := c.checkReferenceNames(info.ReferenceNameSlotIndices[:], e.ReferenceSlots)
	c.av1PredictionMode(info.PredictionMode, pic.FrameType, mask, count)

	c.checkConstantQp([]int32{int32(info.ConstantQIndex)}, true, "constantQIndex") //nolint:gosec
	if info.PrimaryReferenceCdfOnly && caps.Flags&profile.AV1EncodePrimaryReferenceCdfOnly == 0 {
		c.addf(report.UnsupportedError, RuleAV1CapabilityFlag, "primaryReferenceCdfOnly is set but not supported by the profile")
	}
	if info.GenerateObuExtensionHeader && caps.Flags&profile.AV1EncodeGenerateObuExtensionHeader == 0 {
		c.addf(report.UnsupportedError, RuleAV1CapabilityFlag, "generateObuExtensionHeader is set but not supported by the profile")
	}
	if ti := pic.TileInfo; ti != nil {
		c.tiles = uint32(ti.TileCols) * uint32(ti.TileRows)
	}
	if ti := pic.TileInfo; ti != nil && (uint32(ti.TileCols) > caps.MaxTiles.Width || uint32(ti.TileRows) > caps.MaxTiles.Height) {
		c.addf(report.RangeError, RuleAV1TileCount, "%dx%d tiles exceed maxTiles %v", ti.TileCols, ti.TileRows, caps.MaxTiles)
	}

	if p := c.sc.params; p != nil {
		var hdr std.AV1SequenceHeader
		var found bool
		p.Read(func(v params.View) { hdr, found = v.AV1SequenceHeader() })
		switch {
		case !found:
			c.addf(report.ConsistencyError, RuleMissingParameterSet, "the bound parameters hold no AV1 sequence header")
		case !superblockSupported(caps.SuperblockSizes, hdr.SuperblockSize()):
			c.addf(report.UnsupportedError, RuleAV1Superblock, "superblock size %d is not supported by the profile", hdr.SuperblockSize())
		}
		if ti := pic.TileInfo; found && ti != nil {
			sb := hdr.SuperblockSize()
			grid := e.SrcPicture.CodedExtent.DivRoundUp(vkvideo.Extent2D{Width: sb, Height: sb})
			if uint32(ti.TileCols) > grid.Width || uint32(ti.TileRows) > grid.Height {
				c.addf(report.RangeError, RuleAV1TileExtent, "%dx%d tiles exceed the %v grid of %dx%d superblocks of the %v source picture",
					ti.TileCols, ti.TileRows, grid, sb, sb, e.SrcPicture.CodedExtent)
			}
		}
	}
	return pic.RefreshFrameFlags != 0, true
}

// av1PredictionMode checks the named references against the limits of the prediction mode.
func (c *command) av1PredictionMode(mode AV1PredictionMode, frame std.AV1FrameType, mask uint32, count int) {
	caps := c.caps.AV1Encode
	intraFrame := frame == std.AV1FrameTypeKey || frame == std.AV1FrameTypeIntraOnly
	var maxCount, allowed uint32
	switch mode {
	case AV1PredictionIntraOnly:
		if count > 0 {
			c.addf(report.ConsistencyError, RuleAV1PredictionMode, "intra-only prediction must not name references, got %d", count)
		}
		return
	case AV1PredictionSingleReference:
		maxCount, allowed = caps.MaxSingleReferenceCount, caps.SingleReferenceNameMask
	case AV1PredictionUnidirectionalCompound:
		maxCount, allowed = caps.MaxUnidirectionalCompoundReferenceCount, caps.UnidirectionalCompoundReferenceNameMask
	case AV1PredictionBidirectionalCompound:
		maxCount, allowed = caps.MaxBidirectionalCompoundReferenceCount, caps.BidirectionalCompoundReferenceNameMask
	default:
		c.addf(report.RangeError, RuleAV1PredictionMode, "prediction mode %d is not valid", uint32(mode))
		return
	}
	if intraFrame {
		c.addf(report.ConsistencyError, RuleAV1PredictionMode, "%v prediction cannot be used for an intra frame", mode)
	}
	if maxCount == 0 {
		c.addf(report.UnsupportedError, RuleAV1PredictionMode, "%v prediction is not supported by the profile", mode)
		return
	}
	if uint32(count) > maxCount { //nolint:gosec
		c.addf(report.CapacityError, RuleAV1ReferenceCount, "%d named references exceed %d for %v prediction", count, maxCount, mode)
	}
	if extra := mask &^ allowed; extra != 0 {
		c.addf(report.UnsupportedError, RuleAV1ReferenceNameMask, "reference names %#x are not allowed for %v prediction", extra, mode)
	}
}

func superblockSupported(sizes profile.AV1SuperblockSizeFlags, size uint32) bool {
	switch size {
	case 64: //nolint:mnd
		return sizes&profile.AV1SuperblockSize64 != 0
	case 128: //nolint:mnd
		return sizes&profile.AV1SuperblockSize128 != 0
	}
	return false
}
