package coding

import (
	"fmt"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/dpb"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
	"github.com/ugparu/vkvideo/utils/logger"
)

// command accumulates the diagnostics and deferred steps of one recorded command.
type command struct {
	r     *Recorder
	sc    *scope
	name  string
	caps  *profile.Capabilities
	objs  []vkvideo.Handle
	diags report.List
	steps []dpb.Step
	uses  dpb.UseCounter
	// tiles is the number of tiles an encode command splits its picture into, zero if untiled.
	tiles uint32
}

func (c *command) addf(kind report.Kind, rule, format string, args ...any) {
	c.diags.Addf(kind, rule, c.objs, "%s: %s", c.name, fmt.Sprintf(format, args...))
}

// finish queues the deferred steps for the session and returns the diagnostics.
func (c *command) finish() report.List {
	if len(c.steps) > 0 {
		c.r.enqueue(c.sc.session, c.steps)
	}
	if len(c.diags) > 0 {
		logger.Debugf(c.r, "%s recorded with %d diagnostics", c.name, len(c.diags))
	}
	return c.diags
}

type pictureUse struct {
	usage resource.ImageUsage
	// layout is the required image layout. ImageLayoutUndefined skips the layout check.
	layout resource.ImageLayout
}

// checkPicture validates a picture resource against its image view and the bound session.
func (c *command) checkPicture(res vkvideo.PictureResource, use pictureUse, where string) {
	view, ok := c.r.resources.ImageView(res.ImageView)
	if !ok {
		c.addf(report.StructuralError, RulePictureView, "%s.imageViewBinding %v is not a live image view", where, res.ImageView)
		return
	}
	s := c.sc.session
	if !view.SupportsProfile(s.Profile()) {
		c.addf(report.ConsistencyError, RulePictureProfile, "%s image was not created for the session's video profile", where)
	}
	if view.Usage&use.usage == 0 {
		c.addf(report.ConsistencyError, RulePictureUsage, "%s image view usage %#x lacks %#x", where, uint32(view.Usage), uint32(use.usage))
	}
	g := c.caps.PictureAccessGranularity
	if res.CodedOffset.X < 0 || res.CodedOffset.Y < 0 ||
		(g.Width != 0 && uint32(res.CodedOffset.X)%g.Width != 0) || (g.Height != 0 && uint32(res.CodedOffset.Y)%g.Height != 0) {
		c.addf(report.RangeError, RulePictureOffset, "%s.codedOffset (%d,%d) is not a multiple of the picture access granularity %v",
			where, res.CodedOffset.X, res.CodedOffset.Y, g)
	}
	if !res.CodedExtent.AtLeast(c.caps.MinCodedExtent) || !res.CodedExtent.Within(s.Info().MaxCodedExtent) {
		c.addf(report.RangeError, RulePictureExtent, "%s.codedExtent %v is outside [%v, %v]",
			where, res.CodedExtent, c.caps.MinCodedExtent, s.Info().MaxCodedExtent)
	}
	if res.CodedOffset.X >= 0 && res.CodedOffset.Y >= 0 {
		end := vkvideo.Extent2D{
			Width:  uint32(res.CodedOffset.X) + res.CodedExtent.Width,
			Height: uint32(res.CodedOffset.Y) + res.CodedExtent.Height,
		}
		if !end.Within(view.Extent) {
			c.addf(report.RangeError, RulePictureBounds, "%s coded region ends at %v beyond the image extent %v", where, end, view.Extent)
		}
	}
	if res.BaseArrayLayer >= view.LayerCount {
		c.addf(report.RangeError, RulePictureLayer, "%s.baseArrayLayer %d is not below the view layer count %d",
			where, res.BaseArrayLayer, view.LayerCount)
	}
	if use.layout != resource.ImageLayoutUndefined && c.r.layouts != nil {
		if l, ok := c.r.layouts.ImageLayout(view.Image, view.BaseArrayLayer+res.BaseArrayLayer); ok && l != use.layout {
			c.addf(report.ConsistencyError, RulePictureLayout, "%s is in layout %v, expected %v", where, l, use.layout)
		}
	}
	if view.Protected != c.r.facts.Protected {
		c.addf(report.ConsistencyError, RulePictureProtected, "%s protected=%t does not match the command buffer protected=%t",
			where, view.Protected, c.r.facts.Protected)
	}
}

// checkBitstream validates a bitstream buffer range.
func (c *command) checkBitstream(h vkvideo.Handle, offset, size uint64, usage resource.BufferUsage, where string) {
	buf, ok := c.r.resources.Buffer(h)
	if !ok {
		c.addf(report.StructuralError, RuleBufferMissing, "%s %v is not a live buffer", where, h)
		return
	}
	if buf.Usage&usage == 0 {
		c.addf(report.ConsistencyError, RuleBufferUsage, "%s usage %#x lacks %#x", where, uint32(buf.Usage), uint32(usage))
	}
	if !buf.SupportsProfile(c.sc.session.Profile()) {
		c.addf(report.ConsistencyError, RuleBufferProfile, "%s was not created for the session's video profile", where)
	}
	if buf.Protected != c.r.facts.Protected {
		c.addf(report.ConsistencyError, RuleBufferProtected, "%s protected=%t does not match the command buffer protected=%t",
			where, buf.Protected, c.r.facts.Protected)
	}
	if offset >= buf.Size {
		c.addf(report.RangeError, RuleBufferOffset, "%sOffset %d is not less than the buffer size %d", where, offset, buf.Size)
	}
	if a := c.caps.MinBitstreamBufferOffsetAlignment; a != 0 && offset%a != 0 {
		c.addf(report.RangeError, RuleBufferOffsetAlignment, "%sOffset %d is not a multiple of %d", where, offset, a)
	}
	if offset > buf.Size || size > buf.Size-offset {
		c.addf(report.RangeError, RuleBufferRange, "%sOffset %d plus %sRange %d exceeds the buffer size %d", where, offset, where, size, buf.Size)
	}
	if a := c.caps.MinBitstreamBufferSizeAlignment; a != 0 && size%a != 0 {
		c.addf(report.RangeError, RuleBufferRangeAlignment, "%sRange %d is not a multiple of %d", where, size, a)
	}
}

func (c *command) boundAt(slot int32, res vkvideo.PictureResource) bool {
	for _, b := range c.sc.bound {
		if b.SlotIndex == slot && *b.Picture == res {
			return true
		}
	}
	return false
}

func (c *command) boundPicture(res vkvideo.PictureResource) bool {
	for _, b := range c.sc.bound {
		if *b.Picture == res {
			return true
		}
	}
	return false
}

// checkSetup validates the setup reference slot and returns whether it names a usable slot.
func (c *command) checkSetup(setup *ReferenceSlot, kind dpb.Kind, use pictureUse) bool {
	maxSlots := int32(c.sc.session.MaxDpbSlots()) //nolint:gosec
	if setup == nil {
		if maxSlots > 0 {
			c.addf(report.StructuralError, RuleSetupRequired, "pSetupReferenceSlot is required when maxDpbSlots is %d", maxSlots)
		}
		return false
	}
	if maxSlots == 0 {
		c.addf(report.ConsistencyError, RuleSetupNotAllowed, "pSetupReferenceSlot must be NULL for a session without DPB slots")
		return false
	}
	ok := true
	if setup.SlotIndex < 0 || setup.SlotIndex >= maxSlots {
		c.addf(report.RangeError, RuleSetupSlotIndex, "pSetupReferenceSlot->slotIndex %d is outside [0, %d)", setup.SlotIndex, maxSlots)
		ok = false
	}
	if setup.Picture == nil {
		c.addf(report.StructuralError, RuleSetupPicture, "pSetupReferenceSlot->pPictureResource is NULL")
		return false
	}
	c.checkPicture(*setup.Picture, use, "pSetupReferenceSlot->pPictureResource")
	if !c.boundPicture(*setup.Picture) {
		c.addf(report.ConsistencyError, RuleSetupNotBound,
			"pSetupReferenceSlot->pPictureResource %v was not bound when the coding scope began", *setup.Picture)
	}
	if ok {
		c.uses.Claim(setup.SlotIndex, kind)
	}
	return ok
}

// checkReferences validates the reference slot list. kinds holds the occupancy of each slot.
func (c *command) checkReferences(refs []ReferenceSlot, kinds []dpb.Kind, use pictureUse) {
	s := c.sc.session
	maxSlots := int32(s.MaxDpbSlots()) //nolint:gosec
	if uint32(len(refs)) > s.MaxActiveReferencePictures() {
		c.addf(report.CapacityError, RuleActiveReferences, "%d reference slots exceed maxActiveReferencePictures %d",
			len(refs), s.MaxActiveReferencePictures())
	}

	type resourceUnit struct {
		res  vkvideo.PictureResource
		unit dpb.Kind
	}
	seen := make(map[resourceUnit]bool)
	for i, ref := range refs {
		where := fmt.Sprintf("pReferenceSlots[%d]", i)
		validIndex := ref.SlotIndex >= 0 && ref.SlotIndex < maxSlots
		if !validIndex {
			c.addf(report.RangeError, RuleReferenceIndex, "%s.slotIndex %d is outside [0, %d)", where, ref.SlotIndex, maxSlots)
		}
		if ref.Picture == nil {
			c.addf(report.StructuralError, RuleReferencePicture, "%s.pPictureResource is NULL", where)
			continue
		}
		c.checkPicture(*ref.Picture, use, where+".pPictureResource")
		for _, u := range kinds[i].Units() {
			k := resourceUnit{res: *ref.Picture, unit: u}
			if seen[k] {
				c.addf(report.ConsistencyError, RuleReferenceUnique, "%s.pPictureResource %v is used by another reference slot", where, *ref.Picture)
				break
			}
			seen[k] = true
		}
		if !validIndex {
			continue
		}
		if !c.boundAt(ref.SlotIndex, *ref.Picture) {
			c.addf(report.ConsistencyError, RuleReferenceBound,
				"%s (slot %d, %v) was not bound when the coding scope began", where, ref.SlotIndex, *ref.Picture)
		}
		if over := c.uses.Claim(ref.SlotIndex, kinds[i]); over != 0 {
			c.addf(report.ConsistencyError, RuleSlotReused, "DPB slot %d is used more than once as %v", ref.SlotIndex, over)
		}
		ctx := c.name + " " + where
		c.steps = append(c.steps,
			dpb.Step{Action: dpb.AssertActive, Rule: RuleReferenceActive, Slot: ref.SlotIndex, Objects: c.objs, Context: ctx},
			dpb.Step{Action: dpb.AssertPicture, Rule: RuleReferenceHolds, Slot: ref.SlotIndex, Kind: kinds[i], Resource: *ref.Picture, Objects: c.objs, Context: ctx},
		)
	}
}

// requireParameters queues the submit-time check that the command has a live parameters object to
// read from. Decode sessions created for inline parameters do not need one.
func (c *command) requireParameters() {
	s := c.sc.session
	if s.Operation().IsDecode() && s.HasFlags(session.CreateInlineSessionParameters) {
		return
	}
	h := vkvideo.NullHandle
	if c.sc.params != nil {
		h = c.sc.params.Handle()
	}
	c.steps = append(c.steps, dpb.Step{
		Action: dpb.AssertBound, Rule: RuleParametersBound, Handle: h, Objects: c.objs, Context: c.name,
	})
}

// setupEffect queues the DPB update the setup slot causes: a reference picture activates the slot,
// a non-reference picture leaves it inactive.
func (c *command) setupEffect(setup *ReferenceSlot, kind dpb.Kind, valid, reference bool) {
	if !valid || setup == nil || setup.Picture == nil {
		return
	}
	step := dpb.Step{Action: dpb.Deactivate, Slot: setup.SlotIndex, Context: c.name + " pSetupReferenceSlot"}
	if reference {
		step.Action, step.Kind, step.Resource = dpb.Activate, kind, *setup.Picture
	}
	c.steps = append(c.steps, step)
}

// slotKind returns the occupancy a reference slot describes. Only H.264 distinguishes fields.
func slotKind(slot *ReferenceSlot) dpb.Kind {
	if slot == nil || slot.H264 == nil {
		return dpb.Frame
	}
	return h264Kind(slot.H264)
}

func h264Kind(info *std.H264ReferenceInfo) dpb.Kind {
	switch {
	case info.Flags.TopField && info.Flags.BottomField:
		return dpb.FieldPair
	case info.Flags.TopField:
		return dpb.TopField
	case info.Flags.BottomField:
		return dpb.BottomField
	}
	return dpb.Frame
}

func slotKinds(refs []ReferenceSlot) []dpb.Kind {
	kinds := make([]dpb.Kind, len(refs))
	for i := range refs {
		kinds[i] = slotKind(&refs[i])
	}
	return kinds
}

func referenceIndices(refs []ReferenceSlot) map[int32]int {
	out := make(map[int32]int, len(refs))
	for i, r := range refs {
		out[r.SlotIndex] = i
	}
	return out
}
