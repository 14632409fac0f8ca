// Package coding validates video coding commands at record time and queues the DPB checks that can
// only be answered when the recorded commands are submitted.
package coding

import (
	"fmt"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/dpb"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/utils/logger"
)

// Facts are the generic command buffer facts the validators consume.
type Facts struct {
	Protected bool
	// QueueOperations are the video codec operations of the queue family the recorder targets.
	QueueOperations vkvideo.CodecOperationFlags
	// ResultStatusQueries reports whether that queue family supports result status queries.
	ResultStatusQueries bool
}

type scope struct {
	session      *session.Session
	params       *params.Parameters
	bound        []ReferenceSlot
	rateControl  RateControlState
	qualityLevel uint32
}

type activeQuery struct {
	pool  vkvideo.Handle
	query uint32
}

// Recorded is the queue of deferred steps a recorder produced for one session.
type Recorded struct {
	Session *session.Session
	Steps   []dpb.Step
}

type usage interface {
	Acquire()
	Release()
}

// Recorder validates the video coding commands recorded into one command buffer. Like the command
// buffer it stands for, it must not be used from more than one goroutine at a time.
type Recorder struct {
	handle    vkvideo.Handle
	facts     Facts
	resources resource.Lookup
	layouts   resource.Layouts

	scope *scope
	query *activeQuery

	order    []*session.Session
	queues   map[vkvideo.Handle]*dpb.Queue
	held     map[usage]struct{}
	commands int
}

// NewRecorder creates a recorder. layouts may be nil when image layouts are not tracked.
func NewRecorder(h vkvideo.Handle, facts Facts, resources resource.Lookup, layouts resource.Layouts) *Recorder {
	return &Recorder{
		handle:    h,
		facts:     facts,
		resources: resources,
		layouts:   layouts,
		queues:    make(map[vkvideo.Handle]*dpb.Queue),
		held:      make(map[usage]struct{}),
	}
}

func (r *Recorder) String() string {
	return fmt.Sprintf("RECORDER %v", r.handle)
}

func (r *Recorder) Handle() vkvideo.Handle { return r.handle }

// InScope reports whether a video coding scope is active.
func (r *Recorder) InScope() bool { return r.scope != nil }

// RateControl returns the rate control state of the active coding scope.
func (r *Recorder) RateControl() (RateControlState, bool) {
	if r.scope == nil {
		return RateControlState{}, false
	}
	return r.scope.rateControl, true
}

// Recorded returns the deferred steps per session in the order sessions were first used.
func (r *Recorder) Recorded() []Recorded {
	out := make([]Recorded, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, Recorded{Session: s, Steps: r.queues[s.Handle()].Steps()})
	}
	return out
}

// Reset returns the recorder to its initial state, dropping its references to sessions and
// parameters.
func (r *Recorder) Reset() {
	for u := range r.held {
		u.Release()
	}
	clear(r.held)
	clear(r.queues)
	r.order = nil
	r.scope = nil
	r.query = nil
	logger.Debugf(r, "Reset after %d commands", r.commands)
	r.commands = 0
}

func (r *Recorder) hold(u usage) {
	if _, ok := r.held[u]; ok {
		return
	}
	u.Acquire()
	r.held[u] = struct{}{}
}

func (r *Recorder) enqueue(s *session.Session, steps []dpb.Step) {
	q, ok := r.queues[s.Handle()]
	if !ok {
		q = &dpb.Queue{}
		r.queues[s.Handle()] = q
		r.order = append(r.order, s)
	}
	q.Append(steps...)
}

// BeginQuery marks a query as active in the command buffer.
func (r *Recorder) BeginQuery(pool vkvideo.Handle, query uint32) {
	r.query = &activeQuery{pool: pool, query: query}
}

// EndQuery marks the active query as ended.
func (r *Recorder) EndQuery() {
	r.query = nil
}

// BeginVideoCoding starts a coding scope for info.Session. A nil session means the handle no longer
// refers to a live object and nothing is validated.
func (r *Recorder) BeginVideoCoding(info BeginInfo) (diags report.List) {
	s := info.Session
	if s == nil {
		logger.Warningf(r, "Begin without a live video session")
		return
	}
	r.commands++
	objs := report.Objects(r.handle, s.Handle())
	const name = "vkCmdBeginVideoCodingKHR"

	if r.scope != nil {
		diags.Addf(report.SequenceError, RuleBeginInScope, objs, "%s: a video coding scope is already active", name)
	}
	if !r.facts.QueueOperations.Has(s.Operation()) {
		diags.Addf(report.UnsupportedError, RuleQueueOperation, objs,
			"%s: the queue family does not support %v", name, s.Operation())
	}
	if !s.MemoryBound() {
		diags.Addf(report.ConsistencyError, RuleMemoryUnbound, objs,
			"%s: memory bind indices %v of the video session are not bound", name, s.UnboundIndices())
	}
	if r.facts.Protected != s.HasFlags(session.CreateProtectedContent) {
		diags.Addf(report.ConsistencyError, RuleProtectedSession, objs,
			"%s: command buffer protected=%t but video session protected content=%t",
			name, r.facts.Protected, s.HasFlags(session.CreateProtectedContent))
	}

	p := info.Parameters
	if p != nil {
		objs = report.Objects(r.handle, s.Handle(), p.Handle())
		if p.Session() != s {
			diags.Addf(report.ConsistencyError, RuleParametersSession, objs,
				"%s: video session parameters were created for %v", name, p.Session())
			p = nil
		}
	}
	if p == nil && !(s.Operation().IsDecode() && s.HasFlags(session.CreateInlineSessionParameters)) {
		diags.Addf(report.StructuralError, RuleParametersRequired, objs,
			"%s: %v sessions require video session parameters", name, s.Operation())
	}

	sc := &scope{
		session:     s,
		params:      p,
		rateControl: RateControlState{Mode: profile.RateControlDefault},
	}
	c := &command{r: r, sc: sc, name: name, caps: s.Capabilities(), objs: objs}

	steps := []dpb.Step{{
		Action: dpb.AssertAlive, Rule: RuleSessionDestroyed, Handle: s.Handle(), Objects: objs, Context: name,
	}}
	if p != nil {
		steps = append(steps, dpb.Step{
			Action: dpb.AssertAlive, Rule: RuleParametersDestroyed, Handle: p.Handle(), Objects: objs, Context: name,
		})
	}

	maxSlots := int32(s.MaxDpbSlots()) //nolint:gosec
	slotSeen := make(map[int32]bool)
	pictureSeen := make(map[vkvideo.PictureResource]bool)
	var keep []int32
	use := pictureUse{usage: dpbUsage(s.Operation())}
	for i, slot := range info.ReferenceSlots {
		where := fmt.Sprintf("pReferenceSlots[%d]", i)
		if slot.SlotIndex >= maxSlots {
			c.addf(report.RangeError, RuleBeginSlotIndex, "%s.slotIndex %d is not below maxDpbSlots %d", where, slot.SlotIndex, maxSlots)
			continue
		}
		if slot.SlotIndex >= 0 {
			if slotSeen[slot.SlotIndex] {
				c.addf(report.ConsistencyError, RuleBeginSlotUnique, "%s.slotIndex %d is listed more than once", where, slot.SlotIndex)
			}
			slotSeen[slot.SlotIndex] = true
			keep = append(keep, slot.SlotIndex)
		}
		if slot.Picture == nil {
			if slot.SlotIndex < 0 {
				c.addf(report.StructuralError, RuleBeginSlotPicture, "%s has neither a slot index nor a picture resource", where)
			}
			continue
		}
		if pictureSeen[*slot.Picture] {
			c.addf(report.ConsistencyError, RuleBeginPictureUnique, "%s.pPictureResource %v is bound more than once", where, *slot.Picture)
		}
		pictureSeen[*slot.Picture] = true
		c.checkPicture(*slot.Picture, use, where+".pPictureResource")
		sc.bound = append(sc.bound, slot)
		if slot.SlotIndex >= 0 {
			steps = append(steps,
				dpb.Step{Action: dpb.AssertActive, Rule: RuleBeginSlotActive, Slot: slot.SlotIndex, Objects: objs, Context: name + " " + where},
				dpb.Step{Action: dpb.AssertPicture, Rule: RuleBeginSlotHolds, Slot: slot.SlotIndex, Resource: *slot.Picture, Objects: objs, Context: name + " " + where},
			)
		}
	}
	steps = append(steps, dpb.Step{Action: dpb.DeactivateUnlisted, Slots: keep, Context: name})
	diags.Append(c.diags...)

	if info.RateControl != nil && s.Operation().IsEncode() {
		d := ValidateRateControlInfo(s.Capabilities(), s.Operation(), info.RateControl, objs)
		if len(d) == 0 {
			sc.rateControl = stateFrom(info.RateControl)
		}
		diags.Append(d...)
	}

	r.hold(&s.Usage)
	if p != nil {
		r.hold(&p.Usage)
	}
	r.scope = sc
	r.enqueue(s, steps)
	logger.Debugf(r, "Began coding scope for %v with %d bound slots and %d diagnostics", s, len(sc.bound), len(diags))
	return
}

// ControlVideoCoding validates a control command and applies it to the scope's rate control state.
func (r *Recorder) ControlVideoCoding(info ControlInfo) report.List {
	c, diags := r.command("vkCmdControlVideoCodingKHR", nil)
	if c == nil {
		return diags
	}
	op := c.sc.session.Operation()
	if info.Flags == 0 || info.Flags&^controlKnown != 0 {
		c.addf(report.RangeError, RuleControlFlags, "flags %#x are not a valid non-empty set of control flags", uint32(info.Flags))
	}
	encodeFlags := info.Flags & controlEncodeOnly
	if encodeFlags != 0 && !op.IsEncode() {
		c.addf(report.ConsistencyError, RuleControlEncodeOnly, "flags %#x require an encode session, the session is %v",
			uint32(encodeFlags), op)
		encodeFlags = 0
	}

	if info.Flags&ControlReset != 0 {
		c.steps = append(c.steps, dpb.Step{Action: dpb.Reset, Context: c.name})
		c.sc.rateControl = RateControlState{Mode: profile.RateControlDefault}
		c.sc.qualityLevel = 0
	}
	if encodeFlags&ControlEncodeRateControl != 0 {
		if info.RateControl == nil {
			c.addf(report.StructuralError, RuleControlRateControlMissing, "rate control flag set without rate control info")
		} else {
			d := ValidateRateControlInfo(c.caps, op, info.RateControl, c.objs)
			if len(d) == 0 {
				c.sc.rateControl = stateFrom(info.RateControl)
			}
			c.diags.Append(d...)
		}
	}
	if encodeFlags&ControlEncodeQualityLevel != 0 {
		if info.QualityLevel >= c.caps.Encode.MaxQualityLevels {
			c.addf(report.RangeError, RuleControlQualityLevel, "quality level %d is not below maxQualityLevels %d",
				info.QualityLevel, c.caps.Encode.MaxQualityLevels)
		} else {
			c.sc.qualityLevel = info.QualityLevel
		}
	}
	return c.finish()
}

// EndVideoCoding closes the active coding scope.
func (r *Recorder) EndVideoCoding() report.List {
	c, diags := r.command("vkCmdEndVideoCodingKHR", nil)
	if c == nil {
		return diags
	}
	if r.query != nil {
		c.addf(report.ConsistencyError, RuleEndActiveQuery, "query %d of pool %v is still active", r.query.query, r.query.pool)
	}
	diags = c.finish()
	r.scope = nil
	return diags
}

// command starts validating one command inside the coding scope. With encode set, the session must
// be created for a matching operation kind. A nil command means there is nothing more to check.
func (r *Recorder) command(name string, encode *bool) (*command, report.List) {
	r.commands++
	var diags report.List
	sc := r.scope
	if sc == nil {
		diags.Addf(report.SequenceError, RuleNotInScope, report.Objects(r.handle),
			"%s: no video coding scope is active", name)
		return nil, diags
	}
	objs := report.Objects(r.handle, sc.session.Handle())
	if sc.params != nil {
		objs = report.Objects(r.handle, sc.session.Handle(), sc.params.Handle())
	}
	if op := sc.session.Operation(); encode != nil && op.IsEncode() != *encode {
		diags.Addf(report.ConsistencyError, RuleOperationKind, objs,
			"%s: the bound video session was created for %v", name, op)
		return nil, diags
	}
	return &command{r: r, sc: sc, name: name, caps: sc.session.Capabilities(), objs: objs}, nil
}

func dpbUsage(op vkvideo.CodecOperation) resource.ImageUsage {
	if op.IsEncode() {
		return resource.ImageUsageEncodeDpb
	}
	return resource.ImageUsageDecodeDpb
}
