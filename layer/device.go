// Package layer ties the validators together behind the entry points of a video device: session and
// parameters lifecycle, command recording and queue submission.
package layer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/dpb"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/utils/logger"
	"github.com/ugparu/vkvideo/utils/registry"
)

var ErrUnknownHandle = errors.New("layer: unknown handle")

const (
	sessionHandleBase  = 0x1000
	paramsHandleBase   = 0x2000
	recorderHandleBase = 0x3000
)

// Device tracks the video objects of one logical device.
type Device struct {
	provider  profile.Provider
	resolver  *profile.Resolver
	sessions  *registry.Table[session.Session]
	params    *registry.Table[params.Parameters]
	resources *resource.Store
	sink      report.Sink
	recorders atomic.Uint64
	submits   atomic.Uint64
}

// New creates a device resolving capabilities through provider. Every diagnostic is delivered to
// sink, which may be nil.
func New(provider profile.Provider, sink report.Sink) *Device {
	if sink == nil {
		sink = report.Discard
	}
	d := &Device{
		provider:  provider,
		resolver:  profile.NewResolver(provider),
		sessions:  registry.New[session.Session](sessionHandleBase),
		params:    registry.New[params.Parameters](paramsHandleBase),
		resources: resource.NewStore(),
		sink:      sink,
	}
	d.recorders.Store(recorderHandleBase)
	return d
}

func (d *Device) String() string {
	return "DEVICE"
}

func (d *Device) Resolver() *profile.Resolver { return d.resolver }

// Profiles returns the profiles the provider knows about when it can list them, and the profiles
// resolved so far otherwise.
func (d *Device) Profiles() []profile.Profile {
	if l, ok := d.provider.(interface{ Profiles() []profile.Profile }); ok {
		return l.Profiles()
	}
	return d.resolver.Supported()
}

// Resources returns the store the device looks image views, buffers and query pools up in.
func (d *Device) Resources() *resource.Store { return d.resources }

func (d *Device) deliver(diags report.List) report.List {
	report.Deliver(d.sink, diags)
	return diags
}

// Session returns the live session with handle h.
func (d *Device) Session(h vkvideo.Handle) (*session.Session, bool) {
	return d.sessions.Get(h)
}

// Parameters returns the live parameters object with handle h.
func (d *Device) Parameters(h vkvideo.Handle) (*params.Parameters, bool) {
	return d.params.Get(h)
}

// Sessions returns the live sessions ordered by handle.
func (d *Device) Sessions() []*session.Session {
	out := make([]*session.Session, 0, d.sessions.Len())
	for _, h := range d.sessions.Handles() {
		if s, ok := d.sessions.Get(h); ok {
			out = append(out, s)
		}
	}
	return out
}

// AllParameters returns the live parameters objects ordered by handle.
func (d *Device) AllParameters() []*params.Parameters {
	out := make([]*params.Parameters, 0, d.params.Len())
	for _, h := range d.params.Handles() {
		if p, ok := d.params.Get(h); ok {
			out = append(out, p)
		}
	}
	return out
}

// CreateVideoSession validates info and registers the new session. A null handle is returned when
// the profile is not supported.
func (d *Device) CreateVideoSession(info session.CreateInfo) (vkvideo.Handle, report.List) {
	h := d.sessions.NextHandle()
	s, diags := session.Create(h, info, d.resolver)
	d.deliver(diags)
	if s == nil {
		logger.Infof(d, "Session for %v rejected", info.Profile)
		return vkvideo.NullHandle, diags
	}
	d.sessions.Put(h, s)
	logger.Debugf(d, "Created %v with %d diagnostics", s, len(diags))
	return h, diags
}

func (d *Device) BindVideoSessionMemory(h vkvideo.Handle, binds []session.MemoryBinding) (report.List, error) {
	s, ok := d.sessions.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: video session %v", ErrUnknownHandle, h)
	}
	return d.deliver(s.BindMemory(binds)), nil
}

// DestroyVideoSession forgets the session. Destroying a session that is still used by a pending
// command buffer is reported but carried out.
func (d *Device) DestroyVideoSession(h vkvideo.Handle) (report.List, error) {
	s, ok := d.sessions.Delete(h)
	if !ok {
		return nil, fmt.Errorf("%w: video session %v", ErrUnknownHandle, h)
	}
	logger.Debugf(d, "Destroyed %v", s)
	return d.deliver(s.ValidateDestroy()), nil
}

// CreateVideoSessionParameters validates info and registers the new parameters object. template may
// be the null handle.
func (d *Device) CreateVideoSessionParameters(sessionHandle, template vkvideo.Handle, info params.CreateInfo) (vkvideo.Handle, report.List, error) {
	s, ok := d.sessions.Get(sessionHandle)
	if !ok {
		return vkvideo.NullHandle, nil, fmt.Errorf("%w: video session %v", ErrUnknownHandle, sessionHandle)
	}
	if template != vkvideo.NullHandle {
		t, ok := d.params.Get(template)
		if !ok {
			return vkvideo.NullHandle, nil, fmt.Errorf("%w: template parameters %v", ErrUnknownHandle, template)
		}
		info.Template = t
	}
	h := d.params.NextHandle()
	p, diags := params.Create(h, s, info)
	d.params.Put(h, p)
	logger.Debugf(d, "Created %v with %d diagnostics", p, len(diags))
	return h, d.deliver(diags), nil
}

func (d *Device) UpdateVideoSessionParameters(h vkvideo.Handle, info params.UpdateInfo) (report.List, error) {
	p, ok := d.params.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: video session parameters %v", ErrUnknownHandle, h)
	}
	return d.deliver(p.Update(info)), nil
}

func (d *Device) DestroyVideoSessionParameters(h vkvideo.Handle) (report.List, error) {
	p, ok := d.params.Delete(h)
	if !ok {
		return nil, fmt.Errorf("%w: video session parameters %v", ErrUnknownHandle, h)
	}
	logger.Debugf(d, "Destroyed %v", p)
	return d.deliver(p.ValidateDestroy()), nil
}

func (d *Device) alive(h vkvideo.Handle) bool {
	if _, ok := d.sessions.Get(h); ok {
		return true
	}
	_, ok := d.params.Get(h)
	return ok
}

// QueueSubmit replays the deferred steps of the submitted recorders. The steps of each session are
// concatenated across recorders in submission order and replayed against a fresh DPB state.
func (d *Device) QueueSubmit(recorders ...*Recorder) report.List {
	type pending struct {
		session *session.Session
		steps   []dpb.Step
	}
	var order []vkvideo.Handle
	bySession := make(map[vkvideo.Handle]*pending)
	for _, r := range recorders {
		for _, rec := range r.Recorded() {
			h := rec.Session.Handle()
			p, ok := bySession[h]
			if !ok {
				p = &pending{session: rec.Session}
				bySession[h] = p
				order = append(order, h)
			}
			p.steps = append(p.steps, rec.Steps...)
		}
	}

	n := d.submits.Add(1)
	var diags report.List
	for _, h := range order {
		p := bySession[h]
		state := dpb.NewState(p.session.MaxDpbSlots())
		diags.Append(dpb.Replay(state, p.steps, d.alive)...)
		logger.Debugf(d, "Submit %d replayed %d steps for %v, final %v", n, len(p.steps), p.session, state.ActiveSlots())
	}
	return d.deliver(diags)
}
