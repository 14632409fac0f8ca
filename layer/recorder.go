package layer

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/coding"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
)

// BeginInfo is coding.BeginInfo with the session and parameters named by handle.
type BeginInfo struct {
	Session        vkvideo.Handle
	Parameters     vkvideo.Handle
	ReferenceSlots []coding.ReferenceSlot
	RateControl    *coding.RateControlInfo
}

// Recorder is a coding.Recorder whose diagnostics also go to the device sink.
type Recorder struct {
	*coding.Recorder
	dev *Device
}

// NewRecorder creates a recorder for a command buffer allocated from a queue family described by
// facts. layouts may be nil.
func (d *Device) NewRecorder(facts coding.Facts, layouts resource.Layouts) *Recorder {
	h := vkvideo.Handle(d.recorders.Add(1))
	return &Recorder{Recorder: coding.NewRecorder(h, facts, d.resources, layouts), dev: d}
}

// BeginVideoCoding resolves the handles of info and begins a coding scope. An unknown session
// handle records nothing.
func (r *Recorder) BeginVideoCoding(info BeginInfo) report.List {
	s, _ := r.dev.sessions.Get(info.Session)
	p, _ := r.dev.params.Get(info.Parameters)
	return r.dev.deliver(r.Recorder.BeginVideoCoding(coding.BeginInfo{
		Session:        s,
		Parameters:     p,
		ReferenceSlots: info.ReferenceSlots,
		RateControl:    info.RateControl,
	}))
}

func (r *Recorder) ControlVideoCoding(info coding.ControlInfo) report.List {
	return r.dev.deliver(r.Recorder.ControlVideoCoding(info))
}

func (r *Recorder) DecodeVideo(info coding.DecodeInfo) report.List {
	return r.dev.deliver(r.Recorder.DecodeVideo(info))
}

func (r *Recorder) EncodeVideo(info coding.EncodeInfo) report.List {
	return r.dev.deliver(r.Recorder.EncodeVideo(info))
}

func (r *Recorder) EndVideoCoding() report.List {
	return r.dev.deliver(r.Recorder.EndVideoCoding())
}
