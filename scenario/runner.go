package scenario

import (
	"fmt"
	"slices"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/codec/h264"
	"github.com/ugparu/vkvideo/codec/h265"
	"github.com/ugparu/vkvideo/coding"
	"github.com/ugparu/vkvideo/layer"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/utils/logger"
)

// Runner executes scenarios against one device. Names stay bound across Run calls.
type Runner struct {
	dev        *layer.Device
	sessions   map[string]vkvideo.Handle
	parameters map[string]vkvideo.Handle
	recorders  map[string]*layer.Recorder
}

func NewRunner(dev *layer.Device) *Runner {
	return &Runner{
		dev:        dev,
		sessions:   make(map[string]vkvideo.Handle),
		parameters: make(map[string]vkvideo.Handle),
		recorders:  make(map[string]*layer.Recorder),
	}
}

func (r *Runner) String() string {
	return "SCENARIO"
}

type handler func(r *Runner, s *Step, res *Result) (report.List, error)

var handlers = map[string]handler{
	CallCreateVideoSession:            (*Runner).createSession,
	CallBindVideoSessionMemory:        (*Runner).bindMemory,
	CallDestroyVideoSession:           (*Runner).destroySession,
	CallCreateVideoSessionParameters:  (*Runner).createParameters,
	CallUpdateVideoSessionParameters:  (*Runner).updateParameters,
	CallDestroyVideoSessionParameters: (*Runner).destroyParameters,
	CallAddImageView:                  (*Runner).addImageView,
	CallAddBuffer:                     (*Runner).addBuffer,
	CallAddQueryPool:                  (*Runner).addQueryPool,
	CallNewRecorder:                   (*Runner).newRecorder,
	CallBeginVideoCoding:              (*Runner).begin,
	CallControlVideoCoding:            (*Runner).control,
	CallDecodeVideo:                   (*Runner).decode,
	CallEncodeVideo:                   (*Runner).encode,
	CallEndVideoCoding:                (*Runner).end,
	CallBeginQuery:                    (*Runner).beginQuery,
	CallEndQuery:                      (*Runner).endQuery,
	CallResetRecorder:                 (*Runner).reset,
	CallQueueSubmit:                   (*Runner).submit,
}

// Run executes every step of sc in order. A step that fails is recorded in its Result and the
// remaining steps still run, except for unknown calls, which stop the run with an error.
func (r *Runner) Run(sc *Scenario) ([]Result, error) {
	results := make([]Result, 0, len(sc.Steps))
	for i := range sc.Steps {
		s := &sc.Steps[i]
		h, ok := handlers[s.Call]
		if !ok {
			return results, fmt.Errorf("%w: step %d %q", ErrUnknownCall, i, s.Call)
		}
		res := Result{Index: i, Call: s.Call, Name: s.Name}
		res.Diagnostics, res.Err = h(r, s, &res)
		if s.Expect != nil && res.Err == nil {
			res.Mismatch = !slices.Equal(s.Expect, res.Diagnostics.Rules())
		}
		if res.Mismatch {
			logger.Warningf(r, "%s step %d %s: expected %v, got %v", sc.Name, i, s.Call, s.Expect, res.Diagnostics.Rules())
		}
		results = append(results, res)
	}
	logger.Debugf(r, "%s ran %d steps", sc.Name, len(results))
	return results, nil
}

func bind(names map[string]vkvideo.Handle, name string, h vkvideo.Handle) error {
	if name == "" {
		return nil
	}
	if _, ok := names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	names[name] = h
	return nil
}

func lookup[T any](names map[string]T, kind, name string) (T, error) {
	v, ok := names[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrUnknownName, kind, name)
	}
	return v, nil
}

// optional resolves name, leaving the null handle for an empty name.
func optional(names map[string]vkvideo.Handle, kind, name string) (vkvideo.Handle, error) {
	if name == "" {
		return vkvideo.NullHandle, nil
	}
	return lookup(names, kind, name)
}

func (r *Runner) recorder(s *Step) (*layer.Recorder, error) {
	return lookup(r.recorders, "recorder", s.Recorder)
}

func (r *Runner) createSession(s *Step, res *Result) (report.List, error) {
	var info session.CreateInfo
	if err := decodeInfo(s, &info); err != nil {
		return nil, err
	}
	if s.Profile != "" {
		p, err := lookupProfile(s.Profile)
		if err != nil {
			return nil, err
		}
		info.Profile = p
	}
	h, diags := r.dev.CreateVideoSession(info)
	res.Handle = h
	if h == vkvideo.NullHandle {
		return diags, nil
	}
	return diags, bind(r.sessions, s.Name, h)
}

func (r *Runner) bindMemory(s *Step, _ *Result) (report.List, error) {
	h, err := lookup(r.sessions, "session", s.Session)
	if err != nil {
		return nil, err
	}
	var binds []session.MemoryBinding
	if err = decodeInfo(s, &binds); err != nil {
		return nil, err
	}
	return r.dev.BindVideoSessionMemory(h, binds)
}

func (r *Runner) destroySession(s *Step, _ *Result) (report.List, error) {
	h, err := lookup(r.sessions, "session", s.Session)
	if err != nil {
		return nil, err
	}
	return r.dev.DestroyVideoSession(h)
}

// parameterSets parses the Annex-B parameter sets of s for the codec of the session h.
func (r *Runner) parameterSets(s *Step, h vkvideo.Handle) (*params.H264AddInfo, *params.H265AddInfo, error) {
	if s.AnnexB == "" {
		return nil, nil, nil
	}
	data, err := s.annexB()
	if err != nil {
		return nil, nil, err
	}
	sess, ok := r.dev.Session(h)
	if !ok {
		return nil, nil, fmt.Errorf("%w: video session %v", layer.ErrUnknownHandle, h)
	}
	switch c := sess.Operation().Codec(); c {
	case vkvideo.CodecH264:
		add, err := h264.AddInfoFromAnnexB(data)
		return &add, nil, err
	case vkvideo.CodecH265:
		add, err := h265.AddInfoFromAnnexB(data)
		return nil, &add, err
	default:
		return nil, nil, fmt.Errorf("%w: annexb is not defined for %v", ErrInfo, c)
	}
}

func (r *Runner) createParameters(s *Step, res *Result) (report.List, error) {
	sh, err := lookup(r.sessions, "session", s.Session)
	if err != nil {
		return nil, err
	}
	template, err := optional(r.parameters, "parameters", s.Template)
	if err != nil {
		return nil, err
	}
	var info params.CreateInfo
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	h264Add, h265Add, err := r.parameterSets(s, sh)
	if err != nil {
		return nil, err
	}
	// Capacities default to the number of parsed parameter sets.
	if h264Add != nil {
		if info.H264 == nil {
			info.H264 = &params.H264CreateInfo{
				MaxStdSPSCount: uint32(len(h264Add.SPS)), //nolint:gosec
				MaxStdPPSCount: uint32(len(h264Add.PPS)), //nolint:gosec
			}
		}
		info.H264.Add = h264Add
	}
	if h265Add != nil {
		if info.H265 == nil {
			info.H265 = &params.H265CreateInfo{
				MaxStdVPSCount: uint32(len(h265Add.VPS)), //nolint:gosec
				MaxStdSPSCount: uint32(len(h265Add.SPS)), //nolint:gosec
				MaxStdPPSCount: uint32(len(h265Add.PPS)), //nolint:gosec
			}
		}
		info.H265.Add = h265Add
	}
	h, diags, err := r.dev.CreateVideoSessionParameters(sh, template, info)
	if err != nil {
		return diags, err
	}
	res.Handle = h
	return diags, bind(r.parameters, s.Name, h)
}

func (r *Runner) updateParameters(s *Step, _ *Result) (report.List, error) {
	h, err := lookup(r.parameters, "parameters", s.Parameters)
	if err != nil {
		return nil, err
	}
	var info params.UpdateInfo
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	if s.AnnexB != "" {
		p, ok := r.dev.Parameters(h)
		if !ok {
			return nil, fmt.Errorf("%w: video session parameters %v", layer.ErrUnknownHandle, h)
		}
		if info.H264, info.H265, err = r.parameterSets(s, p.Session().Handle()); err != nil {
			return nil, err
		}
	}
	return r.dev.UpdateVideoSessionParameters(h, info)
}

func (r *Runner) destroyParameters(s *Step, _ *Result) (report.List, error) {
	h, err := lookup(r.parameters, "parameters", s.Parameters)
	if err != nil {
		return nil, err
	}
	return r.dev.DestroyVideoSessionParameters(h)
}

func (r *Runner) addImageView(s *Step, res *Result) (report.List, error) {
	var v resource.ImageView
	if err := decodeInfo(s, &v); err != nil {
		return nil, err
	}
	profiles, err := lookupProfiles(s.Profiles)
	if err != nil {
		return nil, err
	}
	v.Profiles = append(v.Profiles, profiles...)
	r.dev.Resources().AddImageView(v)
	res.Handle = v.Handle
	return nil, nil
}

func (r *Runner) addBuffer(s *Step, res *Result) (report.List, error) {
	var b resource.Buffer
	if err := decodeInfo(s, &b); err != nil {
		return nil, err
	}
	profiles, err := lookupProfiles(s.Profiles)
	if err != nil {
		return nil, err
	}
	b.Profiles = append(b.Profiles, profiles...)
	r.dev.Resources().AddBuffer(b)
	res.Handle = b.Handle
	return nil, nil
}

func (r *Runner) addQueryPool(s *Step, res *Result) (report.List, error) {
	var q resource.QueryPool
	if err := decodeInfo(s, &q); err != nil {
		return nil, err
	}
	if s.Profile != "" {
		p, err := lookupProfile(s.Profile)
		if err != nil {
			return nil, err
		}
		q.Profile = &p
	}
	r.dev.Resources().AddQueryPool(q)
	res.Handle = q.Handle
	return nil, nil
}

func (r *Runner) newRecorder(s *Step, res *Result) (report.List, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: recorder needs a name", ErrInfo)
	}
	if _, ok := r.recorders[s.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, s.Name)
	}
	var facts coding.Facts
	if err := decodeInfo(s, &facts); err != nil {
		return nil, err
	}
	rec := r.dev.NewRecorder(facts, nil)
	r.recorders[s.Name] = rec
	res.Handle = rec.Handle()
	return nil, nil
}

func (r *Runner) begin(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	sh, err := lookup(r.sessions, "session", s.Session)
	if err != nil {
		return nil, err
	}
	ph, err := optional(r.parameters, "parameters", s.Parameters)
	if err != nil {
		return nil, err
	}
	var info struct {
		ReferenceSlots []coding.ReferenceSlot
		RateControl    *coding.RateControlInfo
	}
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	return rec.BeginVideoCoding(layer.BeginInfo{
		Session:        sh,
		Parameters:     ph,
		ReferenceSlots: info.ReferenceSlots,
		RateControl:    info.RateControl,
	}), nil
}

func (r *Runner) control(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	var info coding.ControlInfo
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	return rec.ControlVideoCoding(info), nil
}

func (r *Runner) decode(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	var info coding.DecodeInfo
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	return rec.DecodeVideo(info), nil
}

func (r *Runner) encode(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	var info coding.EncodeInfo
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	return rec.EncodeVideo(info), nil
}

func (r *Runner) end(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	return rec.EndVideoCoding(), nil
}

func (r *Runner) beginQuery(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	var info struct {
		Pool  vkvideo.Handle
		Query uint32
	}
	if err = decodeInfo(s, &info); err != nil {
		return nil, err
	}
	rec.BeginQuery(info.Pool, info.Query)
	return nil, nil
}

func (r *Runner) endQuery(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	rec.EndQuery()
	return nil, nil
}

func (r *Runner) reset(s *Step, _ *Result) (report.List, error) {
	rec, err := r.recorder(s)
	if err != nil {
		return nil, err
	}
	rec.Reset()
	return nil, nil
}

func (r *Runner) submit(s *Step, _ *Result) (report.List, error) {
	recs := make([]*layer.Recorder, 0, len(s.Recorders))
	for _, name := range s.Recorders {
		rec, err := lookup(r.recorders, "recorder", name)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return r.dev.QueueSubmit(recs...), nil
}
