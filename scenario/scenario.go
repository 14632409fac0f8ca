// Package scenario replays a recorded sequence of video API calls against a layer.Device. A
// scenario is a JSON document listing calls in order; objects created by a call are bound to a
// name that later calls refer to.
package scenario

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
)

var (
	ErrUnknownCall    = errors.New("scenario: unknown call")
	ErrUnknownName    = errors.New("scenario: unknown object name")
	ErrDuplicateName  = errors.New("scenario: name already bound")
	ErrUnknownProfile = errors.New("scenario: unknown profile name")
	ErrInfo           = errors.New("scenario: invalid info")
)

// Calls understood by the runner.
const (
	CallCreateVideoSession            = "CreateVideoSession"
	CallBindVideoSessionMemory        = "BindVideoSessionMemory"
	CallDestroyVideoSession           = "DestroyVideoSession"
	CallCreateVideoSessionParameters  = "CreateVideoSessionParameters"
	CallUpdateVideoSessionParameters  = "UpdateVideoSessionParameters"
	CallDestroyVideoSessionParameters = "DestroyVideoSessionParameters"
	CallAddImageView                  = "AddImageView"
	CallAddBuffer                     = "AddBuffer"
	CallAddQueryPool                  = "AddQueryPool"
	CallNewRecorder                   = "NewRecorder"
	CallBeginVideoCoding              = "BeginVideoCoding"
	CallControlVideoCoding            = "ControlVideoCoding"
	CallDecodeVideo                   = "DecodeVideo"
	CallEncodeVideo                   = "EncodeVideo"
	CallEndVideoCoding                = "EndVideoCoding"
	CallBeginQuery                    = "BeginQuery"
	CallEndQuery                      = "EndQuery"
	CallResetRecorder                 = "ResetRecorder"
	CallQueueSubmit                   = "QueueSubmit"
)

// Step is one call. Which fields are read depends on Call; Info holds the call payload and is
// decoded strictly into the matching create or command structure.
type Step struct {
	Call       string   `json:"call" jsonschema:"required,enum=CreateVideoSession,enum=BindVideoSessionMemory,enum=DestroyVideoSession,enum=CreateVideoSessionParameters,enum=UpdateVideoSessionParameters,enum=DestroyVideoSessionParameters,enum=AddImageView,enum=AddBuffer,enum=AddQueryPool,enum=NewRecorder,enum=BeginVideoCoding,enum=ControlVideoCoding,enum=DecodeVideo,enum=EncodeVideo,enum=EndVideoCoding,enum=BeginQuery,enum=EndQuery,enum=ResetRecorder,enum=QueueSubmit"`
	Name       string   `json:"name,omitempty" jsonschema:"description=Name bound to the object the call creates"`
	Session    string   `json:"session,omitempty"`
	Parameters string   `json:"parameters,omitempty"`
	Template   string   `json:"template,omitempty"`
	Recorder   string   `json:"recorder,omitempty"`
	Recorders  []string `json:"recorders,omitempty"`
	Profile    string   `json:"profile,omitempty" jsonschema:"description=Name of a default profile such as H264_DECODE"`
	Profiles   []string `json:"profiles,omitempty"`
	AnnexB     string   `json:"annexb,omitempty" jsonschema:"description=Hex encoded Annex-B parameter sets added to the parameters object"`
	Info       any      `json:"info,omitempty"`
	Expect     []string `json:"expect,omitempty" jsonschema:"description=Rules the call is expected to report"`
}

// Scenario is a named list of steps.
type Scenario struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps" jsonschema:"required"`
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	return &sc, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return sc, nil
}

// Schema describes the scenario format.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Scenario{})
	s.Title = "vkvideo scenario"
	return s
}

// decodeInfo re-encodes the free form info of a step and decodes it strictly into out.
func decodeInfo(s *Step, out any) error {
	if s.Info == nil {
		return nil
	}
	raw, err := json.Marshal(s.Info)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInfo, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err = dec.Decode(out); err != nil {
		return fmt.Errorf("%w for %s: %w", ErrInfo, s.Call, err)
	}
	return nil
}

func (s *Step) annexB() ([]byte, error) {
	b, err := hex.DecodeString(s.AnnexB)
	if err != nil {
		return nil, fmt.Errorf("%w: annexb: %w", ErrInfo, err)
	}
	return b, nil
}

var profiles = map[string]profile.Profile{
	"H264_DECODE":            profile.H264DecodeProfile,
	"H264_DECODE_INTERLACED": profile.H264DecodeInterlacedProfile,
	"H265_DECODE":            profile.H265DecodeProfile,
	"AV1_DECODE":             profile.AV1DecodeProfile,
	"AV1_DECODE_FILM_GRAIN":  profile.AV1DecodeFilmGrainProfile,
	"H264_ENCODE":            profile.H264EncodeProfile,
	"H265_ENCODE":            profile.H265EncodeProfile,
	"AV1_ENCODE":             profile.AV1EncodeProfile,
}

// ProfileNames returns the profile names steps may use, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func lookupProfile(name string) (profile.Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return profile.Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

func lookupProfiles(names []string) ([]profile.Profile, error) {
	out := make([]profile.Profile, 0, len(names))
	for _, n := range names {
		p, err := lookupProfile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Result is the outcome of one step.
type Result struct {
	Index       int
	Call        string
	Name        string
	Handle      vkvideo.Handle
	Diagnostics report.List
	// Err is set when the call itself failed, for example on an unknown handle.
	Err error
	// Mismatch is set when the step has expectations and the reported rules differ.
	Mismatch bool
}

func (r *Result) String() string {
	s := fmt.Sprintf("#%d %s", r.Index, r.Call)
	if r.Name != "" {
		s += " " + r.Name
	}
	switch {
	case r.Err != nil:
		return s + ": " + r.Err.Error()
	case len(r.Diagnostics) == 0:
		return s + ": ok"
	}
	return fmt.Sprintf("%s: %v", s, r.Diagnostics.Rules())
}

// Failed reports whether any result has an error or an unmet expectation.
func Failed(results []Result) bool {
	return slices.ContainsFunc(results, func(r Result) bool { return r.Err != nil || r.Mismatch })
}
