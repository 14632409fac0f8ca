package layer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/coding"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

const (
	srcBuffer vkvideo.Handle = 10
	viewBase  vkvideo.Handle = 20
)

var extent = vkvideo.Extent2D{Width: 1920, Height: 1088}

type testDevice struct {
	*Device
	collector *report.Collector
	session   vkvideo.Handle
	params    vkvideo.Handle
}

func newTestDevice(t *testing.T) *testDevice {
	t.Helper()
	collector := report.NewCollector(0)
	d := New(profile.DefaultProvider(), collector)

	s, diags := d.CreateVideoSession(session.CreateInfo{
		Profile:                    profile.H264DecodeProfile,
		MaxCodedExtent:             extent,
		MaxDpbSlots:                4,
		MaxActiveReferencePictures: 4,
	})
	require.Empty(t, diags)
	require.NotEqual(t, vkvideo.NullHandle, s)

	p, diags, err := d.CreateVideoSessionParameters(s, vkvideo.NullHandle, params.CreateInfo{
		H264: &params.H264CreateInfo{MaxStdSPSCount: 1, MaxStdPPSCount: 1, Add: &params.H264AddInfo{
			SPS: []std.H264SequenceParameterSet{{SeqParameterSetID: 0, ProfileIdc: std.H264ProfileIdcHigh}},
			PPS: []std.H264PictureParameterSet{{SeqParameterSetID: 0, PicParameterSetID: 0}},
		}},
	})
	require.NoError(t, err)
	require.Empty(t, diags)

	profiles := []profile.Profile{profile.H264DecodeProfile}
	d.Resources().AddBuffer(resource.Buffer{
		Handle: srcBuffer, Size: 4096, Usage: resource.BufferUsageDecodeSrc, Profiles: profiles,
	})
	for i := range 4 {
		d.Resources().AddImageView(resource.ImageView{
			Handle:     viewBase + vkvideo.Handle(i),
			Image:      100 + vkvideo.Handle(i),
			Usage:      resource.ImageUsageDecodeDst | resource.ImageUsageDecodeDpb,
			Extent:     extent,
			LayerCount: 1,
			Profiles:   profiles,
		})
	}
	return &testDevice{Device: d, collector: collector, session: s, params: p}
}

func (d *testDevice) recorder() *Recorder {
	return d.NewRecorder(coding.Facts{QueueOperations: vkvideo.CodecOperationFlags(vkvideo.OperationDecodeH264)}, nil)
}

func picRef(i int) *vkvideo.PictureResource {
	return &vkvideo.PictureResource{ImageView: viewBase + vkvideo.Handle(i), CodedExtent: extent}
}

func slot(idx int32, view int) coding.ReferenceSlot {
	return coding.ReferenceSlot{SlotIndex: idx, Picture: picRef(view), H264: &std.H264ReferenceInfo{}}
}

func decode(dst int, setup coding.ReferenceSlot, refs ...coding.ReferenceSlot) coding.DecodeInfo {
	return coding.DecodeInfo{
		SrcBuffer:          srcBuffer,
		SrcBufferRange:     256,
		DstPicture:         *picRef(dst),
		SetupReferenceSlot: &setup,
		ReferenceSlots:     refs,
		H264: &coding.H264DecodeInfo{
			StdPictureInfo: &std.H264DecodePictureInfo{Flags: std.H264DecodePictureInfoFlags{IsReference: true}},
			SliceOffsets:   []uint32{0},
		},
	}
}

// recordPair records a decode into slot 0 on the first recorder and a decode referencing slot 0 on
// the second one.
func (d *testDevice) recordPair(t *testing.T) (*Recorder, *Recorder) {
	t.Helper()
	first := d.recorder()
	require.Empty(t, first.BeginVideoCoding(BeginInfo{
		Session: d.session, Parameters: d.params,
		ReferenceSlots: []coding.ReferenceSlot{{SlotIndex: -1, Picture: picRef(0)}},
	}))
	require.Empty(t, first.DecodeVideo(decode(0, slot(0, 0))))
	require.Empty(t, first.EndVideoCoding())

	second := d.recorder()
	require.Empty(t, second.BeginVideoCoding(BeginInfo{
		Session: d.session, Parameters: d.params,
		ReferenceSlots: []coding.ReferenceSlot{{SlotIndex: 0, Picture: picRef(0)}, {SlotIndex: -1, Picture: picRef(1)}},
	}))
	require.Empty(t, second.DecodeVideo(decode(1, slot(1, 1), slot(0, 0))))
	require.Empty(t, second.EndVideoCoding())
	return first, second
}

func TestSubmitAcrossRecorders(t *testing.T) {
	t.Parallel()

	d := newTestDevice(t)
	first, second := d.recordPair(t)

	require.Empty(t, d.QueueSubmit(first, second))
	require.Zero(t, d.collector.Total())

	diags := d.QueueSubmit(second)
	require.Equal(t, []string{coding.RuleBeginSlotActive, coding.RuleReferenceActive}, diags.Rules())
	require.Equal(t, diags.Rules(), d.collector.Snapshot().Rules())
}

func TestSubmitAfterParametersDestroyed(t *testing.T) {
	t.Parallel()

	d := newTestDevice(t)
	first, second := d.recordPair(t)

	diags, err := d.DestroyVideoSessionParameters(d.params)
	require.NoError(t, err)
	require.Equal(t, []string{params.RuleDestroyInUse}, diags.Rules())

	diags = d.QueueSubmit(first, second)
	require.Equal(t, []string{
		coding.RuleParametersDestroyed, coding.RuleParametersBound,
		coding.RuleParametersDestroyed, coding.RuleParametersBound,
	}, diags.Rules())
	require.Equal(t, uint64(5), d.collector.Total())
}

func TestDestroySessionInUse(t *testing.T) {
	t.Parallel()

	d := newTestDevice(t)
	r := d.recorder()
	require.Empty(t, r.BeginVideoCoding(BeginInfo{Session: d.session, Parameters: d.params}))
	require.Empty(t, r.EndVideoCoding())

	diags, err := d.DestroyVideoSession(d.session)
	require.NoError(t, err)
	require.Equal(t, []string{session.RuleDestroyInUse}, diags.Rules())

	_, ok := d.Session(d.session)
	require.False(t, ok)
	require.Equal(t, []string{coding.RuleSessionDestroyed}, d.QueueSubmit(r).Rules())
}

func TestDestroySessionWhileBeginning(t *testing.T) {
	t.Parallel()

	for range 20 {
		d := newTestDevice(t)
		r := d.recorder()

		var wg sync.WaitGroup
		var destroyed report.List
		var err error
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.BeginVideoCoding(BeginInfo{Session: d.session, Parameters: d.params})
		}()
		go func() {
			defer wg.Done()
			destroyed, err = d.DestroyVideoSession(d.session)
		}()
		wg.Wait()
		require.NoError(t, err)

		submitted := d.QueueSubmit(r)
		if destroyed.Has(session.RuleDestroyInUse) {
			require.Equal(t, []string{coding.RuleSessionDestroyed}, submitted.Rules())
		}
		if len(submitted) == 0 {
			require.Empty(t, destroyed)
		}
	}
}

func TestDestroyAfterReset(t *testing.T) {
	t.Parallel()

	d := newTestDevice(t)
	r := d.recorder()
	require.Empty(t, r.BeginVideoCoding(BeginInfo{Session: d.session, Parameters: d.params}))
	require.Empty(t, r.EndVideoCoding())
	r.Reset()

	diags, err := d.DestroyVideoSessionParameters(d.params)
	require.NoError(t, err)
	require.Empty(t, diags)
	diags, err = d.DestroyVideoSession(d.session)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Empty(t, d.Sessions())
	require.Empty(t, d.AllParameters())
}

func TestUnknownHandles(t *testing.T) {
	t.Parallel()

	d := newTestDevice(t)
	const unknown vkvideo.Handle = 0xdead

	_, err := d.BindVideoSessionMemory(unknown, nil)
	require.ErrorIs(t, err, ErrUnknownHandle)
	_, err = d.DestroyVideoSession(unknown)
	require.ErrorIs(t, err, ErrUnknownHandle)
	_, _, err = d.CreateVideoSessionParameters(unknown, vkvideo.NullHandle, params.CreateInfo{})
	require.ErrorIs(t, err, ErrUnknownHandle)
	_, _, err = d.CreateVideoSessionParameters(d.session, unknown, params.CreateInfo{})
	require.ErrorIs(t, err, ErrUnknownHandle)
	_, err = d.UpdateVideoSessionParameters(unknown, params.UpdateInfo{})
	require.ErrorIs(t, err, ErrUnknownHandle)
	_, err = d.DestroyVideoSessionParameters(unknown)
	require.ErrorIs(t, err, ErrUnknownHandle)

	r := d.recorder()
	require.Empty(t, r.BeginVideoCoding(BeginInfo{Session: unknown}))
	require.False(t, r.InScope())
}

func TestUnsupportedProfileGetsNullHandle(t *testing.T) {
	t.Parallel()

	d := New(profile.NewStaticProvider(), nil)
	h, diags := d.CreateVideoSession(session.CreateInfo{
		Profile:        profile.H264DecodeProfile,
		MaxCodedExtent: extent,
	})
	require.Equal(t, vkvideo.NullHandle, h)
	require.NotEmpty(t, diags)
	require.Empty(t, d.Sessions())
}

func TestFilteredSink(t *testing.T) {
	t.Parallel()

	collector := report.NewCollector(0)
	d := New(profile.DefaultProvider(), report.NewFilter(collector, []string{coding.RuleBeginSlotActive}))
	s, diags := d.CreateVideoSession(session.CreateInfo{
		Profile:                    profile.H264DecodeProfile,
		MaxCodedExtent:             extent,
		MaxDpbSlots:                4,
		MaxActiveReferencePictures: 4,
		Flags:                      session.CreateInlineSessionParameters,
	})
	require.Empty(t, diags)

	d.Resources().AddImageView(resource.ImageView{
		Handle: viewBase, Image: 100, Usage: resource.ImageUsageDecodeDpb, Extent: extent, LayerCount: 1,
		Profiles: []profile.Profile{profile.H264DecodeProfile},
	})
	r := d.NewRecorder(coding.Facts{QueueOperations: vkvideo.CodecOperationFlags(vkvideo.OperationDecodeH264)}, nil)
	require.Empty(t, r.BeginVideoCoding(BeginInfo{
		Session: s, ReferenceSlots: []coding.ReferenceSlot{{SlotIndex: 2, Picture: picRef(0)}},
	}))
	require.Empty(t, r.EndVideoCoding())

	diags = d.QueueSubmit(r)
	require.Equal(t, []string{coding.RuleBeginSlotActive}, diags.Rules())
	require.Zero(t, collector.Total())
}
