package coding

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/dpb"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

var resolver = profile.NewResolver(profile.DefaultProvider())

const (
	srcBuffer vkvideo.Handle = 10
	dstBuffer vkvideo.Handle = 11
	viewBase  vkvideo.Handle = 20
)

type fixture struct {
	session  *session.Session
	params   *params.Parameters
	recorder *Recorder
	store    *resource.Store
}

func pic(i int) vkvideo.PictureResource {
	return vkvideo.PictureResource{
		ImageView:   viewBase + vkvideo.Handle(i),
		CodedExtent: vkvideo.Extent2D{Width: 1920, Height: 1088},
	}
}

func picRef(i int) *vkvideo.PictureResource {
	p := pic(i)
	return &p
}

func newFixture(t *testing.T, p profile.Profile, flags session.CreateFlags) *fixture {
	t.Helper()
	return newFixtureWith(t, resolver, sessionInfo(p, flags))
}

func sessionInfo(p profile.Profile, flags session.CreateFlags) session.CreateInfo {
	return session.CreateInfo{
		Flags:                      flags,
		Profile:                    p,
		MaxCodedExtent:             vkvideo.Extent2D{Width: 1920, Height: 1088},
		MaxDpbSlots:                4,
		MaxActiveReferencePictures: 4,
	}
}

// adjusted returns a resolver over a private copy of the default capabilities with the
// capabilities of p changed by edit.
func adjusted(t *testing.T, p profile.Profile, edit func(*profile.Capabilities)) *profile.Resolver {
	t.Helper()
	provider := profile.DefaultProvider()
	caps, err := provider.VideoCapabilities(p)
	require.NoError(t, err)
	edit(caps)
	return profile.NewResolver(provider)
}

func newFixtureWith(t *testing.T, res *profile.Resolver, sinfo session.CreateInfo) *fixture {
	t.Helper()
	p := sinfo.Profile
	s, diags := session.Create(1, sinfo, res)
	require.Empty(t, diags)

	var info params.CreateInfo
	switch p.Operation.Codec() {
	case vkvideo.CodecH264:
		info.H264 = &params.H264CreateInfo{MaxStdSPSCount: 4, MaxStdPPSCount: 4, Add: &params.H264AddInfo{
			SPS: []std.H264SequenceParameterSet{{SeqParameterSetID: 0, ProfileIdc: std.H264ProfileIdcHigh}},
			PPS: []std.H264PictureParameterSet{{SeqParameterSetID: 0, PicParameterSetID: 0}},
		}}
	case vkvideo.CodecH265:
		info.H265 = &params.H265CreateInfo{MaxStdVPSCount: 1, MaxStdSPSCount: 1, MaxStdPPSCount: 1, Add: &params.H265AddInfo{
			VPS: []std.H265VideoParameterSet{{}},
			SPS: []std.H265SequenceParameterSet{{Log2MinLumaCodingBlockSizeMinus3: 0, Log2DiffMaxMinLumaCodingBlockSize: 2}},
			PPS: []std.H265PictureParameterSet{{}},
		}}
	case vkvideo.CodecAV1:
		info.AV1 = &params.AV1CreateInfo{SequenceHeader: &std.AV1SequenceHeader{}}
	case vkvideo.CodecUnknown:
	}
	pr, diags := params.Create(2, s, info)
	require.Empty(t, diags)

	store := resource.NewStore()
	store.AddBuffer(resource.Buffer{
		Handle: srcBuffer, Size: 4096, Usage: resource.BufferUsageDecodeSrc, Profiles: []profile.Profile{p},
	})
	store.AddBuffer(resource.Buffer{
		Handle: dstBuffer, Size: 4096, Usage: resource.BufferUsageEncodeDst, Profiles: []profile.Profile{p},
	})
	for i := range 8 {
		store.AddImageView(resource.ImageView{
			Handle: viewBase + vkvideo.Handle(i),
			Image:  100 + vkvideo.Handle(i),
			Usage: resource.ImageUsageDecodeDst | resource.ImageUsageDecodeDpb |
				resource.ImageUsageEncodeSrc | resource.ImageUsageEncodeDpb,
			Extent:     vkvideo.Extent2D{Width: 1920, Height: 1088},
			LayerCount: 1,
			Profiles:   []profile.Profile{p},
		})
	}
	r := NewRecorder(50, Facts{QueueOperations: vkvideo.CodecOperationFlags(p.Operation)}, store, nil)
	return &fixture{session: s, params: pr, recorder: r, store: store}
}

func (f *fixture) begin(t *testing.T, slots ...ReferenceSlot) {
	t.Helper()
	require.Empty(t, f.recorder.BeginVideoCoding(BeginInfo{Session: f.session, Parameters: f.params, ReferenceSlots: slots}))
}

func (f *fixture) replay() []string {
	return f.replayWith(nil)
}

func (f *fixture) replayWith(alive func(vkvideo.Handle) bool) []string {
	var steps []dpb.Step
	for _, rec := range f.recorder.Recorded() {
		steps = append(steps, rec.Steps...)
	}
	return dpb.Replay(dpb.NewState(f.session.MaxDpbSlots()), steps, alive).Rules()
}

func frameRef(slot int32, view int) ReferenceSlot {
	return ReferenceSlot{SlotIndex: slot, Picture: picRef(view), H264: &std.H264ReferenceInfo{}}
}

func h264Decode(dst int, setup *ReferenceSlot, refs ...ReferenceSlot) DecodeInfo {
	return DecodeInfo{
		SrcBuffer:          srcBuffer,
		SrcBufferRange:     256,
		DstPicture:         pic(dst),
		SetupReferenceSlot: setup,
		ReferenceSlots:     refs,
		H264: &H264DecodeInfo{
			StdPictureInfo: &std.H264DecodePictureInfo{Flags: std.H264DecodePictureInfoFlags{IsReference: true}},
			SliceOffsets:   []uint32{0},
		},
	}
}

func TestDecodeThenReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
	setup := frameRef(0, 0)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(0, &setup)))
	require.Empty(t, f.recorder.EndVideoCoding())

	f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
	setup = frameRef(1, 1)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(1, &setup, frameRef(0, 0))))
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Empty(t, f.replay())
}

func TestReplayReferenceNeverActivated(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
	setup := frameRef(1, 1)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(1, &setup, frameRef(0, 0))))
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Equal(t, []string{RuleBeginSlotActive, RuleReferenceActive}, f.replay())
}

func TestReplayOverwrittenSlot(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
	setup := frameRef(0, 0)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(0, &setup)))
	require.Empty(t, f.recorder.EndVideoCoding())

	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(2)})
	setup = frameRef(0, 2)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(2, &setup)))
	require.Empty(t, f.recorder.EndVideoCoding())

	f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
	setup = frameRef(1, 1)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(1, &setup, frameRef(0, 0))))
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Equal(t, []string{RuleBeginSlotHolds, RuleReferenceHolds}, f.replay())
}

func TestReplayParametersBound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
	setup := frameRef(0, 0)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(0, &setup)))
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Empty(t, f.replay())
	paramsGone := func(h vkvideo.Handle) bool { return h != vkvideo.NullHandle && h != f.params.Handle() }
	require.Equal(t, []string{RuleParametersDestroyed, RuleParametersBound}, f.replayWith(paramsGone))
}

func TestEncodeWithoutParameters(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264EncodeProfile, 0)
	diags := f.recorder.BeginVideoCoding(BeginInfo{
		Session: f.session, ReferenceSlots: []ReferenceSlot{{SlotIndex: -1, Picture: picRef(0)}},
	})
	require.Equal(t, []string{RuleParametersRequired}, diags.Rules())
	setup := frameRef(0, 0)
	require.Equal(t, []string{RuleParametersMissing}, f.recorder.EncodeVideo(h264Encode(std.H264PictureTypeIDR, &setup)).Rules())
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Equal(t, []string{RuleParametersBound}, f.replay())
}

func TestInlineParameterSets(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		sps   std.H264SequenceParameterSet
		pps   std.H264PictureParameterSet
		rules []string
	}{
		{name: "matching ids"},
		{
			name:  "SPS id differs from the picture",
			sps:   std.H264SequenceParameterSet{SeqParameterSetID: 1},
			rules: []string{RuleInlineMismatch},
		},
		{
			name:  "PPS id differs from the picture",
			pps:   std.H264PictureParameterSet{PicParameterSetID: 2},
			rules: []string{RuleInlineMismatch},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H264DecodeProfile, session.CreateInlineSessionParameters)
			require.Empty(t, f.recorder.BeginVideoCoding(BeginInfo{
				Session: f.session, ReferenceSlots: []ReferenceSlot{{SlotIndex: -1, Picture: picRef(0)}},
			}))
			setup := frameRef(0, 0)
			info := h264Decode(0, &setup)
			info.H264.InlineSPS, info.H264.InlinePPS = &tc.sps, &tc.pps
			diags := f.recorder.DecodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
			} else {
				require.Equal(t, tc.rules, diags.Rules())
			}
			require.Empty(t, f.recorder.EndVideoCoding())
			require.Empty(t, f.replay())
		})
	}
}

func TestActiveReferenceLimit(t *testing.T) {
	t.Parallel()

	info := sessionInfo(profile.H264DecodeProfile, 0)
	info.MaxActiveReferencePictures = 1
	f := newFixtureWith(t, resolver, info)
	f.begin(t,
		ReferenceSlot{SlotIndex: 0, Picture: picRef(0)},
		ReferenceSlot{SlotIndex: 1, Picture: picRef(1)},
		ReferenceSlot{SlotIndex: -1, Picture: picRef(2)},
	)
	setup := frameRef(2, 2)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(2, &setup, frameRef(0, 0))))
	diags := f.recorder.DecodeVideo(h264Decode(2, &setup, frameRef(0, 0), frameRef(1, 1)))
	require.Equal(t, []string{RuleActiveReferences}, diags.Rules())
}

func TestQueryOperationCount(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		active *activeQuery
		inline *InlineQuery
		rules  []string
	}{
		{name: "one inline query", inline: &InlineQuery{Pool: 40, QueryCount: 1}},
		{name: "inline count above the operation count", inline: &InlineQuery{Pool: 40, QueryCount: 2}, rules: []string{RuleQueryCount}},
		{name: "inline range past the pool", inline: &InlineQuery{Pool: 40, FirstQuery: 4, QueryCount: 1}, rules: []string{RuleQueryRange}},
		{name: "active query at the last index", active: &activeQuery{pool: 40, query: 3}},
		{name: "active query past the pool", active: &activeQuery{pool: 40, query: 4}, rules: []string{RuleQueryRange}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H264DecodeProfile, session.CreateInlineQueries)
			prof := profile.H264DecodeProfile
			f.store.AddQueryPool(resource.QueryPool{
				Handle: 40, Type: resource.QueryTypeResultStatusOnly, Count: 4, Profile: &prof,
			})
			f.recorder.facts.ResultStatusQueries = true
			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
			if tc.active != nil {
				f.recorder.BeginQuery(tc.active.pool, tc.active.query)
			}
			setup := frameRef(0, 0)
			info := h264Decode(0, &setup)
			info.InlineQuery = tc.inline
			diags := f.recorder.DecodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestReplayResetDeactivates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
	setup := frameRef(0, 0)
	require.Empty(t, f.recorder.DecodeVideo(h264Decode(0, &setup)))
	require.Empty(t, f.recorder.ControlVideoCoding(ControlInfo{Flags: ControlReset}))
	require.Empty(t, f.recorder.EndVideoCoding())

	f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Equal(t, []string{RuleBeginSlotActive}, f.replay())
}

func TestSlotUsedAsSetupAndReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: 3, Picture: picRef(3)})
	setup := frameRef(3, 3)
	diags := f.recorder.DecodeVideo(h264Decode(3, &setup, frameRef(3, 3)))
	require.Equal(t, []string{RuleSlotReused}, diags.Rules())
	require.Equal(t, 1, diags.Count(RuleSlotReused))
}

func fieldRef(slot int32, view int, bottom bool) ReferenceSlot {
	return ReferenceSlot{SlotIndex: slot, Picture: picRef(view), H264: &std.H264ReferenceInfo{
		Flags: std.H264ReferenceInfoFlags{TopField: !bottom, BottomField: bottom},
	}}
}

func TestInterlacedFieldsUseSlotIndependently(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		refs  []ReferenceSlot
		rules []string
	}{
		{
			name: "top and bottom of one slot",
			refs: []ReferenceSlot{fieldRef(0, 0, false), fieldRef(0, 0, true)},
		},
		{
			name:  "top field twice",
			refs:  []ReferenceSlot{fieldRef(0, 0, false), fieldRef(0, 0, false)},
			rules: []string{RuleReferenceUnique, RuleSlotReused},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H264DecodeInterlacedProfile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			setup := fieldRef(1, 1, false)
			info := h264Decode(1, &setup, tc.refs...)
			info.H264.StdPictureInfo.Flags.FieldPic = true
			diags := f.recorder.DecodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestFieldPictureNeedsInterlacedProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
	setup := fieldRef(1, 1, false)
	info := h264Decode(1, &setup)
	info.H264.StdPictureInfo.Flags.FieldPic = true
	require.Equal(t, []string{RuleFieldUnsupported}, f.recorder.DecodeVideo(info).Rules())
}

func TestDecodeCommandChecks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		mutate func(*DecodeInfo)
		rules  []string
	}{
		{
			name:   "missing picture info stops codec checks",
			mutate: func(d *DecodeInfo) { d.H264.StdPictureInfo = nil },
			rules:  []string{RuleMissingPictureInfo},
		},
		{
			name:   "setup required",
			mutate: func(d *DecodeInfo) { d.SetupReferenceSlot = nil },
			rules:  []string{RuleSetupRequired},
		},
		{
			name:   "unaligned source range",
			mutate: func(d *DecodeInfo) { d.SrcBufferRange = 100 },
			rules:  []string{RuleBufferRangeAlignment},
		},
		{
			name:   "unaligned source offset",
			mutate: func(d *DecodeInfo) { d.SrcBufferOffset = 100 },
			rules:  []string{RuleBufferOffsetAlignment},
		},
		{
			name: "setup picture not bound",
			mutate: func(d *DecodeInfo) {
				d.DstPicture = pic(3)
				d.SetupReferenceSlot.Picture = picRef(3)
			},
			rules: []string{RuleSetupNotBound},
		},
		{
			name:   "range past the buffer end",
			mutate: func(d *DecodeInfo) { d.SrcBufferOffset, d.SrcBufferRange = 3840, 512 },
			rules:  []string{RuleBufferRange},
		},
		{
			name:   "slice offset outside the range",
			mutate: func(d *DecodeInfo) { d.H264.SliceOffsets = []uint32{0, 300} },
			rules:  []string{RuleSliceOffset},
		},
		{
			name:   "unknown PPS",
			mutate: func(d *DecodeInfo) { d.H264.StdPictureInfo.PicParameterSetID = 7 },
			rules:  []string{RuleMissingParameterSet},
		},
		{
			name: "inline SPS without the session flag",
			mutate: func(d *DecodeInfo) {
				d.H264.InlineSPS = &std.H264SequenceParameterSet{SeqParameterSetID: 0}
			},
			rules: []string{RuleInlineParameters},
		},
		{
			name:   "distinct output unsupported",
			mutate: func(d *DecodeInfo) { d.DstPicture = pic(2) },
			rules:  []string{RuleDpbDistinct},
		},
		{
			name:   "setup slot out of range",
			mutate: func(d *DecodeInfo) { d.SetupReferenceSlot.SlotIndex = 4 },
			rules:  []string{RuleSetupSlotIndex},
		},
		{
			name: "inline query without the session flag",
			mutate: func(d *DecodeInfo) {
				d.InlineQuery = &InlineQuery{Pool: 40, QueryCount: 1}
			},
			rules: []string{RuleInlineQueryNotEnabled},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H264DecodeProfile, 0)
			prof := profile.H264DecodeProfile
			f.store.AddQueryPool(resource.QueryPool{
				Handle: 40, Type: resource.QueryTypeResultStatusOnly, Count: 4, Profile: &prof,
			})
			f.recorder.facts.ResultStatusQueries = true
			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
			setup := frameRef(0, 0)
			info := h264Decode(0, &setup)
			tc.mutate(&info)
			require.Equal(t, tc.rules, f.recorder.DecodeVideo(info).Rules())
		})
	}
}

func TestRecorderSequence(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	require.Equal(t, []string{RuleNotInScope}, f.recorder.DecodeVideo(DecodeInfo{}).Rules())
	require.Equal(t, []string{RuleNotInScope}, f.recorder.EndVideoCoding().Rules())

	f.begin(t)
	require.True(t, f.recorder.InScope())
	require.True(t, f.session.InUse())
	require.True(t, f.params.InUse())

	diags := f.recorder.BeginVideoCoding(BeginInfo{Session: f.session, Parameters: f.params})
	require.Equal(t, []string{RuleBeginInScope}, diags.Rules())
	require.Equal(t, []string{RuleOperationKind}, f.recorder.EncodeVideo(EncodeInfo{}).Rules())
	require.Equal(t, []string{RuleControlEncodeOnly}, f.recorder.ControlVideoCoding(ControlInfo{Flags: ControlEncodeQualityLevel}).Rules())
	require.Equal(t, []string{RuleControlFlags}, f.recorder.ControlVideoCoding(ControlInfo{}).Rules())

	f.recorder.BeginQuery(40, 0)
	require.Equal(t, []string{RuleEndActiveQuery}, f.recorder.EndVideoCoding().Rules())
	require.False(t, f.recorder.InScope())

	f.recorder.Reset()
	require.False(t, f.session.InUse())
	require.False(t, f.params.InUse())
	require.Empty(t, f.recorder.Recorded())
}

func TestBeginChecks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264DecodeProfile, 0)
	diags := f.recorder.BeginVideoCoding(BeginInfo{
		Session: f.session,
		ReferenceSlots: []ReferenceSlot{
			{SlotIndex: 0, Picture: picRef(0)},
			{SlotIndex: 0, Picture: picRef(1)},
			{SlotIndex: 9, Picture: picRef(2)},
			{SlotIndex: -1},
		},
	})
	require.Equal(t, []string{
		RuleParametersRequired, RuleBeginSlotUnique, RuleBeginSlotIndex, RuleBeginSlotPicture,
	}, diags.Rules())

	g := newFixture(t, profile.H264DecodeProfile, 0)
	g.recorder.facts.QueueOperations = vkvideo.CodecOperationFlags(vkvideo.OperationDecodeH265)
	diags = g.recorder.BeginVideoCoding(BeginInfo{Session: g.session, Parameters: g.params})
	require.Equal(t, []string{RuleQueueOperation}, diags.Rules())

	h := newFixture(t, profile.H264DecodeProfile, 0)
	diags = h.recorder.BeginVideoCoding(BeginInfo{Session: h.session, Parameters: f.params})
	require.Equal(t, []string{RuleParametersSession, RuleParametersRequired}, diags.Rules())
}
