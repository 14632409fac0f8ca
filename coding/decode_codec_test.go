package coding

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/std"
)

func noRefPicSet() [8]uint8 {
	var set [8]uint8
	for i := range set {
		set[i] = std.NoReferencePicture
	}
	return set
}

func TestH265DecodeRefPicSet(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		mutate func(*std.H265DecodePictureInfo)
		rules  []string
	}{
		{name: "listed reference", mutate: func(*std.H265DecodePictureInfo) {}},
		{
			name:   "unlisted slot in StCurrAfter",
			mutate: func(p *std.H265DecodePictureInfo) { p.RefPicSetStCurrAfter[0] = 2 },
			rules:  []string{RuleH265RefPicSet},
		},
		{
			name:   "IDR with references",
			mutate: func(p *std.H265DecodePictureInfo) { p.Flags.IdrPic = true },
			rules:  []string{RuleH265RefPicSet},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H265DecodeProfile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			picInfo := &std.H265DecodePictureInfo{
				Flags:                 std.H265DecodePictureInfoFlags{IsReference: true},
				RefPicSetStCurrBefore: noRefPicSet(),
				RefPicSetStCurrAfter:  noRefPicSet(),
				RefPicSetLtCurr:       noRefPicSet(),
			}
			picInfo.RefPicSetStCurrBefore[0] = 0
			tc.mutate(picInfo)
			diags := f.recorder.DecodeVideo(DecodeInfo{
				SrcBuffer:          srcBuffer,
				SrcBufferRange:     256,
				DstPicture:         pic(2),
				SetupReferenceSlot: &ReferenceSlot{SlotIndex: 1, Picture: picRef(1), H265: &std.H265ReferenceInfo{}},
				ReferenceSlots:     []ReferenceSlot{{SlotIndex: 0, Picture: picRef(0), H265: &std.H265ReferenceInfo{}}},
				H265:               &H265DecodeInfo{StdPictureInfo: picInfo, SliceSegmentOffsets: []uint32{0}},
			})
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestDecodeOutputMode(t *testing.T) {
	t.Parallel()

	distinctOnly := adjusted(t, profile.H265DecodeProfile, func(c *profile.Capabilities) {
		c.Decode.Flags = profile.DecodeDpbAndOutputDistinct
	})
	for _, tc := range []struct {
		name  string
		res   *profile.Resolver
		dst   int
		rules []string
	}{
		{name: "coincide", res: resolver, dst: 1},
		{name: "distinct", res: resolver, dst: 2},
		{name: "coincide without support", res: distinctOnly, dst: 1, rules: []string{RuleDpbCoincide}},
		{name: "distinct only", res: distinctOnly, dst: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixtureWith(t, tc.res, sessionInfo(profile.H265DecodeProfile, 0))
			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			diags := f.recorder.DecodeVideo(DecodeInfo{
				SrcBuffer:          srcBuffer,
				SrcBufferRange:     256,
				DstPicture:         pic(tc.dst),
				SetupReferenceSlot: &ReferenceSlot{SlotIndex: 1, Picture: picRef(1), H265: &std.H265ReferenceInfo{}},
				H265: &H265DecodeInfo{
					StdPictureInfo: &std.H265DecodePictureInfo{
						Flags:                 std.H265DecodePictureInfoFlags{IsReference: true, IdrPic: true, IrapPic: true},
						RefPicSetStCurrBefore: noRefPicSet(),
						RefPicSetStCurrAfter:  noRefPicSet(),
						RefPicSetLtCurr:       noRefPicSet(),
					},
					SliceSegmentOffsets: []uint32{0},
				},
			})
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestAV1DecodeChecks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		profile profile.Profile
		dst     int
		mutate  func(*AV1DecodeInfo)
		rules   []string
	}{
		{name: "named reference", profile: profile.AV1DecodeProfile, dst: 1, mutate: func(*AV1DecodeInfo) {}},
		{
			name: "reference slot without a name", profile: profile.AV1DecodeProfile, dst: 1,
			mutate: func(a *AV1DecodeInfo) { a.ReferenceNameSlotIndices[0] = -1 },
			rules:  []string{RuleAV1ReferenceNames},
		},
		{
			name: "name without a reference slot", profile: profile.AV1DecodeProfile, dst: 1,
			mutate: func(a *AV1DecodeInfo) { a.ReferenceNameSlotIndices[3] = 2 },
			rules:  []string{RuleAV1ReferenceNames},
		},
		{
			name: "tile past the range", profile: profile.AV1DecodeProfile, dst: 1,
			mutate: func(a *AV1DecodeInfo) { a.TileSizes[0] = 300 },
			rules:  []string{RuleAV1TileOffset},
		},
		{
			name: "tile count mismatch", profile: profile.AV1DecodeProfile, dst: 1,
			mutate: func(a *AV1DecodeInfo) { a.TileSizes = nil },
			rules:  []string{RuleAV1TileCount},
		},
		{
			name: "film grain without support", profile: profile.AV1DecodeProfile, dst: 1,
			mutate: func(a *AV1DecodeInfo) { a.StdPictureInfo.Flags.ApplyGrain = true },
			rules:  []string{RuleFilmGrainOutput, RuleAV1FilmGrain},
		},
		{
			name: "film grain with distinct output", profile: profile.AV1DecodeFilmGrainProfile, dst: 2,
			mutate: func(a *AV1DecodeInfo) { a.StdPictureInfo.Flags.ApplyGrain = true },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tc.profile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			names := noNames()
			names[0] = 0
			av1 := &AV1DecodeInfo{
				StdPictureInfo:           &std.AV1DecodePictureInfo{RefreshFrameFlags: 1},
				ReferenceNameSlotIndices: names,
				TileOffsets:              []uint32{0},
				TileSizes:                []uint32{100},
			}
			tc.mutate(av1)
			diags := f.recorder.DecodeVideo(DecodeInfo{
				SrcBuffer:          srcBuffer,
				SrcBufferRange:     256,
				DstPicture:         pic(tc.dst),
				SetupReferenceSlot: &ReferenceSlot{SlotIndex: 1, Picture: picRef(1), AV1: &std.AV1ReferenceInfo{}},
				ReferenceSlots:     []ReferenceSlot{{SlotIndex: 0, Picture: picRef(0), AV1: &std.AV1ReferenceInfo{}}},
				AV1:                av1,
			})
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}
