package coding

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/resource"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
)

const srcView = 7

func h264Encode(picType std.H264PictureType, setup *ReferenceSlot, refs ...ReferenceSlot) EncodeInfo {
	return EncodeInfo{
		DstBuffer:          dstBuffer,
		DstBufferRange:     256,
		SrcPicture:         pic(srcView),
		SetupReferenceSlot: setup,
		ReferenceSlots:     refs,
		H264: &H264EncodeInfo{
			StdPictureInfo: &std.H264EncodePictureInfo{
				Flags:          std.H264EncodePictureInfoFlags{IdrPic: picType == std.H264PictureTypeIDR, IsReference: true},
				PrimaryPicType: picType,
				RefLists:       &std.H264ReferenceListsInfo{},
			},
			Slices: []H264Slice{{StdSliceHeader: &std.H264SliceHeader{SliceType: std.H264SliceTypeI}}},
		},
	}
}

func TestEncodeIdrThenP(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264EncodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
	setup := frameRef(0, 0)
	require.Empty(t, f.recorder.EncodeVideo(h264Encode(std.H264PictureTypeIDR, &setup)))
	require.Empty(t, f.recorder.EndVideoCoding())

	f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
	setup = frameRef(1, 1)
	require.Empty(t, f.recorder.EncodeVideo(h264Encode(std.H264PictureTypeP, &setup, frameRef(0, 0))))
	require.Empty(t, f.recorder.EndVideoCoding())

	require.Empty(t, f.replay())
}

func TestH264EncodeChecks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		mutate func(*EncodeInfo)
		rules  []string
	}{
		{
			name:   "list names a slot that is not a reference",
			mutate: func(e *EncodeInfo) { e.H264.StdPictureInfo.RefLists.RefPicList0[0] = 2 },
			rules:  []string{RuleRefListEntry},
		},
		{
			name:   "too many active L0 entries",
			mutate: func(e *EncodeInfo) { e.H264.StdPictureInfo.RefLists.NumRefIdxL0ActiveMinus1 = 4 },
			rules:  []string{RuleRefListCount},
		},
		{
			name:   "IDR type without the IDR flag",
			mutate: func(e *EncodeInfo) { e.H264.StdPictureInfo.PrimaryPicType = std.H264PictureTypeIDR },
			rules:  []string{RuleIdrFlag, RuleIntraReferences},
		},
		{
			name: "B picture in L1",
			mutate: func(e *EncodeInfo) {
				e.H264.StdPictureInfo.PrimaryPicType = std.H264PictureTypeB
				e.ReferenceSlots[0].H264.PrimaryPicType = std.H264PictureTypeB
			},
			rules: []string{RuleBFrameInList},
		},
		{
			name:   "prefix NAL unit unsupported",
			mutate: func(e *EncodeInfo) { e.H264.GeneratePrefixNalu = true },
			rules:  []string{RulePrefixNalu},
		},
		{
			name: "too many slices",
			mutate: func(e *EncodeInfo) {
				for range 8 {
					e.H264.Slices = append(e.H264.Slices, e.H264.Slices[0])
				}
			},
			rules: []string{RuleSliceCount},
		},
		{
			name:   "missing slice header",
			mutate: func(e *EncodeInfo) { e.H264.Slices[0].StdSliceHeader = nil },
			rules:  []string{RuleSliceHeader},
		},
		{
			name:   "constant QP with rate control enabled",
			mutate: func(e *EncodeInfo) { e.H264.Slices[0].ConstantQp = 20 },
			rules:  []string{RuleConstantQpRateControl},
		},
		{
			name:   "preceding bytes unsupported",
			mutate: func(e *EncodeInfo) { e.PrecedingExternallyEncodedBytes = 10 },
			rules:  []string{RulePrecedingBytes},
		},
		{
			name:   "missing picture info",
			mutate: func(e *EncodeInfo) { e.H264.StdPictureInfo = nil },
			rules:  []string{RuleMissingPictureInfo},
		},
		{
			name:   "unknown source picture view",
			mutate: func(e *EncodeInfo) { e.SrcPicture.ImageView = 99 },
			rules:  []string{RulePictureView},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H264EncodeProfile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			setup := frameRef(1, 1)
			info := h264Encode(std.H264PictureTypeP, &setup, frameRef(0, 0))
			tc.mutate(&info)
			require.Equal(t, tc.rules, f.recorder.EncodeVideo(info).Rules())
		})
	}
}

func TestConstantQpWithRateControlDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264EncodeProfile, 0)
	f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
	require.Empty(t, f.recorder.ControlVideoCoding(ControlInfo{
		Flags:       ControlEncodeRateControl,
		RateControl: &RateControlInfo{Mode: profile.RateControlDisabled},
	}))
	rc, ok := f.recorder.RateControl()
	require.True(t, ok)
	require.Equal(t, profile.RateControlDisabled, rc.Mode)

	setup := frameRef(0, 0)
	info := h264Encode(std.H264PictureTypeIDR, &setup)
	info.H264.Slices[0].ConstantQp = 26
	require.Empty(t, f.recorder.EncodeVideo(info))

	info.H264.Slices[0].ConstantQp = 60
	require.Equal(t, []string{RuleConstantQp}, f.recorder.EncodeVideo(info).Rules())

	info.H264.Slices = []H264Slice{
		{ConstantQp: 20, StdSliceHeader: &std.H264SliceHeader{}},
		{ConstantQp: 22, StdSliceHeader: &std.H264SliceHeader{}},
	}
	require.Equal(t, []string{RuleConstantQpUniform}, f.recorder.EncodeVideo(info).Rules())
}

func cbr(average, peak uint64) *RateControlInfo {
	return &RateControlInfo{
		Mode: profile.RateControlCBR,
		Layers: []RateControlLayer{{
			AverageBitrate: average, MaxBitrate: peak, FrameRateNumerator: 30, FrameRateDenominator: 1,
		}},
		VirtualBufferSizeInMs:        1000,
		InitialVirtualBufferSizeInMs: 500,
	}
}

func TestBeginWithCBRRateControl(t *testing.T) {
	t.Parallel()

	f := newFixture(t, profile.H264EncodeProfile, 0)
	diags := f.recorder.BeginVideoCoding(BeginInfo{Session: f.session, Parameters: f.params, RateControl: cbr(4_000_000, 5_000_000)})
	require.Equal(t, []string{RuleRateControlCBR}, diags.Rules())
	rc, _ := f.recorder.RateControl()
	require.Equal(t, profile.RateControlDefault, rc.Mode)

	f.recorder.Reset()
	diags = f.recorder.BeginVideoCoding(BeginInfo{Session: f.session, Parameters: f.params, RateControl: cbr(4_000_000, 4_000_000)})
	require.Empty(t, diags)
	rc, _ = f.recorder.RateControl()
	require.Equal(t, profile.RateControlCBR, rc.Mode)
	require.Equal(t, 1, rc.LayerCount)

	require.Empty(t, f.recorder.ControlVideoCoding(ControlInfo{Flags: ControlReset}))
	rc, _ = f.recorder.RateControl()
	require.Equal(t, profile.RateControlDefault, rc.Mode)
}

func TestQuantizationMap(t *testing.T) {
	t.Parallel()

	const mapView vkvideo.Handle = 30
	texel := vkvideo.Extent2D{Width: 16, Height: 16}

	for _, tc := range []struct {
		name   string
		flags  EncodeFlags
		extent vkvideo.Extent2D
		rules  []string
	}{
		{name: "delta map", flags: EncodeWithQuantizationDeltaMap, extent: vkvideo.Extent2D{Width: 120, Height: 68}},
		{
			name: "delta map too small", flags: EncodeWithQuantizationDeltaMap,
			extent: vkvideo.Extent2D{Width: 100, Height: 68},
			rules:  []string{RuleQuantizationMapExtent},
		},
		{
			name: "emphasis map", flags: EncodeWithEmphasisMap,
			extent: vkvideo.Extent2D{Width: 120, Height: 68},
			rules: []string{
				RuleEmphasisMapRateControl, RuleQuantizationMapSession, RuleQuantizationMapParams, RuleQuantizationMapUsage,
			},
		},
		{
			name: "both maps", flags: EncodeWithQuantizationDeltaMap | EncodeWithEmphasisMap,
			rules: []string{RuleQuantizationMapFlags},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H264EncodeProfile, session.CreateAllowEncodeQuantizationDeltaMap)
			p, diags := params.Create(3, f.session, params.CreateInfo{
				QuantizationMap: &params.QuantizationMapInfo{Kind: params.QuantizationMapDelta, TexelSize: texel},
				H264: &params.H264CreateInfo{MaxStdSPSCount: 1, MaxStdPPSCount: 1, Add: &params.H264AddInfo{
					SPS: []std.H264SequenceParameterSet{{}},
					PPS: []std.H264PictureParameterSet{{}},
				}},
			})
			require.Empty(t, diags)
			f.params = p
			f.store.AddImageView(resource.ImageView{
				Handle: mapView, Image: 130, Usage: resource.ImageUsageQuantizationDeltaMap,
				Extent: vkvideo.Extent2D{Width: 120, Height: 68}, LayerCount: 1,
				Profiles: []profile.Profile{profile.H264EncodeProfile}, TexelSize: texel,
			})

			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
			setup := frameRef(0, 0)
			info := h264Encode(std.H264PictureTypeIDR, &setup)
			info.Flags = tc.flags
			info.QuantizationMap = &QuantizationMap{ImageView: mapView, Extent: tc.extent}
			require.Equal(t, tc.rules, f.recorder.EncodeVideo(info).Rules())
		})
	}
}

func h265Ref(slot int32, view int, temporalID uint8) ReferenceSlot {
	return ReferenceSlot{SlotIndex: slot, Picture: picRef(view), H265: &std.H265ReferenceInfo{TemporalID: temporalID}}
}

func h265Encode(setup *ReferenceSlot, refs ...ReferenceSlot) EncodeInfo {
	return EncodeInfo{
		DstBuffer:          dstBuffer,
		DstBufferRange:     256,
		SrcPicture:         pic(srcView),
		SetupReferenceSlot: setup,
		ReferenceSlots:     refs,
		H265: &H265EncodeInfo{
			StdPictureInfo: &std.H265EncodePictureInfo{
				Flags:    std.H265EncodePictureInfoFlags{IsReference: true},
				PicType:  std.H265PictureTypeP,
				RefLists: &std.H265ReferenceListsInfo{},
			},
			SliceSegments: []H265SliceSegment{{StdSliceSegmentHeader: &std.H265SliceSegmentHeader{SliceType: std.H265SliceTypeP}}},
		},
	}
}

func TestH265EncodeChecks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		mutate func(*EncodeInfo)
		rules  []string
	}{
		{name: "valid", mutate: func(*EncodeInfo) {}},
		{
			name:   "temporal id above the sub-layer count",
			mutate: func(e *EncodeInfo) { e.H265.StdPictureInfo.TemporalID = 4 },
			rules:  []string{RuleTemporalID},
		},
		{
			name:   "reference from a higher temporal layer",
			mutate: func(e *EncodeInfo) { e.ReferenceSlots[0].H265.TemporalID = 1 },
			rules:  []string{RuleTemporalID},
		},
		{
			name: "IDR must be IRAP",
			mutate: func(e *EncodeInfo) {
				e.H265.StdPictureInfo.PicType = std.H265PictureTypeIDR
				e.ReferenceSlots = nil
			},
			rules: []string{RuleIdrFlag},
		},
		{
			name:   "unknown PPS",
			mutate: func(e *EncodeInfo) { e.H265.StdPictureInfo.PpsPicParameterSetID = 3 },
			rules:  []string{RuleMissingParameterSet},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H265EncodeProfile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			setup := h265Ref(1, 1, 0)
			info := h265Encode(&setup, h265Ref(0, 0, 0))
			tc.mutate(&info)
			diags := f.recorder.EncodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func noNames() [std.AV1RefsPerFrame]int32 {
	var names [std.AV1RefsPerFrame]int32
	for i := range names {
		names[i] = -1
	}
	return names
}

func TestAV1EncodeChecks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		mutate func(*AV1EncodeInfo)
		rules  []string
	}{
		{name: "single reference", mutate: func(*AV1EncodeInfo) {}},
		{
			name:   "two names for single reference prediction",
			mutate: func(a *AV1EncodeInfo) { a.ReferenceNameSlotIndices[1] = 0 },
			rules:  []string{RuleAV1ReferenceCount},
		},
		{
			name: "name outside the unidirectional mask",
			mutate: func(a *AV1EncodeInfo) {
				a.PredictionMode = AV1PredictionUnidirectionalCompound
				a.ReferenceNameSlotIndices[0] = -1
				a.ReferenceNameSlotIndices[int(std.AV1ReferenceAltref2)] = 0
			},
			rules: []string{RuleAV1ReferenceNameMask},
		},
		{
			name:   "intra-only prediction with references",
			mutate: func(a *AV1EncodeInfo) { a.PredictionMode = AV1PredictionIntraOnly },
			rules:  []string{RuleAV1PredictionMode},
		},
		{
			name:   "key frame with inter prediction",
			mutate: func(a *AV1EncodeInfo) { a.StdPictureInfo.FrameType = std.AV1FrameTypeKey },
			rules:  []string{RuleAV1PredictionMode},
		},
		{
			name:   "OBU extension header unsupported",
			mutate: func(a *AV1EncodeInfo) { a.GenerateObuExtensionHeader = true },
			rules:  []string{RuleAV1CapabilityFlag},
		},
		{
			name:   "too many tile columns",
			mutate: func(a *AV1EncodeInfo) { a.StdPictureInfo.TileInfo = &std.AV1TileInfo{TileCols: 9, TileRows: 1} },
			rules:  []string{RuleAV1TileCount},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.AV1EncodeProfile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			names := noNames()
			names[0] = 0
			av1 := &AV1EncodeInfo{
				StdPictureInfo:           &std.AV1EncodePictureInfo{FrameType: std.AV1FrameTypeInter, RefreshFrameFlags: 1},
				PredictionMode:           AV1PredictionSingleReference,
				ReferenceNameSlotIndices: names,
			}
			tc.mutate(av1)
			diags := f.recorder.EncodeVideo(EncodeInfo{
				DstBuffer:          dstBuffer,
				DstBufferRange:     256,
				SrcPicture:         pic(srcView),
				SetupReferenceSlot: &ReferenceSlot{SlotIndex: 1, Picture: picRef(1), AV1: &std.AV1ReferenceInfo{}},
				ReferenceSlots:     []ReferenceSlot{{SlotIndex: 0, Picture: picRef(0), AV1: &std.AV1ReferenceInfo{}}},
				AV1:                av1,
			})
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestH264SlicesFitMacroblocks(t *testing.T) {
	t.Parallel()

	rowUnaligned := adjusted(t, profile.H264EncodeProfile, func(c *profile.Capabilities) {
		c.H264Encode.Flags |= profile.H264EncodeRowUnalignedSlice
	})
	for _, tc := range []struct {
		name   string
		res    *profile.Resolver
		extent vkvideo.Extent2D
		slices int
		rules  []string
	}{
		{name: "one slice per macroblock row", res: resolver, extent: vkvideo.Extent2D{Width: 32, Height: 32}, slices: 2},
		{
			name: "more slices than macroblock rows", res: resolver,
			extent: vkvideo.Extent2D{Width: 32, Height: 32}, slices: 3,
			rules: []string{RuleH264SliceExtent},
		},
		{
			name: "six slices in two macroblocks", res: resolver,
			extent: vkvideo.Extent2D{Width: 16, Height: 32}, slices: 6,
			rules: []string{RuleH264SliceExtent},
		},
		{
			name: "row unaligned slices within the macroblock count", res: rowUnaligned,
			extent: vkvideo.Extent2D{Width: 32, Height: 32}, slices: 4,
		},
		{
			name: "row unaligned slices past the macroblock count", res: rowUnaligned,
			extent: vkvideo.Extent2D{Width: 32, Height: 32}, slices: 5,
			rules: []string{RuleH264SliceExtent},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixtureWith(t, tc.res, sessionInfo(profile.H264EncodeProfile, 0))
			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
			setup := frameRef(0, 0)
			info := h264Encode(std.H264PictureTypeIDR, &setup)
			info.SrcPicture.CodedExtent = tc.extent
			for range tc.slices - 1 {
				info.H264.Slices = append(info.H264.Slices, info.H264.Slices[0])
			}
			diags := f.recorder.EncodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestH265SegmentsFitCodingTreeBlocks(t *testing.T) {
	t.Parallel()

	rowUnaligned := adjusted(t, profile.H265EncodeProfile, func(c *profile.Capabilities) {
		c.H265Encode.Flags |= profile.H265EncodeRowUnalignedSliceSegment
	})
	// The parameters select 32x32 CTBs, so a 64x32 picture is one row of two CTBs.
	extent := vkvideo.Extent2D{Width: 64, Height: 32}
	for _, tc := range []struct {
		name     string
		res      *profile.Resolver
		segments int
		rules    []string
	}{
		{name: "one segment per CTB row", res: resolver, segments: 1},
		{name: "two segments in one CTB row", res: resolver, segments: 2, rules: []string{RuleH265SegmentExtent}},
		{name: "row unaligned segments within the CTB count", res: rowUnaligned, segments: 2},
		{name: "row unaligned segments past the CTB count", res: rowUnaligned, segments: 3, rules: []string{RuleH265SegmentExtent}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixtureWith(t, tc.res, sessionInfo(profile.H265EncodeProfile, 0))
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			setup := h265Ref(1, 1, 0)
			info := h265Encode(&setup, h265Ref(0, 0, 0))
			info.SrcPicture.CodedExtent = extent
			for range tc.segments - 1 {
				info.H265.SliceSegments = append(info.H265.SliceSegments, info.H265.SliceSegments[0])
			}
			diags := f.recorder.EncodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

// tiledH265Params creates parameters whose PPS splits pictures into two tile columns.
func tiledH265Params(t *testing.T, f *fixture) *params.Parameters {
	t.Helper()
	p, diags := params.Create(3, f.session, params.CreateInfo{
		H265: &params.H265CreateInfo{MaxStdVPSCount: 1, MaxStdSPSCount: 1, MaxStdPPSCount: 1, Add: &params.H265AddInfo{
			VPS: []std.H265VideoParameterSet{{}},
			SPS: []std.H265SequenceParameterSet{{Log2MinLumaCodingBlockSizeMinus3: 0, Log2DiffMaxMinLumaCodingBlockSize: 2}},
			PPS: []std.H265PictureParameterSet{{Flags: std.H265PpsFlags{TilesEnabled: true}, NumTileColumnsMinus1: 1}},
		}},
	})
	require.Empty(t, diags)
	return p
}

func TestH265SegmentsPerTile(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		segments int
		rules    []string
	}{
		{name: "one segment spanning both tiles", segments: 1},
		{name: "one segment per tile", segments: 2},
		{name: "several segments in a tile", segments: 3, rules: []string{RuleH265Tiles}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.H265EncodeProfile, 0)
			f.params = tiledH265Params(t, f)
			f.begin(t, ReferenceSlot{SlotIndex: 0, Picture: picRef(0)}, ReferenceSlot{SlotIndex: -1, Picture: picRef(1)})
			setup := h265Ref(1, 1, 0)
			info := h265Encode(&setup, h265Ref(0, 0, 0))
			for range tc.segments - 1 {
				info.H265.SliceSegments = append(info.H265.SliceSegments, info.H265.SliceSegments[0])
			}
			diags := f.recorder.EncodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func av1Encode(tiles *std.AV1TileInfo) EncodeInfo {
	return EncodeInfo{
		DstBuffer:          dstBuffer,
		DstBufferRange:     256,
		SrcPicture:         pic(srcView),
		SetupReferenceSlot: &ReferenceSlot{SlotIndex: 0, Picture: picRef(0), AV1: &std.AV1ReferenceInfo{}},
		AV1: &AV1EncodeInfo{
			StdPictureInfo:           &std.AV1EncodePictureInfo{FrameType: std.AV1FrameTypeKey, RefreshFrameFlags: 0xff, TileInfo: tiles},
			PredictionMode:           AV1PredictionIntraOnly,
			ReferenceNameSlotIndices: noNames(),
		},
	}
}

func TestAV1TilesFitSuperblocks(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		extent vkvideo.Extent2D
		tiles  std.AV1TileInfo
		rules  []string
	}{
		{name: "one tile", extent: vkvideo.Extent2D{Width: 64, Height: 64}, tiles: std.AV1TileInfo{TileCols: 1, TileRows: 1}},
		{name: "one tile per superblock", extent: vkvideo.Extent2D{Width: 128, Height: 64}, tiles: std.AV1TileInfo{TileCols: 2, TileRows: 1}},
		{
			name: "more tile columns than superblocks", extent: vkvideo.Extent2D{Width: 64, Height: 64},
			tiles: std.AV1TileInfo{TileCols: 2, TileRows: 1},
			rules: []string{RuleAV1TileExtent},
		},
		{
			name: "partial superblock row counts", extent: vkvideo.Extent2D{Width: 64, Height: 72},
			tiles: std.AV1TileInfo{TileCols: 1, TileRows: 2},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.AV1EncodeProfile, 0)
			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
			info := av1Encode(&tc.tiles)
			info.SrcPicture.CodedExtent = tc.extent
			diags := f.recorder.EncodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}

func TestTiledEncodeQueryCount(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		tiles  *std.AV1TileInfo
		active *activeQuery
		inline *InlineQuery
		rules  []string
	}{
		{name: "untiled frame", inline: &InlineQuery{Pool: 41, QueryCount: 1}},
		{
			name: "one query for two tiles", tiles: &std.AV1TileInfo{TileCols: 2, TileRows: 1},
			inline: &InlineQuery{Pool: 41, QueryCount: 1}, rules: []string{RuleQueryCount},
		},
		{
			name: "one query per tile", tiles: &std.AV1TileInfo{TileCols: 2, TileRows: 1},
			inline: &InlineQuery{Pool: 41, QueryCount: 2},
		},
		{
			name: "active query leaves room for every tile", tiles: &std.AV1TileInfo{TileCols: 2, TileRows: 1},
			active: &activeQuery{pool: 41, query: 2},
		},
		{
			name: "active query runs past the pool", tiles: &std.AV1TileInfo{TileCols: 2, TileRows: 1},
			active: &activeQuery{pool: 41, query: 3}, rules: []string{RuleQueryRange},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, profile.AV1EncodeProfile, session.CreateInlineQueries)
			prof := profile.AV1EncodeProfile
			f.store.AddQueryPool(resource.QueryPool{
				Handle: 41, Type: resource.QueryTypeEncodeFeedback, Count: 4, Profile: &prof,
				FeedbackFlags: profile.EncodeFeedbackBitstreamBytesWritten,
			})
			f.begin(t, ReferenceSlot{SlotIndex: -1, Picture: picRef(0)})
			if tc.active != nil {
				f.recorder.BeginQuery(tc.active.pool, tc.active.query)
			}
			info := av1Encode(tc.tiles)
			info.InlineQuery = tc.inline
			diags := f.recorder.EncodeVideo(info)
			if tc.rules == nil {
				require.Empty(t, diags)
				return
			}
			require.Equal(t, tc.rules, diags.Rules())
		})
	}
}
