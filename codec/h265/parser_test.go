package h265

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/vkvideo/std"
	"github.com/ugparu/vkvideo/utils/nal"
)

const (
	testVPS = "40013c01ffff01600000030090000003000003005d170240"
	testSPS = "42013101600000030090000003000003005da003c0801107cb965e49366bdb60b09480"
	testPPS = "4401e12892b093f0"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestParseVPS(t *testing.T) {
	t.Parallel()

	vps, err := ParseVPS(unhex(t, testVPS))
	require.NoError(t, err)
	require.Equal(t, std.H265VideoParameterSet{
		VpsVideoParameterSetID: 3,
		VpsTemporalIDNesting:   true,
		GeneralProfileIdc:      std.H265ProfileIdcMain,
		GeneralLevelIdc:        93,
	}, vps)
}

func TestParseSPS(t *testing.T) {
	t.Parallel()

	sps, err := ParseSPS(unhex(t, testSPS))
	require.NoError(t, err)
	require.Equal(t, std.H265SequenceParameterSet{
		SpsVideoParameterSetID:               3,
		GeneralProfileIdc:                    std.H265ProfileIdcMain,
		GeneralLevelIdc:                      93,
		ChromaFormatIdc:                      1,
		PicWidthInLumaSamples:                1920,
		PicHeightInLumaSamples:               1088,
		Log2MaxPicOrderCntLsbMinus4:          4,
		Log2DiffMaxMinLumaCodingBlockSize:    3,
		Log2DiffMaxMinLumaTransformBlockSize: 3,
		NumShortTermRefPicSets:               2,
		NumLongTermRefPicsSps:                2,
	}, sps)
	require.Equal(t, uint32(6), sps.CtbLog2Size())
}

func TestParsePPS(t *testing.T) {
	t.Parallel()

	pps, err := ParsePPS(unhex(t, testPPS))
	require.NoError(t, err)
	require.Equal(t, std.H265PictureParameterSet{
		Flags: std.H265PpsFlags{
			DependentSliceSegmentsEnabled: true,
			SignDataHiding:                true,
			CuQpDeltaEnabled:              true,
			TilesEnabled:                  true,
			UniformSpacing:                true,
			LoopFilterAcrossTilesEnabled:  true,
		},
		NumRefIdxL0DefaultActiveMinus1: 1,
		InitQpMinus26:                  -4,
		NumTileColumnsMinus1:           1,
		NumTileRowsMinus1:              2,
	}, pps)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseVPS([]byte{0x40, 0x01})
	require.ErrorIs(t, err, ErrNaluSize)
	_, err = ParseSPS(unhex(t, testPPS))
	require.ErrorIs(t, err, ErrNaluType)
	_, err = ParseSPS(unhex(t, testSPS)[:12])
	require.Error(t, err)
	require.Equal(t, byte(NalVPS), NaluType(unhex(t, testVPS)))
}

func TestAddInfoFromAnnexB(t *testing.T) {
	t.Parallel()

	add, err := AddInfoFromAnnexB(nal.AnnexB(
		unhex(t, testVPS),
		unhex(t, testSPS),
		[]byte{0x4e, 0x01, 0x05, 0x80}, // SEI
		unhex(t, testPPS),
	))
	require.NoError(t, err)
	require.Len(t, add.VPS, 1)
	require.Len(t, add.SPS, 1)
	require.Len(t, add.PPS, 1)
	require.Equal(t, uint8(3), add.PPS[0].SpsVideoParameterSetID)

	_, err = AddInfoFromAnnexB(nal.AnnexB(unhex(t, testVPS), unhex(t, testPPS)))
	require.ErrorIs(t, err, ErrUnknownSPS)

	_, err = AddInfoFromAnnexB(nal.AnnexB([]byte{0x26, 0x01, 0xaf}))
	require.ErrorIs(t, err, ErrNoParameterSet)
}
