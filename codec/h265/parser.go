// Package h265 turns H.265 parameter set NAL units into the structures session parameters are
// created and updated with.
//
//nolint:mnd // Field widths and ranges come from ITU-T H.265 7.3.
package h265

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ugparu/vkvideo/params"
	"github.com/ugparu/vkvideo/std"
	"github.com/ugparu/vkvideo/utils/bits"
	"github.com/ugparu/vkvideo/utils/logger"
	"github.com/ugparu/vkvideo/utils/nal"
)

const (
	NalVPS = 32
	NalSPS = 33
	NalPPS = 34
)

const maxShortTermRefPicSets = 64

var (
	ErrNaluSize       = errors.New("h265parser: NAL unit too short")
	ErrNaluType       = errors.New("h265parser: unexpected NAL unit type")
	ErrRefPicSets     = errors.New("h265parser: invalid short term reference picture set")
	ErrUnknownSPS     = errors.New("h265parser: PPS refers to an SPS not in the stream")
	ErrNoParameterSet = errors.New("h265parser: no VPS, SPS or PPS found")
)

// NaluType returns the nal_unit_type of a NAL unit.
func NaluType(nalu []byte) byte {
	if len(nalu) == 0 {
		return 0
	}
	return (nalu[0] >> 1) & 0x3f
}

func reader(nalu []byte, typ byte) (*fieldReader, error) {
	if len(nalu) < 3 {
		return nil, ErrNaluSize
	}
	if NaluType(nalu) != typ {
		return nil, fmt.Errorf("%w: %d, want %d", ErrNaluType, NaluType(nalu), typ)
	}
	return &fieldReader{br: &bits.GolombBitReader{R: bytes.NewReader(nal.ToRBSP(nalu[2:]))}}, nil
}

type fieldReader struct {
	br  *bits.GolombBitReader
	err error
}

func (f *fieldReader) ue() uint {
	if f.err != nil {
		return 0
	}
	var v uint
	v, f.err = f.br.ReadExponentialGolombCode()
	return v
}

func (f *fieldReader) se() int {
	if f.err != nil {
		return 0
	}
	var v int
	v, f.err = f.br.ReadSE()
	return v
}

func (f *fieldReader) u(n int) uint {
	if f.err != nil {
		return 0
	}
	var v uint
	v, f.err = f.br.ReadBits(n)
	return v
}

func (f *fieldReader) skip(n uint) {
	if f.err != nil {
		return
	}
	_, f.err = f.br.ReadBits64(n)
}

func (f *fieldReader) flag() bool {
	return f.u(1) == 1
}

type profileTierLevel struct {
	profileIdc std.H265ProfileIdc
	levelIdc   std.H265LevelIdc
}

// parsePTL reads profile_tier_level(1, maxSubLayersMinus1) and keeps the general profile and level.
//
//nolint:gosec // Values are range checked by the bitstream syntax.
func parsePTL(f *fieldReader, maxSubLayersMinus1 uint) (ptl profileTierLevel) {
	f.u(2) // general_profile_space
	f.u(1) // general_tier_flag
	ptl.profileIdc = std.H265ProfileIdc(f.u(5))
	f.skip(32) // general_profile_compatibility_flag
	f.skip(48) // general_constraint_indicator_flags
	ptl.levelIdc = std.H265LevelIdc(f.u(8))
	if maxSubLayersMinus1 == 0 {
		return
	}
	profilePresent := make([]bool, maxSubLayersMinus1)
	levelPresent := make([]bool, maxSubLayersMinus1)
	for i := range maxSubLayersMinus1 {
		profilePresent[i] = f.flag()
		levelPresent[i] = f.flag()
	}
	for i := maxSubLayersMinus1; i < 8; i++ {
		f.u(2) // reserved_zero_2bits
	}
	for i := range maxSubLayersMinus1 {
		if profilePresent[i] {
			f.skip(88) // sub_layer profile space to constraint indicator flags
		}
		if levelPresent[i] {
			f.skip(8) // sub_layer_level_idc
		}
	}
	return
}

// ParseVPS parses the leading fields of a video_parameter_set_rbsp.
//
//nolint:gosec // Values are range checked by the bitstream syntax.
func ParseVPS(nalu []byte) (vps std.H265VideoParameterSet, err error) {
	f, err := reader(nalu, NalVPS)
	if err != nil {
		return
	}
	vps.VpsVideoParameterSetID = uint8(f.u(4))
	f.u(1) // vps_base_layer_internal_flag
	f.u(1) // vps_base_layer_available_flag
	f.u(6) // vps_max_layers_minus1
	vps.VpsMaxSubLayersMinus1 = uint8(f.u(3))
	vps.VpsTemporalIDNesting = f.flag()
	f.u(16) // vps_reserved_0xffff_16bits
	ptl := parsePTL(f, uint(vps.VpsMaxSubLayersMinus1))
	vps.GeneralProfileIdc, vps.GeneralLevelIdc = ptl.profileIdc, ptl.levelIdc
	if f.err != nil {
		err = fmt.Errorf("h265parser: parse VPS failed(%w)", f.err)
	}
	return
}

func skipScalingListData(f *fieldReader) {
	for sizeID := range 4 {
		step := 1
		if sizeID == 3 {
			step = 3
		}
		for matrixID := 0; matrixID < 6; matrixID += step {
			if !f.flag() { // scaling_list_pred_mode_flag
				f.ue() // scaling_list_pred_matrix_id_delta
				continue
			}
			coefs := min(64, 1<<(4+(sizeID<<1)))
			if sizeID > 1 {
				f.se() // scaling_list_dc_coef_minus8
			}
			for i := 0; i < coefs && f.err == nil; i++ {
				f.se()
			}
		}
	}
}

// parseShortTermRefPicSets reads every st_ref_pic_set of an SPS. Only the number of pictures
// per set is tracked, since inter-predicted sets refer back to it.
func parseShortTermRefPicSets(f *fieldReader, num uint) error {
	numDeltaPocs := make([]uint, num)
	for idx := range num {
		if f.err != nil {
			return nil
		}
		if idx != 0 && f.flag() { // inter_ref_pic_set_prediction_flag
			f.u(1) // delta_rps_sign
			f.ue() // abs_delta_rps_minus1
			ref := numDeltaPocs[idx-1]
			var count uint
			for j := uint(0); j <= ref && f.err == nil; j++ {
				used := f.flag()
				if used || f.flag() { // use_delta_flag
					count++
				}
			}
			numDeltaPocs[idx] = count
			continue
		}
		negative, positive := f.ue(), f.ue()
		if negative+positive > 16 {
			return fmt.Errorf("%w: %d pictures in set %d", ErrRefPicSets, negative+positive, idx)
		}
		for range negative + positive {
			f.ue() // delta_poc_minus1
			f.u(1) // used_by_curr_pic_flag
		}
		numDeltaPocs[idx] = negative + positive
	}
	return nil
}

// ParseSPS parses a seq_parameter_set_rbsp up to the long term reference pictures.
//
//nolint:gosec // Values are range checked by the bitstream syntax.
func ParseSPS(nalu []byte) (sps std.H265SequenceParameterSet, err error) {
	f, err := reader(nalu, NalSPS)
	if err != nil {
		return
	}
	sps.SpsVideoParameterSetID = uint8(f.u(4))
	sps.SpsMaxSubLayersMinus1 = uint8(f.u(3))
	f.u(1) // sps_temporal_id_nesting_flag
	ptl := parsePTL(f, uint(sps.SpsMaxSubLayersMinus1))
	sps.GeneralProfileIdc, sps.GeneralLevelIdc = ptl.profileIdc, ptl.levelIdc
	sps.SpsSeqParameterSetID = uint8(f.ue())
	sps.ChromaFormatIdc = uint32(f.ue())
	if sps.ChromaFormatIdc == 3 {
		f.u(1) // separate_colour_plane_flag
	}
	sps.PicWidthInLumaSamples = uint32(f.ue())
	sps.PicHeightInLumaSamples = uint32(f.ue())
	if f.flag() { // conformance_window_flag
		f.ue()
		f.ue()
		f.ue()
		f.ue()
	}
	sps.BitDepthLumaMinus8 = uint8(f.ue())
	sps.BitDepthChromaMinus8 = uint8(f.ue())
	sps.Log2MaxPicOrderCntLsbMinus4 = uint8(f.ue())
	first := uint(sps.SpsMaxSubLayersMinus1)
	if f.flag() { // sps_sub_layer_ordering_info_present_flag
		first = 0
	}
	for i := first; i <= uint(sps.SpsMaxSubLayersMinus1) && f.err == nil; i++ {
		f.ue() // sps_max_dec_pic_buffering_minus1
		f.ue() // sps_max_num_reorder_pics
		f.ue() // sps_max_latency_increase_plus1
	}
	sps.Log2MinLumaCodingBlockSizeMinus3 = uint8(f.ue())
	sps.Log2DiffMaxMinLumaCodingBlockSize = uint8(f.ue())
	sps.Log2MinLumaTransformBlockSizeMinus2 = uint8(f.ue())
	sps.Log2DiffMaxMinLumaTransformBlockSize = uint8(f.ue())
	f.ue() // max_transform_hierarchy_depth_inter
	f.ue() // max_transform_hierarchy_depth_intra

	if f.flag() && f.flag() { // scaling_list_enabled_flag, sps_scaling_list_data_present_flag
		skipScalingListData(f)
	}
	f.u(1) // amp_enabled_flag
	f.u(1) // sample_adaptive_offset_enabled_flag

	if f.flag() { // pcm_enabled_flag
		f.u(4) // pcm_sample_bit_depth_luma_minus1
		f.u(4) // pcm_sample_bit_depth_chroma_minus1
		f.ue() // log2_min_pcm_luma_coding_block_size_minus3
		f.ue() // log2_diff_max_min_pcm_luma_coding_block_size
		f.u(1) // pcm_loop_filter_disabled_flag
	}
	sets := f.ue()
	if sets > maxShortTermRefPicSets {
		return sps, fmt.Errorf("%w: %d sets", ErrRefPicSets, sets)
	}
	sps.NumShortTermRefPicSets = uint8(sets)
	if err = parseShortTermRefPicSets(f, sets); err != nil {
		return
	}
	if f.flag() { // long_term_ref_pics_present_flag
		lt := f.ue()
		if lt > 32 {
			return sps, fmt.Errorf("h265parser: %d long term reference pictures", lt)
		}
		sps.NumLongTermRefPicsSps = uint8(lt)
		lsbBits := int(sps.Log2MaxPicOrderCntLsbMinus4) + 4
		for i := uint(0); i < lt && f.err == nil; i++ {
			f.u(lsbBits) // lt_ref_pic_poc_lsb_sps
			f.u(1)       // used_by_curr_pic_lt_sps_flag
		}
	}
	if f.err != nil {
		err = fmt.Errorf("h265parser: parse SPS failed(%w)", f.err)
	}
	return
}

// ParsePPS parses a pic_parameter_set_rbsp up to the tile layout. SpsVideoParameterSetID is
// left zero, since the PPS does not carry it.
//
//nolint:gosec // Values are range checked by the bitstream syntax.
func ParsePPS(nalu []byte) (pps std.H265PictureParameterSet, err error) {
	f, err := reader(nalu, NalPPS)
	if err != nil {
		return
	}
	pps.PpsPicParameterSetID = uint8(f.ue())
	pps.PpsSeqParameterSetID = uint8(f.ue())
	pps.Flags.DependentSliceSegmentsEnabled = f.flag()
	f.u(1) // output_flag_present_flag
	f.u(3) // num_extra_slice_header_bits
	pps.Flags.SignDataHiding = f.flag()
	pps.Flags.CabacInitPresent = f.flag()
	pps.NumRefIdxL0DefaultActiveMinus1 = uint8(f.ue())
	pps.NumRefIdxL1DefaultActiveMinus1 = uint8(f.ue())
	pps.InitQpMinus26 = int8(f.se())
	pps.Flags.ConstrainedIntraPred = f.flag()
	pps.Flags.TransformSkipEnabled = f.flag()
	if pps.Flags.CuQpDeltaEnabled = f.flag(); pps.Flags.CuQpDeltaEnabled {
		f.ue() // diff_cu_qp_delta_depth
	}
	f.se() // pps_cb_qp_offset
	f.se() // pps_cr_qp_offset
	f.u(1) // pps_slice_chroma_qp_offsets_present_flag
	f.u(1) // weighted_pred_flag
	f.u(1) // weighted_bipred_flag
	f.u(1) // transquant_bypass_enabled_flag
	pps.Flags.TilesEnabled = f.flag()
	pps.Flags.EntropyCodingSyncEnabled = f.flag()
	if pps.Flags.TilesEnabled {
		pps.NumTileColumnsMinus1 = uint8(f.ue())
		pps.NumTileRowsMinus1 = uint8(f.ue())
		if pps.Flags.UniformSpacing = f.flag(); !pps.Flags.UniformSpacing {
			for i := 0; i < int(pps.NumTileColumnsMinus1) && f.err == nil; i++ {
				f.ue() // column_width_minus1
			}
			for i := 0; i < int(pps.NumTileRowsMinus1) && f.err == nil; i++ {
				f.ue() // row_height_minus1
			}
		}
		pps.Flags.LoopFilterAcrossTilesEnabled = f.flag()
	}
	if f.err != nil {
		err = fmt.Errorf("h265parser: parse PPS failed(%w)", f.err)
	}
	return
}

// AddInfoFromAnnexB collects every VPS, SPS and PPS of an Annex-B (or HVCC-style length
// prefixed) stream. Each PPS takes its VPS id from the SPS it refers to, which must come earlier
// in the stream.
func AddInfoFromAnnexB(data []byte) (add params.H265AddInfo, err error) {
	nalus, format := nal.SplitNALUs(data)
	vpsOf := map[uint8]uint8{}
	for _, nalu := range nalus {
		switch NaluType(nalu) {
		case NalVPS:
			vps, err := ParseVPS(nalu)
			if err != nil {
				return add, err
			}
			add.VPS = append(add.VPS, vps)
		case NalSPS:
			sps, err := ParseSPS(nalu)
			if err != nil {
				return add, err
			}
			vpsOf[sps.SpsSeqParameterSetID] = sps.SpsVideoParameterSetID
			add.SPS = append(add.SPS, sps)
		case NalPPS:
			pps, err := ParsePPS(nalu)
			if err != nil {
				return add, err
			}
			vps, ok := vpsOf[pps.PpsSeqParameterSetID]
			if !ok {
				return add, fmt.Errorf("%w: pps %d sps %d", ErrUnknownSPS, pps.PpsPicParameterSetID, pps.PpsSeqParameterSetID)
			}
			pps.SpsVideoParameterSetID = vps
			add.PPS = append(add.PPS, pps)
		}
	}
	if len(add.VPS) == 0 && len(add.SPS) == 0 && len(add.PPS) == 0 {
		return add, ErrNoParameterSet
	}
	logger.Debugf("H265", "Collected %d VPS, %d SPS and %d PPS from %d %v NAL units",
		len(add.VPS), len(add.SPS), len(add.PPS), len(nalus), format)
	return add, nil
}
