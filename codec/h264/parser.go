// Package h264 turns H.264 parameter set NAL units into the structures session parameters are
// created and updated with.
//
//nolint:mnd // Field widths and ranges come from ITU-T H.264 7.3.2.
package h264

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
	NaluCodedIDR = 5
	NaluSPS      = 7
	NaluPPS      = 8
)

var (
	ErrNaluSize       = errors.New("h264parser: NAL unit too short")
	ErrNaluType       = errors.New("h264parser: unexpected NAL unit type")
	ErrSliceGroups    = errors.New("h264parser: slice groups are not supported")
	ErrNoParameterSet = errors.New("h264parser: no SPS or PPS found")
)

// NaluType returns the nal_unit_type of a NAL unit.
func NaluType(nalu []byte) byte {
	if len(nalu) == 0 {
		return 0
	}
	return nalu[0] & 0x1f
}

func reader(nalu []byte, typ byte) (*bits.GolombBitReader, []byte, error) {
	if len(nalu) < 2 {
		return nil, nil, ErrNaluSize
	}
	if NaluType(nalu) != typ {
		return nil, nil, fmt.Errorf("%w: %d, want %d", ErrNaluType, NaluType(nalu), typ)
	}
	rbsp := nal.ToRBSP(nalu[1:])
	return &bits.GolombBitReader{R: bytes.NewReader(rbsp)}, rbsp, nil
}

// highProfile reports whether profile_idc carries chroma_format_idc and bit depths in the SPS.
func highProfile(idc uint) bool {
	switch idc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

// skipScalingList skips one scaling_list() of the given size.
func skipScalingList(br *bits.GolombBitReader, size int) error {
	last, next := 8, 8
	for range size {
		if next != 0 {
			delta, err := br.ReadSE()
			if err != nil {
				return err
			}
			next = (last + delta + 256) % 256
		}
		if next != 0 {
			last = next
		}
	}
	return nil
}

func skipScalingMatrix(br *bits.GolombBitReader, lists int) error {
	for i := range lists {
		present, err := br.ReadFlag()
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		if err = skipScalingList(br, size); err != nil {
			return err
		}
	}
	return nil
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

func (f *fieldReader) flag() bool {
	return f.u(1) == 1
}

// ParseSPS parses a seq_parameter_set_rbsp up to the VUI parameters.
//
//nolint:gosec // Values are range checked by the bitstream syntax.
func ParseSPS(nalu []byte) (sps std.H264SequenceParameterSet, err error) {
	br, _, err := reader(nalu, NaluSPS)
	if err != nil {
		return
	}
	f := &fieldReader{br: br}

	profile := f.u(8)
	f.u(8) // constraint_set flags and reserved_zero_2bits
	sps.ProfileIdc = std.H264ProfileIdc(profile)
	sps.LevelIdc = std.H264LevelIdc(f.u(8))
	sps.SeqParameterSetID = uint8(f.ue())
	sps.ChromaFormatIdc = 1
	if highProfile(profile) {
		sps.ChromaFormatIdc = uint32(f.ue())
		if sps.ChromaFormatIdc == 3 {
			sps.Flags.SeparateColourPlane = f.flag()
		}
		sps.BitDepthLumaMinus8 = uint8(f.ue())
		sps.BitDepthChromaMinus8 = uint8(f.ue())
		sps.Flags.QpprimeYZeroTransformBypass = f.flag()
		if f.flag() && f.err == nil {
			lists := 8
			if sps.ChromaFormatIdc == 3 {
				lists = 12
			}
			f.err = skipScalingMatrix(br, lists)
		}
	}
	sps.Log2MaxFrameNumMinus4 = uint8(f.ue())
	sps.PicOrderCntType = uint8(f.ue())
	switch sps.PicOrderCntType {
	case 0:
		sps.Log2MaxPicOrderCntLsbMinus4 = uint8(f.ue())
	case 1:
		f.flag() // delta_pic_order_always_zero_flag
		f.se()   // offset_for_non_ref_pic
		f.se()   // offset_for_top_to_bottom_field
		cycle := f.ue()
		for i := uint(0); i < cycle && f.err == nil; i++ {
			f.se()
		}
	}
	sps.MaxNumRefFrames = uint8(f.ue())
	f.flag() // gaps_in_frame_num_value_allowed_flag
	sps.PicWidthInMbsMinus1 = uint32(f.ue())
	sps.PicHeightInMapUnitsMinus1 = uint32(f.ue())
	sps.Flags.FrameMbsOnly = f.flag()
	if !sps.Flags.FrameMbsOnly {
		sps.Flags.MbAdaptiveFrameField = f.flag()
	}
	sps.Flags.Direct8x8Inference = f.flag()
	if sps.Flags.FrameCropping = f.flag(); sps.Flags.FrameCropping {
		sps.FrameCropLeftOffset = uint32(f.ue())
		sps.FrameCropRightOffset = uint32(f.ue())
		sps.FrameCropTopOffset = uint32(f.ue())
		sps.FrameCropBottomOffset = uint32(f.ue())
	}
	sps.Flags.VuiParametersPresent = f.flag()
	if f.err != nil {
		err = fmt.Errorf("h264parser: parse SPS failed(%w)", f.err)
	}
	return
}

// ParsePPS parses a pic_parameter_set_rbsp. Streams using slice groups are rejected.
//
//nolint:gosec // Values are range checked by the bitstream syntax.
func ParsePPS(nalu []byte) (pps std.H264PictureParameterSet, err error) {
	br, rbsp, err := reader(nalu, NaluPPS)
	if err != nil {
		return
	}
	f := &fieldReader{br: br}

	pps.PicParameterSetID = uint8(f.ue())
	pps.SeqParameterSetID = uint8(f.ue())
	pps.Flags.EntropyCodingMode = f.flag()
	pps.Flags.BottomFieldPicOrderInFramePresent = f.flag()
	if groups := f.ue(); groups > 0 && f.err == nil {
		return pps, ErrSliceGroups
	}
	pps.NumRefIdxL0DefaultActiveMinus1 = uint8(f.ue())
	pps.NumRefIdxL1DefaultActiveMinus1 = uint8(f.ue())
	pps.Flags.WeightedPred = f.flag()
	pps.WeightedBipredIdc = uint8(f.u(2))
	pps.PicInitQpMinus26 = int8(f.se())
	pps.PicInitQsMinus26 = int8(f.se())
	pps.ChromaQpIndexOffset = int8(f.se())
	pps.SecondChromaQpIndexOffset = pps.ChromaQpIndexOffset
	pps.Flags.DeblockingFilterControlPresent = f.flag()
	pps.Flags.ConstrainedIntraPred = f.flag()
	pps.Flags.RedundantPicCntPresent = f.flag()
	if f.err == nil && br.Consumed() < nal.StopBit(rbsp) {
		pps.Flags.Transform8x8Mode = f.flag()
		// The scaling matrix size depends on the SPS, so the second offset is only read without one.
		if !f.flag() {
			pps.SecondChromaQpIndexOffset = int8(f.se())
		}
	}
	if f.err != nil {
		err = fmt.Errorf("h264parser: parse PPS failed(%w)", f.err)
	}
	return
}

// AddInfoFromAnnexB collects every SPS and PPS of an Annex-B (or AVCC) stream. Other NAL units
// are skipped.
func AddInfoFromAnnexB(data []byte) (add params.H264AddInfo, err error) {
	nalus, format := nal.SplitNALUs(data)
	for _, nalu := range nalus {
		switch NaluType(nalu) {
		case NaluSPS:
			sps, err := ParseSPS(nalu)
			if err != nil {
				return add, err
			}
			add.SPS = append(add.SPS, sps)
		case NaluPPS:
			pps, err := ParsePPS(nalu)
			if err != nil {
				return add, err
			}
			add.PPS = append(add.PPS, pps)
		}
	}
	if len(add.SPS) == 0 && len(add.PPS) == 0 {
		return add, ErrNoParameterSet
	}
	logger.Debugf("H264", "Collected %d SPS and %d PPS from %d %v NAL units",
		len(add.SPS), len(add.PPS), len(nalus), format)
	return add, nil
}

// Width returns the cropped luma width the SPS describes.
func Width(sps *std.H264SequenceParameterSet) uint32 {
	w := (sps.PicWidthInMbsMinus1 + 1) * 16
	return w - cropUnitX(sps)*(sps.FrameCropLeftOffset+sps.FrameCropRightOffset)
}

// Height returns the cropped luma height the SPS describes.
func Height(sps *std.H264SequenceParameterSet) uint32 {
	frameMbs := uint32(2)
	if sps.Flags.FrameMbsOnly {
		frameMbs = 1
	}
	h := frameMbs * (sps.PicHeightInMapUnitsMinus1 + 1) * 16
	return h - cropUnitY(sps, frameMbs)*(sps.FrameCropTopOffset+sps.FrameCropBottomOffset)
}

func cropUnitX(sps *std.H264SequenceParameterSet) uint32 {
	if sps.ChromaFormatIdc == 0 || sps.Flags.SeparateColourPlane || sps.ChromaFormatIdc == 3 {
		return 1
	}
	return 2
}

func cropUnitY(sps *std.H264SequenceParameterSet, frameMbs uint32) uint32 {
	if sps.ChromaFormatIdc == 0 || sps.Flags.SeparateColourPlane || sps.ChromaFormatIdc != 1 {
		return frameMbs
	}
	return 2 * frameMbs
}
