package params

import (
	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/std"
)

// QuantizationMapKind selects which kind of quantization map parameters are compatible with.
type QuantizationMapKind uint8

const (
	QuantizationMapNone QuantizationMapKind = iota
	QuantizationMapDelta
	QuantizationMapEmphasis
)

func (k QuantizationMapKind) String() string {
	switch k {
	case QuantizationMapDelta:
		return "delta"
	case QuantizationMapEmphasis:
		return "emphasis"
	}
	return "none"
}

// QuantizationMapInfo requests quantization map compatibility with a fixed texel size.
type QuantizationMapInfo struct {
	Kind      QuantizationMapKind
	TexelSize vkvideo.Extent2D
}

type H264AddInfo struct {
	SPS []std.H264SequenceParameterSet
	PPS []std.H264PictureParameterSet
}

type H265AddInfo struct {
	VPS []std.H265VideoParameterSet
	SPS []std.H265SequenceParameterSet
	PPS []std.H265PictureParameterSet
}

type H264CreateInfo struct {
	MaxStdSPSCount uint32
	MaxStdPPSCount uint32
	Add            *H264AddInfo
}

type H265CreateInfo struct {
	MaxStdVPSCount uint32
	MaxStdSPSCount uint32
	MaxStdPPSCount uint32
	Add            *H265AddInfo
}

type AV1CreateInfo struct {
	SequenceHeader  *std.AV1SequenceHeader
	OperatingPoints []std.AV1OperatingPointInfo
}

// CreateInfo holds the parameters creation payload. Only the member matching the session's codec
// is consulted.
type CreateInfo struct {
	Template        *Parameters
	QualityLevel    uint32
	QuantizationMap *QuantizationMapInfo

	H264 *H264CreateInfo
	H265 *H265CreateInfo
	AV1  *AV1CreateInfo
}

// UpdateInfo holds an update payload. UpdateSequenceCount must be exactly one more than the
// current update sequence of the parameters object.
type UpdateInfo struct {
	UpdateSequenceCount uint32

	H264 *H264AddInfo
	H265 *H265AddInfo
}

type H264SPSKey struct {
	SPS uint8
}

type H264PPSKey struct {
	SPS uint8
	PPS uint8
}

type H265VPSKey struct {
	VPS uint8
}

type H265SPSKey struct {
	VPS uint8
	SPS uint8
}

type H265PPSKey struct {
	VPS uint8
	SPS uint8
	PPS uint8
}

func h264SPSKey(s *std.H264SequenceParameterSet) H264SPSKey {
	return H264SPSKey{SPS: s.SeqParameterSetID}
}

func h264PPSKey(p *std.H264PictureParameterSet) H264PPSKey {
	return H264PPSKey{SPS: p.SeqParameterSetID, PPS: p.PicParameterSetID}
}

func h265VPSKey(v *std.H265VideoParameterSet) H265VPSKey {
	return H265VPSKey{VPS: v.VpsVideoParameterSetID}
}

func h265SPSKey(s *std.H265SequenceParameterSet) H265SPSKey {
	return H265SPSKey{VPS: s.SpsVideoParameterSetID, SPS: s.SpsSeqParameterSetID}
}

func h265PPSKey(p *std.H265PictureParameterSet) H265PPSKey {
	return H265PPSKey{VPS: p.SpsVideoParameterSetID, SPS: p.PpsSeqParameterSetID, PPS: p.PpsPicParameterSetID}
}
