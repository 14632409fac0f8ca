package coding

import (
	"math"
	"math/bits"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
)

type GopFlags uint32

const (
	GopRegular                    GopFlags = 0x1
	GopReferencePatternFlat       GopFlags = 0x2
	GopReferencePatternDyadic     GopFlags = 0x4
	GopTemporalLayerPatternDyadic GopFlags = 0x8
)

// QpValues holds one QP per picture type: I, P and B (or intra, predictive and bipredictive for
// AV1 quantizer indices).
type QpValues struct {
	I int32
	P int32
	B int32
}

func (q QpValues) uniform() bool {
	return q.I == q.P && q.P == q.B
}

// LayerQp bounds the QP of one rate control layer. Nil members are not bounded.
type LayerQp struct {
	Min *QpValues
	Max *QpValues
}

type RateControlLayer struct {
	AverageBitrate       uint64
	MaxBitrate           uint64
	FrameRateNumerator   uint32
	FrameRateDenominator uint32
	Qp                   LayerQp
}

// GopInfo is the codec-specific GOP description. For AV1, IdrPeriod is the key frame period and
// ConsecutiveBFrameCount the consecutive bipredictive frame count.
type GopInfo struct {
	Flags                  GopFlags
	GopFrameCount          uint32
	IdrPeriod              uint32
	ConsecutiveBFrameCount uint32
	TemporalLayerCount     uint32
}

type RateControlInfo struct {
	Mode                         profile.RateControlMode
	Layers                       []RateControlLayer
	VirtualBufferSizeInMs        uint32
	InitialVirtualBufferSizeInMs uint32
	Gop                          *GopInfo
}

// RateControlState is the rate control configuration of a coding scope as recorded so far.
type RateControlState struct {
	Mode       profile.RateControlMode
	LayerCount int
	Gop        GopInfo
}

func stateFrom(info *RateControlInfo) RateControlState {
	st := RateControlState{Mode: info.Mode, LayerCount: len(info.Layers)}
	if info.Gop != nil {
		st.Gop = *info.Gop
	}
	return st
}

// Rule identifiers reported by the rate control validator.
const (
	RuleRateControlMode           = "VideoEncodeRateControl-rateControlMode"
	RuleRateControlLayerCount     = "VideoEncodeRateControl-layerCount"
	RuleRateControlModeLayers     = "VideoEncodeRateControl-rateControlMode-layerCount"
	RuleRateControlBitrate        = "VideoEncodeRateControl-bitrate"
	RuleRateControlCBR            = "VideoEncodeRateControl-CBR-averageBitrate"
	RuleRateControlVBR            = "VideoEncodeRateControl-VBR-averageBitrate"
	RuleRateControlFrameRate      = "VideoEncodeRateControl-frameRate"
	RuleRateControlVirtualBuffer  = "VideoEncodeRateControl-virtualBufferSizeInMs"
	RuleRateControlInitialBuffer  = "VideoEncodeRateControl-initialVirtualBufferSizeInMs"
	RuleRateControlQpRange        = "VideoEncodeRateControl-qp-range"
	RuleRateControlQpOrder        = "VideoEncodeRateControl-qp-minMax"
	RuleRateControlQpUniform      = "VideoEncodeRateControl-qp-perPictureType"
	RuleRateControlTemporalLayers = "VideoEncodeRateControl-temporalLayerCount"
	RuleRateControlGopPattern     = "VideoEncodeRateControl-gop-referencePattern"
	RuleRateControlGopBFrames     = "VideoEncodeRateControl-gop-consecutiveBFrameCount"
	RuleRateControlGopIdrPeriod   = "VideoEncodeRateControl-gop-idrPeriod"
)

// qpLimits are the profile QP bounds of one encode operation.
type qpLimits struct {
	min, max       int32
	perPictureType bool
	maxTemporal    uint32
	bFrames        bool
	name           string
}

func qpLimitsFor(caps *profile.Capabilities, op vkvideo.CodecOperation) (qpLimits, bool) {
	switch op {
	case vkvideo.OperationEncodeH264:
		c := caps.H264Encode
		return qpLimits{
			min: c.MinQp, max: c.MaxQp,
			perPictureType: c.Flags&profile.H264EncodePerPictureTypeMinMaxQp != 0,
			maxTemporal:    c.MaxTemporalLayerCount,
			bFrames:        c.MaxBPictureL0ReferenceCount > 0 || c.MaxL1ReferenceCount > 0,
			name:           "QP",
		}, true
	case vkvideo.OperationEncodeH265:
		c := caps.H265Encode
		return qpLimits{
			min: c.MinQp, max: c.MaxQp,
			perPictureType: c.Flags&profile.H265EncodePerPictureTypeMinMaxQp != 0,
			maxTemporal:    c.MaxSubLayerCount,
			bFrames:        c.MaxBPictureL0ReferenceCount > 0 || c.MaxL1ReferenceCount > 0,
			name:           "QP",
		}, true
	case vkvideo.OperationEncodeAV1:
		c := caps.AV1Encode
		return qpLimits{
			min: int32(c.MinQIndex), max: int32(c.MaxQIndex), //nolint:gosec
			perPictureType: c.Flags&profile.AV1EncodePerRateControlGroupMinMaxQIndex != 0,
			maxTemporal:    c.MaxTemporalLayerCount,
			bFrames:        c.MaxBidirectionalCompoundReferenceCount > 0,
			name:           "quantizer index",
		}, true
	case vkvideo.OperationNone, vkvideo.OperationDecodeH264, vkvideo.OperationDecodeH265, vkvideo.OperationDecodeAV1:
	}
	return qpLimits{}, false
}

// ValidateRateControlInfo checks a rate control configuration against the capabilities of an
// encode profile.
func ValidateRateControlInfo(caps *profile.Capabilities, op vkvideo.CodecOperation, info *RateControlInfo, objs []vkvideo.Handle) (diags report.List) {
	enc := caps.Encode
	if enc == nil {
		diags.Addf(report.UnsupportedError, RuleRateControlMode, objs, "rate control requires an encode profile, got %v", op)
		return
	}

	switch {
	case bits.OnesCount32(uint32(info.Mode)) > 1:
		diags.Addf(report.RangeError, RuleRateControlMode, objs, "rateControlMode %#x selects more than one mode", uint32(info.Mode))
	case info.Mode != profile.RateControlDefault && enc.RateControlModes&info.Mode == 0:
		diags.Addf(report.UnsupportedError, RuleRateControlMode, objs, "rateControlMode %v is not supported by the profile", info.Mode)
	}

	layers := uint32(len(info.Layers))
	if layers > enc.MaxRateControlLayers {
		diags.Addf(report.RangeError, RuleRateControlLayerCount, objs,
			"layerCount %d exceeds maxRateControlLayers %d", layers, enc.MaxRateControlLayers)
	}
	switch info.Mode {
	case profile.RateControlDefault, profile.RateControlDisabled:
		if layers != 0 {
			diags.Addf(report.ConsistencyError, RuleRateControlModeLayers, objs,
				"rateControlMode %v requires layerCount 0, got %d", info.Mode, layers)
		}
	case profile.RateControlCBR, profile.RateControlVBR:
		if layers == 0 {
			diags.Addf(report.ConsistencyError, RuleRateControlModeLayers, objs,
				"rateControlMode %v requires at least one layer", info.Mode)
		}
	}

	limits, hasLimits := qpLimitsFor(caps, op)
	for i, l := range info.Layers {
		if l.AverageBitrate < 1 || l.AverageBitrate > enc.MaxBitrate {
			diags.Addf(report.RangeError, RuleRateControlBitrate, objs,
				"pLayers[%d].averageBitrate %d is outside [1, %d]", i, l.AverageBitrate, enc.MaxBitrate)
		}
		if l.MaxBitrate < 1 || l.MaxBitrate > enc.MaxBitrate {
			diags.Addf(report.RangeError, RuleRateControlBitrate, objs,
				"pLayers[%d].maxBitrate %d is outside [1, %d]", i, l.MaxBitrate, enc.MaxBitrate)
		}
		switch info.Mode {
		case profile.RateControlCBR:
			if l.AverageBitrate != l.MaxBitrate {
				diags.Addf(report.ConsistencyError, RuleRateControlCBR, objs,
					"pLayers[%d].averageBitrate %d must equal maxBitrate %d in CBR mode", i, l.AverageBitrate, l.MaxBitrate)
			}
		case profile.RateControlVBR:
			if l.AverageBitrate > l.MaxBitrate {
				diags.Addf(report.ConsistencyError, RuleRateControlVBR, objs,
					"pLayers[%d].averageBitrate %d exceeds maxBitrate %d in VBR mode", i, l.AverageBitrate, l.MaxBitrate)
			}
		case profile.RateControlDefault, profile.RateControlDisabled:
		}
		if l.FrameRateNumerator == 0 || l.FrameRateDenominator == 0 {
			diags.Addf(report.RangeError, RuleRateControlFrameRate, objs,
				"pLayers[%d] frame rate %d/%d must have non-zero terms", i, l.FrameRateNumerator, l.FrameRateDenominator)
		}
		if hasLimits {
			diags.Append(validateLayerQp(limits, i, l.Qp, objs)...)
		}
	}

	if layers > 0 {
		if info.VirtualBufferSizeInMs == 0 {
			diags.Addf(report.RangeError, RuleRateControlVirtualBuffer, objs, "virtualBufferSizeInMs must not be zero")
		}
		if info.InitialVirtualBufferSizeInMs >= info.VirtualBufferSizeInMs && info.VirtualBufferSizeInMs != 0 {
			diags.Addf(report.ConsistencyError, RuleRateControlInitialBuffer, objs,
				"initialVirtualBufferSizeInMs %d must be less than virtualBufferSizeInMs %d",
				info.InitialVirtualBufferSizeInMs, info.VirtualBufferSizeInMs)
		}
	}

	if info.Gop != nil && hasLimits {
		diags.Append(validateGop(limits, info.Gop, layers, objs)...)
	}
	return
}

func validateLayerQp(limits qpLimits, layer int, qp LayerQp, objs []vkvideo.Handle) (diags report.List) {
	check := func(which string, v *QpValues) {
		if v == nil {
			return
		}
		for _, q := range []int32{v.I, v.P, v.B} {
			if q < limits.min || q > limits.max {
				diags.Addf(report.RangeError, RuleRateControlQpRange, objs,
					"pLayers[%d] %s %s %d is outside [%d, %d]", layer, which, limits.name, q, limits.min, limits.max)
				break
			}
		}
		if !limits.perPictureType && !v.uniform() {
			diags.Addf(report.ConsistencyError, RuleRateControlQpUniform, objs,
				"pLayers[%d] %s %s values %+v differ per picture type, which the profile does not allow",
				layer, which, limits.name, *v)
		}
	}
	check("min", qp.Min)
	check("max", qp.Max)
	if qp.Min != nil && qp.Max != nil {
		if qp.Min.I > qp.Max.I || qp.Min.P > qp.Max.P || qp.Min.B > qp.Max.B {
			diags.Addf(report.RangeError, RuleRateControlQpOrder, objs,
				"pLayers[%d] min %s %+v exceeds max %+v", layer, limits.name, *qp.Min, *qp.Max)
		}
	}
	return
}

// InfiniteGop as the GOP frame count or IDR period means the GOP never ends. A zero GOP frame count
// leaves the length to the implementation.
const InfiniteGop = math.MaxUint32

func validateGop(limits qpLimits, gop *GopInfo, layers uint32, objs []vkvideo.Handle) (diags report.List) {
	if gop.TemporalLayerCount > limits.maxTemporal {
		diags.Addf(report.RangeError, RuleRateControlTemporalLayers, objs,
			"temporal layer count %d exceeds the profile limit %d", gop.TemporalLayerCount, limits.maxTemporal)
	}
	if layers > 1 && layers != gop.TemporalLayerCount {
		diags.Addf(report.ConsistencyError, RuleRateControlTemporalLayers, objs,
			"%d rate control layers do not match temporal layer count %d", layers, gop.TemporalLayerCount)
	}
	if gop.Flags&GopReferencePatternFlat != 0 && gop.Flags&GopReferencePatternDyadic != 0 {
		diags.Addf(report.ConsistencyError, RuleRateControlGopPattern, objs,
			"flat and dyadic reference patterns are mutually exclusive")
	}
	if gop.ConsecutiveBFrameCount > 0 {
		if !limits.bFrames {
			diags.Addf(report.UnsupportedError, RuleRateControlGopBFrames, objs,
				"consecutive B-frame count %d requires B-frame support", gop.ConsecutiveBFrameCount)
		} else if gop.GopFrameCount != 0 && gop.ConsecutiveBFrameCount >= gop.GopFrameCount {
			diags.Addf(report.ConsistencyError, RuleRateControlGopBFrames, objs,
				"consecutive B-frame count %d must be less than the GOP frame count %d",
				gop.ConsecutiveBFrameCount, gop.GopFrameCount)
		}
	}
	if gop.IdrPeriod > 0 && gop.GopFrameCount > 0 && gop.GopFrameCount != InfiniteGop && gop.IdrPeriod < gop.GopFrameCount {
		diags.Addf(report.ConsistencyError, RuleRateControlGopIdrPeriod, objs,
			"IDR period %d is shorter than the GOP frame count %d", gop.IdrPeriod, gop.GopFrameCount)
	}
	return
}
