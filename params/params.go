// Package params implements the session parameters store: versioned, codec-keyed dictionaries of
// parameter sets bound to one video session.
package params

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/session"
	"github.com/ugparu/vkvideo/std"
	"github.com/ugparu/vkvideo/utils/logger"
)

// Rule identifiers reported by this package.
const (
	RuleTemplateSession         = "VideoSessionParameters-videoSessionParametersTemplate-session"
	RuleTemplateNotAllowed      = "VideoSessionParameters-videoSessionParametersTemplate-av1"
	RuleTemplateQualityLevel    = "VideoSessionParameters-videoSessionParametersTemplate-qualityLevel"
	RuleTemplateQuantizationMap = "VideoSessionParameters-videoSessionParametersTemplate-quantizationMap"
	RuleMissingCodecInfo        = "VideoSessionParameters-pNext-codecCreateInfo"
	RuleMissingSequenceHeader   = "VideoSessionParameters-pStdSequenceHeader"
	RuleOperatingPointCount     = "VideoSessionParameters-stdOperatingPointCount"
	RuleDuplicateKey            = "VideoSessionParameters-DuplicateKey"
	RuleCapacityExceeded        = "VideoSessionParameters-CapacityExceeded"
	RuleTileCount               = "VideoSessionParameters-h265-tiles"
	RuleCtbSize                 = "VideoSessionParameters-h265-ctbSize"
	RuleQualityLevel            = "VideoSessionParameters-qualityLevel"
	RuleQuantizationMapSession  = "VideoSessionParameters-quantizationMap-session"
	RuleQuantizationMapTexel    = "VideoSessionParameters-quantizationMapTexelSize"
	RuleSequenceMismatch        = "UpdateVideoSessionParameters-SequenceMismatch"
	RuleNotUpdatable            = "UpdateVideoSessionParameters-NotUpdatable"
	RuleDestroyInUse            = "DestroyVideoSessionParameters-inUse"
)

// Counts is the number of stored entries per category.
type Counts struct {
	VPS int
	SPS int
	PPS int
	// SequenceHeader is 1 for AV1 parameters holding a sequence header.
	SequenceHeader int
}

// Parameters is a session parameters object. Its dictionaries are guarded by a reader/writer lock
// and are only reachable through Read, the lookup methods and Update.
type Parameters struct {
	session.Usage

	handle  vkvideo.Handle
	session *session.Session

	mu              sync.RWMutex
	sequence        uint32
	qualityLevel    uint32
	quantizationMap QuantizationMapInfo

	h264SPS category[H264SPSKey, std.H264SequenceParameterSet]
	h264PPS category[H264PPSKey, std.H264PictureParameterSet]
	h265VPS category[H265VPSKey, std.H265VideoParameterSet]
	h265SPS category[H265SPSKey, std.H265SequenceParameterSet]
	h265PPS category[H265PPSKey, std.H265PictureParameterSet]

	av1SequenceHeader  *std.AV1SequenceHeader
	av1OperatingPoints []std.AV1OperatingPointInfo
}

// Create validates info and creates a parameters object for s. The object is always created;
// categories that fail validation are left empty.
func Create(h vkvideo.Handle, s *session.Session, info CreateInfo) (*Parameters, report.List) {
	p := &Parameters{
		handle:  h,
		session: s,
		h264SPS: newCategory[H264SPSKey, std.H264SequenceParameterSet]("H.264 SPS", 0),
		h264PPS: newCategory[H264PPSKey, std.H264PictureParameterSet]("H.264 PPS", 0),
		h265VPS: newCategory[H265VPSKey, std.H265VideoParameterSet]("H.265 VPS", 0),
		h265SPS: newCategory[H265SPSKey, std.H265SequenceParameterSet]("H.265 SPS", 0),
		h265PPS: newCategory[H265PPSKey, std.H265PictureParameterSet]("H.265 PPS", 0),
	}
	objs := report.Objects(s.Handle(), h)

	var diags report.List
	template := info.Template
	if template != nil && template.session != s {
		diags.Addf(report.ConsistencyError, RuleTemplateSession, report.Objects(s.Handle(), template.handle, h),
			"template parameters %v belong to session %v", template.handle, template.session.Handle())
		template = nil
	}

	op := s.Operation()
	if op.IsEncode() {
		diags.Append(p.setEncodeOptions(s, template, info, objs)...)
	}

	switch op.Codec() {
	case vkvideo.CodecH264:
		diags.Append(p.createH264(s, template, info.H264, objs)...)
	case vkvideo.CodecH265:
		diags.Append(p.createH265(s, template, info.H265, objs)...)
	case vkvideo.CodecAV1:
		diags.Append(p.createAV1(s, template, info, objs)...)
	case vkvideo.CodecUnknown:
	}

	logger.Debugf(p, "Created for %v with %+v and %d diagnostics", s, p.Counts(), len(diags))
	return p, diags
}

func (p *Parameters) setEncodeOptions(s *session.Session, template *Parameters, info CreateInfo, objs []vkvideo.Handle) (diags report.List) {
	caps := s.Capabilities()
	if info.QualityLevel >= caps.Encode.MaxQualityLevels {
		diags.Addf(report.RangeError, RuleQualityLevel, objs,
			"quality level %d is not below maxQualityLevels %d", info.QualityLevel, caps.Encode.MaxQualityLevels)
	} else {
		p.qualityLevel = info.QualityLevel
	}

	var qmap QuantizationMapInfo
	if info.QuantizationMap != nil {
		qmap = *info.QuantizationMap
	}
	if qmap.Kind != QuantizationMapNone {
		emphasis := qmap.Kind == QuantizationMapEmphasis
		flag := session.CreateAllowEncodeQuantizationDeltaMap
		if emphasis {
			flag = session.CreateAllowEncodeEmphasisMap
		}
		if !s.HasFlags(flag) {
			diags.Addf(report.ConsistencyError, RuleQuantizationMapSession, objs,
				"%v quantization map compatibility requested but the session was not created to allow it", qmap.Kind)
		}
		if !slices.Contains(caps.Encode.TexelSizes(emphasis), qmap.TexelSize) {
			diags.Addf(report.UnsupportedError, RuleQuantizationMapTexel, objs,
				"quantization map texel size %v is not supported for %v maps", qmap.TexelSize, qmap.Kind)
		}
	}
	p.quantizationMap = qmap

	if template != nil {
		template.mu.RLock()
		tq, tl := template.quantizationMap, template.qualityLevel
		template.mu.RUnlock()
		if tq != qmap {
			diags.Addf(report.ConsistencyError, RuleTemplateQuantizationMap, objs,
				"template quantization map compatibility %v/%v differs from %v/%v",
				tq.Kind, tq.TexelSize, qmap.Kind, qmap.TexelSize)
		}
		if tl != info.QualityLevel {
			diags.Addf(report.ConsistencyError, RuleTemplateQualityLevel, objs,
				"template quality level %d differs from %d", tl, info.QualityLevel)
		}
	}
	return
}

func (p *Parameters) createH264(s *session.Session, template *Parameters, info *H264CreateInfo, objs []vkvideo.Handle) (diags report.List) {
	if info == nil {
		diags.Addf(report.StructuralError, RuleMissingCodecInfo, objs, "H.264 session parameters create info is missing")
		return
	}
	p.h264SPS.capacity = info.MaxStdSPSCount
	p.h264PPS.capacity = info.MaxStdPPSCount

	var add H264AddInfo
	if info.Add != nil {
		add = *info.Add
	}
	var baseSPS map[H264SPSKey]std.H264SequenceParameterSet
	var basePPS map[H264PPSKey]std.H264PictureParameterSet
	if template != nil {
		template.mu.RLock()
		baseSPS, basePPS = template.h264SPS.entries, template.h264PPS.entries
		defer template.mu.RUnlock()
	}

	sps, d := stage(p.h264SPS, baseSPS, add.SPS, h264SPSKey, true, objs)
	if diags.Append(d...); len(d) == 0 {
		p.h264SPS.entries = sps
	}
	pps, d := stage(p.h264PPS, basePPS, add.PPS, h264PPSKey, true, objs)
	if diags.Append(d...); len(d) == 0 {
		p.h264PPS.entries = pps
	}
	return
}

func (p *Parameters) createH265(s *session.Session, template *Parameters, info *H265CreateInfo, objs []vkvideo.Handle) (diags report.List) {
	if info == nil {
		diags.Addf(report.StructuralError, RuleMissingCodecInfo, objs, "H.265 session parameters create info is missing")
		return
	}
	p.h265VPS.capacity = info.MaxStdVPSCount
	p.h265SPS.capacity = info.MaxStdSPSCount
	p.h265PPS.capacity = info.MaxStdPPSCount

	var add H265AddInfo
	if info.Add != nil {
		add = *info.Add
	}
	var baseVPS map[H265VPSKey]std.H265VideoParameterSet
	var baseSPS map[H265SPSKey]std.H265SequenceParameterSet
	var basePPS map[H265PPSKey]std.H265PictureParameterSet
	if template != nil {
		template.mu.RLock()
		baseVPS, baseSPS, basePPS = template.h265VPS.entries, template.h265SPS.entries, template.h265PPS.entries
		defer template.mu.RUnlock()
	}

	vps, d := stage(p.h265VPS, baseVPS, add.VPS, h265VPSKey, true, objs)
	if diags.Append(d...); len(d) == 0 {
		p.h265VPS.entries = vps
	}
	sps, d := stage(p.h265SPS, baseSPS, add.SPS, h265SPSKey, true, objs)
	d.Append(validateH265SPS(s, add.SPS, objs)...)
	if diags.Append(d...); len(d) == 0 {
		p.h265SPS.entries = sps
	}
	pps, d := stage(p.h265PPS, basePPS, add.PPS, h265PPSKey, true, objs)
	d.Append(validateH265PPS(s, add.PPS, objs)...)
	if diags.Append(d...); len(d) == 0 {
		p.h265PPS.entries = pps
	}
	return
}

func (p *Parameters) createAV1(s *session.Session, template *Parameters, info CreateInfo, objs []vkvideo.Handle) (diags report.List) {
	if template != nil {
		diags.Addf(report.ConsistencyError, RuleTemplateNotAllowed, report.Objects(s.Handle(), template.handle, p.handle),
			"AV1 session parameters cannot be created from a template")
	}
	if info.AV1 == nil || info.AV1.SequenceHeader == nil {
		diags.Addf(report.StructuralError, RuleMissingSequenceHeader, objs, "AV1 sequence header is missing")
		return
	}
	hdr := *info.AV1.SequenceHeader
	p.av1SequenceHeader = &hdr

	if s.Operation().IsEncode() {
		limit := s.Capabilities().AV1Encode.MaxOperatingPoints
		if uint32(len(info.AV1.OperatingPoints)) > limit {
			diags.Addf(report.RangeError, RuleOperatingPointCount, objs,
				"%d operating points exceed maxOperatingPoints %d", len(info.AV1.OperatingPoints), limit)
			return
		}
	}
	p.av1OperatingPoints = slices.Clone(info.AV1.OperatingPoints)
	return
}

func validateH265SPS(s *session.Session, sps []std.H265SequenceParameterSet, objs []vkvideo.Handle) (diags report.List) {
	if s.Operation() != vkvideo.OperationEncodeH265 {
		return
	}
	sizes := s.Capabilities().H265Encode.CtbSizes
	for i := range sps {
		ctb := uint32(1) << sps[i].CtbLog2Size()
		if !sizes.Has(ctb) {
			diags.Addf(report.UnsupportedError, RuleCtbSize, objs,
				"SPS %d selects CTB size %d which the profile does not support", sps[i].SpsSeqParameterSetID, ctb)
		}
	}
	return
}

func validateH265PPS(s *session.Session, pps []std.H265PictureParameterSet, objs []vkvideo.Handle) (diags report.List) {
	if s.Operation() != vkvideo.OperationEncodeH265 {
		return
	}
	maxTiles := s.Capabilities().H265Encode.MaxTiles
	for i := range pps {
		cols := uint32(pps[i].NumTileColumnsMinus1) + 1
		rows := uint32(pps[i].NumTileRowsMinus1) + 1
		if cols > maxTiles.Width {
			diags.Addf(report.RangeError, RuleTileCount, objs,
				"PPS %d has %d tile columns, the profile allows %d", pps[i].PpsPicParameterSetID, cols, maxTiles.Width)
		}
		if rows > maxTiles.Height {
			diags.Addf(report.RangeError, RuleTileCount, objs,
				"PPS %d has %d tile rows, the profile allows %d", pps[i].PpsPicParameterSetID, rows, maxTiles.Height)
		}
	}
	return
}

// Update validates info and, only if no diagnostic is produced, adds its entries and advances the
// update sequence.
func (p *Parameters) Update(info UpdateInfo) (diags report.List) {
	objs := report.Objects(p.session.Handle(), p.handle)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session.Operation().Codec() == vkvideo.CodecAV1 {
		diags.Addf(report.SequenceError, RuleNotUpdatable, objs, "AV1 session parameters cannot be updated")
		return
	}
	if info.UpdateSequenceCount != p.sequence+1 {
		diags.Addf(report.SequenceError, RuleSequenceMismatch, objs,
			"updateSequenceCount %d is not the current update sequence %d plus one", info.UpdateSequenceCount, p.sequence)
		return
	}

	var commit func()
	switch p.session.Operation().Codec() {
	case vkvideo.CodecH264:
		commit, diags = p.stageH264(info.H264, objs)
	case vkvideo.CodecH265:
		commit, diags = p.stageH265(info.H265, objs)
	case vkvideo.CodecAV1, vkvideo.CodecUnknown:
	}
	if len(diags) > 0 {
		return
	}
	if commit != nil {
		commit()
	}
	p.sequence = info.UpdateSequenceCount
	logger.Debugf(p, "Updated to sequence %d, now %+v", p.sequence, p.countsLocked())
	return
}

func (p *Parameters) stageH264(add *H264AddInfo, objs []vkvideo.Handle) (func(), report.List) {
	if add == nil {
		return nil, nil
	}
	var diags report.List
	sps, d := stage(p.h264SPS, p.h264SPS.entries, add.SPS, h264SPSKey, false, objs)
	diags.Append(d...)
	pps, d := stage(p.h264PPS, p.h264PPS.entries, add.PPS, h264PPSKey, false, objs)
	diags.Append(d...)
	return func() {
		p.h264SPS.entries = sps
		p.h264PPS.entries = pps
	}, diags
}

func (p *Parameters) stageH265(add *H265AddInfo, objs []vkvideo.Handle) (func(), report.List) {
	if add == nil {
		return nil, nil
	}
	var diags report.List
	vps, d := stage(p.h265VPS, p.h265VPS.entries, add.VPS, h265VPSKey, false, objs)
	diags.Append(d...)
	sps, d := stage(p.h265SPS, p.h265SPS.entries, add.SPS, h265SPSKey, false, objs)
	diags.Append(d...)
	diags.Append(validateH265SPS(p.session, add.SPS, objs)...)
	pps, d := stage(p.h265PPS, p.h265PPS.entries, add.PPS, h265PPSKey, false, objs)
	diags.Append(d...)
	diags.Append(validateH265PPS(p.session, add.PPS, objs)...)
	return func() {
		p.h265VPS.entries = vps
		p.h265SPS.entries = sps
		p.h265PPS.entries = pps
	}, diags
}

// ValidateDestroy checks that no command recorder still references the parameters.
func (p *Parameters) ValidateDestroy() (diags report.List) {
	if n := p.Count(); n > 0 {
		diags.Addf(report.ConsistencyError, RuleDestroyInUse, report.Objects(p.handle),
			"video session parameters are still referenced by %d command recorder(s)", n)
	}
	return
}

func (p *Parameters) String() string {
	return fmt.Sprintf("PARAMS %v", p.handle)
}

func (p *Parameters) Handle() vkvideo.Handle    { return p.handle }
func (p *Parameters) Session() *session.Session { return p.session }
func (p *Parameters) Profile() profile.Profile  { return p.session.Profile() }

// UpdateSequence returns the current update sequence counter.
func (p *Parameters) UpdateSequence() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sequence
}

// QualityLevel returns the encode quality level the parameters were created with.
func (p *Parameters) QualityLevel() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.qualityLevel
}

// QuantizationMap returns the quantization map compatibility of the parameters.
func (p *Parameters) QuantizationMap() QuantizationMapInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.quantizationMap
}

// Counts returns the number of entries in each category.
func (p *Parameters) Counts() Counts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.countsLocked()
}

func (p *Parameters) countsLocked() Counts {
	c := Counts{
		VPS: p.h265VPS.len(),
		SPS: p.h264SPS.len() + p.h265SPS.len(),
		PPS: p.h264PPS.len() + p.h265PPS.len(),
	}
	if p.av1SequenceHeader != nil {
		c.SequenceHeader = 1
	}
	return c
}
