package params

import (
	"github.com/ugparu/vkvideo/std"
)

// View is a read-only view of the parameter dictionaries. It is only valid inside the function
// passed to Read.
type View struct {
	p *Parameters
}

// Read calls fn with the shared lock held.
func (p *Parameters) Read(fn func(View)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn(View{p: p})
}

func (v View) H264SPS(sps uint8) (std.H264SequenceParameterSet, bool) {
	return v.p.h264SPS.get(H264SPSKey{SPS: sps})
}

func (v View) H264PPS(sps, pps uint8) (std.H264PictureParameterSet, bool) {
	return v.p.h264PPS.get(H264PPSKey{SPS: sps, PPS: pps})
}

func (v View) H265VPS(vps uint8) (std.H265VideoParameterSet, bool) {
	return v.p.h265VPS.get(H265VPSKey{VPS: vps})
}

func (v View) H265SPS(vps, sps uint8) (std.H265SequenceParameterSet, bool) {
	return v.p.h265SPS.get(H265SPSKey{VPS: vps, SPS: sps})
}

func (v View) H265PPS(vps, sps, pps uint8) (std.H265PictureParameterSet, bool) {
	return v.p.h265PPS.get(H265PPSKey{VPS: vps, SPS: sps, PPS: pps})
}

func (v View) AV1SequenceHeader() (std.AV1SequenceHeader, bool) {
	if v.p.av1SequenceHeader == nil {
		return std.AV1SequenceHeader{}, false
	}
	return *v.p.av1SequenceHeader, true
}

func (v View) AV1OperatingPoints() []std.AV1OperatingPointInfo {
	return v.p.av1OperatingPoints
}

func (v View) UpdateSequence() uint32 { return v.p.sequence }

func (p *Parameters) H264SPS(sps uint8) (out std.H264SequenceParameterSet, ok bool) {
	p.Read(func(v View) { out, ok = v.H264SPS(sps) })
	return
}

func (p *Parameters) H264PPS(sps, pps uint8) (out std.H264PictureParameterSet, ok bool) {
	p.Read(func(v View) { out, ok = v.H264PPS(sps, pps) })
	return
}

func (p *Parameters) H265VPS(vps uint8) (out std.H265VideoParameterSet, ok bool) {
	p.Read(func(v View) { out, ok = v.H265VPS(vps) })
	return
}

func (p *Parameters) H265SPS(vps, sps uint8) (out std.H265SequenceParameterSet, ok bool) {
	p.Read(func(v View) { out, ok = v.H265SPS(vps, sps) })
	return
}

func (p *Parameters) H265PPS(vps, sps, pps uint8) (out std.H265PictureParameterSet, ok bool) {
	p.Read(func(v View) { out, ok = v.H265PPS(vps, sps, pps) })
	return
}

func (p *Parameters) AV1SequenceHeader() (out std.AV1SequenceHeader, ok bool) {
	p.Read(func(v View) { out, ok = v.AV1SequenceHeader() })
	return
}
