// Package session tracks video session objects: their creation parameters, resolved capabilities,
// memory bindings and use by command recorders.
package session

import (
	"fmt"
	"sync"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/utils/logger"
)

type CreateFlags uint32

const (
	CreateProtectedContent                  CreateFlags = 0x1
	CreateAllowEncodeParameterOptimizations CreateFlags = 0x2
	CreateInlineQueries                     CreateFlags = 0x4
	CreateAllowEncodeQuantizationDeltaMap   CreateFlags = 0x8
	CreateAllowEncodeEmphasisMap            CreateFlags = 0x10
	CreateInlineSessionParameters           CreateFlags = 0x20
)

// Rule identifiers reported by this package.
const (
	RuleUnsupportedProfile   = "VideoSession-pVideoProfile-unsupported"
	RuleDpbSlotsReferences   = "VideoSession-maxDpbSlots-maxActiveReferencePictures"
	RuleMaxDpbSlots          = "VideoSession-maxDpbSlots-capability"
	RuleMaxActiveReferences  = "VideoSession-maxActiveReferencePictures-capability"
	RuleMaxCodedExtent       = "VideoSession-maxCodedExtent-capability"
	RuleProtectedContent     = "VideoSession-flags-protectedContent"
	RuleEncodeOnlyFlags      = "VideoSession-flags-encodeOnly"
	RuleQuantizationMapFlags = "VideoSession-flags-quantizationMap"
	RuleBindIndex            = "BindVideoSessionMemory-memoryBindIndex-range"
	RuleBindAlreadyBound     = "BindVideoSessionMemory-memoryBindIndex-bound"
	RuleBindDuplicate        = "BindVideoSessionMemory-memoryBindIndex-duplicate"
	RuleDestroyInUse         = "DestroyVideoSession-videoSession-inUse"
)

// CreateInfo holds the session creation parameters.
type CreateInfo struct {
	QueueFamilyIndex           uint32
	Flags                      CreateFlags
	Profile                    profile.Profile
	PictureFormat              vkvideo.Format
	ReferencePictureFormat     vkvideo.Format
	MaxCodedExtent             vkvideo.Extent2D
	MaxDpbSlots                uint32
	MaxActiveReferencePictures uint32
	// MemoryBindingCount is the number of memory bindings the driver reported as required.
	MemoryBindingCount uint32
}

// MemoryBinding binds device memory to one of the session's memory bind indices.
type MemoryBinding struct {
	BindIndex uint32
	Memory    vkvideo.Handle
	Offset    uint64
	Size      uint64
}

// Usage counts the command recorders currently referencing an object. Acquire, Release and Count
// share one lock, so a destroy check observes every Acquire that completed before it.
type Usage struct {
	mu sync.Mutex
	n  int32
}

func (u *Usage) Acquire() {
	u.mu.Lock()
	u.n++
	u.mu.Unlock()
}

func (u *Usage) Release() {
	u.mu.Lock()
	u.n--
	u.mu.Unlock()
}

func (u *Usage) InUse() bool { return u.Count() > 0 }

func (u *Usage) Count() int32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.n
}

// Session is the tracked state of one video session.
type Session struct {
	Usage

	handle vkvideo.Handle
	info   CreateInfo
	caps   *profile.Capabilities

	mu    sync.RWMutex
	bound map[uint32]MemoryBinding
}

// Create validates info and returns the new session. A nil session is returned only when the
// profile cannot be resolved, since nothing else can be validated without its capabilities.
func Create(h vkvideo.Handle, info CreateInfo, resolver *profile.Resolver) (*Session, report.List) {
	var diags report.List
	caps, err := resolver.Resolve(info.Profile)
	if err != nil {
		diags.Addf(report.UnsupportedError, RuleUnsupportedProfile, report.Objects(h),
			"video profile %v is not supported: %v", info.Profile, err)
		return nil, diags
	}

	if (info.MaxDpbSlots == 0) != (info.MaxActiveReferencePictures == 0) {
		diags.Addf(report.ConsistencyError, RuleDpbSlotsReferences, report.Objects(h),
			"maxDpbSlots (%d) and maxActiveReferencePictures (%d) must be both zero or both non-zero",
			info.MaxDpbSlots, info.MaxActiveReferencePictures)
	}
	if info.MaxDpbSlots > caps.MaxDpbSlots {
		diags.Addf(report.RangeError, RuleMaxDpbSlots, report.Objects(h),
			"maxDpbSlots (%d) exceeds the profile limit (%d)", info.MaxDpbSlots, caps.MaxDpbSlots)
	}
	if info.MaxActiveReferencePictures > caps.MaxActiveReferencePictures {
		diags.Addf(report.RangeError, RuleMaxActiveReferences, report.Objects(h),
			"maxActiveReferencePictures (%d) exceeds the profile limit (%d)",
			info.MaxActiveReferencePictures, caps.MaxActiveReferencePictures)
	}
	if !info.MaxCodedExtent.AtLeast(caps.MinCodedExtent) || !info.MaxCodedExtent.Within(caps.MaxCodedExtent) {
		diags.Addf(report.RangeError, RuleMaxCodedExtent, report.Objects(h),
			"maxCodedExtent %v is outside the supported range [%v, %v]",
			info.MaxCodedExtent, caps.MinCodedExtent, caps.MaxCodedExtent)
	}
	if info.Flags&CreateProtectedContent != 0 && caps.Flags&profile.CapabilityProtectedContent == 0 {
		diags.Addf(report.UnsupportedError, RuleProtectedContent, report.Objects(h),
			"protected content sessions are not supported by the profile")
	}
	diags.Append(validateEncodeFlags(h, info, caps)...)

	s := &Session{
		handle: h,
		info:   info,
		caps:   caps,
		bound:  make(map[uint32]MemoryBinding),
	}
	logger.Debugf(s, "Created with %d diagnostics", len(diags))
	return s, diags
}

func validateEncodeFlags(h vkvideo.Handle, info CreateInfo, caps *profile.Capabilities) (diags report.List) {
	encodeOnly := CreateAllowEncodeParameterOptimizations | CreateAllowEncodeQuantizationDeltaMap | CreateAllowEncodeEmphasisMap
	if !info.Profile.Operation.IsEncode() {
		if info.Flags&encodeOnly != 0 {
			diags.Addf(report.ConsistencyError, RuleEncodeOnlyFlags, report.Objects(h),
				"flags %#x are only allowed for encode profiles", uint32(info.Flags&encodeOnly))
		}
		return
	}
	if info.Flags&CreateAllowEncodeQuantizationDeltaMap != 0 && info.Flags&CreateAllowEncodeEmphasisMap != 0 {
		diags.Addf(report.ConsistencyError, RuleQuantizationMapFlags, report.Objects(h),
			"quantization delta maps and emphasis maps cannot both be allowed")
	}
	if info.Flags&CreateAllowEncodeQuantizationDeltaMap != 0 && caps.Encode.Flags&profile.EncodeQuantizationDeltaMap == 0 {
		diags.Addf(report.UnsupportedError, RuleQuantizationMapFlags, report.Objects(h),
			"quantization delta maps are not supported by the profile")
	}
	if info.Flags&CreateAllowEncodeEmphasisMap != 0 && caps.Encode.Flags&profile.EncodeEmphasisMap == 0 {
		diags.Addf(report.UnsupportedError, RuleQuantizationMapFlags, report.Objects(h),
			"emphasis maps are not supported by the profile")
	}
	return
}

func (s *Session) String() string {
	return fmt.Sprintf("SESSION %v", s.handle)
}

func (s *Session) Handle() vkvideo.Handle              { return s.handle }
func (s *Session) Info() CreateInfo                    { return s.info }
func (s *Session) Profile() profile.Profile            { return s.info.Profile }
func (s *Session) Operation() vkvideo.CodecOperation   { return s.info.Profile.Operation }
func (s *Session) Capabilities() *profile.Capabilities { return s.caps }
func (s *Session) MaxDpbSlots() uint32                 { return s.info.MaxDpbSlots }
func (s *Session) MaxActiveReferencePictures() uint32  { return s.info.MaxActiveReferencePictures }
func (s *Session) HasFlags(flags CreateFlags) bool     { return s.info.Flags&flags == flags }

// BindMemory validates and records memory bindings. Invalid bindings are not recorded.
func (s *Session) BindMemory(bindings []MemoryBinding) (diags report.List) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uint32]struct{}, len(bindings))
	for i, b := range bindings {
		if _, dup := seen[b.BindIndex]; dup {
			diags.Addf(report.SequenceError, RuleBindDuplicate, report.Objects(s.handle, b.Memory),
				"pBindSessionMemoryInfos[%d].memoryBindIndex %d appears more than once", i, b.BindIndex)
			continue
		}
		seen[b.BindIndex] = struct{}{}
		if b.BindIndex >= s.info.MemoryBindingCount {
			diags.Addf(report.RangeError, RuleBindIndex, report.Objects(s.handle, b.Memory),
				"pBindSessionMemoryInfos[%d].memoryBindIndex %d is not a memory binding of the session (count %d)",
				i, b.BindIndex, s.info.MemoryBindingCount)
			continue
		}
		if _, bound := s.bound[b.BindIndex]; bound {
			diags.Addf(report.ConsistencyError, RuleBindAlreadyBound, report.Objects(s.handle, b.Memory),
				"memoryBindIndex %d is already bound", b.BindIndex)
			continue
		}
	}
	if len(diags) > 0 {
		return
	}
	for _, b := range bindings {
		s.bound[b.BindIndex] = b
	}
	return
}

// MemoryBound reports whether every required memory binding has been bound.
func (s *Session) MemoryBound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint32(len(s.bound)) == s.info.MemoryBindingCount
}

// UnboundIndices returns the memory bind indices that still lack memory.
func (s *Session) UnboundIndices() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []uint32
	for i := range s.info.MemoryBindingCount {
		if _, ok := s.bound[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// ValidateDestroy checks that the session is not referenced by any pending command recorder. The
// device removes the session from its table first, so no recorder can acquire it afterwards.
func (s *Session) ValidateDestroy() (diags report.List) {
	if n := s.Count(); n > 0 {
		diags.Addf(report.ConsistencyError, RuleDestroyInUse, report.Objects(s.handle),
			"video session is still referenced by %d command recorder(s)", n)
	}
	return
}
