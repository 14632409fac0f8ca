// Package dpb tracks DPB slot state while the deferred checks recorded for a video session are
// replayed at submission time.
package dpb

import (
	"strings"

	"github.com/ugparu/vkvideo"
)

// Kind is a set of occupancy units of one DPB slot.
type Kind uint8

const (
	Frame       Kind = 0x1
	TopField    Kind = 0x2
	BottomField Kind = 0x4

	// FieldPair is a complementary field pair stored in one slot.
	FieldPair = TopField | BottomField
)

func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	if k&Frame != 0 {
		parts = append(parts, "frame")
	}
	if k&TopField != 0 {
		parts = append(parts, "top")
	}
	if k&BottomField != 0 {
		parts = append(parts, "bottom")
	}
	return strings.Join(parts, "+")
}

// Units splits k into its single occupancy units.
func (k Kind) Units() []Kind {
	var out []Kind
	for _, u := range []Kind{Frame, TopField, BottomField} {
		if k&u != 0 {
			out = append(out, u)
		}
	}
	return out
}

type slot struct {
	active bool
	frame  *vkvideo.PictureResource
	top    *vkvideo.PictureResource
	bottom *vkvideo.PictureResource
}

// State is the DPB slot table of one session. All slots start inactive.
type State struct {
	slots []slot
}

// NewState creates a table of n inactive slots.
func NewState(n uint32) *State {
	return &State{slots: make([]slot, n)}
}

func (s *State) valid(idx int32) bool {
	return idx >= 0 && int(idx) < len(s.slots)
}

// Len returns the number of slots.
func (s *State) Len() int {
	return len(s.slots)
}

// Activate makes the slot active holding res in the units of kind. Frame and field occupancy
// exclude each other: storing one drops the other.
func (s *State) Activate(idx int32, kind Kind, res vkvideo.PictureResource) {
	if !s.valid(idx) {
		return
	}
	sl := &s.slots[idx]
	if !sl.active {
		*sl = slot{}
	}
	sl.active = true
	if kind&Frame != 0 {
		sl.frame, sl.top, sl.bottom = &res, nil, nil
		return
	}
	sl.frame = nil
	if kind&TopField != 0 {
		sl.top = &res
	}
	if kind&BottomField != 0 {
		sl.bottom = &res
	}
}

// Deactivate makes the slot inactive and forgets its pictures.
func (s *State) Deactivate(idx int32) {
	if s.valid(idx) {
		s.slots[idx] = slot{}
	}
}

// Reset deactivates every slot.
func (s *State) Reset() {
	clear(s.slots)
}

// Active reports whether the slot is active.
func (s *State) Active(idx int32) bool {
	return s.valid(idx) && s.slots[idx].active
}

// Holds reports whether the slot currently holds res in every unit of kind. A frame satisfies a
// field reference to the same picture resource. A zero kind matches res in any unit.
func (s *State) Holds(idx int32, kind Kind, res vkvideo.PictureResource) bool {
	if !s.Active(idx) {
		return false
	}
	sl := &s.slots[idx]
	match := func(p *vkvideo.PictureResource) bool { return p != nil && *p == res }
	if kind == 0 {
		return match(sl.frame) || match(sl.top) || match(sl.bottom)
	}
	for _, u := range kind.Units() {
		switch u {
		case Frame:
			if !match(sl.frame) {
				return false
			}
		case TopField:
			if !match(sl.top) && !match(sl.frame) {
				return false
			}
		case BottomField:
			if !match(sl.bottom) && !match(sl.frame) {
				return false
			}
		}
	}
	return true
}

// Occupancy returns the units the slot currently holds.
func (s *State) Occupancy(idx int32) Kind {
	if !s.Active(idx) {
		return 0
	}
	sl := &s.slots[idx]
	var k Kind
	if sl.frame != nil {
		k |= Frame
	}
	if sl.top != nil {
		k |= TopField
	}
	if sl.bottom != nil {
		k |= BottomField
	}
	return k
}

// ActiveSlots returns the indices of the active slots in ascending order.
func (s *State) ActiveSlots() []int32 {
	var out []int32
	for i := range s.slots {
		if s.slots[i].active {
			out = append(out, int32(i))
		}
	}
	return out
}
