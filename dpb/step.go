package dpb

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/utils/logger"
)

// Action is what a Step does when replayed.
type Action uint8

const (
	// AssertActive checks that Slot is active.
	AssertActive Action = iota + 1
	// AssertPicture checks that Slot holds Resource in every unit of Kind.
	AssertPicture
	// AssertBound checks that Handle is a non-null, live object.
	AssertBound
	// AssertAlive checks that Handle is still alive at submission time.
	AssertAlive
	// Activate stores Resource in Slot for the units of Kind.
	Activate
	// Deactivate makes Slot inactive.
	Deactivate
	// DeactivateUnlisted makes every slot not in Slots inactive.
	DeactivateUnlisted
	// Reset makes every slot inactive.
	Reset
)

func (a Action) String() string {
	switch a {
	case AssertActive:
		return "AssertActive"
	case AssertPicture:
		return "AssertPicture"
	case AssertBound:
		return "AssertBound"
	case AssertAlive:
		return "AssertAlive"
	case Activate:
		return "Activate"
	case Deactivate:
		return "Deactivate"
	case DeactivateUnlisted:
		return "DeactivateUnlisted"
	case Reset:
		return "Reset"
	}
	return "Unknown"
}

// Step is one deferred assertion or DPB state effect captured while recording. It holds values
// only, so it can outlive the command recorder that produced it.
type Step struct {
	Action   Action
	Rule     string // Reported when an assertion fails.
	Slot     int32
	Kind     Kind
	Resource vkvideo.PictureResource
	Slots    []int32
	Handle   vkvideo.Handle
	Objects  []vkvideo.Handle
	Context  string // Where the step was recorded, e.g. "vkCmdDecodeVideoKHR pReferenceSlots[1]".
}

func (st Step) String() string {
	return fmt.Sprintf("%v slot=%d kind=%v %s", st.Action, st.Slot, st.Kind, st.Context)
}

// Queue collects the steps recorded for one session, in recording order.
type Queue struct {
	mu    sync.Mutex
	steps []Step
}

// Append adds steps at the end of the queue.
func (q *Queue) Append(steps ...Step) {
	q.mu.Lock()
	q.steps = append(q.steps, steps...)
	q.mu.Unlock()
}

// Steps returns a copy of the queued steps.
func (q *Queue) Steps() []Step {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.steps)
}

// Len returns the number of queued steps.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.steps)
}

// Clear drops every queued step.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.steps = nil
	q.mu.Unlock()
}

// Replay applies steps to state in order. Every failed assertion yields exactly one diagnostic and
// replay always runs to the end. alive answers whether a handle still refers to a live object;
// nil treats every non-null handle as alive.
func Replay(state *State, steps []Step, alive func(vkvideo.Handle) bool) (diags report.List) {
	if alive == nil {
		alive = func(h vkvideo.Handle) bool { return h != vkvideo.NullHandle }
	}
	for _, st := range steps {
		switch st.Action {
		case AssertActive:
			if !state.Active(st.Slot) {
				diags.Addf(report.ConsistencyError, st.Rule, st.Objects,
					"%s: DPB slot %d is not active", st.Context, st.Slot)
			}
		case AssertPicture:
			if state.Active(st.Slot) && !state.Holds(st.Slot, st.Kind, st.Resource) {
				diags.Addf(report.ConsistencyError, st.Rule, st.Objects,
					"%s: DPB slot %d does not hold the %v picture %v (holds %v)",
					st.Context, st.Slot, st.Kind, st.Resource, state.Occupancy(st.Slot))
			}
		case AssertBound:
			if st.Handle == vkvideo.NullHandle || !alive(st.Handle) {
				diags.Addf(report.StructuralError, st.Rule, st.Objects,
					"%s: no live object %v is bound", st.Context, st.Handle)
			}
		case AssertAlive:
			if !alive(st.Handle) {
				diags.Addf(report.ConsistencyError, st.Rule, st.Objects,
					"%s: object %v was destroyed before submission", st.Context, st.Handle)
			}
		case Activate:
			state.Activate(st.Slot, st.Kind, st.Resource)
		case Deactivate:
			state.Deactivate(st.Slot)
		case DeactivateUnlisted:
			for _, idx := range state.ActiveSlots() {
				if !slices.Contains(st.Slots, idx) {
					state.Deactivate(idx)
				}
			}
		case Reset:
			state.Reset()
		default:
			logger.Warningf(state, "Skipping step with unknown action %v", st.Action)
		}
	}
	return
}

func (s *State) String() string {
	return fmt.Sprintf("DPB %d slots", len(s.slots))
}
