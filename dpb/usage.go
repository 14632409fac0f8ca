package dpb

type useKey struct {
	slot int32
	unit Kind
}

// UseCounter counts how many times each slot occupancy unit is claimed by one coding command.
type UseCounter struct {
	counts map[useKey]int
}

// Claim records a use of every unit of kind in slot and returns the units that have just become
// used more than once. Each over-used unit is returned only on its second claim.
func (u *UseCounter) Claim(slot int32, kind Kind) (overused Kind) {
	if u.counts == nil {
		u.counts = make(map[useKey]int)
	}
	for _, unit := range kind.Units() {
		k := useKey{slot: slot, unit: unit}
		u.counts[k]++
		if u.counts[k] == 2 { //nolint:mnd
			overused |= unit
		}
	}
	return
}
