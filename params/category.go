package params

import (
	"maps"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/report"
)

// category is one keyed parameter-set dictionary with its capacity.
type category[K comparable, V any] struct {
	name     string
	capacity uint32
	entries  map[K]V
}

func newCategory[K comparable, V any](name string, capacity uint32) category[K, V] {
	return category[K, V]{name: name, capacity: capacity, entries: make(map[K]V)}
}

// stage validates add against base and returns the merged dictionary. With replace set, keys of
// add may shadow keys of base (creation from a template); otherwise they must be new.
// Each offending key is reported once.
func stage[K comparable, V any](
	c category[K, V], base map[K]V, add []V, keyOf func(*V) K, replace bool, objs []vkvideo.Handle,
) (map[K]V, report.List) {
	var diags report.List
	seen := make(map[K]int, len(add))
	merged := maps.Clone(base)
	if merged == nil {
		merged = make(map[K]V, len(add))
	}
	for i := range add {
		k := keyOf(&add[i])
		seen[k]++
		_, present := base[k]
		switch {
		case seen[k] == 1 && present && !replace:
			diags.Addf(report.SequenceError, RuleDuplicateKey, objs,
				"%s with key %+v already exists", c.name, k)
		case seen[k] == 2 && (replace || !present): //nolint:mnd
			diags.Addf(report.SequenceError, RuleDuplicateKey, objs,
				"%s key %+v appears more than once in the added entries", c.name, k)
		}
		merged[k] = add[i]
	}
	if uint32(len(merged)) > c.capacity {
		diags.Addf(report.CapacityError, RuleCapacityExceeded, objs,
			"%d %s entries exceed the capacity of %d", len(merged), c.name, c.capacity)
	}
	return merged, diags
}

func (c *category[K, V]) get(k K) (V, bool) {
	v, ok := c.entries[k]
	return v, ok
}

func (c *category[K, V]) len() int {
	return len(c.entries)
}
