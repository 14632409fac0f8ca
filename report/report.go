// Package report defines the diagnostics produced by the checker and the sinks they are delivered to.
package report

import (
	"fmt"
	"strings"

	"github.com/ugparu/vkvideo"
)

// Kind classifies a diagnostic.
type Kind uint8

const (
	// StructuralError means a required payload or structure is missing.
	StructuralError Kind = iota + 1
	// RangeError means a numeric field is outside the bounds declared by the profile.
	RangeError
	// CapacityError means a parameter store or DPB capacity is exceeded.
	CapacityError
	// SequenceError means an update sequence or key uniqueness rule is violated.
	SequenceError
	// ConsistencyError means two fields or two commands disagree.
	ConsistencyError
	// UnsupportedError means the profile or a capability is not present.
	UnsupportedError
)

func (k Kind) String() string {
	switch k {
	case StructuralError:
		return "StructuralError"
	case RangeError:
		return "RangeError"
	case CapacityError:
		return "CapacityError"
	case SequenceError:
		return "SequenceError"
	case ConsistencyError:
		return "ConsistencyError"
	case UnsupportedError:
		return "UnsupportedError"
	}
	return "UnknownError"
}

// Diagnostic describes exactly one violated rule.
type Diagnostic struct {
	Rule    string           // Stable rule identifier.
	Kind    Kind             // Error class.
	Objects []vkvideo.Handle // Offending object handles, most specific last.
	Message string           // Human-readable explanation.
}

func (d Diagnostic) Error() string {
	if len(d.Objects) == 0 {
		return fmt.Sprintf("%s [%s]: %s", d.Kind, d.Rule, d.Message)
	}
	objs := make([]string, len(d.Objects))
	for i, o := range d.Objects {
		objs[i] = o.String()
	}
	return fmt.Sprintf("%s [%s] (%s): %s", d.Kind, d.Rule, strings.Join(objs, ","), d.Message)
}

// Objects is a helper that drops null handles from the list.
func Objects(handles ...vkvideo.Handle) []vkvideo.Handle {
	out := make([]vkvideo.Handle, 0, len(handles))
	for _, h := range handles {
		if h != vkvideo.NullHandle {
			out = append(out, h)
		}
	}
	return out
}

// List accumulates diagnostics. The zero value is ready to use.
type List []Diagnostic

// Addf appends a new diagnostic built from a format string.
func (l *List) Addf(kind Kind, rule string, objects []vkvideo.Handle, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Rule:    rule,
		Kind:    kind,
		Objects: objects,
		Message: fmt.Sprintf(format, args...),
	})
}

// Append appends already built diagnostics.
func (l *List) Append(diags ...Diagnostic) {
	*l = append(*l, diags...)
}

// Has reports whether a diagnostic with the given rule is present.
func (l List) Has(rule string) bool {
	return l.Count(rule) > 0
}

// Count returns the number of diagnostics with the given rule.
func (l List) Count(rule string) int {
	n := 0
	for _, d := range l {
		if d.Rule == rule {
			n++
		}
	}
	return n
}

// Rules returns the rule identifiers in report order, or nil for an empty list.
func (l List) Rules() []string {
	var rules []string
	for _, d := range l {
		rules = append(rules, d.Rule)
	}
	return rules
}
