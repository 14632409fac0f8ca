package report

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ugparu/vkvideo/utils/logger"
)

// Sink receives every diagnostic the checker produces.
type Sink interface {
	Report(Diagnostic)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Report(d Diagnostic) { f(d) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Deliver sends every diagnostic of the list to the sink.
func Deliver(s Sink, diags []Diagnostic) {
	if s == nil {
		return
	}
	for _, d := range diags {
		s.Report(d)
	}
}

// LogSink writes diagnostics through the package logger.
type LogSink struct {
	Name string
}

func (s LogSink) String() string {
	if s.Name == "" {
		return "REPORT"
	}
	return s.Name
}

func (s LogSink) Report(d Diagnostic) {
	logger.WithFields(s, logrus.Fields{
		"rule":    d.Rule,
		"kind":    d.Kind.String(),
		"objects": d.Objects,
	}).Warning(d.Message)
}

// Filter drops diagnostics whose rule is disabled and forwards the rest.
type Filter struct {
	next     Sink
	disabled map[string]struct{}
}

// NewFilter creates a Filter in front of next.
func NewFilter(next Sink, disabledRules []string) *Filter {
	f := &Filter{
		next:     next,
		disabled: make(map[string]struct{}, len(disabledRules)),
	}
	for _, r := range disabledRules {
		f.disabled[r] = struct{}{}
	}
	return f
}

func (f *Filter) Report(d Diagnostic) {
	if _, ok := f.disabled[d.Rule]; ok {
		return
	}
	f.next.Report(d)
}

// Tee forwards each diagnostic to all sinks in order.
type Tee []Sink

func (t Tee) Report(d Diagnostic) {
	for _, s := range t {
		s.Report(d)
	}
}

const defaultCollectorLimit = 1024

// Collector keeps the most recent diagnostics in memory. It is safe for concurrent use.
type Collector struct {
	mu    sync.RWMutex
	items []Diagnostic
	limit int
	total uint64
}

// NewCollector creates a Collector keeping at most limit diagnostics.
func NewCollector(limit int) *Collector {
	if limit <= 0 {
		limit = defaultCollectorLimit
	}
	return &Collector{limit: limit}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if len(c.items) == c.limit {
		copy(c.items, c.items[1:])
		c.items = c.items[:len(c.items)-1]
	}
	c.items = append(c.items, d)
}

// Snapshot returns a copy of the kept diagnostics, oldest first.
func (c *Collector) Snapshot() List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(List, len(c.items))
	copy(out, c.items)
	return out
}

// Total returns the number of diagnostics ever reported, including evicted ones.
func (c *Collector) Total() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Reset drops all kept diagnostics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
