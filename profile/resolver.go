package profile

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=resolver.go -destination=mocks/mock_provider.go -package=mocks

// Provider answers capability queries for a profile, typically by asking the driver.
type Provider interface {
	VideoCapabilities(p Profile) (*Capabilities, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(p Profile) (*Capabilities, error)

func (f ProviderFunc) VideoCapabilities(p Profile) (*Capabilities, error) { return f(p) }

type resolved struct {
	caps *Capabilities
	err  error
}

// Resolver caches capability lookups per distinct profile value. Failures are cached too, so a
// profile is never queried twice and equal profiles always observe the same answer.
type Resolver struct {
	provider Provider
	mu       sync.RWMutex
	cache    map[Profile]resolved
	group    singleflight.Group
}

// NewResolver creates a Resolver backed by provider.
func NewResolver(provider Provider) *Resolver {
	return &Resolver{
		provider: provider,
		cache:    make(map[Profile]resolved),
	}
}

func (r *Resolver) String() string {
	return "RESOLVER"
}

func (r *Resolver) lookup(p Profile) (resolved, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.cache[p]
	return res, ok
}

// Resolve returns the capabilities of p. The returned pointer is shared by every caller that
// resolves an equal profile. Unsupported or invalid profiles yield an error wrapping
// ErrUnsupported or ErrInvalidProfile.
func (r *Resolver) Resolve(p Profile) (*Capabilities, error) {
	if res, ok := r.lookup(p); ok {
		return res.caps, res.err
	}
	v, _, _ := r.group.Do(fmt.Sprintf("%#v", p), func() (any, error) {
		if res, ok := r.lookup(p); ok {
			return res, nil
		}
		res := r.query(p)
		r.mu.Lock()
		r.cache[p] = res
		r.mu.Unlock()
		return res, nil
	})
	res, _ := v.(resolved)
	return res.caps, res.err
}

func (r *Resolver) query(p Profile) resolved {
	if err := p.Validate(); err != nil {
		return resolved{err: err}
	}
	caps, err := r.provider.VideoCapabilities(p)
	if err != nil {
		return resolved{err: fmt.Errorf("%w: %w", ErrUnsupported, err)}
	}
	if caps == nil {
		return resolved{err: fmt.Errorf("%w: %v", ErrUnsupported, p)}
	}
	if !caps.Complete(p.Operation) {
		return resolved{err: fmt.Errorf("%w: %v: capabilities lack the %v records", ErrUnsupported, p, p.Operation)}
	}
	return resolved{caps: caps}
}

// Len returns the number of cached profiles, supported or not.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Supported returns the cached supported profiles ordered by operation.
func (r *Resolver) Supported() []Profile {
	r.mu.RLock()
	out := make([]Profile, 0, len(r.cache))
	for p, res := range r.cache {
		if res.err == nil {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Operation != out[j].Operation {
			return out[i].Operation < out[j].Operation
		}
		return out[i].String() < out[j].String()
	})
	return out
}
