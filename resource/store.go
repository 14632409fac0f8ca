package resource

import (
	"sync"

	"github.com/ugparu/vkvideo"
	"github.com/ugparu/vkvideo/utils/registry"
)

// Store is an in-memory Lookup used when the checker runs standalone.
type Store struct {
	views   *registry.Table[ImageView]
	buffers *registry.Table[Buffer]
	pools   *registry.Table[QueryPool]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		views:   registry.New[ImageView](0),
		buffers: registry.New[Buffer](0),
		pools:   registry.New[QueryPool](0),
	}
}

func (s *Store) AddImageView(v ImageView) {
	s.views.Put(v.Handle, &v)
}

func (s *Store) AddBuffer(b Buffer) {
	s.buffers.Put(b.Handle, &b)
}

func (s *Store) AddQueryPool(p QueryPool) {
	s.pools.Put(p.Handle, &p)
}

func (s *Store) ImageView(h vkvideo.Handle) (*ImageView, bool) {
	return s.views.Get(h)
}

func (s *Store) Buffer(h vkvideo.Handle) (*Buffer, bool) {
	return s.buffers.Get(h)
}

func (s *Store) QueryPool(h vkvideo.Handle) (*QueryPool, bool) {
	return s.pools.Get(h)
}

type layoutKey struct {
	image vkvideo.Handle
	layer uint32
}

// LayoutMap is a Layouts implementation backed by a map.
type LayoutMap struct {
	mu      sync.RWMutex
	layouts map[layoutKey]ImageLayout
}

func NewLayoutMap() *LayoutMap {
	return &LayoutMap{layouts: make(map[layoutKey]ImageLayout)}
}

// Set records the layout of one image layer.
func (m *LayoutMap) Set(image vkvideo.Handle, layer uint32, layout ImageLayout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layouts[layoutKey{image, layer}] = layout
}

func (m *LayoutMap) ImageLayout(image vkvideo.Handle, layer uint32) (ImageLayout, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layouts[layoutKey{image, layer}]
	return l, ok
}
