package corpus

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Manager tracks the published corpus per dataset name. Publication is
// an atomic pointer swap: queries running against the previous corpus
// finish on it undisturbed while new queries see the replacement.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*atomic.Pointer[Corpus]
}

// NewManager creates an empty corpus manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*atomic.Pointer[Corpus])}
}

func (m *Manager) slot(name string) *atomic.Pointer[Corpus] {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[name]
	if !ok {
		p = &atomic.Pointer[Corpus]{}
		m.entries[name] = p
	}
	return p
}

// Publish makes c the current corpus for name.
func (m *Manager) Publish(name string, c *Corpus) {
	m.slot(name).Store(c)
}

// Get returns the current corpus for name, or ErrNotBuilt.
func (m *Manager) Get(name string) (*Corpus, error) {
	m.mu.Lock()
	p, ok := m.entries[name]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotBuilt
	}
	c := p.Load()
	if c == nil {
		return nil, ErrNotBuilt
	}
	return c, nil
}

// Names returns the dataset names with a published corpus, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name, p := range m.entries {
		if p.Load() != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
