package flags

import "sync"

// Gate is a live boolean flag with change subscriptions. The payments gate is
// read once when a purchase surface opens and subscribed to so open surfaces
// react to flips instead of re-reading a module-level constant.
type Gate struct {
	mu      sync.Mutex
	enabled bool
	nextID  int
	subs    map[int]func(bool)
}

// NewGate builds a gate seeded with the configured value.
func NewGate(enabled bool) *Gate {
	return &Gate{
		enabled: enabled,
		subs:    map[int]func(bool){},
	}
}

// Enabled returns the current flag value.
func (g *Gate) Enabled() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// Set updates the flag and notifies subscribers on change.
func (g *Gate) Set(enabled bool) {
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.enabled == enabled {
		g.mu.Unlock()
		return
	}
	g.enabled = enabled
	callbacks := make([]func(bool), 0, len(g.subs))
	for _, fn := range g.subs {
		callbacks = append(callbacks, fn)
	}
	g.mu.Unlock()

	for _, fn := range callbacks {
		fn(enabled)
	}
}

// Subscribe registers fn for change notifications and returns a cancel func.
func (g *Gate) Subscribe(fn func(bool)) func() {
	if g == nil || fn == nil {
		return func() {}
	}
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}
