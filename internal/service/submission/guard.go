package submission

import (
	"strings"
	"sync"
	"time"
)

// InFlightGuard rejects a second submission from the same submitter while the first
// one is still running.
type InFlightGuard struct {
	active map[string]time.Time
	mu     sync.Mutex
	now    func() time.Time
}

// NewInFlightGuard creates an empty guard.
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{active: make(map[string]time.Time), now: time.Now}
}

// Acquire marks key as in flight. It returns false when key is already held; otherwise
// the returned release func must be called once the submission ends.
func (g *InFlightGuard) Acquire(key string) (release func(), ok bool) {
	key = strings.ToLower(strings.TrimSpace(key))

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = g.now()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.active, key)
		})
	}, true
}

// Since returns when key was acquired, if it is held.
func (g *InFlightGuard) Since(key string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	started, ok := g.active[strings.ToLower(strings.TrimSpace(key))]
	return started, ok
}
