package backup

import "sync"

// Gate coordinates vector store writers with the snapshot process.
//
// Writers hold a shared lock for the duration of each write batch; the
// snapshot takes the exclusive lock, so it starts only after in-flight
// writes finish and blocks new ones until the archive is sealed.
type Gate struct {
	mu sync.RWMutex
}

// NewGate creates a write gate.
func NewGate() *Gate {
	return &Gate{}
}

// BeginWrite acquires the shared side of the gate. The returned func
// must be called when the write batch completes.
func (g *Gate) BeginWrite() (done func()) {
	g.mu.RLock()
	return g.mu.RUnlock
}

// quiesce blocks until all in-flight writes finish and holds off new
// ones. The returned func reopens the gate.
func (g *Gate) quiesce() (resume func()) {
	g.mu.Lock()
	return g.mu.Unlock
}
