// Package session keeps per-thread chat history in memory.
//
// The chat API is stateless from the client's point of view: callers pass a
// thread_id and the service replays prior turns to the model. History lives
// only in process memory; a restart clears it, which matches how the
// deployment treats conversations as ephemeral.
package session

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an idle thread survives before the janitor
	// drops it.
	DefaultTTL = 30 * time.Minute

	// MaxMessagesPerThread caps history growth per thread. The oldest
	// turns are dropped first; the model only sees a window anyway.
	MaxMessagesPerThread = 50

	janitorInterval = 5 * time.Minute
)

// Role values for Message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string
	Content string
}

// thread holds one conversation's history and last activity time.
type thread struct {
	messages []Message
	lastSeen time.Time
}

// Store is an in-memory, TTL-evicting thread store.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	mu      sync.Mutex
	threads map[string]*thread
	ttl     time.Duration
	logger  *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Store and starts its eviction goroutine. Callers must Close
// the store to stop the goroutine. ttl <= 0 falls back to DefaultTTL.
func New(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		threads: make(map[string]*thread),
		ttl:     ttl,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// History returns a copy of the thread's messages, oldest first.
// Unknown threads return nil.
func (s *Store) History(threadID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil
	}
	t.lastSeen = time.Now()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Append adds messages to a thread, creating it on first use.
func (s *Store) Append(threadID string, msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		t = &thread{}
		s.threads[threadID] = t
	}
	t.messages = append(t.messages, msgs...)
	t.lastSeen = time.Now()

	if n := len(t.messages); n > MaxMessagesPerThread {
		t.messages = t.messages[n-MaxMessagesPerThread:]
	}
}

// Len returns the number of live threads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// Close stops the eviction goroutine. Safe to call more than once.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Store) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictStale()
		}
	}
}

func (s *Store) evictStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, t := range s.threads {
		if now.Sub(t.lastSeen) > s.ttl {
			delete(s.threads, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle chat threads", "count", evicted, "remaining", len(s.threads))
	}
}
