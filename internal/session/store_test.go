package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/lexicon-id/putusan/internal/log"
)

func TestStore_AppendAndHistory(t *testing.T) {
	s := New(time.Minute, log.NewNop())
	defer s.Close()

	s.Append("t1", Message{Role: RoleUser, Content: "pertanyaan"})
	s.Append("t1", Message{Role: RoleAssistant, Content: "jawaban"})

	history := s.History("t1")
	if len(history) != 2 {
		t.Fatalf("History() returned %d messages, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[0].Content != "pertanyaan" {
		t.Errorf("history[0] = %+v, want user question", history[0])
	}
	if history[1].Role != RoleAssistant {
		t.Errorf("history[1].Role = %q, want %q", history[1].Role, RoleAssistant)
	}
}

func TestStore_UnknownThread(t *testing.T) {
	s := New(time.Minute, log.NewNop())
	defer s.Close()

	if history := s.History("missing"); history != nil {
		t.Errorf("History(missing) = %v, want nil", history)
	}
}

func TestStore_HistoryReturnsCopy(t *testing.T) {
	s := New(time.Minute, log.NewNop())
	defer s.Close()

	s.Append("t1", Message{Role: RoleUser, Content: "asli"})

	history := s.History("t1")
	history[0].Content = "diubah"

	if got := s.History("t1")[0].Content; got != "asli" {
		t.Errorf("stored message = %q, caller mutation leaked in", got)
	}
}

func TestStore_CapsThreadLength(t *testing.T) {
	s := New(time.Minute, log.NewNop())
	defer s.Close()

	for i := 0; i < MaxMessagesPerThread+10; i++ {
		s.Append("t1", Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	history := s.History("t1")
	if len(history) != MaxMessagesPerThread {
		t.Fatalf("History() returned %d messages, want %d", len(history), MaxMessagesPerThread)
	}
	// Oldest messages are dropped first.
	if history[0].Content != "m10" {
		t.Errorf("history[0].Content = %q, want %q", history[0].Content, "m10")
	}
}

func TestStore_EvictStale(t *testing.T) {
	s := New(10*time.Millisecond, log.NewNop())
	defer s.Close()

	s.Append("stale", Message{Role: RoleUser, Content: "lama"})
	time.Sleep(20 * time.Millisecond)
	s.Append("fresh", Message{Role: RoleUser, Content: "baru"})

	s.evictStale()

	if s.History("stale") != nil {
		t.Error("stale thread survived eviction")
	}
	if s.History("fresh") == nil {
		t.Error("fresh thread was evicted")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(time.Minute, log.NewNop())
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d", n%3)
			for j := 0; j < 100; j++ {
				s.Append(id, Message{Role: RoleUser, Content: "x"})
				s.History(id)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestStore_CloseStopsJanitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(time.Minute, log.NewNop())
	s.Append("t1", Message{Role: RoleUser, Content: "x"})
	s.Close()
	s.Close() // idempotent
}
