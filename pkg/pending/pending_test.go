package pending

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/intent"
)

func req(kind intent.Kind, user string, at time.Time) Request {
	return Request{
		Kind:      kind,
		Channel:   "discord",
		ChatID:    "c1",
		UserID:    user,
		CreatedAt: at,
	}
}

func TestConsumeWithinWindow(t *testing.T) {
	now := time.Now()
	s := NewStore(10 * time.Minute)
	s.Put(req(intent.KindCVIdentify, "u1", now))

	got, ok := s.Consume("discord", "c1", "u1", now.Add(3*time.Minute))
	if !ok {
		t.Fatal("expected a live slot")
	}
	if got.Kind != intent.KindCVIdentify {
		t.Fatalf("kind = %s, want cv_identify", got.Kind)
	}
	if _, ok := s.Consume("discord", "c1", "u1", now.Add(3*time.Minute)); ok {
		t.Fatal("slot survived its own consumption")
	}
}

func TestExpiredSlotIsAbsent(t *testing.T) {
	now := time.Now()
	s := NewStore(10 * time.Minute)
	s.Put(req(intent.KindCVDetect, "u1", now))

	if _, ok := s.Consume("discord", "c1", "u1", now.Add(11*time.Minute)); ok {
		t.Fatal("slot outlived its window")
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d after lazy expiry, want 0", s.Len())
	}
}

func TestLastRequestWins(t *testing.T) {
	now := time.Now()
	s := NewStore(10 * time.Minute)
	s.Put(req(intent.KindCVIdentify, "u1", now))
	replaced := s.Put(req(intent.KindCVCrop, "u1", now.Add(time.Minute)))
	if !replaced {
		t.Fatal("second request did not report a replacement")
	}

	got, ok := s.Consume("discord", "c1", "u1", now.Add(2*time.Minute))
	if !ok || got.Kind != intent.KindCVCrop {
		t.Fatalf("got %+v, want the later cv_crop request", got)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Now()
	s := NewStore(10 * time.Minute)
	s.Put(req(intent.KindCVIdentify, "u1", now))
	s.Put(req(intent.KindCVDetect, "u2", now))

	if got, ok := s.Consume("discord", "c1", "u2", now); !ok || got.Kind != intent.KindCVDetect {
		t.Fatalf("u2 slot = %+v, ok = %v", got, ok)
	}
	if got, ok := s.Consume("discord", "c1", "u1", now); !ok || got.Kind != intent.KindCVIdentify {
		t.Fatalf("u1 slot = %+v, ok = %v", got, ok)
	}
}

func TestSweepDropsOnlyExpired(t *testing.T) {
	now := time.Now()
	s := NewStore(10 * time.Minute)
	s.Put(req(intent.KindCVIdentify, "old", now.Add(-20*time.Minute)))
	s.Put(req(intent.KindCVIdentify, "fresh", now))

	if removed := s.Sweep(now); removed != 1 {
		t.Fatalf("swept %d slots, want 1", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d after sweep, want 1", s.Len())
	}
	if _, ok := s.Consume("discord", "c1", "fresh", now); !ok {
		t.Fatal("fresh slot lost to the sweep")
	}
}

func TestSingleSlotUnderConcurrency(t *testing.T) {
	now := time.Now()
	s := NewStore(10 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := req(intent.KindCVIdentify, "u1", now)
			r.CorrelationID = fmt.Sprintf("corr-%d", i)
			s.Put(r)
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Fatalf("len = %d after concurrent puts on one key, want 1", s.Len())
	}
	if _, ok := s.Consume("discord", "c1", "u1", now); !ok {
		t.Fatal("expected exactly one surviving slot")
	}
}
