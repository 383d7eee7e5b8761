package counters

import (
	"context"
	"sync"
	"testing"

	"aniflixx/engage/internal/actor"
	"aniflixx/engage/pkg/logging"
)

func newTestService() *Service {
	return NewService(actor.NewMemoryStore(), logging.NewLogger())
}

func TestIncrementReturnsNewValue(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Increment(ctx, "post-1", "likes")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestDecrementFloorsAtZero(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Absent field decrements to 0, not -1.
	got, err := svc.Decrement(ctx, "post-1", "likes")
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected floor at 0, got %d", got)
	}

	if _, err := svc.Increment(ctx, "post-1", "likes"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got, err = svc.Decrement(ctx, "post-1", "likes")
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected return to 0, got %d", got)
	}

	// Already at zero: still 0.
	got, _ = svc.Decrement(ctx, "post-1", "likes")
	if got != 0 {
		t.Fatalf("expected 0 after repeated decrement, got %d", got)
	}
}

func TestAllMatchesIncrementArithmetic(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Increment(ctx, "post-1", "likes"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Increment(ctx, "post-1", "comments"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	all, err := svc.All(ctx, "post-1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if all["likes"] != 5 || all["comments"] != 2 {
		t.Fatalf("unexpected counts: %v", all)
	}
}

func TestAllOnUnknownEntityIsEmpty(t *testing.T) {
	svc := newTestService()

	all, err := svc.All(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty counts, got %v", all)
	}
}

func TestConcurrentMixedMutationsSerialize(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	const workers = 6
	const perWorker = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := svc.Increment(ctx, "flick-9", "views"); err != nil {
					t.Errorf("increment: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	all, err := svc.All(ctx, "flick-9")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if all["views"] != workers*perWorker {
		t.Fatalf("lost updates: expected %d, got %d", workers*perWorker, all["views"])
	}
}

func TestCountsSurviveRestart(t *testing.T) {
	store := actor.NewMemoryStore()
	logger := logging.NewLogger()
	svc := NewService(store, logger)
	ctx := context.Background()

	if _, err := svc.Increment(ctx, "post-1", "shares"); err != nil {
		t.Fatalf("increment: %v", err)
	}

	restarted := NewService(store, logger)
	all, err := restarted.All(ctx, "post-1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if all["shares"] != 1 {
		t.Fatalf("expected restored share count, got %v", all)
	}
}
