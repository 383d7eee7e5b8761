package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCacheSetPeekDelete(t *testing.T) {
	c := New(Options{TTL: 50 * time.Millisecond, MaxEntries: 10})

	c.Set("alpha", "value", 50*time.Millisecond)
	if val, ok := c.Peek("alpha"); !ok || val.(string) != "value" {
		t.Fatalf("expected peeked value")
	}

	c.Delete("alpha")
	if _, ok := c.Peek("alpha"); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestCacheGetLoadsOnceWithinTTL(t *testing.T) {
	c := New(Options{TTL: time.Minute, MaxEntries: 10})

	var mu sync.Mutex
	callCount := 0
	loader := func(_ context.Context, _ string) (interface{}, bool, error) {
		mu.Lock()
		callCount++
		count := callCount
		mu.Unlock()
		return count, true, nil
	}

	val, ok, err := c.Get(context.Background(), "alpha", loader)
	if err != nil || !ok || val.(int) != 1 {
		t.Fatalf("expected first load, got %v %v %v", val, ok, err)
	}

	val, ok, err = c.Get(context.Background(), "alpha", loader)
	if err != nil || !ok || val.(int) != 1 {
		t.Fatalf("expected cache hit, got %v %v %v", val, ok, err)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(Options{TTL: 10 * time.Millisecond, MaxEntries: 10})
	loads := 0
	loader := func(_ context.Context, _ string) (interface{}, bool, error) {
		loads++
		return loads, true, nil
	}

	if _, _, err := c.Get(context.Background(), "alpha", loader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(15 * time.Millisecond)
	val, _, err := c.Get(context.Background(), "alpha", loader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.(int) != 2 {
		t.Fatalf("expected reload after expiry, got %v", val)
	}
}

func TestCacheNegativeNotStoredWithoutNegativeTTL(t *testing.T) {
	c := New(Options{TTL: time.Minute, MaxEntries: 10})
	wantErr := errors.New("missing")
	loads := 0
	loader := func(_ context.Context, _ string) (interface{}, bool, error) {
		loads++
		return nil, false, wantErr
	}

	if _, ok, err := c.Get(context.Background(), "alpha", loader); ok || !errors.Is(err, wantErr) {
		t.Fatalf("expected negative result")
	}
	if _, ok, _ := c.Get(context.Background(), "alpha", loader); ok {
		t.Fatalf("expected second negative result")
	}
	if loads != 2 {
		t.Fatalf("expected negatives not cached, loads=%d", loads)
	}
}

func TestCacheConcurrentHitsOnWarmKey(t *testing.T) {
	c := New(Options{TTL: time.Minute, MaxEntries: 10})
	loader := func(_ context.Context, _ string) (interface{}, bool, error) {
		return "value", true, nil
	}

	if _, _, err := c.Get(context.Background(), "alpha", loader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				val, ok, err := c.Get(context.Background(), "alpha", loader)
				if err != nil || !ok || val.(string) != "value" {
					t.Errorf("unexpected hit result: %v %v %v", val, ok, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCacheLoaderErrorNotCachedAsPositive(t *testing.T) {
	c := New(Options{TTL: time.Minute, MaxEntries: 10})
	wantErr := errors.New("load failed")
	loads := 0
	loader := func(_ context.Context, _ string) (interface{}, bool, error) {
		loads++
		if loads == 1 {
			return "partial", true, wantErr
		}
		return "good", true, nil
	}

	if _, ok, err := c.Get(context.Background(), "alpha", loader); ok || !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error surfaced, got ok=%v err=%v", ok, err)
	}

	val, ok, err := c.Get(context.Background(), "alpha", loader)
	if err != nil || !ok || val.(string) != "good" {
		t.Fatalf("expected retry after failed load, got %v %v %v", val, ok, err)
	}
	if loads != 2 {
		t.Fatalf("expected failed load not cached, loads=%d", loads)
	}
}

func TestCacheEviction(t *testing.T) {
	c := New(Options{TTL: time.Minute, MaxEntries: 2})
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	if _, ok := c.Peek("a"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := c.Peek("c"); !ok {
		t.Fatalf("expected newest entry retained")
	}
}
