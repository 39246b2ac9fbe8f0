package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistryReturnsSameStorePerOwner(t *testing.T) {
	r := NewRegistry(NewMemoryStorage(), "", nil, WithDebounce(time.Hour))
	ctx := context.Background()

	var wg sync.WaitGroup
	stores := make([]*Store, 8)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = r.Get(ctx, "u1")
		}(i)
	}
	wg.Wait()
	for _, s := range stores[1:] {
		if s != stores[0] {
			t.Fatalf("expected a single store per owner")
		}
	}
	if stores[0].Key() != DefaultKey+":u1" {
		t.Fatalf("unexpected key %s", stores[0].Key())
	}
	if other := r.Get(ctx, "u2"); other == stores[0] {
		t.Fatalf("owners must not share carts")
	}
}

func TestRegistryRestoresFromStorage(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	first := NewRegistry(storage, "carts", nil, WithDebounce(time.Hour))
	first.Get(ctx, "u1").AddItem(joes, burger)
	if err := first.CloseAll(ctx); err != nil {
		t.Fatalf("close all: %v", err)
	}

	second := NewRegistry(storage, "carts", nil)
	s := second.Get(ctx, "u1")
	if s.TotalQty() != 1 {
		t.Fatalf("expected restored cart, got qty %d", s.TotalQty())
	}
	if s.Key() != "carts:u1" {
		t.Fatalf("unexpected key %s", s.Key())
	}
}

func TestRegistryCloseAllReportsErrors(t *testing.T) {
	r := NewRegistry(failingStorage{}, "", nil, WithDebounce(time.Hour))
	ctx := context.Background()
	r.Get(ctx, "u1").AddItem(joes, burger)
	r.Get(ctx, "u2")

	if err := r.CloseAll(ctx); err == nil {
		t.Fatalf("expected error from failing storage")
	}
}

func TestKeyFor(t *testing.T) {
	if got := KeyFor("", "u"); got != "@cutin_cart_v1:u" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := KeyFor("base", "u"); got != "base:u" {
		t.Fatalf("unexpected key %s", got)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistryEvictIdle(t *testing.T) {
	storage := NewMemoryStorage()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(storage, "carts", nil, WithDebounce(time.Hour))
	r.now = clock.Now
	ctx := context.Background()

	first := r.Get(ctx, "u1")
	first.AddItem(joes, burger)
	r.Get(ctx, "u2")
	clock.Advance(10 * time.Minute)
	r.Get(ctx, "u2")

	n, err := r.EvictIdle(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("evict idle: %v", err)
	}
	if n != 1 || r.Len() != 1 {
		t.Fatalf("expected only u1 evicted, got %d evicted and %d open", n, r.Len())
	}
	if _, err := storage.Load(ctx, "carts:u1"); err != nil {
		t.Fatalf("evicted cart must be flushed: %v", err)
	}

	again := r.Get(ctx, "u1")
	if again == first {
		t.Fatalf("expected a fresh store after eviction")
	}
	if again.TotalQty() != 1 {
		t.Fatalf("expected restored cart, got qty %d", again.TotalQty())
	}
}

func TestRegistryEvictDropsEmptiedSnapshot(t *testing.T) {
	storage := NewMemoryStorage()
	r := NewRegistry(storage, "carts", nil, WithDebounce(time.Hour))
	ctx := context.Background()

	s := r.Get(ctx, "u1")
	s.AddItem(joes, burger)
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	s.Clear()

	if err := r.Evict(ctx, "u1"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if _, err := storage.Load(ctx, "carts:u1"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected snapshot deleted, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected no open stores, got %d", r.Len())
	}
}

func TestRegistryEvictKeepsStaleMerchantSnapshot(t *testing.T) {
	storage := NewMemoryStorage()
	r := NewRegistry(storage, "carts", nil, WithDebounce(time.Hour))
	ctx := context.Background()

	s := r.Get(ctx, "u1")
	s.AddItem(joes, burger)
	s.RemoveItem(burger.ID)
	if err := r.Evict(ctx, "u1"); err != nil {
		t.Fatalf("evict: %v", err)
	}

	st := r.Get(ctx, "u1").Snapshot()
	if st.MerchantID == nil || *st.MerchantID != "m1" || len(st.Items) != 0 {
		t.Fatalf("expected empty cart still bound to m1, got %+v", st)
	}
}

func TestRegistryEvictUnknownOwner(t *testing.T) {
	r := NewRegistry(NewMemoryStorage(), "", nil)
	if err := r.Evict(context.Background(), "nobody"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
