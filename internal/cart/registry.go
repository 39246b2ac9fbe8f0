package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// KeyFor namespaces a base storage key with the cart owner.
func KeyFor(base, owner string) string {
	if base == "" {
		base = DefaultKey
	}
	return base + ":" + owner
}

// Registry hands out one Store per cart owner and evicts stores that are no
// longer in use.
type Registry struct {
	storage Storage
	baseKey string
	logger  *zap.Logger
	opts    []Option
	now     func() time.Time

	mu       sync.Mutex
	stores   map[string]*Store
	lastUsed map[string]time.Time
	sfg      singleflight.Group // one restore per owner under concurrent first requests
}

func NewRegistry(storage Storage, baseKey string, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		storage:  storage,
		baseKey:  baseKey,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		stores:   make(map[string]*Store),
		lastUsed: make(map[string]time.Time),
	}
}

// Get returns the owner's Store, opening it on first use. It waits for the
// restore to finish so callers never race a late snapshot; if ctx ends first
// the store is returned as is.
func (r *Registry) Get(ctx context.Context, owner string) *Store {
	r.mu.Lock()
	s, ok := r.stores[owner]
	if ok {
		r.lastUsed[owner] = r.now()
	}
	r.mu.Unlock()
	if !ok {
		v, _, _ := r.sfg.Do(owner, func() (interface{}, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.lastUsed[owner] = r.now()
			if existing, ok := r.stores[owner]; ok {
				return existing, nil
			}
			opts := make([]Option, 0, len(r.opts)+2)
			opts = append(opts, r.opts...)
			opts = append(opts,
				WithKey(KeyFor(r.baseKey, owner)),
				WithLogger(r.logger.With(zap.String("owner", owner))),
			)
			created := Open(context.Background(), r.storage, opts...)
			r.stores[owner] = created
			return created, nil
		})
		s = v.(*Store)
	}

	select {
	case <-s.Ready():
	case <-ctx.Done():
	}
	return s
}

// Len reports how many stores are open.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Evict flushes and closes the owner's store and forgets it. The next Get
// restores the cart from storage. Evicting an owner without a store is a no-op.
func (r *Registry) Evict(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[owner]
	if !ok {
		return nil
	}
	return r.evictLocked(ctx, owner, s)
}

// EvictIdle evicts every store not handed out by Get for at least idle and
// returns how many were evicted.
func (r *Registry) EvictIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	candidates := make(map[string]*Store)
	for owner, s := range r.stores {
		if !r.lastUsed[owner].After(cutoff) {
			candidates[owner] = s
		}
	}
	r.mu.Unlock()

	// Pending writes land before the lock is taken again, so eviction itself
	// rarely does IO while Get is blocked.
	for _, s := range candidates {
		_ = s.Flush(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		evicted int
		errs    []error
	)
	for owner, s := range candidates {
		if r.stores[owner] != s || r.lastUsed[owner].After(cutoff) {
			continue
		}
		if err := r.evictLocked(ctx, owner, s); err != nil {
			errs = append(errs, err)
		}
		evicted++
	}
	if evicted > 0 {
		r.logger.Debug("idle carts evicted", zap.Int("count", evicted), zap.Int("open", len(r.stores)))
	}
	return evicted, errors.Join(errs...)
}

// evictLocked closes s and drops it from the registry. A cart emptied by the
// owner also loses its snapshot when the storage supports deletes. r.mu must
// be held so a concurrent Get cannot restore before the final write lands.
func (r *Registry) evictLocked(ctx context.Context, owner string, s *Store) error {
	delete(r.stores, owner)
	delete(r.lastUsed, owner)

	if err := s.Close(ctx); err != nil {
		return err
	}
	d, ok := r.storage.(Deleter)
	if !ok || !s.emptiedByChange() {
		return nil
	}
	if err := d.Delete(ctx, s.Key()); err != nil {
		r.logger.Warn("delete empty cart snapshot", zap.String("owner", owner), zap.Error(err))
		return err
	}
	return nil
}

// CloseAll flushes and closes every open store.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
