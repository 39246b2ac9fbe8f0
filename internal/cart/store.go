// Package cart holds the customer's in-progress order. A Store enforces that a
// cart only ever contains items of one merchant, persists every change through a
// coalescing background writer and restores the last snapshot when opened.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"cutin/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultKey is the storage key of a cart snapshot. The version suffix keeps
// future snapshot shapes from colliding with old ones.
const DefaultKey = "@cutin_cart_v1"

const (
	defaultDebounce  = 250 * time.Millisecond
	defaultIOTimeout = 5 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce sets how long the writer waits to coalesce mutations before saving.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithIOTimeout bounds each storage load and save.
func WithIOTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ioTimeout = d
		}
	}
}

// WithPersistHook registers a callback invoked for every failed save.
func WithPersistHook(fn func(error)) Option {
	return func(s *Store) { s.onPersistErr = fn }
}

// WithRestoreHook registers a callback invoked when a stored snapshot cannot be read or parsed.
func WithRestoreHook(fn func(error)) Option {
	return func(s *Store) { s.onRestoreErr = fn }
}

type subscriber struct {
	id int
	fn func(domain.CartState)
}

// Store owns one cart. It is safe for concurrent use, although carts are
// expected to have a single writer.
type Store struct {
	key          string
	storage      Storage
	logger       *zap.Logger
	debounce     time.Duration
	ioTimeout    time.Duration
	onPersistErr func(error)
	onRestoreErr func(error)

	mu      sync.Mutex
	state   domain.CartState
	pending *Conflict
	dirty   bool
	rev     uint64
	nextSub int
	subs    []subscriber

	writer *writer
	ready  chan struct{}
}

// Open returns a usable Store holding the empty cart and starts restoring the
// last snapshot in the background. Restore failures leave the cart empty. A
// snapshot arriving after the cart was already changed is discarded.
func Open(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := newStore(storage, opts...)
	go s.restore(ctx)
	return s
}

func newStore(storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{
		key:       DefaultKey,
		storage:   storage,
		logger:    zap.NewNop(),
		debounce:  defaultDebounce,
		ioTimeout: defaultIOTimeout,
		state:     domain.EmptyCart(),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("cart_key", s.key))
	s.writer = &writer{
		save: func(ctx context.Context, data []byte) error {
			return s.storage.Save(ctx, s.key, data)
		},
		delay:   s.debounce,
		timeout: s.ioTimeout,
		logger:  s.logger,
		onError: s.onPersistErr,
	}
	return s
}

// Key returns the storage key of this cart.
func (s *Store) Key() string {
	return s.key
}

// Ready is closed once the background restore has finished, whether or not a
// snapshot was applied.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) restore(ctx context.Context) {
	defer close(s.ready)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	raw, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			s.restoreFailed(err)
		}
		return
	}
	state, err := Decode(raw)
	if err != nil {
		s.restoreFailed(err)
		return
	}

	s.mu.Lock()
	if s.dirty {
		s.mu.Unlock()
		s.logger.Debug("cart changed before restore finished, discarding snapshot")
		return
	}
	s.state = state
	s.rev++
	s.unlockAndNotify()
}

func (s *Store) restoreFailed(err error) {
	s.logger.Warn("cart restore failed, starting empty", zap.Error(err))
	if s.onRestoreErr != nil {
		s.onRestoreErr(err)
	}
}

// Subscribe registers fn to receive the cart after every committed change and
// after a restore. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(domain.CartState)) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// AddItem adds one unit of item. When the cart already belongs to another
// merchant nothing changes and the result carries a Conflict that must be
// settled with ResolveConflict.
func (s *Store) AddItem(merchant domain.MerchantRef, item domain.NewCartItem) AddResult {
	s.mu.Lock()
	if merchant.ID == "" || item.ID == "" || item.Price.IsNegative() {
		snap := s.state.Clone()
		s.mu.Unlock()
		return AddResult{Outcome: OutcomeRejected, State: snap}
	}

	if cur := s.state.MerchantID; cur != nil && *cur != merchant.ID {
		c := &Conflict{
			CurrentMerchantID:   *cur,
			CurrentMerchantName: s.state.Clone().MerchantName,
			Merchant:            merchant,
			Item:                item,
		}
		s.pending = c
		snap := s.state.Clone()
		s.mu.Unlock()
		out := *c
		return AddResult{Outcome: OutcomeConflict, Conflict: &out, State: snap}
	}

	next := s.state.Clone()
	if next.MerchantID == nil {
		id := merchant.ID
		next.MerchantID = &id
	}
	if next.MerchantName == nil && merchant.Name != nil {
		name := *merchant.Name
		next.MerchantName = &name
	}
	outcome := OutcomeAdded
	if i := indexOf(next.Items, item.ID); i >= 0 {
		next.Items[i].Qty++
		outcome = OutcomeIncremented
	} else {
		next.Items = append(next.Items, domain.CartItem{ID: item.ID, Name: item.Name, Price: item.Price, Qty: 1})
	}
	s.applyLocked(next)
	return AddResult{Outcome: outcome, State: s.unlockAndNotify()}
}

// PendingConflict returns the conflict awaiting a decision, if any.
func (s *Store) PendingConflict() (Conflict, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Conflict{}, false
	}
	return *s.pending, true
}

// ResolveConflict settles the pending conflict. DecisionClearAndAdd replaces
// the cart with the held-back item from the new merchant; DecisionCancel keeps
// the cart as it is. It reports false when no conflict was pending.
func (s *Store) ResolveConflict(decision Decision) (domain.CartState, bool) {
	s.mu.Lock()
	c := s.pending
	if c == nil {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap, false
	}
	s.pending = nil
	if decision != DecisionClearAndAdd {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap, true
	}

	id := c.Merchant.ID
	next := domain.CartState{
		MerchantID: &id,
		Items: []domain.CartItem{
			{ID: c.Item.ID, Name: c.Item.Name, Price: c.Item.Price, Qty: 1},
		},
	}
	if c.Merchant.Name != nil {
		name := *c.Merchant.Name
		next.MerchantName = &name
	}
	s.applyLocked(next)
	return s.unlockAndNotify(), true
}

// RemoveItem drops the line item with the given id. The merchant stays
// attached even when the cart becomes empty; only Clear or a ClearAndAdd
// resolution detach it.
func (s *Store) RemoveItem(id string) domain.CartState {
	s.mu.Lock()
	i := indexOf(s.state.Items, id)
	if i < 0 {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}
	next := s.state.Clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	s.applyLocked(next)
	return s.unlockAndNotify()
}

// ChangeQty sets the quantity of a line item, never below one.
func (s *Store) ChangeQty(id string, qty int) domain.CartState {
	if qty < 1 {
		qty = 1
	}
	s.mu.Lock()
	i := indexOf(s.state.Items, id)
	if i < 0 || s.state.Items[i].Qty == qty {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}
	next := s.state.Clone()
	next.Items[i].Qty = qty
	s.applyLocked(next)
	return s.unlockAndNotify()
}

// Clear empties the cart and detaches the merchant.
func (s *Store) Clear() domain.CartState {
	s.mu.Lock()
	s.applyLocked(domain.EmptyCart())
	return s.unlockAndNotify()
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Checkpoint returns a copy of the current cart with its revision. The
// revision moves on every committed change and on restore.
func (s *Store) Checkpoint() (domain.CartState, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.rev
}

// Consume takes ordered lines out of the cart once they have been submitted.
// A cart still at rev is cleared. A cart changed since rev only loses the
// ordered quantities of merchantID's lines, so anything added meanwhile stays.
func (s *Store) Consume(rev uint64, merchantID string, ordered []domain.CartItem) domain.CartState {
	s.mu.Lock()
	if s.rev == rev {
		s.applyLocked(domain.EmptyCart())
		return s.unlockAndNotify()
	}
	if s.state.MerchantID == nil || *s.state.MerchantID != merchantID {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}

	next := s.state.Clone()
	changed := false
	for _, o := range ordered {
		i := indexOf(next.Items, o.ID)
		if i < 0 {
			continue
		}
		changed = true
		if next.Items[i].Qty > o.Qty {
			next.Items[i].Qty -= o.Qty
			continue
		}
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
	}
	if !changed {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}
	if len(next.Items) == 0 {
		next = domain.EmptyCart()
	}
	s.applyLocked(next)
	return s.unlockAndNotify()
}

// emptiedByChange reports whether the cart was emptied by a committed change
// rather than simply never filled or restored.
func (s *Store) emptiedByChange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty && len(s.state.Items) == 0 && s.state.MerchantID == nil
}

// Total is the cart value, recomputed from the current items.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Total()
}

// TotalQty is the number of units in the cart.
func (s *Store) TotalQty() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalQty()
}

// Flush writes any pending snapshot now.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.writePending(ctx)
}

// Close flushes the pending snapshot and stops persisting further changes.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}

// applyLocked commits next and hands it to the writer. s.mu must be held.
func (s *Store) applyLocked(next domain.CartState) {
	s.state = next
	s.dirty = true
	s.rev++
	s.pending = nil

	data, err := Encode(next)
	if err != nil {
		s.logger.Error("encode cart snapshot", zap.Error(err))
		return
	}
	s.writer.schedule(data)
}

// unlockAndNotify releases s.mu and delivers the current state to subscribers.
func (s *Store) unlockAndNotify() domain.CartState {
	snap := s.state.Clone()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap.Clone())
	}
	return snap
}

func indexOf(items []domain.CartItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
