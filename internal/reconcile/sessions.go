package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
)

type session struct {
	reconciler *Reconciler
	lastUsed   time.Time
}

// Sessions holds one Reconciler per signed-in user. A reconciler nobody has
// asked for within IdleTTL is dropped on a later access.
type Sessions struct {
	params Params

	mu        sync.Mutex
	entries   map[uuid.UUID]*session
	lastPrune time.Time
}

func NewSessions(params Params) (*Sessions, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	params = params.withDefaults()
	return &Sessions{
		params:    params,
		entries:   make(map[uuid.UUID]*session),
		lastPrune: params.Clock(),
	}, nil
}

// For returns the user's reconciler, creating it on first use.
func (s *Sessions) For(ctx context.Context, userID uuid.UUID) (*Reconciler, error) {
	now := s.params.Clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastPrune) >= s.params.IdleTTL/2 {
		s.pruneLocked(now)
	}
	if e, ok := s.entries[userID]; ok {
		e.lastUsed = now
		return e.reconciler, nil
	}
	r, err := NewReconciler(ctx, userID, s.params)
	if err != nil {
		return nil, err
	}
	s.entries[userID] = &session{reconciler: r, lastUsed: now}
	return r, nil
}

// Prune drops reconcilers idle for IdleTTL as of now and reports how many
// went. Reconcilers with callers still waiting are kept.
func (s *Sessions) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now)
}

func (s *Sessions) pruneLocked(now time.Time) int {
	s.lastPrune = now
	dropped := 0
	for id, e := range s.entries {
		if now.Sub(e.lastUsed) < s.params.IdleTTL || e.reconciler.busy() {
			continue
		}
		delete(s.entries, id)
		e.reconciler.ClearAll()
		dropped++
	}
	if dropped > 0 {
		s.params.Logger.Debug(s.params.Logger.WithField(context.Background(), "dropped", dropped), "idle reconcilers pruned")
	}
	return dropped
}

// Invalidate marks the user's cached snapshot stale, if one is held.
func (s *Sessions) Invalidate(userID uuid.UUID) {
	s.mu.Lock()
	e := s.entries[userID]
	s.mu.Unlock()
	if e != nil {
		e.reconciler.InvalidateCache()
	}
}

// SignOut clears and forgets the user's reconciler.
func (s *Sessions) SignOut(userID uuid.UUID) {
	s.mu.Lock()
	e := s.entries[userID]
	delete(s.entries, userID)
	s.mu.Unlock()
	if e != nil {
		e.reconciler.ClearAll()
	}
}

// Len reports how many users hold a reconciler.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// FetchStatus fetches the user's snapshot through their reconciler.
func (s *Sessions) FetchStatus(ctx context.Context, userID uuid.UUID, forceRefresh bool) (*ledger.SubscriptionSnapshot, error) {
	r, err := s.For(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.FetchStatus(ctx, forceRefresh)
}
