package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/metrics"
	"github.com/thedailydev/dailydev-backend/pkg/revenuecat"
)

const (
	opFetch = "fetch"
	opSync  = "sync"

	defaultCacheWindow    = 5 * time.Minute
	defaultNetworkTimeout = 15 * time.Second
	defaultIdleTTL        = 30 * time.Minute
)

// errSuperseded marks work whose generation was cleared while it ran.
var errSuperseded = fmt.Errorf("reconcile work superseded: %w", context.Canceled)

// SubscriberSource reads a subscriber's entitlements from the billing provider.
type SubscriberSource interface {
	GetSubscriber(ctx context.Context, appUserID string) (*revenuecat.Subscriber, error)
}

type Params struct {
	Ledger         ledger.Repository
	Provider       SubscriberSource
	EntitlementID  string
	CacheWindow    time.Duration
	NetworkTimeout time.Duration
	// IdleTTL is how long Sessions keeps a reconciler nobody asked for.
	IdleTTL        time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.ReconcileMetrics
	Clock          func() time.Time
}

func (p Params) validate() error {
	if p.Ledger == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if p.Provider == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "subscriber source required")
	}
	return nil
}

func (p Params) withDefaults() Params {
	if p.CacheWindow <= 0 {
		p.CacheWindow = defaultCacheWindow
	}
	if p.NetworkTimeout <= 0 {
		p.NetworkTimeout = defaultNetworkTimeout
	}
	if p.IdleTTL <= 0 {
		p.IdleTTL = defaultIdleTTL
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	return p
}

// Reconciler keeps one user's subscription snapshot fresh. Concurrent fetches
// and syncs share a single piece of in-flight work per operation.
type Reconciler struct {
	userID uuid.UUID
	params Params

	group singleflight.Group

	mu          sync.Mutex
	generation  uint64
	base        context.Context
	workCtx     context.Context
	cancelWork  context.CancelFunc
	snapshot    *ledger.SubscriptionSnapshot
	lastFetchAt time.Time
	waiting     map[string]int
}

// NewReconciler builds a reconciler for userID. Work it starts inherits the
// values of ctx but not its cancellation.
func NewReconciler(ctx context.Context, userID uuid.UUID, params Params) (*Reconciler, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	params = params.withDefaults()
	base := context.WithoutCancel(params.Logger.WithUserID(ctx, userID.String()))
	r := &Reconciler{
		userID:  userID,
		params:  params,
		base:    base,
		waiting: make(map[string]int),
	}
	r.workCtx, r.cancelWork = context.WithCancel(base)
	return r, nil
}

// Current returns the cached snapshot, which may be nil.
func (r *Reconciler) Current() *ledger.SubscriptionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// FetchStatus returns the user's subscription snapshot. A snapshot fetched
// within the cache window is served without I/O unless forceRefresh is set.
// When the work is cancelled, or the caller gives up, the last cached
// snapshot is returned.
func (r *Reconciler) FetchStatus(ctx context.Context, forceRefresh bool) (*ledger.SubscriptionSnapshot, error) {
	r.mu.Lock()
	if !forceRefresh && r.snapshot != nil && !r.lastFetchAt.IsZero() &&
		r.params.Clock().Sub(r.lastFetchAt) < r.params.CacheWindow {
		snap := r.snapshot
		r.mu.Unlock()
		r.params.Metrics.IncRequest(opFetch, "cache")
		return snap, nil
	}
	key, ch := r.joinLocked(opFetch, func(workCtx context.Context, gen uint64) (any, error) {
		return r.runFetch(workCtx, gen)
	})
	r.mu.Unlock()
	defer r.leave(key)

	select {
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) {
				return r.Current(), nil
			}
			r.params.Metrics.IncRequest(opFetch, "error")
			return nil, res.Err
		}
		snap, _ := res.Val.(*ledger.SubscriptionSnapshot)
		return snap, nil
	case <-ctx.Done():
		return r.Current(), nil
	}
}

// SyncProviderStatus pulls the provider's entitlement state into the ledger.
func (r *Reconciler) SyncProviderStatus(ctx context.Context) error {
	r.mu.Lock()
	key, ch := r.joinLocked(opSync, func(workCtx context.Context, gen uint64) (any, error) {
		return nil, r.runSync(workCtx, gen)
	})
	r.mu.Unlock()
	defer r.leave(key)

	select {
	case res := <-ch:
		if errors.Is(res.Err, errSuperseded) {
			return nil
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InvalidateCache forces the next FetchStatus to do I/O. The last snapshot is
// kept for callers that need something to show meanwhile.
func (r *Reconciler) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFetchAt = time.Time{}
}

// ClearAll drops all cached state and cancels in-flight work. Work that was
// already running cannot repopulate the cache afterwards.
func (r *Reconciler) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.cancelWork()
	r.workCtx, r.cancelWork = context.WithCancel(r.base)
	r.snapshot = nil
	r.lastFetchAt = time.Time{}
}

// joinLocked attaches the caller to the in-flight work for op, starting it if
// none runs. r.mu must be held, which makes check-then-register atomic.
func (r *Reconciler) joinLocked(op string, work func(context.Context, uint64) (any, error)) (string, <-chan singleflight.Result) {
	gen := r.generation
	workCtx := r.workCtx
	key := fmt.Sprintf("%s:%d", op, gen)
	if r.waiting[key] > 0 {
		r.params.Metrics.IncRequest(op, "joined")
	} else {
		r.params.Metrics.IncRequest(op, "started")
	}
	r.waiting[key]++
	ch := r.group.DoChan(key, func() (any, error) {
		start := r.params.Clock()
		defer func() { r.params.Metrics.ObserveWork(op, r.params.Clock().Sub(start)) }()
		return work(workCtx, gen)
	})
	return key, ch
}

func (r *Reconciler) leave(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waiting[key] <= 1 {
		delete(r.waiting, key)
		return
	}
	r.waiting[key]--
}

// busy reports whether any caller is waiting on work.
func (r *Reconciler) busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting) > 0
}

// waiters reports how many callers share the current generation's op.
func (r *Reconciler) waiters(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting[fmt.Sprintf("%s:%d", op, r.generation)]
}

func (r *Reconciler) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation == gen
}

func (r *Reconciler) runFetch(ctx context.Context, gen uint64) (*ledger.SubscriptionSnapshot, error) {
	logg := r.params.Logger

	// Share the sync with any concurrent SyncProviderStatus caller.
	_, err, _ := r.group.Do(fmt.Sprintf("%s:%d", opSync, gen), func() (any, error) {
		return nil, r.runSync(ctx, gen)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, errSuperseded
		}
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "provider sync failed; reading ledger")
	}

	readCtx, cancel := context.WithTimeout(ctx, r.params.NetworkTimeout)
	row, err := r.params.Ledger.FindByUserID(readCtx, r.userID)
	cancel()
	if ctx.Err() != nil {
		return nil, errSuperseded
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read subscription ledger")
	}

	snap := ledger.FromModel(row)
	if snap == nil {
		snap = &ledger.SubscriptionSnapshot{
			UserID:            r.userID,
			Status:            enums.SubscriptionStatusInactive,
			EntitlementStatus: enums.EntitlementStatusInactive,
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return nil, errSuperseded
	}
	r.snapshot = snap
	r.lastFetchAt = r.params.Clock()
	return snap, nil
}

func (r *Reconciler) runSync(ctx context.Context, gen uint64) error {
	logg := r.params.Logger
	appUserID := r.userID.String()

	callCtx, cancel := context.WithTimeout(ctx, r.params.NetworkTimeout)
	defer cancel()

	sub, err := r.params.Provider.GetSubscriber(callCtx, appUserID)
	switch {
	case ctx.Err() != nil:
		return errSuperseded
	case errors.Is(err, revenuecat.ErrSubscriberNotFound):
		logg.Info(ctx, "no revenuecat subscriber; sync skipped")
		return nil
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch revenuecat subscriber")
	}

	if !r.current(gen) {
		return errSuperseded
	}
	update := SyncUpdateFromSubscriber(sub, appUserID, r.params.EntitlementID, r.params.Clock()).WithoutProviderIDs()
	err = r.params.Ledger.Upsert(callCtx, r.userID, update)
	switch {
	case ctx.Err() != nil:
		return errSuperseded
	case db.IsForeignKeyViolation(err), db.IsRecordNotFound(err):
		logg.Info(ctx, "account row missing; sync skipped")
		return nil
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write subscription ledger")
	}
	return nil
}
