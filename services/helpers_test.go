package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"referral-reward-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testNow is a Wednesday; the surrounding week runs Mon Mar 3 to Mon Mar 10.
var testNow = time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC)

// fakeWallet records credits per idempotency key and can be flipped into a
// failure mode to exercise rollback.
type fakeWallet struct {
	mu     sync.Mutex
	fail   bool
	byKey  map[string]int64
	byUser map[string]int64
	calls  map[string]int
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		byKey:  make(map[string]int64),
		byUser: make(map[string]int64),
		calls:  make(map[string]int),
	}
}

func (w *fakeWallet) Credit(ctx context.Context, userID string, amount int64, idempotencyKey string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fail {
		return errors.New("wallet service unreachable")
	}
	w.calls[idempotencyKey]++
	if w.calls[idempotencyKey] == 1 {
		w.byKey[idempotencyKey] = amount
		w.byUser[userID] += amount
	}
	return nil
}

func (w *fakeWallet) setFail(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = fail
}

func (w *fakeWallet) callsFor(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[key]
}

func (w *fakeWallet) amountFor(key string) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	amt, ok := w.byKey[key]
	return amt, ok
}

func (w *fakeWallet) totalFor(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.byUser[userID]
}

// fakeRoles is a map-backed RoleProvider; unknown users resolve to RoleOther.
type fakeRoles map[string]models.Role

func (f fakeRoles) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	if r, ok := f[userID]; ok {
		return r, nil
	}
	return models.RoleOther, nil
}

// engine bundles a fully wired in-memory service stack for tests.
type engine struct {
	store     *MemoryStore
	wallet    *fakeWallet
	evaluator *EvaluatorService
	referrals *ReferralService
	actions   *ActionService
	stats     *StatsService
	sweeper   *SweeperService
}

func newTestEngine(roles fakeRoles) *engine {
	store := NewMemoryStore()
	wallet := newFakeWallet()
	evaluator := NewEvaluatorService(store, wallet, roles)
	referrals := NewReferralService(store, wallet, roles, evaluator)
	actions := NewActionService(store, wallet, referrals, evaluator)

	return &engine{
		store:     store,
		wallet:    wallet,
		evaluator: evaluator,
		referrals: referrals,
		actions:   actions,
		stats:     NewStatsService(store, roles),
		sweeper:   NewSweeperService(store),
	}
}

// seedValidReferrals inserts n already-validated referrals for referrerID,
// one per week far in the past so the weekly cap never interferes.
func seedValidReferrals(t *testing.T, store *MemoryStore, referrerID string, n int) {
	t.Helper()

	ctx := context.Background()
	base := testNow.AddDate(0, 0, -7*(n+2))
	for i := 0; i < n; i++ {
		created := base.AddDate(0, 0, 7*i)
		rec := &models.Referral{
			ID:           uuid.NewString(),
			ReferrerID:   referrerID,
			ReferredID:   uuid.NewString(),
			ReferredRole: models.RoleAttendee,
			CodeUsed:     "seed-code",
			Status:       models.ReferralStatusPending,
			Timestamps:   models.Timestamps{CreatedAt: created, UpdatedAt: created},
		}
		weekStart, weekEnd := WeekWindow(created)
		require.NoError(t, store.CreateReferral(ctx, rec, weekStart, weekEnd, models.WeeklyReferralLimit))

		_, err := store.ValidateReferral(ctx, rec.ID, created.Add(time.Hour), 100, nil)
		require.NoError(t, err)
	}
}
