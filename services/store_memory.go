package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"referral-reward-system/models"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory ReferralStore used by tests and local dev.
// One mutex covers every mutation, which trivially gives the same atomicity
// the GORM store gets from transactions. Mutations are applied to copies and
// committed only after the credit hook succeeds, mirroring rollback.
type MemoryStore struct {
	mu        sync.Mutex
	referrals map[string]*models.Referral
	badges    map[string]models.ReferralBadge // referrerID + "|" + code
	events    map[string]models.RewardEvent   // by SourceKey
	balances  map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		referrals: make(map[string]*models.Referral),
		badges:    make(map[string]models.ReferralBadge),
		events:    make(map[string]models.RewardEvent),
		balances:  make(map[string]int64),
	}
}

func copyReferral(r *models.Referral) *models.Referral {
	cp := *r
	cp.Actions = make([]models.ReferralAction, len(r.Actions))
	copy(cp.Actions, r.Actions)
	return &cp
}

func (s *MemoryStore) CreateReferral(ctx context.Context, rec *models.Referral, weekStart, weekEnd time.Time, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	for _, r := range s.referrals {
		if r.ReferredID == rec.ReferredID && r.Status != models.ReferralStatusInvalid {
			return ErrAlreadyReferred
		}
		if r.ReferrerID == rec.ReferrerID &&
			!r.CreatedAt.Before(weekStart) && r.CreatedAt.Before(weekEnd) {
			count++
		}
	}
	if count >= limit {
		return ErrQuotaExceeded
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.referrals[rec.ID] = copyReferral(rec)
	return nil
}

func (s *MemoryStore) GetReferral(ctx context.Context, id string) (*models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.referrals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyReferral(r), nil
}

func (s *MemoryStore) ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Referral
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID {
			out = append(out, *copyReferral(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountWeekly(ctx context.Context, referrerID string, weekStart, weekEnd time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID &&
			!r.CreatedAt.Before(weekStart) && r.CreatedAt.Before(weekEnd) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountValid(ctx context.Context, referrerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countValidLocked(referrerID), nil
}

func (s *MemoryStore) countValidLocked(referrerID string) int64 {
	var count int64
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID && r.Status == models.ReferralStatusValid {
			count++
		}
	}
	return count
}

func (s *MemoryStore) ValidateReferral(ctx context.Context, id string, now time.Time, reward int64, credit CreditHook) (*models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.referrals[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != models.ReferralStatusPending {
		return nil, ErrAlreadyProcessed
	}
	if r.IsExpired(now) {
		r.Status = models.ReferralStatusInvalid
		return nil, ErrExpired
	}

	cp := copyReferral(r)
	cp.Status = models.ReferralStatusValid
	cp.CompletedAt = &now
	cp.BeatcoinsRewarded = &reward

	ev := models.RewardEvent{
		ID:          uuid.NewString(),
		UserID:      cp.ReferrerID,
		Kind:        models.RewardKindValidation,
		Amount:      reward,
		SourceKey:   fmt.Sprintf("referral:%s:validate", cp.ID),
		ReferralID:  &cp.ID,
		Description: "Referral validated",
		CreatedAt:   now,
	}

	if credit != nil {
		if err := credit(ctx, []models.RewardEvent{ev}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWalletCredit, err)
		}
	}

	s.referrals[id] = cp
	s.events[ev.SourceKey] = ev
	return copyReferral(cp), nil
}

func (s *MemoryStore) ExpireReferral(ctx context.Context, id string, now time.Time) (*models.Referral, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.referrals[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if r.Status != models.ReferralStatusPending {
		return copyReferral(r), false, nil
	}
	r.Status = models.ReferralStatusInvalid
	return copyReferral(r), true, nil
}

func (s *MemoryStore) ListExpirablePending(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-models.ExpirationDays * 24 * time.Hour)
	var ids []string
	for id, r := range s.referrals {
		if r.Status == models.ReferralStatusPending && !r.CreatedAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) CompleteAction(ctx context.Context, referralID string, actionType models.ActionType, now time.Time, reward int64, credit CreditHook) (*models.Referral, *models.ReferralAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.referrals[referralID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if r.Status == models.ReferralStatusInvalid {
		return nil, nil, ErrExpired
	}
	if r.IsExpired(now) {
		r.Status = models.ReferralStatusInvalid
		return nil, nil, ErrExpired
	}

	cp := copyReferral(r)
	act := cp.ActionOf(actionType)
	if act == nil {
		return nil, nil, ErrActionNotFound
	}
	if act.Completed {
		return nil, nil, ErrAlreadyCompleted
	}

	act.Completed = true
	act.CompletedAt = &now
	act.BeatcoinsRewarded = &reward

	events := []models.RewardEvent{
		{
			ID:          uuid.NewString(),
			UserID:      cp.ReferrerID,
			Kind:        models.RewardKindAction,
			Amount:      reward,
			SourceKey:   fmt.Sprintf("action:%s:referrer", act.ID),
			ReferralID:  &cp.ID,
			Description: fmt.Sprintf("Referred member completed %s", actionType),
			CreatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			UserID:      cp.ReferredID,
			Kind:        models.RewardKindAction,
			Amount:      reward,
			SourceKey:   fmt.Sprintf("action:%s:referred", act.ID),
			ReferralID:  &cp.ID,
			Description: fmt.Sprintf("Completed %s", actionType),
			CreatedAt:   now,
		},
	}

	if credit != nil {
		if err := credit(ctx, events); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrWalletCredit, err)
		}
	}

	s.referrals[referralID] = cp
	for _, ev := range events {
		s.events[ev.SourceKey] = ev
	}
	actCopy := *act
	return copyReferral(cp), &actCopy, nil
}

func (s *MemoryStore) GrantBadge(ctx context.Context, referrerID string, badge models.BadgeType, now time.Time, credit CreditHook) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := referrerID + "|" + badge.Code
	if _, ok := s.badges[key]; ok {
		return false, nil
	}

	ev := models.RewardEvent{
		ID:          uuid.NewString(),
		UserID:      referrerID,
		Kind:        models.RewardKindBadge,
		Amount:      badge.Reward,
		SourceKey:   fmt.Sprintf("badge:%s:%s", referrerID, badge.Code),
		Description: fmt.Sprintf("Badge earned: %s", badge.Name),
		CreatedAt:   now,
	}

	if credit != nil {
		if err := credit(ctx, []models.RewardEvent{ev}); err != nil {
			return false, fmt.Errorf("%w: %v", ErrWalletCredit, err)
		}
	}

	s.badges[key] = models.ReferralBadge{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		BadgeCode:  badge.Code,
		AwardedAt:  now,
	}
	s.events[ev.SourceKey] = ev
	return true, nil
}

func (s *MemoryStore) GrantMilestone(ctx context.Context, referrerID string, role models.Role, m models.Milestone, now time.Time, credit CreditHook) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sourceKey := fmt.Sprintf("milestone:%s:%s:%d", referrerID, role, m.Count)
	if _, ok := s.events[sourceKey]; ok {
		return false, nil
	}

	amount := int64(0)
	if m.RewardKind == models.MilestoneRewardBeatcoins {
		amount = m.RewardValue
	}
	ev := models.RewardEvent{
		ID:          uuid.NewString(),
		UserID:      referrerID,
		Kind:        models.RewardKindMilestone,
		Amount:      amount,
		SourceKey:   sourceKey,
		Description: m.Description,
		CreatedAt:   now,
	}

	if amount > 0 && credit != nil {
		if err := credit(ctx, []models.RewardEvent{ev}); err != nil {
			return false, fmt.Errorf("%w: %v", ErrWalletCredit, err)
		}
	}

	s.events[sourceKey] = ev
	return true, nil
}

func (s *MemoryStore) ListBadges(ctx context.Context, referrerID string) ([]models.ReferralBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ReferralBadge
	for _, b := range s.badges {
		if b.ReferrerID == referrerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AwardedAt.Before(out[j].AwardedAt) })
	return out, nil
}

func (s *MemoryStore) Leaderboard(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64)
	for _, r := range s.referrals {
		if r.Status == models.ReferralStatusValid &&
			r.CompletedAt != nil && !r.CompletedAt.Before(since) {
			counts[r.ReferrerID]++
		}
	}

	rows := make([]models.LeaderboardRow, 0, len(counts))
	for id, c := range counts {
		rows = append(rows, models.LeaderboardRow{ReferrerID: id, ValidReferrals: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ValidReferrals != rows[j].ValidReferrals {
			return rows[i].ValidReferrals > rows[j].ValidReferrals
		}
		return rows[i].ReferrerID < rows[j].ReferrerID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *MemoryStore) WalletBalance(ctx context.Context, userID string) (*int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bal, ok := s.balances[userID]; ok {
		b := bal
		return &b, nil
	}
	return nil, nil
}

// SetWalletBalance seeds the balance mirror, for tests and local dev.
func (s *MemoryStore) SetWalletBalance(userID string, beatcoins int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = beatcoins
}

// EventBySourceKey exposes the recorded credit for assertions in tests.
func (s *MemoryStore) EventBySourceKey(key string) (models.RewardEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[key]
	return ev, ok
}
