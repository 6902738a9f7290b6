package services

import (
	"context"
	"time"

	"referral-reward-system/models"
)

// WeekStart floors to the most recent Monday 00:00 UTC.
func WeekStart(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	// Weekday() is Sunday=0; shift so Monday=0.
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// WeekWindow returns [weekStart, weekStart+7d) around now.
func WeekWindow(now time.Time) (time.Time, time.Time) {
	start := WeekStart(now)
	return start, start.AddDate(0, 0, 7)
}

// QuotaGuard enforces the rolling-week referral creation cap. Check is only
// an advisory pre-check for callers that want a fast rejection; the binding
// count runs inside the store's create transaction.
type QuotaGuard struct {
	Store ReferralStore
	Limit int
}

func NewQuotaGuard(store ReferralStore) *QuotaGuard {
	return &QuotaGuard{Store: store, Limit: models.WeeklyReferralLimit}
}

func (g *QuotaGuard) Check(ctx context.Context, referrerID string, now time.Time) error {
	count, _, err := g.Usage(ctx, referrerID, now)
	if err != nil {
		return err
	}
	if count >= int64(g.Limit) {
		return ErrQuotaExceeded
	}
	return nil
}

// Usage returns the referrer's creation count in the current week and the cap.
func (g *QuotaGuard) Usage(ctx context.Context, referrerID string, now time.Time) (int64, int, error) {
	weekStart, weekEnd := WeekWindow(now)
	count, err := g.Store.CountWeekly(ctx, referrerID, weekStart, weekEnd)
	if err != nil {
		return 0, g.Limit, err
	}
	return count, g.Limit, nil
}
