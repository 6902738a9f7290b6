package services

import (
	"context"
	"time"

	"referral-reward-system/models"
)

const leaderboardLimit = 50

// StatsService assembles the read-only per-referrer projection consumed by
// the UI. Never mutates; safe to call concurrently with the write path.
type StatsService struct {
	Store ReferralStore
	Roles RoleProvider
	Quota *QuotaGuard
}

func NewStatsService(store ReferralStore, roles RoleProvider) *StatsService {
	return &StatsService{Store: store, Roles: roles, Quota: NewQuotaGuard(store)}
}

func (s *StatsService) BuildStats(ctx context.Context, referrerID string, now time.Time) (*models.ReferralStats, error) {
	refs, err := s.Store.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	role, err := s.Roles.RoleOf(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	stats := &models.ReferralStats{
		ReferrerID:  referrerID,
		Role:        role,
		WeeklyLimit: s.Quota.Limit,
		Referrals:   make([]models.ReferralDetail, 0, len(refs)),
	}

	var validCount int64
	for i := range refs {
		r := &refs[i]
		stats.TotalReferrals++
		switch r.Status {
		case models.ReferralStatusValid:
			validCount++
		case models.ReferralStatusPending:
			stats.PendingReferrals++
		}

		if r.BeatcoinsRewarded != nil {
			stats.TotalRewards += *r.BeatcoinsRewarded
		}
		for _, a := range r.Actions {
			if a.Completed && a.BeatcoinsRewarded != nil {
				stats.TotalRewards += *a.BeatcoinsRewarded
			}
		}

		stats.Referrals = append(stats.Referrals, models.ReferralDetail{
			ID:                r.ID,
			ReferredID:        r.ReferredID,
			ReferredRole:      r.ReferredRole,
			Status:            r.Status,
			CreatedAt:         r.CreatedAt,
			CompletedAt:       r.CompletedAt,
			BeatcoinsRewarded: r.BeatcoinsRewarded,
			DaysRemaining:     r.DaysRemaining(now),
			Actions:           r.Actions,
		})
	}
	stats.ValidReferrals = validCount

	weeklyCount, _, err := s.Quota.Usage(ctx, referrerID, now)
	if err != nil {
		return nil, err
	}
	stats.WeeklyCount = weeklyCount

	for _, m := range models.LadderForRole(role) {
		status := models.MilestoneStatus{
			Milestone:   m,
			IsCompleted: int64(m.Count) <= validCount,
		}
		stats.Milestones = append(stats.Milestones, status)
		if !status.IsCompleted && stats.NextMilestone == nil {
			next := status
			stats.NextMilestone = &next
		}
	}

	grants, err := s.Store.ListBadges(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	stats.Badges = make([]models.BadgeView, 0, len(grants))
	for _, g := range grants {
		bt := models.BadgeByCode(g.BadgeCode)
		if bt == nil {
			continue
		}
		stats.Badges = append(stats.Badges, models.BadgeView{
			BadgeType: *bt,
			AwardedAt: g.AwardedAt,
		})
	}

	balance, err := s.Store.WalletBalance(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	stats.Beatcoins = balance

	return stats, nil
}

// Leaderboard ranks referrers by referrals validated inside the period.
// period is "weekly" (Monday-anchored, UTC) or "monthly" (first of month).
func (s *StatsService) Leaderboard(ctx context.Context, period string, now time.Time) ([]models.LeaderboardRow, error) {
	var since time.Time
	switch period {
	case "monthly":
		now = now.UTC()
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // weekly
		since = WeekStart(now)
	}
	return s.Store.Leaderboard(ctx, since, leaderboardLimit)
}
