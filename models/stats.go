package models

import "time"

// MilestoneStatus is a ladder rung with its derived completion flag.
type MilestoneStatus struct {
	Milestone
	IsCompleted bool `json:"is_completed"`
}

// ReferralDetail is the per-referral row of the stats projection.
type ReferralDetail struct {
	ID                string           `json:"id"`
	ReferredID        string           `json:"referred_id"`
	ReferredRole      Role             `json:"referred_role"`
	Status            ReferralStatus   `json:"status"`
	CreatedAt         time.Time        `json:"created_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	BeatcoinsRewarded *int64           `json:"beatcoins_rewarded,omitempty"`
	DaysRemaining     int              `json:"days_remaining"`
	Actions           []ReferralAction `json:"actions"`
}

// BadgeView decorates a granted badge with its catalog metadata for display.
type BadgeView struct {
	BadgeType
	AwardedAt time.Time `json:"awarded_at"`
	IconURL   string    `json:"icon_url,omitempty"`
}

// ReferralStats is the read-only projection assembled for the UI.
type ReferralStats struct {
	ReferrerID string `json:"referrer_id"`
	Role       Role   `json:"role"`

	TotalReferrals   int64 `json:"total_referrals"`
	ValidReferrals   int64 `json:"valid_referrals"`
	PendingReferrals int64 `json:"pending_referrals"`

	// TotalRewards: flat validation rewards plus the referrer side of every
	// completed action reward.
	TotalRewards int64 `json:"total_rewards"`

	WeeklyCount int64 `json:"weekly_count"`
	WeeklyLimit int   `json:"weekly_limit"`

	Milestones    []MilestoneStatus `json:"milestones"`
	NextMilestone *MilestoneStatus  `json:"next_milestone,omitempty"`
	Badges        []BadgeView       `json:"badges"`

	Referrals []ReferralDetail `json:"referrals"`

	// Beatcoins: mirrored wallet balance, nil when not yet synced.
	Beatcoins *int64 `json:"beatcoins,omitempty"`
}

// LeaderboardRow is one ranked entry of the weekly/monthly leaderboard.
type LeaderboardRow struct {
	Rank           int    `json:"rank"`
	ReferrerID     string `json:"referrer_id"`
	ValidReferrals int64  `json:"valid_referrals"`
}
