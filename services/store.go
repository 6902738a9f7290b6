package services

import (
	"context"
	"time"

	"referral-reward-system/models"
)

// CreditHook runs inside the store's atomic region, after the ledger mutation
// and reward-event insert but before commit. It receives the events just
// recorded and is expected to push the matching wallet credits; returning an
// error aborts the whole mutation. Event SourceKeys are the wallet
// idempotency keys.
type CreditHook func(ctx context.Context, events []models.RewardEvent) error

// ReferralStore is the persistence boundary of the referral ledger. Each
// method that pairs a check with a mutation executes as one atomic unit: a
// transaction with per-referrer serialization in the GORM implementation, a
// single mutex in the in-memory one.
type ReferralStore interface {
	// CreateReferral inserts rec (with its fixed action set) iff the
	// referred member has no live (Pending or Valid) referral and the
	// referrer's count of referrals created inside [weekStart, weekEnd) is
	// below limit. Returns ErrAlreadyReferred or ErrQuotaExceeded otherwise.
	// The checks and the insert are serialized per referrer and per referred
	// member. An Invalid referral frees the member to be referred again.
	CreateReferral(ctx context.Context, rec *models.Referral, weekStart, weekEnd time.Time, limit int) error

	GetReferral(ctx context.Context, id string) (*models.Referral, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error)
	CountWeekly(ctx context.Context, referrerID string, weekStart, weekEnd time.Time) (int64, error)
	CountValid(ctx context.Context, referrerID string) (int64, error)

	// ValidateReferral transitions Pending -> Valid, stamps CompletedAt and
	// the flat reward, records the validation reward event, and runs credit.
	// ErrAlreadyProcessed on terminal rows; ErrExpired on Pending rows past
	// their deadline (which are flipped Invalid instead).
	ValidateReferral(ctx context.Context, id string, now time.Time, reward int64, credit CreditHook) (*models.Referral, error)

	// ExpireReferral transitions Pending -> Invalid. Idempotent: terminal
	// rows return transitioned=false and no error.
	ExpireReferral(ctx context.Context, id string, now time.Time) (ref *models.Referral, transitioned bool, err error)

	// ListExpirablePending returns IDs of Pending referrals with
	// CreatedAt+EXPIRATION_DAYS <= now.
	ListExpirablePending(ctx context.Context, now time.Time) ([]string, error)

	// CompleteAction flips one action false -> true, stamps its reward,
	// records the two dual-reward events (referrer and referred), and runs
	// credit. Pending rows past their deadline are lazily expired and the
	// call fails ErrExpired.
	CompleteAction(ctx context.Context, referralID string, actionType models.ActionType, now time.Time, reward int64, credit CreditHook) (*models.Referral, *models.ReferralAction, error)

	// GrantBadge awards a badge at most once per referrer. Returns
	// granted=false without error when the badge was already held.
	GrantBadge(ctx context.Context, referrerID string, badge models.BadgeType, now time.Time, credit CreditHook) (granted bool, err error)

	// GrantMilestone records a milestone completion at most once per
	// (referrer, role, count), crediting the wallet only for beatcoin-kind
	// milestones. Returns granted=false when already recorded.
	GrantMilestone(ctx context.Context, referrerID string, role models.Role, m models.Milestone, now time.Time, credit CreditHook) (granted bool, err error)

	ListBadges(ctx context.Context, referrerID string) ([]models.ReferralBadge, error)

	// Leaderboard ranks referrers by referrals validated at or after since.
	Leaderboard(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardRow, error)

	// WalletBalance returns the mirrored beatcoin balance, nil when the
	// mirror has no row for the user yet.
	WalletBalance(ctx context.Context, userID string) (*int64, error)
}
