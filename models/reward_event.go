package models

import "time"

// RewardKind categorizes a beatcoin credit.
type RewardKind string

const (
	RewardKindAction     RewardKind = "action"
	RewardKindValidation RewardKind = "validation"
	RewardKindBadge      RewardKind = "badge"
	RewardKindMilestone  RewardKind = "milestone"
)

// RewardEvent is the append-only credit history. SourceKey doubles as the
// wallet idempotency key; its unique index is what makes every grant
// exactly-once. Perk milestones are recorded with Amount 0 so "newly
// completed" stays derivable without a separate grant table.
type RewardEvent struct {
	ID        string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string     `gorm:"index;not null" json:"user_id"` // ExternalUserID receiving the credit
	Kind      RewardKind `gorm:"type:varchar(16);not null" json:"kind"`
	Amount    int64      `gorm:"not null" json:"amount"`
	SourceKey string     `gorm:"uniqueIndex;not null" json:"source_key"`

	ReferralID  *string `gorm:"index" json:"referral_id,omitempty"`
	Description string  `json:"description"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
