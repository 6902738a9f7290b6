package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// ReferralStatus is the lifecycle state of a referral.
// Pending is the only non-terminal state.
type ReferralStatus string

const (
	ReferralStatusPending ReferralStatus = "pending"
	ReferralStatusValid   ReferralStatus = "valid"
	ReferralStatusInvalid ReferralStatus = "invalid"
)

// Role of a platform member, as reported by the profile service.
type Role string

const (
	RolePerformer Role = "performer"
	RoleAttendee  Role = "attendee"
	RoleVenue     Role = "venue"
	RoleOther     Role = "other"
)

// ActionType is one trackable onboarding task for a referred member.
type ActionType string

const (
	ActionProfileCompletion ActionType = "profile_completion"
	ActionVenueQRScan       ActionType = "venue_qr_scan"
	ActionGeovote           ActionType = "geovote"
	ActionMatch             ActionType = "match"
	ActionSessionUpload     ActionType = "session_upload" // performer-only
)

// Referral tracks one invitation relationship between two members.
// Rows are append-only: status transitions, never deletes.
type Referral struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferrerID   string `gorm:"index;not null" json:"referrer_id"` // ExternalUserID
	ReferredID   string `gorm:"index;not null" json:"referred_id"` // ExternalUserID; one live referral per member, enforced by the store
	ReferredRole Role   `gorm:"type:varchar(16);not null" json:"referred_role"`

	CodeUsed string         `gorm:"index;not null" json:"code_used"` // normalized, per-referrer reusable
	Status   ReferralStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	CompletedAt       *time.Time `json:"completed_at,omitempty"` // set on Pending -> Valid
	BeatcoinsRewarded *int64     `json:"beatcoins_rewarded,omitempty"`

	Actions []ReferralAction `gorm:"foreignKey:ReferralID" json:"actions"`

	Timestamps
}

// ReferralAction is one onboarding task tied to a referral. The set is fixed
// at creation from the referred member's role; Completed flips false -> true
// exactly once.
type ReferralAction struct {
	ID         string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferralID string     `gorm:"index;not null" json:"referral_id"`
	Type       ActionType `gorm:"type:varchar(32);not null" json:"type"`

	Completed         bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	BeatcoinsRewarded *int64     `json:"beatcoins_rewarded,omitempty"`

	// DualReward: completing this action credits both the referrer and the
	// referred member.
	DualReward bool `gorm:"not null;default:true" json:"dual_reward"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ExpiresAt returns the moment the referral stops accepting completions.
func (r *Referral) ExpiresAt() time.Time {
	return r.CreatedAt.Add(ExpirationDays * 24 * time.Hour)
}

// IsExpired reports whether a still-Pending referral has passed its deadline.
func (r *Referral) IsExpired(now time.Time) bool {
	return r.Status == ReferralStatusPending && !now.Before(r.ExpiresAt())
}

// DaysRemaining returns ceil(time until expiry / 1 day), floored at 0.
// Terminal referrals always report 0.
func (r *Referral) DaysRemaining(now time.Time) int {
	if r.Status != ReferralStatusPending {
		return 0
	}
	left := r.ExpiresAt().Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// ActionOf returns the action of the given type, or nil if the referral's
// fixed action set does not contain it.
func (r *Referral) ActionOf(t ActionType) *ReferralAction {
	for i := range r.Actions {
		if r.Actions[i].Type == t {
			return &r.Actions[i]
		}
	}
	return nil
}
