package models

import (
	"time"
)

// MemberMirror is a local snapshot of member data needed by the referral
// engine (role, profile completion). Owned solely by this service, populated
// via the member sync worker from the profile service.
type MemberMirror struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username       string `gorm:"index;not null" json:"username"`
	Role           Role   `gorm:"type:varchar(16);not null;default:'other'" json:"role"`

	// ProfileCompletionPct feeds the auto-validation policy.
	ProfileCompletionPct int    `gorm:"not null;default:0" json:"profile_completion_pct"`
	ReferralCode         string `gorm:"index" json:"referral_code"` // the member's own code

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
