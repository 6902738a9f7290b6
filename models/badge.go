package models

import (
	"time"
)

// BadgeType: static catalog entry (global, all roles). Requirement is a
// valid-referral count threshold, Reward a flat beatcoin bonus.
type BadgeType struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requirement int64  `json:"requirement"`
	Reward      int64  `json:"reward"`
	Rarity      string `json:"rarity"`   // common, rare, epic, legendary
	IconKey     string `json:"icon_key"` // R2 object key, presigned for display
}

// ReferralBadge: awarded instance, at most one per (referrer, badge code).
type ReferralBadge struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferrerID string    `gorm:"not null;uniqueIndex:idx_referrer_badge" json:"referrer_id"` // ExternalUserID
	BadgeCode  string    `gorm:"not null;uniqueIndex:idx_referrer_badge" json:"badge_code"`
	AwardedAt  time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// BadgeCatalog: the five referral badges, ascending by requirement.
var BadgeCatalog = []BadgeType{
	{
		Code:        "REFER_3",
		Name:        "Crew Starter",
		Description: "Brought 3 people into the scene",
		Requirement: 3,
		Reward:      100,
		Rarity:      "common",
		IconKey:     "badges/refer_3.svg",
	},
	{
		Code:        "REFER_10",
		Name:        "Scene Builder",
		Description: "10 validated referrals",
		Requirement: 10,
		Reward:      300,
		Rarity:      "rare",
		IconKey:     "badges/refer_10.svg",
	},
	{
		Code:        "REFER_20",
		Name:        "Lineup Curator",
		Description: "20 validated referrals",
		Requirement: 20,
		Reward:      750,
		Rarity:      "epic",
		IconKey:     "badges/refer_20.svg",
	},
	{
		Code:        "REFER_50",
		Name:        "Rave Ambassador",
		Description: "50 validated referrals",
		Requirement: 50,
		Reward:      2000,
		Rarity:      "epic",
		IconKey:     "badges/refer_50.svg",
	},
	{
		Code:        "REFER_100",
		Name:        "Underground Legend",
		Description: "100 validated referrals",
		Requirement: 100,
		Reward:      5000,
		Rarity:      "legendary",
		IconKey:     "badges/refer_100.svg",
	},
}

// BadgeByCode looks a catalog entry up by code.
func BadgeByCode(code string) *BadgeType {
	for i := range BadgeCatalog {
		if BadgeCatalog[i].Code == code {
			return &BadgeCatalog[i]
		}
	}
	return nil
}
