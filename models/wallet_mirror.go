// models/wallet_mirror.go
package models

import (
	"time"
)

// WalletMirror mirrors beatcoin balances from the wallet service, for display
// in referral stats. Never the source of truth; credits go through the wallet
// service, this row just trails it.
type WalletMirror struct {
	ID           string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID       string    `gorm:"uniqueIndex;not null" json:"user_id"` // ExternalUserID
	Beatcoins    int64     `gorm:"not null;default:0" json:"beatcoins"`
	LastSyncedAt time.Time `gorm:"not null" json:"last_synced_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
