package services

import (
	"context"
	"errors"
	"log"

	"referral-reward-system/models"

	"gorm.io/gorm"
)

// RoleProvider resolves a member's role. Used once at referral creation to
// fix the action set and again when picking reward catalog rows.
type RoleProvider interface {
	RoleOf(ctx context.Context, userID string) (models.Role, error)
}

// IdentityService answers RoleOf from the local member mirror, falling back
// to the profile service over HTTP when the mirror has not caught up yet.
type IdentityService struct {
	DB     *gorm.DB
	Client *ProfileServiceClient
}

func NewIdentityService(db *gorm.DB, client *ProfileServiceClient) *IdentityService {
	return &IdentityService{DB: db, Client: client}
}

func (s *IdentityService) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	var member models.MemberMirror
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).First(&member).Error
	if err == nil && member.Role != "" {
		return member.Role, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	if s.Client != nil {
		role, err := s.Client.FetchRole(ctx, userID)
		if err == nil {
			return role, nil
		}
		log.Printf("⚠️ [IDENTITY] profile service role lookup failed for %s: %v", userID, err)
	}

	// Unknown members fall into the conservative catalog row.
	return models.RoleOther, nil
}
