package services

import (
	"context"
	"log"
	"time"

	"referral-reward-system/models"
)

// EvaluatorResult lists what a reevaluation newly granted.
type EvaluatorResult struct {
	NewMilestones []models.Milestone `json:"new_milestones"`
	NewBadges     []models.BadgeType `json:"new_badges"`
}

// EvaluatorService recomputes a referrer's progress after every validated
// referral or completed action, granting newly-earned milestones and badges
// exactly once. Completion itself is always derived from the valid-referral
// count; only the grant side effects are stored.
type EvaluatorService struct {
	Store  ReferralStore
	Wallet Wallet
	Roles  RoleProvider
}

func NewEvaluatorService(store ReferralStore, wallet Wallet, roles RoleProvider) *EvaluatorService {
	return &EvaluatorService{Store: store, Wallet: wallet, Roles: roles}
}

// Reevaluate checks every ladder rung and catalog badge at or below the
// referrer's current valid-referral count. A jump across several thresholds
// in one validation grants all of them in this single call.
func (s *EvaluatorService) Reevaluate(ctx context.Context, referrerID string, now time.Time) (*EvaluatorResult, error) {
	validCount, err := s.Store.CountValid(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	role, err := s.Roles.RoleOf(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	res := &EvaluatorResult{}

	for _, m := range models.LadderForRole(role) {
		if int64(m.Count) > validCount {
			continue
		}
		granted, err := s.Store.GrantMilestone(ctx, referrerID, role, m, now, creditWith(s.Wallet))
		if err != nil {
			return nil, err
		}
		if granted {
			res.NewMilestones = append(res.NewMilestones, m)
			log.Printf("🏁 Milestone reached: %s → %d valid referrals (%s)", referrerID, m.Count, m.Description)
		}
	}

	for _, b := range models.BadgeCatalog {
		if b.Requirement > validCount {
			continue
		}
		granted, err := s.Store.GrantBadge(ctx, referrerID, b, now, creditWith(s.Wallet))
		if err != nil {
			return nil, err
		}
		if granted {
			res.NewBadges = append(res.NewBadges, b)
			log.Printf("🎖️ Badge awarded: %s → %s (+%d beatcoins)", b.Name, referrerID, b.Reward)
		}
	}

	return res, nil
}
