package services

import (
	"context"
	"log"
	"time"

	"referral-reward-system/models"
	"referral-reward-system/utils"

	"github.com/google/uuid"
)

// ReferralService owns the referral ledger operations: code redemption
// (creation), validation, expiration, and reads.
type ReferralService struct {
	Store     ReferralStore
	Wallet    Wallet
	Roles     RoleProvider
	Quota     *QuotaGuard
	Evaluator *EvaluatorService
}

func NewReferralService(store ReferralStore, wallet Wallet, roles RoleProvider, evaluator *EvaluatorService) *ReferralService {
	return &ReferralService{
		Store:     store,
		Wallet:    wallet,
		Roles:     roles,
		Quota:     NewQuotaGuard(store),
		Evaluator: evaluator,
	}
}

// creditWith builds the hook that pushes one wallet credit per recorded
// reward event, using the event's SourceKey as the idempotency key.
func creditWith(w Wallet) CreditHook {
	return func(ctx context.Context, events []models.RewardEvent) error {
		if w == nil {
			return nil
		}
		for _, ev := range events {
			if ev.Amount <= 0 {
				continue
			}
			if err := w.Credit(ctx, ev.UserID, ev.Amount, ev.SourceKey); err != nil {
				return err
			}
		}
		return nil
	}
}

// RedeemCode creates a Pending referral for an already-resolved
// (referrerID, code) pair. The action set is fixed here from the referred
// member's role; the weekly cap is enforced atomically with the insert.
func (s *ReferralService) RedeemCode(ctx context.Context, referrerID, referredID, code string, referredRole models.Role, now time.Time) (*models.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	// Fast rejection before any role lookup or record building; the binding
	// count still runs inside the store's create transaction.
	if err := s.Quota.Check(ctx, referrerID, now); err != nil {
		return nil, err
	}

	if referredRole == "" {
		role, err := s.Roles.RoleOf(ctx, referredID)
		if err != nil {
			return nil, err
		}
		referredRole = role
	}

	rec := &models.Referral{
		ID:           uuid.NewString(),
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		ReferredRole: referredRole,
		CodeUsed:     utils.NormalizeCode(code),
		Status:       models.ReferralStatusPending,
		Timestamps:   models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	for _, t := range models.ActionTypesForRole(referredRole) {
		rec.Actions = append(rec.Actions, models.ReferralAction{
			ID:         uuid.NewString(),
			ReferralID: rec.ID,
			Type:       t,
			DualReward: true,
			CreatedAt:  now,
		})
	}

	weekStart, weekEnd := WeekWindow(now)
	if err := s.Store.CreateReferral(ctx, rec, weekStart, weekEnd, s.Quota.Limit); err != nil {
		return nil, err
	}

	log.Printf("🤝 Referral created: %s → %s (code %s, %d actions)",
		referrerID, referredID, rec.CodeUsed, len(rec.Actions))
	return rec, nil
}

// ValidateReferral transitions Pending -> Valid, credits the referrer's flat
// reward, and reevaluates milestones/badges. callerID must be the referral's
// referrer unless system is set (admin or internal trigger).
func (s *ReferralService) ValidateReferral(ctx context.Context, referralID, callerID string, system bool, now time.Time) (*models.Referral, error) {
	ref, err := s.Store.GetReferral(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if !system && callerID != ref.ReferrerID {
		return nil, ErrNotAuthorized
	}

	role, err := s.Roles.RoleOf(ctx, ref.ReferrerID)
	if err != nil {
		return nil, err
	}
	reward := models.ValidationReward(role)

	validated, err := s.Store.ValidateReferral(ctx, referralID, now, reward, creditWith(s.Wallet))
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Referral validated: %s (referrer %s, +%d beatcoins)",
		validated.ID, validated.ReferrerID, reward)

	if s.Evaluator != nil {
		if _, err := s.Evaluator.Reevaluate(ctx, validated.ReferrerID, now); err != nil {
			log.Printf("⚠️ Milestone reevaluation failed for %s: %v", validated.ReferrerID, err)
		}
	}
	return validated, nil
}

// Expire is the system-only Pending -> Invalid transition. Idempotent.
func (s *ReferralService) Expire(ctx context.Context, referralID string, now time.Time) (*models.Referral, bool, error) {
	return s.Store.ExpireReferral(ctx, referralID, now)
}

func (s *ReferralService) Get(ctx context.Context, referralID string) (*models.Referral, error) {
	return s.Store.GetReferral(ctx, referralID)
}

func (s *ReferralService) ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	return s.Store.ListByReferrer(ctx, referrerID)
}
