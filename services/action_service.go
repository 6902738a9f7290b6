package services

import (
	"context"
	"errors"
	"log"
	"time"

	"referral-reward-system/models"
)

// ValidationPolicy decides whether a Pending referral qualifies for
// automatic validation after an action completes. Pluggable because the
// business rule is a product decision, not engine logic.
type ValidationPolicy func(r *models.Referral) bool

// DefaultValidationPolicy: the referred member finished their profile and at
// least one other onboarding action.
func DefaultValidationPolicy(r *models.Referral) bool {
	profileDone := false
	others := 0
	for _, a := range r.Actions {
		if !a.Completed {
			continue
		}
		if a.Type == models.ActionProfileCompletion {
			profileDone = true
		} else {
			others++
		}
	}
	return profileDone && others >= 1
}

// ActionService applies single action completions with dual rewards.
type ActionService struct {
	Store     ReferralStore
	Wallet    Wallet
	Referrals *ReferralService
	Evaluator *EvaluatorService
	Policy    ValidationPolicy
}

func NewActionService(store ReferralStore, wallet Wallet, referrals *ReferralService, evaluator *EvaluatorService) *ActionService {
	return &ActionService{
		Store:     store,
		Wallet:    wallet,
		Referrals: referrals,
		Evaluator: evaluator,
		Policy:    DefaultValidationPolicy,
	}
}

// CompleteAction marks one onboarding action done and credits BOTH sides of
// the referral with the catalog amount. Expired referrals are lazily flipped
// Invalid and rejected; repeated completions return ErrAlreadyCompleted
// without touching any wallet.
func (s *ActionService) CompleteAction(ctx context.Context, referralID string, actionType models.ActionType, now time.Time) (*models.ReferralAction, error) {
	reward, ok := models.ActionRewards[actionType]
	if !ok {
		return nil, ErrActionNotFound
	}

	ref, act, err := s.Store.CompleteAction(ctx, referralID, actionType, now, reward, creditWith(s.Wallet))
	if err != nil {
		return nil, err
	}
	log.Printf("🎯 Action completed: %s on referral %s (+%d beatcoins to each side)",
		actionType, ref.ID, reward)

	// The action just applied may have been the one that qualifies the
	// referral; both paths share the store's atomic transition, so a racing
	// manual validation simply wins.
	if s.Policy != nil && ref.Status == models.ReferralStatusPending && s.Policy(ref) {
		if _, err := s.Referrals.ValidateReferral(ctx, ref.ID, "", true, now); err != nil &&
			!errors.Is(err, ErrAlreadyProcessed) {
			log.Printf("⚠️ Auto-validation failed for referral %s: %v", ref.ID, err)
		}
	}

	if s.Evaluator != nil {
		if _, err := s.Evaluator.Reevaluate(ctx, ref.ReferrerID, now); err != nil {
			log.Printf("⚠️ Milestone reevaluation failed for %s: %v", ref.ReferrerID, err)
		}
	}
	return act, nil
}
