package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the production ReferralStore on PostgreSQL. Quota checks are
// serialized per referrer with an advisory transaction lock; status
// transitions re-read the row under FOR UPDATE before checking, so two
// racing requests cannot both pass the same check.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// errLazyExpire signals from inside a transaction that the referral must be
// expired in its own transaction (returning an error would roll the
// expiration back together with everything else).
var errLazyExpire = errors.New("referral past deadline")

func (s *GormStore) CreateReferral(ctx context.Context, rec *models.Referral, weekStart, weekEnd time.Time, limit int) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize creations per referrer and per referred member so the
		// counts and the insert act as one unit. Lock order is fixed
		// (referrer, then referred) to keep concurrent creations deadlock-free.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", rec.ReferrerID).Error; err != nil {
			return err
		}
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", rec.ReferredID).Error; err != nil {
			return err
		}

		var live int64
		if err := tx.Model(&models.Referral{}).
			Where("referred_id = ? AND status <> ?", rec.ReferredID, models.ReferralStatusInvalid).
			Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return ErrAlreadyReferred
		}

		var count int64
		if err := tx.Model(&models.Referral{}).
			Where("referrer_id = ? AND created_at >= ? AND created_at < ?", rec.ReferrerID, weekStart, weekEnd).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(limit) {
			return ErrQuotaExceeded
		}

		return tx.Create(rec).Error
	})
}

func (s *GormStore) GetReferral(ctx context.Context, id string) (*models.Referral, error) {
	var r models.Referral
	err := s.DB.WithContext(ctx).Preload("Actions").Where("id = ?", id).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *GormStore) ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	var refs []models.Referral
	err := s.DB.WithContext(ctx).
		Preload("Actions").
		Where("referrer_id = ?", referrerID).
		Order("created_at DESC").
		Find(&refs).Error
	return refs, err
}

func (s *GormStore) CountWeekly(ctx context.Context, referrerID string, weekStart, weekEnd time.Time) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_id = ? AND created_at >= ? AND created_at < ?", referrerID, weekStart, weekEnd).
		Count(&count).Error
	return count, err
}

func (s *GormStore) CountValid(ctx context.Context, referrerID string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_id = ? AND status = ?", referrerID, models.ReferralStatusValid).
		Count(&count).Error
	return count, err
}

func (s *GormStore) ValidateReferral(ctx context.Context, id string, now time.Time, reward int64, credit CreditHook) (*models.Referral, error) {
	var out models.Referral
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Referral
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if r.Status != models.ReferralStatusPending {
			return ErrAlreadyProcessed
		}
		if r.IsExpired(now) {
			return errLazyExpire
		}

		r.Status = models.ReferralStatusValid
		r.CompletedAt = &now
		r.BeatcoinsRewarded = &reward
		if err := tx.Save(&r).Error; err != nil {
			return err
		}

		ev := models.RewardEvent{
			ID:          uuid.NewString(),
			UserID:      r.ReferrerID,
			Kind:        models.RewardKindValidation,
			Amount:      reward,
			SourceKey:   fmt.Sprintf("referral:%s:validate", r.ID),
			ReferralID:  &r.ID,
			Description: "Referral validated",
			CreatedAt:   now,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}

		if credit != nil {
			if err := credit(ctx, []models.RewardEvent{ev}); err != nil {
				return fmt.Errorf("%w: %v", ErrWalletCredit, err)
			}
		}

		if err := tx.Where("referral_id = ?", r.ID).Find(&r.Actions).Error; err != nil {
			return err
		}
		out = r
		return nil
	})
	if errors.Is(err, errLazyExpire) {
		if _, _, expErr := s.ExpireReferral(ctx, id, now); expErr != nil {
			return nil, expErr
		}
		return nil, ErrExpired
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) ExpireReferral(ctx context.Context, id string, now time.Time) (*models.Referral, bool, error) {
	var out models.Referral
	transitioned := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Referral
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// No-op on terminal rows: a user-driven validation may race the sweep.
		if r.Status != models.ReferralStatusPending {
			out = r
			return nil
		}

		r.Status = models.ReferralStatusInvalid
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		out = r
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, transitioned, nil
}

func (s *GormStore) ListExpirablePending(ctx context.Context, now time.Time) ([]string, error) {
	cutoff := now.Add(-models.ExpirationDays * 24 * time.Hour)
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Referral{}).
		Where("status = ? AND created_at <= ?", models.ReferralStatusPending, cutoff).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *GormStore) CompleteAction(ctx context.Context, referralID string, actionType models.ActionType, now time.Time, reward int64, credit CreditHook) (*models.Referral, *models.ReferralAction, error) {
	var outRef models.Referral
	var outAct models.ReferralAction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Referral
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", referralID).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if r.Status == models.ReferralStatusInvalid {
			return ErrExpired
		}
		if r.IsExpired(now) {
			return errLazyExpire
		}

		var act models.ReferralAction
		if err := tx.Where("referral_id = ? AND type = ?", r.ID, actionType).
			First(&act).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActionNotFound
			}
			return err
		}
		if act.Completed {
			return ErrAlreadyCompleted
		}

		act.Completed = true
		act.CompletedAt = &now
		act.BeatcoinsRewarded = &reward
		if err := tx.Save(&act).Error; err != nil {
			return err
		}

		events := []models.RewardEvent{
			{
				ID:          uuid.NewString(),
				UserID:      r.ReferrerID,
				Kind:        models.RewardKindAction,
				Amount:      reward,
				SourceKey:   fmt.Sprintf("action:%s:referrer", act.ID),
				ReferralID:  &r.ID,
				Description: fmt.Sprintf("Referred member completed %s", actionType),
				CreatedAt:   now,
			},
			{
				ID:          uuid.NewString(),
				UserID:      r.ReferredID,
				Kind:        models.RewardKindAction,
				Amount:      reward,
				SourceKey:   fmt.Sprintf("action:%s:referred", act.ID),
				ReferralID:  &r.ID,
				Description: fmt.Sprintf("Completed %s", actionType),
				CreatedAt:   now,
			},
		}
		if err := tx.Create(&events).Error; err != nil {
			return err
		}

		if credit != nil {
			if err := credit(ctx, events); err != nil {
				return fmt.Errorf("%w: %v", ErrWalletCredit, err)
			}
		}

		if err := tx.Where("referral_id = ?", r.ID).Find(&r.Actions).Error; err != nil {
			return err
		}
		outRef = r
		outAct = act
		return nil
	})
	if errors.Is(err, errLazyExpire) {
		if _, _, expErr := s.ExpireReferral(ctx, referralID, now); expErr != nil {
			return nil, nil, expErr
		}
		return nil, nil, ErrExpired
	}
	if err != nil {
		return nil, nil, err
	}
	return &outRef, &outAct, nil
}

func (s *GormStore) GrantBadge(ctx context.Context, referrerID string, badge models.BadgeType, now time.Time, credit CreditHook) (bool, error) {
	granted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ReferralBadge{}).
			Where("referrer_id = ? AND badge_code = ?", referrerID, badge.Code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		grant := models.ReferralBadge{
			ID:         uuid.NewString(),
			ReferrerID: referrerID,
			BadgeCode:  badge.Code,
			AwardedAt:  now,
		}
		if err := tx.Create(&grant).Error; err != nil {
			return err
		}

		ev := models.RewardEvent{
			ID:          uuid.NewString(),
			UserID:      referrerID,
			Kind:        models.RewardKindBadge,
			Amount:      badge.Reward,
			SourceKey:   fmt.Sprintf("badge:%s:%s", referrerID, badge.Code),
			Description: fmt.Sprintf("Badge earned: %s", badge.Name),
			CreatedAt:   now,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}

		if credit != nil {
			if err := credit(ctx, []models.RewardEvent{ev}); err != nil {
				return fmt.Errorf("%w: %v", ErrWalletCredit, err)
			}
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

func (s *GormStore) GrantMilestone(ctx context.Context, referrerID string, role models.Role, m models.Milestone, now time.Time, credit CreditHook) (bool, error) {
	granted := false
	sourceKey := fmt.Sprintf("milestone:%s:%s:%d", referrerID, role, m.Count)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RewardEvent{}).
			Where("source_key = ?", sourceKey).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		amount := int64(0)
		if m.RewardKind == models.MilestoneRewardBeatcoins {
			amount = m.RewardValue
		}
		ev := models.RewardEvent{
			ID:          uuid.NewString(),
			UserID:      referrerID,
			Kind:        models.RewardKindMilestone,
			Amount:      amount,
			SourceKey:   sourceKey,
			Description: m.Description,
			CreatedAt:   now,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}

		if amount > 0 && credit != nil {
			if err := credit(ctx, []models.RewardEvent{ev}); err != nil {
				return fmt.Errorf("%w: %v", ErrWalletCredit, err)
			}
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

func (s *GormStore) ListBadges(ctx context.Context, referrerID string) ([]models.ReferralBadge, error) {
	var badges []models.ReferralBadge
	err := s.DB.WithContext(ctx).
		Where("referrer_id = ?", referrerID).
		Order("awarded_at ASC").
		Find(&badges).Error
	return badges, err
}

func (s *GormStore) Leaderboard(ctx context.Context, since time.Time, limit int) ([]models.LeaderboardRow, error) {
	var rows []models.LeaderboardRow
	err := s.DB.WithContext(ctx).Model(&models.Referral{}).
		Select("referrer_id, COUNT(*) AS valid_referrals").
		Where("status = ? AND completed_at >= ?", models.ReferralStatusValid, since).
		Group("referrer_id").
		Order("valid_referrals DESC, referrer_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *GormStore) WalletBalance(ctx context.Context, userID string) (*int64, error) {
	var mirror models.WalletMirror
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&mirror).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mirror.Beatcoins, nil
}
