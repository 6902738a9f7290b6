package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"referral-reward-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemCodeCreatesPendingReferral(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{"ref-1": models.RolePerformer})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "DJ Nova 2025!", models.RoleAttendee, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.ReferralStatusPending, ref.Status)
	assert.Equal(t, "dj-nova-2025", ref.CodeUsed)
	assert.Equal(t, models.RoleAttendee, ref.ReferredRole)
	assert.Nil(t, ref.CompletedAt)
	assert.Len(t, ref.Actions, 4) // no session_upload for attendees

	stored, err := eng.referrals.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, ref.ID, stored.ID)
}

func TestRedeemCodePerformerGetsSessionUpload(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RolePerformer, testNow)
	require.NoError(t, err)

	assert.Len(t, ref.Actions, 5)
	assert.NotNil(t, ref.ActionOf(models.ActionSessionUpload))
}

func TestRedeemCodeResolvesRoleWhenMissing(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{"new-1": models.RolePerformer})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", "", testNow)
	require.NoError(t, err)

	assert.Equal(t, models.RolePerformer, ref.ReferredRole)
	assert.Len(t, ref.Actions, 5)
}

func TestRedeemCodeSelfReferral(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	_, err := eng.referrals.RedeemCode(ctx, "ref-1", "ref-1", "code", models.RoleAttendee, testNow)
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestRedeemCodeWeeklyQuota(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	for i := 0; i < models.WeeklyReferralLimit; i++ {
		_, err := eng.referrals.RedeemCode(ctx, "ref-1",
			fmt.Sprintf("new-%d", i), "code", models.RoleAttendee, testNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	_, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-6", "code", models.RoleAttendee, testNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// A different referrer is unaffected.
	_, err = eng.referrals.RedeemCode(ctx, "ref-2", "new-7", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)

	// The window rolls over the following Monday.
	_, err = eng.referrals.RedeemCode(ctx, "ref-1", "new-8", "code", models.RoleAttendee, testNow.AddDate(0, 0, 7))
	require.NoError(t, err)
}

func TestRedeemCodeRejectsLiveReferredMember(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	first, err := eng.referrals.RedeemCode(ctx, "ref-1", "same-user", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)

	// A member with a Pending referral cannot be referred again.
	_, err = eng.referrals.RedeemCode(ctx, "ref-2", "same-user", "code", models.RoleAttendee, testNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	// Nor after that referral turns Valid.
	_, err = eng.referrals.ValidateReferral(ctx, first.ID, "ref-1", false, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = eng.referrals.RedeemCode(ctx, "ref-2", "same-user", "code", models.RoleAttendee, testNow.Add(3*time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyReferred)
}

func TestRedeemCodeAllowedAfterExpiry(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	_, err := eng.referrals.RedeemCode(ctx, "ref-1", "same-user", "code", models.RoleAttendee, testNow.AddDate(0, 0, -8))
	require.NoError(t, err)

	// Once the stale referral is swept Invalid the member is referable again.
	swept, err := eng.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	ref, err := eng.referrals.RedeemCode(ctx, "ref-2", "same-user", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusPending, ref.Status)
	assert.Equal(t, "ref-2", ref.ReferrerID)
}

func TestValidateReferralCreditsFlatReward(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{"ref-1": models.RolePerformer})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)

	validated, err := eng.referrals.ValidateReferral(ctx, ref.ID, "ref-1", false, testNow.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, models.ReferralStatusValid, validated.Status)
	require.NotNil(t, validated.CompletedAt)
	require.NotNil(t, validated.BeatcoinsRewarded)
	assert.Equal(t, int64(200), *validated.BeatcoinsRewarded) // performer flat reward

	key := fmt.Sprintf("referral:%s:validate", ref.ID)
	amt, ok := eng.wallet.amountFor(key)
	require.True(t, ok)
	assert.Equal(t, int64(200), amt)
}

func TestValidateReferralRewardByRole(t *testing.T) {
	cases := []struct {
		role   models.Role
		reward int64
	}{
		{models.RolePerformer, 200},
		{models.RoleVenue, 150},
		{models.RoleAttendee, 100},
		{models.RoleOther, 75},
		{models.Role("unknown"), 75}, // falls back to other
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			ctx := context.Background()
			eng := newTestEngine(fakeRoles{"ref-1": tc.role})

			ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, testNow)
			require.NoError(t, err)

			validated, err := eng.referrals.ValidateReferral(ctx, ref.ID, "ref-1", false, testNow.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, tc.reward, *validated.BeatcoinsRewarded)
		})
	}
}

func TestValidateReferralIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)

	_, err = eng.referrals.ValidateReferral(ctx, ref.ID, "ref-1", false, testNow.Add(time.Hour))
	require.NoError(t, err)

	_, err = eng.referrals.ValidateReferral(ctx, ref.ID, "ref-1", false, testNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	key := fmt.Sprintf("referral:%s:validate", ref.ID)
	assert.Equal(t, 1, eng.wallet.callsFor(key))
}

func TestValidateReferralAuthorization(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)

	_, err = eng.referrals.ValidateReferral(ctx, ref.ID, "someone-else", false, testNow)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// System callers bypass the referrer check.
	_, err = eng.referrals.ValidateReferral(ctx, ref.ID, "", true, testNow)
	require.NoError(t, err)
}

func TestValidateReferralMissing(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	_, err := eng.referrals.ValidateReferral(ctx, "no-such-id", "ref-1", false, testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateReferralExpired(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	created := testNow.AddDate(0, 0, -8)
	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, created)
	require.NoError(t, err)

	_, err = eng.referrals.ValidateReferral(ctx, ref.ID, "ref-1", false, testNow)
	assert.ErrorIs(t, err, ErrExpired)

	stored, err := eng.referrals.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusInvalid, stored.Status)

	key := fmt.Sprintf("referral:%s:validate", ref.ID)
	assert.Equal(t, 0, eng.wallet.callsFor(key))
}

func TestExpireIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)

	_, transitioned, err := eng.referrals.Expire(ctx, ref.ID, testNow.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.True(t, transitioned)

	_, transitioned, err = eng.referrals.Expire(ctx, ref.ID, testNow.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.False(t, transitioned)
}

func TestExpireNoOpOnValidated(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{})

	ref, err := eng.referrals.RedeemCode(ctx, "ref-1", "new-1", "code", models.RoleAttendee, testNow)
	require.NoError(t, err)
	_, err = eng.referrals.ValidateReferral(ctx, ref.ID, "ref-1", false, testNow.Add(time.Hour))
	require.NoError(t, err)

	got, transitioned, err := eng.referrals.Expire(ctx, ref.ID, testNow.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, models.ReferralStatusValid, got.Status)
}
