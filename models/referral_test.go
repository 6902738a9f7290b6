package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var refNow = time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC)

func pendingReferral(created time.Time) *Referral {
	return &Referral{
		ID:         "r-1",
		Status:     ReferralStatusPending,
		Timestamps: Timestamps{CreatedAt: created},
	}
}

func TestIsExpiredBoundary(t *testing.T) {
	r := pendingReferral(refNow.AddDate(0, 0, -ExpirationDays))

	assert.True(t, r.IsExpired(refNow), "exactly at the deadline counts as expired")
	assert.False(t, r.IsExpired(refNow.Add(-time.Second)))

	r.Status = ReferralStatusValid
	assert.False(t, r.IsExpired(refNow), "terminal referrals never expire")
}

func TestDaysRemainingRoundsUp(t *testing.T) {
	cases := []struct {
		name    string
		created time.Time
		want    int
	}{
		{"fresh referral", refNow, 7},
		{"half a day in", refNow.Add(-12 * time.Hour), 7},
		{"one hour left", refNow.AddDate(0, 0, -7).Add(time.Hour), 1},
		{"past deadline", refNow.AddDate(0, 0, -8), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pendingReferral(tc.created).DaysRemaining(refNow))
		})
	}

	valid := pendingReferral(refNow)
	valid.Status = ReferralStatusValid
	assert.Equal(t, 0, valid.DaysRemaining(refNow), "terminal referrals report zero")
}

func TestActionOf(t *testing.T) {
	r := pendingReferral(refNow)
	r.Actions = []ReferralAction{
		{ID: "a-1", Type: ActionProfileCompletion},
		{ID: "a-2", Type: ActionGeovote},
	}

	got := r.ActionOf(ActionGeovote)
	assert.NotNil(t, got)
	assert.Equal(t, "a-2", got.ID)
	assert.Nil(t, r.ActionOf(ActionSessionUpload))
}

func TestActionTypesForRole(t *testing.T) {
	base := []ActionType{ActionProfileCompletion, ActionVenueQRScan, ActionGeovote, ActionMatch}

	assert.Equal(t, base, ActionTypesForRole(RoleAttendee))
	assert.Equal(t, base, ActionTypesForRole(RoleVenue))
	assert.Equal(t, append(base, ActionSessionUpload), ActionTypesForRole(RolePerformer))
}

func TestValidationRewardFallback(t *testing.T) {
	assert.Equal(t, int64(200), ValidationReward(RolePerformer))
	assert.Equal(t, int64(75), ValidationReward(Role("resident-alien")))
}

func TestLadderForRoleFallback(t *testing.T) {
	assert.Equal(t, MilestoneLadders[RoleOther], LadderForRole(Role("resident-alien")))

	// Ladders stay ascending so the first incomplete rung is the next one.
	for role, ladder := range MilestoneLadders {
		for i := 1; i < len(ladder); i++ {
			assert.Greater(t, ladder[i].Count, ladder[i-1].Count, "ladder for %s out of order", role)
		}
	}
}

func TestBadgeByCode(t *testing.T) {
	b := BadgeByCode("REFER_10")
	assert.NotNil(t, b)
	assert.Equal(t, int64(10), b.Requirement)
	assert.Nil(t, BadgeByCode("REFER_9000"))
}
