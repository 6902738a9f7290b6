package services

import (
	"context"
	"fmt"
	"testing"

	"referral-reward-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReevaluateGrantsMilestonesAndBadges(t *testing.T) {
	ctx := context.Background()
	roles := fakeRoles{"ref-1": models.RoleAttendee}
	eng := newTestEngine(roles)

	seedValidReferrals(t, eng.store, "ref-1", 3)

	res, err := eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)

	// Attendee ladder rungs 1 and 3, plus the REFER_3 badge.
	require.Len(t, res.NewMilestones, 2)
	assert.Equal(t, 1, res.NewMilestones[0].Count)
	assert.Equal(t, 3, res.NewMilestones[1].Count)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "REFER_3", res.NewBadges[0].Code)

	amt, ok := eng.wallet.amountFor("milestone:ref-1:attendee:1")
	require.True(t, ok)
	assert.Equal(t, int64(25), amt)
	amt, ok = eng.wallet.amountFor("milestone:ref-1:attendee:3")
	require.True(t, ok)
	assert.Equal(t, int64(75), amt)
	amt, ok = eng.wallet.amountFor("badge:ref-1:REFER_3")
	require.True(t, ok)
	assert.Equal(t, int64(100), amt)

	badges, err := eng.store.ListBadges(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "REFER_3", badges[0].BadgeCode)
}

func TestReevaluateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{"ref-1": models.RoleAttendee})

	seedValidReferrals(t, eng.store, "ref-1", 3)

	_, err := eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)

	res, err := eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)
	assert.Empty(t, res.NewMilestones)
	assert.Empty(t, res.NewBadges)

	assert.Equal(t, 1, eng.wallet.callsFor("badge:ref-1:REFER_3"))
	assert.Equal(t, 1, eng.wallet.callsFor("milestone:ref-1:attendee:3"))
}

func TestReevaluateJumpGrantsEveryThreshold(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{"ref-1": models.RoleAttendee})

	seedValidReferrals(t, eng.store, "ref-1", 2)
	res, err := eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)
	require.Len(t, res.NewMilestones, 1)
	assert.Empty(t, res.NewBadges)

	// Jump from 2 to 12 valid referrals in one go: every crossed threshold
	// lands in a single reevaluation.
	seedValidReferrals(t, eng.store, "ref-1", 10)
	res, err = eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)

	var counts []int
	for _, m := range res.NewMilestones {
		counts = append(counts, m.Count)
	}
	assert.Equal(t, []int{3, 5, 10}, counts)

	var codes []string
	for _, b := range res.NewBadges {
		codes = append(codes, b.Code)
	}
	assert.Equal(t, []string{"REFER_3", "REFER_10"}, codes)
}

func TestPerkMilestonesAreNotCredited(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{"ref-1": models.RoleAttendee})

	// The attendee rung at 5 is a perk, not beatcoins.
	seedValidReferrals(t, eng.store, "ref-1", 5)
	res, err := eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)

	var perkSeen bool
	for _, m := range res.NewMilestones {
		if m.Count == 5 {
			perkSeen = true
			assert.Equal(t, models.MilestoneRewardPerk, m.RewardKind)
		}
	}
	require.True(t, perkSeen)

	assert.Equal(t, 0, eng.wallet.callsFor("milestone:ref-1:attendee:5"))

	// The grant itself is still recorded exactly once.
	ev, found := eng.store.EventBySourceKey("milestone:ref-1:attendee:5")
	require.True(t, found)
	assert.Equal(t, int64(0), ev.Amount)
}

func TestReevaluateUnknownRoleFallsBackToOtherLadder(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(fakeRoles{}) // ref-1 resolves to RoleOther

	seedValidReferrals(t, eng.store, "ref-1", 1)
	res, err := eng.evaluator.Reevaluate(ctx, "ref-1", testNow)
	require.NoError(t, err)

	require.Len(t, res.NewMilestones, 1)
	assert.Equal(t, int64(25), res.NewMilestones[0].RewardValue)
	amt, ok := eng.wallet.amountFor(fmt.Sprintf("milestone:ref-1:%s:1", models.RoleOther))
	require.True(t, ok)
	assert.Equal(t, int64(25), amt)
}
