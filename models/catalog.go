package models

// Anti-abuse and lifecycle constants. The weekly window is Monday 00:00 UTC
// to the next Monday 00:00 UTC.
const (
	WeeklyReferralLimit = 5
	ExpirationDays      = 7
)

// ActionRewards: beatcoins paid per completed action, to BOTH sides of the
// referral (dual reward).
var ActionRewards = map[ActionType]int64{
	ActionProfileCompletion: 50,
	ActionVenueQRScan:       30,
	ActionGeovote:           20,
	ActionMatch:             25,
	ActionSessionUpload:     100,
}

// ValidationRewards: flat beatcoin reward to the referrer when a referral
// turns Valid, keyed by the referrer's role.
var ValidationRewards = map[Role]int64{
	RolePerformer: 200,
	RoleVenue:     150,
	RoleAttendee:  100,
	RoleOther:     75,
}

// ValidationReward returns the flat reward for a referrer role, falling back
// to the RoleOther row for unknown roles.
func ValidationReward(role Role) int64 {
	if v, ok := ValidationRewards[role]; ok {
		return v
	}
	return ValidationRewards[RoleOther]
}

// ActionTypesForRole fixes the onboarding action set at referral creation.
// Performers additionally get the session-upload task.
func ActionTypesForRole(role Role) []ActionType {
	base := []ActionType{
		ActionProfileCompletion,
		ActionVenueQRScan,
		ActionGeovote,
		ActionMatch,
	}
	if role == RolePerformer {
		base = append(base, ActionSessionUpload)
	}
	return base
}

// MilestoneRewardKind distinguishes wallet-credited milestones from
// informational perks (guestlist slots, promoted listings, ...).
type MilestoneRewardKind string

const (
	MilestoneRewardBeatcoins MilestoneRewardKind = "beatcoins"
	MilestoneRewardPerk      MilestoneRewardKind = "perk"
)

// Milestone is one rung of a role-specific ladder. Count is a threshold of
// VALID referrals; completion is derived, never stored.
type Milestone struct {
	Count       int                 `json:"count"`
	RewardKind  MilestoneRewardKind `json:"reward_kind"`
	RewardValue int64               `json:"reward_value"` // beatcoins; 0 for perks
	Description string              `json:"description"`
}

// MilestoneLadders: per-role milestone ladders, ascending by Count.
var MilestoneLadders = map[Role][]Milestone{
	RolePerformer: {
		{Count: 1, RewardKind: MilestoneRewardBeatcoins, RewardValue: 50, Description: "First signal boost"},
		{Count: 3, RewardKind: MilestoneRewardPerk, Description: "Featured artist spotlight for a week"},
		{Count: 5, RewardKind: MilestoneRewardBeatcoins, RewardValue: 150, Description: "Crew of five"},
		{Count: 10, RewardKind: MilestoneRewardPerk, Description: "Guestlist slot at a partner club night"},
		{Count: 25, RewardKind: MilestoneRewardBeatcoins, RewardValue: 500, Description: "Full lineup energy"},
	},
	RoleVenue: {
		{Count: 1, RewardKind: MilestoneRewardBeatcoins, RewardValue: 50, Description: "Doors open"},
		{Count: 3, RewardKind: MilestoneRewardPerk, Description: "Promoted listing on the club map"},
		{Count: 5, RewardKind: MilestoneRewardBeatcoins, RewardValue: 200, Description: "Regular crowd"},
		{Count: 10, RewardKind: MilestoneRewardBeatcoins, RewardValue: 500, Description: "Packed floor"},
		{Count: 25, RewardKind: MilestoneRewardBeatcoins, RewardValue: 1000, Description: "Destination venue"},
	},
	RoleAttendee: {
		{Count: 1, RewardKind: MilestoneRewardBeatcoins, RewardValue: 25, Description: "Brought a friend"},
		{Count: 3, RewardKind: MilestoneRewardBeatcoins, RewardValue: 75, Description: "Small crew"},
		{Count: 5, RewardKind: MilestoneRewardPerk, Description: "One month of premium on us"},
		{Count: 10, RewardKind: MilestoneRewardBeatcoins, RewardValue: 250, Description: "Squad assembled"},
		{Count: 25, RewardKind: MilestoneRewardBeatcoins, RewardValue: 500, Description: "Scene connector"},
	},
	RoleOther: {
		{Count: 1, RewardKind: MilestoneRewardBeatcoins, RewardValue: 25, Description: "First invite"},
		{Count: 3, RewardKind: MilestoneRewardBeatcoins, RewardValue: 50, Description: "Word is spreading"},
		{Count: 5, RewardKind: MilestoneRewardBeatcoins, RewardValue: 100, Description: "Five strong"},
		{Count: 10, RewardKind: MilestoneRewardBeatcoins, RewardValue: 200, Description: "Double digits"},
		{Count: 25, RewardKind: MilestoneRewardBeatcoins, RewardValue: 400, Description: "Community builder"},
	},
}

// LadderForRole returns the milestone ladder for a role, falling back to the
// RoleOther ladder for unknown roles.
func LadderForRole(role Role) []Milestone {
	if ladder, ok := MilestoneLadders[role]; ok {
		return ladder
	}
	return MilestoneLadders[RoleOther]
}
