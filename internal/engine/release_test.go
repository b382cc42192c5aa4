package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieguard/cookieguard/internal/types"
)

func TestClassifyComplexity(t *testing.T) {
	e := New(DefaultPolicy())

	tests := []struct {
		name     string
		issue    types.IssueRecord
		expected Complexity
	}{
		{
			"beginner label wins",
			types.IssueRecord{Labels: []types.IssueLabel{{Name: "good first issue"}}, Title: "Refactor the database layer"},
			ComplexityTrivial,
		},
		{
			"critical label wins",
			types.IssueRecord{Labels: []types.IssueLabel{{Name: "critical"}}, Title: "Fix typo"},
			ComplexityVeryHard,
		},
		{
			"hard label",
			types.IssueRecord{Labels: []types.IssueLabel{{Name: "hard"}}},
			ComplexityHard,
		},
		{
			"typo title",
			types.IssueRecord{Title: "Fix typo in README"},
			ComplexityTrivial,
		},
		{
			"refactor title",
			types.IssueRecord{Title: "Refactor the api layer"},
			ComplexityHard,
		},
		{
			"feature title",
			types.IssueRecord{Title: "Add dark mode support"},
			ComplexityMedium,
		},
		{
			"short description",
			types.IssueRecord{Title: "Something odd", Description: "Crash on startup."},
			ComplexityTrivial,
		},
		{
			"long description",
			types.IssueRecord{Title: "Something odd", Description: strings.Repeat("x", 1600)},
			ComplexityVeryHard,
		},
		{
			"no signal defaults to medium",
			types.IssueRecord{Title: "Something odd"},
			ComplexityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ClassifyComplexity(tt.issue))
		})
	}
}

func TestPredictReleaseNeverBeforeMinimumWait(t *testing.T) {
	// Even with a stack of risk signals pushing the probability past the
	// release bar, a MEDIUM claim younger than 7 days is never released.
	now := testNow()
	e := New(DefaultPolicy())

	decision := e.PredictRelease(ReleaseInput{
		Claim: types.ClaimRecord{ClaimedAt: now.AddDate(0, 0, -6), NudgesSent: 0},
		Issue: types.IssueRecord{Title: "Add dark mode support"},
		Reputation: types.ReputationScore{Tier: types.TierRegular},
		Progress: types.ProgressAssessment{
			ProgressScore:         5,
			CompletionProbability: 10,
			RiskSignals:           []string{"very_low_velocity", "no_test_coverage", "mostly_trivial_commits"},
		},
		Now: now,
	})

	assert.False(t, decision.ShouldRelease)
	assert.NotEqual(t, types.ActionRelease, decision.Action)
	require.NotNil(t, decision.DaysToWait)
	assert.GreaterOrEqual(t, *decision.DaysToWait, 1)
}

func TestPredictReleaseStaleAbandonedClaim(t *testing.T) {
	// 20 days on a MEDIUM issue, two nudges ignored, no real progress.
	now := testNow()
	e := New(DefaultPolicy())

	decision := e.PredictRelease(ReleaseInput{
		Claim: types.ClaimRecord{ClaimedAt: now.AddDate(0, 0, -20), NudgesSent: 2},
		Issue: types.IssueRecord{Title: "Something odd", Description: strings.Repeat("x", 400)},
		Reputation: types.ReputationScore{Tier: types.TierRegular},
		Progress: types.ProgressAssessment{
			ProgressScore:         15,
			CompletionProbability: 20,
			RiskSignals:           []string{"very_low_velocity"},
		},
		Now: now,
	})

	assert.True(t, decision.ShouldRelease)
	assert.Equal(t, types.ActionRelease, decision.Action)
	assert.Equal(t, types.RiskLow, decision.RiskLevel)
	assert.Equal(t, string(ComplexityMedium), decision.Complexity)
	assert.Equal(t, 100.0, decision.Confidence)
	assert.Contains(t, decision.Reasoning, "Issue complexity: MEDIUM")
}

func TestPredictReleaseGoodProgressExtendsGrace(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	decision := e.PredictRelease(ReleaseInput{
		Claim: types.ClaimRecord{ClaimedAt: now.AddDate(0, 0, -10), NudgesSent: 0},
		Issue: types.IssueRecord{Title: "Something odd"},
		Reputation: types.ReputationScore{Tier: types.TierRegular},
		Progress: types.ProgressAssessment{
			ProgressScore:         70,
			CompletionProbability: 80,
		},
		Now: now,
	})

	assert.False(t, decision.ShouldRelease)
	assert.Equal(t, types.ActionExtendGrace, decision.Action)
	require.NotNil(t, decision.DaysToWait)
	assert.Equal(t, 7, *decision.DaysToWait)
	assert.Contains(t, decision.Alternatives, "MONITOR_CLOSELY")
}

func TestPredictReleaseEliteGetsBenefitOfDoubt(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	decision := e.PredictRelease(ReleaseInput{
		Claim: types.ClaimRecord{ClaimedAt: now.AddDate(0, 0, -8), NudgesSent: 0},
		Issue: types.IssueRecord{Title: "Something odd"},
		Reputation: types.ReputationScore{Tier: types.TierElite},
		Progress: types.ProgressAssessment{
			ProgressScore:         55,
			CompletionProbability: 75,
		},
		Now: now,
	})

	assert.Equal(t, types.ActionExtendGrace, decision.Action)
	require.NotNil(t, decision.DaysToWait)
	assert.Equal(t, 5, *decision.DaysToWait)
	assert.Contains(t, decision.Alternatives, "SEND_FRIENDLY_CHECK_IN")
}

func TestPredictReleaseHighRiskWaits(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	decision := e.PredictRelease(ReleaseInput{
		Claim: types.ClaimRecord{ClaimedAt: now.AddDate(0, 0, -10), NudgesSent: 1},
		Issue: types.IssueRecord{Title: "Something odd"},
		Reputation: types.ReputationScore{Tier: types.TierTrusted},
		Progress: types.ProgressAssessment{
			ProgressScore:         50,
			CompletionProbability: 65,
			ProgressTypes:         []string{"pull_request"},
		},
		Now: now,
	})

	assert.Equal(t, types.RiskHigh, decision.RiskLevel)
	assert.Equal(t, types.ActionWait, decision.Action)
	require.NotNil(t, decision.DaysToWait)
	assert.Equal(t, 5, *decision.DaysToWait)
	assert.Contains(t, decision.Alternatives, "MAINTAINER_REVIEW")
}

func TestPredictReleaseFallbackDoubleMinimum(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	decision := e.PredictRelease(ReleaseInput{
		Claim: types.ClaimRecord{ClaimedAt: now.AddDate(0, 0, -15), NudgesSent: 0},
		Issue: types.IssueRecord{Title: "Something odd"},
		Reputation: types.ReputationScore{Tier: types.TierTrusted},
		Progress: types.ProgressAssessment{
			ProgressScore:         45,
			CompletionProbability: 72,
		},
		Now: now,
	})

	assert.True(t, decision.ShouldRelease)
	assert.Equal(t, types.ActionRelease, decision.Action)
	assert.Contains(t, decision.Reasoning, "Exceeded 2x minimum days")
}

func TestCommunityImpact(t *testing.T) {
	e := New(DefaultPolicy())

	tests := []struct {
		name     string
		issue    types.IssueRecord
		expected float64
	}{
		{"plain issue", types.IssueRecord{}, 50},
		{"blocker label", types.IssueRecord{Labels: []types.IssueLabel{{Name: "blocker"}}}, 80},
		{"popular issue", types.IssueRecord{Watchers: 12, Comments: 20}, 85},
		{"mild interest", types.IssueRecord{Watchers: 6, Comments: 9}, 68},
		{
			"everything caps at 100",
			types.IssueRecord{Labels: []types.IssueLabel{{Name: "critical"}}, Watchers: 50, Comments: 50},
			100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.CommunityImpact(tt.issue))
		})
	}
}
