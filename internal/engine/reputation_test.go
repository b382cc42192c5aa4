package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieguard/cookieguard/internal/types"
)

func testNow() time.Time {
	return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) // a Monday
}

func ptrTime(t time.Time) *time.Time { return &t }

func completedClaim(claimedAt time.Time, daysToComplete float64) types.ClaimRecord {
	done := claimedAt.Add(time.Duration(daysToComplete*24) * time.Hour)
	return types.ClaimRecord{
		ClaimantID:  "u1",
		ClaimedAt:   claimedAt,
		Status:      types.ClaimCompleted,
		CompletedAt: ptrTime(done),
	}
}

func TestReputationNewClaimantNeutral(t *testing.T) {
	e := New(DefaultPolicy())

	rep := e.Reputation(ReputationInput{ClaimantID: "fresh", Now: testNow()})

	assert.Equal(t, 50.0, rep.OverallScore)
	assert.Equal(t, types.TierRegular, rep.Tier)
	assert.Equal(t, 5, rep.RecommendedGraceDays)
	assert.Equal(t, types.RiskMedium, rep.RiskLevel)
	assert.True(t, rep.NewClaimant)
	assert.Equal(t, 0, rep.TotalClaims)
}

func TestReputationTierCutoffs(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		tier  types.ReliabilityTier
	}{
		{"elite at threshold", 90, types.TierElite},
		{"trusted mid band", 80, types.TierTrusted},
		{"regular at threshold", 50, types.TierRegular},
		{"probation mid band", 30, types.TierProbation},
		{"blocked at floor", 10, types.TierBlocked},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tier, lookupCutoff(p.TierCutoffs, tt.score))
		})
	}
}

func TestReputationTierMonotonic(t *testing.T) {
	p := DefaultPolicy()
	rank := map[types.ReliabilityTier]int{
		types.TierBlocked:   0,
		types.TierProbation: 1,
		types.TierRegular:   2,
		types.TierTrusted:   3,
		types.TierElite:     4,
	}

	prev := -1
	for score := 0.0; score <= 100; score += 0.5 {
		r := rank[lookupCutoff(p.TierCutoffs, score)]
		require.GreaterOrEqual(t, r, prev, "tier rank dropped at score %.1f", score)
		prev = r
	}
}

func TestReputationTrustedContributorScenario(t *testing.T) {
	// 10 claims, 8 completed in ~4 days, responses within 2 hours.
	now := testNow()
	e := New(DefaultPolicy())

	history := make([]types.ClaimRecord, 0, 10)
	for i := 0; i < 8; i++ {
		claimedAt := now.AddDate(0, 0, -(3 + i*7))
		c := completedClaim(claimedAt, 4)
		c.FirstNudgeAt = ptrTime(claimedAt.Add(48 * time.Hour))
		c.LastActivityAt = ptrTime(claimedAt.Add(50 * time.Hour)) // 2h response
		history = append(history, c)
	}
	for i := 0; i < 2; i++ {
		history = append(history, types.ClaimRecord{
			ClaimantID: "u1",
			ClaimedAt:  now.AddDate(0, 0, -(90 + i*30)),
			Status:     types.ClaimReleased,
		})
	}

	rep := e.Reputation(ReputationInput{ClaimantID: "u1", History: history, Now: now})

	assert.Equal(t, types.TierTrusted, rep.Tier)
	assert.GreaterOrEqual(t, rep.RecommendedGraceDays, 14)
	assert.LessOrEqual(t, rep.RecommendedGraceDays, 17)
	assert.Equal(t, 8, rep.CompletedClaims)
	assert.Equal(t, 2, rep.AbandonedClaims)
	assert.Equal(t, types.RiskLow, rep.RiskLevel)
	assert.InDelta(t, 4, rep.AvgCompletionDays, 0.01)
}

func TestReputationGracePeriod(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	t.Run("fast workers earn extra grace", func(t *testing.T) {
		// All completed under 3 days -> velocity 100 -> 1.2x multiplier.
		history := []types.ClaimRecord{}
		for i := 0; i < 6; i++ {
			history = append(history, completedClaim(now.AddDate(0, 0, -(2+i*5)), 1))
		}
		rep := e.Reputation(ReputationInput{ClaimantID: "u1", History: history, Now: now})
		base := DefaultPolicy().GraceDaysByTier[rep.Tier]
		assert.Equal(t, int(float64(base)*1.2), rep.RecommendedGraceDays)
	})

	t.Run("recent abandonment shrinks grace", func(t *testing.T) {
		history := []types.ClaimRecord{}
		for i := 0; i < 3; i++ {
			history = append(history, types.ClaimRecord{
				ClaimedAt: now.AddDate(0, 0, -(1 + i)),
				Status:    types.ClaimExpired,
			})
		}
		for i := 0; i < 4; i++ {
			history = append(history, completedClaim(now.AddDate(0, 0, -(30+i*10)), 5))
		}
		rep := e.Reputation(ReputationInput{ClaimantID: "u1", History: history, Now: now})
		assert.LessOrEqual(t, rep.RecommendedGraceDays, 7)
		assert.GreaterOrEqual(t, rep.RecommendedGraceDays, 3)
	})

	t.Run("grace is always within bounds", func(t *testing.T) {
		history := []types.ClaimRecord{}
		for i := 0; i < 50; i++ {
			history = append(history, types.ClaimRecord{
				ClaimedAt: now.AddDate(0, 0, -(400 + i*30)),
				Status:    types.ClaimExpired,
			})
		}
		rep := e.Reputation(ReputationInput{ClaimantID: "u1", History: history, Now: now})
		assert.GreaterOrEqual(t, rep.RecommendedGraceDays, 1)
		assert.LessOrEqual(t, rep.RecommendedGraceDays, 30)
		// Neutral sub-scores keep even a total abandoner off the floor.
		assert.Equal(t, types.TierProbation, rep.Tier)
		assert.Equal(t, types.RiskHigh, rep.RiskLevel)
	})
}

func TestReputationScoresClamped(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	history := []types.ClaimRecord{}
	for i := 0; i < 50; i++ {
		history = append(history, completedClaim(now.Add(-time.Duration(i)*time.Hour), 0.5))
	}

	rep := e.Reputation(ReputationInput{ClaimantID: "u1", History: history, Now: now})
	assert.LessOrEqual(t, rep.OverallScore, 100.0)
	assert.GreaterOrEqual(t, rep.OverallScore, 0.0)
	assert.LessOrEqual(t, rep.CompletionRate, 100.0)
}

func TestReputationResponsivenessBuckets(t *testing.T) {
	now := testNow()
	e := New(DefaultPolicy())

	mkHistory := func(responseHours float64) []types.ClaimRecord {
		claimedAt := now.AddDate(0, 0, -10)
		nudge := claimedAt.Add(24 * time.Hour)
		c := completedClaim(claimedAt, 5)
		c.FirstNudgeAt = ptrTime(nudge)
		c.LastActivityAt = ptrTime(nudge.Add(time.Duration(responseHours * float64(time.Hour))))
		return []types.ClaimRecord{c}
	}

	tests := []struct {
		name     string
		hours    float64
		expected float64
	}{
		{"under four hours", 2, 100},
		{"same day", 12, 80},
		{"under three days", 48, 60},
		{"week-long silence", 168, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := e.Reputation(ReputationInput{ClaimantID: "u1", History: mkHistory(tt.hours), Now: now})
			assert.Equal(t, tt.expected, rep.ResponsivenessScore)
		})
	}
}

func TestReputationTrend(t *testing.T) {
	now := testNow()

	improving := []types.ClaimRecord{
		completedClaim(now.AddDate(0, 0, -1), 2),
		completedClaim(now.AddDate(0, 0, -5), 2),
		{ClaimedAt: now.AddDate(0, 0, -40), Status: types.ClaimExpired},
		{ClaimedAt: now.AddDate(0, 0, -60), Status: types.ClaimReleased},
	}
	assert.Equal(t, types.TrendImproving, completionTrend(improving))

	declining := []types.ClaimRecord{
		{ClaimedAt: now.AddDate(0, 0, -1), Status: types.ClaimExpired},
		{ClaimedAt: now.AddDate(0, 0, -5), Status: types.ClaimReleased},
		completedClaim(now.AddDate(0, 0, -40), 2),
		completedClaim(now.AddDate(0, 0, -60), 2),
	}
	assert.Equal(t, types.TrendDeclining, completionTrend(declining))

	assert.Equal(t, types.TrendStable, completionTrend(nil))
}

func TestClaimGateHelpers(t *testing.T) {
	e := New(DefaultPolicy())

	assert.True(t, e.ShouldAutoApprove(types.ReputationScore{Tier: types.TierElite, RiskLevel: types.RiskLow}))
	assert.False(t, e.ShouldAutoApprove(types.ReputationScore{Tier: types.TierElite, RiskLevel: types.RiskMedium}))

	assert.True(t, e.ShouldRequireReview(types.ReputationScore{RiskLevel: types.RiskHigh}))
	assert.True(t, e.ShouldRequireReview(types.ReputationScore{Tier: types.TierProbation, RiskLevel: types.RiskMedium}))
	assert.False(t, e.ShouldRequireReview(types.ReputationScore{Tier: types.TierRegular, RiskLevel: types.RiskMedium}))

	assert.True(t, e.ShouldBlockClaim(types.ReputationScore{Tier: types.TierBlocked}))
	assert.True(t, e.ShouldBlockClaim(types.ReputationScore{Tier: types.TierProbation, AbandonedClaims: 6, CompletionRate: 5}))
	assert.False(t, e.ShouldBlockClaim(types.ReputationScore{Tier: types.TierRegular, AbandonedClaims: 2, CompletionRate: 60}))
}

func TestDecayWeight(t *testing.T) {
	assert.Equal(t, 1.0, decayWeight(0, 365))
	assert.InDelta(t, 0.3679, decayWeight(365, 365), 0.0001)
	assert.Equal(t, 0.0, decayWeight(10, 0))
	assert.Greater(t, decayWeight(30, 365), decayWeight(300, 365))
}
