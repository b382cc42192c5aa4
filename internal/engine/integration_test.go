package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieguard/cookieguard/internal/types"
)

// Full pipeline over one abandoned claim: neutral reputation, zero
// activity, two nudges already sent, twelve days elapsed. Every
// component should line up behind releasing the issue.
func TestLifecycleStaleClaimReleases(t *testing.T) {
	e := New(DefaultPolicy())
	now := testNow()

	issue := types.IssueRecord{
		ID:       "issue-1",
		Number:   7,
		Title:    "Broken login flow on mobile",
		Watchers: 4,
		Comments: 3,
	}
	claim := types.ClaimRecord{
		ID:             "claim-1",
		IssueID:        issue.ID,
		ClaimantID:     "dana-id",
		ClaimantHandle: "dana",
		ClaimedAt:      now.AddDate(0, 0, -12),
		Status:         types.ClaimActive,
		NudgesSent:     2,
	}

	rep := e.Reputation(ReputationInput{
		ClaimantID: claim.ClaimantID, ClaimantHandle: claim.ClaimantHandle, Now: now,
	})
	assert.True(t, rep.NewClaimant)
	assert.Equal(t, types.TierRegular, rep.Tier)

	progress := e.AnalyzeProgress(ProgressInput{
		ClaimedAt:  claim.ClaimedAt,
		Complexity: e.ClassifyComplexity(issue),
		Now:        now,
	})
	assert.False(t, progress.ProgressDetected)
	assert.Equal(t, 0.0, progress.ProgressScore)
	assert.Contains(t, progress.RiskSignals, "very_low_velocity")
	assert.True(t, progress.ShouldNudgeAnyway)

	decision := e.PredictRelease(ReleaseInput{
		Claim: claim, Issue: issue, Reputation: rep, Progress: progress, Now: now,
	})
	assert.True(t, decision.ShouldRelease)
	assert.Equal(t, types.ActionRelease, decision.Action)
	assert.Equal(t, types.RiskLow, decision.RiskLevel)
	assert.Equal(t, "MEDIUM", decision.Complexity)
	assert.Contains(t, decision.Reasoning, "High release probability")

	// Were the maintainer to nudge once more instead, the third reminder
	// escalates in tone and lands three days out on a weekday afternoon.
	require.False(t, e.SkipNudge(progress, rep))
	plan := e.ScheduleNudge(NudgeInput{
		NudgeOrdinal: 3,
		GraceDays:    rep.RecommendedGraceDays,
		Now:          now,
	})
	assert.Equal(t, types.ToneConcerned, plan.Tone)
	assert.Equal(t, 3, plan.EscalationLevel)
	assert.Equal(t, time.Date(2025, 6, 5, 15, 0, 0, 0, time.UTC), plan.SendAtUTC)
}

// Full pipeline over a healthy claim: real commits with tests, an open
// PR under review. Nothing should push toward release and the pending
// nudge gets skipped.
func TestLifecycleActiveClaimKeepsIssue(t *testing.T) {
	e := New(DefaultPolicy())
	now := testNow()

	issue := types.IssueRecord{
		ID:     "issue-2",
		Number: 8,
		Title:  "Broken login flow on mobile",
	}
	claim := types.ClaimRecord{
		ID:             "claim-2",
		IssueID:        issue.ID,
		ClaimantID:     "omar-id",
		ClaimantHandle: "omar",
		ClaimedAt:      now.AddDate(0, 0, -4),
		Status:         types.ClaimActive,
	}

	history := []types.ClaimRecord{
		completedClaim(now.AddDate(0, 0, -30), 4),
		completedClaim(now.AddDate(0, 0, -60), 5),
		completedClaim(now.AddDate(0, 0, -90), 3),
	}
	rep := e.Reputation(ReputationInput{
		ClaimantID: claim.ClaimantID, ClaimantHandle: claim.ClaimantHandle,
		History: history, Now: now,
	})
	assert.False(t, rep.NewClaimant)
	assert.Greater(t, rep.OverallScore, 50.0)

	progress := e.AnalyzeProgress(ProgressInput{
		ClaimedAt: claim.ClaimedAt,
		Commits: []types.Commit{
			{Message: "Add retry logic to provider client", Timestamp: now.AddDate(0, 0, -3)},
			{Message: "Add test coverage for retry backoff", Timestamp: now.AddDate(0, 0, -2)},
			{Message: "Fix flaky timeout handling", Timestamp: now.AddDate(0, 0, -1)},
		},
		PRs: []types.PullRequest{
			{
				Number: 91, State: types.PROpen, Title: "Add retry support",
				CreatedAt: now.AddDate(0, 0, -2), UpdatedAt: now.AddDate(0, 0, -1),
			},
		},
		Reviews:    []types.Review{{PRNumber: 91, Comments: 2}},
		Complexity: e.ClassifyComplexity(issue),
		Now:        now,
	})
	assert.True(t, progress.ProgressDetected)
	assert.True(t, progress.HasTests)
	assert.True(t, progress.ShouldExtendGrace, "an active open PR extends grace")
	assert.Empty(t, progress.RiskSignals)
	assert.Contains(t, progress.ProgressTypes, "pull_request")

	decision := e.PredictRelease(ReleaseInput{
		Claim: claim, Issue: issue, Reputation: rep, Progress: progress, Now: now,
	})
	assert.False(t, decision.ShouldRelease)
	assert.NotEqual(t, types.ActionRelease, decision.Action)

	assert.True(t, e.SkipNudge(progress, rep))
}

// Conflict path on top of the lifecycle: a second claimant arriving a
// day later with comparable reputation loses to first-come, while an
// explicit collaboration offer lets both stay.
func TestLifecycleConflictPaths(t *testing.T) {
	e := New(DefaultPolicy())
	now := testNow()

	issue := types.IssueRecord{ID: "issue-3", Number: 9, Title: "Broken login flow on mobile"}
	repo := types.RepositoryRecord{ID: "repo-1", Owner: "octo", Name: "widgets"}

	existing := types.ClaimRecord{
		ID: "claim-3", IssueID: issue.ID,
		ClaimantID: "alice-id", ClaimantHandle: "alice",
		ClaimedAt: now.AddDate(0, 0, -1), Status: types.ClaimActive,
	}
	neutral := e.Reputation(ReputationInput{ClaimantID: "x", Now: now})

	outcome := e.ResolveConflict(ConflictInput{
		ExistingClaim:      existing,
		ExistingReputation: neutral,
		NewReputation:      neutral,
		NewClaimantHandle:  "bob",
		NewClaimText:       "I want to work on this",
		Issue:              issue,
		Repository:         repo,
		Now:                now,
	})
	assert.Equal(t, types.StrategyFirstCome, outcome.Strategy)
	assert.Equal(t, types.WinnerExisting, outcome.Winner)
	assert.False(t, outcome.AllowBoth)

	team := e.ResolveConflict(ConflictInput{
		ExistingClaim:      existing,
		ExistingReputation: neutral,
		NewReputation:      neutral,
		NewClaimantHandle:  "bob",
		NewClaimText:       "Happy to collaborate with @alice on this",
		Issue:              issue,
		Repository:         repo,
		Now:                now,
	})
	assert.Equal(t, types.StrategyTeamClaim, team.Strategy)
	assert.True(t, team.AllowBoth)
	assert.NotEmpty(t, team.WorkSplit)
}
