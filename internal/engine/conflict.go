package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/cookieguard/cookieguard/internal/types"
)

// ConflictInput pits the incumbent claimant against a challenger.
// RepoCompleted counts are prior COMPLETED claims by each party in this
// repository, supplied by the claim-history provider.
type ConflictInput struct {
	ExistingClaim      types.ClaimRecord
	ExistingReputation types.ReputationScore
	NewReputation      types.ReputationScore
	NewClaimantHandle  string
	NewClaimText       string
	Issue              types.IssueRecord
	Repository         types.RepositoryRecord
	ExistingCompleted  int
	NewCompleted       int
	Now                time.Time
}

const conflictScoreGap = 20

// ResolveConflict decides between two competing claimants. Resolution
// rules are ordered, first match wins; every outcome carries both
// priority scores and a reasoning string.
func (e *Engine) ResolveConflict(in ConflictInput) types.ConflictOutcome {
	existingScore := e.priorityScore(
		in.ExistingClaim.ClaimantHandle, in.ExistingReputation, in.Issue, in.Repository,
		in.ExistingCompleted, true,
	)
	newScore := e.priorityScore(
		in.NewClaimantHandle, in.NewReputation, in.Issue, in.Repository,
		in.NewCompleted, false,
	)

	scores := types.ConflictScores{
		Existing: round2(existingScore),
		New:      round2(newScore),
	}

	if e.collaborationIntent(in.NewClaimText) {
		return types.ConflictOutcome{
			Winner:     types.WinnerNone,
			Strategy:   types.StrategyTeamClaim,
			Scores:     scores,
			AllowBoth:  true,
			WorkSplit:  genericWorkSplit(),
			Confidence: 85,
			Reasoning:  "New claimant expressed intent to collaborate; recommend allowing a team claim.",
		}
	}

	if gap := existingScore - newScore; gap > conflictScoreGap || gap < -conflictScoreGap {
		winner := types.WinnerExisting
		if newScore > existingScore {
			winner = types.WinnerNew
		}
		hi, lo := existingScore, newScore
		if newScore > existingScore {
			hi, lo = newScore, existingScore
		}
		return types.ConflictOutcome{
			Winner:     winner,
			Strategy:   types.StrategyPriorityScore,
			Scores:     scores,
			Confidence: 90,
			Reasoning:  fmt.Sprintf("Clear winner by priority scoring: %.1f vs %.1f.", hi, lo),
		}
	}

	if in.ExistingReputation.Tier == types.TierElite && in.NewReputation.Tier == types.TierElite {
		return types.ConflictOutcome{
			Winner:     types.WinnerNone,
			Strategy:   types.StrategyMaintainerChoice,
			Scores:     scores,
			Confidence: 75,
			Reasoning:  "Both claimants are elite contributors; the maintainer should make the final call.",
		}
	}

	complexity := e.ClassifyComplexity(in.Issue)
	if (complexity == ComplexityHard || complexity == ComplexityVeryHard) &&
		existingScore > 60 && newScore > 60 {
		return types.ConflictOutcome{
			Winner:     types.WinnerNone,
			Strategy:   types.StrategySplitWork,
			Scores:     scores,
			AllowBoth:  true,
			WorkSplit:  genericWorkSplit(),
			Confidence: 70,
			Reasoning:  fmt.Sprintf("Complex issue (%s) with two qualified contributors; recommend splitting the work.", complexity),
		}
	}

	return types.ConflictOutcome{
		Winner:     types.WinnerExisting,
		Strategy:   types.StrategyFirstCome,
		Scores:     scores,
		Confidence: 65,
		Reasoning:  "Similar qualifications (scores within 20 points); first claimant keeps priority.",
	}
}

// priorityScore is the weighted sum of seven components. Skill match is a
// pluggable placeholder (see Policy.SkillMatchFn).
func (e *Engine) priorityScore(
	handle string,
	rep types.ReputationScore,
	issue types.IssueRecord,
	repo types.RepositoryRecord,
	completedHere int,
	isExisting bool,
) float64 {
	w := e.policy.ConflictWeights
	score := rep.OverallScore * w.Reputation

	score += e.policy.SkillMatchFn(handle, issue) * w.SkillMatch

	if isExisting {
		score += 100 * w.ResponseTime
		score += 100 * w.TimePriority
	} else {
		score += 70 * w.ResponseTime
		score += 50 * w.TimePriority
	}

	contribution := float64(completedHere) * 10
	if contribution > 100 {
		contribution = 100
	}
	score += contribution * w.Contribution

	if isMaintainer(handle, repo) {
		score += 100 * w.Maintainer
	} else {
		score += 50 * w.Maintainer
	}

	if rep.TotalClaims < 3 {
		score += 80 * w.Diversity
	} else {
		score += 50 * w.Diversity
	}

	return clampScore(score)
}

// collaborationIntent: any @mention, or a collaboration keyword, means
// the challenger wants to join rather than take over.
func (e *Engine) collaborationIntent(text string) bool {
	if strings.Contains(text, "@") {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range e.policy.CollaborationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isMaintainer(handle string, repo types.RepositoryRecord) bool {
	for _, m := range repo.Maintainers {
		if strings.EqualFold(m, handle) {
			return true
		}
	}
	return false
}

func genericWorkSplit() []types.WorkSplitTask {
	return []types.WorkSplitTask{
		{Task: "Implementation", Description: "Core functionality implementation", Effort: "HIGH"},
		{Task: "Testing", Description: "Write comprehensive tests", Effort: "MEDIUM"},
		{Task: "Documentation", Description: "Update documentation and examples", Effort: "LOW"},
	}
}
