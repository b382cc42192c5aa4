package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cookieguard/cookieguard/internal/types"
)

// ProgressInput is the activity snapshot for one claim: the claimant's
// commits since the claim, PRs referencing the issue, and review
// engagement on those PRs. Complexity feeds the completion estimate and
// defaults to MEDIUM when the issue is not supplied.
type ProgressInput struct {
	ClaimedAt  time.Time
	Commits    []types.Commit
	PRs        []types.PullRequest
	Reviews    []types.Review
	Complexity Complexity
	Now        time.Time
}

type commitAnalysis struct {
	total      int
	meaningful int
	trivial    int
	quality    float64
	hasTests   bool
	hasDocs    bool
}

type prAnalysis struct {
	total     int
	open      int
	draft     int
	merged    int
	stalled   int
	quality   float64
	hasMerged bool
	hasOpen   bool
}

// AnalyzeProgress converts raw activity since a claim into a progress
// score, completion probability and stall signals. Absent activity is
// data, not an error: everything degrades to low scores, never panics.
func (e *Engine) AnalyzeProgress(in ProgressInput) types.ProgressAssessment {
	now := orNow(in.Now)

	commits := e.analyzeCommits(in.Commits)
	prs := e.analyzePRs(in.PRs, now)
	reviewRate := reviewResponseRate(in.Reviews)
	velocity := e.velocity(in, now)

	stalls := e.stallSignals(in.Commits, in.PRs, now)

	w := e.policy.ProgressWeights
	commitComponent := clampScore(float64(commits.meaningful) * 20)
	velocityComponent := clampScore(velocity * 50)
	score := clampScore(
		commitComponent*w.Commits +
			prs.quality*w.PRs +
			velocityComponent*w.Velocity +
			reviewRate*w.Reviews,
	)

	daysSinceClaim := daysBetween(in.ClaimedAt, now)
	completionProb := e.completionProbability(score, velocity, len(stalls), daysSinceClaim)

	estimated := e.estimateCompletionDays(velocity, prs, in.Complexity)

	risks := append(stalls, extraRiskSignals(commits, prs, velocity)...)

	return types.ProgressAssessment{
		ProgressScore:         round2(score),
		ProgressDetected:      score > 30,
		ProgressTypes:         progressTypes(commits, prs, in.Reviews),
		CompletionProbability: round2(completionProb),
		EstimatedDays:         &estimated,
		Velocity:              round2(velocity),
		RiskSignals:           risks,
		ShouldExtendGrace:     (score > 60 && completionProb > 70) || (prs.hasOpen && prs.stalled == 0),
		ShouldNudgeAnyway:     len(stalls) >= 2 || prs.stalled > 0 || velocity < 0.05,
		Confidence:            analysisConfidence(commits.total + prs.total),
		CommitQuality:         round2(commits.quality),
		PRQuality:             round2(prs.quality),
		HasTests:              commits.hasTests,
		HasDocs:               commits.hasDocs,
	}
}

// analyzeCommits classifies commit messages as meaningful versus trivial.
// A message matching both families counts as trivial.
func (e *Engine) analyzeCommits(commits []types.Commit) commitAnalysis {
	a := commitAnalysis{total: len(commits)}

	for _, c := range commits {
		meaningful := matchesAny(e.policy.MeaningfulCommitRE, c.Message)
		trivial := matchesAny(e.policy.TrivialCommitRE, c.Message)

		if meaningful && !trivial {
			a.meaningful++
		} else if trivial {
			a.trivial++
		}

		if e.policy.TestCommitRE.MatchString(c.Message) {
			a.hasTests = true
		}
		if e.policy.DocCommitRE.MatchString(c.Message) {
			a.hasDocs = true
		}
	}

	if a.total > 0 {
		a.quality = float64(a.meaningful) / float64(a.total) * 100
	}
	return a
}

// analyzePRs scores PRs by state: merged full credit, open partial,
// WIP-titled draft partial, open-but-untouched stalled penalty.
func (e *Engine) analyzePRs(prs []types.PullRequest, now time.Time) prAnalysis {
	a := prAnalysis{total: len(prs)}

	for _, pr := range prs {
		switch {
		case pr.MergedAt != nil:
			a.merged++
		case pr.State == types.PROpen:
			a.open++
			title := strings.ToLower(pr.Title)
			for _, marker := range e.policy.WIPIndicators {
				if strings.Contains(title, marker) {
					a.draft++
					break
				}
			}
			if daysBetween(pr.UpdatedAt, now) > float64(e.policy.StallPRDays) {
				a.stalled++
			}
		}
	}

	if a.total > 0 {
		a.quality = clampScore(float64(a.merged*100+a.open*70+a.draft*40-a.stalled*20) / float64(a.total))
	}
	a.hasMerged = a.merged > 0
	a.hasOpen = a.open > 0
	return a
}

// velocity blends commits-per-day and PRs-per-day since the claim; the
// day count is floored at one so fresh claims do not divide by zero.
func (e *Engine) velocity(in ProgressInput, now time.Time) float64 {
	days := daysBetween(in.ClaimedAt, now)
	if days < 1 {
		days = 1
	}
	return float64(len(in.Commits))/days*0.6 + float64(len(in.PRs))/days*0.4
}

// stallSignals emits one named signal per detected stall: a commit gap
// beyond the policy limit, or any open PR untouched too long.
func (e *Engine) stallSignals(commits []types.Commit, prs []types.PullRequest, now time.Time) []string {
	signals := []string{}

	if len(commits) > 0 {
		last := commits[0].Timestamp
		for _, c := range commits[1:] {
			if c.Timestamp.After(last) {
				last = c.Timestamp
			}
		}
		if days := int(daysBetween(last, now)); days > e.policy.StallCommitDays {
			signals = append(signals, fmt.Sprintf("no_commits_%d_days", days))
		}
	}

	for _, pr := range prs {
		if pr.State == types.PROpen && pr.MergedAt == nil &&
			daysBetween(pr.UpdatedAt, now) > float64(e.policy.StallPRDays) {
			signals = append(signals, fmt.Sprintf("stalled_pr_%d", pr.Number))
		}
	}

	return signals
}

func (e *Engine) completionProbability(score, velocity float64, stallCount int, daysSinceClaim float64) float64 {
	prob := score

	if velocity > 0.5 {
		prob += 10
	} else if velocity < 0.1 {
		prob -= 20
	}

	prob -= float64(stallCount) * 10

	if daysSinceClaim > 14 {
		prob -= (daysSinceClaim - 14) * 2
	}

	return clampScore(prob)
}

// estimateCompletionDays: merged PR means done, an active open PR means a
// short review-and-merge window, otherwise the complexity-day table
// scaled by observed velocity.
func (e *Engine) estimateCompletionDays(velocity float64, prs prAnalysis, complexity Complexity) int {
	if prs.hasMerged {
		return 0
	}
	if prs.hasOpen && prs.stalled == 0 {
		return 3
	}

	base, ok := e.policy.ComplexityDays[complexity]
	if !ok {
		base = e.policy.ComplexityDays[ComplexityMedium]
	}

	estimated := int(float64(base) / (velocity + 0.1))
	if estimated < 1 {
		estimated = 1
	}
	if estimated > 60 {
		estimated = 60
	}
	return estimated
}

// reviewResponseRate is a neutral placeholder signal: engagement exists or
// it does not. Real review analytics are the activity provider's problem.
func reviewResponseRate(reviews []types.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	return 50
}

func extraRiskSignals(commits commitAnalysis, prs prAnalysis, velocity float64) []string {
	signals := []string{}
	if commits.trivial > commits.meaningful {
		signals = append(signals, "mostly_trivial_commits")
	}
	if prs.draft > 0 && prs.draft >= prs.open {
		signals = append(signals, "only_draft_prs")
	}
	if velocity < 0.1 {
		signals = append(signals, "very_low_velocity")
	}
	if commits.total > 0 && !commits.hasTests {
		signals = append(signals, "no_test_coverage")
	}
	return signals
}

func progressTypes(commits commitAnalysis, prs prAnalysis, reviews []types.Review) []string {
	kinds := []string{}
	if commits.meaningful > 0 {
		kinds = append(kinds, "meaningful_commits")
	}
	if prs.open > 0 {
		kinds = append(kinds, "pull_request")
	}
	if prs.draft > 0 {
		kinds = append(kinds, "draft_pr")
	}
	if len(reviews) > 0 {
		kinds = append(kinds, "code_review")
	}
	return kinds
}

// analysisConfidence scales with available data points.
func analysisConfidence(dataPoints int) float64 {
	switch {
	case dataPoints >= 10:
		return 95
	case dataPoints >= 5:
		return 80
	case dataPoints >= 2:
		return 60
	case dataPoints >= 1:
		return 40
	default:
		return 20
	}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
