package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/cookieguard/cookieguard/internal/types"
)

// ReleaseInput is everything the predictor weighs for one claim.
type ReleaseInput struct {
	Claim      types.ClaimRecord
	Issue      types.IssueRecord
	Reputation types.ReputationScore
	Progress   types.ProgressAssessment
	Now        time.Time
}

// Title-keyword families for complexity classification, checked in order
// after explicit labels.
var complexityKeywords = []struct {
	complexity Complexity
	keywords   []string
}{
	{ComplexityTrivial, []string{"typo", "docs", "readme", "comment", "formatting"}},
	{ComplexityEasy, []string{"ui", "css", "style", "text", "label"}},
	{ComplexityMedium, []string{"feature", "add", "implement", "update"}},
	{ComplexityHard, []string{"refactor", "architecture", "api", "database", "security"}},
	{ComplexityVeryHard, []string{"breaking change", "migration", "redesign", "critical"}},
}

// ClassifyComplexity grades an issue by priority order: explicit labels
// first, then title keywords, then description length, default MEDIUM.
func (e *Engine) ClassifyComplexity(issue types.IssueRecord) Complexity {
	for _, label := range issue.Labels {
		name := strings.ToLower(label.Name)
		switch {
		case strings.Contains(name, "good first issue") || strings.Contains(name, "beginner"):
			return ComplexityTrivial
		case strings.Contains(name, "easy"):
			return ComplexityEasy
		case strings.Contains(name, "hard") || strings.Contains(name, "difficult"):
			return ComplexityHard
		case strings.Contains(name, "critical") || strings.Contains(name, "blocker"):
			return ComplexityVeryHard
		}
	}

	title := strings.ToLower(issue.Title)
	for _, family := range complexityKeywords {
		for _, kw := range family.keywords {
			if strings.Contains(title, kw) {
				return family.complexity
			}
		}
	}

	if issue.Description != "" {
		switch n := len(issue.Description); {
		case n < 100:
			return ComplexityTrivial
		case n < 300:
			return ComplexityEasy
		case n < 800:
			return ComplexityMedium
		case n < 1500:
			return ComplexityHard
		default:
			return ComplexityVeryHard
		}
	}

	return ComplexityMedium
}

// PredictRelease decides RELEASE / WAIT / EXTEND_GRACE for one claim.
// The decision table is ordered, first match wins, and a claim is never
// released before its complexity's minimum-wait window has elapsed.
func (e *Engine) PredictRelease(in ReleaseInput) types.ReleaseDecision {
	now := orNow(in.Now)

	complexity := e.ClassifyComplexity(in.Issue)
	thresholds := e.complexityThreshold(complexity)

	daysSinceClaim := int(daysBetween(in.Claim.ClaimedAt, now))
	nudges := in.Claim.NudgesSent

	probability := e.releaseProbability(complexity, in.Reputation, in.Progress, daysSinceClaim, nudges)
	risk := e.releaseRisk(in.Reputation, in.Progress, complexity)

	decision := e.decideRelease(probability, risk, in.Reputation, in.Progress, thresholds, daysSinceClaim, nudges)
	decision.Confidence = round2(probability)
	decision.RiskLevel = risk
	decision.Complexity = string(complexity)
	decision.CommunityImpact = e.CommunityImpact(in.Issue)

	// Context for the maintainer reading the recommendation.
	parts := []string{decision.Reasoning,
		fmt.Sprintf("Issue complexity: %s", complexity),
		fmt.Sprintf("Reputation tier: %s", in.Reputation.Tier),
	}
	if len(in.Progress.RiskSignals) > 0 {
		shown := in.Progress.RiskSignals
		if len(shown) > 3 {
			shown = shown[:3]
		}
		parts = append(parts, fmt.Sprintf("Risk signals: %s", strings.Join(shown, ", ")))
	}
	decision.Reasoning = strings.Join(parts, ". ")

	return decision
}

func (e *Engine) complexityThreshold(c Complexity) ComplexityThreshold {
	if t, ok := e.policy.ComplexityThresholds[c]; ok {
		return t
	}
	return e.policy.ComplexityThresholds[ComplexityMedium]
}

// releaseProbability accumulates signed adjustments onto a 50-point base;
// higher means releasing is more clearly correct.
func (e *Engine) releaseProbability(
	complexity Complexity,
	rep types.ReputationScore,
	progress types.ProgressAssessment,
	daysSinceClaim, nudges int,
) float64 {
	score := 50.0
	thresholds := e.complexityThreshold(complexity)

	switch {
	case float64(daysSinceClaim) >= float64(thresholds.MinDays)*1.5:
		score += 30
	case daysSinceClaim >= thresholds.MinDays:
		score += 15
	default:
		score -= 20
	}

	if nudges >= thresholds.MaxNudges {
		score += 25
	} else if nudges >= thresholds.MaxNudges-1 {
		score += 10
	}

	switch {
	case progress.ProgressScore < 20:
		score += 20
	case progress.ProgressScore < 40:
		score += 10
	case progress.ProgressScore > 70:
		score -= 30
	}

	if progress.CompletionProbability < 30 {
		score += 15
	} else if progress.CompletionProbability > 70 {
		score -= 25
	}

	switch rep.Tier {
	case types.TierElite, types.TierTrusted:
		score -= 15
	case types.TierProbation:
		score += 15
	}

	score += float64(len(progress.RiskSignals)) * 5

	return clampScore(score)
}

// releaseRisk grades the cost of a premature release on a separate axis.
func (e *Engine) releaseRisk(rep types.ReputationScore, progress types.ProgressAssessment, complexity Complexity) types.RiskLevel {
	risk := 0

	for _, kind := range progress.ProgressTypes {
		if kind == "pull_request" {
			risk += 30
			break
		}
	}
	if rep.Tier == types.TierElite || rep.Tier == types.TierTrusted {
		risk += 20
	}
	if complexity == ComplexityHard || complexity == ComplexityVeryHard {
		risk += 15
	}
	if progress.ProgressScore > 40 {
		risk += 15
	}
	if progress.CompletionProbability > 60 {
		risk += 20
	}

	switch {
	case risk >= 60:
		return types.RiskHigh
	case risk >= 30:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

func (e *Engine) decideRelease(
	probability float64,
	risk types.RiskLevel,
	rep types.ReputationScore,
	progress types.ProgressAssessment,
	thresholds ComplexityThreshold,
	daysSinceClaim, nudges int,
) types.ReleaseDecision {
	// Minimum-wait guard: probability alone never releases a claim that
	// has not aged past the complexity's floor.
	releaseAllowed := daysSinceClaim >= thresholds.MinDays

	wait := func(days int, reason string, alternatives ...string) types.ReleaseDecision {
		if days < 1 {
			days = 1
		}
		return types.ReleaseDecision{
			Action:       types.ActionWait,
			DaysToWait:   &days,
			Alternatives: alternatives,
			Reasoning:    reason,
		}
	}

	switch {
	case probability > 75 && risk == types.RiskLow:
		if releaseAllowed {
			return types.ReleaseDecision{
				ShouldRelease: true,
				Action:        types.ActionRelease,
				Alternatives:  []string{},
				Reasoning:     fmt.Sprintf("High release probability (%.1f%%) with low risk", probability),
			}
		}
		return wait(thresholds.MinDays-daysSinceClaim,
			fmt.Sprintf("High release probability (%.1f%%) but minimum wait of %d days not reached", probability, thresholds.MinDays))

	case probability > 60 && risk != types.RiskHigh:
		if nudges >= thresholds.MaxNudges && releaseAllowed {
			return types.ReleaseDecision{
				ShouldRelease: true,
				Action:        types.ActionRelease,
				Alternatives:  []string{},
				Reasoning:     fmt.Sprintf("Max nudges (%d) reached", nudges),
			}
		}
		return wait(3, "One more nudge recommended before release", "SEND_URGENT_NUDGE")

	case progress.ProgressScore > 60:
		days := 7
		return types.ReleaseDecision{
			Action:       types.ActionExtendGrace,
			DaysToWait:   &days,
			Alternatives: []string{"MONITOR_CLOSELY"},
			Reasoning:    fmt.Sprintf("Good progress detected (%.1f%%)", progress.ProgressScore),
		}

	case rep.Tier == types.TierElite && progress.ProgressScore > 30:
		days := 5
		return types.ReleaseDecision{
			Action:       types.ActionExtendGrace,
			DaysToWait:   &days,
			Alternatives: []string{"SEND_FRIENDLY_CHECK_IN"},
			Reasoning:    "Elite contributor showing progress",
		}

	case risk == types.RiskHigh:
		return wait(5, "High risk of premature release", "REQUEST_STATUS_UPDATE", "MAINTAINER_REVIEW")

	default:
		if daysSinceClaim >= thresholds.MinDays*2 {
			return types.ReleaseDecision{
				ShouldRelease: true,
				Action:        types.ActionRelease,
				Alternatives:  []string{},
				Reasoning:     fmt.Sprintf("Exceeded 2x minimum days (%d vs %d)", daysSinceClaim, thresholds.MinDays),
			}
		}
		return wait(thresholds.MinDays-daysSinceClaim, "Waiting for minimum threshold")
	}
}

// CommunityImpact is an advisory urgency score: how much the community
// loses while the issue stays claimed. It never gates the decision.
func (e *Engine) CommunityImpact(issue types.IssueRecord) float64 {
	impact := 50.0

	for _, label := range issue.Labels {
		name := strings.ToLower(label.Name)
		if name == "blocker" || name == "critical" || name == "high priority" {
			impact += 30
			break
		}
	}

	if issue.Watchers > 10 {
		impact += 20
	} else if issue.Watchers > 5 {
		impact += 10
	}

	if issue.Comments > 15 {
		impact += 15
	} else if issue.Comments > 8 {
		impact += 8
	}

	return clampScore(impact)
}
