package engine

import (
	"math"
	"time"

	"github.com/cookieguard/cookieguard/internal/types"
)

// ReputationInput is the claim-history snapshot for one claimant.
// History is newest first; callers supply at most the last 50 records.
type ReputationInput struct {
	ClaimantID     string
	ClaimantHandle string
	History        []types.ClaimRecord
	Now            time.Time
}

const (
	neutralQualityScore = 70.0
	newClaimantScore    = 50.0
	newClaimantGrace    = 5
)

// Reputation converts a claimant's history into a decayed, weighted
// reliability score, tier, grace period and risk level. An empty history
// short-circuits to the neutral new-claimant result; ratios are never
// computed over an empty set.
func (e *Engine) Reputation(in ReputationInput) types.ReputationScore {
	now := orNow(in.Now)

	if len(in.History) == 0 {
		return types.ReputationScore{
			OverallScore:         newClaimantScore,
			ResponsivenessScore:  newClaimantScore,
			QualityScore:         newClaimantScore,
			VelocityScore:        newClaimantScore,
			Tier:                 types.TierRegular,
			RecommendedGraceDays: newClaimantGrace,
			RiskLevel:            types.RiskMedium,
			Trend:                types.TrendStable,
			NewClaimant:          true,
		}
	}

	w := e.policy.ReputationWeights
	completion := e.completionScore(in.History, now)
	responsiveness := e.responsivenessScore(in.History)
	quality := e.qualityScore(in.ClaimantHandle)
	velocity := e.velocityScore(in.History)
	recency := e.recencyScore(in.History, now)

	overall := clampScore(
		completion*w.Completion +
			responsiveness*w.Responsiveness +
			quality*w.Quality +
			velocity*w.Velocity +
			recency*w.Recency,
	)

	tier := lookupCutoff(e.policy.TierCutoffs, overall)
	risk := lookupCutoff(e.policy.RiskCutoffs, overall)

	completed, abandoned := 0, 0
	for _, c := range in.History {
		switch c.Status {
		case types.ClaimCompleted:
			completed++
		case types.ClaimReleased, types.ClaimExpired:
			abandoned++
		}
	}

	return types.ReputationScore{
		OverallScore:         round2(overall),
		CompletionRate:       round2(completion),
		AvgCompletionDays:    round2(avgCompletionDays(in.History)),
		ResponsivenessScore:  round2(responsiveness),
		QualityScore:         round2(quality),
		VelocityScore:        round2(velocity),
		RecencyScore:         round2(recency),
		Tier:                 tier,
		RecommendedGraceDays: e.gracePeriod(tier, velocity, in.History),
		RiskLevel:            risk,
		Trend:                completionTrend(in.History),
		TotalClaims:          len(in.History),
		CompletedClaims:      completed,
		AbandonedClaims:      abandoned,
	}
}

// completionScore is a time-decayed weighted average of per-claim outcome
// scores: COMPLETED=100, ACTIVE gets partial credit, abandoned=0.
func (e *Engine) completionScore(history []types.ClaimRecord, now time.Time) float64 {
	var weightedSum, totalWeight float64

	for _, c := range history {
		weight := decayWeight(daysBetween(c.ClaimedAt, now), e.policy.DecayTauDays)

		var score float64
		switch c.Status {
		case types.ClaimCompleted:
			score = 100
		case types.ClaimActive:
			score = 50
		default:
			score = 0
		}

		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight <= 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// responsivenessScore buckets the mean hours between a nudge and the next
// recorded activity. Neutral 50 when no claim carries both timestamps.
func (e *Engine) responsivenessScore(history []types.ClaimRecord) float64 {
	var totalHours float64
	var samples int

	for _, c := range history {
		if c.FirstNudgeAt == nil || c.LastActivityAt == nil {
			continue
		}
		if !c.LastActivityAt.After(*c.FirstNudgeAt) {
			continue
		}
		totalHours += c.LastActivityAt.Sub(*c.FirstNudgeAt).Hours()
		samples++
	}

	if samples == 0 {
		return 50
	}

	avgHours := totalHours / float64(samples)
	switch {
	case avgHours < 4:
		return 100
	case avgHours < 24:
		return 80
	case avgHours < 72:
		return 60
	default:
		return math.Max(30, 100-(avgHours/24)*10)
	}
}

// qualityScore consults the pluggable PR-review signal; the signal is a
// placeholder in the upstream data, so absence degrades to a neutral 70.
func (e *Engine) qualityScore(handle string) float64 {
	if e.policy.QualityFn != nil {
		if q, ok := e.policy.QualityFn(handle); ok {
			return clampScore(q)
		}
	}
	return neutralQualityScore
}

// velocityScore buckets the mean days-to-complete across COMPLETED claims.
func (e *Engine) velocityScore(history []types.ClaimRecord) float64 {
	avg, ok := meanCompletionDays(history)
	if !ok {
		return 50
	}

	switch {
	case avg < 3:
		return 100
	case avg < 7:
		return 80
	case avg < 14:
		return 60
	default:
		return math.Max(20, 100-(avg-14)*3)
	}
}

// recencyScore buckets the days since the most recent claim.
func (e *Engine) recencyScore(history []types.ClaimRecord, now time.Time) float64 {
	mostRecent := history[0].ClaimedAt
	for _, c := range history[1:] {
		if c.ClaimedAt.After(mostRecent) {
			mostRecent = c.ClaimedAt
		}
	}

	switch days := daysBetween(mostRecent, now); {
	case days < 7:
		return 100
	case days < 30:
		return 80
	case days < 90:
		return 60
	case days < 180:
		return 40
	default:
		return 20
	}
}

// gracePeriod starts from the tier table and adjusts for demonstrated
// velocity and recent abandonment, clamped to the policy bounds.
func (e *Engine) gracePeriod(tier types.ReliabilityTier, velocityScore float64, history []types.ClaimRecord) int {
	base, ok := e.policy.GraceDaysByTier[tier]
	if !ok {
		base = e.policy.GraceDaysByTier[types.TierRegular]
	}

	if velocityScore > 80 {
		base = int(float64(base) * 1.2)
	} else if velocityScore < 40 {
		base = int(float64(base) * 0.8)
	}

	recent := history
	if len(recent) > 5 {
		recent = recent[:5]
	}
	abandons := 0
	for _, c := range recent {
		if c.Status == types.ClaimReleased || c.Status == types.ClaimExpired {
			abandons++
		}
	}
	if abandons >= 3 {
		base = int(float64(base) * 0.6)
		if base < 3 {
			base = 3
		}
	}

	if base < e.policy.GraceMinDays {
		base = e.policy.GraceMinDays
	}
	if base > e.policy.GraceMaxDays {
		base = e.policy.GraceMaxDays
	}
	return base
}

// ShouldAutoApprove reports whether a claim can skip human review.
func (e *Engine) ShouldAutoApprove(rep types.ReputationScore) bool {
	return rep.Tier == types.TierElite && rep.RiskLevel == types.RiskLow
}

// ShouldRequireReview reports whether a claim needs maintainer approval.
func (e *Engine) ShouldRequireReview(rep types.ReputationScore) bool {
	return rep.RiskLevel == types.RiskHigh ||
		rep.RiskLevel == types.RiskCritical ||
		rep.Tier == types.TierProbation
}

// ShouldBlockClaim reports whether the claimant should not be allowed to
// claim at all.
func (e *Engine) ShouldBlockClaim(rep types.ReputationScore) bool {
	return rep.Tier == types.TierBlocked ||
		(rep.AbandonedClaims >= 5 && rep.CompletionRate < 10)
}

func avgCompletionDays(history []types.ClaimRecord) float64 {
	avg, ok := meanCompletionDays(history)
	if !ok {
		return 0
	}
	return avg
}

func meanCompletionDays(history []types.ClaimRecord) (float64, bool) {
	var total float64
	var n int
	for _, c := range history {
		if c.Status == types.ClaimCompleted && c.CompletedAt != nil {
			total += daysBetween(c.ClaimedAt, *c.CompletedAt)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// completionTrend splits the history in half and compares completion
// rates; a shift beyond 20 points either way marks the trend.
func completionTrend(history []types.ClaimRecord) types.Trend {
	if len(history) < 3 {
		return types.TrendStable
	}

	mid := len(history) / 2
	recent, older := history[:mid], history[mid:]

	rate := func(claims []types.ClaimRecord) float64 {
		done := 0
		for _, c := range claims {
			if c.Status == types.ClaimCompleted {
				done++
			}
		}
		return float64(done) / float64(len(claims))
	}

	switch diff := rate(recent) - rate(older); {
	case diff > 0.2:
		return types.TrendImproving
	case diff < -0.2:
		return types.TrendDeclining
	default:
		return types.TrendStable
	}
}
