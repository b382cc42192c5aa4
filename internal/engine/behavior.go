package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/cookieguard/cookieguard/internal/types"
)

// BehaviorInput is the snapshot the classifier needs: the claim being
// made, and the claimant's history (newest first, at most 50 records).
// The classifier is independent of reputation and progress.
type BehaviorInput struct {
	ClaimantID     string
	ClaimantHandle string
	ClaimText      string
	Issue          types.IssueRecord
	History        []types.ClaimRecord
	Now            time.Time
}

// Anomaly point values. Each check is independent and additive; the sum
// is clamped to [0,100].
const (
	rapidClaimPoints    = 20
	hoardingPoints      = 25
	abandonmentPoints   = 30
	velocitySpikePoints = 15
	identicalTextPoints = 20
	gamingPoints        = 25

	rapidClaimsPerHour   = 5
	hoardingActiveClaims = 10
	abandonmentRateLimit = 0.7
	velocitySpikeFactor  = 10
	identicalTextRatio   = 0.9
	gamingMinClaims      = 6
	gamingMaxHours       = 2
)

// AnalyzeBehavior runs the independent anomaly checks and classifies the
// claimant. Bot and team-collaboration detection are boolean flags, not
// score-additive.
//
// The hour-of-day gaming check is a heuristic: contributors who batch
// their work on a schedule (CI-adjacent automation, lunchtime-only
// contributors) can trip it without malice. Treat FRAUDULENT/SUSPICIOUS
// as a review queue, not a verdict.
func (e *Engine) AnalyzeBehavior(in BehaviorInput) types.BehavioralAnalysis {
	now := orNow(in.Now)

	anomalies := []string{}
	var fraudScore float64

	if n := claimsWithinLastHour(in.History, now); n > rapidClaimsPerHour {
		anomalies = append(anomalies, fmt.Sprintf("rapid_claiming_%d_per_hour", n))
		fraudScore += rapidClaimPoints
	}

	if n := countActive(in.History); n > hoardingActiveClaims {
		anomalies = append(anomalies, fmt.Sprintf("claim_hoarding_%d_active", n))
		fraudScore += hoardingPoints
	}

	abandonRate := abandonmentRate(in.History)
	if abandonRate > abandonmentRateLimit {
		anomalies = append(anomalies, fmt.Sprintf("high_abandonment_rate_%.0f_pct", abandonRate*100))
		fraudScore += abandonmentPoints
	}

	if velocitySpike(in.History) {
		anomalies = append(anomalies, "claim_velocity_spike")
		fraudScore += velocitySpikePoints
	}

	if identicalTextRate(in.History, in.ClaimText) > identicalTextRatio {
		anomalies = append(anomalies, "repeated_identical_claim_text")
		fraudScore += identicalTextPoints
	}

	if e.gamingPattern(in.History) {
		anomalies = append(anomalies, "hour_of_day_clustering")
		fraudScore += gamingPoints
	}

	fraudScore = clampScore(fraudScore)

	isBot := e.isBot(in.ClaimantHandle, in.ClaimText)
	isTeam := e.isTeamClaim(in.ClaimText)

	behavior := classifyBehavior(fraudScore, isBot, isTeam, abandonRate)

	confidence := float64(len(in.History)) * 10
	if confidence > 100 {
		confidence = 100
	}

	return types.BehavioralAnalysis{
		IsSuspicious:       fraudScore > 50,
		Anomalies:          anomalies,
		FraudScore:         round2(fraudScore),
		BehaviorType:       behavior,
		IsBot:              isBot,
		IsTeamClaim:        isTeam,
		RecommendedActions: recommendedActions(fraudScore, len(anomalies), isBot, behavior),
		Confidence:         confidence,
		AbandonmentRate:    round2(abandonRate),
	}
}

// BehaviorBlocksClaim reports whether the classification alone should
// stop a claim from registering.
func (e *Engine) BehaviorBlocksClaim(a types.BehavioralAnalysis) bool {
	return a.FraudScore > 70 || a.BehaviorType == types.BehaviorFraudulent || a.IsBot
}

// BehaviorRequiresApproval reports whether the claim needs a manual gate.
func (e *Engine) BehaviorRequiresApproval(a types.BehavioralAnalysis) bool {
	return a.FraudScore > 40 || a.IsSuspicious
}

func claimsWithinLastHour(history []types.ClaimRecord, now time.Time) int {
	n := 0
	for _, c := range history {
		if now.Sub(c.ClaimedAt) <= time.Hour && !c.ClaimedAt.After(now) {
			n++
		}
	}
	return n
}

func countActive(history []types.ClaimRecord) int {
	n := 0
	for _, c := range history {
		if c.Status == types.ClaimActive {
			n++
		}
	}
	return n
}

func abandonmentRate(history []types.ClaimRecord) float64 {
	if len(history) == 0 {
		return 0
	}
	abandoned := 0
	for _, c := range history {
		if c.Status == types.ClaimReleased || c.Status == types.ClaimExpired {
			abandoned++
		}
	}
	return float64(abandoned) / float64(len(history))
}

// velocitySpike compares the cadence of the five most recent claims with
// the rest of the history; a 10x jump suggests automation.
func velocitySpike(history []types.ClaimRecord) bool {
	if len(history) < 10 {
		return false
	}

	recent, older := history[:5], history[5:]

	span := func(claims []types.ClaimRecord) float64 {
		days := daysBetween(claims[len(claims)-1].ClaimedAt, claims[0].ClaimedAt)
		if days < 1 {
			days = 1
		}
		return days
	}

	recentRate := float64(len(recent)) / span(recent)
	olderRate := float64(len(older)) / span(older)

	return recentRate >= olderRate*velocitySpikeFactor
}

// identicalTextRate is the fraction of the last ten claim texts that
// match the new text after case and whitespace normalization.
func identicalTextRate(history []types.ClaimRecord, text string) float64 {
	past := []string{}
	for _, c := range history {
		if c.ClaimText != "" {
			past = append(past, c.ClaimText)
		}
		if len(past) == 10 {
			break
		}
	}
	if len(past) == 0 {
		return 0
	}

	normalized := strings.TrimSpace(strings.ToLower(text))
	matches := 0
	for _, p := range past {
		if strings.TrimSpace(strings.ToLower(p)) == normalized {
			matches++
		}
	}
	return float64(matches) / float64(len(past))
}

// gamingPattern flags histories where six or more claims all land in at
// most two distinct hours of the day.
func (e *Engine) gamingPattern(history []types.ClaimRecord) bool {
	if len(history) < gamingMinClaims {
		return false
	}

	hours := map[int]struct{}{}
	for _, c := range history {
		hours[c.ClaimedAt.Hour()] = struct{}{}
	}
	return len(hours) <= gamingMaxHours
}

func (e *Engine) isBot(handle, text string) bool {
	for _, re := range e.policy.BotSignatureRE {
		if re.MatchString(handle) || re.MatchString(text) {
			return true
		}
	}
	return false
}

func (e *Engine) isTeamClaim(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range e.policy.CollaborationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.Count(text, "@") >= 2
}

// classifyBehavior is total and ordered: bot and team flags outrank the
// fraud score.
func classifyBehavior(fraudScore float64, isBot, isTeam bool, abandonRate float64) types.BehaviorType {
	switch {
	case isBot:
		return types.BehaviorBot
	case isTeam:
		return types.BehaviorCollaborative
	case fraudScore > 70:
		return types.BehaviorFraudulent
	case fraudScore > 40 || abandonRate > 0.6:
		return types.BehaviorSuspicious
	default:
		return types.BehaviorGenuine
	}
}

func recommendedActions(fraudScore float64, anomalyCount int, isBot bool, behavior types.BehaviorType) []string {
	switch {
	case isBot:
		return []string{"BLOCK_BOT_CLAIMS", "ALERT_MAINTAINERS"}
	case fraudScore > 70:
		return []string{"BLOCK_USER", "REVIEW_ALL_ACTIVE_CLAIMS", "NOTIFY_SECURITY_TEAM"}
	case fraudScore > 50:
		return []string{"REQUIRE_MANUAL_APPROVAL", "REDUCE_GRACE_PERIOD", "INCREASE_MONITORING"}
	case behavior == types.BehaviorCollaborative:
		return []string{"ALLOW_TEAM_CLAIM", "REQUEST_TEAM_MEMBERS"}
	case anomalyCount > 2:
		return []string{"FLAG_FOR_REVIEW", "SEND_WARNING_MESSAGE"}
	default:
		return []string{"PROCEED_NORMALLY"}
	}
}
