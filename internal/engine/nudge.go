package engine

import (
	"fmt"
	"time"

	"github.com/cookieguard/cookieguard/internal/types"
)

// NudgeInput drives scheduling of the next reminder for one claim.
// ActivityTimestamps are up to 50 past activity instants used to learn
// the claimant's preferred hour of day; Timezone is best effort and
// falls back to UTC when empty or unloadable.
type NudgeInput struct {
	NudgeOrdinal       int
	GraceDays          int
	ActivityTimestamps []time.Time
	Timezone           string
	Now                time.Time
}

// Local-hour buckets and their midpoint send hours.
var hourBuckets = []struct {
	name     string
	from, to int // [from, to)
	midpoint int
}{
	{"morning", 6, 12, 9},
	{"afternoon", 12, 18, 15},
	{"evening", 18, 24, 21},
}

const defaultEscalationDelay = 2

// ScheduleNudge picks when the next nudge fires and with what tone. The
// first nudge waits out the full grace period; later ordinals follow the
// fixed escalation table. The send instant lands in the claimant's most
// active local-hour bucket and never on a weekend.
func (e *Engine) ScheduleNudge(in NudgeInput) types.NudgePlan {
	now := orNow(in.Now)

	days := in.GraceDays
	if in.NudgeOrdinal > 1 {
		days = e.escalationDelay(in.NudgeOrdinal)
	}

	loc, tzName := loadLocation(in.Timezone)

	bucket := preferredBucket(in.ActivityTimestamps, loc)

	// Pin the send time to the bucket midpoint in local time, then shift
	// weekend collisions to Monday before converting back to UTC.
	local := now.In(loc).AddDate(0, 0, days)
	local = time.Date(local.Year(), local.Month(), local.Day(), bucket.midpoint, 0, 0, 0, loc)

	switch local.Weekday() {
	case time.Saturday:
		local = local.AddDate(0, 0, 2)
	case time.Sunday:
		local = local.AddDate(0, 0, 1)
	}

	confidence := float64(len(in.ActivityTimestamps)) / 50 * 100
	if confidence > 100 {
		confidence = 100
	}
	if len(in.ActivityTimestamps) == 0 {
		confidence = 20
	}

	reasoning := fmt.Sprintf(
		"Nudge #%d scheduled %d days out, during the claimant's preferred %s hours (%s).",
		in.NudgeOrdinal, days, bucket.name, tzName,
	)
	if in.NudgeOrdinal > 2 {
		reasoning += fmt.Sprintf(" Escalation level %d.", in.NudgeOrdinal)
	}

	return types.NudgePlan{
		SendAtUTC:       local.UTC(),
		LocalTimeOfDay:  local.Format("15:04"),
		Timezone:        tzName,
		Tone:            e.nudgeTone(in.NudgeOrdinal),
		EscalationLevel: in.NudgeOrdinal,
		Confidence:      round2(confidence),
		Reasoning:       reasoning,
	}
}

// SkipNudge reports whether a scheduled nudge should not be dispatched:
// strong progress, an already-recommended grace extension, or an elite
// claimant who is demonstrably working.
func (e *Engine) SkipNudge(progress types.ProgressAssessment, rep types.ReputationScore) bool {
	if progress.ProgressScore > 80 {
		return true
	}
	if progress.ShouldExtendGrace {
		return true
	}
	if rep.Tier == types.TierElite && progress.ProgressScore > 50 {
		return true
	}
	return false
}

// NextNudgeDelay adapts the escalation table to observed behavior:
// progress buys time, silence shortens it. Clamped to [1,14] days.
func (e *Engine) NextNudgeDelay(currentNudge int, progressScore, responsivenessScore float64) int {
	delay := float64(e.escalationDelay(currentNudge + 1))

	if progressScore > 60 {
		delay *= 1.5
	}
	if responsivenessScore < 30 {
		delay *= 0.7
	}

	d := int(delay)
	if d < 1 {
		d = 1
	}
	if d > 14 {
		d = 14
	}
	return d
}

func (e *Engine) escalationDelay(ordinal int) int {
	if d, ok := e.policy.EscalationDelays[ordinal]; ok {
		return d
	}
	return defaultEscalationDelay
}

// nudgeTone is total over ordinals; anything beyond the table reuses the
// professional register as a safe default.
func (e *Engine) nudgeTone(ordinal int) types.NudgeTone {
	if tone, ok := e.policy.NudgeTones[ordinal]; ok {
		return tone
	}
	return types.ToneProfessional
}

func loadLocation(name string) (*time.Location, string) {
	if name == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, name
}

// preferredBucket tallies past activity into local-hour buckets; ties
// favor afternoon, then evening.
func preferredBucket(activity []time.Time, loc *time.Location) struct {
	name     string
	from, to int
	midpoint int
} {
	counts := make([]int, len(hourBuckets))
	for _, t := range activity {
		hour := t.In(loc).Hour()
		for i, b := range hourBuckets {
			if hour >= b.from && hour < b.to {
				counts[i]++
				break
			}
		}
	}

	morning, afternoon, evening := counts[0], counts[1], counts[2]
	switch {
	case afternoon >= morning && afternoon >= evening:
		return hourBuckets[1]
	case evening >= morning:
		return hourBuckets[2]
	default:
		return hourBuckets[0]
	}
}
