package engine

import (
	"math"
	"time"
)

// Engine bundles the six claim-lifecycle components behind one immutable
// Policy. Every method is a pure function of its input snapshot: no I/O,
// no locks, no internal caching, so concurrent calls across unrelated
// claims are safe by construction. Serializing decisions that touch the
// same claim record is the caller's job (see internal/locks).
type Engine struct {
	policy Policy
}

// New creates an engine from a policy. The policy is copied by value and
// never mutated afterwards.
func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy exposes the active tuning tables, mainly for reporting.
func (e *Engine) Policy() Policy {
	return e.policy
}

// clamp bounds a score to [lo, hi]. Every externally visible score goes
// through this with lo=0, hi=100.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampScore(v float64) float64 { return clamp(v, 0, 100) }

// decayWeight computes exp(-deltaDays/tau) so recent claims outweigh
// year-old history.
func decayWeight(deltaDays, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	return math.Exp(-deltaDays / tau)
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// orNow substitutes the wall clock when an input leaves Now unset, keeping
// the components deterministic under test.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
