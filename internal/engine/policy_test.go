package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieguard/cookieguard/internal/types"
)

func TestDefaultPolicyWeightsSum(t *testing.T) {
	p := DefaultPolicy()

	rw := p.ReputationWeights
	assert.InDelta(t, 1.0, rw.Completion+rw.Responsiveness+rw.Quality+rw.Velocity+rw.Recency, 0.001)

	pw := p.ProgressWeights
	assert.InDelta(t, 1.0, pw.Commits+pw.PRs+pw.Velocity+pw.Reviews, 0.001)

	cw := p.ConflictWeights
	assert.InDelta(t, 1.0, cw.Reputation+cw.SkillMatch+cw.ResponseTime+cw.Contribution+cw.TimePriority+cw.Maintainer+cw.Diversity, 0.001)
}

func TestDefaultPolicyTablesAreTotal(t *testing.T) {
	p := DefaultPolicy()

	// The last cutoff row has Min 0, so any clamped score resolves.
	assert.Equal(t, 0.0, p.TierCutoffs[len(p.TierCutoffs)-1].Min)
	assert.Equal(t, 0.0, p.RiskCutoffs[len(p.RiskCutoffs)-1].Min)

	for _, c := range []Complexity{ComplexityTrivial, ComplexityEasy, ComplexityMedium, ComplexityHard, ComplexityVeryHard} {
		_, ok := p.ComplexityThresholds[c]
		assert.True(t, ok, "missing thresholds for %s", c)
		_, ok = p.ComplexityDays[c]
		assert.True(t, ok, "missing day estimate for %s", c)
	}

	for _, tier := range []types.ReliabilityTier{types.TierElite, types.TierTrusted, types.TierRegular, types.TierProbation, types.TierBlocked} {
		_, ok := p.GraceDaysByTier[tier]
		assert.True(t, ok, "missing grace days for %s", tier)
	}
}

func TestLoadPolicyFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := []byte(`
decay_tau_days: 180
stall_commit_days: 10
reputation_weights:
  completion: 0.5
  responsiveness: 0.2
  quality: 0.1
  velocity: 0.1
  recency: 0.1
grace_days_by_tier:
  ELITE: 28
escalation_delays:
  2: 4
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)

	assert.Equal(t, 180.0, p.DecayTauDays)
	assert.Equal(t, 10, p.StallCommitDays)
	assert.Equal(t, 0.5, p.ReputationWeights.Completion)
	assert.Equal(t, 28, p.GraceDaysByTier[types.TierElite])
	assert.Equal(t, 4, p.EscalationDelays[2])

	// Untouched fields keep their defaults.
	assert.Equal(t, 5, p.StallPRDays)
	assert.Equal(t, 14, p.GraceDaysByTier[types.TierTrusted])
	assert.Equal(t, 3, p.EscalationDelays[3])
}

func TestLoadPolicyFileMissingReturnsDefaults(t *testing.T) {
	p, err := LoadPolicyFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Equal(t, 365.0, p.DecayTauDays)
}

func TestLookupCutoffBoundaries(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, types.TierElite, lookupCutoff(p.TierCutoffs, 100))
	assert.Equal(t, types.TierTrusted, lookupCutoff(p.TierCutoffs, 89.99))
	assert.Equal(t, types.TierBlocked, lookupCutoff(p.TierCutoffs, 0))

	assert.Equal(t, types.RiskLow, lookupCutoff(p.RiskCutoffs, 75))
	assert.Equal(t, types.RiskCritical, lookupCutoff(p.RiskCutoffs, 24.99))
}

func TestCommitPatternClassification(t *testing.T) {
	p := DefaultPolicy()

	meaningful := []string{
		"feat: add webhook retries",
		"Fix crash when payload is empty",
		"refactor scoring pipeline",
	}
	for _, msg := range meaningful {
		assert.True(t, matchesAny(p.MeaningfulCommitRE, msg), "expected meaningful: %q", msg)
	}

	trivial := []string{
		"wip",
		"fix typo",
		"update",
		"TODO placeholder",
	}
	for _, msg := range trivial {
		assert.True(t, matchesAny(p.TrivialCommitRE, msg), "expected trivial: %q", msg)
	}
}
