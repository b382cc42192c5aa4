package engine

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/cookieguard/cookieguard/internal/types"
)

// Complexity grades how much work an issue likely needs.
type Complexity string

const (
	ComplexityTrivial  Complexity = "TRIVIAL"
	ComplexityEasy     Complexity = "EASY"
	ComplexityMedium   Complexity = "MEDIUM"
	ComplexityHard     Complexity = "HARD"
	ComplexityVeryHard Complexity = "VERY_HARD"
)

// Cutoff is one (threshold, value) pair in an ordered policy table.
// Tables are evaluated top-down, first match wins.
type Cutoff[T any] struct {
	Min   float64
	Value T
}

// ReputationWeights are the component weights of the overall score.
type ReputationWeights struct {
	Completion     float64 `yaml:"completion"`
	Responsiveness float64 `yaml:"responsiveness"`
	Quality        float64 `yaml:"quality"`
	Velocity       float64 `yaml:"velocity"`
	Recency        float64 `yaml:"recency"`
}

// ProgressWeights are the component weights of the progress score.
type ProgressWeights struct {
	Commits  float64 `yaml:"commits"`
	PRs      float64 `yaml:"prs"`
	Velocity float64 `yaml:"velocity"`
	Reviews  float64 `yaml:"reviews"`
}

// ConflictWeights are the priority-score component weights.
type ConflictWeights struct {
	Reputation   float64 `yaml:"reputation"`
	SkillMatch   float64 `yaml:"skill_match"`
	ResponseTime float64 `yaml:"response_time"`
	Contribution float64 `yaml:"contribution"`
	TimePriority float64 `yaml:"time_priority"`
	Maintainer   float64 `yaml:"maintainer"`
	Diversity    float64 `yaml:"diversity"`
}

// ComplexityThreshold is the patience budget for one complexity grade.
type ComplexityThreshold struct {
	MinDays   int `yaml:"min_days"`
	MaxNudges int `yaml:"max_nudges"`
}

// Policy is the immutable tuning surface of the engine. Components never
// mutate it, so one Policy can back any number of concurrent evaluations.
type Policy struct {
	ReputationWeights ReputationWeights
	DecayTauDays      float64
	TierCutoffs       []Cutoff[types.ReliabilityTier]
	RiskCutoffs       []Cutoff[types.RiskLevel]
	GraceDaysByTier   map[types.ReliabilityTier]int
	GraceMinDays      int
	GraceMaxDays      int

	ProgressWeights    ProgressWeights
	MeaningfulCommitRE []*regexp.Regexp
	TrivialCommitRE    []*regexp.Regexp
	TestCommitRE       *regexp.Regexp
	DocCommitRE        *regexp.Regexp
	WIPIndicators      []string
	StallCommitDays    int
	StallPRDays        int

	BotSignatureRE        []*regexp.Regexp
	CollaborationKeywords []string

	ComplexityDays       map[Complexity]int
	ComplexityThresholds map[Complexity]ComplexityThreshold

	EscalationDelays map[int]int
	NudgeTones       map[int]types.NudgeTone

	ConflictWeights ConflictWeights

	// SkillMatch and Quality are placeholder heuristics in the source
	// signal; both are pluggable and default to a neutral 70.
	SkillMatchFn func(handle string, issue types.IssueRecord) float64
	QualityFn    func(handle string) (float64, bool)
}

// policyFile is the YAML-overridable subset of Policy.
type policyFile struct {
	ReputationWeights *ReputationWeights `yaml:"reputation_weights"`
	ProgressWeights   *ProgressWeights   `yaml:"progress_weights"`
	ConflictWeights   *ConflictWeights   `yaml:"conflict_weights"`
	DecayTauDays      *float64           `yaml:"decay_tau_days"`
	StallCommitDays   *int               `yaml:"stall_commit_days"`
	StallPRDays       *int               `yaml:"stall_pr_days"`
	GraceDaysByTier   map[string]int     `yaml:"grace_days_by_tier"`
	EscalationDelays  map[int]int        `yaml:"escalation_delays"`
}

// DefaultPolicy returns the production tuning tables.
func DefaultPolicy() Policy {
	return Policy{
		ReputationWeights: ReputationWeights{
			Completion:     0.35,
			Responsiveness: 0.25,
			Quality:        0.20,
			Velocity:       0.15,
			Recency:        0.05,
		},
		DecayTauDays: 365,
		TierCutoffs: []Cutoff[types.ReliabilityTier]{
			{Min: 90, Value: types.TierElite},
			{Min: 75, Value: types.TierTrusted},
			{Min: 50, Value: types.TierRegular},
			{Min: 25, Value: types.TierProbation},
			{Min: 0, Value: types.TierBlocked},
		},
		RiskCutoffs: []Cutoff[types.RiskLevel]{
			{Min: 75, Value: types.RiskLow},
			{Min: 50, Value: types.RiskMedium},
			{Min: 25, Value: types.RiskHigh},
			{Min: 0, Value: types.RiskCritical},
		},
		GraceDaysByTier: map[types.ReliabilityTier]int{
			types.TierElite:     21,
			types.TierTrusted:   14,
			types.TierRegular:   7,
			types.TierProbation: 3,
			types.TierBlocked:   1,
		},
		GraceMinDays: 1,
		GraceMaxDays: 30,

		ProgressWeights: ProgressWeights{
			Commits:  0.35,
			PRs:      0.35,
			Velocity: 0.20,
			Reviews:  0.10,
		},
		MeaningfulCommitRE: compileAll(
			`(?i)\b(feat|feature|add|implement|create)\b`,
			`(?i)\b(fix|bugfix|resolve|patch)\b`,
			`(?i)\b(refactor|improve|optimize|enhance)\b`,
			`(?i)\b(test|spec|coverage)\b`,
			`(?i)\b(doc|documentation|readme)\b`,
		),
		TrivialCommitRE: compileAll(
			`(?i)\b(wip|work in progress)\b`,
			`(?i)\b(typo|formatting|whitespace)\b`,
			`(?i)\b(todo|fixme|placeholder)\b`,
			`(?i)^(update|fix|change)\s*$`,
		),
		TestCommitRE: regexp.MustCompile(`(?i)\b(test|spec)\b`),
		DocCommitRE:  regexp.MustCompile(`(?i)\b(doc|readme|documentation)\b`),
		WIPIndicators: []string{
			"wip", "work in progress", "draft", "do not merge",
			"dnm", "not ready", "incomplete",
		},
		StallCommitDays: 7,
		StallPRDays:     5,

		BotSignatureRE: compileAll(
			`(?i)\[bot\]`,
			`(?i)automated`,
			`(?i)github-actions`,
			`(?i)dependabot`,
			`(?i)renovate`,
		),
		CollaborationKeywords: []string{
			"team", "together", "pair", "collaborate",
			"we can", "let's", "help with", "part of",
		},

		ComplexityDays: map[Complexity]int{
			ComplexityTrivial:  2,
			ComplexityEasy:     5,
			ComplexityMedium:   10,
			ComplexityHard:     20,
			ComplexityVeryHard: 30,
		},
		ComplexityThresholds: map[Complexity]ComplexityThreshold{
			ComplexityTrivial:  {MinDays: 3, MaxNudges: 1},
			ComplexityEasy:     {MinDays: 5, MaxNudges: 2},
			ComplexityMedium:   {MinDays: 7, MaxNudges: 2},
			ComplexityHard:     {MinDays: 14, MaxNudges: 3},
			ComplexityVeryHard: {MinDays: 21, MaxNudges: 4},
		},

		EscalationDelays: map[int]int{2: 5, 3: 3, 4: 2, 5: 1},
		NudgeTones: map[int]types.NudgeTone{
			1: types.ToneFriendly,
			2: types.ToneProfessional,
			3: types.ToneConcerned,
			4: types.ToneUrgent,
			5: types.ToneFinalWarning,
		},

		ConflictWeights: ConflictWeights{
			Reputation:   0.25,
			SkillMatch:   0.20,
			ResponseTime: 0.15,
			Contribution: 0.15,
			TimePriority: 0.10,
			Maintainer:   0.10,
			Diversity:    0.05,
		},

		SkillMatchFn: func(string, types.IssueRecord) float64 { return 70 },
		QualityFn:    func(string) (float64, bool) { return 0, false },
	}
}

// LoadPolicyFile applies YAML overrides on top of the defaults. Missing
// fields keep their default values.
func LoadPolicyFile(path string) (Policy, error) {
	p := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}

	if pf.ReputationWeights != nil {
		p.ReputationWeights = *pf.ReputationWeights
	}
	if pf.ProgressWeights != nil {
		p.ProgressWeights = *pf.ProgressWeights
	}
	if pf.ConflictWeights != nil {
		p.ConflictWeights = *pf.ConflictWeights
	}
	if pf.DecayTauDays != nil {
		p.DecayTauDays = *pf.DecayTauDays
	}
	if pf.StallCommitDays != nil {
		p.StallCommitDays = *pf.StallCommitDays
	}
	if pf.StallPRDays != nil {
		p.StallPRDays = *pf.StallPRDays
	}
	for tier, days := range pf.GraceDaysByTier {
		p.GraceDaysByTier[types.ReliabilityTier(tier)] = days
	}
	for ordinal, days := range pf.EscalationDelays {
		p.EscalationDelays[ordinal] = days
	}

	return p, nil
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

// lookupCutoff resolves an ordered cutoff table; the last row is the
// catch-all so the mapping is total.
func lookupCutoff[T any](table []Cutoff[T], score float64) T {
	for _, row := range table {
		if score >= row.Min {
			return row.Value
		}
	}
	return table[len(table)-1].Value
}
