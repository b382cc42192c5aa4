package types

import "time"

// ClaimStatus is the lifecycle state of a claim. The engine only ever
// recommends a transition; the persistence layer flips the status.
type ClaimStatus string

const (
	ClaimActive    ClaimStatus = "ACTIVE"
	ClaimReleased  ClaimStatus = "RELEASED"
	ClaimCompleted ClaimStatus = "COMPLETED"
	ClaimExpired   ClaimStatus = "EXPIRED"
)

// ClaimRecord is a snapshot of one claim on one issue.
type ClaimRecord struct {
	ID             string      `json:"id"`
	IssueID        string      `json:"issue_id"`
	RepositoryID   string      `json:"repository_id"`
	ClaimantID     string      `json:"claimant_id"`
	ClaimantHandle string      `json:"claimant_handle"`
	ClaimText      string      `json:"claim_text"`
	ClaimedAt      time.Time   `json:"claimed_at"`
	Status         ClaimStatus `json:"status"`
	LastActivityAt *time.Time  `json:"last_activity_at,omitempty"`
	NudgesSent     int         `json:"nudges_sent"`
	FirstNudgeAt   *time.Time  `json:"first_nudge_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	ReleaseReason  string      `json:"release_reason,omitempty"`
}

// IssueLabel mirrors the tracker's label shape.
type IssueLabel struct {
	Name string `json:"name"`
}

// IssueRecord is the issue metadata the engine consumes.
type IssueRecord struct {
	ID          string       `json:"id"`
	Number      int          `json:"number"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Labels      []IssueLabel `json:"labels"`
	Watchers    int          `json:"watchers"`
	Comments    int          `json:"comments"`
}

// RepositoryRecord identifies the repository and its maintainers.
type RepositoryRecord struct {
	ID          string   `json:"id"`
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Maintainers []string `json:"maintainers"`
}

// Commit is a single commit by the claimant since the claim.
type Commit struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PullRequestState is the tracker-reported PR state.
type PullRequestState string

const (
	PROpen   PullRequestState = "open"
	PRClosed PullRequestState = "closed"
)

// PullRequest is a PR referencing the claimed issue.
type PullRequest struct {
	Number    int              `json:"number"`
	State     PullRequestState `json:"state"`
	Title     string           `json:"title"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	MergedAt  *time.Time       `json:"merged_at,omitempty"`
}

// Review is review engagement on one of the claimant's PRs.
type Review struct {
	PRNumber     int        `json:"pr_number"`
	Comments     int        `json:"comments"`
	Approvals    int        `json:"approvals"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// ReliabilityTier buckets a contributor's historical performance.
type ReliabilityTier string

const (
	TierElite     ReliabilityTier = "ELITE"
	TierTrusted   ReliabilityTier = "TRUSTED"
	TierRegular   ReliabilityTier = "REGULAR"
	TierProbation ReliabilityTier = "PROBATION"
	TierBlocked   ReliabilityTier = "BLOCKED"
)

// RiskLevel grades how likely a claimant is to abandon.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Trend is the direction of a contributor's recent completion rate.
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendDeclining Trend = "DECLINING"
	TrendStable    Trend = "STABLE"
)

// ReputationScore is the decayed, weighted reliability assessment of a
// contributor, computed fresh on every decision cycle.
type ReputationScore struct {
	OverallScore         float64         `json:"overall_score"`
	CompletionRate       float64         `json:"completion_rate"`
	AvgCompletionDays    float64         `json:"avg_completion_days"`
	ResponsivenessScore  float64         `json:"responsiveness_score"`
	QualityScore         float64         `json:"quality_score"`
	VelocityScore        float64         `json:"velocity_score"`
	RecencyScore         float64         `json:"recency_score"`
	Tier                 ReliabilityTier `json:"tier"`
	RecommendedGraceDays int             `json:"recommended_grace_days"`
	RiskLevel            RiskLevel       `json:"risk_level"`
	Trend                Trend           `json:"trend"`
	TotalClaims          int             `json:"total_claims"`
	CompletedClaims      int             `json:"completed_claims"`
	AbandonedClaims      int             `json:"abandoned_claims"`
	NewClaimant          bool            `json:"new_claimant"`
}

// ProgressAssessment summarizes whether real work is happening on a claim.
type ProgressAssessment struct {
	ProgressScore         float64  `json:"progress_score"`
	ProgressDetected      bool     `json:"progress_detected"`
	ProgressTypes         []string `json:"progress_types"`
	CompletionProbability float64  `json:"completion_probability"`
	EstimatedDays         *int     `json:"estimated_days_to_completion,omitempty"`
	Velocity              float64  `json:"velocity"`
	RiskSignals           []string `json:"risk_signals"`
	ShouldExtendGrace     bool     `json:"should_extend_grace"`
	ShouldNudgeAnyway     bool     `json:"should_nudge_anyway"`
	Confidence            float64  `json:"confidence"`
	CommitQuality         float64  `json:"commit_quality"`
	PRQuality             float64  `json:"pr_quality"`
	HasTests              bool     `json:"has_tests"`
	HasDocs               bool     `json:"has_docs"`
}

// BehaviorType classifies the claimant's overall pattern.
type BehaviorType string

const (
	BehaviorGenuine       BehaviorType = "GENUINE"
	BehaviorCollaborative BehaviorType = "COLLABORATIVE"
	BehaviorSuspicious    BehaviorType = "SUSPICIOUS"
	BehaviorFraudulent    BehaviorType = "FRAUDULENT"
	BehaviorBot           BehaviorType = "BOT"
)

// BehavioralAnalysis is the fraud/bot/collaboration assessment of a claim.
type BehavioralAnalysis struct {
	IsSuspicious       bool         `json:"is_suspicious"`
	Anomalies          []string     `json:"anomalies"`
	FraudScore         float64      `json:"fraud_score"`
	BehaviorType       BehaviorType `json:"behavior_type"`
	IsBot              bool         `json:"is_bot"`
	IsTeamClaim        bool         `json:"is_team_claim"`
	RecommendedActions []string     `json:"recommended_actions"`
	Confidence         float64      `json:"confidence"`
	AbandonmentRate    float64      `json:"abandonment_rate"`
}

// NudgeTone escalates with the nudge ordinal.
type NudgeTone string

const (
	ToneFriendly     NudgeTone = "FRIENDLY"
	ToneProfessional NudgeTone = "PROFESSIONAL"
	ToneConcerned    NudgeTone = "CONCERNED"
	ToneUrgent       NudgeTone = "URGENT"
	ToneFinalWarning NudgeTone = "FINAL_WARNING"
)

// NudgePlan is a scheduled reminder, ready for the notification dispatcher.
type NudgePlan struct {
	SendAtUTC       time.Time `json:"send_at_utc"`
	LocalTimeOfDay  string    `json:"local_time_of_day"`
	Timezone        string    `json:"timezone"`
	Tone            NudgeTone `json:"tone"`
	EscalationLevel int       `json:"escalation_level"`
	Confidence      float64   `json:"confidence"`
	Reasoning       string    `json:"reasoning"`
}

// ReleaseAction is the recommended transition for a stale claim.
type ReleaseAction string

const (
	ActionRelease     ReleaseAction = "RELEASE"
	ActionWait        ReleaseAction = "WAIT"
	ActionExtendGrace ReleaseAction = "EXTEND_GRACE"
)

// ReleaseDecision recommends whether to free the issue back to the pool.
type ReleaseDecision struct {
	ShouldRelease   bool          `json:"should_release"`
	Confidence      float64       `json:"confidence"`
	RiskLevel       RiskLevel     `json:"risk_level"`
	Action          ReleaseAction `json:"action"`
	DaysToWait      *int          `json:"days_to_wait,omitempty"`
	Alternatives    []string      `json:"alternatives"`
	Reasoning       string        `json:"reasoning"`
	Complexity      string        `json:"complexity"`
	CommunityImpact float64       `json:"community_impact"`
}

// ConflictWinner names which claimant a conflict resolution favors.
type ConflictWinner string

const (
	WinnerExisting ConflictWinner = "EXISTING"
	WinnerNew      ConflictWinner = "NEW"
	WinnerNone     ConflictWinner = "NONE"
)

// ConflictStrategy names the resolution rule that fired.
type ConflictStrategy string

const (
	StrategyFirstCome        ConflictStrategy = "FIRST_COME"
	StrategyPriorityScore    ConflictStrategy = "PRIORITY_SCORE"
	StrategyTeamClaim        ConflictStrategy = "TEAM_CLAIM"
	StrategySplitWork        ConflictStrategy = "SPLIT_WORK"
	StrategyMaintainerChoice ConflictStrategy = "MAINTAINER_CHOICE"
)

// WorkSplitTask is one slice of a split-work recommendation.
type WorkSplitTask struct {
	Task        string `json:"task"`
	Description string `json:"description"`
	Effort      string `json:"effort"`
}

// ConflictOutcome resolves two competing claimants.
type ConflictOutcome struct {
	Winner     ConflictWinner   `json:"winner"`
	Strategy   ConflictStrategy `json:"strategy"`
	Scores     ConflictScores   `json:"scores"`
	AllowBoth  bool             `json:"allow_both"`
	WorkSplit  []WorkSplitTask  `json:"work_split,omitempty"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
}

// ConflictScores carries the per-claimant priority scores.
type ConflictScores struct {
	Existing float64 `json:"existing"`
	New      float64 `json:"new"`
}
