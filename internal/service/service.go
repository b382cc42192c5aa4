// Package service wires the claim store, the activity provider and the
// scoring engine into the operations the API exposes. All mutations on
// one claim serialize through a keyed lock.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cookieguard/cookieguard/internal/adapters"
	"github.com/cookieguard/cookieguard/internal/database"
	"github.com/cookieguard/cookieguard/internal/engine"
	"github.com/cookieguard/cookieguard/internal/errors"
	"github.com/cookieguard/cookieguard/internal/locks"
	"github.com/cookieguard/cookieguard/internal/monitoring"
	"github.com/cookieguard/cookieguard/internal/types"
)

// Service orchestrates claim lifecycle decisions.
type Service struct {
	repo     *database.Repository
	provider adapters.ActivityProvider
	engine   *engine.Engine
	locks    *locks.KeyedMutex
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
}

// NewService creates the orchestrator. The provider may be nil; the
// service then evaluates progress from stored activity only.
func NewService(repo *database.Repository, provider adapters.ActivityProvider, eng *engine.Engine, logger *monitoring.Logger, metrics *monitoring.Metrics) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		engine:   eng,
		locks:    locks.NewKeyedMutex(),
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterClaimRequest carries a new claim attempt.
type RegisterClaimRequest struct {
	IssueID        string `json:"issue_id" binding:"required"`
	RepositoryID   string `json:"repository_id" binding:"required"`
	ClaimantID     string `json:"claimant_id" binding:"required"`
	ClaimantHandle string `json:"claimant_handle" binding:"required"`
	ClaimText      string `json:"claim_text"`
}

// ClaimDecision is the outcome of a claim registration attempt.
type ClaimDecision struct {
	Accepted   bool                     `json:"accepted"`
	Claim      *types.ClaimRecord       `json:"claim,omitempty"`
	Reputation types.ReputationScore    `json:"reputation"`
	Behavior   types.BehavioralAnalysis `json:"behavior"`
	Conflict   *types.ConflictOutcome   `json:"conflict,omitempty"`
	Reason     string                   `json:"reason,omitempty"`
}

// Evaluation is the full assessment of an active claim.
type Evaluation struct {
	Claim       types.ClaimRecord        `json:"claim"`
	Reputation  types.ReputationScore    `json:"reputation"`
	Progress    types.ProgressAssessment `json:"progress"`
	Behavior    types.BehavioralAnalysis `json:"behavior"`
	Nudge       *types.NudgePlan         `json:"nudge,omitempty"`
	Release     types.ReleaseDecision    `json:"release"`
	EvaluatedAt time.Time                `json:"evaluated_at"`
}

// RegisterClaim gates a new claim on behavior and reputation checks and
// resolves conflicts against any incumbent claim on the same issue.
func (s *Service) RegisterClaim(ctx context.Context, req RegisterClaimRequest) (*ClaimDecision, error) {
	s.locks.Lock(req.IssueID)
	defer s.locks.Unlock(req.IssueID)

	issue, err := s.repo.GetIssue(req.IssueID)
	if err != nil {
		return nil, errors.NewNotFoundError("issue", req.IssueID)
	}

	history, err := s.repo.GetClaimHistory(req.ClaimantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load claim history", err)
	}

	now := time.Now().UTC()

	reputation := s.engine.Reputation(engine.ReputationInput{
		ClaimantID:     req.ClaimantID,
		ClaimantHandle: req.ClaimantHandle,
		History:        history,
		Now:            now,
	})
	s.recordDecision("reputation", "", reputation.OverallScore, string(reputation.Tier))

	behavior := s.engine.AnalyzeBehavior(engine.BehaviorInput{
		ClaimantID:     req.ClaimantID,
		ClaimantHandle: req.ClaimantHandle,
		ClaimText:      req.ClaimText,
		Issue:          issue,
		History:        history,
		Now:            now,
	})
	s.recordDecision("behavior", "", behavior.FraudScore, string(behavior.BehaviorType))

	decision := &ClaimDecision{
		Reputation: reputation,
		Behavior:   behavior,
	}

	if behavior.IsSuspicious && s.metrics != nil {
		s.metrics.IncrementSuspiciousFlagged()
	}
	if behavior.IsSuspicious && s.logger != nil {
		s.logger.BehaviorAlertLogger(req.ClaimantID, string(behavior.BehaviorType), behavior.FraudScore, behavior.Anomalies)
	}

	if s.engine.BehaviorBlocksClaim(behavior) {
		if s.metrics != nil {
			s.metrics.IncrementClaimBlocked()
		}
		decision.Reason = fmt.Sprintf("claim blocked: %s behavior", behavior.BehaviorType)
		return decision, nil
	}

	if s.engine.ShouldBlockClaim(reputation) {
		if s.metrics != nil {
			s.metrics.IncrementClaimBlocked()
		}
		decision.Reason = "claim blocked: claimant reliability tier"
		return decision, nil
	}

	existing, found, err := s.repo.GetActiveClaimByIssue(req.IssueID)
	if err != nil {
		return nil, errors.NewInternalError("failed to check active claim", err)
	}

	if found {
		outcome, err := s.resolveConflict(existing, reputation, req, issue, now)
		if err != nil {
			return nil, err
		}
		decision.Conflict = outcome

		if outcome.Winner == types.WinnerExisting && !outcome.AllowBoth {
			decision.Reason = outcome.Reasoning
			return decision, nil
		}
		if outcome.Winner == types.WinnerNew && !outcome.AllowBoth {
			if err := s.repo.UpdateClaimStatus(existing.ID, types.ClaimReleased, "superseded by higher priority claim"); err != nil {
				return nil, errors.NewInternalError("failed to release superseded claim", err)
			}
		}
	}

	claim := database.NewClaimRecord(req.IssueID, req.RepositoryID, req.ClaimantID, req.ClaimantHandle, req.ClaimText)
	if err := s.repo.CreateClaim(claim); err != nil {
		return nil, errors.NewInternalError("failed to create claim", err)
	}

	decision.Accepted = true
	decision.Claim = &claim
	return decision, nil
}

// resolveConflict scores the incumbent against the challenger
func (s *Service) resolveConflict(existing types.ClaimRecord, newRep types.ReputationScore, req RegisterClaimRequest, issue types.IssueRecord, now time.Time) (*types.ConflictOutcome, error) {
	existingHistory, err := s.repo.GetClaimHistory(existing.ClaimantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load incumbent history", err)
	}

	existingRep := s.engine.Reputation(engine.ReputationInput{
		ClaimantID:     existing.ClaimantID,
		ClaimantHandle: existing.ClaimantHandle,
		History:        existingHistory,
		Now:            now,
	})

	repository, err := s.repo.GetRepository(req.RepositoryID)
	if err != nil {
		return nil, errors.NewNotFoundError("repository", req.RepositoryID)
	}

	existingCompleted, err := s.repo.CountCompletedInRepo(existing.ClaimantID, req.RepositoryID)
	if err != nil {
		return nil, errors.NewInternalError("failed to count incumbent completions", err)
	}
	newCompleted, err := s.repo.CountCompletedInRepo(req.ClaimantID, req.RepositoryID)
	if err != nil {
		return nil, errors.NewInternalError("failed to count challenger completions", err)
	}

	outcome := s.engine.ResolveConflict(engine.ConflictInput{
		ExistingClaim:      existing,
		ExistingReputation: existingRep,
		NewReputation:      newRep,
		NewClaimantHandle:  req.ClaimantHandle,
		NewClaimText:       req.ClaimText,
		Issue:              issue,
		Repository:         repository,
		ExistingCompleted:  existingCompleted,
		NewCompleted:       newCompleted,
		Now:                now,
	})
	s.recordDecision("conflict", existing.ID, outcome.Confidence, string(outcome.Strategy))

	return &outcome, nil
}

// EvaluateClaim runs the full assessment pipeline on one claim.
func (s *Service) EvaluateClaim(ctx context.Context, claimID string) (*Evaluation, error) {
	s.locks.Lock(claimID)
	defer s.locks.Unlock(claimID)

	claim, err := s.repo.GetClaim(claimID)
	if err != nil {
		return nil, errors.NewNotFoundError("claim", claimID)
	}

	issue, err := s.repo.GetIssue(claim.IssueID)
	if err != nil {
		return nil, errors.NewNotFoundError("issue", claim.IssueID)
	}

	history, err := s.repo.GetClaimHistory(claim.ClaimantID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load claim history", err)
	}

	now := time.Now().UTC()
	start := time.Now()

	reputation := s.engine.Reputation(engine.ReputationInput{
		ClaimantID:     claim.ClaimantID,
		ClaimantHandle: claim.ClaimantHandle,
		History:        history,
		Now:            now,
	})

	complexity := s.engine.ClassifyComplexity(issue)
	snapshot := s.fetchActivity(ctx, claim)

	progress := s.engine.AnalyzeProgress(engine.ProgressInput{
		ClaimedAt:  claim.ClaimedAt,
		Commits:    snapshot.Commits,
		PRs:        snapshot.PullRequests,
		Reviews:    snapshot.Reviews,
		Complexity: complexity,
		Now:        now,
	})

	behavior := s.engine.AnalyzeBehavior(engine.BehaviorInput{
		ClaimantID:     claim.ClaimantID,
		ClaimantHandle: claim.ClaimantHandle,
		ClaimText:      claim.ClaimText,
		Issue:          issue,
		History:        history,
		Now:            now,
	})

	s.recordDecision("progress", claim.ID, progress.ProgressScore, fmt.Sprintf("velocity %.2f", progress.Velocity))
	s.recordDecision("behavior", claim.ID, behavior.FraudScore, string(behavior.BehaviorType))

	release := s.engine.PredictRelease(engine.ReleaseInput{
		Claim:      claim,
		Issue:      issue,
		Reputation: reputation,
		Progress:   progress,
		Now:        now,
	})
	if release.ShouldRelease && s.metrics != nil {
		s.metrics.IncrementReleaseRecommended()
	}

	eval := &Evaluation{
		Claim:       claim,
		Reputation:  reputation,
		Progress:    progress,
		Behavior:    behavior,
		Release:     release,
		EvaluatedAt: now,
	}

	if !s.engine.SkipNudge(progress, reputation) {
		plan := s.planNudge(claim, reputation, "")
		eval.Nudge = &plan
	}

	s.recordDecision("release", claim.ID, release.Confidence, string(release.Action))
	if s.logger != nil {
		s.logger.DecisionLogger("evaluation", claim.ID, progress.ProgressScore, string(release.Action), time.Since(start))
	}

	return eval, nil
}

// fetchActivity pulls fresh activity from the provider, degrading to an
// empty snapshot when the provider is down or not configured.
func (s *Service) fetchActivity(ctx context.Context, claim types.ClaimRecord) *adapters.ActivitySnapshot {
	if s.provider == nil {
		return &adapters.ActivitySnapshot{FetchedAt: time.Now().UTC()}
	}

	repository, err := s.repo.GetRepository(claim.RepositoryID)
	if err != nil {
		return &adapters.ActivitySnapshot{FetchedAt: time.Now().UTC()}
	}

	if s.metrics != nil {
		s.metrics.IncrementProviderCalls()
	}

	snapshot, err := s.provider.FetchActivity(ctx, repository.Owner, repository.Name, claim.ClaimantHandle, claim.ClaimedAt)
	if err != nil {
		if s.logger != nil {
			s.logger.SystemLogger("provider_degraded", fmt.Sprintf("activity fetch failed for claim %s: %v", claim.ID, err))
		}
		return &adapters.ActivitySnapshot{FetchedAt: time.Now().UTC()}
	}

	for _, c := range snapshot.Commits {
		event := database.NewActivityEvent(claim.ID, claim.ClaimantID, "commit", c.Message, c.Timestamp)
		if err := s.repo.RecordActivity(event); err != nil && s.logger != nil {
			s.logger.SystemLogger("activity_record_failed", err.Error())
		}
	}

	return snapshot
}

// Reputation evaluates a claimant's historical reliability.
func (s *Service) Reputation(ctx context.Context, claimantID, claimantHandle string) (types.ReputationScore, error) {
	history, err := s.repo.GetClaimHistory(claimantID)
	if err != nil {
		return types.ReputationScore{}, errors.NewInternalError("failed to load claim history", err)
	}

	rep := s.engine.Reputation(engine.ReputationInput{
		ClaimantID:     claimantID,
		ClaimantHandle: claimantHandle,
		History:        history,
		Now:            time.Now().UTC(),
	})
	s.recordDecision("reputation", "", rep.OverallScore, string(rep.Tier))

	return rep, nil
}

// ScheduleNudge plans the next nudge for a claim and records it. The
// engine can veto the nudge when progress or tier warrants patience.
func (s *Service) ScheduleNudge(ctx context.Context, claimID, timezone string) (*types.NudgePlan, string, error) {
	s.locks.Lock(claimID)
	defer s.locks.Unlock(claimID)

	claim, err := s.repo.GetClaim(claimID)
	if err != nil {
		return nil, "", errors.NewNotFoundError("claim", claimID)
	}

	issue, err := s.repo.GetIssue(claim.IssueID)
	if err != nil {
		return nil, "", errors.NewNotFoundError("issue", claim.IssueID)
	}

	history, err := s.repo.GetClaimHistory(claim.ClaimantID)
	if err != nil {
		return nil, "", errors.NewInternalError("failed to load claim history", err)
	}

	now := time.Now().UTC()
	reputation := s.engine.Reputation(engine.ReputationInput{
		ClaimantID:     claim.ClaimantID,
		ClaimantHandle: claim.ClaimantHandle,
		History:        history,
		Now:            now,
	})

	plan := s.planNudge(claim, reputation, timezone)

	if err := s.repo.RecordNudge(claim.ID, claim.NudgesSent+1, string(plan.Tone), plan.SendAtUTC); err != nil {
		return nil, "", errors.NewInternalError("failed to record nudge", err)
	}

	if s.logger != nil {
		s.logger.NudgeLogger(claim.ID, claim.NudgesSent+1, string(plan.Tone), plan.SendAtUTC)
	}

	message := engine.RenderNudgeMessage(plan.Tone, engine.MessageContext{
		Handle:           claim.ClaimantHandle,
		IssueTitle:       issue.Title,
		DaysSinceClaim:   int(now.Sub(claim.ClaimedAt).Hours() / 24),
		ProgressDetected: claim.LastActivityAt != nil,
	})

	return &plan, message, nil
}

// planNudge computes the plan without recording it
func (s *Service) planNudge(claim types.ClaimRecord, reputation types.ReputationScore, timezone string) types.NudgePlan {
	timestamps, err := s.repo.GetActivityTimestamps(claim.ClaimantID, 50)
	if err != nil {
		timestamps = nil
	}

	plan := s.engine.ScheduleNudge(engine.NudgeInput{
		NudgeOrdinal:       claim.NudgesSent + 1,
		GraceDays:          reputation.RecommendedGraceDays,
		ActivityTimestamps: timestamps,
		Timezone:           timezone,
		Now:                time.Now().UTC(),
	})
	s.recordDecision("nudge", claim.ID, plan.Confidence, string(plan.Tone))

	return plan
}

// ReleaseClaim applies a release decision or a maintainer override.
func (s *Service) ReleaseClaim(ctx context.Context, claimID, reason string) (types.ClaimRecord, error) {
	s.locks.Lock(claimID)
	defer s.locks.Unlock(claimID)

	claim, err := s.repo.GetClaim(claimID)
	if err != nil {
		return types.ClaimRecord{}, errors.NewNotFoundError("claim", claimID)
	}

	if claim.Status != types.ClaimActive {
		return types.ClaimRecord{}, errors.NewValidationError(
			fmt.Sprintf("claim %s is %s, only ACTIVE claims can be released", claimID, claim.Status))
	}

	if reason == "" {
		reason = "released by maintainer"
	}

	if err := s.repo.UpdateClaimStatus(claimID, types.ClaimReleased, reason); err != nil {
		return types.ClaimRecord{}, errors.NewInternalError("failed to release claim", err)
	}

	if s.logger != nil {
		s.logger.SystemLogger("claim_released", fmt.Sprintf("claim %s released: %s", claimID, reason))
	}

	return s.repo.GetClaim(claimID)
}

// CompleteClaim marks a claim COMPLETED.
func (s *Service) CompleteClaim(ctx context.Context, claimID string) (types.ClaimRecord, error) {
	s.locks.Lock(claimID)
	defer s.locks.Unlock(claimID)

	claim, err := s.repo.GetClaim(claimID)
	if err != nil {
		return types.ClaimRecord{}, errors.NewNotFoundError("claim", claimID)
	}

	if claim.Status != types.ClaimActive {
		return types.ClaimRecord{}, errors.NewValidationError(
			fmt.Sprintf("claim %s is %s, only ACTIVE claims can be completed", claimID, claim.Status))
	}

	if err := s.repo.UpdateClaimStatus(claimID, types.ClaimCompleted, "completed"); err != nil {
		return types.ClaimRecord{}, errors.NewInternalError("failed to complete claim", err)
	}

	return s.repo.GetClaim(claimID)
}

// recordDecision funnels engine outcomes into metrics
func (s *Service) recordDecision(component, claimID string, score float64, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDecision(component)
	}
	if s.logger != nil && claimID != "" {
		s.logger.DecisionLogger(component, claimID, score, outcome, 0)
	}
}
