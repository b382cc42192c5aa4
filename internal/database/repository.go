package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cookieguard/cookieguard/internal/types"
)

// historyLimit caps how much claim history feeds the engine.
const historyLimit = 50

// Repository handles database operations for claims and activity
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

const claimColumns = `id, issue_id, repository_id, claimant_id, claimant_handle,
	claim_text, claimed_at, status, last_activity_at, nudges_sent,
	first_nudge_at, completed_at, release_reason`

func scanClaim(scanner interface{ Scan(...any) error }) (types.ClaimRecord, error) {
	var row claimRow
	err := scanner.Scan(
		&row.ID, &row.IssueID, &row.RepositoryID, &row.ClaimantID, &row.ClaimantHandle,
		&row.ClaimText, &row.ClaimedAt, &row.Status, &row.LastActivityAt, &row.NudgesSent,
		&row.FirstNudgeAt, &row.CompletedAt, &row.ReleaseReason,
	)
	if err != nil {
		return types.ClaimRecord{}, err
	}
	return row.toRecord(), nil
}

// CreateClaim registers a new ACTIVE claim. The caller is responsible for
// conflict checks; the insert itself does not enforce exclusivity.
func (r *Repository) CreateClaim(claim types.ClaimRecord) error {
	stmt, err := r.db.GetPreparedStatement("insert_claim")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(
		claim.ID, claim.IssueID, claim.RepositoryID, claim.ClaimantID,
		claim.ClaimantHandle, claim.ClaimText, claim.ClaimedAt, string(claim.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetClaim fetches one claim by ID
func (r *Repository) GetClaim(claimID string) (types.ClaimRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_claim")
	if err != nil {
		return types.ClaimRecord{}, err
	}

	claim, err := scanClaim(stmt.QueryRow(claimID))
	if err == sql.ErrNoRows {
		return types.ClaimRecord{}, fmt.Errorf("claim %s not found", claimID)
	}
	if err != nil {
		return types.ClaimRecord{}, fmt.Errorf("failed to get claim: %w", err)
	}

	return claim, nil
}

// GetActiveClaimByIssue returns the oldest ACTIVE claim on an issue, or
// sql.ErrNoRows wrapped when the issue is unclaimed.
func (r *Repository) GetActiveClaimByIssue(issueID string) (types.ClaimRecord, bool, error) {
	stmt, err := r.db.GetPreparedStatement("get_active_claim_by_issue")
	if err != nil {
		return types.ClaimRecord{}, false, err
	}

	claim, err := scanClaim(stmt.QueryRow(issueID))
	if err == sql.ErrNoRows {
		return types.ClaimRecord{}, false, nil
	}
	if err != nil {
		return types.ClaimRecord{}, false, fmt.Errorf("failed to query active claim: %w", err)
	}

	return claim, true, nil
}

// GetClaimHistory returns the claimant's most recent claims, newest first
func (r *Repository) GetClaimHistory(claimantID string) ([]types.ClaimRecord, error) {
	stmt, err := r.db.GetPreparedStatement("get_claim_history")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(claimantID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim history: %w", err)
	}
	defer rows.Close()

	history := []types.ClaimRecord{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		history = append(history, claim)
	}

	return history, rows.Err()
}

// UpdateClaimStatus transitions a claim and stamps the matching timestamp
func (r *Repository) UpdateClaimStatus(claimID string, status types.ClaimStatus, reason string) error {
	now := time.Now().UTC()

	var err error
	switch status {
	case types.ClaimCompleted:
		_, err = r.db.Exec(`UPDATE claims SET status = ?, completed_at = ?, release_reason = ? WHERE id = ?`,
			string(status), now, reason, claimID)
	case types.ClaimReleased, types.ClaimExpired:
		_, err = r.db.Exec(`UPDATE claims SET status = ?, release_reason = ? WHERE id = ?`,
			string(status), reason, claimID)
	default:
		_, err = r.db.Exec(`UPDATE claims SET status = ? WHERE id = ?`, string(status), claimID)
	}

	if err != nil {
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	return nil
}

// RecordNudge logs a scheduled nudge and bumps the claim's nudge counters
func (r *Repository) RecordNudge(claimID string, ordinal int, tone string, scheduledFor time.Time) error {
	stmt, err := r.db.GetPreparedStatement("insert_nudge")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := stmt.Exec(uuid.New().String(), claimID, ordinal, tone, scheduledFor, now); err != nil {
		return fmt.Errorf("failed to record nudge: %w", err)
	}

	// first_nudge_at is only stamped once.
	_, err = r.db.Exec(`UPDATE claims SET
		nudges_sent = nudges_sent + 1,
		first_nudge_at = COALESCE(first_nudge_at, ?)
		WHERE id = ?`, now, claimID)
	if err != nil {
		return fmt.Errorf("failed to update nudge counters: %w", err)
	}

	return nil
}

// RecordActivity appends an activity event and refreshes last_activity_at
func (r *Repository) RecordActivity(event *ActivityEvent) error {
	stmt, err := r.db.GetPreparedStatement("insert_activity")
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(event.ID, event.ClaimID, event.ClaimantID, event.Kind, event.Detail, event.OccurredAt); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	_, err = r.db.Exec(`UPDATE claims SET last_activity_at = ? WHERE id = ? AND (last_activity_at IS NULL OR last_activity_at < ?)`,
		event.OccurredAt, event.ClaimID, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to update last activity: %w", err)
	}

	return nil
}

// GetActivityTimestamps returns recent activity instants for a claimant,
// newest first, for the nudge scheduler's hour-of-day analysis.
func (r *Repository) GetActivityTimestamps(claimantID string, limit int) ([]time.Time, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}

	rows, err := r.db.Query(`SELECT occurred_at FROM activity_log
		WHERE claimant_id = ? ORDER BY occurred_at DESC LIMIT ?`, claimantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity timestamps: %w", err)
	}
	defer rows.Close()

	timestamps := []time.Time{}
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		timestamps = append(timestamps, t)
	}

	return timestamps, rows.Err()
}

// CountCompletedInRepo counts COMPLETED claims by a claimant in one
// repository, feeding the conflict resolver's contribution component.
func (r *Repository) CountCompletedInRepo(claimantID, repositoryID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM claims
		WHERE claimant_id = ? AND repository_id = ? AND status = 'COMPLETED'`,
		claimantID, repositoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed claims: %w", err)
	}
	return count, nil
}

// UpsertRepository stores repository metadata, replacing maintainers
func (r *Repository) UpsertRepository(repo types.RepositoryRecord) error {
	_, err := r.db.Exec(`INSERT INTO repositories (id, owner, name, maintainers, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner, name) DO UPDATE SET maintainers = excluded.maintainers`,
		repo.ID, repo.Owner, repo.Name, marshalStrings(repo.Maintainers), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert repository: %w", err)
	}
	return nil
}

// GetRepository fetches repository metadata by ID
func (r *Repository) GetRepository(repositoryID string) (types.RepositoryRecord, error) {
	var repo types.RepositoryRecord
	var maintainers string
	err := r.db.QueryRow(`SELECT id, owner, name, maintainers FROM repositories WHERE id = ?`,
		repositoryID).Scan(&repo.ID, &repo.Owner, &repo.Name, &maintainers)
	if err == sql.ErrNoRows {
		return types.RepositoryRecord{}, fmt.Errorf("repository %s not found", repositoryID)
	}
	if err != nil {
		return types.RepositoryRecord{}, fmt.Errorf("failed to get repository: %w", err)
	}
	repo.Maintainers = unmarshalStrings(maintainers)
	return repo, nil
}

// UpsertIssue stores issue metadata
func (r *Repository) UpsertIssue(repositoryID string, issue types.IssueRecord) error {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.Name)
	}

	now := time.Now().UTC()
	_, err := r.db.Exec(`INSERT INTO issues (id, repository_id, number, title, description, labels, watchers, comments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository_id, number) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			labels = excluded.labels,
			watchers = excluded.watchers,
			comments = excluded.comments,
			updated_at = excluded.updated_at`,
		issue.ID, repositoryID, issue.Number, issue.Title, issue.Description,
		marshalStrings(labels), issue.Watchers, issue.Comments, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert issue: %w", err)
	}
	return nil
}

// GetIssue fetches issue metadata by ID
func (r *Repository) GetIssue(issueID string) (types.IssueRecord, error) {
	var issue types.IssueRecord
	var labels string
	err := r.db.QueryRow(`SELECT id, number, title, description, labels, watchers, comments
		FROM issues WHERE id = ?`, issueID).Scan(
		&issue.ID, &issue.Number, &issue.Title, &issue.Description,
		&labels, &issue.Watchers, &issue.Comments)
	if err == sql.ErrNoRows {
		return types.IssueRecord{}, fmt.Errorf("issue %s not found", issueID)
	}
	if err != nil {
		return types.IssueRecord{}, fmt.Errorf("failed to get issue: %w", err)
	}

	for _, name := range unmarshalStrings(labels) {
		issue.Labels = append(issue.Labels, types.IssueLabel{Name: name})
	}
	return issue, nil
}
