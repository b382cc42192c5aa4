package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cookieguard/cookieguard/internal/types"
)

// claimRow is the scan target for the claims table. Nullable columns use
// sql.Null* and convert to pointers on the way out.
type claimRow struct {
	ID             string
	IssueID        string
	RepositoryID   string
	ClaimantID     string
	ClaimantHandle string
	ClaimText      sql.NullString
	ClaimedAt      time.Time
	Status         string
	LastActivityAt sql.NullTime
	NudgesSent     int
	FirstNudgeAt   sql.NullTime
	CompletedAt    sql.NullTime
	ReleaseReason  sql.NullString
}

func (r claimRow) toRecord() types.ClaimRecord {
	rec := types.ClaimRecord{
		ID:             r.ID,
		IssueID:        r.IssueID,
		RepositoryID:   r.RepositoryID,
		ClaimantID:     r.ClaimantID,
		ClaimantHandle: r.ClaimantHandle,
		ClaimText:      r.ClaimText.String,
		ClaimedAt:      r.ClaimedAt,
		Status:         types.ClaimStatus(r.Status),
		NudgesSent:     r.NudgesSent,
		ReleaseReason:  r.ReleaseReason.String,
	}
	if r.LastActivityAt.Valid {
		t := r.LastActivityAt.Time
		rec.LastActivityAt = &t
	}
	if r.FirstNudgeAt.Valid {
		t := r.FirstNudgeAt.Time
		rec.FirstNudgeAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		rec.CompletedAt = &t
	}
	return rec
}

// ActivityEvent is one row in the activity log
type ActivityEvent struct {
	ID         string    `json:"id"`
	ClaimID    string    `json:"claim_id"`
	ClaimantID string    `json:"claimant_id"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NudgeLogEntry records one dispatched or scheduled nudge
type NudgeLogEntry struct {
	ID           string    `json:"id"`
	ClaimID      string    `json:"claim_id"`
	Ordinal      int       `json:"ordinal"`
	Tone         string    `json:"tone"`
	ScheduledFor time.Time `json:"scheduled_for"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewClaimRecord builds an ACTIVE claim with a generated ID
func NewClaimRecord(issueID, repoID, claimantID, claimantHandle, claimText string) types.ClaimRecord {
	return types.ClaimRecord{
		ID:             uuid.New().String(),
		IssueID:        issueID,
		RepositoryID:   repoID,
		ClaimantID:     claimantID,
		ClaimantHandle: claimantHandle,
		ClaimText:      claimText,
		ClaimedAt:      time.Now().UTC(),
		Status:         types.ClaimActive,
	}
}

// NewActivityEvent builds an activity log row with a generated ID
func NewActivityEvent(claimID, claimantID, kind, detail string, occurredAt time.Time) *ActivityEvent {
	return &ActivityEvent{
		ID:         uuid.New().String(),
		ClaimID:    claimID,
		ClaimantID: claimantID,
		Kind:       kind,
		Detail:     detail,
		OccurredAt: occurredAt,
	}
}

// marshalStrings encodes a string slice as the JSON stored in TEXT columns
func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalStrings decodes a JSON TEXT column back to a slice
func unmarshalStrings(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}
