package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieguard/cookieguard/internal/types"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)

	require.NoError(t, repo.UpsertRepository(types.RepositoryRecord{
		ID:          "repo-1",
		Owner:       "octo",
		Name:        "widgets",
		Maintainers: []string{"jane", "sam"},
	}))
	require.NoError(t, repo.UpsertIssue("repo-1", types.IssueRecord{
		ID:          "issue-1",
		Number:      42,
		Title:       "Broken login flow",
		Description: "Login fails on mobile",
		Labels:      []types.IssueLabel{{Name: "bug"}},
		Watchers:    3,
		Comments:    2,
	}))

	return repo
}

func TestClaimRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	claim := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "I can take this")
	require.NoError(t, repo.CreateClaim(claim))

	got, err := repo.GetClaim(claim.ID)
	require.NoError(t, err)

	assert.Equal(t, claim.ID, got.ID)
	assert.Equal(t, "alice-id", got.ClaimantID)
	assert.Equal(t, "alice", got.ClaimantHandle)
	assert.Equal(t, types.ClaimActive, got.Status)
	assert.Equal(t, 0, got.NudgesSent)
	assert.Nil(t, got.LastActivityAt)
	assert.Nil(t, got.CompletedAt)
}

func TestGetClaimNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetClaim("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetActiveClaimByIssue(t *testing.T) {
	repo := newTestRepo(t)

	_, found, err := repo.GetActiveClaimByIssue("issue-1")
	require.NoError(t, err)
	assert.False(t, found)

	first := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "")
	first.ClaimedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.CreateClaim(first))

	second := NewClaimRecord("issue-1", "repo-1", "bob-id", "bob", "")
	require.NoError(t, repo.CreateClaim(second))

	// Oldest ACTIVE claim wins.
	got, found, err := repo.GetActiveClaimByIssue("issue-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, repo.UpdateClaimStatus(first.ID, types.ClaimReleased, "stale"))

	got, found, err = repo.GetActiveClaimByIssue("issue-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.ID, got.ID)
}

func TestGetClaimHistoryNewestFirst(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Now().UTC().Add(-10 * 24 * time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		claim := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "")
		claim.ClaimedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, repo.CreateClaim(claim))
		ids = append(ids, claim.ID)
	}

	history, err := repo.GetClaimHistory("alice-id")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].ID)
	assert.Equal(t, ids[0], history[2].ID)

	other, err := repo.GetClaimHistory("bob-id")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUpdateClaimStatusStampsTimestamps(t *testing.T) {
	repo := newTestRepo(t)

	claim := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "")
	require.NoError(t, repo.CreateClaim(claim))

	require.NoError(t, repo.UpdateClaimStatus(claim.ID, types.ClaimCompleted, "merged"))

	got, err := repo.GetClaim(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ClaimCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "merged", got.ReleaseReason)
}

func TestRecordNudgeIncrementsCounters(t *testing.T) {
	repo := newTestRepo(t)

	claim := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "")
	require.NoError(t, repo.CreateClaim(claim))

	sendAt := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, repo.RecordNudge(claim.ID, 1, "FRIENDLY", sendAt))

	got, err := repo.GetClaim(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NudgesSent)
	require.NotNil(t, got.FirstNudgeAt)
	firstNudge := *got.FirstNudgeAt

	require.NoError(t, repo.RecordNudge(claim.ID, 2, "PROFESSIONAL", sendAt.Add(48*time.Hour)))

	got, err = repo.GetClaim(claim.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NudgesSent)
	assert.True(t, got.FirstNudgeAt.Equal(firstNudge), "first_nudge_at is stamped once")
}

func TestRecordActivityMonotonicLastActivity(t *testing.T) {
	repo := newTestRepo(t)

	claim := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "")
	require.NoError(t, repo.CreateClaim(claim))

	recent := time.Now().UTC().Truncate(time.Second)
	older := recent.Add(-24 * time.Hour)

	require.NoError(t, repo.RecordActivity(NewActivityEvent(claim.ID, "alice-id", "commit", "Implement parser", recent)))
	require.NoError(t, repo.RecordActivity(NewActivityEvent(claim.ID, "alice-id", "commit", "Earlier work", older)))

	got, err := repo.GetClaim(claim.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastActivityAt)
	assert.True(t, got.LastActivityAt.Equal(recent), "older events never move last_activity_at backwards")

	timestamps, err := repo.GetActivityTimestamps("alice-id", 10)
	require.NoError(t, err)
	require.Len(t, timestamps, 2)
	assert.True(t, timestamps[0].After(timestamps[1]), "newest first")
}

func TestCountCompletedInRepo(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		claim := NewClaimRecord("issue-1", "repo-1", "alice-id", "alice", "")
		require.NoError(t, repo.CreateClaim(claim))
		if i < 2 {
			require.NoError(t, repo.UpdateClaimStatus(claim.ID, types.ClaimCompleted, ""))
		}
	}

	count, err := repo.CountCompletedInRepo("alice-id", "repo-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountCompletedInRepo("alice-id", "other-repo")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRepositoryAndIssueRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	repoRecord, err := repo.GetRepository("repo-1")
	require.NoError(t, err)
	assert.Equal(t, "octo", repoRecord.Owner)
	assert.Equal(t, []string{"jane", "sam"}, repoRecord.Maintainers)

	issue, err := repo.GetIssue("issue-1")
	require.NoError(t, err)
	assert.Equal(t, 42, issue.Number)
	assert.Equal(t, "Broken login flow", issue.Title)
	require.Len(t, issue.Labels, 1)
	assert.Equal(t, "bug", issue.Labels[0].Name)

	// Upserting the same issue number updates in place.
	require.NoError(t, repo.UpsertIssue("repo-1", types.IssueRecord{
		ID:       "issue-1",
		Number:   42,
		Title:    "Broken login flow on mobile",
		Watchers: 5,
	}))

	issue, err = repo.GetIssue("issue-1")
	require.NoError(t, err)
	assert.Equal(t, "Broken login flow on mobile", issue.Title)
	assert.Equal(t, 5, issue.Watchers)
}
