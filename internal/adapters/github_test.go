package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieguard/cookieguard/internal/monitoring"
	"github.com/cookieguard/cookieguard/internal/types"
)

func newTestProvider(t *testing.T, handler http.Handler) *GitHubProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := NewGitHubProvider("test_token", monitoring.NewLogger(), monitoring.NewMetrics())
	provider.baseURL = server.URL
	provider.breaker.Reset()

	return provider
}

func TestGitHubProviderFetchActivity(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/octo/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("author"))
		assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[
			{"commit": {"message": "Implement retry queue", "author": {"date": "2025-06-01T10:00:00Z"}}},
			{"commit": {"message": "Add tests for retry queue", "author": {"date": "2025-06-01T14:00:00Z"}}}
		]`)
	})

	mux.HandleFunc("/repos/octo/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"number": 7, "state": "open", "title": "Retry queue", "user": {"login": "alice"},
			 "created_at": "2025-06-01T15:00:00Z", "updated_at": "2025-06-01T16:00:00Z", "merged_at": null},
			{"number": 8, "state": "open", "title": "Unrelated", "user": {"login": "bob"},
			 "created_at": "2025-06-01T15:00:00Z", "updated_at": "2025-06-01T16:00:00Z", "merged_at": null}
		]`)
	})

	mux.HandleFunc("/repos/octo/widgets/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"state": "COMMENTED", "submitted_at": "2025-06-01T17:00:00Z"},
			{"state": "APPROVED", "submitted_at": "2025-06-01T18:00:00Z"}
		]`)
	})

	provider := newTestProvider(t, mux)

	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	snapshot, err := provider.FetchActivity(context.Background(), "octo", "widgets", "alice", since)
	require.NoError(t, err)

	require.Len(t, snapshot.Commits, 2)
	assert.Equal(t, "Implement retry queue", snapshot.Commits[0].Message)

	// Bob's PR is filtered out.
	require.Len(t, snapshot.PullRequests, 1)
	assert.Equal(t, 7, snapshot.PullRequests[0].Number)
	assert.Equal(t, types.PROpen, snapshot.PullRequests[0].State)
	assert.Nil(t, snapshot.PullRequests[0].MergedAt)

	require.Len(t, snapshot.Reviews, 1)
	assert.Equal(t, 7, snapshot.Reviews[0].PRNumber)
	assert.Equal(t, 2, snapshot.Reviews[0].Comments)
	assert.Equal(t, 1, snapshot.Reviews[0].Approvals)
	require.NotNil(t, snapshot.Reviews[0].LastActivity)
	assert.Equal(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), snapshot.Reviews[0].LastActivity.UTC())
}

func TestGitHubProviderMergedPR(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/octo/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/repos/octo/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"number": 12, "state": "closed", "title": "Fix flaky watcher", "user": {"login": "alice"},
			 "created_at": "2025-05-28T09:00:00Z", "updated_at": "2025-05-30T09:00:00Z",
			 "merged_at": "2025-05-30T09:00:00Z"}
		]`)
	})
	mux.HandleFunc("/repos/octo/widgets/pulls/12/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	provider := newTestProvider(t, mux)

	snapshot, err := provider.FetchActivity(context.Background(), "octo", "widgets", "alice", time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)

	require.Len(t, snapshot.PullRequests, 1)
	assert.Equal(t, types.PRClosed, snapshot.PullRequests[0].State)
	require.NotNil(t, snapshot.PullRequests[0].MergedAt)
	assert.Empty(t, snapshot.Reviews, "PRs without reviews contribute no review records")
}

func TestGitHubProviderAPIError(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 404 is not retryable, so the call fails fast.
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	}))

	_, err := provider.FetchActivity(context.Background(), "octo", "missing", "alice", time.Now())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "github"))
}

func TestGitHubProviderName(t *testing.T) {
	provider := NewGitHubProvider("", nil, nil)
	assert.Equal(t, "github", provider.Name())
}
