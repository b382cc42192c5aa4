package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cookieguard/cookieguard/internal/errors"
	"github.com/cookieguard/cookieguard/internal/monitoring"
	"github.com/cookieguard/cookieguard/internal/resilience"
	"github.com/cookieguard/cookieguard/internal/types"
)

// ActivitySnapshot bundles everything a tracker reports about a
// claimant's work on one issue since the claim was registered.
type ActivitySnapshot struct {
	Commits      []types.Commit      `json:"commits"`
	PullRequests []types.PullRequest `json:"pull_requests"`
	Reviews      []types.Review      `json:"reviews"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

// ActivityProvider fetches claimant activity from an issue tracker.
type ActivityProvider interface {
	Name() string
	FetchActivity(ctx context.Context, owner, repo, claimant string, since time.Time) (*ActivitySnapshot, error)
}

// githubCommit mirrors the commits list API response
type githubCommit struct {
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// githubPull mirrors the pulls list API response
type githubPull struct {
	Number    int        `json:"number"`
	State     string     `json:"state"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
	Draft     bool       `json:"draft"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

// githubReview mirrors the pull reviews API response
type githubReview struct {
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// GitHubProvider fetches claimant activity from the GitHub REST API.
// Calls go through a circuit breaker and retry with backoff; when the
// breaker is open the service falls back to stored activity.
type GitHubProvider struct {
	token   string
	baseURL string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
}

// NewGitHubProvider creates a GitHub activity provider
func NewGitHubProvider(token string, logger *monitoring.Logger, metrics *monitoring.Metrics) *GitHubProvider {
	breaker := resilience.GetCircuitBreaker("github", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	return &GitHubProvider{
		token:   token,
		baseURL: "https://api.github.com",
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: breaker,
		logger:  logger,
		metrics: metrics,
	}
}

// Name identifies the provider in logs and metrics
func (g *GitHubProvider) Name() string {
	return "github"
}

// FetchActivity pulls the claimant's commits, pull requests and review
// engagement in the repository since the claim was registered.
func (g *GitHubProvider) FetchActivity(ctx context.Context, owner, repo, claimant string, since time.Time) (*ActivitySnapshot, error) {
	start := time.Now()

	snapshot := &ActivitySnapshot{FetchedAt: time.Now().UTC()}

	err := g.breaker.Call(func() error {
		commits, err := g.fetchCommits(ctx, owner, repo, claimant, since)
		if err != nil {
			return err
		}

		pulls, reviews, err := g.fetchPullsWithReviews(ctx, owner, repo, claimant)
		if err != nil {
			return err
		}

		snapshot.Commits = commits
		snapshot.PullRequests = pulls
		snapshot.Reviews = reviews
		return nil
	})

	if g.metrics != nil {
		g.metrics.RecordProviderRequest(g.Name(), err == nil)
	}
	if g.logger != nil {
		status := http.StatusOK
		if err != nil {
			status = http.StatusBadGateway
		}
		g.logger.ProviderLogger(g.Name(), "fetch_activity", status, time.Since(start), err == nil)
	}

	if err != nil {
		return nil, errors.NewProviderError(g.Name(), err)
	}

	return snapshot, nil
}

// fetchCommits lists the claimant's commits since the claim
func (g *GitHubProvider) fetchCommits(ctx context.Context, owner, repo, claimant string, since time.Time) ([]types.Commit, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits?author=%s&since=%s&per_page=100",
		g.baseURL, owner, repo, claimant, since.UTC().Format(time.RFC3339))

	var raw []githubCommit
	if err := g.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	commits := make([]types.Commit, 0, len(raw))
	for _, c := range raw {
		commits = append(commits, types.Commit{
			Message:   c.Commit.Message,
			Timestamp: c.Commit.Author.Date,
		})
	}

	return commits, nil
}

// fetchPullsWithReviews lists the claimant's open and recently closed
// pull requests plus review engagement on each.
func (g *GitHubProvider) fetchPullsWithReviews(ctx context.Context, owner, repo, claimant string) ([]types.PullRequest, []types.Review, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls?state=all&sort=updated&direction=desc&per_page=50",
		g.baseURL, owner, repo)

	var raw []githubPull
	if err := g.getJSON(ctx, url, &raw); err != nil {
		return nil, nil, err
	}

	var pulls []types.PullRequest
	var reviews []types.Review

	for _, p := range raw {
		if p.User.Login != claimant {
			continue
		}

		state := types.PRClosed
		if p.State == "open" {
			state = types.PROpen
		}

		pulls = append(pulls, types.PullRequest{
			Number:    p.Number,
			State:     state,
			Title:     p.Title,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
			MergedAt:  p.MergedAt,
		})

		review, err := g.fetchReview(ctx, owner, repo, p.Number)
		if err != nil {
			return nil, nil, err
		}
		if review != nil {
			reviews = append(reviews, *review)
		}
	}

	return pulls, reviews, nil
}

// fetchReview aggregates review activity on one pull request
func (g *GitHubProvider) fetchReview(ctx context.Context, owner, repo string, prNumber int) (*types.Review, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews?per_page=50", g.baseURL, owner, repo, prNumber)

	var raw []githubReview
	if err := g.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, nil
	}

	review := types.Review{PRNumber: prNumber}
	var last time.Time
	for _, r := range raw {
		review.Comments++
		if r.State == "APPROVED" {
			review.Approvals++
		}
		if r.SubmittedAt.After(last) {
			last = r.SubmittedAt
		}
	}
	if !last.IsZero() {
		review.LastActivity = &last
	}

	return &review, nil
}

// getJSON performs a GET with retry and decodes the JSON response
func (g *GitHubProvider) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := resilience.RetryHTTP(ctx, resilience.ProviderRetryPolicy.Config, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("User-Agent", "cookieguard/1.0")
		if g.token != "" {
			req.Header.Set("Authorization", "Bearer "+g.token)
		}

		return g.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode github response: %w", err)
	}

	return nil
}
