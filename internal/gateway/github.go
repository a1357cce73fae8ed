// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/github-activity/internal/config"
	"github.com/naka-gawa/github-activity/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

var (
	// ErrMalformedBody is reported when a successful response cannot be parsed
	// into the expected shape.
	ErrMalformedBody = errors.New("malformed response body")
	// ErrMalformedRepository is reported when a listing entry is not an object
	// or carries no name.
	ErrMalformedRepository = errors.New("malformed repository entry")
)

// StatusError is reported for a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Repository is the subset of a listing entry the aggregation needs.
type Repository struct {
	Name  string
	Stars int
	Forks int
}

// RepositoryListing is the outcome of the listing call. Exactly one of
// Repositories and Failure is meaningful.
type RepositoryListing struct {
	Repositories []Repository
	Failure      *domain.ErrorPayload
}

// CommitCountResult is either a commit total or the reason it is unknown.
type CommitCountResult struct {
	Count int
	Err   error
}

// LanguagesResult is either the language names, in the order the API
// returned them, or the reason they are unknown.
type LanguagesResult struct {
	Names []string
	Err   error
}

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	ListRepositories(ctx context.Context, username string) (*RepositoryListing, error)
	FetchCommitCount(ctx context.Context, owner, repo string) CommitCountResult
	FetchLanguages(ctx context.Context, owner, repo string) LanguagesResult
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	commitSource  string
	logger        zerolog.Logger
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(cfg config.GitHub, logger zerolog.Logger) (*GitHubGateway, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if cfg.SecondaryRateLimitWait > 0 {
		rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(transport, github_ratelimit.WithSingleSleepLimit(cfg.SecondaryRateLimitWait, nil))
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
		}
		transport = rateLimitWaiter
	}
	transport = &loggingRoundTripper{base: transport, logger: logger}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		transport = &oauth2.Transport{Base: transport, Source: ts}
	}
	httpClient := &http.Client{Transport: transport, Timeout: cfg.Timeout}

	restClient := github.NewClient(httpClient)
	if cfg.APIURL != "" {
		baseURL, err := url.Parse(cfg.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.APIURL, err)
		}
		restClient.BaseURL = baseURL
	}

	graphqlURL := cfg.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = config.DefaultGraphQLURL(restClient.BaseURL.String())
	}

	commitSource := cfg.CommitSource
	if commitSource == "" {
		commitSource = config.CommitSourceREST
	}

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: githubv4.NewEnterpriseClient(graphqlURL, httpClient),
		commitSource:  commitSource,
		logger:        logger,
	}, nil
}

// ListRepositories fetches the repositories owned by username.
//
// A non-2xx status or a body that is valid JSON but not an array is reported
// through RepositoryListing.Failure. Transport failures, invalid JSON and
// malformed entries are returned as errors.
func (g *GitHubGateway) ListRepositories(ctx context.Context, username string) (*RepositoryListing, error) {
	g.logger.Debug().Str("user", username).Msg("Fetching repository listing...")
	resp, err := g.get(ctx, fmt.Sprintf("users/%s/repos", url.PathEscape(username)))
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	if !resp.ok() {
		return &RepositoryListing{Failure: &domain.ErrorPayload{
			Error:   fmt.Sprintf("GitHub API error: %d", resp.statusCode),
			Message: errorMessage(resp.body),
		}}, nil
	}

	if !gjson.ValidBytes(resp.body) {
		return nil, fmt.Errorf("failed to decode repository listing: %w", ErrMalformedBody)
	}
	parsed := gjson.ParseBytes(resp.body)
	if !parsed.IsArray() {
		return &RepositoryListing{Failure: &domain.ErrorPayload{
			Error: "Unexpected API response format",
			Data:  json.RawMessage(resp.body),
		}}, nil
	}

	entries := parsed.Array()
	repos := make([]Repository, 0, len(entries))
	for i, entry := range entries {
		name := entry.Get("name")
		if !entry.IsObject() || name.Type != gjson.String {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrMalformedRepository, i)
		}
		repos = append(repos, Repository{
			Name:  name.String(),
			Stars: int(entry.Get("stargazers_count").Int()),
			Forks: int(entry.Get("forks_count").Int()),
		})
	}
	g.logger.Debug().Int("count", len(repos)).Msg("Completed fetching repository listing.")
	return &RepositoryListing{Repositories: repos}, nil
}

// FetchCommitCount returns the best-effort commit total of owner/repo using
// the configured commit source.
func (g *GitHubGateway) FetchCommitCount(ctx context.Context, owner, repo string) CommitCountResult {
	if g.commitSource == config.CommitSourceGraphQL {
		return g.fetchCommitCountGraphQL(ctx, owner, repo)
	}
	return g.fetchCommitCountREST(ctx, owner, repo)
}

// fetchCommitCountREST lists commits one per page, so the number of the last
// page is the commit total. Without a last-page link the page itself is counted.
func (g *GitHubGateway) fetchCommitCountREST(ctx context.Context, owner, repo string) CommitCountResult {
	resp, err := g.get(ctx, fmt.Sprintf("repos/%s/%s/commits?per_page=1", url.PathEscape(owner), url.PathEscape(repo)))
	if err != nil {
		return CommitCountResult{Err: err}
	}
	if !resp.ok() {
		return CommitCountResult{Err: &StatusError{StatusCode: resp.statusCode}}
	}

	if link := resp.header.Get("Link"); link != "" {
		if last, ok := parseLastPage(link); ok {
			return CommitCountResult{Count: last}
		}
	}

	if !gjson.ValidBytes(resp.body) {
		return CommitCountResult{Err: fmt.Errorf("failed to decode commit page: %w", ErrMalformedBody)}
	}
	page := gjson.ParseBytes(resp.body)
	if !page.IsArray() {
		return CommitCountResult{Err: fmt.Errorf("commit page is not a list: %w", ErrMalformedBody)}
	}
	return CommitCountResult{Count: len(page.Array())}
}

// FetchLanguages returns the language names of owner/repo.
func (g *GitHubGateway) FetchLanguages(ctx context.Context, owner, repo string) LanguagesResult {
	resp, err := g.get(ctx, fmt.Sprintf("repos/%s/%s/languages", url.PathEscape(owner), url.PathEscape(repo)))
	if err != nil {
		return LanguagesResult{Err: err}
	}
	if !resp.ok() {
		return LanguagesResult{Err: &StatusError{StatusCode: resp.statusCode}}
	}

	if !gjson.ValidBytes(resp.body) {
		return LanguagesResult{Err: fmt.Errorf("failed to decode languages: %w", ErrMalformedBody)}
	}
	parsed := gjson.ParseBytes(resp.body)
	if !parsed.IsObject() {
		return LanguagesResult{Err: fmt.Errorf("languages is not a mapping: %w", ErrMalformedBody)}
	}

	names := []string{}
	parsed.ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	return LanguagesResult{Names: names}
}

type apiResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

func (r *apiResponse) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// get issues an authenticated GET against the REST API and returns the raw
// response whatever its status. An error means no response was obtained.
func (g *GitHubGateway) get(ctx context.Context, path string) (*apiResponse, error) {
	req, err := g.restClient.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	// BareDo reports non-2xx statuses as errors but keeps the response, with
	// its body restored, for the caller to inspect. A 202 is the exception:
	// its body has already been drained into AcceptedError.Raw.
	resp, err := g.restClient.BareDo(ctx, req)
	if resp == nil || resp.Response == nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var body []byte
	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		body = accepted.Raw
	} else {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
		}
	}
	return &apiResponse{
		statusCode: resp.StatusCode,
		header:     resp.Header,
		body:       body,
	}, nil
}

// errorMessage keeps an error body as JSON when it parses, raw text otherwise.
func errorMessage(body []byte) any {
	if gjson.ValidBytes(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
