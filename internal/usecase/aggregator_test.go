package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/naka-gawa/github-activity/internal/domain"
	"github.com/naka-gawa/github-activity/internal/gateway"
	"github.com/naka-gawa/github-activity/internal/output"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) ListRepositories(ctx context.Context, username string) (*gateway.RepositoryListing, error) {
	args := m.Called(ctx, username)
	// We need to handle the case where the returned listing is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RepositoryListing), args.Error(1)
}

func (m *mockFetcher) FetchCommitCount(ctx context.Context, owner, repo string) gateway.CommitCountResult {
	args := m.Called(ctx, owner, repo)
	return args.Get(0).(gateway.CommitCountResult)
}

func (m *mockFetcher) FetchLanguages(ctx context.Context, owner, repo string) gateway.LanguagesResult {
	args := m.Called(ctx, owner, repo)
	return args.Get(0).(gateway.LanguagesResult)
}

// recordingWriter keeps the summaries it was asked to write.
type recordingWriter struct {
	mu      sync.Mutex
	calls   int
	written []domain.RepositorySummary
	err     error
}

func (w *recordingWriter) Write(summaries []domain.RepositorySummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.written = make([]domain.RepositorySummary, len(summaries))
	copy(w.written, summaries)
	return w.err
}

// TestAggregator_FetchActivity uses a table-driven approach to test the aggregator.
func TestAggregator_FetchActivity(t *testing.T) {
	testCases := []struct {
		name           string
		listing        *gateway.RepositoryListing
		commits        map[string]gateway.CommitCountResult
		languages      map[string]gateway.LanguagesResult
		expectedResult []domain.RepositorySummary
	}{
		{
			name: "happy path - one summary per repository in listing order",
			listing: &gateway.RepositoryListing{Repositories: []gateway.Repository{
				{Name: "zeta", Stars: 4, Forks: 1},
				{Name: "alpha", Stars: 10, Forks: 3},
				{Name: "mid"},
			}},
			commits: map[string]gateway.CommitCountResult{
				"zeta":  {Count: 7},
				"alpha": {Count: 120},
				"mid":   {Count: 1},
			},
			languages: map[string]gateway.LanguagesResult{
				"zeta":  {Names: []string{"Go", "Shell"}},
				"alpha": {Names: []string{"Python"}},
				"mid":   {Names: []string{}},
			},
			expectedResult: []domain.RepositorySummary{
				{Repo: "zeta", Commits: 7, Languages: "Go, Shell", Stars: 4, Forks: 1},
				{Repo: "alpha", Commits: 120, Languages: "Python", Stars: 10, Forks: 3},
				{Repo: "mid", Commits: 1, Languages: "", Stars: 0, Forks: 0},
			},
		},
		{
			name: "partial failures degrade per field and never abort",
			listing: &gateway.RepositoryListing{Repositories: []gateway.Repository{
				{Name: "empty-repo", Stars: 1},
				{Name: "private-langs"},
				{Name: "garbled"},
				{Name: "offline"},
			}},
			commits: map[string]gateway.CommitCountResult{
				"empty-repo":    {Err: &gateway.StatusError{StatusCode: 409}},
				"private-langs": {Count: 3},
				"garbled":       {Err: fmt.Errorf("decode: %w", gateway.ErrMalformedBody)},
				"offline":       {Err: errors.New("connection reset")},
			},
			languages: map[string]gateway.LanguagesResult{
				"empty-repo":    {Names: []string{}},
				"private-langs": {Err: &gateway.StatusError{StatusCode: 403}},
				"garbled":       {Err: fmt.Errorf("decode: %w", gateway.ErrMalformedBody)},
				"offline":       {Err: errors.New("connection reset")},
			},
			expectedResult: []domain.RepositorySummary{
				{Repo: "empty-repo", Commits: 0, Languages: "", Stars: 1},
				{Repo: "private-langs", Commits: 3, Languages: "N/A"},
				{Repo: "garbled", Commits: 0, Languages: "N/A (Failed to parse languages)"},
				{Repo: "offline", Commits: 0, Languages: "N/A"},
			},
		},
		{
			name:           "empty listing",
			listing:        &gateway.RepositoryListing{Repositories: []gateway.Repository{}},
			expectedResult: []domain.RepositorySummary{},
		},
	}

	for _, tc := range testCases {
		for _, concurrency := range []int{1, 3} {
			t.Run(fmt.Sprintf("%s/concurrency=%d", tc.name, concurrency), func(t *testing.T) {
				// --- Arrange: Set up the test for this specific case ---
				ctx := context.Background()
				fetcher := new(mockFetcher)
				writer := &recordingWriter{}

				fetcher.On("ListRepositories", mock.Anything, "octocat").Return(tc.listing, nil)
				for repo, result := range tc.commits {
					fetcher.On("FetchCommitCount", mock.Anything, "octocat", repo).Return(result).Once()
				}
				for repo, result := range tc.languages {
					fetcher.On("FetchLanguages", mock.Anything, "octocat", repo).Return(result).Once()
				}

				aggregator := NewAggregator(fetcher, writer, concurrency, zerolog.Nop())

				// --- Act: Execute the method we want to test ---
				report, err := aggregator.FetchActivity(ctx, "octocat")

				// --- Assert: Check the results ---
				require.NoError(t, err)
				assert.Nil(t, report.Failure)
				assert.Equal(t, tc.expectedResult, report.Repositories)
				assert.Equal(t, 1, writer.calls)
				assert.Equal(t, tc.expectedResult, writer.written)

				// Verify that the mock methods were called as expected
				fetcher.AssertExpectations(t)
			})
		}
	}
}

func TestAggregator_FetchActivity_ListingFailure(t *testing.T) {
	failure := &domain.ErrorPayload{
		Error:   "GitHub API error: 401",
		Message: json.RawMessage(`{"message":"Bad credentials"}`),
	}
	fetcher := new(mockFetcher)
	fetcher.On("ListRepositories", mock.Anything, "octocat").Return(&gateway.RepositoryListing{Failure: failure}, nil)
	writer := &recordingWriter{}

	report, err := NewAggregator(fetcher, writer, 2, zerolog.Nop()).FetchActivity(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Same(t, failure, report.Failure)
	assert.Empty(t, report.Repositories)
	assert.Zero(t, writer.calls, "no side file on listing failure")
	fetcher.AssertNotCalled(t, "FetchCommitCount", mock.Anything, mock.Anything, mock.Anything)
	fetcher.AssertNotCalled(t, "FetchLanguages", mock.Anything, mock.Anything, mock.Anything)
}

func TestAggregator_FetchActivity_ListingError(t *testing.T) {
	listErr := fmt.Errorf("entry 3: %w", gateway.ErrMalformedRepository)
	fetcher := new(mockFetcher)
	fetcher.On("ListRepositories", mock.Anything, "octocat").Return(nil, listErr)
	writer := &recordingWriter{}

	report, err := NewAggregator(fetcher, writer, 1, zerolog.Nop()).FetchActivity(context.Background(), "octocat")

	assert.ErrorIs(t, err, gateway.ErrMalformedRepository)
	assert.Nil(t, report)
	assert.Zero(t, writer.calls)
}

func TestAggregator_FetchActivity_WriteFailureIsNotSurfaced(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListRepositories", mock.Anything, "octocat").Return(&gateway.RepositoryListing{
		Repositories: []gateway.Repository{{Name: "alpha", Stars: 2}},
	}, nil)
	fetcher.On("FetchCommitCount", mock.Anything, "octocat", "alpha").Return(gateway.CommitCountResult{Count: 5})
	fetcher.On("FetchLanguages", mock.Anything, "octocat", "alpha").Return(gateway.LanguagesResult{Names: []string{"Go"}})
	writer := &recordingWriter{err: errors.New("disk full")}

	report, err := NewAggregator(fetcher, writer, 1, zerolog.Nop()).FetchActivity(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Equal(t, []domain.RepositorySummary{{Repo: "alpha", Commits: 5, Languages: "Go", Stars: 2}}, report.Repositories)
	assert.Equal(t, 1, writer.calls)
}

func TestAggregator_FetchActivity_SideFileMatchesResult(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListRepositories", mock.Anything, "octocat").Return(&gateway.RepositoryListing{
		Repositories: []gateway.Repository{{Name: "b", Stars: 1, Forks: 2}, {Name: "a"}},
	}, nil)
	fetcher.On("FetchCommitCount", mock.Anything, "octocat", "b").Return(gateway.CommitCountResult{Count: 9})
	fetcher.On("FetchCommitCount", mock.Anything, "octocat", "a").Return(gateway.CommitCountResult{Err: errors.New("boom")})
	fetcher.On("FetchLanguages", mock.Anything, "octocat", "b").Return(gateway.LanguagesResult{Names: []string{"C", "C++"}})
	fetcher.On("FetchLanguages", mock.Anything, "octocat", "a").Return(gateway.LanguagesResult{Err: &gateway.StatusError{StatusCode: 404}})

	path := filepath.Join(t.TempDir(), "github_data.json")
	writer, err := output.NewFileWriter(path)
	require.NoError(t, err)

	report, err := NewAggregator(fetcher, writer, 2, zerolog.Nop()).FetchActivity(context.Background(), "octocat")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromFile []domain.RepositorySummary
	require.NoError(t, json.Unmarshal(data, &fromFile))
	assert.Equal(t, report.Repositories, fromFile)
}

func TestAggregator_FetchActivity_NilWriter(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListRepositories", mock.Anything, "octocat").Return(&gateway.RepositoryListing{
		Repositories: []gateway.Repository{{Name: "alpha"}},
	}, nil)
	fetcher.On("FetchCommitCount", mock.Anything, "octocat", "alpha").Return(gateway.CommitCountResult{Count: 1})
	fetcher.On("FetchLanguages", mock.Anything, "octocat", "alpha").Return(gateway.LanguagesResult{Names: []string{"Go"}})

	report, err := NewAggregator(fetcher, nil, 0, zerolog.Nop()).FetchActivity(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Len(t, report.Repositories, 1)
}

func TestAggregator_FetchActivity_CancelledAfterListing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := new(mockFetcher)
	fetcher.On("ListRepositories", mock.Anything, "octocat").
		Run(func(mock.Arguments) { cancel() }).
		Return(&gateway.RepositoryListing{Repositories: []gateway.Repository{{Name: "a", Stars: 1}}}, nil)
	fetcher.On("FetchCommitCount", mock.Anything, "octocat", "a").Return(gateway.CommitCountResult{Err: context.Canceled}).Maybe()
	fetcher.On("FetchLanguages", mock.Anything, "octocat", "a").Return(gateway.LanguagesResult{Err: context.Canceled}).Maybe()
	writer := &recordingWriter{}

	report, err := NewAggregator(fetcher, writer, 1, zerolog.Nop()).FetchActivity(ctx, "octocat")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
	assert.Zero(t, writer.calls, "side file must keep the previous report")
}
