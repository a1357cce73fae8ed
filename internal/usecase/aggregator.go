// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naka-gawa/github-activity/internal/domain"
	"github.com/naka-gawa/github-activity/internal/gateway"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ReportWriter persists the summaries of a successful run.
type ReportWriter interface {
	Write(summaries []domain.RepositorySummary) error
}

// Aggregator is the use case for aggregating GitHub activity.
// It orchestrates the fetching and combining of data.
type Aggregator struct {
	fetcher     gateway.Fetcher
	writer      ReportWriter
	concurrency int
	logger      zerolog.Logger
}

// NewAggregator creates a new Aggregator instance. A nil writer disables the
// side file; concurrency below 1 is treated as 1.
func NewAggregator(fetcher gateway.Fetcher, writer ReportWriter, concurrency int, logger zerolog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{
		fetcher:     fetcher,
		writer:      writer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// FetchActivity lists the repositories of username and summarizes each one.
//
// A failed or malformed listing is reported through ActivityReport.Failure.
// Per-repository failures never abort the run: the affected field falls back
// to its default. Summaries keep the order of the listing. A context cancelled
// during the run yields an error and leaves the side file untouched.
func (a *Aggregator) FetchActivity(ctx context.Context, username string) (*domain.ActivityReport, error) {
	a.logger.Info().Str("user", username).Msg("Usecase: Starting activity aggregation...")

	listing, err := a.fetcher.ListRepositories(ctx, username)
	if err != nil {
		return nil, err
	}
	if listing.Failure != nil {
		a.logger.Warn().Str("error", listing.Failure.Error).Msg("Usecase: Repository listing failed.")
		return &domain.ActivityReport{Failure: listing.Failure}, nil
	}

	summaries := make([]domain.RepositorySummary, len(listing.Repositories))

	// Each goroutine owns one slot of summaries, so order is preserved
	// without locking.
	var eg errgroup.Group
	eg.SetLimit(a.concurrency)
	for i, repo := range listing.Repositories {
		eg.Go(func() error {
			commits := a.fetcher.FetchCommitCount(ctx, username, repo.Name)
			languages := a.fetcher.FetchLanguages(ctx, username, repo.Name)
			summaries[i] = domain.RepositorySummary{
				Repo:      repo.Name,
				Commits:   a.commitsOrDefault(repo.Name, commits),
				Languages: a.languagesOrSentinel(repo.Name, languages),
				Stars:     repo.Stars,
				Forks:     repo.Forks,
			}
			return nil
		})
	}
	_ = eg.Wait()

	// Per-repository calls made after cancellation fail with the context
	// error, not an API answer, so their defaults must not be reported.
	if err := ctx.Err(); err != nil {
		a.logger.Warn().Err(err).Msg("Usecase: Aggregation cancelled, discarding results.")
		return nil, fmt.Errorf("activity aggregation cancelled: %w", err)
	}

	if a.writer != nil {
		if err := a.writer.Write(summaries); err != nil {
			a.logger.Warn().Err(err).Msg("Usecase: Failed to write activity report file.")
		}
	}

	a.logger.Info().Int("repositories", len(summaries)).Msg("Usecase: Aggregation complete.")
	return &domain.ActivityReport{Repositories: summaries}, nil
}

// commitsOrDefault maps a failed commit count to 0.
func (a *Aggregator) commitsOrDefault(repo string, result gateway.CommitCountResult) int {
	if result.Err != nil {
		a.logger.Debug().Str("repo", repo).Err(result.Err).Msg("Commit count unavailable, using 0.")
		return 0
	}
	return result.Count
}

// languagesOrSentinel joins the language names, or substitutes a sentinel:
// LanguagesParseFailed for an unparsable body, LanguagesUnavailable otherwise.
func (a *Aggregator) languagesOrSentinel(repo string, result gateway.LanguagesResult) string {
	if result.Err == nil {
		return strings.Join(result.Names, ", ")
	}
	a.logger.Debug().Str("repo", repo).Err(result.Err).Msg("Languages unavailable, using sentinel.")
	if errors.Is(result.Err, gateway.ErrMalformedBody) {
		return domain.LanguagesParseFailed
	}
	return domain.LanguagesUnavailable
}
