package usecase

import (
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/github-activity/internal/domain"
)

// Summarize computes account-wide totals over the summaries of a report.
// Sentinel language values are not counted as languages.
func Summarize(summaries []domain.RepositorySummary) domain.ActivityTotals {
	totals := domain.ActivityTotals{
		TotalRepos: len(summaries),
		Languages:  []string{},
	}

	seen := make(map[string]bool)
	commits := make(stats.Float64Data, 0, len(summaries))
	mostStars := -1
	for _, s := range summaries {
		totals.TotalCommits += s.Commits
		totals.TotalStars += s.Stars
		totals.TotalForks += s.Forks
		commits = append(commits, float64(s.Commits))

		if s.Stars > mostStars {
			mostStars = s.Stars
			totals.MostStarred = s.Repo
		}

		for _, lang := range splitLanguages(s.Languages) {
			if !seen[lang] {
				seen[lang] = true
				totals.Languages = append(totals.Languages, lang)
			}
		}
	}
	totals.ActiveLanguages = len(totals.Languages)

	// Both only fail on empty input, where zero is the right answer.
	if mean, err := stats.Mean(commits); err == nil {
		totals.MeanCommits, _ = stats.Round(mean, 2)
	}
	if median, err := stats.Median(commits); err == nil {
		totals.MedianCommits = median
	}
	return totals
}

func splitLanguages(languages string) []string {
	if languages == "" || strings.HasPrefix(languages, domain.LanguagesUnavailable) {
		return nil
	}
	var names []string
	for _, name := range strings.Split(languages, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
