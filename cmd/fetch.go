package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/naka-gawa/github-activity/internal/domain"
	"github.com/naka-gawa/github-activity/internal/usecase"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Aggregates GitHub repository activity once and prints it",
	Long: `Lists the repositories of a GitHub account, summarizes each one and prints the
result. The report file is written exactly as the HTTP endpoint would write it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if user, _ := cmd.Flags().GetString("user"); user != "" {
			cfg.GitHub.Username = user
		}
		if cmd.Flags().Changed("output") {
			cfg.Aggregation.OutputFile, _ = cmd.Flags().GetString("output")
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "text" {
			return fmt.Errorf("unsupported format %q: use json or text", format)
		}

		aggregator, err := newAggregator(cfg)
		if err != nil {
			return err
		}

		report, err := aggregator.FetchActivity(cmd.Context(), cfg.GitHub.Username)
		if err != nil {
			return fmt.Errorf("failed to aggregate activity: %w", err)
		}

		if format == "text" {
			return printText(os.Stdout, report)
		}
		return printJSON(os.Stdout, report)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringP("user", "u", "", "GitHub user name (overrides GITHUB_USERNAME)")
	fetchCmd.Flags().StringP("output", "o", "", "Report file path (overrides ACTIVITY_OUTPUT_FILE; empty disables it)")
	fetchCmd.Flags().StringP("format", "f", "json", "Output format: json or text")
}

// printJSON marshals the report into a pretty-printed JSON string.
func printJSON(w io.Writer, report *domain.ActivityReport) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}

// printText renders one line per repository followed by the totals.
func printText(w io.Writer, report *domain.ActivityReport) error {
	if report.Failed() {
		red := color.New(color.FgRed, color.Bold)
		_, err := red.Fprintf(w, "%s\n", report.Failure.Error)
		if err != nil {
			return err
		}
		if report.Failure.Message != nil {
			detail, _ := json.Marshal(report.Failure.Message)
			fmt.Fprintf(w, "  %s\n", detail)
		}
		if report.Failure.Data != nil {
			fmt.Fprintf(w, "  %s\n", report.Failure.Data)
		}
		return nil
	}

	name := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	for _, s := range report.Repositories {
		languages := s.Languages
		if languages == "" {
			languages = "-"
		}
		name.Fprintf(w, "%s", s.Repo)
		fmt.Fprintf(w, "  commits=%d stars=%d forks=%d  ", s.Commits, s.Stars, s.Forks)
		dim.Fprintln(w, languages)
	}

	totals := usecase.Summarize(report.Repositories)
	color.New(color.FgGreen).Fprintf(w,
		"\n%d repositories, %d commits, %d stars, %d forks, %d languages\n",
		totals.TotalRepos, totals.TotalCommits, totals.TotalStars, totals.TotalForks, totals.ActiveLanguages)
	return nil
}
