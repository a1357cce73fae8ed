// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/github-activity/internal/config"
	"github.com/naka-gawa/github-activity/internal/gateway"
	"github.com/naka-gawa/github-activity/internal/output"
	"github.com/naka-gawa/github-activity/internal/usecase"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "github-activity",
	Short: "Summarize a GitHub account's repositories.",
	Long: `github-activity lists the repositories of a GitHub account and summarizes
each one (commit count, languages, stars, forks). The summary can be served
over HTTP (serve) or printed once (fetch).

Configuration is read from the environment (a .env file is loaded if present):
  GITHUB_USERNAME, GITHUB_TOKEN       account and access token
  GITHUB_API_URL, GITHUB_GRAPHQL_URL  API endpoints (GitHub Enterprise)
  GITHUB_COMMIT_SOURCE                rest (default) or graphql
  ACTIVITY_OUTPUT_FILE                report file, default github_data.json`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogger(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}

func setupLogger(verbose bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// loadConfig loads the configuration and warns about missing credentials,
// which are passed through unchecked.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.GitHub.Username == "" {
		log.Warn().Msg("GITHUB_USERNAME is not set")
	}
	if cfg.GitHub.Token == "" {
		log.Warn().Msg("GITHUB_TOKEN is not set; requests will be unauthenticated")
	}
	return cfg, nil
}

// newAggregator wires the gateway and the report file into an Aggregator.
func newAggregator(cfg *config.Config) (*usecase.Aggregator, error) {
	githubGateway, err := gateway.NewGitHubGateway(cfg.GitHub, log.Logger.With().Str("component", "gateway").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	var writer usecase.ReportWriter
	if cfg.Aggregation.OutputFile != "" {
		fileWriter, err := output.NewFileWriter(cfg.Aggregation.OutputFile)
		if err != nil {
			return nil, err
		}
		writer = fileWriter
	}

	return usecase.NewAggregator(
		githubGateway,
		writer,
		cfg.Aggregation.Concurrency,
		log.Logger.With().Str("component", "aggregator").Logger(),
	), nil
}
