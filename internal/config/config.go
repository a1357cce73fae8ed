// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Commit count sources understood by the gateway.
const (
	CommitSourceREST    = "rest"
	CommitSourceGraphQL = "graphql"
)

const publicAPIURL = "https://api.github.com/"

// Config holds the application configuration.
type Config struct {
	GitHub      GitHub
	Server      Server
	Aggregation Aggregation
}

// GitHub configures access to the source-hosting API.
type GitHub struct {
	// Username is the account whose repositories are summarized.
	Username string `envconfig:"GITHUB_USERNAME"`
	Token    string `envconfig:"GITHUB_TOKEN"`

	APIURL     string `envconfig:"GITHUB_API_URL" default:"https://api.github.com/"`
	GraphQLURL string `envconfig:"GITHUB_GRAPHQL_URL"`

	// CommitSource selects how commit totals are obtained: "rest" reads the
	// last page of a one-per-page commit listing, "graphql" asks for the
	// default branch history count.
	CommitSource string `envconfig:"GITHUB_COMMIT_SOURCE" default:"rest"`

	// Timeout bounds each outbound call. Zero leaves the client default.
	Timeout time.Duration `envconfig:"GITHUB_HTTP_TIMEOUT" default:"0s"`

	// SecondaryRateLimitWait enables sleeping on secondary rate limits for at
	// most this long. Zero disables it.
	SecondaryRateLimitWait time.Duration `envconfig:"GITHUB_SECONDARY_RATE_LIMIT_WAIT" default:"0s"`
}

// Server configures the HTTP boundary.
type Server struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":5000"`
}

// Aggregation configures the aggregation routine.
type Aggregation struct {
	// Concurrency bounds how many repositories are enriched at once.
	Concurrency int `envconfig:"ACTIVITY_CONCURRENCY" default:"4"`
	// OutputFile is overwritten with the latest report. Empty disables it.
	OutputFile string `envconfig:"ACTIVITY_OUTPUT_FILE" default:"github_data.json"`
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	if !strings.HasSuffix(c.GitHub.APIURL, "/") {
		c.GitHub.APIURL += "/"
	}
	c.GitHub.CommitSource = strings.ToLower(strings.TrimSpace(c.GitHub.CommitSource))
	if c.GitHub.GraphQLURL == "" {
		c.GitHub.GraphQLURL = DefaultGraphQLURL(c.GitHub.APIURL)
	}
}

// Validate checks the settings that have no safe fallback.
// Username and token are not checked.
func (c *Config) Validate() error {
	switch c.GitHub.CommitSource {
	case CommitSourceREST, CommitSourceGraphQL:
	default:
		return fmt.Errorf("GITHUB_COMMIT_SOURCE must be %q or %q, got %q", CommitSourceREST, CommitSourceGraphQL, c.GitHub.CommitSource)
	}
	if c.Aggregation.Concurrency < 1 {
		return fmt.Errorf("ACTIVITY_CONCURRENCY must be >= 1, got %d", c.Aggregation.Concurrency)
	}
	return nil
}

// DefaultGraphQLURL derives the GraphQL endpoint from a REST base URL.
// GitHub Enterprise serves REST under /api/v3/ and GraphQL under /api/graphql.
func DefaultGraphQLURL(apiURL string) string {
	if apiURL == publicAPIURL {
		return publicAPIURL + "graphql"
	}
	if base, ok := strings.CutSuffix(apiURL, "/v3/"); ok {
		return base + "/graphql"
	}
	return apiURL + "graphql"
}
