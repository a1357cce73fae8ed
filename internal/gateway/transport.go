package gateway

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// loggingRoundTripper emits one debug line per GitHub API call.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger zerolog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	event := t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dur("latency", time.Since(start))
	if err != nil {
		event.Err(err).Msg("github api call failed")
		return resp, err
	}
	event.Int("status", resp.StatusCode).Msg("github api call")
	return resp, nil
}
