package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/BadgerOps/pipsync/internal/safety"
)

const (
	DefaultProbePath    = "/pip/"
	DefaultProbeTimeout = 3 * time.Second
	DefaultIndexURL     = "https://pypi.org/simple"
)

// Options configures a Selector. Zero values fall back to the defaults above.
type Options struct {
	ProbePath    string
	Timeout      time.Duration
	DefaultIndex string
	// Output receives the human-readable progress lines. Defaults to io.Discard.
	Output io.Writer
}

// Selector picks the first reachable mirror out of an ordered candidate list.
type Selector struct {
	client       *http.Client
	logger       *slog.Logger
	out          io.Writer
	probePath    string
	timeout      time.Duration
	defaultIndex string
}

// NewSelector creates a Selector with a probe client bounded by opts.Timeout.
func NewSelector(opts Options, logger *slog.Logger) *Selector {
	if opts.ProbePath == "" {
		opts.ProbePath = DefaultProbePath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.DefaultIndex == "" {
		opts.DefaultIndex = DefaultIndexURL
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Selector{
		client:       safety.NewHTTPClient(opts.Timeout),
		logger:       logger,
		out:          opts.Output,
		probePath:    opts.ProbePath,
		timeout:      opts.Timeout,
		defaultIndex: opts.DefaultIndex,
	}
}

// Select returns the first candidate whose probe answers 200, in list order.
// Candidates after the first available one are not probed. When none is
// available the default index is returned. Select never fails: an
// unreachable mirror is an expected outcome.
func (s *Selector) Select(ctx context.Context, candidates []string) string {
	for _, candidate := range candidates {
		fmt.Fprintf(s.out, "Testing mirror: %s...\n", candidate)

		result := s.Probe(ctx, candidate)
		if result.Available() {
			fmt.Fprintf(s.out, "✅ Mirror available: %s\n", candidate)
			s.logger.Debug("mirror selected", "url", candidate, "latency_ms", result.LatencyMs)
			return candidate
		}

		fmt.Fprintf(s.out, "⛔ Mirror unavailable: %s\n", candidate)
		s.logger.Debug("mirror unavailable",
			"url", candidate,
			"failure", result.Failure,
			"error", result.Error,
			"latency_ms", result.LatencyMs,
		)
	}

	fmt.Fprintf(s.out, "⚠️ No mirror available, using the official index: %s\n", s.defaultIndex)
	return s.defaultIndex
}

// DefaultIndex returns the fallback index URL.
func (s *Selector) DefaultIndex() string {
	return s.defaultIndex
}
