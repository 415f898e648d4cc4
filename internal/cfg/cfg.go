package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"

	"github.com/linnemanlabs/alertbot/internal/pipeline"
)

// Config holds the service-level configuration fields, bound to flags
// and filled from the environment by go-core's cfg helpers.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	FeedURL               string
	FeedAPIKey            string
	BskyIdentifier        string
	BskyPassword          string
	BskyService           string
	DatabaseURL           string
	PollIntervalSeconds   int
	LookbackHours         int
	RetentionHours        int
	TextDedupMinutes      int
	SeenCacheSize         int
	IDCheckPolicy         string
	TextCheckPolicy       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token guarding the run endpoint (empty = no auth)")
	fs.StringVar(&c.FeedURL, "feed-url", "", "transit alert feed URL")
	fs.StringVar(&c.FeedAPIKey, "feed-api-key", "", "API key sent to the alert feed")
	fs.StringVar(&c.BskyIdentifier, "bsky-identifier", "", "Bluesky account identifier (handle or DID)")
	fs.StringVar(&c.BskyPassword, "bsky-password", "", "Bluesky app password")
	fs.StringVar(&c.BskyService, "bsky-service", "https://bsky.social", "Bluesky PDS base URL")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.IntVar(&c.PollIntervalSeconds, "poll-interval-seconds", 60, "seconds between scheduled pipeline runs (0 = disabled)")
	fs.IntVar(&c.LookbackHours, "lookback-hours", 24, "alerts created more than this many hours ago are ignored (1..168)")
	fs.IntVar(&c.RetentionHours, "retention-hours", 24, "posted-alert records older than this are pruned (1..720)")
	fs.IntVar(&c.TextDedupMinutes, "text-dedup-minutes", 60, "window for near-duplicate text suppression (1..1440)")
	fs.IntVar(&c.SeenCacheSize, "seen-cache-size", 50, "in-memory seen-alert cache capacity (1..10000)")
	fs.StringVar(&c.IDCheckPolicy, "id-check-policy", "fail-closed", "behavior when the ID dedup lookup fails (fail-closed|fail-open)")
	fs.StringVar(&c.TextCheckPolicy, "text-check-policy", "fail-open", "behavior when the text dedup lookup fails (fail-closed|fail-open)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.FeedURL == "" {
		errs = append(errs, errors.New("FEED_URL is required"))
	} else if u, err := url.Parse(c.FeedURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid FEED_URL %q (must be an absolute URL)", c.FeedURL))
	}

	if c.FeedAPIKey == "" {
		errs = append(errs, errors.New("FEED_API_KEY is required"))
	}

	if c.BskyIdentifier == "" {
		errs = append(errs, errors.New("BSKY_IDENTIFIER is required"))
	}
	if c.BskyPassword == "" {
		errs = append(errs, errors.New("BSKY_PASSWORD is required"))
	}
	if c.BskyService == "" {
		errs = append(errs, errors.New("BSKY_SERVICE is required"))
	} else if u, err := url.Parse(c.BskyService); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid BSKY_SERVICE %q (must be an absolute URL)", c.BskyService))
	}

	if c.PollIntervalSeconds < 0 || c.PollIntervalSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid POLL_INTERVAL_SECONDS %d (must be 0..86400)", c.PollIntervalSeconds))
	}
	if c.LookbackHours <= 0 || c.LookbackHours > 168 {
		errs = append(errs, fmt.Errorf("invalid LOOKBACK_HOURS %d (must be 1..168)", c.LookbackHours))
	}
	if c.RetentionHours <= 0 || c.RetentionHours > 720 {
		errs = append(errs, fmt.Errorf("invalid RETENTION_HOURS %d (must be 1..720)", c.RetentionHours))
	}
	if c.TextDedupMinutes <= 0 || c.TextDedupMinutes > 1440 {
		errs = append(errs, fmt.Errorf("invalid TEXT_DEDUP_MINUTES %d (must be 1..1440)", c.TextDedupMinutes))
	}
	if c.SeenCacheSize <= 0 || c.SeenCacheSize > 10000 {
		errs = append(errs, fmt.Errorf("invalid SEEN_CACHE_SIZE %d (must be 1..10000)", c.SeenCacheSize))
	}

	if _, err := pipeline.ParseFailPolicy(c.IDCheckPolicy); err != nil {
		errs = append(errs, fmt.Errorf("invalid ID_CHECK_POLICY %q (must be fail-closed or fail-open)", c.IDCheckPolicy))
	}
	if _, err := pipeline.ParseFailPolicy(c.TextCheckPolicy); err != nil {
		errs = append(errs, fmt.Errorf("invalid TEXT_CHECK_POLICY %q (must be fail-closed or fail-open)", c.TextCheckPolicy))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
