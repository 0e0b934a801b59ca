package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Config holds the Telegram side of the relay.
type Config struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"api_url"`

	// PollInterval is the minimum gap between two getUpdates calls.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollingTimeout is the getUpdates long-poll timeout in seconds.
	PollingTimeout int `yaml:"polling_timeout"`

	// Channels maps Telegram chat IDs to IRC channels.
	Channels map[int64]string `yaml:"channels"`

	// Welcome maps an IRC channel to the template sent to new Telegram
	// members. "$nick" is replaced by the member's name.
	Welcome map[string]string `yaml:"welcome"`

	// MaxLines caps how many lines of one Telegram message reach IRC.
	MaxLines int `yaml:"max_lines"`

	// MaxLineBytes splits relayed IRC lines longer than this.
	MaxLineBytes int `yaml:"max_line_bytes"`

	// NotifyFailures replies in Telegram when a file could not be relayed.
	NotifyFailures bool `yaml:"notify_failures"`

	// DownloadTimeout bounds a single file fetch.
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	// QueueSize is the capacity of the event loop and the send queue.
	QueueSize int `yaml:"queue_size"`

	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig controls where downloaded files live and how they are served.
type StorageConfig struct {
	// Root is the storage directory. Defaults to {data_dir}/tgstorage.
	Root string `yaml:"root"`

	// BaseURL is the public URL the gateway serves Root under.
	BaseURL string `yaml:"base_url"`

	// Retention removes files older than this. Zero keeps files forever.
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is the cron expression for retention runs.
	PruneSchedule string `yaml:"prune_schedule"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.APIURL == "" {
		c.APIURL = "https://api.telegram.org"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.PollingTimeout == 0 {
		c.PollingTimeout = 30
	}
	if c.MaxLines <= 0 {
		c.MaxLines = 10
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = 400
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 2 * time.Minute
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Storage.PruneSchedule == "" {
		c.Storage.PruneSchedule = "17 * * * *"
	}
}

// storageRoot resolves the storage directory against dataDir.
func (c *Config) storageRoot(dataDir string) string {
	if c.Storage.Root != "" {
		return c.Storage.Root
	}
	return filepath.Join(dataDir, "tgstorage")
}

// validate checks configuration field constraints. It is called from
// Telegram.Validate after defaults have been applied.
func (c *Config) validate() error {
	var errs []error

	if c.Token == "" {
		errs = append(errs, errors.New("telegram: token is required"))
	} else if !tokenPattern.MatchString(c.Token) {
		errs = append(errs, errors.New("telegram: token format invalid (expected <bot_id>:<hash>)"))
	}

	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL))
	}

	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		errs = append(errs, fmt.Errorf("telegram: polling_timeout must be 0-50, got %d", c.PollingTimeout))
	}

	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("telegram: at least one channel mapping is required"))
	}

	for channel := range c.Welcome {
		if !c.hasChannel(channel) {
			errs = append(errs, fmt.Errorf("telegram: welcome message for unmapped channel %q", channel))
		}
	}

	if c.Storage.BaseURL == "" {
		errs = append(errs, errors.New("telegram: storage.base_url is required"))
	} else if u, err := url.Parse(c.Storage.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("telegram: storage.base_url must be a valid http/https URL, got %q", c.Storage.BaseURL))
	}

	if c.Storage.Retention < 0 {
		errs = append(errs, fmt.Errorf("telegram: storage.retention must not be negative, got %s", c.Storage.Retention))
	}

	if c.MaxLineBytes < 0 {
		errs = append(errs, fmt.Errorf("telegram: max_line_bytes must not be negative, got %d", c.MaxLineBytes))
	}

	return errors.Join(errs...)
}

func (c *Config) hasChannel(channel string) bool {
	for _, ch := range c.Channels {
		if strings.EqualFold(ch, channel) {
			return true
		}
	}
	return false
}

// welcomeFor returns the welcome template for channel, if any.
func (c *Config) welcomeFor(channel string) (string, bool) {
	for ch, tmpl := range c.Welcome {
		if strings.EqualFold(ch, channel) && strings.TrimSpace(tmpl) != "" {
			return tmpl, true
		}
	}
	return "", false
}
