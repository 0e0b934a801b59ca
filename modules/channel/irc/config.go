package irc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nickPattern = regexp.MustCompile(`^[A-Za-z\[\]\\` + "`" + `_^{|}][A-Za-z0-9\[\]\\` + "`" + `_^{|}-]*$`)

// Config holds the IRC connection settings.
type Config struct {
	Server        string `yaml:"server"`
	Port          int    `yaml:"port"`
	TLS           bool   `yaml:"tls"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify"`
	ServerPass    string `yaml:"server_pass"`

	Nick string `yaml:"nick"`
	User string `yaml:"user"`
	Name string `yaml:"name"`

	SASL SASLConfig `yaml:"sasl"`

	// Channels are joined in addition to every channel linked to Telegram.
	Channels []string `yaml:"channels"`

	// ReconnectDelay is the first wait after a lost connection. Later waits
	// grow exponentially up to MaxReconnectDelay.
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay"`

	// PingDelay is how often the client pings the server.
	PingDelay time.Duration `yaml:"ping_delay"`
}

// SASLConfig enables SASL PLAIN authentication when User is set.
type SASLConfig struct {
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

func (c *Config) defaults() {
	if c.Port == 0 {
		c.Port = 6667
		if c.TLS {
			c.Port = 6697
		}
	}
	if c.Nick == "" {
		c.Nick = "tgrelay"
	}
	if c.User == "" {
		c.User = c.Nick
	}
	if c.Name == "" {
		c.Name = "Telegram relay"
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 5 * time.Second
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = 5 * time.Minute
	}
	if c.PingDelay <= 0 {
		c.PingDelay = 20 * time.Second
	}
}

func (c *Config) validate() error {
	var errs []error

	if strings.TrimSpace(c.Server) == "" {
		errs = append(errs, errors.New("irc: server is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("irc: port must be 1-65535, got %d", c.Port))
	}
	if !nickPattern.MatchString(c.Nick) {
		errs = append(errs, fmt.Errorf("irc: invalid nick %q", c.Nick))
	}
	for _, ch := range c.Channels {
		if !strings.HasPrefix(ch, "#") && !strings.HasPrefix(ch, "&") {
			errs = append(errs, fmt.Errorf("irc: channel %q must start with # or &", ch))
		}
	}
	if (c.SASL.User == "") != (c.SASL.Pass == "") {
		errs = append(errs, errors.New("irc: sasl.user and sasl.pass must be set together"))
	}
	if c.ReconnectDelay > c.MaxReconnectDelay {
		errs = append(errs, fmt.Errorf("irc: reconnect_delay %s exceeds max_reconnect_delay %s", c.ReconnectDelay, c.MaxReconnectDelay))
	}

	return errors.Join(errs...)
}
