package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/config"
)

var (
	tokenPattern   = regexp.MustCompile(`^[0-9]+:[A-Za-z0-9_-]+$`)
	channelPattern = regexp.MustCompile(`^[#&][^\s,\x07]+$`)
)

// initAnswers are the values collected by the setup wizard.
type initAnswers struct {
	Token   string
	ChatID  string
	Server  string
	TLS     bool
	Nick    string
	Channel string
	Bind    string
	BaseURL string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Server:  "irc.libera.chat",
		TLS:     true,
		Nick:    "tgrelay",
		Bind:    "127.0.0.1:8080",
		BaseURL: "http://127.0.0.1:8080",
	}
}

func initCmd() *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = config.SearchPaths()[0]
			}
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			answers := defaultAnswers()
			if err := runWizard(&answers); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
				return err
			}

			if err := writeConfig(output, answers); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n\n", output)
			fmt.Fprintf(out, "Next steps:\n  tgrelay config check %s\n  tgrelay start --config %s\n", output, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the configuration (default: first config search path)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runWizard(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("Issued by @BotFather.").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token).
				Validate(validateToken),
			huh.NewInput().
				Title("Chat ID").
				Description("Numeric ID of the Telegram group, usually negative.").
				Value(&a.ChatID).
				Validate(validateChatID),
		).Title("Telegram"),
		huh.NewGroup(
			huh.NewInput().
				Title("Server").
				Value(&a.Server).
				Validate(required("server")),
			huh.NewConfirm().
				Title("Use TLS?").
				Value(&a.TLS),
			huh.NewInput().
				Title("Nick").
				Value(&a.Nick).
				Validate(required("nick")),
			huh.NewInput().
				Title("Channel").
				Description("IRC channel linked to the chat, e.g. #relay.").
				Value(&a.Channel).
				Validate(validateChannel),
		).Title("IRC"),
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.Bind).
				Validate(required("listen address")),
			huh.NewInput().
				Title("Public base URL").
				Description("Where IRC users reach downloaded files.").
				Value(&a.BaseURL).
				Validate(validateURL),
		).Title("File gateway"),
	)
	return form.Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateToken(s string) error {
	if !tokenPattern.MatchString(strings.TrimSpace(s)) {
		return errors.New("expected <bot_id>:<hash>")
	}
	return nil
}

func validateChatID(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return errors.New("chat ID must be an integer")
	}
	return nil
}

func validateChannel(s string) error {
	if !channelPattern.MatchString(strings.TrimSpace(s)) {
		return errors.New("channel must start with # or &")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("expected an http or https URL")
	}
	return nil
}

// Field order of the generated file follows these structs.
type initFile struct {
	Version string      `yaml:"version"`
	Modules initModules `yaml:"modules"`
}

type initModules struct {
	Telegram initTelegram `yaml:"channel.telegram"`
	IRC      initIRC      `yaml:"channel.irc"`
	Gateway  initGateway  `yaml:"gateway.http"`
}

type initTelegram struct {
	Token    string           `yaml:"token"`
	Channels map[int64]string `yaml:"channels"`
	Storage  initStorage      `yaml:"storage"`
}

type initStorage struct {
	BaseURL   string `yaml:"base_url"`
	Retention string `yaml:"retention"`
}

type initIRC struct {
	Server string `yaml:"server"`
	TLS    bool   `yaml:"tls"`
	Nick   string `yaml:"nick"`
}

type initGateway struct {
	Bind string `yaml:"bind"`
}

func renderConfig(a initAnswers) ([]byte, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(a.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("chat ID: %w", err)
	}
	f := initFile{
		Version: "1",
		Modules: initModules{
			Telegram: initTelegram{
				Token:    strings.TrimSpace(a.Token),
				Channels: map[int64]string{chatID: strings.TrimSpace(a.Channel)},
				Storage: initStorage{
					BaseURL:   strings.TrimRight(strings.TrimSpace(a.BaseURL), "/"),
					Retention: "720h",
				},
			},
			IRC: initIRC{
				Server: strings.TrimSpace(a.Server),
				TLS:    a.TLS,
				Nick:   strings.TrimSpace(a.Nick),
			},
			Gateway: initGateway{Bind: strings.TrimSpace(a.Bind)},
		},
	}
	return yaml.Marshal(f)
}

// writeConfig renders a and writes it to path. The file holds the bot
// token, so it is created owner-readable only.
func writeConfig(path string, a initAnswers) error {
	data, err := renderConfig(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
