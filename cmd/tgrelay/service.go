package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/tgrelay/pkg/app"
)

// program adapts app.RunContext to the service manager's start/stop calls.
type program struct {
	params app.RunParams

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan error, 1)
	done := p.done
	p.mu.Unlock()

	go func() {
		err := app.RunContext(ctx, p.params)
		done <- err
		if err != nil && ctx.Err() == nil {
			// The relay failed on its own: let the service manager restart it.
			if logger, lerr := s.Logger(nil); lerr == nil {
				_ = logger.Error(err)
			}
			os.Exit(1)
		}
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

// serviceConfig describes the tgrelay unit. Arguments make the installed
// service run "tgrelay service run" with the same flags.
func serviceConfig(flags *runFlags) (*service.Config, error) {
	if flags.config != "" {
		abs, err := filepath.Abs(flags.config)
		if err != nil {
			return nil, err
		}
		flags.config = abs
	}
	return &service.Config{
		Name:        "tgrelay",
		DisplayName: "tgrelay",
		Description: "Relay between Telegram groups and IRC channels",
		Arguments:   append([]string{"service", "run"}, flags.args()...),
	}, nil
}

func newService(flags *runFlags) (service.Service, *program, error) {
	params, err := flags.params()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := serviceConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	params.ConfigPath = flags.config
	prg := &program{params: params}
	s, err := service.New(prg, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}
	return s, prg, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage tgrelay as a system service",
	}

	for _, action := range service.ControlAction {
		var flags runFlags
		sub := &cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the tgrelay service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, _, err := newService(&flags)
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		}
		if action == "install" {
			flags.register(sub)
		}
		cmd.AddCommand(sub)
	}

	var runOpts runFlags
	run := &cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		RunE: func(_ *cobra.Command, _ []string) error {
			s, _, err := newService(&runOpts)
			if err != nil {
				return err
			}
			return s.Run()
		},
	}
	runOpts.register(run)
	cmd.AddCommand(run, serviceStatusCmd())
	return cmd
}

func serviceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the tgrelay service status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var flags runFlags
			s, _, err := newService(&flags)
			if err != nil {
				return err
			}
			st, err := s.Status()
			if err != nil && !errors.Is(err, service.ErrNotInstalled) {
				return fmt.Errorf("service status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusText(st, err))
			return nil
		},
	}
}

func statusText(st service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "not installed"
	}
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
