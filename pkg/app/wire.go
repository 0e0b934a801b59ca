package app

import (
	"fmt"
	"log/slog"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/cron"
	ircchan "github.com/flemzord/tgrelay/modules/channel/irc"
	"github.com/flemzord/tgrelay/modules/channel/telegram"
)

// wireRelay connects the Telegram module to the IRC module in both
// directions. Must be called after LoadModules and before Start.
func wireRelay(app *core.App) error {
	tgMod, ok := app.Module(string(telegram.ModuleID))
	if !ok {
		return fmt.Errorf("wire: module %s is required", telegram.ModuleID)
	}
	ircMod, ok := app.Module(string(ircchan.ModuleID))
	if !ok {
		return fmt.Errorf("wire: module %s is required", ircchan.ModuleID)
	}

	tg, ok := tgMod.(*telegram.Telegram)
	if !ok {
		return fmt.Errorf("wire: module %s has unexpected type %T", telegram.ModuleID, tgMod)
	}
	ic, ok := ircMod.(*ircchan.IRC)
	if !ok {
		return fmt.Errorf("wire: module %s has unexpected type %T", ircchan.ModuleID, ircMod)
	}

	tg.AttachIRC(ic, ic)
	ic.Subscribe(tg.Listener())
	return nil
}

// wireScheduler collects periodic jobs from the loaded modules and appends
// a scheduler to the lifecycle when there is at least one.
func wireScheduler(app *core.App, logger *slog.Logger) error {
	s := cron.NewScheduler(logger.With("component", "cron"))
	n, err := s.CollectJobs(app.Modules())
	if err != nil {
		return fmt.Errorf("wire: collecting jobs: %w", err)
	}
	if n == 0 {
		return nil
	}
	app.AppendModule(cron.ModuleID, s)
	return nil
}
