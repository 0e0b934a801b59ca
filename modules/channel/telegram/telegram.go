package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/cron"
	"github.com/flemzord/tgrelay/internal/filestore"
	"github.com/flemzord/tgrelay/internal/gateway"
	"github.com/flemzord/tgrelay/internal/irc"
	"github.com/flemzord/tgrelay/internal/link"
	"github.com/flemzord/tgrelay/internal/metrics"
	"github.com/flemzord/tgrelay/internal/security"
)

// ModuleID identifies the Telegram module.
const ModuleID core.ModuleID = "channel.telegram"

const ircModuleID core.ModuleID = "channel.irc"

// Service names registered during Provision.
const (
	ServiceLinks    = link.ServiceName
	ServiceFiles    = filestore.ServiceName
	ServiceCommands = "telegram.commands"
	ServiceHealth   = gateway.HealthServicePrefix + "telegram"
)

const startupTimeout = 30 * time.Second

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ core.Configurable      = (*Telegram)(nil)
	_ core.Provisioner       = (*Telegram)(nil)
	_ core.Validator         = (*Telegram)(nil)
	_ core.Starter           = (*Telegram)(nil)
	_ core.Stopper           = (*Telegram)(nil)
	_ cron.JobProvider       = (*Telegram)(nil)
	_ gateway.HealthReporter = (*Telegram)(nil)
)

// Telegram is the Telegram side of the relay: it polls the Bot API, routes
// updates to IRC and relays IRC traffic back.
type Telegram struct {
	config   Config
	client   *Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
	links    *link.Registry
	store    *filestore.Store
	commands *Commands

	loop   *eventLoop
	outbox *Outbox
	router *Router
	bridge *ircBridge
	poller *Poller
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Telegram{} },
		// IRC must outlive the drain in Stop, which still relays to it.
		After: []core.ModuleID{ircModuleID},
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It builds the relay pipeline and
// publishes the channel links and file store for the other modules.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL)
	if r, ok := core.LookupService[*security.Redactor](ctx, security.ServiceName); ok {
		r.AddLiteral(t.config.Token)
	}

	links, err := link.FromMap(t.config.Channels)
	if err != nil {
		return fmt.Errorf("telegram: channel map: %w", err)
	}
	t.links = links
	t.store = filestore.New(t.config.storageRoot(ctx.DataDir), t.config.Storage.BaseURL)

	if m, ok := core.LookupService[*metrics.Metrics](ctx, metrics.ServiceName); ok {
		t.metrics = m
	} else {
		t.metrics = metrics.New(nil)
	}

	t.commands = NewCommands()
	if err := RegisterBuiltins(t.commands); err != nil {
		return err
	}

	t.loop = newEventLoop(t.config.QueueSize, t.logger)
	t.outbox = newOutbox(t.client, t.config.QueueSize, t.metrics, t.logger)
	t.router = NewRouter(RouterDeps{
		Links:    t.links,
		Telegram: t.outbox,
		Fetcher:  NewFetcher(t.client, t.store, t.config.DownloadTimeout, t.metrics),
		Commands: t.commands,
		Post:     t.loop.post,
		Metrics:  t.metrics,
		Logger:   t.logger,
	}, RouterConfig{
		MaxLines:       t.config.MaxLines,
		MaxLineBytes:   t.config.MaxLineBytes,
		NotifyFailures: t.config.NotifyFailures,
		Welcome:        t.config.welcomeFor,
	})
	t.bridge = &ircBridge{
		links:    t.links,
		telegram: t.outbox,
		router:   t.router,
		post:     t.loop.tryPost,
		metrics:  t.metrics,
		logger:   t.logger,
	}

	ctx.RegisterService(ServiceLinks, t.links)
	ctx.RegisterService(ServiceFiles, t.store)
	ctx.RegisterService(ServiceCommands, t.commands)
	ctx.RegisterService(ServiceHealth, t)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	return t.config.validate()
}

// AttachIRC connects the router to the IRC side. Must be called before Start.
func (t *Telegram) AttachIRC(sink irc.Sink, membership irc.Membership) {
	t.router.irc = sink
	t.router.membership = membership
}

// Listener returns the irc.Listener relaying IRC traffic to Telegram.
func (t *Telegram) Listener() irc.Listener {
	return t.bridge
}

// Commands returns the command registry, for registering extra commands
// before Start.
func (t *Telegram) Commands() *Commands {
	return t.commands
}

// Start implements core.Starter. It checks the token, clears any webhook so
// getUpdates works, then starts the loop, the outbox and the poller.
func (t *Telegram) Start() error {
	if t.router.irc == nil || t.router.membership == nil {
		return errors.New("telegram: IRC not attached, call AttachIRC before Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	user, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.router.SetBot(*user)
	t.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	if err := t.client.DeleteWebhook(ctx); err != nil {
		t.logger.Warn("telegram: deleteWebhook failed, polling may be rejected", "error", err)
	}

	if err := os.MkdirAll(t.store.Root(), 0o755); err != nil {
		return fmt.Errorf("telegram: create storage root: %w", err)
	}

	t.loop.start()
	t.outbox.start()
	t.poller = NewPoller(t.client, t.enqueueUpdate, t.config, t.metrics, t.logger)
	t.poller.Start()

	t.logger.Info("telegram polling started",
		"timeout", t.config.PollingTimeout,
		"links", t.links.Len(),
		"storage", t.store.Root(),
	)
	return nil
}

// enqueueUpdate hands an update to the event loop.
func (t *Telegram) enqueueUpdate(ctx context.Context, u *Update) bool {
	return t.loop.post(func() { t.router.Route(ctx, u) })
}

// Stop implements core.Stopper. Polling stops first, then queued work and
// pending downloads drain until ctx expires.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")
	if t.poller == nil {
		return nil
	}

	t.poller.Stop()
	t.drain(ctx)
	return nil
}

// drain runs the routing tasks already queued so every download they start
// is registered, waits for those downloads while the loop still accepts their
// continuations, then closes the loop and flushes the outbox.
func (t *Telegram) drain(ctx context.Context) {
	if err := t.loop.flush(ctx); err != nil {
		t.logger.Warn("telegram: queued updates still pending at shutdown", "error", err)
	}
	if err := t.router.Wait(ctx); err != nil {
		t.logger.Warn("telegram: downloads still running at shutdown", "error", err)
	}
	t.loop.stop()
	t.outbox.stop(ctx)
}

// Jobs implements cron.JobProvider.
func (t *Telegram) Jobs() []cron.Job {
	if t.config.Storage.Retention <= 0 {
		return nil
	}
	return []cron.Job{&cron.StoragePruneJob{
		Store:        t.store,
		MaxAge:       t.config.Storage.Retention,
		Logger:       t.logger,
		Pruned:       t.metrics.FilesPruned,
		ScheduleExpr: t.config.Storage.PruneSchedule,
	}}
}

// Health implements gateway.HealthReporter.
func (t *Telegram) Health() gateway.ComponentHealth {
	h := gateway.ComponentHealth{Name: "telegram"}
	if t.poller == nil {
		h.Detail = "not started"
		return h
	}

	st := t.poller.Status()
	h.Available = st.ConsecutiveErrors < maxConsecutivePollingErrors
	switch {
	case st.LastSuccess.IsZero():
		h.Detail = "no successful poll yet"
	case !t.router.Ready():
		h.Detail = "waiting for IRC"
	default:
		h.Detail = fmt.Sprintf("last poll %s ago", time.Since(st.LastSuccess).Truncate(time.Second))
	}
	if st.ConsecutiveErrors > 0 {
		h.Detail += fmt.Sprintf(", %d consecutive errors", st.ConsecutiveErrors)
	}
	return h
}
