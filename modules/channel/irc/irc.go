package irc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lrstanley/girc"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/gateway"
	relayirc "github.com/flemzord/tgrelay/internal/irc"
	"github.com/flemzord/tgrelay/internal/link"
	"github.com/flemzord/tgrelay/internal/metrics"
	"github.com/flemzord/tgrelay/internal/security"
)

// ModuleID identifies the IRC module.
const ModuleID core.ModuleID = "channel.irc"

// ServiceHealth is the health service registered during Provision.
const ServiceHealth = gateway.HealthServicePrefix + "irc"

// ErrNotConnected is returned by Send while the connection is not registered.
var ErrNotConnected = errors.New("irc: not connected")

func init() {
	core.RegisterModule(&IRC{})
}

// Compile-time interface guards.
var (
	_ core.Configurable      = (*IRC)(nil)
	_ core.Provisioner       = (*IRC)(nil)
	_ core.Validator         = (*IRC)(nil)
	_ core.Starter           = (*IRC)(nil)
	_ core.Stopper           = (*IRC)(nil)
	_ gateway.HealthReporter = (*IRC)(nil)
	_ relayirc.Sink          = (*IRC)(nil)
	_ relayirc.Membership    = (*IRC)(nil)
)

// IRC owns the connection to the IRC server.
type IRC struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	appCtx  *core.AppContext

	// dial builds the client; replaced in tests.
	dial func(cfg Config, ev events) conn
	conn conn

	mu        sync.RWMutex
	listeners []relayirc.Listener
	channels  []string
	lastErr   error

	connected atomic.Bool
	stopCh    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// ModuleInfo implements core.Module.
func (m *IRC) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &IRC{} },
	}
}

// Configure implements core.Configurable.
func (m *IRC) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("irc: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *IRC) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	m.appCtx = ctx
	if m.dial == nil {
		m.dial = newGircConn
	}
	if mt, ok := core.LookupService[*metrics.Metrics](ctx, metrics.ServiceName); ok {
		m.metrics = mt
	} else {
		m.metrics = metrics.New(nil)
	}
	if r, ok := core.LookupService[*security.Redactor](ctx, security.ServiceName); ok {
		r.AddLiteral(m.config.ServerPass)
		r.AddLiteral(m.config.SASL.Pass)
	}
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})

	ctx.RegisterService(ServiceHealth, m)
	return nil
}

// Validate implements core.Validator.
func (m *IRC) Validate() error {
	return m.config.validate()
}

// Subscribe registers l for connection and message events. Call before Start.
func (m *IRC) Subscribe(l relayirc.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Start implements core.Starter. The connection is made in the background;
// Start does not wait for registration.
func (m *IRC) Start() error {
	m.channels = m.joinList()
	if len(m.channels) == 0 {
		m.logger.Warn("irc: no channels to join")
	}
	m.conn = m.dial(m.config, m)

	go m.run()
	m.logger.Info("irc connecting",
		"server", m.config.Server,
		"port", m.config.Port,
		"tls", m.config.TLS,
		"nick", m.config.Nick,
		"channels", len(m.channels),
	)
	return nil
}

// Stop implements core.Stopper.
func (m *IRC) Stop(ctx context.Context) error {
	if m.conn == nil {
		return nil
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.conn.Close()
	})
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("irc: stop: %w", ctx.Err())
	}
}

// joinList merges the linked channels with the configured extra channels,
// dropping case-insensitive duplicates.
func (m *IRC) joinList() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ch string) {
		key := strings.ToLower(ch)
		if ch == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ch)
	}

	if links, ok := core.LookupService[*link.Registry](m.appCtx, link.ServiceName); ok {
		for _, l := range links.Links() {
			add(l.Channel)
		}
	} else {
		m.logger.Warn("irc: no link registry, joining configured channels only")
	}
	for _, ch := range m.config.Channels {
		add(ch)
	}
	return out
}

// run keeps the connection up until Stop.
func (m *IRC) run() {
	defer close(m.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.config.ReconnectDelay
	b.MaxInterval = m.config.MaxReconnectDelay

	for {
		started := time.Now()
		err := m.conn.Connect()
		m.handleDisconnected()

		select {
		case <-m.stopCh:
			return
		default:
		}
		if err == nil {
			return
		}

		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()

		if time.Since(started) > m.config.MaxReconnectDelay {
			b.Reset()
		}
		delay := b.NextBackOff()
		m.metrics.IRCReconnects.Inc()
		m.logger.Warn("irc connection lost, reconnecting", "error", err, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Send implements irc.Sink. Subscribers see the message through OnOutgoing
// once it has been written.
func (m *IRC) Send(msg relayirc.Message) error {
	if msg.Channel == "" {
		return errors.New("irc: message without channel")
	}
	if !m.connected.Load() {
		return ErrNotConnected
	}

	text := msg.Text
	if strings.ContainsAny(text, "\r\n") {
		text = relayirc.Flatten(text)
	}
	if text == "" {
		return nil
	}

	if msg.Action {
		m.conn.Action(msg.Channel, text)
	} else {
		m.conn.Message(msg.Channel, text)
	}

	msg.Text = text
	for _, l := range m.snapshot() {
		l.OnOutgoing(msg)
	}
	return nil
}

// InChannel implements irc.Membership.
func (m *IRC) InChannel(channel string) bool {
	return m.connected.Load() && m.conn.InChannel(channel)
}

// Health implements gateway.HealthReporter.
func (m *IRC) Health() gateway.ComponentHealth {
	h := gateway.ComponentHealth{Name: "irc", Available: m.connected.Load()}
	if h.Available {
		h.Detail = fmt.Sprintf("connected to %s:%d as %s", m.config.Server, m.config.Port, m.conn.Nick())
		return h
	}

	m.mu.RLock()
	lastErr := m.lastErr
	m.mu.RUnlock()
	h.Detail = "disconnected"
	if lastErr != nil {
		h.Detail += ": " + lastErr.Error()
	}
	return h
}

func (m *IRC) handleConnected() {
	m.connected.Store(true)
	m.metrics.IRCConnected.Set(1)
	m.logger.Info("irc registered", "nick", m.conn.Nick())

	if len(m.channels) > 0 {
		m.conn.Join(m.channels...)
	}
	for _, l := range m.snapshot() {
		l.OnConnected()
	}
}

func (m *IRC) handleDisconnected() {
	if m.connected.Swap(false) {
		m.metrics.IRCConnected.Set(0)
		m.logger.Warn("irc disconnected")
	}
}

func (m *IRC) handlePrivmsg(e girc.Event) {
	if e.Source == nil || len(e.Params) == 0 || !e.IsFromChannel() {
		return
	}
	if strings.EqualFold(e.Source.Name, m.conn.Nick()) {
		return
	}

	msg := relayirc.Message{
		Channel: e.Params[0],
		Nick:    e.Source.Name,
		Text:    e.Last(),
	}
	if e.IsAction() {
		msg.Action = true
		msg.Text = e.StripAction()
	}

	m.metrics.IRCRelayed.WithLabelValues("from_irc").Inc()
	for _, l := range m.snapshot() {
		l.OnIncoming(msg)
	}
}

func (m *IRC) snapshot() []relayirc.Listener {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]relayirc.Listener(nil), m.listeners...)
}
