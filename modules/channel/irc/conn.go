package irc

import (
	"crypto/tls"

	"github.com/lrstanley/girc"
)

// conn is the part of an IRC client the module drives.
type conn interface {
	// Connect blocks until the connection ends. It returns nil after Close.
	Connect() error
	Close()
	Message(target, text string)
	Action(target, text string)
	Join(channels ...string)
	InChannel(channel string) bool
	Nick() string
}

// events receives the client callbacks the module cares about.
type events interface {
	handleConnected()
	handleDisconnected()
	handlePrivmsg(e girc.Event)
}

// gircConn adapts a girc client to conn.
type gircConn struct {
	client *girc.Client
}

func newGircConn(cfg Config, ev events) conn {
	gc := girc.Config{
		Server:     cfg.Server,
		Port:       cfg.Port,
		ServerPass: cfg.ServerPass,
		Nick:       cfg.Nick,
		User:       cfg.User,
		Name:       cfg.Name,
		SSL:        cfg.TLS,
		PingDelay:  cfg.PingDelay,
	}
	if cfg.TLS {
		gc.TLSConfig = &tls.Config{
			ServerName:         cfg.Server,
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for self-signed test servers
		}
	}
	if cfg.SASL.User != "" {
		gc.SASL = &girc.SASLPlain{User: cfg.SASL.User, Pass: cfg.SASL.Pass}
	}

	client := girc.New(gc)
	client.Handlers.Add(girc.CONNECTED, func(_ *girc.Client, _ girc.Event) { ev.handleConnected() })
	client.Handlers.Add(girc.DISCONNECTED, func(_ *girc.Client, _ girc.Event) { ev.handleDisconnected() })
	client.Handlers.Add(girc.PRIVMSG, func(_ *girc.Client, e girc.Event) { ev.handlePrivmsg(e) })
	return &gircConn{client: client}
}

func (g *gircConn) Connect() error { return g.client.Connect() }

func (g *gircConn) Close() { g.client.Close() }

func (g *gircConn) Message(target, text string) { g.client.Cmd.Message(target, text) }

func (g *gircConn) Action(target, text string) { g.client.Cmd.Action(target, text) }

func (g *gircConn) Join(channels ...string) { g.client.Cmd.Join(channels...) }

func (g *gircConn) InChannel(channel string) bool { return g.client.LookupChannel(channel) != nil }

func (g *gircConn) Nick() string { return g.client.GetNick() }
