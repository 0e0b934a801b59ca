package telegram

import (
	"log/slog"

	"github.com/flemzord/tgrelay/internal/irc"
	"github.com/flemzord/tgrelay/internal/link"
	"github.com/flemzord/tgrelay/internal/metrics"
)

var _ irc.Listener = (*ircBridge)(nil)

// ircBridge relays IRC channel traffic into the mapped Telegram chats.
// IRC callbacks only post to the event loop; the relay itself runs there.
type ircBridge struct {
	links    *link.Registry
	telegram Sender
	router   *Router
	post     func(func()) bool
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// OnConnected implements irc.Listener.
func (b *ircBridge) OnConnected() {
	b.router.MarkReady()
}

// OnIncoming implements irc.Listener.
func (b *ircBridge) OnIncoming(msg irc.Message) {
	b.schedule(msg, true)
}

// OnOutgoing implements irc.Listener. Messages the relay wrote itself carry
// RelayIgnore and are not echoed back.
func (b *ircBridge) OnOutgoing(msg irc.Message) {
	if msg.RelayIgnore {
		return
	}
	b.schedule(msg, false)
}

func (b *ircBridge) schedule(msg irc.Message, incoming bool) {
	if !b.post(func() { b.relay(msg, incoming) }) {
		b.metrics.TelegramDropped.Inc()
		b.logger.Warn("event loop busy, dropping IRC message", "channel", msg.Channel)
	}
}

func (b *ircBridge) relay(msg irc.Message, incoming bool) {
	chatID, err := b.links.ChatIDFor(msg.Channel)
	if err != nil {
		return
	}

	text := irc.StripFormatting(msg.Text)
	if incoming {
		text = formatIRCLine(msg.Nick, text, msg.Action)
	}
	if text == "" {
		return
	}

	if b.telegram.Enqueue(SendMessageRequest{ChatID: chatID, Text: text}) {
		b.metrics.IRCRelayed.WithLabelValues("to_telegram").Inc()
	}
}

// formatIRCLine renders an IRC message for Telegram: "<nick> text", or
// "*nick text*" for actions.
func formatIRCLine(nick, text string, action bool) string {
	if action {
		return "*" + nick + " " + text + "*"
	}
	return "<" + nick + "> " + text
}
