// Package irc defines the IRC side of the relay: the message model, the
// interfaces the IRC connection exposes to the Telegram bridge, mIRC text
// formatting and line splitting.
package irc

// Message is a PRIVMSG sent to or received from an IRC channel.
type Message struct {
	// Channel is the target (outgoing) or source (incoming) channel.
	Channel string

	// Nick is the sender's nickname. Empty for messages the bot sends.
	Nick string

	// Text is the message body without CTCP framing.
	Text string

	// Action marks a CTCP ACTION (/me).
	Action bool

	// RelayIgnore marks messages that originate from Telegram and must not be
	// echoed back to Telegram once sent.
	RelayIgnore bool
}

// Sink delivers messages to IRC.
type Sink interface {
	Send(msg Message) error
}

// Membership reports which channels the bot currently sits in.
type Membership interface {
	InChannel(channel string) bool
}

// Listener receives IRC events. Callbacks run on the IRC client's goroutine
// and must not block.
type Listener interface {
	// OnConnected fires once registration with the server completes.
	OnConnected()

	// OnIncoming fires for channel messages sent by other users.
	OnIncoming(msg Message)

	// OnOutgoing fires after the bot sent a message.
	OnOutgoing(msg Message)
}
