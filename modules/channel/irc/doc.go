// Package irc implements the channel.irc module: one IRC connection that joins
// every channel linked to Telegram, reports channel membership and fans IRC
// channel traffic out to subscribed listeners. The connection is re-established
// with exponential backoff when it drops.
package irc
