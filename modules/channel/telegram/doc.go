// Package telegram implements the Telegram side of the relay.
//
// Updates are fetched by long polling and handed, in update_id order, to a
// single event loop. On that loop the Router classifies each update and
// relays it to the mapped IRC channel: text line by line, media as a link to
// the downloaded copy, membership changes as announcements. Commands
// ("/me", "/command") are intercepted before text relay. IRC channel traffic
// comes back through the irc.Listener returned by Listener and is delivered
// by an ordered send queue.
//
// File downloads run on their own goroutines and post their completion back
// to the loop, so a slow download never delays other updates.
//
// The module registers itself as "channel.telegram" via init().
package telegram
