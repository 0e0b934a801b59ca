package irc

import "errors"

// Sentinel errors for IRC operations.
var (
	// ErrNotConnected indicates the client has no live server connection.
	ErrNotConnected = errors.New("irc: not connected")

	// ErrInvalidChannel indicates the target is not a valid channel name.
	ErrInvalidChannel = errors.New("irc: invalid channel name")

	// ErrEmptyMessage indicates a message without text.
	ErrEmptyMessage = errors.New("irc: empty message")
)
