// Package irctest provides an in-memory IRC sink for tests.
package irctest

import (
	"strings"
	"sync"

	"github.com/flemzord/tgrelay/internal/irc"
)

// Recorder is a test double implementing irc.Sink and irc.Membership. It
// records sent messages and reports membership for the channels it was told
// about via Join.
type Recorder struct {
	mu       sync.Mutex
	sent     []irc.Message
	channels map[string]bool

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(msg irc.Message) error
}

// Compile-time interface guards.
var (
	_ irc.Sink       = (*Recorder)(nil)
	_ irc.Membership = (*Recorder)(nil)
)

// NewRecorder creates a Recorder that is a member of the given channels.
func NewRecorder(channels ...string) *Recorder {
	r := &Recorder{channels: make(map[string]bool)}
	for _, ch := range channels {
		r.Join(ch)
	}
	return r
}

// Join marks the recorder as a member of channel.
func (r *Recorder) Join(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[strings.ToLower(channel)] = true
}

// Part removes the recorder from channel.
func (r *Recorder) Part(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, strings.ToLower(channel))
}

// InChannel implements irc.Membership.
func (r *Recorder) InChannel(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[strings.ToLower(channel)]
}

// Send records msg. If SendFunc is set, it delegates to it.
func (r *Recorder) Send(msg irc.Message) error {
	if r.SendFunc != nil {
		return r.SendFunc(msg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of all recorded messages.
func (r *Recorder) Sent() []irc.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]irc.Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// Texts returns the text of every recorded message.
func (r *Recorder) Texts() []string {
	sent := r.Sent()
	out := make([]string, len(sent))
	for i, m := range sent {
		out[i] = m.Text
	}
	return out
}

// Reset clears the recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
