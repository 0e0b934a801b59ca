// Package link maps Telegram chats to IRC channels.
package link

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ServiceName is the AppContext service the registry is published under.
const ServiceName = "link.registry"

// Sentinel errors for registry operations.
var (
	// ErrNotFound indicates no link exists for the requested chat or channel.
	ErrNotFound = errors.New("link: not found")

	// ErrDuplicate indicates the chat or channel is already linked.
	ErrDuplicate = errors.New("link: already linked")
)

// Link binds one Telegram chat to one IRC channel.
type Link struct {
	ChatID  int64
	Channel string
}

// Registry holds the static chat/channel mapping. Lookups are safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	byChat    map[int64]Link
	byChannel map[string]Link
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byChat:    make(map[int64]Link),
		byChannel: make(map[string]Link),
	}
}

// FromMap builds a Registry from a chat ID → channel mapping.
func FromMap(m map[int64]string) (*Registry, error) {
	r := NewRegistry()

	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var errs []error
	for _, id := range ids {
		if err := r.Add(Link{ChatID: id, Channel: m[id]}); err != nil {
			errs = append(errs, err)
		}
	}
	return r, errors.Join(errs...)
}

// Add inserts a link. Both the chat ID and the channel must be unused.
func (r *Registry) Add(l Link) error {
	if strings.TrimSpace(l.Channel) == "" {
		return fmt.Errorf("link: chat %d: channel name is empty", l.ChatID)
	}
	key := channelKey(l.Channel)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byChat[l.ChatID]; ok {
		return fmt.Errorf("%w: chat %d is linked to %s", ErrDuplicate, l.ChatID, existing.Channel)
	}
	if existing, ok := r.byChannel[key]; ok {
		return fmt.Errorf("%w: channel %s is linked to chat %d", ErrDuplicate, l.Channel, existing.ChatID)
	}

	r.byChat[l.ChatID] = l
	r.byChannel[key] = l
	return nil
}

// ChannelFor returns the IRC channel linked to chatID.
func (r *Registry) ChannelFor(chatID int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byChat[chatID]
	if !ok {
		return "", fmt.Errorf("%w: chat %d", ErrNotFound, chatID)
	}
	return l.Channel, nil
}

// ChatIDFor returns the Telegram chat linked to channel. Channel names
// compare case-insensitively.
func (r *Registry) ChatIDFor(channel string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byChannel[channelKey(channel)]
	if !ok {
		return 0, fmt.Errorf("%w: channel %s", ErrNotFound, channel)
	}
	return l.ChatID, nil
}

// Links returns every link sorted by channel name.
func (r *Registry) Links() []Link {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Link, 0, len(r.byChat))
	for _, l := range r.byChat {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Link) int {
		return cmp.Compare(channelKey(a.Channel), channelKey(b.Channel))
	})
	return out
}

// Len returns the number of links.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChat)
}

func channelKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
