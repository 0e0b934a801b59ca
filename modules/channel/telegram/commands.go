package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flemzord/tgrelay/internal/irc"
)

// Unbounded is the MaxArgs value for commands accepting any number of arguments.
const Unbounded = -1

var (
	// ErrDuplicateCommand is returned when a command name is registered twice.
	ErrDuplicateCommand = errors.New("telegram: command already registered")

	errNoChannel = errors.New("no IRC channel mapped to this chat")
)

// Sender queues messages for delivery to Telegram.
type Sender interface {
	Enqueue(req SendMessageRequest) bool
}

// Invocation carries everything a command handler needs.
type Invocation struct {
	Name     string
	Args     []string
	ChatID   int64
	Channel  string
	Username string

	// MessageID is the Telegram message that issued the command.
	MessageID int

	Telegram Sender
	IRC      irc.Sink
}

// Reply queues text for the chat that issued the command.
func (inv Invocation) Reply(text string) {
	inv.Telegram.Enqueue(SendMessageRequest{ChatID: inv.ChatID, Text: text})
}

// CommandFunc handles a command invocation.
type CommandFunc func(ctx context.Context, inv Invocation) error

// Command is a Telegram slash command.
type Command struct {
	Name    string
	MinArgs int
	MaxArgs int // Unbounded for no upper limit
	Func    CommandFunc
}

func (c Command) checkArity(n int) error {
	if n < c.MinArgs || (c.MaxArgs != Unbounded && n > c.MaxArgs) {
		return &CommandArityError{Command: c.Name, Got: n, Min: c.MinArgs, Max: c.MaxArgs}
	}
	return nil
}

// Commands is a name-keyed command registry.
type Commands struct {
	mu     sync.RWMutex
	byName map[string]Command
}

// NewCommands returns an empty registry.
func NewCommands() *Commands {
	return &Commands{byName: make(map[string]Command)}
}

// Register adds cmd. Names are unique.
func (c *Commands) Register(cmd Command) error {
	switch {
	case cmd.Name == "" || strings.ContainsAny(cmd.Name, " /@"):
		return fmt.Errorf("telegram: invalid command name %q", cmd.Name)
	case cmd.Func == nil:
		return fmt.Errorf("telegram: command %q has no handler", cmd.Name)
	case cmd.MinArgs < 0:
		return fmt.Errorf("telegram: command %q: negative min args", cmd.Name)
	case cmd.MaxArgs != Unbounded && cmd.MaxArgs < cmd.MinArgs:
		return fmt.Errorf("telegram: command %q: max args %d below min args %d", cmd.Name, cmd.MaxArgs, cmd.MinArgs)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byName[cmd.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
	}
	c.byName[cmd.Name] = cmd
	return nil
}

// Lookup returns the command registered under name.
func (c *Commands) Lookup(name string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cmd, ok := c.byName[name]
	return cmd, ok
}

// Names returns the registered command names, sorted.
func (c *Commands) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseCommand splits a "/name args..." message. A "@bot" suffix on the
// name is accepted only when it addresses botUsername.
func ParseCommand(text, botUsername string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	name = fields[0][1:]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		if botUsername == "" || !strings.EqualFold(name[at+1:], botUsername) {
			return "", nil, false
		}
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

// RegisterBuiltins adds /command and /me.
func RegisterBuiltins(c *Commands) error {
	return errors.Join(
		c.Register(Command{Name: "command", MinArgs: 0, MaxArgs: Unbounded, Func: commandCommand}),
		c.Register(Command{Name: "me", MinArgs: 0, MaxArgs: Unbounded, Func: meCommand}),
	)
}

// commandCommand announces the command on IRC and then sends it raw, so
// IRC bots in the channel pick it up.
func commandCommand(_ context.Context, inv Invocation) error {
	if inv.Channel == "" {
		return errNoChannel
	}
	text := strings.Join(inv.Args, " ")
	if err := inv.IRC.Send(irc.Message{
		Channel: inv.Channel,
		Text:    "[TG] " + inv.Username + " issued command: " + text,
	}); err != nil {
		return err
	}
	return inv.IRC.Send(irc.Message{Channel: inv.Channel, Text: text})
}

func meCommand(_ context.Context, inv Invocation) error {
	if inv.Channel == "" {
		return errNoChannel
	}
	return inv.IRC.Send(irc.Message{
		Channel: inv.Channel,
		Text:    "[TG] *" + inv.Username + " " + strings.Join(inv.Args, " ") + "*",
	})
}
