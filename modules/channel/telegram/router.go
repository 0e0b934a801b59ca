package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgrelay/internal/irc"
	"github.com/flemzord/tgrelay/internal/link"
	"github.com/flemzord/tgrelay/internal/metrics"
)

const (
	cutOffMarker      = "...(cut off more messages)..."
	unsupportedNotice = "Unable to relay message to IRC because it is not supported"
	failedFileNotice  = "Unable to relay file to IRC: the download failed"
)

// replyOriginPattern recovers the IRC author from a message the bot relayed
// to Telegram: "<nick> text" or "*nick action*".
var replyOriginPattern = regexp.MustCompile(`^<(\S+)>|^\*(\S+) `)

// mediaPhrases is the action text used when announcing a relayed file.
var mediaPhrases = map[Kind]string{
	KindAudio:    "uploaded an audio file",
	KindDocument: "uploaded a document",
	KindPhoto:    "uploaded a picture",
	KindSticker:  "sent a sticker to the group",
	KindVideo:    "uploaded a video",
	KindVoice:    "sent a voice message",
}

// RouterConfig holds the relay policy knobs of a Router.
type RouterConfig struct {
	MaxLines       int
	MaxLineBytes   int
	NotifyFailures bool

	// Welcome returns the welcome template for an IRC channel.
	Welcome func(channel string) (string, bool)
}

// Router dispatches classified Telegram updates. Route and every download
// continuation must run on the same event loop.
type Router struct {
	links      *link.Registry
	irc        irc.Sink
	membership irc.Membership
	telegram   Sender
	fetcher    fileFetcher
	commands   *Commands
	post       func(func()) bool
	cfg        RouterConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger

	bot       User
	ready     atomic.Bool
	downloads sync.WaitGroup
}

// RouterDeps groups the collaborators of a Router.
type RouterDeps struct {
	Links      *link.Registry
	IRC        irc.Sink
	Membership irc.Membership
	Telegram   Sender
	Fetcher    fileFetcher
	Commands   *Commands

	// Post schedules a function on the event loop.
	Post func(func()) bool

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter creates a Router. It starts not ready.
func NewRouter(deps RouterDeps, cfg RouterConfig) *Router {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 10
	}
	if cfg.Welcome == nil {
		cfg.Welcome = func(string) (string, bool) { return "", false }
	}
	return &Router{
		links:      deps.Links,
		irc:        deps.IRC,
		membership: deps.Membership,
		telegram:   deps.Telegram,
		fetcher:    deps.Fetcher,
		commands:   deps.Commands,
		post:       deps.Post,
		cfg:        cfg,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// SetBot records the bot's own account, used for reply attribution and
// "/cmd@bot" addressing. Call before the first Route.
func (r *Router) SetBot(u User) {
	r.bot = u
}

// MarkReady enables relaying. It is called once IRC registration completes
// and is never undone.
func (r *Router) MarkReady() {
	if r.ready.CompareAndSwap(false, true) {
		r.logger.Info("relay ready")
	}
}

// Ready reports whether MarkReady was called.
func (r *Router) Ready() bool {
	return r.ready.Load()
}

// Wait blocks until in-flight downloads finish or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.downloads.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Route handles one update.
func (r *Router) Route(ctx context.Context, u *Update) {
	if u == nil || u.Message == nil {
		return
	}
	if !r.ready.Load() {
		r.drop("not_ready")
		return
	}

	kind := Classify(u)
	msg := u.Message

	ctx, span := tracer.Start(ctx, "telegram.route", trace.WithAttributes(
		attribute.Int("telegram.update_id", u.UpdateID),
		attribute.String("telegram.kind", kind.String()),
		attribute.Int64("telegram.chat_id", msg.Chat.ID),
	))
	defer span.End()

	r.metrics.UpdatesTotal.WithLabelValues(kind.String()).Inc()

	channel, err := r.links.ChannelFor(msg.Chat.ID)
	if err != nil && !errors.Is(err, link.ErrNotFound) {
		r.logger.Error("channel lookup failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	if channel != "" && !r.membership.InChannel(channel) {
		r.logger.Debug("not in channel, dropping update", "channel", channel, "update_id", u.UpdateID)
		r.drop("not_in_channel")
		return
	}
	span.SetAttributes(attribute.String("irc.channel", channel))

	switch {
	case kind == KindEntities:
		if !r.runCommand(ctx, msg, channel) {
			r.relayText(msg, channel)
		}
	case kind == KindMessage:
		r.relayText(msg, channel)
	case kind.isMedia():
		r.relayMedia(ctx, msg, kind, channel)
	case kind == KindNewChatMembers:
		r.announceJoins(msg, channel)
	case kind == KindLeftChatMember:
		r.announceLeave(msg, channel)
	case kind.isUnsupported():
		r.replyUnsupported(msg, kind, channel)
	default:
		r.logger.Debug("update kind not relayed", "kind", kind, "update_id", u.UpdateID)
		r.drop("unhandled")
	}
}

// runCommand reports whether msg was consumed as a command.
func (r *Router) runCommand(ctx context.Context, msg *Message, channel string) bool {
	name, args, ok := ParseCommand(msg.Text, r.bot.Username)
	if !ok {
		return false
	}
	cmd, ok := r.commands.Lookup(name)
	if !ok {
		return false
	}

	if err := cmd.checkArity(len(args)); err != nil {
		var arityErr *CommandArityError
		if errors.As(err, &arityErr) {
			r.telegram.Enqueue(SendMessageRequest{ChatID: msg.Chat.ID, Text: arityErr.UserMessage()})
		}
		r.metrics.CommandsTotal.WithLabelValues(name, "arity").Inc()
		return true
	}

	inv := Invocation{
		Name:      name,
		Args:      args,
		ChatID:    msg.Chat.ID,
		Channel:   channel,
		Username:  senderName(msg.From),
		MessageID: msg.MessageID,
		Telegram:  r.telegram,
		IRC:       r.irc,
	}
	if err := cmd.Func(ctx, inv); err != nil {
		r.logger.Warn("telegram command failed", "command", name, "chat_id", msg.Chat.ID, "error", err)
		r.metrics.CommandsTotal.WithLabelValues(name, "error").Inc()
		return true
	}
	r.metrics.CommandsTotal.WithLabelValues(name, "ok").Inc()
	return true
}

func (r *Router) relayText(msg *Message, channel string) {
	if channel == "" {
		return
	}
	lines := irc.SplitLines(msg.Text)
	if len(lines) == 0 {
		return
	}

	if limit := r.cfg.MaxLines; len(lines) > limit {
		r.telegram.Enqueue(SendMessageRequest{
			ChatID: msg.Chat.ID,
			Text:   fmt.Sprintf("Cut off message to IRC; too many lines (max. %d supported)", limit),
		})
		lines = append(lines[:limit:limit], irc.Italic(cutOffMarker))
		r.metrics.LinesTruncated.Inc()
	}

	prefix := "[TG] <" + irc.Color(senderName(msg.From)) + "> "
	if reply := r.replyUsername(msg); reply != "" {
		prefix += "@" + irc.Color(reply) + ": "
	}

	for _, line := range lines {
		for _, part := range irc.SplitLong(line, r.bodyBudget(prefix)) {
			r.sendIRC(channel, prefix+part)
		}
	}
}

// bodyBudget is how many bytes of text fit after prefix on one IRC line.
func (r *Router) bodyBudget(prefix string) int {
	if r.cfg.MaxLineBytes <= 0 {
		return 0
	}
	return max(r.cfg.MaxLineBytes-len(prefix), 64)
}

func (r *Router) relayMedia(ctx context.Context, msg *Message, kind Kind, channel string) {
	if channel == "" {
		return
	}
	fileID := mediaFileID(msg, kind)
	if fileID == "" {
		r.drop("no_file_id")
		return
	}

	chatID := msg.Chat.ID
	messageID := msg.MessageID
	head := "[TG] "
	if reply := r.replyUsername(msg); reply != "" {
		head += "@" + irc.Color(reply) + ": "
	}
	head += irc.Color(senderName(msg.From)) + " " + mediaPhrases[kind] + ": "
	caption := irc.Flatten(msg.Caption)

	fetchCtx := context.WithoutCancel(ctx)
	r.downloads.Add(1)
	go func() {
		defer r.downloads.Done()
		stored, err := r.fetcher.Fetch(fetchCtx, fileID, chatID)
		posted := r.post(func() {
			if err != nil {
				r.logger.Warn("file relay failed", "file_id", fileID, "chat_id", chatID, "error", err)
				r.drop("download_failed")
				if r.cfg.NotifyFailures {
					r.telegram.Enqueue(SendMessageRequest{ChatID: chatID, Text: failedFileNotice, ReplyToMessageID: messageID})
				}
				return
			}
			line := head + stored.PublicURL
			if caption != "" {
				line += " (" + caption + ")"
			}
			r.sendIRC(channel, line)
		})
		if !posted {
			r.logger.Debug("event loop stopped, dropping file relay", "file_id", fileID)
		}
	}()
}

// mediaFileID picks the file to download. Photos use the last, largest size.
func mediaFileID(msg *Message, kind Kind) string {
	switch kind {
	case KindAudio:
		return msg.Audio.FileID
	case KindDocument:
		return msg.Document.FileID
	case KindPhoto:
		return msg.Photo[len(msg.Photo)-1].FileID
	case KindSticker:
		return msg.Sticker.FileID
	case KindVideo:
		return msg.Video.FileID
	case KindVoice:
		return msg.Voice.FileID
	}
	return ""
}

func (r *Router) announceJoins(msg *Message, channel string) {
	if channel == "" {
		return
	}
	from := senderName(msg.From)
	tmpl, hasWelcome := r.cfg.Welcome(channel)

	for i := range msg.NewChatMembers {
		nick := senderName(&msg.NewChatMembers[i])
		r.sendIRC(channel, "[TG] "+irc.Color(nick)+" joined the Telegram group (added by "+irc.Color(from)+"), say hello!")

		if !hasWelcome {
			continue
		}
		r.telegram.Enqueue(SendMessageRequest{
			ChatID:                msg.Chat.ID,
			Text:                  renderWelcome(tmpl, nick),
			ParseMode:             "Markdown",
			DisableWebPagePreview: true,
			ReplyToMessageID:      msg.MessageID,
		})
	}
}

func (r *Router) announceLeave(msg *Message, channel string) {
	if channel == "" {
		return
	}
	r.sendIRC(channel, "[TG] "+irc.Color(senderName(msg.LeftChatMember))+" left the Telegram group.")
}

func (r *Router) replyUnsupported(msg *Message, kind Kind, channel string) {
	if channel == "" {
		return
	}
	r.logger.Info("update not relayed", "chat_id", msg.Chat.ID, "error", unsupportedContent(kind))
	r.telegram.Enqueue(SendMessageRequest{ChatID: msg.Chat.ID, Text: unsupportedNotice})
	r.drop("unsupported")
}

// replyUsername returns who msg replies to. Replies to the bot's own relayed
// messages are attributed to the IRC user the bot was relaying.
func (r *Router) replyUsername(msg *Message) string {
	orig := msg.ReplyToMessage
	if orig == nil {
		return ""
	}
	if !r.isBot(orig.From) {
		return senderName(orig.From)
	}
	m := replyOriginPattern.FindStringSubmatch(orig.Text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func (r *Router) isBot(u *User) bool {
	if u == nil {
		return false
	}
	if r.bot.ID != 0 && u.ID == r.bot.ID {
		return true
	}
	return r.bot.Username != "" && strings.EqualFold(u.Username, r.bot.Username)
}

func (r *Router) sendIRC(channel, text string) {
	if err := r.irc.Send(irc.Message{Channel: channel, Text: text, RelayIgnore: true}); err != nil {
		r.logger.Warn("irc send failed", "channel", channel, "error", err)
		return
	}
	r.metrics.IRCRelayed.WithLabelValues("to_irc").Inc()
}

func (r *Router) drop(reason string) {
	r.metrics.UpdatesDropped.WithLabelValues(reason).Inc()
}

// senderName is the username, or the full name for users without one.
func senderName(u *User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
