package telegram

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flemzord/tgrelay/internal/metrics"
)

// messageClient is the part of Client the outbox uses.
type messageClient interface {
	SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error)
}

// Outbox delivers Telegram messages in order from a single goroutine.
// Enqueue never blocks; when the queue is full the message is dropped.
type Outbox struct {
	client  messageClient
	queue   chan SendMessageRequest
	metrics *metrics.Metrics
	logger  *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newOutbox(client messageClient, size int, m *metrics.Metrics, logger *slog.Logger) *Outbox {
	ctx, cancel := context.WithCancel(context.Background())
	return &Outbox{
		client:  client,
		queue:   make(chan SendMessageRequest, size),
		metrics: m,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Enqueue implements Sender.
func (o *Outbox) Enqueue(req SendMessageRequest) bool {
	select {
	case <-o.stopCh:
		o.metrics.TelegramDropped.Inc()
		return false
	default:
	}
	select {
	case o.queue <- req:
		return true
	default:
		o.metrics.TelegramDropped.Inc()
		o.logger.Warn("telegram send queue full, dropping message", "chat_id", req.ChatID)
		return false
	}
}

func (o *Outbox) start() {
	go o.run()
}

// stop flushes queued messages until ctx expires, then abandons the rest.
func (o *Outbox) stop(ctx context.Context) {
	o.stopOnce.Do(func() { close(o.stopCh) })
	select {
	case <-o.done:
	case <-ctx.Done():
		o.cancel()
		<-o.done
	}
	o.cancel()
}

func (o *Outbox) run() {
	defer close(o.done)
	for {
		select {
		case req := <-o.queue:
			o.send(req)
		case <-o.stopCh:
			for {
				select {
				case req := <-o.queue:
					if o.ctx.Err() != nil {
						return
					}
					o.send(req)
				default:
					return
				}
			}
		}
	}
}

func (o *Outbox) send(req SendMessageRequest) {
	if _, err := o.client.SendMessage(o.ctx, req); err != nil {
		o.metrics.TelegramErrors.Inc()
		o.logger.Error("telegram sendMessage failed", "chat_id", req.ChatID, "error", err)
		return
	}
	o.metrics.TelegramSent.Inc()
}
