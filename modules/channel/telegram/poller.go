package telegram

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/flemzord/tgrelay/internal/metrics"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// updateSource is the part of Client the poller uses.
type updateSource interface {
	GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error)
}

// UpdateHandler receives one update. Returning false stops the batch without
// advancing the cursor.
type UpdateHandler func(ctx context.Context, u *Update) bool

// Poller implements long-polling for receiving Telegram updates. The cursor
// lives in memory only; after a restart Telegram redelivers what was not
// acknowledged.
type Poller struct {
	client   updateSource
	handle   UpdateHandler
	interval time.Duration
	timeout  int
	pause    time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	offset      int
	lastSuccess atomic.Int64
	errCount    atomic.Int32
}

// PollerStatus is a snapshot of the poller's health.
type PollerStatus struct {
	LastSuccess       time.Time
	ConsecutiveErrors int
}

// NewPoller creates a new Poller.
func NewPoller(client updateSource, handle UpdateHandler, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		client:   client,
		handle:   handle,
		interval: cfg.PollInterval,
		timeout:  cfg.PollingTimeout,
		pause:    errorPauseDuration,
		metrics:  m,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	go p.loop()
}

// Stop signals the polling loop to stop and waits for it to finish.
// An in-flight getUpdates call is cancelled. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.cancel()
	})
	<-p.done
}

// Status returns the current health snapshot.
func (p *Poller) Status() PollerStatus {
	var last time.Time
	if ns := p.lastSuccess.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return PollerStatus{LastSuccess: last, ConsecutiveErrors: int(p.errCount.Load())}
}

// loop runs the long-polling loop until Stop() is called.
func (p *Poller) loop() {
	defer close(p.done)

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		started := time.Now()
		if !p.poll() {
			return
		}
		if !p.sleep(p.interval - time.Since(started)) {
			return
		}
	}
}

// poll runs one getUpdates cycle. It reports false when the poller must exit.
func (p *Poller) poll() bool {
	ctx, span := tracer.Start(p.ctx, "telegram.poll")
	defer span.End()

	started := time.Now()
	updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
		Offset:         p.offset,
		Timeout:        p.timeout,
		AllowedUpdates: []string{"message"},
	})
	p.metrics.PollDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		if p.ctx.Err() != nil {
			return false
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.PollErrors.Inc()

		n := p.errCount.Add(1)
		p.logger.Error("polling getUpdates failed",
			"error", err,
			"consecutive_errors", n,
		)
		if n >= maxConsecutivePollingErrors {
			p.logger.Warn("polling paused after consecutive errors",
				"pause", p.pause,
			)
			if !p.sleep(p.pause) {
				return false
			}
			p.errCount.Store(0)
		}
		return true
	}

	p.errCount.Store(0)
	p.lastSuccess.Store(time.Now().UnixNano())
	span.SetAttributes(attribute.Int("telegram.batch_size", len(updates)))

	if len(updates) == 0 {
		return true
	}

	next := p.offset
	for i := range updates {
		if !p.handle(ctx, &updates[i]) {
			return false
		}
		next = max(next, updates[i].UpdateID+1)
	}
	p.offset = next
	return true
}

// sleep waits for d unless the poller is stopped first.
func (p *Poller) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.stopCh:
		return false
	case <-timer.C:
		return true
	}
}
