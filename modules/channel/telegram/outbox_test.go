package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/internal/metrics"
)

// recordingClient captures sendMessage calls. When gate is set every call
// waits on it first.
type recordingClient struct {
	mu   sync.Mutex
	reqs []SendMessageRequest
	gate chan struct{}
	fail error
}

func (c *recordingClient) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.fail != nil {
		return nil, c.fail
	}
	return &Message{MessageID: len(c.reqs)}, nil
}

func (c *recordingClient) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.reqs))
	for i, r := range c.reqs {
		out[i] = r.Text
	}
	return out
}

func TestOutbox_DeliversInOrder(t *testing.T) {
	t.Parallel()

	client := &recordingClient{}
	o := newOutbox(client, 16, metrics.New(nil), discardLogger())
	o.start()

	for _, text := range []string{"one", "two", "three"} {
		if !o.Enqueue(SendMessageRequest{ChatID: 1, Text: text}) {
			t.Fatalf("Enqueue(%q) = false", text)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o.stop(ctx)

	got := client.texts()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("sent = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOutbox_DropsWhenFull(t *testing.T) {
	t.Parallel()

	client := &recordingClient{gate: make(chan struct{})}
	o := newOutbox(client, 1, metrics.New(nil), discardLogger())

	if !o.Enqueue(SendMessageRequest{Text: "a"}) {
		t.Fatal("first Enqueue = false")
	}
	if o.Enqueue(SendMessageRequest{Text: "b"}) {
		t.Error("Enqueue on a full queue = true, want false")
	}

	o.start()
	close(client.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o.stop(ctx)

	if got := client.texts(); len(got) != 1 || got[0] != "a" {
		t.Errorf("sent = %q, want [a]", got)
	}
}

func TestOutbox_RejectsAfterStop(t *testing.T) {
	t.Parallel()

	o := newOutbox(&recordingClient{}, 4, metrics.New(nil), discardLogger())
	o.start()
	o.stop(context.Background())

	if o.Enqueue(SendMessageRequest{Text: "late"}) {
		t.Error("Enqueue after stop = true, want false")
	}
}

func TestOutbox_StopAbandonsAfterDeadline(t *testing.T) {
	t.Parallel()

	client := &recordingClient{gate: make(chan struct{})}
	o := newOutbox(client, 4, metrics.New(nil), discardLogger())
	o.start()
	o.Enqueue(SendMessageRequest{Text: "stuck"})
	o.Enqueue(SendMessageRequest{Text: "never"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		o.stop(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after its deadline")
	}
	if got := client.texts(); len(got) != 0 {
		t.Errorf("sent = %q, want none", got)
	}
}

func TestOutbox_SendErrorsDoNotStopDelivery(t *testing.T) {
	t.Parallel()

	client := &recordingClient{fail: errors.New("429")}
	o := newOutbox(client, 4, metrics.New(nil), discardLogger())
	o.start()
	o.Enqueue(SendMessageRequest{Text: "x"})
	o.Enqueue(SendMessageRequest{Text: "y"})
	o.stop(context.Background())

	if got := client.texts(); len(got) != 2 {
		t.Errorf("attempted = %q, want 2 sends", got)
	}
}
