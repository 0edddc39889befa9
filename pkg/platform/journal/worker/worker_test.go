package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"wrkledger/pkg/platform/journal"
)

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Deliver(context.Context, journal.Entry) error {
	s.calls++
	return s.err
}

func TestWorkerDeliversToSink(t *testing.T) {
	sink := &countingSink{}
	w := New(sink, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w.deliver(context.Background(), journal.Entry{ID: "e1"})
	w.deliver(context.Background(), journal.Entry{ID: "e2"})

	assert.Equal(t, 2, sink.calls)
}

func TestWorkerStopsCallingBrokenSink(t *testing.T) {
	sink := &countingSink{err: errors.New("broker unreachable")}
	w := New(sink, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 20; i++ {
		w.deliver(context.Background(), journal.Entry{ID: "e"})
	}

	// The breaker opens after its failure threshold, so most deliveries
	// are dropped without reaching the sink.
	assert.Less(t, sink.calls, 10)
}

func TestWorkerRunStopsOnContextCancel(t *testing.T) {
	inbox := make(chan journal.Entry)
	w := New(&countingSink{}, inbox, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
