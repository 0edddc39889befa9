package worker

import (
	"context"
	"log/slog"

	"wrkledger/pkg/platform/circuit"
	"wrkledger/pkg/platform/journal"
)

// Worker drains journal entries from the publisher inbox into a secondary
// sink (the Kafka stream in production). Delivery failures are logged and
// skipped: the store copy written by the publisher is the source of truth,
// so the stream is allowed to lose entries rather than block the service.
// A circuit breaker stops hammering the sink while it is down.
type Worker struct {
	sink    journal.Sink
	inbox   <-chan journal.Entry
	logger  *slog.Logger
	breaker *circuit.Breaker
}

func New(sink journal.Sink, inbox <-chan journal.Entry, logger *slog.Logger) *Worker {
	return &Worker{
		sink:    sink,
		inbox:   inbox,
		logger:  logger,
		breaker: circuit.New(),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.deliver(ctx, entry)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, entry journal.Entry) {
	if !w.breaker.Allow() {
		w.logger.WarnContext(ctx, "journal sink circuit open, entry dropped from stream",
			"entry_id", entry.ID,
			"kind", entry.Kind,
		)
		return
	}

	if err := w.sink.Deliver(ctx, entry); err != nil {
		opened := w.breaker.RecordFailure()
		w.logger.ErrorContext(ctx, "journal sink delivery failed",
			"entry_id", entry.ID,
			"kind", entry.Kind,
			"circuit_open", opened,
			"error", err,
		)
		return
	}
	w.breaker.RecordSuccess()
}
