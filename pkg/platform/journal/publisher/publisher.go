// Package publisher emits journal entries with fail-closed semantics: the
// entry is appended to the store synchronously and the calling operation must
// fail if the append fails. Secondary sinks are fed asynchronously through an
// inbox channel drained by the worker.
package publisher

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"wrkledger/pkg/platform/journal"
	"wrkledger/pkg/requestcontext"
)

type Publisher struct {
	store  journal.Store
	logger *slog.Logger
	inbox  chan<- journal.Entry
}

type Option func(*Publisher)

// WithLogger sets a logger for dropped-sink reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithInbox attaches the channel feeding secondary sinks. Sends never block:
// when the inbox is full the entry is dropped from the stream (the store copy
// is authoritative) and the drop is logged.
func WithInbox(inbox chan<- journal.Entry) Option {
	return func(p *Publisher) {
		p.inbox = inbox
	}
}

func New(store journal.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit stamps and persists the entry. ID, timestamp, and request ID are
// filled here so call sites only describe the event itself.
func (p *Publisher) Emit(ctx context.Context, entry journal.Entry) error {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}

	if p.inbox != nil {
		select {
		case p.inbox <- entry:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "journal inbox full, entry not streamed",
					"entry_id", entry.ID,
					"kind", entry.Kind,
				)
			}
		}
	}
	return nil
}

// EmitAll persists entries in order, stopping at the first failure.
func (p *Publisher) EmitAll(ctx context.Context, entries ...journal.Entry) error {
	for _, e := range entries {
		if err := p.Emit(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
