// Package worker runs the background synchronization between the
// authoritative Postgres state and the chat-widget document store.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cliphub/support-service/internal/docstore"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
	"github.com/cliphub/support-service/internal/repository"
)

// SyncWorker polls the widget document for tickets and messages created
// outside the API and imports them, and mirrors the authoritative state
// back into the document store whenever the change feed reports a write.
// Snapshot failures are logged, never propagated: the document store is a
// derived view and the next cycle repairs it.
type SyncWorker struct {
	store      *docstore.Store
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	templates  repository.TemplateRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration

	snapshotCh chan struct{}
	templateCh chan struct{}
}

// SyncDependencies bundles the worker's collaborators.
type SyncDependencies struct {
	Store        *docstore.Store
	TicketRepo   repository.TicketRepository
	MessageRepo  repository.MessageRepository
	TemplateRepo repository.TemplateRepository
	Dispatcher   events.Dispatcher
}

// NewSyncWorker constructs the worker.
func NewSyncWorker(deps SyncDependencies, interval time.Duration, logger *zap.Logger) *SyncWorker {
	return &SyncWorker{
		store:      deps.Store,
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		templates:  deps.TemplateRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		interval:   interval,
		snapshotCh: make(chan struct{}, 1),
		templateCh: make(chan struct{}, 1),
	}
}

// RegisterHandlers subscribes the worker to the change feed so writes are
// mirrored into the document store without waiting for the next poll.
func (w *SyncWorker) RegisterHandlers() {
	if w.dispatcher == nil {
		return
	}
	types := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketAssigned,
		events.EventTicketTagsChanged,
		events.EventTicketNoteAdded,
		events.EventTicketMessageAdded,
		events.EventTicketRated,
		events.EventTicketDeleted,
	}
	for _, t := range types {
		w.dispatcher.Subscribe(t, w.onChange)
	}
	w.dispatcher.Subscribe(events.EventTemplateSaved, w.onTemplateChange)
	w.dispatcher.Subscribe(events.EventTemplateDeleted, w.onTemplateChange)
}

func (w *SyncWorker) onChange(ctx context.Context, event events.Event) error {
	select {
	case w.snapshotCh <- struct{}{}:
	default:
		// a snapshot is already pending
	}
	return nil
}

func (w *SyncWorker) onTemplateChange(ctx context.Context, event events.Event) error {
	select {
	case w.templateCh <- struct{}{}:
	default:
	}
	return nil
}

// Run blocks until ctx is cancelled, alternating import polls and
// snapshot writes.
func (w *SyncWorker) Run(ctx context.Context) {
	w.logger.Info("widget sync worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("widget sync worker stopped")
			return
		case <-ticker.C:
			w.snapshotNow(ctx)
			w.mirrorTemplates(ctx)
		case <-w.snapshotCh:
			w.snapshotNow(ctx)
		case <-w.templateCh:
			w.mirrorTemplates(ctx)
		}
	}
}

// snapshotNow imports pending widget writes and then overwrites the shared
// document. Importing first keeps the overwrite from clobbering a widget
// write that landed since the previous poll.
func (w *SyncWorker) snapshotNow(ctx context.Context) {
	w.importWidgetState(ctx)
	w.writeSnapshot(ctx)
}

// importWidgetState pulls the widget document and persists any tickets or
// messages the widget created that Postgres has not seen yet.
func (w *SyncWorker) importWidgetState(ctx context.Context) {
	widgetTickets, err := w.store.LoadTickets(ctx)
	if err != nil {
		w.logger.Warn("widget document load failed", zap.Error(err))
		return
	}

	for i := range widgetTickets {
		wt := &widgetTickets[i]
		if wt.ID == "" {
			continue
		}
		existing, err := w.tickets.GetByID(ctx, wt.ID)
		switch {
		case err == nil:
			w.importNewMessages(ctx, existing, wt.Messages)
		case errors.Is(err, pgx.ErrNoRows):
			w.importTicket(ctx, wt)
		default:
			w.logger.Warn("ticket lookup failed during import",
				zap.String("ticket_id", wt.ID), zap.Error(err))
		}
	}
}

func (w *SyncWorker) importTicket(ctx context.Context, wt *domain.Ticket) {
	ticket := *wt
	messages := ticket.Messages
	ticket.Messages = nil
	if err := w.tickets.Create(ctx, &ticket); err != nil {
		w.logger.Warn("widget ticket import failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	for i := range messages {
		msg := messages[i]
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		msg.TicketID = ticket.ID
		if err := w.messages.Create(ctx, &msg); err != nil {
			w.logger.Warn("widget message import failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	w.logger.Info("imported widget ticket",
		zap.String("ticket_id", ticket.ID),
		zap.Int("messages", len(messages)))

	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Actor:     events.Actor{Type: domain.SubjectTypeUser},
		Timestamp: time.Now(),
		Payload: events.TicketCreatedPayload{
			Subject:       ticket.Subject,
			Category:      ticket.Category,
			Priority:      ticket.Priority,
			RequesterRole: ticket.RequesterRole,
		},
	})
}

// importNewMessages inserts widget messages that are absent from the
// stored thread. Only user messages are imported; support replies always
// originate from the API.
func (w *SyncWorker) importNewMessages(ctx context.Context, ticket *domain.Ticket, widgetMessages []domain.Message) {
	if len(widgetMessages) == 0 {
		return
	}
	stored, err := w.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		w.logger.Warn("thread lookup failed during import",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return
	}
	known := make(map[string]struct{}, len(stored))
	for _, msg := range stored {
		known[msg.ID] = struct{}{}
	}

	for i := range widgetMessages {
		msg := widgetMessages[i]
		if msg.Sender != domain.SenderUser {
			continue
		}
		if _, ok := known[msg.ID]; msg.ID != "" && ok {
			continue
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		msg.TicketID = ticket.ID
		if err := w.messages.Create(ctx, &msg); err != nil {
			w.logger.Warn("widget message import failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		_ = w.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketMessageAdded,
			TicketID:  ticket.ID,
			Actor:     events.Actor{Type: domain.SubjectTypeUser},
			Timestamp: time.Now(),
			Payload: events.TicketMessageAddedPayload{
				MessageID: msg.ID,
				Sender:    msg.Sender,
			},
		})
	}
}

// writeSnapshot mirrors the authoritative ticket state into the shared
// documents.
func (w *SyncWorker) writeSnapshot(ctx context.Context) {
	tickets, err := w.tickets.ListAll(ctx)
	if err != nil {
		w.logger.Warn("snapshot ticket listing failed", zap.Error(err))
		return
	}
	threads, err := w.messages.ListAll(ctx)
	if err != nil {
		w.logger.Warn("snapshot message listing failed", zap.Error(err))
		return
	}
	for i := range tickets {
		tickets[i].Messages = threads[tickets[i].ID]
	}
	if err := w.store.SaveTickets(ctx, tickets); err != nil {
		w.logger.Warn("snapshot write failed", zap.Error(err))
	}
}

// mirrorTemplates copies the canned response list into the shared widget
// document. Like ticket snapshots this is best-effort.
func (w *SyncWorker) mirrorTemplates(ctx context.Context) {
	if w.templates == nil {
		return
	}
	templates, err := w.templates.List(ctx)
	if err != nil {
		w.logger.Warn("template listing failed during mirror", zap.Error(err))
		return
	}
	if err := w.store.SaveTemplates(ctx, templates); err != nil {
		w.logger.Warn("template mirror write failed", zap.Error(err))
	}
}
