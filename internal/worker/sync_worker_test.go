package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cliphub/support-service/internal/config"
	"github.com/cliphub/support-service/internal/docstore"
	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
)

type memoryKV struct {
	data map[string]string
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

type stubTicketRepo struct {
	tickets map[string]domain.Ticket
}

func (r *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	ticket.Revision = 1
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *stubTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *stubTicketRepo) Delete(ctx context.Context, id string) error {
	delete(r.tickets, id)
	return nil
}

func (r *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *stubTicketRepo) ListByRequester(ctx context.Context, userID string) ([]domain.Ticket, error) {
	return nil, nil
}

func (r *stubTicketRepo) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range r.tickets {
		result = append(result, t)
	}
	return result, nil
}

type stubMessageRepo struct {
	messages []domain.Message
}

func (r *stubMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *stubMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *stubMessageRepo) ListAll(ctx context.Context) (map[string][]domain.Message, error) {
	grouped := make(map[string][]domain.Message)
	for _, msg := range r.messages {
		grouped[msg.TicketID] = append(grouped[msg.TicketID], msg)
	}
	return grouped, nil
}

func (r *stubMessageRepo) MarkThreadRead(ctx context.Context, ticketID string, sender domain.MessageSender) error {
	return nil
}

type stubTemplateRepo struct {
	templates []domain.ResponseTemplate
}

func (r *stubTemplateRepo) Upsert(ctx context.Context, tpl *domain.ResponseTemplate) error {
	r.templates = append(r.templates, *tpl)
	return nil
}

func (r *stubTemplateRepo) GetByID(ctx context.Context, id string) (*domain.ResponseTemplate, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubTemplateRepo) List(ctx context.Context) ([]domain.ResponseTemplate, error) {
	return r.templates, nil
}

func (r *stubTemplateRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type workerFixture struct {
	worker     *SyncWorker
	kv         *memoryKV
	tickets    *stubTicketRepo
	messages   *stubMessageRepo
	templates  *stubTemplateRepo
	dispatcher events.Dispatcher
}

func newWorkerFixture() *workerFixture {
	kv := &memoryKV{data: make(map[string]string)}
	store := docstore.NewStore(kv, config.WidgetConfig{
		TicketsKey:   "support:tickets",
		AdminKey:     "support:tickets:admin",
		TemplatesKey: "support:templates",
	}, zap.NewNop())
	tickets := &stubTicketRepo{tickets: make(map[string]domain.Ticket)}
	messages := &stubMessageRepo{}
	templates := &stubTemplateRepo{}
	dispatcher := events.NewInMemoryDispatcher()

	return &workerFixture{
		worker: NewSyncWorker(SyncDependencies{
			Store:        store,
			TicketRepo:   tickets,
			MessageRepo:  messages,
			TemplateRepo: templates,
			Dispatcher:   dispatcher,
		}, time.Second, zap.NewNop()),
		kv:         kv,
		tickets:    tickets,
		messages:   messages,
		templates:  templates,
		dispatcher: dispatcher,
	}
}

func TestImportCreatesWidgetTicket(t *testing.T) {
	f := newWorkerFixture()
	f.kv.data["support:tickets"] = `{"tickets": [{"id": "w-1", "subject": "No sound",
		"status": "open", "priority": "normal", "userName": "Dana",
		"userEmail": "dana@example.com", "userRole": "clipper",
		"createdAt": "2026-06-01T10:00:00Z", "updatedAt": "2026-06-01T10:00:00Z",
		"messages": [{"id": "m-1", "sender": "user", "content": "video has no audio",
			"timestamp": "2026-06-01T10:00:00Z"}]}]}`

	var created []events.Event
	f.dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, event events.Event) error {
		created = append(created, event)
		return nil
	})

	f.worker.importWidgetState(context.Background())

	stored, err := f.tickets.GetByID(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, "No sound", stored.Subject)

	thread, err := f.messages.ListByTicket(context.Background(), "w-1")
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "video has no audio", thread[0].Body)

	require.Len(t, created, 1)
	assert.Equal(t, "w-1", created[0].TicketID)
}

func TestImportOnlyAddsUnknownUserMessages(t *testing.T) {
	f := newWorkerFixture()
	f.tickets.tickets["w-1"] = domain.Ticket{ID: "w-1", Subject: "s",
		Status: domain.TicketStatusPending, Priority: domain.TicketPriorityNormal}
	f.messages.messages = []domain.Message{
		{ID: "m-1", TicketID: "w-1", Sender: domain.SenderUser, Body: "original"},
	}
	f.kv.data["support:tickets"] = `{"tickets": [{"id": "w-1", "subject": "s",
		"status": "pending", "priority": "normal",
		"createdAt": "2026-06-01T10:00:00Z", "updatedAt": "2026-06-01T10:05:00Z",
		"messages": [
			{"id": "m-1", "sender": "user", "content": "original",
				"timestamp": "2026-06-01T10:00:00Z"},
			{"id": "m-2", "sender": "user", "content": "any news?",
				"timestamp": "2026-06-01T10:05:00Z"},
			{"id": "m-3", "sender": "support", "content": "spoofed reply",
				"timestamp": "2026-06-01T10:06:00Z"}
		]}]}`

	f.worker.importWidgetState(context.Background())

	thread, err := f.messages.ListByTicket(context.Background(), "w-1")
	require.NoError(t, err)
	require.Len(t, thread, 2, "known message skipped, support message rejected")
	assert.Equal(t, "any news?", thread[1].Body)
}

func TestSnapshotMirrorsAuthoritativeState(t *testing.T) {
	f := newWorkerFixture()
	now := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	f.tickets.tickets["t-1"] = domain.Ticket{
		ID: "t-1", Subject: "Refund", Status: domain.TicketStatusResolved,
		Priority: domain.TicketPriorityHigh, RequesterName: "Dana",
		Tags: []string{"billing"}, CreatedAt: now, UpdatedAt: now,
	}
	f.messages.messages = []domain.Message{
		{ID: "m-1", TicketID: "t-1", Sender: domain.SenderSupport, Body: "refunded",
			Status: domain.DeliverySent, CreatedAt: now},
	}

	f.worker.writeSnapshot(context.Background())

	var doc struct {
		Tickets []struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.kv.data["support:tickets"]), &doc))
	require.Len(t, doc.Tickets, 1)
	assert.Equal(t, "t-1", doc.Tickets[0].ID)
	assert.Equal(t, "resolved", doc.Tickets[0].Status)
	require.Len(t, doc.Tickets[0].Messages, 1)
	assert.Equal(t, "refunded", doc.Tickets[0].Messages[0].Content)
}

func TestSnapshotImportsWidgetWritesFirst(t *testing.T) {
	f := newWorkerFixture()
	f.tickets.tickets["t-1"] = domain.Ticket{ID: "t-1", Subject: "known",
		Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityNormal}
	// A widget ticket that landed after the last poll.
	f.kv.data["support:tickets"] = `{"tickets": [{"id": "w-9", "subject": "late arrival",
		"status": "open", "priority": "normal",
		"createdAt": "2026-06-04T10:00:00Z", "updatedAt": "2026-06-04T10:00:00Z"}]}`

	f.worker.snapshotNow(context.Background())

	stored, err := f.tickets.GetByID(context.Background(), "w-9")
	require.NoError(t, err, "widget write must be imported before the overwrite")
	assert.Equal(t, "late arrival", stored.Subject)

	var doc struct {
		Tickets []struct {
			ID string `json:"id"`
		} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.kv.data["support:tickets"]), &doc))
	ids := make([]string, 0, len(doc.Tickets))
	for _, ticket := range doc.Tickets {
		ids = append(ids, ticket.ID)
	}
	assert.ElementsMatch(t, []string{"t-1", "w-9"}, ids)
}

func TestMirrorTemplatesWritesWidgetDocument(t *testing.T) {
	f := newWorkerFixture()
	f.templates.templates = []domain.ResponseTemplate{{
		ID:   "tpl-1",
		Name: "Greeting",
		Body: "Hi {{name}}",
	}}

	f.worker.mirrorTemplates(context.Background())

	var doc struct {
		Templates []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"templates"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.kv.data["support:templates"]), &doc))
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, "tpl-1", doc.Templates[0].ID)
	assert.Equal(t, "Hi {{name}}", doc.Templates[0].Content)
}

func TestTemplateEventQueuesMirror(t *testing.T) {
	f := newWorkerFixture()
	f.worker.RegisterHandlers()

	require.NoError(t, f.dispatcher.Publish(context.Background(),
		events.Event{Type: events.EventTemplateSaved}))

	select {
	case <-f.worker.templateCh:
	default:
		t.Fatal("expected a pending template mirror request")
	}
	select {
	case <-f.worker.snapshotCh:
		t.Fatal("template events must not trigger a ticket snapshot")
	default:
	}
}

func TestChangeFeedEventQueuesSnapshot(t *testing.T) {
	f := newWorkerFixture()
	f.worker.RegisterHandlers()

	require.NoError(t, f.dispatcher.Publish(context.Background(),
		events.Event{Type: events.EventTicketStatusChanged, TicketID: "t-1"}))
	require.NoError(t, f.dispatcher.Publish(context.Background(),
		events.Event{Type: events.EventTicketAssigned, TicketID: "t-1"}))

	select {
	case <-f.worker.snapshotCh:
	default:
		t.Fatal("expected a pending snapshot request")
	}
	select {
	case <-f.worker.snapshotCh:
		t.Fatal("snapshot requests must coalesce")
	default:
	}
}
