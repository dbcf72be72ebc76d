package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
	"github.com/cliphub/support-service/internal/repository"
)

// In-memory repository fakes. They mirror the persistence contracts
// closely enough for service tests: pgx.ErrNoRows for misses and
// repository.ErrStaleRevision on revision mismatch.

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	// updateErr, when set, is returned by Update before any state change.
	updateErr error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	ticket.Revision = 1
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Revision != ticket.Revision {
		return repository.ErrStaleRevision
	}
	ticket.Revision++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeTicketRepo) ListByRequester(ctx context.Context, userID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.tickets {
		if t.RequesterID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *fakeTicketRepo) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, t := range r.tickets {
		result = append(result, t)
	}
	return result, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) ListAll(ctx context.Context) (map[string][]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	grouped := make(map[string][]domain.Message)
	for _, msg := range r.messages {
		grouped[msg.TicketID] = append(grouped[msg.TicketID], msg)
	}
	return grouped, nil
}

func (r *fakeMessageRepo) MarkThreadRead(ctx context.Context, ticketID string, sender domain.MessageSender) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].TicketID == ticketID && r.messages[i].Sender == sender {
			r.messages[i].Read = true
			r.messages[i].Status = domain.DeliveryRead
		}
	}
	return nil
}

type fakeAgentRepo struct {
	agents []domain.Agent
}

func (r *fakeAgentRepo) Create(ctx context.Context, agent *domain.Agent) error {
	agent.ID = agent.Name
	r.agents = append(r.agents, *agent)
	return nil
}

func (r *fakeAgentRepo) Update(ctx context.Context, agent *domain.Agent) error {
	for i := range r.agents {
		if r.agents[i].ID == agent.ID {
			r.agents[i] = *agent
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeAgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	for i := range r.agents {
		if r.agents[i].ID == id {
			copied := r.agents[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	for i := range r.agents {
		if r.agents[i].Email == email {
			copied := r.agents[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) GetByName(ctx context.Context, name string) (*domain.Agent, error) {
	for i := range r.agents {
		if r.agents[i].Name == name {
			copied := r.agents[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) List(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	var result []domain.Agent
	for _, agent := range r.agents {
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		result = append(result, agent)
	}
	return result, nil
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]domain.ResponseTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[string]domain.ResponseTemplate)}
}

func (r *fakeTemplateRepo) Upsert(ctx context.Context, tpl *domain.ResponseTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tpl.ID] = *tpl
	return nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.ResponseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeTemplateRepo) List(ctx context.Context) ([]domain.ResponseTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ResponseTemplate
	for _, tpl := range r.templates {
		result = append(result, tpl)
	}
	return result, nil
}

func (r *fakeTemplateRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.templates, id)
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// eventRecorder captures every event the dispatcher fans out.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func recordEvents(dispatcher events.Dispatcher, types ...events.EventType) *eventRecorder {
	recorder := &eventRecorder{}
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			recorder.mu.Lock()
			defer recorder.mu.Unlock()
			recorder.events = append(recorder.events, event)
			return nil
		})
	}
	return recorder
}

func (r *eventRecorder) byType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
