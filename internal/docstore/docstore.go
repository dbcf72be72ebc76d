// Package docstore reads and writes the JSON documents shared with the
// end-user chat widget. The widget only understands two flat documents in
// a key-value store: the ticket collection and a per-ticket map of
// admin-only extensions, merged by ticket id on load. A third key holds
// the canned response list.
package docstore

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cliphub/support-service/internal/config"
	"github.com/cliphub/support-service/internal/domain"
)

// KV is the minimal key-value surface the store needs. The Redis wrapper
// satisfies it in production; tests use an in-memory map.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store marshals the shared widget documents.
type Store struct {
	kv     KV
	cfg    config.WidgetConfig
	logger *zap.Logger
}

// NewStore constructs the document store.
func NewStore(kv KV, cfg config.WidgetConfig, logger *zap.Logger) *Store {
	return &Store{kv: kv, cfg: cfg, logger: logger}
}

type ticketsDocument struct {
	Tickets []widgetTicket `json:"tickets"`
}

// widgetTicket mirrors the camelCase JSON the chat widget writes.
type widgetTicket struct {
	ID        string          `json:"id"`
	Subject   string          `json:"subject"`
	Category  string          `json:"category"`
	Status    string          `json:"status"`
	Priority  string          `json:"priority"`
	UserName  string          `json:"userName"`
	UserEmail string          `json:"userEmail"`
	UserRole  string          `json:"userRole"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Messages  []widgetMessage `json:"messages"`
}

type widgetMessage struct {
	ID          string             `json:"id"`
	Sender      string             `json:"sender"`
	SenderName  string             `json:"senderName"`
	Content     string             `json:"content"`
	Attachments []widgetAttachment `json:"attachments,omitempty"`
	Status      string             `json:"status"`
	Read        bool               `json:"read"`
	Timestamp   time.Time          `json:"timestamp"`
}

type widgetAttachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// adminExtension is the admin-only overlay, keyed by ticket id in its own
// document so the widget never sees internal notes.
type adminExtension struct {
	AssignedTo    *string  `json:"assignedTo,omitempty"`
	InternalNotes []string `json:"internalNotes,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Satisfaction  *int     `json:"satisfaction,omitempty"`
}

type templatesDocument struct {
	Templates []widgetTemplate `json:"templates"`
}

type widgetTemplate struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Category  string   `json:"category"`
	Shortcuts []string `json:"shortcuts,omitempty"`
	Variables []string `json:"variables,omitempty"`
}

// LoadTickets reads the shared ticket document, merges the admin overlay
// by ticket id, and returns hydrated domain tickets. Malformed documents
// are logged and treated as empty rather than failing the caller.
func (s *Store) LoadTickets(ctx context.Context) ([]domain.Ticket, error) {
	raw, err := s.kv.Get(ctx, s.cfg.TicketsKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var doc ticketsDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("malformed widget ticket document, treating as empty", zap.Error(err))
		return nil, nil
	}

	extensions := s.loadExtensions(ctx)

	tickets := make([]domain.Ticket, 0, len(doc.Tickets))
	for _, wt := range doc.Tickets {
		ticket := widgetToDomain(wt)
		if ext, ok := extensions[wt.ID]; ok {
			ticket.AssignedTo = ext.AssignedTo
			if ext.InternalNotes != nil {
				ticket.InternalNotes = ext.InternalNotes
			}
			if ext.Tags != nil {
				ticket.Tags = ext.Tags
			}
			ticket.Satisfaction = ext.Satisfaction
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

// SaveTickets writes the authoritative ticket state back into the two
// shared documents so the widget observes admin changes on its next poll.
func (s *Store) SaveTickets(ctx context.Context, tickets []domain.Ticket) error {
	doc := ticketsDocument{Tickets: make([]widgetTicket, 0, len(tickets))}
	extensions := make(map[string]adminExtension, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		doc.Tickets = append(doc.Tickets, domainToWidget(t))
		extensions[t.ID] = adminExtension{
			AssignedTo:    t.AssignedTo,
			InternalNotes: t.InternalNotes,
			Tags:          t.Tags,
			Satisfaction:  t.Satisfaction,
		}
	}

	rawTickets, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	rawExtensions, err := json.Marshal(extensions)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.cfg.TicketsKey, string(rawTickets)); err != nil {
		return err
	}
	return s.kv.Set(ctx, s.cfg.AdminKey, string(rawExtensions))
}

// LoadTemplates reads the shared template document.
func (s *Store) LoadTemplates(ctx context.Context) ([]domain.ResponseTemplate, error) {
	raw, err := s.kv.Get(ctx, s.cfg.TemplatesKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var doc templatesDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.logger.Warn("malformed widget template document, treating as empty", zap.Error(err))
		return nil, nil
	}
	templates := make([]domain.ResponseTemplate, 0, len(doc.Templates))
	for _, wt := range doc.Templates {
		templates = append(templates, domain.ResponseTemplate{
			ID:        wt.ID,
			Name:      wt.Name,
			Body:      wt.Content,
			Category:  wt.Category,
			Shortcuts: wt.Shortcuts,
			Variables: wt.Variables,
		})
	}
	return templates, nil
}

// SaveTemplates mirrors the canned response list for the widget.
func (s *Store) SaveTemplates(ctx context.Context, templates []domain.ResponseTemplate) error {
	doc := templatesDocument{Templates: make([]widgetTemplate, 0, len(templates))}
	for _, tpl := range templates {
		doc.Templates = append(doc.Templates, widgetTemplate{
			ID:        tpl.ID,
			Name:      tpl.Name,
			Content:   tpl.Body,
			Category:  tpl.Category,
			Shortcuts: tpl.Shortcuts,
			Variables: tpl.Variables,
		})
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.cfg.TemplatesKey, string(raw))
}

func (s *Store) loadExtensions(ctx context.Context) map[string]adminExtension {
	raw, err := s.kv.Get(ctx, s.cfg.AdminKey)
	if err != nil || raw == "" {
		return nil
	}
	var extensions map[string]adminExtension
	if err := json.Unmarshal([]byte(raw), &extensions); err != nil {
		s.logger.Warn("malformed admin extension document, ignoring", zap.Error(err))
		return nil
	}
	return extensions
}

func widgetToDomain(wt widgetTicket) domain.Ticket {
	ticket := domain.Ticket{
		ID:             wt.ID,
		Subject:        wt.Subject,
		Category:       wt.Category,
		Status:         domain.TicketStatus(wt.Status),
		Priority:       domain.TicketPriority(wt.Priority),
		RequesterName:  wt.UserName,
		RequesterEmail: wt.UserEmail,
		RequesterRole:  domain.RequesterRole(wt.UserRole),
		Tags:           []string{},
		InternalNotes:  []string{},
		CreatedAt:      wt.CreatedAt,
		UpdatedAt:      wt.UpdatedAt,
	}
	if !domain.ValidStatus(ticket.Status) {
		ticket.Status = domain.TicketStatusOpen
	}
	if !domain.ValidPriority(ticket.Priority) {
		ticket.Priority = domain.TicketPriorityNormal
	}
	for _, wm := range wt.Messages {
		msg := domain.Message{
			ID:         wm.ID,
			TicketID:   wt.ID,
			Sender:     domain.MessageSender(wm.Sender),
			SenderName: wm.SenderName,
			Body:       wm.Content,
			Status:     domain.DeliveryStatus(wm.Status),
			Read:       wm.Read,
			CreatedAt:  wm.Timestamp,
		}
		if msg.Sender != domain.SenderSupport {
			msg.Sender = domain.SenderUser
		}
		if msg.Status == "" {
			msg.Status = domain.DeliverySent
		}
		for _, wa := range wm.Attachments {
			msg.Attachments = append(msg.Attachments, domain.Attachment{
				Name:       wa.Name,
				MimeType:   wa.Type,
				StorageKey: wa.URL,
			})
		}
		ticket.Messages = append(ticket.Messages, msg)
	}
	return ticket
}

func domainToWidget(t *domain.Ticket) widgetTicket {
	wt := widgetTicket{
		ID:        t.ID,
		Subject:   t.Subject,
		Category:  t.Category,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		UserName:  t.RequesterName,
		UserEmail: t.RequesterEmail,
		UserRole:  string(t.RequesterRole),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	for i := range t.Messages {
		msg := &t.Messages[i]
		wm := widgetMessage{
			ID:         msg.ID,
			Sender:     string(msg.Sender),
			SenderName: msg.SenderName,
			Content:    msg.Body,
			Status:     string(msg.Status),
			Read:       msg.Read,
			Timestamp:  msg.CreatedAt,
		}
		for _, att := range msg.Attachments {
			wm.Attachments = append(wm.Attachments, widgetAttachment{
				Name: att.Name,
				Type: att.MimeType,
				URL:  att.StorageKey,
			})
		}
		wt.Messages = append(wt.Messages, wm)
	}
	return wt
}
