package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliphub/support-service/internal/domain"
	"github.com/cliphub/support-service/internal/events"
	apperrors "github.com/cliphub/support-service/pkg/util"
)

type adminFixture struct {
	svc        *AdminService
	ticketSvc  *TicketService
	tickets    *fakeTicketRepo
	messages   *fakeMessageRepo
	history    *fakeHistoryRepo
	agents     *fakeAgentRepo
	dispatcher events.Dispatcher
}

func newAdminFixture() *adminFixture {
	tickets := newFakeTicketRepo()
	messages := &fakeMessageRepo{}
	history := &fakeHistoryRepo{}
	agents := &fakeAgentRepo{agents: []domain.Agent{
		{ID: "Sam", Name: "Sam", Email: "sam@support.example", Role: domain.AgentRoleAgent, Active: true},
		{ID: "Gone", Name: "Gone", Email: "gone@support.example", Role: domain.AgentRoleAgent, Active: false},
	}}
	dispatcher := events.NewInMemoryDispatcher()

	return &adminFixture{
		svc: NewAdminService(AdminDependencies{
			TicketRepo:  tickets,
			MessageRepo: messages,
			HistoryRepo: history,
			AgentRepo:   agents,
			Dispatcher:  dispatcher,
		}),
		ticketSvc: NewTicketService(TicketDependencies{
			TicketRepo:  tickets,
			MessageRepo: messages,
			HistoryRepo: history,
			Dispatcher:  dispatcher,
		}),
		tickets:    tickets,
		messages:   messages,
		history:    history,
		agents:     agents,
		dispatcher: dispatcher,
	}
}

func (f *adminFixture) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.ticketSvc.CreateTicket(context.Background(), testUser(), TicketCreateInput{
		Subject: "Payout stuck",
		Body:    "help please",
	})
	require.NoError(t, err)
	return ticket
}

func supportAgent() *domain.Agent {
	return &domain.Agent{ID: "Sam", Name: "Sam", Role: domain.AgentRoleAgent, Active: true}
}

func TestReplyMovesOpenTicketToPending(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	replied, err := f.svc.Reply(context.Background(), supportAgent(), ticket.ID, "On it.", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, replied.Status)
	require.Len(t, replied.Messages, 2)
	assert.Equal(t, domain.SenderSupport, replied.Messages[1].Sender)
	assert.Equal(t, "Sam", replied.Messages[1].SenderName)
}

func TestReplyKeepsPendingStatus(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	_, err := f.svc.Reply(context.Background(), supportAgent(), ticket.ID, "first", nil)
	require.NoError(t, err)
	replied, err := f.svc.Reply(context.Background(), supportAgent(), ticket.ID, "second", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, replied.Status)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	_, err := f.svc.UpdateStatus(context.Background(), supportAgent(), ticket.ID, domain.TicketStatusClosed, "")
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "CONFLICT", domainErr.Code)
	assert.Equal(t, domain.TicketStatusOpen, domainErr.Details["from"])
	assert.Equal(t, domain.TicketStatusClosed, domainErr.Details["to"])
}

func TestUpdateStatusSetsAndClearsResolvedAt(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	resolved, err := f.svc.UpdateStatus(context.Background(), supportAgent(), ticket.ID, domain.TicketStatusResolved, "done")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	reopened, err := f.svc.UpdateStatus(context.Background(), supportAgent(), ticket.ID, domain.TicketStatusPending, "reopened")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestUpdateStatusRecordsHistory(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	_, err := f.svc.UpdateStatus(context.Background(), supportAgent(), ticket.ID, domain.TicketStatusResolved, "fixed upstream")
	require.NoError(t, err)

	entries, err := f.history.ListByTicket(context.Background(), ticket.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ChangeTypeStatus, entries[0].ChangeType)
	assert.Equal(t, "fixed upstream", entries[0].NewValue["comment"])
}

func TestAddTagIsIdempotent(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	first, err := f.svc.AddTag(context.Background(), supportAgent(), ticket.ID, "payment")
	require.NoError(t, err)
	assert.Equal(t, []string{"payment"}, first.Tags)

	second, err := f.svc.AddTag(context.Background(), supportAgent(), ticket.ID, "payment")
	require.NoError(t, err)
	assert.Equal(t, []string{"payment"}, second.Tags)
	assert.Equal(t, first.Revision, second.Revision, "duplicate add must not write")
}

func TestRemoveAbsentTagIsNoOp(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	before, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)

	after, err := f.svc.RemoveTag(context.Background(), supportAgent(), ticket.ID, "never-added")
	require.NoError(t, err)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestAssignValidatesRoster(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	_, err := f.svc.Assign(context.Background(), supportAgent(), ticket.ID, "Nobody")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	_, err = f.svc.Assign(context.Background(), supportAgent(), ticket.ID, "Gone")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code, "deactivated agent")
}

func TestAssignAndClear(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	assigned, err := f.svc.Assign(context.Background(), supportAgent(), ticket.ID, "Sam")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, "Sam", *assigned.AssignedTo)

	cleared, err := f.svc.Assign(context.Background(), supportAgent(), ticket.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)
}

func TestInternalNotesAppendOnly(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	_, err := f.svc.AddInternalNote(context.Background(), supportAgent(), ticket.ID, "first note")
	require.NoError(t, err)
	updated, err := f.svc.AddInternalNote(context.Background(), supportAgent(), ticket.ID, "second note")
	require.NoError(t, err)
	assert.Equal(t, []string{"first note", "second note"}, updated.InternalNotes)
}

func TestBulkUpdateStatusCollectsFailures(t *testing.T) {
	f := newAdminFixture()
	a := f.openTicket(t)
	b := f.openTicket(t)

	result := f.svc.BulkUpdateStatus(context.Background(), supportAgent(),
		[]string{a.ID, "missing", b.ID}, domain.TicketStatusResolved, "")

	assert.ElementsMatch(t, []string{a.ID, b.ID}, result.Updated)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed, "missing")
}

func TestBulkUpdateStatusAllFailuresKeepsUpdatedEmpty(t *testing.T) {
	f := newAdminFixture()

	result := f.svc.BulkUpdateStatus(context.Background(), supportAgent(),
		[]string{"missing-1", "missing-2"}, domain.TicketStatusResolved, "")

	require.NotNil(t, result.Updated, "updated must serialize as [] not null")
	assert.Empty(t, result.Updated)
	assert.Len(t, result.Failed, 2)
}

func TestBulkAssignChecksRosterUpFront(t *testing.T) {
	f := newAdminFixture()
	a := f.openTicket(t)

	_, err := f.svc.BulkAssign(context.Background(), supportAgent(), []string{a.ID}, "Nobody")
	require.Error(t, err, "unknown agent fails the whole batch")

	result, err := f.svc.BulkAssign(context.Background(), supportAgent(), []string{a.ID, "missing"}, "Sam")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, result.Updated)
	assert.Contains(t, result.Failed, "missing")
}

func TestGetTicketMarksUserMessagesRead(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	got, err := f.svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.True(t, got.Messages[0].Read)
	assert.Equal(t, domain.DeliveryRead, got.Messages[0].Status)
}

func TestDeleteTicketPublishesEvent(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)
	recorder := recordEvents(f.dispatcher, events.EventTicketDeleted)

	require.NoError(t, f.svc.Delete(context.Background(), supportAgent(), ticket.ID))
	assert.Len(t, recorder.byType(events.EventTicketDeleted), 1)

	err := f.svc.Delete(context.Background(), supportAgent(), ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestStatsUsesRoster(t *testing.T) {
	f := newAdminFixture()
	ticket := f.openTicket(t)

	_, err := f.svc.Assign(context.Background(), supportAgent(), ticket.ID, "Sam")
	require.NoError(t, err)

	overview, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, overview.TotalTickets)

	names := make([]string, 0, len(overview.AgentPerformance))
	for _, perf := range overview.AgentPerformance {
		names = append(names, perf.Agent)
	}
	assert.Contains(t, names, "Sam")
	assert.Contains(t, names, "Gone", "roster agents appear even when idle")
}

func TestExportCSVReportsRowCount(t *testing.T) {
	f := newAdminFixture()
	f.openTicket(t)
	f.openTicket(t)

	var buf bytes.Buffer
	count, err := f.svc.ExportCSV(context.Background(), TicketFilter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), 3)
}
