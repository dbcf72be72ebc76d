package service

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cliphub/support-service/internal/domain"
)

// exportHeader is the fixed column set consumed by downstream tooling.
const exportHeader = "ID,Subject,Status,Priority,Category,User Name,User Email,User Role,Assigned To,Created At,Updated At,Messages Count,Response Time (min),Satisfaction"

// WriteTicketsCSV serializes the ticket list as CSV, one row per ticket
// after the header. Every data value is double-quoted and timestamps are
// ISO-8601, matching the format the legacy widget export produced.
func WriteTicketsCSV(w io.Writer, tickets []domain.Ticket) error {
	if _, err := io.WriteString(w, exportHeader+"\n"); err != nil {
		return err
	}
	for i := range tickets {
		if _, err := io.WriteString(w, exportRow(&tickets[i])+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func exportRow(t *domain.Ticket) string {
	assignedTo := ""
	if t.AssignedTo != nil {
		assignedTo = *t.AssignedTo
	}
	responseTime := ""
	if rt := t.ResponseTime(); rt != nil {
		responseTime = strconv.Itoa(*rt)
	}
	satisfaction := ""
	if t.Satisfaction != nil {
		satisfaction = strconv.Itoa(*t.Satisfaction)
	}

	fields := []string{
		t.ID,
		t.Subject,
		string(t.Status),
		string(t.Priority),
		t.Category,
		t.RequesterName,
		t.RequesterEmail,
		string(t.RequesterRole),
		assignedTo,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(t.InteractionCount()),
		responseTime,
		satisfaction,
	}
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = quoteField(field)
	}
	return strings.Join(quoted, ",")
}

func quoteField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
