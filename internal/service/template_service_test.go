package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliphub/support-service/internal/events"
)

func TestRenderTemplateSubstitutesValues(t *testing.T) {
	body := "Hi {{name}}, your ticket {{ticket_id}} is on its way."
	got := RenderTemplate(body, map[string]string{
		"name":      "Dana",
		"ticket_id": "t-42",
	})
	assert.Equal(t, "Hi Dana, your ticket t-42 is on its way.", got)
}

func TestRenderTemplateLeavesUnknownPlaceholders(t *testing.T) {
	body := "Hi {{name}}, see {{missing}}."
	got := RenderTemplate(body, map[string]string{"name": "Dana"})
	assert.Equal(t, "Hi Dana, see {{missing}}.", got)
}

func TestRenderTemplateRepeatedPlaceholder(t *testing.T) {
	body := "{{name}} and {{name}}"
	got := RenderTemplate(body, map[string]string{"name": "Sam"})
	assert.Equal(t, "Sam and Sam", got)
}

func TestExtractVariablesOrderAndDedup(t *testing.T) {
	body := "Dear {{name}}, ticket {{ticket_id}} from {{name}}."
	assert.Equal(t, []string{"name", "ticket_id"}, ExtractVariables(body))
}

func TestExtractVariablesNone(t *testing.T) {
	assert.Empty(t, ExtractVariables("plain text, no placeholders"))
}

func TestExtractVariablesIgnoresMalformedMarkers(t *testing.T) {
	body := "{{ok}} {not one} {{bad name}} {{trailing"
	assert.Equal(t, []string{"ok"}, ExtractVariables(body))
}

func TestSaveTemplateAnnouncesChange(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewTemplateService(newFakeTemplateRepo(), dispatcher)
	recorder := recordEvents(dispatcher, events.EventTemplateSaved)

	tpl, err := svc.Save(context.Background(), TemplateInput{
		Name: "Greeting",
		Body: "Hi {{name}}",
	})
	require.NoError(t, err)

	saved := recorder.byType(events.EventTemplateSaved)
	require.Len(t, saved, 1)
	payload, ok := saved[0].Payload.(events.TemplateChangedPayload)
	require.True(t, ok)
	assert.Equal(t, tpl.ID, payload.TemplateID)
}

func TestDeleteTemplateAnnouncesChange(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	repo := newFakeTemplateRepo()
	svc := NewTemplateService(repo, dispatcher)
	recorder := recordEvents(dispatcher, events.EventTemplateDeleted)

	tpl, err := svc.Save(context.Background(), TemplateInput{Name: "n", Body: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tpl.ID))
	assert.Len(t, recorder.byType(events.EventTemplateDeleted), 1)

	// A failed delete stays silent.
	require.Error(t, svc.Delete(context.Background(), "missing"))
	assert.Len(t, recorder.byType(events.EventTemplateDeleted), 1)
}
