package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplates(t *testing.T) {
	require.NoError(t, parseTemplates())

	for _, name := range []string{"welcome", "enrollment", "password_reset"} {
		entry, ok := templates[name]
		if assert.True(t, ok, name) {
			assert.Contains(t, entry, ".txt", name)
			assert.Contains(t, entry, ".gohtml", name)
		}
	}
	_, ok := templates["_base"]
	assert.False(t, ok, "base layouts are not standalone templates")
}

func TestEmailMessage_Render(t *testing.T) {
	tests := []struct {
		name     string
		msg      EmailMessage
		wantText string
	}{
		{
			name:     "body string",
			msg:      EmailMessage{BodyStr: "plain body"},
			wantText: "plain body",
		},
		{
			name: "welcome",
			msg: EmailMessage{
				TemplateName: "welcome",
				TemplateData: map[string]interface{}{"Name": "Ada"},
			},
			wantText: "Hi Ada,",
		},
		{
			name: "enrollment",
			msg: EmailMessage{
				TemplateName: "enrollment",
				TemplateData: map[string]interface{}{
					"Name":        "Ada",
					"CourseID":    "c1",
					"CourseTitle": "Go 101",
				},
			},
			wantText: `You are now enrolled in "Go 101".`,
		},
		{
			name: "password reset",
			msg: EmailMessage{
				TemplateName: "password_reset",
				TemplateData: map[string]interface{}{"Name": "Ada", "UID": "uid", "Token": "tok"},
			},
			wantText: "/password-reset/uid/tok",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.msg
			require.NoError(t, msg.Render())
			assert.True(t, msg.HasContent())
			assert.Contains(t, msg.TextContent, tc.wantText)
			if msg.TemplateName != "" {
				assert.NotEmpty(t, strings.TrimSpace(msg.HTMLContent))
			}
		})
	}
}

func TestEmailMessage_Attach(t *testing.T) {
	msg := EmailMessage{}
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt"))
	require.NoError(t, msg.Attach(strings.NewReader("{}"), "data.json", "application/json"))

	if assert.Len(t, msg.Attachments, 2) {
		assert.Equal(t, "text/plain; charset=utf-8", msg.Attachments[0].ContentType)
		assert.Equal(t, "aGVsbG8=", msg.Attachments[0].Content.String())
		assert.Equal(t, "application/json", msg.Attachments[1].ContentType)
	}
	assert.True(t, msg.HasAttachments())
}
