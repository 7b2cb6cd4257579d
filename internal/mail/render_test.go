package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
)

func TestRender_FullNotice(t *testing.T) {
	r := NewRenderer("FinIQ System")
	msg, err := r.Render(Notice{
		To:            "asha@example.com",
		ClientName:    "Asha",
		Description:   "GST filing",
		DueDate:       domain.Date{Year: 2024, Month: 1, Day: 10},
		DueTime:       &domain.TimeOfDay{Hour: 9, Minute: 30},
		CompletionURL: "https://example.com/complete/abc.def.ghi",
	})
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Reminder: GST filing Due on 2024-01-10", msg.Subject)
	assert.Contains(t, msg.Text, "Hi Asha,")
	assert.Contains(t, msg.Text, "Due Date: 2024-01-10 at 09:30")
	assert.Contains(t, msg.Text, "https://example.com/complete/abc.def.ghi")
	assert.Contains(t, msg.Text, "FinIQ System")
	assert.Contains(t, msg.HTML, `href="https://example.com/complete/abc.def.ghi"`)
}

func TestRender_Fallbacks(t *testing.T) {
	msg, err := NewRenderer("").Render(Notice{
		To:          "x@example.com",
		Description: "Advance tax",
		DueDate:     domain.Date{Year: 2024, Month: 3, Day: 15},
	})
	require.NoError(t, err)

	assert.Contains(t, msg.Text, "Hi Client,")
	assert.Contains(t, msg.Text, "at any time")
	assert.Contains(t, msg.HTML, "Hi Client,")
}

func TestRender_EscapesHTML(t *testing.T) {
	msg, err := NewRenderer("").Render(Notice{
		ClientName:  "<b>Eve</b>",
		Description: `<script>alert("x")</script>`,
		DueDate:     domain.Date{Year: 2024, Month: 3, Day: 15},
	})
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.Text, "<b>Eve</b>")
}
