package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/fastygo/reminders/domain"
)

// Notice carries everything a reminder email shows.
type Notice struct {
	To            string
	ClientName    string
	Description   string
	DueDate       domain.Date
	DueTime       *domain.TimeOfDay
	CompletionURL string
}

func (n Notice) greeting() string {
	if name := strings.TrimSpace(n.ClientName); name != "" {
		return name
	}
	return "Client"
}

func (n Notice) dueTime() string {
	if n.DueTime == nil {
		return "any time"
	}
	return n.DueTime.String()
}

type view struct {
	Name        string
	Description string
	DueDate     string
	DueTime     string
	Link        string
	Signature   string
}

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`Hi {{.Name}},

This is a reminder regarding: {{.Description}}
Due Date: {{.DueDate}} at {{.DueTime}}

Please ensure this is addressed promptly.

If this task is completed, please open the link below:
{{.Link}}

Thank you,
{{.Signature}}
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<head>
<style>
.button { display: inline-block; padding: 10px 20px; font-size: 16px; color: white; background-color: #007bff; text-decoration: none; border-radius: 5px; }
</style>
</head>
<body>
<p>Hi {{.Name}},</p>
<p>This is a reminder regarding: <strong>{{.Description}}</strong></p>
<p>Due Date: <strong>{{.DueDate}} at {{.DueTime}}</strong></p>
<p>Please ensure this is addressed promptly.</p>
<p>If this task is completed, please click the button below:</p>
<p><a href="{{.Link}}" class="button">Mark as Completed</a></p>
<p>Thank you,<br>{{.Signature}}</p>
</body>
</html>
`))

// Renderer turns a Notice into a Message.
type Renderer struct {
	signature string
}

func NewRenderer(signature string) *Renderer {
	if signature == "" {
		signature = "Reminders"
	}
	return &Renderer{signature: signature}
}

func (r *Renderer) Render(n Notice) (Message, error) {
	v := view{
		Name:        n.greeting(),
		Description: n.Description,
		DueDate:     n.DueDate.String(),
		DueTime:     n.dueTime(),
		Link:        n.CompletionURL,
		Signature:   r.signature,
	}

	var text, html bytes.Buffer
	if err := textBody.Execute(&text, v); err != nil {
		return Message{}, err
	}
	if err := htmlBody.Execute(&html, v); err != nil {
		return Message{}, err
	}

	return Message{
		To:      n.To,
		Subject: "Reminder: " + n.Description + " Due on " + v.DueDate,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
