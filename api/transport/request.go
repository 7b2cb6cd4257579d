package transport

type ClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ReminderRequest carries dates as strings; they are validated by the use case.
// Source "document" marks a due date taken from an uploaded document.
type ReminderRequest struct {
	ClientID    *int64 `json:"client_id"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`
	Frequency   string `json:"frequency"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

type MailTestRequest struct {
	To string `json:"to"`
}
