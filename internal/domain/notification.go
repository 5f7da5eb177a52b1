package domain

// Severity classifies a notification for display.
type Severity string

const (
	SeverityDefault Severity = "default"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a user-facing toast raised by a store mutation.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}
