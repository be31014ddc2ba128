// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Both are durable; payloads are JSON.
const (
	EntryDecidedQueue    = "entry.decided"
	ReportRequestedQueue = "report.requested"
)

// EntryDecidedEvent is published when a submitted time entry is approved
// or rejected.  It carries enough context for downstream consumers to
// notify the entry's owner without querying the primary database.
type EntryDecidedEvent struct {
	EntryID     uint64  `json:"entry_id"`
	UserID      uint64  `json:"user_id"`
	UserEmail   string  `json:"user_email"`
	ProjectID   uint64  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Decision    string  `json:"decision"` // "approved" or "rejected"
	Reason      string  `json:"reason,omitempty"`
	DecidedByID uint64  `json:"decided_by_id"`
	Hours       float64 `json:"hours"`
	Cost        float64 `json:"cost"`
	DecidedAt   string  `json:"decided_at"`
}

// ReportRequestedEvent is published when a user asks for a report to be
// delivered by email.  The document is rendered up front and shipped in
// the event so the consumer needs no database access; actual SMTP
// delivery is a collaborator behind this queue.
type ReportRequestedEvent struct {
	RequestedByID uint64  `json:"requested_by_id"`
	Recipient     string  `json:"recipient"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	TotalHours    float64 `json:"total_hours"`
	TotalCost     float64 `json:"total_cost"`
	EntryCount    int     `json:"entry_count"`
	Filename      string  `json:"filename"`
	CSV           string  `json:"csv"`
	RequestedAt   string  `json:"requested_at"`
}
