package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketApproved EventType = "ticket_approved"
	EventTicketRejected EventType = "ticket_rejected"
	EventTicketTaken    EventType = "ticket_taken"
	EventTicketFinished EventType = "ticket_finished"
	EventAssistCreated  EventType = "assist_created"
	EventAssistJoined   EventType = "assist_joined"
	EventAssistClosed   EventType = "assist_closed"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketApproved,
	EventTicketRejected,
	EventTicketTaken,
	EventTicketFinished,
	EventAssistCreated,
	EventAssistJoined,
	EventAssistClosed,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TenantID   string      `json:"tenant_id"`
	TicketID   string      `json:"ticket_id"`
	AssistID   string      `json:"assist_id,omitempty"`
	EmployeeID string      `json:"employee_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title        string  `json:"title"`
	Amount       int64   `json:"amount"`
	FirstLevelID *string `json:"first_level_id,omitempty"`
}

// TicketApprovedPayload describes one sign-off. NextLevelID is nil when the chain completed.
type TicketApprovedPayload struct {
	LevelID     string  `json:"level_id"`
	NextLevelID *string `json:"next_level_id,omitempty"`
	Completed   bool    `json:"completed"`
}

// TicketRejectedPayload payload.
type TicketRejectedPayload struct {
	LevelID string `json:"level_id"`
}

// AssistCreatedPayload payload.
type AssistCreatedPayload struct {
	Departments map[string]int `json:"departments"`
}

// AssistJoinedPayload payload.
type AssistJoinedPayload struct {
	DepartmentIDs []string `json:"department_ids"`
}
