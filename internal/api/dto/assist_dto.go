package dto

import "time"

// RequirementRequest asks a department for Total people.
type RequirementRequest struct {
	DepartmentID string `json:"department_id"`
	Total        int    `json:"total"`
}

// CreateAssistRequest payload.
type CreateAssistRequest struct {
	TicketID     string               `json:"ticket_id"`
	Requirements []RequirementRequest `json:"requirements"`
}

// RequirementResponse reports fill progress for one department.
type RequirementResponse struct {
	DepartmentID string `json:"department_id"`
	Total        int    `json:"total"`
	Current      int    `json:"current"`
	State        string `json:"state"`
}

// AssistResponse describes an assist.
type AssistResponse struct {
	ID             string                `json:"id"`
	TicketID       string                `json:"ticket_id"`
	SubmitterID    string                `json:"submitter_id"`
	State          string                `json:"state"`
	Requirements   []RequirementResponse `json:"requirements"`
	ParticipantIDs []string              `json:"participant_ids"`
	CreatedAt      time.Time             `json:"created_at"`
	ClosedAt       *time.Time            `json:"closed_at"`
}
