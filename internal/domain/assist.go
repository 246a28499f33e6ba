package domain

import "time"

// AssistState tracks whether an assist or one of its requirements still accepts participants.
type AssistState string

const (
	AssistOpen   AssistState = "open"
	AssistClosed AssistState = "closed"
)

// AssistRequirement asks a department for Total people. Current never exceeds Total.
type AssistRequirement struct {
	AssistID     string
	DepartmentID string
	Total        int
	Current      int
	State        AssistState
}

// Assist is a help request raised by a ticket's receiver.
type Assist struct {
	ID             string
	TenantID       string
	TicketID       string
	SubmitterID    string
	State          AssistState
	Requirements   []AssistRequirement
	ParticipantIDs []string
	CreatedAt      time.Time
	ClosedAt       *time.Time
}

// OpenRequirementsFor returns the open requirements in any of departmentIDs.
func (a *Assist) OpenRequirementsFor(departmentIDs []string) []AssistRequirement {
	var out []AssistRequirement
	for _, req := range a.Requirements {
		if req.State != AssistOpen || req.Current >= req.Total {
			continue
		}
		for _, id := range departmentIDs {
			if req.DepartmentID == id {
				out = append(out, req)
				break
			}
		}
	}
	return out
}

// HasParticipant reports whether employeeID already joined.
func (a *Assist) HasParticipant(employeeID string) bool {
	for _, id := range a.ParticipantIDs {
		if id == employeeID {
			return true
		}
	}
	return false
}
