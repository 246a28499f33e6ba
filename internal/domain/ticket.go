package domain

import "time"

// TicketState is derived from a ticket's timestamps and never stored.
// The order of the constants is the lifecycle order; Rejected is a separate branch.
type TicketState int

const (
	StateNotExist TicketState = iota
	StateUnapproved
	StateApproving
	StateOpen
	StateAssigned
	StateClosed
	StateRejected
)

var stateNames = map[TicketState]string{
	StateNotExist:   "not_exist",
	StateUnapproved: "unapproved",
	StateApproving:  "approving",
	StateOpen:       "open",
	StateAssigned:   "assigned",
	StateClosed:     "closed",
	StateRejected:   "rejected",
}

func (s TicketState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Fund is one line of a ticket's expenditure breakdown.
type Fund struct {
	Reason string
	Amount int64
}

// Ticket is the expenditure request aggregate.
//
// FirstDecisionAt is not a column: repositories derive it from the earliest
// approval record so that StateAt can tell Unapproved from Approving.
type Ticket struct {
	ID                     string
	TenantID               string
	CreatorID              string
	Company                *string
	Title                  string
	Reason                 string
	Address                string
	Funds                  []Fund
	Amount                 int64
	DepartmentIDs          []string
	CurrentApprovalLevelID *string
	LastApproverID         *string
	ReceiverID             *string
	CreatedAt              time.Time
	FirstDecisionAt        *time.Time
	ApprovedAt             *time.Time
	ReceivedAt             *time.Time
	FinishedAt             *time.Time
	RejectedAt             *time.Time
}

// SumFunds totals a fund breakdown.
func SumFunds(funds []Fund) int64 {
	var total int64
	for _, f := range funds {
		total += f.Amount
	}
	return total
}

// StateAt reconstructs the state the ticket was in at instant at.
func (t *Ticket) StateAt(at time.Time) TicketState {
	switch {
	case t.RejectedAt != nil && !at.Before(*t.RejectedAt):
		return StateRejected
	case at.Before(t.CreatedAt):
		return StateNotExist
	case t.ApprovedAt == nil || at.Before(*t.ApprovedAt):
		if t.FirstDecisionAt != nil && !at.Before(*t.FirstDecisionAt) {
			return StateApproving
		}
		return StateUnapproved
	case t.ReceivedAt == nil || at.Before(*t.ReceivedAt):
		return StateOpen
	case t.FinishedAt == nil || at.Before(*t.FinishedAt):
		return StateAssigned
	default:
		return StateClosed
	}
}

// Terminal reports whether the ticket has been rejected or finished.
func (t *Ticket) Terminal() bool {
	return t.RejectedAt != nil || t.FinishedAt != nil
}

// AwaitingApproval reports whether the ticket still sits in the approval chain.
func (t *Ticket) AwaitingApproval() bool {
	return t.ApprovedAt == nil && t.RejectedAt == nil && t.CurrentApprovalLevelID != nil
}

// Takeable reports whether the ticket is approved and has no receiver yet.
func (t *Ticket) Takeable() bool {
	return t.ApprovedAt != nil && t.RejectedAt == nil && t.ReceiverID == nil
}

// RequiresDepartments reports whether only members of specific departments may take it.
func (t *Ticket) RequiresDepartments() bool {
	return len(t.DepartmentIDs) > 0
}
