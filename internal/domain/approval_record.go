package domain

import "time"

// ApprovalResult is the outcome of a single sign-off.
type ApprovalResult string

const (
	ApprovalApproved ApprovalResult = "approved"
	ApprovalRejected ApprovalResult = "rejected"
)

// ApprovalRecord is an immutable audit row written once per approval decision.
type ApprovalRecord struct {
	ID              string
	TicketID        string
	ApprovalLevelID string
	ApproverID      string
	Result          ApprovalResult
	DecidedAt       time.Time
}
