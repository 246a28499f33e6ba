package dto

import "time"

// FundRequest is one line of the expenditure breakdown.
type FundRequest struct {
	Reason string `json:"reason"`
	Amount int64  `json:"amount"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string        `json:"title"`
	Reason        string        `json:"reason"`
	Address       string        `json:"address"`
	Funds         []FundRequest `json:"funds"`
	DepartmentIDs []string      `json:"department_ids"`
}

// FundResponse mirrors FundRequest.
type FundResponse struct {
	Reason string `json:"reason"`
	Amount int64  `json:"amount"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Company                *string    `json:"company,omitempty"`
	Amount                 int64      `json:"amount"`
	State                  string     `json:"state"`
	CreatorID              string     `json:"creator_id"`
	CurrentApprovalLevelID *string    `json:"current_approval_level_id"`
	ReceiverID             *string    `json:"receiver_id"`
	DepartmentIDs          []string   `json:"department_ids"`
	CreatedAt              time.Time  `json:"created_at"`
	ApprovedAt             *time.Time `json:"approved_at"`
	ReceivedAt             *time.Time `json:"received_at"`
	FinishedAt             *time.Time `json:"finished_at"`
	RejectedAt             *time.Time `json:"rejected_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Reason         string                   `json:"reason"`
	Address        string                   `json:"address"`
	Funds          []FundResponse           `json:"funds"`
	LastApproverID *string                  `json:"last_approver_id"`
	Approvals      []ApprovalRecordResponse `json:"approvals"`
}

// ApprovalRecordResponse is one audit row.
type ApprovalRecordResponse struct {
	ID              string    `json:"id"`
	ApprovalLevelID string    `json:"approval_level_id"`
	ApproverID      string    `json:"approver_id"`
	Result          string    `json:"result"`
	DecidedAt       time.Time `json:"decided_at"`
}

// CurrentWorkResponse is the caller's single in-flight job.
type CurrentWorkResponse struct {
	Ticket *TicketSummary  `json:"ticket"`
	Assist *AssistResponse `json:"assist"`
}

// HistoryEntryResponse is one line of the caller's history.
type HistoryEntryResponse struct {
	Kind   string          `json:"kind"`
	At     time.Time       `json:"at"`
	Ticket *TicketSummary  `json:"ticket,omitempty"`
	Assist *AssistResponse `json:"assist,omitempty"`
}

// PageMeta describes a page of a longer listing.
type PageMeta struct {
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}
