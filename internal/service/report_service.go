package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// ReportKind selects a single day or the seven days ending on a date.
type ReportKind string

const (
	ReportDaily  ReportKind = "daily"
	ReportWeekly ReportKind = "weekly"
)

const (
	dateLayout    = "2006-01-02"
	periodHours   = 4
	periodsPerDay = 24 / periodHours
	daysPerWeek   = 7
)

// PieCounters buckets tickets by state at one or more instants.
type PieCounters struct {
	Unapproved int `json:"unapproved"`
	Approving  int `json:"approving"`
	Available  int `json:"available"`
	Received   int `json:"received"`
	Closed     int `json:"closed"`
	Rejected   int `json:"rejected"`
}

// Add returns the field-wise sum.
func (p PieCounters) Add(o PieCounters) PieCounters {
	return PieCounters{
		Unapproved: p.Unapproved + o.Unapproved,
		Approving:  p.Approving + o.Approving,
		Available:  p.Available + o.Available,
		Received:   p.Received + o.Received,
		Closed:     p.Closed + o.Closed,
		Rejected:   p.Rejected + o.Rejected,
	}
}

// Total counts every bucketed ticket.
func (p PieCounters) Total() int {
	return p.Unapproved + p.Approving + p.Available + p.Received + p.Closed + p.Rejected
}

// BarEntry counts open and closed tickets at the end of a period.
type BarEntry struct {
	Weekday int    `json:"weekday"`
	Period  string `json:"period,omitempty"`
	Open    int    `json:"open"`
	Closed  int    `json:"closed"`
}

// CountStates buckets tickets by StateAt(at). Tickets that did not exist yet are skipped.
func CountStates(tickets []domain.Ticket, at time.Time) PieCounters {
	var c PieCounters
	for i := range tickets {
		switch tickets[i].StateAt(at) {
		case domain.StateUnapproved:
			c.Unapproved++
		case domain.StateApproving:
			c.Approving++
		case domain.StateOpen:
			c.Available++
		case domain.StateAssigned:
			c.Received++
		case domain.StateClosed:
			c.Closed++
		case domain.StateRejected:
			c.Rejected++
		}
	}
	return c
}

// BarAt counts Open and Closed tickets at instant at.
func BarAt(tickets []domain.Ticket, at time.Time) BarEntry {
	entry := BarEntry{Weekday: int(at.Weekday())}
	for i := range tickets {
		switch tickets[i].StateAt(at) {
		case domain.StateOpen:
			entry.Open++
		case domain.StateClosed:
			entry.Closed++
		}
	}
	return entry
}

// ReportService projects ticket states into chart counters.
type ReportService struct {
	tickets  repository.TicketRepository
	location *time.Location
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	TicketRepo repository.TicketRepository
	Location   *time.Location
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{tickets: deps.TicketRepo, location: loc}
}

// StateSnapshot evaluates the tenant's tickets at 23:59:59 of date. Weekly adds up
// the daily evaluations of date and the six days before it, so a ticket is counted
// once per day it spends in a state.
func (s *ReportService) StateSnapshot(ctx context.Context, id domain.Identity, kind ReportKind, date string) (PieCounters, error) {
	instants, err := s.dayEnds(kind, date)
	if err != nil {
		return PieCounters{}, err
	}
	tickets, err := s.load(ctx, id, instants[len(instants)-1])
	if err != nil {
		return PieCounters{}, err
	}
	var total PieCounters
	for _, at := range instants {
		total = total.Add(CountStates(tickets, at))
	}
	return total, nil
}

// BarSnapshot returns six 4-hour periods of date for daily, or one entry per day
// of the week ending on date for weekly.
func (s *ReportService) BarSnapshot(ctx context.Context, id domain.Identity, kind ReportKind, date string) ([]BarEntry, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	var instants []time.Time
	var labels []string
	switch kind {
	case ReportDaily:
		for i := 0; i < periodsPerDay; i++ {
			from, to := i*periodHours, (i+1)*periodHours
			end := time.Date(day.Year(), day.Month(), day.Day(), to, 0, 0, 0, s.location)
			instants = append(instants, end.Add(-time.Second))
			labels = append(labels, fmt.Sprintf("%d:00-%d:00", from, to))
		}
	case ReportWeekly:
		instants, err = s.dayEnds(kind, date)
		if err != nil {
			return nil, err
		}
		labels = make([]string, len(instants))
	default:
		return nil, invalidKind(kind)
	}

	tickets, err := s.load(ctx, id, instants[len(instants)-1])
	if err != nil {
		return nil, err
	}
	entries := make([]BarEntry, len(instants))
	for i, at := range instants {
		entries[i] = BarAt(tickets, at)
		entries[i].Period = labels[i]
	}
	return entries, nil
}

func (s *ReportService) load(ctx context.Context, id domain.Identity, until time.Time) ([]domain.Ticket, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListCreatedBefore(ctx, id.TenantID(), until)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return tickets, nil
}

func (s *ReportService) parseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, s.location)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("date must be YYYY-MM-DD", map[string]any{"date": date})
	}
	return day, nil
}

// dayEnds returns the 23:59:59 instants the kind evaluates, oldest first.
func (s *ReportService) dayEnds(kind ReportKind, date string) ([]time.Time, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	days := 1
	switch kind {
	case ReportDaily:
	case ReportWeekly:
		days = daysPerWeek
	default:
		return nil, invalidKind(kind)
	}
	instants := make([]time.Time, 0, days)
	for back := days - 1; back >= 0; back-- {
		d := day.AddDate(0, 0, -back)
		instants = append(instants, time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, s.location))
	}
	return instants, nil
}

func invalidKind(kind ReportKind) error {
	return apperrors.NewValidationError("report type must be daily or weekly", map[string]any{"t": string(kind)})
}
