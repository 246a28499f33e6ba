package service

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/expense-ticket-service/pkg/util/errorutil"
)

// reportScene creates a ticket on Monday 2024-03-04 09:00 and approves it on
// Tuesday at 10:00.
func reportScene(t *testing.T) (*fixture, domain.Identity) {
	f := newFixture(t)
	level := f.level("manager", 1000, "")
	f.initialized()
	creator := f.employee("creator")
	approver := f.employee("approver", seat(level))

	ticket := f.create(creator, 100)
	f.clock.Set(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	_, err := f.tickets.Approve(f.ctx, f.as(approver), ticket.ID)
	require.NoError(t, err)
	return f, f.as(creator)
}

func TestStateSnapshotDaily(t *testing.T) {
	f, id := reportScene(t)

	monday, err := f.reports.StateSnapshot(f.ctx, id, ReportDaily, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, PieCounters{Unapproved: 1}, monday)

	tuesday, err := f.reports.StateSnapshot(f.ctx, id, ReportDaily, "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, PieCounters{Available: 1}, tuesday)

	before, err := f.reports.StateSnapshot(f.ctx, id, ReportDaily, "2024-03-03")
	require.NoError(t, err)
	assert.Zero(t, before.Total())
}

func TestStateSnapshotWeeklySumsDailyEvaluations(t *testing.T) {
	f, id := reportScene(t)

	weekly, err := f.reports.StateSnapshot(f.ctx, id, ReportWeekly, "2024-03-05")
	require.NoError(t, err)

	var sum PieCounters
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for back := 0; back < 7; back++ {
		daily, err := f.reports.StateSnapshot(f.ctx, id, ReportDaily, day.AddDate(0, 0, -back).Format(dateLayout))
		require.NoError(t, err)
		sum = sum.Add(daily)
	}
	assert.Equal(t, sum, weekly)
	assert.Equal(t, PieCounters{Unapproved: 1, Available: 1}, weekly)
}

func TestBarSnapshotDailyPeriods(t *testing.T) {
	f, id := reportScene(t)

	entries, err := f.reports.BarSnapshot(f.ctx, id, ReportDaily, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "0:00-4:00", entries[0].Period)
	assert.Equal(t, "20:00-24:00", entries[5].Period)
	for i, e := range entries {
		assert.Equal(t, int(time.Tuesday), e.Weekday)
		want := 0
		if i >= 2 {
			want = 1
		}
		assert.Equal(t, want, e.Open, "period %s", e.Period)
		assert.Zero(t, e.Closed)
	}
}

func TestBarSnapshotDailyPeriodsAcrossDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	f := newFixture(t)
	level := f.level("manager", 1000, "")
	f.initialized()
	creator := f.employee("creator")
	approver := f.employee("approver", seat(level))

	f.clock.Set(time.Date(2026, 3, 7, 12, 0, 0, 0, ny))
	ticket := f.create(creator, 100)
	f.clock.Set(time.Date(2026, 3, 9, 0, 30, 0, 0, ny))
	_, err = f.tickets.Approve(f.ctx, f.as(approver), ticket.ID)
	require.NoError(t, err)

	reports := NewReportService(ReportDependencies{TicketRepo: f.store.Tickets(), Location: ny})
	entries, err := reports.BarSnapshot(f.ctx, f.as(creator), ReportDaily, "2026-03-08")
	require.NoError(t, err)
	require.Len(t, entries, 6)
	for _, e := range entries {
		assert.Equal(t, int(time.Sunday), e.Weekday, "period %s", e.Period)
		assert.Zero(t, e.Open, "period %s", e.Period)
	}

	next, err := reports.BarSnapshot(f.ctx, f.as(creator), ReportDaily, "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, 1, next[0].Open)
}

func TestBarSnapshotWeekly(t *testing.T) {
	f, id := reportScene(t)

	entries, err := f.reports.BarSnapshot(f.ctx, id, ReportWeekly, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, entries, 7)
	assert.Equal(t, int(time.Wednesday), entries[0].Weekday)
	assert.Equal(t, int(time.Tuesday), entries[6].Weekday)
	assert.Equal(t, 1, entries[6].Open)
	assert.Zero(t, entries[5].Open)
}

func TestReportInputValidation(t *testing.T) {
	f, id := reportScene(t)

	_, err := f.reports.StateSnapshot(f.ctx, id, ReportKind("monthly"), "2024-03-05")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.reports.BarSnapshot(f.ctx, id, ReportDaily, "05/03/2024")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestCountStatesBuckets(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := base.Add(10 * time.Hour)
	ts := func(h int) *time.Time { v := base.Add(time.Duration(h) * time.Hour); return &v }
	tickets := []domain.Ticket{
		{CreatedAt: base},
		{CreatedAt: base, FirstDecisionAt: ts(1)},
		{CreatedAt: base, ApprovedAt: ts(2)},
		{CreatedAt: base, ApprovedAt: ts(2), ReceivedAt: ts(3)},
		{CreatedAt: base, ApprovedAt: ts(2), ReceivedAt: ts(3), FinishedAt: ts(4)},
		{CreatedAt: base, RejectedAt: ts(5)},
		{CreatedAt: base.Add(11 * time.Hour)},
	}
	assert.Equal(t, PieCounters{Unapproved: 1, Approving: 1, Available: 1, Received: 1, Closed: 1, Rejected: 1}, CountStates(tickets, at))

	bar := BarAt(tickets, at)
	assert.Equal(t, 1, bar.Open)
	assert.Equal(t, 1, bar.Closed)
}
