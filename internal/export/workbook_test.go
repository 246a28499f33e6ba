package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/expense-ticket-service/internal/service"
)

func TestPieWorkbook(t *testing.T) {
	data, err := PieWorkbook("Tickets 2024-03-01", service.PieCounters{Unapproved: 2, Available: 1, Closed: 4})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{pieSheet}, f.GetSheetList())
	header, _ := f.GetCellValue(pieSheet, "A1")
	assert.Equal(t, "State", header)
	unapproved, _ := f.GetCellValue(pieSheet, "B2")
	assert.Equal(t, "2", unapproved)
	closed, _ := f.GetCellValue(pieSheet, "B6")
	assert.Equal(t, "4", closed)
}

func TestBarWorkbook(t *testing.T) {
	entries := []service.BarEntry{
		{Weekday: 5, Period: "0:00-4:00", Open: 3, Closed: 1},
		{Weekday: 5, Period: "4:00-8:00", Open: 2, Closed: 2},
	}
	data, err := BarWorkbook("Workload", entries)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	label, _ := f.GetCellValue(barSheet, "A2")
	assert.Equal(t, "Fri 0:00-4:00", label)
	open, _ := f.GetCellValue(barSheet, "B3")
	assert.Equal(t, "2", open)
	closed, _ := f.GetCellValue(barSheet, "C3")
	assert.Equal(t, "2", closed)
}

func TestBarWorkbookEmpty(t *testing.T) {
	data, err := BarWorkbook("Workload", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
