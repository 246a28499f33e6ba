package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/expense-ticket-service/internal/service"
)

const (
	pieSheet = "States"
	barSheet = "Workload"
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// PieWorkbook renders ticket state counters as a sheet with a pie chart.
func PieWorkbook(title string, counters service.PieCounters) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", pieSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]interface{}{
		{"State", "Tickets"},
		{"Unapproved", counters.Unapproved},
		{"Approving", counters.Approving},
		{"Available", counters.Available},
		{"Received", counters.Received},
		{"Closed", counters.Closed},
		{"Rejected", counters.Rejected},
	}
	if err := writeRows(f, pieSheet, rows); err != nil {
		return nil, err
	}
	last := len(rows)
	err := f.AddChart(pieSheet, "D2", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", pieSheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", pieSheet, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", pieSheet, last),
		}},
		Title: []excelize.RichTextRun{{Text: title}},
	})
	if err != nil {
		return nil, fmt.Errorf("add pie chart: %w", err)
	}
	return save(f)
}

// BarWorkbook renders open and closed counts per period as a clustered column chart.
func BarWorkbook(title string, entries []service.BarEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", barSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	rows := make([][]interface{}, 0, len(entries)+1)
	rows = append(rows, []interface{}{"Period", "Open", "Closed"})
	for _, e := range entries {
		rows = append(rows, []interface{}{entryLabel(e), e.Open, e.Closed})
	}
	if err := writeRows(f, barSheet, rows); err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		last := len(rows)
		series := make([]excelize.ChartSeries, 0, 2)
		for _, col := range []string{"B", "C"} {
			series = append(series, excelize.ChartSeries{
				Name:       fmt.Sprintf("%s!$%s$1", barSheet, col),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", barSheet, last),
				Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", barSheet, col, col, last),
			})
		}
		err := f.AddChart(barSheet, "E2", &excelize.Chart{
			Type:   excelize.Col,
			Series: series,
			Title:  []excelize.RichTextRun{{Text: title}},
		})
		if err != nil {
			return nil, fmt.Errorf("add bar chart: %w", err)
		}
	}
	return save(f)
}

func entryLabel(e service.BarEntry) string {
	day := weekdayNames[int(time.Weekday(e.Weekday))%len(weekdayNames)]
	if e.Period == "" {
		return day
	}
	return day + " " + e.Period
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}

func save(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
