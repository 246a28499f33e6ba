package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expense-ticket-service/internal/export"
	"github.com/spec-kit/expense-ticket-service/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves the state pie and workload bar reports.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

func reportParams(c *fiber.Ctx) (service.ReportKind, string) {
	return service.ReportKind(c.Query("t", string(service.ReportDaily))), c.Query("date")
}

// Pie GET /reports/pie?t=daily|weekly&date=YYYY-MM-DD.
func (h *ReportsHandler) Pie(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	kind, date := reportParams(c)
	counters, err := h.reports.StateSnapshot(c.UserContext(), id, kind, date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counters})
}

// Bar GET /reports/bar?t=daily|weekly&date=YYYY-MM-DD.
func (h *ReportsHandler) Bar(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	kind, date := reportParams(c)
	entries, err := h.reports.BarSnapshot(c.UserContext(), id, kind, date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// PieWorkbook GET /reports/pie.xlsx.
func (h *ReportsHandler) PieWorkbook(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	kind, date := reportParams(c)
	counters, err := h.reports.StateSnapshot(c.UserContext(), id, kind, date)
	if err != nil {
		return err
	}
	data, err := export.PieWorkbook(fmt.Sprintf("Ticket states (%s %s)", kind, date), counters)
	if err != nil {
		return err
	}
	return sendWorkbook(c, "ticket-states.xlsx", data)
}

// BarWorkbook GET /reports/bar.xlsx.
func (h *ReportsHandler) BarWorkbook(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	kind, date := reportParams(c)
	entries, err := h.reports.BarSnapshot(c.UserContext(), id, kind, date)
	if err != nil {
		return err
	}
	data, err := export.BarWorkbook(fmt.Sprintf("Workload (%s %s)", kind, date), entries)
	if err != nil {
		return err
	}
	return sendWorkbook(c, "workload.xlsx", data)
}

func sendWorkbook(c *fiber.Ctx, name string, data []byte) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(data)
}
