package handler

import (
	"fmt"
	"net/http"

	"posbackend/internal/auth"
	"posbackend/internal/middleware"
	"posbackend/internal/service"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup, tokens *auth.TokenManager) {
	reports := router.Group("/api/reports")
	reports.Use(middleware.RequireAuth(tokens))
	{
		reports.GET("/weekly", h.WeeklyReport)
		reports.GET("/monthly", h.MonthlyReport)
		reports.GET("/sales", h.SalesReport)
		reports.GET("/latest/:type/:period", h.LatestReport)
	}
}

// WeeklyReport aggregates the trailing 7 days and stores a snapshot
// @Summary      Generate weekly report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.ReportData}
// @Router       /api/reports/weekly [get]
func (h *ReportHandler) WeeklyReport(c *gin.Context) {
	report, err := h.reportService.GenerateWeeklyReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// MonthlyReport aggregates the trailing 30 days and stores a snapshot
// @Summary      Generate monthly report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.ReportData}
// @Router       /api/reports/monthly [get]
func (h *ReportHandler) MonthlyReport(c *gin.Context) {
	report, err := h.reportService.GenerateMonthlyReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// SalesReport aggregates an arbitrary range without storing a snapshot
// @Summary      Ad-hoc sales report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  true  "Inclusive lower bound (RFC3339 or YYYY-MM-DD)"
// @Param        end_date    query     string  true  "Inclusive upper bound (RFC3339 or YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=model.ReportData}
// @Failure      400         {object}  response.Response
// @Router       /api/reports/sales [get]
func (h *ReportHandler) SalesReport(c *gin.Context) {
	start, ok := parseTimeQuery(c, "start_date", false)
	if !ok {
		return
	}
	end, ok := parseTimeQuery(c, "end_date", true)
	if !ok {
		return
	}
	if start == nil || end == nil {
		badRequest(c, "start_date and end_date are required")
		return
	}

	report, err := h.reportService.GenerateSalesReport(c.Request.Context(), start.UTC(), end.UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// LatestReport returns the most recent stored snapshot for a report type and period
// @Summary      Latest report snapshot
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        type    path      string  true  "Report type, e.g. weekly_sales"
// @Param        period  path      string  true  "Period, e.g. weekly"
// @Success      200     {object}  response.Response{data=model.ReportData}
// @Failure      400     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /api/reports/latest/{type}/{period} [get]
func (h *ReportHandler) LatestReport(c *gin.Context) {
	reportType, period := c.Param("type"), c.Param("period")
	report, err := h.reportService.GetLatestReport(c.Request.Context(), reportType, period)
	if err != nil {
		respondError(c, err)
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, response.ErrorWithCode(http.StatusNotFound, string(service.KindNotFound),
			fmt.Sprintf("No %s %s report found", period, reportType), nil))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
