package handler

import (
	"net/http"

	"posbackend/internal/auth"
	"posbackend/internal/middleware"
	"posbackend/internal/service"
	"posbackend/pkg/pagination"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	exportService  service.ExportService
}

func NewInvoiceHandler(invoiceService service.InvoiceService, exportService service.ExportService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		exportService:  exportService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup, tokens *auth.TokenManager) {
	invoices := router.Group("/api/invoices")
	invoices.Use(middleware.RequireAuth(tokens))
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/export/csv", h.ExportCSV)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PUT("/:id/status", h.UpdateInvoiceStatus)
	}
}

func invoiceFilter(c *gin.Context) service.InvoiceFilter {
	return service.InvoiceFilter{
		Status: c.Query("status"),
		SaleID: c.Query("sale_id"),
	}
}

// CreateInvoice bills a sale
// @Summary      Create invoice
// @Description  Creates an invoice for an existing sale with its own line pricing, tax and discount
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a page of invoices, optionally filtered by status or sale
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status   query     string  false  "pending, paid or cancelled"
// @Param        sale_id  query     string  false  "Only invoices for this sale"
// @Param        skip     query     int     false  "Rows to skip (default 0)"
// @Param        limit    query     int     false  "Page size (default 100)"
// @Success      200      {object}  response.Response{data=response.Page{items=[]service.InvoiceResponse}}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	p := pagination.Parse(c)
	filter := invoiceFilter(c)
	filter.Skip, filter.Limit = p.Skip, p.Limit

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: invoices, Total: total, Skip: p.Skip, Limit: p.Limit}))
}

// GetInvoice returns one invoice with its line items
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateInvoiceStatus moves an invoice between pending, paid and cancelled
// @Summary      Update invoice status
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateInvoiceStatus(c *gin.Context) {
	var req service.UpdateInvoiceStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateInvoiceStatus(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ExportCSV downloads every invoice matching the filters
// @Summary      Export invoices as CSV
// @Tags         invoices
// @Security     BearerAuth
// @Produce      text/csv
// @Param        status   query  string  false  "Status filter"
// @Param        sale_id  query  string  false  "Sale filter"
// @Success      200      {file}  file
// @Router       /api/invoices/export/csv [get]
func (h *InvoiceHandler) ExportCSV(c *gin.Context) {
	data, err := h.exportService.ExportInvoicesCSV(c.Request.Context(), invoiceFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, "invoices", "csv", csvContentType, data)
}
