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

type SaleHandler struct {
	saleService   service.SaleService
	exportService service.ExportService
}

func NewSaleHandler(saleService service.SaleService, exportService service.ExportService) *SaleHandler {
	return &SaleHandler{
		saleService:   saleService,
		exportService: exportService,
	}
}

func (h *SaleHandler) RegisterRoutes(router *gin.RouterGroup, tokens *auth.TokenManager) {
	sales := router.Group("/api/sales")
	sales.Use(middleware.RequireAuth(tokens))
	{
		sales.GET("", h.ListSales)
		sales.POST("", h.CreateSale)
		sales.GET("/export/csv", h.ExportCSV)
		sales.GET("/export/xlsx", h.ExportXLSX)
		sales.GET("/:id", h.GetSale)
		sales.DELETE("/:id", h.DeleteSale)
		sales.PUT("/:id/status", h.UpdateSaleStatus)
	}
}

// saleFilter reads the date range and foreign key filters shared by listing and export.
func saleFilter(c *gin.Context) (service.SaleFilter, bool) {
	start, ok := parseTimeQuery(c, "start_date", false)
	if !ok {
		return service.SaleFilter{}, false
	}
	end, ok := parseTimeQuery(c, "end_date", true)
	if !ok {
		return service.SaleFilter{}, false
	}
	return service.SaleFilter{
		StartDate:  start,
		EndDate:    end,
		CustomerID: c.Query("customer_id"),
		ProductID:  c.Query("product_id"),
	}, true
}

// ListSales returns a page of sales, newest first
// @Summary      List sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        start_date   query     string  false  "Inclusive lower bound (RFC3339 or YYYY-MM-DD)"
// @Param        end_date     query     string  false  "Inclusive upper bound (RFC3339 or YYYY-MM-DD)"
// @Param        customer_id  query     string  false  "Customer filter"
// @Param        product_id   query     string  false  "Only sales containing this product"
// @Param        skip         query     int     false  "Rows to skip (default 0)"
// @Param        limit        query     int     false  "Page size (default 100)"
// @Success      200          {object}  response.Response{data=response.Page{items=[]service.SaleResponse}}
// @Failure      400          {object}  response.Response
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	filter, ok := saleFilter(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter.Skip, filter.Limit = p.Skip, p.Limit

	sales, total, err := h.saleService.ListSales(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: sales, Total: total, Skip: p.Skip, Limit: p.Limit}))
}

// CreateSale prices the items, decrements stock and records the sale atomically
// @Summary      Create sale
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSaleRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.saleService.CreateSale(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// GetSale returns one sale with its line items
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response{data=service.SaleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	sale, err := h.saleService.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// DeleteSale removes a sale and restores the stock it consumed
// @Summary      Delete sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/sales/{id} [delete]
func (h *SaleHandler) DeleteSale(c *gin.Context) {
	if err := h.saleService.DeleteSale(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Sale deleted successfully"))
}

// UpdateSaleStatus moves a sale between completed, pending and cancelled
// @Summary      Update sale status
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Sale ID"
// @Param        payload  body      service.UpdateSaleStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.SaleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/sales/{id}/status [put]
func (h *SaleHandler) UpdateSaleStatus(c *gin.Context) {
	var req service.UpdateSaleStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.saleService.UpdateSaleStatus(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// ExportCSV downloads every sale matching the filters
// @Summary      Export sales as CSV
// @Tags         sales
// @Security     BearerAuth
// @Produce      text/csv
// @Param        start_date   query  string  false  "Inclusive lower bound"
// @Param        end_date     query  string  false  "Inclusive upper bound"
// @Param        customer_id  query  string  false  "Customer filter"
// @Param        product_id   query  string  false  "Product filter"
// @Success      200          {file}  file
// @Router       /api/sales/export/csv [get]
func (h *SaleHandler) ExportCSV(c *gin.Context) {
	filter, ok := saleFilter(c)
	if !ok {
		return
	}
	data, err := h.exportService.ExportSalesCSV(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, "sales", "csv", csvContentType, data)
}

// ExportXLSX downloads every sale matching the filters as a spreadsheet
// @Summary      Export sales as XLSX
// @Tags         sales
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        start_date   query  string  false  "Inclusive lower bound"
// @Param        end_date     query  string  false  "Inclusive upper bound"
// @Param        customer_id  query  string  false  "Customer filter"
// @Param        product_id   query  string  false  "Product filter"
// @Success      200          {file}  file
// @Router       /api/sales/export/xlsx [get]
func (h *SaleHandler) ExportXLSX(c *gin.Context) {
	filter, ok := saleFilter(c)
	if !ok {
		return
	}
	data, err := h.exportService.ExportSalesXLSX(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, "sales", "xlsx", xlsxContentType, data)
}
