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

type ProductHandler struct {
	productService service.ProductService
	exportService  service.ExportService
}

func NewProductHandler(productService service.ProductService, exportService service.ExportService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		exportService:  exportService,
	}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup, tokens *auth.TokenManager) {
	products := router.Group("/api/products")
	products.Use(middleware.RequireAuth(tokens))
	{
		products.GET("", h.ListProducts)
		products.POST("", h.CreateProduct)
		products.GET("/export/csv", h.ExportInventory)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// ListProducts returns a page of products
// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Case-insensitive name filter"
// @Param        skip    query     int     false  "Rows to skip (default 0)"
// @Param        limit   query     int     false  "Page size (default 100)"
// @Success      200     {object}  response.Response{data=response.Page{items=[]service.ProductResponse}}
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	products, total, err := h.productService.ListProducts(c.Request.Context(), p.Skip, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page{Items: products, Total: total, Skip: p.Skip, Limit: p.Limit}))
}

// CreateProduct adds a product to the catalog
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.productService.CreateProduct(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// UpdateProduct applies a partial update; omitted fields keep their value
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct removes a product that no sale or invoice references
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}

// ExportInventory downloads the product catalog with stock levels
// @Summary      Export inventory
// @Tags         products
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200  {file}  file
// @Router       /api/products/export/csv [get]
func (h *ProductHandler) ExportInventory(c *gin.Context) {
	data, err := h.exportService.ExportInventoryCSV(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, "inventory", "csv", csvContentType, data)
}
