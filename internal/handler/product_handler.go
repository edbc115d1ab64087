package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/catalog_api/internal/service"
	"github.com/GTDGit/catalog_api/internal/utils"
)

// ProductHandler handles the public product read endpoints.
type ProductHandler struct {
	productService service.ProductCatalog
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productService service.ProductCatalog) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, err := parsePageRequest(c)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.productService.ListProducts(c.Request.Context(), page)
	if err != nil {
		handleError(c, err)
		return
	}
	writePage(c, "Products retrieved", result)
}

// FilterProducts handles GET /api/v1/products/filter
func (h *ProductHandler) FilterProducts(c *gin.Context) {
	page, err := parsePageRequest(c)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}
	filter, err := parseProductFilter(c)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.productService.FilterProducts(c.Request.Context(), filter, page)
	if err != nil {
		handleError(c, err)
		return
	}
	writePage(c, "Products retrieved", result)
}

// GetFeaturedProducts handles GET /api/v1/products/featured
func (h *ProductHandler) GetFeaturedProducts(c *gin.Context) {
	page, err := parsePageRequest(c)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.productService.GetFeaturedProducts(c.Request.Context(), page)
	if err != nil {
		handleError(c, err)
		return
	}
	writePage(c, "Featured products retrieved", result)
}

// GetLowStockProducts handles GET /api/v1/products/low-stock
func (h *ProductHandler) GetLowStockProducts(c *gin.Context) {
	page, err := parsePageRequest(c)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.productService.GetLowStockProducts(c.Request.Context(), page)
	if err != nil {
		handleError(c, err)
		return
	}
	writePage(c, "Low stock products retrieved", result)
}

// GetProduct handles GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", product)
}

// GetProductBySKU handles GET /api/v1/products/sku/:sku
func (h *ProductHandler) GetProductBySKU(c *gin.Context) {
	sku := strings.TrimSpace(c.Param("sku"))

	product, err := h.productService.GetProductBySKU(c.Request.Context(), sku)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved", product)
}
