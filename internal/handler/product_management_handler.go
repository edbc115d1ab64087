package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/service"
	"github.com/GTDGit/catalog_api/internal/utils"
)

// ProductManagementHandler handles the admin product write endpoints.
type ProductManagementHandler struct {
	productService service.ProductCatalog
}

// NewProductManagementHandler constructs a ProductManagementHandler.
func NewProductManagementHandler(productService service.ProductCatalog) *ProductManagementHandler {
	return &ProductManagementHandler{productService: productService}
}

// CreateProduct handles POST /api/v1/products
func (h *ProductManagementHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}

	log.Info().Int64("product_id", product.ID).Str("sku", product.SKU).Int("admin_id", c.GetInt("user_id")).Msg("Product created")
	utils.Success(c, 201, "Product created successfully", product)
}

// UpdateProduct handles PUT /api/v1/products/:id
func (h *ProductManagementHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product updated successfully", product)
}

// UpdateStatus handles PATCH /api/v1/products/:id/status?status=
func (h *ProductManagementHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	status := c.Query("status")
	if status == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "status query parameter is required")
		return
	}

	product, err := h.productService.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		handleError(c, err)
		return
	}
	utils.Success(c, 200, "Product status updated", product)
}

// DeleteProduct handles DELETE /api/v1/products/:id
func (h *ProductManagementHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	log.Info().Int64("product_id", id).Int("admin_id", c.GetInt("user_id")).Msg("Product archived")
	utils.Success(c, 200, "Product archived successfully", nil)
}
