package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ProductHandler holds the product service.
type ProductHandler struct {
	productService services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(ps services.ProductService) *ProductHandler {
	return &ProductHandler{productService: ps}
}

func (h *ProductHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		respondNotFound(c, "Product not found.", err)
	case errors.Is(err, services.ErrBarcodeExists):
		respondConflict(c, "A product with this barcode already exists.", err)
	case errors.Is(err, services.ErrInsufficientStock):
		respondBadRequest(c, "Stock cannot go below zero.", err)
	case errors.Is(err, services.ErrValidation):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

// CreateProduct adds a product; a non-zero opening stock is recorded in the ledger.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CreateProductRequest
	if !bindJSON(c, &req, "CreateProduct") {
		return
	}
	product, err := h.productService.CreateProduct(c.Request.Context(), req, userID)
	if err != nil {
		h.respondError(c, err, "CreateProduct: Error from productService.CreateProduct", "Failed to create product.")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 20, 100)
	filters := models.ProductFilters{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
		Page:     page,
		Limit:    limit,
	}
	products, total, err := h.productService.GetProducts(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err, "GetProducts: Error from productService.GetProducts", "Failed to fetch products.")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, paged(products, total, page, limit))
}

// GetLowStock lists active products at or below ?threshold.
func (h *ProductHandler) GetLowStock(c *gin.Context) {
	threshold, err := strconv.Atoi(c.DefaultQuery("threshold", strconv.Itoa(services.DefaultLowStockThreshold)))
	if err != nil || threshold < 0 {
		respondBadRequest(c, "Invalid threshold parameter.", errors.New("threshold must be a non-negative integer"))
		return
	}
	products, err := h.productService.GetLowStock(c.Request.Context(), threshold)
	if err != nil {
		h.respondError(c, err, "GetLowStock: Error from productService.GetLowStock", "Failed to fetch low stock products.")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProductByBarcode(c *gin.Context) {
	product, err := h.productService.GetProductByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, err, "GetProductByBarcode: Error from productService.GetProductByBarcode", "Failed to fetch product.")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "GetProductByID: Error from productService.GetProductByID for ID "+utils.Int64ToStr(id), "Failed to fetch product.")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProductRequest
	if !bindJSON(c, &req, "UpdateProduct") {
		return
	}
	product, err := h.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "UpdateProduct: Error from productService.UpdateProduct for ID "+utils.Int64ToStr(id), "Failed to update product.")
		return
	}
	c.JSON(http.StatusOK, product)
}

// AdjustStock applies a signed delta and records an ADJUSTMENT movement.
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.AdjustStockRequest
	if !bindJSON(c, &req, "AdjustStock") {
		return
	}
	product, err := h.productService.AdjustStock(c.Request.Context(), id, req, userID)
	if err != nil {
		h.respondError(c, err, "AdjustStock: Error from productService.AdjustStock for ID "+utils.Int64ToStr(id), "Failed to adjust stock.")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetStockMovements(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	page, limit := utils.ParsePagination(c, 50, 200)
	movements, total, err := h.productService.GetStockMovements(c.Request.Context(), id, page, limit)
	if err != nil {
		h.respondError(c, err, "GetStockMovements: Error from productService.GetStockMovements", "Failed to fetch stock movements.")
		return
	}
	if movements == nil {
		movements = []models.StockMovement{}
	}
	c.JSON(http.StatusOK, paged(movements, total, page, limit))
}

// DeleteProduct soft-deletes the product.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "DeleteProduct: Error from productService.DeleteProduct for ID "+utils.Int64ToStr(id), "Failed to delete product.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
