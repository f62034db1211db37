package handlers

import (
	"errors"
	"net/http"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SaleHandler holds the sale service.
type SaleHandler struct {
	saleService services.SaleService
	loc         *time.Location
}

// NewSaleHandler creates a new SaleHandler.
func NewSaleHandler(ss services.SaleService, loc *time.Location) *SaleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SaleHandler{saleService: ss, loc: loc}
}

func (h *SaleHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrSaleNotFound):
		respondNotFound(c, "Sale not found.", err)
	case errors.Is(err, services.ErrInsufficientStock):
		respondBadRequest(c, "Insufficient stock: "+err.Error(), err)
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrInvalidPaymentMethod),
		errors.Is(err, services.ErrValidation):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

// CreateSale rings up a ticket for the authenticated cashier.
func (h *SaleHandler) CreateSale(c *gin.Context) {
	cashierID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CreateSaleRequest
	if !bindJSON(c, &req, "CreateSale") {
		return
	}
	sale, err := h.saleService.CreateSale(c.Request.Context(), req, cashierID)
	if err != nil {
		h.respondError(c, err, "CreateSale: Error from saleService.CreateSale", "Failed to create sale.")
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *SaleHandler) GetSales(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 20, 100)
	filters := models.SaleFilters{Page: page, Limit: limit}
	var ok bool
	if filters.From, ok = dateQuery(c, "from", h.loc); !ok {
		return
	}
	if filters.To, ok = dateQuery(c, "to", h.loc); !ok {
		return
	}
	sales, total, err := h.saleService.GetSales(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err, "GetSales: Error from saleService.GetSales", "Failed to fetch sales.")
		return
	}
	if sales == nil {
		sales = []models.Sale{}
	}
	c.JSON(http.StatusOK, paged(sales, total, page, limit))
}

func (h *SaleHandler) GetSaleByID(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetSaleByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "GetSaleByID: Error from saleService.GetSaleByID for ID "+utils.Int64ToStr(id), "Failed to fetch sale.")
		return
	}
	c.JSON(http.StatusOK, sale)
}
