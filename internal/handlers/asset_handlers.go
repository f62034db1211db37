package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AssetHandler holds the asset service.
type AssetHandler struct {
	assetService services.AssetService
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(as services.AssetService) *AssetHandler {
	return &AssetHandler{assetService: as}
}

func (h *AssetHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrAssetNotFound):
		respondNotFound(c, "Asset not found.", err)
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrDateFormat):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req services.CreateAssetRequest
	if !bindJSON(c, &req, "CreateAsset") {
		return
	}
	asset, err := h.assetService.CreateAsset(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "CreateAsset: Error from assetService.CreateAsset", "Failed to create asset.")
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// GetAssets lists assets, optionally by ?status.
func (h *AssetHandler) GetAssets(c *gin.Context) {
	assets, err := h.assetService.GetAssets(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if err != nil {
		h.respondError(c, err, "GetAssets: Error from assetService.GetAssets", "Failed to fetch assets.")
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	c.JSON(http.StatusOK, assets)
}

func (h *AssetHandler) GetAssetByID(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	asset, err := h.assetService.GetAssetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "GetAssetByID: Error from assetService.GetAssetByID for ID "+utils.Int64ToStr(id), "Failed to fetch asset.")
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateAssetRequest
	if !bindJSON(c, &req, "UpdateAsset") {
		return
	}
	asset, err := h.assetService.UpdateAsset(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "UpdateAsset: Error from assetService.UpdateAsset for ID "+utils.Int64ToStr(id), "Failed to update asset.")
		return
	}
	c.JSON(http.StatusOK, asset)
}

// RetireAsset marks the asset RETIRED; assets are never hard-deleted.
func (h *AssetHandler) RetireAsset(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	asset, err := h.assetService.RetireAsset(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "RetireAsset: Error from assetService.RetireAsset for ID "+utils.Int64ToStr(id), "Failed to retire asset.")
		return
	}
	c.JSON(http.StatusOK, asset)
}
