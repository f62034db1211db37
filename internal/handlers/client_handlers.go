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

// ClientHandler holds the client service.
type ClientHandler struct {
	clientService services.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(cs services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: cs}
}

func (h *ClientHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrClientNotFound):
		respondNotFound(c, "Client not found.", err)
	case errors.Is(err, services.ErrClientInUse):
		respondConflict(c, "Client cannot be deleted as they are referenced in other records.", err)
	case errors.Is(err, services.ErrClientValidation), errors.Is(err, services.ErrDateFormat):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

// CreateClient handles the creation of a new client.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req services.CreateClientRequest
	if !bindJSON(c, &req, "CreateClient") {
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "CreateClient: Error from clientService.CreateClient", "Failed to create client.")
		return
	}
	c.JSON(http.StatusCreated, client)
}

// GetClients handles fetching all clients with pagination and search.
func (h *ClientHandler) GetClients(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 20, 100)
	search := strings.TrimSpace(c.Query("search"))

	clients, total, err := h.clientService.GetClients(c.Request.Context(), page, limit, search)
	if err != nil {
		h.respondError(c, err, "GetClients: Error from clientService.GetClients", "Failed to fetch clients.")
		return
	}
	if clients == nil {
		clients = []models.ClientSummary{}
	}
	c.JSON(http.StatusOK, paged(clients, total, page, limit))
}

// GetClientByID returns the client with memberships and recent visits.
func (h *ClientHandler) GetClientByID(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	client, err := h.clientService.GetClientByID(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err, "GetClientByID: Error from clientService.GetClientByID for ID "+utils.Int64ToStr(clientID), "Failed to fetch client.")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) GetClientByQRCode(c *gin.Context) {
	client, err := h.clientService.GetClientByQRCode(c.Request.Context(), c.Param("qrCode"))
	if err != nil {
		h.respondError(c, err, "GetClientByQRCode: Error from clientService.GetClientByQRCode", "Failed to fetch client.")
		return
	}
	c.JSON(http.StatusOK, client)
}

// GetClientCard returns the member card payload.
func (h *ClientHandler) GetClientCard(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	card, err := h.clientService.GetClientCard(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err, "GetClientCard: Error from clientService.GetClientCard", "Failed to build client card.")
		return
	}
	c.JSON(http.StatusOK, card)
}

// UpdateClient handles updating a client.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateClientRequest
	if !bindJSON(c, &req, "UpdateClient") {
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), clientID, req)
	if err != nil {
		h.respondError(c, err, "UpdateClient: Error from clientService.UpdateClient for ID "+utils.Int64ToStr(clientID), "Failed to update client.")
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) UpdateMedicalNotes(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateMedicalNotesRequest
	if !bindJSON(c, &req, "UpdateMedicalNotes") {
		return
	}
	client, err := h.clientService.UpdateMedicalNotes(c.Request.Context(), clientID, req.MedicalNotes)
	if err != nil {
		h.respondError(c, err, "UpdateMedicalNotes: Error from clientService.UpdateMedicalNotes", "Failed to update medical notes.")
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient handles deleting a client.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), clientID); err != nil {
		h.respondError(c, err, "DeleteClient: Error from clientService.DeleteClient for ID "+utils.Int64ToStr(clientID), "Failed to delete client.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}
