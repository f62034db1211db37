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

// UserHandler manages staff accounts.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) respondError(c *gin.Context, err error, op string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		respondNotFound(c, "User not found.", err)
	case errors.Is(err, services.ErrInvalidRole), errors.Is(err, services.ErrValidation):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, "Failed to process user request.")
	}
}

// GetUsers lists staff accounts with optional search.
func (h *UserHandler) GetUsers(c *gin.Context) {
	page, limit := utils.ParsePagination(c, 20, 100)
	filters := models.UserFilters{Search: strings.TrimSpace(c.Query("search")), Page: page, Limit: limit}

	users, total, err := h.userService.GetUsers(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err, "GetUsers: Error from userService.GetUsers")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, paged(users, total, page, limit))
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "GetUserByID: Error from userService.GetUserByID")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateUserRequest
	if !bindJSON(c, &req, "UpdateUser") {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "UpdateUser: Error from userService.UpdateUser")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeactivateUser disables an account; staff rows are never deleted.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.userService.DeactivateUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "DeactivateUser: Error from userService.DeactivateUser")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}
