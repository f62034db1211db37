package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user from the gin context,
// responding with 401 when it is missing.
func currentUserID(c *gin.Context) (int64, bool) {
	raw, exists := c.Get(utils.CtxUserID)
	if !exists {
		utils.LogError(errors.New("userID not found in context"), "currentUserID: userID not in context")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing user ID in context"))
		return 0, false
	}
	userID, ok := raw.(int64)
	if !ok {
		utils.LogError(errors.New("userID is not of type int64"), "currentUserID: userID type assertion failed")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User ID format incorrect.", "Invalid user ID format in context"))
		return 0, false
	}
	return userID, true
}

// bindJSON binds the request body, responding with 400 on failure.
func bindJSON(c *gin.Context, req interface{}, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogError(err, op+": Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return false
	}
	return true
}

// dateQuery parses an optional YYYY-MM-DD or RFC 3339 query parameter.
// The bool result is false when a response has already been written.
func dateQuery(c *gin.Context, name string, loc *time.Location) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	t, err := utils.ParseDateOrTime(raw, loc)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" parameter.", err.Error()))
		return nil, false
	}
	return &t, true
}

func respondNotFound(c *gin.Context, message string, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, message, err.Error()))
}

func respondBadRequest(c *gin.Context, message string, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, message, err.Error()))
}

func respondInvalidState(c *gin.Context, message string, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeInvalidState, message, err.Error()))
}

func respondConflict(c *gin.Context, message string, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, message, err.Error()))
}

// paged is the list envelope shared by the paginated endpoints.
func paged(data interface{}, total, page, limit int) gin.H {
	return gin.H{
		"data":       data,
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": utils.TotalPages(total, limit),
	}
}
