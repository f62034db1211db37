package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"
	"gymcore_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const defaultExpiringDays = 7

// MembershipHandler exposes plans and the membership lifecycle.
type MembershipHandler struct {
	planService       services.PlanService
	membershipService services.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(ps services.PlanService, ms services.MembershipService) *MembershipHandler {
	return &MembershipHandler{planService: ps, membershipService: ms}
}

func (h *MembershipHandler) respondError(c *gin.Context, err error, op, fallback string) {
	utils.LogError(err, op)
	switch {
	case errors.Is(err, services.ErrPlanNotFound):
		respondNotFound(c, "Membership plan not found.", err)
	case errors.Is(err, services.ErrMembershipNotFound):
		respondNotFound(c, "Membership not found.", err)
	case errors.Is(err, services.ErrClientNotFound):
		respondNotFound(c, "Client not found.", err)
	case errors.Is(err, services.ErrPlanInactive):
		respondInvalidState(c, "Membership plan is not active.", err)
	case errors.Is(err, services.ErrInvalidState):
		respondInvalidState(c, "Operation not allowed in the membership's current state.", err)
	case errors.Is(err, services.ErrValidation):
		respondBadRequest(c, "Validation failed: "+err.Error(), err)
	default:
		utils.RespondInternalError(c, fallback)
	}
}

// --- Plans ---

func (h *MembershipHandler) CreatePlan(c *gin.Context) {
	var req services.CreatePlanRequest
	if !bindJSON(c, &req, "CreatePlan") {
		return
	}
	plan, err := h.planService.CreatePlan(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "CreatePlan: Error from planService.CreatePlan", "Failed to create membership plan.")
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GetPlans lists active plans; ?all=true includes deactivated ones.
func (h *MembershipHandler) GetPlans(c *gin.Context) {
	all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))
	plans, err := h.planService.GetPlans(c.Request.Context(), !all)
	if err != nil {
		h.respondError(c, err, "GetPlans: Error from planService.GetPlans", "Failed to fetch membership plans.")
		return
	}
	if plans == nil {
		plans = []models.MembershipPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

func (h *MembershipHandler) GetPlanByID(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.planService.GetPlanByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "GetPlanByID: Error from planService.GetPlanByID", "Failed to fetch membership plan.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *MembershipHandler) UpdatePlan(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdatePlanRequest
	if !bindJSON(c, &req, "UpdatePlan") {
		return
	}
	plan, err := h.planService.UpdatePlan(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err, "UpdatePlan: Error from planService.UpdatePlan", "Failed to update membership plan.")
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *MembershipHandler) DeletePlan(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.planService.DeletePlan(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "DeletePlan: Error from planService.DeletePlan", "Failed to delete membership plan.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Membership plan deactivated successfully"})
}

// --- Memberships ---

// AssignMembership sells a plan to a client in replace or queue mode.
func (h *MembershipHandler) AssignMembership(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.AssignMembershipRequest
	if !bindJSON(c, &req, "AssignMembership") {
		return
	}
	m, err := h.membershipService.AssignMembership(c.Request.Context(), req, userID)
	if err != nil {
		h.respondError(c, err, "AssignMembership: Error from membershipService.AssignMembership", "Failed to assign membership.")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MembershipHandler) transition(c *gin.Context, op string, fn func(*gin.Context, int64) (*models.Membership, error)) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	m, err := fn(c, id)
	if err != nil {
		h.respondError(c, err, op+": Error for membership "+utils.Int64ToStr(id), "Failed to update membership.")
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MembershipHandler) FreezeMembership(c *gin.Context) {
	h.transition(c, "FreezeMembership", func(c *gin.Context, id int64) (*models.Membership, error) {
		return h.membershipService.FreezeMembership(c.Request.Context(), id)
	})
}

func (h *MembershipHandler) UnfreezeMembership(c *gin.Context) {
	h.transition(c, "UnfreezeMembership", func(c *gin.Context, id int64) (*models.Membership, error) {
		return h.membershipService.UnfreezeMembership(c.Request.Context(), id)
	})
}

func (h *MembershipHandler) CancelMembership(c *gin.Context) {
	h.transition(c, "CancelMembership", func(c *gin.Context, id int64) (*models.Membership, error) {
		return h.membershipService.CancelMembership(c.Request.Context(), id)
	})
}

// GetExpiring lists memberships ending within ?days (default 7).
func (h *MembershipHandler) GetExpiring(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultExpiringDays)))
	if err != nil {
		respondBadRequest(c, "Invalid days parameter.", err)
		return
	}
	list, err := h.membershipService.GetExpiring(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, err, "GetExpiring: Error from membershipService.GetExpiring", "Failed to fetch expiring memberships.")
		return
	}
	if list == nil {
		list = []models.Membership{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *MembershipHandler) GetClientMemberships(c *gin.Context) {
	clientID, ok := utils.ParseIDParam(c, "clientId")
	if !ok {
		return
	}
	list, err := h.membershipService.GetClientMemberships(c.Request.Context(), clientID)
	if err != nil {
		h.respondError(c, err, "GetClientMemberships: Error from membershipService.GetClientMemberships", "Failed to fetch memberships.")
		return
	}
	if list == nil {
		list = []models.Membership{}
	}
	c.JSON(http.StatusOK, list)
}
