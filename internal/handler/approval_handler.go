package handler

import (
	"net/http"

	"sitekhata/internal/middleware"
	"sitekhata/internal/model"
	"sitekhata/internal/service"
	"sitekhata/pkg/response"

	"github.com/gin-gonic/gin"
)

type ResolveRequest struct {
	Remarks         string `json:"remarks"`
	ExpectedVersion *int   `json:"expected_version"`
}

type ApprovalHandler struct {
	approvals *service.ApprovalService
	registry  *service.Registry
}

func NewApprovalHandler(approvals *service.ApprovalService, registry *service.Registry) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, registry: registry}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("", middleware.RequireRole(model.RoleAdmin), h.ListPending)
		approvals.POST("/:type/:id/approve", middleware.RequireRole(model.RoleAdmin), h.Approve)
		approvals.POST("/:type/:id/reject", middleware.RequireRole(model.RoleAdmin), h.Reject)
	}
}

// ListPending returns rows awaiting resolution across every entity type
// @Summary      List pending changes
// @Description  Returns staged rows awaiting admin resolution, raw pending payloads included
// @Tags         approvals
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by approval status (default: all pending)"
// @Success      200     {object}  response.Response
// @Router       /api/approvals [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	var statuses []model.ApprovalStatus
	if raw := c.Query("status"); raw != "" {
		statuses = []model.ApprovalStatus{model.ApprovalStatus(raw)}
	}

	reviews, err := h.approvals.ListPending(c.Request.Context(), statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reviews))
}

// Approve applies a pending change
// @Summary      Approve a pending change
// @Description  Applies a staged create/edit/delete. Pass expected_version to detect concurrent re-staging.
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        type     path      string          true   "Entity type"
// @Param        id       path      string          true   "Entity ID"
// @Param        payload  body      ResolveRequest  false  "Resolution options"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{type}/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}
	et, err := h.registry.ParseEntityType(c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req ResolveRequest
	_ = c.ShouldBindJSON(&req) // empty body is fine

	result, err := h.approvals.Approve(c.Request.Context(), et, id, actor, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"deleted": result.Deleted,
		"entity":  result.Entity,
	}))
}

// Reject marks a pending change as rejected, keeping the proposal visible
// @Summary      Reject a pending change
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        type     path      string          true   "Entity type"
// @Param        id       path      string          true   "Entity ID"
// @Param        payload  body      ResolveRequest  false  "Rejection remarks"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{type}/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}
	et, err := h.registry.ParseEntityType(c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req ResolveRequest
	_ = c.ShouldBindJSON(&req)

	entity, err := h.approvals.Reject(c.Request.Context(), et, id, actor, req.Remarks, req.ExpectedVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entity))
}
