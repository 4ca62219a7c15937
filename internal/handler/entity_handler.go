package handler

import (
	"encoding/json"
	"net/http"

	"sitekhata/internal/middleware"
	"sitekhata/internal/model"
	"sitekhata/internal/service"
	"sitekhata/pkg/pagination"
	"sitekhata/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// entityRoutes maps URL slugs to routing-table entity types.
var entityRoutes = map[string]service.EntityType{
	"transactions":     service.EntityTransaction,
	"records":          service.EntityRecord,
	"ledgers":          service.EntityLedger,
	"tasks":            service.EntityTask,
	"photos":           service.EntityPhoto,
	"documents":        service.EntityDocument,
	"hajari":           service.EntityHajari,
	"materials":        service.EntityMaterial,
	"material-entries": service.EntityMaterialEntry,
}

// StageRequest is the common write envelope for staged entities.
type StageRequest struct {
	Data           json.RawMessage `json:"data" binding:"required"`
	RequestMessage string          `json:"request_message"`
}

// EntityHandler exposes the staged CRUD surface for every approvable entity
// type through one set of generic endpoints.
type EntityHandler struct {
	staging *service.StagingService
}

func NewEntityHandler(staging *service.StagingService) *EntityHandler {
	return &EntityHandler{staging: staging}
}

func (h *EntityHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.RequireRole(model.RoleAdmin, model.RoleUser)
	for slug, et := range entityRoutes {
		group := router.Group("/api/" + slug)
		entityType := et
		{
			group.GET("", auth, func(c *gin.Context) { h.List(c, entityType) })
			group.GET("/:id", auth, func(c *gin.Context) { h.Get(c, entityType) })
			group.POST("", auth, func(c *gin.Context) { h.Create(c, entityType) })
			group.PUT("/:id", auth, func(c *gin.Context) { h.Edit(c, entityType) })
			group.DELETE("/:id", auth, func(c *gin.Context) { h.Delete(c, entityType) })
		}
	}
}

// List returns rows of one entity type with pagination and optional filters
func (h *EntityHandler) List(c *gin.Context, et service.EntityType) {
	params := pagination.Parse(c)
	filter := service.ListFilter{
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if raw := c.Query("project_id"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid project_id parameter"))
			return
		}
		filter.ProjectID = &projectID
	}
	if raw := c.Query("status"); raw != "" {
		filter.Statuses = []model.ApprovalStatus{model.ApprovalStatus(raw)}
	}

	rows, total, err := h.staging.List(c.Request.Context(), et, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, rows, params.Page, params.Limit, total))
}

// Get returns one raw row, pending payload included
func (h *EntityHandler) Get(c *gin.Context, et service.EntityType) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	entity, err := h.staging.Get(c.Request.Context(), et, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entity))
}

// Create stages a new entity; admins get it applied immediately
func (h *EntityHandler) Create(c *gin.Context, et service.EntityType) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}

	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entity, err := h.staging.Create(c.Request.Context(), et, req.Data, actor, req.RequestMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entity))
}

// Edit stages a partial update; admins get it applied immediately
func (h *EntityHandler) Edit(c *gin.Context, et service.EntityType) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entity, err := h.staging.Edit(c.Request.Context(), et, id, req.Data, actor, req.RequestMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entity))
}

// Delete removes the row for admins and stages a delete marker for users
func (h *EntityHandler) Delete(c *gin.Context, et service.EntityType) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	// Optional request message rides in the body; absence is fine.
	var req StageRequest
	_ = c.ShouldBindJSON(&req)

	entity, deleted, err := h.staging.Delete(c.Request.Context(), et, id, actor, req.RequestMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"deleted": deleted,
		"entity":  entity,
	}))
}
