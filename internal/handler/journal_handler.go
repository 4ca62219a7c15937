package handler

import (
	"net/http"

	"sitekhata/internal/middleware"
	"sitekhata/internal/model"
	"sitekhata/internal/service"
	"sitekhata/pkg/pagination"
	"sitekhata/pkg/response"

	"github.com/gin-gonic/gin"
)

type JournalHandler struct {
	journals *service.JournalService
}

func NewJournalHandler(journals *service.JournalService) *JournalHandler {
	return &JournalHandler{journals: journals}
}

func (h *JournalHandler) RegisterRoutes(router *gin.RouterGroup) {
	journals := router.Group("/api/journals")
	{
		journals.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleUser), h.List)
		journals.POST("", middleware.RequireRole(model.RoleAdmin), h.Create)
		journals.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.Delete)
	}
}

func (h *JournalHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	entries, total, err := h.journals.List(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, entries, params.Page, params.Limit, total))
}

func (h *JournalHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}

	var req service.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.journals.Create(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

func (h *JournalHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.journals.Delete(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
