package handler

import (
	"net/http"

	"sitekhata/internal/middleware"
	"sitekhata/internal/model"
	"sitekhata/internal/service"
	"sitekhata/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StatementHandler struct {
	statements *service.StatementService
}

func NewStatementHandler(statements *service.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

func (h *StatementHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.RequireRole(model.RoleAdmin, model.RoleUser)
	router.GET("/api/accounts/:id/statement", auth, h.AccountStatement)
	router.GET("/api/ledgers/:id/statement", auth, h.LedgerStatement)
	router.GET("/api/projects/:id/totals", auth, h.ProjectTotals)
}

// AccountStatement returns the cash/bank book with a running balance
func (h *StatementHandler) AccountStatement(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	statement, err := h.statements.AccountStatement(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, statement))
}

// LedgerStatement returns the cost-code flow, optionally scoped by project or
// submitting user
func (h *StatementHandler) LedgerStatement(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var projectID, userID *uuid.UUID
	if raw := c.Query("project_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid project_id parameter"))
			return
		}
		projectID = &parsed
	}
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user_id parameter"))
			return
		}
		userID = &parsed
	}

	statement, err := h.statements.LedgerStatement(c.Request.Context(), id, projectID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, statement))
}

// ProjectTotals returns the per-project financial rollup
func (h *StatementHandler) ProjectTotals(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	totals, err := h.statements.ProjectTotals(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, totals))
}
