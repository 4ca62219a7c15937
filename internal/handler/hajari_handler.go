package handler

import (
	"net/http"
	"time"

	"sitekhata/internal/middleware"
	"sitekhata/internal/model"
	"sitekhata/internal/service"
	"sitekhata/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SettlementRequest struct {
	LaborID        uuid.UUID       `json:"labor_id" binding:"required"`
	ProjectID      uuid.UUID       `json:"project_id" binding:"required"`
	Date           time.Time       `json:"date" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	RequestMessage string          `json:"request_message"`
}

// HajariHandler exposes the wage summary and settlement request endpoints.
// Attendance rows themselves go through the generic entity surface.
type HajariHandler struct {
	hajari *service.HajariService
}

func NewHajariHandler(hajari *service.HajariService) *HajariHandler {
	return &HajariHandler{hajari: hajari}
}

func (h *HajariHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.RequireRole(model.RoleAdmin, model.RoleUser)
	router.GET("/api/hajari/summary", auth, h.MonthlySummary)
	router.POST("/api/hajari/settlements", auth, h.RequestSettlement)
}

// MonthlySummary returns one worker's wage position for a month
// @Summary      Monthly wage summary
// @Description  Attendance counts, total wage, advances, settlements, and payable balance for one worker and month
// @Tags         hajari
// @Produce      json
// @Security     BearerAuth
// @Param        labor_id  query     string  true   "Labor ID"
// @Param        month     query     string  false  "Month as YYYY-MM (default: current month)"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/hajari/summary [get]
func (h *HajariHandler) MonthlySummary(c *gin.Context) {
	laborID, err := uuid.Parse(c.Query("labor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid labor_id parameter"))
		return
	}

	month := time.Now().UTC()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid month parameter, expected YYYY-MM"))
			return
		}
		month = parsed
	}

	summary, err := h.hajari.MonthlySummary(c.Request.Context(), laborID, month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// RequestSettlement stages a wage settlement for the worker's month
// @Summary      Request a wage settlement
// @Description  Admins settle immediately (payout transaction included); users stage a request for review
// @Tags         hajari
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      SettlementRequest  true  "Settlement details"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/hajari/settlements [post]
func (h *HajariHandler) RequestSettlement(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User not found in context"))
		return
	}

	var req SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entity, err := h.hajari.RequestSettlement(c.Request.Context(), req.LaborID, req.ProjectID, req.Date, req.Amount, actor, req.RequestMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entity))
}
