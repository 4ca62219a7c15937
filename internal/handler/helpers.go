package handler

import (
	"errors"
	"net/http"

	"sitekhata/internal/service"
	"sitekhata/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentActor rebuilds the acting user from the JWT claims the auth
// middleware parked on the context.
func currentActor(c *gin.Context) (service.Actor, bool) {
	rawID, ok := c.Get("userID")
	if !ok {
		return service.Actor{}, false
	}
	idStr, ok := rawID.(string)
	if !ok {
		return service.Actor{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Actor{}, false
	}
	role, _ := c.Get("userRole")
	roleStr, _ := role.(string)
	return service.Actor{ID: id, Role: roleStr}, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name+" parameter"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service sentinels to HTTP status codes. Internal failure
// detail never leaks to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrUnknownEntityType):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrVersionConflict), errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}
