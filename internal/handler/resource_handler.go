package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-sync-api/internal/models"
	"github.com/noah-isme/classroom-sync-api/internal/service"
	"github.com/noah-isme/classroom-sync-api/pkg/response"
)

type resourceService interface {
	VisibleIn(ctx context.Context, classID string) ([]models.Resource, error)
	Create(ctx context.Context, ownerID string, req service.CreateResourceRequest) (*models.Resource, error)
}

type calendarService interface {
	ListForClass(ctx context.Context, classID string) ([]models.CalendarEvent, error)
}

// ResourceHandler exposes shared resources and class calendar events.
type ResourceHandler struct {
	resources resourceService
	calendar  calendarService
}

// NewResourceHandler constructs a resource handler.
func NewResourceHandler(resources resourceService, calendar calendarService) *ResourceHandler {
	return &ResourceHandler{resources: resources, calendar: calendar}
}

// ListForClass godoc
// @Summary Resources visible inside a class
// @Tags Resources
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/resources [get]
func (h *ResourceHandler) ListForClass(c *gin.Context) {
	resources, err := h.resources.VisibleIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources)
}

// Create godoc
// @Summary Create a shared resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "Owner ID"
// @Param payload body service.CreateResourceRequest true "Resource"
// @Success 201 {object} response.Envelope
// @Router /resources [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	var req service.CreateResourceRequest
	if !bindJSON(c, &req) {
		return
	}
	resource, err := h.resources.Create(c.Request.Context(), ownerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resource)
}

// Events godoc
// @Summary Calendar events linked to a class
// @Tags Resources
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/events [get]
func (h *ResourceHandler) Events(c *gin.Context) {
	events, err := h.calendar.ListForClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}
