package handlers

import (
	"courier-dispatch-service/internal/api/dto"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackingHandler exposes live tracking of in-progress orders.
type TrackingHandler struct {
	Registry *services.TrackingRegistry
}

func (h *TrackingHandler) Start(c *gin.Context) {
	d, err := h.Registry.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Tracking(d))
}

func (h *TrackingHandler) Get(c *gin.Context) {
	d, err := h.Registry.Snapshot(c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Tracking(d))
}

func (h *TrackingHandler) Stop(c *gin.Context) {
	if err := h.Registry.Stop(c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus applies a status pushed by the order backend.
func (h *TrackingHandler) UpdateStatus(c *gin.Context) {
	var req dto.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	d, err := h.Registry.UpdateStatus(c.Param("id"), status)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Tracking(d))
}
