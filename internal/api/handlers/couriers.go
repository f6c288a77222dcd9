package handlers

import (
	"courier-dispatch-service/internal/api/dto"
	"courier-dispatch-service/internal/ports"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CourierHandler struct {
	Couriers ports.CourierSource
}

func (h *CourierHandler) List(c *gin.Context) {
	couriers, err := h.Couriers.ListAvailableCouriers(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	res := dto.ListCouriersResponse{Couriers: make([]dto.CourierResponse, 0, len(couriers))}
	for _, cr := range couriers {
		res.Couriers = append(res.Couriers, dto.CourierResponse{
			ID:              cr.ID,
			FullName:        cr.FullName,
			Transport:       cr.Transport,
			Rating:          cr.Rating,
			DeliveriesCount: cr.DeliveriesCount,
		})
	}

	c.JSON(http.StatusOK, res)
}
