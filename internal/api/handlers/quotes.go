package handlers

import (
	"courier-dispatch-service/internal/api/dto"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/services"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// QuoteHandler runs a fresh quote session per request.
type QuoteHandler struct {
	NewSession func() (*services.QuoteSession, error)
}

// fill copies the request into the session's inputs. Category is applied
// before weight so an explicit weight overrides the category default.
func fill(s *services.QuoteSession, req dto.QuoteRequest) error {
	if err := s.SetPickupAddress(req.PickupAddress); err != nil {
		return err
	}
	if err := s.SetDeliveryAddress(req.DeliveryAddress); err != nil {
		return err
	}

	if strings.TrimSpace(req.Category) != "" {
		c, err := domain.ParseCategory(req.Category)
		if err != nil {
			return err
		}
		if err := s.SetCategory(c); err != nil {
			return err
		}
	}
	if req.WeightKg != nil {
		if err := s.SetWeight(*req.WeightKg); err != nil {
			return err
		}
	}
	if strings.TrimSpace(req.Urgency) != "" {
		u, err := domain.ParseUrgency(req.Urgency)
		if err != nil {
			return err
		}
		if err := s.SetUrgency(u); err != nil {
			return err
		}
	}
	return s.SetInsured(req.Insured)
}

func (h *QuoteHandler) quote(c *gin.Context, req dto.QuoteRequest) (*services.QuoteSession, bool) {
	s, err := h.NewSession()
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	if err := fill(s, req); err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	if _, err := s.RequestQuote(c.Request.Context()); err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	return s, true
}

// Quote resolves both addresses and prices the package.
func (h *QuoteHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}

	s, ok := h.quote(c, req)
	if !ok {
		return
	}

	snap := s.Snapshot()
	c.JSON(http.StatusOK, dto.QuoteResponse{
		Pickup:   dto.Address(snap.Pickup),
		Delivery: dto.Address(snap.Delivery),
		Package:  dto.Package(snap.Package),
		Quote:    dto.Quote(*snap.Quote),
	})
}

// CreateOrder quotes the request and submits it for the chosen courier.
func (h *QuoteHandler) CreateOrder(c *gin.Context) {
	var req dto.OrderRequest
	if !bindJSON(c, &req) {
		return
	}

	s, ok := h.quote(c, req.QuoteRequest)
	if !ok {
		return
	}
	quote := *s.Snapshot().Quote

	id, err := s.Submit(c.Request.Context(), req.CourierID)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OrderCreatedResponse{ID: id, Quote: dto.Quote(quote)})
}
