package handlers

import (
	"context"
	"courier-dispatch-service/internal/api/dto"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
}

// writeDomainError maps err onto an HTTP status and a tagged reason.
func writeDomainError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"

	switch {
	case errors.Is(err, domain.ErrAddressNotFound), errors.Is(err, domain.ErrMalformedResponse):
		status, msg = http.StatusUnprocessableEntity, "could not locate address"
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidWeight),
		errors.Is(err, domain.ErrMissingCoordinates),
		errors.Is(err, domain.ErrNoCourierSelected),
		errors.Is(err, domain.ErrQuoteNotReady):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrSessionBusy), errors.Is(err, domain.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrNetwork):
		status, msg = http.StatusBadGateway, "upstream service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "upstream timeout"
	}

	entry := obs.FromContext(c.Request.Context()).WithError(err)
	if status >= 500 {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg, Reason: domain.FailureReason(err)})
}

// bindJSON binds the request body into v and answers 400 when the body is
// malformed or fails its binding tags.
func bindJSON(c *gin.Context, v any) bool {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		cause := domain.ErrInvalidInput
		if fe.Field() == "weightKg" {
			cause = domain.ErrInvalidWeight
		}
		writeDomainError(c, fmt.Errorf("%s failed %q check: %w", fe.Field(), fe.Tag(), cause))
		return false
	}

	obs.FromContext(c.Request.Context()).WithError(err).Debug("invalid request body")
	writeError(c, http.StatusBadRequest, "invalid json body")
	return false
}
