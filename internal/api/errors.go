package api

import (
	"errors"
	"net/http"

	"github.com/aura-network/aura/internal/domain"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrUserRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrItemNotOwned),
		errors.Is(err, domain.ErrItemAlreadyOwned),
		errors.Is(err, domain.ErrStreakIntact),
		errors.Is(err, domain.ErrTaskCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
