package httpserver

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/domain"
	apperrors "github.com/lekesiz/HECS/internal/platform/errors"
)

// mapDomainError translates domain sentinels into structured HTTP errors.
// Anything unrecognized becomes a 500 with the cause kept server-side.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return apperrors.NotFoundError("task not found")
	case errors.Is(err, domain.ErrDeviceNotFound):
		return apperrors.NotFoundError("device not found")
	case errors.Is(err, domain.ErrCustomerNotFound):
		return apperrors.NotFoundError("customer not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("user not found")
	case errors.Is(err, domain.ErrRetryLimitExceeded):
		return apperrors.ConflictError("retry limit exceeded")
	case errors.Is(err, domain.ErrDuplicateDevice):
		return apperrors.ConflictError("device_id already registered")
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apperrors.ConflictError("email already in use")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.UnauthorizedError("invalid username or password")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidStatus):
		return apperrors.ValidationError(err.Error())
	default:
		return apperrors.InternalError("request failed", err)
	}
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid id")
	}
	return id, nil
}

func parsePagination(c echo.Context) (offset, limit int) {
	limit = 100
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return offset, limit
}
