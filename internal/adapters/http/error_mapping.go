package httpadapter

import (
	"net/http"

	"github.com/greentravel/invoice-agent/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrConnection), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrProtocol), domain.IsKind(err, domain.ErrLoopLimit):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
