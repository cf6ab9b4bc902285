package httpadapter

import (
	"errors"
	"net/http"

	"github.com/medassist/chat-backend/internal/core/domain"
)

var (
	errAttachmentTooLarge = errors.New("attachment exceeds size limit")
	errUnsupportedImage   = errors.New("unsupported image type")
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
