// errors стандартизирует ответы об ошибках HTTP-слоя accounts-сервиса.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - HTTP-статус по категории ошибки (service.Err*);
//   - короткий стабильный code и безопасное message без деталей хранилищ.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
)

// StatusClientClosedRequest — нестандартный код для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Ошибки транспортного слоя.
var (
	// ErrMalformedBody — тело запроса не разбирается.
	ErrMalformedBody = fmt.Errorf("%w: malformed request body", service.ErrValidation)
	// ErrInvalidID — идентификатор в пути не является UUID.
	ErrInvalidID = fmt.Errorf("%w: invalid id", service.ErrValidation)
	// ErrTooManyRequests — превышен лимит частоты запросов.
	ErrTooManyRequests = errors.New("too many requests")
)

// APIError — единый формат ошибки для клиента.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект ответа.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Таблица:
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504;
//   - ErrValidation -> 400, ErrUnauthorized -> 401, ErrNotFound -> 404,
//     ErrConflict -> 409, ErrTooManyRequests -> 429;
//   - ErrMediaUploadFailed -> 502;
//   - ErrPersistence, nil и всё прочее -> 500/internal.
//
// Для 4xx message берётся из конкретной ошибки (например, "token expired").
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

func classify(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, service.ErrPersistence):
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error", detail(err, service.ErrValidation)
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", detail(err, service.ErrUnauthorized)
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", detail(err, service.ErrNotFound)
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict", detail(err, service.ErrConflict)
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "too_many_requests", "too many requests"
	case errors.Is(err, service.ErrMediaUploadFailed):
		return http.StatusBadGateway, "media_upload_failed", "media upload failed"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// detail возвращает текст после категории: "op: unauthorized: token expired" -> "token expired".
func detail(err, category error) string {
	msg := err.Error()
	prefix := category.Error() + ": "

	if i := strings.LastIndex(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}

	return category.Error()
}

// WriteError пишет статус и тело ошибки, добавляя request_id из заголовка.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
