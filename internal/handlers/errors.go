package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"plp-bookstore/internal/models"
	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

// Auditor records changes made through the API.
type Auditor interface {
	Log(ctx context.Context, entity, action string, data any) error
}

const defaultTimeout = 5 * time.Second

// requestContext bounds the database calls of one request.
func requestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, queries.ErrInvalidPage),
		errors.Is(err, queries.ErrInvalidSort),
		errors.Is(err, models.ErrInvalidBook):
		return http.StatusBadRequest
	case errors.Is(err, queries.ErrNotFound), errors.Is(err, queries.ErrNoBooks):
		return http.StatusNotFound
	case mongo.IsDuplicateKeyError(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Server side failures are logged and
// their details kept out of the response.
func writeError(w http.ResponseWriter, l *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger(l).Error(msg, zap.Error(err))
		utils.JSONError(w, msg, status)
		return
	}
	utils.JSONError(w, err.Error(), status)
}
