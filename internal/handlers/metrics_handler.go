package handlers

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

type MetricsHandler struct {
	Books    *queries.Books
	AuditCol *mongo.Collection
	Logger   *zap.Logger
	Timeout  time.Duration
}

// GET /admin/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r, h.Timeout)
	defer cancel()

	metrics, err := h.Books.Metrics(ctx)
	if err != nil {
		writeError(w, h.Logger, "Failed to compute metrics", err)
		return
	}

	if h.AuditCol != nil {
		metrics.AuditEntries, err = h.AuditCol.CountDocuments(ctx, bson.M{})
		if err != nil {
			writeError(w, h.Logger, "Failed to count audit logs", err)
			return
		}
	}

	utils.JSON(w, http.StatusOK, metrics)
}
