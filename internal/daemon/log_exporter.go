package daemon

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"plp-bookstore/internal/models"
	"plp-bookstore/internal/utils"
)

type LogExporter struct {
	Coll     *mongo.Collection
	Exporter *utils.Exporter
	Interval time.Duration
	Logger   *zap.Logger
	// BatchSize caps the records read per pass. Zero means no cap.
	BatchSize int64
}

// ExportOnce archives every unexported audit record and marks them
// exported. It returns the archive path, or "" when there was nothing to do.
func (l *LogExporter) ExportOnce(ctx context.Context) (string, int, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	if l.BatchSize > 0 {
		opts.SetLimit(l.BatchSize)
	}
	res, err := l.Coll.Find(ctx, bson.M{"exported": false}, opts)
	if err != nil {
		return "", 0, fmt.Errorf("find unexported logs: %w", err)
	}

	var logs []models.AuditLog
	if err := res.All(ctx, &logs); err != nil {
		return "", 0, fmt.Errorf("decode audit logs: %w", err)
	}
	if len(logs) == 0 {
		return "", 0, nil
	}

	path, err := l.Exporter.ExportData(logs)
	if err != nil {
		return "", 0, err
	}

	updateIds := make([]primitive.ObjectID, 0, len(logs))
	for i := 0; i < len(logs); i++ {
		updateIds = append(updateIds, logs[i].ID)
	}

	_, err = l.Coll.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": updateIds}}, bson.M{"$set": bson.M{"exported": true}})
	if err != nil {
		return path, len(logs), fmt.Errorf("mark %d logs exported: %w", len(logs), err)
	}
	return path, len(logs), nil
}

// Run exports on every tick until ctx is cancelled. Failed passes are
// logged and retried on the next tick.
func (l *LogExporter) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := l.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			path, n, err := l.ExportOnce(ctx)
			if err != nil {
				logger.Error("audit export failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("audit logs exported", zap.Int("count", n), zap.String("file", path))
			}
		}
	}
}
