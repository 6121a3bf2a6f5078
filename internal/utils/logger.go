package utils

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"plp-bookstore/internal/models"
)

// Logger writes audit records to a collection.
type Logger struct {
	Collection  *mongo.Collection
	PerformedBy string
}

func (l *Logger) Log(ctx context.Context, entity, action string, data any) error {
	log := models.AuditLog{
		Timestamp:   time.Now(),
		Entity:      entity,
		Action:      action,
		PerformedBy: l.PerformedBy,
		Data:        data,
	}
	_, err := l.Collection.InsertOne(ctx, log)
	return err
}

// As returns a copy of l that records performedBy as the actor.
func (l *Logger) As(performedBy string) *Logger {
	return &Logger{Collection: l.Collection, PerformedBy: performedBy}
}
