package daemon_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"plp-bookstore/internal/daemon"
	"plp-bookstore/internal/utils"
)

const ns = "plp_bookstore.audit_logs"

func auditDoc(action string) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "timestamp", Value: primitive.NewDateTimeFromTime(time.Now())},
		{Key: "entity", Value: "book"},
		{Key: "action", Value: action},
		{Key: "performed_by", Value: "walkthrough"},
		{Key: "data", Value: bson.D{{Key: "title", Value: "Dune"}}},
		{Key: "exported", Value: false},
	}
}

func TestLogExporter_ExportOnce(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("exports and marks records", func(mt *mtest.T) {
		exp := &daemon.LogExporter{
			Coll:     mt.Coll,
			Exporter: &utils.Exporter{Dir: mt.TempDir()},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, auditDoc("UPDATE"), auditDoc("DELETE")),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
		)

		path, n, err := exp.ExportOnce(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)

		records, err := utils.ReadArchiveFile(path)
		require.NoError(mt, err)
		require.Len(mt, records, 2)
		assert.Equal(mt, "UPDATE", records[0].Action)
		assert.Equal(mt, "Dune", records[1].Payload().Document().Lookup("title").StringValue())
	})

	mt.Run("nothing to export", func(mt *mtest.T) {
		exp := &daemon.LogExporter{Coll: mt.Coll, Exporter: &utils.Exporter{Dir: mt.TempDir()}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		path, n, err := exp.ExportOnce(context.Background())
		require.NoError(mt, err)
		assert.Zero(mt, n)
		assert.Empty(mt, path)
	})

	mt.Run("mark failure is reported with the archive path", func(mt *mtest.T) {
		exp := &daemon.LogExporter{Coll: mt.Coll, Exporter: &utils.Exporter{Dir: mt.TempDir()}}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, auditDoc("UPDATE")),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}),
		)

		path, n, err := exp.ExportOnce(context.Background())
		assert.Error(mt, err)
		assert.NotEmpty(mt, path)
		assert.Equal(mt, 1, n)
	})
}

func TestLogExporter_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	exp := &daemon.LogExporter{
		Exporter: &utils.Exporter{Dir: t.TempDir()},
		Interval: time.Hour,
		Logger:   zaptest.NewLogger(t),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- exp.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("exporter did not stop")
	}
}
