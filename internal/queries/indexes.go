package queries

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plp-bookstore/internal/models"
)

func TitleIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetName(TitleIndexName),
	}
}

func AuthorYearIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "author", Value: 1}, {Key: "published_year", Value: -1}},
		Options: options.Index().SetName(AuthorYearIndexName),
	}
}

func (b *Books) createIndex(ctx context.Context, model mongo.IndexModel) (string, error) {
	name, err := b.Collection.Indexes().CreateOne(ctx, model)
	if err != nil {
		return "", fmt.Errorf("create index on %s: %w", b.Collection.Name(), err)
	}
	return name, nil
}

func (b *Books) CreateTitleIndex(ctx context.Context) (string, error) {
	return b.createIndex(ctx, TitleIndex())
}

func (b *Books) CreateAuthorYearIndex(ctx context.Context) (string, error) {
	return b.createIndex(ctx, AuthorYearIndex())
}

func (b *Books) ListIndexes(ctx context.Context) ([]string, error) {
	cursor, err := b.Collection.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	defer cursor.Close(ctx)

	var specs []struct {
		Name string `bson:"name"`
	}
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, fmt.Errorf("decode indexes: %w", err)
	}
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names, nil
}

type planStage struct {
	Stage      string     `bson:"stage"`
	IndexName  string     `bson:"indexName"`
	InputStage *planStage `bson:"inputStage"`
	// servers using the slot based engine nest the plan one level deeper
	QueryPlan *planStage `bson:"queryPlan"`
}

type explainOutput struct {
	QueryPlanner struct {
		Namespace   string    `bson:"namespace"`
		WinningPlan planStage `bson:"winningPlan"`
	} `bson:"queryPlanner"`
	ExecutionStats struct {
		NReturned           int64 `bson:"nReturned"`
		ExecutionTimeMillis int64 `bson:"executionTimeMillis"`
		TotalKeysExamined   int64 `bson:"totalKeysExamined"`
		TotalDocsExamined   int64 `bson:"totalDocsExamined"`
	} `bson:"executionStats"`
}

func summarizeExplain(out explainOutput) models.ExplainSummary {
	summary := models.ExplainSummary{
		Namespace:           out.QueryPlanner.Namespace,
		Stages:              []string{},
		NReturned:           out.ExecutionStats.NReturned,
		ExecutionTimeMillis: out.ExecutionStats.ExecutionTimeMillis,
		TotalKeysExamined:   out.ExecutionStats.TotalKeysExamined,
		TotalDocsExamined:   out.ExecutionStats.TotalDocsExamined,
	}

	stage := &out.QueryPlanner.WinningPlan
	if stage.Stage == "" && stage.QueryPlan != nil {
		stage = stage.QueryPlan
	}
	for ; stage != nil; stage = stage.InputStage {
		if stage.Stage == "" {
			continue
		}
		summary.Stages = append(summary.Stages, stage.Stage)
		if stage.IndexName != "" && summary.IndexName == "" {
			summary.IndexName = stage.IndexName
		}
	}
	return summary
}

// Explain runs filter through the explain command with executionStats
// verbosity and summarises the winning plan.
func (b *Books) Explain(ctx context.Context, filter bson.D) (models.ExplainSummary, error) {
	cmd := ExplainCommand(b.Collection.Name(), filter)

	var out explainOutput
	if err := b.Collection.Database().RunCommand(ctx, cmd).Decode(&out); err != nil {
		return models.ExplainSummary{}, fmt.Errorf("explain %v: %w", filter, err)
	}
	return summarizeExplain(out), nil
}

func (b *Books) ExplainTitle(ctx context.Context, title string) (models.ExplainSummary, error) {
	return b.Explain(ctx, BookQuery{Title: title}.Filter())
}

func (b *Books) ExplainAuthorSince(ctx context.Context, author string, year int) (models.ExplainSummary, error) {
	return b.Explain(ctx, BookQuery{Author: author, PublishedFrom: &year}.Filter())
}
