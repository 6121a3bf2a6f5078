package queries

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrInvalidPage = errors.New("page and page size must be at least 1")
	ErrInvalidSort = errors.New("invalid sort field")
)

// Index names created by the walkthrough.
const (
	TitleIndexName      = "idx_title_asc"
	AuthorYearIndexName = "idx_author_year"
)

type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

func (d SortDirection) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

var sortableFields = map[string]bool{
	"title":          true,
	"author":         true,
	"genre":          true,
	"price":          true,
	"published_year": true,
	"pages":          true,
}

// BookQuery describes a find over the books collection. Nil and empty
// fields add no condition.
type BookQuery struct {
	Genre          string
	Author         string
	Title          string
	PublishedAfter *int
	PublishedFrom  *int
	InStock        *bool

	// Fields limits the returned fields and drops _id.
	Fields []string
	// Sort is a field name, prefixed with '-' for descending order.
	Sort string

	Page     int
	PageSize int
}

func (q BookQuery) Filter() bson.D {
	filter := bson.D{}
	if q.Genre != "" {
		filter = append(filter, bson.E{Key: "genre", Value: q.Genre})
	}
	if q.Author != "" {
		filter = append(filter, bson.E{Key: "author", Value: q.Author})
	}
	if q.Title != "" {
		filter = append(filter, bson.E{Key: "title", Value: q.Title})
	}
	if q.InStock != nil {
		filter = append(filter, bson.E{Key: "in_stock", Value: *q.InStock})
	}

	year := bson.D{}
	if q.PublishedAfter != nil {
		year = append(year, bson.E{Key: "$gt", Value: *q.PublishedAfter})
	}
	if q.PublishedFrom != nil {
		year = append(year, bson.E{Key: "$gte", Value: *q.PublishedFrom})
	}
	if len(year) > 0 {
		filter = append(filter, bson.E{Key: "published_year", Value: year})
	}
	return filter
}

func (q BookQuery) Projection() bson.D {
	if len(q.Fields) == 0 {
		return nil
	}
	proj := bson.D{{Key: "_id", Value: 0}}
	for _, f := range lo.Uniq(q.Fields) {
		if f == "_id" {
			continue
		}
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj
}

func (q BookQuery) SortSpec() (bson.D, error) {
	if q.Sort == "" {
		return nil, nil
	}
	field, dir := q.Sort, Ascending
	if strings.HasPrefix(field, "-") {
		field, dir = field[1:], Descending
	}
	if !sortableFields[field] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, q.Sort)
	}
	return bson.D{{Key: field, Value: int(dir)}}, nil
}

// Skip returns the number of documents before the requested page.
func Skip(page, pageSize int) (int64, error) {
	if page < 1 || pageSize < 1 {
		return 0, fmt.Errorf("%w: page %d, size %d", ErrInvalidPage, page, pageSize)
	}
	return int64(page-1) * int64(pageSize), nil
}

// ParseFields splits a comma separated field list, dropping blanks.
func ParseFields(s string) []string {
	fields := lo.Map(strings.Split(s, ","), func(f string, _ int) string {
		return strings.TrimSpace(f)
	})
	return lo.Compact(fields)
}

func AveragePriceByGenrePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$genre"},
			{Key: "averagePrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "averagePrice", Value: -1}}}},
	}
}

func TopAuthorPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$author"},
			{Key: "totalBooks", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalBooks", Value: -1}}}},
		{{Key: "$limit", Value: 1}},
	}
}

// DecadePipeline labels each book with floor(published_year/10)*10 followed
// by "s" and counts books per label.
func DecadePipeline() mongo.Pipeline {
	decade := bson.D{{Key: "$multiply", Value: bson.A{
		bson.D{{Key: "$floor", Value: bson.D{{Key: "$divide", Value: bson.A{"$published_year", 10}}}}},
		10,
	}}}
	label := bson.D{{Key: "$concat", Value: bson.A{
		bson.D{{Key: "$toString", Value: decade}},
		"s",
	}}}

	return mongo.Pipeline{
		{{Key: "$project", Value: bson.D{{Key: "decade", Value: label}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$decade"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// GenreCountPipeline counts distinct genres.
func GenreCountPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$genre"}}}},
		{{Key: "$count", Value: "genres"}},
	}
}

func ExplainCommand(collName string, filter bson.D) bson.D {
	if filter == nil {
		filter = bson.D{}
	}
	return bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: collName},
			{Key: "filter", Value: filter},
		}},
		{Key: "verbosity", Value: "executionStats"},
	}
}
