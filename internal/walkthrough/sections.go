package walkthrough

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"plp-bookstore/internal/constants"
	"plp-bookstore/internal/models"
	"plp-bookstore/internal/queries"
)

// IndexName is printed as "index <name>".
type IndexName string

// Section is one step of the walkthrough.
type Section struct {
	Key     string
	Heading string
	// Optional sections only run when asked for explicitly.
	Optional bool
	// Entity and Action are set for sections that change the database and
	// are recorded in the audit log.
	Entity string
	Action string
	Params bson.M
	Run    func(ctx context.Context, books *queries.Books) (any, error)
}

// Refactoring is the example book of the optional insert section.
var Refactoring = models.Book{
	Title:         "Refactoring",
	Author:        "Martin Fowler",
	Genre:         "Programming",
	PublishedYear: 1999,
	Price:         31.5,
	InStock:       true,
	Pages:         448,
	Publisher:     "Addison-Wesley",
}

// Sections returns the walkthrough in execution order. page and pageSize
// drive the pagination section.
func Sections(page, pageSize int) []Section {
	skip := (page - 1) * pageSize

	return []Section{
		// basic CRUD
		{
			Key:      "insert-refactoring",
			Heading:  "Insert: one more book (Refactoring)",
			Optional: true,
			Entity:   models.BookEntity,
			Action:   constants.Create,
			Params:   bson.M{"title": Refactoring.Title},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.Insert(ctx, Refactoring)
			},
		},
		{
			Key:     "find-genre",
			Heading: "Find: books in Science Fiction",
			Params:  bson.M{"genre": "Science Fiction"},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindByGenre(ctx, "Science Fiction")
			},
		},
		{
			Key:     "find-after-2015",
			Heading: "Find: books published after 2015",
			Params:  bson.M{"published_after": 2015},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindPublishedAfter(ctx, 2015)
			},
		},
		{
			Key:     "find-author",
			Heading: "Find: books by James Clear",
			Params:  bson.M{"author": "James Clear"},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindByAuthor(ctx, "James Clear")
			},
		},
		{
			Key:     "update-price",
			Heading: "Update: set price of Dune to 17.99",
			Entity:  models.BookEntity,
			Action:  constants.Update,
			Params:  bson.M{"title": "Dune", "price": 17.99},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.UpdatePrice(ctx, "Dune", 17.99)
			},
		},
		{
			Key:     "delete-title",
			Heading: "Delete: book with title Deep Work",
			Entity:  models.BookEntity,
			Action:  constants.Delete,
			Params:  bson.M{"title": "Deep Work"},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.DeleteByTitle(ctx, "Deep Work")
			},
		},

		// user examples
		{
			Key:     "examples-all",
			Heading: "Examples: Find all books",
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindAll(ctx)
			},
		},
		{
			Key:     "examples-orwell",
			Heading: "Examples: Find books by author George Orwell",
			Params:  bson.M{"author": "George Orwell"},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindByAuthor(ctx, "George Orwell")
			},
		},
		{
			Key:     "examples-after-1950",
			Heading: "Examples: Find books published after 1950",
			Params:  bson.M{"published_after": 1950},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindPublishedAfter(ctx, 1950)
			},
		},
		{
			Key:     "examples-fiction",
			Heading: "Examples: Find books in genre Fiction",
			Params:  bson.M{"genre": "Fiction"},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindByGenre(ctx, "Fiction")
			},
		},
		{
			Key:     "examples-in-stock",
			Heading: "Examples: Find in-stock books",
			Params:  bson.M{"in_stock": true},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindInStock(ctx)
			},
		},

		// advanced queries
		{
			Key:     "advanced-in-stock-after-2010",
			Heading: "Advanced: in stock and published after 2010",
			Params:  bson.M{"in_stock": true, "published_after": 2010},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.FindInStockPublishedAfter(ctx, 2010)
			},
		},
		{
			Key:     "projection",
			Heading: "Projection: title, author, price only",
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.ListSummaries(ctx)
			},
		},
		{
			Key:     "sort-price-asc",
			Heading: "Sort: price ascending",
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.SortByPrice(ctx, queries.Ascending)
			},
		},
		{
			Key:     "sort-price-desc",
			Heading: "Sort: price descending",
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.SortByPrice(ctx, queries.Descending)
			},
		},
		{
			Key:     "pagination",
			Heading: fmt.Sprintf("Pagination: page %d (limit %d, skip %d)", page, pageSize, skip),
			Params:  bson.M{"page": page, "page_size": pageSize},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.Paginate(ctx, page, pageSize)
			},
		},

		// aggregation
		{
			Key:     "agg-genre-price",
			Heading: "Aggregation: average price by genre",
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.AveragePriceByGenre(ctx)
			},
		},
		{
			Key:     "agg-top-author",
			Heading: "Aggregation: author with most books",
			// An empty collection prints no documents and the run goes on.
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				top, err := b.TopAuthor(ctx)
				if errors.Is(err, queries.ErrNoBooks) {
					return []models.AuthorBookCount{}, nil
				}
				return top, err
			},
		},
		{
			Key:     "agg-decade",
			Heading: "Aggregation: books by decade",
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.CountByDecade(ctx)
			},
		},

		// indexing
		{
			Key:     "index-title",
			Heading: "Index: create on title",
			Entity:  models.IndexEntity,
			Action:  constants.CreateIndex,
			Params:  bson.M{"name": queries.TitleIndexName},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				name, err := b.CreateTitleIndex(ctx)
				return IndexName(name), err
			},
		},
		{
			Key:     "index-author-year",
			Heading: "Index: create compound on author + published_year",
			Entity:  models.IndexEntity,
			Action:  constants.CreateIndex,
			Params:  bson.M{"name": queries.AuthorYearIndexName},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				name, err := b.CreateAuthorYearIndex(ctx)
				return IndexName(name), err
			},
		},
		{
			Key:     "explain-title",
			Heading: "Explain: find by title",
			Params:  bson.M{"title": "Dune"},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.ExplainTitle(ctx, "Dune")
			},
		},
		{
			Key:     "explain-author-year",
			Heading: "Explain: find by author/year",
			Params:  bson.M{"author": "Andy Weir", "published_from": 2000},
			Run: func(ctx context.Context, b *queries.Books) (any, error) {
				return b.ExplainAuthorSince(ctx, "Andy Weir", 2000)
			},
		},
	}
}
