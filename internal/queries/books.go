package queries

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plp-bookstore/internal/models"
)

var (
	ErrNotFound = errors.New("book not found")
	ErrNoBooks  = errors.New("collection has no books")
)

// Books runs the bookstore queries against one collection.
type Books struct {
	Collection *mongo.Collection
}

func NewBooks(coll *mongo.Collection) *Books {
	return &Books{Collection: coll}
}

func ptr[T any](v T) *T { return &v }

func (b *Books) findOptions(q BookQuery) (*options.FindOptions, error) {
	opts := options.Find()
	if proj := q.Projection(); proj != nil {
		opts.SetProjection(proj)
	}
	sort, err := q.SortSpec()
	if err != nil {
		return nil, err
	}
	if sort != nil {
		opts.SetSort(sort)
	}
	if q.Page != 0 || q.PageSize != 0 {
		skip, err := Skip(q.Page, q.PageSize)
		if err != nil {
			return nil, err
		}
		opts.SetSkip(skip).SetLimit(int64(q.PageSize))
	}
	return opts, nil
}

func find[T any](ctx context.Context, b *Books, q BookQuery) ([]T, error) {
	opts, err := b.findOptions(q)
	if err != nil {
		return nil, err
	}
	cursor, err := b.Collection.Find(ctx, q.Filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer cursor.Close(ctx)

	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return results, nil
}

func aggregate[T any](ctx context.Context, b *Books, pipeline mongo.Pipeline) ([]T, error) {
	cursor, err := b.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate books: %w", err)
	}
	defer cursor.Close(ctx)

	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode aggregation: %w", err)
	}
	return results, nil
}

// Find returns full book documents matching q.
func (b *Books) Find(ctx context.Context, q BookQuery) ([]models.Book, error) {
	return find[models.Book](ctx, b, q)
}

// FindSummaries is Find for projected queries.
func (b *Books) FindSummaries(ctx context.Context, q BookQuery) ([]models.BookSummary, error) {
	return find[models.BookSummary](ctx, b, q)
}

// FindDocuments is Find for arbitrary projections. Rows keep every field the
// projection returned.
func (b *Books) FindDocuments(ctx context.Context, q BookQuery) ([]bson.M, error) {
	return find[bson.M](ctx, b, q)
}

func (b *Books) FindAll(ctx context.Context) ([]models.Book, error) {
	return b.Find(ctx, BookQuery{})
}

func (b *Books) FindByGenre(ctx context.Context, genre string) ([]models.Book, error) {
	return b.Find(ctx, BookQuery{Genre: genre})
}

func (b *Books) FindByAuthor(ctx context.Context, author string) ([]models.Book, error) {
	return b.Find(ctx, BookQuery{Author: author})
}

func (b *Books) FindPublishedAfter(ctx context.Context, year int) ([]models.Book, error) {
	return b.Find(ctx, BookQuery{PublishedAfter: &year})
}

func (b *Books) FindInStock(ctx context.Context) ([]models.Book, error) {
	return b.Find(ctx, BookQuery{InStock: ptr(true)})
}

func (b *Books) FindInStockPublishedAfter(ctx context.Context, year int) ([]models.Book, error) {
	return b.Find(ctx, BookQuery{InStock: ptr(true), PublishedAfter: &year})
}

func (b *Books) FindByTitle(ctx context.Context, title string) (models.Book, error) {
	var book models.Book
	err := b.Collection.FindOne(ctx, bson.D{{Key: "title", Value: title}}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Book{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("find book %q: %w", title, err)
	}
	return book, nil
}

// ListSummaries projects every book to title, author and price.
func (b *Books) ListSummaries(ctx context.Context) ([]models.BookSummary, error) {
	return b.FindSummaries(ctx, BookQuery{Fields: []string{"title", "author", "price"}})
}

func (b *Books) SortByPrice(ctx context.Context, dir SortDirection) ([]models.BookSummary, error) {
	sort := "price"
	if dir == Descending {
		sort = "-price"
	}
	return b.FindSummaries(ctx, BookQuery{Fields: []string{"title", "price"}, Sort: sort})
}

// Paginate returns one page of title, author and price rows ordered by title.
func (b *Books) Paginate(ctx context.Context, page, pageSize int) ([]models.BookSummary, error) {
	return b.FindSummaries(ctx, BookQuery{
		Fields:   []string{"title", "author", "price"},
		Sort:     "title",
		Page:     page,
		PageSize: pageSize,
	})
}

func (b *Books) UpdatePrice(ctx context.Context, title string, price float64) (*mongo.UpdateResult, error) {
	res, err := b.Collection.UpdateOne(ctx,
		bson.D{{Key: "title", Value: title}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "price", Value: price}}}},
	)
	if err != nil {
		return nil, fmt.Errorf("update price of %q: %w", title, err)
	}
	return res, nil
}

func (b *Books) DeleteByTitle(ctx context.Context, title string) (*mongo.DeleteResult, error) {
	res, err := b.Collection.DeleteOne(ctx, bson.D{{Key: "title", Value: title}})
	if err != nil {
		return nil, fmt.Errorf("delete %q: %w", title, err)
	}
	return res, nil
}

func (b *Books) Insert(ctx context.Context, book models.Book) (primitive.ObjectID, error) {
	if err := book.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	res, err := b.Collection.InsertOne(ctx, book)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert %q: %w", book.Title, err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

// InsertMany validates every book before writing any of them.
func (b *Books) InsertMany(ctx context.Context, books []models.Book) (int, error) {
	if len(books) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(books))
	for _, book := range books {
		if err := book.Validate(); err != nil {
			return 0, err
		}
		docs = append(docs, book)
	}
	res, err := b.Collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert %d books: %w", len(books), err)
	}
	return len(res.InsertedIDs), nil
}

func (b *Books) Drop(ctx context.Context) error {
	if err := b.Collection.Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", b.Collection.Name(), err)
	}
	return nil
}

func (b *Books) Count(ctx context.Context, filter bson.D) (int64, error) {
	if filter == nil {
		filter = bson.D{}
	}
	n, err := b.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (b *Books) AveragePriceByGenre(ctx context.Context) ([]models.GenrePriceStat, error) {
	return aggregate[models.GenrePriceStat](ctx, b, AveragePriceByGenrePipeline())
}

// TopAuthor returns the author with the most books. Ties go to whichever
// author the server sorts first.
func (b *Books) TopAuthor(ctx context.Context) (models.AuthorBookCount, error) {
	rows, err := aggregate[models.AuthorBookCount](ctx, b, TopAuthorPipeline())
	if err != nil {
		return models.AuthorBookCount{}, err
	}
	if len(rows) == 0 {
		return models.AuthorBookCount{}, ErrNoBooks
	}
	return rows[0], nil
}

func (b *Books) CountByDecade(ctx context.Context) ([]models.DecadeCount, error) {
	return aggregate[models.DecadeCount](ctx, b, DecadePipeline())
}

func (b *Books) CountGenres(ctx context.Context) (int, error) {
	rows, err := aggregate[struct {
		Genres int `bson:"genres"`
	}](ctx, b, GenreCountPipeline())
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Genres, nil
}

// Metrics summarises stock levels of the collection.
func (b *Books) Metrics(ctx context.Context) (models.Metrics, error) {
	var m models.Metrics
	var err error
	if m.TotalBooks, err = b.Count(ctx, nil); err != nil {
		return m, err
	}
	if m.InStock, err = b.Count(ctx, bson.D{{Key: "in_stock", Value: true}}); err != nil {
		return m, err
	}
	m.OutOfStock = m.TotalBooks - m.InStock
	if m.Genres, err = b.CountGenres(ctx); err != nil {
		return m, err
	}
	return m, nil
}
