package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"plp-bookstore/internal/constants"
	"plp-bookstore/internal/middleware"
	"plp-bookstore/internal/models"
	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

type BookHandler struct {
	Books       *queries.Books
	AuditLogger Auditor
	Logger      *zap.Logger
	Timeout     time.Duration
}

func NewBookHandler(books *queries.Books, audit Auditor, logger *zap.Logger, timeout time.Duration) *BookHandler {
	return &BookHandler{
		Books:       books,
		AuditLogger: audit,
		Logger:      logger,
		Timeout:     timeout,
	}
}

func (h *BookHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	return requestContext(r, h.Timeout)
}

func (h *BookHandler) audit(ctx context.Context, r *http.Request, entity, action string, data bson.M) {
	if h.AuditLogger == nil {
		return
	}
	data["user_id"] = middleware.UserID(r.Context())
	if err := h.AuditLogger.Log(ctx, entity, action, data); err != nil {
		logger(h.Logger).Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseInt(v url.Values, key string) (*int, error) {
	raw := v.Get(key)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &n, nil
}

// parseBookQuery maps query parameters onto a BookQuery.
func parseBookQuery(v url.Values) (queries.BookQuery, error) {
	q := queries.BookQuery{
		Genre:  v.Get("genre"),
		Author: v.Get("author"),
		Title:  v.Get("title"),
		Sort:   v.Get("sort"),
		Fields: queries.ParseFields(v.Get("fields")),
	}

	var err error
	if q.PublishedAfter, err = parseInt(v, "published_after"); err != nil {
		return q, err
	}
	if q.PublishedFrom, err = parseInt(v, "published_from"); err != nil {
		return q, err
	}
	if raw := v.Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("invalid in_stock: %q", raw)
		}
		q.InStock = &inStock
	}

	page, err := parseInt(v, "page")
	if err != nil {
		return q, err
	}
	size, err := parseInt(v, "page_size")
	if err != nil {
		return q, err
	}
	if page != nil || size != nil {
		q.Page, q.PageSize = 1, 5
		if page != nil {
			q.Page = *page
		}
		if size != nil {
			q.PageSize = *size
		}
	}
	return q, nil
}

// GET /books
func (h *BookHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	q, err := parseBookQuery(r.URL.Query())
	if err != nil {
		utils.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	var (
		result any
		count  int
	)
	if len(q.Fields) > 0 {
		rows, err := h.Books.FindDocuments(ctx, q)
		if err != nil {
			writeError(w, h.Logger, "Failed to fetch books", err)
			return
		}
		result, count = rows, len(rows)
	} else {
		books, err := h.Books.Find(ctx, q)
		if err != nil {
			writeError(w, h.Logger, "Failed to fetch books", err)
			return
		}
		result, count = books, len(books)
	}

	if count == 0 {
		utils.JSONError(w, "No books found", http.StatusNotFound)
		return
	}

	utils.JSON(w, http.StatusOK, result)
}

// GET /books/{title}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	ctx, cancel := h.context(r)
	defer cancel()

	book, err := h.Books.FindByTitle(ctx, title)
	if err != nil {
		writeError(w, h.Logger, "Failed to fetch book", err)
		return
	}

	utils.JSON(w, http.StatusOK, book)
}

// POST /books
func (h *BookHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	id, err := h.Books.Insert(ctx, book)
	if err != nil {
		writeError(w, h.Logger, "Insert failed", err)
		return
	}
	book.ID = id

	h.audit(ctx, r, models.BookEntity, constants.Create, bson.M{"title": book.Title, "id": id.Hex()})

	utils.JSON(w, http.StatusCreated, book)
}

type PriceUpdate struct {
	Price *float64 `json:"price"`
}

// PUT /books/{title}/price
func (h *BookHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	var req PriceUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Price == nil || *req.Price < 0 {
		utils.JSONError(w, "price must be a non-negative number", http.StatusBadRequest)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	result, err := h.Books.UpdatePrice(ctx, title, *req.Price)
	if err != nil {
		writeError(w, h.Logger, "Update failed", err)
		return
	}
	if result.MatchedCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	h.audit(ctx, r, models.BookEntity, constants.Update, bson.M{"title": title, "price": *req.Price})

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Price updated successfully",
		"modifiedCount": result.ModifiedCount,
	})
}

// DELETE /books/{title}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	ctx, cancel := h.context(r)
	defer cancel()

	result, err := h.Books.DeleteByTitle(ctx, title)
	if err != nil {
		writeError(w, h.Logger, "Delete failed", err)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "Book not found", http.StatusNotFound)
		return
	}

	h.audit(ctx, r, models.BookEntity, constants.Delete, bson.M{"title": title})

	w.WriteHeader(http.StatusNoContent)
}

// GET /books/stats/genres
func (h *BookHandler) GenreStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	stats, err := h.Books.AveragePriceByGenre(ctx)
	if err != nil {
		writeError(w, h.Logger, "Aggregation failed", err)
		return
	}
	utils.JSON(w, http.StatusOK, stats)
}

// GET /books/stats/top-author
func (h *BookHandler) TopAuthor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	top, err := h.Books.TopAuthor(ctx)
	if err != nil {
		writeError(w, h.Logger, "Aggregation failed", err)
		return
	}
	utils.JSON(w, http.StatusOK, top)
}

// GET /books/stats/decades
func (h *BookHandler) DecadeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	decades, err := h.Books.CountByDecade(ctx)
	if err != nil {
		writeError(w, h.Logger, "Aggregation failed", err)
		return
	}
	utils.JSON(w, http.StatusOK, decades)
}

// GET /books/explain
func (h *BookHandler) Explain(w http.ResponseWriter, r *http.Request) {
	q, err := parseBookQuery(r.URL.Query())
	if err != nil {
		utils.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	summary, err := h.Books.Explain(ctx, q.Filter())
	if err != nil {
		writeError(w, h.Logger, "Explain failed", err)
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

// POST /admin/indexes
func (h *BookHandler) CreateIndexes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	var names []string
	for _, create := range []func(context.Context) (string, error){
		h.Books.CreateTitleIndex,
		h.Books.CreateAuthorYearIndex,
	} {
		name, err := create(ctx)
		if err != nil {
			writeError(w, h.Logger, "Index creation failed", err)
			return
		}
		names = append(names, name)
		h.audit(ctx, r, models.IndexEntity, constants.CreateIndex, bson.M{"name": name})
	}

	utils.JSON(w, http.StatusCreated, map[string][]string{"indexes": names})
}

// GET /admin/indexes
func (h *BookHandler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	names, err := h.Books.ListIndexes(ctx)
	if err != nil {
		writeError(w, h.Logger, "Failed to list indexes", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string][]string{"indexes": names})
}
