package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap/zaptest"

	"plp-bookstore/internal/constants"
	"plp-bookstore/internal/handlers"
	"plp-bookstore/internal/middleware"
	"plp-bookstore/internal/models"
	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

const ns = "plp_bookstore.books"

type auditCall struct {
	entity, action string
	data           any
}

type fakeAuditor struct {
	calls []auditCall
}

func (f *fakeAuditor) Log(_ context.Context, entity, action string, data any) error {
	f.calls = append(f.calls, auditCall{entity, action, data})
	return nil
}

func cursor(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, docs...)
}

func bookDoc(title string, price float64) bson.D {
	return bson.D{
		{Key: "title", Value: title},
		{Key: "author", Value: "George Orwell"},
		{Key: "genre", Value: "Dystopian"},
		{Key: "published_year", Value: int32(1949)},
		{Key: "price", Value: price},
		{Key: "in_stock", Value: true},
	}
}

func newRouter(mt *mtest.T, audit handlers.Auditor) *mux.Router {
	h := handlers.NewBookHandler(queries.NewBooks(mt.Coll), audit, zaptest.NewLogger(mt), 0)
	metrics := &handlers.MetricsHandler{Books: h.Books, AuditCol: mt.Coll}

	r := mux.NewRouter()
	r.HandleFunc("/books", h.GetBooks).Methods("GET")
	r.HandleFunc("/books", h.AddBook).Methods("POST")
	r.HandleFunc("/books/stats/genres", h.GenreStats).Methods("GET")
	r.HandleFunc("/books/stats/top-author", h.TopAuthor).Methods("GET")
	r.HandleFunc("/books/stats/decades", h.DecadeStats).Methods("GET")
	r.HandleFunc("/books/explain", h.Explain).Methods("GET")
	r.HandleFunc("/books/{title}", h.GetBook).Methods("GET")
	r.HandleFunc("/books/{title}/price", h.UpdatePrice).Methods("PUT")
	r.HandleFunc("/books/{title}", h.DeleteBook).Methods("DELETE")
	r.HandleFunc("/admin/indexes", h.CreateIndexes).Methods("POST")
	r.HandleFunc("/admin/indexes", h.ListIndexes).Methods("GET")
	r.HandleFunc("/admin/metrics", metrics.GetMetrics).Methods("GET")
	return r
}

func serve(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookHandler_GetBooks(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("successful books retrieval", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(bookDoc("1984", 12.5), bookDoc("Animal Farm", 8.5)))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books?author=George+Orwell&sort=price", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var books []models.Book
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &books))
		require.Len(mt, books, 2)
		assert.Equal(mt, "Animal Farm", books[1].Title)
	})

	mt.Run("projected fields", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(bson.D{{Key: "title", Value: "1984"}, {Key: "price", Value: 12.5}}))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books?fields=title,price&page=1&page_size=5", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `[{"title":"1984","price":12.5}]`, w.Body.String())
	})

	mt.Run("projection keeps every requested field", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(bson.D{
			{Key: "title", Value: "1984"},
			{Key: "genre", Value: "Dystopian"},
			{Key: "published_year", Value: int32(1949)},
		}))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books?fields=title,genre,published_year", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `[{"title":"1984","genre":"Dystopian","published_year":1949}]`, w.Body.String())
	})

	mt.Run("no books found", func(mt *mtest.T) {
		mt.AddMockResponses(cursor())

		w := serve(newRouter(mt, nil), http.MethodGet, "/books?genre=Poetry", nil)
		assert.Equal(mt, http.StatusNotFound, w.Code)
		assert.JSONEq(mt, `{"error":"No books found"}`, w.Body.String())
	})

	mt.Run("bad query parameters", func(mt *mtest.T) {
		r := newRouter(mt, nil)
		for _, target := range []string{
			"/books?published_after=soon",
			"/books?in_stock=maybe",
			"/books?page=0",
			"/books?sort=isbn",
		} {
			w := serve(r, http.MethodGet, target, nil)
			assert.Equal(mt, http.StatusBadRequest, w.Code, target)
		}
	})

	mt.Run("database failure is hidden", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books", nil)
		assert.Equal(mt, http.StatusInternalServerError, w.Code)
		assert.NotContains(mt, w.Body.String(), "not authorized")
	})
}

func TestBookHandler_GetBook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(bookDoc("1984", 12.5)))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/1984", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), `"title":"1984"`)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(cursor())

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/Ulysses", nil)
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})
}

func TestBookHandler_AddBook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("successful book addition", func(mt *mtest.T) {
		audit := &fakeAuditor{}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		body, _ := json.Marshal(models.Book{
			Title:         "Refactoring",
			Author:        "Martin Fowler",
			Genre:         "Programming",
			PublishedYear: 2018,
			Price:         31.5,
			InStock:       true,
		})
		w := serve(newRouter(mt, audit), http.MethodPost, "/books", body)
		require.Equal(mt, http.StatusCreated, w.Code)

		require.Len(mt, audit.calls, 1)
		assert.Equal(mt, models.BookEntity, audit.calls[0].entity)
		assert.Equal(mt, constants.Create, audit.calls[0].action)
	})

	mt.Run("invalid book data", func(mt *mtest.T) {
		w := serve(newRouter(mt, nil), http.MethodPost, "/books", []byte("{}"))
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("malformed json", func(mt *mtest.T) {
		w := serve(newRouter(mt, nil), http.MethodPost, "/books", []byte("{"))
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("duplicate title", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))

		body, _ := json.Marshal(models.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction", PublishedYear: 1965, Price: 18.5})
		w := serve(newRouter(mt, nil), http.MethodPost, "/books", body)
		assert.Equal(mt, http.StatusConflict, w.Code)
	})
}

func TestBookHandler_UpdatePrice(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("updated", func(mt *mtest.T) {
		audit := &fakeAuditor{}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		w := serve(newRouter(mt, audit), http.MethodPut, "/books/Dune/price", []byte(`{"price":17.99}`))
		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `{"message":"Price updated successfully","modifiedCount":1}`, w.Body.String())

		require.Len(mt, audit.calls, 1)
		assert.Equal(mt, constants.Update, audit.calls[0].action)
		assert.Equal(mt, 17.99, audit.calls[0].data.(bson.M)["price"])
	})

	mt.Run("unknown title", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		w := serve(newRouter(mt, nil), http.MethodPut, "/books/Ulysses/price", []byte(`{"price":10}`))
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})

	mt.Run("missing or negative price", func(mt *mtest.T) {
		r := newRouter(mt, nil)
		assert.Equal(mt, http.StatusBadRequest, serve(r, http.MethodPut, "/books/Dune/price", []byte(`{}`)).Code)
		assert.Equal(mt, http.StatusBadRequest, serve(r, http.MethodPut, "/books/Dune/price", []byte(`{"price":-1}`)).Code)
	})
}

func TestBookHandler_DeleteBook(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deleted", func(mt *mtest.T) {
		audit := &fakeAuditor{}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		w := serve(newRouter(mt, audit), http.MethodDelete, "/books/Deep%20Work", nil)
		assert.Equal(mt, http.StatusNoContent, w.Code)
		require.Len(mt, audit.calls, 1)
		assert.Equal(mt, "Deep Work", audit.calls[0].data.(bson.M)["title"])
	})

	mt.Run("nothing deleted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		w := serve(newRouter(mt, nil), http.MethodDelete, "/books/Ulysses", nil)
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})
}

func TestBookHandler_Stats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("average price by genre", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(bson.D{{Key: "_id", Value: "Programming"}, {Key: "averagePrice", Value: 35.0}, {Key: "count", Value: int32(2)}}))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/stats/genres", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `[{"genre":"Programming","averagePrice":35,"count":2}]`, w.Body.String())
	})

	mt.Run("top author", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(bson.D{{Key: "_id", Value: "George Orwell"}, {Key: "totalBooks", Value: int32(2)}}))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/stats/top-author", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `{"author":"George Orwell","totalBooks":2}`, w.Body.String())
	})

	mt.Run("top author of empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(cursor())

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/stats/top-author", nil)
		assert.Equal(mt, http.StatusNotFound, w.Code)
	})

	mt.Run("books by decade", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(
			bson.D{{Key: "_id", Value: "1940s"}, {Key: "count", Value: int32(2)}},
			bson.D{{Key: "_id", Value: "2010s"}, {Key: "count", Value: int32(4)}},
		))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/stats/decades", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var decades []models.DecadeCount
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &decades))
		assert.Equal(mt, []models.DecadeCount{{Decade: "1940s", Count: 2}, {Decade: "2010s", Count: 4}}, decades)
	})
}

func TestBookHandler_Indexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create", func(mt *mtest.T) {
		audit := &fakeAuditor{}
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		w := serve(newRouter(mt, audit), http.MethodPost, "/admin/indexes", nil)
		require.Equal(mt, http.StatusCreated, w.Code)
		assert.JSONEq(mt, `{"indexes":["idx_title_asc","idx_author_year"]}`, w.Body.String())
		assert.Len(mt, audit.calls, 2)
	})

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(cursor(
			bson.D{{Key: "name", Value: "_id_"}},
			bson.D{{Key: "name", Value: queries.TitleIndexName}},
		))

		w := serve(newRouter(mt, nil), http.MethodGet, "/admin/indexes", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), queries.TitleIndexName)
	})

	mt.Run("explain", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "queryPlanner", Value: bson.D{
				{Key: "namespace", Value: ns},
				{Key: "winningPlan", Value: bson.D{
					{Key: "stage", Value: "FETCH"},
					{Key: "inputStage", Value: bson.D{{Key: "stage", Value: "IXSCAN"}, {Key: "indexName", Value: queries.TitleIndexName}}},
				}},
			}},
			bson.E{Key: "executionStats", Value: bson.D{{Key: "nReturned", Value: int32(1)}}},
		))

		w := serve(newRouter(mt, nil), http.MethodGet, "/books/explain?title=Dune", nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var summary models.ExplainSummary
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(mt, queries.TitleIndexName, summary.IndexName)
		assert.Equal(mt, int64(1), summary.NReturned)
	})
}

func TestMetricsHandler_GetMetrics(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("counts", func(mt *mtest.T) {
		mt.AddMockResponses(
			cursor(bson.D{{Key: "n", Value: int32(16)}}),
			cursor(bson.D{{Key: "n", Value: int32(12)}}),
			cursor(bson.D{{Key: "genres", Value: int32(7)}}),
			cursor(bson.D{{Key: "n", Value: int32(3)}}),
		)

		w := serve(newRouter(mt, nil), http.MethodGet, "/admin/metrics", nil)
		require.Equal(mt, http.StatusOK, w.Code)
		assert.JSONEq(mt, `{"total_books":16,"in_stock":12,"out_of_stock":4,"genres":7,"audit_entries":3}`, w.Body.String())
	})
}

func TestAuditCarriesUserID(t *testing.T) {
	utils.InitJwtSecret("handler-secret")
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("delete through auth middleware", func(mt *mtest.T) {
		audit := &fakeAuditor{}
		r := newRouter(mt, audit)
		r.Use(middleware.JWTAuthMiddleware)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		token, err := utils.GenerateJWT("u-7")
		require.NoError(mt, err)

		req := httptest.NewRequest(http.MethodDelete, "/books/Dune", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(mt, http.StatusNoContent, w.Code)
		require.Len(mt, audit.calls, 1)
		assert.Equal(mt, "u-7", audit.calls[0].data.(bson.M)["user_id"])
	})
}

func TestAuthHandler_Login(t *testing.T) {
	utils.InitJwtSecret("login-secret")
	h := &handlers.AuthHandler{}
	h.ConfigCreds.UserId = "u-1"
	h.ConfigCreds.Username = "admin"
	h.ConfigCreds.UserPassword = "secret"

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid credentials", `{"username":"admin","password":"secret"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"malformed body", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Login(w, req)
			require.Equal(t, tt.status, w.Code)

			if tt.status == http.StatusOK {
				var res handlers.LoginResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
				claims, err := utils.ParseJWT(res.Token)
				require.NoError(t, err)
				assert.Equal(t, "u-1", claims.UserID)
			}
		})
	}
}
