package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plp-bookstore/configs"
	"plp-bookstore/internal/daemon"
	"plp-bookstore/internal/db"
	"plp-bookstore/internal/handlers"
	"plp-bookstore/internal/middleware"
	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

func newRouter(cfg configs.Config, books *queries.Books, audit *utils.Logger, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog(logger), middleware.JSONMiddleware)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	}).Methods("GET")

	authHandler := &handlers.AuthHandler{Logger: logger}
	authHandler.ConfigCreds.UserId = cfg.UserId
	authHandler.ConfigCreds.Username = cfg.UserName
	authHandler.ConfigCreds.UserPassword = cfg.UserPassword
	r.HandleFunc("/login", authHandler.Login).Methods("POST")

	bookHandler := handlers.NewBookHandler(books, audit, logger, cfg.QueryTimeout)
	metricsHandler := &handlers.MetricsHandler{
		Books:    books,
		AuditCol: audit.Collection,
		Logger:   logger,
		Timeout:  cfg.QueryTimeout,
	}

	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.JWTAuthMiddleware)

	api.HandleFunc("/books", bookHandler.GetBooks).Methods("GET")
	api.HandleFunc("/books", bookHandler.AddBook).Methods("POST")
	api.HandleFunc("/books/stats/genres", bookHandler.GenreStats).Methods("GET")
	api.HandleFunc("/books/stats/top-author", bookHandler.TopAuthor).Methods("GET")
	api.HandleFunc("/books/stats/decades", bookHandler.DecadeStats).Methods("GET")
	api.HandleFunc("/books/explain", bookHandler.Explain).Methods("GET")
	api.HandleFunc("/books/{title}", bookHandler.GetBook).Methods("GET")
	api.HandleFunc("/books/{title}", bookHandler.DeleteBook).Methods("DELETE")
	api.HandleFunc("/books/{title}/price", bookHandler.UpdatePrice).Methods("PUT")

	api.HandleFunc("/admin/indexes", bookHandler.CreateIndexes).Methods("POST")
	api.HandleFunc("/admin/indexes", bookHandler.ListIndexes).Methods("GET")
	api.HandleFunc("/admin/metrics", metricsHandler.GetMetrics).Methods("GET")

	return r
}

func newServeCmd(a *app) *cobra.Command {
	var noExport bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the books API and export audit logs in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return fmt.Errorf("%w: JWT_SECRET is required to serve", configs.ErrInvalidConfig)
			}
			books, audit, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           newRouter(a.cfg, books, audit, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				a.logger.Info("server starting", zap.String("port", a.cfg.Port))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				a.logger.Info("shutting down gracefully")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			if !noExport {
				exporter := &daemon.LogExporter{
					Coll:     db.GetCollection(a.cfg.DBName, a.cfg.AuditCollection),
					Exporter: &utils.Exporter{Dir: a.cfg.ExportDir},
					Interval: a.cfg.ExportInterval,
					Logger:   a.logger.Named("exporter"),
				}
				g.Go(func() error { return exporter.Run(ctx) })
			}

			if err := g.Wait(); err != nil {
				return err
			}
			a.logger.Info("server shut down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noExport, "no-export", false, "disable the background audit exporter")
	return cmd
}
