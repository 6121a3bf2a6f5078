package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plp-bookstore/configs"
	"plp-bookstore/internal/db"
	"plp-bookstore/internal/queries"
	"plp-bookstore/internal/utils"
)

type app struct {
	cfg     configs.Config
	logger  *zap.Logger
	verbose bool
}

func (a *app) connect(ctx context.Context) (*queries.Books, *utils.Logger, error) {
	if _, err := db.Connect(ctx, a.cfg.MongoURI); err != nil {
		return nil, nil, err
	}
	a.logger.Debug("connected", zap.String("db", a.cfg.DBName))

	books := queries.NewBooks(db.GetCollection(a.cfg.DBName, a.cfg.BooksCollection))
	audit := &utils.Logger{Collection: db.GetCollection(a.cfg.DBName, a.cfg.AuditCollection)}
	return books, audit, nil
}

// close disconnects the client and flushes the logger. It runs after every
// command, failed ones included.
func (a *app) close() {
	if a.logger == nil {
		return
	}
	if err := db.Disconnect(context.Background()); err != nil {
		a.logger.Warn("disconnect failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "plp-bookstore",
		Short:         "Query walkthrough and API for the plp_bookstore books collection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.LoadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg

			zcfg := zap.NewProductionConfig()
			if a.verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			a.logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			utils.InitJwtSecret(cfg.JWTSecret)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug level logging")

	root.AddCommand(
		newRunCmd(a),
		newListCmd(),
		newSeedCmd(a),
		newServeCmd(a),
		newAuditCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
