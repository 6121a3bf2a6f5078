package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"plp-bookstore/internal/constants"
	"plp-bookstore/internal/models"
	"plp-bookstore/internal/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		file string
		opts seed.Options
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample book catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue, err := seed.Load(file)
			if err != nil {
				return err
			}

			books, audit, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}

			n, err := seed.Seed(cmd.Context(), books, catalogue, opts, a.logger)
			if err != nil {
				return err
			}
			data := bson.M{"count": n, "drop": opts.Drop, "file": file}
			if err := audit.As(constants.SystemUser).Log(cmd.Context(), models.BookEntity, constants.Seed, data); err != nil {
				a.logger.Warn("audit log failed", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d books into %s.%s\n", n, a.cfg.DBName, a.cfg.BooksCollection)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML catalogue to load instead of the built-in one")
	cmd.Flags().BoolVar(&opts.Drop, "drop", false, "drop the collection first")
	return cmd
}
