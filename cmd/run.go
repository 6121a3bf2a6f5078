package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plp-bookstore/internal/walkthrough"
)

func newRunCmd(a *app) *cobra.Command {
	var opts walkthrough.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the query walkthrough and print every section",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("page") {
				opts.Page = a.cfg.Page
			}
			if !cmd.Flags().Changed("page-size") {
				opts.PageSize = a.cfg.PageSize
			}
			opts.Timeout = a.cfg.QueryTimeout

			books, audit, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}

			r := walkthrough.NewRunner(books, cmd.OutOrStdout(), a.logger, opts)
			r.Audit = audit.As("walkthrough")
			return r.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Page, "page", 2, "page shown by the pagination section")
	f.IntVar(&opts.PageSize, "page-size", 5, "page size of the pagination section")
	f.StringSliceVar(&opts.Only, "only", nil, "run only these section keys")
	f.BoolVar(&opts.WithInsert, "with-insert", false, "insert the Refactoring book first")
	f.BoolVar(&opts.ContinueOnError, "continue-on-error", false, "keep going after a failed section")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List walkthrough sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range walkthrough.Sections(2, 5) {
				suffix := ""
				if s.Optional {
					suffix = " (optional)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s%s\n", s.Key, s.Heading, suffix)
			}
			return nil
		},
	}
}
