package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plp-bookstore/internal/daemon"
	"plp-bookstore/internal/db"
	"plp-bookstore/internal/utils"
)

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log maintenance",
	}

	var dir string
	export := &cobra.Command{
		Use:   "export",
		Short: "Archive unexported audit logs once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.ExportDir
			}
			if _, _, err := a.connect(cmd.Context()); err != nil {
				return err
			}

			exporter := &daemon.LogExporter{
				Coll:     db.GetCollection(a.cfg.DBName, a.cfg.AuditCollection),
				Exporter: &utils.Exporter{Dir: dir},
				Logger:   a.logger,
			}
			path, n, err := exporter.ExportOnce(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to export")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, path)
			return nil
		},
	}
	export.Flags().StringVar(&dir, "dir", "", "archive directory (default EXPORT_DIR)")

	show := &cobra.Command{
		Use:   "show <archive>",
		Short: "Print the records of an audit archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := utils.ReadArchiveFile(args[0])
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-6s %-8s %-12s %s\n",
					r.Timestamp.Format("2006-01-02T15:04:05Z07:00"), r.Entity, r.Action, r.PerformedBy, r.Payload().String())
			}
			return nil
		},
	}

	cmd.AddCommand(export, show)
	return cmd
}
