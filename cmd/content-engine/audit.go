// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-engine/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail of publish decisions",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit entries to YAML or JSON",
	Long: `Export writes recorded publish decisions, oldest first, to stdout or to
--output. Filters narrow the export to a time window or to approved or
unapproved decisions.`,
	RunE: runAuditExport,
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Audit.Path == "" {
		return fmt.Errorf("audit.path is not configured")
	}
	store, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := audit.ListOptions{Limit: limit}
	if since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	if cmd.Flags().Changed("approved") {
		approved, _ := cmd.Flags().GetBool("approved")
		opts.Approved = &approved
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(cmd.Context(), w, opts)
	case "json":
		err = store.ExportJSON(cmd.Context(), w, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	}
	return nil
}

func init() {
	auditExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	auditExportCmd.Flags().Duration("since", 0, "only entries recorded within this window, e.g. 24h")
	auditExportCmd.Flags().Bool("approved", false, "only approved (true) or unapproved (false) decisions")
	auditExportCmd.Flags().Int("limit", 0, "maximum entries to export (0 = all)")
	auditExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	auditCmd.AddCommand(auditExportCmd)

	rootCmd.AddCommand(auditCmd)
}
