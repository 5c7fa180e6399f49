// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/content-engine/internal/review"
	"github.com/pdiddy/content-engine/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the human review queue (list, status, show, resolve)",
	Long: `Review manages documents the gate escalated to human review. Tickets are
stored in the review database named by review.path in the configuration.`,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		return withReviews(func(g *review.Gateway) error {
			tickets, err := g.List(cmd.Context(), types.ReviewStatus(status))
			if err != nil {
				return err
			}
			if len(tickets) == 0 {
				fmt.Println("No tickets.")
				return nil
			}
			fmt.Fprintf(os.Stdout, "%-36s  %-8s  %-8s  %-5s  %-20s  %s\n",
				"Ticket", "Status", "Outcome", "Score", "Submitted", "Document")
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
			for _, t := range tickets {
				fmt.Fprintf(os.Stdout, "%-36s  %-8s  %-8s  %-5.1f  %-20s  %s\n",
					t.ID, t.Status, t.Outcome, t.Report.OverallScore,
					t.SubmittedAt.Format("2006-01-02 15:04:05"), truncate(t.Document.Title, 40))
			}
			fmt.Fprintf(os.Stdout, "\n%d tickets\n", len(tickets))
			return nil
		})
	},
}

var reviewStatusCmd = &cobra.Command{
	Use:   "status [ticket-id]",
	Short: "Print the status of a review ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReviews(func(g *review.Gateway) error {
			status, err := g.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if status.Outcome != "" {
				fmt.Printf("%s (%s)\n", status.Status, status.Outcome)
				return nil
			}
			fmt.Println(status.Status)
			return nil
		})
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show [ticket-id]",
	Short: "Print a ticket with its document and QA report as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReviews(func(g *review.Gateway) error {
			t, err := g.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(t); err != nil {
				return err
			}
			return enc.Close()
		})
	},
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve [ticket-id]",
	Short: "Approve or reject an escalated document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, _ := cmd.Flags().GetString("outcome")
		reviewer, _ := cmd.Flags().GetString("reviewer")
		notes, _ := cmd.Flags().GetString("notes")
		return withReviews(func(g *review.Gateway) error {
			t, err := g.Resolve(cmd.Context(), args[0], types.ReviewOutcome(outcome), reviewer, notes)
			if err != nil {
				return err
			}
			fmt.Printf("Ticket %s resolved: %s by %s\n", t.ID, t.Outcome, t.Reviewer)
			return nil
		})
	},
}

// withReviews opens the configured review store for the duration of fn.
func withReviews(fn func(g *review.Gateway) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Review.Path == "" {
		return fmt.Errorf("review.path is not configured; in-memory tickets do not outlive a run")
	}
	store, err := review.OpenSQLite(cfg.Review.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(review.New(store))
}

func init() {
	reviewListCmd.Flags().String("status", "", "filter by status: pending, resolved")

	reviewResolveCmd.Flags().String("outcome", "", "approved or rejected (required)")
	reviewResolveCmd.Flags().String("reviewer", os.Getenv("USER"), "reviewer name")
	reviewResolveCmd.Flags().String("notes", "", "review notes")
	_ = reviewResolveCmd.MarkFlagRequired("outcome")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewStatusCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	reviewCmd.AddCommand(reviewResolveCmd)

	rootCmd.AddCommand(reviewCmd)
}
