// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-engine/internal/config"
	"github.com/pdiddy/content-engine/internal/gate"
	"github.com/pdiddy/content-engine/internal/pipeline"
	"github.com/pdiddy/content-engine/internal/retrieval"
	"github.com/pdiddy/content-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Generate and gate a document for a content request",
	Long: `Run executes the full pipeline for one request: classification, cache
lookup, retrieval, generation, confidence scoring, and the compliance gate.
The publish decision is printed and written to the audit trail. Documents
that need human review are queued; use "review list" to see them.

Hints override the classifier: --type, --expertise, --tenant, --locale.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("query", "", "content request (alternative to positional arguments)")
	runCmd.Flags().String("type", "", "query type hint (factual, comparison, tutorial, review, news, promotional, technical, general)")
	runCmd.Flags().String("expertise", "", "expertise hint (novice, beginner, intermediate, advanced, expert)")
	runCmd.Flags().String("tenant", "", "tenant the document is generated for")
	runCmd.Flags().String("locale", "", "target locale, e.g. en-GB")
	runCmd.Flags().String("level", "", "validation level: basic, standard, strict, premium (default from config)")
	runCmd.Flags().StringSlice("sources", nil, "enabled sources (default from config): vector, web_search, deep_research")
	runCmd.Flags().StringSlice("jurisdiction", nil, "extra compliance jurisdictions, e.g. UK,DE")
	runCmd.Flags().StringSlice("fields", nil, "extract structured fields as name:type pairs (types: string, number, boolean, list)")
	runCmd.Flags().Bool("reviewer-available", false, "a human reviewer is available for this run")
	runCmd.Flags().Bool("reviewer-approved", false, "the available reviewer pre-approved publication")
	runCmd.Flags().Bool("no-cache", false, "skip the cache lookup and generate a fresh document")
	runCmd.Flags().Bool("show-sources", false, "print per-source retrieval outcomes")
	runCmd.Flags().String("output", "", "write the document content to this file")
	runCmd.Flags().Bool("json", false, "output the full result as JSON")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	req, err := runRequestFromFlags(cmd, args, cfg)
	if err != nil {
		return err
	}

	e, err := newEngine(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer e.Close()

	if fields, _ := cmd.Flags().GetStringSlice("fields"); len(fields) > 0 {
		schema, err := parseSchema(fields)
		if err != nil {
			return err
		}
		e.pc.Extractor = e.model
		e.pc.ExtractSchema = schema
	}

	res, err := pipeline.Run(cmd.Context(), e.pc, req)
	if err != nil && res.Decision.Failure == "" {
		return err
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" && res.Document.Content != "" {
		if werr := os.WriteFile(out, []byte(res.Document.Content), 0o644); werr != nil {
			return fmt.Errorf("writing document: %w", werr)
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if jerr := enc.Encode(res); jerr != nil {
			return jerr
		}
		return err
	}

	if show, _ := cmd.Flags().GetBool("show-sources"); show && res.Retrieval != nil {
		retrieval.FormatTable(*res.Retrieval, os.Stdout)
		fmt.Println()
	}
	printResult(os.Stdout, res)
	return err
}

// runRequestFromFlags builds the request from args, flags, and config defaults.
func runRequestFromFlags(cmd *cobra.Command, args []string, cfg types.Config) (pipeline.RunRequest, error) {
	typ, _ := cmd.Flags().GetString("type")
	expertise, _ := cmd.Flags().GetString("expertise")
	tenant, _ := cmd.Flags().GetString("tenant")
	locale, _ := cmd.Flags().GetString("locale")
	level, _ := cmd.Flags().GetString("level")
	jurisdictions, _ := cmd.Flags().GetStringSlice("jurisdiction")
	available, _ := cmd.Flags().GetBool("reviewer-available")
	approved, _ := cmd.Flags().GetBool("reviewer-approved")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	query, _ := cmd.Flags().GetString("query")
	if query == "" {
		query = strings.Join(args, " ")
	}
	if strings.TrimSpace(query) == "" {
		return pipeline.RunRequest{}, fmt.Errorf("provide a query as arguments or with --query")
	}

	if level != "" && !types.ValidationLevel(level).Valid() {
		return pipeline.RunRequest{}, fmt.Errorf("unknown validation level %q", level)
	}

	retrievalCfg := cfg.Retrieval
	if names, _ := cmd.Flags().GetStringSlice("sources"); len(names) > 0 {
		retrievalCfg.Sources = names
	}
	sources, err := config.Sources(retrievalCfg)
	if err != nil {
		return pipeline.RunRequest{}, err
	}

	return pipeline.RunRequest{
		Query: query,
		Hints: types.Hints{
			Type:      types.QueryType(typ),
			Expertise: types.Expertise(expertise),
			Tenant:    tenant,
			Locale:    locale,
		},
		Sources:       sources,
		Level:         types.ValidationLevel(level),
		Reviewer:      gate.Reviewer{Available: available, Approved: approved},
		Jurisdictions: jurisdictions,
		SkipCache:     noCache,
	}, nil
}

// parseSchema turns name:type pairs into an extraction schema.
func parseSchema(pairs []string) (map[string]string, error) {
	schema := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, typ, ok := strings.Cut(p, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("field %q: want name:type", p)
		}
		schema[name] = strings.TrimSpace(typ)
	}
	return schema, nil
}

func printResult(w io.Writer, res pipeline.RunResult) {
	q := res.Query
	fmt.Fprintf(w, "Query:      %s\n", q.Raw)
	fmt.Fprintf(w, "Class:      %s / %s / %s\n", q.Type, q.Expertise, q.Format)
	if res.Document.ID != "" {
		fmt.Fprintf(w, "Document:   %s (cached: %t)\n", res.Document.ID, res.Cached)
		fmt.Fprintf(w, "Confidence: %.2f\n", res.Breakdown.Score)
	}
	if res.Report.ID != "" {
		fmt.Fprintf(w, "Gate:       %s, score %.1f, quality %s, compliance %s\n",
			res.Report.State, res.Report.OverallScore, res.Report.Quality, res.Report.Compliance)
		for _, r := range res.Report.Results {
			status := "pass"
			if !r.Passed {
				status = "fail"
			}
			fmt.Fprintf(w, "  %-11s %4.1f  %s\n", r.Validator, r.Score, status)
		}
		for _, issue := range res.Report.BlockingIssues {
			fmt.Fprintf(w, "  blocking: %s\n", issue)
		}
		for _, warning := range res.Report.Warnings {
			fmt.Fprintf(w, "  warning:  %s\n", warning)
		}
	}

	d := res.Decision
	switch {
	case d.Failure != "":
		fmt.Fprintf(w, "Decision:   failed (%s)\n", d.Failure)
	case d.Approved:
		fmt.Fprintln(w, "Decision:   approved for publication")
	case res.Report.State == types.GatePendingHumanReview && d.TicketID != "":
		fmt.Fprintf(w, "Decision:   pending human review (ticket %s)\n", d.TicketID)
	case res.Report.State == types.GatePendingHumanReview:
		fmt.Fprintln(w, "Decision:   pending human review (ticket not queued)")
	default:
		fmt.Fprintln(w, "Decision:   rejected")
	}
	fmt.Fprintf(w, "Elapsed:    %s\n", res.Elapsed.Round(time.Millisecond))
}
