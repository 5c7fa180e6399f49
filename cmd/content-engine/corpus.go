// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/content-engine/internal/corpus"
	"github.com/pdiddy/content-engine/internal/generate"
	"github.com/pdiddy/content-engine/internal/httputil"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the reference passage corpus (ingest, search)",
	Long: `Corpus manages the local SQLite passage corpus behind the vector and
keyword sources. Passages are ingested from YAML files and embedded through
the model server.`,
}

// --- ingest subcommand ---

var corpusIngestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest YAML passage files into the corpus",
	Long: `Ingest reads YAML passage files, embeds every passage through the model
server, and stores them with FTS5 indexing. Passages whose embedding fails
are stored for keyword search only. Re-ingesting a passage ID replaces it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCorpusIngest,
}

func runCorpusIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := corpus.Open(cfg.Retrieval.CorpusPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var emb corpus.Embedder
	if noEmbed, _ := cmd.Flags().GetBool("no-embed"); !noEmbed {
		emb = generate.NewClient(cfg.Generation, httputil.NewClient(cfg.Generation.HTTPConfig, newLogger(cmd)))
	}

	summary, err := store.Ingest(cmd.Context(), args, emb, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d passage(s) stored without embeddings\n", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := corpus.Open(cfg.Retrieval.CorpusPath)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		passages, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(passages)
		}
		if len(passages) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "%-4s  %-9s  %-30s  %s\n", "Rank", "Relevance", "Title", "Content")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
		for i, p := range passages {
			fmt.Fprintf(os.Stdout, "%-4d  %-9.2f  %-30s  %s\n",
				i+1, p.Relevance, truncate(p.Origin.Title, 30), truncate(p.Content, 60))
		}
		fmt.Fprintf(os.Stdout, "\n%d results\n", len(passages))
		return nil
	},
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}

func init() {
	corpusIngestCmd.Flags().Bool("no-embed", false, "store passages for keyword search only")

	corpusSearchCmd.Flags().Int("limit", 10, "maximum number of results")
	corpusSearchCmd.Flags().Bool("json", false, "output results as JSON")

	corpusCmd.AddCommand(corpusIngestCmd)
	corpusCmd.AddCommand(corpusSearchCmd)

	rootCmd.AddCommand(corpusCmd)
}
