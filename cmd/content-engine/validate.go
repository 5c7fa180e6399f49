// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/content-engine/internal/corpus"
	"github.com/pdiddy/content-engine/internal/gate"
	"github.com/pdiddy/content-engine/internal/generate"
	"github.com/pdiddy/content-engine/internal/httputil"
	"github.com/pdiddy/content-engine/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the compliance and quality gate on an existing document",
	Long: `Validate runs the four gate validators (compliance, factual, style,
quality) on a Markdown document and prints the QA report as YAML. Factual
claims are checked against the passages in --references, a corpus YAML file.

The exit status is non-zero unless the document is approved.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("file", "", "Markdown document to validate (required)")
	validateCmd.Flags().String("references", "", "YAML passage file with reference material")
	validateCmd.Flags().String("level", "", "validation level: basic, standard, strict, premium")
	validateCmd.Flags().String("locale", "", "document locale, e.g. de-DE")
	validateCmd.Flags().StringSlice("jurisdiction", nil, "extra compliance jurisdictions")
	validateCmd.Flags().Bool("reviewer-available", false, "a human reviewer is available")
	validateCmd.Flags().Bool("reviewer-approved", false, "the available reviewer pre-approved publication")
	_ = validateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	file, _ := cmd.Flags().GetString("file")
	refsPath, _ := cmd.Flags().GetString("references")
	level, _ := cmd.Flags().GetString("level")
	locale, _ := cmd.Flags().GetString("locale")
	jurisdictions, _ := cmd.Flags().GetStringSlice("jurisdiction")
	available, _ := cmd.Flags().GetBool("reviewer-available")
	approved, _ := cmd.Flags().GetBool("reviewer-approved")

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	var refs []types.Passage
	if refsPath != "" {
		f, err := corpus.ReadFile(refsPath)
		if err != nil {
			return err
		}
		refs = f.References()
	}

	rules, err := gate.LoadRules(cfg.Gate.RulesFile)
	if err != nil {
		return err
	}
	var checker gate.ClaimChecker
	if cfg.Gate.LLMFactCheck {
		checker = generate.NewClient(cfg.Generation, httputil.NewClient(cfg.Generation.HTTPConfig, logger))
	}
	g, err := gate.New(cfg.Gate, rules, checker, logger)
	if err != nil {
		return err
	}

	doc := types.Document{
		ID:      uuid.NewString(),
		Title:   strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
		Content: string(content),
		Locale:  locale,
	}
	report, err := g.Run(cmd.Context(), gate.Input{
		Document:      doc,
		References:    refs,
		Locale:        locale,
		Jurisdictions: jurisdictions,
	}, types.ValidationLevel(level), gate.Reviewer{Available: available, Approved: approved})
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if report.State != types.GateApproved {
		return fmt.Errorf("document not approved: %s", report.State)
	}
	return nil
}
