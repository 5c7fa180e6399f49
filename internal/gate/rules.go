// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Pattern is a named regular expression.
type Pattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// JurisdictionRule lists the disclaimers a jurisdiction requires and the
// terms it prohibits. Matching is case-insensitive substring matching.
type JurisdictionRule struct {
	Required   []string `yaml:"required"`
	Prohibited []string `yaml:"prohibited"`
}

// ComplianceRules drive the compliance validator.
type ComplianceRules struct {
	Disclosures   []Pattern                   `yaml:"disclosures"`
	Prohibited    []Pattern                   `yaml:"prohibited"`
	Jurisdictions map[string]JurisdictionRule `yaml:"jurisdictions"`
}

// BrandGuidelines drive the style validator.
type BrandGuidelines struct {
	ProhibitedTerms   []string `yaml:"prohibited_terms"`
	RequiredTerms     []string `yaml:"required_terms"`
	MaxExclamations   int      `yaml:"max_exclamations"`
	MaxSentenceWords  int      `yaml:"max_sentence_words"`
	ForbidFirstPerson bool     `yaml:"forbid_first_person"`
}

// QualityRules drive the quality validator.
type QualityRules struct {
	RequiredSections []string `yaml:"required_sections"`
	MinWords         int      `yaml:"min_words"`
}

// Rules is the reference data of all validators.
type Rules struct {
	Compliance ComplianceRules `yaml:"compliance"`
	Brand      BrandGuidelines `yaml:"brand"`
	Quality    QualityRules    `yaml:"quality"`
}

// DefaultRules returns the built-in rules for gambling content.
func DefaultRules() Rules {
	return Rules{
		Compliance: ComplianceRules{
			Disclosures: []Pattern{
				{Name: "age_verification", Pattern: `(?i)(18\+|21\+|\beighteen\b|\badults?\b|\bage\b)`},
				{Name: "responsible_gambling", Pattern: `(?i)(responsible.{0,20}gambl|gambl.{0,20}responsib|problem.{0,20}gambl)`},
				{Name: "affiliate_disclosure", Pattern: `(?i)\b(affiliate|partner|commission|earn|paid|sponsored)\b`},
			},
			Prohibited: []Pattern{
				{Name: "guaranteed_wins", Pattern: `(?i)(guaranteed.{0,20}win|sure.{0,20}win|cannot.{0,20}lose|can't.{0,20}lose)`},
				{Name: "underage_targeting", Pattern: `(?i)\b(kids|children|teens?|teenagers?|school)\b`},
				{Name: "medical_claims", Pattern: `(?i)(\bcures?\b|\btherapy\b|\bmedical\b|health.{0,20}benefit)`},
				{Name: "investment_language", Pattern: `(?i)(\binvestment\b|profit.{0,20}guaranteed|guaranteed.{0,20}(return|profit))`},
			},
			Jurisdictions: map[string]JurisdictionRule{
				"UK": {Required: []string{"18+", "gambleaware.org"}, Prohibited: []string{"guaranteed", "risk-free"}},
				"DE": {Required: []string{"18+", "spielen-mit-verantwortung.de"}, Prohibited: []string{"sicher gewinnen", "garantiert"}},
				"US": {Required: []string{"21+", "responsible gambling"}, Prohibited: []string{"guaranteed wins", "sure thing"}},
			},
		},
		Brand: BrandGuidelines{
			ProhibitedTerms:   []string{"free money", "no risk", "get rich", "easy money", "cheap"},
			MaxExclamations:   3,
			MaxSentenceWords:  35,
			ForbidFirstPerson: true,
		},
		Quality: QualityRules{
			RequiredSections: []string{
				"introduction", "games", "bonuses", "payments", "support", "mobile", "conclusion", "disclaimer",
			},
			MinWords: 300,
		},
	}
}

// LoadRules reads rules from a YAML file over the defaults: sections present
// in the file replace the built-in ones, absent sections keep them.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reading rules %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	return rules, nil
}
