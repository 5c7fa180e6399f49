// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is the flattened form of an audit entry used by the exports.
type ExportEntry struct {
	ID                  string    `json:"id" yaml:"id"`
	RecordedAt          time.Time `json:"recorded_at" yaml:"recorded_at"`
	Query               string    `json:"query" yaml:"query"`
	QueryType           string    `json:"query_type" yaml:"query_type"`
	DocumentID          string    `json:"document_id" yaml:"document_id"`
	Cached              bool      `json:"cached" yaml:"cached"`
	Approved            bool      `json:"approved" yaml:"approved"`
	HumanReviewRequired bool      `json:"human_review_required" yaml:"human_review_required"`
	TicketID            string    `json:"ticket_id,omitempty" yaml:"ticket_id,omitempty"`
	ReportID            string    `json:"report_id,omitempty" yaml:"report_id,omitempty"`
	OverallScore        float64   `json:"overall_score" yaml:"overall_score"`
	Quality             string    `json:"quality,omitempty" yaml:"quality,omitempty"`
	State               string    `json:"state,omitempty" yaml:"state,omitempty"`
	BlockingIssues      []string  `json:"blocking_issues,omitempty" yaml:"blocking_issues,omitempty"`
	Failure             string    `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// ExportYAML writes the entries matching opts to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts ListOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes the entries matching opts to w as an indented JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, opts ListOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *Store) exportEntries(ctx context.Context, opts ListOptions) ([]ExportEntry, error) {
	list, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(list))
	for i, e := range list {
		entries[i] = ExportEntry{
			ID:                  e.ID,
			RecordedAt:          e.RecordedAt,
			Query:               e.Query.Text,
			QueryType:           string(e.Query.Type),
			DocumentID:          e.DocumentID,
			Cached:              e.Cached,
			Approved:            e.Decision.Approved,
			HumanReviewRequired: e.Decision.HumanReviewRequired,
			TicketID:            e.Decision.TicketID,
			ReportID:            e.Decision.ReportID,
			Failure:             e.Decision.Failure,
		}
		if r := e.Decision.Report; r != nil {
			entries[i].OverallScore = r.OverallScore
			entries[i].Quality = string(r.Quality)
			entries[i].State = string(r.State)
			entries[i].BlockingIssues = r.BlockingIssues
		}
	}
	return entries, nil
}
