// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Embedder turns text into a vector. The generate package provides the
// HTTP implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// File is the YAML layout of an ingest file.
type File struct {
	Passages []Entry `yaml:"passages"`
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Files    int
	Passages int
	Embedded int
	Failed   int
}

// Ingest reads YAML passage files and stores their passages. When emb is
// non-nil each passage is embedded for vector search; a passage whose
// embedding fails is stored without one and counted as failed. Progress
// lines go to w.
func (s *Store) Ingest(ctx context.Context, paths []string, emb Embedder, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		f, err := ReadFile(path)
		if err != nil {
			return summary, err
		}

		for i := range f.Passages {
			if emb == nil {
				continue
			}
			vec, err := emb.Embed(ctx, f.Passages[i].Content)
			if err != nil {
				fmt.Fprintf(w, "warning: embedding %s failed: %v\n", f.Passages[i].ID, err)
				summary.Failed++
				continue
			}
			f.Passages[i].Embedding = vec
			summary.Embedded++
		}

		if err := s.Put(ctx, f.Passages); err != nil {
			return summary, fmt.Errorf("storing %s: %w", path, err)
		}

		fmt.Fprintf(w, "ingested %s (%d passages)\n", path, len(f.Passages))
		summary.Files++
		summary.Passages += len(f.Passages)
	}

	fmt.Fprintf(w, "\nfiles: %d, passages: %d, embedded: %d, failed: %d\n",
		summary.Files, summary.Passages, summary.Embedded, summary.Failed)
	return summary, nil
}

// ReadFile parses one YAML passage file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// References returns the file's entries as fully relevant passages, the form
// the gate checks claims against.
func (f File) References() []types.Passage {
	out := make([]types.Passage, len(f.Passages))
	for i, e := range f.Passages {
		out[i] = types.Passage{Content: e.Content, Origin: e.origin(), Relevance: 1}
	}
	return out
}
