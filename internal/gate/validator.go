// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"strings"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Input is what every validator sees. It is shared read-only between
// validators running in parallel.
type Input struct {
	Document   types.Document
	References []types.Passage

	// Locale and Jurisdictions select jurisdiction rules. Jurisdictions are
	// tenant compliance tags such as "UK".
	Locale        string
	Jurisdictions []string
}

// Validator scores one aspect of a document. A returned error makes the
// result a validator error scoring 0.
type Validator interface {
	Name() string
	Validate(ctx context.Context, in Input) (types.ValidationResult, error)
}

// jurisdictions returns the jurisdiction codes that apply to in, derived
// from the locale region and the explicit tags, deduplicated in order.
func (in Input) jurisdictions() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(code string) {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "GB" {
			code = "UK"
		}
		if code != "" && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}

	if loc := strings.ReplaceAll(in.Locale, "_", "-"); loc != "" {
		parts := strings.Split(loc, "-")
		switch {
		case len(parts) > 1:
			add(parts[len(parts)-1])
		case strings.EqualFold(parts[0], "de"):
			add("DE")
		}
	}
	for _, j := range in.Jurisdictions {
		add(j)
	}
	return out
}
