// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/content-engine/internal/gate"
)

// Schema field types accepted by Extract.
const (
	FieldString  = "string"
	FieldNumber  = "number"
	FieldBoolean = "boolean"
	FieldList    = "list"
)

// Extract asks the model for the schema fields of content. The reply must be
// one JSON object with only schema keys, each null or of the declared type.
func (c *Client) Extract(ctx context.Context, content string, schema map[string]string) (map[string]any, error) {
	for name, typ := range schema {
		switch typ {
		case FieldString, FieldNumber, FieldBoolean, FieldList:
		default:
			return nil, fmt.Errorf("field %s: unknown type %q", name, typ)
		}
	}
	prompt, err := renderExtractPrompt(content, schema)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}
	text, err := c.complete(ctx, prompt, "json")
	if err != nil {
		return nil, err
	}
	return decodeFields(text, schema)
}

// CheckClaims implements gate.ClaimChecker with the model as the judge.
func (c *Client) CheckClaims(ctx context.Context, claims, references []string) ([]gate.ClaimVerdict, error) {
	prompt, err := renderClaimsPrompt(claims, references)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}
	text, err := c.complete(ctx, prompt, "json")
	if err != nil {
		return nil, err
	}
	var out struct {
		Verdicts []gate.ClaimVerdict `json:"verdicts"`
	}
	if err := decodeStrict(text, &out); err != nil {
		return nil, fmt.Errorf("parsing claim verdicts: %w", err)
	}
	return out.Verdicts, nil
}

// decodeStrict decodes exactly one JSON value into v, rejecting unknown
// fields and trailing data. A markdown code fence around the value is
// tolerated.
func decodeStrict(text string, v any) error {
	text = stripFence(text)
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

func decodeFields(text string, schema map[string]string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(stripFence(text))))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing extracted fields: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parsing extracted fields: trailing data after JSON value")
	}

	out := make(map[string]any, len(schema))
	for key, val := range raw {
		typ, ok := schema[key]
		if !ok {
			return nil, fmt.Errorf("parsing extracted fields: unknown field %q", key)
		}
		if val == nil {
			continue
		}
		converted, err := convertField(val, typ)
		if err != nil {
			return nil, fmt.Errorf("parsing extracted fields: field %s: %w", key, err)
		}
		out[key] = converted
	}
	return out, nil
}

func convertField(val any, typ string) (any, error) {
	switch typ {
	case FieldString:
		if s, ok := val.(string); ok {
			return s, nil
		}
	case FieldNumber:
		if n, ok := val.(json.Number); ok {
			return n.Float64()
		}
	case FieldBoolean:
		if b, ok := val.(bool); ok {
			return b, nil
		}
	case FieldList:
		if items, ok := val.([]any); ok {
			out := make([]string, 0, len(items))
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("list item %v is not a string", item)
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("value %v is not a %s", val, typ)
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
