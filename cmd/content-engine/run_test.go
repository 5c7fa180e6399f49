// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/content-engine/internal/pipeline"
	"github.com/pdiddy/content-engine/pkg/types"
)

func TestParseSchema(t *testing.T) {
	schema, err := parseSchema([]string{"operator:string", " rtp : number"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"operator": "string", "rtp": "number"}, schema)

	_, err = parseSchema([]string{"operator"})
	assert.ErrorContains(t, err, "want name:type")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name     string
		state    types.GateState
		decision types.PublishDecision
		want     string
	}{
		{name: "approved", state: types.GateApproved, decision: types.PublishDecision{Approved: true}, want: "approved for publication"},
		{name: "escalated", state: types.GatePendingHumanReview, decision: types.PublishDecision{TicketID: "t-1", HumanReviewRequired: true}, want: "pending human review (ticket t-1)"},
		{name: "escalated without ticket", state: types.GatePendingHumanReview, decision: types.PublishDecision{HumanReviewRequired: true}, want: "pending human review (ticket not queued)"},
		{name: "rejected", state: types.GateRejected, decision: types.PublishDecision{}, want: "rejected"},
		{name: "failed", decision: types.PublishDecision{Failure: "generation failed: timeout"}, want: "failed (generation failed: timeout)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printResult(&buf, pipeline.RunResult{
				Query:    types.Query{Raw: "acme review", Type: types.QueryReview},
				Report:   types.QAReport{State: tt.state},
				Decision: tt.decision,
			})
			assert.Contains(t, buf.String(), "Decision:   "+tt.want)
		})
	}
}
