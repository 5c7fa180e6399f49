// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/content-engine/pkg/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "review", "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": s}
}

func newGateway(s Store) *Gateway {
	g := New(s)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	g.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return g
}

func report(docID string) types.QAReport {
	return types.QAReport{
		ID:                  "report-" + docID,
		DocumentID:          docID,
		OverallScore:        6.2,
		HumanReviewRequired: true,
		State:               types.GatePendingHumanReview,
		BlockingIssues:      []string{"compliance: missing required disclosure: age_verification"},
	}
}

func TestSubmitAndResolve(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(store)

			doc := types.Document{ID: "doc-1", Title: "Acme review", Content: "body"}
			id, err := g.Submit(ctx, doc, report("doc-1"))
			require.NoError(t, err)
			assert.Regexp(t, `^[0-9a-f-]{36}$`, id)

			status, err := g.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, types.TicketStatus{Status: types.ReviewPending}, status)

			ticket, err := g.Resolve(ctx, id, types.OutcomeApproved, "dana", "disclaimer added")
			require.NoError(t, err)

			status, err = g.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, types.TicketStatus{Status: types.ReviewResolved, Outcome: types.OutcomeApproved}, status)
			assert.Equal(t, types.ReviewResolved, ticket.Status)
			assert.Equal(t, types.OutcomeApproved, ticket.Outcome)
			assert.True(t, ticket.ResolvedAt.After(ticket.SubmittedAt))

			got, err := g.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "dana", got.Reviewer)
			assert.Equal(t, "doc-1", got.DocumentID)
			assert.Equal(t, "Acme review", got.Document.Title)
			assert.Equal(t, report("doc-1").BlockingIssues, got.Report.BlockingIssues)

			_, err = g.Resolve(ctx, id, types.OutcomeRejected, "sam", "")
			assert.ErrorIs(t, err, ErrAlreadyResolved)

			got, err = g.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, types.OutcomeApproved, got.Outcome, "second resolve leaves the ticket unchanged")
		})
	}
}

func TestUnknownTicket(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(store)

			_, err := g.Status(ctx, "missing")
			assert.ErrorIs(t, err, ErrTicketNotFound)
			_, err = g.Resolve(ctx, "missing", types.OutcomeRejected, "dana", "")
			assert.ErrorIs(t, err, ErrTicketNotFound)
		})
	}
}

func TestResolveRejectsUnknownOutcome(t *testing.T) {
	g := newGateway(NewMemory())
	id, err := g.Submit(context.Background(), types.Document{ID: "d"}, report("d"))
	require.NoError(t, err)
	_, err = g.Resolve(context.Background(), id, "maybe", "dana", "")
	assert.ErrorContains(t, err, "invalid review outcome")
}

func TestList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGateway(store)

			var ids []string
			for i := 0; i < 3; i++ {
				docID := fmt.Sprintf("doc-%d", i)
				id, err := g.Submit(ctx, types.Document{ID: docID}, report(docID))
				require.NoError(t, err)
				ids = append(ids, id)
			}
			_, err := g.Resolve(ctx, ids[1], types.OutcomeRejected, "dana", "misleading")
			require.NoError(t, err)

			all, err := g.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "doc-0", all[0].DocumentID, "oldest first")
			assert.Equal(t, "doc-2", all[2].DocumentID)

			pending, err := g.List(ctx, types.ReviewPending)
			require.NoError(t, err)
			require.Len(t, pending, 2)
			assert.Equal(t, ids[0], pending[0].ID)
			assert.Equal(t, ids[2], pending[1].ID)

			resolved, err := g.List(ctx, types.ReviewResolved)
			require.NoError(t, err)
			require.Len(t, resolved, 1)
			assert.Equal(t, types.OutcomeRejected, resolved[0].Outcome)
		})
	}
}

func TestConcurrentResolveSucceedsOnce(t *testing.T) {
	g := newGateway(NewMemory())
	ctx := context.Background()
	id, err := g.Submit(ctx, types.Document{ID: "d"}, report("d"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := g.Resolve(ctx, id, types.OutcomeApproved, fmt.Sprint("reviewer-", i), ""); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
