// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review queues documents the gate escalated for human review and
// records reviewer verdicts.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/content-engine/pkg/types"
)

var (
	// ErrTicketNotFound is returned for an unknown ticket ID.
	ErrTicketNotFound = errors.New("review ticket not found")

	// ErrAlreadyResolved is returned when resolving a resolved ticket.
	ErrAlreadyResolved = errors.New("review ticket already resolved")
)

// Store persists review tickets.
type Store interface {
	// Save inserts or replaces t.
	Save(ctx context.Context, t types.ReviewTicket) error

	// Get returns the ticket with id or ErrTicketNotFound.
	Get(ctx context.Context, id string) (types.ReviewTicket, error)

	// List returns tickets with the given status, oldest first. An empty
	// status lists all tickets.
	List(ctx context.Context, status types.ReviewStatus) ([]types.ReviewTicket, error)
}

// Gateway is the human review queue.
type Gateway struct {
	store Store
	mu    sync.Mutex

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// New returns a gateway over store.
func New(store Store) *Gateway {
	return &Gateway{store: store}
}

// Submit queues doc with its report and returns the ticket ID.
func (g *Gateway) Submit(ctx context.Context, doc types.Document, report types.QAReport) (string, error) {
	t := types.ReviewTicket{
		ID:          g.newID(),
		DocumentID:  doc.ID,
		Document:    doc,
		Report:      report,
		Status:      types.ReviewPending,
		SubmittedAt: g.now(),
	}
	if err := g.store.Save(ctx, t); err != nil {
		return "", fmt.Errorf("submitting %s for review: %w", doc.ID, err)
	}
	return t.ID, nil
}

// Status returns the ticket's status and, once resolved, its outcome.
func (g *Gateway) Status(ctx context.Context, id string) (types.TicketStatus, error) {
	t, err := g.store.Get(ctx, id)
	if err != nil {
		return types.TicketStatus{}, err
	}
	return types.TicketStatus{Status: t.Status, Outcome: t.Outcome}, nil
}

// Get returns the full ticket.
func (g *Gateway) Get(ctx context.Context, id string) (types.ReviewTicket, error) {
	return g.store.Get(ctx, id)
}

// Resolve records a reviewer's verdict. A ticket resolves once.
func (g *Gateway) Resolve(ctx context.Context, id string, outcome types.ReviewOutcome, reviewer, notes string) (types.ReviewTicket, error) {
	if outcome != types.OutcomeApproved && outcome != types.OutcomeRejected {
		return types.ReviewTicket{}, fmt.Errorf("invalid review outcome %q", outcome)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.store.Get(ctx, id)
	if err != nil {
		return types.ReviewTicket{}, err
	}
	if t.Status == types.ReviewResolved {
		return types.ReviewTicket{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}
	t.Status = types.ReviewResolved
	t.Outcome = outcome
	t.Reviewer = reviewer
	t.Notes = notes
	t.ResolvedAt = g.now()
	if err := g.store.Save(ctx, t); err != nil {
		return types.ReviewTicket{}, fmt.Errorf("resolving %s: %w", id, err)
	}
	return t, nil
}

// List returns tickets with status, or all tickets when status is empty.
func (g *Gateway) List(ctx context.Context, status types.ReviewStatus) ([]types.ReviewTicket, error) {
	return g.store.List(ctx, status)
}

func (g *Gateway) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Gateway) newID() string {
	if g.NewID != nil {
		return g.NewID()
	}
	return uuid.NewString()
}
