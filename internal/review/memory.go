// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	tickets map[string]types.ReviewTicket
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tickets: make(map[string]types.ReviewTicket)}
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, t types.ReviewTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = t
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, id string) (types.ReviewTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return types.ReviewTicket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	return t, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, status types.ReviewStatus) ([]types.ReviewTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ReviewTicket
	for _, t := range m.tickets {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
