// Package memory provides an in-memory store for tests and single-process
// embedding. All operations work under one lock, so the conditional stock
// decrement and the conditioned claim transition are atomic by construction.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/hold"
	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/resource"
)

type Store struct {
	mu sync.RWMutex

	// Resource storage
	resources map[string]*resource.Resource

	// Claim storage
	claims map[string]*claim.Claim

	closed bool
}

func New() *Store {
	return &Store{
		resources: make(map[string]*resource.Resource),
		claims:    make(map[string]*claim.Claim),
	}
}

// Resource Store implementation

func (s *Store) CreateResource(_ context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.resources[r.ID.String()]; exists {
		return hold.ErrAlreadyExists
	}
	s.resources[r.ID.String()] = r
	return nil
}

func (s *Store) GetResource(_ context.Context, resourceID id.ResourceID) (*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.resources[resourceID.String()]; ok {
		return r, nil
	}
	return nil, hold.ErrResourceNotFound
}

func (s *Store) ListResources(_ context.Context, opts resource.ListOpts) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*resource.Resource
	for _, r := range s.resources {
		if opts.SKU != "" && r.SKU != opts.SKU {
			continue
		}
		result = append(result, r)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) TryClaimStock(_ context.Context, resourceID id.ResourceID, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[resourceID.String()]
	if !ok {
		return hold.ErrResourceNotFound
	}
	if r.AvailableQuantity < qty {
		return hold.ErrInsufficientStock
	}

	r.AvailableQuantity -= qty
	r.Touch()
	return nil
}

func (s *Store) ReleaseStock(_ context.Context, resourceID id.ResourceID, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[resourceID.String()]
	if !ok {
		return hold.ErrResourceNotFound
	}

	r.AvailableQuantity += qty
	if r.AvailableQuantity > r.TotalQuantity {
		r.AvailableQuantity = r.TotalQuantity
	}
	r.Touch()
	return nil
}

// Claim Store implementation

func (s *Store) CreateClaim(_ context.Context, c *claim.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claims[c.ID.String()]; exists {
		return hold.ErrAlreadyExists
	}
	s.claims[c.ID.String()] = c
	return nil
}

func (s *Store) GetClaim(_ context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.claims[claimID.String()]; ok {
		return c, nil
	}
	return nil, hold.ErrClaimNotFound
}

func (s *Store) ListClaims(_ context.Context, opts claim.ListOpts) ([]*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*claim.Claim
	for _, c := range s.claims {
		if !opts.ResourceID.IsNil() && c.ResourceID != opts.ResourceID {
			continue
		}
		if opts.Status != "" && c.Status != opts.Status {
			continue
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountClaims(_ context.Context) (claim.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats claim.Stats
	for _, c := range s.claims {
		switch c.Status {
		case claim.StatusPending:
			stats.Pending++
		case claim.StatusConfirmed:
			stats.Confirmed++
		case claim.StatusReleased:
			stats.Released++
		}
	}
	return stats, nil
}

func (s *Store) TransitionClaim(_ context.Context, claimID id.ClaimID, from, to claim.Status, resolvedAt time.Time) (*claim.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[claimID.String()]
	if !ok {
		return nil, hold.ErrClaimNotFound
	}
	if c.Status != from {
		return nil, hold.ErrAlreadyResolved
	}

	c.Status = to
	c.ResolvedAt = &resolvedAt
	c.UpdatedAt = resolvedAt
	return c, nil
}

func (s *Store) FindExpiredPending(_ context.Context, now time.Time) ([]*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*claim.Claim
	for _, c := range s.claims {
		if c.Status == claim.StatusPending && !c.Deadline.After(now) {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Deadline.Before(result[j].Deadline)
	})

	return result, nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return hold.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
