package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	hold "github.com/xraph/hold"
	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/resource"
	"github.com/xraph/hold/store/memory"
	"github.com/xraph/hold/types"
)

func newResource(total, available int64) *resource.Resource {
	return &resource.Resource{
		Entity:            types.NewEntity(),
		ID:                id.NewResourceID(),
		SKU:               "sku-1",
		Name:              "test resource",
		TotalQuantity:     total,
		AvailableQuantity: available,
	}
}

func newClaim(resourceID id.ResourceID, qty int64, deadline time.Time) *claim.Claim {
	return &claim.Claim{
		Entity:     types.NewEntity(),
		ID:         id.NewClaimID(),
		ResourceID: resourceID,
		Quantity:   qty,
		Status:     claim.StatusPending,
		Deadline:   deadline,
	}
}

func TestResourceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	r := newResource(10, 10)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	if err := s.CreateResource(ctx, r); !errors.Is(err, hold.ErrAlreadyExists) {
		t.Fatalf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetResource(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if got.AvailableQuantity != 10 {
		t.Fatalf("AvailableQuantity = %d, want 10", got.AvailableQuantity)
	}

	if _, err := s.GetResource(ctx, id.NewResourceID()); !errors.Is(err, hold.ErrResourceNotFound) {
		t.Fatalf("missing resource: got %v, want ErrResourceNotFound", err)
	}
}

func TestTryClaimStock(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		available int64
		qty       int64
		wantErr   error
		wantLeft  int64
	}{
		{name: "full decrement", available: 5, qty: 5, wantErr: nil, wantLeft: 0},
		{name: "partial decrement", available: 5, qty: 3, wantErr: nil, wantLeft: 2},
		{name: "insufficient", available: 2, qty: 3, wantErr: hold.ErrInsufficientStock, wantLeft: 2},
		{name: "zero stock", available: 0, qty: 1, wantErr: hold.ErrInsufficientStock, wantLeft: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			r := newResource(10, tt.available)
			if err := s.CreateResource(ctx, r); err != nil {
				t.Fatal(err)
			}

			err := s.TryClaimStock(ctx, r.ID, tt.qty)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TryClaimStock: got %v, want %v", err, tt.wantErr)
			}

			got, err := s.GetResource(ctx, r.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.AvailableQuantity != tt.wantLeft {
				t.Fatalf("AvailableQuantity = %d, want %d", got.AvailableQuantity, tt.wantLeft)
			}
		})
	}

	t.Run("missing resource", func(t *testing.T) {
		s := memory.New()
		err := s.TryClaimStock(ctx, id.NewResourceID(), 1)
		if !errors.Is(err, hold.ErrResourceNotFound) {
			t.Fatalf("got %v, want ErrResourceNotFound", err)
		}
	})
}

func TestTryClaimStockConcurrent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResource(5, 5)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatal(err)
	}

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.TryClaimStock(ctx, r.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("succeeded = %d, want 5", succeeded)
	}
	got, err := s.GetResource(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AvailableQuantity != 0 {
		t.Fatalf("AvailableQuantity = %d, want 0", got.AvailableQuantity)
	}
}

func TestReleaseStockClampsAtTotal(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResource(10, 8)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatal(err)
	}

	if err := s.ReleaseStock(ctx, r.ID, 5); err != nil {
		t.Fatalf("ReleaseStock: %v", err)
	}
	got, err := s.GetResource(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AvailableQuantity != 10 {
		t.Fatalf("AvailableQuantity = %d, want 10 (clamped at total)", got.AvailableQuantity)
	}

	if err := s.ReleaseStock(ctx, id.NewResourceID(), 1); !errors.Is(err, hold.ErrResourceNotFound) {
		t.Fatalf("missing resource: got %v, want ErrResourceNotFound", err)
	}
}

func TestTransitionClaim(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResource(10, 10)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatal(err)
	}

	c := newClaim(r.ID, 2, time.Now().UTC().Add(time.Minute))
	if err := s.CreateClaim(ctx, c); err != nil {
		t.Fatal(err)
	}

	resolvedAt := time.Now().UTC()
	updated, err := s.TransitionClaim(ctx, c.ID, claim.StatusPending, claim.StatusConfirmed, resolvedAt)
	if err != nil {
		t.Fatalf("TransitionClaim: %v", err)
	}
	if updated.Status != claim.StatusConfirmed {
		t.Fatalf("Status = %q, want confirmed", updated.Status)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(resolvedAt) {
		t.Fatalf("ResolvedAt = %v, want %v", updated.ResolvedAt, resolvedAt)
	}

	// A second transition from pending must lose.
	if _, err := s.TransitionClaim(ctx, c.ID, claim.StatusPending, claim.StatusReleased, resolvedAt); !errors.Is(err, hold.ErrAlreadyResolved) {
		t.Fatalf("second transition: got %v, want ErrAlreadyResolved", err)
	}

	if _, err := s.TransitionClaim(ctx, id.NewClaimID(), claim.StatusPending, claim.StatusReleased, resolvedAt); !errors.Is(err, hold.ErrClaimNotFound) {
		t.Fatalf("missing claim: got %v, want ErrClaimNotFound", err)
	}
}

func TestTransitionClaimConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResource(10, 10)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatal(err)
	}
	c := newClaim(r.ID, 1, time.Now().UTC())
	if err := s.CreateClaim(ctx, c); err != nil {
		t.Fatal(err)
	}

	const resolvers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TransitionClaim(ctx, c.ID, claim.StatusPending, claim.StatusReleased, time.Now().UTC())
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}

func TestFindExpiredPending(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResource(10, 10)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	overdue := newClaim(r.ID, 1, now.Add(-time.Minute))
	atDeadline := newClaim(r.ID, 1, now)
	future := newClaim(r.ID, 1, now.Add(time.Minute))
	resolved := newClaim(r.ID, 1, now.Add(-time.Hour))
	resolved.Status = claim.StatusReleased

	for _, c := range []*claim.Claim{overdue, atDeadline, future, resolved} {
		if err := s.CreateClaim(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	expired, err := s.FindExpiredPending(ctx, now)
	if err != nil {
		t.Fatalf("FindExpiredPending: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("len(expired) = %d, want 2", len(expired))
	}
	// Ordered by deadline, oldest first.
	if expired[0].ID != overdue.ID || expired[1].ID != atDeadline.ID {
		t.Fatalf("unexpected order: %v, %v", expired[0].ID, expired[1].ID)
	}
}

func TestListClaimsFilters(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	r1 := newResource(10, 10)
	r2 := newResource(10, 10)
	for _, r := range []*resource.Resource{r1, r2} {
		if err := s.CreateResource(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().UTC().Add(time.Minute)
	c1 := newClaim(r1.ID, 1, deadline)
	c2 := newClaim(r1.ID, 2, deadline)
	c2.Status = claim.StatusConfirmed
	c3 := newClaim(r2.ID, 3, deadline)
	for _, c := range []*claim.Claim{c1, c2, c3} {
		if err := s.CreateClaim(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	byResource, err := s.ListClaims(ctx, claim.ListOpts{ResourceID: r1.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(byResource) != 2 {
		t.Fatalf("by resource: len = %d, want 2", len(byResource))
	}

	byStatus, err := s.ListClaims(ctx, claim.ListOpts{Status: claim.StatusConfirmed})
	if err != nil {
		t.Fatal(err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != c2.ID {
		t.Fatalf("by status: got %d claims", len(byStatus))
	}

	limited, err := s.ListClaims(ctx, claim.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("paginated: len = %d, want 1", len(limited))
	}
}

func TestCountClaims(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := newResource(10, 10)
	if err := s.CreateResource(ctx, r); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().UTC().Add(time.Minute)
	statuses := []claim.Status{
		claim.StatusPending, claim.StatusPending,
		claim.StatusConfirmed,
		claim.StatusReleased, claim.StatusReleased, claim.StatusReleased,
	}
	for _, st := range statuses {
		c := newClaim(r.ID, 1, deadline)
		c.Status = st
		if err := s.CreateClaim(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.CountClaims(ctx)
	if err != nil {
		t.Fatalf("CountClaims: %v", err)
	}
	if stats.Pending != 2 || stats.Confirmed != 1 || stats.Released != 3 {
		t.Fatalf("stats = %+v, want {2 1 3}", stats)
	}
	if stats.Total() != 6 {
		t.Fatalf("Total = %d, want 6", stats.Total())
	}
}

func TestPingAfterClose(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, hold.ErrStoreClosed) {
		t.Fatalf("Ping after close: got %v, want ErrStoreClosed", err)
	}
}
