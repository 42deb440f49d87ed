package hold_test

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
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// newEngine builds an engine on a memory store with a fake clock and no
// expiry scheduler, so tests drive expiry through the sweep alone.
func newEngine(t *testing.T, opts ...hold.Option) (*hold.Engine, *fakeClock) {
	t.Helper()

	fc := newFakeClock()
	base := []hold.Option{
		hold.WithClock(fc),
		hold.WithScheduler(nil),
		hold.WithSweepInterval(time.Hour),
	}
	eng := hold.New(memory.New(), append(base, opts...)...)

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := eng.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return eng, fc
}

func seedResource(t *testing.T, eng *hold.Engine, qty int64) *resource.Resource {
	t.Helper()

	r := &resource.Resource{
		SKU:               "sku-1",
		Name:              "test resource",
		TotalQuantity:     qty,
		AvailableQuantity: qty,
	}
	if err := eng.CreateResource(context.Background(), r); err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	return r
}

func availableQty(t *testing.T, eng *hold.Engine, resourceID id.ResourceID) int64 {
	t.Helper()

	r, err := eng.GetResource(context.Background(), resourceID)
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	return r.AvailableQuantity
}

func TestReserveAndConfirm(t *testing.T) {
	ctx := context.Background()
	eng, fc := newEngine(t)
	r := seedResource(t, eng, 10)

	c, err := eng.Reserve(ctx, r.ID, 3)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if c.Status != claim.StatusPending {
		t.Fatalf("Status = %q, want pending", c.Status)
	}
	if want := fc.Now().Add(hold.DefaultHoldDuration); !c.Deadline.Equal(want) {
		t.Fatalf("Deadline = %v, want %v", c.Deadline, want)
	}
	if got := availableQty(t, eng, r.ID); got != 7 {
		t.Fatalf("available = %d, want 7", got)
	}

	confirmed, err := eng.Confirm(ctx, c.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != claim.StatusConfirmed {
		t.Fatalf("Status = %q, want confirmed", confirmed.Status)
	}
	if confirmed.ResolvedAt == nil {
		t.Fatal("ResolvedAt not set")
	}
	// Confirmed units stay consumed.
	if got := availableQty(t, eng, r.ID); got != 7 {
		t.Fatalf("available = %d, want 7", got)
	}

	// A confirmed claim is terminal.
	if _, err := eng.Confirm(ctx, c.ID); !errors.Is(err, hold.ErrAlreadyResolved) {
		t.Fatalf("second Confirm: got %v, want ErrAlreadyResolved", err)
	}
}

func TestReserveValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	r := seedResource(t, eng, 5)

	tests := []struct {
		name       string
		resourceID id.ResourceID
		qty        int64
		wantErr    error
	}{
		{name: "zero quantity", resourceID: r.ID, qty: 0, wantErr: hold.ErrInvalidQuantity},
		{name: "negative quantity", resourceID: r.ID, qty: -1, wantErr: hold.ErrInvalidQuantity},
		{name: "more than available", resourceID: r.ID, qty: 6, wantErr: hold.ErrInsufficientStock},
		{name: "unknown resource", resourceID: id.NewResourceID(), qty: 1, wantErr: hold.ErrResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eng.Reserve(ctx, tt.resourceID, tt.qty); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Reserve: got %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed reservations must not leak stock.
	if got := availableQty(t, eng, r.ID); got != 5 {
		t.Fatalf("available = %d, want 5", got)
	}
}

func TestExpiryViaSweep(t *testing.T) {
	ctx := context.Background()
	eng, fc := newEngine(t)
	r := seedResource(t, eng, 10)

	c, err := eng.Reserve(ctx, r.ID, 4)
	if err != nil {
		t.Fatal(err)
	}

	// Before the deadline the sweep must not touch the claim.
	eng.SweepNow(ctx)
	got, err := eng.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != claim.StatusPending {
		t.Fatalf("Status = %q, want pending before deadline", got.Status)
	}

	fc.Advance(hold.DefaultHoldDuration + time.Second)
	eng.SweepNow(ctx)

	got, err = eng.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != claim.StatusReleased {
		t.Fatalf("Status = %q, want released after sweep", got.Status)
	}
	if avail := availableQty(t, eng, r.ID); avail != 10 {
		t.Fatalf("available = %d, want 10 after release", avail)
	}

	// A second sweep must not credit the stock again.
	eng.SweepNow(ctx)
	if avail := availableQty(t, eng, r.ID); avail != 10 {
		t.Fatalf("available = %d after second sweep, want 10", avail)
	}
}

func TestConfirmAfterDeadline(t *testing.T) {
	ctx := context.Background()
	eng, fc := newEngine(t)
	r := seedResource(t, eng, 10)

	c, err := eng.Reserve(ctx, r.ID, 2)
	if err != nil {
		t.Fatal(err)
	}

	fc.Advance(hold.DefaultHoldDuration + time.Second)

	// The late confirm discovers the expiry itself: the claim is released
	// and the stock credited, exactly as if a trigger had fired.
	if _, err := eng.Confirm(ctx, c.ID); !errors.Is(err, hold.ErrClaimExpired) {
		t.Fatalf("Confirm: got %v, want ErrClaimExpired", err)
	}

	got, err := eng.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != claim.StatusReleased {
		t.Fatalf("Status = %q, want released", got.Status)
	}
	if avail := availableQty(t, eng, r.ID); avail != 10 {
		t.Fatalf("available = %d, want 10", avail)
	}
}

func TestConfirmMissingClaim(t *testing.T) {
	eng, _ := newEngine(t)

	if _, err := eng.Confirm(context.Background(), id.NewClaimID()); !errors.Is(err, hold.ErrClaimNotFound) {
		t.Fatalf("Confirm: got %v, want ErrClaimNotFound", err)
	}
}

func TestResolveExpiryIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, fc := newEngine(t)
	r := seedResource(t, eng, 10)

	c, err := eng.Reserve(ctx, r.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	fc.Advance(hold.DefaultHoldDuration + time.Second)

	if err := eng.ResolveExpiry(ctx, c.ID); err != nil {
		t.Fatalf("first ResolveExpiry: %v", err)
	}
	if err := eng.ResolveExpiry(ctx, c.ID); err != nil {
		t.Fatalf("second ResolveExpiry: %v", err)
	}

	if avail := availableQty(t, eng, r.ID); avail != 10 {
		t.Fatalf("available = %d, want 10 (credited once)", avail)
	}
}

func TestResolveExpiryConcurrentCreditsOnce(t *testing.T) {
	ctx := context.Background()
	eng, fc := newEngine(t)
	r := seedResource(t, eng, 10)

	c, err := eng.Reserve(ctx, r.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	fc.Advance(hold.DefaultHoldDuration + time.Second)

	const resolvers = 16
	var wg sync.WaitGroup
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = eng.ResolveExpiry(ctx, c.ID) //nolint:errcheck
		}()
	}
	wg.Wait()

	if avail := availableQty(t, eng, r.ID); avail != 10 {
		t.Fatalf("available = %d, want exactly 10", avail)
	}
}

func TestConcurrentReserveNoOversell(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	r := seedResource(t, eng, 5)

	const attempts = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	var reserved, rejected int

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Reserve(ctx, r.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				reserved++
			case errors.Is(err, hold.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if reserved != 5 || rejected != attempts-5 {
		t.Fatalf("reserved = %d, rejected = %d; want 5 and %d", reserved, rejected, attempts-5)
	}
	if avail := availableQty(t, eng, r.ID); avail != 0 {
		t.Fatalf("available = %d, want 0", avail)
	}
}

func TestSchedulerDrivenExpiry(t *testing.T) {
	ctx := context.Background()

	// Real clock and the default timer scheduler: the claim must resolve
	// without any sweep running.
	eng := hold.New(memory.New(),
		hold.WithHoldDuration(30*time.Millisecond),
		hold.WithSweepInterval(time.Hour),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer eng.Stop() //nolint:errcheck

	r := seedResource(t, eng, 10)
	c, err := eng.Reserve(ctx, r.ID, 2)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, err := eng.GetClaim(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == claim.StatusReleased {
			if avail := availableQty(t, eng, r.ID); avail != 10 {
				t.Fatalf("available = %d, want 10", avail)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("claim never released by the scheduler")
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	eng, fc := newEngine(t)
	r := seedResource(t, eng, 10)

	var claims []*claim.Claim
	for i := 0; i < 4; i++ {
		c, err := eng.Reserve(ctx, r.ID, 1)
		if err != nil {
			t.Fatal(err)
		}
		claims = append(claims, c)
	}

	if _, err := eng.Confirm(ctx, claims[0].ID); err != nil {
		t.Fatal(err)
	}

	fc.Advance(hold.DefaultHoldDuration + time.Second)
	if err := eng.ResolveExpiry(ctx, claims[1].ID); err != nil {
		t.Fatal(err)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 2 || stats.Confirmed != 1 || stats.Released != 1 {
		t.Fatalf("stats = %+v, want {2 1 1}", stats)
	}
}

func TestListClaims(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)
	r1 := seedResource(t, eng, 10)
	r2 := seedResource(t, eng, 10)

	for i := 0; i < 3; i++ {
		if _, err := eng.Reserve(ctx, r1.ID, 1); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := eng.Reserve(ctx, r2.ID, 1); err != nil {
		t.Fatal(err)
	}

	all, err := eng.ListClaims(ctx, claim.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}

	forR1, err := eng.ListClaims(ctx, claim.ListOpts{ResourceID: r1.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(forR1) != 3 {
		t.Fatalf("len(forR1) = %d, want 3", len(forR1))
	}
}

func TestCreateResourceValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newEngine(t)

	r := &resource.Resource{
		SKU:               "bad",
		TotalQuantity:     5,
		AvailableQuantity: 6,
	}
	err := eng.CreateResource(ctx, r)
	var vErr hold.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CreateResource: got %v, want ValidationError", err)
	}
}
