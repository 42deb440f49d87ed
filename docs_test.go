package hold_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/hold"
	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/resource"
	"github.com/xraph/hold/store/memory"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine
		eng := hold.New(store,
			hold.WithLogger(slog.Default()),
			hold.WithHoldDuration(2*time.Minute),
			hold.WithSweepInterval(10*time.Second),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Create a resource carrying the stock
		r := &resource.Resource{
			SKU:               "gpu-a100",
			Name:              "A100 slot",
			TotalQuantity:     8,
			AvailableQuantity: 8,
		}
		if err := eng.CreateResource(ctx, r); err != nil {
			t.Fatal(err)
		}

		// Reserve withholds stock and opens a pending claim
		c, err := eng.Reserve(ctx, r.ID, 2)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("claim %s expires at %s\n", c.ID, c.Deadline)

		// Confirm before the deadline keeps the stock consumed
		c, err = eng.Confirm(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("claim %s is now %s\n", c.ID, c.Status)

		// Inspect open claims for the resource
		claims, err := eng.ListClaims(ctx, claim.ListOpts{ResourceID: r.ID})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("%d claims on %s\n", len(claims), r.SKU)

		// Engine-wide counters
		stats, err := eng.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("pending=%d confirmed=%d released=%d\n",
			stats.Pending, stats.Confirmed, stats.Released)
	})
}
