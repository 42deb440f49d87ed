// Package hold provides a time-bounded resource reservation engine for Go
// applications.
//
// Hold is designed as a library, not a service. Import it directly into your
// Go application to put expiring holds on finite stock. It provides:
//
//   - Oversell-safe reservations backed by atomic conditional stock updates
//   - A strict claim lifecycle (pending, then confirmed or released, terminal)
//   - Exactly-once stock crediting via conditioned status transitions
//   - Delayed expiry triggers with a periodic reconciliation sweep as backstop
//   - In-memory, SQLite, PostgreSQL, MongoDB and Redis-assisted backends
//   - An extensible plugin system for lifecycle hooks
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/hold"
//	    "github.com/xraph/hold/store/memory"
//	)
//
//	eng := hold.New(memory.New())
//
//	// Start the engine (begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// Resources carry the stock to reserve against:
//
//	r := &resource.Resource{
//	    SKU:               "gpu-a100",
//	    Name:              "A100 slot",
//	    TotalQuantity:     8,
//	    AvailableQuantity: 8,
//	}
//	eng.CreateResource(ctx, r)
//
// Reserve withholds stock and opens a pending claim with a deadline:
//
//	c, err := eng.Reserve(ctx, r.ID, 2)
//
// Confirm finalizes the claim before its deadline; otherwise the quantity is
// automatically credited back to stock when the hold window lapses:
//
//	c, err = eng.Confirm(ctx, c.ID)
//
// # Resolution guarantees
//
// A claim resolves exactly once. The confirm call, the expiry trigger and
// the sweeper all funnel through one conditioned status transition, so a
// claim's quantity is credited back to stock at most one time no matter how
// many resolvers race.
package hold
