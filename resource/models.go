package resource

import (
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/types"
)

// Resource is a finite, countable stock record that claims draw from.
//
// AvailableQuantity is only ever mutated through the store's TryClaim and
// Release primitives; 0 <= AvailableQuantity <= TotalQuantity holds outside
// any in-flight operation.
type Resource struct {
	types.Entity
	ID                id.ResourceID     `json:"id"`
	SKU               string            `json:"sku"`
	Name              string            `json:"name"`
	TotalQuantity     int64             `json:"total_quantity"`
	AvailableQuantity int64             `json:"available_quantity"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Claimed returns the number of units currently held or consumed.
func (r *Resource) Claimed() int64 {
	return r.TotalQuantity - r.AvailableQuantity
}

// ListOpts filters resource listings.
type ListOpts struct {
	SKU    string
	Limit  int
	Offset int
}
