package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/resource"
	"github.com/xraph/hold/types"
)

// ==================== Resource models ====================

type resourceModel struct {
	grove.BaseModel `grove:"table:hold_resources"`

	ID                string            `grove:"id,pk"`
	SKU               string            `grove:"sku"`
	Name              string            `grove:"name"`
	TotalQuantity     int64             `grove:"total_quantity"`
	AvailableQuantity int64             `grove:"available_quantity"`
	Metadata          map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt         time.Time         `grove:"created_at"`
	UpdatedAt         time.Time         `grove:"updated_at"`
}

func toResourceModel(r *resource.Resource) *resourceModel {
	return &resourceModel{
		ID:                r.ID.String(),
		SKU:               r.SKU,
		Name:              r.Name,
		TotalQuantity:     r.TotalQuantity,
		AvailableQuantity: r.AvailableQuantity,
		Metadata:          r.Metadata,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func fromResourceModel(m *resourceModel) (*resource.Resource, error) {
	resourceID, err := id.ParseResourceID(m.ID)
	if err != nil {
		return nil, err
	}

	return &resource.Resource{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                resourceID,
		SKU:               m.SKU,
		Name:              m.Name,
		TotalQuantity:     m.TotalQuantity,
		AvailableQuantity: m.AvailableQuantity,
		Metadata:          m.Metadata,
	}, nil
}

// ==================== Claim models ====================

type claimModel struct {
	grove.BaseModel `grove:"table:hold_claims"`

	ID         string     `grove:"id,pk"`
	ResourceID string     `grove:"resource_id"`
	Quantity   int64      `grove:"quantity"`
	Status     string     `grove:"status"`
	Deadline   time.Time  `grove:"deadline"`
	ResolvedAt *time.Time `grove:"resolved_at"`
	CreatedAt  time.Time  `grove:"created_at"`
	UpdatedAt  time.Time  `grove:"updated_at"`
}

func toClaimModel(c *claim.Claim) *claimModel {
	return &claimModel{
		ID:         c.ID.String(),
		ResourceID: c.ResourceID.String(),
		Quantity:   c.Quantity,
		Status:     string(c.Status),
		Deadline:   c.Deadline,
		ResolvedAt: c.ResolvedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func fromClaimModel(m *claimModel) (*claim.Claim, error) {
	claimID, err := id.ParseClaimID(m.ID)
	if err != nil {
		return nil, err
	}
	resourceID, err := id.ParseResourceID(m.ResourceID)
	if err != nil {
		return nil, err
	}

	return &claim.Claim{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         claimID,
		ResourceID: resourceID,
		Quantity:   m.Quantity,
		Status:     claim.Status(m.Status),
		Deadline:   m.Deadline,
		ResolvedAt: m.ResolvedAt,
	}, nil
}
