package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	hold "github.com/xraph/hold"
	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/resource"
	holdstore "github.com/xraph/hold/store"
	"github.com/xraph/hold/types"
)

// compile-time interface check
var _ holdstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("hold/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("hold/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Resource Store ====================

func (s *Store) CreateResource(ctx context.Context, r *resource.Resource) error {
	m := toResourceModel(r)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetResource(ctx context.Context, resourceID id.ResourceID) (*resource.Resource, error) {
	m := new(resourceModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", resourceID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, hold.ErrResourceNotFound
		}
		return nil, err
	}
	return fromResourceModel(m)
}

func (s *Store) ListResources(ctx context.Context, opts resource.ListOpts) ([]*resource.Resource, error) {
	var models []resourceModel
	q := s.sdb.NewSelect(&models)

	if opts.SKU != "" {
		q = q.Where("sku = ?", opts.SKU)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*resource.Resource, len(models))
	for i := range models {
		r, err := fromResourceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// TryClaimStock decrements available quantity in one guarded statement, so
// concurrent reservations can never drive the quantity below zero.
func (s *Store) TryClaimStock(ctx context.Context, resourceID id.ResourceID, qty int64) error {
	res, err := s.sdb.NewUpdate((*resourceModel)(nil)).
		Set("available_quantity = available_quantity - ?", qty).
		Set("updated_at = ?", now()).
		Where("id = ?", resourceID.String()).
		Where("available_quantity >= ?", qty).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either the resource is missing or it lacks stock.
		if _, err := s.GetResource(ctx, resourceID); err != nil {
			return err
		}
		return hold.ErrInsufficientStock
	}
	return nil
}

func (s *Store) ReleaseStock(ctx context.Context, resourceID id.ResourceID, qty int64) error {
	res, err := s.sdb.NewUpdate((*resourceModel)(nil)).
		Set("available_quantity = MIN(total_quantity, available_quantity + ?)", qty).
		Set("updated_at = ?", now()).
		Where("id = ?", resourceID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hold.ErrResourceNotFound
	}
	return nil
}

// ==================== Claim Store ====================

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	m := toClaimModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	m := new(claimModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", claimID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, hold.ErrClaimNotFound
		}
		return nil, err
	}
	return fromClaimModel(m)
}

func (s *Store) ListClaims(ctx context.Context, opts claim.ListOpts) ([]*claim.Claim, error) {
	var models []claimModel
	q := s.sdb.NewSelect(&models)

	if !opts.ResourceID.IsNil() {
		q = q.Where("resource_id = ?", opts.ResourceID.String())
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*claim.Claim, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) CountClaims(ctx context.Context) (claim.Stats, error) {
	var stats claim.Stats

	counts := []struct {
		status string
		dest   *int64
	}{
		{string(claim.StatusPending), &stats.Pending},
		{string(claim.StatusConfirmed), &stats.Confirmed},
		{string(claim.StatusReleased), &stats.Released},
	}
	for _, c := range counts {
		err := s.sdb.NewRaw(`
			SELECT COUNT(*) FROM hold_claims WHERE status = ?
		`, c.status).Scan(ctx, c.dest)
		if err != nil {
			return claim.Stats{}, err
		}
	}
	return stats, nil
}

// TransitionClaim applies the status change only when the claim is still in
// the from status, which keeps resolution single-fire under racing
// resolvers.
func (s *Store) TransitionClaim(ctx context.Context, claimID id.ClaimID, from, to claim.Status, resolvedAt time.Time) (*claim.Claim, error) {
	res, err := s.sdb.NewUpdate((*claimModel)(nil)).
		Set("status = ?", string(to)).
		Set("resolved_at = ?", resolvedAt).
		Set("updated_at = ?", resolvedAt).
		Where("id = ?", claimID.String()).
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Missing claim and lost race look the same to the update.
		if _, err := s.GetClaim(ctx, claimID); err != nil {
			return nil, err
		}
		return nil, hold.ErrAlreadyResolved
	}
	return s.GetClaim(ctx, claimID)
}

func (s *Store) FindExpiredPending(ctx context.Context, now time.Time) ([]*claim.Claim, error) {
	var models []claimModel
	err := s.sdb.NewSelect(&models).
		Where("status = ?", string(claim.StatusPending)).
		Where("deadline <= ?", now).
		OrderExpr("deadline ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*claim.Claim, len(models))
	for i := range models {
		c, err := fromClaimModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Models ====================

type resourceModel struct {
	grove.BaseModel `grove:"table:hold_resources"`

	ID                string            `grove:"id,pk"`
	SKU               string            `grove:"sku"`
	Name              string            `grove:"name"`
	TotalQuantity     int64             `grove:"total_quantity"`
	AvailableQuantity int64             `grove:"available_quantity"`
	Metadata          map[string]string `grove:"metadata,type:json"`
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

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
