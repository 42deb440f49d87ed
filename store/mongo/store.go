package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	hold "github.com/xraph/hold"
	"github.com/xraph/hold/claim"
	"github.com/xraph/hold/id"
	"github.com/xraph/hold/resource"
	holdstore "github.com/xraph/hold/store"
)

// Collection name constants.
const (
	colResources = "hold_resources"
	colClaims    = "hold_claims"
)

// compile-time interface check
var _ holdstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all hold collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("hold/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("hold/mongo: create resource: %w", err)
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, resourceID id.ResourceID) (*resource.Resource, error) {
	var m resourceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": resourceID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hold.ErrResourceNotFound
		}
		return nil, fmt.Errorf("hold/mongo: get resource: %w", err)
	}
	return fromResourceModel(&m)
}

func (s *Store) ListResources(ctx context.Context, opts resource.ListOpts) ([]*resource.Resource, error) {
	var models []resourceModel

	filter := bson.M{}
	if opts.SKU != "" {
		filter["sku"] = opts.SKU
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hold/mongo: list resources: %w", err)
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

// TryClaimStock folds the availability check into the update filter, so the
// decrement is atomic at the document level and concurrent reservations can
// never drive the quantity below zero.
func (s *Store) TryClaimStock(ctx context.Context, resourceID id.ResourceID, qty int64) error {
	res, err := s.mdb.Collection(colResources).UpdateOne(ctx,
		bson.M{
			"_id":                resourceID.String(),
			"available_quantity": bson.M{"$gte": qty},
		},
		bson.M{
			"$inc": bson.M{"available_quantity": -qty},
			"$set": bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return fmt.Errorf("hold/mongo: claim stock: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either the resource is missing or it lacks stock.
		if _, err := s.GetResource(ctx, resourceID); err != nil {
			return err
		}
		return hold.ErrInsufficientStock
	}
	return nil
}

func (s *Store) ReleaseStock(ctx context.Context, resourceID id.ResourceID, qty int64) error {
	res, err := s.mdb.Collection(colResources).UpdateOne(ctx,
		bson.M{"_id": resourceID.String()},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				"available_quantity": bson.M{
					"$min": bson.A{"$total_quantity", bson.M{"$add": bson.A{"$available_quantity", qty}}},
				},
				"updated_at": now(),
			}}},
		},
	)
	if err != nil {
		return fmt.Errorf("hold/mongo: release stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return hold.ErrResourceNotFound
	}
	return nil
}

// ==================== Claim Store ====================

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	m := toClaimModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("hold/mongo: create claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	var m claimModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": claimID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hold.ErrClaimNotFound
		}
		return nil, fmt.Errorf("hold/mongo: get claim: %w", err)
	}
	return fromClaimModel(&m)
}

func (s *Store) ListClaims(ctx context.Context, opts claim.ListOpts) ([]*claim.Claim, error) {
	var models []claimModel

	filter := bson.M{}
	if !opts.ResourceID.IsNil() {
		filter["resource_id"] = opts.ResourceID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("hold/mongo: list claims: %w", err)
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
		n, err := s.mdb.Collection(colClaims).CountDocuments(ctx, bson.M{"status": c.status})
		if err != nil {
			return claim.Stats{}, fmt.Errorf("hold/mongo: count claims: %w", err)
		}
		*c.dest = n
	}
	return stats, nil
}

// TransitionClaim applies the status change only when the claim is still in
// the from status. Folding the guard into the filter keeps resolution
// single-fire under racing resolvers, including across processes.
func (s *Store) TransitionClaim(ctx context.Context, claimID id.ClaimID, from, to claim.Status, resolvedAt time.Time) (*claim.Claim, error) {
	var m claimModel
	err := s.mdb.Collection(colClaims).FindOneAndUpdate(ctx,
		bson.M{
			"_id":    claimID.String(),
			"status": string(from),
		},
		bson.M{
			"$set": bson.M{
				"status":      string(to),
				"resolved_at": resolvedAt,
				"updated_at":  resolvedAt,
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Missing claim and lost race look the same to the update.
			if _, err := s.GetClaim(ctx, claimID); err != nil {
				return nil, err
			}
			return nil, hold.ErrAlreadyResolved
		}
		return nil, fmt.Errorf("hold/mongo: transition claim: %w", err)
	}
	return fromClaimModel(&m)
}

func (s *Store) FindExpiredPending(ctx context.Context, now time.Time) ([]*claim.Claim, error) {
	var models []claimModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":   string(claim.StatusPending),
			"deadline": bson.M{"$lte": now},
		}).
		Sort(bson.D{{Key: "deadline", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hold/mongo: find expired pending: %w", err)
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

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all hold collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colResources: {
			{
				Keys: bson.D{{Key: "sku", Value: 1}},
			},
		},
		colClaims: {
			{
				Keys: bson.D{{Key: "resource_id", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}},
			},
		},
	}
}
