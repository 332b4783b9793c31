package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shiptrack-platform/tracking-service/internal/domain"
	outboxMongo "github.com/shiptrack-platform/tracking-service/pkg/outbox/mongodb"
)

const detailsCollection = "details"

type DetailRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
	outboxRepo *outboxMongo.OutboxRepository
}

func NewDetailRepository(db *mongo.Database) *DetailRepository {
	repo := &DetailRepository{
		collection: db.Collection(detailsCollection),
		db:         db,
		outboxRepo: outboxMongo.NewOutboxRepository(db),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *DetailRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "detailId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "shipmentId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "customerId", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

// Insert persists a new detail and records the addition in the outbox within
// one transaction.
func (r *DetailRepository) Insert(ctx context.Context, detail *domain.Detail) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.InsertOne(sessCtx, detail); err != nil {
			return nil, fmt.Errorf("failed to insert detail: %w", err)
		}

		event := &domain.DetailAddedEvent{
			DetailID:   detail.DetailID,
			ShipmentID: detail.ShipmentID,
			CustomerID: detail.CustomerID,
			NetWeight:  detail.NetWeight,
			AddedAt:    detail.CreatedAt,
		}
		return nil, saveDomainEvents(sessCtx, r.outboxRepo, detail.ShipmentID, []domain.DomainEvent{event})
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Update replaces the stored detail document and records the change in the
// outbox within one transaction.
func (r *DetailRepository) Update(ctx context.Context, detail *domain.Detail) error {
	detail.UpdatedAt = time.Now().UTC()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"detailId": detail.DetailID, "shipmentId": detail.ShipmentID}
		result, err := r.collection.ReplaceOne(sessCtx, filter, detail)
		if err != nil {
			return nil, fmt.Errorf("failed to update detail: %w", err)
		}
		if result.MatchedCount == 0 {
			return nil, fmt.Errorf("detail not found: %s", detail.DetailID)
		}

		event := &domain.DetailUpdatedEvent{
			DetailID:   detail.DetailID,
			ShipmentID: detail.ShipmentID,
			UpdatedAt:  detail.UpdatedAt,
		}
		return nil, saveDomainEvents(sessCtx, r.outboxRepo, detail.ShipmentID, []domain.DomainEvent{event})
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (r *DetailRepository) FindByID(ctx context.Context, detailID string) (*domain.Detail, error) {
	var d domain.Detail
	err := r.collection.FindOne(ctx, bson.M{"detailId": detailID}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByShipment returns every detail for the shipment in creation order.
// The tie-break on _id keeps the order stable for details created in the
// same millisecond.
func (r *DetailRepository) ListByShipment(ctx context.Context, shipmentID string) ([]*domain.Detail, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"shipmentId": shipmentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var details []*domain.Detail
	err = cursor.All(ctx, &details)
	return details, err
}

func (r *DetailRepository) CountByShipment(ctx context.Context, shipmentID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"shipmentId": shipmentID})
}

// Delete removes a single detail. It returns the number of documents removed
// so callers can distinguish a missing detail from a successful delete.
func (r *DetailRepository) Delete(ctx context.Context, shipmentID, detailID string) (int64, error) {
	return r.deleteMany(ctx, shipmentID, []string{detailID})
}

// DeleteBatch removes a set of details for the same shipment in one
// multi-delete write.
func (r *DetailRepository) DeleteBatch(ctx context.Context, shipmentID string, detailIDs []string) (int64, error) {
	if len(detailIDs) == 0 {
		return 0, nil
	}
	return r.deleteMany(ctx, shipmentID, detailIDs)
}

func (r *DetailRepository) deleteMany(ctx context.Context, shipmentID string, detailIDs []string) (int64, error) {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return 0, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	var deleted int64
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{
			"shipmentId": shipmentID,
			"detailId":   bson.M{"$in": detailIDs},
		}
		result, err := r.collection.DeleteMany(sessCtx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to delete details: %w", err)
		}
		deleted = result.DeletedCount
		if deleted == 0 {
			return nil, nil
		}

		event := &domain.DetailsDeletedEvent{
			ShipmentID: shipmentID,
			DetailIDs:  detailIDs,
			DeletedAt:  time.Now().UTC(),
		}
		return nil, saveDomainEvents(sessCtx, r.outboxRepo, shipmentID, []domain.DomainEvent{event})
	})

	if err != nil {
		return 0, fmt.Errorf("transaction failed: %w", err)
	}

	return deleted, nil
}
