package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shiptrack-platform/tracking-service/internal/domain"
	"github.com/shiptrack-platform/tracking-service/pkg/kafka"
	"github.com/shiptrack-platform/tracking-service/pkg/outbox"
	outboxMongo "github.com/shiptrack-platform/tracking-service/pkg/outbox/mongodb"
)

const shipmentsCollection = "shipments"

type ShipmentRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
	outboxRepo *outboxMongo.OutboxRepository
}

func NewShipmentRepository(db *mongo.Database) *ShipmentRepository {
	repo := &ShipmentRepository{
		collection: db.Collection(shipmentsCollection),
		db:         db,
		outboxRepo: outboxMongo.NewOutboxRepository(db),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ShipmentRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "shipmentId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reference", Value: 1}}},
		{Keys: bson.D{{Key: "carrierCode", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)

	_ = r.outboxRepo.EnsureIndexes(ctx)
}

// Save upserts the shipment and writes its pending domain events to the
// outbox in the same transaction.
func (r *ShipmentRepository) Save(ctx context.Context, shipment *domain.Shipment) error {
	shipment.UpdatedAt = time.Now()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		opts := options.Update().SetUpsert(true)
		filter := bson.M{"shipmentId": shipment.ShipmentID}
		update := bson.M{"$set": shipment}

		if _, err := r.collection.UpdateOne(sessCtx, filter, update, opts); err != nil {
			return nil, fmt.Errorf("failed to save shipment: %w", err)
		}

		if err := saveDomainEvents(sessCtx, r.outboxRepo, shipment.ShipmentID, shipment.GetDomainEvents()); err != nil {
			return nil, err
		}

		shipment.ClearDomainEvents()
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	var s domain.Shipment
	err := r.collection.FindOne(ctx, bson.M{"shipmentId": shipmentID}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ShipmentRepository) FindAll(ctx context.Context, limit int64) ([]*domain.Shipment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var shipments []*domain.Shipment
	err = cursor.All(ctx, &shipments)
	return shipments, err
}

// Delete removes the shipment and records a deletion event in the outbox
// within one transaction. Referential checks against details belong to the
// caller.
func (r *ShipmentRepository) Delete(ctx context.Context, shipmentID string) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		result, err := r.collection.DeleteOne(sessCtx, bson.M{"shipmentId": shipmentID})
		if err != nil {
			return nil, fmt.Errorf("failed to delete shipment: %w", err)
		}
		if result.DeletedCount == 0 {
			return nil, nil
		}

		event := &domain.ShipmentDeletedEvent{
			ShipmentID: shipmentID,
			DeletedAt:  time.Now().UTC(),
		}
		return nil, saveDomainEvents(sessCtx, r.outboxRepo, shipmentID, []domain.DomainEvent{event})
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetOutboxRepository returns the outbox repository backing this service
func (r *ShipmentRepository) GetOutboxRepository() outbox.Repository {
	return r.outboxRepo
}

// saveDomainEvents converts domain events to outbox events and stores them
// in the session's transaction.
func saveDomainEvents(sessCtx mongo.SessionContext, repo *outboxMongo.OutboxRepository, shipmentID string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxEvents := make([]*outbox.Event, 0, len(events))
	for _, event := range events {
		outboxEvent, err := outbox.NewEvent(shipmentID, "Shipment", kafka.Topics.TrackingEvents, event)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := repo.SaveAll(sessCtx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}
