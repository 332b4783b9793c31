package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shiptrack-platform/tracking-service/internal/domain"
	apperrors "github.com/shiptrack-platform/tracking-service/pkg/errors"
	"github.com/shiptrack-platform/tracking-service/pkg/logging"
	"github.com/shiptrack-platform/tracking-service/pkg/metrics"
	"github.com/shiptrack-platform/tracking-service/pkg/mongodb"
	outboxMongo "github.com/shiptrack-platform/tracking-service/pkg/outbox/mongodb"
)

// TotalsRecalculator rebuilds a shipment's totals from the full detail set.
// Each run happens inside one store transaction: the detail snapshot read,
// the aggregate write, and the outbox event all commit or roll back
// together. Write conflicts between concurrent runs for the same shipment
// are retried by the driver's transaction primitive; only an exhausted
// retry budget surfaces to the caller.
type TotalsRecalculator struct {
	client     *mongodb.GuardedClient
	classifier *domain.CustomerClassifier
	outboxRepo *outboxMongo.OutboxRepository
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

func NewTotalsRecalculator(
	client *mongodb.GuardedClient,
	classifier *domain.CustomerClassifier,
	logger *logging.Logger,
	m *metrics.Metrics,
) *TotalsRecalculator {
	return &TotalsRecalculator{
		client:     client,
		classifier: classifier,
		outboxRepo: outboxMongo.NewOutboxRepository(client.Database()),
		logger:     logger,
		metrics:    m,
	}
}

// Recalculate recomputes and persists the totals for the given shipment.
// Returns the committed totals so callers can hand them back without a
// second read.
func (r *TotalsRecalculator) Recalculate(ctx context.Context, shipmentID string) (domain.Totals, error) {
	start := time.Now()

	var totals domain.Totals
	var detailCount int

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		shipments := r.client.Collection(shipmentsCollection)
		details := r.client.Collection(detailsCollection)

		// Verify the parent exists before computing anything.
		count, err := shipments.CountDocuments(sessCtx, bson.M{"shipmentId": shipmentID})
		if err != nil {
			return fmt.Errorf("failed to read shipment: %w", err)
		}
		if count == 0 {
			return apperrors.ErrNotFoundWithID("shipment", shipmentID)
		}

		// Snapshot the whole child collection inside the transaction. No
		// pagination: the compute must see every current detail.
		opts := options.Find().SetSort(bson.D{
			{Key: "createdAt", Value: 1},
			{Key: "_id", Value: 1},
		})
		cursor, err := details.Find(sessCtx, bson.M{"shipmentId": shipmentID}, opts)
		if err != nil {
			return fmt.Errorf("failed to read details: %w", err)
		}

		var snapshot []*domain.Detail
		if err := cursor.All(sessCtx, &snapshot); err != nil {
			return fmt.Errorf("failed to decode details: %w", err)
		}
		detailCount = len(snapshot)

		totals = domain.ComputeTotals(snapshot, r.classifier)

		// Full replacement of the totals subdocument. Never an
		// incremental $inc: the aggregate must be derivable from the
		// snapshot alone.
		now := time.Now().UTC()
		update := bson.M{
			"$set": bson.M{
				"totals":    totals,
				"updatedAt": now,
			},
		}
		if _, err := shipments.UpdateOne(sessCtx, bson.M{"shipmentId": shipmentID}, update); err != nil {
			return fmt.Errorf("failed to write totals: %w", err)
		}

		event := &domain.TotalsRecalculatedEvent{
			ShipmentID:     shipmentID,
			Totals:         totals,
			DetailCount:    detailCount,
			RecalculatedAt: now,
		}
		return saveDomainEvents(sessCtx, r.outboxRepo, shipmentID, []domain.DomainEvent{event})
	})

	duration := time.Since(start)

	if err != nil {
		r.metrics.RecordRecalculation(false, duration)
		if _, ok := apperrors.AsAppError(err); ok {
			return domain.Totals{}, err
		}
		if mongodb.IsTransactionConflict(err) {
			return domain.Totals{}, apperrors.ErrStoreTransaction("recalculate", err)
		}
		return domain.Totals{}, apperrors.ErrStoreIO("recalculate", err)
	}

	r.metrics.RecordRecalculation(true, duration)
	r.logger.DatabaseQuery(ctx, shipmentsCollection, "recalculate", duration, true, 1)
	r.logger.InfoContext(ctx, "Recalculated shipment totals",
		"shipmentId", shipmentID,
		"detailCount", detailCount,
		"totalNet", totals.TotalNet,
		"duration", duration,
	)

	return totals, nil
}
