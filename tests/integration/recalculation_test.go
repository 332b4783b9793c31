package integration

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiptrack-platform/tracking-service/internal/application"
	"github.com/shiptrack-platform/tracking-service/internal/domain"
	infra "github.com/shiptrack-platform/tracking-service/internal/infrastructure/mongodb"
	apperrors "github.com/shiptrack-platform/tracking-service/pkg/errors"
	"github.com/shiptrack-platform/tracking-service/pkg/logging"
	"github.com/shiptrack-platform/tracking-service/pkg/metrics"
	"github.com/shiptrack-platform/tracking-service/pkg/mongodb"
	sharedtesting "github.com/shiptrack-platform/tracking-service/pkg/testing"
)

type testEnv struct {
	service *application.TrackingService
	recalc  *infra.TotalsRecalculator
	cleanup func()
}

func setupTestEnv(t *testing.T, primaryGroup string) *testEnv {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	mongoContainer, err := sharedtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)

	client, err := mongodb.NewClient(ctx, &mongodb.Config{
		URI:            mongoContainer.URI,
		Database:       "test_tracking_db",
		ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)

	logConfig := logging.DefaultConfig("tracking-service-test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)
	m := metrics.New(metrics.DefaultConfig("tracking_service_test"))

	guarded := mongodb.NewGuardedClient(client, logger.Logger)
	classifier := domain.NewCustomerClassifier(primaryGroup)

	shipmentRepo := infra.NewShipmentRepository(guarded.Database())
	detailRepo := infra.NewDetailRepository(guarded.Database())
	recalc := infra.NewTotalsRecalculator(guarded, classifier, logger, m)

	formats, err := domain.ParseFormatCatalog("")
	require.NoError(t, err)

	service := application.NewTrackingService(shipmentRepo, detailRepo, recalc, formats, logger, m)

	cleanup := func() {
		if err := client.Close(ctx); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
		if err := mongoContainer.Close(ctx); err != nil {
			t.Logf("Failed to close MongoDB container: %v", err)
		}
	}

	return &testEnv{service: service, recalc: recalc, cleanup: cleanup}
}

func createShipment(t *testing.T, env *testEnv, shipmentID string) {
	t.Helper()
	_, err := env.service.CreateShipment(context.Background(), application.CreateShipmentCommand{
		ShipmentID:  shipmentID,
		Reference:   "REF-" + shipmentID,
		CarrierCode: "MAERSK",
	})
	require.NoError(t, err)
}

func addDetail(t *testing.T, env *testEnv, shipmentID string, pallets, bags int, gross, tare float64, customerID string) *application.MutationResultDTO {
	t.Helper()
	result, err := env.service.AddDetail(context.Background(), application.AddDetailCommand{
		ShipmentID:  shipmentID,
		Pallets:     pallets,
		Bags:        bags,
		GrossWeight: gross,
		TareWeight:  tare,
		CustomerID:  customerID,
	})
	require.NoError(t, err)
	require.False(t, result.TotalsStale)
	return result
}

func TestRecalculationAfterMutations(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()
	ctx := context.Background()

	createShipment(t, env, "SHIP-001")

	addDetail(t, env, "SHIP-001", 2, 0, 10.000, 2.000, "X")
	result := addDetail(t, env, "SHIP-001", 0, 5, 5.000, 1.000, "primary")

	require.NotNil(t, result.Totals)
	assert.Equal(t, 2, result.Totals.TotalPallets)
	assert.Equal(t, 5, result.Totals.TotalBags)
	assert.Equal(t, 15.000, result.Totals.TotalGross)
	assert.Equal(t, 3.000, result.Totals.TotalTare)
	assert.Equal(t, 12.000, result.Totals.TotalNet)
	assert.Equal(t, 4.000, result.Totals.PrimaryNet)

	// The persisted aggregate matches what the mutation returned.
	shipment, err := env.service.GetShipment(ctx, application.GetShipmentQuery{ShipmentID: "SHIP-001"})
	require.NoError(t, err)
	assert.Equal(t, *result.Totals, shipment.Totals)

	// A third detail shifts every affected rollup.
	result = addDetail(t, env, "SHIP-001", 1, 0, 0.500, 0.125, "primary")
	require.NotNil(t, result.Totals)
	assert.Equal(t, 15.500, result.Totals.TotalGross)
	assert.Equal(t, 3.125, result.Totals.TotalTare)
	assert.Equal(t, 12.375, result.Totals.TotalNet)
	assert.Equal(t, 4.375, result.Totals.PrimaryNet)
}

func TestRecalculationIdempotent(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()
	ctx := context.Background()

	createShipment(t, env, "SHIP-002")
	addDetail(t, env, "SHIP-002", 1, 0, 3.333, 1.111, "primary")

	first, err := env.recalc.Recalculate(ctx, "SHIP-002")
	require.NoError(t, err)
	second, err := env.recalc.Recalculate(ctx, "SHIP-002")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecalculateUnknownShipment(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()

	_, err := env.recalc.Recalculate(context.Background(), "SHIP-404")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestBatchDeleteLeavesRemainingDetail(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()
	ctx := context.Background()

	createShipment(t, env, "SHIP-003")
	first := addDetail(t, env, "SHIP-003", 2, 0, 10.000, 2.000, "X")
	second := addDetail(t, env, "SHIP-003", 0, 5, 5.000, 1.000, "primary")
	third := addDetail(t, env, "SHIP-003", 1, 0, 0.500, 0.125, "primary")

	result, err := env.service.BatchDeleteDetails(ctx, application.BatchDeleteDetailsCommand{
		ShipmentID: "SHIP-003",
		DetailIDs:  []string{first.Detail.DetailID, second.Detail.DetailID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Deleted)
	require.False(t, result.TotalsStale)

	// Final totals equal the single remaining detail's own values.
	require.NotNil(t, result.Totals)
	assert.Equal(t, 1, result.Totals.TotalPallets)
	assert.Equal(t, 0, result.Totals.TotalBags)
	assert.Equal(t, third.Detail.GrossWeight, result.Totals.TotalGross)
	assert.Equal(t, third.Detail.TareWeight, result.Totals.TotalTare)
	assert.Equal(t, third.Detail.NetWeight, result.Totals.TotalNet)

	details, err := env.service.ListShipmentDetails(ctx, application.ListDetailsQuery{ShipmentID: "SHIP-003"})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, third.Detail.DetailID, details[0].DetailID)
}

func TestShipmentDeletionPrecondition(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()
	ctx := context.Background()

	createShipment(t, env, "SHIP-004")
	result := addDetail(t, env, "SHIP-004", 1, 0, 2.000, 0.500, "X")

	err := env.service.DeleteShipment(ctx, "SHIP-004")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReferentialIntegrity))

	_, err = env.service.BatchDeleteDetails(ctx, application.BatchDeleteDetailsCommand{
		ShipmentID: "SHIP-004",
		DetailIDs:  []string{result.Detail.DetailID},
	})
	require.NoError(t, err)

	err = env.service.DeleteShipment(ctx, "SHIP-004")
	require.NoError(t, err)

	_, err = env.service.GetShipment(ctx, application.GetShipmentQuery{ShipmentID: "SHIP-004"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestEmptyShipmentRecalculatesToZero(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()
	ctx := context.Background()

	createShipment(t, env, "SHIP-005")

	totals, err := env.service.ForceRecalculate(ctx, "SHIP-005")
	require.NoError(t, err)
	assert.Equal(t, application.TotalsDTO{}, *totals)
}

// Concurrent mutations against the same shipment must converge: the last
// committed recalculation reflects the complete detail set.
func TestConcurrentAdds(t *testing.T) {
	env := setupTestEnv(t, "primary")
	defer env.cleanup()
	ctx := context.Background()

	createShipment(t, env, "SHIP-006")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.AddDetail(ctx, application.AddDetailCommand{
				ShipmentID:  "SHIP-006",
				Bags:        1,
				GrossWeight: 1.000,
				TareWeight:  0.250,
				CustomerID:  "primary",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// A final forced pass settles any stale aggregate left by a losing
	// concurrent recalculation.
	totals, err := env.service.ForceRecalculate(ctx, "SHIP-006")
	require.NoError(t, err)
	assert.Equal(t, workers, totals.TotalBags)
	assert.Equal(t, 8.000, totals.TotalGross)
	assert.Equal(t, 2.000, totals.TotalTare)
	assert.Equal(t, 6.000, totals.TotalNet)
	assert.Equal(t, 6.000, totals.PrimaryNet)
}
