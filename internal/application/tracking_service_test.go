package application

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiptrack-platform/tracking-service/internal/domain"
	apperrors "github.com/shiptrack-platform/tracking-service/pkg/errors"
	"github.com/shiptrack-platform/tracking-service/pkg/logging"
	"github.com/shiptrack-platform/tracking-service/pkg/metrics"
)

var errUnexpected = errors.New("unexpected call")

type fakeShipmentRepo struct {
	saveFn     func(context.Context, *domain.Shipment) error
	findByIDFn func(context.Context, string) (*domain.Shipment, error)
	findAllFn  func(context.Context, int64) ([]*domain.Shipment, error)
	deleteFn   func(context.Context, string) error
}

func (f *fakeShipmentRepo) Save(ctx context.Context, shipment *domain.Shipment) error {
	if f.saveFn == nil {
		return errUnexpected
	}
	return f.saveFn(ctx, shipment)
}

func (f *fakeShipmentRepo) FindByID(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, shipmentID)
}

func (f *fakeShipmentRepo) FindAll(ctx context.Context, limit int64) ([]*domain.Shipment, error) {
	if f.findAllFn == nil {
		return nil, errUnexpected
	}
	return f.findAllFn(ctx, limit)
}

func (f *fakeShipmentRepo) Delete(ctx context.Context, shipmentID string) error {
	if f.deleteFn == nil {
		return errUnexpected
	}
	return f.deleteFn(ctx, shipmentID)
}

type fakeDetailRepo struct {
	insertFn          func(context.Context, *domain.Detail) error
	updateFn          func(context.Context, *domain.Detail) error
	findByIDFn        func(context.Context, string) (*domain.Detail, error)
	listByShipmentFn  func(context.Context, string) ([]*domain.Detail, error)
	countByShipmentFn func(context.Context, string) (int64, error)
	deleteFn          func(context.Context, string, string) (int64, error)
	deleteBatchFn     func(context.Context, string, []string) (int64, error)
}

func (f *fakeDetailRepo) Insert(ctx context.Context, detail *domain.Detail) error {
	if f.insertFn == nil {
		return errUnexpected
	}
	return f.insertFn(ctx, detail)
}

func (f *fakeDetailRepo) Update(ctx context.Context, detail *domain.Detail) error {
	if f.updateFn == nil {
		return errUnexpected
	}
	return f.updateFn(ctx, detail)
}

func (f *fakeDetailRepo) FindByID(ctx context.Context, detailID string) (*domain.Detail, error) {
	if f.findByIDFn == nil {
		return nil, errUnexpected
	}
	return f.findByIDFn(ctx, detailID)
}

func (f *fakeDetailRepo) ListByShipment(ctx context.Context, shipmentID string) ([]*domain.Detail, error) {
	if f.listByShipmentFn == nil {
		return nil, errUnexpected
	}
	return f.listByShipmentFn(ctx, shipmentID)
}

func (f *fakeDetailRepo) CountByShipment(ctx context.Context, shipmentID string) (int64, error) {
	if f.countByShipmentFn == nil {
		return 0, errUnexpected
	}
	return f.countByShipmentFn(ctx, shipmentID)
}

func (f *fakeDetailRepo) Delete(ctx context.Context, shipmentID, detailID string) (int64, error) {
	if f.deleteFn == nil {
		return 0, errUnexpected
	}
	return f.deleteFn(ctx, shipmentID, detailID)
}

func (f *fakeDetailRepo) DeleteBatch(ctx context.Context, shipmentID string, detailIDs []string) (int64, error) {
	if f.deleteBatchFn == nil {
		return 0, errUnexpected
	}
	return f.deleteBatchFn(ctx, shipmentID, detailIDs)
}

type fakeRecalculator struct {
	calls  int
	totals domain.Totals
	err    error
}

func (f *fakeRecalculator) Recalculate(ctx context.Context, shipmentID string) (domain.Totals, error) {
	f.calls++
	if f.err != nil {
		return domain.Totals{}, f.err
	}
	return f.totals, nil
}

func testShipment(t *testing.T, shipmentID string) *domain.Shipment {
	t.Helper()
	shipment, err := domain.NewShipment(shipmentID, "REF-001", "MAERSK", "", "")
	require.NoError(t, err)
	shipment.ClearDomainEvents()
	return shipment
}

func newTestService(t *testing.T, shipmentRepo domain.ShipmentRepository, detailRepo domain.DetailRepository, recalc domain.TotalsRecalculator) *TrackingService {
	t.Helper()
	logConfig := logging.DefaultConfig("tracking-service-test")
	logConfig.Output = io.Discard
	logger := logging.New(logConfig)
	m := metrics.New(metrics.DefaultConfig("tracking_service_test"))

	formats, err := domain.ParseFormatCatalog("SVC-STD=standard,SVC-BULK=bulk")
	require.NoError(t, err)

	return NewTrackingService(shipmentRepo, detailRepo, recalc, formats, logger, m)
}

func TestAddDetail(t *testing.T) {
	var inserted *domain.Detail
	shipmentRepo := &fakeShipmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Shipment, error) {
			return testShipment(t, id), nil
		},
	}
	detailRepo := &fakeDetailRepo{
		insertFn: func(ctx context.Context, d *domain.Detail) error {
			inserted = d
			return nil
		},
	}
	recalc := &fakeRecalculator{totals: domain.Totals{TotalPallets: 2, TotalGross: 10.0, TotalTare: 2.0, TotalNet: 8.0}}
	service := newTestService(t, shipmentRepo, detailRepo, recalc)

	result, err := service.AddDetail(context.Background(), AddDetailCommand{
		ShipmentID:  "SHIP-001",
		Pallets:     2,
		GrossWeight: 10.0,
		TareWeight:  2.0,
		CustomerID:  "CUST-A",
		ServiceID:   "SVC-STD",
	})
	require.NoError(t, err)

	require.NotNil(t, inserted)
	assert.NotEmpty(t, inserted.DetailID)
	assert.Equal(t, 8.0, inserted.NetWeight)

	assert.Equal(t, 1, recalc.calls)
	assert.False(t, result.TotalsStale)
	require.NotNil(t, result.Totals)
	assert.Equal(t, 8.0, result.Totals.TotalNet)
	require.NotNil(t, result.Detail)
	assert.Equal(t, inserted.DetailID, result.Detail.DetailID)
}

func TestAddDetailValidation(t *testing.T) {
	service := newTestService(t, &fakeShipmentRepo{}, &fakeDetailRepo{}, &fakeRecalculator{})

	tests := []struct {
		name string
		cmd  AddDetailCommand
	}{
		{"missing shipment id", AddDetailCommand{CustomerID: "C"}},
		{"unknown service id", AddDetailCommand{ShipmentID: "SHIP-001", CustomerID: "C", ServiceID: "SVC-NOPE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.AddDetail(context.Background(), tt.cmd)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationError))
		})
	}
}

func TestAddDetailShipmentNotFound(t *testing.T) {
	shipmentRepo := &fakeShipmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Shipment, error) {
			return nil, nil
		},
	}
	service := newTestService(t, shipmentRepo, &fakeDetailRepo{}, &fakeRecalculator{})

	_, err := service.AddDetail(context.Background(), AddDetailCommand{ShipmentID: "SHIP-404", CustomerID: "C"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

// A failed recalculation after a committed detail write is a partial
// success: the mutation result carries a stale-totals warning instead of
// an error.
func TestAddDetailStaleTotals(t *testing.T) {
	shipmentRepo := &fakeShipmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Shipment, error) {
			return testShipment(t, id), nil
		},
	}
	detailRepo := &fakeDetailRepo{
		insertFn: func(ctx context.Context, d *domain.Detail) error { return nil },
	}
	recalc := &fakeRecalculator{err: apperrors.ErrStoreTransaction("recalculate", errors.New("retries exhausted"))}
	service := newTestService(t, shipmentRepo, detailRepo, recalc)

	result, err := service.AddDetail(context.Background(), AddDetailCommand{
		ShipmentID: "SHIP-001",
		Bags:       3,
		CustomerID: "CUST-A",
	})
	require.NoError(t, err)

	assert.True(t, result.TotalsStale)
	assert.Nil(t, result.Totals)
	assert.NotEmpty(t, result.Warning)
}

func TestUpdateDetailMergesWeights(t *testing.T) {
	existing, err := domain.NewDetail("DET-001", "SHIP-001", 0, 2, 10.000, 2.000, "CUST-A", "SVC-STD", "FMT-1")
	require.NoError(t, err)

	var updated *domain.Detail
	detailRepo := &fakeDetailRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Detail, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, d *domain.Detail) error {
			updated = d
			return nil
		},
	}
	recalc := &fakeRecalculator{}
	service := newTestService(t, &fakeShipmentRepo{}, detailRepo, recalc)

	newGross := 12.500
	result, err := service.UpdateDetail(context.Background(), UpdateDetailCommand{
		DetailID:    "DET-001",
		GrossWeight: &newGross,
	})
	require.NoError(t, err)

	// Tare is merged from the stored detail and net rederived.
	require.NotNil(t, updated)
	assert.Equal(t, 12.500, updated.GrossWeight)
	assert.Equal(t, 2.000, updated.TareWeight)
	assert.Equal(t, 10.500, updated.NetWeight)
	assert.Equal(t, 1, recalc.calls)
	assert.False(t, result.TotalsStale)
}

func TestUpdateDetailMixedQuantityMode(t *testing.T) {
	existing, err := domain.NewDetail("DET-001", "SHIP-001", 0, 2, 10.000, 2.000, "CUST-A", "SVC-STD", "FMT-1")
	require.NoError(t, err)

	detailRepo := &fakeDetailRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Detail, error) {
			return existing, nil
		},
	}
	service := newTestService(t, &fakeShipmentRepo{}, detailRepo, &fakeRecalculator{})

	pallets := 1
	_, err = service.UpdateDetail(context.Background(), UpdateDetailCommand{
		DetailID: "DET-001",
		Pallets:  &pallets,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationError))
}

func TestDeleteDetail(t *testing.T) {
	detailRepo := &fakeDetailRepo{
		deleteFn: func(ctx context.Context, shipmentID, detailID string) (int64, error) {
			return 1, nil
		},
	}
	recalc := &fakeRecalculator{}
	service := newTestService(t, &fakeShipmentRepo{}, detailRepo, recalc)

	result, err := service.DeleteDetail(context.Background(), DeleteDetailCommand{
		ShipmentID: "SHIP-001",
		DetailID:   "DET-001",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Deleted)
	assert.Equal(t, 1, recalc.calls)
}

func TestDeleteDetailNotFound(t *testing.T) {
	detailRepo := &fakeDetailRepo{
		deleteFn: func(ctx context.Context, shipmentID, detailID string) (int64, error) {
			return 0, nil
		},
	}
	recalc := &fakeRecalculator{}
	service := newTestService(t, &fakeShipmentRepo{}, detailRepo, recalc)

	_, err := service.DeleteDetail(context.Background(), DeleteDetailCommand{
		ShipmentID: "SHIP-001",
		DetailID:   "DET-404",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Equal(t, 0, recalc.calls)
}

// Batch delete triggers exactly one recalculation regardless of how many
// details it removed.
func TestBatchDeleteDetailsRecalculatesOnce(t *testing.T) {
	detailRepo := &fakeDetailRepo{
		deleteBatchFn: func(ctx context.Context, shipmentID string, detailIDs []string) (int64, error) {
			return int64(len(detailIDs)), nil
		},
	}
	recalc := &fakeRecalculator{}
	service := newTestService(t, &fakeShipmentRepo{}, detailRepo, recalc)

	result, err := service.BatchDeleteDetails(context.Background(), BatchDeleteDetailsCommand{
		ShipmentID: "SHIP-001",
		DetailIDs:  []string{"DET-001", "DET-002", "DET-003"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Deleted)
	assert.Equal(t, 1, recalc.calls)
}

func TestBatchDeleteDetailsValidation(t *testing.T) {
	service := newTestService(t, &fakeShipmentRepo{}, &fakeDetailRepo{}, &fakeRecalculator{})

	_, err := service.BatchDeleteDetails(context.Background(), BatchDeleteDetailsCommand{ShipmentID: "SHIP-001"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationError))
}

func TestDeleteShipmentWithRemainingDetails(t *testing.T) {
	shipmentRepo := &fakeShipmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Shipment, error) {
			return testShipment(t, id), nil
		},
	}
	detailRepo := &fakeDetailRepo{
		countByShipmentFn: func(ctx context.Context, shipmentID string) (int64, error) {
			return 2, nil
		},
	}
	service := newTestService(t, shipmentRepo, detailRepo, &fakeRecalculator{})

	err := service.DeleteShipment(context.Background(), "SHIP-001")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReferentialIntegrity))
}

func TestDeleteShipmentEmpty(t *testing.T) {
	deleted := false
	shipmentRepo := &fakeShipmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Shipment, error) {
			return testShipment(t, id), nil
		},
		deleteFn: func(ctx context.Context, shipmentID string) error {
			deleted = true
			return nil
		},
	}
	detailRepo := &fakeDetailRepo{
		countByShipmentFn: func(ctx context.Context, shipmentID string) (int64, error) {
			return 0, nil
		},
	}
	service := newTestService(t, shipmentRepo, detailRepo, &fakeRecalculator{})

	err := service.DeleteShipment(context.Background(), "SHIP-001")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestCreateShipmentConflict(t *testing.T) {
	shipmentRepo := &fakeShipmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*domain.Shipment, error) {
			return testShipment(t, id), nil
		},
	}
	service := newTestService(t, shipmentRepo, &fakeDetailRepo{}, &fakeRecalculator{})

	_, err := service.CreateShipment(context.Background(), CreateShipmentCommand{
		ShipmentID:  "SHIP-001",
		Reference:   "REF-001",
		CarrierCode: "MAERSK",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestForceRecalculate(t *testing.T) {
	recalc := &fakeRecalculator{totals: domain.Totals{TotalBags: 4, TotalNet: 3.750}}
	service := newTestService(t, &fakeShipmentRepo{}, &fakeDetailRepo{}, recalc)

	totals, err := service.ForceRecalculate(context.Background(), "SHIP-001")
	require.NoError(t, err)
	assert.Equal(t, 4, totals.TotalBags)
	assert.Equal(t, 3.750, totals.TotalNet)

	_, err = service.ForceRecalculate(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationError))
}
