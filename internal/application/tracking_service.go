package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shiptrack-platform/tracking-service/internal/domain"
	apperrors "github.com/shiptrack-platform/tracking-service/pkg/errors"
	"github.com/shiptrack-platform/tracking-service/pkg/logging"
	"github.com/shiptrack-platform/tracking-service/pkg/metrics"
)

// TrackingService orchestrates shipment and detail use cases. Every detail
// mutation is followed by an awaited totals recalculation for the parent
// shipment; a mutation does not report success until that pass either
// committed or was surfaced as a stale-totals warning.
type TrackingService struct {
	shipmentRepo domain.ShipmentRepository
	detailRepo   domain.DetailRepository
	recalculator domain.TotalsRecalculator
	formats      *domain.FormatCatalog
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewTrackingService creates a new TrackingService
func NewTrackingService(
	shipmentRepo domain.ShipmentRepository,
	detailRepo domain.DetailRepository,
	recalculator domain.TotalsRecalculator,
	formats *domain.FormatCatalog,
	logger *logging.Logger,
	m *metrics.Metrics,
) *TrackingService {
	return &TrackingService{
		shipmentRepo: shipmentRepo,
		detailRepo:   detailRepo,
		recalculator: recalculator,
		formats:      formats,
		logger:       logger,
		metrics:      m,
	}
}

// CreateShipment creates a new shipment with zeroed totals
func (s *TrackingService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (*ShipmentDTO, error) {
	existing, err := s.shipmentRepo.FindByID(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check shipment: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrConflict(fmt.Sprintf("shipment already exists: %s", cmd.ShipmentID))
	}

	shipment, err := domain.NewShipment(cmd.ShipmentID, cmd.Reference, cmd.CarrierCode, cmd.OriginCode, cmd.DestinationCode)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.shipmentRepo.Save(ctx, shipment); err != nil {
		s.logger.WithError(err).Error("Failed to create shipment", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to create shipment: %w", err)
	}

	s.logger.Info("Created shipment", "shipmentId", cmd.ShipmentID, "reference", cmd.Reference)
	return ToShipmentDTO(shipment), nil
}

// GetShipment retrieves a shipment by ID
func (s *TrackingService) GetShipment(ctx context.Context, query GetShipmentQuery) (*ShipmentDTO, error) {
	shipment, err := s.shipmentRepo.FindByID(ctx, query.ShipmentID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get shipment", "shipmentId", query.ShipmentID)
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return nil, apperrors.ErrNotFoundWithID("shipment", query.ShipmentID)
	}
	return ToShipmentDTO(shipment), nil
}

// ListShipments retrieves shipments, newest first
func (s *TrackingService) ListShipments(ctx context.Context, query ListShipmentsQuery) ([]*ShipmentDTO, error) {
	shipments, err := s.shipmentRepo.FindAll(ctx, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}

	dtos := make([]*ShipmentDTO, 0, len(shipments))
	for _, shipment := range shipments {
		dtos = append(dtos, ToShipmentDTO(shipment))
	}
	return dtos, nil
}

// DeleteShipment removes a shipment. Deletion is rejected while the shipment
// still owns details; callers must batch-delete the details first.
func (s *TrackingService) DeleteShipment(ctx context.Context, shipmentID string) error {
	if shipmentID == "" {
		return apperrors.ErrValidation(domain.ErrMissingShipmentID.Error())
	}

	shipment, err := s.shipmentRepo.FindByID(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return apperrors.ErrNotFoundWithID("shipment", shipmentID)
	}

	count, err := s.detailRepo.CountByShipment(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("failed to count details: %w", err)
	}
	if count > 0 {
		return apperrors.ErrReferentialIntegrity(
			fmt.Sprintf("shipment %s still has %d details", shipmentID, count),
		).WithDetail("shipmentId", shipmentID)
	}

	if err := s.shipmentRepo.Delete(ctx, shipmentID); err != nil {
		s.logger.WithError(err).Error("Failed to delete shipment", "shipmentId", shipmentID)
		return fmt.Errorf("failed to delete shipment: %w", err)
	}

	s.logger.Info("Deleted shipment", "shipmentId", shipmentID)
	return nil
}

// AddDetail adds a new detail to a shipment and recalculates the totals
func (s *TrackingService) AddDetail(ctx context.Context, cmd AddDetailCommand) (*MutationResultDTO, error) {
	if cmd.ShipmentID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingShipmentID.Error())
	}
	if err := s.validateServiceID(cmd.ServiceID); err != nil {
		return nil, err
	}

	shipment, err := s.shipmentRepo.FindByID(ctx, cmd.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return nil, apperrors.ErrNotFoundWithID("shipment", cmd.ShipmentID)
	}

	detail, err := domain.NewDetail(
		uuid.New().String(),
		cmd.ShipmentID,
		cmd.Pallets,
		cmd.Bags,
		cmd.GrossWeight,
		cmd.TareWeight,
		cmd.CustomerID,
		cmd.ServiceID,
		cmd.FormatID,
	)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	if err := s.detailRepo.Insert(ctx, detail); err != nil {
		s.metrics.RecordDetailMutation("add", false)
		s.logger.WithError(err).Error("Failed to insert detail", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to insert detail: %w", err)
	}
	s.metrics.RecordDetailMutation("add", true)

	result := &MutationResultDTO{Detail: ToDetailDTO(detail)}
	s.recalculateInto(ctx, "add", cmd.ShipmentID, result)
	return result, nil
}

// UpdateDetail applies a partial update to an existing detail and
// recalculates the totals. When either weight changes the stored detail is
// merged with the new values so the net weight is rederived.
func (s *TrackingService) UpdateDetail(ctx context.Context, cmd UpdateDetailCommand) (*MutationResultDTO, error) {
	if cmd.DetailID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingDetailID.Error())
	}
	if cmd.ServiceID != nil {
		if err := s.validateServiceID(*cmd.ServiceID); err != nil {
			return nil, err
		}
	}

	detail, err := s.detailRepo.FindByID(ctx, cmd.DetailID)
	if err != nil {
		return nil, fmt.Errorf("failed to get detail: %w", err)
	}
	if detail == nil {
		return nil, apperrors.ErrNotFoundWithID("detail", cmd.DetailID)
	}

	if cmd.Pallets != nil {
		detail.Pallets = *cmd.Pallets
	}
	if cmd.Bags != nil {
		detail.Bags = *cmd.Bags
	}
	if detail.Pallets < 0 || detail.Bags < 0 {
		return nil, apperrors.ErrValidation(domain.ErrNegativeQuantity.Error())
	}
	if detail.Pallets > 0 && detail.Bags > 0 {
		return nil, apperrors.ErrValidation(domain.ErrMixedQuantityMode.Error())
	}
	if cmd.CustomerID != nil {
		detail.CustomerID = *cmd.CustomerID
	}
	if cmd.ServiceID != nil {
		detail.ServiceID = *cmd.ServiceID
	}
	if cmd.FormatID != nil {
		detail.FormatID = *cmd.FormatID
	}

	if cmd.GrossWeight != nil || cmd.TareWeight != nil {
		gross := detail.GrossWeight
		tare := detail.TareWeight
		if cmd.GrossWeight != nil {
			gross = *cmd.GrossWeight
		}
		if cmd.TareWeight != nil {
			tare = *cmd.TareWeight
		}
		if err := detail.ApplyWeights(gross, tare); err != nil {
			return nil, apperrors.ErrValidation(err.Error())
		}
	}

	if err := s.detailRepo.Update(ctx, detail); err != nil {
		s.metrics.RecordDetailMutation("update", false)
		s.logger.WithError(err).Error("Failed to update detail", "detailId", cmd.DetailID)
		return nil, fmt.Errorf("failed to update detail: %w", err)
	}
	s.metrics.RecordDetailMutation("update", true)

	result := &MutationResultDTO{Detail: ToDetailDTO(detail)}
	s.recalculateInto(ctx, "update", detail.ShipmentID, result)
	return result, nil
}

// DeleteDetail removes a single detail and recalculates the totals
func (s *TrackingService) DeleteDetail(ctx context.Context, cmd DeleteDetailCommand) (*MutationResultDTO, error) {
	if cmd.ShipmentID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingShipmentID.Error())
	}
	if cmd.DetailID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingDetailID.Error())
	}

	deleted, err := s.detailRepo.Delete(ctx, cmd.ShipmentID, cmd.DetailID)
	if err != nil {
		s.metrics.RecordDetailMutation("delete", false)
		s.logger.WithError(err).Error("Failed to delete detail", "detailId", cmd.DetailID)
		return nil, fmt.Errorf("failed to delete detail: %w", err)
	}
	if deleted == 0 {
		return nil, apperrors.ErrNotFoundWithID("detail", cmd.DetailID)
	}
	s.metrics.RecordDetailMutation("delete", true)

	result := &MutationResultDTO{Deleted: deleted}
	s.recalculateInto(ctx, "delete", cmd.ShipmentID, result)
	return result, nil
}

// BatchDeleteDetails removes a set of details for one shipment in a single
// multi-delete and recalculates the totals exactly once.
func (s *TrackingService) BatchDeleteDetails(ctx context.Context, cmd BatchDeleteDetailsCommand) (*MutationResultDTO, error) {
	if cmd.ShipmentID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingShipmentID.Error())
	}
	if len(cmd.DetailIDs) == 0 {
		return nil, apperrors.ErrValidation("detail ids are required")
	}

	deleted, err := s.detailRepo.DeleteBatch(ctx, cmd.ShipmentID, cmd.DetailIDs)
	if err != nil {
		s.metrics.RecordDetailMutation("batch-delete", false)
		s.logger.WithError(err).Error("Failed to batch delete details", "shipmentId", cmd.ShipmentID)
		return nil, fmt.Errorf("failed to batch delete details: %w", err)
	}
	s.metrics.RecordDetailMutation("batch-delete", true)

	result := &MutationResultDTO{Deleted: deleted}
	s.recalculateInto(ctx, "batch-delete", cmd.ShipmentID, result)
	return result, nil
}

// ListShipmentDetails returns every detail of a shipment in creation order
func (s *TrackingService) ListShipmentDetails(ctx context.Context, query ListDetailsQuery) ([]*DetailDTO, error) {
	if query.ShipmentID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingShipmentID.Error())
	}

	shipment, err := s.shipmentRepo.FindByID(ctx, query.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	if shipment == nil {
		return nil, apperrors.ErrNotFoundWithID("shipment", query.ShipmentID)
	}

	details, err := s.detailRepo.ListByShipment(ctx, query.ShipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list details: %w", err)
	}
	return ToDetailDTOs(details), nil
}

// ForceRecalculate rebuilds a shipment's totals on demand, e.g. after the
// primary customer group configuration changed.
func (s *TrackingService) ForceRecalculate(ctx context.Context, shipmentID string) (*TotalsDTO, error) {
	if shipmentID == "" {
		return nil, apperrors.ErrValidation(domain.ErrMissingShipmentID.Error())
	}

	totals, err := s.recalculator.Recalculate(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	dto := ToTotalsDTO(totals)
	return &dto, nil
}

// recalculateInto runs the awaited recalculation for a mutation and fills
// the result. A failed pass after a committed detail write is a partial
// success: the mutation stands, the totals are flagged stale, and the
// caller surfaces the warning instead of an error.
func (s *TrackingService) recalculateInto(ctx context.Context, operation, shipmentID string, result *MutationResultDTO) {
	totals, err := s.recalculator.Recalculate(ctx, shipmentID)
	if err != nil {
		s.metrics.RecordStaleTotals(operation)
		s.logger.WithError(err).Warn("Detail mutation committed but totals recalculation failed",
			"operation", operation,
			"shipmentId", shipmentID,
		)
		result.TotalsStale = true
		result.Warning = fmt.Sprintf("detail %s saved but shipment totals may be out of date", operation)
		return
	}

	dto := ToTotalsDTO(totals)
	result.Totals = &dto
}

func (s *TrackingService) validateServiceID(serviceID string) error {
	if serviceID == "" || s.formats == nil || s.formats.Services() == 0 {
		return nil
	}
	if _, ok := s.formats.CollectionFor(serviceID); !ok {
		return apperrors.ErrValidation(fmt.Sprintf("unknown service id: %s", serviceID)).
			WithDetail("serviceId", serviceID)
	}
	return nil
}
