package domain

import "context"

// ShipmentRepository defines the interface for shipment persistence
type ShipmentRepository interface {
	Save(ctx context.Context, shipment *Shipment) error
	FindByID(ctx context.Context, shipmentID string) (*Shipment, error)
	FindAll(ctx context.Context, limit int64) ([]*Shipment, error)
	Delete(ctx context.Context, shipmentID string) error
}

// DetailRepository defines the interface for detail persistence. ListByShipment
// returns the full child collection in creation order with no pagination.
type DetailRepository interface {
	Insert(ctx context.Context, detail *Detail) error
	Update(ctx context.Context, detail *Detail) error
	FindByID(ctx context.Context, detailID string) (*Detail, error)
	ListByShipment(ctx context.Context, shipmentID string) ([]*Detail, error)
	CountByShipment(ctx context.Context, shipmentID string) (int64, error)
	Delete(ctx context.Context, shipmentID, detailID string) (int64, error)
	DeleteBatch(ctx context.Context, shipmentID string, detailIDs []string) (int64, error)
}

// TotalsRecalculator rebuilds a shipment's totals from its current details
// inside a single store transaction.
type TotalsRecalculator interface {
	Recalculate(ctx context.Context, shipmentID string) (Totals, error)
}
