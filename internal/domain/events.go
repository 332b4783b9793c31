package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// ShipmentCreatedEvent is published when a shipment is created
type ShipmentCreatedEvent struct {
	ShipmentID string    `json:"shipmentId"`
	Reference  string    `json:"reference"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (e *ShipmentCreatedEvent) EventType() string     { return "tracking.shipment-created" }
func (e *ShipmentCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// ShipmentDeletedEvent is published when an empty shipment is deleted
type ShipmentDeletedEvent struct {
	ShipmentID string    `json:"shipmentId"`
	DeletedAt  time.Time `json:"deletedAt"`
}

func (e *ShipmentDeletedEvent) EventType() string     { return "tracking.shipment-deleted" }
func (e *ShipmentDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }

// DetailAddedEvent is published when a detail is added to a shipment
type DetailAddedEvent struct {
	DetailID   string    `json:"detailId"`
	ShipmentID string    `json:"shipmentId"`
	CustomerID string    `json:"customerId"`
	NetWeight  float64   `json:"netWeight"`
	AddedAt    time.Time `json:"addedAt"`
}

func (e *DetailAddedEvent) EventType() string     { return "tracking.detail-added" }
func (e *DetailAddedEvent) OccurredAt() time.Time { return e.AddedAt }

// DetailUpdatedEvent is published when a detail is updated
type DetailUpdatedEvent struct {
	DetailID   string    `json:"detailId"`
	ShipmentID string    `json:"shipmentId"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (e *DetailUpdatedEvent) EventType() string     { return "tracking.detail-updated" }
func (e *DetailUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// DetailsDeletedEvent is published when one or more details are removed
type DetailsDeletedEvent struct {
	ShipmentID string    `json:"shipmentId"`
	DetailIDs  []string  `json:"detailIds"`
	DeletedAt  time.Time `json:"deletedAt"`
}

func (e *DetailsDeletedEvent) EventType() string     { return "tracking.details-deleted" }
func (e *DetailsDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }

// TotalsRecalculatedEvent is published after a successful recalculation pass
type TotalsRecalculatedEvent struct {
	ShipmentID     string    `json:"shipmentId"`
	Totals         Totals    `json:"totals"`
	DetailCount    int       `json:"detailCount"`
	RecalculatedAt time.Time `json:"recalculatedAt"`
}

func (e *TotalsRecalculatedEvent) EventType() string     { return "tracking.totals-recalculated" }
func (e *TotalsRecalculatedEvent) OccurredAt() time.Time { return e.RecalculatedAt }
