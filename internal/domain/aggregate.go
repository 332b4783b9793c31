package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Totals holds the derived rollup fields for a shipment. Totals are never
// edited directly: they are fully replaced by a recalculation pass over the
// shipment's current details.
type Totals struct {
	TotalPallets int     `bson:"totalPallets" json:"totalPallets"`
	TotalBags    int     `bson:"totalBags" json:"totalBags"`
	TotalGross   float64 `bson:"totalGross" json:"totalGross"`
	TotalTare    float64 `bson:"totalTare" json:"totalTare"`
	TotalNet     float64 `bson:"totalNet" json:"totalNet"`
	PrimaryGross float64 `bson:"primaryGross" json:"primaryGross"`
	PrimaryTare  float64 `bson:"primaryTare" json:"primaryTare"`
	PrimaryNet   float64 `bson:"primaryNet" json:"primaryNet"`
}

// IsZero reports whether every rollup field is zero.
func (t Totals) IsZero() bool {
	return t == Totals{}
}

// Shipment is the aggregate root of the tracking bounded context. The Totals
// subdocument is mutated exclusively by the recalculation engine.
type Shipment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ShipmentID      string             `bson:"shipmentId"`
	Reference       string             `bson:"reference"`
	CarrierCode     string             `bson:"carrierCode"`
	OriginCode      string             `bson:"originCode,omitempty"`
	DestinationCode string             `bson:"destinationCode,omitempty"`
	Totals          Totals             `bson:"totals"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
	DomainEvents    []DomainEvent      `bson:"-"`
}

// NewShipment creates a new Shipment aggregate with zeroed totals.
func NewShipment(shipmentID, reference, carrierCode, originCode, destinationCode string) (*Shipment, error) {
	if shipmentID == "" {
		return nil, ErrMissingShipmentID
	}

	now := time.Now().UTC()
	s := &Shipment{
		ShipmentID:      shipmentID,
		Reference:       reference,
		CarrierCode:     carrierCode,
		OriginCode:      originCode,
		DestinationCode: destinationCode,
		Totals:          Totals{},
		CreatedAt:       now,
		UpdatedAt:       now,
		DomainEvents:    make([]DomainEvent, 0),
	}

	s.AddDomainEvent(&ShipmentCreatedEvent{
		ShipmentID: shipmentID,
		Reference:  reference,
		CreatedAt:  now,
	})

	return s, nil
}

// AddDomainEvent adds a domain event
func (s *Shipment) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *Shipment) ClearDomainEvents() {
	s.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (s *Shipment) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

// ComputeTotals rebuilds the full rollup from the current detail set. Stored
// net weights are ignored; each detail's net contribution is rederived from
// gross and tare. Weight sums are accumulated exactly and rounded to 3 decimal
// places once, after the final sum, so no per-item rounding error compounds.
func ComputeTotals(details []*Detail, classifier *CustomerClassifier) Totals {
	var totals Totals
	var gross, tare, net decimal.Decimal
	var pGross, pTare, pNet decimal.Decimal

	for _, d := range details {
		g := decimal.NewFromFloat(d.GrossWeight)
		t := decimal.NewFromFloat(d.TareWeight)
		n := g.Sub(t)

		totals.TotalPallets += d.Pallets
		totals.TotalBags += d.Bags
		gross = gross.Add(g)
		tare = tare.Add(t)
		net = net.Add(n)

		if classifier.IsPrimary(d.CustomerID) {
			pGross = pGross.Add(g)
			pTare = pTare.Add(t)
			pNet = pNet.Add(n)
		}
	}

	totals.TotalGross = gross.Round(3).InexactFloat64()
	totals.TotalTare = tare.Round(3).InexactFloat64()
	totals.TotalNet = net.Round(3).InexactFloat64()
	totals.PrimaryGross = pGross.Round(3).InexactFloat64()
	totals.PrimaryTare = pTare.Round(3).InexactFloat64()
	totals.PrimaryNet = pNet.Round(3).InexactFloat64()

	return totals
}
