package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrMissingShipmentID = errors.New("shipment id is required")
	ErrMissingDetailID   = errors.New("detail id is required")
	ErrNegativeQuantity  = errors.New("pallet and bag counts must be non-negative")
	ErrNegativeWeight    = errors.New("gross and tare weights must be non-negative")
	ErrMixedQuantityMode = errors.New("detail cannot carry both pallets and bags")
)

// Detail is one line item of a shipment. A detail belongs to exactly one
// shipment for its entire lifetime.
type Detail struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	DetailID    string             `bson:"detailId"`
	ShipmentID  string             `bson:"shipmentId"`
	Pallets     int                `bson:"pallets"`
	Bags        int                `bson:"bags"`
	GrossWeight float64            `bson:"grossWeight"`
	TareWeight  float64            `bson:"tareWeight"`
	// NetWeight is stored for fast reads but is a cache: it is recomputed
	// from gross and tare on every aggregation pass.
	NetWeight  float64   `bson:"netWeight"`
	CustomerID string    `bson:"customerId"`
	ServiceID  string    `bson:"serviceId"`
	FormatID   string    `bson:"formatId"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

// Round3 rounds a weight to 3 decimal places using half-up rounding.
func Round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}

// NetWeight derives a line item's net weight as round3(gross - tare).
// Negative results are passed through; net weight is never clamped to zero.
func NetWeight(gross, tare float64) float64 {
	return decimal.NewFromFloat(gross).Sub(decimal.NewFromFloat(tare)).Round(3).InexactFloat64()
}

// NewDetail creates a new Detail for a shipment. Weights are normalized to
// 3 decimal places and the net weight is derived from gross and tare.
func NewDetail(detailID, shipmentID string, pallets, bags int, gross, tare float64, customerID, serviceID, formatID string) (*Detail, error) {
	if shipmentID == "" {
		return nil, ErrMissingShipmentID
	}
	if detailID == "" {
		return nil, ErrMissingDetailID
	}
	if pallets < 0 || bags < 0 {
		return nil, ErrNegativeQuantity
	}
	if pallets > 0 && bags > 0 {
		return nil, ErrMixedQuantityMode
	}
	if gross < 0 || tare < 0 {
		return nil, ErrNegativeWeight
	}

	now := time.Now().UTC()
	return &Detail{
		DetailID:    detailID,
		ShipmentID:  shipmentID,
		Pallets:     pallets,
		Bags:        bags,
		GrossWeight: Round3(gross),
		TareWeight:  Round3(tare),
		NetWeight:   NetWeight(gross, tare),
		CustomerID:  customerID,
		ServiceID:   serviceID,
		FormatID:    formatID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyWeights replaces gross and tare and rederives the net weight.
func (d *Detail) ApplyWeights(gross, tare float64) error {
	if gross < 0 || tare < 0 {
		return ErrNegativeWeight
	}
	d.GrossWeight = Round3(gross)
	d.TareWeight = Round3(tare)
	d.NetWeight = NetWeight(gross, tare)
	d.UpdatedAt = time.Now().UTC()
	return nil
}
