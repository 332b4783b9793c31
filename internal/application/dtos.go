package application

import "time"

// TotalsDTO represents a shipment's rollup fields in responses
type TotalsDTO struct {
	TotalPallets int     `json:"totalPallets"`
	TotalBags    int     `json:"totalBags"`
	TotalGross   float64 `json:"totalGross"`
	TotalTare    float64 `json:"totalTare"`
	TotalNet     float64 `json:"totalNet"`
	PrimaryGross float64 `json:"primaryGross"`
	PrimaryTare  float64 `json:"primaryTare"`
	PrimaryNet   float64 `json:"primaryNet"`
}

// ShipmentDTO represents a shipment in responses
type ShipmentDTO struct {
	ShipmentID      string    `json:"shipmentId"`
	Reference       string    `json:"reference"`
	CarrierCode     string    `json:"carrierCode"`
	OriginCode      string    `json:"originCode,omitempty"`
	DestinationCode string    `json:"destinationCode,omitempty"`
	Totals          TotalsDTO `json:"totals"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DetailDTO represents a detail in responses
type DetailDTO struct {
	DetailID    string    `json:"detailId"`
	ShipmentID  string    `json:"shipmentId"`
	Pallets     int       `json:"pallets"`
	Bags        int       `json:"bags"`
	GrossWeight float64   `json:"grossWeight"`
	TareWeight  float64   `json:"tareWeight"`
	NetWeight   float64   `json:"netWeight"`
	CustomerID  string    `json:"customerId"`
	ServiceID   string    `json:"serviceId"`
	FormatID    string    `json:"formatId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MutationResultDTO is returned by every detail mutation. When the detail
// write committed but the totals recalculation failed, TotalsStale is true,
// Totals is nil, and Warning carries the partial-failure message.
type MutationResultDTO struct {
	Detail      *DetailDTO `json:"detail,omitempty"`
	Deleted     int64      `json:"deleted,omitempty"`
	Totals      *TotalsDTO `json:"totals,omitempty"`
	TotalsStale bool       `json:"totalsStale"`
	Warning     string     `json:"warning,omitempty"`
}
