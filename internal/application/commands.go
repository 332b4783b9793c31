package application

// CreateShipmentCommand represents the command to create a new shipment
type CreateShipmentCommand struct {
	ShipmentID      string
	Reference       string
	CarrierCode     string
	OriginCode      string
	DestinationCode string
}

// AddDetailCommand represents the command to add a detail to a shipment
type AddDetailCommand struct {
	ShipmentID  string
	Pallets     int
	Bags        int
	GrossWeight float64
	TareWeight  float64
	CustomerID  string
	ServiceID   string
	FormatID    string
}

// UpdateDetailCommand represents a partial update of an existing detail.
// Nil fields are left unchanged; if either weight changes the current detail
// is fetched and merged so the net weight can be rederived.
type UpdateDetailCommand struct {
	DetailID    string
	Pallets     *int
	Bags        *int
	GrossWeight *float64
	TareWeight  *float64
	CustomerID  *string
	ServiceID   *string
	FormatID    *string
}

// DeleteDetailCommand represents the command to delete a single detail
type DeleteDetailCommand struct {
	ShipmentID string
	DetailID   string
}

// BatchDeleteDetailsCommand removes a set of details from one shipment in a
// single multi-delete; totals are recalculated exactly once afterward.
type BatchDeleteDetailsCommand struct {
	ShipmentID string
	DetailIDs  []string
}

// GetShipmentQuery represents the query to get a shipment by ID
type GetShipmentQuery struct {
	ShipmentID string
}

// ListShipmentsQuery represents the query to list shipments
type ListShipmentsQuery struct {
	Limit int64
}

// ListDetailsQuery represents the query to list a shipment's details
type ListDetailsQuery struct {
	ShipmentID string
}
