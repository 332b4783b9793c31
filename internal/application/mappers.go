package application

import "github.com/shiptrack-platform/tracking-service/internal/domain"

// ToTotalsDTO converts domain totals to a DTO
func ToTotalsDTO(t domain.Totals) TotalsDTO {
	return TotalsDTO{
		TotalPallets: t.TotalPallets,
		TotalBags:    t.TotalBags,
		TotalGross:   t.TotalGross,
		TotalTare:    t.TotalTare,
		TotalNet:     t.TotalNet,
		PrimaryGross: t.PrimaryGross,
		PrimaryTare:  t.PrimaryTare,
		PrimaryNet:   t.PrimaryNet,
	}
}

// ToShipmentDTO converts a domain shipment to a DTO
func ToShipmentDTO(s *domain.Shipment) *ShipmentDTO {
	return &ShipmentDTO{
		ShipmentID:      s.ShipmentID,
		Reference:       s.Reference,
		CarrierCode:     s.CarrierCode,
		OriginCode:      s.OriginCode,
		DestinationCode: s.DestinationCode,
		Totals:          ToTotalsDTO(s.Totals),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// ToDetailDTO converts a domain detail to a DTO
func ToDetailDTO(d *domain.Detail) *DetailDTO {
	return &DetailDTO{
		DetailID:    d.DetailID,
		ShipmentID:  d.ShipmentID,
		Pallets:     d.Pallets,
		Bags:        d.Bags,
		GrossWeight: d.GrossWeight,
		TareWeight:  d.TareWeight,
		NetWeight:   d.NetWeight,
		CustomerID:  d.CustomerID,
		ServiceID:   d.ServiceID,
		FormatID:    d.FormatID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ToDetailDTOs converts a slice of domain details to DTOs
func ToDetailDTOs(details []*domain.Detail) []*DetailDTO {
	dtos := make([]*DetailDTO, 0, len(details))
	for _, d := range details {
		dtos = append(dtos, ToDetailDTO(d))
	}
	return dtos
}
