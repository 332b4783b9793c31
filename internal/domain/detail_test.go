package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetWeight(t *testing.T) {
	tests := []struct {
		name  string
		gross float64
		tare  float64
		want  float64
	}{
		{"simple", 10.000, 2.000, 8.000},
		{"three decimals", 0.500, 0.125, 0.375},
		{"rounds half up", 1.0005, 0.0, 1.001},
		{"zero", 0, 0, 0},
		{"negative result passes through", 1.000, 2.500, -1.500},
		{"float noise", 0.3, 0.1, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NetWeight(tt.gross, tt.tare))
		})
	}
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.235, Round3(1.2345))
	assert.Equal(t, 1.234, Round3(1.2344))
	assert.Equal(t, 0.0, Round3(0))
	assert.Equal(t, -1.235, Round3(-1.2345))
}

func TestNewDetail(t *testing.T) {
	detail, err := NewDetail("DET-001", "SHIP-001", 3, 0, 10.000, 2.000, "CUST-A", "SVC-1", "FMT-1")
	require.NoError(t, err)

	assert.Equal(t, "DET-001", detail.DetailID)
	assert.Equal(t, "SHIP-001", detail.ShipmentID)
	assert.Equal(t, 3, detail.Pallets)
	assert.Equal(t, 0, detail.Bags)
	assert.Equal(t, 10.000, detail.GrossWeight)
	assert.Equal(t, 2.000, detail.TareWeight)
	assert.Equal(t, 8.000, detail.NetWeight)
	assert.Equal(t, "CUST-A", detail.CustomerID)
	assert.NotZero(t, detail.CreatedAt)
	assert.Equal(t, detail.CreatedAt, detail.UpdatedAt)
}

func TestNewDetailValidation(t *testing.T) {
	tests := []struct {
		name       string
		detailID   string
		shipmentID string
		pallets    int
		bags       int
		gross      float64
		tare       float64
		wantErr    error
	}{
		{"missing shipment id", "DET-001", "", 1, 0, 1, 0, ErrMissingShipmentID},
		{"missing detail id", "", "SHIP-001", 1, 0, 1, 0, ErrMissingDetailID},
		{"negative pallets", "DET-001", "SHIP-001", -1, 0, 1, 0, ErrNegativeQuantity},
		{"negative bags", "DET-001", "SHIP-001", 0, -2, 1, 0, ErrNegativeQuantity},
		{"both pallets and bags", "DET-001", "SHIP-001", 1, 1, 1, 0, ErrMixedQuantityMode},
		{"negative gross", "DET-001", "SHIP-001", 1, 0, -0.5, 0, ErrNegativeWeight},
		{"negative tare", "DET-001", "SHIP-001", 1, 0, 1, -0.5, ErrNegativeWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetail(tt.detailID, tt.shipmentID, tt.pallets, tt.bags, tt.gross, tt.tare, "C", "S", "F")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyWeights(t *testing.T) {
	detail, err := NewDetail("DET-001", "SHIP-001", 1, 0, 10.000, 2.000, "CUST-A", "SVC-1", "FMT-1")
	require.NoError(t, err)
	created := detail.CreatedAt

	err = detail.ApplyWeights(5.500, 1.250)
	require.NoError(t, err)
	assert.Equal(t, 5.500, detail.GrossWeight)
	assert.Equal(t, 1.250, detail.TareWeight)
	assert.Equal(t, 4.250, detail.NetWeight)
	assert.Equal(t, created, detail.CreatedAt)

	err = detail.ApplyWeights(-1, 0)
	assert.ErrorIs(t, err, ErrNegativeWeight)
}
