package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatCatalog(t *testing.T) {
	catalog, err := ParseFormatCatalog("SVC-STD=standard, SVC-BULK=bulk,SVC-EXP=express")
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.Services())

	fc, ok := catalog.CollectionFor("SVC-BULK")
	require.True(t, ok)
	assert.Equal(t, FormatCollectionBulk, fc)

	_, ok = catalog.CollectionFor("SVC-UNKNOWN")
	assert.False(t, ok)
}

func TestParseFormatCatalogEmpty(t *testing.T) {
	catalog, err := ParseFormatCatalog("")
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Services())
}

func TestParseFormatCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"missing separator", "SVC-STD"},
		{"empty service id", "=standard"},
		{"unknown collection", "SVC-STD=fancy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFormatCatalog(tt.spec)
			assert.Error(t, err)
		})
	}
}
