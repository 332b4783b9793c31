package domain

import (
	"fmt"
	"strings"
)

// FormatCollection tags the collection of document formats a service renders
// with. Details carry opaque format ids; the catalog only tells rendering
// collaborators which collection those ids live in.
type FormatCollection string

const (
	FormatCollectionStandard FormatCollection = "standard"
	FormatCollectionBulk     FormatCollection = "bulk"
	FormatCollectionExpress  FormatCollection = "express"
)

var knownFormatCollections = map[FormatCollection]bool{
	FormatCollectionStandard: true,
	FormatCollectionBulk:     true,
	FormatCollectionExpress:  true,
}

// FormatCatalog maps known service identifiers to their format collection.
// The catalog is built once at startup from configuration; lookups at request
// time never fail into ad-hoc resolution.
type FormatCatalog struct {
	byService map[string]FormatCollection
}

// ParseFormatCatalog builds a catalog from comma-separated
// "serviceId=collection" pairs. Unknown collection tags are a load error.
func ParseFormatCatalog(spec string) (*FormatCatalog, error) {
	byService := make(map[string]FormatCollection)

	if strings.TrimSpace(spec) == "" {
		return &FormatCatalog{byService: byService}, nil
	}

	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		serviceID, collection, ok := strings.Cut(pair, "=")
		if !ok || serviceID == "" {
			return nil, fmt.Errorf("invalid format mapping %q, want serviceId=collection", pair)
		}
		fc := FormatCollection(collection)
		if !knownFormatCollections[fc] {
			return nil, fmt.Errorf("unknown format collection %q for service %q", collection, serviceID)
		}
		byService[serviceID] = fc
	}

	return &FormatCatalog{byService: byService}, nil
}

// CollectionFor resolves the format collection for a service identifier.
func (c *FormatCatalog) CollectionFor(serviceID string) (FormatCollection, bool) {
	fc, ok := c.byService[serviceID]
	return fc, ok
}

// Services returns the number of mapped service identifiers.
func (c *FormatCatalog) Services() int {
	return len(c.byService)
}
