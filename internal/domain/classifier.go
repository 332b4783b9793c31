package domain

// CustomerClassifier decides whether a detail belongs to the tracked primary
// customer group. The group identifier is fixed at construction; changing it
// requires a restart followed by a forced recalculation of affected shipments.
type CustomerClassifier struct {
	primaryGroupID string
}

// NewCustomerClassifier creates a classifier for the given primary group id.
func NewCustomerClassifier(primaryGroupID string) *CustomerClassifier {
	return &CustomerClassifier{primaryGroupID: primaryGroupID}
}

// IsPrimary reports whether the customer identifier belongs to the primary
// group. The comparison is a case-sensitive exact match on the raw identifier,
// not on the display label resolved by the lookup service.
func (c *CustomerClassifier) IsPrimary(customerID string) bool {
	return c.primaryGroupID != "" && customerID == c.primaryGroupID
}

// PrimaryGroupID returns the configured primary group identifier.
func (c *CustomerClassifier) PrimaryGroupID() string {
	return c.primaryGroupID
}
