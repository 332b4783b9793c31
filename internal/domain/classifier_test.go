package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Matching is by raw identifier and case-sensitive.
func TestCustomerClassifier(t *testing.T) {
	classifier := NewCustomerClassifier("CUST-PRIMARY")

	assert.True(t, classifier.IsPrimary("CUST-PRIMARY"))
	assert.False(t, classifier.IsPrimary("cust-primary"))
	assert.False(t, classifier.IsPrimary("CUST-OTHER"))
	assert.False(t, classifier.IsPrimary(""))
	assert.Equal(t, "CUST-PRIMARY", classifier.PrimaryGroupID())
}

func TestCustomerClassifierEmptyGroup(t *testing.T) {
	classifier := NewCustomerClassifier("")

	// With no configured group, nothing is primary, not even empty ids.
	assert.False(t, classifier.IsPrimary(""))
	assert.False(t, classifier.IsPrimary("CUST-A"))
}
