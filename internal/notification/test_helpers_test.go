package notification

import (
	"testing"

	"github.com/fernwick/speciarium/internal/errors"
)

// testEnhancedError builds an enhanced error with the given category.
func testEnhancedError(t *testing.T, category string) error {
	t.Helper()

	var cat errors.ErrorCategory
	switch category {
	case "database":
		cat = errors.CategoryDatabase
	case "validation":
		cat = errors.CategoryValidation
	case "network":
		cat = errors.CategoryNetwork
	default:
		cat = errors.CategoryGeneric
	}

	return errors.Newf("test failure").
		Component("datastore").
		Category(cat).
		Build()
}
