package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	orgID := uuid.New()

	t.Run("creates product with valid input", func(t *testing.T) {
		product, err := NewProduct(orgID, "WIDGET-001", "Blue Widget")
		require.NoError(t, err)
		require.NotNil(t, product)

		assert.NotEqual(t, uuid.Nil, product.ID)
		assert.Equal(t, orgID, product.OrganizationID)
		assert.Equal(t, "WIDGET-001", product.SKU)
		assert.Equal(t, "Blue Widget", product.Name)
		assert.Equal(t, ProductStatusActive, product.Status)

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeProductCreated, events[0].EventType())
	})

	t.Run("fails with empty SKU", func(t *testing.T) {
		product, err := NewProduct(orgID, "", "Blue Widget")
		assert.Nil(t, product)
		assert.Error(t, err)
	})

	t.Run("fails with SKU shorter than 3 characters", func(t *testing.T) {
		product, err := NewProduct(orgID, "AB", "Blue Widget")
		assert.Nil(t, product)
		assert.Error(t, err)
	})

	t.Run("fails with SKU containing invalid characters", func(t *testing.T) {
		product, err := NewProduct(orgID, "SKU_001", "Blue Widget")
		assert.Nil(t, product)
		assert.Error(t, err)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		product, err := NewProduct(orgID, "WIDGET-001", "  ")
		assert.Nil(t, product)
		assert.Error(t, err)
	})
}

func TestValidateSKU(t *testing.T) {
	t.Run("accepts alphanumerics and hyphens", func(t *testing.T) {
		assert.NoError(t, ValidateSKU("ABC-123-xyz"))
		assert.NoError(t, ValidateSKU("000"))
	})

	t.Run("rejects out-of-range lengths", func(t *testing.T) {
		assert.Error(t, ValidateSKU("AB"))

		long := make([]byte, 101)
		for i := range long {
			long[i] = 'A'
		}
		assert.Error(t, ValidateSKU(string(long)))
	})

	t.Run("rejects spaces and underscores", func(t *testing.T) {
		assert.Error(t, ValidateSKU("SKU 001"))
		assert.Error(t, ValidateSKU("SKU_001"))
	})
}

func TestProductStatusTransitions(t *testing.T) {
	orgID := uuid.New()

	t.Run("deactivate then activate", func(t *testing.T) {
		product, err := NewProduct(orgID, "WIDGET-001", "Blue Widget")
		require.NoError(t, err)
		product.ClearDomainEvents()

		product.Deactivate()
		assert.Equal(t, ProductStatusInactive, product.Status)
		assert.False(t, product.IsActive())

		product.Activate()
		assert.Equal(t, ProductStatusActive, product.Status)
		assert.True(t, product.IsActive())

		events := product.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeProductStatusChanged, events[0].EventType())
	})

	t.Run("deactivate is idempotent", func(t *testing.T) {
		product, err := NewProduct(orgID, "WIDGET-002", "Red Widget")
		require.NoError(t, err)
		product.ClearDomainEvents()

		product.Deactivate()
		version := product.Version
		product.Deactivate()
		assert.Equal(t, version, product.Version)
		assert.Len(t, product.GetDomainEvents(), 1)
	})
}
