package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/fulfillment/backend/internal/domain/catalog"
	"github.com/fulfillment/backend/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCodes(result *ValidationResult) []string {
	codes := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestValidationService_ValidateFormat(t *testing.T) {
	service := NewValidationService(newFakeProductRepo(), newFakeWarehouseRepo())

	tests := []struct {
		name   string
		record InventoryRecord
		codes  []string
	}{
		{
			name:   "valid record passes",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: "WIDGET-1", Quantity: 100},
		},
		{
			name:   "missing sku",
			record: InventoryRecord{WarehouseID: uuid.New(), Quantity: 1},
			codes:  []string{"MISSING_SKU"},
		},
		{
			name:   "sku too short",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: "AB", Quantity: 1},
			codes:  []string{"INVALID_SKU"},
		},
		{
			name:   "sku with illegal characters",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: "WIDGET 1!", Quantity: 1},
			codes:  []string{"INVALID_SKU"},
		},
		{
			name:   "sku at maximum length passes",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: strings.Repeat("A", 100), Quantity: 1},
		},
		{
			name:   "sku over maximum length",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: strings.Repeat("A", 101), Quantity: 1},
			codes:  []string{"INVALID_SKU"},
		},
		{
			name:   "negative quantity",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: "WIDGET-1", Quantity: -1},
			codes:  []string{"INVALID_QUANTITY"},
		},
		{
			name:   "quantity at ceiling passes",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: "WIDGET-1", Quantity: 10_000_000},
		},
		{
			name:   "quantity over ceiling",
			record: InventoryRecord{WarehouseID: uuid.New(), SKU: "WIDGET-1", Quantity: 10_000_001},
			codes:  []string{"INVALID_QUANTITY"},
		},
		{
			name:   "missing warehouse",
			record: InventoryRecord{SKU: "WIDGET-1", Quantity: 1},
			codes:  []string{"MISSING_WAREHOUSE"},
		},
		{
			name:   "multiple issues reported together",
			record: InventoryRecord{Quantity: -5},
			codes:  []string{"MISSING_SKU", "INVALID_QUANTITY", "MISSING_WAREHOUSE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.ValidateFormat(tt.record)
			if len(tt.codes) == 0 {
				assert.True(t, result.Valid)
				return
			}
			assert.False(t, result.Valid)
			assert.ElementsMatch(t, tt.codes, issueCodes(result))
		})
	}
}

func TestValidationService_ValidateWarehouse(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	warehouseRepo := newFakeWarehouseRepo()
	active, err := partner.NewWarehouse(orgID, "WH-A", "Active")
	require.NoError(t, err)
	warehouseRepo.add(active)

	inactive, err := partner.NewWarehouse(orgID, "WH-B", "Inactive")
	require.NoError(t, err)
	inactive.Deactivate()
	warehouseRepo.add(inactive)

	service := NewValidationService(newFakeProductRepo(), warehouseRepo)

	t.Run("active warehouse passes", func(t *testing.T) {
		result, err := service.ValidateWarehouse(ctx, orgID, active.ID)
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("unknown warehouse reports an issue", func(t *testing.T) {
		result, err := service.ValidateWarehouse(ctx, orgID, uuid.New())
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "WAREHOUSE_NOT_FOUND", result.Errors[0].Code)
	})

	t.Run("inactive warehouse reports an issue", func(t *testing.T) {
		result, err := service.ValidateWarehouse(ctx, orgID, inactive.ID)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "WAREHOUSE_INACTIVE", result.Errors[0].Code)
	})

	t.Run("another organization's warehouse is invisible", func(t *testing.T) {
		result, err := service.ValidateWarehouse(ctx, uuid.New(), active.ID)
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "WAREHOUSE_NOT_FOUND", result.Errors[0].Code)
	})

	t.Run("missing organization is an error", func(t *testing.T) {
		_, err := service.ValidateWarehouse(ctx, uuid.Nil, active.ID)
		require.Error(t, err)
	})
}

func TestValidationService_ValidateProduct(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	productRepo := newFakeProductRepo()
	active, err := catalog.NewProduct(orgID, "ACTIVE-1", "Active product")
	require.NoError(t, err)
	productRepo.add(active)

	retired, err := catalog.NewProduct(orgID, "RETIRED-1", "Retired product")
	require.NoError(t, err)
	retired.Deactivate()
	productRepo.add(retired)

	service := NewValidationService(productRepo, newFakeWarehouseRepo())

	t.Run("active product passes", func(t *testing.T) {
		result, err := service.ValidateProduct(ctx, orgID, "ACTIVE-1")
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("unknown sku reports an issue", func(t *testing.T) {
		result, err := service.ValidateProduct(ctx, orgID, "NOWHERE-1")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "PRODUCT_NOT_FOUND", result.Errors[0].Code)
	})

	t.Run("inactive product reports an issue", func(t *testing.T) {
		result, err := service.ValidateProduct(ctx, orgID, "RETIRED-1")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "PRODUCT_INACTIVE", result.Errors[0].Code)
	})
}

func TestValidationService_ValidateNewSKU(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	productRepo := newFakeProductRepo()
	existing, err := catalog.NewProduct(orgID, "TAKEN-1", "Existing")
	require.NoError(t, err)
	productRepo.add(existing)

	service := NewValidationService(productRepo, newFakeWarehouseRepo())

	t.Run("fresh sku passes", func(t *testing.T) {
		result, err := service.ValidateNewSKU(ctx, orgID, "FRESH-1")
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("duplicate sku reports an issue", func(t *testing.T) {
		result, err := service.ValidateNewSKU(ctx, orgID, "TAKEN-1")
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Equal(t, "SKU_ALREADY_EXISTS", result.Errors[0].Code)
	})

	t.Run("same sku in another organization passes", func(t *testing.T) {
		result, err := service.ValidateNewSKU(ctx, uuid.New(), "TAKEN-1")
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("malformed sku is reported without a repository check", func(t *testing.T) {
		result, err := service.ValidateNewSKU(ctx, orgID, "x")
		require.NoError(t, err)
		assert.False(t, result.Valid)
	})
}

func TestValidationService_ValidateRecord(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	warehouseRepo := newFakeWarehouseRepo()
	warehouse, err := partner.NewWarehouse(orgID, "WH-A", "Main")
	require.NoError(t, err)
	warehouseRepo.add(warehouse)

	productRepo := newFakeProductRepo()
	product, err := catalog.NewProduct(orgID, "WIDGET-1", "Widget")
	require.NoError(t, err)
	productRepo.add(product)

	service := NewValidationService(productRepo, warehouseRepo)

	t.Run("well formed record against live references passes", func(t *testing.T) {
		result, err := service.ValidateRecord(ctx, orgID, InventoryRecord{
			WarehouseID: warehouse.ID, SKU: "WIDGET-1", Quantity: 10,
		})
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("malformed record skips referential checks", func(t *testing.T) {
		result, err := service.ValidateRecord(ctx, orgID, InventoryRecord{
			WarehouseID: warehouse.ID, SKU: "??", Quantity: 10,
		})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.ElementsMatch(t, []string{"INVALID_SKU"}, issueCodes(result))
	})

	t.Run("referential issues accumulate", func(t *testing.T) {
		result, err := service.ValidateRecord(ctx, orgID, InventoryRecord{
			WarehouseID: uuid.New(), SKU: "GHOST-1", Quantity: 10,
		})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.ElementsMatch(t, []string{"WAREHOUSE_NOT_FOUND", "PRODUCT_NOT_FOUND"}, issueCodes(result))
	})
}
