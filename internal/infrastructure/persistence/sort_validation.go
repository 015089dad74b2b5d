package persistence

import (
	"strings"

	"github.com/fulfillment/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// applyFilter applies pagination and whitelisted ordering to the query
func applyFilter(query *gorm.DB, filter shared.Filter, allowedFields map[string]bool, defaultField string) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, allowedFields, defaultField)
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// InventoryItemSortFields contains allowed sort fields for inventory items
var InventoryItemSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"sku":               true,
	"quantity":          true,
	"reserved_quantity": true,
}

// MovementSortFields contains allowed sort fields for stock movements
var MovementSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"sku":         true,
	"quantity":    true,
	"type":        true,
	"status":      true,
	"executed_at": true,
}

// CycleCountSortFields contains allowed sort fields for counting sessions
var CycleCountSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"type":         true,
	"status":       true,
	"completed_at": true,
	"approved_at":  true,
}

// AuditLogSortFields contains allowed sort fields for audit entries
var AuditLogSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"sku":        true,
	"action":     true,
	"variance":   true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"sku":        true,
	"name":       true,
	"status":     true,
}

// WarehouseSortFields contains allowed sort fields for warehouses
var WarehouseSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"status":     true,
}
