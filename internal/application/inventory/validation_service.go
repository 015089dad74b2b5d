package inventory

import (
	"context"
	"fmt"

	"github.com/fulfillment/backend/internal/domain/catalog"
	"github.com/fulfillment/backend/internal/domain/partner"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ValidationIssue describes a single failed business rule
type ValidationIssue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of rule evaluation. Business-rule
// failures are reported here rather than as errors so batch callers can
// keep processing subsequent rows.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors"`
}

// NewValidationResult creates a passing result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// Add records a failed rule and marks the result invalid
func (r *ValidationResult) Add(field, code, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationIssue{Field: field, Code: code, Message: message})
}

// Merge folds another result into this one
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil || other.Valid {
		return
	}
	r.Valid = false
	r.Errors = append(r.Errors, other.Errors...)
}

// InventoryRecord is the canonical shape validated before any
// quantity-affecting write
type InventoryRecord struct {
	WarehouseID uuid.UUID `validate:"required"`
	SKU         string    `validate:"required,sku"`
	Quantity    int64     `validate:"gte=0,lte=10000000"`
}

// ValidationService is the shared rule engine gating every mutation
// path. It returns structured results for business-rule failures and
// errors only for missing caller context or repository failures.
type ValidationService struct {
	validate      *validator.Validate
	productRepo   catalog.ProductRepository
	warehouseRepo partner.WarehouseRepository
}

// NewValidationService creates a ValidationService with the sku rule registered
func NewValidationService(productRepo catalog.ProductRepository, warehouseRepo partner.WarehouseRepository) *ValidationService {
	v := validator.New()
	// The sku tag reuses the canonical catalog format check.
	_ = v.RegisterValidation("sku", func(fl validator.FieldLevel) bool {
		return catalog.ValidateSKU(fl.Field().String()) == nil
	})

	return &ValidationService{
		validate:      v,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
	}
}

// ValidateFormat checks the record's shape only: SKU pattern and
// quantity bounds. No repository access.
func (s *ValidationService) ValidateFormat(record InventoryRecord) *ValidationResult {
	result := NewValidationResult()

	err := s.validate.Struct(record)
	if err == nil {
		return result
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		result.Add("", "INVALID_RECORD", err.Error())
		return result
	}

	for _, fieldErr := range validationErrors {
		switch fieldErr.Field() {
		case "SKU":
			if fieldErr.Tag() == "required" {
				result.Add("sku", "MISSING_SKU", "SKU is required")
			} else {
				result.Add("sku", "INVALID_SKU", "SKU must be 3-100 characters of letters, digits, and hyphens")
			}
		case "Quantity":
			result.Add("quantity", "INVALID_QUANTITY", "Quantity must be an integer between 0 and 10000000")
		case "WarehouseID":
			result.Add("warehouseId", "MISSING_WAREHOUSE", "Warehouse ID is required")
		default:
			result.Add(fieldErr.Field(), "INVALID_FIELD", fieldErr.Error())
		}
	}

	return result
}

// ValidateWarehouse checks that the warehouse exists within the
// organization and is active. A cross-organization warehouse reports
// the same issue as a missing one.
func (s *ValidationService) ValidateWarehouse(ctx context.Context, organizationID, warehouseID uuid.UUID) (*ValidationResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("MISSING_ORGANIZATION", "Organization ID is required")
	}

	result := NewValidationResult()

	warehouse, err := s.warehouseRepo.FindByID(ctx, organizationID, warehouseID)
	if err != nil {
		if shared.IsNotFound(err) {
			result.Add("warehouseId", "WAREHOUSE_NOT_FOUND", fmt.Sprintf("Warehouse %s not found", warehouseID))
			return result, nil
		}
		return nil, err
	}
	if !warehouse.IsActive() {
		result.Add("warehouseId", "WAREHOUSE_INACTIVE", fmt.Sprintf("Warehouse %s is not active", warehouse.Code))
	}

	return result, nil
}

// ValidateProduct checks that the SKU's product master exists within
// the organization and is active
func (s *ValidationService) ValidateProduct(ctx context.Context, organizationID uuid.UUID, sku string) (*ValidationResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("MISSING_ORGANIZATION", "Organization ID is required")
	}

	result := NewValidationResult()

	product, err := s.productRepo.FindBySKU(ctx, organizationID, sku)
	if err != nil {
		if shared.IsNotFound(err) {
			result.Add("sku", "PRODUCT_NOT_FOUND", fmt.Sprintf("No product exists for SKU %s", sku))
			return result, nil
		}
		return nil, err
	}
	if !product.IsActive() {
		result.Add("sku", "PRODUCT_INACTIVE", fmt.Sprintf("Product for SKU %s is not active", sku))
	}

	return result, nil
}

// ValidateNewSKU checks that no product already uses the SKU within
// the organization. Applied when creating product masters.
func (s *ValidationService) ValidateNewSKU(ctx context.Context, organizationID uuid.UUID, sku string) (*ValidationResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("MISSING_ORGANIZATION", "Organization ID is required")
	}

	result := NewValidationResult()

	if err := catalog.ValidateSKU(sku); err != nil {
		result.Add("sku", shared.CodeOf(err), err.Error())
		return result, nil
	}

	exists, err := s.productRepo.ExistsBySKU(ctx, organizationID, sku)
	if err != nil {
		return nil, err
	}
	if exists {
		result.Add("sku", "SKU_ALREADY_EXISTS", fmt.Sprintf("SKU %s already exists for this organization", sku))
	}

	return result, nil
}

// ValidateRecord runs the full rule set for one inventory record:
// format, warehouse existence and activity, product existence and
// activity. Returns an error only for missing context or repository
// failures.
func (s *ValidationService) ValidateRecord(ctx context.Context, organizationID uuid.UUID, record InventoryRecord) (*ValidationResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewValidationError("MISSING_ORGANIZATION", "Organization ID is required")
	}

	result := s.ValidateFormat(record)
	if !result.Valid {
		// Referential checks are pointless against a malformed record.
		return result, nil
	}

	warehouseResult, err := s.ValidateWarehouse(ctx, organizationID, record.WarehouseID)
	if err != nil {
		return nil, err
	}
	result.Merge(warehouseResult)

	productResult, err := s.ValidateProduct(ctx, organizationID, record.SKU)
	if err != nil {
		return nil, err
	}
	result.Merge(productResult)

	return result, nil
}
