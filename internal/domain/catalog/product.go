package catalog

import (
	"regexp"
	"strings"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductStatus represents the lifecycle status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

// IsValid checks whether the status is a known value
func (s ProductStatus) IsValid() bool {
	return s == ProductStatusActive || s == ProductStatusInactive
}

// skuPattern is the canonical SKU format: alphanumerics and hyphens, 3-100 chars.
var skuPattern = regexp.MustCompile(`^[A-Za-z0-9-]{3,100}$`)

// ValidateSKU checks a SKU against the canonical format
func ValidateSKU(sku string) error {
	if sku == "" {
		return shared.NewValidationError("MISSING_SKU", "SKU is required")
	}
	if !skuPattern.MatchString(sku) {
		return shared.NewValidationError("INVALID_SKU", "SKU must be 3-100 characters of letters, digits, and hyphens")
	}
	return nil
}

// Product represents a sellable item in the catalog
// It is the aggregate root for product-related operations
type Product struct {
	shared.OrgAggregateRoot
	SKU    string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_org_sku,priority:2"`
	Name   string        `gorm:"type:varchar(200);not null"`
	Status ProductStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product with required fields
func NewProduct(organizationID uuid.UUID, sku, name string) (*Product, error) {
	if err := ValidateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}

	product := &Product{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		SKU:              sku,
		Name:             name,
		Status:           ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates the product's basic information
func (p *Product) Update(name string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Activate marks the product as active
func (p *Product) Activate() {
	if p.Status == ProductStatusActive {
		return
	}
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p))
}

// Deactivate marks the product as inactive. Inactive products are
// rejected by operations that create new stock commitments.
func (p *Product) Deactivate() {
	if p.Status == ProductStatusInactive {
		return
	}
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductStatusChangedEvent(p))
}

// IsActive reports whether the product can participate in new operations
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewValidationError("MISSING_PRODUCT_NAME", "Product name is required")
	}
	if len(name) > 200 {
		return shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
