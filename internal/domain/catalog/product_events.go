package catalog

import (
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for Product
const AggregateTypeProduct = "Product"

// Event type constants for Product
const (
	EventTypeProductCreated       = "ProductCreated"
	EventTypeProductStatusChanged = "ProductStatusChanged"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID, product.OrganizationID),
		ProductID:       product.ID,
		SKU:             product.SKU,
		Name:            product.Name,
	}
}

// ProductStatusChangedEvent is published when a product is activated or deactivated
type ProductStatusChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID     `json:"product_id"`
	SKU       string        `json:"sku"`
	Status    ProductStatus `json:"status"`
}

// NewProductStatusChangedEvent creates a new ProductStatusChangedEvent
func NewProductStatusChangedEvent(product *Product) *ProductStatusChangedEvent {
	return &ProductStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStatusChanged, AggregateTypeProduct, product.ID, product.OrganizationID),
		ProductID:       product.ID,
		SKU:             product.SKU,
		Status:          product.Status,
	}
}
