package bulkimport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fulfillment/backend/internal/domain/catalog"
	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/partner"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// In-memory fakes for the import pipeline tests. Same store contract
// as the persistence layer, no database.

func itemKey(organizationID, warehouseID uuid.UUID, sku string) string {
	return fmt.Sprintf("%s|%s|%s", organizationID, warehouseID, sku)
}

type memInventoryRepo struct {
	mu    sync.Mutex
	items map[string]*inventory.InventoryItem
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{items: make(map[string]*inventory.InventoryItem)}
}

func (f *memInventoryRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id && item.OrganizationID == organizationID {
			return item, nil
		}
	}
	return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
}

func (f *memInventoryRepo) FindBySKU(_ context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemKey(organizationID, warehouseID, sku)]
	if !ok {
		return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
	}
	return item, nil
}

func (f *memInventoryRepo) FindBySKUForUpdate(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	return f.FindBySKU(ctx, organizationID, warehouseID, sku)
}

func (f *memInventoryRepo) FindByWarehouse(_ context.Context, organizationID, warehouseID uuid.UUID, _ shared.Filter) ([]inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.InventoryItem
	for _, item := range f.items {
		if item.OrganizationID == organizationID && item.WarehouseID == warehouseID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (f *memInventoryRepo) FindBySKUs(_ context.Context, organizationID, warehouseID uuid.UUID, skus []string) ([]inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.InventoryItem
	for _, sku := range skus {
		if item, ok := f.items[itemKey(organizationID, warehouseID, sku)]; ok {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (f *memInventoryRepo) GetOrCreate(_ context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[itemKey(organizationID, warehouseID, sku)]; ok {
		return item, nil
	}
	item, err := inventory.NewInventoryItem(organizationID, warehouseID, sku)
	if err != nil {
		return nil, err
	}
	f.items[itemKey(organizationID, warehouseID, sku)] = item
	return item, nil
}

func (f *memInventoryRepo) Save(_ context.Context, item *inventory.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[itemKey(item.OrganizationID, item.WarehouseID, item.SKU)] = item
	return nil
}

func (f *memInventoryRepo) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	return f.Save(ctx, item)
}

func (f *memInventoryRepo) ExistsBySKU(_ context.Context, organizationID, warehouseID uuid.UUID, sku string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[itemKey(organizationID, warehouseID, sku)]
	return ok, nil
}

func (f *memInventoryRepo) Count(_ context.Context, organizationID, warehouseID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, item := range f.items {
		if item.OrganizationID == organizationID && item.WarehouseID == warehouseID {
			count++
		}
	}
	return count, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*inventory.AuditLogEntry
}

func (f *memAuditRepo) Append(_ context.Context, entry *inventory.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *memAuditRepo) AppendBatch(ctx context.Context, entries []*inventory.AuditLogEntry) error {
	for _, entry := range entries {
		if err := f.Append(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (f *memAuditRepo) FindBySKU(_ context.Context, organizationID uuid.UUID, sku string, _ shared.Filter) ([]inventory.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.AuditLogEntry
	for _, e := range f.entries {
		if e.OrganizationID == organizationID && e.SKU == sku {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (f *memAuditRepo) FindByTimeRange(_ context.Context, organizationID uuid.UUID, from, to time.Time, _ shared.Filter) ([]inventory.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.AuditLogEntry
	for _, e := range f.entries {
		if e.OrganizationID == organizationID && !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (f *memAuditRepo) byAction(action inventory.AuditAction) []*inventory.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*inventory.AuditLogEntry
	for _, e := range f.entries {
		if e.Action == action {
			result = append(result, e)
		}
	}
	return result
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[string]*catalog.Product)}
}

func (f *memProductRepo) add(product *catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[product.OrganizationID.String()+"|"+product.SKU] = product
}

func (f *memProductRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id && p.OrganizationID == organizationID {
			return p, nil
		}
	}
	return nil, shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
}

func (f *memProductRepo) FindBySKU(_ context.Context, organizationID uuid.UUID, sku string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[organizationID.String()+"|"+sku]
	if !ok {
		return nil, shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
	}
	return product, nil
}

func (f *memProductRepo) FindBySKUs(ctx context.Context, organizationID uuid.UUID, skus []string) ([]catalog.Product, error) {
	var result []catalog.Product
	for _, sku := range skus {
		if p, err := f.FindBySKU(ctx, organizationID, sku); err == nil {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (f *memProductRepo) FindAll(_ context.Context, organizationID uuid.UUID, _ shared.Filter) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []catalog.Product
	for _, p := range f.products {
		if p.OrganizationID == organizationID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (f *memProductRepo) ExistsBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (bool, error) {
	_, err := f.FindBySKU(ctx, organizationID, sku)
	return err == nil, nil
}

func (f *memProductRepo) Save(_ context.Context, product *catalog.Product) error {
	f.add(product)
	return nil
}

func (f *memProductRepo) Count(_ context.Context, organizationID uuid.UUID, _ shared.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, p := range f.products {
		if p.OrganizationID == organizationID {
			count++
		}
	}
	return count, nil
}

type memWarehouseRepo struct {
	mu         sync.Mutex
	warehouses map[uuid.UUID]*partner.Warehouse
}

func newMemWarehouseRepo() *memWarehouseRepo {
	return &memWarehouseRepo{warehouses: make(map[uuid.UUID]*partner.Warehouse)}
}

func (f *memWarehouseRepo) add(warehouse *partner.Warehouse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warehouses[warehouse.ID] = warehouse
}

func (f *memWarehouseRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*partner.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	warehouse, ok := f.warehouses[id]
	if !ok || warehouse.OrganizationID != organizationID {
		return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
	}
	return warehouse, nil
}

func (f *memWarehouseRepo) FindByCode(_ context.Context, organizationID uuid.UUID, code string) (*partner.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.warehouses {
		if w.OrganizationID == organizationID && w.Code == code {
			return w, nil
		}
	}
	return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
}

func (f *memWarehouseRepo) FindAll(_ context.Context, organizationID uuid.UUID, _ shared.Filter) ([]partner.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []partner.Warehouse
	for _, w := range f.warehouses {
		if w.OrganizationID == organizationID {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (f *memWarehouseRepo) ExistsByID(ctx context.Context, organizationID, id uuid.UUID) (bool, error) {
	_, err := f.FindByID(ctx, organizationID, id)
	return err == nil, nil
}

func (f *memWarehouseRepo) Save(_ context.Context, warehouse *partner.Warehouse) error {
	f.add(warehouse)
	return nil
}

func (f *memWarehouseRepo) Count(_ context.Context, organizationID uuid.UUID, _ shared.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, w := range f.warehouses {
		if w.OrganizationID == organizationID {
			count++
		}
	}
	return count, nil
}

// memRegistry is an in-memory SessionRegistry
type memRegistry struct {
	mu      sync.Mutex
	results map[string]*Result
}

func newMemRegistry() *memRegistry {
	return &memRegistry{results: make(map[string]*Result)}
}

func (r *memRegistry) StoreResult(_ context.Context, organizationID uuid.UUID, result *Result, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[organizationID.String()+"|"+result.ImportID.String()] = result
	return nil
}

func (r *memRegistry) GetResult(_ context.Context, organizationID, importID uuid.UUID) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[organizationID.String()+"|"+importID.String()]
	if !ok {
		return nil, shared.NewNotFoundError("IMPORT_NOT_FOUND", "Import result not found or expired")
	}
	return result, nil
}

// capturingPublisher records published events for assertions
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
