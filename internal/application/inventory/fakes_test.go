package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fulfillment/backend/internal/domain/catalog"
	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/partner"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// In-memory repository fakes shared by the service tests. They keep
// the same contract as the persistence layer, including not-found
// semantics and version checks, without a database.

func itemKey(organizationID, warehouseID uuid.UUID, sku string) string {
	return fmt.Sprintf("%s|%s|%s", organizationID, warehouseID, sku)
}

type fakeInventoryRepo struct {
	mu    sync.Mutex
	items map[string]*inventory.InventoryItem
	// failSaveOnce makes the next Save fail, for rollback tests
	failSaveOnce bool
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{items: make(map[string]*inventory.InventoryItem)}
}

func (f *fakeInventoryRepo) put(item *inventory.InventoryItem) {
	f.items[itemKey(item.OrganizationID, item.WarehouseID, item.SKU)] = item
}

func (f *fakeInventoryRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.ID == id && item.OrganizationID == organizationID {
			return item, nil
		}
	}
	return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
}

func (f *fakeInventoryRepo) FindBySKU(_ context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemKey(organizationID, warehouseID, sku)]
	if !ok {
		return nil, shared.NewNotFoundError("ITEM_NOT_FOUND", "Inventory item not found")
	}
	return item, nil
}

func (f *fakeInventoryRepo) FindBySKUForUpdate(ctx context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
	return f.FindBySKU(ctx, organizationID, warehouseID, sku)
}

func (f *fakeInventoryRepo) FindByWarehouse(_ context.Context, organizationID, warehouseID uuid.UUID, _ shared.Filter) ([]inventory.InventoryItem, error) {
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

func (f *fakeInventoryRepo) FindBySKUs(_ context.Context, organizationID, warehouseID uuid.UUID, skus []string) ([]inventory.InventoryItem, error) {
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

func (f *fakeInventoryRepo) GetOrCreate(_ context.Context, organizationID, warehouseID uuid.UUID, sku string) (*inventory.InventoryItem, error) {
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

func (f *fakeInventoryRepo) Save(_ context.Context, item *inventory.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveOnce {
		f.failSaveOnce = false
		return fmt.Errorf("simulated write failure")
	}
	f.put(item)
	return nil
}

func (f *fakeInventoryRepo) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	return f.Save(ctx, item)
}

func (f *fakeInventoryRepo) ExistsBySKU(_ context.Context, organizationID, warehouseID uuid.UUID, sku string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[itemKey(organizationID, warehouseID, sku)]
	return ok, nil
}

func (f *fakeInventoryRepo) Count(_ context.Context, organizationID, warehouseID uuid.UUID) (int64, error) {
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

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*inventory.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[uuid.UUID]*inventory.Reservation)}
}

func (f *fakeReservationRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*inventory.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reservation, ok := f.reservations[id]
	if !ok || reservation.OrganizationID != organizationID {
		return nil, shared.NewNotFoundError("RESERVATION_NOT_FOUND", "Reservation not found")
	}
	return reservation, nil
}

func (f *fakeReservationRepo) FindActiveByOrder(_ context.Context, organizationID, orderID uuid.UUID) ([]inventory.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.Reservation
	for _, r := range f.reservations {
		if r.OrganizationID == organizationID && r.OrderID == orderID && r.IsActive() {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (f *fakeReservationRepo) FindActiveBySKU(_ context.Context, organizationID uuid.UUID, sku string, olderThan time.Time, limit int) ([]inventory.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*inventory.Reservation
	for _, r := range f.reservations {
		if r.OrganizationID != organizationID || r.SKU != sku || !r.IsActive() {
			continue
		}
		if !olderThan.IsZero() && !r.CreatedAt.Before(olderThan) {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	result := make([]inventory.Reservation, 0, len(matched))
	for _, r := range matched {
		result = append(result, *r)
	}
	return result, nil
}

func (f *fakeReservationRepo) FindExpired(_ context.Context, organizationID uuid.UUID, olderThan time.Time, limit int) ([]inventory.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*inventory.Reservation
	for _, r := range f.reservations {
		if r.OrganizationID == organizationID && r.IsActive() && r.CreatedAt.Before(olderThan) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	result := make([]inventory.Reservation, 0, len(matched))
	for _, r := range matched {
		result = append(result, *r)
	}
	return result, nil
}

func (f *fakeReservationRepo) ListOrganizationsWithActive(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var organizationIDs []uuid.UUID
	for _, r := range f.reservations {
		if r.IsActive() && !seen[r.OrganizationID] {
			seen[r.OrganizationID] = true
			organizationIDs = append(organizationIDs, r.OrganizationID)
		}
	}
	return organizationIDs, nil
}

func (f *fakeReservationRepo) Save(_ context.Context, reservation *inventory.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *reservation
	f.reservations[reservation.ID] = &stored
	return nil
}

func (f *fakeReservationRepo) SaveBatch(ctx context.Context, reservations []*inventory.Reservation) error {
	for _, r := range reservations {
		if err := f.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeReservationRepo) CountActiveBySKU(_ context.Context, organizationID uuid.UUID, sku string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.reservations {
		if r.OrganizationID == organizationID && r.SKU == sku && r.IsActive() {
			count++
		}
	}
	return count, nil
}

type fakeMovementRepo struct {
	mu        sync.Mutex
	movements map[uuid.UUID]*inventory.StockMovement
}

func newFakeMovementRepo() *fakeMovementRepo {
	return &fakeMovementRepo{movements: make(map[uuid.UUID]*inventory.StockMovement)}
}

func (f *fakeMovementRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*inventory.StockMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	movement, ok := f.movements[id]
	if !ok || movement.OrganizationID != organizationID {
		return nil, shared.NewNotFoundError("MOVEMENT_NOT_FOUND", "Stock movement not found")
	}
	copied := *movement
	return &copied, nil
}

func (f *fakeMovementRepo) FindBySKU(_ context.Context, organizationID uuid.UUID, sku string, _ shared.Filter) ([]inventory.StockMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.StockMovement
	for _, m := range f.movements {
		if m.OrganizationID == organizationID && m.SKU == sku {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (f *fakeMovementRepo) FindByStatus(_ context.Context, organizationID uuid.UUID, status inventory.MovementStatus, _ shared.Filter) ([]inventory.StockMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.StockMovement
	for _, m := range f.movements {
		if m.OrganizationID == organizationID && m.Status == status {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (f *fakeMovementRepo) Save(_ context.Context, movement *inventory.StockMovement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *movement
	// The database never persists the in-memory event queue.
	stored.ClearDomainEvents()
	f.movements[movement.ID] = &stored
	return nil
}

func (f *fakeMovementRepo) SaveBatch(ctx context.Context, movements []*inventory.StockMovement) error {
	for _, m := range movements {
		if err := f.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

type fakeCycleCountRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*inventory.CycleCountSession
}

func newFakeCycleCountRepo() *fakeCycleCountRepo {
	return &fakeCycleCountRepo{sessions: make(map[uuid.UUID]*inventory.CycleCountSession)}
}

func (f *fakeCycleCountRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*inventory.CycleCountSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok || session.OrganizationID != organizationID {
		return nil, shared.NewNotFoundError("SESSION_NOT_FOUND", "Cycle count session not found")
	}
	copied := *session
	copied.Items = append([]inventory.CycleCountItem(nil), session.Items...)
	return &copied, nil
}

func (f *fakeCycleCountRepo) FindByWarehouse(_ context.Context, organizationID, warehouseID uuid.UUID, _ shared.Filter) ([]inventory.CycleCountSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.CycleCountSession
	for _, s := range f.sessions {
		if s.OrganizationID == organizationID && s.WarehouseID == warehouseID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (f *fakeCycleCountRepo) FindByStatus(_ context.Context, organizationID uuid.UUID, status inventory.CycleCountStatus, _ shared.Filter) ([]inventory.CycleCountSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []inventory.CycleCountSession
	for _, s := range f.sessions {
		if s.OrganizationID == organizationID && s.Status == status {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (f *fakeCycleCountRepo) Save(_ context.Context, session *inventory.CycleCountSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *session
	stored.Items = append([]inventory.CycleCountItem(nil), session.Items...)
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeCycleCountRepo) SaveWithLock(_ context.Context, session *inventory.CycleCountSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.sessions[session.ID]
	if ok && existing.Version >= session.Version {
		return shared.NewConflictError("CONCURRENCY_CONFLICT", "Session was modified by another process")
	}
	stored := *session
	stored.Items = append([]inventory.CycleCountItem(nil), session.Items...)
	f.sessions[session.ID] = &stored
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*inventory.AuditLogEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Append(_ context.Context, entry *inventory.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) AppendBatch(ctx context.Context, entries []*inventory.AuditLogEntry) error {
	for _, entry := range entries {
		if err := f.Append(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAuditRepo) FindBySKU(_ context.Context, organizationID uuid.UUID, sku string, _ shared.Filter) ([]inventory.AuditLogEntry, error) {
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

func (f *fakeAuditRepo) FindByTimeRange(_ context.Context, organizationID uuid.UUID, from, to time.Time, _ shared.Filter) ([]inventory.AuditLogEntry, error) {
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

func (f *fakeAuditRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *fakeAuditRepo) last() *inventory.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[string]*catalog.Product)}
}

func (f *fakeProductRepo) add(product *catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[product.OrganizationID.String()+"|"+product.SKU] = product
}

func (f *fakeProductRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id && p.OrganizationID == organizationID {
			return p, nil
		}
	}
	return nil, shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
}

func (f *fakeProductRepo) FindBySKU(_ context.Context, organizationID uuid.UUID, sku string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[organizationID.String()+"|"+sku]
	if !ok {
		return nil, shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
	}
	return product, nil
}

func (f *fakeProductRepo) FindBySKUs(ctx context.Context, organizationID uuid.UUID, skus []string) ([]catalog.Product, error) {
	var result []catalog.Product
	for _, sku := range skus {
		if p, err := f.FindBySKU(ctx, organizationID, sku); err == nil {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (f *fakeProductRepo) FindAll(_ context.Context, organizationID uuid.UUID, _ shared.Filter) ([]catalog.Product, error) {
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

func (f *fakeProductRepo) ExistsBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (bool, error) {
	_, err := f.FindBySKU(ctx, organizationID, sku)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeProductRepo) Save(_ context.Context, product *catalog.Product) error {
	f.add(product)
	return nil
}

func (f *fakeProductRepo) Count(_ context.Context, organizationID uuid.UUID, _ shared.Filter) (int64, error) {
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

type fakeWarehouseRepo struct {
	mu         sync.Mutex
	warehouses map[uuid.UUID]*partner.Warehouse
}

func newFakeWarehouseRepo() *fakeWarehouseRepo {
	return &fakeWarehouseRepo{warehouses: make(map[uuid.UUID]*partner.Warehouse)}
}

func (f *fakeWarehouseRepo) add(warehouse *partner.Warehouse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warehouses[warehouse.ID] = warehouse
}

func (f *fakeWarehouseRepo) FindByID(_ context.Context, organizationID, id uuid.UUID) (*partner.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	warehouse, ok := f.warehouses[id]
	if !ok || warehouse.OrganizationID != organizationID {
		return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
	}
	return warehouse, nil
}

func (f *fakeWarehouseRepo) FindByCode(_ context.Context, organizationID uuid.UUID, code string) (*partner.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.warehouses {
		if w.OrganizationID == organizationID && w.Code == code {
			return w, nil
		}
	}
	return nil, shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", "Warehouse not found")
}

func (f *fakeWarehouseRepo) FindAll(_ context.Context, organizationID uuid.UUID, _ shared.Filter) ([]partner.Warehouse, error) {
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

func (f *fakeWarehouseRepo) ExistsByID(ctx context.Context, organizationID, id uuid.UUID) (bool, error) {
	_, err := f.FindByID(ctx, organizationID, id)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeWarehouseRepo) Save(_ context.Context, warehouse *partner.Warehouse) error {
	f.add(warehouse)
	return nil
}

func (f *fakeWarehouseRepo) Count(_ context.Context, organizationID uuid.UUID, _ shared.Filter) (int64, error) {
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

// raceScope runs a hook once before delegating Execute, simulating a
// competing transaction that commits first.
type raceScope struct {
	inner  TransactionScope
	before func()
}

func (s *raceScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	if s.before != nil {
		hook := s.before
		s.before = nil
		hook()
	}
	return s.inner.Execute(ctx, fn)
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

func (p *capturingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// capturingNotifier records notification requests
type capturingNotifier struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (n *capturingNotifier) NotifyReservationForceReleased(_ context.Context, _, _, _ uuid.UUID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail {
		return fmt.Errorf("notification channel down")
	}
	return nil
}

// stubOrderStatus returns a fixed status per order
type stubOrderStatus struct {
	statuses map[uuid.UUID]string
}

func (s *stubOrderStatus) OrderStatus(_ context.Context, _, orderID uuid.UUID) (string, error) {
	if status, ok := s.statuses[orderID]; ok {
		return status, nil
	}
	return "COMPLETED", nil
}
