package inventory

import (
	"context"
	"testing"

	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/partner"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cycleCountFixture struct {
	orgID       uuid.UUID
	userID      uuid.UUID
	warehouseID uuid.UUID

	inventoryRepo  *fakeInventoryRepo
	cycleCountRepo *fakeCycleCountRepo
	movementRepo   *fakeMovementRepo
	auditRepo      *fakeAuditRepo
	publisher      *capturingPublisher

	service *CycleCountService
}

func newCycleCountFixture(t *testing.T) *cycleCountFixture {
	t.Helper()

	orgID := uuid.New()
	warehouse, err := partner.NewWarehouse(orgID, "WH-COUNT", "Counting Warehouse")
	require.NoError(t, err)

	warehouseRepo := newFakeWarehouseRepo()
	warehouseRepo.add(warehouse)

	f := &cycleCountFixture{
		orgID:          orgID,
		userID:         uuid.New(),
		warehouseID:    warehouse.ID,
		inventoryRepo:  newFakeInventoryRepo(),
		cycleCountRepo: newFakeCycleCountRepo(),
		movementRepo:   newFakeMovementRepo(),
		auditRepo:      newFakeAuditRepo(),
		publisher:      &capturingPublisher{},
	}

	scope := NewNoOpTransactionScope(f.inventoryRepo, newFakeReservationRepo(), f.movementRepo, f.cycleCountRepo, f.auditRepo)
	validation := NewValidationService(newFakeProductRepo(), warehouseRepo)

	f.service = NewCycleCountService(scope, f.cycleCountRepo, f.inventoryRepo, validation, zap.NewNop(), DefaultCycleCountConfig())
	f.service.SetEventPublisher(f.publisher)

	return f
}

func (f *cycleCountFixture) opCtx(role shared.Role) shared.OperationContext {
	return shared.NewOperationContext(f.orgID, f.userID, role)
}

func (f *cycleCountFixture) seedStock(t *testing.T, sku string, quantity int64) {
	t.Helper()
	item, err := inventory.NewInventoryItem(f.orgID, f.warehouseID, sku)
	require.NoError(t, err)
	if quantity > 0 {
		require.NoError(t, item.ApplyDelta(quantity))
	}
	item.ClearDomainEvents()
	f.inventoryRepo.put(item)
}

func (f *cycleCountFixture) quantity(t *testing.T, sku string) int64 {
	t.Helper()
	item, err := f.inventoryRepo.FindBySKU(context.Background(), f.orgID, f.warehouseID, sku)
	require.NoError(t, err)
	return item.Quantity
}

func TestCycleCountService_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("full session snapshots every item in the warehouse", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		f.seedStock(t, "SKU-B", 50)

		dto, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID,
			Type:        inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)
		assert.Equal(t, inventory.CycleCountStatusInProgress.String(), dto.Status)
		assert.Equal(t, 2, dto.TotalItems)
		assert.Equal(t, 0, dto.CountedItems)
		assert.Len(t, f.publisher.byType(inventory.EventTypeCycleCountSessionCreated), 1)
	})

	t.Run("partial session treats missing rows as expected zero", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)

		dto, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID,
			Type:        inventory.CycleCountTypePartial,
			SKUs:        []string{"SKU-A", "SKU-MISSING"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, dto.TotalItems)

		session, err := f.cycleCountRepo.FindByID(ctx, f.orgID, dto.ID)
		require.NoError(t, err)
		missing := session.FindItem("SKU-MISSING")
		require.NotNil(t, missing)
		assert.Equal(t, int64(0), missing.ExpectedQuantity)
	})

	t.Run("partial session without skus is rejected", func(t *testing.T) {
		f := newCycleCountFixture(t)

		_, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID,
			Type:        inventory.CycleCountTypePartial,
		})
		require.Error(t, err)
		assert.Equal(t, "MISSING_SKUS", shared.CodeOf(err))
	})

	t.Run("unknown warehouse is rejected", func(t *testing.T) {
		f := newCycleCountFixture(t)

		_, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: uuid.New(),
			Type:        inventory.CycleCountTypeFull,
		})
		require.Error(t, err)
		assert.Equal(t, "WAREHOUSE_NOT_FOUND", shared.CodeOf(err))
	})
}

func TestCycleCountService_GetSessionItems(t *testing.T) {
	ctx := context.Background()

	createSession := func(t *testing.T, f *cycleCountFixture, blind bool) uuid.UUID {
		t.Helper()
		dto, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID,
			Type:        inventory.CycleCountTypeFull,
			IsBlind:     blind,
		})
		require.NoError(t, err)
		return dto.ID
	}

	t.Run("regular session exposes expected quantities", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		sessionID := createSession(t, f, false)

		views, err := f.service.GetSessionItems(ctx, f.opCtx(shared.RoleOperator), sessionID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		require.NotNil(t, views[0].ExpectedQuantity)
		assert.Equal(t, int64(100), *views[0].ExpectedQuantity)
	})

	t.Run("blind session omits expected quantities", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		sessionID := createSession(t, f, true)

		views, err := f.service.GetSessionItems(ctx, f.opCtx(shared.RoleOperator), sessionID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Nil(t, views[0].ExpectedQuantity)
		assert.False(t, views[0].IsCounted)
	})
}

func TestCycleCountService_SubmitCounts(t *testing.T) {
	ctx := context.Background()

	t.Run("records counts against the session", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		f.seedStock(t, "SKU-B", 50)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)

		dto, err := f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-A", CountedQuantity: 98},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, dto.CountedItems)

		// Submitting does not touch stock.
		assert.Equal(t, int64(100), f.quantity(t, "SKU-A"))
	})

	t.Run("counting a sku outside the session is rejected", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)

		_, err = f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-UNKNOWN", CountedQuantity: 10},
		})
		require.Error(t, err)
		assert.Equal(t, "ITEM_NOT_IN_SESSION", shared.CodeOf(err))
	})

	t.Run("empty submission is rejected", func(t *testing.T) {
		f := newCycleCountFixture(t)

		_, err := f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), uuid.New(), nil)
		require.Error(t, err)
		assert.Equal(t, "EMPTY_COUNTS", shared.CodeOf(err))
	})
}

func TestCycleCountService_CompleteSession(t *testing.T) {
	ctx := context.Background()

	createCounted := func(t *testing.T, f *cycleCountFixture, counted int64) uuid.UUID {
		t.Helper()
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)
		_, err = f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-A", CountedQuantity: counted},
		})
		require.NoError(t, err)
		return created.ID
	}

	t.Run("small variance commits immediately", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		sessionID := createCounted(t, f, 95)

		dto, err := f.service.CompleteSession(ctx, f.opCtx(shared.RoleOperator), sessionID)
		require.NoError(t, err)
		assert.Equal(t, inventory.CycleCountStatusCompleted.String(), dto.Status)

		// Stock reconciled to the counted value through an adjustment movement.
		assert.Equal(t, int64(95), f.quantity(t, "SKU-A"))
		movements, err := f.movementRepo.FindBySKU(ctx, f.orgID, "SKU-A", shared.Filter{})
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, inventory.MovementTypeAdjustmentRemove, movements[0].Type)
		assert.Equal(t, int64(5), movements[0].Quantity)
		assert.Equal(t, inventory.MovementStatusCompleted, movements[0].Status)

		assert.Equal(t, inventory.AuditActionCycleCountAdjust, f.auditRepo.last().Action)
		assert.Len(t, f.publisher.byType(inventory.EventTypeCycleCountSessionCompleted), 1)
	})

	t.Run("zero variance closes without adjustments", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		sessionID := createCounted(t, f, 100)

		dto, err := f.service.CompleteSession(ctx, f.opCtx(shared.RoleOperator), sessionID)
		require.NoError(t, err)
		assert.Equal(t, inventory.CycleCountStatusCompleted.String(), dto.Status)

		movements, err := f.movementRepo.FindBySKU(ctx, f.orgID, "SKU-A", shared.Filter{})
		require.NoError(t, err)
		assert.Empty(t, movements)
		assert.Equal(t, 0, f.auditRepo.count())
	})

	t.Run("large variance parks the session for approval", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		sessionID := createCounted(t, f, 80)

		dto, err := f.service.CompleteSession(ctx, f.opCtx(shared.RoleOperator), sessionID)
		require.NoError(t, err)
		assert.Equal(t, inventory.CycleCountStatusPendingApproval.String(), dto.Status)

		// No stock movement until someone approves.
		assert.Equal(t, int64(100), f.quantity(t, "SKU-A"))
		assert.Len(t, f.publisher.byType(inventory.EventTypeCycleCountPendingApproval), 1)
	})

	t.Run("uncounted items block completion", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		f.seedStock(t, "SKU-B", 50)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)
		_, err = f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-A", CountedQuantity: 100},
		})
		require.NoError(t, err)

		_, err = f.service.CompleteSession(ctx, f.opCtx(shared.RoleOperator), created.ID)
		require.Error(t, err)
		assert.Equal(t, "UNCOUNTED_ITEMS", shared.CodeOf(err))
	})
}

func TestCycleCountService_Approval(t *testing.T) {
	ctx := context.Background()

	parkSession := func(t *testing.T, f *cycleCountFixture) uuid.UUID {
		t.Helper()
		f.seedStock(t, "SKU-A", 100)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)
		_, err = f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-A", CountedQuantity: 60},
		})
		require.NoError(t, err)
		dto, err := f.service.CompleteSession(ctx, f.opCtx(shared.RoleOperator), created.ID)
		require.NoError(t, err)
		require.Equal(t, inventory.CycleCountStatusPendingApproval.String(), dto.Status)
		return created.ID
	}

	t.Run("approval commits the reconciliation", func(t *testing.T) {
		f := newCycleCountFixture(t)
		sessionID := parkSession(t, f)

		dto, err := f.service.ApproveSession(ctx, f.opCtx(shared.RoleInventoryManager), sessionID)
		require.NoError(t, err)
		assert.Equal(t, inventory.CycleCountStatusCompleted.String(), dto.Status)
		assert.Equal(t, int64(60), f.quantity(t, "SKU-A"))
	})

	t.Run("approval requires a privileged role", func(t *testing.T) {
		f := newCycleCountFixture(t)
		sessionID := parkSession(t, f)

		_, err := f.service.ApproveSession(ctx, f.opCtx(shared.RoleOperator), sessionID)
		require.Error(t, err)
		assert.Equal(t, shared.KindPermission, shared.KindOf(err))
		assert.Equal(t, int64(100), f.quantity(t, "SKU-A"))
	})

	t.Run("approving a session that is not parked is rejected", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)

		_, err = f.service.ApproveSession(ctx, f.opCtx(shared.RoleAdmin), created.ID)
		require.Error(t, err)
		assert.Equal(t, "INVALID_SESSION_STATUS", shared.CodeOf(err))
	})

	t.Run("rejection discards the counts without touching stock", func(t *testing.T) {
		f := newCycleCountFixture(t)
		sessionID := parkSession(t, f)

		dto, err := f.service.RejectSession(ctx, f.opCtx(shared.RoleAdmin), sessionID, "recount required")
		require.NoError(t, err)
		assert.Equal(t, inventory.CycleCountStatusRejected.String(), dto.Status)
		assert.Equal(t, int64(100), f.quantity(t, "SKU-A"))

		movements, err := f.movementRepo.FindBySKU(ctx, f.orgID, "SKU-A", shared.Filter{})
		require.NoError(t, err)
		assert.Empty(t, movements)
	})
}

func TestCycleCountService_GenerateVarianceReport(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies a count at the error boundary as a warning", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)
		_, err = f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-A", CountedQuantity: 80},
		})
		require.NoError(t, err)

		threshold := decimal.NewFromInt(20)
		report, err := f.service.GenerateVarianceReport(ctx, f.opCtx(shared.RoleOperator), created.ID, nil, &threshold)
		require.NoError(t, err)
		require.Len(t, report.Items, 1)
		assert.Equal(t, int64(-20), report.Items[0].Variance)
		assert.True(t, report.Items[0].VariancePercent.Equal(decimal.NewFromInt(-20)))
		assert.Equal(t, inventory.VarianceLevelWarning, report.Items[0].Level)
	})

	t.Run("uses configured thresholds when none are given", func(t *testing.T) {
		f := newCycleCountFixture(t)
		f.seedStock(t, "SKU-A", 100)
		created, err := f.service.CreateSession(ctx, f.opCtx(shared.RoleOperator), CreateSessionInput{
			WarehouseID: f.warehouseID, Type: inventory.CycleCountTypeFull,
		})
		require.NoError(t, err)
		_, err = f.service.SubmitCounts(ctx, f.opCtx(shared.RoleOperator), created.ID, []CountInput{
			{SKU: "SKU-A", CountedQuantity: 75},
		})
		require.NoError(t, err)

		report, err := f.service.GenerateVarianceReport(ctx, f.opCtx(shared.RoleOperator), created.ID, nil, nil)
		require.NoError(t, err)
		require.Len(t, report.Items, 1)
		// 25% over the default 20% error threshold.
		assert.Equal(t, inventory.VarianceLevelError, report.Items[0].Level)
		assert.Equal(t, 1, report.ItemsWithVariance)
		assert.Equal(t, int64(-25), report.TotalVariance)
		assert.Equal(t, int64(25), report.AbsoluteVariance)
	})
}
