package inventory

import (
	"fmt"
	"time"

	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CycleCountType determines how a counting session selects items
type CycleCountType string

const (
	CycleCountTypeFull    CycleCountType = "FULL"
	CycleCountTypePartial CycleCountType = "PARTIAL"
)

// IsValid checks if the type is a known CycleCountType
func (t CycleCountType) IsValid() bool {
	return t == CycleCountTypeFull || t == CycleCountTypePartial
}

// CycleCountStatus represents the lifecycle status of a counting session
type CycleCountStatus string

const (
	CycleCountStatusInProgress      CycleCountStatus = "IN_PROGRESS"
	CycleCountStatusPendingApproval CycleCountStatus = "PENDING_APPROVAL"
	CycleCountStatusCompleted       CycleCountStatus = "COMPLETED"
	CycleCountStatusRejected        CycleCountStatus = "REJECTED"
)

// IsValid checks if the status is a known CycleCountStatus
func (s CycleCountStatus) IsValid() bool {
	switch s {
	case CycleCountStatusInProgress, CycleCountStatusPendingApproval,
		CycleCountStatusCompleted, CycleCountStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of CycleCountStatus
func (s CycleCountStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s CycleCountStatus) CanTransitionTo(target CycleCountStatus) bool {
	switch s {
	case CycleCountStatusInProgress:
		return target == CycleCountStatusPendingApproval || target == CycleCountStatusCompleted
	case CycleCountStatusPendingApproval:
		return target == CycleCountStatusCompleted || target == CycleCountStatusRejected
	}
	return false
}

// CycleCountItem is a line item in a counting session. ExpectedQuantity
// is the system quantity snapshotted at session creation; CountedQuantity
// stays nil until a count is recorded.
type CycleCountItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	SKU              string     `gorm:"type:varchar(100);not null"`
	ExpectedQuantity int64      `gorm:"not null"`
	CountedQuantity  *int64     `gorm:""`
	CountedBy        *uuid.UUID `gorm:"type:uuid"`
	CountedAt        *time.Time `gorm:""`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (CycleCountItem) TableName() string {
	return "cycle_count_items"
}

// NewCycleCountItem creates an uncounted line item
func NewCycleCountItem(sessionID uuid.UUID, sku string, expectedQuantity int64) *CycleCountItem {
	now := time.Now()
	return &CycleCountItem{
		ID:               uuid.New(),
		SessionID:        sessionID,
		SKU:              sku,
		ExpectedQuantity: expectedQuantity,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecordCount records the physical count for this item
func (i *CycleCountItem) RecordCount(counted int64, by uuid.UUID) error {
	if counted < 0 || counted > MaxQuantity {
		return shared.NewValidationError("INVALID_QUANTITY", "Counted quantity out of range")
	}

	now := time.Now()
	i.CountedQuantity = &counted
	i.CountedBy = &by
	i.CountedAt = &now
	i.UpdatedAt = now

	return nil
}

// IsCounted reports whether a count has been recorded
func (i *CycleCountItem) IsCounted() bool {
	return i.CountedQuantity != nil
}

// Variance returns counted minus expected. Zero until counted.
func (i *CycleCountItem) Variance() int64 {
	if i.CountedQuantity == nil {
		return 0
	}
	return *i.CountedQuantity - i.ExpectedQuantity
}

// VariancePercent returns the variance relative to the expected
// quantity, in percent. When expected is zero the ratio is undefined:
// a zero count yields 0 and any nonzero count yields a signed 100.
func (i *CycleCountItem) VariancePercent() decimal.Decimal {
	variance := i.Variance()
	if i.ExpectedQuantity == 0 {
		if variance == 0 {
			return decimal.Zero
		}
		if variance > 0 {
			return decimal.NewFromInt(100)
		}
		return decimal.NewFromInt(-100)
	}
	return decimal.NewFromInt(variance).
		Div(decimal.NewFromInt(i.ExpectedQuantity)).
		Mul(decimal.NewFromInt(100)).
		Round(4)
}

// CycleCountSession is the aggregate root for a physical counting
// workflow. Blind sessions never expose expected quantities to
// counters; the omission is applied at projection time.
type CycleCountSession struct {
	shared.OrgAggregateRoot
	WarehouseID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_cycle_count_org_warehouse"`
	Type         CycleCountType   `gorm:"type:varchar(20);not null"`
	IsBlind      bool             `gorm:"not null;default:false"`
	Status       CycleCountStatus `gorm:"type:varchar(20);not null;default:'IN_PROGRESS';index"`
	CreatedBy    uuid.UUID        `gorm:"type:uuid;not null"`
	CompletedAt  *time.Time       `gorm:""`
	ApprovedBy   *uuid.UUID       `gorm:"type:uuid"`
	ApprovedAt   *time.Time       `gorm:""`
	ApprovalNote string           `gorm:"type:text"`

	Items []CycleCountItem `gorm:"foreignKey:SessionID;references:ID"`
}

// TableName returns the table name for GORM
func (CycleCountSession) TableName() string {
	return "cycle_count_sessions"
}

// NewCycleCountSession creates an IN_PROGRESS session over the given
// SKU snapshot. PARTIAL sessions require at least one SKU; FULL
// sessions expect the caller to pass the full warehouse snapshot.
func NewCycleCountSession(organizationID, warehouseID uuid.UUID, countType CycleCountType, isBlind bool, createdBy uuid.UUID, snapshot map[string]int64) (*CycleCountSession, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if !countType.IsValid() {
		return nil, shared.NewValidationError("INVALID_COUNT_TYPE", fmt.Sprintf("Unknown cycle count type: %s", countType))
	}
	if len(snapshot) == 0 {
		if countType == CycleCountTypePartial {
			return nil, shared.NewValidationError("MISSING_SKUS", "Partial cycle count requires at least one SKU")
		}
		return nil, shared.NewValidationError("EMPTY_WAREHOUSE", "No inventory items to count in warehouse")
	}

	session := &CycleCountSession{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		WarehouseID:      warehouseID,
		Type:             countType,
		IsBlind:          isBlind,
		Status:           CycleCountStatusInProgress,
		CreatedBy:        createdBy,
	}

	session.Items = make([]CycleCountItem, 0, len(snapshot))
	for sku, expected := range snapshot {
		session.Items = append(session.Items, *NewCycleCountItem(session.ID, sku, expected))
	}

	session.AddDomainEvent(NewCycleCountSessionCreatedEvent(session))

	return session, nil
}

// FindItem returns the line item for a SKU, or nil
func (s *CycleCountSession) FindItem(sku string) *CycleCountItem {
	for idx := range s.Items {
		if s.Items[idx].SKU == sku {
			return &s.Items[idx]
		}
	}
	return nil
}

// RecordCount records a physical count for a SKU in the session
func (s *CycleCountSession) RecordCount(sku string, counted int64, by uuid.UUID) error {
	if s.Status != CycleCountStatusInProgress {
		return shared.NewConflictError("SESSION_NOT_IN_PROGRESS", "Counts can only be recorded while the session is in progress")
	}

	item := s.FindItem(sku)
	if item == nil {
		return shared.NewNotFoundError("ITEM_NOT_IN_SESSION", fmt.Sprintf("SKU %s is not part of this session", sku))
	}
	if err := item.RecordCount(counted, by); err != nil {
		return err
	}

	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// AllCounted reports whether every line item has a recorded count
func (s *CycleCountSession) AllCounted() bool {
	for idx := range s.Items {
		if !s.Items[idx].IsCounted() {
			return false
		}
	}
	return true
}

// CountedItems returns the number of items with a recorded count
func (s *CycleCountSession) CountedItems() int {
	counted := 0
	for idx := range s.Items {
		if s.Items[idx].IsCounted() {
			counted++
		}
	}
	return counted
}

// RequiresApproval reports whether any item's absolute variance
// percent reaches the auto-approve threshold. The comparison is
// inclusive: a variance exactly at the threshold requires approval.
func (s *CycleCountSession) RequiresApproval(autoApproveThreshold decimal.Decimal) bool {
	for idx := range s.Items {
		if !s.Items[idx].IsCounted() {
			continue
		}
		if s.Items[idx].VariancePercent().Abs().GreaterThanOrEqual(autoApproveThreshold) {
			return true
		}
	}
	return false
}

// SubmitForApproval transitions IN_PROGRESS to PENDING_APPROVAL
func (s *CycleCountSession) SubmitForApproval() error {
	if !s.Status.CanTransitionTo(CycleCountStatusPendingApproval) {
		return shared.NewConflictError("INVALID_SESSION_STATUS", fmt.Sprintf("Cannot submit session in status %s for approval", s.Status))
	}

	s.Status = CycleCountStatusPendingApproval
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewCycleCountPendingApprovalEvent(s))

	return nil
}

// Complete transitions the session to COMPLETED. Every item must have
// been counted first.
func (s *CycleCountSession) Complete(by uuid.UUID) error {
	if !s.Status.CanTransitionTo(CycleCountStatusCompleted) {
		return shared.NewConflictError("INVALID_SESSION_STATUS", fmt.Sprintf("Cannot complete session in status %s", s.Status))
	}
	if !s.AllCounted() {
		return shared.NewConflictError("UNCOUNTED_ITEMS", "All items must be counted before completing the session")
	}

	now := time.Now()
	s.Status = CycleCountStatusCompleted
	s.CompletedAt = &now
	s.ApprovedBy = &by
	s.ApprovedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewCycleCountSessionCompletedEvent(s))

	return nil
}

// Reject transitions PENDING_APPROVAL to REJECTED, discarding the
// counts without reconciling stock.
func (s *CycleCountSession) Reject(by uuid.UUID, note string) error {
	if !s.Status.CanTransitionTo(CycleCountStatusRejected) {
		return shared.NewConflictError("INVALID_SESSION_STATUS", fmt.Sprintf("Cannot reject session in status %s", s.Status))
	}

	now := time.Now()
	s.Status = CycleCountStatusRejected
	s.ApprovedBy = &by
	s.ApprovedAt = &now
	s.ApprovalNote = note
	s.UpdatedAt = now
	s.IncrementVersion()

	return nil
}

// VarianceLevel classifies a variance percent against the report thresholds
type VarianceLevel string

const (
	VarianceLevelOK      VarianceLevel = "OK"
	VarianceLevelWarning VarianceLevel = "WARNING"
	VarianceLevelError   VarianceLevel = "ERROR"
)

// ClassifyVariance maps an absolute variance percent to a level.
// The warning boundary is inclusive and the error boundary exclusive:
// a variance exactly at the error threshold reports WARNING.
func ClassifyVariance(percent, warningThreshold, errorThreshold decimal.Decimal) VarianceLevel {
	abs := percent.Abs()
	if abs.GreaterThan(errorThreshold) {
		return VarianceLevelError
	}
	if abs.GreaterThanOrEqual(warningThreshold) {
		return VarianceLevelWarning
	}
	return VarianceLevelOK
}

// VarianceReportItem is one row of a variance report. For blind
// sessions the report is only available after completion, so expected
// quantities are always included here.
type VarianceReportItem struct {
	SKU             string          `json:"sku"`
	Expected        int64           `json:"expected"`
	Counted         int64           `json:"counted"`
	Variance        int64           `json:"variance"`
	VariancePercent decimal.Decimal `json:"variancePercent"`
	Level           VarianceLevel   `json:"varianceLevel"`
}

// VarianceReport is the derived summary of a counting session. It is
// computed on demand and never persisted independently.
type VarianceReport struct {
	SessionID         uuid.UUID            `json:"sessionId"`
	TotalItems        int                  `json:"totalItems"`
	ItemsWithVariance int                  `json:"itemsWithVariance"`
	TotalVariance     int64                `json:"totalVariance"`
	AbsoluteVariance  int64                `json:"absoluteVariance"`
	Items             []VarianceReportItem `json:"items"`
}

// BuildVarianceReport computes the variance report for a session.
// Uncounted items are excluded from the rows and totals.
func BuildVarianceReport(session *CycleCountSession, warningThreshold, errorThreshold decimal.Decimal) *VarianceReport {
	report := &VarianceReport{
		SessionID: session.ID,
		Items:     make([]VarianceReportItem, 0, len(session.Items)),
	}

	for idx := range session.Items {
		item := &session.Items[idx]
		if !item.IsCounted() {
			continue
		}

		variance := item.Variance()
		percent := item.VariancePercent()

		report.TotalItems++
		report.TotalVariance += variance
		if variance != 0 {
			report.ItemsWithVariance++
		}
		if variance < 0 {
			report.AbsoluteVariance -= variance
		} else {
			report.AbsoluteVariance += variance
		}

		report.Items = append(report.Items, VarianceReportItem{
			SKU:             item.SKU,
			Expected:        item.ExpectedQuantity,
			Counted:         *item.CountedQuantity,
			Variance:        variance,
			VariancePercent: percent,
			Level:           ClassifyVariance(percent, warningThreshold, errorThreshold),
		})
	}

	return report
}
