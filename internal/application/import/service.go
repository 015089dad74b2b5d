package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	appinventory "github.com/fulfillment/backend/internal/application/inventory"
	"github.com/fulfillment/backend/internal/domain/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	csvimport "github.com/fulfillment/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config bounds a single import call
type Config struct {
	// MaxRows caps the data rows per file; one row past the limit
	// rejects the whole file
	MaxRows int
	// MaxFileSizeBytes caps the raw file size
	MaxFileSizeBytes int
	// MaxErrors caps the row errors collected in a result
	MaxErrors int
	// SessionTTL is how long a finished import result stays retrievable
	SessionTTL time.Duration
}

// DefaultConfig returns the standard import limits
func DefaultConfig() Config {
	return Config{
		MaxRows:          10000,
		MaxFileSizeBytes: 10 << 20,
		MaxErrors:        100,
		SessionTTL:       24 * time.Hour,
	}
}

// Options tunes one import call
type Options struct {
	// WarehouseID is the default target for rows without a warehouseid
	// column value
	WarehouseID uuid.UUID
	// Atomic makes the whole batch one transaction: any row failure
	// rolls back every row
	Atomic bool
	// FailOnFirstError stops row processing at the first row error
	FailOnFirstError bool
}

// Result reports one import call. Each call gets a fresh ImportID;
// identical content imported twice produces two independent results.
type Result struct {
	ImportID    uuid.UUID            `json:"importId"`
	TotalRows   int                  `json:"totalRows"`
	Created     int                  `json:"created"`
	Updated     int                  `json:"updated"`
	Skipped     int                  `json:"skipped"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"totalErrors"`
	Truncated   bool                 `json:"truncated,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
	Success     bool                 `json:"success"`
	CompletedAt time.Time            `json:"completedAt"`
}

// typedRow is one parsed and type-converted data row
type typedRow struct {
	line        int
	sku         string
	quantity    int64
	warehouseID uuid.UUID
}

// ImportService is the CSV ingestion pipeline: size check, parse,
// header validation, row limit, typing, de-duplication, per-row rule
// checks, then create-or-update against the store.
type ImportService struct {
	scope          appinventory.TransactionScope
	inventoryRepo  inventory.InventoryItemRepository
	validation     *appinventory.ValidationService
	registry       SessionRegistry
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	config         Config
}

// NewImportService creates a new ImportService
func NewImportService(
	scope appinventory.TransactionScope,
	inventoryRepo inventory.InventoryItemRepository,
	validation *appinventory.ValidationService,
	logger *zap.Logger,
	config Config,
) *ImportService {
	if config.MaxRows <= 0 {
		config.MaxRows = DefaultConfig().MaxRows
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = DefaultConfig().MaxFileSizeBytes
	}
	if config.MaxErrors <= 0 {
		config.MaxErrors = DefaultConfig().MaxErrors
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultConfig().SessionTTL
	}
	return &ImportService{
		scope:         scope,
		inventoryRepo: inventoryRepo,
		validation:    validation,
		logger:        logger,
		config:        config,
	}
}

// SetSessionRegistry wires the TTL registry for result retrieval
func (s *ImportService) SetSessionRegistry(registry SessionRegistry) {
	s.registry = registry
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *ImportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Import ingests one CSV file. File-level failures (size, encoding,
// header, row limit) reject the whole file with zero writes and are
// returned as errors. Row-level failures land in the result: partial
// success by default, all-or-nothing when Atomic is set.
func (s *ImportService) Import(ctx context.Context, opCtx shared.OperationContext, data []byte, opts Options) (*Result, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}

	if len(data) > s.config.MaxFileSizeBytes {
		return nil, shared.NewValidationError("FILE_TOO_LARGE",
			fmt.Sprintf("File size %d exceeds the limit of %d bytes", len(data), s.config.MaxFileSizeBytes))
	}

	rows, err := s.parse(data)
	if err != nil {
		return nil, err
	}

	result := &Result{ImportID: uuid.New(), TotalRows: len(rows)}
	collection := csvimport.NewErrorCollection(s.config.MaxErrors)

	typed := s.typeRows(rows, opts, collection)
	typed = s.dedupe(typed, result)
	s.validateRows(ctx, opCtx, typed, opts, collection)

	if s.shouldApply(opts, collection) {
		if err := s.apply(ctx, opCtx, typed, opts, collection, result); err != nil {
			return nil, err
		}
	} else {
		result.Skipped = len(typed)
	}

	result.Errors = collection.Errors()
	result.TotalErrors = collection.TotalCount()
	result.Truncated = collection.IsTruncated()
	result.Success = !collection.HasErrors()
	result.CompletedAt = time.Now()

	s.storeResult(ctx, opCtx.OrganizationID, result)

	s.logger.Info("import finished",
		zap.String("import_id", result.ImportID.String()),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errors", result.TotalErrors))

	return result, nil
}

// GetImport retrieves the result of a previous import from the registry
func (s *ImportService) GetImport(ctx context.Context, opCtx shared.OperationContext, importID uuid.UUID) (*Result, error) {
	if err := opCtx.Validate(); err != nil {
		return nil, err
	}
	if s.registry == nil {
		return nil, shared.NewNotFoundError("IMPORT_NOT_FOUND", "Import result registry is not configured")
	}
	return s.registry.GetResult(ctx, opCtx.OrganizationID, importID)
}

// parse runs the file-level stages: encoding, header, row limit. Any
// failure here rejects the whole file.
func (s *ImportService) parse(data []byte) ([]*csvimport.Row, error) {
	parser, err := csvimport.NewCSVParser(data)
	if err != nil {
		return nil, fileError(err)
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, fileError(err)
	}
	if err := parser.RequireHeaders("sku", "quantity"); err != nil {
		return nil, fileError(err)
	}

	rows, err := parser.ReadAllRows(s.config.MaxRows)
	if err != nil {
		return nil, fileError(err)
	}
	return rows, nil
}

// fileError maps parser failures to the validation error taxonomy
func fileError(err error) error {
	switch {
	case errors.Is(err, csvimport.ErrEmptyFile):
		return shared.NewValidationError("EMPTY_FILE", "File contains no content")
	case errors.Is(err, csvimport.ErrInvalidEncoding):
		return shared.NewValidationError("INVALID_ENCODING", "File must be UTF-8 encoded")
	case errors.Is(err, csvimport.ErrMissingHeader), errors.Is(err, csvimport.ErrInvalidHeader):
		return shared.NewValidationError("INVALID_HEADER", err.Error())
	case errors.Is(err, csvimport.ErrNoDataRows):
		return shared.NewValidationError("NO_DATA_ROWS", "File contains no data rows")
	case errors.Is(err, csvimport.ErrTooManyRows):
		return shared.NewValidationError("TOO_MANY_ROWS", err.Error())
	case errors.Is(err, csvimport.ErrMalformedRow):
		return shared.NewValidationError("MALFORMED_ROW", err.Error())
	default:
		return shared.NewValidationError("INVALID_FILE", err.Error())
	}
}

// typeRows converts raw rows to typed ones, collecting conversion
// failures. Rows that fail conversion are dropped before dedup.
func (s *ImportService) typeRows(rows []*csvimport.Row, opts Options, collection *csvimport.ErrorCollection) []typedRow {
	typed := make([]typedRow, 0, len(rows))

	for _, row := range rows {
		ok := true

		sku := row.Get("sku")
		if sku == "" {
			collection.AddRequired(row.LineNumber, "sku")
			ok = false
		}

		var quantity int64
		rawQuantity := row.Get("quantity")
		if rawQuantity == "" {
			collection.AddRequired(row.LineNumber, "quantity")
			ok = false
		} else {
			parsed, err := strconv.ParseInt(rawQuantity, 10, 64)
			if err != nil {
				collection.AddType(row.LineNumber, "quantity", "integer", rawQuantity)
				ok = false
			} else {
				quantity = parsed
			}
		}

		warehouseID := opts.WarehouseID
		if raw := row.Get("warehouseid"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				collection.AddType(row.LineNumber, "warehouseid", "UUID", raw)
				ok = false
			} else {
				warehouseID = parsed
			}
		}
		if ok && warehouseID == uuid.Nil {
			collection.AddRequired(row.LineNumber, "warehouseid")
			ok = false
		}

		if ok {
			typed = append(typed, typedRow{
				line:        row.LineNumber,
				sku:         sku,
				quantity:    quantity,
				warehouseID: warehouseID,
			})
		}
	}

	return typed
}

// dedupe keeps the LAST occurrence per (warehouse, sku), warning for
// each superseded row. Keeping the last makes a corrected row at the
// bottom of a file win, which is how spreadsheet edits usually land.
func (s *ImportService) dedupe(typed []typedRow, result *Result) []typedRow {
	last := make(map[string]int, len(typed))
	for idx, row := range typed {
		last[row.warehouseID.String()+"|"+row.sku] = idx
	}
	if len(last) == len(typed) {
		return typed
	}

	kept := make([]typedRow, 0, len(last))
	for idx, row := range typed {
		winner := last[row.warehouseID.String()+"|"+row.sku]
		if idx != winner {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: duplicate SKU %s superseded by row %d", row.line, row.sku, typed[winner].line))
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// validateRows runs the shared rule engine per row, outside any
// transaction so no lock is held across repository reads
func (s *ImportService) validateRows(ctx context.Context, opCtx shared.OperationContext, typed []typedRow, opts Options, collection *csvimport.ErrorCollection) {
	for _, row := range typed {
		record := appinventory.InventoryRecord{
			WarehouseID: row.warehouseID,
			SKU:         row.sku,
			Quantity:    row.quantity,
		}
		checked, err := s.validation.ValidateRecord(ctx, opCtx.OrganizationID, record)
		if err != nil {
			collection.Add(csvimport.NewRowError(row.line, "", csvimport.ErrCodeRowFailed, err.Error()))
		} else {
			for _, issue := range checked.Errors {
				collection.Add(csvimport.NewRowError(row.line, issue.Field, issue.Code, issue.Message))
			}
		}
		if opts.FailOnFirstError && collection.HasErrors() {
			return
		}
	}
}

// shouldApply decides whether any store writes happen
func (s *ImportService) shouldApply(opts Options, collection *csvimport.ErrorCollection) bool {
	if !collection.HasErrors() {
		return true
	}
	if opts.Atomic || opts.FailOnFirstError {
		return false
	}
	return true
}

// apply writes the valid rows. Atomic mode runs the whole batch in one
// transaction; otherwise each row commits or fails independently.
func (s *ImportService) apply(ctx context.Context, opCtx shared.OperationContext, typed []typedRow, opts Options, collection *csvimport.ErrorCollection, result *Result) error {
	failedLines := make(map[int]bool)
	for _, rowErr := range collection.Errors() {
		failedLines[rowErr.Row] = true
	}

	var events []shared.DomainEvent

	writeRow := func(repos appinventory.TransactionalRepositories, row typedRow) error {
		item, err := repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, row.warehouseID, row.sku)
		created := false
		if err != nil {
			if !shared.IsNotFound(err) {
				return err
			}
			if _, err := repos.InventoryRepo().GetOrCreate(ctx, opCtx.OrganizationID, row.warehouseID, row.sku); err != nil {
				return err
			}
			item, err = repos.InventoryRepo().FindBySKUForUpdate(ctx, opCtx.OrganizationID, row.warehouseID, row.sku)
			if err != nil {
				return err
			}
			created = true
		}

		before := inventory.SnapshotOf(item)
		if err := item.SetQuantity(row.quantity); err != nil {
			return err
		}
		if err := repos.InventoryRepo().Save(ctx, item); err != nil {
			return err
		}

		action := inventory.AuditActionImportUpdate
		if created {
			action = inventory.AuditActionImportCreate
		}
		entry, err := inventory.NewAuditLogEntry(opCtx.OrganizationID, row.warehouseID, opCtx.UserID, row.sku, action, before, inventory.SnapshotOf(item))
		if err == nil {
			entry.WithMetadata(map[string]interface{}{"importId": result.ImportID.String(), "line": row.line})
			err = repos.AuditRepo().Append(ctx, entry)
		}
		if err != nil {
			s.logger.Error("audit write failed, audit trail has a gap",
				zap.String("sku", row.sku), zap.String("import_id", result.ImportID.String()), zap.Error(err))
		}

		events = append(events, item.GetDomainEvents()...)
		item.ClearDomainEvents()

		if created {
			result.Created++
		} else {
			result.Updated++
		}
		return nil
	}

	if opts.Atomic {
		err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
			for _, row := range typed {
				if err := writeRow(repos, row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if shared.KindOf(err) == shared.KindInfrastructure {
				return err
			}
			// Rolled back: report the batch as failed, zero writes.
			result.Created = 0
			result.Updated = 0
			result.Skipped = len(typed)
			events = nil
			collection.Add(csvimport.NewRowError(0, "", csvimport.ErrCodeRowFailed, err.Error()))
		}
	} else {
		for _, row := range typed {
			if failedLines[row.line] {
				result.Skipped++
				continue
			}
			err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
				return writeRow(repos, row)
			})
			if err != nil {
				if shared.KindOf(err) == shared.KindInfrastructure {
					return err
				}
				collection.Add(csvimport.NewRowError(row.line, "", csvimport.ErrCodeRowFailed, err.Error()))
				result.Skipped++
			}
		}
	}

	s.publish(ctx, events)
	return nil
}

func (s *ImportService) storeResult(ctx context.Context, organizationID uuid.UUID, result *Result) {
	if s.registry == nil {
		return
	}
	if err := s.registry.StoreResult(ctx, organizationID, result, s.config.SessionTTL); err != nil {
		s.logger.Warn("import result registry write failed",
			zap.String("import_id", result.ImportID.String()), zap.Error(err))
	}
}

func (s *ImportService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}
