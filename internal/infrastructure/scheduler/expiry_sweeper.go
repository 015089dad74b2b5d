package scheduler

import (
	"context"
	"sync"
	"time"

	appinv "github.com/fulfillment/backend/internal/application/inventory"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpirySweeperConfig holds configuration for the reservation expiry sweeper
type ExpirySweeperConfig struct {
	// Enabled determines if the sweeper is active
	Enabled bool

	// Interval is how often a sweep runs
	Interval time.Duration

	// ExpiryMinutes is the age at which an ACTIVE reservation counts
	// as abandoned
	ExpiryMinutes int

	// MaxToRelease caps the reservations released per organization
	// per sweep
	MaxToRelease int

	// SweepTimeout bounds one full sweep across all organizations
	SweepTimeout time.Duration
}

// DefaultExpirySweeperConfig returns default configuration
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{
		Enabled:       true,
		Interval:      5 * time.Minute,
		ExpiryMinutes: appinv.DefaultExpiryMinutes,
		MaxToRelease:  500,
		SweepTimeout:  2 * time.Minute,
	}
}

// OrganizationLister enumerates the organizations a sweep must visit.
// The reservation repository satisfies it.
type OrganizationLister interface {
	ListOrganizationsWithActive(ctx context.Context) ([]uuid.UUID, error)
}

// ExpirySweeper periodically releases abandoned ACTIVE reservations.
// Each sweep enumerates the organizations with active reservations and
// runs one expiry pass per organization under a SYSTEM identity, so a
// failure in one organization never blocks the others.
type ExpirySweeper struct {
	service   *appinv.ReservationExpiryService
	orgs      OrganizationLister
	logger    *zap.Logger
	config    ExpirySweeperConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(
	service *appinv.ReservationExpiryService,
	orgs OrganizationLister,
	logger *zap.Logger,
	config ExpirySweeperConfig,
) *ExpirySweeper {
	return &ExpirySweeper{
		service: service,
		orgs:    orgs,
		logger:  logger,
		config:  config,
	}
}

// Start starts the periodic sweep loop
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reservation expiry sweeper is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Reservation expiry sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("expiry_minutes", s.config.ExpiryMinutes),
		zap.Int("max_to_release", s.config.MaxToRelease))
	return nil
}

// Stop stops the sweep loop and waits for an in-flight sweep to finish
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Reservation expiry sweeper stopped")
}

func (s *ExpirySweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepNow runs one sweep immediately, outside the ticker cadence
func (s *ExpirySweeper) SweepNow(ctx context.Context) {
	s.sweep(ctx)
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	organizationIDs, err := s.orgs.ListOrganizationsWithActive(sweepCtx)
	if err != nil {
		s.logger.Error("Failed to enumerate organizations for expiry sweep", zap.Error(err))
		return
	}
	if len(organizationIDs) == 0 {
		return
	}

	opts := appinv.ExpirySweepOptions{
		ExpiryMinutes:    s.config.ExpiryMinutes,
		MaxToRelease:     s.config.MaxToRelease,
		SkipActiveOrders: true,
	}

	for _, organizationID := range organizationIDs {
		if sweepCtx.Err() != nil {
			s.logger.Warn("Expiry sweep interrupted",
				zap.Int("organizations_visited", len(organizationIDs)))
			return
		}

		opCtx := shared.NewSystemContext(organizationID)
		result, err := s.service.ReleaseExpired(sweepCtx, opCtx, opts)
		if err != nil {
			s.logger.Error("Expiry sweep failed for organization",
				zap.String("organization_id", organizationID.String()),
				zap.Error(err))
			continue
		}

		if result.TotalFound > 0 {
			s.logger.Info("Expiry sweep completed for organization",
				zap.String("organization_id", organizationID.String()),
				zap.Int("found", result.TotalFound),
				zap.Int("released", result.Released),
				zap.Int("skipped", result.Skipped),
				zap.Int("errors", len(result.Errors)))
		}
	}
}
