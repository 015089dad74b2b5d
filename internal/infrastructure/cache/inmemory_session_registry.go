package cache

import (
	"context"
	"sync"
	"time"

	bulkimport "github.com/fulfillment/backend/internal/application/import"
	"github.com/fulfillment/backend/internal/domain/shared"
	"github.com/google/uuid"
)

type sessionEntry struct {
	result    *bulkimport.Result
	expiresAt time.Time
}

// InMemorySessionRegistry stores import results in memory. Suitable for
// single-instance deployments and testing.
type InMemorySessionRegistry struct {
	mu        sync.RWMutex
	entries   map[string]sessionEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySessionRegistry creates a new in-memory session registry.
// It starts a background goroutine to clean up expired entries.
func NewInMemorySessionRegistry() *InMemorySessionRegistry {
	registry := &InMemorySessionRegistry{
		entries:  make(map[string]sessionEntry),
		stopChan: make(chan struct{}),
	}

	registry.wg.Add(1)
	go registry.cleanupLoop()

	return registry
}

// StoreResult stores an import result with the given TTL
func (r *InMemorySessionRegistry) StoreResult(ctx context.Context, organizationID uuid.UUID, result *bulkimport.Result, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[sessionKey(organizationID, result.ImportID)] = sessionEntry{
		result:    result,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// GetResult fetches a stored import result for the organization
func (r *InMemorySessionRegistry) GetResult(ctx context.Context, organizationID, importID uuid.UUID) (*bulkimport.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[sessionKey(organizationID, importID)]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, shared.NewNotFoundError("IMPORT_NOT_FOUND", "Import session not found")
	}
	return e.result, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (r *InMemorySessionRegistry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()
	})
	return nil
}

// Size returns the number of entries in the registry (for testing/monitoring)
func (r *InMemorySessionRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *InMemorySessionRegistry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *InMemorySessionRegistry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, e := range r.entries {
		if now.After(e.expiresAt) {
			delete(r.entries, key)
		}
	}
}

func sessionKey(organizationID, importID uuid.UUID) string {
	return organizationID.String() + ":" + importID.String()
}

// Ensure InMemorySessionRegistry implements SessionRegistry
var _ bulkimport.SessionRegistry = (*InMemorySessionRegistry)(nil)
