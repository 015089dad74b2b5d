package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot adds optimistic-lock versioning and domain event
// collection on top of Entity.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot is embedded by every aggregate. The version column
// backs optimistic locking; domain events accumulate in memory until a
// repository publishes and clears them after a successful save.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues an event for publication after the next save.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot starts a fresh aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// OrgAggregateRoot scopes an aggregate to a single organization. Every
// query against an org-scoped aggregate must filter by OrganizationID.
type OrgAggregateRoot struct {
	BaseAggregateRoot
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewOrgAggregateRoot starts a fresh aggregate owned by the given
// organization.
func NewOrgAggregateRoot(organizationID uuid.UUID) OrgAggregateRoot {
	return OrgAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		OrganizationID:    organizationID,
	}
}
