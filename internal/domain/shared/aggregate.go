package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch stamps the entity as modified now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// BaseAggregateRoot is embedded by aggregates that are saved with an
// optimistic-lock version and emit domain events.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	events []DomainEvent
}

// NewBaseAggregateRoot returns a root with a fresh ID at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now().UTC()
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version:    1,
	}
}

// IncrementVersion is called by repositories after a successful save.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// GetDomainEvents returns the pending events without clearing them
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.events
}

// PullDomainEvents returns the pending events and clears them
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}
