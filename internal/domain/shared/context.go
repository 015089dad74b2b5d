package shared

import (
	"github.com/google/uuid"
)

// Role is the caller role carried on every operation.
// Authentication happens outside the core; by the time an OperationContext
// reaches a service the identity has already been verified.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleInventoryManager Role = "INVENTORY_MANAGER"
	RoleOperator         Role = "OPERATOR"
	RoleSystem           Role = "SYSTEM"
)

// OperationContext identifies the caller of a core operation.
// OrganizationID scopes every query and mutation; UserID is recorded on the
// audit trail. Role is only consulted by privileged operations.
type OperationContext struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           Role
}

// SystemUserID is the synthetic identity recorded on audit entries
// written by background jobs.
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// NewSystemContext creates the operation context background jobs run
// under for the given organization
func NewSystemContext(organizationID uuid.UUID) OperationContext {
	return OperationContext{
		OrganizationID: organizationID,
		UserID:         SystemUserID,
		Role:           RoleSystem,
	}
}

// NewOperationContext creates an operation context for the given caller
func NewOperationContext(organizationID, userID uuid.UUID, role Role) OperationContext {
	return OperationContext{
		OrganizationID: organizationID,
		UserID:         userID,
		Role:           role,
	}
}

// Validate fails fast when the required caller identity is absent
func (c OperationContext) Validate() error {
	if c.OrganizationID == uuid.Nil {
		return NewValidationError("MISSING_ORGANIZATION", "Organization ID is required")
	}
	if c.UserID == uuid.Nil {
		return NewValidationError("MISSING_USER", "User ID is required")
	}
	return nil
}

// HasAnyRole reports whether the caller holds one of the given roles
func (c OperationContext) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
