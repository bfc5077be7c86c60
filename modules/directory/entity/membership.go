package entity

import (
	"orgsync-api/core/entity"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleAlumni = "alumni"
)

// Membership is a user's role within one organization.
type Membership struct {
	OrganizationID uuid.UUID `db:"organization_id"`
	UserID         uuid.UUID `db:"user_id"`
	Role           string    `db:"role"`
	entity.BaseEntity
}
