package repository

import (
	"context"
	"database/sql"

	"orgsync-api/core/database"
	"orgsync-api/core/logger"

	"github.com/google/uuid"
)

// DirectoryRepository answers role lookups against the membership directory.
type DirectoryRepository struct {
	DB database.IDatabase
}

func NewDirectoryRepository(db database.IDatabase) *DirectoryRepository {
	return &DirectoryRepository{DB: db}
}

// GetRole returns the user's role in the organization, or nil when the user
// is not a member.
func (r *DirectoryRepository) GetRole(ctx context.Context, orgID, userID uuid.UUID) (*string, error) {
	query := `
		SELECT role
		FROM user_organization_roles
		WHERE organization_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	var role string
	err := r.DB.GetContext(ctx, &role, query, orgID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("DirectoryRepository:GetRole:Error", "error", err, "organization_id", orgID, "user_id", userID)
		return nil, err
	}
	return &role, nil
}
