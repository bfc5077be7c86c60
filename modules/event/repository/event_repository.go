package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orgsync-api/core/database"
	"orgsync-api/core/logger"
	"orgsync-api/modules/event/entity"

	"github.com/google/uuid"
)

// EventRepository reads events owned by the events CRUD layer and persists
// the instances expanded from a recurring anchor.
type EventRepository struct {
	DB database.IDatabase
}

func NewEventRepository(db database.IDatabase) *EventRepository {
	return &EventRepository{DB: db}
}

const eventColumns = `
	id, organization_id, title, description, location, start_date, end_date,
	event_type, audience, target_user_ids, recurrence_rule, recurrence_parent_id,
	created_at, updated_at`

func (r *EventRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND deleted_at IS NULL`

	var event entity.Event
	err := r.DB.GetContext(ctx, &event, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("EventRepository:GetEventByID:Error", "error", err, "event_id", id)
		return nil, err
	}
	return &event, nil
}

// HasInstances reports whether a recurring anchor was already expanded.
func (r *EventRepository) HasInstances(ctx context.Context, anchorID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM events WHERE recurrence_parent_id = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.DB.GetContext(ctx, &exists, query, anchorID); err != nil {
		logger.Error("EventRepository:HasInstances:Error", "error", err, "anchor_id", anchorID)
		return false, err
	}
	return exists, nil
}

// CreateInstances inserts one child event per occurrence in a single
// transaction. Children copy the anchor's content and carry no rule.
func (r *EventRepository) CreateInstances(ctx context.Context, anchor *entity.Event, occurrences []entity.Occurrence) ([]entity.Event, error) {
	if len(occurrences) == 0 {
		return nil, nil
	}

	tx, err := r.DB.BeginTxx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO events (
			organization_id, title, description, location, start_date, end_date,
			event_type, audience, target_user_ids, recurrence_parent_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + eventColumns

	created := make([]entity.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		end := occ.End
		var event entity.Event
		err := tx.GetContext(ctx, &event, query,
			anchor.OrganizationID, anchor.Title, anchor.Description, anchor.Location,
			occ.Start, &end, anchor.EventType, anchor.Audience, anchor.TargetUserIDs, anchor.ID,
		)
		if err != nil {
			logger.Error("EventRepository:CreateInstances:Insert:Error", "error", err, "anchor_id", anchor.ID, "start", occ.Start)
			return nil, fmt.Errorf("insert instance %s: %w", occ.Start, err)
		}
		created = append(created, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}
