package service

import (
	"context"

	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/entity"
	directoryEntity "orgsync-api/modules/directory/entity"
	eventEntity "orgsync-api/modules/event/entity"

	"github.com/google/uuid"
)

// RoleDirectory answers organization membership lookups.
type RoleDirectory interface {
	GetRole(ctx context.Context, orgID, userID uuid.UUID) (*string, error)
}

type PreferenceStore interface {
	Get(ctx context.Context, userID, orgID uuid.UUID) (*entity.SyncPreference, error)
	Upsert(ctx context.Context, pref *entity.SyncPreference) (*entity.SyncPreference, error)
}

type ConnectedUserLister interface {
	ConnectedUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// EligibilityResolver decides which users receive a copy of an event.
// It filters and never fails: lookup errors exclude the user.
type EligibilityResolver struct {
	users     ConnectedUserLister
	directory RoleDirectory
	prefs     PreferenceStore
}

func NewEligibilityResolver(users ConnectedUserLister, directory RoleDirectory, prefs PreferenceStore) *EligibilityResolver {
	return &EligibilityResolver{users: users, directory: directory, prefs: prefs}
}

func (r *EligibilityResolver) ResolveEligibleUsers(ctx context.Context, event *eventEntity.Event, orgID uuid.UUID) []uuid.UUID {
	connected, err := r.users.ConnectedUserIDs(ctx)
	if err != nil {
		logger.Error("EligibilityResolver:ResolveEligibleUsers:ListConnected:Error", "error", err, "event_id", event.ID)
		return nil
	}

	var targets map[uuid.UUID]struct{}
	if ids := event.TargetUsers(); len(ids) > 0 {
		targets = make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			targets[id] = struct{}{}
		}
	}

	eligible := make([]uuid.UUID, 0, len(connected))
	for _, userID := range connected {
		if ctx.Err() != nil {
			break
		}

		role, err := r.directory.GetRole(ctx, orgID, userID)
		if err != nil {
			logger.Warn("EligibilityResolver:ResolveEligibleUsers:GetRole:Error", "error", err, "user_id", userID)
			continue
		}
		if role == nil {
			continue
		}

		if targets != nil {
			if _, ok := targets[userID]; !ok {
				continue
			}
		} else if !audienceAllows(event.Audience, *role) {
			continue
		}

		pref, err := r.prefs.Get(ctx, userID, orgID)
		if err != nil {
			logger.Warn("EligibilityResolver:ResolveEligibleUsers:GetPreference:Error", "error", err, "user_id", userID)
			continue
		}
		if pref != nil && !pref.Allows(event.EventType) {
			continue
		}

		eligible = append(eligible, userID)
	}
	return eligible
}

// audienceAllows passes unknown audiences through.
func audienceAllows(audience, role string) bool {
	switch audience {
	case eventEntity.AudienceMembers:
		return role == directoryEntity.RoleMember || role == directoryEntity.RoleAdmin
	case eventEntity.AudienceAlumni:
		return role == directoryEntity.RoleAlumni
	default:
		return true
	}
}
