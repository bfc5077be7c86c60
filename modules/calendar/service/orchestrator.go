package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orgsync-api/core/constants"
	"orgsync-api/core/logger"
	"orgsync-api/core/utils"
	"orgsync-api/modules/calendar/mapper"
	"orgsync-api/modules/calendar/recurrence"
	eventEntity "orgsync-api/modules/event/entity"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrEventNotFound = errors.New("event not found")

// EventStore is the part of the events CRUD layer the sync engine needs.
type EventStore interface {
	GetEventByID(ctx context.Context, id uuid.UUID) (*eventEntity.Event, error)
	HasInstances(ctx context.Context, anchorID uuid.UUID) (bool, error)
	CreateInstances(ctx context.Context, anchor *eventEntity.Event, occurrences []eventEntity.Occurrence) ([]eventEntity.Event, error)
}

// SyncReport summarizes one orchestrator run.
type SyncReport struct {
	RunID     string      `json:"run_id"`
	EventIDs  []uuid.UUID `json:"event_ids"`
	Operation Operation   `json:"operation"`
	Synced    int         `json:"synced"`
	Failed    int         `json:"failed"`
	Deleted   int         `json:"deleted"`
	Skipped   int         `json:"skipped"`
	Noop      int         `json:"noop"`
	Results   []Result    `json:"results"`
	Error     string      `json:"error,omitempty"`
}

func (r *SyncReport) add(res Result) {
	switch res.Outcome {
	case OutcomeSynced:
		r.Synced++
	case OutcomeFailed:
		r.Failed++
	case OutcomeDeleted:
		r.Deleted++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeNoop:
		r.Noop++
	}
	r.Results = append(r.Results, res)
}

func (r *SyncReport) merge(other *SyncReport) {
	r.EventIDs = append(r.EventIDs, other.EventIDs...)
	for _, res := range other.Results {
		r.add(res)
	}
	if other.Error != "" && r.Error == "" {
		r.Error = other.Error
	}
}

// Orchestrator fans a source-event mutation out to every affected user.
type Orchestrator struct {
	resolver   *EligibilityResolver
	reconciler *Reconciler
	entries    EntryStore
	events     EventStore
	workers    int
}

func NewOrchestrator(resolver *EligibilityResolver, reconciler *Reconciler, entries EntryStore, events EventStore, workers int) *Orchestrator {
	if workers <= 0 {
		workers = constants.DefaultSyncWorkers
	}
	return &Orchestrator{
		resolver:   resolver,
		reconciler: reconciler,
		entries:    entries,
		events:     events,
		workers:    workers,
	}
}

// OnEventMutated reconciles every affected user. Failures are recorded per
// user in the report and never returned.
func (o *Orchestrator) OnEventMutated(ctx context.Context, event *eventEntity.Event, op Operation) *SyncReport {
	report := &SyncReport{
		RunID:     utils.GenerateID(),
		EventIDs:  []uuid.UUID{event.ID},
		Operation: op,
	}
	started := time.Now()
	logger.Info("Orchestrator:OnEventMutated:Start", "run_id", report.RunID, "event_id", event.ID, "operation", op)

	switch op {
	case OperationDelete:
		o.fanOutDelete(ctx, event, report)
	case OperationCreate, OperationUpdate:
		o.fanOutUpsert(ctx, event, op, report)
	default:
		report.Error = fmt.Sprintf("unknown operation %q", op)
	}

	logger.Info("Orchestrator:OnEventMutated:Done",
		"run_id", report.RunID,
		"event_id", event.ID,
		"operation", op,
		"synced", report.Synced,
		"failed", report.Failed,
		"deleted", report.Deleted,
		"skipped", report.Skipped,
		"noop", report.Noop,
		"duration", time.Since(started),
	)
	return report
}

func (o *Orchestrator) fanOutUpsert(ctx context.Context, event *eventEntity.Event, op Operation, report *SyncReport) {
	wire, err := mapper.ToGoogleEvent(event)
	if err != nil {
		logger.Warn("Orchestrator:FanOutUpsert:Map:Error", "run_id", report.RunID, "error", err, "event_id", event.ID)
		report.Error = err.Error()
		return
	}

	users := o.resolver.ResolveEligibleUsers(ctx, event, event.OrganizationID)
	o.fanOut(len(users), report, func(i int) Result {
		return o.reconciler.Upsert(ctx, op, event, event.OrganizationID, users[i], mapper.CloneGoogleEvent(wire))
	})
}

// fanOutDelete addresses every known entry; eligibility is not recomputed.
func (o *Orchestrator) fanOutDelete(ctx context.Context, event *eventEntity.Event, report *SyncReport) {
	entries, err := o.entries.ListByEvent(ctx, event.ID)
	if err != nil {
		logger.Error("Orchestrator:FanOutDelete:ListEntries:Error", "run_id", report.RunID, "error", err, "event_id", event.ID)
		report.Error = err.Error()
		return
	}

	o.fanOut(len(entries), report, func(i int) Result {
		return o.reconciler.Delete(ctx, entries[i])
	})
}

// fanOut runs fn for 0..n-1 on at most o.workers goroutines and adds the
// results to report in index order.
func (o *Orchestrator) fanOut(n int, report *SyncReport, fn func(i int) Result) {
	results := make([]Result, n)

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i := range n {
		g.Go(func() error {
			results[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.add(res)
	}
}

// OnRecurringEventCreated expands the anchor's rule, persists every other
// occurrence as an independent event and syncs the anchor and the new
// instances. An anchor that was already expanded is only synced.
//
// The anchor is the first instance of the series and is always synced, even
// when its weekday or day of month does not match the rule; the rule only
// decides which further instances are created.
func (o *Orchestrator) OnRecurringEventCreated(ctx context.Context, anchor *eventEntity.Event) (*SyncReport, error) {
	if anchor.RecurrenceRule == nil || anchor.RecurrenceParentID != nil {
		return o.OnEventMutated(ctx, anchor, OperationCreate), nil
	}

	var anchorEnd time.Time
	if anchor.EndDate != nil {
		anchorEnd = *anchor.EndDate
	}
	occurrences, err := recurrence.Expand(anchor.StartDate, anchorEnd, anchor.RecurrenceRule)
	if err != nil {
		return nil, err
	}

	rest := make([]eventEntity.Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if !occ.Start.Equal(anchor.StartDate) {
			rest = append(rest, occ)
		}
	}

	expanded, err := o.events.HasInstances(ctx, anchor.ID)
	if err != nil {
		return nil, fmt.Errorf("check instances: %w", err)
	}

	var instances []eventEntity.Event
	if expanded {
		logger.Info("Orchestrator:OnRecurringEventCreated:AlreadyExpanded", "event_id", anchor.ID)
	} else if instances, err = o.events.CreateInstances(ctx, anchor, rest); err != nil {
		return nil, fmt.Errorf("persist instances: %w", err)
	}
	logger.Info("Orchestrator:OnRecurringEventCreated:Expanded", "event_id", anchor.ID, "instances", len(instances))

	report := o.OnEventMutated(ctx, anchor, OperationCreate)

	// Instances run one after another; each already fans out across users.
	for i := range instances {
		report.merge(o.OnEventMutated(ctx, &instances[i], OperationCreate))
	}

	return report, nil
}

// SyncEventByID loads the event and runs OnEventMutated. A delete for an
// event that no longer exists still retires its ledger entries.
func (o *Orchestrator) SyncEventByID(ctx context.Context, eventID, orgID uuid.UUID, op Operation) (*SyncReport, error) {
	event, err := o.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		if op != OperationDelete {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		event = &eventEntity.Event{OrganizationID: orgID}
		event.ID = eventID
	}
	return o.OnEventMutated(ctx, event, op), nil
}

// ExpandEventByID loads a recurring anchor and runs OnRecurringEventCreated.
func (o *Orchestrator) ExpandEventByID(ctx context.Context, eventID uuid.UUID) (*SyncReport, error) {
	event, err := o.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	return o.OnRecurringEventCreated(ctx, event)
}
