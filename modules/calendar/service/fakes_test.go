package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"orgsync-api/core/params"
	"orgsync-api/modules/calendar/entity"
	"orgsync-api/modules/calendar/provider"
	eventEntity "orgsync-api/modules/event/entity"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
)

type fakeConnections struct {
	mu          sync.Mutex
	conns       map[uuid.UUID]entity.CalendarConnection
	tokenWrites int
	listErr     error
	deleted     []uuid.UUID
}

func newFakeConnections() *fakeConnections {
	return &fakeConnections{conns: make(map[uuid.UUID]entity.CalendarConnection)}
}

func (f *fakeConnections) put(conn entity.CalendarConnection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[conn.UserID] = conn
}

func (f *fakeConnections) get(userID uuid.UUID) entity.CalendarConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[userID]
}

func (f *fakeConnections) GetByUserID(_ context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[userID]
	if !ok {
		return nil, nil
	}
	return &conn, nil
}

func (f *fakeConnections) Upsert(_ context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := *conn
	if existing, ok := f.conns[conn.UserID]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.ID = uuid.New()
		saved.CreatedAt = time.Now()
	}
	f.conns[conn.UserID] = saved
	return &saved, nil
}

func (f *fakeConnections) UpdateTokens(_ context.Context, userID uuid.UUID, accessToken, refreshToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := f.conns[userID]
	conn.AccessToken = accessToken
	conn.RefreshToken = refreshToken
	conn.TokenExpiresAt = expiresAt
	conn.Status = entity.StatusConnected
	f.conns[userID] = conn
	f.tokenWrites++
	return nil
}

func (f *fakeConnections) UpdateStatus(_ context.Context, userID uuid.UUID, status entity.ConnectionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := f.conns[userID]
	conn.Status = status
	f.conns[userID] = conn
	return nil
}

func (f *fakeConnections) TouchLastSync(_ context.Context, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := f.conns[userID]
	conn.LastSyncAt = &at
	f.conns[userID] = conn
	return nil
}

func (f *fakeConnections) ListConnectedUserIDs(context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var ids []uuid.UUID
	for id, conn := range f.conns {
		if conn.Status == entity.StatusConnected {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeConnections) DeleteWithEntries(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, userID)
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	fn    func(refreshToken string) (*oauth2.Token, error)
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.fn(refreshToken)
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type entryKey struct {
	eventID uuid.UUID
	userID  uuid.UUID
}

type fakeEntries struct {
	mu        sync.Mutex
	entries   map[entryKey]entity.SyncEntry
	order     []entryKey
	upsertErr error
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{entries: make(map[entryKey]entity.SyncEntry)}
}

func (f *fakeEntries) Get(_ context.Context, eventID, userID uuid.UUID) (*entity.SyncEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[entryKey{eventID, userID}]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (f *fakeEntries) Upsert(_ context.Context, entry *entity.SyncEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := entryKey{entry.EventID, entry.UserID}
	if _, ok := f.entries[key]; !ok {
		f.order = append(f.order, key)
	}
	f.entries[key] = *entry
	return nil
}

func (f *fakeEntries) ListByEvent(_ context.Context, eventID uuid.UUID) ([]entity.SyncEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.SyncEntry
	for _, key := range f.order {
		if key.eventID == eventID {
			out = append(out, f.entries[key])
		}
	}
	return out, nil
}

func (f *fakeEntries) ListByUser(_ context.Context, userID uuid.UUID, p params.QueryParams) ([]entity.SyncEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.SyncEntry
	for _, key := range f.order {
		if key.userID == userID {
			out = append(out, f.entries[key])
		}
	}
	return out, len(out), nil
}

func (f *fakeEntries) get(eventID, userID uuid.UUID) (entity.SyncEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[entryKey{eventID, userID}]
	return entry, ok
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*UserToken
	synced map[uuid.UUID]int
}

func newFakeTokens(users ...uuid.UUID) *fakeTokens {
	f := &fakeTokens{tokens: make(map[uuid.UUID]*UserToken), synced: make(map[uuid.UUID]int)}
	for _, u := range users {
		f.tokens[u] = &UserToken{UserID: u, AccessToken: "tok-" + u.String(), CalendarID: "primary"}
	}
	return f
}

func (f *fakeTokens) GetValidToken(_ context.Context, userID uuid.UUID) *UserToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[userID]
}

func (f *fakeTokens) MarkSynced(_ context.Context, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced[userID]++
}

type providerCall struct {
	Method   string
	Token    string
	RemoteID string
	Summary  string
}

type fakeProvider struct {
	mu        sync.Mutex
	calls     []providerCall
	nextID    int
	insertErr map[string]error // keyed by access token
	updateErr map[string]error // keyed by remote id
	deleteErr map[string]error // keyed by remote id
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		insertErr: make(map[string]error),
		updateErr: make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeProvider) Insert(_ context.Context, accessToken, _ string, event *calendar.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, providerCall{Method: "insert", Token: accessToken, Summary: event.Summary})
	if err := f.insertErr[accessToken]; err != nil {
		return "", err
	}
	f.nextID++
	return fmt.Sprintf("remote-%d", f.nextID), nil
}

func (f *fakeProvider) Update(_ context.Context, accessToken, _, remoteID string, event *calendar.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, providerCall{Method: "update", Token: accessToken, RemoteID: remoteID, Summary: event.Summary})
	return f.updateErr[remoteID]
}

func (f *fakeProvider) Delete(_ context.Context, accessToken, _, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, providerCall{Method: "delete", Token: accessToken, RemoteID: remoteID})
	return f.deleteErr[remoteID]
}

func (f *fakeProvider) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

var _ provider.CalendarProvider = (*fakeProvider)(nil)

type fakeDirectory struct {
	roles map[uuid.UUID]string
	errs  map[uuid.UUID]error
}

func (f *fakeDirectory) GetRole(_ context.Context, _, userID uuid.UUID) (*string, error) {
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	role, ok := f.roles[userID]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

type fakePrefs struct {
	mu    sync.Mutex
	prefs map[uuid.UUID]entity.SyncPreference
	errs  map[uuid.UUID]error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{prefs: make(map[uuid.UUID]entity.SyncPreference), errs: make(map[uuid.UUID]error)}
}

func (f *fakePrefs) Get(_ context.Context, userID, _ uuid.UUID) (*entity.SyncPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[userID]; err != nil {
		return nil, err
	}
	pref, ok := f.prefs[userID]
	if !ok {
		return nil, nil
	}
	return &pref, nil
}

func (f *fakePrefs) Upsert(_ context.Context, pref *entity.SyncPreference) (*entity.SyncPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[pref.UserID] = *pref
	saved := *pref
	return &saved, nil
}

type staticUsers struct {
	ids []uuid.UUID
	err error
}

func (s staticUsers) ConnectedUserIDs(context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type fakeEvents struct {
	mu        sync.Mutex
	events    map[uuid.UUID]*eventEntity.Event
	instances map[uuid.UUID][]eventEntity.Event
}

func newFakeEvents(events ...*eventEntity.Event) *fakeEvents {
	f := &fakeEvents{events: make(map[uuid.UUID]*eventEntity.Event), instances: make(map[uuid.UUID][]eventEntity.Event)}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEvents) GetEventByID(_ context.Context, id uuid.UUID) (*eventEntity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEvents) HasInstances(_ context.Context, anchorID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instances[anchorID]) > 0, nil
}

func (f *fakeEvents) CreateInstances(_ context.Context, anchor *eventEntity.Event, occurrences []eventEntity.Occurrence) ([]eventEntity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(occurrences) == 0 {
		return nil, nil
	}
	parentID := anchor.ID
	created := make([]eventEntity.Event, 0, len(occurrences))
	for _, occ := range occurrences {
		end := occ.End
		child := *anchor
		child.ID = uuid.New()
		child.StartDate = occ.Start
		child.EndDate = &end
		child.RecurrenceRule = nil
		child.RecurrenceParentID = &parentID
		f.events[child.ID] = &child
		created = append(created, child)
	}
	f.instances[anchor.ID] = created
	return created, nil
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
