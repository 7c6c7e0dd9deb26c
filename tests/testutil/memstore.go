package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/afrinict/nbcportal-sub001/internal/application/transaction"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
)

// MemStore is an in-memory implementation of every repository plus a
// transaction.Scope that rolls the whole store back when the unit of work fails.
// Stored aggregates are copied on the way in and out so callers never share state with the store.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data memData

	failMu sync.Mutex
	fail   map[string][]error
}

type memData struct {
	departments  map[uuid.UUID]identity.Department
	grants       map[grantKey]identity.PermissionGrant
	workflows    map[uuid.UUID]*workflow.Workflow
	applications map[uuid.UUID]licensing.Snapshot
	activities   []ledger.ActivityRecord
	metrics      map[ledger.MetricKey]ledger.MetricRecord
	events       []shared.DomainEvent
}

type grantKey struct {
	dept uuid.UUID
	tier identity.RoleTier
}

// Operation names accepted by FailNext
const (
	OpCreateApplication = "applications.create"
	OpUpdateApplication = "applications.update"
	OpAppendActivity    = "activities.append"
	OpIncrementMetric   = "metrics.increment"
	OpSaveEvents        = "events.save"
	OpActivateWorkflow  = "workflows.activate"
	OpFindApplication   = "applications.find"
)

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		data: memData{
			departments:  make(map[uuid.UUID]identity.Department),
			grants:       make(map[grantKey]identity.PermissionGrant),
			workflows:    make(map[uuid.UUID]*workflow.Workflow),
			applications: make(map[uuid.UUID]licensing.Snapshot),
			metrics:      make(map[ledger.MetricKey]ledger.MetricRecord),
		},
		fail: make(map[string][]error),
	}
}

// FailNext makes the next calls of op fail with errs, one error per call
func (s *MemStore) FailNext(op string, errs ...error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.fail[op] = append(s.fail[op], errs...)
}

func (s *MemStore) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	queue := s.fail[op]
	if len(queue) == 0 {
		return nil
	}
	s.fail[op] = queue[1:]
	return queue[0]
}

// Execute implements transaction.Scope. Units of work are serialized.
func (s *MemStore) Execute(_ context.Context, fn func(repos transaction.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (d memData) clone() memData {
	out := memData{
		departments:  make(map[uuid.UUID]identity.Department, len(d.departments)),
		grants:       make(map[grantKey]identity.PermissionGrant, len(d.grants)),
		workflows:    make(map[uuid.UUID]*workflow.Workflow, len(d.workflows)),
		applications: make(map[uuid.UUID]licensing.Snapshot, len(d.applications)),
		activities:   append([]ledger.ActivityRecord(nil), d.activities...),
		metrics:      make(map[ledger.MetricKey]ledger.MetricRecord, len(d.metrics)),
		events:       append([]shared.DomainEvent(nil), d.events...),
	}
	for k, v := range d.departments {
		out.departments[k] = v
	}
	for k, v := range d.grants {
		out.grants[k] = v
	}
	for k, v := range d.workflows {
		out.workflows[k] = copyWorkflow(v)
	}
	for k, v := range d.applications {
		out.applications[k] = v
	}
	for k, v := range d.metrics {
		out.metrics[k] = v
	}
	return out
}

// Departments returns the store as a department repository
func (s *MemStore) Departments() identity.DepartmentRepository { return memDepartments{s} }

// Grants returns the store as a grant repository
func (s *MemStore) Grants() identity.GrantRepository { return memGrants{s} }

// Workflows returns the store as a workflow repository
func (s *MemStore) Workflows() workflow.Repository { return memWorkflows{s} }

// Applications returns the store as an application repository
func (s *MemStore) Applications() licensing.Repository { return memApplications{s} }

// Activities returns the store as an activity repository
func (s *MemStore) Activities() ledger.ActivityRepository { return memActivities{s} }

// Metrics returns the store as a metric repository
func (s *MemStore) Metrics() ledger.MetricRepository { return memMetrics{s} }

// Events returns the store as an outbox sink
func (s *MemStore) Events() transaction.EventSink { return memEvents{s} }

// SavedEvents returns every committed event
func (s *MemStore) SavedEvents() []shared.DomainEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]shared.DomainEvent(nil), s.data.events...)
}

// ActivityCount returns the number of committed activity records
func (s *MemStore) ActivityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.activities)
}

// MetricValue returns the value stored at key, zero when absent
func (s *MemStore) MetricValue(key ledger.MetricKey) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.metrics[key].Value
}

// SeedDepartment stores an active department with the given tiers enabled
func (s *MemStore) SeedDepartment(code string, tiers ...identity.RoleTier) *identity.Department {
	dept, err := identity.NewDepartment(code, code+" department")
	if err != nil {
		panic(err)
	}
	dept.ClearDomainEvents()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.departments[dept.ID] = *dept
	for _, tier := range tiers {
		g, err := identity.NewPermissionGrant(dept.ID, tier, uuid.New())
		if err != nil {
			panic(err)
		}
		s.data.grants[grantKey{dept.ID, tier}] = *g
	}
	return dept
}

// SeedWorkflow stores wf as the active version of its license type
func (s *MemStore) SeedWorkflow(wf *workflow.Workflow) {
	if err := s.Workflows().Activate(context.Background(), wf); err != nil {
		panic(err)
	}
}

func copyWorkflow(w *workflow.Workflow) *workflow.Workflow {
	return workflow.Reconstruct(w.ID, w.LicenseTypeID, w.DepartmentID, w.Version, w.Active, w.CreatedBy, w.CreatedAt, w.Stages())
}

func copyActivity(r ledger.ActivityRecord) *ledger.ActivityRecord {
	if r.Details != nil {
		details := make(map[string]any, len(r.Details))
		for k, v := range r.Details {
			details[k] = v
		}
		r.Details = details
	}
	return &r
}

type memDepartments struct{ s *MemStore }

func (r memDepartments) Create(_ context.Context, dept *identity.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.data.departments {
		if d.Code == dept.Code {
			return shared.ErrAlreadyExists.WithMessage("Department code already exists")
		}
	}
	stored := *dept
	stored.ClearDomainEvents()
	r.s.data.departments[dept.ID] = stored
	return nil
}

func (r memDepartments) Update(_ context.Context, dept *identity.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.data.departments[dept.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != dept.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored := *dept
	stored.ClearDomainEvents()
	r.s.data.departments[dept.ID] = stored
	return nil
}

func (r memDepartments) FindByID(_ context.Context, id uuid.UUID) (*identity.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.data.departments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (r memDepartments) FindByCode(_ context.Context, code string) (*identity.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.data.departments {
		if d.Code == code {
			return &d, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memDepartments) FindAll(_ context.Context, filter shared.Filter) ([]*identity.Department, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*identity.Department, 0, len(r.s.data.departments))
	for _, d := range r.s.data.departments {
		d := d
		all = append(all, &d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return page(all, filter), int64(len(all)), nil
}

func (r memDepartments) FindActiveIDs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uuid.UUID
	for id, d := range r.s.data.departments {
		if d.Active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memGrants struct{ s *MemStore }

func (r memGrants) Find(_ context.Context, departmentID uuid.UUID, tier identity.RoleTier) (*identity.PermissionGrant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.data.grants[grantKey{departmentID, tier}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &g, nil
}

func (r memGrants) FindByDepartment(_ context.Context, departmentID uuid.UUID) ([]*identity.PermissionGrant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*identity.PermissionGrant
	for k, g := range r.s.data.grants {
		if k.dept == departmentID {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (r memGrants) Create(_ context.Context, grant *identity.PermissionGrant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := grantKey{grant.DepartmentID, grant.Tier}
	if _, ok := r.s.data.grants[key]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.data.grants[key] = *grant
	return nil
}

func (r memGrants) Delete(_ context.Context, departmentID uuid.UUID, tier identity.RoleTier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := grantKey{departmentID, tier}
	if _, ok := r.s.data.grants[key]; !ok {
		return shared.ErrNotFound
	}
	delete(r.s.data.grants, key)
	return nil
}

type memWorkflows struct{ s *MemStore }

func (r memWorkflows) FindActive(_ context.Context, licenseTypeID string) (*workflow.Workflow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.data.workflows {
		if w.Active && w.LicenseTypeID == licenseTypeID {
			return copyWorkflow(w), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memWorkflows) FindByID(_ context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.data.workflows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copyWorkflow(w), nil
}

func (r memWorkflows) ListActive(_ context.Context) ([]*workflow.Workflow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*workflow.Workflow
	for _, w := range r.s.data.workflows {
		if w.Active {
			out = append(out, copyWorkflow(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicenseTypeID < out[j].LicenseTypeID })
	return out, nil
}

func (r memWorkflows) Activate(_ context.Context, w *workflow.Workflow) error {
	if err := r.s.injected(OpActivateWorkflow); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.data.workflows {
		if existing.LicenseTypeID == w.LicenseTypeID && existing.Active {
			deactivated := copyWorkflow(existing)
			deactivated.Active = false
			r.s.data.workflows[id] = deactivated
		}
	}
	stored := copyWorkflow(w)
	stored.Active = true
	r.s.data.workflows[w.ID] = stored
	return nil
}

type memApplications struct{ s *MemStore }

func (r memApplications) FindByID(_ context.Context, id uuid.UUID) (*licensing.Application, error) {
	if err := r.s.injected(OpFindApplication); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	snap, ok := r.s.data.applications[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return licensing.Restore(snap), nil
}

func (r memApplications) FindByNumber(_ context.Context, number string) (*licensing.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, snap := range r.s.data.applications {
		if snap.Number == number {
			return licensing.Restore(snap), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memApplications) FindAll(_ context.Context, q licensing.Query) ([]*licensing.Application, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []*licensing.Application
	for _, snap := range r.s.data.applications {
		switch {
		case q.DepartmentID != nil && snap.DepartmentID != *q.DepartmentID,
			q.ApplicantID != nil && snap.ApplicantID != *q.ApplicantID,
			q.LicenseTypeID != "" && snap.LicenseTypeID != q.LicenseTypeID,
			q.Status != nil && snap.Status != *q.Status:
			continue
		}
		all = append(all, licensing.Restore(snap))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, q.Filter), int64(len(all)), nil
}

func (r memApplications) CountOpenByDepartment(_ context.Context) (map[uuid.UUID]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[uuid.UUID]int64)
	for _, snap := range r.s.data.applications {
		if snap.Status.IsOnStage() {
			counts[snap.DepartmentID]++
		}
	}
	return counts, nil
}

func (r memApplications) Create(_ context.Context, app *licensing.Application) error {
	if err := r.s.injected(OpCreateApplication); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.applications[app.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.data.applications[app.ID] = app.Snapshot()
	return nil
}

func (r memApplications) Update(_ context.Context, app *licensing.Application) error {
	if err := r.s.injected(OpUpdateApplication); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.data.applications[app.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != app.GetVersion()-1 {
		return shared.ErrConcurrencyConflict
	}
	r.s.data.applications[app.ID] = app.Snapshot()
	return nil
}

type memActivities struct{ s *MemStore }

func (r memActivities) Append(_ context.Context, records ...*ledger.ActivityRecord) error {
	if err := r.s.injected(OpAppendActivity); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range records {
		r.s.data.activities = append(r.s.data.activities, *copyActivity(*rec))
	}
	return nil
}

func (r memActivities) Find(_ context.Context, q ledger.ActivityQuery) ([]*ledger.ActivityRecord, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []*ledger.ActivityRecord
	for _, rec := range r.s.data.activities {
		switch {
		case q.DepartmentID != nil && rec.DepartmentID != *q.DepartmentID,
			q.ResourceType != "" && rec.ResourceType != q.ResourceType,
			q.ResourceID != nil && rec.ResourceID != *q.ResourceID,
			q.Action != "" && rec.Action != q.Action,
			q.OverrideOnly && !rec.Override,
			q.From != nil && rec.OccurredAt.Before(*q.From),
			q.To != nil && !rec.OccurredAt.Before(*q.To):
			continue
		}
		all = append(all, copyActivity(rec))
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].OccurredAt.After(all[j].OccurredAt) })
	return page(all, q.Filter), int64(len(all)), nil
}

type memMetrics struct{ s *MemStore }

func (r memMetrics) Increment(_ context.Context, increments ...ledger.MetricIncrement) error {
	if err := r.s.injected(OpIncrementMetric); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inc := range increments {
		rec, ok := r.s.data.metrics[inc.MetricKey]
		if !ok {
			rec = ledger.MetricRecord{ID: uuid.New(), MetricKey: inc.MetricKey, Value: decimal.Zero}
		}
		rec.Value = rec.Value.Add(inc.Delta)
		rec.UpdatedAt = time.Now().UTC()
		r.s.data.metrics[inc.MetricKey] = rec
	}
	return nil
}

func (r memMetrics) Set(_ context.Context, key ledger.MetricKey, value decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.data.metrics[key]
	if !ok {
		rec = ledger.MetricRecord{ID: uuid.New(), MetricKey: key}
	}
	rec.Value = value
	rec.UpdatedAt = time.Now().UTC()
	r.s.data.metrics[key] = rec
	return nil
}

func (r memMetrics) Find(_ context.Context, q ledger.MetricQuery) ([]*ledger.MetricRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*ledger.MetricRecord
	for key, rec := range r.s.data.metrics {
		switch {
		case key.DepartmentID != q.DepartmentID,
			key.MetricType != q.MetricType,
			key.Period != q.Period,
			!q.From.IsZero() && key.Date.Before(q.From),
			!q.To.IsZero() && key.Date.After(q.To):
			continue
		}
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type memEvents struct{ s *MemStore }

func (r memEvents) Save(_ context.Context, events ...shared.DomainEvent) error {
	if err := r.s.injected(OpSaveEvents); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.events = append(r.s.data.events, events...)
	return nil
}

func page[T any](items []T, filter shared.Filter) []T {
	f := filter.Normalize()
	start := f.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + f.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var (
	_ transaction.Scope        = (*MemStore)(nil)
	_ transaction.Repositories = (*MemStore)(nil)
)

// MemDocumentStore is a DocumentStore backed by a map
type MemDocumentStore struct {
	mu       sync.Mutex
	verified map[uuid.UUID]map[string]bool
	err      error
	calls    int
}

// NewMemDocumentStore creates an empty document store
func NewMemDocumentStore() *MemDocumentStore {
	return &MemDocumentStore{verified: make(map[uuid.UUID]map[string]bool)}
}

// Verify marks documents as present and verified for an application
func (d *MemDocumentStore) Verify(applicationID uuid.UUID, documentTypes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.verified[applicationID] == nil {
		d.verified[applicationID] = make(map[string]bool)
	}
	for _, dt := range documentTypes {
		d.verified[applicationID][dt] = true
	}
}

// SetError makes every lookup fail with err
func (d *MemDocumentStore) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Calls returns the number of lookups made
func (d *MemDocumentStore) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// IsVerified implements licensing.DocumentStore
func (d *MemDocumentStore) IsVerified(_ context.Context, applicationID uuid.UUID, documentType string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return false, d.err
	}
	return d.verified[applicationID][documentType], nil
}
