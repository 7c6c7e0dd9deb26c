package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appidentity "github.com/afrinict/nbcportal-sub001/internal/application/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/ledger"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/tests/testutil"
)

var ledgerNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixedOpenCounts map[uuid.UUID]int64

func (f fixedOpenCounts) CountOpenByDepartment(context.Context) (map[uuid.UUID]int64, error) {
	return f, nil
}

type ledgerFixture struct {
	store  *testutil.MemStore
	svc    *Service
	dept   *identity.Department
	reader identity.Actor
}

func newLedgerFixture(t *testing.T, open fixedOpenCounts) *ledgerFixture {
	t.Helper()
	prev := shared.Now
	shared.Now = func() time.Time { return ledgerNow }
	t.Cleanup(func() { shared.Now = prev })

	store := testutil.NewMemStore()
	dept := store.SeedDepartment("LIC", identity.TierReadOnly)
	perms := appidentity.NewPermissionService(store.Departments(), store.Grants(), zap.NewNop())
	if open == nil {
		open = fixedOpenCounts{}
	}
	return &ledgerFixture{
		store:  store,
		svc:    NewService(store.Activities(), store.Metrics(), open, store.Departments(), perms, zap.NewNop()),
		dept:   dept,
		reader: identity.Actor{UserID: uuid.New(), DepartmentID: dept.ID, Tier: identity.TierReadOnly},
	}
}

func (f *ledgerFixture) record(t *testing.T, action ledger.Action, resourceID uuid.UUID, at time.Time) {
	t.Helper()
	rec, err := ledger.NewActivityRecord(f.dept.ID, uuid.New(), action, ledger.ResourceApplication, resourceID, at)
	require.NoError(t, err)
	require.NoError(t, f.svc.Record(context.Background(), rec))
}

func TestService_Record(t *testing.T) {
	f := newLedgerFixture(t, nil)

	assert.ErrorIs(t, f.svc.Record(context.Background(), nil), shared.ErrInvalidInput)

	f.record(t, ledger.ActionSubmit, uuid.New(), ledgerNow)
	assert.Equal(t, 1, f.store.ActivityCount())

	f.store.FailNext(testutil.OpAppendActivity, shared.ErrStorageUnavailable)
	rec, err := ledger.NewActivityRecord(f.dept.ID, uuid.New(), ledger.ActionAdvance, ledger.ResourceApplication, uuid.New(), ledgerNow)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Record(context.Background(), rec), shared.ErrStorageUnavailable)
	assert.Equal(t, 1, f.store.ActivityCount())
}

func TestService_IncrementMetric(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	key := ledger.MetricKey{DepartmentID: f.dept.ID, MetricType: ledger.MetricSubmissions, Period: ledger.PeriodDaily, Date: ledger.PeriodDaily.DateKey(ledgerNow)}

	require.NoError(t, f.svc.IncrementMetric(ctx, f.dept.ID, ledger.MetricSubmissions, ledger.PeriodDaily, ledgerNow, decimal.NewFromInt(1)))
	require.NoError(t, f.svc.IncrementMetric(ctx, f.dept.ID, ledger.MetricSubmissions, ledger.PeriodDaily, ledgerNow.Add(3*time.Hour), decimal.NewFromInt(2)))
	assert.True(t, decimal.NewFromInt(3).Equal(f.store.MetricValue(key)))

	tests := []struct {
		name   string
		period ledger.Period
		date   time.Time
		delta  decimal.Decimal
	}{
		{"backdated", ledger.PeriodDaily, ledgerNow.AddDate(0, 0, -1), decimal.NewFromInt(1)},
		{"negative delta", ledger.PeriodDaily, ledgerNow, decimal.NewFromInt(-1)},
		{"unknown period", ledger.Period("weekly"), ledgerNow, decimal.NewFromInt(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.IncrementMetric(ctx, f.dept.ID, ledger.MetricSubmissions, tt.period, tt.date, tt.delta)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
	assert.True(t, decimal.NewFromInt(3).Equal(f.store.MetricValue(key)))
}

func TestService_IncrementMetricConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	key := ledger.MetricKey{DepartmentID: f.dept.ID, MetricType: ledger.MetricAdvancements, Period: ledger.PeriodMonthly, Date: ledger.PeriodMonthly.DateKey(ledgerNow)}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.IncrementMetric(ctx, f.dept.ID, ledger.MetricAdvancements, ledger.PeriodMonthly, ledgerNow, decimal.NewFromInt(1)))
		}()
	}
	wg.Wait()

	assert.True(t, decimal.NewFromInt(50).Equal(f.store.MetricValue(key)))
}

func TestService_SnapshotBacklog(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	other := f.store.SeedDepartment("TECH")
	f.svc.open = fixedOpenCounts{f.dept.ID: 7}

	n, err := f.svc.SnapshotBacklog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	day := ledger.PeriodDaily.DateKey(ledgerNow)
	assert.True(t, decimal.NewFromInt(7).Equal(f.store.MetricValue(ledger.MetricKey{DepartmentID: f.dept.ID, MetricType: ledger.MetricBacklog, Period: ledger.PeriodDaily, Date: day})))
	assert.True(t, decimal.Zero.Equal(f.store.MetricValue(ledger.MetricKey{DepartmentID: other.ID, MetricType: ledger.MetricBacklog, Period: ledger.PeriodDaily, Date: day})))

	f.svc.open = fixedOpenCounts{f.dept.ID: 4}
	_, err = f.svc.SnapshotBacklog(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(f.store.MetricValue(ledger.MetricKey{DepartmentID: f.dept.ID, MetricType: ledger.MetricBacklog, Period: ledger.PeriodDaily, Date: day})))
}

func TestService_ActivityTrail(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	appID := uuid.New()
	f.record(t, ledger.ActionSubmit, appID, ledgerNow)
	f.record(t, ledger.ActionAdvance, appID, ledgerNow.Add(time.Hour))
	f.record(t, ledger.ActionSubmit, uuid.New(), ledgerNow.Add(2*time.Hour))

	trail, err := f.svc.ApplicationTrail(ctx, appID, shared.DefaultFilter())
	require.NoError(t, err)
	require.Equal(t, int64(2), trail.Total)
	assert.Equal(t, "advance", trail.Items[0].Action)
	assert.Equal(t, "submit", trail.Items[1].Action)

	deptID := f.dept.ID
	page, err := f.svc.ActivityTrail(ctx, f.reader, ledger.ActivityQuery{Filter: shared.DefaultFilter(), DepartmentID: &deptID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	outsider := identity.Actor{UserID: uuid.New(), DepartmentID: uuid.New(), Tier: identity.TierAdmin}
	_, err = f.svc.ActivityTrail(ctx, outsider, ledger.ActivityQuery{DepartmentID: &deptID})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestService_MetricSeries(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	require.NoError(t, f.store.Metrics().Increment(ctx,
		ledger.NewMetricIncrement(f.dept.ID, ledger.MetricCompletions, ledger.PeriodDaily, ledgerNow, decimal.NewFromInt(2)),
		ledger.NewMetricIncrement(f.dept.ID, ledger.MetricCompletions, ledger.PeriodDaily, ledgerNow.AddDate(0, 0, 1), decimal.NewFromInt(5)),
	))

	series, err := f.svc.MetricSeries(ctx, f.reader, ledger.MetricQuery{
		DepartmentID: f.dept.ID,
		MetricType:   ledger.MetricCompletions,
		Period:       ledger.PeriodDaily,
		From:         ledgerNow.AddDate(0, 0, -7),
		To:           ledgerNow.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-03-02", series[0].Date)
	assert.Equal(t, "2026-03-03", series[1].Date)
	assert.True(t, decimal.NewFromInt(5).Equal(series[1].Value))

	_, err = f.svc.MetricSeries(ctx, f.reader, ledger.MetricQuery{DepartmentID: f.dept.ID, MetricType: ledger.MetricCompletions, Period: "hourly"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.svc.MetricSeries(ctx, f.reader, ledger.MetricQuery{
		DepartmentID: f.dept.ID, MetricType: ledger.MetricCompletions, Period: ledger.PeriodDaily,
		From: ledgerNow, To: ledgerNow.AddDate(0, 0, -1),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	clerkElsewhere := identity.Actor{UserID: uuid.New(), DepartmentID: uuid.New(), Tier: identity.TierWrite}
	_, err = f.svc.MetricSeries(ctx, clerkElsewhere, ledger.MetricQuery{DepartmentID: f.dept.ID, MetricType: ledger.MetricCompletions, Period: ledger.PeriodDaily})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestService_RecordPropagatesPlainErrors(t *testing.T) {
	f := newLedgerFixture(t, nil)
	f.store.FailNext(testutil.OpAppendActivity, errors.New("connection reset"))
	rec, err := ledger.NewActivityRecord(f.dept.ID, uuid.New(), ledger.ActionSubmit, ledger.ResourceApplication, uuid.New(), ledgerNow)
	require.NoError(t, err)
	assert.EqualError(t, f.svc.Record(context.Background(), rec), "connection reset")
}
