package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	orderrepo "github.com/smallbiznis/comanda/internal/order/repository"
	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type authStub struct {
	authdomain.Service
	mock.Mock
}

func (a *authStub) PruneSessions(ctx context.Context) (int64, error) {
	args := a.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type licenseStub struct {
	licensedomain.Service
	resp *licensedomain.Response
}

func (l *licenseStub) Status(context.Context) (*licensedomain.Response, error) {
	return l.resp, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []orderdomain.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev orderdomain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	auth     *authStub
	notifier *recordingNotifier
	sched    *Scheduler
}

func setup(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		db:       testutil.OpenDB(t, &orderdomain.Order{}),
		clock:    clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		auth:     &authStub{},
		notifier: &recordingNotifier{},
	}
	sched, err := New(Params{
		DB:        f.db,
		Log:       zap.NewNop(),
		Clock:     f.clock,
		AuthSvc:   f.auth,
		OrderRepo: orderrepo.Provide(),
		POSConfig: config.NewStaticPOSConfigHolder(config.DefaultPOSConfig()),
		Config:    cfg,
		License:   &licenseStub{resp: &licensedomain.Response{State: licensedomain.StateActive, Lifetime: true}},
		Notifier:  f.notifier,
	})
	require.NoError(t, err)
	f.sched = sched
	return f
}

func (f *fixture) insertOrder(t *testing.T, id int64, zoneID *int64, status orderdomain.Status, createdAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&orderdomain.Order{
		ID:          id,
		TableID:     1,
		TableNumber: "01",
		ZoneID:      zoneID,
		Items:       datatypes.JSON(`[]`),
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}).Error)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRespectsEnabledJobs(t *testing.T) {
	f := setup(t, Config{EnabledJobs: []string{"PRUNE_SESSIONS"}})
	f.auth.On("PruneSessions", mock.Anything).Return(int64(2), nil).Once()

	require.NoError(t, f.sched.RunOnce(context.Background()))
	f.auth.AssertExpectations(t)
	assert.Empty(t, f.notifier.events)
}

func TestRunOnceWrapsJobErrors(t *testing.T) {
	f := setup(t, Config{EnabledJobs: []string{JobPruneSessions}})
	f.auth.On("PruneSessions", mock.Anything).Return(int64(0), errors.New("boom"))

	err := f.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobPruneSessions)
}

func TestKitchenDelaysNotifiesOncePerTicket(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	now := f.clock.Now()
	bar := int64(77)

	// crosses the 15 minute threshold within the first window
	f.insertOrder(t, 1, nil, orderdomain.StatusPending, now.Add(-15*time.Minute-10*time.Second))
	f.insertOrder(t, 2, &bar, orderdomain.StatusCooking, now.Add(-15*time.Minute-20*time.Second))
	// ready tickets are never delayed
	f.insertOrder(t, 3, nil, orderdomain.StatusReady, now.Add(-15*time.Minute-5*time.Second))
	// not yet late
	f.insertOrder(t, 4, nil, orderdomain.StatusPending, now.Add(-5*time.Minute))

	require.NoError(t, f.sched.KitchenDelaysJob(ctx))
	require.Len(t, f.notifier.events, 2)
	zones := []string{f.notifier.events[0].Zone, f.notifier.events[1].Zone}
	assert.ElementsMatch(t, []string{orderdomain.ZoneKey(nil), orderdomain.ZoneKey(&bar)}, zones)
	for _, ev := range f.notifier.events {
		assert.Equal(t, orderdomain.EventTicketDelayed, ev.Type)
	}

	// same window again reports nothing
	require.NoError(t, f.sched.KitchenDelaysJob(ctx))
	assert.Len(t, f.notifier.events, 2)

	// ticket 4 crosses the threshold later
	f.clock.Advance(11 * time.Minute)
	require.NoError(t, f.sched.KitchenDelaysJob(ctx))
	require.Len(t, f.notifier.events, 3)
	assert.Equal(t, orderdomain.ZoneKey(nil), f.notifier.events[2].Zone)
}

func TestLicenseWatchToleratesMissingService(t *testing.T) {
	f := setup(t, Config{})
	f.sched.license = nil
	assert.NoError(t, f.sched.LicenseWatchJob(context.Background()))

	f.sched.license = &licenseStub{resp: &licensedomain.Response{State: licensedomain.StateActive, DaysLeft: 1}}
	assert.NoError(t, f.sched.LicenseWatchJob(context.Background()))
}

func TestProvideConfigReadsJobs(t *testing.T) {
	cfg := ProvideConfig(config.Config{SchedulerJobs: []string{JobLicenseWatch}})
	assert.Equal(t, []string{JobLicenseWatch}, cfg.EnabledJobs)
	assert.Equal(t, time.Minute, cfg.withDefaults().RunInterval)
}
