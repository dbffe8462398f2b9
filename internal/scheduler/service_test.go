package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/internal/syncer"
	"github.com/angelmondragon/stocksync-backend/internal/synclog"
	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

type fakeOrchestrator struct {
	source  enums.SyncSource
	mu      sync.Mutex
	calls   int
	result  *syncer.Result
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeOrchestrator) Source() enums.SyncSource { return f.source }

func (f *fakeOrchestrator) FullSync(ctx context.Context, _ syncer.FullSyncOptions) (*syncer.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	result := f.result
	if result == nil {
		result = &syncer.Result{Updated: 1}
	}
	return result, f.err
}

func (f *fakeOrchestrator) SyncList(context.Context, syncer.ListOptions) (*syncer.Result, error) {
	return &syncer.Result{}, nil
}

func (f *fakeOrchestrator) SyncDetail(context.Context, syncer.DetailOptions) (*syncer.Result, error) {
	return &syncer.Result{}, nil
}

func (f *fakeOrchestrator) ProcessEligible(context.Context) (*syncer.Result, error) {
	return &syncer.Result{}, nil
}

func (f *fakeOrchestrator) RetryRecord(context.Context, string) error { return nil }

func (f *fakeOrchestrator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestScheduler(t *testing.T, purchase, sales *fakeOrchestrator) *Service {
	t.Helper()
	dsn := "file:scheduler_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.SyncRun{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	logSvc, err := synclog.NewService(synclog.NewServiceParams{
		Repo:   synclog.NewRepository(conn),
		Logger: log,
	})
	if err != nil {
		t.Fatalf("failed to build sync log: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Logger:   log,
		Purchase: purchase,
		Sales:    sales,
		SyncLog:  logSvc,
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to build scheduler: %v", err)
	}
	return svc
}

func purchaseFake() *fakeOrchestrator {
	return &fakeOrchestrator{source: enums.SyncSourcePurchases}
}

func salesFake() *fakeOrchestrator {
	return &fakeOrchestrator{source: enums.SyncSourceSales}
}

func TestTriggerSync_RecordsRun(t *testing.T) {
	purchase := purchaseFake()
	purchase.result = &syncer.Result{Created: 2, Updated: 1}
	svc := newTestScheduler(t, purchase, salesFake())

	run, err := svc.TriggerSync(context.Background(), enums.SyncSourcePurchases, syncer.FullSyncOptions{ProcessStock: true})
	if err != nil {
		t.Fatalf("trigger failed: %v", err)
	}
	if run.Status != enums.SyncRunStatusSuccess {
		t.Fatalf("expected success run, got %s", run.Status)
	}
	if run.Created != 2 || run.Updated != 1 {
		t.Fatalf("unexpected counts: %+v", run)
	}
	if run.Trigger != enums.SyncTriggerManual {
		t.Fatalf("expected manual trigger, got %s", run.Trigger)
	}
	if run.FinishedAt == nil {
		t.Fatalf("expected run closed")
	}
}

func TestTriggerSync_GuardExclusivity(t *testing.T) {
	purchase := purchaseFake()
	purchase.block = make(chan struct{})
	purchase.started = make(chan struct{}, 1)
	svc := newTestScheduler(t, purchase, salesFake())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.TriggerSync(ctx, enums.SyncSourcePurchases, syncer.FullSyncOptions{})
		done <- err
	}()
	<-purchase.started

	// Second trigger for the same source is rejected while in flight.
	if _, err := svc.TriggerSync(ctx, enums.SyncSourcePurchases, syncer.FullSyncOptions{}); err == nil {
		t.Fatalf("expected conflict while run in flight")
	}

	// The other source is independent.
	if _, err := svc.TriggerSync(ctx, enums.SyncSourceSales, syncer.FullSyncOptions{}); err != nil {
		t.Fatalf("sales trigger should not be blocked: %v", err)
	}

	close(purchase.block)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Guard released: a new run is accepted.
	if _, err := svc.TriggerSync(ctx, enums.SyncSourcePurchases, syncer.FullSyncOptions{}); err != nil {
		t.Fatalf("expected guard released after run: %v", err)
	}
}

func TestTriggerSync_GuardReleasedOnFailure(t *testing.T) {
	purchase := purchaseFake()
	purchase.err = errors.New("portal unreachable")
	svc := newTestScheduler(t, purchase, salesFake())
	ctx := context.Background()

	run, err := svc.TriggerSync(ctx, enums.SyncSourcePurchases, syncer.FullSyncOptions{})
	if err == nil {
		t.Fatalf("expected run error to propagate")
	}
	if run == nil || run.Status != enums.SyncRunStatusFailed {
		t.Fatalf("expected failed run recorded, got %+v", run)
	}

	// Failure still releases the guard.
	purchase.err = nil
	if _, err := svc.TriggerSync(ctx, enums.SyncSourcePurchases, syncer.FullSyncOptions{}); err != nil {
		t.Fatalf("expected guard released after failure: %v", err)
	}
}

func TestTriggerSync_UnknownSource(t *testing.T) {
	svc := newTestScheduler(t, purchaseFake(), salesFake())
	if _, err := svc.TriggerSync(context.Background(), "bogus", syncer.FullSyncOptions{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestStatus(t *testing.T) {
	purchase := purchaseFake()
	purchase.result = &syncer.Result{Updated: 3}
	svc := newTestScheduler(t, purchase, salesFake())
	ctx := context.Background()

	statuses, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if statuses[enums.SyncSourcePurchases].State != "idle" {
		t.Fatalf("expected idle before any run")
	}
	if statuses[enums.SyncSourcePurchases].LastRunAt != nil {
		t.Fatalf("expected no last run yet")
	}

	if _, err := svc.TriggerSync(ctx, enums.SyncSourcePurchases, syncer.FullSyncOptions{}); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	statuses, err = svc.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	got := statuses[enums.SyncSourcePurchases]
	if got.LastRunAt == nil || got.LastStatus != string(enums.SyncRunStatusSuccess) {
		t.Fatalf("expected last run recorded, got %+v", got)
	}
	if got.LastUpdated != 3 {
		t.Fatalf("expected last updated 3, got %d", got.LastUpdated)
	}
}

func TestRun_SchedulesBothSources(t *testing.T) {
	purchase := purchaseFake()
	sales := salesFake()
	svc := newTestScheduler(t, purchase, sales)
	svc.interval = 40 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_ = svc.Run(ctx)

	if purchase.callCount() == 0 {
		t.Fatalf("expected purchase loop to run")
	}
	if sales.callCount() == 0 {
		t.Fatalf("expected offset sales loop to run")
	}
}

func TestGuard(t *testing.T) {
	guard := NewGuard()

	if !guard.TryAcquire(enums.SyncSourcePurchases) {
		t.Fatalf("expected first acquire to succeed")
	}
	if guard.TryAcquire(enums.SyncSourcePurchases) {
		t.Fatalf("expected second acquire to fail")
	}
	if !guard.TryAcquire(enums.SyncSourceSales) {
		t.Fatalf("sources guard independently")
	}
	if !guard.Held(enums.SyncSourcePurchases) {
		t.Fatalf("expected held")
	}

	guard.Release(enums.SyncSourcePurchases)
	if guard.Held(enums.SyncSourcePurchases) {
		t.Fatalf("expected released")
	}
	if !guard.TryAcquire(enums.SyncSourcePurchases) {
		t.Fatalf("expected reacquire after release")
	}

	// Releasing an unheld source is a no-op.
	guard.Release("bogus")
}
