package synclog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
	"github.com/angelmondragon/stocksync-backend/pkg/pagination"
)

func newTestService(t *testing.T, maxErrors int) Service {
	t.Helper()
	dsn := "file:synclog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.SyncRun{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	svc, err := NewService(NewServiceParams{
		Repo:      NewRepository(conn),
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		MaxErrors: maxErrors,
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func TestBeginAndFinish_Success(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	run, err := svc.Begin(ctx, enums.SyncSourcePurchases, enums.SyncTriggerScheduled)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if run.Status != enums.SyncRunStatusRunning {
		t.Fatalf("expected running, got %s", run.Status)
	}
	if run.StartedAt.IsZero() {
		t.Fatalf("expected start timestamp")
	}

	if err := svc.Finish(ctx, run, Outcome{Created: 3, Updated: 2}); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if run.Status != enums.SyncRunStatusSuccess {
		t.Fatalf("expected success, got %s", run.Status)
	}
	if run.FinishedAt == nil {
		t.Fatalf("expected finish timestamp")
	}
	if run.Created != 3 || run.Updated != 2 {
		t.Fatalf("unexpected counts: %+v", run)
	}
}

func TestFinish_PartialOnRecordFailures(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	run, err := svc.Begin(ctx, enums.SyncSourceSales, enums.SyncTriggerManual)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := svc.Finish(ctx, run, Outcome{Updated: 4, Failed: 1, Errors: []string{"line 3: bad qty"}}); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if run.Status != enums.SyncRunStatusPartial {
		t.Fatalf("expected partial, got %s", run.Status)
	}
	if len(run.Errors) != 1 {
		t.Fatalf("expected 1 error kept, got %v", run.Errors)
	}
}

func TestFinish_FailedOnRunError(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	run, err := svc.Begin(ctx, enums.SyncSourcePurchases, enums.SyncTriggerScheduled)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := svc.Finish(ctx, run, Outcome{Err: errors.New("portal unreachable")}); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if run.Status != enums.SyncRunStatusFailed {
		t.Fatalf("expected failed, got %s", run.Status)
	}
	if len(run.Errors) == 0 || run.Errors[0] != "portal unreachable" {
		t.Fatalf("expected run error recorded first, got %v", run.Errors)
	}

	// A closed run cannot be closed again.
	if err := svc.Finish(ctx, run, Outcome{}); err == nil {
		t.Fatalf("expected state conflict on double finish")
	}
}

func TestFinish_CapsErrorList(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()

	run, err := svc.Begin(ctx, enums.SyncSourceSales, enums.SyncTriggerScheduled)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	outcome := Outcome{Failed: 6}
	for i := 0; i < 6; i++ {
		outcome.Errors = append(outcome.Errors, "record error")
	}
	if err := svc.Finish(ctx, run, outcome); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if len(run.Errors) != 4 {
		t.Fatalf("expected 3 errors plus overflow marker, got %v", run.Errors)
	}
	if !strings.Contains(run.Errors[3], "3 more") {
		t.Fatalf("expected overflow marker, got %q", run.Errors[3])
	}
}

func TestListAndLastFinished(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run, err := svc.Begin(ctx, enums.SyncSourcePurchases, enums.SyncTriggerScheduled)
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		if err := svc.Finish(ctx, run, Outcome{Updated: i}); err != nil {
			t.Fatalf("finish failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := svc.Begin(ctx, enums.SyncSourceSales, enums.SyncTriggerManual); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	all, err := svc.List(ctx, "", pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all.Items) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all.Items))
	}

	purchases, err := svc.List(ctx, enums.SyncSourcePurchases, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(purchases.Items) != 3 {
		t.Fatalf("expected 3 purchase runs, got %d", len(purchases.Items))
	}

	last, err := svc.LastFinished(ctx, enums.SyncSourcePurchases)
	if err != nil {
		t.Fatalf("last finished failed: %v", err)
	}
	if last == nil || last.Updated != 2 {
		t.Fatalf("expected most recent finished run (updated=2), got %+v", last)
	}

	// The sales run is still open, so nothing finished there yet.
	none, err := svc.LastFinished(ctx, enums.SyncSourceSales)
	if err != nil {
		t.Fatalf("last finished failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no finished sales run, got %+v", none)
	}
}
