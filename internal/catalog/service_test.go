package catalog

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.ProductIdentity{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, db *gorm.DB, now func() time.Time) (Service, Repository) {
	t.Helper()
	repo := NewRepository(db)
	svc, err := NewService(NewServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:    now,
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, repo
}

func seedIdentity(t *testing.T, repo Repository, sku, name string, aliases ...string) *models.ProductIdentity {
	t.Helper()
	identity := &models.ProductIdentity{
		SKU:     sku,
		Name:    name,
		Aliases: aliases,
		Active:  true,
	}
	if err := repo.Create(context.Background(), identity); err != nil {
		t.Fatalf("failed to seed identity: %v", err)
	}
	return identity
}

func TestResolve_ExactSKU(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Widget One")

	res, err := svc.Resolve(context.Background(), "widget-1", "whatever")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.SKU != "WIDGET-1" {
		t.Fatalf("expected WIDGET-1, got %s", res.SKU)
	}
	if res.Temporary || res.Created {
		t.Fatalf("expected a permanent hit, got %+v", res)
	}
}

func TestResolve_AliasHit(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Widget One", "W1-LEGACY")

	res, err := svc.Resolve(context.Background(), "w1-legacy", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.SKU != "WIDGET-1" {
		t.Fatalf("expected alias to resolve to WIDGET-1, got %s", res.SKU)
	}
	if res.LearnedAlias {
		t.Fatalf("known alias should not be re-learned")
	}
}

func TestResolve_NameSubstringLearnsAlias(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Deluxe Widget Kit")

	res, err := svc.Resolve(context.Background(), "EXT-77", "widget kit")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.SKU != "WIDGET-1" {
		t.Fatalf("expected substring match on WIDGET-1, got %s", res.SKU)
	}
	if !res.LearnedAlias {
		t.Fatalf("expected external code to be learned as alias")
	}

	// Second resolution short-circuits through the learned alias.
	res2, err := svc.Resolve(context.Background(), "EXT-77", "")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if res2.SKU != "WIDGET-1" || res2.LearnedAlias {
		t.Fatalf("expected alias fast path, got %+v", res2)
	}
}

func TestResolve_LearnsDisplayNameAsAlias(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Widget One")

	// A code hit also learns the portal's display name.
	res, err := svc.Resolve(context.Background(), "WIDGET-1", "Widget Uno")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.LearnedAlias {
		t.Fatalf("expected display name to be learned as alias, got %+v", res)
	}

	// A later line carrying only that display name resolves through the
	// learned alias instead of synthesizing a temp identity.
	res2, err := svc.Resolve(context.Background(), "", "Widget Uno")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if res2.SKU != "WIDGET-1" || res2.Created {
		t.Fatalf("expected alias match on WIDGET-1, got %+v", res2)
	}
}

func TestResolve_SynthesizesTemporary(t *testing.T) {
	clock := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	svc, repo := newTestService(t, newTestDB(t), func() time.Time { return clock })

	res, err := svc.Resolve(context.Background(), "", "Foo Widget")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Created || !res.Temporary {
		t.Fatalf("expected a synthesized temp identity, got %+v", res)
	}
	if !strings.HasPrefix(res.SKU, "TEMP-FOO-") {
		t.Fatalf("expected TEMP-FOO- prefix, got %s", res.SKU)
	}

	// A temp identity never satisfies later resolutions: the same
	// unmapped name an hour later gets its own fresh temp SKU.
	clock = clock.Add(time.Hour)
	res2, err := svc.Resolve(context.Background(), "", "Foo Widget")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if !res2.Created || !res2.Temporary {
		t.Fatalf("expected a second synthesized temp identity, got %+v", res2)
	}
	if res2.SKU == res.SKU {
		t.Fatalf("expected a distinct temp sku, got %s twice", res.SKU)
	}

	temps, err := repo.ListTemporary(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(temps) != 2 {
		t.Fatalf("expected 2 temp identities awaiting remap, got %d", len(temps))
	}
}

func TestResolve_UnknownCodeSynthesizesEachTime(t *testing.T) {
	svc, _ := newTestService(t, newTestDB(t), nil)

	res, err := svc.Resolve(context.Background(), "MYSTERY-9", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !res.Created || !res.Temporary {
		t.Fatalf("expected first resolve to create a temp identity, got %+v", res)
	}

	res2, err := svc.Resolve(context.Background(), "MYSTERY-9", "")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if !res2.Created || res2.SKU == res.SKU {
		t.Fatalf("expected a second temp identity with its own sku, got %+v after %s", res2, res.SKU)
	}
}

func TestResolve_SameMillisecondTempSKUsDiffer(t *testing.T) {
	fixed := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	svc, _ := newTestService(t, newTestDB(t), func() time.Time { return fixed })

	res, err := svc.Resolve(context.Background(), "", "Gizmo Alpha")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	res2, err := svc.Resolve(context.Background(), "", "Gizmo Beta")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if res.SKU == res2.SKU {
		t.Fatalf("expected distinct temp skus under a frozen clock, got %s twice", res.SKU)
	}
}

func TestResolve_RequiresInput(t *testing.T) {
	svc, _ := newTestService(t, newTestDB(t), nil)
	if _, err := svc.Resolve(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected validation error for empty input")
	}
}

func TestRemap_MergeIntoExisting(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Widget One")
	temp := seedIdentityTemp(t, repo, "TEMP-FOO-ABC", "Foo Widget", "EXT-5")

	merged, err := svc.Remap(context.Background(), temp.SKU, "WIDGET-1")
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	if merged.SKU != "WIDGET-1" {
		t.Fatalf("expected merge target WIDGET-1, got %s", merged.SKU)
	}
	if !merged.HasAlias("EXT-5") || !merged.HasAlias("TEMP-FOO-ABC") {
		t.Fatalf("expected temp aliases carried over, got %v", merged.Aliases)
	}

	gone, err := repo.FindBySKU(context.Background(), temp.SKU)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected deactivated temp to be invisible")
	}

	// The old external code now resolves to the real SKU.
	res, err := svc.Resolve(context.Background(), "EXT-5", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.SKU != "WIDGET-1" {
		t.Fatalf("expected EXT-5 to resolve to WIDGET-1, got %s", res.SKU)
	}
}

func TestRemap_RenameInPlace(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	temp := seedIdentityTemp(t, repo, "TEMP-BAR-XYZ", "Bar Widget")

	renamed, err := svc.Remap(context.Background(), temp.SKU, "bar-77")
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	if renamed.SKU != "BAR-77" {
		t.Fatalf("expected uppercased new sku, got %s", renamed.SKU)
	}
	if renamed.Temporary {
		t.Fatalf("expected temporary flag cleared")
	}
	if !renamed.HasAlias("TEMP-BAR-XYZ") {
		t.Fatalf("expected old sku kept as alias, got %v", renamed.Aliases)
	}
}

func TestRemap_RejectsNonTemp(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Widget One")

	if _, err := svc.Remap(context.Background(), "WIDGET-1", "WIDGET-2"); err == nil {
		t.Fatalf("expected rejection of non-temporary sku")
	}
	if _, err := svc.Remap(context.Background(), "TEMP-NOPE-1", "WIDGET-2"); err == nil {
		t.Fatalf("expected not-found for unknown temp sku")
	}
}

func TestListUnmapped(t *testing.T) {
	svc, repo := newTestService(t, newTestDB(t), nil)
	seedIdentity(t, repo, "WIDGET-1", "Widget One")
	seedIdentityTemp(t, repo, "TEMP-A-1", "A Thing")
	seedIdentityTemp(t, repo, "TEMP-B-2", "B Thing")

	unmapped, err := svc.ListUnmapped(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(unmapped) != 2 {
		t.Fatalf("expected 2 unmapped identities, got %d", len(unmapped))
	}
}

func TestRefreshJob_AutoRemapsOnNewMatch(t *testing.T) {
	db := newTestDB(t)
	svc, repo := newTestService(t, db, nil)
	seedIdentityTemp(t, repo, "TEMP-GADGET-1", "Gadget", "GAD-100")

	// The real identity shows up later claiming the same external code.
	seedIdentity(t, repo, "GADGET-100", "Gadget Pro", "GAD-100")

	job := NewRefreshJob(repo, svc, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if job.Name() != "catalog-refresh" {
		t.Fatalf("unexpected job name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	temps, err := repo.ListTemporary(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(temps) != 0 {
		t.Fatalf("expected temp identity folded in, still have %d", len(temps))
	}
}

func seedIdentityTemp(t *testing.T, repo Repository, sku, name string, aliases ...string) *models.ProductIdentity {
	t.Helper()
	identity := &models.ProductIdentity{
		SKU:       sku,
		Name:      name,
		Aliases:   aliases,
		Temporary: true,
		Active:    true,
	}
	if err := repo.Create(context.Background(), identity); err != nil {
		t.Fatalf("failed to seed temp identity: %v", err)
	}
	return identity
}
