package models_test

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
	"github.com/angelmondragon/stocksync-backend/pkg/enums"
)

// Test fixtures across the service run AutoMigrate against sqlite, so
// every model tag has to translate to DDL sqlite accepts. IDs are
// assigned by the repositories, never by a database default.
func TestAutoMigrateAllModelsOnSQLite(t *testing.T) {
	dsn := "file:models_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.ProductIdentity{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.SalesInvoice{},
		&models.SalesInvoiceLine{},
		&models.StockMovement{},
		&models.StockSummary{},
		&models.SyncRun{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	identity := models.ProductIdentity{
		ID:      uuid.New(),
		SKU:     "WIDGET-1",
		Name:    "Widget One",
		Aliases: []string{"W1-LEGACY"},
		Active:  true,
	}
	if err := conn.Create(&identity).Error; err != nil {
		t.Fatalf("failed to insert identity: %v", err)
	}

	run := models.SyncRun{
		ID:      uuid.New(),
		Source:  enums.SyncSourcePurchases,
		Trigger: enums.SyncTriggerManual,
		Status:  enums.SyncRunStatusRunning,
	}
	if err := conn.Create(&run).Error; err != nil {
		t.Fatalf("failed to insert sync run: %v", err)
	}

	var got models.ProductIdentity
	if err := conn.First(&got, "sku = ?", "WIDGET-1").Error; err != nil {
		t.Fatalf("failed to read identity back: %v", err)
	}
	if !got.HasAlias("W1-LEGACY") {
		t.Fatalf("expected alias list to round-trip, got %v", got.Aliases)
	}
}
