package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// newTestDB opens a file-backed database in a per-test temp dir and applies
// all migrations.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), t.Name()+".db")
	database, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("Failed to get migrations filesystem: %v", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return database
}

// seedSection inserts a section row, failing the test on error.
func seedSection(t *testing.T, database *DB, id, name string) {
	t.Helper()
	if err := database.UpsertSection(Section{SectionID: id, SectionName: name}); err != nil {
		t.Fatalf("UpsertSection failed: %v", err)
	}
}

// testExitTxn returns an exit transaction with sane defaults; callers
// override fields as needed.
func testExitTxn(id, passID, sectionID, class string, exitTime time.Time) ExitTransaction {
	return ExitTransaction{
		ExitTransactionID:   id,
		PassID:              passID,
		SectionID:           sectionID,
		SectionName:         "Test Section",
		VehicleClass:        class,
		VehiclePlateColorID: "0",
		AxleCount:           "2",
		TotalLimit:          "18000",
		TotalWeight:         "12000",
		CardType:            "1",
		PayType:             "1",
		PayCardType:         "1",
		TollMoney:           42.5,
		RealMoney:           42.5,
		CardPayToll:         0,
		DiscountType:        "",
		ExitTime:            exitTime,
	}
}

// testGantryTxn returns a gantry transaction with sane defaults.
func testGantryTxn(id, passID, sectionID, class string, txnTime time.Time) GantryTransaction {
	return GantryTransaction{
		GantryTransactionID: id,
		GantryID:            "G" + sectionID,
		GantryType:          "1",
		SectionID:           sectionID,
		SectionName:         "Test Section",
		PassID:              passID,
		TransactionTime:     txnTime,
		EntranceTime:        txnTime.Add(-30 * time.Minute),
		EntranceLaneType:    "01",
		PayFee:              320,
		DiscountFee:         0,
		MediaType:           "1",
		VehicleType:         class,
		VehicleSign:         "0x04",
		PassState:           "1.0",
		AxleCount:           2.0,
		TotalWeight:         12000,
		CPUCardType:         "1.0",
		FeeProvBeginHex:     "000000",
	}
}

// mustInsertExits batch-inserts exit transactions, failing the test on error.
func mustInsertExits(t *testing.T, database *DB, txns []ExitTransaction) {
	t.Helper()
	if err := database.InsertExitTransactionsBatch(context.Background(), txns); err != nil {
		t.Fatalf("InsertExitTransactionsBatch failed: %v", err)
	}
}

// mustInsertGantry batch-inserts gantry transactions, failing the test on error.
func mustInsertGantry(t *testing.T, database *DB, txns []GantryTransaction) {
	t.Helper()
	if err := database.InsertGantryTransactionsBatch(context.Background(), txns); err != nil {
		t.Fatalf("InsertGantryTransactionsBatch failed: %v", err)
	}
}
