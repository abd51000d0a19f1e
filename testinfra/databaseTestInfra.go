package testinfra

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"warden/persistence"

	"github.com/google/uuid"
)

type TestDatabase struct {
	TestDatabaseFile string
	DS               *persistence.DataSourceManager
}

// StartSqliteTestDatabase spins up a throwaway file-backed sqlite database. A file
// is used instead of :memory: because the gorm connection pool would otherwise hand
// each connection its own empty database.
func StartSqliteTestDatabase(baseName string) *TestDatabase {
	fileName := filepath.Join(os.TempDir(),
		baseName+"_test_"+strings.ReplaceAll(uuid.New().String(), "-", "")+".db")

	dbConfig := &persistence.DatabaseConfig{DriverType: "sqlite3", DriverArgs: fileName}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		defer ds.Stop()
		log.Fatalf("database connection failed %v\n", err)
	}

	return &TestDatabase{TestDatabaseFile: fileName, DS: ds}
}

func StopSqliteTestDatabase(testDatabase *TestDatabase) {
	if testDatabase == nil || testDatabase.DS == nil {
		return
	}
	testDatabase.DS.Stop()
	if err := os.Remove(testDatabase.TestDatabaseFile); err != nil {
		log.Println("failed to remove test database file: " + testDatabase.TestDatabaseFile)
	}
}
