package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/whispernote/whisperd/pkg/protocol"
)

func testTransmission(direction, medium, status string) protocol.Transmission {
	return protocol.Transmission{
		Timestamp:   time.Now(),
		Direction:   direction,
		Medium:      medium,
		NodeID:      "node-7f3a",
		Payload:     "eyJhbXQiOjF9",
		PayloadSize: 9,
		DurationMS:  1440.0,
		Status:      status,
	}
}

func TestNewTransmissionStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "whisperd-storage-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Store Creation", func(t *testing.T) {
		dbPath := filepath.Join(tempDir, "test.db")
		store, err := NewTransmissionStore(dbPath, 1000)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer store.Close()

		if store.dbPath != dbPath {
			t.Errorf("Expected dbPath %s, got %s", dbPath, store.dbPath)
		}
		if store.maxTransmissions != 1000 {
			t.Errorf("Expected maxTransmissions 1000, got %d", store.maxTransmissions)
		}

		// Verify database file was created
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("Expected database file to be created")
		}
	})

	t.Run("Store Creation with Nested Directory", func(t *testing.T) {
		dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
		store, err := NewTransmissionStore(dbPath, 500)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer store.Close()

		// Verify nested directory was created
		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("Expected nested directory to be created")
		}
	})
}

func TestTransmissionStoreInitialization(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "whisperd-storage-init-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "init_test.db")
	store, err := NewTransmissionStore(dbPath, 1000)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	t.Run("Tables Created", func(t *testing.T) {
		tables := []string{"transmissions", "transmission_stats"}
		for _, table := range tables {
			var count int
			err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
			if err != nil {
				t.Errorf("Failed to check table %s: %v", table, err)
			}
			if count != 1 {
				t.Errorf("Expected table %s to exist, got count %d", table, count)
			}
		}
	})

	t.Run("Indexes Created", func(t *testing.T) {
		expectedIndexes := []string{
			"idx_transmissions_timestamp",
			"idx_transmissions_direction",
			"idx_transmissions_medium",
			"idx_transmissions_status",
			"idx_transmissions_node_id",
		}

		for _, index := range expectedIndexes {
			var count int
			err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
			if err != nil {
				t.Errorf("Failed to check index %s: %v", index, err)
			}
			if count != 1 {
				t.Errorf("Expected index %s to exist, got count %d", index, count)
			}
		}
	})

	t.Run("Stats Initialized", func(t *testing.T) {
		stats, err := store.GetTransmissionStats()
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalTransmissions != 0 || stats.TotalRX != 0 || stats.TotalTX != 0 {
			t.Errorf("Expected empty stats, got %+v", stats)
		}
	})
}

func TestStoreTransmission(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "whisperd-store-tx-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := NewTransmissionStore(filepath.Join(tempDir, "store.db"), 1000)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	t.Run("Store and Retrieve", func(t *testing.T) {
		record := testTransmission("TX", "audio", "ok")
		if err := store.StoreTransmission(record); err != nil {
			t.Fatalf("Failed to store transmission: %v", err)
		}

		records, err := store.GetRecentTransmissions(10)
		if err != nil {
			t.Fatalf("Failed to get transmissions: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(records))
		}

		got := records[0]
		if got.Direction != "TX" {
			t.Errorf("Expected direction TX, got %s", got.Direction)
		}
		if got.Medium != "audio" {
			t.Errorf("Expected medium audio, got %s", got.Medium)
		}
		if got.Payload != "eyJhbXQiOjF9" {
			t.Errorf("Expected payload eyJhbXQiOjF9, got %s", got.Payload)
		}
		if got.PayloadSize != 9 {
			t.Errorf("Expected payload size 9, got %d", got.PayloadSize)
		}
		if got.DurationMS != 1440.0 {
			t.Errorf("Expected duration 1440, got %f", got.DurationMS)
		}
	})

	t.Run("Stats Updated", func(t *testing.T) {
		if err := store.StoreTransmission(testTransmission("RX", "audio", "ok")); err != nil {
			t.Fatalf("Failed to store transmission: %v", err)
		}
		if err := store.StoreTransmission(testTransmission("RX", "rf", "checksum_mismatch")); err != nil {
			t.Fatalf("Failed to store transmission: %v", err)
		}

		stats, err := store.GetTransmissionStats()
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalTransmissions != 3 {
			t.Errorf("Expected 3 total, got %d", stats.TotalTransmissions)
		}
		if stats.TotalTX != 1 {
			t.Errorf("Expected 1 TX, got %d", stats.TotalTX)
		}
		if stats.TotalRX != 2 {
			t.Errorf("Expected 2 RX, got %d", stats.TotalRX)
		}
		if stats.TotalFailed != 1 {
			t.Errorf("Expected 1 failed, got %d", stats.TotalFailed)
		}
	})

	t.Run("Invalid Direction Rejected", func(t *testing.T) {
		record := testTransmission("SIDEWAYS", "audio", "ok")
		if err := store.StoreTransmission(record); err == nil {
			t.Error("Expected error for invalid direction")
		}
	})

	t.Run("Invalid Medium Rejected", func(t *testing.T) {
		record := testTransmission("TX", "carrier-pigeon", "ok")
		if err := store.StoreTransmission(record); err == nil {
			t.Error("Expected error for invalid medium")
		}
	})
}

func TestCleanupOldTransmissions(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "whisperd-cleanup-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := NewTransmissionStore(filepath.Join(tempDir, "cleanup.db"), 5)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	// Store more than the limit with distinct timestamps
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		record := testTransmission("TX", "audio", "ok")
		record.Timestamp = base.Add(time.Duration(i) * time.Minute)
		record.Payload = fmt.Sprintf("payload-%d", i)
		if err := store.StoreTransmission(record); err != nil {
			t.Fatalf("Failed to store transmission %d: %v", i, err)
		}
	}

	count, err := store.GetTransmissionCount()
	if err != nil {
		t.Fatalf("Failed to count transmissions: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 records after cleanup, got %d", count)
	}

	// Newest records survive
	records, err := store.GetRecentTransmissions(10)
	if err != nil {
		t.Fatalf("Failed to get transmissions: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(records))
	}
	if records[0].Payload != "payload-9" {
		t.Errorf("Expected newest record payload-9, got %s", records[0].Payload)
	}
	if records[4].Payload != "payload-5" {
		t.Errorf("Expected oldest surviving record payload-5, got %s", records[4].Payload)
	}
}
