package storage

import (
	"testing"
)

// setupTestService creates a service over a migrated in-memory database.
func setupTestService(t *testing.T) *Service {
	t.Helper()

	db, err := Open(DefaultConfig(MemoryPath))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service := NewService(db)
	t.Cleanup(func() {
		_ = service.Close()
	})
	return service
}
