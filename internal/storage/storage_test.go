package storage

import (
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := t.TempDir() + "/test.db"
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Init(); err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}

	return db
}

func TestTokensEmptyByDefault(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	access, refresh, err := db.Tokens()
	if err != nil {
		t.Fatalf("Failed to read tokens: %v", err)
	}
	if access != "" || refresh != "" {
		t.Errorf("Expected empty tokens, got %q / %q", access, refresh)
	}
}

func TestSaveAndClearTokens(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.SaveTokens("access1", "refresh1"); err != nil {
		t.Fatalf("Failed to save tokens: %v", err)
	}

	access, refresh, err := db.Tokens()
	if err != nil {
		t.Fatalf("Failed to read tokens: %v", err)
	}
	if access != "access1" {
		t.Errorf("Expected access token 'access1', got %q", access)
	}
	if refresh != "refresh1" {
		t.Errorf("Expected refresh token 'refresh1', got %q", refresh)
	}

	// Saving again replaces the pair wholesale
	if err := db.SaveTokens("access2", "refresh2"); err != nil {
		t.Fatalf("Failed to overwrite tokens: %v", err)
	}

	access, refresh, err = db.Tokens()
	if err != nil {
		t.Fatalf("Failed to read tokens: %v", err)
	}
	if access != "access2" || refresh != "refresh2" {
		t.Errorf("Expected replaced tokens, got %q / %q", access, refresh)
	}

	if err := db.ClearTokens(); err != nil {
		t.Fatalf("Failed to clear tokens: %v", err)
	}

	access, refresh, err = db.Tokens()
	if err != nil {
		t.Fatalf("Failed to read tokens after clear: %v", err)
	}
	if access != "" || refresh != "" {
		t.Errorf("Expected empty tokens after clear, got %q / %q", access, refresh)
	}
}

func TestPreferences(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, ok, err := db.GetPreference(PrefHapticEnabled)
	if err != nil {
		t.Fatalf("Failed to read preference: %v", err)
	}
	if ok {
		t.Error("Expected preference unset")
	}

	if err := db.SetPreference(PrefHapticEnabled, "true"); err != nil {
		t.Fatalf("Failed to set preference: %v", err)
	}

	value, ok, err := db.GetPreference(PrefHapticEnabled)
	if err != nil {
		t.Fatalf("Failed to read preference: %v", err)
	}
	if !ok || value != "true" {
		t.Errorf("Expected 'true', got %q (set=%v)", value, ok)
	}

	if err := db.SetPreference(PrefHapticEnabled, "false"); err != nil {
		t.Fatalf("Failed to update preference: %v", err)
	}

	value, _, err = db.GetPreference(PrefHapticEnabled)
	if err != nil {
		t.Fatalf("Failed to read preference: %v", err)
	}
	if value != "false" {
		t.Errorf("Expected updated value 'false', got %q", value)
	}

	if err := db.DeletePreference(PrefHapticEnabled); err != nil {
		t.Fatalf("Failed to delete preference: %v", err)
	}

	_, ok, err = db.GetPreference(PrefHapticEnabled)
	if err != nil {
		t.Fatalf("Failed to read preference after delete: %v", err)
	}
	if ok {
		t.Error("Expected preference unset after delete")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	cursor, err := db.LoadCursor()
	if err != nil {
		t.Fatalf("Failed to load cursor: %v", err)
	}
	if cursor != "" {
		t.Errorf("Expected empty initial cursor, got %q", cursor)
	}

	if err := db.SaveCursor("2025-06-01T10:00:00Z"); err != nil {
		t.Fatalf("Failed to save cursor: %v", err)
	}

	cursor, err = db.LoadCursor()
	if err != nil {
		t.Fatalf("Failed to load cursor: %v", err)
	}
	if cursor != "2025-06-01T10:00:00Z" {
		t.Errorf("Expected cursor '2025-06-01T10:00:00Z', got %q", cursor)
	}

	if err := db.SaveCursor("2025-06-02T08:30:00Z"); err != nil {
		t.Fatalf("Failed to overwrite cursor: %v", err)
	}

	cursor, err = db.LoadCursor()
	if err != nil {
		t.Fatalf("Failed to load cursor: %v", err)
	}
	if cursor != "2025-06-02T08:30:00Z" {
		t.Errorf("Expected cursor '2025-06-02T08:30:00Z', got %q", cursor)
	}
}
