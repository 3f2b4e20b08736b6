package storage

import (
	"path/filepath"
	"testing"
	"time"

	"housescout/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := testStore(t)

	run := &models.SearchRun{
		Query:          "4-room hdb tampines",
		Sites:          "propertyguru.com.sg,99.co",
		StartedAt:      time.Now(),
		Status:         models.RunStatusRunning,
		PrimaryEngine:  true,
		FallbackEngine: true,
	}
	id, err := store.CreateRun(run)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run id")
	}

	run.ID = id
	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.ResultsFound = 8
	run.ResultsRanked = 3
	run.URLsValidated = 6
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	runs, err := store.GetRecentRuns(10)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != models.RunStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.ResultsFound != 8 || got.ResultsRanked != 3 || got.URLsValidated != 6 {
		t.Errorf("counters = %d/%d/%d, want 8/3/6", got.ResultsFound, got.ResultsRanked, got.URLsValidated)
	}
	if got.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}
}

func TestLogAttachesToRun(t *testing.T) {
	store := testStore(t)

	id, err := store.CreateRun(&models.SearchRun{
		Query:     "condo bishan",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	if err := store.Log(&id, models.LogLevelInfo, "pipeline started"); err != nil {
		t.Fatalf("Log with run: %v", err)
	}
	if err := store.Log(nil, models.LogLevelError, "orphan message"); err != nil {
		t.Fatalf("Log without run: %v", err)
	}
}

func TestSavedSearchRoundTrip(t *testing.T) {
	store := testStore(t)

	id, err := store.CreateSavedSearch(&models.SavedSearch{
		Query:    "executive condo punggol",
		Sites:    "99.co",
		Location: "punggol",
		MaxPrice: 900000,
		FlatType: "EC",
		TopK:     5,
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("CreateSavedSearch: %v", err)
	}

	saved, err := store.GetSavedSearch(id)
	if err != nil {
		t.Fatalf("GetSavedSearch: %v", err)
	}
	if saved == nil {
		t.Fatal("expected saved search, got nil")
	}
	if saved.Query != "executive condo punggol" || saved.MaxPrice != 900000 {
		t.Errorf("round trip mismatch: %+v", saved)
	}

	crit := saved.Criteria()
	if crit.Location != "punggol" || crit.FlatType != "EC" {
		t.Errorf("Criteria() = %+v", crit)
	}

	missing, err := store.GetSavedSearch(9999)
	if err != nil {
		t.Fatalf("GetSavedSearch missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing id, got %+v", missing)
	}
}

func TestListEnabledSearchesSkipsDisabled(t *testing.T) {
	store := testStore(t)

	first, err := store.CreateSavedSearch(&models.SavedSearch{Query: "hdb resale yishun", Enabled: true})
	if err != nil {
		t.Fatalf("CreateSavedSearch: %v", err)
	}
	if _, err := store.CreateSavedSearch(&models.SavedSearch{Query: "landed property", Enabled: true}); err != nil {
		t.Fatalf("CreateSavedSearch: %v", err)
	}

	if err := store.SetSearchEnabled(first, false); err != nil {
		t.Fatalf("SetSearchEnabled: %v", err)
	}

	enabled, err := store.ListEnabledSearches()
	if err != nil {
		t.Fatalf("ListEnabledSearches: %v", err)
	}
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled search, got %d", len(enabled))
	}
	if enabled[0].Query != "landed property" {
		t.Errorf("wrong search enabled: %q", enabled[0].Query)
	}
}

func TestCommandQueue(t *testing.T) {
	store := testStore(t)

	if err := store.EnqueueCommand(models.CmdSearchNow, &models.CommandParams{Query: "3-room clementi"}); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("EnqueueCommand nil params: %v", err)
	}

	pending, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending commands, got %d", len(pending))
	}

	params, err := store.ParseCommandParams(&pending[0])
	if err != nil {
		t.Fatalf("ParseCommandParams: %v", err)
	}
	if params.Query != "3-room clementi" {
		t.Errorf("params.Query = %q", params.Query)
	}

	empty, err := store.ParseCommandParams(&pending[1])
	if err != nil {
		t.Fatalf("ParseCommandParams empty: %v", err)
	}
	if empty.Query != "" || empty.SavedID != 0 {
		t.Errorf("expected zero params, got %+v", empty)
	}

	if err := store.MarkCommandProcessed(pending[0].ID); err != nil {
		t.Fatalf("MarkCommandProcessed: %v", err)
	}
	pending, err = store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending command after processing, got %d", len(pending))
	}
	if pending[0].Command != models.CmdPause {
		t.Errorf("remaining command = %q, want pause", pending[0].Command)
	}
}

func TestResetAllData(t *testing.T) {
	store := testStore(t)

	if _, err := store.CreateSavedSearch(&models.SavedSearch{Query: "anything", Enabled: true}); err != nil {
		t.Fatalf("CreateSavedSearch: %v", err)
	}
	if err := store.EnqueueCommand(models.CmdResume, nil); err != nil {
		t.Fatalf("EnqueueCommand: %v", err)
	}

	if err := store.ResetAllData(); err != nil {
		t.Fatalf("ResetAllData: %v", err)
	}

	enabled, err := store.ListEnabledSearches()
	if err != nil {
		t.Fatalf("ListEnabledSearches: %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("expected no saved searches after reset, got %d", len(enabled))
	}
	pending, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("GetPendingCommands: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending commands after reset, got %d", len(pending))
	}
}
