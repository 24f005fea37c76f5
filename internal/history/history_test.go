package history

import (
	"testing"
	"time"
)

// TestOpen verifies that opening an in-memory database works without error
func TestOpen(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
}

// TestOpenWALMode verifies that WAL mode is enabled after open
func TestOpenWALMode(t *testing.T) {
	// In-memory databases don't support WAL, use a temp file
	s, err := Open(t.TempDir() + "/history.db")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	var journalMode string
	if err := s.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

// TestOpenMigration verifies that all tables exist after open
func TestOpenMigration(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"runs", "results"} {
		var name string
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		if err := s.conn.QueryRow(query, table).Scan(&name); err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

// TestOpenIdempotent verifies that reopening an existing database works
func TestOpenIdempotent(t *testing.T) {
	path := t.TempDir() + "/history.db"
	s, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	s.Close()
}

func testRun(id string) *Run {
	return &Run{
		ID:          id,
		Operation:   "pull",
		Root:        "/home/u/src",
		Parallelism: 4,
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.RecordRun(testRun("01AAAA")); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	run, err := s.GetRun("01AAAA")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("GetRun returned nil for existing run")
	}
	if run.Operation != "pull" || run.Root != "/home/u/src" {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.State != RunStateRunning {
		t.Errorf("Expected running state, got %s", run.State)
	}
	if run.StartedAt.IsZero() {
		t.Error("Expected started_at to be set")
	}
	if run.FinishedAt != nil {
		t.Errorf("Expected no finished_at, got %v", run.FinishedAt)
	}
}

func TestGetRunMissing(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	run, err := s.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run != nil {
		t.Errorf("Expected nil for missing run, got %+v", run)
	}
}

func TestFinishRun(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.RecordRun(testRun("01AAAA")); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if err := s.FinishRun("01AAAA", RunStateCompleted, 5, 4, 1, 0, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := s.GetRun("01AAAA")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.State != RunStateCompleted {
		t.Errorf("Expected completed, got %s", run.State)
	}
	if run.Total != 5 || run.Succeeded != 4 || run.Failed != 1 || run.Cancelled != 0 {
		t.Errorf("unexpected counters: %+v", run)
	}
	if run.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
}

func TestFinishRunMissing(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.FinishRun("nope", RunStateCompleted, 0, 0, 0, 0, nil); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestAppendAndListResults(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.RecordRun(testRun("01AAAA")); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	results := []*Result{
		{RunID: "01AAAA", RepoPath: "/src/a", RepoName: "a", Outcome: "success", DurationMS: 1200},
		{RunID: "01AAAA", RepoPath: "/src/b", RepoName: "b", Outcome: "conflict", ExitCode: 1,
			Output: "CONFLICT (content): Merge conflict", DurationMS: 900},
	}
	for _, res := range results {
		if err := s.AppendResult(res); err != nil {
			t.Fatalf("AppendResult failed: %v", err)
		}
	}

	got, err := s.ResultsForRun("01AAAA")
	if err != nil {
		t.Fatalf("ResultsForRun failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(got))
	}
	// Insertion order is preserved
	if got[0].RepoName != "a" || got[1].RepoName != "b" {
		t.Errorf("unexpected order: %s, %s", got[0].RepoName, got[1].RepoName)
	}
	if got[1].Outcome != "conflict" || got[1].ExitCode != 1 {
		t.Errorf("unexpected result: %+v", got[1])
	}
}

func TestAppendResultRequiresRun(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	err = s.AppendResult(&Result{RunID: "missing", RepoPath: "/src/a", RepoName: "a", Outcome: "success"})
	if err == nil {
		t.Error("Expected foreign key violation for missing run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	// ULIDs are lexicographically time-ordered
	for _, id := range []string{"01AAAA", "01BBBB", "01CCCC"} {
		if err := s.RecordRun(testRun(id)); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "01CCCC" || runs[1].ID != "01BBBB" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestPruneCascades(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	old := testRun("01AAAA")
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	if err := s.RecordRun(old); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if err := s.AppendResult(&Result{RunID: "01AAAA", RepoPath: "/src/a", RepoName: "a", Outcome: "success"}); err != nil {
		t.Fatalf("AppendResult failed: %v", err)
	}
	if err := s.RecordRun(testRun("01BBBB")); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	deleted, err := s.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 pruned run, got %d", deleted)
	}

	results, err := s.ResultsForRun("01AAAA")
	if err != nil {
		t.Fatalf("ResultsForRun failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected cascade delete of results, got %d", len(results))
	}

	if run, _ := s.GetRun("01BBBB"); run == nil {
		t.Error("Recent run should survive prune")
	}
}
