package wallsync

import (
	"path/filepath"
	"testing"
	"time"
)

func TestJournal_RecordAndQuery(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &SyncRun{RunID: "run-1", StartedAt: base, EndedAt: base.Add(time.Second), UpsertCalled: true, RecordsAccepted: 100, Success: true}
	if err := j.Record(first, []BatchOutcome{
		{RunID: "run-1", BatchIndex: 1, Size: 50, Outcome: string(BatchSkipped), Status: 500, Error: "http 500: boom"},
		{RunID: "run-1", BatchIndex: 0, Size: 100, Outcome: string(BatchOK), Status: 201, Processed: 100},
	}); err != nil {
		t.Fatal(err)
	}
	second := &SyncRun{RunID: "run-2", StartedAt: base.Add(time.Hour), EndedAt: base.Add(time.Hour)}
	if err := j.Record(second, nil); err != nil {
		t.Fatal(err)
	}

	runs, err := j.recentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" || runs[1].RunID != "run-1" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	if runs, _ := j.recentRuns(1); len(runs) != 1 {
		t.Fatalf("limit not applied: %d runs", len(runs))
	}

	batches, err := j.runBatches("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 || batches[0].BatchIndex != 0 || batches[1].Error != "http 500: boom" {
		t.Fatalf("unexpected batches %+v", batches)
	}
	if none, _ := j.runBatches("run-2"); len(none) != 0 {
		t.Fatalf("run-2 should have no batches, got %d", len(none))
	}
}

func TestJournal_DuplicateRunIDRollsBack(t *testing.T) {
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if err := j.Record(&SyncRun{RunID: "dup"}, nil); err != nil {
		t.Fatal(err)
	}
	err = j.Record(&SyncRun{RunID: "dup"}, []BatchOutcome{{RunID: "dup", Outcome: string(BatchOK)}})
	if err == nil {
		t.Fatalf("expected unique violation")
	}
	if batches, _ := j.runBatches("dup"); len(batches) != 0 {
		t.Fatalf("batches of a failed record should roll back, got %d", len(batches))
	}
}

func TestJournal_CloseNil(t *testing.T) {
	var j *Journal
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
}
