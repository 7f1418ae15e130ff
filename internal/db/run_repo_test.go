package db

import (
	"context"
	"testing"
	"time"
)

func TestRunRepoLifecycle(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	run := &Run{ID: "run-1", LRCPath: "/music/song.lrc", Title: "Song", SequenceID: "default", Total: 12, StartedAt: started}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if run.Status != RunStatusRunning {
		t.Fatalf("Create() status = %q, want running", run.Status)
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Title != "Song" || got.Total != 12 || !got.StartedAt.Equal(started) || !got.FinishedAt.IsZero() {
		t.Fatalf("Get() = %#v", got)
	}
	if got.Duration() != 0 {
		t.Fatalf("unfinished run duration = %v", got.Duration())
	}

	for i, kind := range []string{"injection", "configuration"} {
		item := &RunError{RunID: "run-1", RecordIndex: i + 3, Kind: kind, Message: "boom"}
		if err := repo.RecordError(ctx, item); err != nil {
			t.Fatalf("RecordError() error = %v", err)
		}
		if item.ID == 0 {
			t.Fatalf("RecordError() did not set id")
		}
	}

	finished := started.Add(95 * time.Second)
	if err := repo.Finish(ctx, "run-1", "Completed", 12, finished); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	got, err = repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() after finish error = %v", err)
	}
	if got.Status != RunStatusCompleted || got.Fired != 12 || got.ErrorCount != 2 || got.Duration() != 95*time.Second {
		t.Fatalf("finished run = %#v", got)
	}

	errs, err := repo.ListErrors(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListErrors() error = %v", err)
	}
	if len(errs) != 2 || errs[0].Kind != "injection" || errs[1].RecordIndex != 4 {
		t.Fatalf("ListErrors() = %#v", errs)
	}

	if err := repo.Finish(ctx, "missing", RunStatusStopped, 0, finished); err == nil {
		t.Fatalf("Finish() on missing run should fail")
	}
	missing, err := repo.Get(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("Get(missing) = %#v, %v", missing, err)
	}
}

func TestRunRepoListNewestFirst(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, &Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	runs, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("List(2) = %v, %v", runs[0].ID, runs[1].ID)
	}

	all, err := repo.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("List(0) len = %d, err = %v", len(all), err)
	}
}

func TestRunRepoMarkInterrupted(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	if err := repo.Create(ctx, &Run{ID: "left-running"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, &Run{ID: "done", Status: RunStatusCompleted, FinishedAt: time.Now()}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := repo.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("MarkInterrupted() = %d, want 1", n)
	}
	got, _ := repo.Get(ctx, "left-running")
	if got.Status != RunStatusStopped || got.FinishedAt.IsZero() {
		t.Fatalf("interrupted run = %#v", got)
	}
}

func TestRunErrorCascadesWithRun(t *testing.T) {
	database, _ := openTestDB(t)
	repo := NewRunRepo(database.SQL())
	ctx := context.Background()

	if err := repo.Create(ctx, &Run{ID: "r"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.RecordError(ctx, &RunError{RunID: "r", Kind: "injection", Message: "x"}); err != nil {
		t.Fatalf("RecordError() error = %v", err)
	}
	if _, err := database.SQL().ExecContext(ctx, `DELETE FROM runs WHERE id = 'r'`); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	errs, err := repo.ListErrors(ctx, "r")
	if err != nil || len(errs) != 0 {
		t.Fatalf("ListErrors() after delete = %d, %v", len(errs), err)
	}
	if err := repo.RecordError(ctx, &RunError{RunID: "unknown", Kind: "injection", Message: "x"}); err == nil {
		t.Fatalf("RecordError() for unknown run should fail the foreign key")
	}
}
