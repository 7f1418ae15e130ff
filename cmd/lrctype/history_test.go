package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/lrctype/internal/db"
)

func TestPrintHistory(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer database.Close()
	runs := database.Runs()

	var out bytes.Buffer
	if err := printHistory(ctx, &out, runs, 10); err != nil {
		t.Fatalf("printHistory() error = %v", err)
	}
	if !strings.Contains(out.String(), "no runs recorded") {
		t.Fatalf("empty output = %q", out.String())
	}

	started := time.Now().Add(-2 * time.Hour)
	if err := runs.Create(ctx, &db.Run{ID: "r1", Title: "Song", SequenceID: "default", Total: 1200, StartedAt: started}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := runs.Finish(ctx, "r1", db.RunStatusCompleted, 1200, started.Add(3*time.Minute)); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	out.Reset()
	if err := printHistory(ctx, &out, runs, 10); err != nil {
		t.Fatalf("printHistory() error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"2 hours ago", "completed", "1,200/1,200", "3m0s", "Song"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}
