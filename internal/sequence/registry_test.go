package sequence

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/user/lrctype/internal/action"
)

func TestNewRegistryCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sequences")
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	def := r.Get(DefaultID)
	if def == nil {
		t.Fatalf("expected default sequence")
	}
	if !reflect.DeepEqual(def.Actions, action.Default()) {
		t.Fatalf("default actions = %v, want %v", def.Actions, action.Default())
	}
	slow := r.Get("chat-slow")
	if slow == nil {
		t.Fatalf("expected chat-slow sequence")
	}
	want := action.Sequence{action.Lyric(), action.Wait(500 * time.Millisecond), action.Key("enter")}
	if !reflect.DeepEqual(slow.Actions, want) {
		t.Fatalf("chat-slow actions = %v, want %v", slow.Actions, want)
	}
	for _, name := range []string{"default.yaml", "chat-slow.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s file missing: %v", name, err)
		}
	}
}

func TestNewRegistryKeepsEditedDefaultsAndLoadsCustomFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sequences")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "default.yaml"), []byte(`
id: default
name: Edited
actions:
  - kind: lyric
`), 0o644); err != nil {
		t.Fatalf("write default: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bang.yml"), []byte(`
name: Bang
actions:
  - kind: lyric
  - kind: literal
    params:
      text: "!"
`), 0o644); err != nil {
		t.Fatalf("write custom: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if got := r.Get(DefaultID); got == nil || got.Name != "Edited" || len(got.Actions) != 1 {
		t.Fatalf("default = %+v, want the edited file", got)
	}
	if got := r.Get("bang"); got == nil || got.Name != "Bang" {
		t.Fatalf("bang = %+v", got)
	}
	if r.Get("chat-slow") == nil {
		t.Fatalf("missing default should be written")
	}
	if n := len(r.List()); n != 3 {
		t.Fatalf("List() len = %d, want 3", n)
	}
}

func TestNewRegistryRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown kind", content: "id: bad\nactions:\n  - kind: teleport\n"},
		{name: "no actions", content: "id: bad\nname: Bad\nactions: []\n"},
		{name: "bad id", content: "id: Bad_ID\nactions:\n  - kind: lyric\n"},
		{name: "zero wait", content: "id: bad\nactions:\n  - kind: wait\n    params:\n      duration: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := NewRegistry(dir); err == nil {
				t.Fatalf("NewRegistry() should fail for %s", tt.name)
			}
		})
	}
}

func TestSaveGetDelete(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	seq := &Sequence{
		ID:      " Shout ",
		Actions: action.Sequence{action.Lyric(), action.Literal("!!"), action.Key("enter")},
	}
	if err := r.Save(seq); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got := r.Get("shout")
	if got == nil || got.Name != "shout" {
		t.Fatalf("Get() = %+v", got)
	}

	got.Actions[0] = action.Literal("mutated")
	if again := r.Get("shout"); again.Actions[0] != action.Lyric() {
		t.Fatalf("Get() must return a copy")
	}

	fresh, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("reopen registry: %v", err)
	}
	if !reflect.DeepEqual(fresh.Get("shout").Actions, seq.Actions) {
		t.Fatalf("reloaded actions = %v", fresh.Get("shout").Actions)
	}

	if err := r.Delete("shout"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if r.Get("shout") != nil {
		t.Fatalf("sequence should be gone")
	}
	if err := r.Delete("shout"); !errors.Is(err, ErrSequenceNotFound) {
		t.Fatalf("Delete() again error = %v", err)
	}
	if err := r.Delete(DefaultID); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("Delete(default) error = %v", err)
	}
	if err := r.Save(&Sequence{ID: "empty"}); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("Save(empty) error = %v", err)
	}
	if err := r.Save(&Sequence{ID: "w", Actions: action.Sequence{action.Wait(0)}}); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("Save(zero wait) error = %v", err)
	}
}

func TestSaveReplacesYMLFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mine.yml"), []byte("name: Mine\nactions:\n  - kind: text\n"), 0o644); err != nil {
		t.Fatalf("write mine.yml: %v", err)
	}
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	updated := &Sequence{ID: "mine", Name: "Mine", Actions: action.Sequence{action.Lyric(), action.Key("tab")}}
	if err := r.Save(updated); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mine.yml")); !os.IsNotExist(err) {
		t.Fatalf("mine.yml should be removed, stat err = %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, err := NewRegistry(dir); err != nil {
		t.Fatalf("reopen registry: %v", err)
	}
	if got := r.Get("mine"); got == nil || !reflect.DeepEqual(got.Actions, updated.Actions) {
		t.Fatalf("Get(mine) = %+v", got)
	}
}

func TestImportLegacy(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	data := []byte(`[{"type": "text", "params": {"text": ""}}, {"type": "wait", "params": {"duration": 1}}, {"type": "key", "params": {"key": "enter"}}]`)
	seq, err := r.ImportLegacy("Old-Default", "Old default", data)
	if err != nil {
		t.Fatalf("ImportLegacy() error = %v", err)
	}
	want := action.Sequence{action.Lyric(), action.Wait(time.Second), action.Key("enter")}
	if seq.ID != "old-default" || !reflect.DeepEqual(seq.Actions, want) {
		t.Fatalf("ImportLegacy() = %+v", seq)
	}
	if !strings.Contains(seq.Description, "legacy") {
		t.Fatalf("description = %q", seq.Description)
	}

	if _, err := r.ImportLegacy("broken", "", []byte("not json")); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("ImportLegacy(bad) error = %v", err)
	}
	if _, err := r.ImportLegacy("empty", "", []byte(`[{"type":"focus"}]`)); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("ImportLegacy(focus only) error = %v", err)
	}
}
