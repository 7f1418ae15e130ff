// Package sequence stores named action sequences as YAML files in a
// directory, seeded with the shipped defaults.
package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/user/lrctype/configs"
	"github.com/user/lrctype/internal/action"
	"gopkg.in/yaml.v3"
)

var sequenceIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	ErrInvalidSequence  = errors.New("invalid sequence")
	ErrSequenceStorage  = errors.New("sequence storage error")
	ErrSequenceNotFound = errors.New("sequence not found")
)

type Registry struct {
	dir       string
	sequences map[string]*Sequence
	mu        sync.RWMutex
}

func NewRegistry(dir string) (*Registry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("sequences dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sequences dir: %w", err)
	}
	if err := ensureDefaults(dir); err != nil {
		return nil, err
	}

	r := &Registry{dir: dir, sequences: make(map[string]*Sequence)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Get(id string) *Sequence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seq, ok := r.sequences[id]
	if !ok {
		return nil
	}
	return clone(seq)
}

func (r *Registry) List() []*Sequence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Sequence, 0, len(r.sequences))
	for _, seq := range r.sequences {
		result = append(result, clone(seq))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func (r *Registry) Reload() error {
	loaded, err := loadDir(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.sequences = loaded
	r.mu.Unlock()
	return nil
}

func (r *Registry) Save(seq *Sequence) error {
	if seq == nil {
		return fmt.Errorf("%w: sequence is required", ErrInvalidSequence)
	}
	clean := clone(seq)
	if err := normalizeAndValidate(clean); err != nil {
		return err
	}

	data, err := yaml.Marshal(clean)
	if err != nil {
		return fmt.Errorf("%w: marshal sequence: %v", ErrSequenceStorage, err)
	}
	path := filepath.Join(r.dir, clean.ID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write sequence %q: %v", ErrSequenceStorage, path, err)
	}
	// A hand-written <id>.yml would otherwise load as a duplicate id.
	legacy := filepath.Join(r.dir, clean.ID+".yml")
	if err := os.Remove(legacy); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove superseded sequence %q: %v", ErrSequenceStorage, legacy, err)
	}

	r.mu.Lock()
	r.sequences[clean.ID] = clean
	r.mu.Unlock()
	return nil
}

// Delete removes a stored sequence. The default sequence cannot be deleted.
func (r *Registry) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if id == DefaultID {
		return fmt.Errorf("%w: the %s sequence cannot be deleted", ErrInvalidSequence, DefaultID)
	}

	deleted := false
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(r.dir, id+ext)
		err := os.Remove(path)
		if err == nil {
			deleted = true
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return fmt.Errorf("%w: delete sequence %q: %v", ErrSequenceStorage, path, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSequenceNotFound, id)
	}

	r.mu.Lock()
	delete(r.sequences, id)
	r.mu.Unlock()
	return nil
}

// ImportLegacy converts a JSON action list saved by the older editor and
// stores it under id.
func (r *Registry) ImportLegacy(id, name string, data []byte) (*Sequence, error) {
	actions, err := action.ParseLegacy(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
	}
	seq := &Sequence{
		ID:          id,
		Name:        name,
		Description: "Imported from a legacy action list.",
		Actions:     actions,
	}
	if err := r.Save(seq); err != nil {
		return nil, err
	}
	return r.Get(strings.TrimSpace(strings.ToLower(id))), nil
}

// ensureDefaults writes every shipped sequence that is missing from dir.
func ensureDefaults(dir string) error {
	entries, err := configs.SequenceDefaults.ReadDir("sequences")
	if err != nil {
		return fmt.Errorf("read embedded defaults: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat default %q: %w", path, err)
		}
		content, err := configs.SequenceDefaults.ReadFile("sequences/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read embedded default %q: %w", entry.Name(), err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write default %q: %w", path, err)
		}
	}
	return nil
}

func loadDir(dir string) (map[string]*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sequences dir: %w", err)
	}

	loaded := make(map[string]*Sequence)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		seq, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if seq.ID == "" {
			seq.ID = strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		}
		if err := normalizeAndValidate(seq); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, exists := loaded[seq.ID]; exists {
			return nil, fmt.Errorf("duplicate sequence id %q", seq.ID)
		}
		loaded[seq.ID] = seq
	}
	return loaded, nil
}

func loadFile(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence %q: %w", path, err)
	}
	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse sequence %q: %w", path, err)
	}
	return &seq, nil
}

func normalizeAndValidate(seq *Sequence) error {
	if seq == nil {
		return fmt.Errorf("%w: sequence is required", ErrInvalidSequence)
	}
	seq.ID = strings.TrimSpace(strings.ToLower(seq.ID))
	if err := validateID(seq.ID); err != nil {
		return err
	}
	seq.Name = strings.TrimSpace(seq.Name)
	if seq.Name == "" {
		seq.Name = seq.ID
	}
	seq.Description = strings.TrimSpace(seq.Description)

	if len(seq.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidSequence)
	}
	for i, a := range seq.Actions {
		if _, err := action.FromSpec(a.Spec()); err != nil {
			return fmt.Errorf("%w: actions[%d]: %v", ErrInvalidSequence, i, err)
		}
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSequence)
	}
	if !sequenceIDPattern.MatchString(id) {
		return fmt.Errorf("%w: id must be lowercase alphanumeric with hyphens", ErrInvalidSequence)
	}
	return nil
}

func clone(seq *Sequence) *Sequence {
	if seq == nil {
		return nil
	}
	out := *seq
	out.Actions = seq.Actions.Clone()
	return &out
}
