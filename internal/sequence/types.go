package sequence

import "github.com/user/lrctype/internal/action"

// DefaultID names the shipped sequence used when nothing else is selected.
const DefaultID = "default"

type Sequence struct {
	ID          string          `yaml:"id,omitempty" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Actions     action.Sequence `yaml:"actions" json:"actions"`
}
