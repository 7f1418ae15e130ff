// Package action defines the input steps replayed for every due lyric line
// and the executor that performs them.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	// KindLyric types the text of the record being dispatched. Its wire name
	// is "text"; any stored text param is a placeholder and is never typed.
	KindLyric Kind = "text"
	// KindLiteral types its own fixed text.
	KindLiteral Kind = "literal"
	// KindKey presses and releases one named key.
	KindKey Kind = "key"
	// KindWait blocks the playback loop for a fixed duration.
	KindWait Kind = "wait"
)

const DefaultWait = time.Second

// kindAliases are accepted when decoding and never written.
var kindAliases = map[string]Kind{
	"lyric": KindLyric,
}

var ErrInvalidAction = errors.New("invalid action")

// Action is one step of a sequence. Only the field matching Kind is used.
type Action struct {
	Kind     Kind
	Text     string
	Key      string
	Duration time.Duration
}

func Lyric() Action               { return Action{Kind: KindLyric} }
func Literal(s string) Action     { return Action{Kind: KindLiteral, Text: s} }
func Key(name string) Action      { return Action{Kind: KindKey, Key: name} }
func Wait(d time.Duration) Action { return Action{Kind: KindWait, Duration: d} }

func (a Action) String() string {
	switch a.Kind {
	case KindLyric:
		return "lyric"
	case KindLiteral:
		return fmt.Sprintf("literal(%q)", a.Text)
	case KindKey:
		return fmt.Sprintf("key(%s)", a.Key)
	case KindWait:
		return fmt.Sprintf("wait(%s)", a.Duration)
	default:
		return string(a.Kind)
	}
}

// Sequence is the ordered list of actions run once per due record.
type Sequence []Action

func (s Sequence) Clone() Sequence {
	return append(Sequence(nil), s...)
}

// UsesLyric reports whether any step types the current record.
func (s Sequence) UsesLyric() bool {
	for _, a := range s {
		if a.Kind == KindLyric {
			return true
		}
	}
	return false
}

func (s Sequence) Specs() []Spec {
	out := make([]Spec, len(s))
	for i, a := range s {
		out[i] = a.Spec()
	}
	return out
}

// Default is the sequence used when nothing else is configured: type the
// current line, then press Enter.
func Default() Sequence {
	return Sequence{Lyric(), Key("enter")}
}

// Spec is the serialisable form of an action: {kind, params}.
type Spec struct {
	Kind   string         `yaml:"kind" json:"kind"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

func (a Action) Spec() Spec {
	s := Spec{Kind: string(a.Kind)}
	switch a.Kind {
	case KindLyric:
		s.Params = map[string]any{"text": ""}
	case KindLiteral:
		s.Params = map[string]any{"text": a.Text}
	case KindKey:
		s.Params = map[string]any{"key": a.Key}
	case KindWait:
		s.Params = map[string]any{"duration": a.Duration.Seconds()}
	}
	return s
}

// FromSpec validates a serialised action. Key names are not checked here;
// unknown keys surface when the action first runs.
func FromSpec(s Spec) (Action, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s.Kind)))
	if alias, ok := kindAliases[string(kind)]; ok {
		kind = alias
	}
	switch kind {
	case KindLyric:
		if _, err := stringParam(s.Params, "text"); err != nil {
			return Action{}, err
		}
		return Lyric(), nil
	case KindLiteral:
		text, err := stringParam(s.Params, "text")
		if err != nil {
			return Action{}, err
		}
		return Literal(text), nil
	case KindKey:
		key, err := stringParam(s.Params, "key")
		if err != nil {
			return Action{}, err
		}
		if strings.TrimSpace(key) == "" {
			return Action{}, fmt.Errorf("%w: key action requires a key name", ErrInvalidAction)
		}
		return Key(strings.TrimSpace(key)), nil
	case KindWait:
		d, err := durationParam(s.Params, "duration")
		if err != nil {
			return Action{}, err
		}
		return Wait(d), nil
	case "":
		return Action{}, fmt.Errorf("%w: kind is required", ErrInvalidAction)
	default:
		return Action{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, s.Kind)
	}
}

func stringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return "", nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidAction, name)
	}
}

func durationParam(params map[string]any, name string) (time.Duration, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return DefaultWait, nil
	}
	var seconds float64
	switch n := v.(type) {
	case int:
		seconds = float64(n)
	case int64:
		seconds = float64(n)
	case float64:
		seconds = n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidAction, name, err)
		}
		seconds = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number of seconds", ErrInvalidAction, name)
		}
		seconds = f
	default:
		return 0, fmt.Errorf("%w: %s must be a number of seconds", ErrInvalidAction, name)
	}
	if math.IsNaN(seconds) || seconds <= 0 || seconds > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidAction, name)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Spec())
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := FromSpec(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Action) MarshalYAML() (any, error) {
	return a.Spec(), nil
}

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var s Spec
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := FromSpec(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = parsed
	return nil
}
