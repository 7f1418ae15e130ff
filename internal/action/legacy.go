package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

type legacyBlock struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// ParseLegacy reads an action list saved by the older editor, which stored
// {"type", "params"} blocks instead of {"kind", "params"}. Its "text" blocks
// already mean KindLyric. "focus" blocks were never implemented and are
// dropped.
func ParseLegacy(data []byte) (Sequence, error) {
	var blocks []legacyBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("%w: legacy sequence: %v", ErrInvalidAction, err)
	}

	seq := make(Sequence, 0, len(blocks))
	for i, b := range blocks {
		kind := strings.ToLower(strings.TrimSpace(b.Type))
		if kind == "focus" {
			continue
		}
		if kind == string(KindKey) {
			if _, ok := b.Params["key"]; !ok {
				b.Params = map[string]any{"key": "enter"}
			}
		}
		a, err := FromSpec(Spec{Kind: kind, Params: b.Params})
		if err != nil {
			return nil, fmt.Errorf("legacy block %d: %w", i+1, err)
		}
		seq = append(seq, a)
	}
	return seq, nil
}
