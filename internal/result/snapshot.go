package result

import (
	"maps"
	"slices"

	"github.com/go-faster/errors"
)

// Snapshot is the detached, read-only view handed to filters and formatters.
type Snapshot struct {
	General map[string]any `json:"general"`
	Rules   map[string]any `json:"rules"`
	Players []Player       `json:"players"`
}

// Bool returns a general field as bool.
func (s Snapshot) Bool(name Field) bool {
	v, _ := s.General[name].(bool)
	return v
}

// Int returns a general field as int, zero when unset or not numeric.
func (s Snapshot) Int(name Field) int {
	switch v := s.General[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case int32:
		return int(v)
	case uint32:
		return int(v)
	default:
		return 0
	}
}

// String returns a general field as string, empty when unset.
func (s Snapshot) String(name Field) string {
	switch v := s.General[name].(type) {
	case string:
		return v
	case byte:
		return string(rune(v))
	default:
		return ""
	}
}

// RuleNames returns the sorted rule names.
func (s Snapshot) RuleNames() []string {
	return slices.Sorted(maps.Keys(s.Rules))
}

// Section returns one section by name.
func (s Snapshot) Section(name string) (any, error) {
	switch name {
	case SectionGeneral:
		return s.General, nil
	case SectionPlayers:
		return s.Players, nil
	case SectionRules:
		return s.Rules, nil
	default:
		return nil, errors.Wrapf(ErrUnknownSection, "section %q", name)
	}
}

// ToMap returns the sections keyed by their names.
func (s Snapshot) ToMap() map[string]any {
	players := make([]map[string]any, len(s.Players))
	for i, p := range s.Players {
		var name any
		if p.Name != nil {
			name = *p.Name
		}
		players[i] = map[string]any{
			"name":        name,
			"score":       p.Score,
			"online_time": p.OnlineTime,
		}
	}

	return map[string]any{
		SectionGeneral: cloneMap(s.General),
		SectionPlayers: players,
		SectionRules:   cloneMap(s.Rules),
	}
}
