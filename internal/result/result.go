// Package result holds the normalized outcome of one server query:
// a fixed set of general fields, an ordered player list and a rule map.
package result

import (
	"maps"
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

// Section names of a result.
const (
	SectionGeneral = "general"
	SectionPlayers = "players"
	SectionRules   = "rules"
)

// Field is the name of a general field.
type Field = string

// General fields. No other keys are accepted in the general section.
const (
	Application   Field = "application"
	Active        Field = "active"
	Hostname      Field = "hostname"
	IPAddress     Field = "ip_address"
	Port          Field = "port"
	QueryPort     Field = "query_port"
	Map           Field = "map"
	Version       Field = "version"
	Bots          Field = "bots"
	ServerType    Field = "server_type"
	OS            Field = "os"
	Slots         Field = "slots"
	OnlinePlayers Field = "online_players"
	Password      Field = "password"
)

var (
	// ErrInvalidField is returned when a general field outside the fixed set is written.
	ErrInvalidField = errors.New("invalid general field")

	// ErrUnknownSection is returned when a section other than general, players or rules is addressed.
	ErrUnknownSection = errors.New("unknown result section")
)

var generalFields = []Field{
	Application, Active, Hostname, IPAddress, Port, QueryPort, Map,
	Version, Bots, ServerType, OS, Slots, OnlinePlayers, Password,
}

// Fields returns the general field names in their canonical order.
func Fields() []Field {
	return slices.Clone(generalFields)
}

// IsField reports whether name belongs to the general section.
func IsField(name string) bool {
	return slices.Contains(generalFields, name)
}

// Player is one entry of the player list. A nil Name marks a client that is still connecting.
type Player struct {
	Name       *string `json:"name" xml:"name"`
	Score      int64   `json:"score" xml:"score"`
	OnlineTime float64 `json:"online_time" xml:"online_time"`
}

// Result accumulates decoded data of a single server. It is not safe for concurrent use;
// every query owns its own Result.
type Result struct {
	general map[Field]any
	rules   map[string]any
	players []Player
}

// New returns a result with every general field set to its default.
func New() *Result {
	return &Result{
		general: map[Field]any{
			Application:   nil,
			Active:        false,
			Hostname:      nil,
			IPAddress:     nil,
			Port:          0,
			QueryPort:     0,
			Map:           nil,
			Version:       nil,
			Bots:          0,
			ServerType:    nil,
			OS:            nil,
			Slots:         0,
			OnlinePlayers: 0,
			Password:      false,
		},
		rules: make(map[string]any),
	}
}

// AddInformation sets a general field.
func (r *Result) AddInformation(name string, value any) error {
	if !IsField(name) {
		return errors.Wrapf(ErrInvalidField, "field %q", name)
	}

	r.general[name] = value

	return nil
}

// Set is AddInformation for field names known at compile time.
// It panics when name is not a general field.
func (r *Result) Set(name Field, value any) *Result {
	if err := r.AddInformation(name, value); err != nil {
		panic(err)
	}

	return r
}

// Information returns the value of a general field.
func (r *Result) Information(name string) (any, error) {
	if !IsField(name) {
		return nil, errors.Wrapf(ErrInvalidField, "field %q", name)
	}

	return r.general[name], nil
}

// AddPlayer appends a player. Surrounding whitespace is trimmed; an empty
// name is stored as a connecting placeholder with zero score and time.
func (r *Result) AddPlayer(name string, score int64, onlineTime float64) *Result {
	name = strings.TrimSpace(name)
	if name == "" {
		r.players = append(r.players, Player{})
		return r
	}

	r.players = append(r.players, Player{
		Name:       &name,
		Score:      score,
		OnlineTime: onlineTime,
	})

	return r
}

// Players returns a copy of the player list.
func (r *Result) Players() []Player {
	return clonePlayers(r.players)
}

// AddRule sets a rule, replacing any previous value.
func (r *Result) AddRule(name string, value any) *Result {
	r.rules[name] = value
	return r
}

// Rule returns a rule value and whether it exists.
func (r *Result) Rule(name string) (any, bool) {
	v, ok := r.rules[name]
	return v, ok
}

// HasRule reports whether the rule exists.
func (r *Result) HasRule(name string) bool {
	_, ok := r.rules[name]
	return ok
}

// RemoveRule deletes a rule if present.
func (r *Result) RemoveRule(name string) {
	delete(r.rules, name)
}

// RuleNames returns the sorted rule names.
func (r *Result) RuleNames() []string {
	return slices.Sorted(maps.Keys(r.rules))
}

// Snapshot returns a deep copy that is detached from the result.
func (r *Result) Snapshot() Snapshot {
	return Snapshot{
		General: cloneMap(r.general),
		Players: clonePlayers(r.players),
		Rules:   cloneMap(r.rules),
	}
}

// ToMap returns the snapshot as a section keyed map.
func (r *Result) ToMap() map[string]any {
	return r.Snapshot().ToMap()
}

func clonePlayers(src []Player) []Player {
	out := make([]Player, len(src))
	for i, p := range src {
		out[i] = p
		if p.Name != nil {
			name := *p.Name
			out[i].Name = &name
		}
	}

	return out
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case map[string]string:
		return maps.Clone(t)
	case []string:
		return slices.Clone(t)
	case []byte:
		return slices.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
