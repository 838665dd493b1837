package protocol

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/gsquery/internal/result"
)

// Engine selects the Source split packet layout.
type Engine string

// Engines of the Source family.
const (
	EngineSource     Engine = "source"
	EngineGoldSource Engine = "goldsource"
)

// Game is the declarative description of one queryable game.
type Game struct {
	// betteralign:ignore

	Name               string      `yaml:"name"`
	Family             Family      `yaml:"family"`
	Description        string      `yaml:"description"`
	Aliases            []string    `yaml:"aliases,omitempty"`
	Match              []string    `yaml:"match,omitempty"`
	Engine             Engine      `yaml:"engine,omitempty"`
	DefaultPort        int         `yaml:"default_port,omitempty"`
	QueryPort          PortRule    `yaml:"query_port,omitempty"`
	QueryPortMandatory bool        `yaml:"query_port_mandatory,omitempty"`
	SkipPlayers        bool        `yaml:"skip_players,omitempty"`
	SkipRules          bool        `yaml:"skip_rules,omitempty"`
	PlayersDecoder     string      `yaml:"players_decoder,omitempty"`
	RulesDecoder       string      `yaml:"rules_decoder,omitempty"`
	Post               []string    `yaml:"post,omitempty"`
	Promote            []Promotion `yaml:"promote,omitempty"`
}

// PortRule derives the query port from the game port. At most one field is set.
type PortRule struct {
	Formula string `yaml:"formula,omitempty"`
	Offset  int    `yaml:"offset,omitempty"`
	Fixed   int    `yaml:"fixed,omitempty"`
}

var portFormulas = map[string]func(port int) int{
	// DayZ standalone: 2302 -> 27016, 2402 -> 27017 and so on.
	"dayz": func(port int) int {
		return 27016 + int(math.Floor(float64(port-2302)/100))
	},
}

// Apply computes the query port for port.
func (p PortRule) Apply(port int) int {
	switch {
	case p.Formula != "":
		if f, ok := portFormulas[p.Formula]; ok {
			return f(port)
		}
		return port
	case p.Fixed != 0:
		return p.Fixed
	default:
		return port + p.Offset
	}
}

// Promotion copies a rule into a general field after decoding.
type Promotion struct {
	Rule  string `yaml:"rule"`
	Field string `yaml:"field"`
	// As is the target type: string (default), int or bool.
	As string `yaml:"as,omitempty"`
	// FalseWhen is the rule value that maps to false for bool promotions.
	FalseWhen string `yaml:"false_when,omitempty"`
	// Activate marks the server active and dedicated when the rule is present, even if empty.
	Activate bool `yaml:"activate,omitempty"`
}

// post hooks run after decoding and promotions.
var postHooks = map[string]func(res *result.Result){
	"rust_keywords": rustKeywords,
}

var rustKeywordPattern = regexp.MustCompile(`(mp|cp)(\d+)`)

// rustKeywords reads max (mp) and current (cp) player counts from the keywords rule.
func rustKeywords(res *result.Result) {
	v, ok := res.Rule("keywords")
	if !ok {
		return
	}

	for _, m := range rustKeywordPattern.FindAllStringSubmatch(toString(v), -1) {
		n, _ := strconv.Atoi(m[2])
		switch m[1] {
		case "mp":
			res.Set(result.Slots, n)
		case "cp":
			res.Set(result.OnlinePlayers, n)
		}
	}
}

// finish applies promotions and post hooks of g to res.
func (g *Game) finish(res *result.Result) {
	for _, p := range g.Promote {
		v, ok := res.Rule(p.Rule)
		if !ok {
			continue
		}

		switch p.As {
		case "int":
			res.Set(p.Field, toInt(v))
		case "bool":
			if p.FalseWhen != "" {
				res.Set(p.Field, toString(v) != p.FalseWhen)
			} else {
				res.Set(p.Field, toBool(v))
			}
		default:
			res.Set(p.Field, v)
		}

		if p.Activate && v != nil {
			res.Set(result.Active, true).Set(result.ServerType, "d")
		}
	}

	for _, name := range g.Post {
		postHooks[name](res)
	}
}

// Validate checks that every reference in the record is known.
func (g *Game) Validate() error {
	if g.Name == "" {
		return errors.Wrap(ErrInvalidGame, "empty name")
	}

	switch g.Family {
	case FamilySource, FamilyGameSpy3, FamilyRakNet, FamilySAMP, FamilyFiveM:
	default:
		return errors.Wrapf(ErrInvalidGame, "%s: family %q", g.Name, g.Family)
	}

	switch g.Engine {
	case "", EngineSource, EngineGoldSource:
	default:
		return errors.Wrapf(ErrInvalidGame, "%s: engine %q", g.Name, g.Engine)
	}

	if f := g.QueryPort.Formula; f != "" {
		if _, ok := portFormulas[f]; !ok {
			return errors.Wrapf(ErrInvalidGame, "%s: query port formula %q", g.Name, f)
		}
	}

	if d := g.PlayersDecoder; d != "" {
		if _, ok := sourcePlayerDecoders[d]; !ok {
			return errors.Wrapf(ErrInvalidGame, "%s: players decoder %q", g.Name, d)
		}
	}

	if d := g.RulesDecoder; d != "" {
		if _, ok := sourceRulesDecoders[d]; !ok {
			return errors.Wrapf(ErrInvalidGame, "%s: rules decoder %q", g.Name, d)
		}
	}

	for _, name := range g.Post {
		if _, ok := postHooks[name]; !ok {
			return errors.Wrapf(ErrInvalidGame, "%s: post hook %q", g.Name, name)
		}
	}

	for _, p := range g.Promote {
		if !result.IsField(p.Field) {
			return errors.Wrapf(ErrInvalidGame, "%s: promote %q: %v", g.Name, p.Rule, result.ErrInvalidField)
		}
		if !slices.Contains([]string{"", "string", "int", "bool"}, p.As) {
			return errors.Wrapf(ErrInvalidGame, "%s: promote %q as %q", g.Name, p.Rule, p.As)
		}
	}

	return nil
}

// LoadGames parses and validates a game table document.
func LoadGames(data []byte) ([]Game, error) {
	var doc struct {
		Games []Game `yaml:"games"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse game table")
	}

	seen := make(map[string]struct{}, len(doc.Games))
	for i := range doc.Games {
		g := &doc.Games[i]
		if err := g.Validate(); err != nil {
			return nil, err
		}

		for _, name := range append([]string{g.Name}, g.Aliases...) {
			if _, dup := seen[name]; dup {
				return nil, errors.Wrapf(ErrInvalidGame, "duplicate name %q", name)
			}
			seen[name] = struct{}{}
		}
	}

	return doc.Games, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// toInt converts like a lenient cast: leading digits of a string, zero otherwise.
func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint8:
		return int(t)
	case uint16:
		return int(t)
	case int16:
		return int(t)
	case int32:
		return int(t)
	case uint32:
		return int(t)
	case bool:
		if t {
			return 1
		}
		return 0
	}

	s := strings.TrimSpace(toString(v))
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && s[end] == '-') {
		end++
	}

	n, _ := strconv.Atoi(s[:end])

	return n
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "n", "off":
			return false
		default:
			return true
		}
	default:
		return toInt(v) != 0
	}
}
