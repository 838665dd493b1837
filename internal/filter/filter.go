// Package filter rewrites text values of query results after decoding:
// color code removal, UTF-8 sanitizing and per-game hostname cleanup.
package filter

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/woozymasta/gsquery/internal/protocol"
	"github.com/woozymasta/gsquery/internal/result"
)

var (
	// ErrUnknownFilter is returned for filter names that are not registered.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrInvalidKey is returned when a player key in a scope does not exist.
	ErrInvalidKey = errors.New("invalid filter key")
)

// Scope maps a section to the keys filtered in it. An empty key list selects every key.
type Scope map[string][]string

// Filter applies one text transformation to the scoped values of a snapshot.
type Filter struct {
	reg      *protocol.Registry
	fn       func(string) string
	scope    Scope
	name     string
	drivers  []string
	families []protocol.Family
}

type definition struct {
	fn       func(string) string
	scope    Scope
	drivers  []string
	families []protocol.Family
}

var definitions = map[string]definition{
	"colorstrip": {
		fn:    stripColors,
		scope: Scope{result.SectionGeneral: {result.Hostname}, result.SectionPlayers: {"name"}},
	},
	"utf8": {
		fn:    toUTF8,
		scope: Scope{result.SectionGeneral: {result.Hostname, result.Map}, result.SectionPlayers: {"name"}},
	},
	"minecraft": {
		fn:       stripMinecraft,
		scope:    Scope{result.SectionGeneral: {result.Hostname}},
		families: []protocol.Family{protocol.FamilyGameSpy3, protocol.FamilyRakNet},
	},
	"fivem": {
		fn:      stripColors,
		scope:   Scope{result.SectionGeneral: {result.Hostname}},
		drivers: []string{"fivem"},
	},
}

// Names returns the registered filter names.
func Names() []string {
	return slices.Sorted(maps.Keys(definitions))
}

// New returns the named filter with its default scope. reg resolves the driver
// restriction of family-bound filters and may be nil for unrestricted ones.
func New(name string, reg *protocol.Registry) (*Filter, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFilter, "%q", name)
	}

	return &Filter{
		name:     name,
		fn:       def.fn,
		scope:    def.scope,
		drivers:  def.drivers,
		families: def.families,
		reg:      reg,
	}, nil
}

// Parse reads name[=section[.key],...]. Without a scope the default one is kept.
func Parse(spec string, reg *protocol.Registry) (*Filter, error) {
	name, scopeSpec, hasScope := strings.Cut(strings.TrimSpace(spec), "=")

	f, err := New(name, reg)
	if err != nil {
		return nil, err
	}
	if !hasScope {
		return f, nil
	}

	scope := Scope{}
	for _, item := range strings.Split(scopeSpec, ",") {
		section, key, _ := strings.Cut(strings.TrimSpace(item), ".")
		if _, err := (result.Snapshot{}).Section(section); err != nil {
			return nil, err
		}
		if _, ok := scope[section]; !ok {
			scope[section] = nil
		}
		if key != "" {
			scope[section] = append(scope[section], key)
		}
	}

	return f.WithScope(scope), nil
}

// WithScope returns a copy of f restricted to scope.
func (f *Filter) WithScope(scope Scope) *Filter {
	out := *f
	out.scope = scope

	return &out
}

// Name returns the filter name.
func (f *Filter) Name() string { return f.name }

// Apply filters the scoped string values of snap in place.
func (f *Filter) Apply(snap *result.Snapshot) error {
	if len(f.scope) == 0 || !f.matches(snap.String(result.Application)) {
		return nil
	}

	for _, section := range slices.Sorted(maps.Keys(f.scope)) {
		keys := f.scope[section]

		switch section {
		case result.SectionGeneral:
			applyMap(snap.General, keys, f.fn)
		case result.SectionRules:
			applyMap(snap.Rules, keys, f.fn)
		case result.SectionPlayers:
			if err := applyPlayers(snap.Players, keys, f.fn); err != nil {
				return err
			}
		default:
			return errors.Wrapf(result.ErrUnknownSection, "filter %s: section %q", f.name, section)
		}
	}

	return nil
}

func (f *Filter) matches(application string) bool {
	if len(f.drivers) == 0 && len(f.families) == 0 {
		return true
	}
	if slices.Contains(f.drivers, application) {
		return true
	}
	if f.reg == nil || len(f.families) == 0 {
		return false
	}

	d, err := f.reg.Lookup(application)
	if err != nil {
		return false
	}

	return slices.Contains(f.families, d.Family())
}

func applyMap(m map[string]any, keys []string, fn func(string) string) {
	if len(keys) == 0 {
		for k, v := range m {
			if s, ok := v.(string); ok {
				m[k] = fn(s)
			}
		}
		return
	}

	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			m[k] = fn(s)
		}
	}
}

// Only the player name is text; score and online time pass through.
func applyPlayers(players []result.Player, keys []string, fn func(string) string) error {
	for _, k := range keys {
		switch k {
		case "name", "score", "online_time":
		default:
			return errors.Wrapf(ErrInvalidKey, "%q, available keys: name, score, online_time", k)
		}
	}

	if len(keys) > 0 && !slices.Contains(keys, "name") {
		return nil
	}

	for i := range players {
		if players[i].Name != nil {
			name := fn(*players[i].Name)
			players[i].Name = &name
		}
	}

	return nil
}

// Chain applies filters in order.
type Chain []*Filter

// Apply runs every filter of the chain on snap.
func (c Chain) Apply(snap *result.Snapshot) error {
	for _, f := range c {
		if err := f.Apply(snap); err != nil {
			return err
		}
	}

	return nil
}

var (
	colorCodes   = regexp.MustCompile(`\^\d`)
	controlChars = regexp.MustCompile(`[\x00-\x1f]`)
	spaceRuns    = regexp.MustCompile(`\s\s+`)
)

func stripColors(s string) string {
	return strings.TrimSpace(colorCodes.ReplaceAllString(s, ""))
}

func toUTF8(s string) string {
	s = strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
	out, _, err := transform.String(runes.ReplaceIllFormed(), s)
	if err != nil {
		return s
	}

	return out
}

// stripMinecraft works on bytes: ESC plus three bytes and the section sign byte
// plus one byte are formatting codes; the rest is reduced to printable ASCII.
func stripMinecraft(s string) string {
	s = dropAfter(s, 0x1b, 3)
	s = dropAfter(s, 0xa7, 1)

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c < 0x20 || c >= 0x80:
		case c == '"' || c == '\'' || c == '<' || c == '>' || c == '&':
			b.WriteString("&#" + strconv.Itoa(int(c)) + ";")
		default:
			b.WriteByte(c)
		}
	}

	return strings.TrimSpace(spaceRuns.ReplaceAllString(b.String(), " "))
}

// dropAfter removes every marker byte together with the n bytes after it.
// A marker too close to the end is kept.
func dropAfter(s string, marker byte, n int) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == marker && i+n < len(s) {
			i += n
			continue
		}
		b.WriteByte(s[i])
	}

	return b.String()
}
