package protocol

import (
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/woozymasta/gsquery/assets"
)

// Registry maps driver names and aliases to drivers.
type Registry struct {
	drivers map[string]Driver
	aliases map[string]string
	names   []string
}

// NewRegistry builds one driver per game.
func NewRegistry(games []Game) (*Registry, error) {
	r := &Registry{
		drivers: make(map[string]Driver, len(games)),
		aliases: make(map[string]string),
	}

	for i := range games {
		g := &games[i]
		d, err := NewDriver(g)
		if err != nil {
			return nil, err
		}

		r.drivers[g.Name] = d
		r.names = append(r.names, g.Name)
		for _, alias := range g.Aliases {
			r.aliases[alias] = g.Name
		}
	}

	slices.Sort(r.names)

	return r, nil
}

// NewDriver builds the driver of the family of g.
func NewDriver(g *Game) (Driver, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	switch g.Family {
	case FamilySource:
		return newSourceDriver(g), nil
	case FamilyGameSpy3:
		return newGameSpy3Driver(g), nil
	case FamilyRakNet:
		return newRakNetDriver(g), nil
	case FamilySAMP:
		return newSAMPDriver(g), nil
	case FamilyFiveM:
		return newFiveMDriver(g), nil
	default:
		return nil, errors.Wrapf(ErrInvalidGame, "family %q", g.Family)
	}
}

// Lookup returns the driver registered under name or one of its aliases.
func (r *Registry) Lookup(name string) (Driver, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}

	d, ok := r.drivers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", name)
	}

	return d, nil
}

// Names returns the sorted driver names.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// SuggestDriver picks a driver for a game description reported by a server,
// such as the A2S game field. Games list the substrings they answer to in match.
func (r *Registry) SuggestDriver(family Family, description string) (string, bool) {
	desc := strings.ToLower(description)

	best, bestLen := "", 0
	for _, name := range r.names {
		g := r.drivers[name].Game()
		if g.Family != family {
			continue
		}
		for _, m := range g.Match {
			if len(m) > bestLen && strings.Contains(desc, strings.ToLower(m)) {
				best, bestLen = name, len(m)
			}
		}
	}

	if best != "" {
		return best, true
	}

	return string(family), false
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	games, err := LoadGames(assets.Games())
	if err != nil {
		return nil, err
	}

	return NewRegistry(games)
})

// Default returns the registry built from the embedded game table.
func Default() (*Registry, error) {
	return defaultRegistry()
}
