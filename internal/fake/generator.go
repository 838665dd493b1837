package fake

import (
	"fmt"
	"math/rand"
)

var (
	maps     = []string{"chernarusplus", "livonia", "namalsk", "takistan", "enoch", "sakhal", "deerisle"}
	versions = []string{"1.23.150000", "1.24.160000", "1.25.170000", "1.26.180000"}
	names    = []string{"Survivor", "Bandit", "Medic", "Hunter", "Sniper", "Nomad", "Trader"}
)

// GenerateInfo returns a random DayZ-like info reply.
func GenerateInfo(r *rand.Rand) Info {
	maxPlayers := uint8(60)

	osType := byte('w')
	if r.Float32() < 0.5 {
		osType = 'l'
	}

	return Info{
		Protocol:   17,
		Hostname:   fmt.Sprintf("DayZ Server #%d [PvP]", r.Intn(1000)),
		Map:        maps[r.Intn(len(maps))],
		Folder:     "dayz",
		Game:       "DayZ",
		Players:    uint8(r.Intn(int(maxPlayers))),
		MaxPlayers: maxPlayers,
		ServerType: 'd',
		OS:         osType,
		Password:   r.Float32() < 0.1,
		VAC:        true,
		Version:    versions[r.Intn(len(versions))],
		Port:       uint16(2302 + r.Intn(100)),
	}
}

// GeneratePlayers returns n players with unique names.
func GeneratePlayers(r *rand.Rand, n int) []Player {
	players := make([]Player, n)
	for i := range players {
		players[i] = Player{
			Name:     fmt.Sprintf("%s_%d", names[r.Intn(len(names))], i),
			Score:    int32(r.Intn(200)),
			Duration: float32(r.Intn(7200)),
		}
	}

	return players
}
