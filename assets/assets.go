// Package assets provides access to embedded data files such as the game table.
package assets

import (
	"embed"
	"io/fs"
)

// GamesFile is the name of the embedded game table.
const GamesFile = "games.yaml"

//go:embed games.yaml
var embedFS embed.FS

// ReadFile returns the content of a specific file from the embedded assets by its name.
func ReadFile(name string) ([]byte, error) {
	return embedFS.ReadFile(name)
}

// ReadDir returns the directory entries for a specific path.
func ReadDir(name string) ([]fs.DirEntry, error) {
	return embedFS.ReadDir(name)
}

// Games returns the embedded game table.
func Games() []byte {
	data, err := embedFS.ReadFile(GamesFile)
	if err != nil {
		panic(err)
	}

	return data
}
