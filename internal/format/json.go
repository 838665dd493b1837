package format

import (
	"encoding/json"
	"io"

	"github.com/go-faster/errors"

	"github.com/woozymasta/gsquery/internal/models"
	"github.com/woozymasta/gsquery/internal/result"
)

// JSON writes one object keyed by server address.
type JSON struct {
	Pretty bool
}

type jsonServer struct {
	General map[string]any  `json:"general"`
	Rules   map[string]any  `json:"rules"`
	Meta    models.Report   `json:"meta"`
	Players []result.Player `json:"players"`
}

// Format implements Formatter.
func (f JSON) Format(w io.Writer, reports []models.Report) error {
	doc := make(map[string]jsonServer, len(reports))
	for i, key := range keys(reports) {
		r := reports[i]
		doc[key] = jsonServer{
			General: r.Result.General,
			Players: r.Result.Players,
			Rules:   r.Result.Rules,
			Meta:    r,
		}
	}

	enc := json.NewEncoder(w)
	if f.Pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode json")
	}

	return nil
}
