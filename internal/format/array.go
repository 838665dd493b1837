package format

import (
	"fmt"
	"io"

	"github.com/go-faster/errors"

	"github.com/woozymasta/gsquery/internal/models"
)

// Array dumps the section maps keyed by address as a Go value.
type Array struct{}

// Format implements Formatter.
func (Array) Format(w io.Writer, reports []models.Report) error {
	doc := make(map[string]map[string]any, len(reports))
	for i, key := range keys(reports) {
		doc[key] = reports[i].Result.ToMap()
	}

	if _, err := fmt.Fprintf(w, "%#v\n", doc); err != nil {
		return errors.Wrap(err, "write array")
	}

	return nil
}
