// Package format renders reports as JSON, XML, a terminal table or a Go value dump.
package format

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/woozymasta/gsquery/internal/models"
)

// ErrUnknownFormat is returned for format names that are not registered.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter writes a set of reports.
type Formatter interface {
	Format(w io.Writer, reports []models.Report) error
}

// Names lists the supported formats.
func Names() []string {
	return []string{"json", "xml", "table", "array"}
}

// New returns the named formatter.
func New(name string, pretty bool) (Formatter, error) {
	switch name {
	case "json":
		return JSON{Pretty: pretty}, nil
	case "xml":
		return XML{Pretty: pretty}, nil
	case "table":
		return Table{}, nil
	case "array":
		return Array{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q, want one of %v", name, Names())
	}
}

// keys returns one unique key per report: the address, suffixed with the
// driver when two drivers queried the same address.
func keys(reports []models.Report) []string {
	count := make(map[string]int, len(reports))
	for _, r := range reports {
		count[r.Address]++
	}

	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.Address
		if count[r.Address] > 1 {
			out[i] += "/" + r.Driver
		}
	}

	return out
}

// scalar renders a general or rule value as text; nil is empty.
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case byte:
		return string(rune(t))
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
