package format

import (
	"io"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/pterm/pterm"

	"github.com/woozymasta/gsquery/internal/models"
	"github.com/woozymasta/gsquery/internal/result"
)

// Table writes one row per server.
type Table struct{}

var tableHeader = []string{"Address", "Driver", "Active", "Hostname", "Map", "Players", "Version", "Country", "Error"}

// Format implements Formatter.
func (Table) Format(w io.Writer, reports []models.Report) error {
	data := pterm.TableData{tableHeader}

	for i, key := range keys(reports) {
		r := reports[i]
		s := r.Result

		active := "no"
		if s.Bool(result.Active) {
			active = "yes"
		}

		data = append(data, []string{
			key,
			r.Driver,
			active,
			scalar(s.General[result.Hostname]),
			scalar(s.General[result.Map]),
			strconv.Itoa(s.Int(result.OnlinePlayers)) + "/" + strconv.Itoa(s.Int(result.Slots)),
			scalar(s.General[result.Version]),
			r.Country,
			r.Error,
		})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render table")
	}

	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return errors.Wrap(err, "write table")
	}

	return nil
}
