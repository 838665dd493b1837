package format

import (
	"encoding/xml"
	"io"

	"github.com/go-faster/errors"

	"github.com/woozymasta/gsquery/internal/models"
	"github.com/woozymasta/gsquery/internal/result"
)

// XML writes a <game-server-query> document with one <server> per report.
// Underscores in multi-word element names become hyphens.
type XML struct {
	Pretty bool
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"game-server-query"`
	Servers []xmlServer `xml:"server"`
}

type xmlServer struct {
	Address string      `xml:"address,attr"`
	Driver  string      `xml:"driver,attr"`
	Country string      `xml:"country,attr,omitempty"`
	Error   string      `xml:"error,attr,omitempty"`
	General xmlGeneral  `xml:"general"`
	Players []xmlPlayer `xml:"players>player"`
	Rules   []xmlRule   `xml:"rules>rule"`
}

type xmlGeneral struct {
	Active        string `xml:"active"`
	Hostname      string `xml:"hostname"`
	IPAddress     string `xml:"ip_address"`
	Port          string `xml:"port"`
	QueryPort     string `xml:"query_port"`
	Map           string `xml:"map"`
	Version       string `xml:"version"`
	Bots          string `xml:"bots"`
	ServerType    string `xml:"server_type"`
	OS            string `xml:"os"`
	Slots         string `xml:"slots"`
	OnlinePlayers string `xml:"online-players"`
	Password      string `xml:"password"`
}

type xmlPlayer struct {
	Name       string  `xml:"name"`
	Score      int64   `xml:"score"`
	OnlineTime float64 `xml:"online-time"`
}

type xmlRule struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// Format implements Formatter.
func (f XML) Format(w io.Writer, reports []models.Report) error {
	doc := xmlDocument{Servers: make([]xmlServer, len(reports))}

	for i, key := range keys(reports) {
		r := reports[i]
		g := r.Result.General

		srv := xmlServer{
			Address: key,
			Driver:  r.Driver,
			Country: r.Country,
			Error:   r.Error,
			General: xmlGeneral{
				Active:        scalar(r.Result.Bool(result.Active)),
				Hostname:      scalar(g[result.Hostname]),
				IPAddress:     scalar(g[result.IPAddress]),
				Port:          scalar(g[result.Port]),
				QueryPort:     scalar(g[result.QueryPort]),
				Map:           scalar(g[result.Map]),
				Version:       scalar(g[result.Version]),
				Bots:          scalar(g[result.Bots]),
				ServerType:    scalar(g[result.ServerType]),
				OS:            scalar(g[result.OS]),
				Slots:         scalar(g[result.Slots]),
				OnlinePlayers: scalar(g[result.OnlinePlayers]),
				Password:      scalar(r.Result.Bool(result.Password)),
			},
		}

		for _, p := range r.Result.Players {
			var name string
			if p.Name != nil {
				name = *p.Name
			}
			srv.Players = append(srv.Players, xmlPlayer{Name: name, Score: p.Score, OnlineTime: p.OnlineTime})
		}

		for _, name := range r.Result.RuleNames() {
			srv.Rules = append(srv.Rules, xmlRule{Name: name, Value: scalar(r.Result.Rules[name])})
		}

		doc.Servers[i] = srv
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "write xml header")
	}

	enc := xml.NewEncoder(w)
	if f.Pretty {
		enc.Indent("", "  ")
	}

	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode xml")
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "write xml")
	}

	return nil
}
