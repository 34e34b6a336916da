package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/i474232898/metar-snapshot/internal/metar"
)

// UnavailableMarker replaces the raw report in placeholder records.
const UnavailableMarker = "Data unavailable"

var (
	// ErrReportUnavailable is returned when an endpoint answers but carries no
	// usable report line.
	ErrReportUnavailable = errors.New("metar report unavailable")
)

// Station is a reporting station and the endpoint its raw METAR is read from.
// Key is the name the station is published under in the snapshot.
type Station struct {
	Code string `toml:"code" json:"code" validate:"required,len=4,alpha,uppercase"`
	URL  string `toml:"url" json:"url" validate:"required,url"`
	Key  string `toml:"key" json:"key" validate:"required,alphanum"`
}

// StationResult is a parsed observation, or a placeholder carrying the reason
// the station could not be reported.
type StationResult struct {
	Station     string
	Key         string
	Observation *metar.Observation
	Error       string
}

type placeholder struct {
	Station string `json:"station"`
	Metar   string `json:"metar"`
	Error   string `json:"error"`
}

// OK reports whether the result carries an observation.
func (r StationResult) OK() bool {
	return r.Observation != nil
}

func (r StationResult) MarshalJSON() ([]byte, error) {
	if r.Observation != nil {
		return json.Marshal(r.Observation)
	}
	return json.Marshal(placeholder{
		Station: r.Station,
		Metar:   UnavailableMarker,
		Error:   r.Error,
	})
}

// Snapshot is the combined output of one run.
type Snapshot struct {
	LastUpdated time.Time // always UTC
	Stations    []StationResult
}

// Station looks a result up by station key or code.
func (s Snapshot) Station(ref string) (StationResult, bool) {
	for _, r := range s.Stations {
		if strings.EqualFold(ref, r.Key) || strings.EqualFold(ref, r.Station) {
			return r, true
		}
	}
	return StationResult{}, false
}

// MarshalJSON writes lastUpdated first, then one member per station in
// configured order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`{"lastUpdated":`)
	ts, err := json.Marshal(s.LastUpdated.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	buf.Write(ts)

	for _, r := range s.Stations {
		key, err := json.Marshal(r.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
