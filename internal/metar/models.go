package metar

import "time"

// CeilingUnlimited is the cloud ceiling recorded for clear skies and CAVOK.
const CeilingUnlimited = 99999

// Observation is the structured view of a single METAR report.
// Every field except Raw is optional; absent fields serialise as null.
type Observation struct {
	Station       *string    `json:"station"`
	Raw           string     `json:"metar"`
	Timestamp     *time.Time `json:"timestamp"` // always UTC
	WindDirection *int       `json:"windDirection"`
	WindSpeed     *int       `json:"windSpeed"`
	WindGust      *int       `json:"windGust"`
	Visibility    *float64   `json:"visibility"` // statute miles
	TemperatureC  *int       `json:"temperatureC"`
	DewPointC     *int       `json:"dewPointC"`
	CloudCeiling  *int       `json:"cloudCeiling"` // feet, CeilingUnlimited when clear
	Altimeter     *string    `json:"altimeter"`
}

// StationCode returns the station code or an empty string.
func (o *Observation) StationCode() string {
	if o == nil || o.Station == nil {
		return ""
	}
	return *o.Station
}

func ptr[T any](v T) *T {
	return &v
}
