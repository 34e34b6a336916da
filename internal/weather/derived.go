package weather

import (
	"math"

	"github.com/i474232898/metar-snapshot/internal/metar"
)

const knotsPerMPH = 0.868976

// Conditions are values derived from an observation for a given runway.
// Fields are nil when the inputs they depend on are absent.
type Conditions struct {
	Station          string   `json:"station"`
	RunwayHeading    int      `json:"runwayHeading"`
	TemperatureF     *float64 `json:"temperatureF"`
	DewPointF        *float64 `json:"dewPointF"`
	RelativeHumidity *float64 `json:"relativeHumidity"`
	HeatIndexF       *float64 `json:"heatIndexF"`
	WindSpeedMPH     *float64 `json:"windSpeedMph"`
	CrosswindKt      *float64 `json:"crosswindKt"`
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// KnotsToMPH converts knots to miles per hour.
func KnotsToMPH(kt float64) float64 {
	return kt / knotsPerMPH
}

// RelativeHumidity returns the humidity in percent from temperature and dew
// point in Celsius (Magnus approximation).
func RelativeHumidity(tempC, dewPointC float64) float64 {
	es := 6.1078 * math.Exp((17.27*tempC)/(tempC+237.3))
	e := 6.1078 * math.Exp((17.27*dewPointC)/(dewPointC+237.3))
	return e / es * 100
}

// HeatIndexF is the Rothfusz regression of the NWS heat index.
// Below 80°F the temperature itself is returned.
func HeatIndexF(tempF, rh float64) float64 {
	if tempF < 80 {
		return tempF
	}
	return -42.379 + 2.04901523*tempF + 10.14333127*rh - 0.22475541*tempF*rh -
		0.00683783*tempF*tempF - 0.05481717*rh*rh +
		0.00122874*tempF*tempF*rh + 0.00085282*tempF*rh*rh -
		0.00000199*tempF*tempF*rh*rh
}

// Crosswind returns the crosswind component in knots for a runway heading.
// A positive gust is used in place of the steady wind speed.
func Crosswind(windDirection, windSpeed, gust, runwayHeading int) float64 {
	speed := windSpeed
	if gust > 0 {
		speed = gust
	}
	diff := math.Abs(float64(windDirection - runwayHeading))
	if diff > 180 {
		diff = 360 - diff
	}
	return float64(speed) * math.Sin(diff*math.Pi/180)
}

// DeriveConditions computes the derived values for one observation.
func DeriveConditions(obs *metar.Observation, runwayHeading int) Conditions {
	c := Conditions{
		Station:       obs.StationCode(),
		RunwayHeading: runwayHeading,
	}

	if obs.TemperatureC != nil {
		tf := CelsiusToFahrenheit(float64(*obs.TemperatureC))
		c.TemperatureF = &tf
	}
	if obs.DewPointC != nil {
		df := CelsiusToFahrenheit(float64(*obs.DewPointC))
		c.DewPointF = &df
	}
	if obs.TemperatureC != nil && obs.DewPointC != nil {
		rh := RelativeHumidity(float64(*obs.TemperatureC), float64(*obs.DewPointC))
		hi := HeatIndexF(*c.TemperatureF, rh)
		c.RelativeHumidity = &rh
		c.HeatIndexF = &hi
	}
	if obs.WindSpeed != nil {
		mph := KnotsToMPH(float64(*obs.WindSpeed))
		c.WindSpeedMPH = &mph
	}
	if obs.WindDirection != nil && obs.WindSpeed != nil {
		gust := 0
		if obs.WindGust != nil {
			gust = *obs.WindGust
		}
		xw := Crosswind(*obs.WindDirection, *obs.WindSpeed, gust, runwayHeading)
		c.CrosswindKt = &xw
	}

	return c
}
