package metar

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/metar-snapshot/internal/common"
)

var (
	windRe      = regexp.MustCompile(`(\d{3})(\d{2,3})(G(\d{2,3}))?KT`)
	calmRe      = regexp.MustCompile(`00000KT`)
	visRe       = regexp.MustCompile(`(\d{1,2})SM|(M?\d/\d)SM|(CAVOK)|(P6SM)`)
	cavokRe     = regexp.MustCompile(`\bCAVOK\b`)
	tempRe      = regexp.MustCompile(`\s(M?\d{2})/(M?\d{2})(?:\s|$)`)
	layerRe     = regexp.MustCompile(`(BKN|OVC|VV)(\d{3})`)
	clearRe     = regexp.MustCompile(`(?:^|\s)(CLR|SKC)(?:\s|$)`)
	altimeterRe = regexp.MustCompile(`A(\d{4})`)
)

// matcher extracts one group of fields from the full report text.
// Matchers never read fields set by other matchers.
type matcher func(text string, obs *Observation)

var matchers = []matcher{
	matchStation,
	matchWind,
	matchVisibility,
	matchTemperature,
	matchCeiling,
	matchAltimeter,
}

// Parse extracts an Observation from a raw METAR line, resolving the
// observation time against the current clock.
func Parse(text string) *Observation {
	return ParseAt(text, time.Now().UTC())
}

// ParseAt is Parse with an explicit reference time.
// It returns nil when text is empty or does not look like a METAR.
func ParseAt(text string, now time.Time) *Observation {
	text = common.StripControl(text)
	if text == "" || !LooksLikeReport(text) {
		return nil
	}

	obs := &Observation{Raw: text}
	if ts, ok := ObservationTime(text, now); ok {
		obs.Timestamp = &ts
	}
	for _, m := range matchers {
		m(text, obs)
	}
	return obs
}

func matchStation(text string, obs *Observation) {
	if m := stationRe.FindStringSubmatch(text); m != nil {
		obs.Station = ptr(m[1])
	}
}

func matchWind(text string, obs *Observation) {
	if m := windRe.FindStringSubmatch(text); m != nil {
		dir, _ := strconv.Atoi(m[1])
		speed, _ := strconv.Atoi(m[2])
		obs.WindDirection = &dir
		obs.WindSpeed = &speed
		if m[4] != "" {
			gust, _ := strconv.Atoi(m[4])
			obs.WindGust = &gust
		}
		return
	}

	if calmRe.MatchString(text) {
		obs.WindDirection = ptr(0)
		obs.WindSpeed = ptr(0)
	}
}

func matchVisibility(text string, obs *Observation) {
	m := visRe.FindStringSubmatch(text)
	if m == nil {
		return
	}

	switch {
	case m[1] != "":
		miles, _ := strconv.Atoi(m[1])
		obs.Visibility = ptr(float64(miles))
	case m[2] != "":
		// "M" means "less than"; the bound itself is recorded.
		num, den, ok := strings.Cut(strings.TrimPrefix(m[2], "M"), "/")
		if !ok {
			return
		}
		n, _ := strconv.Atoi(num)
		d, _ := strconv.Atoi(den)
		if d == 0 {
			return
		}
		obs.Visibility = ptr(float64(n) / float64(d))
	case m[3] != "":
		obs.Visibility = ptr(10.0)
	case m[4] != "":
		// P6SM is "more than 6"; only the bound is kept.
		obs.Visibility = ptr(6.0)
	}
}

func matchTemperature(text string, obs *Observation) {
	m := tempRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	temp, err := strconv.Atoi(strings.Replace(m[1], "M", "-", 1))
	if err != nil {
		return
	}
	dew, err := strconv.Atoi(strings.Replace(m[2], "M", "-", 1))
	if err != nil {
		return
	}
	obs.TemperatureC = &temp
	obs.DewPointC = &dew
}

// matchCeiling takes the lowest broken, overcast or vertical-visibility layer.
// Without one, clear-sky tokens and CAVOK both mean unlimited.
func matchCeiling(text string, obs *Observation) {
	layers := layerRe.FindAllStringSubmatch(text, -1)
	if len(layers) > 0 {
		lowest := math.MaxInt
		for _, l := range layers {
			height, err := strconv.Atoi(l[2])
			if err != nil {
				continue
			}
			lowest = min(lowest, height*100)
		}
		if lowest != math.MaxInt {
			obs.CloudCeiling = &lowest
		}
		return
	}

	if clearRe.MatchString(text) || cavokRe.MatchString(text) {
		obs.CloudCeiling = ptr(CeilingUnlimited)
	}
}

func matchAltimeter(text string, obs *Observation) {
	if m := altimeterRe.FindStringSubmatch(text); m != nil {
		obs.Altimeter = ptr("A" + m[1])
	}
}
