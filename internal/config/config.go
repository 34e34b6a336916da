package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/metar-snapshot/internal/weather"
)

const (
	ModeOnce  = "once"
	ModeServe = "serve"

	defaultURLTemplate = "https://tgftp.nws.noaa.gov/data/observations/metar/stations/%s.TXT"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level
	Mode     string     `validate:"oneof=once serve"`

	// Stations are fetched in this order on every run.
	Stations []weather.Station `validate:"required,min=1,dive"`

	OutputPath  string        `validate:"required"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// StaleAfter is the report age that triggers the single retry.
	StaleAfter      time.Duration
	StaleRetryPause time.Duration

	// FetchInterval controls how often serve mode refreshes the snapshot.
	FetchInterval time.Duration `validate:"gte=1m"`

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots kept (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	Port string
}

// stationFile is the layout of STATIONS_FILE.
type stationFile struct {
	Stations []weather.Station `toml:"stations"`
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Mode = getenvDefault("MODE", ModeOnce)

	cfg.OutputPath = getenvDefault("OUTPUT_PATH", "data/weather-data.json")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"STALE_AFTER", "30m", &cfg.StaleAfter},
		{"STALE_RETRY_PAUSE", "5s", &cfg.StaleRetryPause},
		{"FETCH_INTERVAL", "15m", &cfg.FetchInterval},
		{"STORE_MAX_AGE", "24h", &cfg.StoreMaxAge},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dest = v
	}

	stations, err := loadStations()
	if err != nil {
		return nil, err
	}
	cfg.Stations = stations

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and that station keys are unique.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Stations))
	for _, st := range c.Stations {
		key := strings.ToLower(st.Key)
		if key == "lastupdated" {
			return fmt.Errorf("invalid config: station key %q is reserved", st.Key)
		}
		if seen[key] {
			return fmt.Errorf("invalid config: duplicate station key %q", st.Key)
		}
		seen[key] = true
	}
	return nil
}

// loadStations reads STATIONS_FILE when set, otherwise builds the list from
// STATIONS and METAR_URL_TEMPLATE.
func loadStations() ([]weather.Station, error) {
	template := getenvDefault("METAR_URL_TEMPLATE", defaultURLTemplate)

	if path := os.Getenv("STATIONS_FILE"); path != "" {
		var f stationFile
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("read STATIONS_FILE: %w", err)
		}
		return withDefaults(f.Stations, template), nil
	}

	var stations []weather.Station
	for _, code := range strings.Split(getenvDefault("STATIONS", "KCPS,KSTL"), ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		stations = append(stations, weather.Station{Code: code})
	}
	return withDefaults(stations, template), nil
}

func withDefaults(stations []weather.Station, template string) []weather.Station {
	out := make([]weather.Station, 0, len(stations))
	for _, st := range stations {
		st.Code = strings.ToUpper(strings.TrimSpace(st.Code))
		if st.URL == "" {
			st.URL = fmt.Sprintf(template, st.Code)
		}
		if st.Key == "" {
			st.Key = strings.ToLower(st.Code)
		}
		out = append(out, st)
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
