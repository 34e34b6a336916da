package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // keep a developer's .env out of the test

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mode != ModeOnce || cfg.AppEnv != "dev" {
		t.Fatalf("unexpected mode/env: %s/%s", cfg.Mode, cfg.AppEnv)
	}
	if cfg.HTTPTimeout != 10*time.Second || cfg.StaleAfter != 30*time.Minute {
		t.Fatalf("unexpected durations: %v %v", cfg.HTTPTimeout, cfg.StaleAfter)
	}
	if cfg.OutputPath != "data/weather-data.json" {
		t.Fatalf("unexpected output path %q", cfg.OutputPath)
	}
	if len(cfg.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(cfg.Stations))
	}
	kcps := cfg.Stations[0]
	if kcps.Code != "KCPS" || kcps.Key != "kcps" ||
		kcps.URL != "https://tgftp.nws.noaa.gov/data/observations/metar/stations/KCPS.TXT" {
		t.Fatalf("unexpected first station: %+v", kcps)
	}
	if cfg.Stations[1].Code != "KSTL" {
		t.Fatalf("unexpected second station: %+v", cfg.Stations[1])
	}
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STATIONS", "kjfk, KLAX")
	t.Setenv("METAR_URL_TEMPLATE", "http://localhost:9999/%s.TXT")
	t.Setenv("STALE_AFTER", "45m")
	t.Setenv("MODE", "serve")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != ModeServe || cfg.StaleAfter != 45*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Stations[0].Code != "KJFK" || cfg.Stations[0].URL != "http://localhost:9999/KJFK.TXT" {
		t.Fatalf("unexpected station: %+v", cfg.Stations[0])
	}
	if cfg.Stations[1].Key != "klax" {
		t.Fatalf("unexpected key: %+v", cfg.Stations[1])
	}
}

func TestLoadStationsFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "stations.toml")
	content := `
[[stations]]
code = "KSTL"
url = "https://example.com/metar/KSTL.TXT"
key = "lambert"

[[stations]]
code = "KCPS"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STATIONS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(cfg.Stations))
	}
	if cfg.Stations[0].Key != "lambert" || cfg.Stations[0].URL != "https://example.com/metar/KSTL.TXT" {
		t.Fatalf("unexpected first station: %+v", cfg.Stations[0])
	}
	if cfg.Stations[1].Key != "kcps" || !strings.HasSuffix(cfg.Stations[1].URL, "/KCPS.TXT") {
		t.Fatalf("unexpected second station: %+v", cfg.Stations[1])
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad duration", env: map[string]string{"HTTP_TIMEOUT": "soon"}},
		{name: "bad mode", env: map[string]string{"MODE": "daemon"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "short station code", env: map[string]string{"STATIONS": "KCP"}},
		{name: "numeric station code", env: map[string]string{"STATIONS": "K1PS"}},
		{name: "duplicate station", env: map[string]string{"STATIONS": "KCPS,kcps"}},
		{name: "no stations", env: map[string]string{"STATIONS": " , "}},
		{name: "bad url", env: map[string]string{"METAR_URL_TEMPLATE": "not a url %s"}},
		{name: "interval too short", env: map[string]string{"FETCH_INTERVAL": "10s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OUTPUT_PATH=out/snapshot.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv leaves existing variables alone; make sure ours is unset.
	t.Setenv("OUTPUT_PATH", "")
	os.Unsetenv("OUTPUT_PATH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OutputPath != "out/snapshot.json" {
		t.Fatalf("unexpected output path %q", cfg.OutputPath)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
