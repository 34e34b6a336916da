package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/metar-snapshot/internal/metar"
	"github.com/i474232898/metar-snapshot/internal/store"
	"github.com/i474232898/metar-snapshot/internal/weather"
)

var testNow = time.Date(2026, time.October, 17, 14, 10, 0, 0, time.UTC)

func newTestApp(t *testing.T, snapshots ...weather.Snapshot) *fiber.App {
	t.Helper()

	memStore := store.NewMemoryStore(0, 0)
	for _, s := range snapshots {
		memStore.SaveSnapshot(s)
	}

	app := fiber.New()
	RegisterRoutes(app, memStore)
	return app
}

func snapshotAt(t *testing.T, at time.Time, kcps string) weather.Snapshot {
	t.Helper()

	obs := metar.ParseAt(kcps, testNow)
	if obs == nil {
		t.Fatalf("test report did not parse: %q", kcps)
	}
	return weather.Snapshot{
		LastUpdated: at,
		Stations: []weather.StationResult{
			{Station: "KCPS", Key: "kcps", Observation: obs},
			{Station: "KSTL", Key: "kstl", Error: "Failed to fetch METAR"},
		},
	}
}

func get(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestSnapshotNotFoundBeforeFirstRun(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/api/v1/snapshot")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestSnapshotReturnsLatest(t *testing.T) {
	app := newTestApp(t,
		snapshotAt(t, testNow.Add(-15*time.Minute), "KCPS 171335Z 18005KT 10SM CLR 20/10 A3001"),
		snapshotAt(t, testNow, "KCPS 171355Z 18008KT 10SM CLR 21/10 A3002"),
	)

	resp := get(t, app, "/api/v1/snapshot")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["lastUpdated"]) != `"2026-10-17T14:10:00Z"` {
		t.Fatalf("unexpected lastUpdated %s", body["lastUpdated"])
	}

	var kstl map[string]string
	if err := json.Unmarshal(body["kstl"], &kstl); err != nil {
		t.Fatalf("decode kstl: %v", err)
	}
	if kstl["metar"] != weather.UnavailableMarker || kstl["station"] != "KSTL" {
		t.Fatalf("unexpected placeholder %v", kstl)
	}
}

func TestStationLatest(t *testing.T) {
	app := newTestApp(t, snapshotAt(t, testNow, "KCPS 171355Z 18008KT 10SM CLR 21/10 A3002"))

	resp := get(t, app, "/api/v1/stations/KCPS/latest")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var obs metar.Observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if obs.StationCode() != "KCPS" || obs.WindSpeed == nil || *obs.WindSpeed != 8 {
		t.Fatalf("unexpected observation %+v", obs)
	}

	resp = get(t, app, "/api/v1/stations/KJFK/latest")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHistoryValidation(t *testing.T) {
	app := newTestApp(t, snapshotAt(t, testNow, "KCPS 171355Z 18008KT 10SM CLR 21/10 A3002"))

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "missing range", target: "/api/v1/stations/kcps/history", want: http.StatusBadRequest},
		{name: "bad time", target: "/api/v1/stations/kcps/history?from=yesterday&to=2026-10-17T15:00:00Z", want: http.StatusBadRequest},
		{name: "to before from", target: "/api/v1/stations/kcps/history?from=2026-10-17T15:00:00Z&to=2026-10-17T13:00:00Z", want: http.StatusBadRequest},
		{name: "empty range", target: "/api/v1/stations/kcps/history?from=2026-10-16T00:00:00Z&to=2026-10-16T01:00:00Z", want: http.StatusNotFound},
		{name: "unavailable station", target: "/api/v1/stations/kstl/history?from=2026-10-17T13:00:00Z&to=2026-10-17T15:00:00Z", want: http.StatusNotFound},
		{name: "ok", target: "/api/v1/stations/kcps/history?from=2026-10-17T13:00:00Z&to=2026-10-17T15:00:00Z", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, app, tt.target)
			if resp.StatusCode != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestHistoryReturnsObservationsInRange(t *testing.T) {
	app := newTestApp(t,
		snapshotAt(t, testNow.Add(-2*time.Hour), "KCPS 171155Z 18005KT 10SM CLR 18/10 A3001"),
		snapshotAt(t, testNow.Add(-time.Hour), "KCPS 171255Z 18006KT 10SM CLR 19/10 A3001"),
		snapshotAt(t, testNow, "KCPS 171355Z 18008KT 10SM CLR 21/10 A3002"),
	)

	from := testNow.Add(-90 * time.Minute).Unix()
	resp := get(t, app, "/api/v1/stations/kcps/history?from="+strconv.FormatInt(from, 10)+"&to=2026-10-17T14:10:00Z")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Station      string              `json:"station"`
		Observations []metar.Observation `json:"observations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Station != "KCPS" || len(body.Observations) != 2 {
		t.Fatalf("unexpected history %+v", body)
	}
	if *body.Observations[0].TemperatureC != 19 || *body.Observations[1].TemperatureC != 21 {
		t.Fatalf("unexpected order: %d, %d", *body.Observations[0].TemperatureC, *body.Observations[1].TemperatureC)
	}
}

func TestConditionsRunwayValidation(t *testing.T) {
	app := newTestApp(t, snapshotAt(t, testNow, "KCPS 171355Z 27015G25KT 10SM CLR 21/10 A3002"))

	for _, target := range []string{
		"/api/v1/stations/kcps/conditions",
		"/api/v1/stations/kcps/conditions?runway=abc",
		"/api/v1/stations/kcps/conditions?runway=-1",
		"/api/v1/stations/kcps/conditions?runway=361",
	} {
		resp := get(t, app, target)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}

	resp := get(t, app, "/api/v1/stations/kstl/conditions?runway=120")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d for unavailable station, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestConditionsDerivesCrosswind(t *testing.T) {
	app := newTestApp(t, snapshotAt(t, testNow, "KCPS 171355Z 27015G25KT 10SM CLR 21/10 A3002"))

	resp := get(t, app, "/api/v1/stations/kcps/conditions?runway=180")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var cond weather.Conditions
	if err := json.NewDecoder(resp.Body).Decode(&cond); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cond.Station != "KCPS" || cond.RunwayHeading != 180 {
		t.Fatalf("unexpected conditions %+v", cond)
	}
	if cond.CrosswindKt == nil || cond.TemperatureF == nil {
		t.Fatalf("expected derived values, got %+v", cond)
	}
	want := weather.Crosswind(270, 15, 25, 180)
	if *cond.CrosswindKt != want {
		t.Fatalf("expected crosswind %v, got %v", want, *cond.CrosswindKt)
	}
}
