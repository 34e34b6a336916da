package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/metar-snapshot/internal/metar"
)

const (
	fetchFailedMsg = "Failed to fetch METAR"
	parseFailedMsg = "Failed to parse METAR"
)

// Service runs the fetch-parse-write cycle for a fixed list of stations.
type Service struct {
	fetcher  Fetcher
	writer   SnapshotWriter
	store    Store
	stations []Station
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithStore keeps every written snapshot in store as well.
func WithStore(store Store) Option {
	return func(s *Service) { s.store = store }
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(fetcher Fetcher, writer SnapshotWriter, stations []Station, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		writer:   writer,
		stations: stations,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stations returns the configured station list.
func (s *Service) Stations() []Station {
	return s.stations
}

// Run fetches and parses every station in order and writes one snapshot.
// Per-station failures become placeholders; only a failed write is returned.
func (s *Service) Run(ctx context.Context) (Snapshot, error) {
	log := s.logger.With("run_id", uuid.NewString())
	log.Info("starting weather data fetch", "stations", len(s.stations), "source", s.fetcher.Name())

	snapshot := Snapshot{Stations: make([]StationResult, 0, len(s.stations))}
	for _, st := range s.stations {
		snapshot.Stations = append(snapshot.Stations, s.collect(ctx, log, st))
	}
	snapshot.LastUpdated = s.now().UTC()

	if err := s.writer.WriteSnapshot(snapshot); err != nil {
		return snapshot, fmt.Errorf("write snapshot: %w", err)
	}
	if s.store != nil {
		s.store.SaveSnapshot(snapshot)
	}

	failed := 0
	for _, r := range snapshot.Stations {
		if !r.OK() {
			failed++
		}
	}
	log.Info("weather data written",
		"stations", len(snapshot.Stations),
		"failed", failed,
		"last_updated", snapshot.LastUpdated.Format(time.RFC3339))

	return snapshot, nil
}

func (s *Service) collect(ctx context.Context, log *slog.Logger, st Station) StationResult {
	result := StationResult{Station: st.Code, Key: st.Key}

	raw, err := s.fetcher.Fetch(ctx, st)
	if err != nil {
		log.Warn("metar fetch failed", "station", st.Code, "err", err)
		result.Error = fetchFailedMsg
		return result
	}

	obs := metar.ParseAt(raw, s.now())
	if obs == nil {
		log.Warn("metar parse failed", "station", st.Code, "metar", raw)
		result.Error = parseFailedMsg
		return result
	}

	log.Debug("metar parsed", "station", st.Code, "metar", obs.Raw)
	result.Observation = obs
	return result
}
