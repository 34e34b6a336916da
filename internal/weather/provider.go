package weather

import (
	"context"
	"time"
)

// Fetcher abstracts a raw METAR source (e.g. the NOAA tgftp text files).
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, station Station) (string, error)
}

// SnapshotWriter persists a finished snapshot, replacing any previous one.
type SnapshotWriter interface {
	WriteSnapshot(snapshot Snapshot) error
}

// Store is the contract the in-memory history store must satisfy.
type Store interface {
	SaveSnapshot(snapshot Snapshot)
	GetLatest() (Snapshot, error)
	GetRange(from, to time.Time) ([]Snapshot, error)
}
