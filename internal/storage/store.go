package storage

import (
	"context"
	"errors"
	"time"

	"jsomr2mei/internal/assembler"
	"jsomr2mei/internal/omr"
)

var ErrRunNotFound = errors.New("run not found")

// Run is the record of one page conversion.
type Run struct {
	ID            string // page key
	PagePath      string
	SyllablesPath string
	InputHash     string
	MEIVersion    string
	OutputPath    string
	Stats         assembler.Stats
	Warnings      []omr.Warning
	Zones         []ZoneRecord
	CreatedAt     time.Time
}

// ZoneRecord ties a facsimile zone to the element that references it.
type ZoneRecord struct {
	ZoneID  string `json:"zone_id"`
	Element string `json:"element"`
	ULX     int    `json:"ulx"`
	ULY     int    `json:"uly"`
	LRX     int    `json:"lrx"`
	LRY     int    `json:"lry"`
}

// Store combines run bookkeeping and provenance lookups.
type Store interface {
	RunStore
	ZoneStore
	Close() error
}

// RunStore persists conversion runs.
type RunStore interface {
	// SaveRun upserts a run and replaces its zones.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run without its zones.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns all runs ordered by ID.
	ListRuns(ctx context.Context) ([]*Run, error)
}

// ZoneStore answers "where on the page is this element" questions.
type ZoneStore interface {
	// FindZones returns the zones of a run, optionally filtered by element name.
	FindZones(ctx context.Context, runID, element string) ([]ZoneRecord, error)
}
