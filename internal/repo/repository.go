package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/onionwatch/internal/domain"
)

var (
	// ErrNotFound is returned for keys that were not configured.
	ErrNotFound = errors.New("endpoint not found")
	// ErrNotTerminal is returned when Record is given Unknown or Checking.
	ErrNotTerminal = errors.New("status is not a probe outcome")
)

// Ports (interfaces).
type StatusReader interface {
	Get(ctx context.Context, key domain.EndpointKey) (domain.EndpointRecord, error)
	// Snapshot returns every record in configuration order, taken at one
	// instant.
	Snapshot(ctx context.Context) ([]domain.EndpointRecord, error)
}

type StatusWriter interface {
	// MarkChecking flips the status to Checking and leaves LastCheck alone.
	MarkChecking(ctx context.Context, key domain.EndpointKey) error
	// Record stores a terminal status together with its completion time.
	Record(ctx context.Context, key domain.EndpointKey, st domain.Status, checkedAt time.Time) error
}

type StatusStore interface {
	StatusReader
	StatusWriter
}
