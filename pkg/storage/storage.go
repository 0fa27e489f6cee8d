package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridpulse/gridpulse/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// ErrNoSnapshot is returned when no snapshot has ever been persisted.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Database defines the interface for persisting the latest snapshot so a
// restart doesn't start from nothing.
type Database interface {
	// GetLatestSnapshot returns the most recently saved snapshot and when it
	// was saved, or ErrNoSnapshot.
	GetLatestSnapshot(ctx context.Context) (*types.Snapshot, time.Time, error)

	// SaveSnapshot persists the snapshot, replacing any previous one.
	SaveSnapshot(ctx context.Context, snapshot *types.Snapshot, updated time.Time) error

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "memory", "Storage provider to use (available: memory, firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "memory":
			p.Database = NewMemory()
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
