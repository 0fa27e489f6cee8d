package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gridpulse/gridpulse/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements Database using Google Cloud Firestore. The
// latest snapshot lives in a single document as a JSON blob.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// NewFirestore returns a provider pointed at an explicit project and
// database. This is primarily used for testing and tooling.
func NewFirestore(projectID, database string) *FirestoreProvider {
	return &FirestoreProvider{projectID: projectID, database: database}
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection() *firestore.CollectionRef {
	return f.client.Collection("snapshots")
}

// GetLatestSnapshot returns the stored snapshot, or ErrNoSnapshot.
func (f *FirestoreProvider) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, time.Time, error) {
	it := f.collection().Limit(1).Documents(ctx)
	defer it.Stop()

	doc, err := it.Next()
	if err == iterator.Done || status.Code(err) == codes.NotFound {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to fetch snapshot doc: %w", err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("snapshot document missing 'json' field: %w", err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("snapshot 'json' field is not a string")
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal([]byte(jsonStr), &snapshot); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unmarshal snapshot json: %w", err)
	}

	var updated time.Time
	if v, err := doc.DataAt("updated"); err == nil {
		if t, ok := v.(time.Time); ok {
			updated = t
		}
	}
	return &snapshot, updated, nil
}

// SaveSnapshot replaces the stored snapshot. It stores the snapshot as a JSON
// string for portability.
func (f *FirestoreProvider) SaveSnapshot(ctx context.Context, snapshot *types.Snapshot, updated time.Time) error {
	jsonBytes, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = f.collection().Doc("latest").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"updated": updated.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
