package storagemock

import (
	"context"
	"time"

	"github.com/gridpulse/gridpulse/pkg/storage"
	"github.com/gridpulse/gridpulse/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetLatestSnapshot(ctx context.Context) (*types.Snapshot, time.Time, error) {
	args := m.Called(ctx)
	snapshot, _ := args.Get(0).(*types.Snapshot)
	updated, _ := args.Get(1).(time.Time)
	return snapshot, updated, args.Error(2)
}

func (m *MockDatabase) SaveSnapshot(ctx context.Context, snapshot *types.Snapshot, updated time.Time) error {
	args := m.Called(ctx, snapshot, updated)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
