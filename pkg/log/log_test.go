package log

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	ctx := context.Background()

	// without a logger in the context we fall back to the default
	l1 := Ctx(ctx)
	require.NotNil(t, l1)
	assert.Equal(t, slog.Default(), l1)

	customLogger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	require.NotEqual(t, slog.Default(), customLogger)

	ctxWithLogger := With(ctx, customLogger)
	l2 := Ctx(ctxWithLogger)
	require.NotNil(t, l2)
	assert.Equal(t, customLogger, l2)
}
