// internal/stats/store_test.go
package stats

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/uavbridge/internal/fault"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(Config{Path: path, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_AppendAndRead(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, Row{At: 10.5, Speed: 50, Altitude: 1000}))
	require.NoError(t, s.Append(ctx, Row{At: 10.75, Speed: 51, Altitude: 1010}))
	require.NoError(t, s.Append(ctx, Row{At: 11, Speed: 52, Altitude: 1020}))

	rows, err := s.Rows(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{At: 10.5, Speed: 50, Altitude: 1000},
		{At: 10.75, Speed: 51, Altitude: 1010},
		{At: 11, Speed: 52, Altitude: 1020},
	}, rows)

	rows, err = s.Rows(ctx, 10.75, 1)
	require.NoError(t, err)
	assert.Equal(t, []Row{{At: 10.75, Speed: 51, Altitude: 1010}}, rows)
}

func TestStore_ReaderWhileWriting(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	reader, err := Open(Config{Path: path, PoolSize: 1})
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, s.Append(ctx, Row{At: 1, Speed: 2, Altitude: 3}))

	rows, err := reader.Rows(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, s.Append(ctx, Row{At: 2, Speed: 2, Altitude: 3}))
	rows, err = reader.Rows(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	ctx := context.Background()

	s, err := Open(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, Row{At: 1}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: path})
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.Rows(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Equal(t, fault.Configuration, fault.Classify(err))
}
