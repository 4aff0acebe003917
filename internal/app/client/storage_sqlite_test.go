package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campsync.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Put("pending_changes", []byte(`[{"id":"x"}]`)))
	got, err := s.Get("pending_changes")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"x"}]`, string(got))

	// whole-blob rewrite
	require.NoError(t, s.Put("pending_changes", []byte(`[]`)))
	got, err = s.Get("pending_changes")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))

	require.NoError(t, s.Delete("pending_changes"))
	_, err = s.Get("pending_changes")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSQLiteStoragePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campsync.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("sync_stats", []byte(`{"total_drains":3}`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("sync_stats")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_drains":3}`, string(got))
}
