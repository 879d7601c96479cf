package state

import (
	"os"
	"path/filepath"
	"pippin/internal/config"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(path string) *FileStore {
	return NewFileStore(Params{
		Config: &config.Config{DeviceConfig: &config.DeviceConfig{StateFile: path}},
		Logger: zap.NewNop(),
	})
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_bundle_id")
	s := newStore(path)

	require.Empty(t, s.LastBundleID())

	require.NoError(t, s.SetLastBundleID("com.example.Demo"))
	require.Equal(t, "com.example.Demo", s.LastBundleID())

	require.NoError(t, s.SetLastBundleID("com.example.Other"))
	require.Equal(t, "com.example.Other", newStore(path).LastBundleID())
}

func TestFileStoreTrimsAndTreatsBlankAsUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_bundle_id")
	s := newStore(path)

	require.NoError(t, os.WriteFile(path, []byte("  com.example.Demo\n"), 0o644))
	require.Equal(t, "com.example.Demo", s.LastBundleID())

	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	require.Empty(t, s.LastBundleID())
}

func TestFileStoreUnwritablePath(t *testing.T) {
	s := newStore(filepath.Join(t.TempDir(), "missing", "dir", "file"))

	require.Error(t, s.SetLastBundleID("com.example.Demo"))
	require.Empty(t, s.LastBundleID())
}
