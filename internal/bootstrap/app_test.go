package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/internal/fixture"
	"pippin/internal/ports"
	"pippin/internal/simctl"
	"pippin/internal/wda"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixtureTree = `[{"role": "Window", "label": "Login", "frame": {"x": 0, "y": 0, "width": 375, "height": 812}, "children": [
	{"role": "Button", "identifier": "submit", "label": "Sign In", "frame": {"x": 10, "y": 700, "width": 355, "height": 44}}
]}]`

func isolateEnv(t *testing.T) {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("PIPPIN_STATE_FILE", filepath.Join(t.TempDir(), "last_bundle_id"))
	t.Setenv("PIPPIN_DEVICE_UDID", "")
	t.Setenv("PIPPIN_SNAPSHOT_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{DeviceConfig: &config.DeviceConfig{UDID: "ENV", SnapshotFile: "env.json"}}

	applyOverrides(cfg, Overrides{})
	require.Equal(t, "ENV", cfg.DeviceConfig.UDID)
	require.Equal(t, "env.json", cfg.DeviceConfig.SnapshotFile)

	applyOverrides(cfg, Overrides{Device: "FLAG", SnapshotFile: "flag.json"})
	require.Equal(t, "FLAG", cfg.DeviceConfig.UDID)
	require.Equal(t, "flag.json", cfg.DeviceConfig.SnapshotFile)
}

func TestSnapshotBackendSelection(t *testing.T) {
	cfg := &config.Config{
		DeviceConfig: &config.DeviceConfig{},
		WDAConfig:    &config.WDAConfig{URL: "http://localhost:8100"},
	}
	client := wda.NewClient(wda.Params{Config: cfg, Logger: zap.NewNop()})
	runner := simctl.NewRunner(simctl.Params{Config: cfg, Logger: zap.NewNop()})

	var (
		snapshots ports.SnapshotProvider
		devices   ports.DeviceResolver
	)

	params := backendParams{Config: cfg, Logger: zap.NewNop(), Client: client, Runner: runner}

	snapshots, devices = newSnapshotBackend(params)
	require.Same(t, client, snapshots)
	require.Same(t, runner, devices)

	cfg.DeviceConfig.SnapshotFile = "screen.json"
	snapshots, devices = newSnapshotBackend(params)
	require.IsType(t, &fixture.Provider{}, snapshots)
	require.Same(t, snapshots, devices)
}

func TestRunAgainstFixture(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "screen.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureTree), 0o644))

	var result *entity.InspectResult

	err := Run(context.Background(), Overrides{SnapshotFile: path}, func(ctx context.Context, rt *Runtime) error {
		require.Equal(t, path, rt.Config.DeviceConfig.SnapshotFile)
		require.NotNil(t, rt.Session)

		var err error
		result, err = rt.Service.Vision.Inspect(ctx, entity.InspectOptions{InteractiveOnly: true})

		return err
	})

	require.NoError(t, err)
	require.Equal(t, "Login", result.ScreenID)
	require.NotEmpty(t, result.Elements)
}

func TestRunReturnsCommandError(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "missing.json")

	err := Run(context.Background(), Overrides{SnapshotFile: path}, func(ctx context.Context, rt *Runtime) error {
		_, err := rt.Service.Vision.Inspect(ctx, entity.InspectOptions{})

		return err
	})

	require.Error(t, err)
}
