package simctl

import (
	"context"
	"path/filepath"
	"pippin/pkg/logg"

	"go.uber.org/zap"
)

// WDAAppDir is where a prebuilt WebDriverAgentRunner bundle is looked up.
func (r *Runner) WDAAppDir() string {
	if dir := r.config.WDAConfig.AppDir; dir != "" {
		return dir
	}

	return filepath.Join(r.home, ".pippin", "wda")
}

func (r *Runner) wdaBundle() string {
	apps, err := filepath.Glob(filepath.Join(r.WDAAppDir(), "*.app"))
	if err != nil || len(apps) == 0 {
		return ""
	}

	return apps[0]
}

// LaunchWDA installs the local WDA bundle, if there is one, and launches the
// runner so it listens on the configured port.
func (r *Runner) LaunchWDA(ctx context.Context, device string) error {
	logger := r.logger.With(zap.String(logg.Device, device))

	if app := r.wdaBundle(); app != "" {
		if _, err := r.simctl(ctx, "install", device, app); err != nil {
			logger.Warn("WDA install failed", zap.String("app", app), zap.Error(err))
		}
	}

	_, err := r.runEnv(ctx, []string{"SIMCTL_CHILD_USE_PORT=" + r.wdaPort()},
		"xcrun", "simctl", "launch", "--terminate-running-process", device, r.config.WDAConfig.BundleID)

	return err
}
