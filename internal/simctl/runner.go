package simctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	runnerName   = "SimctlRunner"
	simctlTracer = "simctl.runner"

	stateBooted = "Booted"
	defaultPort = "8100"
)

// execFunc runs one external command and returns its stdout. env entries are
// appended to the inherited environment.
type execFunc func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// Runner drives the simulator through xcrun simctl and idb.
type Runner struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	exec     execFunc
	lookPath func(file string) (string, error)
	home     string
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewRunner(params Params) *Runner {
	home, _ := os.UserHomeDir()

	return &Runner{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, runnerName)),
		tracer:   otel.Tracer(simctlTracer),
		exec:     runCommand,
		lookPath: exec.LookPath,
		home:     home,
	}
}

func runCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}

		return out, err
	}

	return out, nil
}

func (r *Runner) run(ctx context.Context, name string, args ...string) (out []byte, err error) {
	return r.runEnv(ctx, nil, name, args...)
}

func (r *Runner) runEnv(ctx context.Context, env []string, name string, args ...string) (out []byte, err error) {
	command := name + " " + strings.Join(args, " ")
	logger := r.logger.With(zap.String(logg.Command, command))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, name,
		attribute.String(logg.Command, command))
	defer func() {
		step.End(err)
	}()

	out, err = r.exec(ctx, env, name, args...)
	if err != nil {
		return out, fmt.Errorf("%s failed: %w", command, err)
	}

	return out, nil
}

func (r *Runner) simctl(ctx context.Context, args ...string) ([]byte, error) {
	return r.run(ctx, "xcrun", append([]string{"simctl"}, args...)...)
}

type deviceList struct {
	Devices map[string][]struct {
		UDID  string `json:"udid"`
		Name  string `json:"name"`
		State string `json:"state"`
	} `json:"devices"`
}

// ListBooted returns booted simulators ordered by runtime, then as listed.
func (r *Runner) ListBooted(ctx context.Context) ([]entity.Device, error) {
	const op = "ListBooted"

	out, err := r.simctl(ctx, "list", "devices", "booted", "--json")
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("failed to list devices: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageDevice,
		})
	}

	var list deviceList
	if err := json.Unmarshal(out, &list); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("failed to parse device list: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageDevice,
		})
	}

	runtimes := make([]string, 0, len(list.Devices))
	for runtime := range list.Devices {
		runtimes = append(runtimes, runtime)
	}
	sort.Strings(runtimes)

	booted := []entity.Device{}
	for _, runtime := range runtimes {
		short := runtime[strings.LastIndex(runtime, ".")+1:]
		for _, d := range list.Devices[runtime] {
			if d.State != stateBooted {
				continue
			}
			booted = append(booted, entity.Device{UDID: d.UDID, Name: d.Name, State: d.State, Runtime: short})
		}
	}

	return booted, nil
}

// ResolveTargetDevice prefers the configured UDID and otherwise requires
// exactly one booted simulator.
func (r *Runner) ResolveTargetDevice(ctx context.Context) (string, error) {
	const op = "ResolveTargetDevice"

	if udid := r.config.DeviceConfig.UDID; udid != "" {
		return udid, nil
	}

	booted, err := r.ListBooted(ctx)
	if err != nil {
		return "", err
	}

	switch len(booted) {
	case 1:
		return booted[0].UDID, nil
	case 0:
		return "", apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument,
			"No booted simulators found. Boot one with: xcrun simctl boot <udid>")
	default:
		udids := make([]string, len(booted))
		for i, d := range booted {
			udids[i] = d.UDID
		}

		return "", apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, fmt.Sprintf(
			"Multiple booted simulators found: %s. Specify one with --device <udid> or PIPPIN_DEVICE_UDID.",
			strings.Join(udids, ", ")))
	}
}

// Launch starts the app. Clean terminates it first and empties its data
// container; failures there are logged and do not block the launch.
func (r *Runner) Launch(ctx context.Context, device string, opts entity.LaunchOptions) error {
	logger := r.logger.With(zap.String(logg.BundleID, opts.BundleID), zap.String(logg.Device, device))

	if opts.Clean {
		if err := r.clean(ctx, device, opts.BundleID); err != nil {
			logger.Warn("Error cleaning app", zap.Error(err))
		}
	}

	args := []string{"launch", device, opts.BundleID}
	if opts.Locale != "" {
		args = append(args, "-AppleLanguages", "("+opts.Locale+")", "-AppleLocale", opts.Locale)
	}
	args = append(args, opts.Args...)

	_, err := r.simctl(ctx, args...)

	return err
}

func (r *Runner) clean(ctx context.Context, device, bundleID string) error {
	if err := r.Terminate(ctx, device, bundleID); err != nil {
		r.logger.Debug("Terminate before clean failed", zap.Error(err))
	}

	container, err := r.AppContainer(ctx, device, bundleID)
	if err != nil {
		return err
	}
	if container == "" {
		return errors.New("empty container path")
	}

	entries, err := os.ReadDir(container)
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		errs = append(errs, os.RemoveAll(container+string(os.PathSeparator)+e.Name()))
	}

	return errors.Join(errs...)
}

func (r *Runner) Terminate(ctx context.Context, device, bundleID string) error {
	_, err := r.simctl(ctx, "terminate", device, bundleID)

	return err
}

// IsRunning looks for the app's UIKit job in the simulator's launchd.
func (r *Runner) IsRunning(ctx context.Context, device, bundleID string) (bool, error) {
	out, err := r.simctl(ctx, "spawn", device, "launchctl", "list")
	if err != nil {
		return false, err
	}

	return bytes.Contains(out, []byte("UIKitApplication:"+bundleID)), nil
}

func (r *Runner) OpenURL(ctx context.Context, device, url string) error {
	_, err := r.simctl(ctx, "openurl", device, url)

	return err
}

func (r *Runner) SetPermission(ctx context.Context, device, action, service, bundleID string) error {
	_, err := r.simctl(ctx, "privacy", device, action, service, bundleID)

	return err
}

func (r *Runner) SetLocation(ctx context.Context, device string, lat, lon float64) error {
	_, err := r.run(ctx, "idb", "set-location", "--udid", device,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))

	return err
}

func (r *Runner) Screenshot(ctx context.Context, device, path string) error {
	_, err := r.simctl(ctx, "io", device, "screenshot", path)

	return err
}

func (r *Runner) AppContainer(ctx context.Context, device, bundleID string) (string, error) {
	out, err := r.simctl(ctx, "get_app_container", device, bundleID, "data")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// RecentLogs reads the unified log for the app's subsystem.
func (r *Runner) RecentLogs(ctx context.Context, device, bundleID string, since time.Duration) ([]string, error) {
	out, err := r.simctl(ctx, "spawn", device, "log", "show",
		"--style", "compact",
		"--predicate", fmt.Sprintf("subsystem == %q", bundleID),
		"--last", logWindow(since))
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// logWindow renders a duration in log(1)'s --last syntax, e.g. "5m".
func logWindow(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	case d >= time.Minute && d%time.Minute == 0:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	default:
		return strconv.Itoa(max(1, int(d.Seconds()))) + "s"
	}
}

var requiredTools = []string{"xcrun", "idb"}

func (r *Runner) CheckTools(_ context.Context) []entity.ToolCheck {
	checks := make([]entity.ToolCheck, 0, len(requiredTools))
	for _, name := range requiredTools {
		check := entity.ToolCheck{Name: name}

		path, err := r.lookPath(name)
		if err != nil {
			check.Error = "not found in PATH"
		} else {
			check.Path = path
			check.OK = true
		}
		checks = append(checks, check)
	}

	return checks
}

// wdaPort is the port WDA is configured to answer on.
func (r *Runner) wdaPort() string {
	u, err := url.Parse(r.config.WDAConfig.URL)
	if err != nil || u.Port() == "" {
		return defaultPort
	}

	return u.Port()
}
