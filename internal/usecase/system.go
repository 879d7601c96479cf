package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/internal/ports"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	systemServiceName = "SystemService"
	systemTracer      = "usecase.system"

	logWindow = 5 * time.Minute
)

var containerAliases = map[string]string{
	"documents": "Documents",
	"caches":    "Library/Caches",
	"tmp":       "tmp",
}

var permissionActions = map[string]string{
	"grant":  "grant",
	"deny":   "revoke",
	"revoke": "revoke",
	"reset":  "reset",
}

type SystemService struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	session *Session
	apps    ports.AppController
	devices ports.DeviceResolver
	state   ports.StateStore
	crashes ports.CrashReporter
	probe   ports.BackendProbe
	openFS  func(dir string) fs.FS
}

type SystemServiceParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Session *Session
	Apps    ports.AppController
	Devices ports.DeviceResolver
	State   ports.StateStore
	Crashes ports.CrashReporter
	Probe   ports.BackendProbe
}

func NewSystemService(params SystemServiceParams) *SystemService {
	return &SystemService{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, systemServiceName)),
		tracer:  otel.Tracer(systemTracer),
		session: params.Session,
		apps:    params.Apps,
		devices: params.Devices,
		state:   params.State,
		crashes: params.Crashes,
		probe:   params.Probe,
		openFS:  os.DirFS,
	}
}

// Launch starts the app and records it as the default target for later
// invocations.
func (s *SystemService) Launch(ctx context.Context, opts entity.LaunchOptions) (resp *entity.ActionResult, err error) {
	const op = "Launch"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Bool("clean", opts.Clean),
		attribute.String("locale", opts.Locale))
	defer func() {
		step.End(err)
	}()

	opts.BundleID, err = s.bundleID(op, opts.BundleID)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String(logg.BundleID, opts.BundleID))

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.Launch(ctx, device, opts); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error launching app: %w", err), map[string]any{
			apperr.MetaStage:    apperr.StageSystem,
			apperr.MetaBundleID: opts.BundleID,
			apperr.MetaDevice:   device,
		})
	}

	if err := s.state.SetLastBundleID(opts.BundleID); err != nil {
		logger.Warn("Could not persist last bundle id", zap.Error(err))
	}

	return &entity.ActionResult{
		Status:   entity.StatusSuccess,
		Action:   "launch",
		BundleID: opts.BundleID,
		Args:     opts.Args,
	}, nil
}

func (s *SystemService) Stop(ctx context.Context, bundleID string) (resp *entity.ActionResult, err error) {
	const op = "Stop"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	bundleID, err = s.bundleID(op, bundleID)
	if err != nil {
		return nil, err
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.Terminate(ctx, device, bundleID); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error stopping app: %w", err), map[string]any{
			apperr.MetaStage:    apperr.StageSystem,
			apperr.MetaBundleID: bundleID,
		})
	}

	return &entity.ActionResult{
		Status:   entity.StatusSuccess,
		Action:   "stop",
		BundleID: bundleID,
	}, nil
}

// Relaunch terminates the app, ignoring "not running", and launches it again.
func (s *SystemService) Relaunch(ctx context.Context, opts entity.LaunchOptions) (resp *entity.ActionResult, err error) {
	const op = "Relaunch"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	opts.BundleID, err = s.bundleID(op, opts.BundleID)
	if err != nil {
		return nil, err
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.Terminate(ctx, device, opts.BundleID); err != nil {
		logger.Debug("Terminate before relaunch failed", zap.Error(err))
	}

	resp, err = s.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	resp.Action = "relaunch"

	return resp, nil
}

func (s *SystemService) OpenURL(ctx context.Context, url string) (resp *entity.ActionResult, err error) {
	const op = "OpenURL"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.URL, url))
	defer func() {
		step.End(err)
	}()

	if url == "" {
		return nil, apperr.InvalidReqError(op, "url", errors.New("url cannot be empty"))
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.OpenURL(ctx, device, url); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error opening URL: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageSystem,
			apperr.MetaURL:   url,
		})
	}

	return &entity.ActionResult{
		Status: entity.StatusSuccess,
		Action: "open",
		URL:    url,
	}, nil
}

// Permission sets a privacy service for the last launched app. "deny" is
// accepted as an alias of simctl's "revoke".
func (s *SystemService) Permission(ctx context.Context, service, action string) (resp *entity.ActionResult, err error) {
	const op = "Permission"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("service", service),
		attribute.String(logg.Action, action))
	defer func() {
		step.End(err)
	}()

	simctlAction, ok := permissionActions[strings.ToLower(action)]
	if !ok {
		return nil, apperr.InvalidReqError(op, "status", fmt.Errorf("unknown permission status %q, want grant, deny or reset", action))
	}
	if service == "" {
		return nil, apperr.InvalidReqError(op, "service", errors.New("service cannot be empty"))
	}

	bundleID, err := s.bundleID(op, "")
	if err != nil {
		return nil, err
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.SetPermission(ctx, device, simctlAction, service, bundleID); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error setting permission: %w", err), map[string]any{
			apperr.MetaStage:    apperr.StageSystem,
			apperr.MetaBundleID: bundleID,
		})
	}

	return &entity.ActionResult{
		Status:   entity.StatusSuccess,
		Action:   "permission",
		Service:  service,
		State:    simctlAction,
		BundleID: bundleID,
	}, nil
}

func (s *SystemService) Location(ctx context.Context, lat, lon float64) (resp *entity.ActionResult, err error) {
	const op = "Location"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon))
	defer func() {
		step.End(err)
	}()

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperr.InvalidReqError(op, "coordinates", fmt.Errorf("coordinates out of range: %v,%v", lat, lon))
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.SetLocation(ctx, device, lat, lon); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error setting location: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageSystem,
		})
	}

	return &entity.ActionResult{
		Status: entity.StatusSuccess,
		Action: "location",
		Target: entity.Point{X: lat, Y: lon}.String(),
	}, nil
}

func (s *SystemService) Network(_ context.Context, condition string) (*entity.ActionResult, error) {
	const op = "Network"

	return nil, apperr.Wrap(op, apperr.CodeNotSupported,
		errors.New("network conditioning is not supported directly by this tool"), map[string]any{
			apperr.MetaReason: condition,
		})
}

// Logs returns the app's recent unified log lines, or its newest crash report.
func (s *SystemService) Logs(ctx context.Context, crashReport bool) (resp *entity.LogsResult, err error) {
	const op = "Logs"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Bool("crash_report", crashReport))
	defer func() {
		step.End(err)
	}()

	bundleID, err := s.bundleID(op, "")
	if err != nil {
		return nil, err
	}

	resp = &entity.LogsResult{BundleID: bundleID}

	if crashReport {
		file, body, err := s.crashes.LatestCrashReport(AppName(bundleID))
		if err != nil {
			return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error reading crash log: %w", err), map[string]any{
				apperr.MetaStage:    apperr.StageSystem,
				apperr.MetaBundleID: bundleID,
			})
		}
		resp.CrashFile = file
		resp.CrashReport = body

		return resp, nil
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	resp.Lines, err = s.apps.RecentLogs(ctx, device, bundleID, logWindow)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error fetching logs: %w", err), map[string]any{
			apperr.MetaStage:    apperr.StageSystem,
			apperr.MetaBundleID: bundleID,
		})
	}

	return resp, nil
}

// Tree lists a directory of the app's data container recursively. dir is one
// of documents, caches, tmp or a path relative to the container.
func (s *SystemService) Tree(ctx context.Context, dir string) (resp *entity.TreeResult, err error) {
	const op = "Tree"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("dir", dir))
	defer func() {
		step.End(err)
	}()

	subpath, ok := containerAliases[dir]
	if !ok {
		subpath = dir
	}

	clean := path.Clean("/" + filepath.ToSlash(subpath))[1:]
	if clean == "" {
		clean = "."
	}

	bundleID, err := s.bundleID(op, "")
	if err != nil {
		return nil, err
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	container, err := s.apps.AppContainer(ctx, device, bundleID)
	if err == nil && container == "" {
		err = errors.New("empty container path")
	}
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("could not find app container: %w", err), map[string]any{
			apperr.MetaStage:    apperr.StageSystem,
			apperr.MetaBundleID: bundleID,
		})
	}

	resp = &entity.TreeResult{
		BundleID: bundleID,
		Path:     filepath.Join(container, filepath.FromSlash(clean)),
		Entries:  []entity.FileEntry{},
	}

	fsys := s.openFS(container)
	if _, err := fs.Stat(fsys, clean); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("directory %s does not exist", resp.Path), map[string]any{
			apperr.MetaStage: apperr.StageSystem,
		})
	}

	err = fs.WalkDir(fsys, clean, func(p string, d fs.DirEntry, walkErr error) error {
		if p == clean {
			return walkErr
		}

		rel := strings.TrimPrefix(p, clean+"/")
		if clean == "." {
			rel = p
		}

		entry := entity.FileEntry{Name: rel}
		if walkErr != nil {
			entry.Error = walkErr.Error()
			resp.Entries = append(resp.Entries, entry)

			return nil
		}

		entry.Dir = d.IsDir()
		if !entry.Dir {
			if info, err := d.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		resp.Entries = append(resp.Entries, entry)

		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("error listing files: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageSystem,
		})
	}

	return resp, nil
}

// Doctor reports tool availability, backend reachability and the device the
// next command would target. It never fails; Healthy summarizes the checks.
func (s *SystemService) Doctor(ctx context.Context) (resp *entity.DoctorResult, err error) {
	const op = "Doctor"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	resp = &entity.DoctorResult{
		Tools:  s.apps.CheckTools(ctx),
		Booted: []entity.Device{},
	}

	healthy := true
	for _, t := range resp.Tools {
		healthy = healthy && t.OK
	}

	if booted, err := s.devices.ListBooted(ctx); err != nil {
		logger.Debug("Listing booted devices failed", zap.Error(err))
		healthy = false
	} else {
		resp.Booted = append(resp.Booted, booted...)
	}

	if target, err := s.session.Device(ctx); err != nil {
		resp.TargetError = apperr.Message(err)
		healthy = false
	} else {
		resp.Target = target
	}

	resp.BackendReady = s.probe.Ready(ctx)
	resp.Healthy = healthy

	return resp, nil
}

func (s *SystemService) bundleID(op, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if id := s.state.LastBundleID(); id != "" {
		return id, nil
	}

	return "", apperr.Wrap(op, apperr.CodeNoTargetApp,
		errors.New("could not determine target app, run 'pippin launch' first or provide a bundle ID"), nil)
}

// AppName is the last component of a bundle id, which crash reports are named after.
func AppName(bundleID string) string {
	if i := strings.LastIndex(bundleID, "."); i >= 0 {
		return bundleID[i+1:]
	}

	return bundleID
}
