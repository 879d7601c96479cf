package usecase

import (
	"context"
	"errors"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/internal/ports"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	visionServiceName = "VisionService"
	visionTracer      = "usecase.vision"

	defaultScreenID = "MainScreen"
	unknownApp      = "unknown"

	contextLogWindow = time.Minute
	contextLogLines  = 20
)

var navigationButtons = map[string]struct{}{
	"Edit": {},
	"Done": {},
	"Add":  {},
}

type VisionService struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	session *Session
	apps    ports.AppController
	devices ports.DeviceResolver
	state   ports.StateStore
}

type VisionServiceParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Session *Session
	Apps    ports.AppController
	Devices ports.DeviceResolver
	State   ports.StateStore
}

func NewVisionService(params VisionServiceParams) *VisionService {
	return &VisionService{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, visionServiceName)),
		tracer:  otel.Tracer(visionTracer),
		session: params.Session,
		apps:    params.Apps,
		devices: params.Devices,
		state:   params.State,
	}
}

func (s *VisionService) Inspect(ctx context.Context, opts entity.InspectOptions) (resp *entity.InspectResult, err error) {
	const op = "Inspect"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Bool("interactive_only", opts.InteractiveOnly),
		attribute.Bool("flat", opts.Flat))
	defer func() {
		step.End(err)
	}()

	roots, err := s.session.Snapshot(ctx)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaReason: "could not inspect UI",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	simplifyOpts := SimplifyOptions{
		InteractiveOnly: opts.InteractiveOnly,
		MaxDepth:        opts.MaxDepth,
		IncludeHidden:   !opts.InteractiveOnly,
	}
	if opts.IncludeHidden != nil {
		simplifyOpts.IncludeHidden = *opts.IncludeHidden
	}

	var elements []entity.SimplifiedNode
	if opts.Flat {
		elements = FlattenSimplified(roots, simplifyOpts)
	} else {
		elements = Simplify(roots, simplifyOpts)
	}
	if elements == nil {
		elements = []entity.SimplifiedNode{}
	}

	step.SetAttributes(attribute.Int("elements", len(elements)))

	return &entity.InspectResult{
		App:      s.appName(),
		ScreenID: ScreenID(Flatten(roots)),
		Elements: elements,
	}, nil
}

func (s *VisionService) Context(ctx context.Context, opts entity.ContextOptions) (resp *entity.ContextResult, err error) {
	const op = "Context"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Bool("brief", opts.Brief))
	defer func() {
		step.End(err)
	}()

	resp = &entity.ContextResult{
		Device: s.deviceInfo(ctx),
		App:    s.appInfo(ctx),
	}

	roots, err := s.session.Snapshot(ctx)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaReason: "context command failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	resp.Screen = AnalyzeScreen(roots)

	if !opts.Brief {
		resp.UI = Simplify(roots, SimplifyOptions{})
	}

	if opts.IncludeLogs {
		resp.Logs = s.recentLogs(ctx, logger)
	}

	if opts.ScreenshotPath != "" {
		if _, err := s.Screenshot(ctx, opts.ScreenshotPath); err != nil {
			return nil, err
		}
		resp.Screenshot = opts.ScreenshotPath
	}

	return resp, nil
}

func (s *VisionService) Screenshot(ctx context.Context, path string) (resp *entity.ActionResult, err error) {
	const op = "Screenshot"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("path", path))
	defer func() {
		step.End(err)
	}()

	if path == "" {
		return nil, apperr.InvalidReqError(op, "path", errors.New("screenshot path cannot be empty"))
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.apps.Screenshot(ctx, device, path); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "screenshot failed",
			apperr.MetaStage:  apperr.StageSystem,
			apperr.MetaDevice: device,
		})
	}

	return &entity.ActionResult{
		Status: entity.StatusSuccess,
		Action: "screenshot",
		File:   path,
	}, nil
}

func (s *VisionService) appName() string {
	if id := s.state.LastBundleID(); id != "" {
		return id
	}

	return unknownApp
}

// deviceInfo is best effort; context still reports the screen without it.
func (s *VisionService) deviceInfo(ctx context.Context) *entity.Device {
	device, err := s.session.Device(ctx)
	if err != nil {
		return nil
	}

	booted, err := s.devices.ListBooted(ctx)
	if err != nil {
		return &entity.Device{UDID: device}
	}

	for _, d := range booted {
		if d.UDID == device {
			return &d
		}
	}

	return &entity.Device{UDID: device}
}

func (s *VisionService) appInfo(ctx context.Context) entity.AppInfo {
	info := entity.AppInfo{BundleID: s.state.LastBundleID()}
	if info.BundleID == "" {
		return info
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return info
	}

	running, err := s.apps.IsRunning(ctx, device, info.BundleID)
	if err != nil {
		s.logger.Debug("App state unknown", zap.String(logg.BundleID, info.BundleID), zap.Error(err))

		return info
	}
	info.Running = running

	return info
}

func (s *VisionService) recentLogs(ctx context.Context, logger *zap.Logger) []string {
	bundleID := s.state.LastBundleID()
	if bundleID == "" {
		return nil
	}

	device, err := s.session.Device(ctx)
	if err != nil {
		return nil
	}

	lines, err := s.apps.RecentLogs(ctx, device, bundleID, contextLogWindow)
	if err != nil {
		logger.Warn("Could not read recent logs", zap.Error(err))

		return nil
	}

	if len(lines) > contextLogLines {
		lines = lines[len(lines)-contextLogLines:]
	}

	return lines
}

// ScreenID names the current screen after the first window node, then the
// first heading, then a fixed default.
func ScreenID(elements []*entity.Node) string {
	for _, n := range elements {
		if !n.CanonicalRole().IsWindowRooted() {
			continue
		}
		if n.Label != "" {
			return n.Label
		}
		if n.Identifier != "" {
			return n.Identifier
		}

		break
	}

	for _, n := range elements {
		if n.CanonicalRole() == entity.RoleHeading && n.Label != "" {
			return n.Label
		}
	}

	return defaultScreenID
}

// AnalyzeScreen extracts the navigation title, back-stack breadcrumb and any
// alert or sheet. Later matches overwrite earlier ones, so the deepest
// navigation bar wins.
func AnalyzeScreen(roots []*entity.Node) entity.ScreenAnalysis {
	var info entity.ScreenAnalysis

	for _, n := range Flatten(roots) {
		switch n.CanonicalRole() {
		case entity.RoleNavigationBar:
			if n.Identifier != "" {
				info.Title = n.Identifier
			} else if n.Label != "" {
				info.Title = n.Label
			}

			for _, child := range n.Children {
				if child == nil || child.CanonicalRole() != entity.RoleButton || child.Label == "" {
					continue
				}
				if child.Label == info.Title {
					continue
				}
				if _, skip := navigationButtons[child.Label]; skip {
					continue
				}
				info.Breadcrumb = append(info.Breadcrumb, child.Label)
			}
		case entity.RoleAlert, entity.RoleSheet:
			dialog := &entity.Dialog{Title: n.Label}
			for _, child := range n.Children {
				if child != nil && child.CanonicalRole() == entity.RoleStaticText {
					dialog.Message = child.Label

					break
				}
			}
			info.Alert = dialog
		}
	}

	return info
}
