package usecase

import (
	"context"
	"pippin/internal/entity"
	"pippin/internal/ports"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionName   = "Session"
	sessionTracer = "usecase.session"
)

// Session carries the state that lives for one command invocation: the target
// device and the screen size, both resolved lazily and at most once. Snapshot
// contents are never cached.
type Session struct {
	ID uuid.UUID

	logger    *zap.Logger
	tracer    trace.Tracer
	snapshots ports.SnapshotProvider
	devices   ports.DeviceResolver

	mu     sync.Mutex
	device string
	screen *entity.Screen
}

type SessionParams struct {
	fx.In

	Logger    *zap.Logger
	Snapshots ports.SnapshotProvider
	Devices   ports.DeviceResolver
}

func NewSession(params SessionParams) *Session {
	id := uuid.New()

	return &Session{
		ID: id,
		logger: params.Logger.With(
			zap.String(logg.Layer, sessionName),
			zap.String(logg.Session, id.String()),
		),
		tracer:    otel.Tracer(sessionTracer),
		snapshots: params.Snapshots,
		devices:   params.Devices,
	}
}

// Device resolves the target simulator once and reuses it afterwards. Failed
// resolutions are not memoized.
func (s *Session) Device(ctx context.Context) (device string, err error) {
	const op = "Session.Device"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != "" {
		return s.device, nil
	}

	logger := s.logger.With(zap.String(logg.Operation, op))
	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	device, err = s.devices.ResolveTargetDevice(ctx)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaStage: apperr.StageDevice,
		})
	}

	s.device = device
	logger.Debug("Target device resolved", zap.String(logg.Device, device))

	return device, nil
}

// Snapshot fetches a fresh accessibility forest for the target device.
func (s *Session) Snapshot(ctx context.Context) (roots []*entity.Node, err error) {
	const op = "Session.Snapshot"
	logger := s.logger.With(zap.String(logg.Operation, op))

	device, err := s.Device(ctx)
	if err != nil {
		return nil, err
	}

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.Device, device))
	defer func() {
		step.End(err)
	}()

	roots, err = s.snapshots.FetchSnapshot(ctx, device)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaStage:  apperr.StageSnapshot,
			apperr.MetaDevice: device,
		})
	}

	step.SetAttributes(attribute.Int("roots", len(roots)))

	return roots, nil
}

// Elements is the flattened pre-order list of the current snapshot.
func (s *Session) Elements(ctx context.Context) ([]*entity.Node, error) {
	roots, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return Flatten(roots), nil
}

// Screen returns the memoized screen size, resolving it from a snapshot on
// first use. Any failure falls back to the default size and is memoized too.
func (s *Session) Screen(ctx context.Context) entity.Screen {
	s.mu.Lock()
	if s.screen != nil {
		screen := *s.screen
		s.mu.Unlock()

		return screen
	}
	s.mu.Unlock()

	screen := entity.DefaultScreen()

	elements, err := s.Elements(ctx)
	if err != nil {
		s.logger.Debug("Screen size fallback to default", zap.Error(err))
	} else {
		screen = ScreenFromElements(elements)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen == nil {
		s.screen = &screen
	}

	return *s.screen
}

// IsOnscreen reports whether node intersects the session's screen.
func (s *Session) IsOnscreen(ctx context.Context, node *entity.Node) bool {
	if node == nil || node.Frame == nil {
		return false
	}

	return Onscreen(node.Frame, s.Screen(ctx))
}

// ScreenFromElements takes the frame of the first window or application node
// with usable dimensions.
func ScreenFromElements(elements []*entity.Node) entity.Screen {
	for _, n := range elements {
		if n == nil || !n.CanonicalRole().IsWindowRooted() {
			continue
		}
		if n.Frame.HasValidDimensions() && n.Frame.IsFinite() {
			return entity.Screen{Width: n.Frame.Width, Height: n.Frame.Height}
		}
	}

	return entity.DefaultScreen()
}

// Onscreen is false only when frame lies entirely outside the screen. A nil
// or non-finite frame is never onscreen.
func Onscreen(frame *entity.Frame, screen entity.Screen) bool {
	if frame == nil || !frame.IsFinite() {
		return false
	}

	outside := frame.X+frame.Width <= 0 ||
		frame.X >= screen.Width ||
		frame.Y+frame.Height <= 0 ||
		frame.Y >= screen.Height

	return !outside
}
