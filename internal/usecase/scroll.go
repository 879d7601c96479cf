package usecase

import (
	"context"
	"fmt"
	"math"
	"pippin/internal/entity"
	"pippin/internal/ports"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	scrollerName   = "Scroller"
	scrollerTracer = "usecase.scroll"

	SwipeDuration = 500 * time.Millisecond

	verticalSwipeRatio   = 0.4
	horizontalSwipeRatio = 0.3
)

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction %q, want up, down, left or right", s)
	}
}

// SwipeVector returns the gesture for scrolling content in direction. "down"
// reveals content further down, so the finger moves up.
func SwipeVector(direction Direction, screen entity.Screen) (from, to entity.Point, err error) {
	cx, cy := screen.Width/2, screen.Height/2
	from = entity.Point{X: cx, Y: cy}
	to = from

	vertical := screen.Height * verticalSwipeRatio / 2
	horizontal := screen.Width * horizontalSwipeRatio

	switch direction {
	case DirectionDown:
		from.Y, to.Y = cy+vertical, cy-vertical
	case DirectionUp:
		from.Y, to.Y = cy-vertical, cy+vertical
	case DirectionRight:
		from.X, to.X = cx+horizontal, cx-horizontal
	case DirectionLeft:
		from.X, to.X = cx-horizontal, cx+horizontal
	default:
		return from, to, fmt.Errorf("invalid direction %q", direction)
	}

	return roundPoint(from), roundPoint(to), nil
}

func roundPoint(p entity.Point) entity.Point {
	return entity.Point{X: math.Round(p.X), Y: math.Round(p.Y)}
}

type ScrollRequest struct {
	Query     string
	Direction Direction
	Strict    bool
	// RequireOnscreen also demands the match intersects the screen.
	RequireOnscreen bool
	MaxAttempts     int
	Delay           time.Duration
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scroller sequences check, scroll, settle and re-check. It owns no gesture
// policy beyond deriving the swipe from the session's screen.
type Scroller struct {
	session  *Session
	locator  *Locator
	actuator ports.Actuator
	logger   *zap.Logger
	tracer   trace.Tracer
	sleep    sleepFunc
}

func NewScroller(session *Session, locator *Locator, actuator ports.Actuator, logger *zap.Logger) *Scroller {
	return &Scroller{
		session:  session,
		locator:  locator,
		actuator: actuator,
		logger:   logger.With(zap.String(logg.Layer, scrollerName)),
		tracer:   otel.Tracer(scrollerTracer),
		sleep:    sleepContext,
	}
}

// Scroll performs one swipe in direction.
func (s *Scroller) Scroll(ctx context.Context, direction Direction) (err error) {
	const op = "Scroller.Scroll"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("direction", string(direction)))
	defer func() {
		step.End(err)
	}()

	from, to, err := SwipeVector(direction, s.session.Screen(ctx))
	if err != nil {
		return apperr.InvalidReqError(op, "direction", err)
	}

	if err := s.actuator.Swipe(ctx, from, to, SwipeDuration); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaStage:  apperr.StageInteraction,
			apperr.MetaAction: "swipe",
		})
	}

	return nil
}

// ScrollUntilVisible returns true on the first satisfied check and false once
// MaxAttempts scrolls are exhausted. Actuator failures are returned as errors.
func (s *Scroller) ScrollUntilVisible(ctx context.Context, req ScrollRequest) (found bool, attempts int, err error) {
	const op = "Scroller.ScrollUntilVisible"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Query, req.Query))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.Query, req.Query),
		attribute.Int("max_attempts", req.MaxAttempts))
	defer func() {
		step.End(err)
	}()

	if s.satisfied(ctx, req) {
		return true, 0, nil
	}

	for attempts = 1; attempts <= req.MaxAttempts; attempts++ {
		if err := s.Scroll(ctx, req.Direction); err != nil {
			return false, attempts, err
		}

		if err := s.sleep(ctx, req.Delay); err != nil {
			return false, attempts, apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaStage: apperr.StageInteraction,
			})
		}

		step.AddEvent("recheck", attribute.Int(logg.Attempt, attempts))

		if s.satisfied(ctx, req) {
			logger.Debug("Element revealed", zap.Int(logg.Attempt, attempts))

			return true, attempts, nil
		}
	}

	return false, req.MaxAttempts, nil
}

// satisfied treats snapshot failures as "not yet" so a transient backend error
// costs one attempt instead of the whole loop.
func (s *Scroller) satisfied(ctx context.Context, req ScrollRequest) bool {
	elements, err := s.session.Elements(ctx)
	if err != nil {
		s.logger.Debug("Snapshot failed during scroll", zap.Error(err))

		return false
	}

	node := s.locator.Locate(req.Query, MatchOptions{Strict: req.Strict, Silent: true}, elements)
	if node == nil {
		return false
	}
	if req.RequireOnscreen {
		return s.session.IsOnscreen(ctx, node)
	}

	return true
}
