package usecase

import (
	"context"
	"errors"
	"fmt"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/internal/ports"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	interactionServiceName = "InteractionService"
	interactionTracer      = "usecase.interaction"

	suggestionLimit = 3
	submitKey       = "ENTER"
)

type InteractionService struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	session  *Session
	actuator ports.Actuator
	locator  *Locator
	scroller *Scroller
}

type InteractionServiceParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Session  *Session
	Actuator ports.Actuator
	Locator  *Locator
	Scroller *Scroller
}

func NewInteractionService(params InteractionServiceParams) *InteractionService {
	return &InteractionService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, interactionServiceName)),
		tracer:   otel.Tracer(interactionTracer),
		session:  params.Session,
		actuator: params.Actuator,
		locator:  params.Locator,
		scroller: params.Scroller,
	}
}

// Tap resolves the query to the centre of the matched frame. Explicit
// coordinates are used when there is no query or the query misses.
func (s *InteractionService) Tap(ctx context.Context, req entity.TapRequest) (resp *entity.ActionResult, err error) {
	const op = "Tap"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Query, req.Query))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.Query, req.Query),
		attribute.Bool("strict", req.Strict))
	defer func() {
		step.End(err)
	}()

	hasCoords := req.X != nil && req.Y != nil

	var target *entity.Point
	if hasCoords {
		target = &entity.Point{X: *req.X, Y: *req.Y}
	}

	if req.Query != "" {
		if err := validateQuery(op, req.Query); err != nil {
			return nil, err
		}

		elements, err := s.session.Elements(ctx)
		if err != nil {
			return nil, err
		}

		node := s.locator.Locate(req.Query, MatchOptions{Strict: req.Strict}, elements)
		switch {
		case node != nil:
			if node.Frame == nil || !node.Frame.IsFinite() {
				return nil, apperr.Wrap(op, apperr.CodeFoundButUnusable,
					fmt.Errorf("element '%s' found but has no frame", req.Query), map[string]any{
						apperr.MetaQuery: req.Query,
						apperr.MetaStage: apperr.StageLocate,
					})
			}
			center := node.Frame.Center()
			target = &center
		case !hasCoords:
			return nil, notFound(op, req.Query, elements)
		default:
			logger.Debug("Query missed, falling back to coordinates")
		}
	}

	if target == nil {
		return nil, apperr.InvalidReqError(op, "target", errors.New("must provide query or coordinates"))
	}

	if err := s.actuator.Tap(ctx, target.X, target.Y); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("tap failed: %w", err), map[string]any{
			apperr.MetaStage:  apperr.StageInteraction,
			apperr.MetaAction: "tap",
		})
	}

	return &entity.ActionResult{
		Status: entity.StatusSuccess,
		Action: "tap",
		Query:  req.Query,
		Target: target.String(),
	}, nil
}

func (s *InteractionService) TypeText(ctx context.Context, text string, submit bool) (resp *entity.ActionResult, err error) {
	const op = "TypeText"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Int("length", len(text)),
		attribute.Bool("submit", submit))
	defer func() {
		step.End(err)
	}()

	if err := s.actuator.TypeText(ctx, text); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("type failed: %w", err), map[string]any{
			apperr.MetaStage:  apperr.StageInteraction,
			apperr.MetaAction: "type",
		})
	}

	if submit {
		if err := s.actuator.PressKey(ctx, submitKey); err != nil {
			return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("submit failed: %w", err), map[string]any{
				apperr.MetaStage:  apperr.StageInteraction,
				apperr.MetaAction: "key",
			})
		}
	}

	return &entity.ActionResult{
		Status: entity.StatusSuccess,
		Action: "type",
		Text:   text,
	}, nil
}

func (s *InteractionService) Scroll(ctx context.Context, req entity.ScrollCommand) (resp *entity.ActionResult, err error) {
	const op = "Scroll"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("direction", req.Direction),
		attribute.String("until_visible", req.UntilVisible))
	defer func() {
		step.End(err)
	}()

	direction, err := ParseDirection(req.Direction)
	if err != nil {
		return nil, apperr.InvalidReqError(op, "direction", err)
	}

	if req.UntilVisible == "" {
		if err := s.scroller.Scroll(ctx, direction); err != nil {
			return nil, err
		}

		return &entity.ActionResult{
			Status:    entity.StatusSuccess,
			Action:    "scroll",
			Direction: string(direction),
		}, nil
	}

	if err := validateQuery(op, req.UntilVisible); err != nil {
		return nil, err
	}

	found, attempts, err := s.scroller.ScrollUntilVisible(ctx, ScrollRequest{
		Query:       req.UntilVisible,
		Direction:   direction,
		Strict:      req.Strict,
		MaxAttempts: s.config.ScrollConfig.MaxAttempts,
		Delay:       s.config.ScrollConfig.Delay,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.Wrap(op, apperr.CodeNotFound,
			fmt.Errorf("element '%s' not found after scrolling", req.UntilVisible), map[string]any{
				apperr.MetaQuery: req.UntilVisible,
				apperr.MetaStage: apperr.StageLocate,
			})
	}

	return &entity.ActionResult{
		Status:    entity.StatusSuccess,
		Action:    "scroll",
		Query:     req.UntilVisible,
		Direction: string(direction),
		Found:     &found,
		Attempts:  attempts,
	}, nil
}

func (s *InteractionService) Gesture(ctx context.Context, kind string, args []string) (resp *entity.ActionResult, err error) {
	const op = "Gesture"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("kind", kind))
	defer func() {
		step.End(err)
	}()

	switch kind {
	case "swipe":
		from, to, err := ParseSwipeArgs(args)
		if err != nil {
			return nil, apperr.InvalidReqError(op, "coordinates", err)
		}

		if err := s.actuator.Swipe(ctx, from, to, SwipeDuration); err != nil {
			return nil, apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("swipe failed: %w", err), map[string]any{
				apperr.MetaStage:  apperr.StageInteraction,
				apperr.MetaAction: "swipe",
			})
		}

		return &entity.ActionResult{
			Status: entity.StatusSuccess,
			Action: "gesture",
			Target: from.String() + " " + to.String(),
		}, nil
	case "pinch":
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeNotSupported, "pinch gesture not implemented")
	default:
		return nil, apperr.InvalidReqError(op, "gesture", fmt.Errorf("unknown gesture: %s", kind))
	}
}

// ParseSwipeArgs accepts "x1,y1 x2,y2" or "x1 y1 x2 y2", split across any
// number of arguments.
func ParseSwipeArgs(args []string) (from, to entity.Point, err error) {
	var fields []string
	for _, arg := range args {
		fields = append(fields, strings.Fields(strings.ReplaceAll(arg, ",", " "))...)
	}

	if len(fields) != 4 {
		return from, to, errors.New("usage: gesture swipe start_x,start_y end_x,end_y")
	}

	coords := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return from, to, fmt.Errorf("invalid coordinate %q", f)
		}
		coords[i] = v
	}

	return entity.Point{X: coords[0], Y: coords[1]}, entity.Point{X: coords[2], Y: coords[3]}, nil
}

func notFound(op, query string, elements []*entity.Node) error {
	msg := fmt.Sprintf("element '%s' not found", query)
	if hints := Suggest(query, elements, suggestionLimit); len(hints) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(hints, ", "))
	}

	return apperr.Wrap(op, apperr.CodeNotFound, errors.New(msg), map[string]any{
		apperr.MetaQuery: query,
		apperr.MetaStage: apperr.StageLocate,
	})
}

// validateQuery rejects queries whose text part is empty, e.g. "Button:".
func validateQuery(op, query string) error {
	if entity.ParseQuery(query).Text != "" {
		return nil
	}

	return apperr.Wrap(op, apperr.CodeInvalidQuery, fmt.Errorf("invalid query %q: empty text", query), map[string]any{
		apperr.MetaQuery: query,
	})
}
