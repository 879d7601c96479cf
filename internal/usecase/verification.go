package usecase

import (
	"context"
	"fmt"
	"pippin/internal/config"
	"pippin/internal/entity"
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
	verificationServiceName = "VerificationService"
	verificationTracer      = "usecase.verification"

	DefaultWaitTimeout = 10 * time.Second
	textStatePrefix    = "text="
)

type VerificationService struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	session  *Session
	locator  *Locator
	scroller *Scroller
	now      func() time.Time
	sleep    sleepFunc
}

type VerificationServiceParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Session  *Session
	Locator  *Locator
	Scroller *Scroller
}

func NewVerificationService(params VerificationServiceParams) *VerificationService {
	return &VerificationService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, verificationServiceName)),
		tracer:   otel.Tracer(verificationTracer),
		session:  params.Session,
		locator:  params.Locator,
		scroller: params.Scroller,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Assert checks the query against one fresh snapshot.
func (s *VerificationService) Assert(ctx context.Context, req entity.AssertRequest) (resp *entity.ActionResult, err error) {
	const op = "Assert"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Query, req.Query))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.Query, req.Query),
		attribute.String("state", req.State))
	defer func() {
		step.End(err)
	}()

	if err := validateQuery(op, req.Query); err != nil {
		return nil, err
	}

	expected, isText := strings.CutPrefix(req.State, textStatePrefix)
	if !isText {
		switch entity.AssertState(req.State) {
		case entity.AssertExists, entity.AssertVisible, entity.AssertHidden:
		default:
			return nil, apperr.InvalidReqError(op, "state", fmt.Errorf("unknown state: %s", req.State))
		}
	}

	elements, err := s.session.Elements(ctx)
	if err != nil {
		return nil, err
	}

	node := s.locator.Locate(req.Query, MatchOptions{Strict: req.Strict}, elements)

	switch {
	case isText:
		if node == nil {
			return nil, notFound(op, req.Query, elements)
		}

		actual := node.Value
		if actual == "" {
			actual = node.Label
		}
		if actual != expected {
			return nil, apperr.Wrap(op, apperr.CodeTextMismatch,
				fmt.Errorf("element found but text was '%s', expected '%s'", actual, expected), map[string]any{
					apperr.MetaQuery: req.Query,
					apperr.MetaStage: apperr.StageVerification,
				})
		}
	case entity.AssertState(req.State) == entity.AssertExists:
		if node == nil {
			return nil, notFound(op, req.Query, elements)
		}
	case entity.AssertState(req.State) == entity.AssertVisible:
		if node == nil || !s.session.IsOnscreen(ctx, node) {
			return nil, apperr.Wrap(op, apperr.CodeNotFound,
				fmt.Errorf("element '%s' not found or not visible on screen", req.Query), map[string]any{
					apperr.MetaQuery: req.Query,
					apperr.MetaStage: apperr.StageVerification,
				})
		}
	case entity.AssertState(req.State) == entity.AssertHidden:
		if node != nil && s.session.IsOnscreen(ctx, node) {
			return nil, apperr.Wrap(op, apperr.CodeElementExists,
				fmt.Errorf("element '%s' found and visible (expected hidden)", req.Query), map[string]any{
					apperr.MetaQuery: req.Query,
					apperr.MetaStage: apperr.StageVerification,
				})
		}
	}

	return &entity.ActionResult{
		Status: entity.StatusSuccess,
		Action: "assert",
		Query:  req.Query,
		State:  req.State,
	}, nil
}

// Wait polls until the state holds or the wall-clock timeout passes. With
// Scroll set, an unsatisfied "visible" poll scrolls down before the next one.
func (s *VerificationService) Wait(ctx context.Context, req entity.WaitRequest) (resp *entity.ActionResult, err error) {
	const op = "Wait"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Query, req.Query))

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.Query, req.Query),
		attribute.String("state", req.State),
		attribute.String("timeout", timeout.String()))
	defer func() {
		step.End(err)
	}()

	if err := validateQuery(op, req.Query); err != nil {
		return nil, err
	}

	state := entity.AssertState(req.State)
	switch state {
	case entity.AssertExists, entity.AssertVisible, entity.AssertHidden:
	default:
		return nil, apperr.InvalidReqError(op, "state", fmt.Errorf("unknown state: %s", req.State))
	}

	start := s.now()
	deadline := start.Add(timeout)

	for polls := 1; s.now().Before(deadline); polls++ {
		satisfied, onscreen := s.poll(ctx, req, state)
		if satisfied {
			return &entity.ActionResult{
				Status:  entity.StatusSuccess,
				Action:  "wait",
				Query:   req.Query,
				State:   req.State,
				Elapsed: s.now().Sub(start).Round(time.Millisecond).String(),
			}, nil
		}

		if req.Scroll && state == entity.AssertVisible && !onscreen {
			if err := s.scroller.Scroll(ctx, DirectionDown); err != nil {
				logger.Debug("Scroll during wait failed", zap.Error(err))
			}
		}

		step.AddEvent("poll", attribute.Int(logg.Attempt, polls))

		if err := s.sleep(ctx, s.config.ScrollConfig.PollInterval); err != nil {
			return nil, apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaQuery: req.Query,
				apperr.MetaStage: apperr.StageVerification,
			})
		}
	}

	return nil, apperr.Wrap(op, apperr.CodeTimeout,
		fmt.Errorf("timeout waiting %s for '%s' to be %s", timeout, req.Query, req.State), map[string]any{
			apperr.MetaQuery: req.Query,
			apperr.MetaStage: apperr.StageVerification,
		})
}

// poll evaluates the wait condition once. A failed snapshot never satisfies
// any state, including "hidden".
func (s *VerificationService) poll(ctx context.Context, req entity.WaitRequest, state entity.AssertState) (satisfied, onscreen bool) {
	elements, err := s.session.Elements(ctx)
	if err != nil {
		s.logger.Debug("Snapshot failed during wait", zap.Error(err))

		return false, false
	}

	node := s.locator.Locate(req.Query, MatchOptions{Strict: req.Strict, Silent: true}, elements)
	onscreen = node != nil && s.session.IsOnscreen(ctx, node)

	switch state {
	case entity.AssertExists:
		return node != nil, onscreen
	case entity.AssertVisible:
		return onscreen, onscreen
	default:
		return !onscreen, onscreen
	}
}
