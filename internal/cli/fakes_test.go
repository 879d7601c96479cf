package cli

import (
	"bytes"
	"context"
	"pippin/internal/bootstrap"
	"pippin/internal/entity"
	"pippin/internal/usecase"
	"pippin/internal/usecase/adapters"
	"pippin/pkg/apperr"
	"strings"
)

// recorder captures the request each verb receives. Unset service methods
// come from the embedded nil interfaces and panic if reached.
type recorder struct {
	adapters.VisionService
	adapters.InteractionService
	adapters.VerificationService
	adapters.SystemService

	inspect entity.InspectOptions
	tap     entity.TapRequest
	scroll  entity.ScrollCommand
	gesture []string
	launch  entity.LaunchOptions
	wait    entity.WaitRequest
	assert  entity.AssertRequest
	lat     float64
	lon     float64

	err error
}

func (r *recorder) Inspect(_ context.Context, opts entity.InspectOptions) (*entity.InspectResult, error) {
	r.inspect = opts
	if r.err != nil {
		return nil, r.err
	}

	return &entity.InspectResult{
		App:      "com.example.Demo",
		ScreenID: "Login",
		Elements: []entity.SimplifiedNode{{Type: "button", ID: "submit", Label: "Sign In", Frame: "10,700,355,44"}},
	}, nil
}

func (r *recorder) Context(_ context.Context, opts entity.ContextOptions) (*entity.ContextResult, error) {
	return &entity.ContextResult{App: entity.AppInfo{BundleID: "com.example.Demo", Running: true}}, nil
}

func (r *recorder) Tap(_ context.Context, req entity.TapRequest) (*entity.ActionResult, error) {
	r.tap = req
	if r.err != nil {
		return nil, r.err
	}

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "tap", Target: "60,45"}, nil
}

func (r *recorder) Scroll(_ context.Context, req entity.ScrollCommand) (*entity.ActionResult, error) {
	r.scroll = req

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "scroll", Direction: req.Direction}, nil
}

func (r *recorder) Gesture(_ context.Context, kind string, args []string) (*entity.ActionResult, error) {
	r.gesture = append([]string{kind}, args...)

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "gesture"}, nil
}

func (r *recorder) Launch(_ context.Context, opts entity.LaunchOptions) (*entity.ActionResult, error) {
	r.launch = opts

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "launch", BundleID: opts.BundleID}, nil
}

func (r *recorder) Location(_ context.Context, lat, lon float64) (*entity.ActionResult, error) {
	r.lat, r.lon = lat, lon

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "location"}, nil
}

func (r *recorder) Assert(_ context.Context, req entity.AssertRequest) (*entity.ActionResult, error) {
	r.assert = req
	if r.err != nil {
		return nil, r.err
	}

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "assert", Query: req.Query, State: req.State}, nil
}

func (r *recorder) Wait(_ context.Context, req entity.WaitRequest) (*entity.ActionResult, error) {
	r.wait = req
	if r.err != nil {
		return nil, r.err
	}

	return &entity.ActionResult{Status: entity.StatusSuccess, Action: "wait", Query: req.Query, State: req.State}, nil
}

type harness struct {
	rec       *recorder
	overrides bootstrap.Overrides
	runs      int
	stdout    bytes.Buffer
	stderr    bytes.Buffer
}

func newHarness() *harness {
	return &harness{rec: &recorder{}}
}

func (h *harness) run(ctx context.Context, overrides bootstrap.Overrides, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	h.runs++
	h.overrides = overrides

	return fn(ctx, &bootstrap.Runtime{Service: &usecase.Service{
		Vision:       h.rec,
		Interaction:  h.rec,
		Verification: h.rec,
		System:       h.rec,
	}})
}

func (h *harness) execute(args ...string) int {
	c := New(Params{
		Run:    h.run,
		Stdin:  strings.NewReader(""),
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})

	return c.Execute(context.Background(), args)
}

func notFound(msg string) error {
	return apperr.WrapErrorWithReason("Tap", apperr.CodeNotFound, msg)
}
