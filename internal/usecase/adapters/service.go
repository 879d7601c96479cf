package adapters

import (
	"context"
	"pippin/internal/entity"
)

type VisionService interface {
	Inspect(ctx context.Context, opts entity.InspectOptions) (*entity.InspectResult, error)
	Context(ctx context.Context, opts entity.ContextOptions) (*entity.ContextResult, error)
	Screenshot(ctx context.Context, path string) (*entity.ActionResult, error)
}

type InteractionService interface {
	Tap(ctx context.Context, req entity.TapRequest) (*entity.ActionResult, error)
	TypeText(ctx context.Context, text string, submit bool) (*entity.ActionResult, error)
	Scroll(ctx context.Context, req entity.ScrollCommand) (*entity.ActionResult, error)
	Gesture(ctx context.Context, kind string, args []string) (*entity.ActionResult, error)
}

type VerificationService interface {
	Assert(ctx context.Context, req entity.AssertRequest) (*entity.ActionResult, error)
	Wait(ctx context.Context, req entity.WaitRequest) (*entity.ActionResult, error)
}

type SystemService interface {
	Launch(ctx context.Context, opts entity.LaunchOptions) (*entity.ActionResult, error)
	Stop(ctx context.Context, bundleID string) (*entity.ActionResult, error)
	Relaunch(ctx context.Context, opts entity.LaunchOptions) (*entity.ActionResult, error)
	OpenURL(ctx context.Context, url string) (*entity.ActionResult, error)
	Permission(ctx context.Context, service, action string) (*entity.ActionResult, error)
	Location(ctx context.Context, lat, lon float64) (*entity.ActionResult, error)
	Network(ctx context.Context, condition string) (*entity.ActionResult, error)
	Logs(ctx context.Context, crashReport bool) (*entity.LogsResult, error)
	Tree(ctx context.Context, dir string) (*entity.TreeResult, error)
	Doctor(ctx context.Context) (*entity.DoctorResult, error)
}
