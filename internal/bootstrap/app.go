package bootstrap

import (
	"context"
	"pippin/internal/config"
	"pippin/internal/fixture"
	"pippin/internal/ports"
	"pippin/internal/simctl"
	"pippin/internal/state"
	"pippin/internal/usecase"
	"pippin/internal/wda"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Overrides are per-invocation settings taken from CLI flags. Empty fields
// keep the environment value.
type Overrides struct {
	Device       string
	SnapshotFile string
}

// Runtime is what a command gets once the graph is started.
type Runtime struct {
	Service *usecase.Service
	Session *usecase.Session
	Config  *config.Config
	Logger  *zap.Logger
}

func NewApp(overrides Overrides, opts ...fx.Option) *fx.App {
	return fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),

		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(
				simctl.NewRunner,
				fx.As(fx.Self()),
				fx.As(new(ports.AppController)),
				fx.As(new(ports.CrashReporter)),
				fx.As(new(wda.Launcher)),
			),
			fx.Annotate(
				wda.NewClient,
				fx.As(fx.Self()),
				fx.As(new(ports.Actuator)),
				fx.As(new(ports.BackendProbe)),
			),
			fx.Annotate(state.NewFileStore, fx.As(new(ports.StateStore))),
			newSnapshotBackend,

			usecase.NewSession,
			usecase.NewUsecase,
		),

		fx.Decorate(func(cfg *config.Config) *config.Config {
			return applyOverrides(cfg, overrides)
		}),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			registerSession,
		),

		fx.Options(opts...),

		fx.StartTimeout(10*time.Second),
	)
}

// Run starts the graph, hands the runtime to fn and stops the graph again.
func Run(ctx context.Context, overrides Overrides, fn func(ctx context.Context, rt *Runtime) error) (err error) {
	var rt Runtime

	app := NewApp(overrides, fx.Populate(&rt.Service, &rt.Session, &rt.Config, &rt.Logger))
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		return err
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()

		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	return fn(ctx, &rt)
}

func applyOverrides(cfg *config.Config, overrides Overrides) *config.Config {
	if overrides.Device != "" {
		cfg.DeviceConfig.UDID = overrides.Device
	}

	if overrides.SnapshotFile != "" {
		cfg.DeviceConfig.SnapshotFile = overrides.SnapshotFile
	}

	return cfg
}

type backendParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Client *wda.Client
	Runner *simctl.Runner
}

// newSnapshotBackend picks where accessibility trees come from. A snapshot
// file replaces both WDA and simulator discovery.
func newSnapshotBackend(params backendParams) (ports.SnapshotProvider, ports.DeviceResolver) {
	if params.Config.DeviceConfig.SnapshotFile != "" {
		provider := fixture.NewProvider(fixture.Params{
			Config: params.Config,
			Logger: params.Logger,
		})

		return provider, provider
	}

	return params.Client, params.Runner
}
