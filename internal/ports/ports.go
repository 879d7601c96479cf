package ports

import (
	"context"
	"pippin/internal/entity"
	"time"
)

type SnapshotProvider interface {
	// FetchSnapshot returns the current accessibility forest. An empty
	// response is (nil, nil).
	FetchSnapshot(ctx context.Context, device string) ([]*entity.Node, error)
}

type Actuator interface {
	Tap(ctx context.Context, x, y float64) error
	Swipe(ctx context.Context, from, to entity.Point, duration time.Duration) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
}

type DeviceResolver interface {
	ResolveTargetDevice(ctx context.Context) (string, error)
	ListBooted(ctx context.Context) ([]entity.Device, error)
}

type AppController interface {
	Launch(ctx context.Context, device string, opts entity.LaunchOptions) error
	Terminate(ctx context.Context, device, bundleID string) error
	IsRunning(ctx context.Context, device, bundleID string) (bool, error)
	OpenURL(ctx context.Context, device, url string) error
	SetPermission(ctx context.Context, device, action, service, bundleID string) error
	SetLocation(ctx context.Context, device string, lat, lon float64) error
	Screenshot(ctx context.Context, device, path string) error
	AppContainer(ctx context.Context, device, bundleID string) (string, error)
	RecentLogs(ctx context.Context, device, bundleID string, since time.Duration) ([]string, error)
	CheckTools(ctx context.Context) []entity.ToolCheck
}

// BackendProbe reports whether the UI automation backend answers.
type BackendProbe interface {
	Ready(ctx context.Context) bool
}

type StateStore interface {
	LastBundleID() string
	SetLastBundleID(bundleID string) error
}

type CrashReporter interface {
	LatestCrashReport(appName string) (path string, body string, err error)
}
