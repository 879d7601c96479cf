package usecase

import (
	"context"
	"errors"
	"pippin/internal/config"
	"pippin/internal/entity"
	"time"

	"go.uber.org/zap"
)

type fakeSnapshots struct {
	frames [][]*entity.Node
	err    error
	calls  int
}

// FetchSnapshot replays frames in order and keeps returning the last one.
func (f *fakeSnapshots) FetchSnapshot(_ context.Context, _ string) ([]*entity.Node, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.frames) == 0 {
		return nil, nil
	}

	i := f.calls - 1
	if i >= len(f.frames) {
		i = len(f.frames) - 1
	}

	return f.frames[i], nil
}

type fakeDevices struct {
	device string
	err    error
	booted []entity.Device
	calls  int
}

func (f *fakeDevices) ResolveTargetDevice(context.Context) (string, error) {
	f.calls++

	return f.device, f.err
}

func (f *fakeDevices) ListBooted(context.Context) ([]entity.Device, error) {
	return f.booted, nil
}

type swipeCall struct {
	from, to entity.Point
	duration time.Duration
}

type fakeActuator struct {
	taps   []entity.Point
	swipes []swipeCall
	typed  []string
	keys   []string
	err    error
}

func (f *fakeActuator) Tap(_ context.Context, x, y float64) error {
	if f.err != nil {
		return f.err
	}
	f.taps = append(f.taps, entity.Point{X: x, Y: y})

	return nil
}

func (f *fakeActuator) Swipe(_ context.Context, from, to entity.Point, duration time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.swipes = append(f.swipes, swipeCall{from: from, to: to, duration: duration})

	return nil
}

func (f *fakeActuator) TypeText(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.typed = append(f.typed, text)

	return nil
}

func (f *fakeActuator) PressKey(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)

	return nil
}

type fakeApps struct {
	launched    []entity.LaunchOptions
	terminated  []string
	opened      []string
	permissions [][3]string
	container   string
	running     bool
	logs        []string
	tools       []entity.ToolCheck
	err         error
}

func (f *fakeApps) Launch(_ context.Context, _ string, opts entity.LaunchOptions) error {
	if f.err != nil {
		return f.err
	}
	f.launched = append(f.launched, opts)

	return nil
}

func (f *fakeApps) Terminate(_ context.Context, _ string, bundleID string) error {
	f.terminated = append(f.terminated, bundleID)

	return f.err
}

func (f *fakeApps) IsRunning(context.Context, string, string) (bool, error) {
	return f.running, f.err
}

func (f *fakeApps) OpenURL(_ context.Context, _ string, url string) error {
	f.opened = append(f.opened, url)

	return f.err
}

func (f *fakeApps) SetPermission(_ context.Context, _ string, action, service, bundleID string) error {
	f.permissions = append(f.permissions, [3]string{action, service, bundleID})

	return f.err
}

func (f *fakeApps) SetLocation(context.Context, string, float64, float64) error {
	return f.err
}

func (f *fakeApps) Screenshot(context.Context, string, string) error {
	return f.err
}

func (f *fakeApps) AppContainer(context.Context, string, string) (string, error) {
	return f.container, f.err
}

func (f *fakeApps) RecentLogs(context.Context, string, string, time.Duration) ([]string, error) {
	return f.logs, f.err
}

func (f *fakeApps) CheckTools(context.Context) []entity.ToolCheck {
	return f.tools
}

type fakeState struct {
	id  string
	err error
}

func (f *fakeState) LastBundleID() string {
	return f.id
}

func (f *fakeState) SetLastBundleID(id string) error {
	if f.err != nil {
		return f.err
	}
	f.id = id

	return nil
}

type fakeCrashes struct {
	path, body string
	err        error
	asked      string
}

func (f *fakeCrashes) LatestCrashReport(appName string) (string, string, error) {
	f.asked = appName

	return f.path, f.body, f.err
}

type fakeProbe struct {
	ready bool
}

func (f *fakeProbe) Ready(context.Context) bool {
	return f.ready
}

// fakeClock advances by step on every sleep.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)

	return nil
}

var errBackend = errors.New("backend down")

type harness struct {
	snapshots *fakeSnapshots
	devices   *fakeDevices
	actuator  *fakeActuator
	apps      *fakeApps
	state     *fakeState
	crashes   *fakeCrashes
	probe     *fakeProbe
	config    *config.Config
	session   *Session
	locator   *Locator
	scroller  *Scroller
}

func newHarness(frames ...[]*entity.Node) *harness {
	h := &harness{
		snapshots: &fakeSnapshots{frames: frames},
		devices:   &fakeDevices{device: "SIM-1"},
		actuator:  &fakeActuator{},
		apps:      &fakeApps{},
		state:     &fakeState{},
		crashes:   &fakeCrashes{},
		probe:     &fakeProbe{},
		config: &config.Config{
			AppConfig:    &config.AppConfig{},
			DeviceConfig: &config.DeviceConfig{},
			WDAConfig:    &config.WDAConfig{},
			ScrollConfig: &config.ScrollConfig{
				MaxAttempts:  10,
				Delay:        time.Second,
				PollInterval: 500 * time.Millisecond,
			},
		},
	}

	logger := zap.NewNop()
	h.session = NewSession(SessionParams{
		Logger:    logger,
		Snapshots: h.snapshots,
		Devices:   h.devices,
	})
	h.locator = NewLocator(logger)
	h.scroller = NewScroller(h.session, h.locator, h.actuator, logger)
	h.scroller.sleep = func(context.Context, time.Duration) error { return nil }

	return h
}

func (h *harness) interaction() *InteractionService {
	return NewInteractionService(InteractionServiceParams{
		Config:   h.config,
		Logger:   zap.NewNop(),
		Session:  h.session,
		Actuator: h.actuator,
		Locator:  h.locator,
		Scroller: h.scroller,
	})
}

func (h *harness) verification(clock *fakeClock) *VerificationService {
	s := NewVerificationService(VerificationServiceParams{
		Config:   h.config,
		Logger:   zap.NewNop(),
		Session:  h.session,
		Locator:  h.locator,
		Scroller: h.scroller,
	})
	if clock != nil {
		s.now = clock.Now
		s.sleep = clock.Sleep
	}

	return s
}

func (h *harness) vision() *VisionService {
	return NewVisionService(VisionServiceParams{
		Config:  h.config,
		Logger:  zap.NewNop(),
		Session: h.session,
		Apps:    h.apps,
		Devices: h.devices,
		State:   h.state,
	})
}

func (h *harness) system() *SystemService {
	return NewSystemService(SystemServiceParams{
		Config:  h.config,
		Logger:  zap.NewNop(),
		Session: h.session,
		Apps:    h.apps,
		Devices: h.devices,
		State:   h.state,
		Crashes: h.crashes,
		Probe:   h.probe,
	})
}

func frame(x, y, w, h float64) *entity.Frame {
	return &entity.Frame{X: x, Y: y, Width: w, Height: h}
}

func hidden() *bool {
	v := false

	return &v
}

func node(role, id, label string, f *entity.Frame, children ...*entity.Node) *entity.Node {
	return &entity.Node{
		Role:       role,
		Identifier: id,
		Label:      label,
		Frame:      f,
		Children:   children,
	}
}
