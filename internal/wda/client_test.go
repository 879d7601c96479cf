package wda

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/pkg/apperr"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedCall struct {
	method string
	path   string
	body   map[string]any
}

// mockWDA is a minimal WebDriverAgent: one live session at a time, a static
// page source, and a switchable readiness flag.
type mockWDA struct {
	mu       sync.Mutex
	ready    bool
	sessions int
	live     string
	calls    []recordedCall
	source   string
}

func (m *mockWDA) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		call := recordedCall{method: r.Method, path: r.URL.Path}
		if r.Body != nil && r.ContentLength != 0 {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&call.body))
		}
		m.calls = append(m.calls, call)

		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/status":
			_ = json.NewEncoder(w).Encode(map[string]any{"value": map[string]any{"ready": m.ready}})
		case r.URL.Path == "/session" && r.Method == http.MethodPost:
			m.sessions++
			m.live = "session-" + string(rune('0'+m.sessions))
			_ = json.NewEncoder(w).Encode(map[string]any{"value": map[string]any{"sessionId": m.live}})
		case !strings.HasPrefix(r.URL.Path, "/session/"+m.live+"/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"value":{"error":"invalid session id"}}`))
		case strings.HasSuffix(r.URL.Path, "/source"):
			_ = json.NewEncoder(w).Encode(map[string]any{"value": m.source})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"value": nil})
		}
	})
}

func (m *mockWDA) callsTo(suffix string) []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []recordedCall
	for _, c := range m.calls {
		if strings.HasSuffix(c.path, suffix) {
			out = append(out, c)
		}
	}

	return out
}

type fakeLauncher struct {
	mock     *mockWDA
	launched []string
	err      error
}

func (f *fakeLauncher) ResolveTargetDevice(context.Context) (string, error) {
	return "SIM-1", nil
}

func (f *fakeLauncher) LaunchWDA(_ context.Context, device string) error {
	f.launched = append(f.launched, device)
	if f.err != nil {
		return f.err
	}

	f.mock.mu.Lock()
	f.mock.ready = true
	f.mock.mu.Unlock()

	return nil
}

func newTestClient(t *testing.T, mock *mockWDA, launcher Launcher) *Client {
	t.Helper()

	server := httptest.NewServer(mock.handler(t))
	t.Cleanup(server.Close)

	cfg := &config.Config{WDAConfig: &config.WDAConfig{
		URL:            server.URL,
		StartTimeout:   3 * time.Second,
		RequestTimeout: 5 * time.Second,
		AutoStart:      launcher != nil,
	}}

	c := NewClient(Params{Config: cfg, Logger: zap.NewNop(), Launcher: launcher})
	c.sleep = func(context.Context, time.Duration) error { return nil }

	return c
}

func TestFetchSnapshot(t *testing.T) {
	mock := &mockWDA{ready: true, source: loginSource}
	c := newTestClient(t, mock, nil)

	roots, err := c.FetchSnapshot(context.Background(), "SIM-1")

	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "application", roots[0].Role)
	require.Len(t, mock.callsTo("/source"), 1)
}

func TestFetchSnapshotEmptySource(t *testing.T) {
	mock := &mockWDA{ready: true, source: ""}
	c := newTestClient(t, mock, nil)

	roots, err := c.FetchSnapshot(context.Background(), "SIM-1")

	require.NoError(t, err)
	require.Nil(t, roots)
}

func TestStaleSessionRetriedOnce(t *testing.T) {
	mock := &mockWDA{ready: true, source: loginSource}
	c := newTestClient(t, mock, nil)
	c.sessionID = "expired"

	_, err := c.FetchSnapshot(context.Background(), "SIM-1")

	require.NoError(t, err)
	require.Equal(t, 1, mock.sessions)
	require.Equal(t, "session-1", c.sessionID)
	require.Len(t, mock.callsTo("/source"), 2)
}

func TestTapPayload(t *testing.T) {
	mock := &mockWDA{ready: true}
	c := newTestClient(t, mock, nil)

	require.NoError(t, c.Tap(context.Background(), 60, 45.5))

	calls := mock.callsTo("/actions")
	require.Len(t, calls, 1)
	require.Equal(t, "/session/session-1/actions", calls[0].path)

	pointer := calls[0].body["actions"].([]any)[0].(map[string]any)
	require.Equal(t, "finger1", pointer["id"])
	require.Equal(t, map[string]any{"pointerType": "touch"}, pointer["parameters"])

	steps := pointer["actions"].([]any)
	require.Len(t, steps, 4)
	require.Equal(t, map[string]any{"type": "pointerMove", "duration": float64(0), "x": 60.0, "y": 45.5}, steps[0])
	require.Equal(t, map[string]any{"type": "pause", "duration": float64(50)}, steps[2])
}

func TestSwipePayload(t *testing.T) {
	mock := &mockWDA{ready: true}
	c := newTestClient(t, mock, nil)

	err := c.Swipe(context.Background(), entity.Point{X: 187.6, Y: 568}, entity.Point{X: 187.6, Y: 244}, 500*time.Millisecond)
	require.NoError(t, err)

	steps := mock.callsTo("/actions")[0].body["actions"].([]any)[0].(map[string]any)["actions"].([]any)
	require.Equal(t, map[string]any{"type": "pointerMove", "duration": float64(0), "x": float64(187), "y": float64(568)}, steps[0])
	require.Equal(t, map[string]any{"type": "pointerMove", "duration": float64(500), "x": float64(187), "y": float64(244)}, steps[2])
}

func TestTypeTextAndEnter(t *testing.T) {
	mock := &mockWDA{ready: true}
	c := newTestClient(t, mock, nil)

	require.NoError(t, c.TypeText(context.Background(), "héy"))
	require.NoError(t, c.PressKey(context.Background(), "enter"))

	calls := mock.callsTo("/wda/keys")
	require.Len(t, calls, 2)
	require.Equal(t, []any{"h", "é", "y"}, calls[0].body["value"])
	require.Equal(t, []any{"\n"}, calls[1].body["value"])
}

func TestReady(t *testing.T) {
	mock := &mockWDA{}
	c := newTestClient(t, mock, nil)

	require.False(t, c.Ready(context.Background()))

	mock.ready = true
	require.True(t, c.Ready(context.Background()))
}

func TestNotRunningWithoutAutostart(t *testing.T) {
	mock := &mockWDA{}
	c := newTestClient(t, mock, nil)

	_, err := c.FetchSnapshot(context.Background(), "SIM-1")

	require.Error(t, err)
	require.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
	require.Empty(t, mock.callsTo("/source"))
}

func TestAutostartLaunchesWDA(t *testing.T) {
	mock := &mockWDA{source: loginSource}
	launcher := &fakeLauncher{mock: mock}
	c := newTestClient(t, mock, launcher)

	require.NoError(t, c.Tap(context.Background(), 1, 1))
	require.Equal(t, []string{"SIM-1"}, launcher.launched)

	_, err := c.FetchSnapshot(context.Background(), "SIM-1")
	require.NoError(t, err)
	require.Len(t, launcher.launched, 1)
}

func TestAutostartGivesUp(t *testing.T) {
	mock := &mockWDA{}
	launcher := &fakeLauncher{mock: &mockWDA{}}
	c := newTestClient(t, mock, launcher)

	_, err := c.FetchSnapshot(context.Background(), "SIM-9")

	require.Error(t, err)
	require.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
	require.Contains(t, apperr.Message(err), "did not become ready within 3s")
	require.Equal(t, []string{"SIM-9"}, launcher.launched)
	// initial check plus one poll per second of the start timeout
	require.Len(t, mock.callsTo("/status"), 4)
}

func TestConnectionFailureIsUnavailable(t *testing.T) {
	cfg := &config.Config{WDAConfig: &config.WDAConfig{URL: "http://127.0.0.1:1", RequestTimeout: time.Second}}
	c := NewClient(Params{Config: cfg, Logger: zap.NewNop()})

	require.False(t, c.Ready(context.Background()))

	_, err := c.session(context.Background())
	require.Equal(t, apperr.CodeUnavailable, apperr.CodeOf(err))
}
