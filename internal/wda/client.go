package wda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"pippin/pkg/tracing"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	wdaClientName = "WDAClient"
	wdaTracer     = "wda.client"

	startPollInterval = time.Second
	tapPause          = 50
	enterKey          = "ENTER"
)

var errStaleSession = errors.New("WDA session stale or endpoint not found")

// Launcher starts WebDriverAgent on a simulator when it is not answering.
type Launcher interface {
	ResolveTargetDevice(ctx context.Context) (string, error)
	LaunchWDA(ctx context.Context, device string) error
}

// Client talks to WebDriverAgent over HTTP. It implements the snapshot,
// actuator and backend probe ports.
type Client struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
	launcher   Launcher
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	sessionID string
	ready     bool
}

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Launcher Launcher `optional:"true"`
}

func NewClient(params Params) *Client {
	return &Client{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, wdaClientName)),
		tracer:     otel.Tracer(wdaTracer),
		httpClient: &http.Client{Timeout: params.Config.WDAConfig.RequestTimeout},
		launcher:   params.Launcher,
		sleep:      sleepContext,
	}
}

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

type statusResponse struct {
	Ready *bool `json:"ready"`
	Value struct {
		Ready *bool `json:"ready"`
	} `json:"value"`
}

// Ready reports whether WDA answers /status with ready=true.
func (c *Client) Ready(ctx context.Context) bool {
	body, err := c.request(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		c.logger.Debug("WDA status check failed", zap.Error(err))

		return false
	}

	var status statusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return false
	}

	if status.Value.Ready != nil && *status.Value.Ready {
		return true
	}

	return status.Ready != nil && *status.Ready
}

// FetchSnapshot returns the page source as a single-root forest.
func (c *Client) FetchSnapshot(ctx context.Context, device string) (roots []*entity.Node, err error) {
	const op = "FetchSnapshot"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Device, device))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String(logg.Device, device))
	defer func() {
		step.End(err)
	}()

	if err := c.ensureReady(ctx, device); err != nil {
		return nil, err
	}

	var body []byte
	err = c.withSession(ctx, func(id string) error {
		var reqErr error
		body, reqErr = c.request(ctx, http.MethodGet, "/session/"+id+"/source", nil)

		return reqErr
	})
	if err != nil {
		return nil, c.wrap(op, err)
	}

	step.AddEvent("parsing source", attribute.Int("bytes", len(body)))

	doc := DecodeSource(body)
	if len(doc) == 0 {
		return nil, nil
	}

	root, err := ParseSource(doc)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("failed to parse source tree: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageWDA,
		})
	}

	return []*entity.Node{root}, nil
}

func (c *Client) Tap(ctx context.Context, x, y float64) error {
	return c.perform(ctx, "Tap", []map[string]any{
		{"type": "pointerMove", "duration": 0, "x": x, "y": y},
		{"type": "pointerDown", "button": 0},
		{"type": "pause", "duration": tapPause},
		{"type": "pointerUp", "button": 0},
	})
}

// Swipe is a touch pointer drag, which scrolls content instead of dragging
// the element under the finger.
func (c *Client) Swipe(ctx context.Context, from, to entity.Point, duration time.Duration) error {
	return c.perform(ctx, "Swipe", []map[string]any{
		{"type": "pointerMove", "duration": 0, "x": int(from.X), "y": int(from.Y)},
		{"type": "pointerDown", "button": 0},
		{"type": "pointerMove", "duration": duration.Milliseconds(), "x": int(to.X), "y": int(to.Y)},
		{"type": "pointerUp", "button": 0},
	})
}

func (c *Client) TypeText(ctx context.Context, text string) error {
	keys := make([]string, 0, len(text))
	for _, r := range text {
		keys = append(keys, string(r))
	}

	return c.sendKeys(ctx, "TypeText", keys)
}

func (c *Client) PressKey(ctx context.Context, key string) error {
	if strings.EqualFold(key, enterKey) {
		key = "\n"
	}

	return c.sendKeys(ctx, "PressKey", []string{key})
}

func (c *Client) perform(ctx context.Context, op string, steps []map[string]any) (err error) {
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := c.ensureReady(ctx, ""); err != nil {
		return err
	}

	payload := map[string]any{
		"actions": []map[string]any{{
			"type":       "pointer",
			"id":         "finger1",
			"parameters": map[string]any{"pointerType": "touch"},
			"actions":    steps,
		}},
	}

	err = c.withSession(ctx, func(id string) error {
		_, reqErr := c.request(ctx, http.MethodPost, "/session/"+id+"/actions", payload)

		return reqErr
	})
	if err != nil {
		return c.wrap(op, err)
	}

	return nil
}

func (c *Client) sendKeys(ctx context.Context, op string, keys []string) (err error) {
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("keys", len(keys)))
	defer func() {
		step.End(err)
	}()

	if err := c.ensureReady(ctx, ""); err != nil {
		return err
	}

	err = c.withSession(ctx, func(id string) error {
		_, reqErr := c.request(ctx, http.MethodPost, "/session/"+id+"/wda/keys", map[string]any{"value": keys})

		return reqErr
	})
	if err != nil {
		return c.wrap(op, err)
	}

	return nil
}

// ensureReady checks /status once per client and, when allowed, launches WDA
// on device and polls until it answers or the start timeout passes.
func (c *Client) ensureReady(ctx context.Context, device string) (err error) {
	const op = "ensureReady"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}
	if c.Ready(ctx) {
		c.ready = true

		return nil
	}

	url := c.config.WDAConfig.URL
	if !c.config.WDAConfig.AutoStart || c.launcher == nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, fmt.Errorf("WebDriverAgent is not running at %s", url), map[string]any{
			apperr.MetaStage: apperr.StageWDA,
			apperr.MetaURL:   url,
		})
	}

	logger := c.logger.With(zap.String(logg.Operation, op))
	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if device == "" {
		device, err = c.launcher.ResolveTargetDevice(ctx)
		if err != nil {
			return err
		}
	}

	logger.Info("Starting WebDriverAgent", zap.String(logg.Device, device))

	if err := c.launcher.LaunchWDA(ctx, device); err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, fmt.Errorf("failed to launch WebDriverAgent: %w", err), map[string]any{
			apperr.MetaStage:  apperr.StageWDA,
			apperr.MetaDevice: device,
		})
	}

	timeout := c.config.WDAConfig.StartTimeout
	for waited := time.Duration(0); waited < timeout; waited += startPollInterval {
		if err := c.sleep(ctx, startPollInterval); err != nil {
			return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
				apperr.MetaStage: apperr.StageWDA,
			})
		}

		step.AddEvent("status poll", attribute.String("waited", waited.String()))

		if c.Ready(ctx) {
			c.ready = true

			return nil
		}
	}

	return apperr.Wrap(op, apperr.CodeUnavailable, fmt.Errorf("WebDriverAgent did not become ready within %s", timeout), map[string]any{
		apperr.MetaStage:  apperr.StageWDA,
		apperr.MetaDevice: device,
	})
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Value     struct {
		SessionID string `json:"sessionId"`
	} `json:"value"`
}

func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID != "" {
		return c.sessionID, nil
	}

	body, err := c.request(ctx, http.MethodPost, "/session", map[string]any{"capabilities": map[string]any{}})
	if err != nil {
		return "", err
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}

	id := resp.SessionID
	if id == "" {
		id = resp.Value.SessionID
	}
	if id == "" {
		return "", errors.New("WDA returned no session id")
	}

	c.sessionID = id
	c.logger.Debug("WDA session created", zap.String(logg.Session, id))

	return id, nil
}

// withSession runs fn with the current session and retries exactly once with
// a fresh session when WDA reports the old one as gone.
func (c *Client) withSession(ctx context.Context, fn func(id string) error) error {
	id, err := c.session(ctx)
	if err != nil {
		return err
	}

	err = fn(id)
	if !errors.Is(err, errStaleSession) {
		return err
	}

	c.logger.Debug("WDA session stale, recreating", zap.String(logg.Session, id))

	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()

	if id, err = c.session(ctx); err != nil {
		return err
	}

	return fn(id)
}

func (c *Client) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	url := strings.TrimRight(c.config.WDAConfig.URL, "/") + path

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap("request", apperr.CodeUnavailable, fmt.Errorf("WDA connection failed: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageWDA,
			apperr.MetaURL:   url,
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read WDA response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", errStaleSession, url)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("WDA request failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func (c *Client) wrap(op string, err error) error {
	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		code = apperr.CodeActionFailed
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaStage: apperr.StageWDA,
	})
}
