package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"pippin/internal/config"
	"pippin/internal/entity"
	"pippin/internal/wda"
	"pippin/pkg/apperr"
	"pippin/pkg/logg"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	providerName = "FixtureProvider"

	// Device is the pseudo UDID reported while replaying a fixture.
	Device = "fixture"
)

// Provider replays an accessibility snapshot from a file. The file is re-read
// on every fetch so it can be edited between commands.
type Provider struct {
	path   string
	logger *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewProvider(params Params) *Provider {
	return &Provider{
		path:   params.Config.DeviceConfig.SnapshotFile,
		logger: params.Logger.With(zap.String(logg.Layer, providerName)),
	}
}

func (p *Provider) FetchSnapshot(_ context.Context, _ string) ([]*entity.Node, error) {
	const op = "FixtureProvider.FetchSnapshot"

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaStage: apperr.StageSnapshot,
		})
	}

	roots, err := Decode(filepath.Ext(p.path), data)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("decode %s: %w", p.path, err), map[string]any{
			apperr.MetaStage: apperr.StageSnapshot,
		})
	}

	p.logger.Debug("Fixture loaded", zap.String("path", p.path), zap.Int(logg.Count, len(roots)))

	return roots, nil
}

// Decode accepts a JSON or YAML forest (or single root) in either the native
// or the AX dump spelling, or a WDA XML page source.
func Decode(ext string, data []byte) ([]*entity.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}

		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}

		return decodeJSON(converted)
	}

	if trimmed[0] == '<' {
		return decodeXML(trimmed)
	}

	if doc := wda.DecodeSource(trimmed); len(doc) > 0 && doc[0] == '<' {
		return decodeXML(doc)
	}

	return decodeJSON(trimmed)
}

func decodeXML(doc []byte) ([]*entity.Node, error) {
	root, err := wda.ParseSource(doc)
	if err != nil {
		return nil, err
	}

	return []*entity.Node{root}, nil
}

func decodeJSON(data []byte) ([]*entity.Node, error) {
	if data[0] == '[' {
		if !json.Valid(data) {
			return nil, errors.New("malformed JSON array")
		}

		return entity.DecodeNodes(data), nil
	}

	var root entity.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	return []*entity.Node{&root}, nil
}

func (p *Provider) ResolveTargetDevice(context.Context) (string, error) {
	return Device, nil
}

func (p *Provider) ListBooted(context.Context) ([]entity.Device, error) {
	return []entity.Device{{UDID: Device, Name: filepath.Base(p.path), State: "Booted"}}, nil
}
