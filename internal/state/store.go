package state

import (
	"errors"
	"io/fs"
	"os"
	"pippin/internal/config"
	"pippin/pkg/logg"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const storeName = "StateStore"

// FileStore keeps the last launched bundle id in a single plain-text file.
// Concurrent writers race; the last one wins.
type FileStore struct {
	path   string
	logger *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewFileStore(params Params) *FileStore {
	return &FileStore{
		path:   params.Config.DeviceConfig.StateFile,
		logger: params.Logger.With(zap.String(logg.Layer, storeName)),
	}
}

// LastBundleID returns "" when the file is missing, unreadable or blank.
func (s *FileStore) LastBundleID() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("State file unreadable", zap.String("path", s.path), zap.Error(err))
		}

		return ""
	}

	return strings.TrimSpace(string(data))
}

func (s *FileStore) SetLastBundleID(bundleID string) error {
	return os.WriteFile(s.path, []byte(bundleID), 0o644)
}
