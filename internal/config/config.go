package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig    *AppConfig
	DeviceConfig *DeviceConfig
	WDAConfig    *WDAConfig
	ScrollConfig *ScrollConfig
}

type AppConfig struct {
	LogLevel     string `envconfig:"LOG_LEVEL" default:"warn"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`
	TraceEnabled bool   `envconfig:"TRACE_ENABLED" default:"false"`
}

type DeviceConfig struct {
	UDID         string `envconfig:"PIPPIN_DEVICE_UDID"`
	StateFile    string `envconfig:"PIPPIN_STATE_FILE" default:"/tmp/pippin_last_bundle_id"`
	SnapshotFile string `envconfig:"PIPPIN_SNAPSHOT_FILE"`
	// CrashDir defaults to ~/Library/Logs/DiagnosticReports when empty.
	CrashDir string `envconfig:"PIPPIN_CRASH_DIR"`
}

type WDAConfig struct {
	URL            string        `envconfig:"PIPPIN_WDA_URL" default:"http://localhost:8100"`
	BundleID       string        `envconfig:"PIPPIN_WDA_BUNDLE_ID" default:"com.facebook.WebDriverAgentRunner.xctrunner"`
	StartTimeout   time.Duration `envconfig:"PIPPIN_WDA_START_TIMEOUT" default:"15s"`
	RequestTimeout time.Duration `envconfig:"PIPPIN_WDA_REQUEST_TIMEOUT" default:"30s"`
	AutoStart      bool          `envconfig:"PIPPIN_WDA_AUTOSTART" default:"true"`
	// AppDir holds a prebuilt WebDriverAgentRunner .app, ~/.pippin/wda when empty.
	AppDir string `envconfig:"PIPPIN_WDA_APP_DIR"`
}

type ScrollConfig struct {
	MaxAttempts  int           `envconfig:"PIPPIN_SCROLL_MAX_ATTEMPTS" default:"10"`
	Delay        time.Duration `envconfig:"PIPPIN_SCROLL_DELAY" default:"1s"`
	PollInterval time.Duration `envconfig:"PIPPIN_WAIT_POLL_INTERVAL" default:"500ms"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
