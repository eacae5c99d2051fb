// Package server wires the catalogue, request pipeline and capabilities
// builder into an HTTP front door: a fixed-size worker pool fed by an
// echo router, configured via viper and instrumented with Prometheus
// metrics (spec §5, §6.4). Grounded on the teacher's CLI config/flag
// layer, generalized from one-shot command flags to a long-lived server
// configuration.
package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the startup settings that environment variables can
// override: listening socket, worker count, log level and log path, the
// locations of the layers/TMS/styles/services XML configuration loaded by
// internal/confload, and the request-timeout, metrics-address, cache-size
// and remote-throttling settings below. The catalogue itself comes from
// that XML configuration.
type Config struct {
	ListenAddr  string `mapstructure:"LISTEN_ADDR"`
	WorkerCount int    `mapstructure:"WORKER_COUNT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPath     string `mapstructure:"LOG_PATH"`

	LayersDir   string `mapstructure:"LAYERS_DIR"`
	TMSDir      string `mapstructure:"TMS_DIR"`
	StylesDir   string `mapstructure:"STYLES_DIR"`
	ServicesCfg string `mapstructure:"SERVICES_CONFIG"`

	RequestTimeoutSeconds int `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	MetricsAddr           string `mapstructure:"METRICS_ADDR"`

	// BBoxCacheSize bounds the capabilities builder's per-(layer,crs) bbox
	// cache (spec §4.7).
	BBoxCacheSize int `mapstructure:"BBOX_CACHE_SIZE"`
	// MaxOpenSlabFiles bounds the tile source's open-file LRU.
	MaxOpenSlabFiles int `mapstructure:"MAX_OPEN_SLAB_FILES"`

	// RemoteRPS/RemoteBurst throttle cascaded on-demand tile fetches to an
	// upstream WMTS endpoint (spec §3.1's on-demand pyramid with a remote
	// source), one limiter per distinct upstream base URL.
	RemoteRPS   float64 `mapstructure:"REMOTE_RPS"`
	RemoteBurst int     `mapstructure:"REMOTE_BURST"`

	// MaxOpenCogFiles bounds the on-demand COG reader's open-file LRU,
	// mirroring MaxOpenSlabFiles for the local-raster-file source kind.
	MaxOpenCogFiles int `mapstructure:"MAX_OPEN_COG_FILES"`
}

// LoadConfig reads overrides from environment variables (viper's
// AutomaticEnv), falling back to the given defaults (spec §6.4: "No
// dynamic configuration reload: changes require restart").
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TILESERVER")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("WORKER_COUNT", 16)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("LAYERS_DIR", "./conf/layers")
	v.SetDefault("TMS_DIR", "./conf/tileMatrixSet")
	v.SetDefault("STYLES_DIR", "./conf/styles")
	v.SetDefault("SERVICES_CONFIG", "./conf/services.xml")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("BBOX_CACHE_SIZE", 512)
	v.SetDefault("MAX_OPEN_SLAB_FILES", 256)
	v.SetDefault("REMOTE_RPS", 20.0)
	v.SetDefault("REMOTE_BURST", 10)
	v.SetDefault("MAX_OPEN_COG_FILES", 64)

	for _, key := range []string{
		"LISTEN_ADDR", "WORKER_COUNT", "LOG_LEVEL", "LOG_PATH",
		"LAYERS_DIR", "TMS_DIR", "STYLES_DIR", "SERVICES_CONFIG",
		"REQUEST_TIMEOUT_SECONDS", "METRICS_ADDR", "BBOX_CACHE_SIZE",
		"MAX_OPEN_SLAB_FILES", "REMOTE_RPS", "REMOTE_BURST",
		"MAX_OPEN_COG_FILES",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("server: binding %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("server: unmarshalling config: %w", err)
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return cfg, nil
}
