// Package config loads the process-wide configuration object described
// in SPEC_FULL.md §6 (EXPANSION): a single read-only struct constructed
// once at startup and shared by reference, per SPEC_FULL.md §9's "global
// configuration" design note. It generalizes the teacher's hand-rolled
// getEnv/getEnvAsInt defaulting pattern into a layered loader — a YAML
// file via viper, whose path comes from a `--config` command-line flag
// parsed with pflag, overridable by environment variables — rather than
// adding a library-free rewrite of the same idea.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wx-endec/eas-listener/internal/filter"
)

// Stream is one configured source URL with the label used throughout the
// pipeline to identify it (RecordingSlot source-stickiness, monitoring
// notes, alert source_label).
type Stream struct {
	Label string `mapstructure:"label"`
	URL   string `mapstructure:"url"`
}

// Config is the single configuration object every component receives by
// reference at construction time.
type Config struct {
	Streams     []Stream `mapstructure:"streams"`
	WatchedFIPS []string `mapstructure:"watched_fips"`
	Timezone    string   `mapstructure:"timezone"`

	AlertLogPath string `mapstructure:"alert_log_path"`
	StateDir     string `mapstructure:"state_dir"`
	RecordingDir string `mapstructure:"recording_dir"`

	MonitorBindAddr string `mapstructure:"monitor_bind_addr"`
	MonitorCapacity int    `mapstructure:"monitor_capacity"`

	RelayEnabled bool          `mapstructure:"relay_enabled"`
	RelayURL     string        `mapstructure:"relay_url"`
	RelayFilters []filter.Rule `mapstructure:"relay_filters"`
	IntroPath    string        `mapstructure:"intro_path"`
	OutroPath    string        `mapstructure:"outro_path"`

	DecoderPath     string `mapstructure:"decoder_path"`
	RecorderBitrate string `mapstructure:"recorder_bitrate"`
	SampleRate      string `mapstructure:"sample_rate"`
	Channels        string `mapstructure:"channels"`

	AppriseConfigPath  string   `mapstructure:"apprise_config_path"`
	DiscordWebhookURLs []string `mapstructure:"discord_webhook_urls"`
	MonitorLabel       string   `mapstructure:"monitor_label"`

	DashboardBindAddr string `mapstructure:"dashboard_bind_addr"`
	DashboardUsername string `mapstructure:"dashboard_username"`
	DashboardPassword string `mapstructure:"dashboard_password"`
	JWTSecret         string `mapstructure:"jwt_secret"`

	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`
}

// Location resolves the configured timezone, defaulting to UTC on an
// empty or invalid value rather than aborting startup.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WatchedFIPSSet returns the watched FIPS list as a lookup set, matching
// eas.Data.IsRelevant's expected shape.
func (c *Config) WatchedFIPSSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.WatchedFIPS))
	for _, f := range c.WatchedFIPS {
		set[f] = struct{}{}
	}
	return set
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "UTC")
	v.SetDefault("alert_log_path", "./data/alerts.log")
	v.SetDefault("state_dir", "./data/state")
	v.SetDefault("recording_dir", "./data/recordings")
	v.SetDefault("monitor_bind_addr", ":9090")
	v.SetDefault("monitor_capacity", 256)
	v.SetDefault("relay_enabled", false)
	v.SetDefault("decoder_path", "./bin/decoder")
	v.SetDefault("recorder_bitrate", "128k")
	v.SetDefault("sample_rate", "48000")
	v.SetDefault("channels", "1")
	v.SetDefault("monitor_label", "Monitor 1")
	v.SetDefault("dashboard_bind_addr", ":8090")
	v.SetDefault("dashboard_username", "admin")
	v.SetDefault("dashboard_password", "change-me-in-production-please")
	v.SetDefault("jwt_secret", "change-me-in-production-please")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "./data/logs")
}

// Load builds a Config by layering, lowest precedence first: built-in
// defaults, an optional YAML file (path from --config, or from
// EAS_CONFIG_FILE when the flag is not given), and environment variables
// prefixed EAS_ (e.g. EAS_RELAY_ENABLED). --config is the only
// command-line flag; it selects the file and sets no Config field.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("eas-listener", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := *configPath
	if path == "" {
		path = v.GetString("config_file")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("config: binding flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if len(cfg.Streams) == 0 {
		return nil, fmt.Errorf("config: at least one stream must be configured")
	}

	return &cfg, nil
}
