package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	cfgMux sync.RWMutex
	Fleet  *FleetCfg

	Version = "dev"
)

const configPath = "fleet.yaml"

type FleetCfg struct {
	Debug struct {
		Log bool `yaml:"log"`
	} `yaml:"debug"`
	LogSaveDirectory string `yaml:"logSaveDirectory"`

	Dashboard struct {
		Port     int    `yaml:"port"`
		HeadBase string `yaml:"headBase"`
	} `yaml:"dashboard"`

	Server struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		Version string `yaml:"version"` // empty = auto-negotiate
		// Backend selects the actor implementation: "sim" runs the
		// in-process simulated world, anything else must be wired by the
		// embedding build.
		Backend           string `yaml:"backend"`
		StatusPollSeconds int    `yaml:"statusPollSeconds"`
	} `yaml:"server"`

	Telemetry struct {
		IntervalSeconds int `yaml:"intervalSeconds"`
	} `yaml:"telemetry"`

	Reconnect struct {
		BackoffSeconds int `yaml:"backoffSeconds"`
	} `yaml:"reconnect"`

	AntiIdle struct {
		MinDelaySeconds int `yaml:"minDelaySeconds"`
		MaxDelaySeconds int `yaml:"maxDelaySeconds"`
	} `yaml:"antiIdle"`

	Discord struct {
		Enabled    bool   `yaml:"enabled"`
		ChannelID  string `yaml:"channelId"`
		Token      string `yaml:"token"`
		UseWebhook bool   `yaml:"useWebhook"`
		WebhookURL string `yaml:"webhookUrl"`
	} `yaml:"discord"`

	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		ChatID  int64  `yaml:"chatId"`
		Token   string `yaml:"token"`
	} `yaml:"telegram"`
}

// Load reads fleet.yaml, fills defaults for anything unset and applies the
// environment overrides (PORT, SERVER_HOST, SERVER_PORT, MINECRAFT_VERSION,
// HEAD_BASE). A missing config file is not an error: the defaults describe
// a working local setup.
func Load() error {
	cfgMux.Lock()
	defer cfgMux.Unlock()

	cfg := &FleetCfg{}

	raw, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("error parsing %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return fmt.Errorf("error reading %s: %w", configPath, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return err
	}

	Fleet = cfg
	return nil
}

func applyDefaults(cfg *FleetCfg) {
	if cfg.Dashboard.Port == 0 {
		cfg.Dashboard.Port = 3000
	}
	if cfg.Dashboard.HeadBase == "" {
		cfg.Dashboard.HeadBase = "https://minotar.net/helm"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 25565
	}
	if cfg.Server.Backend == "" {
		cfg.Server.Backend = "sim"
	}
	if cfg.Server.StatusPollSeconds <= 0 {
		cfg.Server.StatusPollSeconds = 5
	}
	if cfg.Telemetry.IntervalSeconds <= 0 {
		cfg.Telemetry.IntervalSeconds = 1
	}
	if cfg.Reconnect.BackoffSeconds <= 0 {
		cfg.Reconnect.BackoffSeconds = 3
	}
	if cfg.AntiIdle.MinDelaySeconds <= 0 {
		cfg.AntiIdle.MinDelaySeconds = 15
	}
	if cfg.AntiIdle.MaxDelaySeconds <= cfg.AntiIdle.MinDelaySeconds {
		cfg.AntiIdle.MaxDelaySeconds = cfg.AntiIdle.MinDelaySeconds + 30
	}
	if cfg.LogSaveDirectory == "" {
		cfg.LogSaveDirectory = "logs"
	}
}

func applyEnvOverrides(cfg *FleetCfg) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.Port = p
		}
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("MINECRAFT_VERSION"); v != "" {
		cfg.Server.Version = v
	}
	if v := os.Getenv("HEAD_BASE"); v != "" {
		cfg.Dashboard.HeadBase = v
	}
}

func validate(cfg *FleetCfg) error {
	if cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("invalid dashboard port %d", cfg.Dashboard.Port)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid game server port %d", cfg.Server.Port)
	}
	if cfg.Discord.Enabled && !cfg.Discord.UseWebhook && cfg.Discord.Token == "" {
		return errors.New("discord enabled without token or webhook")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		return errors.New("telegram enabled without token")
	}
	return nil
}

// Save persists the current config back to fleet.yaml.
func Save() error {
	cfgMux.RLock()
	defer cfgMux.RUnlock()

	if Fleet == nil {
		return errors.New("config not loaded")
	}
	raw, err := yaml.Marshal(Fleet)
	if err != nil {
		return fmt.Errorf("error marshalling config: %w", err)
	}
	return os.WriteFile(configPath, raw, 0o644)
}
