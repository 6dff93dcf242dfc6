package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/pathutil"
)

// PathsConfig holds explicit directory overrides. Empty fields fall back to
// the OPENCLAW_* environment and its defaults.
type PathsConfig struct {
	OpenClawHome  string `yaml:"openclaw_home"  json:"openclaw_home"`
	Workspace     string `yaml:"workspace"      json:"workspace"`
	Memory        string `yaml:"memory"         json:"memory"`
	Conversations string `yaml:"conversations"  json:"conversations"`
	Sessions      string `yaml:"sessions"       json:"sessions"`
}

type ServerConfig struct {
	Addr       string        `yaml:"addr"        json:"addr"`
	AuthSecret string        `yaml:"auth_secret" json:"-"`
	TokenTTL   time.Duration `yaml:"token_ttl"   json:"token_ttl"`
}

type IndexConfig struct {
	Debounce   time.Duration `yaml:"debounce"    json:"debounce"`
	WatchDepth int           `yaml:"watch_depth" json:"watch_depth"`
	CacheSize  int           `yaml:"cache_size"  json:"cache_size"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file"  json:"file"`
}

// LoggerConfig configures the conversation logger that turns the main
// session transcript into daily markdown logs.
type LoggerConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"      json:"poll_interval"`
	MaxMessageLength int           `yaml:"max_message_length" json:"max_message_length"`
	Timezone         string        `yaml:"timezone"           json:"timezone"`
	StateFile        string        `yaml:"state_file"         json:"state_file"`
	MainSessionID    string        `yaml:"main_session_id"    json:"main_session_id"`
	AssistantLabel   string        `yaml:"assistant_label"    json:"assistant_label"`
}

type Config struct {
	Paths  PathsConfig  `yaml:"paths"  json:"paths"`
	Server ServerConfig `yaml:"server" json:"server"`
	Index  IndexConfig  `yaml:"index"  json:"index"`
	Log    LogConfig    `yaml:"log"    json:"log"`
	Logger LoggerConfig `yaml:"logger" json:"logger"`

	home string `yaml:"-"`
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.ensureDefaults()
	return cfg
}

func (cfg *Config) ensureDefaults() {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = constants.DefaultServerAddr
	}
	if cfg.Server.TokenTTL <= 0 {
		cfg.Server.TokenTTL = constants.DefaultTokenTTL
	}
	if cfg.Index.Debounce <= 0 {
		cfg.Index.Debounce = constants.DefaultDebounce
	}
	if cfg.Index.WatchDepth <= 0 {
		cfg.Index.WatchDepth = constants.DefaultWatchDepth
	}
	if cfg.Index.CacheSize <= 0 {
		cfg.Index.CacheSize = 512
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Logger.PollInterval <= 0 {
		cfg.Logger.PollInterval = time.Second
	}
	if cfg.Logger.MaxMessageLength <= 0 {
		cfg.Logger.MaxMessageLength = 2000
	}
	if strings.TrimSpace(cfg.Logger.AssistantLabel) == "" {
		cfg.Logger.AssistantLabel = "Assistant"
	}
}

// Load reads the configuration stored under home. A missing file yields the
// defaults. The optional .env file next to it is loaded into the process
// environment first, and viper-bound flags or RECALL_* variables win over
// values from the file.
func Load(home string) (*Config, error) {
	loadEnvFile(home)

	cfg := &Config{}
	data, err := os.ReadFile(GetConfigPath(home))
	switch {
	case err == nil:
		if len(strings.TrimSpace(string(data))) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.home = home
	applyOverrides(cfg)
	cfg.ensureDefaults()

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEnvFile(home string) {
	path := filepath.Join(home, constants.ConfigDir, constants.EnvFile)
	if _, err := os.Stat(path); err != nil {
		return
	}
	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load(path)
}

// BindEnv wires viper to the RECALL_* environment. It is safe to call more
// than once.
func BindEnv() {
	viper.SetEnvPrefix("RECALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func applyOverrides(cfg *Config) {
	BindEnv()

	stringKeys := map[string]*string{
		"server.addr":        &cfg.Server.Addr,
		"server.auth_secret": &cfg.Server.AuthSecret,
		"log.level":          &cfg.Log.Level,
		"log.file":           &cfg.Log.File,
		"paths.workspace":    &cfg.Paths.Workspace,
		"paths.sessions":     &cfg.Paths.Sessions,
	}
	for key, target := range stringKeys {
		if viper.IsSet(key) {
			*target = viper.GetString(key)
		}
	}

	if viper.IsSet("index.debounce") {
		cfg.Index.Debounce = viper.GetDuration("index.debounce")
	}
	if viper.IsSet("index.watch_depth") {
		cfg.Index.WatchDepth = viper.GetInt("index.watch_depth")
	}
}

// Home returns the home directory the configuration was loaded from.
func (cfg *Config) Home() string {
	if cfg.home != "" {
		return cfg.home
	}
	home, _ := os.UserHomeDir()
	return home
}

// ResolvedPaths merges explicit overrides with the OPENCLAW_* environment.
func (cfg *Config) ResolvedPaths() Paths {
	home := cfg.Home()
	base := ResolvePaths(os.Getenv, home)

	override := func(current, configured string) string {
		if expanded := pathutil.ExpandHome(configured, home); expanded != "" {
			return expanded
		}
		return current
	}

	base.OpenClawHome = override(base.OpenClawHome, cfg.Paths.OpenClawHome)
	base.Workspace = override(base.Workspace, cfg.Paths.Workspace)
	base.Memory = override(base.Memory, cfg.Paths.Memory)
	base.Conversations = override(base.Conversations, cfg.Paths.Conversations)
	base.Sessions = override(base.Sessions, cfg.Paths.Sessions)
	return base
}

// Save writes the configuration to its yaml file.
func (cfg *Config) Save() error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	configPath := GetConfigPath(cfg.Home())
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o600)
}

// SetHome points the configuration at a different home directory.
func (cfg *Config) SetHome(home string) {
	cfg.home = home
}
