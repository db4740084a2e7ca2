package config

import (
	"path/filepath"

	"hello-kubecon/internal/env"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - TCP listening address (e.g. "127.0.0.1:8999")
 * @property {string} socket - Unix socket path, empty uses the state dir default
 * @property {string} mode - gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Socket  string `mapstructure:"socket"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" logs to stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type AppInfoConfig struct {
	Name string `mapstructure:"name"`
}

/**
 * Site archive configuration
 * @property {string} url - Remote zip archive of the web site
 * @property {string} storage_dir - Storage root mounted into the workload
 * @property {string} archive_root - Top level directory inside the archive
 * @property {string} target_name - Directory name under storage_dir
 */
type SiteConfig struct {
	URL         string `mapstructure:"url"`
	StorageDir  string `mapstructure:"storage_dir"`
	ArchiveRoot string `mapstructure:"archive_root"`
	TargetName  string `mapstructure:"target_name"`
}

type IngressConfig struct {
	Hostname string `mapstructure:"hostname"`
	Class    string `mapstructure:"class"`
	Port     int    `mapstructure:"port"`
}

type AppConfig struct {
	Server      ServerConfig  `mapstructure:"server"`
	Log         LogConfig     `mapstructure:"log"`
	App         AppInfoConfig `mapstructure:"app"`
	Site        SiteConfig    `mapstructure:"site"`
	Ingress     IngressConfig `mapstructure:"ingress"`
	OptionsFile string        `mapstructure:"options_file"`
}

const (
	DefaultSiteURL     = "https://github.com/jnsgruk/test-site/archive/refs/heads/master.zip"
	DefaultStorageDir  = "/var/lib/juju/storage/webroot/0"
	DefaultArchiveRoot = "test-site-master"
	DefaultTargetName  = "hello-kubecon"
)

/**
 * Load application configuration from YAML file
 * @param {string} path - Explicit config file, empty searches "." and the state dir
 * @returns {*AppConfig} Loaded configuration with defaults applied
 * @returns {error} Read or decode error
 */
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(env.StateDir)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return collectConfig(&cfg), nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:8999"
	}
	if cfg.Server.Socket == "" {
		cfg.Server.Socket = env.SocketPath()
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = filepath.Join(env.StateDir, "logs", "hello-kubecon.log")
	}
	if cfg.App.Name == "" {
		cfg.App.Name = "hello-kubecon"
	}
	if cfg.Site.URL == "" {
		cfg.Site.URL = DefaultSiteURL
	}
	if cfg.Site.StorageDir == "" {
		cfg.Site.StorageDir = DefaultStorageDir
	}
	if cfg.Site.ArchiveRoot == "" {
		cfg.Site.ArchiveRoot = DefaultArchiveRoot
	}
	if cfg.Site.TargetName == "" {
		cfg.Site.TargetName = DefaultTargetName
	}
	if cfg.Ingress.Hostname == "" {
		cfg.Ingress.Hostname = "hellokubecon.juju"
	}
	if cfg.Ingress.Class == "" {
		cfg.Ingress.Class = "public"
	}
	if cfg.Ingress.Port == 0 {
		cfg.Ingress.Port = 8080
	}
	if cfg.OptionsFile == "" {
		cfg.OptionsFile = filepath.Join(env.StateDir, "options.yaml")
	}
	return cfg
}

// Reload replaces the package config, used by the cobra --config flag
func Reload(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

func init() {
	cfg, err := LoadConfig("")
	if err == nil {
		Config = *cfg
		return
	}
	collectConfig(&Config)
}
