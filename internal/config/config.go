package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	Identity            string `mapstructure:"identity"`
	BundleID            string `mapstructure:"bundle_id"`
	TrackerPage         string `mapstructure:"tracker_page"`
	TrackerWidth        int    `mapstructure:"tracker_width"`
	TrackerHeight       int    `mapstructure:"tracker_height"`
	TrackerBottomMargin int    `mapstructure:"tracker_bottom_margin"`
	BridgeSocket        string `mapstructure:"bridge_socket"`
	BridgeWSAddr        string `mapstructure:"bridge_ws_addr"`
	LogLevel            string `mapstructure:"log_level"`
	LogFormat           string `mapstructure:"log_format"`
}

func Default() *Config {
	return &Config{
		Identity:            "You",
		TrackerPage:         filepath.Join(pageDir(), "tracker.html"),
		TrackerWidth:        252,
		TrackerHeight:       48,
		TrackerBottomMargin: 16,
		BridgeSocket:        defaultSocketPath(),
		BridgeWSAddr:        "127.0.0.1:48923",
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("shell")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("GLIDECALL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	v := viper.New()
	v.Set("identity", cfg.Identity)
	v.Set("bundle_id", cfg.BundleID)
	v.Set("tracker_page", cfg.TrackerPage)
	v.Set("tracker_width", cfg.TrackerWidth)
	v.Set("tracker_height", cfg.TrackerHeight)
	v.Set("tracker_bottom_margin", cfg.TrackerBottomMargin)
	v.Set("bridge_socket", cfg.BridgeSocket)
	v.Set("bridge_ws_addr", cfg.BridgeWSAddr)
	v.Set("log_level", cfg.LogLevel)
	v.Set("log_format", cfg.LogFormat)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "shell.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := v.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	return os.Chmod(cfgPath, 0600)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("AppData"), "Glidecall")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Glidecall")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "glidecall")
	}
}

// pageDir is where the bundled renderer pages live alongside the binary.
func pageDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "pages"
	}
	return filepath.Join(filepath.Dir(exe), "pages")
}

func defaultSocketPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\glidecall-bridge`
	}
	return filepath.Join(os.TempDir(), "glidecall-bridge.sock")
}
