package config

import (
	"os"

	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Debug    bool                 `json:"debug" yaml:"debug" toml:"debug"`
	Server   *ServerConfig        `json:"server" yaml:"server" toml:"server"`
	Database *DatabaseConfig      `json:"database" yaml:"database" toml:"database"`
	Browser  *BrowserConfig       `json:"browser" yaml:"browser" toml:"browser"`
	Runner   *RunnerConfig        `json:"runner" yaml:"runner" toml:"runner"`
	Log      *logger.LoggerConfig `json:"log,omitempty" yaml:"log,omitempty" toml:"log,omitempty"`
}

type ServerConfig struct {
	Port string `json:"port" toml:"port"`
	Host string `json:"host" toml:"host"`
}

type DatabaseConfig struct {
	Path string `json:"path" toml:"path"`
}

type BrowserConfig struct {
	BinPath     string `json:"bin_path" toml:"bin_path"`
	UserDataDir string `json:"user_data_dir" toml:"user_data_dir"`
	DownloadDir string `json:"download_dir,omitempty" toml:"download_dir,omitempty"`
	Headless    *bool  `json:"headless,omitempty" toml:"headless,omitempty"`
	UseStealth  bool   `json:"use_stealth" toml:"use_stealth"`
}

// RunnerConfig tunes action execution. All durations are seconds.
type RunnerConfig struct {
	DefaultWait      int `json:"default_wait" toml:"default_wait"`             // element wait timeout when an action does not set one
	PauseOnException int `json:"pause_on_exception" toml:"pause_on_exception"` // pause before re-raising a runtime failure; 0 disables
	Delay            int `json:"delay" toml:"delay"`                           // pause between consecutive actions
}

// findChromeBin checks CHROME_BIN_PATH and then the usual install
// locations for a Chrome/Chromium binary.
func findChromeBin() string {
	if envPath := os.Getenv("CHROME_BIN_PATH"); envPath != "" {
		return envPath
	}
	commonPaths := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome-stable",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"C:\\Program Files\\Google\\Chrome\\Application\\chrome.exe",
		"C:\\Program Files (x86)\\Google\\Chrome\\Application\\chrome.exe",
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func defaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Database: &DatabaseConfig{
			Path: "./data/browserscript.db",
		},
		Browser: &BrowserConfig{
			BinPath:     findChromeBin(),
			UserDataDir: "./chrome_user_data",
			DownloadDir: "./downloads",
			UseStealth:  true,
		},
		Runner: &RunnerConfig{
			DefaultWait:      10,
			PauseOnException: 10,
		},
		Log: &logger.LoggerConfig{
			Level: "info",
			File:  "./log/browserscript.log",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		for _, dir := range []string{"./data", "./log"} {
			if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
				os.Mkdir(dir, 0o755)
			}
		}
		defConfig := defaultConfig()
		// Write the defaults back so the user has a file to edit.
		if os.IsNotExist(err) {
			cfgData, marshalErr := toml.Marshal(defConfig)
			if marshalErr == nil {
				os.WriteFile(path, cfgData, 0o644)
			}
		}
		return defConfig, nil
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Server == nil {
		cfg.Server = &ServerConfig{Port: "8080", Host: "0.0.0.0"}
	}
	if cfg.Database == nil {
		cfg.Database = &DatabaseConfig{Path: "./data/browserscript.db"}
	}
	if cfg.Browser == nil {
		cfg.Browser = &BrowserConfig{
			BinPath:     findChromeBin(),
			UserDataDir: "./chrome_user_data",
			UseStealth:  true,
		}
	}
	if cfg.Runner == nil {
		cfg.Runner = &RunnerConfig{
			DefaultWait:      10,
			PauseOnException: 10,
		}
	}
	if cfg.Log == nil {
		cfg.Log = &logger.LoggerConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		}
	}

	return &cfg, nil
}
