// Package config provides configuration types, defaults and loading for
// hydroxite. The config file is only ever read.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"hydroxite/filetree"
	"hydroxite/log"
)

// Config holds all configuration options for hydroxite.
type Config struct {
	Theme             string        `mapstructure:"theme"`
	VimMode           bool          `mapstructure:"vim_mode"`
	TabWidth          int           `mapstructure:"tab_width"`
	HighlightDebounce time.Duration `mapstructure:"highlight_debounce"`
	Tree              TreeConfig    `mapstructure:"tree"`
	Log               LogConfig     `mapstructure:"log"`
}

// TreeConfig holds file tree options.
type TreeConfig struct {
	Sort       string `mapstructure:"sort"` // "none" (default), "name" or "dirs-first"
	ShowHidden bool   `mapstructure:"show_hidden"`
	Watch      bool   `mapstructure:"watch"` // refresh the tree when files change on disk
}

// LogConfig holds debug log options.
type LogConfig struct {
	Path string `mapstructure:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Theme:             "monokai",
		TabWidth:          4,
		HighlightDebounce: 300 * time.Millisecond,
		Tree: TreeConfig{
			Sort:       string(filetree.SortNone),
			ShowHidden: true,
			Watch:      true,
		},
		Log: LogConfig{
			Path: filepath.Join(os.TempDir(), "hydroxite.log"),
		},
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Theme) == "" {
		return errors.New("theme must not be empty")
	}
	if c.TabWidth < 1 || c.TabWidth > 16 {
		return fmt.Errorf("tab_width must be between 1 and 16, got %d", c.TabWidth)
	}
	if c.HighlightDebounce < 0 {
		return fmt.Errorf("highlight_debounce must not be negative, got %s", c.HighlightDebounce)
	}
	if _, err := filetree.ParseSortMode(c.Tree.Sort); err != nil {
		return fmt.Errorf("tree.sort: %w", err)
	}
	return nil
}

// TreeOptions converts the tree section for filetree.New.
func (c Config) TreeOptions() filetree.Options {
	mode, _ := filetree.ParseSortMode(c.Tree.Sort)
	return filetree.Options{Sort: mode, ShowHidden: c.Tree.ShowHidden}
}

// Load reads configuration. With file empty the lookup order is
// ./.hydroxite.yaml then ~/.config/hydroxite/config.yaml; finding neither is
// not an error. HYDROXITE_* environment variables override file values.
// Returns the config and the file used ("" when none).
func Load(file string) (Config, string, error) {
	home, _ := os.UserHomeDir()
	return load(file, ".", home)
}

func load(file, workDir, homeDir string) (Config, string, error) {
	v := viper.New()
	defaults := Defaults()
	v.SetDefault("theme", defaults.Theme)
	v.SetDefault("vim_mode", defaults.VimMode)
	v.SetDefault("tab_width", defaults.TabWidth)
	v.SetDefault("highlight_debounce", defaults.HighlightDebounce)
	v.SetDefault("tree.sort", defaults.Tree.Sort)
	v.SetDefault("tree.show_hidden", defaults.Tree.ShowHidden)
	v.SetDefault("tree.watch", defaults.Tree.Watch)
	v.SetDefault("log.path", defaults.Log.Path)

	v.SetEnvPrefix("HYDROXITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		local := filepath.Join(workDir, ".hydroxite.yaml")
		if _, err := os.Stat(local); err == nil {
			v.SetConfigFile(local)
		} else {
			if homeDir != "" {
				v.AddConfigPath(filepath.Join(homeDir, ".config", "hydroxite"))
			}
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "no config file, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	used := v.ConfigFileUsed()
	log.Info(log.CatConfig, "config loaded", "file", used, "theme", cfg.Theme)
	return cfg, used, nil
}

// yamlConfig is the printed form; durations read as "300ms".
type yamlConfig struct {
	Theme             string `yaml:"theme"`
	VimMode           bool   `yaml:"vim_mode"`
	TabWidth          int    `yaml:"tab_width"`
	HighlightDebounce string `yaml:"highlight_debounce"`
	Tree              struct {
		Sort       string `yaml:"sort"`
		ShowHidden bool   `yaml:"show_hidden"`
		Watch      bool   `yaml:"watch"`
	} `yaml:"tree"`
	Log struct {
		Path string `yaml:"path"`
	} `yaml:"log"`
}

// YAML renders the configuration in config file syntax.
func (c Config) YAML() ([]byte, error) {
	var out yamlConfig
	out.Theme = c.Theme
	out.VimMode = c.VimMode
	out.TabWidth = c.TabWidth
	out.HighlightDebounce = c.HighlightDebounce.String()
	out.Tree.Sort = c.Tree.Sort
	out.Tree.ShowHidden = c.Tree.ShowHidden
	out.Tree.Watch = c.Tree.Watch
	out.Log.Path = c.Log.Path
	return yaml.Marshal(out)
}
