package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/moyu-x/mediastamp/internal"
)

type Config struct {
	Update struct {
		Workers    string
		Jobs       int
		Recursive  bool
		Extensions []string
		Sniff      bool
		Verify     bool
		DryRun     bool `mapstructure:"dry_run"`
		Quarantine string
	}
	Tool struct {
		Path string
	}
	Patterns struct {
		File  string
		Pivot int
	}
	Journal struct {
		Path   string
		Resume bool
	}
	Logging struct {
		Level string
		File  string
	}
}

var cfg Config

// Load 按默认搜索路径读取配置，找不到配置文件时使用默认值
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 读取指定配置文件，path 为空时按默认路径搜索
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.mediastamp")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mediastamp")
	}

	v.SetEnvPrefix("MEDIASTAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	cfg = c
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("update.workers", "80")
	v.SetDefault("update.jobs", 0)
	v.SetDefault("update.recursive", false)
	v.SetDefault("update.extensions", internal.DefaultExtensions)
	v.SetDefault("update.sniff", false)
	v.SetDefault("update.verify", false)
	v.SetDefault("update.dry_run", false)
	v.SetDefault("update.quarantine", "")
	v.SetDefault("tool.path", internal.DefaultToolPath)
	v.SetDefault("patterns.file", "")
	v.SetDefault("patterns.pivot", internal.DefaultCenturyPivot)
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.resume", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

func Get() *Config {
	return &cfg
}
