// Package config 加载服务与UI共用的YAML配置
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config 配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Log    LogConfig    `yaml:"log"`
	UI     UIConfig     `yaml:"ui"`
}

// ServerConfig 推理服务配置
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console, json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// UIConfig 客户端UI配置
type UIConfig struct {
	Port                int               `yaml:"port"`
	APIBaseURL          string            `yaml:"api_base_url"`
	Timeout             time.Duration     `yaml:"timeout"`
	SampleDataset       string            `yaml:"sample_dataset"`
	DefaultBackground   string            `yaml:"default_background"`
	Backgrounds         map[string]string `yaml:"backgrounds"`
	BackgroundCacheSize int               `yaml:"background_cache_size"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load 从YAML文件加载配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	// 仅 api_base_url 支持 ${VAR} 展开，其他字段原样保留
	cfg.UI.APIBaseURL = os.ExpandEnv(cfg.UI.APIBaseURL)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Timeout <= 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://127.0.0.1:8000"}
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Model.Path == "" {
		c.Model.Path = "models/pipeline_star_type_pred.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.UI.Port == 0 {
		c.UI.Port = 8501
	}
	if c.UI.APIBaseURL == "" {
		c.UI.APIBaseURL = fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
	}
	if c.UI.Timeout <= 0 {
		c.UI.Timeout = 30 * time.Second
	}
	if c.UI.SampleDataset == "" {
		c.UI.SampleDataset = "data/sample_dataset.csv"
	}
	if c.UI.BackgroundCacheSize <= 0 {
		c.UI.BackgroundCacheSize = 16
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port %d out of range", c.UI.Port)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
