package config

import (
	"fmt"

	"github.com/dep2p/go-kbucket/pkg/lib/log"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug/info/warn/error
	Level string `json:"level"`

	// Format 输出格式：text/json
	Format string `json:"format"`
}

// DefaultLogConfig 返回默认的日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	if _, ok := log.ParseLevel(c.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Level)
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Format)
	}
	return nil
}

// Apply 将日志配置应用到全局 logger
func (c *LogConfig) Apply() {
	lvl, _ := log.ParseLevel(c.Level)
	log.SetLevel(lvl)
	if c.Format == "json" {
		log.SetFormat(log.FormatJSON)
	} else {
		log.SetFormat(log.FormatText)
	}
}
