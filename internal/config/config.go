// Package config 读取gbinsym.toml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const FileName = "gbinsym.toml"

type Config struct {
	Analysis Analysis `toml:"analysis"`
	Log      Log      `toml:"log"`
	Session  Session  `toml:"session"`
	Stubs    Stubs    `toml:"stubs"`

	// 配置文件路径，使用默认值时为空
	Path string `toml:"-"`
}

type Analysis struct {
	Arch             string   `toml:"arch"`
	Strategy         string   `toml:"strategy"`
	Policy           string   `toml:"policy"`
	Lazy             bool     `toml:"lazy"`
	Threshold        int      `toml:"threshold"`
	AssumeNoAliasing bool     `toml:"assume_no_aliasing"`
	MaxBlocks        int      `toml:"max_blocks"`
	Modules          []string `toml:"modules"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Session struct {
	Path string `toml:"path"`
}

type Stubs struct {
	Script string `toml:"script"`
}

func Default() *Config {
	return &Config{
		Analysis: Analysis{
			Arch:      "x86",
			Strategy:  "lforward",
			Policy:    "dfs",
			Lazy:      true,
			Threshold: 100,
			MaxBlocks: 4096,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load 读取path，文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	// 未出现的键保留默认值
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// FindAndLoad 从startDir向上查找gbinsym.toml，找不到时返回默认配置
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func oneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", name, v, strings.Join(allowed, ", "))
}

func (c *Config) Validate() error {
	if err := oneOf("analysis.strategy", c.Analysis.Strategy, "lsweep", "fforward", "lforward"); err != nil {
		return err
	}
	if err := oneOf("analysis.policy", c.Analysis.Policy, "dfs", "bfs"); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "text", "json"); err != nil {
		return err
	}
	if c.Analysis.Threshold <= 0 {
		return fmt.Errorf("analysis.threshold must be positive, got %d", c.Analysis.Threshold)
	}
	if c.Analysis.MaxBlocks <= 0 {
		return fmt.Errorf("analysis.max_blocks must be positive, got %d", c.Analysis.MaxBlocks)
	}
	return nil
}
