package node

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/uniyakcom/beep"
)

// 运行时参数区段标记：--rt-args 与 -- 之间的参数由运行时解析，其余留给应用。
const (
	ArgsBegin = "--rt-args"
	ArgsEnd   = "--"
)

// ErrInvalidArgs 运行时参数非法
var ErrInvalidArgs = errors.New("node: invalid runtime arguments")

// Config 运行时配置
//
// 优先级：默认值 < params 文件 < 命令行。
type Config struct {
	// Name 节点名，写入 Event.Source。为空时取 WithDefaultName，再退回 DefaultName。
	Name string `yaml:"name"`

	// LogLevel debug/info/warn/error。默认 info。
	LogLevel string `yaml:"log_level"`

	// Transport 传输实现 sync/async。默认 sync。
	Transport string `yaml:"transport"`

	// PoolSize async 传输的 worker 数（<=0 自动）。
	PoolSize int `yaml:"pool_size"`

	// Nonblocking async 传输池满时发布立即失败（计入 Dropped）而非阻塞。
	Nonblocking bool `yaml:"nonblocking"`

	// DrainTimeout Shutdown 等待在途投递的上限。默认 2s。
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// Record 非空时将全部发布消息以 JSON 信封逐行追加到该文件。
	Record string `yaml:"record"`
}

// DefaultName 未配置节点名时的兜底值
const DefaultName = "beep"

func (c *Config) defaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Transport == "" {
		c.Transport = beep.TransportSync
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 2 * time.Second
	}
}

// level 解析日志级别
func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidArgs, c.LogLevel)
	}
	return l, nil
}

// SplitArgs 拆分运行时参数与应用参数。
// 可出现多个 --rt-args 区段；未以 -- 结束的区段延伸到末尾。
func SplitArgs(args []string) (rt, app []string) {
	in := false
	for _, a := range args {
		switch {
		case a == ArgsBegin:
			in = true
		case in && a == ArgsEnd:
			in = false
		case in:
			rt = append(rt, a)
		default:
			app = append(app, a)
		}
	}
	return rt, app
}

// ParseArgs 解析运行时参数，返回配置与应用参数。
// Name 未配置时保持为空，由 New 按 WithDefaultName/DefaultName 补齐。
func ParseArgs(args []string) (Config, []string, error) {
	rtArgs, app := SplitArgs(args)

	var flags Config
	var paramsFile string
	fs := flag.NewFlagSet(ArgsBegin, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&flags.Name, "name", "", "node name")
	fs.StringVar(&flags.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&flags.Transport, "transport", "", "transport implementation (sync, async)")
	fs.IntVar(&flags.PoolSize, "pool-size", 0, "async transport worker count")
	fs.BoolVar(&flags.Nonblocking, "nonblocking", false, "fail publishes instead of blocking when the async pool is full")
	fs.DurationVar(&flags.DrainTimeout, "drain-timeout", 0, "shutdown drain timeout")
	fs.StringVar(&flags.Record, "record", "", "append published messages to this file as JSON lines")
	fs.StringVar(&paramsFile, "params-file", "", "YAML parameters file")

	if err := fs.Parse(rtArgs); err != nil {
		return Config{}, nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	if fs.NArg() > 0 {
		return Config{}, nil, fmt.Errorf("%w: unexpected %q", ErrInvalidArgs, strings.Join(fs.Args(), " "))
	}

	var cfg Config
	if paramsFile != "" {
		loaded, err := LoadParams(paramsFile)
		if err != nil {
			return Config{}, nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			cfg.Name = flags.Name
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "transport":
			cfg.Transport = flags.Transport
		case "pool-size":
			cfg.PoolSize = flags.PoolSize
		case "nonblocking":
			cfg.Nonblocking = flags.Nonblocking
		case "drain-timeout":
			cfg.DrainTimeout = flags.DrainTimeout
		case "record":
			cfg.Record = flags.Record
		}
	})

	cfg.defaults()
	if _, err := cfg.level(); err != nil {
		return Config{}, nil, err
	}
	return cfg, app, nil
}

// LoadParams 读取 YAML params 文件。未知字段视为错误。
func LoadParams(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("node: read params file: %w", err)
	}
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("node: parse params file %s: %w", path, err)
	}
	return cfg, nil
}
