package haros

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNoXUnit haros 没有写出 xUnit 报告
var ErrNoXUnit = errors.New("haros: failed to write xUnit (XML) output file")

// Executor 执行外部命令
type Executor interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecFunc 函数形式的 Executor
type ExecFunc func(ctx context.Context, name string, args ...string) error

// Run 实现 Executor
func (f ExecFunc) Run(ctx context.Context, name string, args ...string) error {
	return f(ctx, name, args...)
}

// Command 以 os/exec 运行命令，输出转发到给定 writer
func Command(stdout, stderr io.Writer) Executor {
	return ExecFunc(func(ctx context.Context, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		return cmd.Run()
	})
}

// Options 一次分析的输入
type Options struct {
	// Path 包目录或工作空间根目录
	Path string

	// CacheDir haros 临时目录的父目录。默认系统临时目录。
	CacheDir string

	// XUnitFile 非空时复制 xUnit 报告到此路径
	XUnitFile string

	// ReportDir 非空时导出 HTML 报告到此目录
	ReportDir string

	// IgnoreRules 忽略的规则，nil 时用 DefaultIgnoreRules
	IgnoreRules []string
}

// Result 一次分析的结果
type Result struct {
	Project   string
	Workspace string
	Packages  map[string]string
	Issues    []Issue
}

// Runner 驱动 haros analyse
type Runner struct {
	Bin    string
	Exec   Executor
	Logger *slog.Logger
}

// Layout haros 临时目录布局
type Layout struct {
	Root string // <cache>/ament_haros
	Home string // haros --home
	Data string // haros --data-dir
}

// NewLayout 返回 cacheDir 下的目录布局
func NewLayout(cacheDir string) Layout {
	root := filepath.Join(cacheDir, "ament_haros")
	return Layout{
		Root: root,
		Home: filepath.Join(root, "haros_home"),
		Data: filepath.Join(root, "haros_data"),
	}
}

// reset 清空并重建全部目录
func (l Layout) reset() error {
	if err := os.RemoveAll(l.Root); err != nil {
		return fmt.Errorf("haros: reset %s: %w", l.Root, err)
	}
	for _, dir := range []string{l.Home, l.Data} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("haros: create %s: %w", dir, err)
		}
	}
	return nil
}

// XUnitPath haros 为 project 写出的 xUnit 报告路径
func (l Layout) XUnitPath(project string) string {
	return filepath.Join(l.Data, "data", project, "compliance", project+".xml")
}

// Args 组装 haros analyse 的参数
func Args(l Layout, workspace, project string) []string {
	return []string{
		"--cwd", workspace,
		"--home", l.Home,
		"--config", filepath.Join(l.Home, "configs.yaml"),
		"analyse",
		"--project-file", filepath.Join(l.Root, project+".yaml"),
		"--data-dir", l.Data,
		"--junit-xml-output",
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Run 对 opts.Path 执行一次分析并返回解析出的问题
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	log := r.logger()

	path := opts.Path
	if path == "" {
		path = "."
	}
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("haros: resolve %s: %w", path, err)
	}
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	rules := opts.IgnoreRules
	if rules == nil {
		rules = DefaultIgnoreRules
	}

	layout := NewLayout(cacheDir)
	if err := layout.reset(); err != nil {
		return nil, err
	}

	workspace, err := WorkspaceRoot(dir)
	if err != nil {
		return nil, err
	}
	pkgs, err := FindPackages(dir)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPackages, dir)
	}
	project := ProjectName(dir, pkgs)
	log.Debug("packages found", "project", project, "workspace", workspace, "packages", len(pkgs))

	if err := WriteProject(filepath.Join(layout.Root, project+".yaml"), project, PackageNames(pkgs)); err != nil {
		return nil, err
	}
	if err := WriteConfigs(filepath.Join(layout.Home, "configs.yaml"), workspace, rules); err != nil {
		return nil, err
	}

	args := Args(layout, workspace, project)
	log.Debug("running haros", "bin", r.Bin, "args", args)
	if err := r.Exec.Run(ctx, r.Bin, args...); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("haros: invoke %s: %w", r.Bin, err)
		}
		// haros 的退出码不代表分析结果，以 xUnit 报告为准
		log.Warn("haros exited with error", "code", exitErr.ExitCode())
	}

	xunitPath := layout.XUnitPath(project)
	f, err := os.Open(xunitPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoXUnit, xunitPath)
	}
	issues, err := ParseXUnit(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	res := &Result{Project: project, Workspace: workspace, Packages: pkgs, Issues: issues}

	if opts.XUnitFile != "" {
		info, err := os.Stat(xunitPath)
		if err != nil {
			return res, fmt.Errorf("haros: stat xunit: %w", err)
		}
		if err := copyFile(xunitPath, opts.XUnitFile, info.Mode().Perm()); err != nil {
			return res, err
		}
	}
	if opts.ReportDir != "" {
		reportDir, err := filepath.Abs(opts.ReportDir)
		if err != nil {
			return res, fmt.Errorf("haros: resolve %s: %w", opts.ReportDir, err)
		}
		if err := ExportReport(layout.Data, reportDir, project); err != nil {
			return res, err
		}
		log.Debug("report exported", "dir", reportDir)
	}
	return res, nil
}
