package haros

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// yamlHeader haros 读取的 YAML 文件头
const yamlHeader = "%YAML 1.1\n---\n"

var (
	// ErrNoWorkspace 无法推断工作空间根目录
	ErrNoWorkspace = errors.New("haros: failed to detect ROS workspace root folder")

	// ErrNoPackages 目录下没有 ROS 包
	ErrNoPackages = errors.New("haros: failed to find any ROS packages to analyze")
)

// DefaultIgnoreRules 默认忽略的规则：cpplint 的两条花括号规则彼此矛盾
var DefaultIgnoreRules = []string{
	"haros_plugin_cpplint:opening_curly_brace",
	"haros_plugin_cpplint:opening_brace_line",
}

// WorkspaceRoot 推断 dir 所在的工作空间根目录。
// dir 位于某个 src/ 之下时取最后一个 /src/ 之前的部分，否则 dir 自身须包含 src/。
func WorkspaceRoot(dir string) (string, error) {
	sep := string(filepath.Separator) + "src" + string(filepath.Separator)
	if i := strings.LastIndex(dir, sep); i >= 0 {
		return dir[:i], nil
	}
	if fi, err := os.Stat(filepath.Join(dir, "src")); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoWorkspace, dir)
	}
	return dir, nil
}

// ProjectName 单个包时取包名，多个包时取目录名
func ProjectName(dir string, pkgs map[string]string) string {
	if len(pkgs) == 1 {
		for name := range pkgs {
			return name
		}
	}
	return filepath.Base(filepath.Clean(dir))
}

type projectFile struct {
	Project  string   `yaml:"project"`
	Packages []string `yaml:"packages"`
}

type configsFile struct {
	Workspace string `yaml:"workspace"`
	Analysis  struct {
		Ignore struct {
			Rules []string `yaml:"rules,flow"`
		} `yaml:"ignore"`
	} `yaml:"analysis"`
}

// WriteProject 写出 haros 的 project 文件
func WriteProject(path, project string, packages []string) error {
	return writeYAML(path, projectFile{Project: project, Packages: packages})
}

// WriteConfigs 写出 haros home 下的 configs.yaml
func WriteConfigs(path, workspace string, ignoreRules []string) error {
	var cfg configsFile
	cfg.Workspace = workspace
	cfg.Analysis.Ignore.Rules = ignoreRules
	return writeYAML(path, cfg)
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("haros: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append([]byte(yamlHeader), data...), 0o644); err != nil {
		return fmt.Errorf("haros: write %s: %w", path, err)
	}
	return nil
}
