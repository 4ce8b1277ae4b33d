// Package haros 以 HAROS 对 ROS 工作空间做静态分析，并把结果转换为 lint 风格输出。
//
// 流程：在给定目录下查找 ROS 包 → 推断工作空间根目录 → 生成 project/configs
// YAML → 调用 haros analyse → 解析 xUnit 报告 → 可选导出 HTML 报告并保留历史。
package haros

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// 目录内出现任一标记文件时停止向下查找
var ignoreMarkers = []string{"CATKIN_IGNORE", "COLCON_IGNORE", "AMENT_IGNORE"}

// packageManifest package.xml 中用到的字段
type packageManifest struct {
	Name   string `xml:"name"`
	Export struct {
		Metapackage *struct{} `xml:"metapackage"`
	} `xml:"export"`
}

// FindPackages 在 root 下查找 ROS 包，返回 包名 → 目录。
//
// 含 package.xml 的目录是叶子（metapackage 除外，继续向下）；含 manifest.xml
// 或 rospack_nosubdirs 的目录不再深入；隐藏目录跳过；目录符号链接会被跟随。
// 同名包保留先找到的一个。
func FindPackages(root string) (map[string]string, error) {
	pkgs := make(map[string]string)
	seen := make(map[string]bool)
	if err := walkPackages(root, pkgs, seen); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func walkPackages(dir string, pkgs map[string]string, seen map[string]bool) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("haros: resolve %s: %w", dir, err)
	}
	if seen[resolved] {
		return nil
	}
	seen[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("haros: read %s: %w", dir, err)
	}
	files := make(map[string]bool, len(entries))
	var subdirs []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			if fi, err := os.Stat(path); err == nil {
				isDir = fi.IsDir()
			}
		}
		if isDir {
			if !strings.HasPrefix(e.Name(), ".") {
				subdirs = append(subdirs, path)
			}
			continue
		}
		files[e.Name()] = true
	}

	for _, m := range ignoreMarkers {
		if files[m] {
			return nil
		}
	}
	if files["package.xml"] {
		manifest, err := readManifest(filepath.Join(dir, "package.xml"))
		if err != nil {
			return err
		}
		if manifest.Export.Metapackage == nil {
			name := strings.TrimSpace(manifest.Name)
			if _, ok := pkgs[name]; !ok {
				pkgs[name] = dir
			}
			return nil
		}
	}
	if files["manifest.xml"] || files["rospack_nosubdirs"] {
		return nil
	}

	for _, sub := range subdirs {
		if err := walkPackages(sub, pkgs, seen); err != nil {
			return err
		}
	}
	return nil
}

func readManifest(path string) (*packageManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("haros: read manifest: %w", err)
	}
	var m packageManifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("haros: parse %s: %w", path, err)
	}
	return &m, nil
}

// PackageNames 返回排序后的包名
func PackageNames(pkgs map[string]string) []string {
	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
