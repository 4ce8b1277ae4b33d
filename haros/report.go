package haros

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ExportReport 把 haros 数据目录复制为 reportDir，并保留旧报告中项目的历史记录。
//
// 旧的 reportDir/data/<project>/summary.json 中 history 的每一项会拼接到
// 新报告同名项之前。reportDir 原有内容被整体替换。
func ExportReport(dataDir, reportDir, project string) error {
	summaryPath := filepath.Join(reportDir, "data", project, "summary.json")

	oldHistory, err := readHistory(summaryPath)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(reportDir); err != nil {
		return fmt.Errorf("haros: remove old report: %w", err)
	}
	if err := copyTree(dataDir, reportDir); err != nil {
		return err
	}
	if len(oldHistory) == 0 {
		return nil
	}
	return mergeHistory(summaryPath, oldHistory)
}

// readHistory 读取 summary.json 的 history；文件不存在时返回 nil
func readHistory(path string) (map[string][]interface{}, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("haros: read summary: %w", err)
	}
	var summary struct {
		History map[string][]interface{} `json:"history"`
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("haros: parse %s: %w", path, err)
	}
	return summary.History, nil
}

func mergeHistory(path string, old map[string][]interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("haros: read summary: %w", err)
	}
	var summary map[string]interface{}
	if err := json.Unmarshal(data, &summary); err != nil {
		return fmt.Errorf("haros: parse %s: %w", path, err)
	}

	history, _ := summary["history"].(map[string]interface{})
	if history == nil {
		history = make(map[string]interface{}, len(old))
	}
	for item, values := range old {
		current, _ := history[item].([]interface{})
		history[item] = append(append([]interface{}{}, values...), current...)
	}
	summary["history"] = history

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("haros: encode summary: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("haros: write summary: %w", err)
	}
	return nil
}

// copyTree 递归复制目录，保留文件权限
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("haros: copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("haros: copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("haros: copy %s: %w", src, err)
	}
	return out.Close()
}
