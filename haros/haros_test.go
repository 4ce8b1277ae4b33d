package haros_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/uniyakcom/beep/haros"
)

const sampleXUnit = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="talker" tests="3" failures="2">
    <testcase id="cpplint:whitespace" classname="talker">
      <failure type="WARNING">
Missing space before {
Category: formatting
File: talker/src/main.cpp
Line: 12
</failure>
    </testcase>
    <testcase classname="talker">
      <failure>
Unused variable
Category: code
File: talker/src/main.cpp
Line: 30
</failure>
    </testcase>
    <testcase id="passed" classname="talker"/>
  </testsuite>
</testsuites>
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func manifest(name string) string {
	return "<?xml version=\"1.0\"?>\n<package format=\"3\">\n  <name>\n    " + name + "\n  </name>\n</package>\n"
}

// newWorkspace 构造 ws/src 下的包树，返回工作空间根目录
func newWorkspace(t *testing.T) string {
	t.Helper()
	ws := filepath.Join(t.TempDir(), "ws")
	src := filepath.Join(ws, "src")
	writeFile(t, filepath.Join(src, "talker", "package.xml"), manifest("talker"))
	writeFile(t, filepath.Join(src, "talker", "nested", "package.xml"), manifest("nested"))
	writeFile(t, filepath.Join(src, "bundle", "package.xml"),
		"<package><name>bundle</name><export><metapackage/></export></package>")
	writeFile(t, filepath.Join(src, "bundle", "listener", "package.xml"), manifest("listener"))
	writeFile(t, filepath.Join(src, "skipped", "COLCON_IGNORE"), "")
	writeFile(t, filepath.Join(src, "skipped", "pkg", "package.xml"), manifest("skipped"))
	writeFile(t, filepath.Join(src, ".git", "package.xml"), manifest("hidden"))
	writeFile(t, filepath.Join(src, "legacy", "manifest.xml"), "<package/>")
	writeFile(t, filepath.Join(src, "legacy", "sub", "package.xml"), manifest("legacy_sub"))
	writeFile(t, filepath.Join(src, "flat", "rospack_nosubdirs"), "")
	writeFile(t, filepath.Join(src, "flat", "sub", "package.xml"), manifest("flat_sub"))
	return ws
}

func TestFindPackages(t *testing.T) {
	ws := newWorkspace(t)
	pkgs, err := haros.FindPackages(ws)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"listener", "talker"}
	if got := haros.PackageNames(pkgs); !reflect.DeepEqual(got, want) {
		t.Fatalf("packages = %v, want %v", got, want)
	}
	if pkgs["talker"] != filepath.Join(ws, "src", "talker") {
		t.Errorf("talker dir = %s", pkgs["talker"])
	}
}

func TestFindPackagesFollowsSymlinks(t *testing.T) {
	ws := newWorkspace(t)
	ext := filepath.Join(t.TempDir(), "external")
	writeFile(t, filepath.Join(ext, "linked", "package.xml"), manifest("linked"))
	if err := os.Symlink(ext, filepath.Join(ws, "src", "ext")); err != nil {
		t.Skip("symlinks unavailable:", err)
	}
	// 指回上级的链接不会造成死循环
	if err := os.Symlink(ws, filepath.Join(ws, "src", "loop")); err != nil {
		t.Fatal(err)
	}

	pkgs, err := haros.FindPackages(ws)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pkgs["linked"]; !ok {
		t.Errorf("linked package not found: %v", haros.PackageNames(pkgs))
	}
}

func TestWorkspaceRoot(t *testing.T) {
	ws := newWorkspace(t)

	got, err := haros.WorkspaceRoot(filepath.Join(ws, "src", "talker"))
	if err != nil || got != ws {
		t.Errorf("from package: %q, %v; want %q", got, err, ws)
	}
	got, err = haros.WorkspaceRoot(ws)
	if err != nil || got != ws {
		t.Errorf("from root: %q, %v; want %q", got, err, ws)
	}
	if _, err := haros.WorkspaceRoot(t.TempDir()); !errors.Is(err, haros.ErrNoWorkspace) {
		t.Errorf("err = %v, want ErrNoWorkspace", err)
	}
}

func TestProjectName(t *testing.T) {
	if got := haros.ProjectName("/ws/src/talker", map[string]string{"beep_talker": "/ws/src/talker"}); got != "beep_talker" {
		t.Errorf("single package: %q", got)
	}
	two := map[string]string{"a": "/ws/src/a", "b": "/ws/src/b"}
	if got := haros.ProjectName("/ws/src/", two); got != "src" {
		t.Errorf("several packages: %q", got)
	}
}

func TestWriteProjectAndConfigs(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "talker.yaml")
	if err := haros.WriteProject(project, "talker", []string{"listener", "talker"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(project)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%YAML 1.1\n---\n") {
		t.Errorf("missing header:\n%s", data)
	}
	var p struct {
		Project  string   `yaml:"project"`
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Project != "talker" || !reflect.DeepEqual(p.Packages, []string{"listener", "talker"}) {
		t.Errorf("project = %+v", p)
	}

	configs := filepath.Join(dir, "configs.yaml")
	if err := haros.WriteConfigs(configs, "/ws", haros.DefaultIgnoreRules); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(configs)
	if err != nil {
		t.Fatal(err)
	}
	var c struct {
		Workspace string `yaml:"workspace"`
		Analysis  struct {
			Ignore struct {
				Rules []string `yaml:"rules"`
			} `yaml:"ignore"`
		} `yaml:"analysis"`
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		t.Fatal(err)
	}
	if c.Workspace != "/ws" || !reflect.DeepEqual(c.Analysis.Ignore.Rules, haros.DefaultIgnoreRules) {
		t.Errorf("configs = %+v", c)
	}
}

func TestParseXUnit(t *testing.T) {
	issues, err := haros.ParseXUnit(strings.NewReader(sampleXUnit))
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2: %+v", len(issues), issues)
	}
	want := haros.Issue{
		File:     "talker/src/main.cpp",
		Line:     "12",
		Severity: "WARNING",
		ID:       "cpplint:whitespace",
		Message:  "Missing space before {",
		Category: "formatting",
	}
	if issues[0] != want {
		t.Errorf("issue = %+v, want %+v", issues[0], want)
	}
	if got := issues[0].String(); got != "[talker/src/main.cpp:12]: (WARNING: cpplint:whitespace) Missing space before {" {
		t.Errorf("String = %q", got)
	}
	if issues[1].ID != "UNKNOWN ISSUE" || issues[1].Severity != "FAILURE" {
		t.Errorf("defaults = %+v", issues[1])
	}

	if _, err := haros.ParseXUnit(strings.NewReader("<testsuites>")); err == nil {
		t.Error("expected error for truncated XML")
	}
}

func TestExportReportMergesHistory(t *testing.T) {
	data := t.TempDir()
	report := filepath.Join(t.TempDir(), "report")

	writeFile(t, filepath.Join(data, "index.html"), "<html/>")
	writeFile(t, filepath.Join(data, "data", "talker", "summary.json"),
		`{"source":{"files":3},"history":{"timestamps":[3],"issues":[1]}}`)
	writeFile(t, filepath.Join(report, "stale.txt"), "old")
	writeFile(t, filepath.Join(report, "data", "talker", "summary.json"),
		`{"history":{"timestamps":[1,2],"issues":[4,2],"removed":[9]}}`)

	if err := haros.ExportReport(data, report, "talker"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(report, "stale.txt")); !os.IsNotExist(err) {
		t.Error("old report content should be replaced")
	}
	if _, err := os.Stat(filepath.Join(report, "index.html")); err != nil {
		t.Error(err)
	}

	raw, err := os.ReadFile(filepath.Join(report, "data", "talker", "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	var summary struct {
		Source  map[string]int   `json:"source"`
		History map[string][]int `json:"history"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatal(err)
	}
	want := map[string][]int{
		"timestamps": {1, 2, 3},
		"issues":     {4, 2, 1},
		"removed":    {9},
	}
	if !reflect.DeepEqual(summary.History, want) {
		t.Errorf("history = %v, want %v", summary.History, want)
	}
	if summary.Source["files"] != 3 {
		t.Errorf("other summary fields lost: %s", raw)
	}
}

// fakeHaros 模拟 haros analyse：按 --data-dir 与 --project-file 写出 xUnit 报告
func fakeHaros(t *testing.T, xunit string, calls *[][]string) haros.ExecFunc {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, append([]string{name}, args...))
		var dataDir, projectFile string
		for i := 0; i+1 < len(args); i++ {
			switch args[i] {
			case "--data-dir":
				dataDir = args[i+1]
			case "--project-file":
				projectFile = args[i+1]
			}
		}
		if xunit == "" {
			return nil
		}
		project := strings.TrimSuffix(filepath.Base(projectFile), ".yaml")
		writeFile(t, filepath.Join(dataDir, "data", project, "compliance", project+".xml"), xunit)
		writeFile(t, filepath.Join(dataDir, "data", project, "summary.json"), `{"history":{"issues":[2]}}`)
		return nil
	}
}

func TestRunnerRun(t *testing.T) {
	ws := newWorkspace(t)
	cache := t.TempDir()
	out := filepath.Join(t.TempDir(), "haros.xml")
	var calls [][]string

	r := &haros.Runner{Bin: "haros", Exec: fakeHaros(t, sampleXUnit, &calls)}
	res, err := r.Run(context.Background(), haros.Options{
		Path:      filepath.Join(ws, "src", "talker"),
		CacheDir:  cache,
		XUnitFile: out,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Project != "talker" || res.Workspace != ws || len(res.Issues) != 2 {
		t.Errorf("result = %+v", res)
	}
	layout := haros.NewLayout(cache)
	want := append([]string{"haros"}, haros.Args(layout, ws, "talker")...)
	if len(calls) != 1 || !reflect.DeepEqual(calls[0], want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if _, err := os.Stat(filepath.Join(layout.Home, "configs.yaml")); err != nil {
		t.Error(err)
	}
	if _, err := os.Stat(filepath.Join(layout.Root, "talker.yaml")); err != nil {
		t.Error(err)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) != sampleXUnit {
		t.Errorf("xunit copy = %q, %v", data, err)
	}
}

func TestRunnerReportDir(t *testing.T) {
	ws := newWorkspace(t)
	report := filepath.Join(t.TempDir(), "report")
	var calls [][]string
	r := &haros.Runner{Bin: "haros", Exec: fakeHaros(t, "<testsuites/>", &calls)}

	for i := 0; i < 2; i++ {
		res, err := r.Run(context.Background(), haros.Options{Path: ws, CacheDir: t.TempDir(), ReportDir: report})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Issues) != 0 || res.Project != "ws" {
			t.Errorf("result = %+v", res)
		}
	}

	raw, err := os.ReadFile(filepath.Join(report, "data", "ws", "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	var summary struct {
		History map[string][]int `json:"history"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(summary.History["issues"], []int{2, 2}) {
		t.Errorf("history = %v", summary.History)
	}
}

func TestRunnerErrors(t *testing.T) {
	ws := newWorkspace(t)
	var calls [][]string

	r := &haros.Runner{Bin: "haros", Exec: fakeHaros(t, "", &calls)}
	if _, err := r.Run(context.Background(), haros.Options{Path: ws, CacheDir: t.TempDir()}); !errors.Is(err, haros.ErrNoXUnit) {
		t.Errorf("missing report err = %v, want ErrNoXUnit", err)
	}

	empty := filepath.Join(t.TempDir(), "empty")
	writeFile(t, filepath.Join(empty, "src", "README"), "")
	if _, err := r.Run(context.Background(), haros.Options{Path: empty, CacheDir: t.TempDir()}); !errors.Is(err, haros.ErrNoPackages) {
		t.Errorf("no packages err = %v, want ErrNoPackages", err)
	}

	if _, err := r.Run(context.Background(), haros.Options{Path: t.TempDir(), CacheDir: t.TempDir()}); !errors.Is(err, haros.ErrNoWorkspace) {
		t.Errorf("no workspace err = %v, want ErrNoWorkspace", err)
	}

	launch := errors.New("exec format error")
	r.Exec = haros.ExecFunc(func(context.Context, string, ...string) error { return launch })
	if _, err := r.Run(context.Background(), haros.Options{Path: ws, CacheDir: t.TempDir()}); !errors.Is(err, launch) {
		t.Errorf("launch err = %v, want %v", err, launch)
	}
}
