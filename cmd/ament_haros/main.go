// Command ament_haros 对 ROS 包运行 HAROS 静态分析，以 lint 格式输出问题。
//
//	ament_haros [--cache-dir dir] [--xunit-file out.xml] [--report-dir dir] [path]
//
// 发现任何问题时以 1 退出。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/uniyakcom/beep/haros"
	"github.com/uniyakcom/beep/node"
)

func main() {
	ctx, stop := node.SignalContext(context.Background())
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ament_haros", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cacheDir := fs.String("cache-dir", os.TempDir(), "the location HAROS will place its cache in")
	xunitFile := fs.String("xunit-file", "", "generate a xunit compliant XML file")
	reportDir := fs.String("report-dir", "", "the location to export the HAROS html report to")
	bin := fs.String("haros", "", "haros executable (default: looked up in PATH)")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")

	// 路径参数可与选项交错
	var paths []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if fs.NArg() == 0 {
			break
		}
		paths = append(paths, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(stderr, "ament_haros: invalid log level %q\n", *logLevel)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))

	path := "."
	if len(paths) > 0 {
		path = paths[0]
	}
	if len(paths) > 1 {
		logger.Warn("only the first path is analysed", "path", path, "ignored", paths[1:])
	}

	harosBin := *bin
	if harosBin == "" {
		found, err := exec.LookPath("haros")
		if err != nil {
			fmt.Fprintln(stderr, "ament_haros: HAROS not found:", err)
			return 1
		}
		harosBin = found
	}

	r := &haros.Runner{
		Bin:    harosBin,
		Exec:   haros.Command(stdout, stderr),
		Logger: logger,
	}
	res, err := r.Run(ctx, haros.Options{
		Path:      path,
		CacheDir:  *cacheDir,
		XUnitFile: *xunitFile,
		ReportDir: *reportDir,
	})
	if res != nil {
		for _, issue := range res.Issues {
			fmt.Fprintln(stderr, issue)
		}
	}
	if err != nil {
		fmt.Fprintln(stderr, "ament_haros:", err)
		return 1
	}

	if len(res.Issues) == 0 {
		fmt.Fprintln(stdout, "No problems found")
		return 0
	}
	fmt.Fprintf(stderr, "%d errors\n", len(res.Issues))
	return 1
}
