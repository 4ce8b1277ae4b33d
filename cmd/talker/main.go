// Command talker 以 2Hz 在 ament_haros_test 上发布 "beep N"，直到收到 SIGINT/SIGTERM。
//
// 运行时参数置于 --rt-args 与 -- 之间：
//
//	talker --rt-args --log-level debug --transport async --
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/uniyakcom/beep/node"
	"github.com/uniyakcom/beep/talker"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rt, err := node.Init(args, node.WithDefaultName(talker.DefaultTopic))
	if err != nil {
		fmt.Fprintln(os.Stderr, "talker:", err)
		return 1
	}

	ctx, stop := node.SignalContext(context.Background())
	defer stop()

	tk, err := talker.New(rt, talker.Config{})
	if err != nil {
		rt.Logger().Error("init failed", "error", err)
		_ = rt.Shutdown()
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return tk.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return rt.Shutdown()
	})

	// 关闭阶段的排空超时只记录日志，信号终止仍以 0 退出
	if err := g.Wait(); err != nil {
		rt.Logger().Warn("shutdown", "error", err)
	}
	return 0
}
