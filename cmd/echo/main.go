// Command echo 打印 talker --record 写出的记录文件。
//
//	echo [-topic ament_haros_test] [-n 10] talker.jsonl...
//
// std_msgs/String 按 "data: ..." 输出，其余类型输出原始负载。
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/uniyakcom/beep/marshal"
	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware/record"
	"github.com/uniyakcom/beep/msgs"
)

// errLimit 达到 -n 上限后停止读取
var errLimit = errors.New("limit reached")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("echo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	topic := fs.String("topic", "", "only print messages published on this topic")
	limit := fs.Int("n", 0, "stop after this many messages (0 = all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "echo: no record files given")
		return 2
	}

	printed := 0
	show := func(msg *message.Message) error {
		if *topic != "" && msg.Metadata.Get(message.MetaTopic) != *topic {
			return nil
		}
		var s msgs.String
		if err := marshal.Decode(msg, &s); err == nil {
			fmt.Fprintf(stdout, "data: %s\n---\n", s.Data)
		} else {
			fmt.Fprintf(stdout, "%s\n---\n", msg.Payload)
		}
		printed++
		if *limit > 0 && printed >= *limit {
			return errLimit
		}
		return nil
	}

	for _, path := range fs.Args() {
		if err := echoFile(path, show); err != nil {
			if errors.Is(err, errLimit) {
				return 0
			}
			fmt.Fprintln(stderr, "echo:", err)
			return 1
		}
	}
	return 0
}

func echoFile(path string, fn func(*message.Message) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return record.Read(f, marshal.JSON{}, fn)
}
