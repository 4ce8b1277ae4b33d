// Package record 提供发布记录中间件。
//
// 成功交给传输层的消息经 Codec 序列化后逐行写入（每行一条信封），
// 记录文件可由 Read 回放：
//
//	rec := record.New(f, marshal.JSON{})
//	ep.Use(rec.Middleware())
package record

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/uniyakcom/beep/marshal"
	"github.com/uniyakcom/beep/message"
	"github.com/uniyakcom/beep/middleware"
)

// maxLine 单条记录上限
const maxLine = 1 << 20

// Recorder 发布记录器，可被多个 Endpoint 共享
type Recorder struct {
	mu    sync.Mutex
	w     io.Writer
	codec marshal.Codec
	count int64
	err   error
}

// New 创建记录器
func New(w io.Writer, codec marshal.Codec) *Recorder {
	return &Recorder{w: w, codec: codec}
}

// Middleware 返回记录中间件。写入失败不影响发布结果，只保留首个错误。
func (r *Recorder) Middleware() middleware.Middleware {
	return func(next middleware.PublishFunc) middleware.PublishFunc {
		return func(ctx context.Context, topic string, msg *message.Message) error {
			if err := next(ctx, topic, msg); err != nil {
				return err
			}
			r.write(topic, msg)
			return nil
		}
	}
}

func (r *Recorder) write(topic string, msg *message.Message) {
	data, err := r.codec.Marshal(topic, msg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err != nil {
		r.err = fmt.Errorf("record: encode %s: %w", msg.UUID, err)
		return
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		r.err = fmt.Errorf("record: write: %w", err)
		return
	}
	r.count++
}

// Count 返回已写入的记录数
func (r *Recorder) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err 返回首个写入错误
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Read 逐行解码记录并回调 fn。空行跳过；fn 返回错误时停止。
func Read(rd io.Reader, codec marshal.Codec, fn func(*message.Message) error) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		msg, err := codec.Unmarshal("", sc.Bytes())
		if err != nil {
			return fmt.Errorf("record: line %d: %w", line, err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("record: read: %w", err)
	}
	return nil
}
