package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// EventKind 流式执行事件类型。
type EventKind string

// 流式执行事件类型常量。end 和 error 为终止事件，每个流只会收到其中一个且在最后。
const (
	EventStdout EventKind = "stdout"
	EventStderr EventKind = "stderr"
	EventExit   EventKind = "exit"
	EventEnd    EventKind = "end"
	EventError  EventKind = "error"
)

// StreamEvent 流式执行中的一个事件。
type StreamEvent struct {
	Kind EventKind
	// Data stdout/stderr 事件的输出内容。
	Data string
	// Code exit 事件的退出码。
	Code int
	// Failed exit 事件中命令是否以失败结束。
	Failed bool
	// Err error 事件携带的错误。
	Err error
}

// Listener 接收流式执行事件，事件按到达顺序依次交付。
type Listener interface {
	HandleEvent(event StreamEvent)
}

// ListenerFunc 将普通函数适配为 Listener。
type ListenerFunc func(event StreamEvent)

func (f ListenerFunc) HandleEvent(event StreamEvent) {
	f(event)
}

// WithListener 注册一个接收所有事件的 Listener。
func WithListener(l Listener) ExecOption {
	return func(o *execOpts) { o.listeners = append(o.listeners, l) }
}

func withKind(kind EventKind, fn func(StreamEvent)) ExecOption {
	return WithListener(ListenerFunc(func(e StreamEvent) {
		if e.Kind == kind {
			fn(e)
		}
	}))
}

// WithOnStdout 设置 stdout 数据回调。
func WithOnStdout(fn func(data string)) ExecOption {
	return withKind(EventStdout, func(e StreamEvent) { fn(e.Data) })
}

// WithOnStderr 设置 stderr 数据回调。
func WithOnStderr(fn func(data string)) ExecOption {
	return withKind(EventStderr, func(e StreamEvent) { fn(e.Data) })
}

// WithOnExit 设置退出码回调。
func WithOnExit(fn func(code int, failed bool)) ExecOption {
	return withKind(EventExit, func(e StreamEvent) { fn(e.Code, e.Failed) })
}

// WithOnEnd 设置流正常结束回调。
func WithOnEnd(fn func()) ExecOption {
	return withKind(EventEnd, func(StreamEvent) { fn() })
}

// WithOnError 设置流失败回调。
func WithOnError(fn func(err error)) ExecOption {
	return withKind(EventError, func(e StreamEvent) { fn(e.Err) })
}

// StreamResult 流式执行结束后汇总的结果。
type StreamResult struct {
	Stdout string
	Stderr string
	// ExitCode 收到 exit 事件时的退出码，否则为 nil。
	ExitCode *int
	Failed   bool
}

// ExecStream 流式执行命令的句柄。
type ExecStream struct {
	listeners []Listener
	done      chan struct{}

	mu       sync.Mutex
	stdout   strings.Builder
	stderr   strings.Builder
	exitCode *int
	failed   bool
	err      error
	finished bool
}

// Done 返回在终止事件交付后关闭的 channel。
func (h *ExecStream) Done() <-chan struct{} {
	return h.done
}

// Wait 等待流结束并返回汇总结果，流失败时同时返回错误。
func (h *ExecStream) Wait() (*StreamResult, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return &StreamResult{
		Stdout:   h.stdout.String(),
		Stderr:   h.stderr.String(),
		ExitCode: h.exitCode,
		Failed:   h.failed,
	}, h.err
}

// dispatch 交付一个事件，终止事件之后的事件会被丢弃。
func (h *ExecStream) dispatch(e StreamEvent) {
	h.mu.Lock()
	if h.finished {
		h.mu.Unlock()
		return
	}
	switch e.Kind {
	case EventStdout:
		h.stdout.WriteString(e.Data)
	case EventStderr:
		h.stderr.WriteString(e.Data)
	case EventExit:
		code := e.Code
		h.exitCode = &code
		h.failed = e.Failed
	case EventEnd:
		h.finished = true
	case EventError:
		h.err = e.Err
		h.finished = true
	}
	h.mu.Unlock()

	for _, l := range h.listeners {
		l.HandleEvent(e)
	}
}

type outputPayload struct {
	Stream string `json:"stream"`
	Data   string `json:"data"`
}

type completePayload struct {
	Code  *int `json:"code"`
	Error bool `json:"error"`
}

// ExecStream 在沙箱中执行命令并以事件流返回输出。
//
// 该方法立即返回，请求和解码在后台 goroutine 中进行。
// 请求失败、非 2xx 响应或读取失败都会以唯一的 error 事件交付，不会同步返回。
func (s *Sandbox) ExecStream(ctx context.Context, cmd string, opts ...ExecOption) *ExecStream {
	o := applyExecOpts(opts)
	h := &ExecStream{
		listeners: o.listeners,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		if err := s.runStream(ctx, o.request(cmd), h); err != nil {
			s.logger().Debug("exec stream failed", zap.Error(err))
			h.dispatch(StreamEvent{Kind: EventError, Err: err})
		}
	}()
	return h
}

func (s *Sandbox) runStream(ctx context.Context, req execRequest, h *ExecStream) error {
	resp, err := s.Fetch(ctx, http.MethodPost, "/run_streaming", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isHTTPSuccess(resp.StatusCode) {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response of /run_streaming: %w", err)
		}
		return newRequestError(resp, data, isJSONContentType(resp.Header.Get("Content-Type")))
	}

	return readEventStream(resp.Body, func(f sseFrame) bool {
		return handleFrame(f, h.dispatch)
	})
}

// handleFrame 将一条记录转换为事件，收到 complete 时返回 true。
// 无法识别的事件和无效的 JSON 会被忽略。
func handleFrame(f sseFrame, dispatch func(StreamEvent)) bool {
	switch f.event {
	case "output":
		var p outputPayload
		if json.Unmarshal([]byte(f.data), &p) != nil {
			return false
		}
		switch EventKind(p.Stream) {
		case EventStdout, EventStderr:
			dispatch(StreamEvent{Kind: EventKind(p.Stream), Data: p.Data})
		}
	case "complete":
		var p completePayload
		if json.Unmarshal([]byte(f.data), &p) == nil && p.Code != nil {
			dispatch(StreamEvent{Kind: EventExit, Code: *p.Code, Failed: p.Error})
		}
		dispatch(StreamEvent{Kind: EventEnd})
		return true
	}
	return false
}
