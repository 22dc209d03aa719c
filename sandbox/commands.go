package sandbox

import (
	"context"
	"net/http"
)

// ExecOption 命令执行选项，Exec、ExecStream 和 LaunchProcess 共用。
type ExecOption func(*execOpts)

type execOpts struct {
	cwd       string
	env       map[string]string
	listeners []Listener
}

// WithCwd 设置命令的工作目录。
func WithCwd(cwd string) ExecOption {
	return func(o *execOpts) { o.cwd = cwd }
}

// WithEnv 设置命令的环境变量。
func WithEnv(env map[string]string) ExecOption {
	return func(o *execOpts) { o.env = env }
}

func applyExecOpts(opts []ExecOption) *execOpts {
	o := &execOpts{}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

func (o *execOpts) request(cmd string) execRequest {
	return execRequest{Cmd: cmd, Cwd: o.cwd, Env: o.env}
}

// Exec 在沙箱中执行命令并等待完成，返回完整的 stdout、stderr 和退出码。
// 取消 ctx 会中止请求，远端命令是否继续执行由执行器决定。
func (s *Sandbox) Exec(ctx context.Context, cmd string, opts ...ExecOption) (*ExecResult, error) {
	o := applyExecOpts(opts)

	var result ExecResult
	if err := s.Request(ctx, http.MethodPost, "/run", o.request(cmd), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
