package sandbox

import (
	"context"
	"fmt"
	"net/http"
)

// LaunchProcess 在后台启动命令并返回执行器分配的进程 ID，不等待进程启动或结束。
func (s *Sandbox) LaunchProcess(ctx context.Context, cmd string, opts ...ExecOption) (string, error) {
	o := applyExecOpts(opts)

	var resp struct {
		ID string `json:"id"`
	}
	if err := s.Request(ctx, http.MethodPost, "/start_process", o.request(cmd), &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListProcesses 返回执行器当前记录的所有后台进程，不做本地缓存。
func (s *Sandbox) ListProcesses(ctx context.Context) ([]Process, error) {
	var resp struct {
		Processes []Process `json:"processes"`
	}
	if err := s.Request(ctx, http.MethodGet, "/list_processes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Processes, nil
}

// KillProcess 终止指定的后台进程。
func (s *Sandbox) KillProcess(ctx context.Context, id string) error {
	return s.Request(ctx, http.MethodPost, "/kill_process", map[string]string{"id": id}, nil)
}

// KillAllProcesses 终止列表中所有状态为 running 的进程，返回发出的终止请求数。
//
// 列出和终止之间进程可能已经结束，这类进程仍会被计数。
// 遇到第一个失败的终止请求即停止，返回已成功终止的数量和错误。
func (s *Sandbox) KillAllProcesses(ctx context.Context) (int, error) {
	processes, err := s.ListProcesses(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range processes {
		if p.Status != ProcessRunning {
			continue
		}
		if err := s.KillProcess(ctx, p.ID); err != nil {
			return count, fmt.Errorf("kill process %s: %w", p.ID, err)
		}
		count++
	}
	return count, nil
}
