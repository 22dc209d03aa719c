package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Filesystem 提供沙箱文件系统操作。
type Filesystem struct {
	sandbox *Sandbox
}

type pathRequest struct {
	Path      string  `json:"path"`
	Recursive *bool   `json:"recursive,omitempty"`
	Content   *string `json:"content,omitempty"`
}

// MakeDir 创建目录。
func (fs *Filesystem) MakeDir(ctx context.Context, path string, recursive bool) error {
	return fs.sandbox.Request(ctx, http.MethodPost, "/make_dir", pathRequest{Path: path, Recursive: &recursive}, nil)
}

// ListDir 列出目录内容，path 为空时列出当前目录。
func (fs *Filesystem) ListDir(ctx context.Context, path string) ([]string, error) {
	if path == "" {
		path = "."
	}
	var resp struct {
		Entries []string `json:"entries"`
	}
	if err := fs.sandbox.Request(ctx, http.MethodPost, "/list_dir", pathRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// DeleteDir 删除目录。
func (fs *Filesystem) DeleteDir(ctx context.Context, path string) error {
	return fs.sandbox.Request(ctx, http.MethodPost, "/delete_dir", pathRequest{Path: path}, nil)
}

// WriteFile 写入文本文件。
func (fs *Filesystem) WriteFile(ctx context.Context, path, content string) error {
	return fs.sandbox.Request(ctx, http.MethodPost, "/write_file", pathRequest{Path: path, Content: &content}, nil)
}

// ReadFile 读取文件。
func (fs *Filesystem) ReadFile(ctx context.Context, path string) (*FileInfo, error) {
	var info FileInfo
	if err := fs.sandbox.Request(ctx, http.MethodPost, "/read_file", pathRequest{Path: path}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Rename 重命名文件或目录。
func (fs *Filesystem) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := fs.run(ctx, true, "mv", oldPath, newPath)
	return err
}

// Remove 删除文件，recursive 为 true 时递归删除目录。
func (fs *Filesystem) Remove(ctx context.Context, path string, recursive bool) error {
	args := []string{"rm", path}
	if recursive {
		args = []string{"rm", "-rf", path}
	}
	_, err := fs.run(ctx, true, args...)
	return err
}

// Exists 判断路径是否存在。
func (fs *Filesystem) Exists(ctx context.Context, path string) (bool, error) {
	return fs.test(ctx, "-e", path)
}

// IsFile 判断路径是否为普通文件。
func (fs *Filesystem) IsFile(ctx context.Context, path string) (bool, error) {
	return fs.test(ctx, "-f", path)
}

// IsDir 判断路径是否为目录。
func (fs *Filesystem) IsDir(ctx context.Context, path string) (bool, error) {
	return fs.test(ctx, "-d", path)
}

func (fs *Filesystem) test(ctx context.Context, flag, path string) (bool, error) {
	result, err := fs.run(ctx, false, "test", flag, path)
	if err != nil {
		return false, err
	}
	return result.Code == 0, nil
}

// run 以 shell 命令执行 args，参数经过转义。checked 为 true 时非零退出码视为错误。
func (fs *Filesystem) run(ctx context.Context, checked bool, args ...string) (*ExecResult, error) {
	cmd := shellquote.Join(args...)
	result, err := fs.sandbox.Exec(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if checked && result.Code != 0 {
		return result, fmt.Errorf("%s: exit code %d: %s", cmd, result.Code, strings.TrimSpace(result.Stderr))
	}
	return result, nil
}
