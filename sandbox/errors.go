package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/koyeb/sandbox-go/sandbox/apis"
)

var (
	// ErrMissingAPIToken 未配置控制面 API token。
	ErrMissingAPIToken = errors.New("API token is required: set KOYEB_API_TOKEN or Config.APIToken")
	// ErrNoSandboxSecret 服务的最新部署中没有 SANDBOX_SECRET 环境变量。
	ErrNoSandboxSecret = errors.New("the SANDBOX_SECRET environment variable is not set on the sandbox deployment")
	// ErrNoDomain 沙箱所属应用尚未分配域名。
	ErrNoDomain = errors.New("sandbox application has no domain")
	// ErrStreamClosed 事件流在收到 complete 事件之前被关闭。
	ErrStreamClosed = errors.New("event stream closed before completion")
	// ErrTimeout 可以通过 errors.Is 匹配任意 *TimeoutError。
	ErrTimeout = errors.New("sandbox did not become ready in time")
)

// RequestError 表示沙箱执行器返回的非 2xx 响应。
type RequestError struct {
	StatusCode int
	Header     http.Header
	// Body 原始响应体。
	Body []byte
	// Parsed JSON 响应为解码后的值，其他响应为文本。
	Parsed   any
	Response *http.Response
}

func newRequestError(resp *http.Response, body []byte, isJSON bool) *RequestError {
	e := &RequestError{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Parsed:     string(body),
		Response:   resp,
	}
	if isJSON {
		var v any
		if json.Unmarshal(body, &v) == nil {
			e.Parsed = v
		}
	}
	return e
}

// Error 实现 error 接口。
func (e *RequestError) Error() string {
	return fmt.Sprintf("sandbox request failed: status %d, body: %s", e.StatusCode, string(e.Body))
}

// TimeoutError 沙箱没有在给定时间内就绪。沙箱本身不会被删除，可以再次调用 WaitReady。
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

// Error 实现 error 接口。
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("sandbox '%s' did not become ready within %s. "+
		"The sandbox was created but may not be ready yet. "+
		"You can check its status with IsHealthy or call WaitReady again", e.Name, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// InvalidPortError 端口不在 1-65535 范围内，在发出任何请求前返回。
type InvalidPortError struct {
	Port int
}

// Error 实现 error 接口。
func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d: must be between %d and %d", e.Port, PortMin, PortMax)
}

// IsNotFound 判断错误是否为控制面或执行器返回的 404。
func IsNotFound(err error) bool {
	if apis.IsNotFound(err) {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusNotFound
	}
	return false
}
