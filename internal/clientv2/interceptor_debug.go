package clientv2

import (
	"net/http"
	"net/http/httputil"
	"strings"

	"go.uber.org/zap"

	"github.com/koyeb/sandbox-go/conf"
	"github.com/koyeb/sandbox-go/internal/log"
)

const redactedValue = "****"

type DebugConfig struct {
	// PrintRequest 打印请求，包括请求体
	PrintRequest bool
	// PrintResponse 打印响应，事件流响应不打印响应体
	PrintResponse bool
	// Logger 为 nil 时使用 internal/log 的全局 logger
	Logger *zap.Logger
}

type debugInterceptor struct {
	config DebugConfig
}

// NewDebugInterceptor 创建调试拦截器，以 Debug 级别输出请求和响应，Authorization 请求头的值会被隐藏。
func NewDebugInterceptor(config DebugConfig) Interceptor {
	return &debugInterceptor{config: config}
}

func (r *debugInterceptor) Priority() InterceptorPriority {
	return InterceptorPriorityDebug
}

func (r *debugInterceptor) Intercept(req *http.Request, handler Handler) (*http.Response, error) {
	if r == nil || req == nil || (!r.config.PrintRequest && !r.config.PrintResponse) {
		return handler(req)
	}

	logger := r.logger().With(zap.String("request_id", req.Header.Get(RequestHeaderKeyRequestID)))

	if r.config.PrintRequest {
		if e := r.printRequest(logger, req); e != nil {
			return nil, e
		}
	}

	resp, err := handler(req)
	if err != nil {
		logger.Debug("request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return resp, err
	}

	if r.config.PrintResponse {
		if e := r.printResponse(logger, resp); e != nil {
			return nil, e
		}
	}

	return resp, err
}

func (r *debugInterceptor) logger() *zap.Logger {
	if r.config.Logger != nil {
		return r.config.Logger
	}
	return log.Logger()
}

func (r *debugInterceptor) printRequest(logger *zap.Logger, req *http.Request) error {
	dumped := *req
	dumped.Header = redactHeader(req.Header)

	info, err := httputil.DumpRequest(&dumped, req.Body != nil)
	if err != nil {
		return err
	}
	// DumpRequest 会替换 dumped.Body 为可重复读取的副本
	req.Body = dumped.Body

	logger.Debug("request", zap.String("method", req.Method), zap.String("url", req.URL.String()), zap.String("dump", string(info)))
	return nil
}

func (r *debugInterceptor) printResponse(logger *zap.Logger, resp *http.Response) error {
	if resp == nil {
		return nil
	}

	withBody := !strings.HasPrefix(resp.Header.Get("Content-Type"), conf.CONTENT_TYPE_EVENT_STREAM)
	info, err := httputil.DumpResponse(resp, withBody)
	if err != nil {
		return err
	}

	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}
	logger.Debug("response", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.String("dump", string(info)))
	return nil
}

func redactHeader(header http.Header) http.Header {
	cloned := header.Clone()
	if cloned == nil {
		return http.Header{}
	}
	if _, ok := cloned[RequestHeaderKeyAuthorization]; ok {
		cloned.Set(RequestHeaderKeyAuthorization, redactedValue)
	}
	return cloned
}
