package clientv2

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/koyeb/sandbox-go/conf"
)

const (
	RequestHeaderKeyUserAgent = "User-Agent"
	RequestHeaderKeyRequestID = "X-Request-Id"
)

type defaultHeaderInterceptor struct{}

func newDefaultHeaderInterceptor() Interceptor {
	return &defaultHeaderInterceptor{}
}

func (interceptor *defaultHeaderInterceptor) Priority() InterceptorPriority {
	return InterceptorPrioritySetHeader
}

func (interceptor *defaultHeaderInterceptor) Intercept(req *http.Request, handler Handler) (*http.Response, error) {
	if interceptor == nil || req == nil {
		return handler(req)
	}

	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get(RequestHeaderKeyUserAgent) == "" {
		req.Header.Set(RequestHeaderKeyUserAgent, conf.UserAgent())
	}
	if req.Header.Get(RequestHeaderKeyRequestID) == "" {
		req.Header.Set(RequestHeaderKeyRequestID, uuid.NewString())
	}

	return handler(req)
}
