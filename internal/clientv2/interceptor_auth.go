package clientv2

import (
	"net/http"
)

const RequestHeaderKeyAuthorization = "Authorization"

type AuthConfig struct {
	// Token 以 Bearer 方式放入 Authorization 请求头，为空时不设置
	Token string
	// 签名后回调函数
	AfterSign func(*http.Request)
}

type authInterceptor struct {
	config AuthConfig
}

func NewAuthInterceptor(config AuthConfig) Interceptor {
	return &authInterceptor{
		config: config,
	}
}

func (interceptor *authInterceptor) Priority() InterceptorPriority {
	return InterceptorPriorityAuth
}

func (interceptor *authInterceptor) Intercept(req *http.Request, handler Handler) (*http.Response, error) {
	if interceptor == nil || req == nil || interceptor.config.Token == "" {
		return handler(req)
	}

	req.Header.Set(RequestHeaderKeyAuthorization, "Bearer "+interceptor.config.Token)
	if interceptor.config.AfterSign != nil {
		interceptor.config.AfterSign(req)
	}

	return handler(req)
}
