package clientv2

import (
	"net/http"
	"sort"
)

type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

type Handler func(req *http.Request) (*http.Response, error)

type client struct {
	coreClient   Client
	interceptors []Interceptor
}

// NewClient 使用拦截器包装 cli，cli 为 nil 时使用 http.DefaultClient。
// 默认请求头拦截器总是会被加入。
func NewClient(cli Client, interceptors ...Interceptor) Client {
	if cli == nil {
		if http.DefaultClient != nil {
			cli = http.DefaultClient
		} else {
			cli = &http.Client{}
		}
	}

	is := make(interceptorList, 0, len(interceptors)+1)
	for _, interceptor := range interceptors {
		if interceptor != nil {
			is = append(is, interceptor)
		}
	}
	is = append(is, newDefaultHeaderInterceptor())
	sort.Stable(is)

	// 反转
	for i, j := 0, len(is)-1; i < j; i, j = i+1, j-1 {
		is[i], is[j] = is[j], is[i]
	}

	return &client{
		coreClient:   cli,
		interceptors: is,
	}
}

// Do 依次经过所有拦截器发出请求，不对响应状态码做任何判断。
func (c *client) Do(req *http.Request) (*http.Response, error) {
	handler := func(req *http.Request) (*http.Response, error) {
		return c.coreClient.Do(req)
	}

	for _, interceptor := range c.interceptors {
		h := handler
		i := interceptor
		handler = func(r *http.Request) (*http.Response, error) {
			return i.Intercept(r, h)
		}
	}

	return handler(req)
}

// Do 根据 options 构造请求并发出。
func Do(c Client, options RequestParams) (*http.Response, error) {
	req, err := NewRequest(options)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
