// Package apis 是控制面 REST API 的类型化客户端，覆盖沙箱需要的应用、服务和部署操作。
package apis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/koyeb/sandbox-go/conf"
	"github.com/koyeb/sandbox-go/internal/clientv2"
)

var errEmptyResponse = errors.New("empty response from control plane")

// ClientInterface 控制面操作集合，Client 实现此接口，测试中可替换。
type ClientInterface interface {
	GetApp(ctx context.Context, id string) (*App, error)
	CreateApp(ctx context.Context, body CreateApp) (*App, error)
	DeleteApp(ctx context.Context, id string) error

	ListServices(ctx context.Context, params *ListServicesParams) ([]Service, error)
	GetService(ctx context.Context, id string) (*Service, error)
	CreateService(ctx context.Context, body CreateService, dryRun bool) (*Service, error)
	UpdateService(ctx context.Context, id string, body UpdateService) (*Service, error)
	DeleteService(ctx context.Context, id string) error

	GetDeployment(ctx context.Context, id string) (*Deployment, error)
}

var _ ClientInterface = (*Client)(nil)

// Client 控制面 HTTP 客户端。
type Client struct {
	server string
	http   clientv2.Client
}

type clientOptions struct {
	httpClient   *http.Client
	debug        bool
	logger       *zap.Logger
	interceptors []clientv2.Interceptor
}

// ClientOption 配置 Client。
type ClientOption func(*clientOptions)

// WithHTTPClient 使用自定义的 http.Client 发出请求。
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithDebug 打开请求/响应调试日志。
func WithDebug(debug bool) ClientOption {
	return func(o *clientOptions) {
		o.debug = debug
	}
}

// WithLogger 指定调试日志使用的 logger。
func WithLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient 创建控制面客户端，token 以 Bearer 方式发送。
func NewClient(server, token string, opts ...ClientOption) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	interceptors := []clientv2.Interceptor{
		clientv2.NewAuthInterceptor(clientv2.AuthConfig{Token: token}),
	}
	if o.debug {
		interceptors = append(interceptors, clientv2.NewDebugInterceptor(clientv2.DebugConfig{
			PrintRequest:  true,
			PrintResponse: true,
			Logger:        o.logger,
		}))
	}

	var core clientv2.Client
	if o.httpClient != nil {
		core = o.httpClient
	}

	return &Client{
		server: strings.TrimRight(server, "/"),
		http:   clientv2.NewClient(core, interceptors...),
	}
}

// Server 返回控制面地址。
func (c *Client) Server() string {
	return c.server
}

func (c *Client) GetApp(ctx context.Context, id string) (*App, error) {
	path, err := pathWithID("/v1/apps/", id)
	if err != nil {
		return nil, err
	}
	var out struct {
		App *App `json:"app"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.App == nil {
		return nil, errEmptyResponse
	}
	return out.App, nil
}

func (c *Client) CreateApp(ctx context.Context, body CreateApp) (*App, error) {
	var out struct {
		App *App `json:"app"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/apps", nil, body, &out); err != nil {
		return nil, err
	}
	if out.App == nil {
		return nil, errEmptyResponse
	}
	return out.App, nil
}

func (c *Client) DeleteApp(ctx context.Context, id string) error {
	path, err := pathWithID("/v1/apps/", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ListServices(ctx context.Context, params *ListServicesParams) ([]Service, error) {
	query := url.Values{}
	if params != nil {
		if err := addQueryParam(query, "app_id", params.AppID); err != nil {
			return nil, err
		}
		if err := addQueryParam(query, "name", params.Name); err != nil {
			return nil, err
		}
		if err := addQueryParam(query, "limit", params.Limit); err != nil {
			return nil, err
		}
		if err := addQueryParam(query, "offset", params.Offset); err != nil {
			return nil, err
		}
	}
	var out struct {
		Services []Service `json:"services"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/services", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Services, nil
}

func (c *Client) GetService(ctx context.Context, id string) (*Service, error) {
	path, err := pathWithID("/v1/services/", id)
	if err != nil {
		return nil, err
	}
	var out struct {
		Service *Service `json:"service"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Service == nil {
		return nil, errEmptyResponse
	}
	return out.Service, nil
}

// CreateService 创建服务，dryRun 为 true 时只校验定义，不创建任何资源，返回的 Service 可能为 nil。
func (c *Client) CreateService(ctx context.Context, body CreateService, dryRun bool) (*Service, error) {
	query := url.Values{}
	if dryRun {
		if err := addQueryParam(query, "dry_run", &dryRun); err != nil {
			return nil, err
		}
	}
	var out struct {
		Service *Service `json:"service"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/services", query, body, &out); err != nil {
		return nil, err
	}
	if out.Service == nil && !dryRun {
		return nil, errEmptyResponse
	}
	return out.Service, nil
}

func (c *Client) UpdateService(ctx context.Context, id string, body UpdateService) (*Service, error) {
	path, err := pathWithID("/v1/services/", id)
	if err != nil {
		return nil, err
	}
	var out struct {
		Service *Service `json:"service"`
	}
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &out); err != nil {
		return nil, err
	}
	if out.Service == nil {
		return nil, errEmptyResponse
	}
	return out.Service, nil
}

func (c *Client) DeleteService(ctx context.Context, id string) error {
	path, err := pathWithID("/v1/services/", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	path, err := pathWithID("/v1/deployments/", id)
	if err != nil {
		return nil, err
	}
	var out struct {
		Deployment *Deployment `json:"deployment"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Deployment == nil {
		return nil, errEmptyResponse
	}
	return out.Deployment, nil
}

func pathWithID(prefix, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty id for %s", prefix)
	}
	pathParam, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, id)
	if err != nil {
		return "", err
	}
	return prefix + pathParam, nil
}

func addQueryParam[T any](query url.Values, name string, value *T) error {
	if value == nil {
		return nil
	}
	queryFrag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, *value)
	if err != nil {
		return err
	}
	parsed, err := url.ParseQuery(queryFrag)
	if err != nil {
		return err
	}
	for k, v := range parsed {
		for _, v2 := range v {
			query.Add(k, v2)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	params := clientv2.RequestParams{
		Context: ctx,
		Method:  method,
		Url:     u,
		Header:  http.Header{"Accept": []string{conf.CONTENT_TYPE_JSON}},
	}
	if body != nil {
		getBody, err := clientv2.GetJsonRequestBody(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		params.GetBody = getBody
	}

	resp, err := clientv2.Do(c.http, params)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
