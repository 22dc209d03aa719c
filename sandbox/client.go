package sandbox

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/koyeb/sandbox-go/internal/clientv2"
	"github.com/koyeb/sandbox-go/internal/configfile"
	"github.com/koyeb/sandbox-go/internal/env"
	"github.com/koyeb/sandbox-go/internal/log"
	"github.com/koyeb/sandbox-go/sandbox/apis"
)

// DefaultEndpoint 是控制面 API 的默认服务地址。
const DefaultEndpoint = "https://app.koyeb.com"

// Config 是沙箱客户端的配置。
//
// 未设置的字段依次从环境变量（KOYEB_API_TOKEN、KOYEB_API_HOST、KOYEB_DEBUG）、
// 配置文件（KOYEB_CONFIG_FILE 或 ~/.koyeb/config.toml）和默认值中获取，
// 且只在 NewClient 中解析一次。
type Config struct {
	// APIToken 是控制面 API token（必填）。
	APIToken string

	// Endpoint 是控制面 API 地址（可选，默认值：DefaultEndpoint）。
	Endpoint string

	// HTTPClient 自定义 HTTP 客户端（可选，默认值：http.DefaultClient）。
	// 同时用于控制面和沙箱执行器请求。
	HTTPClient *http.Client

	// Debug 打印请求和响应，Authorization 请求头会被隐藏。
	Debug *bool

	// Logger 为 nil 时，调试模式下输出到 stderr，否则使用全局 logger。
	Logger *zap.Logger
}

// Client 是沙箱 SDK 的高级客户端。
type Client struct {
	config Config
	logger *zap.Logger
	api    apis.ClientInterface
}

// NewClient 创建一个新的沙箱客户端，config 可以为 nil。
func NewClient(config *Config) (*Client, error) {
	resolved, err := resolveConfig(config)
	if err != nil {
		return nil, err
	}

	logger := resolved.Logger
	if logger == nil {
		if *resolved.Debug {
			if logger, err = log.New(true); err != nil {
				return nil, fmt.Errorf("create debug logger: %w", err)
			}
		} else {
			logger = log.Logger()
		}
	}

	opts := []apis.ClientOption{
		apis.WithDebug(*resolved.Debug),
		apis.WithLogger(logger),
	}
	if resolved.HTTPClient != nil {
		opts = append(opts, apis.WithHTTPClient(resolved.HTTPClient))
	}

	return &Client{
		config: resolved,
		logger: logger,
		api:    apis.NewClient(resolved.Endpoint, resolved.APIToken, opts...),
	}, nil
}

func resolveConfig(config *Config) (Config, error) {
	var resolved Config
	if config != nil {
		resolved = *config
	}

	if resolved.APIToken == "" {
		resolved.APIToken = env.APITokenFromEnvironment()
	}
	if resolved.APIToken == "" {
		token, err := configfile.APITokenFromConfigFile()
		if err != nil {
			return resolved, err
		}
		resolved.APIToken = token
	}
	if resolved.APIToken == "" {
		return resolved, ErrMissingAPIToken
	}

	if resolved.Endpoint == "" {
		resolved.Endpoint = env.APIHostFromEnvironment()
	}
	if resolved.Endpoint == "" {
		host, err := configfile.APIHostFromConfigFile()
		if err != nil {
			return resolved, err
		}
		resolved.Endpoint = host
	}
	if resolved.Endpoint == "" {
		resolved.Endpoint = DefaultEndpoint
	}
	resolved.Endpoint = strings.TrimRight(resolved.Endpoint, "/")

	if resolved.Debug == nil {
		if debug, ok := env.DebugFromEnvironment(); ok {
			resolved.Debug = &debug
		}
	}
	if resolved.Debug == nil {
		debug, ok, err := configfile.DebugFromConfigFile()
		if err != nil {
			return resolved, err
		}
		if ok {
			resolved.Debug = &debug
		}
	}
	if resolved.Debug == nil {
		debug := false
		resolved.Debug = &debug
	}

	return resolved, nil
}

// API 返回底层控制面客户端。
func (c *Client) API() apis.ClientInterface {
	return c.api
}

// Endpoint 返回解析后的控制面地址。
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// executorClient 构造访问沙箱执行器的 HTTP 客户端，secret 为空时不携带凭证。
func (c *Client) executorClient(secret string) clientv2.Client {
	interceptors := []clientv2.Interceptor{
		clientv2.NewAuthInterceptor(clientv2.AuthConfig{Token: secret}),
	}
	if *c.config.Debug {
		interceptors = append(interceptors, clientv2.NewDebugInterceptor(clientv2.DebugConfig{
			PrintRequest:  true,
			PrintResponse: true,
			Logger:        c.logger,
		}))
	}

	var core clientv2.Client
	if c.config.HTTPClient != nil {
		core = c.config.HTTPClient
	}
	return clientv2.NewClient(core, interceptors...)
}
