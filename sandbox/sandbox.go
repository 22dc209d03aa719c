package sandbox

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/koyeb/sandbox-go/conf"
	"github.com/koyeb/sandbox-go/internal/clientv2"
	"github.com/koyeb/sandbox-go/sandbox/apis"
)

const (
	// SecretEnvName 沙箱执行器凭证所在的环境变量名。
	SecretEnvName = "SANDBOX_SECRET"

	deploymentType = "SANDBOX"

	executorPort = 3030
	exposedPort  = 3031
	executorPath = "/koyeb-sandbox"

	// 深度休眠延迟，仅在开启轻度休眠时使用
	lightSleepDeepSleepValue = 3900

	// dry run 校验部署定义时使用的占位应用 ID
	dryRunAppID = "74140198-4d29-4a1e-bdc9-5cc2b355ccd0"
)

// Sandbox 表示一个沙箱会话。
// 凭证在构造时确定，之后的所有执行器请求都使用它。
type Sandbox struct {
	appID     string
	serviceID string
	name      string
	secret    string

	client *Client

	executor clientv2.Client
	// 健康检查不携带凭证
	probe clientv2.Client

	domainMu    sync.RWMutex
	domain      string
	domainGroup singleflight.Group

	filesOnce sync.Once
	files     *Filesystem
}

// NewSandbox 使用已知的身份信息构造 Sandbox，不发出任何请求。
func NewSandbox(c *Client, appID, serviceID, name, secret string) *Sandbox {
	return &Sandbox{
		appID:     appID,
		serviceID: serviceID,
		name:      name,
		secret:    secret,
		client:    c,
		executor:  c.executorClient(secret),
		probe:     c.executorClient(""),
	}
}

// ID 返回沙箱 ID，即服务 ID。
func (s *Sandbox) ID() string { return s.serviceID }

// AppID 返回沙箱所属的应用 ID。
func (s *Sandbox) AppID() string { return s.appID }

// ServiceID 返回服务 ID。
func (s *Sandbox) ServiceID() string { return s.serviceID }

// Name 返回沙箱名称。
func (s *Sandbox) Name() string { return s.name }

func (s *Sandbox) logger() *zap.Logger {
	return s.client.logger.With(zap.String("sandbox_id", s.serviceID), zap.String("app_id", s.appID))
}

// Create 创建沙箱。
//
// 先以 dry run 方式校验部署定义，再创建应用和服务；服务创建失败时会删除已创建的应用。
// WaitReady 为 true 时等待沙箱就绪，超时返回 *TimeoutError，同时返回已创建的沙箱。
func (c *Client) Create(ctx context.Context, params CreateParams) (*Sandbox, error) {
	params = params.withDefaults()
	if err := defaultValidator.Validate(&params); err != nil {
		return nil, err
	}

	secret, err := newSandboxSecret()
	if err != nil {
		return nil, fmt.Errorf("generate sandbox secret: %w", err)
	}

	lifeCycle, err := serviceLifeCycle(params.DeleteAfterDelay, params.DeleteAfterInactivityDelay)
	if err != nil {
		return nil, err
	}

	definition := buildDefinition(params, secret)
	service, err := c.createService(ctx, params.Name, definition, lifeCycle)
	if err != nil {
		return nil, err
	}

	sb := NewSandbox(c, service.AppID, service.ID, service.Name, secret)
	if !*params.WaitReady {
		return sb, nil
	}

	ready, err := sb.WaitReady(ctx, params.Timeout)
	if err != nil {
		return sb, err
	}
	if !ready {
		return sb, &TimeoutError{Name: sb.name, Timeout: params.Timeout}
	}
	return sb, nil
}

func (c *Client) createService(ctx context.Context, name string, definition apis.DeploymentDefinition, lifeCycle *apis.ServiceLifeCycle) (*apis.Service, error) {
	if _, err := c.api.CreateService(ctx, apis.CreateService{AppID: dryRunAppID, Definition: definition}, true); err != nil {
		return nil, fmt.Errorf("validate sandbox definition: %w", err)
	}

	app, err := c.api.CreateApp(ctx, apis.CreateApp{
		Name:      appName(name, time.Now()),
		LifeCycle: &apis.AppLifeCycle{},
	})
	if err != nil {
		return nil, fmt.Errorf("create sandbox app: %w", err)
	}
	c.logger.Debug("sandbox app created", zap.String("app_id", app.ID), zap.String("app_name", app.Name))

	service, err := c.api.CreateService(ctx, apis.CreateService{
		AppID:      app.ID,
		Definition: definition,
		LifeCycle:  lifeCycle,
	}, false)
	if err != nil {
		c.logger.Debug("sandbox service creation failed, deleting app", zap.String("app_id", app.ID), zap.Error(err))
		if delErr := c.api.DeleteApp(ctx, app.ID); delErr != nil {
			c.logger.Warn("failed to delete sandbox app", zap.String("app_id", app.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create sandbox service: %w", err)
	}
	c.logger.Debug("sandbox service created", zap.String("app_id", service.AppID), zap.String("sandbox_id", service.ID))

	return service, nil
}

func appName(name string, now time.Time) string {
	return fmt.Sprintf("sandbox-app-%s-%d", strcase.ToKebab(name), now.UnixMilli())
}

func buildDefinition(params CreateParams, secret string) apis.DeploymentDefinition {
	privileged := params.Privileged
	definition := apis.DeploymentDefinition{
		Name: params.Name,
		Type: deploymentType,
		Docker: &apis.DockerSource{
			Image:               params.Image,
			Privileged:          &privileged,
			ImageRegistrySecret: params.RegistrySecret,
		},
		InstanceTypes: []apis.DeploymentInstanceType{{Type: params.InstanceType}},
		Regions:       []string{params.Region},
		Ports: []apis.DeploymentPort{
			{Port: executorPort, Protocol: "http"},
			{Port: exposedPort, Protocol: params.ExposedPortProtocol},
		},
		Routes: []apis.DeploymentRoute{
			{Port: executorPort, Path: executorPath + "/"},
			{Port: exposedPort, Path: "/"},
		},
		Env: []apis.DeploymentEnv{{Key: SecretEnvName, Value: secret}},
	}

	keys := make([]string, 0, len(params.Env))
	for k := range params.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		definition.Env = append(definition.Env, apis.DeploymentEnv{Key: k, Value: params.Env[k]})
	}

	var sleepIdleDelay *apis.DeploymentScalingTargetSleepIdleDelay
	if idle := int64(params.IdleTimeout.Seconds()); idle > 0 {
		if params.ExperimentalLightSleep {
			deep := int64(lightSleepDeepSleepValue)
			sleepIdleDelay = &apis.DeploymentScalingTargetSleepIdleDelay{LightSleepValue: &idle, DeepSleepValue: &deep}
		} else {
			sleepIdleDelay = &apis.DeploymentScalingTargetSleepIdleDelay{DeepSleepValue: &idle}
		}
	}
	scaling := apis.DeploymentScaling{Min: 1, Max: 1, Targets: []apis.DeploymentScalingTarget{{SleepIdleDelay: sleepIdleDelay}}}
	if sleepIdleDelay != nil {
		scaling.Min = 0
	}
	definition.Scalings = []apis.DeploymentScaling{scaling}

	if params.EnableTCPProxy {
		definition.ProxyPorts = []apis.DeploymentProxyPort{{Port: exposedPort, Protocol: "tcp"}}
	}
	return definition
}

func serviceLifeCycle(deleteAfterDelay, deleteAfterInactivityDelay Duration) (*apis.ServiceLifeCycle, error) {
	lifeCycle := &apis.ServiceLifeCycle{}
	if deleteAfterDelay != "" {
		seconds, err := deleteAfterDelay.Seconds()
		if err != nil {
			return nil, err
		}
		lifeCycle.DeleteAfterCreate = &seconds
	}
	if deleteAfterInactivityDelay != "" {
		seconds, err := deleteAfterInactivityDelay.Seconds()
		if err != nil {
			return nil, err
		}
		lifeCycle.DeleteAfterSleep = &seconds
	}
	return lifeCycle, nil
}

// GetFromID 通过服务 ID 重新连接已有沙箱，凭证从最新部署的环境变量中恢复。
func (c *Client) GetFromID(ctx context.Context, serviceID string) (*Sandbox, error) {
	service, err := c.api.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get sandbox service: %w", err)
	}
	deployment, err := c.api.GetDeployment(ctx, service.LatestDeploymentID)
	if err != nil {
		return nil, fmt.Errorf("get sandbox deployment: %w", err)
	}

	if deployment == nil {
		return nil, ErrNoSandboxSecret
	}
	secret, ok := deployment.Definition.EnvValue(SecretEnvName)
	if !ok || secret == "" {
		return nil, ErrNoSandboxSecret
	}
	return NewSandbox(c, service.AppID, service.ID, service.Name, secret), nil
}

// WaitReady 轮询健康检查直到沙箱就绪。超时返回 (false, nil)。
func (s *Sandbox) WaitReady(ctx context.Context, timeout time.Duration, opts ...PollOption) (bool, error) {
	ready, err := WaitFor(ctx, s.IsHealthy, timeout, opts...)
	if ready {
		s.logger().Debug("sandbox ready")
	}
	return ready, err
}

// IsHealthy 请求执行器的 /health，2xx 表示就绪。
// 网络错误视为未就绪，域名解析失败则返回错误。
func (s *Sandbox) IsHealthy(ctx context.Context) (bool, error) {
	u, err := s.URL(ctx)
	if err != nil {
		return false, err
	}
	resp, err := clientv2.Do(s.probe, clientv2.RequestParams{
		Context: ctx,
		Method:  clientv2.RequestMethodGet,
		Url:     u + "/health",
	})
	if err != nil {
		s.logger().Debug("health check failed", zap.Error(err))
		return false, nil
	}
	resp.Body.Close()
	return isHTTPSuccess(resp.StatusCode), nil
}

// TCPProxyInfo 返回暴露端口的 TCP 代理地址，尚未分配时返回 nil。
func (s *Sandbox) TCPProxyInfo(ctx context.Context) (*TCPProxyInfo, error) {
	service, err := s.client.api.GetService(ctx, s.serviceID)
	if err != nil {
		return nil, err
	}
	if service.ActiveDeploymentID == "" {
		return nil, nil
	}
	deployment, err := s.client.api.GetDeployment(ctx, service.ActiveDeploymentID)
	if err != nil {
		return nil, err
	}
	if deployment.Metadata == nil {
		return nil, nil
	}
	for _, p := range deployment.Metadata.ProxyPorts {
		if p.Port == exposedPort {
			return &TCPProxyInfo{Host: p.Host, PublicPort: p.PublicPort}, nil
		}
	}
	return nil, nil
}

// WaitTCPProxyReady 轮询直到 TCP 代理地址可用。
func (s *Sandbox) WaitTCPProxyReady(ctx context.Context, timeout time.Duration, opts ...PollOption) (bool, error) {
	return WaitFor(ctx, func(ctx context.Context) (bool, error) {
		info, err := s.TCPProxyInfo(ctx)
		return info != nil, err
	}, timeout, opts...)
}

// Domain 返回沙箱的公网域名。首次成功解析后缓存，不会失效。
func (s *Sandbox) Domain(ctx context.Context) (string, error) {
	if domain := s.cachedDomain(); domain != "" {
		return domain, nil
	}

	v, err, _ := s.domainGroup.Do("domain", func() (interface{}, error) {
		if domain := s.cachedDomain(); domain != "" {
			return domain, nil
		}
		app, err := s.client.api.GetApp(ctx, s.appID)
		if err != nil {
			return "", fmt.Errorf("get sandbox app: %w", err)
		}
		if app == nil || len(app.Domains) == 0 || app.Domains[0].Name == "" {
			return "", ErrNoDomain
		}

		s.domainMu.Lock()
		s.domain = app.Domains[0].Name
		s.domainMu.Unlock()
		return app.Domains[0].Name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Sandbox) cachedDomain() string {
	s.domainMu.RLock()
	defer s.domainMu.RUnlock()
	return s.domain
}

// URL 返回沙箱执行器的基础地址。
func (s *Sandbox) URL(ctx context.Context) (string, error) {
	domain, err := s.Domain(ctx)
	if err != nil {
		return "", err
	}
	return "https://" + domain + executorPath, nil
}

// UpdateLifecycle 以最新部署定义重新提交服务，并更新自动删除策略。
func (s *Sandbox) UpdateLifecycle(ctx context.Context, params LifecycleParams) error {
	if err := defaultValidator.Validate(&params); err != nil {
		return err
	}
	lifeCycle, err := serviceLifeCycle(params.DeleteAfterDelay, params.DeleteAfterInactivityDelay)
	if err != nil {
		return err
	}

	service, err := s.client.api.GetService(ctx, s.serviceID)
	if err != nil {
		return err
	}
	deployment, err := s.client.api.GetDeployment(ctx, service.LatestDeploymentID)
	if err != nil {
		return err
	}
	_, err = s.client.api.UpdateService(ctx, s.serviceID, apis.UpdateService{
		Definition: deployment.Definition,
		LifeCycle:  lifeCycle,
	})
	return err
}

// Delete 删除沙箱所属的应用，不等待删除完成。
func (s *Sandbox) Delete(ctx context.Context) error {
	if err := s.client.api.DeleteApp(ctx, s.appID); err != nil {
		return err
	}
	s.logger().Debug("sandbox deleted")
	return nil
}

// Files 返回文件系统操作接口。
func (s *Sandbox) Files() *Filesystem {
	s.filesOnce.Do(func() {
		s.files = &Filesystem{sandbox: s}
	})
	return s.files
}

// isHTTPSuccess 判断状态码是否为 2xx。
func isHTTPSuccess(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

func isJSONContentType(contentType string) bool {
	return strings.HasPrefix(contentType, conf.CONTENT_TYPE_JSON)
}
