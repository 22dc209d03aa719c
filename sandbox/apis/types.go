package apis

// App 控制面中的应用，沙箱的所有资源都挂在同一个应用下。
type App struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Status  string   `json:"status,omitempty"`
	Domains []Domain `json:"domains,omitempty"`
}

// Domain 应用被分配的公网域名。
type Domain struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

type AppLifeCycle struct {
	DeleteWhenEmpty *bool `json:"delete_when_empty,omitempty"`
}

type CreateApp struct {
	Name      string        `json:"name"`
	LifeCycle *AppLifeCycle `json:"life_cycle,omitempty"`
}

// Service 控制面中的服务，服务 ID 同时也是沙箱 ID。
type Service struct {
	ID                 string            `json:"id,omitempty"`
	AppID              string            `json:"app_id,omitempty"`
	Name               string            `json:"name,omitempty"`
	Status             string            `json:"status,omitempty"`
	LatestDeploymentID string            `json:"latest_deployment_id,omitempty"`
	ActiveDeploymentID string            `json:"active_deployment_id,omitempty"`
	LifeCycle          *ServiceLifeCycle `json:"life_cycle,omitempty"`
}

// ServiceLifeCycle 服务的自动删除策略，单位为秒。
type ServiceLifeCycle struct {
	DeleteAfterCreate *int64 `json:"delete_after_create,omitempty"`
	DeleteAfterSleep  *int64 `json:"delete_after_sleep,omitempty"`
}

type CreateService struct {
	AppID      string               `json:"app_id"`
	Definition DeploymentDefinition `json:"definition"`
	LifeCycle  *ServiceLifeCycle    `json:"life_cycle,omitempty"`
}

type UpdateService struct {
	Definition *DeploymentDefinition `json:"definition,omitempty"`
	LifeCycle  *ServiceLifeCycle     `json:"life_cycle,omitempty"`
}

type ListServicesParams struct {
	AppID  *string
	Name   *string
	Limit  *int
	Offset *int
}

// DeploymentDefinition 部署定义：镜像、规格、地域、端口路由、伸缩和环境变量。
type DeploymentDefinition struct {
	Name          string                   `json:"name,omitempty"`
	Type          string                   `json:"type,omitempty"`
	Docker        *DockerSource            `json:"docker,omitempty"`
	InstanceTypes []DeploymentInstanceType `json:"instance_types,omitempty"`
	Regions       []string                 `json:"regions,omitempty"`
	Ports         []DeploymentPort         `json:"ports,omitempty"`
	Routes        []DeploymentRoute        `json:"routes,omitempty"`
	Env           []DeploymentEnv          `json:"env,omitempty"`
	Scalings      []DeploymentScaling      `json:"scalings,omitempty"`
	ProxyPorts    []DeploymentProxyPort    `json:"proxy_ports,omitempty"`
}

// EnvValue 返回 key 对应的环境变量值。
func (d *DeploymentDefinition) EnvValue(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, e := range d.Env {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

type DockerSource struct {
	Image               string `json:"image,omitempty"`
	Privileged          *bool  `json:"privileged,omitempty"`
	ImageRegistrySecret string `json:"image_registry_secret,omitempty"`
}

type DeploymentInstanceType struct {
	Type string `json:"type"`
}

type DeploymentPort struct {
	Port     int64  `json:"port"`
	Protocol string `json:"protocol,omitempty"`
}

type DeploymentRoute struct {
	Port int64  `json:"port"`
	Path string `json:"path"`
}

type DeploymentEnv struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type DeploymentScaling struct {
	Min     int64                     `json:"min"`
	Max     int64                     `json:"max"`
	Targets []DeploymentScalingTarget `json:"targets,omitempty"`
}

type DeploymentScalingTarget struct {
	SleepIdleDelay *DeploymentScalingTargetSleepIdleDelay `json:"sleep_idle_delay,omitempty"`
}

// DeploymentScalingTargetSleepIdleDelay 实例空闲后进入轻度/深度休眠前的等待秒数。
type DeploymentScalingTargetSleepIdleDelay struct {
	LightSleepValue *int64 `json:"light_sleep_value,omitempty"`
	DeepSleepValue  *int64 `json:"deep_sleep_value,omitempty"`
}

type DeploymentProxyPort struct {
	Port     int64  `json:"port"`
	Protocol string `json:"protocol"`
}

// Deployment 服务的一次部署。
type Deployment struct {
	ID         string                `json:"id,omitempty"`
	AppID      string                `json:"app_id,omitempty"`
	ServiceID  string                `json:"service_id,omitempty"`
	Status     string                `json:"status,omitempty"`
	Definition *DeploymentDefinition `json:"definition,omitempty"`
	Metadata   *DeploymentMetadata   `json:"metadata,omitempty"`
}

type DeploymentMetadata struct {
	ProxyPorts []DeploymentProxyPortMetadata `json:"proxy_ports,omitempty"`
}

// DeploymentProxyPortMetadata 已分配的 TCP 代理端口。
type DeploymentProxyPortMetadata struct {
	Host       string `json:"host,omitempty"`
	PublicPort int64  `json:"public_port,omitempty"`
	Port       int64  `json:"port,omitempty"`
	Protocol   string `json:"protocol,omitempty"`
}
