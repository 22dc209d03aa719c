package sandbox

import (
	"encoding/json"
	"time"
)

// ---------------------------------------------------------------------------
// 沙箱创建与生命周期
// ---------------------------------------------------------------------------

// 创建沙箱的默认值。
const (
	DefaultImage               = "koyeb/sandbox"
	DefaultName                = "quick-sandbox"
	DefaultInstanceType        = "micro"
	DefaultRegion              = "na"
	DefaultExposedPortProtocol = "http"
	DefaultIdleTimeout         = 300 * time.Second

	// DefaultInstanceWaitTimeout 等待沙箱就绪的默认超时时间。
	DefaultInstanceWaitTimeout = 60 * time.Second
)

// CreateParams 创建沙箱的请求参数，零值字段使用默认值。
type CreateParams struct {
	// Image 容器镜像，默认 DefaultImage。
	Image string `validate:"required"`

	// Name 沙箱名称，默认 DefaultName。
	Name string `validate:"required"`

	// WaitReady 创建后是否等待就绪，默认 true。
	WaitReady *bool

	// InstanceType 实例规格，默认 DefaultInstanceType。
	InstanceType string `validate:"required"`

	// ExposedPortProtocol 对外暴露端口的协议，http 或 http2。
	ExposedPortProtocol string `validate:"oneof=http http2"`

	// Env 注入沙箱的环境变量。
	Env map[string]string

	// Region 部署地域，默认 DefaultRegion。
	Region string `validate:"required"`

	// Timeout 等待就绪的超时时间，默认 DefaultInstanceWaitTimeout。
	Timeout time.Duration `validate:"gte=0"`

	// IdleTimeout 空闲多久后休眠，默认 DefaultIdleTimeout，0 表示不休眠。
	IdleTimeout *time.Duration `validate:"omitempty,gte=0"`

	// EnableTCPProxy 为暴露端口分配公网 TCP 代理。
	EnableTCPProxy bool

	Privileged bool

	// RegistrySecret 私有镜像仓库凭证名称。
	RegistrySecret string

	// DeleteAfterDelay 创建后多久自动删除。
	DeleteAfterDelay Duration `validate:"omitempty,duration"`

	// DeleteAfterInactivityDelay 休眠后多久自动删除。
	DeleteAfterInactivityDelay Duration `validate:"omitempty,duration"`

	// ExperimentalLightSleep 空闲时先进入轻度休眠。
	ExperimentalLightSleep bool
}

func (p CreateParams) withDefaults() CreateParams {
	if p.Image == "" {
		p.Image = DefaultImage
	}
	if p.Name == "" {
		p.Name = DefaultName
	}
	if p.WaitReady == nil {
		waitReady := true
		p.WaitReady = &waitReady
	}
	if p.InstanceType == "" {
		p.InstanceType = DefaultInstanceType
	}
	if p.ExposedPortProtocol == "" {
		p.ExposedPortProtocol = DefaultExposedPortProtocol
	}
	if p.Region == "" {
		p.Region = DefaultRegion
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultInstanceWaitTimeout
	}
	if p.IdleTimeout == nil {
		idle := DefaultIdleTimeout
		p.IdleTimeout = &idle
	}
	return p
}

// LifecycleParams 沙箱自动删除策略。
type LifecycleParams struct {
	DeleteAfterDelay           Duration `validate:"omitempty,duration"`
	DeleteAfterInactivityDelay Duration `validate:"omitempty,duration"`
}

// TCPProxyInfo 沙箱暴露端口的公网 TCP 代理地址。
type TCPProxyInfo struct {
	Host       string
	PublicPort int64
}

// ---------------------------------------------------------------------------
// 执行器
// ---------------------------------------------------------------------------

// ExecResult 同步执行命令的结果。
type ExecResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   int    `json:"code"`
}

// ProcessStatus 后台进程状态。
type ProcessStatus string

// 后台进程状态常量。
const (
	ProcessRunning   ProcessStatus = "running"
	ProcessCompleted ProcessStatus = "completed"
	ProcessFailed    ProcessStatus = "failed"
	ProcessKilled    ProcessStatus = "killed"
)

// PID 操作系统进程号，执行器可能以数字或字符串返回。
type PID string

func (p *PID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = PID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = PID(n.String())
	return nil
}

// Process 执行器中的一条后台进程记录。
type Process struct {
	ID      string        `json:"id"`
	Command string        `json:"command"`
	Status  ProcessStatus `json:"status"`
	PID     PID           `json:"pid,omitempty"`
}

// ExposedPort 当前对外暴露的端口。
type ExposedPort struct {
	Port      int
	ExposedAt string
}

// FileInfo 读取文件的结果。
type FileInfo struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type execRequest struct {
	Cmd string            `json:"cmd"`
	Cwd string            `json:"cwd,omitempty"`
	Env map[string]string `json:"env,omitempty"`
}
