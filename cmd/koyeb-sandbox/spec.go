package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/koyeb/sandbox-go/sandbox"
)

// sandboxSpec 是 create --spec 读取的 YAML 文件格式，时长字段使用 30s、5m、1d 这类写法。
type sandboxSpec struct {
	Name                       string            `yaml:"name"`
	Image                      string            `yaml:"image"`
	InstanceType               string            `yaml:"instance_type"`
	Region                     string            `yaml:"region"`
	ExposedPortProtocol        string            `yaml:"exposed_port_protocol"`
	Env                        map[string]string `yaml:"env"`
	WaitReady                  *bool             `yaml:"wait_ready"`
	Timeout                    sandbox.Duration  `yaml:"timeout"`
	IdleTimeout                *sandbox.Duration `yaml:"idle_timeout"`
	EnableTCPProxy             bool              `yaml:"enable_tcp_proxy"`
	Privileged                 bool              `yaml:"privileged"`
	RegistrySecret             string            `yaml:"registry_secret"`
	DeleteAfterDelay           sandbox.Duration  `yaml:"delete_after_delay"`
	DeleteAfterInactivityDelay sandbox.Duration  `yaml:"delete_after_inactivity_delay"`
	ExperimentalLightSleep     bool              `yaml:"experimental_light_sleep"`
}

func loadSpec(path string) (*sandboxSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSpec(data)
}

func parseSpec(data []byte) (*sandboxSpec, error) {
	var spec sandboxSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("invalid sandbox spec: %w", err)
	}
	return &spec, nil
}

func (s *sandboxSpec) params() (sandbox.CreateParams, error) {
	params := sandbox.CreateParams{
		Name:                       s.Name,
		Image:                      s.Image,
		InstanceType:               s.InstanceType,
		Region:                     s.Region,
		ExposedPortProtocol:        s.ExposedPortProtocol,
		Env:                        s.Env,
		WaitReady:                  s.WaitReady,
		EnableTCPProxy:             s.EnableTCPProxy,
		Privileged:                 s.Privileged,
		RegistrySecret:             s.RegistrySecret,
		DeleteAfterDelay:           s.DeleteAfterDelay,
		DeleteAfterInactivityDelay: s.DeleteAfterInactivityDelay,
		ExperimentalLightSleep:     s.ExperimentalLightSleep,
	}
	timeout, err := s.Timeout.Seconds()
	if err != nil {
		return params, fmt.Errorf("timeout: %w", err)
	}
	params.Timeout = time.Duration(timeout) * time.Second
	if s.IdleTimeout != nil {
		idle, err := s.IdleTimeout.Seconds()
		if err != nil {
			return params, fmt.Errorf("idle_timeout: %w", err)
		}
		d := time.Duration(idle) * time.Second
		params.IdleTimeout = &d
	}
	return params, nil
}
