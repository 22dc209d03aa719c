package sandbox

import (
	"context"
	"net/http"
	"strconv"
)

type portRequest struct {
	Port string `json:"port,omitempty"`
}

// ExposePort 对外暴露沙箱端口。同一时间只有一个端口被暴露，
// 暴露前总会先取消当前的暴露。
func (s *Sandbox) ExposePort(ctx context.Context, port int) (*ExposedPort, error) {
	if err := defaultValidator.validatePort(port); err != nil {
		return nil, err
	}

	if err := s.UnexposePort(ctx); err != nil {
		return nil, err
	}
	if err := s.Request(ctx, http.MethodPost, "/bind_port", portRequest{Port: strconv.Itoa(port)}, nil); err != nil {
		return nil, err
	}

	domain, err := s.Domain(ctx)
	if err != nil {
		return nil, err
	}
	return &ExposedPort{Port: port, ExposedAt: "https://" + domain}, nil
}

// UnexposePort 取消当前暴露的端口，没有端口被暴露时也可以调用。
func (s *Sandbox) UnexposePort(ctx context.Context) error {
	return s.Request(ctx, http.MethodPost, "/unbind_port", portRequest{}, nil)
}

// UnexposePortNumber 取消指定端口的暴露。
func (s *Sandbox) UnexposePortNumber(ctx context.Context, port int) error {
	if err := defaultValidator.validatePort(port); err != nil {
		return err
	}
	return s.Request(ctx, http.MethodPost, "/unbind_port", portRequest{Port: strconv.Itoa(port)}, nil)
}
