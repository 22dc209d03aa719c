//go:build integration

package sandbox

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// testClient 从环境变量 KOYEB_API_TOKEN / KOYEB_API_HOST 创建集成测试用的客户端。
func testClient(t *testing.T) *Client {
	t.Helper()

	if os.Getenv("KOYEB_API_TOKEN") == "" {
		t.Fatal("需要设置 KOYEB_API_TOKEN 环境变量")
	}

	c, err := NewClient(nil)
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	return c
}

func createTestSandbox(t *testing.T, c *Client) *Sandbox {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	sb, err := c.Create(ctx, CreateParams{
		Name:             "sandbox-go-integration",
		Timeout:          2 * time.Minute,
		DeleteAfterDelay: "30m",
	})
	if sb != nil {
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sb.Delete(ctx); err != nil {
				t.Logf("删除沙箱失败: %v", err)
			}
		})
	}
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	t.Logf("沙箱已创建: %s (app %s)", sb.ID(), sb.AppID())
	return sb
}

func TestIntegrationSandboxLifecycle(t *testing.T) {
	c := testClient(t)
	sb := createTestSandbox(t, c)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := sb.Exec(ctx, "echo $GREETING", WithEnv(map[string]string{"GREETING": "hello"}))
	if err != nil {
		t.Fatalf("Exec 失败: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" || result.Code != 0 {
		t.Fatalf("Exec 结果不符合预期: %+v", result)
	}

	stream := sb.ExecStream(ctx, "for i in 1 2 3; do echo $i; sleep 0.2; done")
	res, err := stream.Wait()
	if err != nil {
		t.Fatalf("ExecStream 失败: %v", err)
	}
	if res.Stdout != "1\n2\n3\n" {
		t.Fatalf("ExecStream 输出不符合预期: %q", res.Stdout)
	}

	again, err := c.GetFromID(ctx, sb.ID())
	if err != nil {
		t.Fatalf("GetFromID 失败: %v", err)
	}
	healthy, err := again.IsHealthy(ctx)
	if err != nil || !healthy {
		t.Fatalf("重新连接的沙箱不健康: %v", err)
	}
}

func TestIntegrationProcessesAndPorts(t *testing.T) {
	c := testClient(t)
	sb := createTestSandbox(t, c)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	id, err := sb.LaunchProcess(ctx, "python3 -m http.server 8080")
	if err != nil {
		t.Fatalf("LaunchProcess 失败: %v", err)
	}
	t.Logf("进程已启动: %s", id)

	exposed, err := sb.ExposePort(ctx, 8080)
	if err != nil {
		t.Fatalf("ExposePort 失败: %v", err)
	}
	t.Logf("端口已暴露: %s", exposed.ExposedAt)

	if err := sb.UnexposePort(ctx); err != nil {
		t.Fatalf("UnexposePort 失败: %v", err)
	}

	killed, err := sb.KillAllProcesses(ctx)
	if err != nil {
		t.Fatalf("KillAllProcesses 失败: %v", err)
	}
	if killed < 1 {
		t.Fatalf("期望至少终止 1 个进程，实际 %d", killed)
	}
}
