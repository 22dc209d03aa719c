// Package sandbox 是 Koyeb 沙箱的 Go SDK，用于创建云端沙箱并在其中执行命令。
//
// 沙箱是运行在 Koyeb 上的一个服务，内置执行器通过 HTTP 提供命令执行、
// 后台进程管理、端口暴露和文件系统操作。执行器请求使用创建时生成的凭证认证。
//
// # 快速开始
//
//	c, err := sandbox.NewClient(&sandbox.Config{
//	    APIToken: os.Getenv("KOYEB_API_TOKEN"),
//	})
//
//	sb, err := c.Create(ctx, sandbox.CreateParams{Name: "my-sandbox"})
//	defer sb.Delete(ctx)
//
//	result, err := sb.Exec(ctx, "echo hello", sandbox.WithCwd("/tmp"))
//	fmt.Println(result.Stdout)
//
// # 配置
//
// [Config] 中未设置的字段依次从环境变量 KOYEB_API_TOKEN、KOYEB_API_HOST、KOYEB_DEBUG，
// 配置文件（KOYEB_CONFIG_FILE，默认 ~/.koyeb/config.toml，profile 由 KOYEB_PROFILE 指定）
// 和默认值中获取。
//
// # 沙箱生命周期
//
//   - [Client.Create]: 创建沙箱，默认等待就绪，超时返回 [*TimeoutError]
//   - [Client.GetFromID]: 通过 ID 重新连接已有沙箱
//   - [Sandbox.WaitReady] / [Sandbox.IsHealthy]: 轮询或检查执行器是否就绪
//   - [Sandbox.TCPProxyInfo] / [Sandbox.WaitTCPProxyReady]: 查询 TCP 代理地址
//   - [Sandbox.UpdateLifecycle]: 更新自动删除策略
//   - [Sandbox.Delete]: 删除沙箱
//
// # 命令执行
//
// [Sandbox.Exec] 等待命令结束后返回完整输出。[Sandbox.ExecStream] 立即返回，
// 输出以事件的形式按到达顺序交付:
//
//	stream := sb.ExecStream(ctx, "make build",
//	    sandbox.WithOnStdout(func(data string) { fmt.Print(data) }),
//	    sandbox.WithOnStderr(func(data string) { fmt.Fprint(os.Stderr, data) }),
//	)
//	result, err := stream.Wait()
//
// 每个流以一个 end 或 error 事件结束，之后不会再有事件。
//
// # 后台进程与端口
//
//   - [Sandbox.LaunchProcess] / [Sandbox.ListProcesses] / [Sandbox.KillProcess] / [Sandbox.KillAllProcesses]
//   - [Sandbox.ExposePort] / [Sandbox.UnexposePort]: 同一时间只暴露一个端口
//
// # 轮询选项
//
// [WaitFor]、[Sandbox.WaitReady] 和 [Sandbox.WaitTCPProxyReady] 支持
// 通过 [PollOption] 自定义轮询行为:
//
//   - [WithPollInterval]: 设置轮询间隔
//   - [WithBackoff]: 启用指数退避
//   - [WithJitter]: 间隔随机浮动
//   - [WithOnPoll]: 注册轮询回调（用于日志或进度展示）
package sandbox
