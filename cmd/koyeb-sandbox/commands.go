package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/koyeb/sandbox-go/internal/log"
	"github.com/koyeb/sandbox-go/internal/sessionstore"
	"github.com/koyeb/sandbox-go/sandbox"
)

func registerCommands(parser *flags.Parser, a *app) {
	commands := []struct {
		name, short string
		data        flags.Commander
	}{
		{"create", "Create a sandbox", &createCommand{app: a}},
		{"get", "Show a sandbox", &getCommand{app: a}},
		{"wait", "Wait until a sandbox is healthy", &waitCommand{app: a}},
		{"exec", "Run a command and print its output", &execCommand{app: a}},
		{"stream", "Run a command and stream its output", &streamCommand{app: a}},
		{"ps", "List background processes", &psCommand{app: a}},
		{"launch", "Start a background process", &launchCommand{app: a}},
		{"kill", "Kill a background process", &killCommand{app: a}},
		{"killall", "Kill every running background process", &killAllCommand{app: a}},
		{"expose", "Expose a port of the sandbox", &exposeCommand{app: a}},
		{"unexpose", "Unexpose the exposed port", &unexposeCommand{app: a}},
		{"lifecycle", "Update auto delete delays", &lifecycleCommand{app: a}},
		{"delete", "Delete a sandbox", &deleteCommand{app: a}},
		{"list", "List locally recorded sandboxes", &listCommand{app: a}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, "", c.data); err != nil {
			panic(err)
		}
	}
}

type sandboxArg struct {
	Sandbox string `positional-arg-name:"sandbox" description:"Local name or service id"`
}

type commandArgs struct {
	Sandbox string   `positional-arg-name:"sandbox" description:"Local name or service id"`
	Command []string `positional-arg-name:"command" required:"1"`
}

func (c commandArgs) command() string {
	return strings.Join(c.Command, " ")
}

// ---------------------------------------------------------------------------
// create
// ---------------------------------------------------------------------------

type createCommand struct {
	app *app

	Spec                  string            `long:"spec" description:"YAML file with sandbox parameters"`
	Name                  string            `long:"name" description:"Sandbox name"`
	Image                 string            `long:"image" description:"Container image"`
	InstanceType          string            `long:"instance-type" description:"Instance type"`
	Region                string            `long:"region" description:"Region"`
	Protocol              string            `long:"protocol" choice:"http" choice:"http2" description:"Protocol of the exposed port"`
	Env                   map[string]string `short:"e" long:"env" description:"Environment variable as KEY:VALUE"`
	Timeout               time.Duration     `long:"timeout" description:"Readiness timeout"`
	IdleTimeout           sandbox.Duration  `long:"idle-timeout" description:"Idle delay before sleeping, 0 disables sleep"`
	NoWait                bool              `long:"no-wait" description:"Return without waiting for readiness"`
	TCPProxy              bool              `long:"tcp-proxy" description:"Enable the public TCP proxy"`
	Privileged            bool              `long:"privileged" description:"Run the container privileged"`
	RegistrySecret        string            `long:"registry-secret" description:"Registry secret name"`
	DeleteAfter           sandbox.Duration  `long:"delete-after" description:"Delete the sandbox after this delay"`
	DeleteAfterInactivity sandbox.Duration  `long:"delete-after-inactivity" description:"Delete the sandbox after sleeping this long"`
	LightSleep            bool              `long:"light-sleep" description:"Use light sleep when idle"`
}

// params 合并 --spec 文件与命令行参数，命令行参数优先。
func (c *createCommand) params() (sandbox.CreateParams, error) {
	spec := &sandboxSpec{}
	if c.Spec != "" {
		var err error
		if spec, err = loadSpec(c.Spec); err != nil {
			return sandbox.CreateParams{}, err
		}
	}
	params, err := spec.params()
	if err != nil {
		return params, err
	}

	setString(&params.Name, c.Name)
	setString(&params.Image, c.Image)
	setString(&params.InstanceType, c.InstanceType)
	setString(&params.Region, c.Region)
	setString(&params.ExposedPortProtocol, c.Protocol)
	setString(&params.RegistrySecret, c.RegistrySecret)
	if len(c.Env) > 0 {
		env := make(map[string]string, len(params.Env)+len(c.Env))
		for k, v := range params.Env {
			env[k] = v
		}
		for k, v := range c.Env {
			env[k] = v
		}
		params.Env = env
	}
	if c.Timeout > 0 {
		params.Timeout = c.Timeout
	}
	if c.IdleTimeout != "" {
		idle, err := c.IdleTimeout.Seconds()
		if err != nil {
			return params, fmt.Errorf("--idle-timeout: %w", err)
		}
		d := time.Duration(idle) * time.Second
		params.IdleTimeout = &d
	}
	if c.NoWait {
		waitReady := false
		params.WaitReady = &waitReady
	}
	params.EnableTCPProxy = params.EnableTCPProxy || c.TCPProxy
	params.Privileged = params.Privileged || c.Privileged
	params.ExperimentalLightSleep = params.ExperimentalLightSleep || c.LightSleep
	if c.DeleteAfter != "" {
		params.DeleteAfterDelay = c.DeleteAfter
	}
	if c.DeleteAfterInactivity != "" {
		params.DeleteAfterInactivityDelay = c.DeleteAfterInactivity
	}
	return params, nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *createCommand) Execute(args []string) error {
	params, err := c.params()
	if err != nil {
		return err
	}
	client, err := c.app.client()
	if err != nil {
		return err
	}
	sb, err := client.Create(c.app.ctx, params)
	if sb == nil {
		return err
	}
	if store, storeErr := c.app.store(); storeErr != nil {
		log.Warn("failed to open sandbox registry", zap.Error(storeErr))
	} else if storeErr = store.Put(sessionstore.Record{
		Name:      sb.Name(),
		ID:        sb.ID(),
		AppID:     sb.AppID(),
		CreatedAt: time.Now(),
	}); storeErr != nil {
		log.Warn("failed to record sandbox", zap.Error(storeErr))
	}
	fmt.Println(sb.ID())
	return err
}

// ---------------------------------------------------------------------------
// get / wait / delete / list
// ---------------------------------------------------------------------------

type getCommand struct {
	app  *app
	Args sandboxArg `positional-args:"yes" required:"yes"`
}

func (c *getCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", sb.ID())
	fmt.Fprintf(w, "APP\t%s\n", sb.AppID())
	fmt.Fprintf(w, "NAME\t%s\n", sb.Name())
	if url, err := sb.URL(c.app.ctx); err == nil {
		fmt.Fprintf(w, "URL\t%s\n", url)
	}
	healthy, err := sb.IsHealthy(c.app.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "HEALTHY\t%t\n", healthy)
	if info, err := sb.TCPProxyInfo(c.app.ctx); err == nil && info != nil {
		fmt.Fprintf(w, "TCP PROXY\t%s:%d\n", info.Host, info.PublicPort)
	}
	return w.Flush()
}

type waitCommand struct {
	app     *app
	Timeout time.Duration `long:"timeout" default:"60s" description:"Give up after this long"`
	Proxy   bool          `long:"tcp-proxy" description:"Also wait for the TCP proxy"`
	Args    sandboxArg    `positional-args:"yes" required:"yes"`
}

func (c *waitCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	ready, err := sb.WaitReady(c.app.ctx, c.Timeout, sandbox.WithBackoff(1.5, 5*time.Second), sandbox.WithJitter())
	if err != nil {
		return err
	}
	if !ready {
		return &sandbox.TimeoutError{Name: sb.Name(), Timeout: c.Timeout}
	}
	if c.Proxy {
		ready, err = sb.WaitTCPProxyReady(c.app.ctx, c.Timeout)
		if err != nil {
			return err
		}
		if !ready {
			return errors.New("tcp proxy is not ready")
		}
	}
	fmt.Println("ready")
	return nil
}

type deleteCommand struct {
	app  *app
	Args sandboxArg `positional-args:"yes" required:"yes"`
}

func (c *deleteCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil && !sandbox.IsNotFound(err) {
		return err
	}
	if sb != nil {
		if err := sb.Delete(c.app.ctx); err != nil {
			return err
		}
	}
	store, err := c.app.store()
	if err != nil {
		return err
	}
	return store.Remove(c.Args.Sandbox)
}

type listCommand struct {
	app *app
}

func (c *listCommand) Execute(args []string) error {
	store, err := c.app.store()
	if err != nil {
		return err
	}
	records, err := store.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tAPP\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.ID, r.AppID, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

type lifecycleCommand struct {
	app                   *app
	DeleteAfter           sandbox.Duration `long:"delete-after" description:"Delete the sandbox after this delay"`
	DeleteAfterInactivity sandbox.Duration `long:"delete-after-inactivity" description:"Delete the sandbox after sleeping this long"`
	Args                  sandboxArg       `positional-args:"yes" required:"yes"`
}

func (c *lifecycleCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	return sb.UpdateLifecycle(c.app.ctx, sandbox.LifecycleParams{
		DeleteAfterDelay:           c.DeleteAfter,
		DeleteAfterInactivityDelay: c.DeleteAfterInactivity,
	})
}

// ---------------------------------------------------------------------------
// exec / stream
// ---------------------------------------------------------------------------

type execCommand struct {
	app  *app
	Cwd  string            `long:"cwd" description:"Working directory"`
	Env  map[string]string `short:"e" long:"env" description:"Environment variable as KEY:VALUE"`
	Args commandArgs       `positional-args:"yes" required:"yes"`
}

func (c *execCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	result, err := sb.Exec(c.app.ctx, c.Args.command(), sandbox.WithCwd(c.Cwd), sandbox.WithEnv(c.Env))
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, result.Stdout)
	fmt.Fprint(os.Stderr, result.Stderr)
	if result.Code != 0 {
		return exitCodeError(result.Code)
	}
	return nil
}

type streamCommand struct {
	app  *app
	Cwd  string            `long:"cwd" description:"Working directory"`
	Env  map[string]string `short:"e" long:"env" description:"Environment variable as KEY:VALUE"`
	Args commandArgs       `positional-args:"yes" required:"yes"`
}

func (c *streamCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	stream := sb.ExecStream(c.app.ctx, c.Args.command(),
		sandbox.WithCwd(c.Cwd),
		sandbox.WithEnv(c.Env),
		sandbox.WithOnStdout(func(data string) { fmt.Fprint(os.Stdout, data) }),
		sandbox.WithOnStderr(func(data string) { fmt.Fprint(os.Stderr, data) }),
	)
	result, err := stream.Wait()
	if err != nil {
		return err
	}
	if result.ExitCode != nil && *result.ExitCode != 0 {
		return exitCodeError(*result.ExitCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// processes
// ---------------------------------------------------------------------------

type psCommand struct {
	app  *app
	Args sandboxArg `positional-args:"yes" required:"yes"`
}

func (c *psCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	processes, err := sb.ListProcesses(c.app.ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPID\tSTATUS\tCOMMAND")
	for _, p := range processes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.PID, p.Status, p.Command)
	}
	return w.Flush()
}

type launchCommand struct {
	app  *app
	Cwd  string            `long:"cwd" description:"Working directory"`
	Env  map[string]string `short:"e" long:"env" description:"Environment variable as KEY:VALUE"`
	Args commandArgs       `positional-args:"yes" required:"yes"`
}

func (c *launchCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	id, err := sb.LaunchProcess(c.app.ctx, c.Args.command(), sandbox.WithCwd(c.Cwd), sandbox.WithEnv(c.Env))
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

type killCommand struct {
	app  *app
	Args struct {
		Sandbox string `positional-arg-name:"sandbox" description:"Local name or service id"`
		Process string `positional-arg-name:"process-id"`
	} `positional-args:"yes" required:"yes"`
}

func (c *killCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	return sb.KillProcess(c.app.ctx, c.Args.Process)
}

type killAllCommand struct {
	app  *app
	Args sandboxArg `positional-args:"yes" required:"yes"`
}

func (c *killAllCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	n, err := sb.KillAllProcesses(c.app.ctx)
	fmt.Printf("killed %d process(es)\n", n)
	return err
}

// ---------------------------------------------------------------------------
// ports
// ---------------------------------------------------------------------------

type exposeCommand struct {
	app  *app
	Args struct {
		Sandbox string `positional-arg-name:"sandbox" description:"Local name or service id"`
		Port    int    `positional-arg-name:"port"`
	} `positional-args:"yes" required:"yes"`
}

func (c *exposeCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	exposed, err := sb.ExposePort(c.app.ctx, c.Args.Port)
	if err != nil {
		return err
	}
	fmt.Println(exposed.ExposedAt)
	return nil
}

type unexposeCommand struct {
	app  *app
	Port int        `long:"port" description:"Only unexpose if this port is exposed"`
	Args sandboxArg `positional-args:"yes" required:"yes"`
}

func (c *unexposeCommand) Execute(args []string) error {
	sb, err := c.app.open(c.Args.Sandbox)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		return sb.UnexposePortNumber(c.app.ctx, c.Port)
	}
	return sb.UnexposePort(c.app.ctx)
}
