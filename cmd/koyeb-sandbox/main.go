// koyeb-sandbox 是沙箱 SDK 的命令行前端。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/koyeb/sandbox-go/internal/log"
	"github.com/koyeb/sandbox-go/internal/sessionstore"
	"github.com/koyeb/sandbox-go/sandbox"
)

type globalOptions struct {
	APIToken string `long:"api-token" description:"Koyeb API token (default: $KOYEB_API_TOKEN)"`
	Endpoint string `long:"endpoint" description:"Koyeb API endpoint (default: $KOYEB_API_HOST)"`
	Debug    bool   `long:"debug" description:"Print requests and responses"`
	Store    string `long:"store" description:"Local sandbox registry file (default: ~/.koyeb/sandboxes.json)"`
}

// app 保存全局选项，并为各子命令提供客户端和本地记录。
type app struct {
	opts globalOptions
	ctx  context.Context

	logOnce sync.Once
}

// exitCodeError 让进程以远端命令的退出码退出。
type exitCodeError int

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", int(e))
}

// setupLogger 按 --debug 初始化全局 logger，只在第一次调用时生效。
func (a *app) setupLogger() {
	a.logOnce.Do(func() {
		logger, err := log.New(a.opts.Debug)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to create logger:", err)
			return
		}
		log.SetLogger(logger)
	})
}

func (a *app) client() (*sandbox.Client, error) {
	a.setupLogger()
	config := &sandbox.Config{
		APIToken: a.opts.APIToken,
		Endpoint: a.opts.Endpoint,
		Logger:   log.Logger(),
	}
	if a.opts.Debug {
		debug := true
		config.Debug = &debug
	}
	return sandbox.NewClient(config)
}

func (a *app) store() (*sessionstore.Store, error) {
	a.setupLogger()
	path := a.opts.Store
	if path == "" {
		path = sessionstore.DefaultPath()
	}
	return sessionstore.New(path)
}

// open 通过本地名称或服务 ID 打开沙箱。
func (a *app) open(ref string) (*sandbox.Sandbox, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	id := ref
	if store, err := a.store(); err == nil {
		if record, ok, err := store.Resolve(ref); err != nil {
			log.Warn("failed to read sandbox registry", zap.Error(err))
		} else if ok {
			id = record.ID
		}
	}
	return c.GetFromID(a.ctx, id)
}

func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	registerCommands(parser, a)
	return parser
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{ctx: ctx}
	parser := newParser(a)
	_, err := parser.Parse()
	log.Logger().Sync()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			return
		}
		var code exitCodeError
		if errors.As(err, &code) {
			stop()
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
