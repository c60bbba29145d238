// =============================================================================
// mcpclient 主入口
// =============================================================================
// MCP 客户端命令行，连接服务端完成握手后执行单个操作
//
// 使用方法:
//
//	mcpclient tools --config mcpclient.yaml        # 列出工具
//	mcpclient call echo '{"text":"hi"}'             # 调用工具
//	mcpclient resources                            # 列出资源
//	mcpclient read file:///tmp/a.txt               # 读取资源
//	mcpclient ping                                 # 存活检查
//	mcpclient capabilities                         # 显示握手结果
//	mcpclient listen                               # 持续输出服务端通知
//	mcpclient version                              # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/mcpclient/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		if !isOperation(cmd) {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
		os.Exit(runCommand(cmd, os.Args[2:]))
	}
}

// runCommand 加载配置、建立连接并执行操作，返回进程退出码
func runCommand(cmd string, args []string) int {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 0, "Override client.request_timeout")
	_ = fs.Parse(args)

	// 加载配置
	cfg, err := config.NewLoader().
		WithConfigPath(*configPath).
		Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *timeout > 0 {
		cfg.Client.RequestTimeout = *timeout
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		return 1
	}

	// 初始化日志
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, cmd, fs.Args(), os.Stdout, logger); err != nil {
		logger.Error("command failed", zap.String("command", cmd), zap.Error(err))
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("mcpclient %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`mcpclient - Model Context Protocol client

Usage:
  mcpclient <command> [options] [arguments]

Commands:
  tools                   List tools offered by the server
  call <name> [json]      Call a tool with optional JSON arguments
  resources               List resources offered by the server
  read <uri>              Read a resource
  ping                    Check that the server is alive
  capabilities            Show the negotiated initialize result
  listen                  Print server notifications until interrupted
  version                 Show version information
  help                    Show this help message

Options:
  --config <path>         Path to configuration file (YAML)
  --timeout <duration>    Override the request timeout (e.g. 10s)

Environment:
  MCPCLIENT_TRANSPORT_KIND, MCPCLIENT_TRANSPORT_COMMAND, MCPCLIENT_TRANSPORT_URL, ...
  override the matching YAML keys.

Examples:
  mcpclient tools --config /etc/mcpclient/config.yaml
  mcpclient call echo '{"text":"hello"}'
  MCPCLIENT_TRANSPORT_KIND=websocket MCPCLIENT_TRANSPORT_URL=ws://localhost:8080/mcp mcpclient ping`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          cfg.Format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
