// =============================================================================
// QueryFlow 主入口
// =============================================================================
// 查询理解与分层检索引擎的命令行入口
//
// 使用方法:
//
//	queryflow query "berapakah yuran pengajian"   # 单条查询，JSON 输出
//	queryflow repl                                # 交互式查询循环
//	queryflow version                             # 显示版本信息
//
// 通用选项:
//
//	--config <path>     配置文件（YAML）
//	--usage-db <path>   SQLite 使用计数库
//	--log-level <lvl>   debug/info/warn/error
// =============================================================================
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/pipeline"
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

	switch os.Args[1] {
	case "query":
		runQuery(os.Args[2:])
	case "repl":
		runREPL(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// commonFlags 各子命令共享的选项
type commonFlags struct {
	configPath string
	usageDB    string
	logLevel   string
	logFormat  string
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&cf.usageDB, "usage-db", "", "Path to SQLite usage counter database")
	fs.StringVar(&cf.logLevel, "log-level", "warn", "Log level: debug/info/warn/error")
	fs.StringVar(&cf.logFormat, "log-format", "console", "Log format: console/json")
	return cf
}

// buildEngine 按命令行选项装配引擎
func buildEngine(ctx context.Context, cf *commonFlags) (*pipeline.Engine, *zap.Logger, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if cf.configPath != "" {
		loader = loader.WithConfigPath(cf.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := initLogger(cf.logLevel, cf.logFormat)

	opts := pipeline.Options{Logger: logger}
	if cf.usageDB != "" {
		db, err := gorm.Open(sqlite.Open(cf.usageDB), &gorm.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("open usage database: %w", err)
		}
		opts.UsageDB = db
		logger.Info("usage database connected", zap.String("path", cf.usageDB))
	}

	engine, err := pipeline.New(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}

// =============================================================================
// 🔍 query 命令
// =============================================================================

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	cf := bindCommonFlags(fs)
	fs.Parse(args)

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: queryflow query [options] <text>")
		os.Exit(1)
	}

	ctx := context.Background()
	engine, logger, err := buildEngine(ctx, cf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start engine: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	resp, err := engine.ProcessQuery(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// =============================================================================
// 💬 repl 命令
// =============================================================================

func runREPL(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	cf := bindCommonFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	engine, logger, err := buildEngine(ctx, cf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start engine: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println("QueryFlow " + Version + " — type a query, :reload to refresh assets, :quit to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":quit", ":q", ":exit":
			return
		case ":reload":
			if err := engine.Refresh(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
			} else {
				fmt.Println("Assets reloaded.")
			}
			continue
		}

		resp, err := engine.ProcessQuery(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			continue
		}
		printResponse(resp)
	}
}

func printResponse(resp *pipeline.Response) {
	fmt.Printf("[%s] intent=%s confidence=%.2f (%s) domain=%s\n",
		resp.Language, resp.Intent, resp.Confidence, resp.Level, resp.Domain)
	for kind, values := range resp.Entities {
		fmt.Printf("  %s: %s\n", kind, strings.Join(values, ", "))
	}
	for _, p := range resp.PriorityMatched {
		fmt.Printf("  ★ %s\n", p.Answer)
	}
	if resp.Answer != "" {
		fmt.Printf("  → %s\n", resp.Answer)
	} else {
		for _, d := range resp.Documents {
			fmt.Printf("  [%s %.2f] %s\n", d.Tier, d.Score, d.Entry.Answer)
		}
	}
	if resp.Answer == "" && len(resp.Documents) == 0 && len(resp.PriorityMatched) == 0 {
		fmt.Println("  (no relevant knowledge found)")
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("QueryFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`QueryFlow - Query Understanding & Tiered Retrieval Engine

Usage:
  queryflow <command> [options]

Commands:
  query     Process a single query and print the structured result as JSON
  repl      Interactive query loop
  version   Show version information
  help      Show this help message

Common options:
  --config <path>     Path to configuration file (YAML)
  --usage-db <path>   Path to SQLite usage counter database
  --log-level <lvl>   Log level: debug/info/warn/error (default warn)
  --log-format <fmt>  Log format: console/json (default console)

Examples:
  queryflow query "berapakah yuran pengajian"
  queryflow query --config /etc/queryflow/config.yaml "how do i contact the dean"
  queryflow repl --usage-db queryflow.db
  queryflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(levelName, format string) *zap.Logger {
	var level zapcore.Level
	switch levelName {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.WarnLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      format == "console",
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if format != "console" {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
