package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-agent-go/internal/agent"
	"cv-agent-go/internal/api/handler"
	"cv-agent-go/internal/api/router"
	"cv-agent-go/internal/chat"
	"cv-agent-go/internal/config"
	"cv-agent-go/internal/constants"
	"cv-agent-go/internal/extractor"
	appLogger "cv-agent-go/internal/logger"
	"cv-agent-go/internal/parser"
	"cv-agent-go/internal/storage"
	"cv-agent-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	// .env仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	var (
		configPath string
		initConfig bool
	)
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	pflag.BoolVar(&initConfig, "init-config", false, "在配置文件路径生成示例配置后退出")
	pflag.Parse()

	if initConfig {
		if err := config.CreateSampleConfig(configPath); err != nil {
			log.Fatalf("生成示例配置失败: %v", err)
		}
		log.Printf("示例配置已写入: %s", configPath)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		Enabled:      cfg.Tracing.Enabled,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		glog.Fatalf("初始化追踪失败: %v", err)
	}
	if cfg.Tracing.Enabled {
		glog.Infof("OTLP追踪已启用，collector: %s", cfg.Tracing.OTLPEndpoint)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	llmChatModel := agent.NewClaudeCLIChatModel(cfg.Claude.CLIPath, cfg.Claude.Model)
	glog.Infof("Claude命令行模型初始化成功: %s", cfg.Claude.CLIPath)

	var pdfEngine extractor.PDFEngine
	if cfg.Upload.PDFEngine == "eino" {
		pdfEngine, err = extractor.NewEinoPDFEngine(ctx)
		if err != nil {
			glog.Fatalf("创建Eino PDF引擎失败: %v", err)
		}
		glog.Info("使用Eino PDF文本提取引擎")
	} else {
		pdfEngine = extractor.NewNativePDFEngine()
		glog.Info("使用原生PDF文本提取引擎")
	}
	textExtractor := extractor.NewFileTextExtractor(pdfEngine)

	profileTTL := time.Duration(cfg.Chat.HistoryTTLHours) * time.Hour
	resultSink := storage.NewParseResultSink(storageManager, profileTTL)

	progressiveParser := parser.NewProgressiveParser(
		llmChatModel,
		cfg.Upload.ParsedDir,
		parser.WithStepTimeout(config.GetDuration(cfg.Claude.StepTimeout, 45*time.Second)),
		parser.WithFullParseTimeout(config.GetDuration(cfg.Claude.FullParseTimeout, 120*time.Second)),
		parser.WithResultSink(resultSink),
	)
	glog.Info("渐进式解析器初始化成功")

	chatMemory := buildChatMemory(cfg, storageManager)
	responder := chat.NewResponder(llmChatModel, chatMemory,
		config.GetDuration(cfg.Claude.ChatTimeout, 30*time.Second))

	cvHandler := handler.NewCVHandler(cfg, storageManager, textExtractor, progressiveParser, resultSink)
	chatHandler := handler.NewChatHandler(responder, storageManager)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cvHandler, chatHandler, cfg.Server.APIKey)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("追踪关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog全局日志并桥接到Hertz的hlog
func initLogger(cfg *config.Config) {
	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}

// buildChatMemory 根据配置选择会话历史存储，Redis不可用时降级到内存
func buildChatMemory(cfg *config.Config, storageManager *storage.Storage) agent.ChatMemory {
	maxEntries := cfg.Chat.MaxExchanges * 2
	if cfg.Chat.HistoryStore == "redis" && storageManager.Redis != nil {
		ttl := time.Duration(cfg.Chat.HistoryTTLHours) * time.Hour
		memory, err := agent.NewRedisChatMemory(storageManager.Redis.Client, constants.KeyChatHistoryPrefix, ttl, maxEntries)
		if err == nil {
			glog.Info("会话历史使用Redis存储")
			return memory
		}
		glog.Warnf("Redis会话历史初始化失败，降级到内存存储: %v", err)
	}
	glog.Info("会话历史使用内存存储")
	return agent.NewInMemoryChatMemory(maxEntries)
}
