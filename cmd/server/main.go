package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasklist/api"
	"tasklist/config"
	"tasklist/database"
	"tasklist/handler"
)

func main() {
	configPath := flag.String("config", os.Getenv("TASKLIST_CONFIG"), "path to a .yaml or .toml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.DefaultConfig().Log.NewLogger(os.Stderr).Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	// 初始化数据库
	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// 创建处理器
	h := handler.NewHandler(db, cfg.EngineConfig().Strictness, logger)

	// 设置路由
	mux := api.SetupRoutes(h)

	// 启动服务器
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 优雅关闭
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
}
