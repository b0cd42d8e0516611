package main

import (
	"flag"
	"log"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/config"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/server"
	"github.com/dapeng5004/cursor-wechat-minimall/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./config", "配置文件目录")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	zap.L().Info("web server listening", zap.String("addr", addr))
	if err := app.Run(iris.Addr(addr)); err != nil {
		zap.L().Fatal("failed to run web server", zap.Error(err))
	}
}
