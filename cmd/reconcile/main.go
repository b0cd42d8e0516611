package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dapeng5004/cursor-wechat-minimall/internal/config"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/repository/mysql"
	"github.com/dapeng5004/cursor-wechat-minimall/internal/service"
	"github.com/dapeng5004/cursor-wechat-minimall/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./config", "配置文件目录")
	once := flag.Bool("once", false, "只执行一次对账后退出")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Env); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	db := mysql.Init(&cfg.MySQL)
	svc := service.NewReconcileService(
		mysql.NewReconciliationRepository(db), cfg.Reconcile.AutoRepair)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		report, err := svc.Run(ctx)
		if err != nil {
			zap.L().Fatal("reconcile run failed", zap.Error(err))
		}
		zap.L().Info("reconcile finished",
			zap.Int("drifts", len(report.Drifts)),
			zap.Int("repaired", report.Repaired))
		return
	}

	zap.L().Info("reconcile worker started",
		zap.Duration("interval", cfg.Reconcile.Interval),
		zap.Bool("auto_repair", cfg.Reconcile.AutoRepair))
	svc.RunEvery(ctx, cfg.Reconcile.Interval)
}
