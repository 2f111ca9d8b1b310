package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"club-manager/backend/config"
	"club-manager/backend/internal/repository"
	"club-manager/backend/internal/service"
	"club-manager/backend/internal/worker"
	"club-manager/backend/pkg/database"
	applogger "club-manager/backend/pkg/logger"
	"club-manager/backend/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	runOnce := flag.Bool("once", false, "立即执行一次扫描后退出")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log, "worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()

	// worker 不使用预约向导，传 nil 即可
	repo := repository.NewRepository(db, nil)
	subscriptions := service.NewSubscriptionService(&cfg.Business, repo, logger)
	scan := worker.NewExpiryScan(subscriptions, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runOnce {
		if _, err := scan.Run(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	// 定时任务调度器（支持秒级表达式），上一次未结束时跳过
	scheduler := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Business.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := scheduler.AddFunc(cfg.Worker.ExpiringScanSpec, scan.Func(ctx)); err != nil {
		logger.Fatal("注册到期扫描任务失败", zap.String("spec", cfg.Worker.ExpiringScanSpec), zap.Error(err))
	}
	scheduler.Start()
	logger.Info("定时任务已启动", zap.String("expiring_scan", cfg.Worker.ExpiringScanSpec))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("指标服务已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务异常", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("收到关闭信号，等待任务结束...")

	<-scheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("worker 已退出")
}
