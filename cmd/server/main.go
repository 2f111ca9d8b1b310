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

	"go.uber.org/zap"

	"club-manager/backend/config"
	"club-manager/backend/internal/api/handler"
	"club-manager/backend/internal/api/router"
	"club-manager/backend/internal/repository"
	"club-manager/backend/internal/service"
	"club-manager/backend/pkg/database"
	"club-manager/backend/pkg/jwt"
	applogger "club-manager/backend/pkg/logger"
	"club-manager/backend/pkg/otp"
	"club-manager/backend/pkg/redis"
	"club-manager/backend/pkg/validate"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Business.Timezone),
		zap.String("otp_provider", cfg.OTP.Provider),
	)

	if err := validate.RegisterGin(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if _, err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（失败时降级：黑名单、限流关闭，向导状态存于进程内存）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，以降级模式运行", zap.Error(err))
		rdb = nil
	}

	// 5. 验证码发送渠道
	verifier, err := otp.New(&cfg.OTP, rdb, logger)
	if err != nil {
		logger.Fatal("初始化验证码服务失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	var wizards repository.WizardStore
	var tokens service.TokenStore = noopTokenStore{}
	if rdb != nil {
		wizards = repository.NewRedisWizardStore(rdb)
		tokens = rdb
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db, wizards)
	svc := service.NewService(cfg, repo, jwtMgr, tokens, verifier, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, repo, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}
	logger.Info("服务器已关闭")
}

// noopTokenStore Redis 不可用时的 Token 黑名单：注销不生效
type noopTokenStore struct{}

func (noopTokenStore) BlacklistToken(context.Context, string, time.Duration) error { return nil }
func (noopTokenStore) IsBlacklisted(context.Context, string) (bool, error)         { return false, nil }
