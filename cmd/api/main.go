package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/events"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/handler"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/obs"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/security"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/service"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 创建存储
	 **********************************************/
	var st store.Store
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("正在使用内存存储，重启后数据将丢失")
		st = store.NewMemory()
	default:
		dbpool, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			logger.Error("无法创建数据库连接池", "error", err)
			return
		}
		defer dbpool.Close()

		dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
		defer cancel()

		// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
		if err := dbpool.PingContext(ctx); err != nil {
			logger.Error("无法连接到数据库", "error", err)
			return
		}

		st = repository.NewRepository(cfg, dbpool)
	}

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	redisTimeout := time.Duration(cfg.Redis.OperationTimeout) * time.Second
	pingCtx, cancelPing := context.WithTimeout(context.Background(), redisTimeout)
	defer cancelPing()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.DSN == "" {
		logger.Warn("未配置 rabbitmq，审计事件不会被发布")
	} else {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			logger.Error("无法连接到 rabbitmq", "error", err)
			return
		}
		defer conn.Close()

		// 建立通道
		ch, err := conn.Channel()
		if err != nil {
			logger.Error("无法建立通道", "error", err)
			return
		}
		defer ch.Close()

		if err := events.DeclareExchange(ch, cfg.RabbitMQ.Exchange); err != nil {
			logger.Error("无法声明交换机", "exchange", cfg.RabbitMQ.Exchange, "error", err)
			return
		}

		publisher = events.NewAMQPPublisher(ch, cfg.RabbitMQ.Exchange, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	}

	/**********************************************
	 * 注册监控指标
	 **********************************************/
	if err := obs.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("无法注册监控指标", "error", err)
		return
	}

	/**********************************************
	 * 创建 service
	 **********************************************/
	hasher := security.NewBcryptHasher(cfg.Identity.BcryptCost)
	tokens := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.Expiration)*time.Second)

	svc := service.New(st, hasher, tokens,
		service.WithDenylist(security.NewRedisDenylist(rdb, cfg.Redis.DenylistPrefix, redisTimeout)),
		service.WithPublisher(publisher),
		service.WithUniquenessScope(cfg.Identity.UniquenessScope),
		service.WithPagination(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit),
	)

	/**********************************************
	 * 确保存在系统企业和初始管理员
	 **********************************************/
	if err := ensureInitialAdmin(context.Background(), cfg, st, svc, hasher); err != nil {
		logger.Error("无法创建初始管理员", "error", err)
		return
	}

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, svc)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}

// ensureInitialAdmin 创建系统企业及其系统管理员，已经存在时不做任何处理
func ensureInitialAdmin(ctx context.Context, cfg *config.Config, st store.Store, svc *service.Service, hasher *security.BcryptHasher) error {
	company, err := svc.Companies.CreateCompany(ctx, cfg.InitialAdmin.CompanyName, cfg.InitialAdmin.CompanyCode)
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		// 系统企业已经存在
		company, err = svc.Companies.FindByEnrollmentCode(ctx, cfg.InitialAdmin.CompanyCode)
		if err != nil {
			return err
		}
	}

	passwordHash, err := hasher.Hash(cfg.InitialAdmin.Password)
	if err != nil {
		return err
	}

	admin := &domain.User{
		CompanyID:    company.ID,
		FullName:     cfg.InitialAdmin.FullName,
		Username:     cfg.InitialAdmin.Username,
		Email:        service.NormalizeEmail(cfg.InitialAdmin.Email),
		PasswordHash: passwordHash,
		Level:        domain.LevelSystemAdmin,
		IsActive:     true,
	}

	exists, err := st.Users().ExistsByUsernameInCompany(ctx, admin.Username, company.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := st.Users().Create(ctx, admin); err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}

	slog.Info("已创建初始管理员", "username", admin.Username, "company", company.Name)
	return nil
}
