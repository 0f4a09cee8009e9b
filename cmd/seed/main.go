package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/security"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/service"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var companyCode string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机企业, 2: 插入随机用户, 3: 插入随机工单)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&companyCode, "company-code", "", "插入用户或工单的企业邀请码")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
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

	repo := repository.NewRepository(cfg, dbpool)
	hasher := security.NewBcryptHasher(cfg.Identity.BcryptCost)
	tokens := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.Expiration)*time.Second)
	svc := service.New(repo, hasher, tokens, service.WithUniquenessScope(cfg.Identity.UniquenessScope))

	if n <= 0 {
		slog.Error("请输入合法的记录数量")
		return
	}

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		cnt := 0
		for i := 0; i < n; i++ {
			name := utils.GenerateRandomChineseName() + "工程公司"
			company, err := svc.Companies.CreateCompany(context.Background(), name, utils.GenerateEnrollmentCode(8))
			if err != nil {
				slog.Error("无法插入企业", slog.String("error", err.Error()))
				continue
			}

			slog.Info("已插入企业", slog.String("name", company.Name), slog.String("enrollment_code", company.EnrollmentCode))
			cnt++
		}

		slog.Info("插入企业成功", slog.Int("count", cnt))
	case 2:
		company, err := svc.Companies.FindByEnrollmentCode(context.Background(), companyCode)
		if err != nil {
			slog.Error("无法获取企业", slog.String("company_code", companyCode), slog.String("error", err.Error()))
			return
		}

		passwordHash, err := hasher.Hash(cfg.Seed.User.Password)
		if err != nil {
			slog.Error("无法生成密码哈希", slog.String("error", err.Error()))
			return
		}

		// 种子用户直接写入存储，不经过层级策略
		cnt := 0
		for i := 0; i < n; i++ {
			user := utils.GenerateRandomUser(cfg.Seed.EmailDomain)
			user.CompanyID = company.ID
			user.PasswordHash = passwordHash

			if err := repo.Users().Create(context.Background(), user); err != nil {
				slog.Error("无法插入用户", slog.String("username", user.Username), slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 3:
		company, err := svc.Companies.FindByEnrollmentCode(context.Background(), companyCode)
		if err != nil {
			slog.Error("无法获取企业", slog.String("company_code", companyCode), slog.String("error", err.Error()))
			return
		}

		users, err := repo.Users().ListByCompany(context.Background(), company.ID, domain.Page{})
		if err != nil {
			slog.Error("无法获取企业用户", slog.String("error", err.Error()))
			return
		}
		if len(users) == 0 {
			slog.Error("企业中没有用户，请先插入用户", slog.String("company_code", companyCode))
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			// 随机选一个用户作为创建者
			creator := users[rand.Intn(len(users))]

			sample := utils.GenerateRandomWorkOrder()
			deadline := time.Now().Add(time.Duration(rand.Intn(14)+1) * 24 * time.Hour)

			if _, err := svc.WorkOrders.Create(context.Background(), creator, service.CreateWorkOrderInput{
				Title:        sample.Title,
				Description:  sample.Description,
				Location:     sample.Location,
				Deadline:     &deadline,
				Requirements: sample.Requirements,
			}); err != nil {
				slog.Error("无法插入工单", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入工单成功", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}
