package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	UniquenessScopeCompany = "company"
	UniquenessScopeGlobal  = "global"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Storage struct {
		Driver string `env:"DRIVER" envDefault:"postgres"`
	} `envPrefix:"STORAGE_"`
	Database struct {
		DSN                string `env:"DSN"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username    string `env:"USERNAME" envDefault:"admin"`
		Password    string `env:"PASSWORD,required"`
		FullName    string `env:"FULL_NAME" envDefault:"系统管理员"`
		Email       string `env:"EMAIL,required"`
		CompanyName string `env:"COMPANY_NAME" envDefault:"系统"`
		CompanyCode string `env:"COMPANY_CODE" envDefault:"SYSTEM"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"86400"` // 1 天
		Secret     string `env:"SECRET,required"`
		Issuer     string `env:"ISSUER" envDefault:"work-order-manager"`
	} `envPrefix:"JWT_"`
	Redis struct {
		Host             string `env:"HOST" envDefault:"localhost"`
		Port             int    `env:"PORT" envDefault:"6379"`
		Password         string `env:"PASSWORD"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"5"`
		DenylistPrefix   string `env:"DENYLIST_PREFIX" envDefault:"revoked_token_"`
	} `envPrefix:"REDIS_"`
	RabbitMQ struct {
		DSN            string `env:"DSN"` // 为空时不发布审计事件
		Exchange       string `env:"EXCHANGE" envDefault:"work_order_events"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Identity struct {
		UniquenessScope string `env:"UNIQUENESS_SCOPE" envDefault:"company"`
		BcryptCost      int    `env:"BCRYPT_COST" envDefault:"10"`
	} `envPrefix:"IDENTITY_"`
	RateLimit struct {
		LoginRPS   float64 `env:"LOGIN_RPS" envDefault:"1"`
		LoginBurst int     `env:"LOGIN_BURST" envDefault:"5"`
		// 开启后限流按 X-Forwarded-For 等头部识别客户端，仅用于可信反向代理之后
		TrustProxy bool    `env:"TRUST_PROXY" envDefault:"false"`
	} `envPrefix:"RATE_LIMIT_"`
	Pagination struct {
		DefaultLimit int `env:"DEFAULT_LIMIT" envDefault:"50"`
		MaxLimit     int `env:"MAX_LIMIT" envDefault:"200"`
	} `envPrefix:"PAGINATION_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"changeme123"`
		} `envPrefix:"USER_"`
		EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"example.com"`
	} `envPrefix:"SEED_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Storage.Driver {
	case StorageDriverPostgres:
		if cfg.Database.DSN == "" {
			return errors.New(`使用 postgres 存储时必须设置 "DATABASE_DSN"`)
		}
	case StorageDriverMemory:
	default:
		return errors.New(`"STORAGE_DRIVER" 只能是 postgres 或 memory`)
	}

	switch cfg.Identity.UniquenessScope {
	case UniquenessScopeCompany, UniquenessScopeGlobal:
	default:
		return errors.New(`"IDENTITY_UNIQUENESS_SCOPE" 只能是 company 或 global`)
	}

	if cfg.Pagination.DefaultLimit <= 0 || cfg.Pagination.MaxLimit < cfg.Pagination.DefaultLimit {
		return errors.New("分页参数配置无效")
	}

	return nil
}
