package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string        `env:"ADDR" envDefault:":9999"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`     // 连接处理完一个请求后等待 IdleTimeout 后依旧没有请求，就会关闭此空闲连接
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"` // 关闭服务的最长等待时间，超过后强制断开连接
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`

	// 日志配置信息
	LogLevel  slog.Level // LOG_LEVEL: debug/info/warn/error
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`
	// ServiceName 依次取 OTEL_SERVICE_NAME、SERVICE_NAME，都没有时为 "unknown"
	ServiceName string

	PprofEnabled bool   `env:"PPROF_ENABLED" envDefault:"false"`
	AdminAddr    string `env:"ADMIN_ADDR" envDefault:"127.0.0.1:6060"`

	// JWT 配置
	JWTSecret string        `env:"JWT_SECRET" envDefault:"123456"` // HS256 的签名密钥（对称密钥）
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"123456"` // 签发者标识（iss）
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"12h"`       // token 有效期

	OtlpGrpcEndpoint string `env:"OTLP_GRPC_ENDPOINT" envDefault:"127.0.0.1:4317"`
	TracingEnabled   bool   `env:"TRACING_ENABLED" envDefault:"true"`

	//Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// RateLimit
	RateLimitEnabled bool          `env:"RATELIMIT_ENABLED" envDefault:"true"`
	RateLimitLimit   int           `env:"RATELIMIT_LIMIT" envDefault:"20"`
	RateLimitWindow  time.Duration `env:"RATELIMIT_WINDOW" envDefault:"1m"`
}

func Load() Config {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		// 有格式错误的环境变量时整体回退到默认值
		slog.Warn("config: invalid environment value", "err", err)
		cfg = defaults()
	}

	cfg.LogLevel = parseLevel(os.Getenv("LOG_LEVEL"))
	cfg.ServiceName = serviceName()
	return cfg
}

func defaults() Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func serviceName() string {
	for _, key := range []string{"OTEL_SERVICE_NAME", "SERVICE_NAME"} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
	}
	return "unknown"
}
