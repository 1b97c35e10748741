package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Solver    SolverConfig    `mapstructure:"solver"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port             int        `mapstructure:"port"`
	BaseURL          string     `mapstructure:"base_url"`
	MaxBodyBytes     int64      `mapstructure:"max_body_bytes"`
	SaveMaxBodyBytes int64      `mapstructure:"save_max_body_bytes"` // 保存求解结果的请求携带完整排班，单独设置上限
	Compress         bool       `mapstructure:"compress"`            // 按 Accept-Encoding 压缩响应
	CORS             CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
// AllowOrigins 含 "*" 时放行任意来源（此时不携带凭证）
type CORSConfig struct {
	AllowOrigins  []string      `mapstructure:"allow_origins"`
	AllowMethods  []string      `mapstructure:"allow_methods"`
	AllowHeaders  []string      `mapstructure:"allow_headers"`
	ExposeHeaders []string      `mapstructure:"expose_headers"`
	MaxAge        time.Duration `mapstructure:"max_age"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（当前仅用于限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 配置
// 身份认证由上游 AccessControl 完成，本服务只校验签名并读取租户与权限声明
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SolverConfig 外部排班求解器配置
type SolverConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig 排班运行记录归档（S3 兼容存储）
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`     // 可选，为空时使用默认凭证链
	SecretAccessKey string `mapstructure:"secret_access_key"` // 可选
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 求解接口限流配置
type RateLimitConfig struct {
	SolverLimit  int           `mapstructure:"solver_limit"`
	SolverWindow time.Duration `mapstructure:"solver_window"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 2<<20)
	v.SetDefault("server.save_max_body_bytes", 16<<20)
	v.SetDefault("server.compress", true)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors.allow_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("server.cors.expose_headers", []string{"X-Request-ID", "Content-Disposition"})
	v.SetDefault("server.cors.max_age", "24h")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "rosterpro")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "rosterpro")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("solver.url", "http://localhost:5000/schedule")
	v.SetDefault("solver.timeout", "30s")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.prefix", "schedule-runs")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.solver_limit", 10)
	v.SetDefault("rate_limit.solver_window", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Solver.URL == "" {
		return fmt.Errorf("配置校验失败: solver.url 不能为空")
	}
	if c.Solver.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: solver.timeout 必须大于 0")
	}
	if c.Server.SaveMaxBodyBytes > 0 && c.Server.MaxBodyBytes > 0 && c.Server.SaveMaxBodyBytes < c.Server.MaxBodyBytes {
		return fmt.Errorf("配置校验失败: server.save_max_body_bytes 不能小于 server.max_body_bytes")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("配置校验失败: archive.enabled 时 archive.bucket 不能为空")
	}
	return nil
}
