package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	CORS         CORSConfig `mapstructure:"cors"`
	BodyLimitMB  int64      `mapstructure:"body_limit_mb"`
	RateLimit    int        `mapstructure:"rate_limit"` // 每分钟每个用户的请求上限，0 为不限
	ShutdownWait int        `mapstructure:"shutdown_wait"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
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

// RedisConfig Redis 配置，Addr 为空时不连接
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output 日志输出位置：stdout、stderr 或文件路径
	Output string `mapstructure:"output"`
}

// PlannerConfig 日历与计时器配置
type PlannerConfig struct {
	TermStart               string        `mapstructure:"term_start"` // 学期第一周的任意一天，YYYY-MM-DD
	Timezone                string        `mapstructure:"timezone"`
	TickInterval            time.Duration `mapstructure:"tick_interval"`
	DefaultCountdownMinutes int           `mapstructure:"default_countdown_minutes"`
	CleanupEnabled          bool          `mapstructure:"cleanup_enabled"`
	TimerIdleTimeout        time.Duration `mapstructure:"timer_idle_timeout"` // 空闲计时器回收时间，负数不回收
}

// Location 计划所用时区
func (p *PlannerConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

// TermStartDate 解析学期起点
func (p *PlannerConfig) TermStartDate() (time.Time, error) {
	loc, err := p.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation("2006-01-02", p.TermStart, loc)
}

// SyncConfig 远程 KV 同步配置
type SyncConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.shutdown_wait", 5)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "planner")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("planner.term_start", "2025-09-15")
	v.SetDefault("planner.timezone", "Asia/Shanghai")
	v.SetDefault("planner.tick_interval", "250ms")
	v.SetDefault("planner.default_countdown_minutes", 60)
	v.SetDefault("planner.cleanup_enabled", true)
	v.SetDefault("planner.timer_idle_timeout", "30m")

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.timeout", "5s")

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
	v.SetEnvPrefix("PLANNER")
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
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := c.Planner.TermStartDate(); err != nil {
		return fmt.Errorf("配置校验失败: planner.term_start 格式应为 YYYY-MM-DD: %w", err)
	}
	if c.Planner.TickInterval <= 0 {
		return fmt.Errorf("配置校验失败: planner.tick_interval 必须大于 0")
	}
	if c.Planner.DefaultCountdownMinutes < 1 || c.Planner.DefaultCountdownMinutes > 600 {
		return fmt.Errorf("配置校验失败: planner.default_countdown_minutes 必须在 1-600 之间")
	}
	return nil
}
