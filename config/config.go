package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Timetable TimetableConfig `mapstructure:"timetable"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	BaseURL   string          `mapstructure:"base_url"`
	BodyLimit int64           `mapstructure:"body_limit"` // 请求体上限（字节）
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig 排课写操作限流（依赖 Redis，不可用时放行）
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
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

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TimetableConfig 课表网格配置
type TimetableConfig struct {
	Days        []int         `mapstructure:"days"`  // 1=周一 … 7=周日
	Open        string        `mapstructure:"open"`  // HH:MM
	Close       string        `mapstructure:"close"` // HH:MM
	Tick        time.Duration `mapstructure:"tick"`
	BulkLockTTL time.Duration `mapstructure:"bulk_lock_ttl"` // 批量建班锁超时
	MaxViews    int           `mapstructure:"max_views"`     // 每个学期同时保持刷新的网格视图数
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略；已存在的环境变量不会被覆盖
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.limit", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "registrar")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Manila")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("timetable.days", []int{1, 2, 3, 4, 5, 6, 7})
	v.SetDefault("timetable.open", "07:00")
	v.SetDefault("timetable.close", "21:00")
	v.SetDefault("timetable.tick", "1h")
	v.SetDefault("timetable.bulk_lock_ttl", "10s")
	v.SetDefault("timetable.max_views", 256)

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
	v.SetEnvPrefix("REGISTRAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

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
	if len(c.Timetable.Days) == 0 {
		return fmt.Errorf("配置校验失败: timetable.days 不能为空")
	}
	for _, d := range c.Timetable.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("配置校验失败: timetable.days 取值必须在 1-7 之间，当前 %d", d)
		}
	}
	if c.Timetable.Tick < time.Minute {
		return fmt.Errorf("配置校验失败: timetable.tick 不能小于 1 分钟")
	}
	if c.Timetable.Open == "" || c.Timetable.Close == "" {
		return fmt.Errorf("配置校验失败: timetable.open / timetable.close 不能为空")
	}
	return nil
}
