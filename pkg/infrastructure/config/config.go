package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Planning PlanningConfig `mapstructure:"planning"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the gorm store; an empty Host keeps everything in memory
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN renders the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig selects the redis explosion cache store; an empty Host keeps
// the cache in process
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PlanningConfig carries the engine tunables
type PlanningConfig struct {
	MaxDepth          int           `mapstructure:"max_depth"`
	CacheTTLSeconds   int           `mapstructure:"cache_ttl_seconds"`
	StructureTTL      time.Duration `mapstructure:"structure_ttl"`
	SlotSearchDays    int           `mapstructure:"slot_search_days"`
	UrgentWindowDays  int           `mapstructure:"urgent_window_days"`
	HighWindowDays    int           `mapstructure:"high_window_days"`
	MediumWindowDays  int           `mapstructure:"medium_window_days"`
	HorizonDays       int           `mapstructure:"horizon_days"`
	WorkerConcurrency int           `mapstructure:"worker_concurrency"`
	// ScenarioDir seeds the server from a CSV scenario at startup when set
	ScenarioDir string `mapstructure:"scenario_dir"`
	// InvalidationTimeout bounds each cache invalidation triggered by a BOM change
	InvalidationTimeout time.Duration `mapstructure:"invalidation_timeout"`
}

// CacheTTL is CacheTTLSeconds as a duration
func (c PlanningConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load reads config.yaml from ./configs or the working directory, then
// applies environment overrides
func Load() (*Config, error) {
	return LoadFrom("./configs", ".")
}

// LoadFrom reads config.yaml from the given directories in order
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Planning.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects tunables the engine cannot work with
func (c PlanningConfig) Validate() error {
	switch {
	case c.MaxDepth <= 0:
		return fmt.Errorf("planning.max_depth must be positive, got %d", c.MaxDepth)
	case c.WorkerConcurrency <= 0:
		return fmt.Errorf("planning.worker_concurrency must be positive, got %d", c.WorkerConcurrency)
	case c.SlotSearchDays <= 0:
		return fmt.Errorf("planning.slot_search_days must be positive, got %d", c.SlotSearchDays)
	case c.UrgentWindowDays > c.HighWindowDays || c.HighWindowDays > c.MediumWindowDays:
		return fmt.Errorf("planning windows must be ordered urgent <= high <= medium, got %d/%d/%d",
			c.UrgentWindowDays, c.HighWindowDays, c.MediumWindowDays)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("planning.max_depth", 10)
	v.SetDefault("planning.cache_ttl_seconds", 3600)
	v.SetDefault("planning.structure_ttl", time.Hour)
	v.SetDefault("planning.invalidation_timeout", 5*time.Second)
	v.SetDefault("planning.slot_search_days", 90)
	v.SetDefault("planning.urgent_window_days", 3)
	v.SetDefault("planning.high_window_days", 7)
	v.SetDefault("planning.medium_window_days", 14)
	v.SetDefault("planning.horizon_days", 90)
	v.SetDefault("planning.worker_concurrency", 4)
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")

	// Planning
	v.BindEnv("planning.max_depth", "PLANNING_MAX_DEPTH")
	v.BindEnv("planning.cache_ttl_seconds", "PLANNING_CACHE_TTL_SECONDS")
	v.BindEnv("planning.slot_search_days", "PLANNING_SLOT_SEARCH_DAYS")
	v.BindEnv("planning.horizon_days", "PLANNING_HORIZON_DAYS")
	v.BindEnv("planning.worker_concurrency", "PLANNING_WORKER_CONCURRENCY")
	v.BindEnv("planning.scenario_dir", "PLANNING_SCENARIO_DIR")
}

// GetEnvOrDefault returns the environment value or a default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
