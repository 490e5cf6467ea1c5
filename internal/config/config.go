package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Auth      AuthConfig      `json:"auth"`
	Jobs      JobsConfig      `json:"jobs"`
	Rewards   RewardsConfig   `json:"rewards"`
}

// CacheConfig представляет конфигурацию кеширования
type CacheConfig struct {
	Enabled    bool `json:"enabled"`
	DefaultTTL int  `json:"default_ttl"`  // TTL для обычных данных (секунды)
	HotDataTTL int  `json:"hot_data_ttl"` // TTL для горячих данных (секунды)
}

// RateLimitConfig представляет конфигурацию ограничения запросов
type RateLimitConfig struct {
	Enabled     bool `json:"enabled"`
	DefaultRPM  int  `json:"default_rpm"`
	VIPRPM      int  `json:"vip_rpm"`
	BanDuration int  `json:"ban_duration"` // секунды
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           string `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MigrateOnStart bool   `json:"migrate_on_start"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Pickups     string `json:"pickups"`
	Orders      string `json:"orders"`
	Marketplace string `json:"marketplace"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// AuthConfig представляет конфигурацию проверки JWT
type AuthConfig struct {
	Secret   string        `json:"-"`
	Issuer   string        `json:"issuer"`
	TokenTTL time.Duration `json:"token_ttl"`
}

// JobsConfig представляет конфигурацию отложенных задач
type JobsConfig struct {
	AutoCompleteDelay  time.Duration `json:"auto_complete_delay"`
	PollInterval       time.Duration `json:"poll_interval"`
	BatchSize          int           `json:"batch_size"`
	OverdueSweepPeriod time.Duration `json:"overdue_sweep_period"`
}

// RewardsConfig представляет конфигурацию начисления баллов
type RewardsConfig struct {
	PickupCompletionPoints int `json:"pickup_completion_points"`
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "pickup_user"),
			Password:       getEnv("DB_PASSWORD", "pickup_pass"),
			DBName:         getEnv("DB_NAME", "pickup_market"),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MigrateOnStart: getEnvAsBool("DB_MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "pickup-market"),
			Topics: Topics{
				Pickups:     getEnv("KAFKA_TOPIC_PICKUPS", "pickups"),
				Orders:      getEnv("KAFKA_TOPIC_ORDERS", "orders"),
				Marketplace: getEnv("KAFKA_TOPIC_MARKETPLACE", "marketplace"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Cache: CacheConfig{
			Enabled:    getEnvAsBool("CACHE_ENABLED", true),
			DefaultTTL: getEnvAsInt("CACHE_DEFAULT_TTL", 300), // 5 минут
			HotDataTTL: getEnvAsInt("CACHE_HOT_DATA_TTL", 60), // 1 минута
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvAsBool("RATE_LIMIT_ENABLED", true),
			DefaultRPM:  getEnvAsInt("RATE_LIMIT_DEFAULT_RPM", 100),
			VIPRPM:      getEnvAsInt("RATE_LIMIT_VIP_RPM", 1000),
			BanDuration: getEnvAsInt("RATE_LIMIT_BAN_DURATION", 60),
		},
		Auth: AuthConfig{
			Secret:   getEnv("JWT_SECRET", "change-me"),
			Issuer:   getEnv("JWT_ISSUER", "pickup-market"),
			TokenTTL: getEnvAsDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Jobs: JobsConfig{
			AutoCompleteDelay:  getEnvAsDuration("JOBS_AUTO_COMPLETE_DELAY", time.Minute),
			PollInterval:       getEnvAsDuration("JOBS_POLL_INTERVAL", 5*time.Second),
			BatchSize:          getEnvAsInt("JOBS_BATCH_SIZE", 50),
			OverdueSweepPeriod: getEnvAsDuration("JOBS_OVERDUE_SWEEP_PERIOD", 5*time.Minute),
		},
		Rewards: RewardsConfig{
			PickupCompletionPoints: getEnvAsInt("REWARDS_PICKUP_POINTS", 10),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration принимает как "90s"/"2m", так и число секунд
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
