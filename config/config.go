package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string `toml:"app_port"`
	AppMode    string `toml:"app_mode"`
	LogMode    string `toml:"log_mode"`
	DBHost     string `toml:"db_host"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	DBPort     string `toml:"db_port"`
	DBSSLMode  string `toml:"db_sslmode"`
	JWTSecret  string `toml:"jwt_secret"`

	RedisHost     string `toml:"redis_host"`
	RedisPort     string `toml:"redis_port"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisEnabled  bool   `toml:"redis_enabled"`

	WSSendBuffer      int     `toml:"ws_send_buffer"`
	WSEventsPerSecond float64 `toml:"ws_events_per_second"`
	WSEventBurst      int     `toml:"ws_event_burst"`

	// Messages per minute per user accepted over REST.
	MessageRateLimit int `toml:"message_rate_limit"`

	PresenceSweepCron string        `toml:"presence_sweep_cron"`
	PresenceTTL       time.Duration `toml:"-"`
	PresenceTTLRaw    string        `toml:"presence_ttl"`

	// Identifies this process in shared presence counts. Random when empty.
	InstanceID string `toml:"instance_id"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables provide a value.
func Defaults() Config {
	return Config{
		AppPort:           "8080",
		AppMode:           "debug",
		LogMode:           "development",
		DBHost:            "localhost",
		DBUser:            "postgres",
		DBPassword:        "postgres",
		DBName:            "socialhub",
		DBPort:            "5432",
		DBSSLMode:         "disable",
		JWTSecret:         "change-me",
		RedisHost:         "localhost",
		RedisPort:         "6379",
		RedisEnabled:      true,
		WSSendBuffer:      256,
		WSEventsPerSecond: 20,
		WSEventBurst:      40,
		MessageRateLimit:  60,
		PresenceSweepCron: "*/5 * * * *",
		PresenceTTLRaw:    "10m",
	}
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	base := Defaults()
	if path := os.Getenv("SOCIALHUB_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path, base)
		if err != nil {
			log.Printf("Failed to read config file %s: %v", path, err)
		} else {
			base = *fileCfg
		}
	}
	return fromEnv(base)
}

// LoadFile decodes a TOML file on top of base.
func LoadFile(path string, base Config) (*Config, error) {
	cfg := base
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fromEnv(base Config) *Config {
	cfg := &Config{
		AppPort:           getEnv("APP_PORT", base.AppPort),
		AppMode:           getEnv("APP_MODE", base.AppMode),
		LogMode:           getEnv("LOG_MODE", base.LogMode),
		DBHost:            getEnv("DB_HOST", base.DBHost),
		DBUser:            getEnv("DB_USER", base.DBUser),
		DBPassword:        getEnv("DB_PASSWORD", base.DBPassword),
		DBName:            getEnv("DB_NAME", base.DBName),
		DBPort:            getEnv("DB_PORT", base.DBPort),
		DBSSLMode:         getEnv("DB_SSLMODE", base.DBSSLMode),
		JWTSecret:         getEnv("JWT_SECRET", base.JWTSecret),
		RedisHost:         getEnv("REDIS_HOST", base.RedisHost),
		RedisPort:         getEnv("REDIS_PORT", base.RedisPort),
		RedisPassword:     getEnv("REDIS_PASSWORD", base.RedisPassword),
		RedisDB:           getEnvAsInt("REDIS_DB", base.RedisDB),
		RedisEnabled:      getEnvAsBool("REDIS_ENABLED", base.RedisEnabled),
		WSSendBuffer:      getEnvAsInt("WS_SEND_BUFFER", base.WSSendBuffer),
		WSEventsPerSecond: getEnvAsFloat("WS_EVENTS_PER_SECOND", base.WSEventsPerSecond),
		WSEventBurst:      getEnvAsInt("WS_EVENT_BURST", base.WSEventBurst),
		MessageRateLimit:  getEnvAsInt("MESSAGE_RATE_LIMIT", base.MessageRateLimit),
		PresenceSweepCron: getEnv("PRESENCE_SWEEP_CRON", base.PresenceSweepCron),
		PresenceTTLRaw:    getEnv("PRESENCE_TTL", base.PresenceTTLRaw),
		InstanceID:        getEnv("INSTANCE_ID", base.InstanceID),
	}
	cfg.PresenceTTL = parseDuration(cfg.PresenceTTLRaw, 10*time.Minute)
	return cfg
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
