package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	Reminder  ReminderConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

const (
	DriverCouch    = "couch"
	DriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver        string
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	PostgresURL   string
	MigrationsDir string
}

// CouchURL is the kivik DSN for the couch driver.
func (d DatabaseConfig) CouchURL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", d.User, d.Password, d.Host, d.Port)
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether reminder mail can be sent at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type RedisConfig struct {
	URL string
}

type ReminderConfig struct {
	Interval time.Duration
	AppURL   string
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	refreshExp, err := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRATION: %w", err)
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverCouch))
	if driver != DriverCouch && driver != DriverPostgres {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", driver, DriverCouch, DriverPostgres)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:        driver,
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5984"),
			User:          getEnv("DB_USER", "admin"),
			Password:      getEnv("DB_PASSWORD", "password"),
			Name:          getEnv("DB_NAME", "empty_jar"),
			PostgresURL:   getEnv("DATABASE_URL", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", ""),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration:             jwtExp,
			RefreshTokenExpiration: refreshExp,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 65536)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Device-ID"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Reminder: ReminderConfig{
			Interval: getEnvAsDuration("REMINDER_INTERVAL", time.Hour),
			AppURL:   getEnv("APP_URL", "http://localhost:5173"),
		},
	}

	if driver == DriverPostgres && cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
	}
	return cfg, nil
}

// ClientConfig configures the jar CLI.
type ClientConfig struct {
	APIURL         string
	RequestTimeout time.Duration
	ProfileDir     string
	MaxAttempts    int
	LogLevel       string
}

func LoadClient() ClientConfig {
	godotenv.Load()

	profile := getEnv("JAR_PROFILE", "")
	if profile == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			profile = filepath.Join(dir, "empty-jar")
		} else {
			profile = ".empty-jar"
		}
	}

	return ClientConfig{
		APIURL:         getEnv("JAR_API_URL", "http://localhost:8080"),
		RequestTimeout: getEnvAsDuration("JAR_REQUEST_TIMEOUT", 10*time.Second),
		ProfileDir:     profile,
		MaxAttempts:    getEnvAsInt("JAR_MAX_ATTEMPTS", 5),
		LogLevel:       getEnv("LOG_LEVEL", "warn"),
	}
}

// NewLogger builds the text logger used by both binaries. Unknown levels fall
// back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
