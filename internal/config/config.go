package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"architect-assistant/internal/logger"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv         string `env:"APP_ENV" env-default:"development"`
	Logger         logger.Config
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	AI             AIConfig       `env-prefix:"AI_"`
	ImageAPI       ImageAPIConfig `env-prefix:"IMAGE_API_"`
	Uploads        UploadsConfig
	Tasks          TaskManagerConfig
	PushGatewayURL string `env:"PUSHGATEWAY_URL" env-default:""` // Пустое значение отключает push метрик
}

// ServerConfig настройки HTTP сервера.
type ServerConfig struct {
	Port            string   `env:"SERVER_PORT" env-default:"8080"`
	AllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000,http://localhost:5173"`
	ShutdownTimeout int      `env:"SERVER_SHUTDOWN_TIMEOUT_SEC" env-default:"15"` // Таймаут graceful shutdown в секундах
}

// DatabaseConfig настройки подключения к PostgreSQL.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     int    `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-required:"true"`
	Password string `env:"DB_PASSWORD" env-required:"true"`
	DBName   string `env:"DB_NAME" env-required:"true"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`
}

// JWTConfig настройки для выпуска и проверки токенов.
type JWTConfig struct {
	Secret            string `env:"JWT_SECRET" env-required:"true"`
	ExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" env-default:"60"`
}

// AIConfig настройки клиента текстовых/визуальных моделей.
type AIConfig struct {
	ClientType       string `env:"CLIENT_TYPE" env-default:"openai"` // openai или ollama
	APIKey           string `env:"API_KEY" env-default:""`
	BaseURL          string `env:"BASE_URL" env-default:"https://api.openai.com/v1"`
	VisionModel      string `env:"VISION_MODEL" env-default:"gpt-4o"`
	TextModel        string `env:"TEXT_MODEL" env-default:"gpt-4o-mini"`
	VisionTimeoutSec int    `env:"VISION_TIMEOUT_SEC" env-default:"90"`
	TextTimeoutSec   int    `env:"TEXT_TIMEOUT_SEC" env-default:"60"`
}

// ImageAPIConfig настройки сервера генерации изображений (predictions API).
type ImageAPIConfig struct {
	BaseURL    string `env:"BASE_URL" env-required:"true"`
	Token      string `env:"TOKEN" env-default:""`
	Version    string `env:"MODEL_VERSION" env-default:""`
	TimeoutSec int    `env:"TIMEOUT_SEC" env-default:"120"`
}

// UploadsConfig настройки хранения загруженных скетчей.
type UploadsConfig struct {
	Dir       string `env:"UPLOADS_DIR" env-default:"temp_uploads"`
	MaxSizeMB int    `env:"UPLOADS_MAX_SIZE_MB" env-default:"10"`
}

// TaskManagerConfig настройки менеджера фоновых задач.
type TaskManagerConfig struct {
	MaxTasks           int `env:"TASKS_MAX_ACTIVE" env-default:"20"`
	CleanupIntervalMin int `env:"TASKS_CLEANUP_INTERVAL_MIN" env-default:"30"`
	RetentionMin       int `env:"TASKS_RETENTION_MIN" env-default:"60"`
}

// VisionTimeout возвращает таймаут этапа анализа скетча.
func (c AIConfig) VisionTimeout() time.Duration {
	return time.Duration(c.VisionTimeoutSec) * time.Second
}

// TextTimeout возвращает таймаут текстовых запросов.
func (c AIConfig) TextTimeout() time.Duration {
	return time.Duration(c.TextTimeoutSec) * time.Second
}

// Timeout возвращает таймаут запроса генерации изображения.
func (c ImageAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Load загружает конфигурацию из переменных окружения и .env файла.
func Load() *Config {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	return &cfg
}
