package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Бэкенды хранилища координат
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	ServiceName string         `yaml:"serviceName"`
	LogLevel    string         `yaml:"logLevel"`
	HTTP        HTTPConfig     `yaml:"http"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Geocoder    GeocoderConfig `yaml:"geocoder"`
	Places      PlacesConfig   `yaml:"places"`
	Redis       RedisConfig    `yaml:"redis"`
	Tracing     TracingConfig  `yaml:"tracing"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MigrationsPath string `yaml:"migrationsPath"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	GroupID  string   `yaml:"groupId"`
	DLQTopic string   `yaml:"dlqTopic"`
}

type GeocoderConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// PlacesConfig кэш координат адресов
type PlacesConfig struct {
	Backend         string        `yaml:"backend"`
	FreshnessWindow time.Duration `yaml:"freshnessWindow"`
	Concurrency     int           `yaml:"concurrency"`
	MemorySize      int           `yaml:"memorySize"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type TracingConfig struct {
	JaegerEndpoint string `yaml:"jaegerEndpoint"`
}

func Default() *Config {
	return &Config{
		ServiceName: "foodcart-dispatcher",
		LogLevel:    "info",
		HTTP: HTTPConfig{
			Addr:         ":8081",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{MigrationsPath: "file://./migrations"},
		Kafka: KafkaConfig{
			Brokers:  []string{"kafka:9092"},
			Topic:    "orders",
			GroupID:  "order_service_group",
			DLQTopic: "orders_dlq",
		},
		Geocoder: GeocoderConfig{
			BaseURL: "https://geocode-maps.yandex.ru/1.x",
			Timeout: 10 * time.Second,
		},
		Places: PlacesConfig{
			Backend:         BackendPostgres,
			FreshnessWindow: 24 * time.Hour,
			Concurrency:     8,
			MemorySize:      10000,
		},
		Redis:   RedisConfig{Addr: "redis:6379"},
		Tracing: TracingConfig{JaegerEndpoint: "http://jaeger:14268/api/traces"},
	}
}

// Load собирает конфигурацию: значения по умолчанию, YAML (если path не пуст),
// .env и переменные окружения. Окружение имеет приоритет.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать файл конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("не удалось разобрать файл конфигурации: %w", err)
		}
	}

	// .env необязателен, уже заданные переменные не перезаписываются
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.ServiceName, "SERVICE_NAME")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Postgres.DSN, "POSTGRES_DSN")
	setString(&c.Postgres.MigrationsPath, "MIGRATIONS_PATH")
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = splitList(val)
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Kafka.GroupID, "KAFKA_GROUP_ID")
	setString(&c.Kafka.DLQTopic, "KAFKA_DLQ_TOPIC")
	setString(&c.Geocoder.BaseURL, "GEOCODER_URL")
	setString(&c.Geocoder.APIKey, "GEOCODER_API_KEY")
	setString(&c.Places.Backend, "PLACES_BACKEND")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Tracing.JaegerEndpoint, "JAEGER_ENDPOINT")

	if err := setDuration(&c.Geocoder.Timeout, "GEOCODER_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Places.FreshnessWindow, "PLACES_FRESHNESS_WINDOW"); err != nil {
		return err
	}
	if err := setInt(&c.Places.Concurrency, "PLACES_CONCURRENCY"); err != nil {
		return err
	}
	return setInt(&c.Places.MemorySize, "PLACES_MEMORY_SIZE")
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http addr обязателен")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN не задан")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("не задан ни один брокер Kafka")
	}
	if c.Kafka.Topic == "" || c.Kafka.GroupID == "" {
		return fmt.Errorf("топик и группа Kafka обязательны")
	}
	if c.Geocoder.BaseURL == "" {
		return fmt.Errorf("адрес геокодера обязателен")
	}
	if c.Geocoder.Timeout <= 0 {
		return fmt.Errorf("таймаут геокодера должен быть положительным")
	}

	switch c.Places.Backend {
	case BackendPostgres, BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR обязателен для бэкенда redis")
		}
	default:
		return fmt.Errorf("неизвестный бэкенд кэша координат %q", c.Places.Backend)
	}
	if c.Places.FreshnessWindow <= 0 {
		return fmt.Errorf("окно свежести должно быть положительным")
	}
	if c.Places.Concurrency <= 0 {
		return fmt.Errorf("параллелизм геокодирования должен быть положительным")
	}
	if c.Places.MemorySize < 0 {
		return fmt.Errorf("размер кэша в памяти не может быть отрицательным")
	}
	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setDuration(dst *time.Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
