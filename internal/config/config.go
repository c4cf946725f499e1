// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	Cognito         `yaml:"cognito"`
	Storage         `yaml:"storage"`
	Report          `yaml:"report"`
	HTTPServer      `yaml:"http_server"`
	RedisConnection `yaml:"redis_connection"`
}

// Cognito структура для настройки проверки JWT-токенов пула пользователей
type Cognito struct {
	UserPoolID         string        `yaml:"user_pool_id" env:"USER_POOL_ID" env-required:"true"`
	ClientID           string        `yaml:"client_id" env:"CLIENT_ID" env-required:"true"`
	Region             string        `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Issuer             string        `yaml:"issuer" env:"COGNITO_ISSUER"`
	JWKSFetchTimeout   time.Duration `yaml:"jwks_fetch_timeout" env:"JWKS_FETCH_TIMEOUT" env-default:"5s"`
	JWKSRefreshPeriod  time.Duration `yaml:"jwks_refresh_period" env:"JWKS_REFRESH_PERIOD" env-default:"1h"`
	JWKSMinRefreshWait time.Duration `yaml:"jwks_min_refresh_wait" env:"JWKS_MIN_REFRESH_WAIT" env-default:"1m"`
}

// Storage структура для настройки объектного хранилища
type Storage struct {
	Bucket      string        `yaml:"bucket" env:"S3_BUCKET" env-default:"expensereport-bucket"`
	EndpointURL string        `yaml:"endpoint_url" env:"AWS_ENDPOINT_URL"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"STORAGE_CALL_TIMEOUT" env-default:"10s"`
	PresignTTL  time.Duration `yaml:"presign_ttl" env:"PRESIGN_TTL" env-default:"1h"`
}

// Report структура для настройки генерации отчета
type Report struct {
	TemplatePath    string        `yaml:"template_path" env:"REPORT_TEMPLATE_PATH" env-default:"assets/expense_report.xlsx"`
	HeaderImagePath string        `yaml:"header_image_path" env:"REPORT_HEADER_IMAGE_PATH"`
	PerDiemPolicy   string        `yaml:"per_diem_policy" env:"REPORT_PER_DIEM_POLICY" env-default:"overwrite"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REPORT_REQUEST_TIMEOUT" env-default:"30s"`
	LinkCacheTTL    time.Duration `yaml:"link_cache_ttl" env:"REPORT_LINK_CACHE_TTL" env-default:"50m"`
	RateLimit       float64       `yaml:"rate_limit" env:"REPORT_RATE_LIMIT" env-default:"5"`
	RateBurst       int           `yaml:"rate_burst" env:"REPORT_RATE_BURST" env-default:"10"`
	HeadConcurrency int           `yaml:"head_concurrency" env:"REPORT_HEAD_CONCURRENCY" env-default:"8"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:"0.0.0.0:5000"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env:"HTTP_TIMEOUT" env-default:"60s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кеш ссылок на отчеты.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env:"REDIS_TIMEOUT"`
}

// IssuerURL возвращает адрес издателя токенов: явно заданный или вычисленный
// из региона и идентификатора пула пользователей.
func (c Cognito) IssuerURL() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL возвращает адрес набора публичных ключей издателя.
func (c Cognito) JWKSURL() string {
	return c.IssuerURL() + "/.well-known/jwks.json"
}

// Load читает конфиг из файла CONFIG_PATH, если он задан, иначе только из окружения.
func Load() (*Config, error) {
	const op = "config.Load"
	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file: %s - does not exist", op, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Cognito:\n"+
			"  Issuer: %s\n"+
			"  ClientID: %s\n"+
			"Storage:\n"+
			"  Bucket: %s\n"+
			"  Endpoint: %s\n"+
			"  PresignTTL: %s\n"+
			"Report:\n"+
			"  Template: %s\n"+
			"  PerDiemPolicy: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n",
		c.Env,
		c.IssuerURL(),
		c.ClientID,
		c.Bucket,
		c.EndpointURL,
		c.PresignTTL,
		c.TemplatePath,
		c.PerDiemPolicy,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.AddressRedis,
	)
}
