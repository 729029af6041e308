// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	PiGateway               `yaml:"pi_gateway"`
	Escrow                  `yaml:"escrow"`
	RabbitMQURL             string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries      int           `yaml:"rabbitmq_max_retries" env-default:"10"`
	RabbitMQRetryDelay      time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"localhost:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// PiGateway структура для настройки клиента платёжного шлюза
type PiGateway struct {
	APIURL           string        `yaml:"api_url" env-default:"https://api.minepi.com/v2"`
	APIKey           string        `yaml:"api_key" env:"PI_API_KEY"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env-default:"10s"`
	TransferRetries  int           `yaml:"transfer_retries" env-default:"3"`
	TransferRetryGap time.Duration `yaml:"transfer_retry_gap" env-default:"2s"`
}

// Escrow структура с параметрами эскроу-цикла. Идентификатор эскроу-счёта
// обязан приходить из конфигурации, а не из литералов в коде.
type Escrow struct {
	HoldingAccountID string        `yaml:"holding_account_id" env:"ESCROW_HOLDING_ACCOUNT_ID"`
	RenewalPeriod    time.Duration `yaml:"renewal_period" env-default:"720h"`
	SweepInterval    time.Duration `yaml:"sweep_interval" env-default:"1h"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if cfg.Escrow.HoldingAccountID == "" {
		log.Fatal("escrow holding_account_id is not set")
	}
	return &cfg
}
