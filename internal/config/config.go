package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config определяет структуру конфигурации всего приложения целиком
type Config struct {
	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
	Kafka      `yaml:"kafka"`
	Logger     `yaml:"logger"`
}

// HTTPServer содержит конфигурацию для HTTP-сервера
type HTTPServer struct {
	Port    string        `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// Storage содержит конфигурацию локального хранилища
// ключи разных областей данных независимы и не должны пересекаться:
// в том же хранилище живут и ключи исключённых слоёв (сессии, тема)
type Storage struct {
	Path       string `yaml:"path"`
	CartKey    string `yaml:"cart_key"`
	HistoryKey string `yaml:"history_key"`
	AddressKey string `yaml:"address_key"`
}

// Kafka содержит конфигурацию административного канала статусов
// канал опционален: при enabled=false брокер не нужен вовсе
type Kafka struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// Logger содержит конфигурацию для логгера
type Logger struct {
	Level string `yaml:"level"`
}

// MustLoad загружает конфигурацию из файла по указанному пути
// в случае ошибки программа завершается с фатальной ошибкой
func MustLoad(configPath string) *Config {
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	file, err := os.ReadFile(configPath)
	if err != nil {
		log.Fatalf("failed to read config file: %s", err)
	}

	if err := yaml.Unmarshal(file, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %s", err)
	}

	return &cfg
}
