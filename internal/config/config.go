package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string `yaml:"port"`
	BackendURL     string `yaml:"backendUrl"`
	StorageBackend string `yaml:"storageBackend"`
	StoragePath    string `yaml:"storagePath"`
	StorageDriver  string `yaml:"storageDriver"`
	StorageDSN     string `yaml:"storageDsn"`
	RedisAddr      string `yaml:"redisAddr"`
	LogLevel       string `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		Port:           "8080",
		BackendURL:     "https://incubyte-sweetshop-backend.onrender.com",
		StorageBackend: "file",
		StoragePath:    "data/session.json",
		StorageDriver:  "mysql",
		RedisAddr:      "localhost:6379",
		LogLevel:       "info",
	}
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	cfg := Default()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", file, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if backend := os.Getenv("BACKEND_URL"); backend != "" {
		cfg.BackendURL = backend
	}
	if storage := os.Getenv("STORAGE_BACKEND"); storage != "" {
		cfg.StorageBackend = storage
	}
	if path := os.Getenv("STORAGE_PATH"); path != "" {
		cfg.StoragePath = path
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.StorageDriver = driver
	}
	if dsn := os.Getenv("STORAGE_DSN"); dsn != "" {
		cfg.StorageDSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}
