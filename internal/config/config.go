// Package config 从环境变量（以及可选的 .env 文件）读取配置
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultListenAddr = "127.0.0.1"
	DefaultListenPort = 16001
	DefaultServerURL  = "http://127.0.0.1:16001"
	DefaultStore      = StoreMemory

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	ListenAddr  string
	Port        int
	Store       string
	DBPath      string
	LogLevel    string
	DevMode     bool
	CORSOrigins []string
	ServerURL   string
}

// DefaultDBPath 是 ~/.config/FHEVault/server.db
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "FHEVault", "server.db")
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:  getEnv("FHEVAULT_LISTEN_ADDR", DefaultListenAddr),
		Port:        getEnvAsInt("FHEVAULT_PORT", DefaultListenPort),
		Store:       strings.ToLower(getEnv("FHEVAULT_STORE", DefaultStore)),
		DBPath:      getEnv("FHEVAULT_DB_PATH", DefaultDBPath()),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DevMode:     getEnvAsBool("FHEVAULT_DEV_MODE", false),
		CORSOrigins: getEnvAsList("FHEVAULT_CORS_ORIGINS", []string{"*"}),
		ServerURL:   strings.TrimRight(getEnv("FHEVAULT_SERVER_URL", DefaultServerURL), "/"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("FHEVAULT_PORT out of range: %d", c.Port)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("FHEVAULT_DB_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown FHEVAULT_STORE %q", c.Store)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// 逗号分隔
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
