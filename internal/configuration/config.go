package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "config/config.dev.json"

type MongoConfig struct {
	Uri                     string `json:"uri" env:"MONGO_URI"`
	Database                string `json:"database" env:"MONGO_DATABASE"`
	ConversationsCollection string `json:"conversationsCollection" env:"MONGO_CONVERSATIONS_COLLECTION"`
	MessagesCollection      string `json:"messagesCollection" env:"MONGO_MESSAGES_COLLECTION"`
	UsersCollection         string `json:"usersCollection" env:"MONGO_USERS_COLLECTION"`
	MaxPoolSize             uint64 `json:"maxPoolSize" env:"MONGO_MAX_POOL_SIZE"`
	EnsureIndexes           bool   `json:"ensureIndexes" env:"MONGO_ENSURE_INDEXES"`
}

type ServerConfig struct {
	AppPort     int    `json:"app_port" env:"APP_PORT"`
	SocketPort  int    `json:"socket_port" env:"SOCKET_PORT"`
	SocketRoute string `json:"socketRoute" env:"SOCKET_ROUTE"`
	Mode        string `json:"mode" env:"GIN_MODE"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwtSecret" env:"JWT_SECRET"`
	Issuer    string `json:"issuer" env:"JWT_ISSUER"`
}

type HubConfig struct {
	PingIntervalSeconds  int `json:"pingIntervalSeconds" env:"HUB_PING_INTERVAL_SECONDS"`
	PongWaitSeconds      int `json:"pongWaitSeconds" env:"HUB_PONG_WAIT_SECONDS"`
	SendBuffer           int `json:"sendBuffer" env:"HUB_SEND_BUFFER"`
	QueueSize            int `json:"queueSize" env:"HUB_QUEUE_SIZE"`
	TypingTimeoutSeconds int `json:"typingTimeoutSeconds" env:"HUB_TYPING_TIMEOUT_SECONDS"`
	MaxMessageBytes      int `json:"maxMessageBytes" env:"HUB_MAX_MESSAGE_BYTES"`
}

type LogConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"` // json or console
	File       string `json:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `json:"maxSizeMB" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `json:"maxBackups" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `json:"maxAgeDays" env:"LOG_MAX_AGE_DAYS"`
	Compress   bool   `json:"compress" env:"LOG_COMPRESS"`
}

type CorsConfig struct {
	AllowOrigins     []string `json:"allowOrigins" env:"CORS_ORIGINS" envSeparator:","`
	AllowCredentials bool     `json:"allowCredentials" env:"CORS_ALLOW_CREDENTIALS"`
}

type Config struct {
	Server ServerConfig `json:"server"`
	Mongo  MongoConfig  `json:"mongo"`
	Auth   AuthConfig   `json:"auth"`
	Hub    HubConfig    `json:"hub"`
	Log    LogConfig    `json:"log"`
	Cors   CorsConfig   `json:"cors"`
}

// ConfigPath returns CONFIG_PATH or the development default
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigPath
}

// LoadConfig reads the JSON file, then applies environment overrides. A .env
// file in the working directory is loaded first when present.
func LoadConfig(config_path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config := defaultConfig()

	file, err := os.ReadFile(config_path)
	switch {
	case err == nil:
		if err := json.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", config_path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// environment only
	default:
		return nil, err
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			AppPort:     8080,
			SocketPort:  8081,
			SocketRoute: "ws",
			Mode:        "release",
		},
		Mongo: MongoConfig{
			Database:                "alumni",
			ConversationsCollection: "conversations",
			MessagesCollection:      "messages",
			UsersCollection:         "users",
			MaxPoolSize:             100,
			EnsureIndexes:           true,
		},
		Hub: HubConfig{
			PingIntervalSeconds:  25,
			PongWaitSeconds:      60,
			SendBuffer:           256,
			QueueSize:            64,
			TypingTimeoutSeconds: 6,
			MaxMessageBytes:      64 * 1024,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Validate checks the fields the service cannot start without
func (c *Config) Validate() error {
	var missing []string
	if c.Mongo.Uri == "" {
		missing = append(missing, "mongo.uri")
	}
	if c.Mongo.Database == "" {
		missing = append(missing, "mongo.database")
	}
	if c.Auth.JwtSecret == "" {
		missing = append(missing, "auth.jwtSecret")
	}
	if c.Server.AppPort <= 0 {
		missing = append(missing, "server.app_port")
	}
	if c.Server.SocketPort <= 0 {
		missing = append(missing, "server.socket_port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid configuration: missing %s", strings.Join(missing, ", "))
	}

	if c.Hub.PingIntervalSeconds >= c.Hub.PongWaitSeconds {
		return fmt.Errorf("invalid configuration: hub.pingIntervalSeconds must be below hub.pongWaitSeconds")
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
