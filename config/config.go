package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Logger   LoggerConfig        `mapstructure:"logger"`
	Postgres PostgresConfig      `mapstructure:"postgres"`
	Redis    RedisConfig         `mapstructure:"redis"`
	Kafka    KafkaConfig         `mapstructure:"kafka"`
	Elastic  ElasticsearchConfig `mapstructure:"elasticsearch"`
	CORS     CORSConfig          `mapstructure:"cors"`
}

type ServerConfig struct {
	AppEnv          string `mapstructure:"app_env"`
	HTTPPort        string `mapstructure:"http_port"`
	GRPCPort        string `mapstructure:"grpc_port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
	RunMigrations   bool   `mapstructure:"run_migrations"`
}

type LoggerConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"db"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	InvoicesTopic string   `mapstructure:"topic_invoices"`
	UploadsTopic  string   `mapstructure:"topic_uploads"`
	GroupID       string   `mapstructure:"group_id"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

var defaults = map[string]interface{}{
	"server.app_env":          "dev",
	"server.http_port":        ":8080",
	"server.grpc_port":        ":8082",
	"server.shutdown_timeout": 15,
	"server.run_migrations":   true,

	"logger.level":              "debug",
	"logger.encoding":           "console",
	"logger.disable_caller":     false,
	"logger.disable_stacktrace": true,

	"postgres.host":               "localhost",
	"postgres.port":               "5432",
	"postgres.user":               "omnipos",
	"postgres.password":           "omnipos",
	"postgres.db":                 "omnipos_invoice",
	"postgres.sslmode":            "disable",
	"postgres.max_open_conns":     10,
	"postgres.max_idle_conns":     5,
	"postgres.conn_max_lifetime":  300,
	"postgres.conn_max_idle_time": 60,

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,
	"redis.ttl":      300,

	"kafka.brokers":        []string{"localhost:9092"},
	"kafka.topic_invoices": "invoices.events",
	"kafka.topic_uploads":  "documents.uploaded",
	"kafka.group_id":       "invoice-service",

	"elasticsearch.addresses": []string{"http://localhost:9200"},
	"elasticsearch.username":  "",
	"elasticsearch.password":  "",
	"elasticsearch.index":     "invoices",

	"cors.allowed_origins": []string{"http://localhost:5173"},
	"cors.allowed_methods": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"cors.allowed_headers": []string{"Content-Type", "Authorization", "X-Company-ID", "X-User-ID", "X-User-Role"},
}

// Load reads configuration from, in order of precedence: environment
// variables (POSTGRES_HOST, KAFKA_BROKERS, ...), an optional config file and
// built-in defaults. A .env file in the working directory is loaded first if
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Server.HTTPPort = normalizePort(cfg.Server.HTTPPort)
	cfg.Server.GRPCPort = normalizePort(cfg.Server.GRPCPort)
	return &cfg, nil
}

// IsDevelopment reports whether verbose console logging should be used.
func (c *Config) IsDevelopment() bool {
	switch c.Server.AppEnv {
	case "dev", "development", "local":
		return true
	}
	return false
}

func normalizePort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
