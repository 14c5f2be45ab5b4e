// Package bootstrap builds the shared dependencies of the server and the CLI
// from a loaded config.
package bootstrap

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/config"
	"github.com/fekuna/omnipos-invoice-service/internal/broker"
	"github.com/fekuna/omnipos-invoice-service/internal/cache"
	"github.com/fekuna/omnipos-invoice-service/internal/category"
	catRepoPkg "github.com/fekuna/omnipos-invoice-service/internal/category/repository"
	catUCPkg "github.com/fekuna/omnipos-invoice-service/internal/category/usecase"
	"github.com/fekuna/omnipos-invoice-service/internal/database"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice"
	invRepoPkg "github.com/fekuna/omnipos-invoice-service/internal/invoice/repository"
	invUCPkg "github.com/fekuna/omnipos-invoice-service/internal/invoice/usecase"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/search"
)

func NewLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.IsDevelopment() {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}
	return logger.NewZapLogger(logConfig)
}

func NewPostgres(cfg *config.Config) (*sqlx.DB, error) {
	return database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
}

// Services holds the optional backends and the usecases built on them. A nil
// backend means it was unreachable at start-up and its feature is degraded.
type Services struct {
	Redis    *cache.RedisClient
	Producer *broker.KafkaProducer
	Elastic  *search.Client

	Categories category.UseCase
	Invoices   invoice.UseCase
}

// NewServices connects Redis, the Kafka producer and Elasticsearch when they
// are configured and reachable, then wires the category and invoice usecases.
func NewServices(ctx context.Context, cfg *config.Config, db *sqlx.DB, log logger.ZapLogger) *Services {
	s := &Services{}

	var store cache.Store
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Could not connect to Redis, category cache disabled", zap.Error(err))
		} else {
			log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
			s.Redis = client
			store = client
		}
	}

	var producer invUCPkg.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.InvoicesTopic != "" {
		s.Producer = broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.InvoicesTopic,
		})
		producer = s.Producer
		log.Info("Kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.InvoicesTopic))
	}

	var es invUCPkg.SearchIndex
	if len(cfg.Elastic.Addresses) > 0 {
		client, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			log.Warn("Could not connect to Elasticsearch, search falls back to SQL", zap.Error(err))
		} else {
			if err := client.CreateIndex(ctx, cfg.Elastic.Index, invUCPkg.SearchMapping); err != nil {
				log.Warn("Could not create search index", zap.String("index", cfg.Elastic.Index), zap.Error(err))
			}
			log.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
			s.Elastic = client
			es = client
		}
	}

	s.Categories = catUCPkg.NewCategoryUseCase(
		catRepoPkg.NewPGRepository(db),
		store,
		time.Duration(cfg.Redis.TTL)*time.Second,
		log,
	)
	s.Invoices = invUCPkg.NewInvoiceUseCase(
		invRepoPkg.NewPGRepository(db),
		s.Categories,
		producer,
		es,
		cfg.Elastic.Index,
		log,
	)
	return s
}

// Close releases whichever backends were connected.
func (s *Services) Close() {
	if s.Producer != nil {
		_ = s.Producer.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}
