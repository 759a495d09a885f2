package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"match-service/internal/client"
	"match-service/internal/config"
	"match-service/internal/model"
	redisrepo "match-service/internal/repository/redis"
	"match-service/internal/repository/scylla"
	"match-service/internal/service"
	"match-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config *config.Config

	// Clients
	redisClient   *client.RedisClient
	scyllaClient  *scylla.ScyllaClient
	kafkaProducer *client.KafkaEventProducer

	// Repositories
	waitingPool    *redisrepo.WaitingPool
	sessionStore   *redisrepo.SessionStore
	attributeCache *redisrepo.AttributeCache
	historyRepo    *scylla.HistoryRepository

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("scylla_enabled", cfg.Scylla.Enabled),
		util.Bool("kafka_enabled", cfg.Kafka.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health
// checks. Redis backs all matching state and is mandatory; Scylla and
// Kafka are best-effort collaborators.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Redis
	redisClient, err := client.NewRedisClient(f.config, util.Get())
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	f.redisClient = redisClient
	if err := f.redisClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	util.Info("Redis client initialized and healthy")

	// ScyllaDB
	if f.config.Scylla.Enabled {
		if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
			util.Warn("Scylla initialization failed - proceeding without history archive", util.ErrorField(err))
		} else {
			f.scyllaClient = scyllaClient
			if err := f.scyllaClient.HealthCheck(); err != nil {
				util.Warn("Scylla health check failed - proceeding without history archive", util.ErrorField(err))
				f.scyllaClient.Close()
				f.scyllaClient = nil
			} else {
				util.Info("ScyllaDB client initialized and healthy")
			}
		}
	}

	// Kafka
	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaEventProducer(f.config, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without events", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
			util.Info("Kafka producer initialized")
		}
	}

	return nil
}

// ==============================
// Repository Initialization
// ==============================

func (f *Factory) WaitingPool() *redisrepo.WaitingPool {
	if f.waitingPool == nil {
		f.waitingPool = redisrepo.NewWaitingPool(f.redisClient)
	}
	return f.waitingPool
}

func (f *Factory) SessionStore() *redisrepo.SessionStore {
	if f.sessionStore == nil {
		f.sessionStore = redisrepo.NewSessionStore(f.redisClient)
	}
	return f.sessionStore
}

func (f *Factory) AttributeCache() *redisrepo.AttributeCache {
	if f.attributeCache == nil {
		f.attributeCache = redisrepo.NewAttributeCache(f.redisClient)
	}
	return f.attributeCache
}

// HistoryArchive returns the durable pairing archive, or nil when Scylla
// is disabled or unreachable.
func (f *Factory) HistoryArchive() model.HistoryArchive {
	if f.scyllaClient == nil {
		return nil
	}
	if f.historyRepo == nil {
		f.historyRepo = scylla.NewHistoryRepository(f.scyllaClient, util.Get())
	}
	return f.historyRepo
}

// EventPublisher returns the match event publisher, or nil when Kafka is
// disabled or unreachable.
func (f *Factory) EventPublisher() model.EventPublisher {
	if f.kafkaProducer == nil {
		return nil
	}
	return f.kafkaProducer
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.WaitingPool(),
			f.SessionStore(),
			f.AttributeCache(),
			f.EventPublisher(),
			f.HistoryArchive(),
			util.Get(),
		)
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}
	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	}
	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

// IsHealthy reports whether every mandatory dependency is reachable.
// Kafka is excluded: events are best effort.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Sync()
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) RedisClient() *client.RedisClient {
	return f.redisClient
}
