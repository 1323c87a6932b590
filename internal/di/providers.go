package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FinPredict/internal/domain/repository"
	"FinPredict/internal/handler/api"
	internalrepo "FinPredict/internal/repository"
	"FinPredict/internal/registry"
	"FinPredict/internal/usecase"
	"FinPredict/pkg/cache"
	pkgch "FinPredict/pkg/clickhouse"
	"FinPredict/pkg/config"
	xhttp "FinPredict/pkg/http"
	pkgkafka "FinPredict/pkg/kafka"
	applogger "FinPredict/pkg/logger"
	"FinPredict/pkg/metrics"
	"FinPredict/pkg/queue"
	"FinPredict/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lcfg := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lcfg.Format = "console"
		lcfg.Level = "debug"
	}
	return applogger.New(lcfg)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the ClickHouse bar store and ensures its schema.
func ProvideBarStore(chClient *pkgch.Client, l *applogger.Logger) (repository.BarStore, error) {
	store := internalrepo.NewClickHouseBarStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store schema: %w", err)
	}
	return store, nil
}

// ProvideCache creates the Redis-backed cache service.
func ProvideCache(cfg *config.Config) (*cache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}

	c, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("finpredict"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideCacheService exposes the concrete cache as the Service interface.
func ProvideCacheService(c *cache.RedisCache) cache.Service {
	return c
}

// ProvideRegistry creates the on-disk model registry.
func ProvideRegistry(cfg *config.Config) (*registry.FS, error) {
	reg, err := registry.NewFS(cfg.Registry.Dir)
	if err != nil {
		return nil, fmt.Errorf("model registry: %w", err)
	}
	return reg, nil
}

// ProvideTrainingLedger exposes the registry as the training ledger.
func ProvideTrainingLedger(reg *registry.FS) repository.TrainingLedger {
	return reg
}

// ProvideEventPublisher creates the Kafka training-event publisher. When
// Kafka is disabled the publisher is constructed without a producer and
// drops events.
func ProvideEventPublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NewKafkaEventPublisher(nil, cfg.Kafka.Topic), nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTrainer creates the training use case from YAML overrides on top
// of production defaults.
func ProvideTrainer(
	cfg *config.Config,
	bars repository.BarStore,
	reg *registry.FS,
	events repository.EventPublisher,
	m repository.Metrics,
	c cache.Service,
	l *applogger.Logger,
) *usecase.Trainer {
	tc := usecase.DefaultTrainerConfig()
	if cfg.Training.HistoryLimit > 0 {
		tc.HistoryLimit = cfg.Training.HistoryLimit
	}
	if cfg.Training.Workers > 0 {
		tc.Workers = cfg.Training.Workers
	}
	if cfg.Training.Version != "" {
		tc.Version = cfg.Training.Version
	}

	t := cfg.Training.Temporal
	if t.Hidden > 0 {
		tc.Temporal.Hidden = t.Hidden
	}
	if t.Dense > 0 {
		tc.Temporal.Dense = t.Dense
	}
	if t.Dropout > 0 {
		tc.Temporal.Dropout = t.Dropout
	}
	if t.LearningRate > 0 {
		tc.Temporal.LearningRate = t.LearningRate
	}
	if t.Epochs > 0 {
		tc.Temporal.Epochs = t.Epochs
	}
	if t.BatchSize > 0 {
		tc.Temporal.BatchSize = t.BatchSize
	}
	if t.Patience > 0 {
		tc.Temporal.Patience = t.Patience
	}

	g := cfg.Training.Tree
	if g.Depth > 0 {
		tc.Tree.Depth = g.Depth
	}
	if g.MaxTrees > 0 {
		tc.Tree.MaxTrees = g.MaxTrees
	}
	if g.LearningRate > 0 {
		tc.Tree.LearningRate = g.LearningRate
	}
	if g.Subsample > 0 {
		tc.Tree.Subsample = g.Subsample
	}
	if g.ColSample > 0 {
		tc.Tree.ColSample = g.ColSample
	}

	return usecase.NewTrainer(tc, bars, reg, events, m, c, l)
}

// ProvidePredictor creates the inference use case.
func ProvidePredictor(
	cfg *config.Config,
	bars repository.BarStore,
	reg *registry.FS,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Predictor {
	pc := usecase.DefaultPredictorConfig()
	if cfg.Prediction.CacheTTL > 0 {
		pc.CacheTTL = cfg.Prediction.CacheTTL
	}
	if cfg.Prediction.HistoryLimit > 0 {
		pc.HistoryLimit = cfg.Prediction.HistoryLimit
	}
	if cfg.Prediction.ModelCacheSize > 0 {
		pc.ModelCacheSize = cfg.Prediction.ModelCacheSize
	}
	return usecase.NewPredictor(pc, bars, reg, c, m, l)
}

// ProvideTrainSymbolJob creates the queue job that runs one training.
func ProvideTrainSymbolJob(
	trainer *usecase.Trainer,
	predictor *usecase.Predictor,
	ledger repository.TrainingLedger,
	l *applogger.Logger,
) *usecase.TrainSymbolJob {
	return usecase.NewTrainSymbolJob(trainer, predictor, ledger, l)
}

// ProvideTrainingQueue creates the Redis queue serving both enqueue and
// worker sides, with the training job registered.
func ProvideTrainingQueue(
	cfg *config.Config,
	c *cache.RedisCache,
	job *usecase.TrainSymbolJob,
	l *applogger.Logger,
) *queue.RedisQueue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Training.QueueWorkers,
		RetryLimit: cfg.Training.RetryLimit,
		RetryDelay: cfg.Training.RetryDelay,
	}
	q := queue.NewRedisQueue(l, qc, c.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(job)
	return q
}

// ProvideQueueService exposes the queue's enqueue side.
func ProvideQueueService(q *queue.RedisQueue) queue.QueueService {
	return q
}

// ProvideTrainingTrigger creates the enqueue-side training trigger.
func ProvideTrainingTrigger(
	q queue.QueueService,
	bars repository.BarStore,
	ledger repository.TrainingLedger,
	l *applogger.Logger,
) *usecase.TrainingTrigger {
	return usecase.NewTrainingTrigger(q, bars, ledger, l)
}

// ProvideHTTPHandler creates the predictions API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	predictor *usecase.Predictor,
	trigger *usecase.TrainingTrigger,
	ledger repository.TrainingLedger,
) xhttp.Handler {
	return api.NewPredictionsEchoHandler(l, predictor, trigger, ledger)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	handler xhttp.Handler,
	q *queue.RedisQueue,
	chClient *pkgch.Client,
	events repository.EventPublisher,
) *server.App {
	return server.New(cfg, handler, q, chClient, events)
}
