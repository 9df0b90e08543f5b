package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	domsvc "SignalDesk/internal/domain/service"
	"SignalDesk/internal/handler/api"
	internalrepo "SignalDesk/internal/repository"
	apimetrics "SignalDesk/internal/service/metrics"
	"SignalDesk/internal/service/progress"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/services/llm"
	"SignalDesk/internal/services/marketdata"
	"SignalDesk/internal/services/technical"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. Aggregated error logs are
// shipped to Kafka when the collector is enabled and a producer exists.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	log, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return log.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates the Prometheus recorder, or a no-op one when metrics are off.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient creates a ClickHouse client, nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCache returns a Redis backed layered cache when Redis is enabled,
// otherwise an in-process cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryDefaultTTL(cfg.MarketData.CacheTTL)), nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideBarStore creates the ClickHouse bar store and its table.
func ProvideBarStore(ch *pkgch.Client, log *applogger.Logger) (domrepo.BarStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHBarStore(ch.DB(), log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store: %w", err)
	}
	return store, nil
}

// ProvidePriceProvider builds the market data client behind the cache and bar store.
func ProvidePriceProvider(cfg *config.Config, c cache.Service, store domrepo.BarStore, log *applogger.Logger) domrepo.PriceProvider {
	md := cfg.MarketData
	client := marketdata.NewClient(md.BaseURL,
		marketdata.WithAPIKey(md.APIKey),
		marketdata.WithTimeout(md.Timeout),
		marketdata.WithRateLimit(md.RPS, md.Burst),
		marketdata.WithRetries(md.MaxRetries),
		marketdata.WithBackoff(time.Second, md.MaxBackoff),
		marketdata.WithLogger(log),
	)
	opts := []marketdata.CachedOption{
		marketdata.WithCache(c, md.CacheTTL),
		marketdata.WithProviderLogger(log),
	}
	if store != nil {
		opts = append(opts, marketdata.WithBarStore(store))
	}
	return marketdata.NewCachedProvider(client, opts...)
}

// ProvideHub creates the progress broadcast hub.
func ProvideHub() *progress.Hub {
	return progress.NewHub(128)
}

// ProvideProposer returns the LLM proposer when enabled, the rule proposer otherwise.
func ProvideProposer(cfg *config.Config, log *applogger.Logger) domsvc.DecisionProposer {
	if !cfg.LLM.Enabled {
		log.Info("llm disabled, using rule based proposer")
		return llm.NewRuleProposer()
	}
	chat := llm.NewChatClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout,
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
	)
	return llm.NewProposer(chat,
		llm.WithMaxRetries(cfg.LLM.MaxRetries),
		llm.WithLogger(log),
	)
}

// ProvideWeights converts configured strategy weights, falling back to the defaults.
func ProvideWeights(cfg *config.Config) (technical.Weights, error) {
	if len(cfg.Analysis.Weights) == 0 {
		return technical.DefaultWeights(), nil
	}
	known := make(map[models.Strategy]bool, len(models.Strategies))
	for _, s := range models.Strategies {
		known[s] = true
	}
	w := make(technical.Weights, len(cfg.Analysis.Weights))
	for name, v := range cfg.Analysis.Weights {
		s := models.Strategy(name)
		if !known[s] {
			return nil, fmt.Errorf("unknown strategy weight %q", name)
		}
		w[s] = v
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("analysis weights: %w", err)
	}
	return w, nil
}

// ProvideAnalyst creates the technical analyst. Progress goes to the hub and the debug log.
func ProvideAnalyst(cfg *config.Config, prices domrepo.PriceProvider, weights technical.Weights, hub *progress.Hub, m domrepo.Metrics, log *applogger.Logger) *usecase.TechnicalAnalyst {
	return usecase.NewTechnicalAnalyst(prices, m,
		usecase.WithAnalystWeights(weights),
		usecase.WithAnalystObserver(progress.Multi{hub, progress.NewLogObserver(log)}),
		usecase.WithAnalystConcurrency(cfg.Analysis.Concurrency),
		usecase.WithAnalystLogger(log),
	)
}

func ProvideManager(cfg *config.Config, proposer domsvc.DecisionProposer, hub *progress.Hub, m domrepo.Metrics, log *applogger.Logger) *usecase.PortfolioManager {
	return usecase.NewPortfolioManager(proposer, m,
		usecase.WithMaxPositionPct(cfg.Risk.MaxPositionPct),
		usecase.WithManagerObserver(progress.Multi{hub, progress.NewLogObserver(log)}),
		usecase.WithManagerLogger(log),
	)
}

// ProvidePortfolioSource serves the configured portfolio.
func ProvidePortfolioSource(cfg *config.Config) domrepo.PortfolioSource {
	return internalrepo.NewStaticPortfolio(PortfolioSnapshot(cfg))
}

// PortfolioSnapshot converts the portfolio section of cfg.
func PortfolioSnapshot(cfg *config.Config) models.PortfolioSnapshot {
	p := cfg.Portfolio
	snap := models.PortfolioSnapshot{
		Cash:              p.Cash,
		MarginRequirement: p.MarginRequirement,
		MarginUsed:        p.MarginUsed,
		Equity:            p.Equity,
	}
	if len(p.Positions) > 0 {
		snap.Positions = make(map[string]models.Position, len(p.Positions))
		for ticker, pos := range p.Positions {
			snap.Positions[ticker] = models.Position{
				Long:          pos.Long,
				LongCostBasis: pos.LongCostBasis,
				Short:         pos.Short,
				ShortCost:     pos.ShortCost,
			}
		}
	}
	return snap
}

// ProvidePublisher publishes cycle results to Kafka when a producer exists.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.DecisionPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topics.Decisions, cfg.Kafka.Topics.Signals)
}

// ProvideArchive archives decisions to ClickHouse when a client exists.
func ProvideArchive(ch *pkgch.Client, log *applogger.Logger) (domrepo.DecisionArchive, error) {
	if ch == nil {
		return internalrepo.NopArchive{}, nil
	}
	archive := internalrepo.NewCHDecisionArchive(ch.DB(), log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("decision archive: %w", err)
	}
	return archive, nil
}

func ProvideTradingCycle(
	cfg *config.Config,
	analyst *usecase.TechnicalAnalyst,
	manager *usecase.PortfolioManager,
	source domrepo.PortfolioSource,
	publisher domrepo.DecisionPublisher,
	archive domrepo.DecisionArchive,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.TradingCycle {
	return usecase.NewTradingCycle(analyst, manager, source, publisher, archive, m, usecase.CycleSettings{
		Tickers:      cfg.Analysis.Tickers,
		LookbackDays: cfg.Analysis.LookbackDays,
		Language:     cfg.Analysis.Language,
		Timeout:      cfg.Analysis.Timeout,
	}, log)
}

// ProvideCycleRequestHandler handles cycle requests from Kafka, nil when the
// consumer is disabled.
func ProvideCycleRequestHandler(cfg *config.Config, cycle *usecase.TradingCycle, m domrepo.Metrics) *usecase.CycleRequestHandler {
	if !consumerEnabled(cfg) {
		return nil
	}
	return usecase.NewCycleRequestHandler(cfg.Kafka.Topics.CycleRequests, cycle, m)
}

// ProvideKafkaConsumer creates the cycle request consumer, nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !consumerEnabled(cfg) {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func consumerEnabled(cfg *config.Config) bool {
	return cfg.Kafka.Enabled && cfg.Kafka.Consumer.Enabled && cfg.Kafka.Topics.CycleRequests != ""
}

// ProvideHTTPServer builds the API server with its health checks and rate limit.
func ProvideHTTPServer(
	cfg *config.Config,
	log *applogger.Logger,
	analyst *usecase.TechnicalAnalyst,
	cycle *usecase.TradingCycle,
	hub *progress.Hub,
	ch *pkgch.Client,
	c cache.Service,
) *xhttp.Server {
	handlerOpts := []api.HandlerOption{
		api.WithLookbackDays(cfg.Analysis.LookbackDays),
		api.WithPositionPct(cfg.Risk.MaxPositionPct),
	}
	if ch != nil {
		handlerOpts = append(handlerOpts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	if p, ok := c.(interface{ Ping(context.Context) error }); ok && cfg.Redis.Enabled {
		handlerOpts = append(handlerOpts, api.WithHealthCheck("redis", p.Ping))
	}

	handlers := xhttp.Handlers{
		api.NewCycleEchoHandler(log, analyst, cycle, handlerOpts...),
		api.NewProgressStreamHandler(hub, log),
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true),
		xhttp.WithServerLogger(log),
		xhttp.WithMiddleware(ratelimit.Middleware(ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))),
	}
	if cfg.Metrics.Enabled {
		apimetrics.Register()
		opts = append(opts, xhttp.WithMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer, cfg.Metrics.Path))
	} else {
		reg := prometheus.NewRegistry()
		opts = append(opts, xhttp.WithMetrics(reg, reg, ""))
	}
	return xhttp.NewServer(handlers, opts...)
}

// ProvideApp assembles the service. Resources are closed in reverse order of
// registration, so the log collector flushes before the producer goes away.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler *usecase.CycleRequestHandler,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	opts := []server.Option{server.WithShutdownTimeout(cfg.Server.ShutdownTimeout)}
	if consumer != nil && handler != nil {
		opts = append(opts, server.WithConsumer(consumer, handler))
	}
	opts = append(opts, resourceClosers(log, producer, ch, c)...)
	return server.New(log, srv, opts...)
}

// Runner exposes the pipeline to the CLI without the HTTP surface.
type Runner struct {
	Log     *applogger.Logger
	Analyst *usecase.TechnicalAnalyst
	Cycle   *usecase.TradingCycle
	closers []io.Closer
}

// ProvideRunner assembles the CLI runner.
func ProvideRunner(
	log *applogger.Logger,
	analyst *usecase.TechnicalAnalyst,
	cycle *usecase.TradingCycle,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
) *Runner {
	r := &Runner{Log: log, Analyst: analyst, Cycle: cycle}
	if producer != nil {
		r.closers = append(r.closers, producer)
	}
	if ch != nil {
		r.closers = append(r.closers, ch)
	}
	if c != nil {
		r.closers = append(r.closers, c)
	}
	r.closers = append(r.closers, closerFunc(func() error { log.RemoveCollector(); return nil }))
	return r
}

// Close releases the runner's resources in reverse order.
func (r *Runner) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func resourceClosers(log *applogger.Logger, producer *pkgkafka.Producer, ch *pkgch.Client, c cache.Service) []server.Option {
	var opts []server.Option
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if c != nil {
		opts = append(opts, server.WithCloser("cache", c))
	}
	return append(opts, server.WithCloser("log collector", closerFunc(func() error {
		log.RemoveCollector()
		return nil
	})))
}
