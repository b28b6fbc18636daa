// Package app assembles the giving services over the configured backends.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"stewardship/internal/audit"
	"stewardship/internal/giving/envelope"
	"stewardship/internal/giving/importer"
	"stewardship/internal/giving/ledger"
	"stewardship/internal/giving/metrics"
	"stewardship/internal/giving/ports"
	"stewardship/internal/giving/reconcile"
	"stewardship/internal/giving/registernumber"
	"stewardship/internal/giving/statement"
	"stewardship/internal/giving/store/memory"
	"stewardship/internal/giving/store/postgres"
	"stewardship/internal/members"
	"stewardship/internal/platform/config"
	"stewardship/internal/platform/redis"
	"stewardship/pkg/platform/circuit"
)

// App holds the wired services and the connections they depend on.
type App struct {
	Storage   string
	Allocator *registernumber.Allocator
	Importer  *importer.Importer
	Reporter  *reconcile.Reporter
	Batches   *envelope.Processor
	Ledger    *ledger.Service
	Members   ports.MemberDirectory
	Audit     *audit.Publisher

	db     *sql.DB
	redis  *redis.Client
	kafka  *kgo.Client
	closed bool
}

// Build opens storage, the summary cache and the audit sink, then wires the
// services on top. Callers must Close the returned App.
func Build(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	uow, directory, err := app.openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	summaries, err := app.openSummaryStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	auditStore, err := app.openAuditStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	layout := statement.DefaultLayout()
	if cfg.StatementLayoutFile != "" {
		if layout, err = statement.LoadLayout(cfg.StatementLayoutFile); err != nil {
			return nil, err
		}
	}
	parser, err := statement.NewParser(layout)
	if err != nil {
		return nil, err
	}

	m := metrics.New(reg)
	publisher := audit.NewPublisher(auditStore)
	app.Members = directory
	app.Audit = publisher
	writer := ledger.NewWriter()

	app.Allocator = registernumber.New(uow, directory,
		registernumber.WithLogger(log),
		registernumber.WithAuditPublisher(publisher),
		registernumber.WithMetrics(m),
	)
	app.Reporter = reconcile.NewReporter(summaries)
	app.Importer = importer.New(uow, parser, app.Allocator, writer,
		importer.WithLogger(log),
		importer.WithAuditPublisher(publisher),
		importer.WithMetrics(m),
		importer.WithResultSink(app.Reporter),
	)
	app.Batches = envelope.New(uow, app.Allocator, writer,
		envelope.WithLogger(log),
		envelope.WithAuditPublisher(publisher),
		envelope.WithMetrics(m),
	)
	app.Ledger = ledger.NewService(uow, directory, writer,
		ledger.WithLogger(log),
		ledger.WithAuditPublisher(publisher),
	)

	ok = true
	return app, nil
}

// openStorage selects Postgres when DATABASE_URL is set and the in-memory
// backend otherwise.
func (a *App) openStorage(ctx context.Context, cfg config.Server) (ports.UnitOfWork, ports.MemberDirectory, error) {
	if cfg.DatabaseURL == "" {
		a.Storage = "memory"
		return memory.NewUnitOfWorkWithTimeout(cfg.TxTimeout), members.NewInMemory(), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	a.db = db
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, nil, err
	}
	a.Storage = "postgres"
	return postgres.NewUnitOfWork(db, cfg.TxTimeout), members.NewPostgres(db), nil
}

func (a *App) openSummaryStore(ctx context.Context, cfg config.Server) (reconcile.SummaryStore, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return reconcile.NewInMemoryStore(cfg.Redis.SummaryTTL), nil
	}
	a.redis = client
	return reconcile.NewRedisStore(client.Client, client.Key("reconcile", "summary"), client.SummaryTTL()), nil
}

func (a *App) openAuditStore(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return audit.NewLogStore(log), nil
	}
	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	a.kafka = client
	if err := audit.EnsureTopic(ctx, client, cfg.Kafka.AuditTopic, 1, 1); err != nil {
		return nil, err
	}
	return audit.NewFallbackStore(
		audit.NewKafkaStore(client, cfg.Kafka.AuditTopic),
		audit.NewLogStore(log),
		circuit.New("audit-kafka"),
		log,
	), nil
}

// Health pings the external backends that are configured.
func (a *App) Health(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.kafka != nil {
		if err := a.kafka.Ping(ctx); err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
	}
	return nil
}

// Close releases every open connection. It is safe to call more than once.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
