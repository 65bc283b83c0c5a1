// Package app wires every infrastructure adapter into the application
// handlers a transport (CLI, worker, MCP server) calls, choosing concrete
// implementations based on the configured database driver so the rest of
// the codebase only ever depends on domain interfaces.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shiftforge/scheduler/internal/scheduling/application/commands"
	"github.com/shiftforge/scheduler/internal/scheduling/application/queries"
	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/calendarexport"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/persistence"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/pluginloader"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/progress"
	sharedApplication "github.com/shiftforge/scheduler/internal/shared/application"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/crypto"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/database"
	_ "github.com/shiftforge/scheduler/internal/shared/infrastructure/database/sqlite" // registers the SQLite driver
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/eventbus"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/migrations"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/shiftforge/scheduler/internal/shared/infrastructure/persistence"
	"github.com/shiftforge/scheduler/pkg/config"
)

// Container holds every dependency a ShiftForge transport needs: the CLI's
// in-process solve, the worker's pending-run poll loop, and the MCP
// server's tool handlers all build their request handling on top of the
// same Container rather than constructing repositories themselves.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DB       *pgxpool.Pool       // non-nil in Postgres mode
	DBConn   database.Connection // non-nil in SQLite mode
	DBDriver database.Driver

	// Redis (optional; progress ticks fall back to an in-memory sink)
	RedisClient *redis.Client

	// Repositories
	RunRepo    domain.RunRepository
	OutboxRepo outbox.Repository

	// Publishers
	EventPublisher eventbus.Publisher
	ProgressSink   *progress.BoundedSink

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Constraint plugins and solver
	PluginLoader  *pluginloader.Loader
	SolverService *solver.Service

	// Application handlers
	SolveHandler          *commands.SolveHandler
	SubmitHandler         *commands.SubmitHandler
	ExecuteHandler        *commands.ExecuteHandler
	GetSolveStatusHandler *queries.GetSolveStatusHandler

	// CalDAV export (nil unless configured)
	CalDAVPublisher *calendarexport.CalDAVPublisher

	// Outbox delivery
	OutboxProcessor *outbox.Processor
}

// NewContainer builds a production Container against PostgreSQL. Redis and
// RabbitMQ are optional. With no Redis URL, progress ticks go to a sink
// that discards them; a Redis URL that fails to parse or answer a ping
// falls back the same way in development and fails startup otherwise. A
// RabbitMQ publisher that cannot be created is replaced by a noop
// publisher in every environment.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	c.DB = pool
	c.DBDriver = database.DriverPostgres
	logger.Info("connected to database")

	encrypter, err := optionalEncrypter(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	c.RunRepo = persistence.NewPostgresRunRepository(pool, encrypter)
	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	if err := c.wireRedis(ctx, cfg, logger); err != nil {
		pool.Close()
		return nil, err
	}

	c.wireEventPublisher(cfg, logger)
	c.wireCalDAV(cfg, logger)

	if err := c.wirePlugins(cfg, logger); err != nil {
		pool.Close()
		return nil, err
	}

	c.wireHandlers(logger)
	c.wireOutboxProcessor(cfg, logger)

	return c, nil
}

// NewLocalContainer builds a zero-config Container backed by SQLite: no
// Postgres, Redis, or RabbitMQ required. Used by the CLI's single-binary
// local mode, and by the worker and MCP server when the config selects
// local mode (cfg.IsLocalMode()).
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	sqliteConn, ok := conn.(interface{ DB() *sql.DB })
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("expected SQLite connection with DB() method, got %T", conn)
	}
	sqlDB := sqliteConn.DB()

	logger.Info("running SQLite migrations")
	if err := migrations.RunSQLiteMigrations(ctx, sqlDB); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run SQLite migrations: %w", err)
	}

	c.DBConn = conn
	c.DBDriver = database.DriverSQLite

	encrypter, err := optionalEncrypter(cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c.RunRepo = persistence.NewSQLiteRunRepository(sqlDB, encrypter)
	c.OutboxRepo = outbox.NewSQLiteRepository(sqlDB)
	c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(sqlDB)

	// Local mode never dials Redis or RabbitMQ: progress ticks and domain
	// events stay in-process.
	c.ProgressSink = progress.NewBoundedSink(noopProgressSink{}, 64, logger)
	c.EventPublisher = eventbus.NewNoopPublisher(logger)

	c.wireCalDAV(cfg, logger)

	if err := c.wirePlugins(cfg, logger); err != nil {
		conn.Close()
		return nil, err
	}

	c.wireHandlers(logger)
	c.wireOutboxProcessor(cfg, logger)

	logger.Info("local mode container initialized", "database", cfg.SQLitePath, "driver", "sqlite")
	return c, nil
}

// NewDevelopmentContainer builds a Container with no database at all, for
// exercising the CLI/MCP surface (help text, flag parsing) without a
// backing store. RunRepo is left nil; callers that need it must use
// NewContainer or NewLocalContainer instead.
func NewDevelopmentContainer(logger *slog.Logger) *Container {
	c := &Container{Config: &config.Config{AppEnv: "development"}, Logger: logger}
	c.OutboxRepo = outbox.NewInMemoryRepository()
	c.EventPublisher = eventbus.NewNoopPublisher(logger)
	c.ProgressSink = progress.NewBoundedSink(noopProgressSink{}, 64, logger)
	c.SolverService = solver.NewService()
	return c
}

func (c *Container) wireRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.RedisURL == "" {
		c.ProgressSink = progress.NewBoundedSink(noopProgressSink{}, 64, logger)
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		logger.Warn("invalid Redis URL, progress ticks will not be streamed", "error", err)
		c.ProgressSink = progress.NewBoundedSink(noopProgressSink{}, 64, logger)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Warn("Redis not available, progress ticks will not be streamed", "error", err)
		c.ProgressSink = progress.NewBoundedSink(noopProgressSink{}, 64, logger)
		return nil
	}

	c.RedisClient = client
	logger.Info("connected to Redis")
	c.ProgressSink = progress.NewBoundedSink(progress.NewRedisSink(client, logger), 256, logger)
	return nil
}

func (c *Container) wireEventPublisher(cfg *config.Config, logger *slog.Logger) {
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
		return
	}
	c.EventPublisher = publisher
}

func (c *Container) wireCalDAV(cfg *config.Config, logger *slog.Logger) {
	if cfg.CalDAVBaseURL == "" {
		return
	}
	c.CalDAVPublisher = calendarexport.NewBasicAuthPublisher(
		cfg.CalDAVBaseURL, cfg.CalDAVUsername, cfg.CalDAVPassword, logger,
	)
}

func (c *Container) wirePlugins(cfg *config.Config, logger *slog.Logger) error {
	c.PluginLoader = pluginloader.NewLoader(logger)
	plugins, err := c.PluginLoader.LoadAll(cfg.ConstraintPluginPaths)
	if err != nil {
		return fmt.Errorf("failed to load constraint plugins: %w", err)
	}
	c.SolverService = solver.NewService(plugins...)
	return nil
}

func (c *Container) wireHandlers(logger *slog.Logger) {
	c.SolveHandler = commands.NewSolveHandler(c.RunRepo, c.OutboxRepo, c.UnitOfWork, c.SolverService, c.ProgressSink, logger)
	c.SubmitHandler = commands.NewSubmitHandler(c.RunRepo, c.OutboxRepo, c.UnitOfWork)
	c.ExecuteHandler = commands.NewExecuteHandler(c.RunRepo, c.OutboxRepo, c.UnitOfWork, c.SolverService, c.ProgressSink, logger)
	c.GetSolveStatusHandler = queries.NewGetSolveStatusHandler(c.RunRepo)
}

func (c *Container) wireOutboxProcessor(cfg *config.Config, logger *slog.Logger) {
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.DefaultProcessorConfig(), logger)
}

// optionalEncrypter builds an AES-GCM encrypter for run schedule payloads
// when cfg.EncryptionKey is set; a nil Encrypter leaves schedules stored
// as plaintext JSON, which every repository supports.
func optionalEncrypter(cfg *config.Config, logger *slog.Logger) (crypto.Encrypter, error) {
	if cfg.EncryptionKey == "" {
		return nil, nil
	}
	enc, err := crypto.NewAESGCMFromBase64Key(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}
	logger.Info("run schedule encryption enabled")
	return enc, nil
}

// Close tears down every resource Container opened, in reverse order of
// acquisition.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}
	if c.PluginLoader != nil {
		c.PluginLoader.Close()
	}
	if c.ProgressSink != nil {
		if err := c.ProgressSink.Close(); err != nil {
			c.Logger.Warn("error closing progress sink", "error", err)
		}
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing SQLite connection", "error", err)
		} else {
			c.Logger.Info("SQLite connection closed")
		}
	}
}

// noopProgressSink discards every tick; it backs the BoundedSink when
// neither Redis nor any other fan-out is configured, so the solve loop
// always has a Sink to call without a nil check at every call site.
type noopProgressSink struct{}

func (noopProgressSink) Publish(context.Context, uuid.UUID, services.ProgressTick) error { return nil }
func (noopProgressSink) Close() error                                                    { return nil }
