package di

import (
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/category"
	"github.com/goliatone/go-finance-tracker/config"
	"github.com/goliatone/go-finance-tracker/internal/bunstore"
	"github.com/goliatone/go-finance-tracker/internal/logging"
	"github.com/goliatone/go-finance-tracker/repositorycache"
	"github.com/goliatone/go-finance-tracker/transaction"
	"github.com/goliatone/go-finance-tracker/user"
)

// Container wires the services over one database and one cache store.
// Every dependency is built once in NewContainer; accessors return the
// shared instances.
type Container struct {
	config config.Config
	clock  clockwork.Clock
	logger *slog.Logger

	store      *bunstore.Store
	cacheStore cache.Store
	manager    *repositorycache.Manager

	categories   *category.Service
	transactions *transaction.Service
	users        *user.Service
}

type options struct {
	clock  clockwork.Clock
	logger *slog.Logger
	db     *bun.DB
}

// Option customizes NewContainer.
type Option func(*options)

// WithClock replaces the wall clock in every service.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger replaces the logger built from the log config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDB uses an open database instead of dialing the configured one. The
// container still closes it.
func WithDB(db *bun.DB) Option {
	return func(o *options) { o.db = db }
}

// NewContainer validates cfg, opens the database, applies migrations when
// enabled and builds the cache and services.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.logger == nil {
		logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, nil)
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}

	db := o.db
	if db == nil {
		var err error
		db, err = bunstore.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Database.AutoMigrate {
		if err := bunstore.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	cacheStore, err := cache.NewStore(cfg.Cache, o.clock)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	store := bunstore.New(db, o.clock)
	manager := repositorycache.New(cacheStore, cfg.Cache, repositorycache.WithLogger(o.logger))

	categories := category.NewService(store.Categories, store.Transactions, manager,
		category.WithClock(o.clock), category.WithLogger(o.logger))
	transactions := transaction.NewService(store.Transactions, categories.Validator(), manager,
		transaction.WithClock(o.clock), transaction.WithLogger(o.logger))
	users := user.NewService(store.Users, manager, o.clock, o.logger)

	o.logger.Debug("container ready",
		"driver", cfg.Database.Driver, "cache_backend", cfg.Cache.Backend)

	return &Container{
		config:       cfg,
		clock:        o.clock,
		logger:       o.logger,
		store:        store,
		cacheStore:   cacheStore,
		manager:      manager,
		categories:   categories,
		transactions: transactions,
		users:        users,
	}, nil
}

// Config returns a copy of the configuration the container was built with.
func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Store returns the database repositories.
func (c *Container) Store() *bunstore.Store {
	return c.store
}

// CacheStore returns the raw cache store. Services go through Cache.
func (c *Container) CacheStore() cache.Store {
	return c.cacheStore
}

func (c *Container) Cache() *repositorycache.Manager {
	return c.manager
}

func (c *Container) Categories() *category.Service {
	return c.categories
}

func (c *Container) Transactions() *transaction.Service {
	return c.transactions
}

func (c *Container) Users() *user.Service {
	return c.users
}

// Close releases the database.
func (c *Container) Close() error {
	return c.store.Close()
}
