// Package di wires the ledger components from a config.Config.
package di

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-expense-ledger/api"
	"github.com/goliatone/go-expense-ledger/auth"
	"github.com/goliatone/go-expense-ledger/cache"
	"github.com/goliatone/go-expense-ledger/config"
	"github.com/goliatone/go-expense-ledger/export"
	"github.com/goliatone/go-expense-ledger/internal/firebaseapp"
	"github.com/goliatone/go-expense-ledger/querycache"
	"github.com/goliatone/go-expense-ledger/repository"
	"github.com/goliatone/go-expense-ledger/settings"
	"github.com/goliatone/go-expense-ledger/store"
	"github.com/goliatone/go-expense-ledger/store/fsstore"
	"github.com/goliatone/go-expense-ledger/store/memstore"
	"github.com/goliatone/go-expense-ledger/store/sqlstore"
)

// Option overrides a component the container would otherwise build.
type Option func(*Container)

// WithLogger sets the root logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithProvider replaces the Firebase identity provider.
func WithProvider(p auth.Provider) Option {
	return func(c *Container) {
		c.provider = p
	}
}

// WithStore replaces the store selected by the configuration.
func WithStore(st store.Store) Option {
	return func(c *Container) {
		c.store = st
	}
}

// WithClock sets the time source of the repositories and handlers.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		c.now = now
	}
}

// WithVersion sets the version reported by the health route.
func WithVersion(v string) Option {
	return func(c *Container) {
		c.version = v
	}
}

// Container owns every long lived component of the ledger.
type Container struct {
	config *config.Config
	logger *zap.Logger
	now    func() time.Time

	version  string
	firebase *firebase.App
	store    store.Store
	redis    *redis.Client

	cacheService  cache.CacheService
	keySerializer cache.KeySerializer

	users        *repository.Users
	allowedUsers *repository.AllowedUsers
	fields       *repository.Fields
	transactions *repository.Transactions

	queryClient *querycache.Client
	queries     *querycache.Queries

	provider auth.Provider
	auth     *auth.Service
	settings settings.Store
	exporter *export.CSV
}

// NewContainer builds the components described by cfg.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	c := &Container{config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	if err := c.init(ctx); err != nil {
		if cerr := c.Close(); cerr != nil {
			c.logger.Warn("failed to release partially built container", zap.Error(cerr))
		}
		return nil, err
	}
	return c, nil
}

func (c *Container) init(ctx context.Context) error {
	if err := c.initStore(ctx); err != nil {
		return err
	}

	svc, err := cache.NewCacheService(c.config.Cache.CacheService())
	if err != nil {
		return fmt.Errorf("failed to create profile cache: %w", err)
	}
	c.cacheService = svc
	c.keySerializer = cache.NewDefaultKeySerializer()

	repoOpts := []repository.Option{
		repository.WithLogger(c.logger.Named("repository")),
		repository.WithClock(c.now),
	}
	c.users = repository.NewUsers(c.store, append(repoOpts, repository.WithProfileCache(c.cacheService, c.keySerializer))...)
	c.allowedUsers = repository.NewAllowedUsers(c.store, repoOpts...)
	c.fields = repository.NewFields(c.store, repoOpts...)
	c.transactions = repository.NewTransactions(c.store, c.users, repoOpts...)

	c.queryClient = querycache.New(querycache.Config{
		StaleTime: c.config.Query.StaleTime,
		Logger:    c.logger.Named("querycache"),
		Now:       c.now,
	})
	c.queries = querycache.NewQueries(c.keySerializer, c.transactions, c.fields, c.users, c.allowedUsers)

	if err := c.initAuth(ctx); err != nil {
		return err
	}
	if err := c.initSettings(ctx); err != nil {
		return err
	}

	c.exporter = export.NewCSV(export.WithCurrencySymbol(c.config.Export.CurrencySymbol))
	return nil
}

func (c *Container) initStore(ctx context.Context) error {
	if c.store != nil {
		return nil
	}

	switch c.config.Store.Backend {
	case config.StoreMemory:
		c.store = memstore.New()
	case config.StoreSQL:
		st, err := sqlstore.Open(ctx, c.config.Store.SQLDriver, c.config.Store.SQLDSN)
		if err != nil {
			return err
		}
		c.store = st
	case config.StoreFirestore:
		app, err := c.firebaseApp(ctx)
		if err != nil {
			return err
		}
		st, err := fsstore.NewFromApp(ctx, app)
		if err != nil {
			return err
		}
		c.store = st
	default:
		return fmt.Errorf("unknown store backend %q", c.config.Store.Backend)
	}
	c.logger.Info("store ready", zap.String("backend", c.config.Store.Backend))
	return nil
}

func (c *Container) initAuth(ctx context.Context) error {
	if c.provider == nil {
		app, err := c.firebaseApp(ctx)
		if err != nil {
			return err
		}
		p, err := auth.NewFirebaseProviderFromApp(ctx, app)
		if err != nil {
			return err
		}
		c.provider = p
	}

	c.auth = auth.NewService(c.provider, c.users, c.allowedUsers,
		auth.WithOwnerEmail(c.config.Auth.OwnerEmail),
		auth.WithLogger(c.logger.Named("auth")),
		auth.WithClock(c.now),
	)
	if c.config.Auth.OwnerEmail == "" {
		c.logger.Warn("no owner email configured, allowed users cannot be managed")
	}
	return nil
}

func (c *Container) initSettings(ctx context.Context) error {
	switch c.config.Settings.Backend {
	case config.SettingsFile:
		c.settings = settings.NewFileStore(c.config.Settings.Path)
	case config.SettingsRedis:
		c.redis = redis.NewClient(&redis.Options{Addr: c.config.Settings.RedisAddr})
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", c.config.Settings.RedisAddr, err)
		}
		c.settings = settings.NewRedisStore(c.redis, c.config.Settings.RedisKey)
	default:
		return fmt.Errorf("unknown settings backend %q", c.config.Settings.Backend)
	}
	return nil
}

// firebaseApp initializes the Firebase app once for the store and the
// identity provider.
func (c *Container) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if c.firebase != nil {
		return c.firebase, nil
	}
	app, err := firebaseapp.New(ctx, firebaseapp.Config{
		ProjectID:       c.config.Firebase.ProjectID,
		CredentialsPath: c.config.Firebase.CredentialsPath,
	})
	if err != nil {
		return nil, err
	}
	c.firebase = app
	return app, nil
}

// Config returns the configuration the container was built from.
func (c *Container) Config() *config.Config { return c.config }

// Logger returns the root logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// CacheService returns the profile cache.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the serializer shared by the profile and query caches.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

func (c *Container) Store() store.Store { return c.store }
func (c *Container) Users() *repository.Users { return c.users }
func (c *Container) AllowedUsers() *repository.AllowedUsers { return c.allowedUsers }
func (c *Container) Fields() *repository.Fields { return c.fields }
func (c *Container) Transactions() *repository.Transactions { return c.transactions }
func (c *Container) QueryClient() *querycache.Client { return c.queryClient }
func (c *Container) Queries() *querycache.Queries { return c.queries }
func (c *Container) Auth() *auth.Service { return c.auth }
func (c *Container) Settings() settings.Store { return c.settings }
func (c *Container) Exporter() *export.CSV { return c.exporter }

// NewSession starts an interactive session bound to the container's
// settings store and query cache.
func (c *Container) NewSession() *auth.Session {
	return auth.NewSession(c.auth, c.settings, c.queryClient)
}

// Router builds the HTTP handler.
func (c *Container) Router() *gin.Engine {
	return api.NewRouter(api.Deps{
		Auth:           c.auth,
		Client:         c.queryClient,
		Queries:        c.queries,
		Transactions:   c.transactions,
		Fields:         c.fields,
		Users:          c.users,
		AllowedUsers:   c.allowedUsers,
		Settings:       c.settings,
		Exporter:       c.exporter,
		Logger:         c.logger.Named("api"),
		Now:            c.now,
		AllowedOrigins: c.config.Server.AllowedOrigins,
		Version:        c.version,
	})
}

// Close waits for background query fetches, then releases the store and
// the Redis connection.
func (c *Container) Close() error {
	if c.queryClient != nil {
		c.queryClient.Wait()
	}

	var g errgroup.Group
	if c.store != nil {
		g.Go(c.store.Close)
	}
	if c.redis != nil {
		g.Go(c.redis.Close)
	}
	return g.Wait()
}
