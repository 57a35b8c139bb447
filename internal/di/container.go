package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	repocache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/steppeindustrial/corpsite/internal/cache"
	contentcmd "github.com/steppeindustrial/corpsite/internal/commands/content"
	maintenancecmd "github.com/steppeindustrial/corpsite/internal/commands/maintenance"
	seedcmd "github.com/steppeindustrial/corpsite/internal/commands/seed"
	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/domain"
	corphttp "github.com/steppeindustrial/corpsite/internal/http"
	"github.com/steppeindustrial/corpsite/internal/i18n"
	"github.com/steppeindustrial/corpsite/internal/identity"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/logging/console"
	"github.com/steppeindustrial/corpsite/internal/logging/gologger"
	"github.com/steppeindustrial/corpsite/internal/markdown"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/runtimeconfig"
	"github.com/steppeindustrial/corpsite/internal/schema"
	"github.com/steppeindustrial/corpsite/internal/validation"
	"github.com/steppeindustrial/corpsite/internal/workflow"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// Container wires the site modules from a runtime config.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	clock          func() time.Time
	idGenerator    identity.Generator

	bunDB         *bun.DB
	ownsDB        bool
	redis         goredis.UniversalClient
	ownsRedis     bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	registry *schema.Registry
	resolver *i18n.Resolver
	renderer *markdown.Renderer

	contentRepo content.Repository
	contactRepo contact.Repository

	cacheStore  cache.Store
	coordinator *cache.Coordinator
	limiter     contact.Limiter
	sweepers    map[string]maintenancecmd.Sweeper

	contentSvc  content.Service
	workflowSvc workflow.Service
	contactSvc  contact.Service
	importer    *markdown.Importer
	auth        *permissions.JWTAuthenticator

	contentCommands *contentcmd.HandlerSet
	sweepHandler    *maintenancecmd.SweepHandler
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB supplies an open database; Storage.Provider must be "bun".
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithRedis supplies the client shared by the redis cache store and limiter.
func WithRedis(client goredis.UniversalClient) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// WithRepositoryCache overrides the go-repository-cache service used by the
// bun content repository.
func WithRepositoryCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithClock overrides the clock of every time-dependent module.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithIDGenerator overrides entry id generation. The seed tool uses
// identity.Deterministic so re-runs land on the same rows.
func WithIDGenerator(generator identity.Generator) Option {
	return func(c *Container) {
		c.idGenerator = generator
	}
}

// WithContentRepository replaces the configured content repository.
func WithContentRepository(repo content.Repository) Option {
	return func(c *Container) {
		c.contentRepo = repo
	}
}

// NewContainer validates cfg and builds every module.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{
		Config:      cfg,
		clock:       time.Now,
		idGenerator: identity.Random,
		registry:    schema.DefaultRegistry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	if err := c.configureStorage(); err != nil {
		c.Close()
		return nil, err
	}
	c.configureRedis()
	c.configureCache()
	c.configureServices()
	if err := c.configureCommands(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		c.loggerProvider = console.NewProvider(console.Options{
			Writer:   os.Stderr,
			MinLevel: console.ParseLevel(c.Config.Logging.Level),
		})
	}
	return nil
}

func (c *Container) configureStorage() error {
	if strings.ToLower(c.Config.Storage.Provider) != "bun" {
		if c.contentRepo == nil {
			c.contentRepo = content.NewMemoryRepository()
		}
		c.contactRepo = contact.NewMemoryRepository()
		return nil
	}

	if c.bunDB == nil {
		db, err := OpenBunDB(c.Config.Storage)
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if c.Config.Storage.Migrate {
		if err := Migrate(context.Background(), c.bunDB); err != nil {
			return err
		}
	}

	if c.contentRepo == nil {
		if c.Config.Storage.RepositoryCache {
			if c.cacheService == nil {
				cfg := repocache.DefaultConfig()
				if c.Config.Cache.TTL > 0 {
					cfg.TTL = c.Config.Cache.TTL
				}
				service, err := repocache.NewCacheService(cfg)
				if err != nil {
					return fmt.Errorf("repository cache: %w", err)
				}
				c.cacheService = service
			}
			if c.keySerializer == nil {
				c.keySerializer = repocache.NewDefaultKeySerializer()
			}
			c.contentRepo = content.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.contentRepo = content.NewBunRepository(c.bunDB)
		}
	}
	c.contactRepo = contact.NewBunRepository(c.bunDB)
	return nil
}

// OpenBunDB opens the configured database with the matching bun dialect.
func OpenBunDB(cfg runtimeconfig.StorageConfig) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres":
		sqlDB, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	case "sqlite", "":
		sqlDB, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrStorageDriverUnknown, cfg.Driver)
	}
}

// Migrate creates the entries and contact_requests tables and their listing
// indexes when missing.
func Migrate(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*content.Entry)(nil), (*contact.Request)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", model, err)
		}
	}
	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*content.Entry)(nil), "entries_listing_idx", []string{"kind", "locale", "status", "order_index"}},
		{(*contact.Request)(nil), "contact_requests_created_idx", []string{"created_at"}},
	}
	for _, index := range indexes {
		if _, err := db.NewCreateIndex().Model(index.model).Index(index.name).Column(index.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", index.name, err)
		}
	}
	return nil
}

func (c *Container) configureRedis() {
	if c.redis != nil {
		return
	}
	addr := ""
	if c.Config.Cache.Enabled && strings.EqualFold(c.Config.Cache.Provider, "redis") {
		addr = c.Config.Cache.RedisAddr
	}
	if strings.EqualFold(c.Config.Contact.Limiter, "redis") && addr == "" {
		addr = c.Config.ContactRedisAddr()
	}
	if addr == "" {
		return
	}
	c.redis = goredis.NewClient(&goredis.Options{Addr: addr})
	c.ownsRedis = true
}

func (c *Container) configureCache() {
	c.sweepers = map[string]maintenancecmd.Sweeper{}
	if !c.Config.Cache.Enabled {
		return
	}
	if strings.EqualFold(c.Config.Cache.Provider, "redis") && c.redis != nil {
		c.cacheStore = cache.NewRedisStore(c.redis, c.Config.Cache.Prefix)
	} else {
		store := cache.NewMemoryStore().WithClock(c.clock)
		c.cacheStore = store
		c.sweepers["read_cache"] = store
	}

	opts := []cache.Option{
		cache.WithTTL(c.Config.Cache.TTL),
		cache.WithLogger(logging.CacheLogger(c.loggerProvider)),
	}
	if invalidator, ok := c.contentRepo.(cache.Invalidator); ok && c.cacheService != nil {
		opts = append(opts, cache.WithInvalidators(invalidator))
	}
	c.coordinator = cache.NewCoordinator(c.cacheStore, opts...)
}

func (c *Container) configureServices() {
	localeCfg := i18n.FromModuleConfig(c.Config.DefaultLocale, c.Config.Locales)
	c.resolver = i18n.NewResolver(localeCfg)
	c.renderer = markdown.NewRenderer(markdown.Options{
		Extensions: c.Config.Markdown.Extensions,
		HardWraps:  c.Config.Markdown.HardWraps,
		AllowHTML:  c.Config.Markdown.AllowHTML,
	})

	contentOpts := []content.ServiceOption{
		content.WithRegistry(c.registry),
		content.WithRenderer(c.renderer),
		content.WithLogger(logging.ContentLogger(c.loggerProvider)),
	}
	workflowOpts := []workflow.Option{
		workflow.WithRegistry(c.registry),
		workflow.WithValidator(validation.NewValidator(localeCfg.Locales, localeCfg.DefaultLocale)),
		workflow.WithDefaultLocale(c.resolver.DefaultLocale()),
		workflow.WithIDGenerator(c.idGenerator),
		workflow.WithClock(c.clock),
		workflow.WithLogger(logging.WorkflowLogger(c.loggerProvider)),
	}
	if c.coordinator != nil {
		contentOpts = append(contentOpts, content.WithViewCache(c.coordinator))
		workflowOpts = append(workflowOpts, workflow.WithCache(c.coordinator))
	}
	c.contentSvc = content.NewService(c.contentRepo, c.resolver, contentOpts...)
	c.workflowSvc = workflow.NewService(c.contentRepo, workflowOpts...)

	if strings.EqualFold(c.Config.Contact.Limiter, "redis") && c.redis != nil {
		c.limiter = contact.NewRedisLimiter(c.redis, c.Config.Cache.Prefix+":contact", c.Config.Contact.Limit, c.Config.Contact.Window)
	} else {
		window := contact.NewWindowLimiter(
			contact.WithLimit(c.Config.Contact.Limit),
			contact.WithWindow(c.Config.Contact.Window),
			contact.WithLimiterClock(c.clock),
		)
		c.limiter = window
		c.sweepers["contact_limiter"] = window
	}
	c.contactSvc = contact.NewService(c.contactRepo, c.limiter,
		contact.WithClock(c.clock),
		contact.WithLogger(logging.ContactLogger(c.loggerProvider)),
	)

	c.importer = markdown.NewImporter(markdown.ImporterConfig{
		Writer:        c.workflowSvc,
		Lookup:        c.contentRepo,
		Registry:      c.registry,
		DefaultLocale: c.resolver.DefaultLocale(),
		Logger:        logging.ModuleLogger(c.loggerProvider, "corpsite.markdown"),
	})

	if secret := strings.TrimSpace(c.Config.Auth.Secret); secret != "" {
		c.auth = permissions.NewJWTAuthenticator(secret,
			permissions.WithIssuer(c.Config.Auth.Issuer),
			permissions.WithTimeFunc(c.clock),
		)
	}
}

func (c *Container) configureCommands() error {
	var invalidator contentcmd.CacheInvalidator = noopInvalidator{}
	if c.coordinator != nil {
		invalidator = c.coordinator
	}
	set, err := contentcmd.Register(nil, c.workflowSvc, invalidator, c.loggerProvider)
	if err != nil {
		return err
	}
	c.contentCommands = set
	c.sweepHandler = maintenancecmd.NewSweepHandler(c.sweepers, c.clock, logging.CommandsLogger(c.loggerProvider))
	return nil
}

// Handler returns the site HTTP handler: public and admin routes behind the
// request logger and session middleware.
func (c *Container) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	httpLogger := logging.HTTPLogger(c.loggerProvider)

	public := corphttp.NewPublicAPI(
		corphttp.WithPublicContentService(c.contentSvc),
		corphttp.WithContactService(c.contactSvc),
		corphttp.WithTrustProxy(c.Config.HTTP.TrustProxy),
		corphttp.WithPublicLogger(httpLogger),
	)
	if err := public.Register(mux); err != nil {
		return nil, err
	}
	admin := corphttp.NewAdminAPI(
		corphttp.WithContentService(c.contentSvc),
		corphttp.WithWorkflowService(c.workflowSvc),
		corphttp.WithContactRequests(c.contactSvc),
		corphttp.WithAdminLogger(httpLogger),
	)
	if err := admin.Register(mux); err != nil {
		return nil, err
	}

	var auth corphttp.Authenticator
	if c.auth != nil {
		auth = c.auth
	}
	handler := corphttp.SessionMiddleware(auth, httpLogger)(mux)
	return corphttp.RequestLogger(httpLogger)(handler), nil
}

// SeedHandler returns the seed import command handler reading from fsys.
func (c *Container) SeedHandler(fsys fs.FS) *seedcmd.ImportHandler {
	return seedcmd.NewImportHandler(fsys, c.importer, c.resolver.DefaultLocale(), logging.CommandsLogger(c.loggerProvider))
}

// RunMaintenance sweeps expired limiter windows and cache entries every
// interval until ctx ends.
func (c *Container) RunMaintenance(ctx context.Context) {
	interval := c.Config.Contact.SweepInterval
	if interval <= 0 || len(c.sweepers) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.sweepHandler.Execute(ctx, maintenancecmd.SweepCommand{})
		}
	}
}

// RegisterCron schedules the maintenance sweep with a go-command cron
// registrar, as an alternative to RunMaintenance.
func (c *Container) RegisterCron(reg maintenancecmd.CronRegistrar) error {
	if c.Config.Contact.SweepInterval <= 0 {
		return errors.New("maintenance cron: sweep interval must be positive")
	}
	expression := fmt.Sprintf("@every %s", c.Config.Contact.SweepInterval)
	return maintenancecmd.RegisterCron(reg, c.sweepHandler, command.HandlerConfig{Expression: expression})
}

// SubscribeCommands subscribes the content command handlers to the
// go-command dispatcher. The returned function removes the subscriptions.
func (c *Container) SubscribeCommands() func() {
	subs := []interface{ Unsubscribe() }{
		dispatcher.SubscribeCommand(c.contentCommands.SetStatus),
		dispatcher.SubscribeCommand(c.contentCommands.Reorder),
		dispatcher.SubscribeCommand(c.contentCommands.Invalidate),
		dispatcher.SubscribeCommand(c.sweepHandler),
	}
	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}

func (c *Container) ContentService() content.Service { return c.contentSvc }
func (c *Container) WorkflowService() workflow.Service { return c.workflowSvc }
func (c *Container) ContactService() contact.Service { return c.contactSvc }
func (c *Container) Coordinator() *cache.Coordinator { return c.coordinator }
func (c *Container) Importer() *markdown.Importer { return c.importer }
func (c *Container) Registry() *schema.Registry { return c.registry }
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Authenticator returns the token verifier, or nil when no secret is set.
func (c *Container) Authenticator() *permissions.JWTAuthenticator { return c.auth }

// ContentCommands returns the content command handlers.
func (c *Container) ContentCommands() *contentcmd.HandlerSet { return c.contentCommands }

// SweepHandler returns the maintenance sweep handler.
func (c *Container) SweepHandler() *maintenancecmd.SweepHandler { return c.sweepHandler }

// Close releases connections the container opened itself.
func (c *Container) Close() error {
	var errs []error
	if c.ownsDB && c.bunDB != nil {
		errs = append(errs, c.bunDB.Close())
	}
	if c.ownsRedis && c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	return errors.Join(errs...)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, domain.Kind) error { return nil }
func (noopInvalidator) InvalidateAll(context.Context) error { return nil }
