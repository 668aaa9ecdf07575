package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/completion"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/mysql"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/oracle"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/postgres"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/connector/sqlite"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/executor"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/generator"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/pipeline"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/schema"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/secret"
)

// settingModels is the config store key written by 'stockmaster models --save'.
const settingModels = "backend.models"

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag, the
// data_dir setting (STOCKMASTER_DATA_DIR), or ~/.stockmaster as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stockmaster")
}

// openConfigStore opens the SQLite config store in the data directory.
func openConfigStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}

// newRegistry creates a connector registry with all supported database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	registry.RegisterDriver("oracle", func() connector.Connector { return oracle.New() })
	return registry
}

// loadConfig assembles the effective configuration from defaults, the
// config file and STOCKMASTER_* environment variables.
func loadConfig() (*config.YAMLConfig, config.Resolved, error) {
	cfg := config.DefaultYAMLConfig()

	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.MaxBodySize = viper.GetString("server.max_body_size")
	cfg.Server.ShutdownTimeout = viper.GetString("server.shutdown_timeout")
	cfg.Server.RateLimit = viper.GetInt("server.rate_limit")
	cfg.Server.CORS.Origins = splitList(viper.GetStringSlice("server.cors.origins"))

	cfg.Backend.Provider = viper.GetString("backend.provider")
	cfg.Backend.BaseURL = viper.GetString("backend.base_url")
	cfg.Backend.APIKey = viper.GetString("backend.api_key")
	cfg.Backend.Models = splitList(viper.GetStringSlice("backend.models"))
	cfg.Backend.Retries = viper.GetInt("backend.retries")
	cfg.Backend.Backoff = viper.GetString("backend.backoff")
	cfg.Backend.Timeout = viper.GetString("backend.timeout")
	cfg.Backend.Temperature = viper.GetFloat64("backend.temperature")
	cfg.Backend.TopP = viper.GetFloat64("backend.top_p")
	cfg.Backend.MaxTokens = viper.GetInt("backend.max_tokens")

	cfg.Database.Driver = viper.GetString("database.driver")
	cfg.Database.DSN = viper.GetString("database.dsn")
	cfg.Database.MaxOpenConns = viper.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = viper.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = viper.GetString("database.conn_max_lifetime")
	cfg.Database.AcquireTimeout = viper.GetString("database.acquire_timeout")
	cfg.Database.QueryTimeout = viper.GetString("database.query_timeout")
	cfg.Database.MaxRows = viper.GetInt("database.max_rows")

	cfg.Auth.Enabled = viper.GetBool("auth.enabled")
	cfg.Auth.TokenSecret = viper.GetString("auth.token_secret")
	cfg.Auth.TokenTTL = viper.GetString("auth.token_ttl")

	cfg.Logging.Level = viper.GetString("logging.level")
	cfg.DataDir = resolveDataDir()

	res, err := cfg.Resolve()
	if err != nil {
		return nil, res, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, res, nil
}

// splitList flattens comma separated entries, which is how list settings
// arrive from environment variables.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// newLogger returns a text logger on stderr. dev forces debug level.
func newLogger(level string, dev bool) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if dev {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// app holds the components a command needs. Pieces are built on demand so a
// command only requires the configuration it actually uses.
type app struct {
	cfg      *config.YAMLConfig
	res      config.Resolved
	logger   *slog.Logger
	store    *config.Store
	registry *connector.Registry
	inv      connector.Connector
	provider completion.Provider
	models   []string
}

func newApp(dev bool) (*app, error) {
	cfg, res, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openConfigStore()
	if err != nil {
		return nil, fmt.Errorf("init config store: %w", err)
	}
	return &app{
		cfg:      cfg,
		res:      res,
		logger:   newLogger(cfg.Logging.Level, dev),
		store:    store,
		registry: newRegistry(),
	}, nil
}

// Close disconnects the inventory database and closes the config store.
func (a *app) Close() {
	a.registry.CloseAll()
	a.store.Close()
}

func (a *app) descriptor() *schema.Descriptor { return schema.Inventory() }

func (a *app) dialect() string { return schema.DialectName(a.cfg.Database.Driver) }

// connectInventory opens the inventory database pool.
func (a *app) connectInventory() (connector.Connector, error) {
	if a.inv != nil {
		return a.inv, nil
	}
	db := a.cfg.Database
	if db.DSN == "" {
		return nil, errors.New("no inventory database configured: set database.dsn or STOCKMASTER_DATABASE_DSN")
	}
	err := a.registry.Connect(connector.InventoryService, connector.ConnectionConfig{
		Driver:          db.Driver,
		DSN:             db.DSN,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: a.res.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	conn, err := a.registry.Get(connector.InventoryService)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("connected inventory database",
		"driver", db.Driver,
		"dsn", connector.RedactDSN(db.Driver, db.DSN),
	)
	a.inv = conn
	return conn, nil
}

// backend builds the completion provider and the ordered candidate models.
func (a *app) backend(ctx context.Context) (completion.Provider, []string, error) {
	if a.provider != nil {
		return a.provider, a.models, nil
	}
	key, err := a.backendKey()
	if err != nil {
		return nil, nil, err
	}
	p, err := completion.New(completion.Config{
		Provider: a.cfg.Backend.Provider,
		BaseURL:  a.cfg.Backend.BaseURL,
		APIKey:   key,
	})
	if err != nil {
		return nil, nil, err
	}
	a.provider = p
	a.models = a.candidateModels(ctx)
	return a.provider, a.models, nil
}

// backendKey returns the configured backend credential, falling back to the
// keyring entry written by 'stockmaster credential set'.
func (a *app) backendKey() (string, error) {
	if a.cfg.Backend.APIKey != "" {
		return a.cfg.Backend.APIKey, nil
	}
	secrets, err := secret.Open(resolveDataDir())
	if err != nil {
		return "", err
	}
	key, err := secrets.Get(secret.KeyBackendAPIKey)
	if errors.Is(err, secret.ErrNotFound) {
		return "", errors.New("no backend API key: set backend.api_key, STOCKMASTER_BACKEND_API_KEY, or run 'stockmaster credential set'")
	}
	return key, err
}

// candidateModels prefers the configured list, then the list saved by
// 'stockmaster models --save', then the built-in defaults.
func (a *app) candidateModels(ctx context.Context) []string {
	if len(a.cfg.Backend.Models) > 0 {
		return generator.CandidateList("", a.cfg.Backend.Models...)
	}
	if saved, err := a.store.GetSetting(ctx, settingModels); err == nil {
		if models := splitList([]string{saved}); len(models) > 0 {
			return generator.CandidateList("", models...)
		}
	}
	return generator.CandidateList("", config.DefaultYAMLConfig().Backend.Models...)
}

// pipeline wires generator, executor and history into a Pipeline. With
// withDB false no database is opened and only GenerateSQL may be used.
func (a *app) pipeline(ctx context.Context, withDB bool) (*pipeline.Pipeline, error) {
	provider, models, err := a.backend(ctx)
	if err != nil {
		return nil, err
	}

	b := a.cfg.Backend
	gen := generator.New(generator.Options{
		Provider:   provider,
		Descriptor: a.descriptor(),
		Dialect:    a.dialect(),
		Sampling: completion.Sampling{
			Temperature: b.Temperature,
			TopP:        b.TopP,
			MaxTokens:   b.MaxTokens,
		},
		Backoff:     a.res.Backoff,
		CallTimeout: a.res.CallTimeout,
		Logger:      a.logger,
	})

	opts := pipeline.Options{
		Generator: gen,
		Models:    models,
		Retries:   b.Retries,
		History:   a.store,
		Logger:    a.logger,
	}
	if withDB {
		conn, err := a.connectInventory()
		if err != nil {
			return nil, err
		}
		opts.Executor = executor.New(conn, executor.Options{
			AcquireTimeout: a.res.AcquireTimeout,
			QueryTimeout:   a.res.QueryTimeout,
			MaxRows:        a.cfg.Database.MaxRows,
			Logger:         a.logger,
		})
	}
	return pipeline.New(opts), nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
