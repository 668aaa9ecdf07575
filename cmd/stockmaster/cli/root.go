package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and mcp
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stockmaster",
		Short: "Ask your inventory database questions in plain English",
		Long: `StockMaster turns inventory questions into a single read-only SQL query,
runs it inside a rolled-back read-only transaction, and answers in plain English.

It serves an HTTP API and an MCP server, and works from the terminal with
'stockmaster ask'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./stockmaster.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.stockmaster)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newCredentialCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("stockmaster")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.stockmaster")
	}

	viper.SetEnvPrefix("STOCKMASTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(config.DefaultYAMLConfig())
	viper.ReadInConfig() // Ignore error - config file is optional
}

// setDefaults registers every key of the config file with viper so
// environment variables resolve even when no file exists. backend.models is
// left unset so a list saved by 'stockmaster models --save' can apply.
func setDefaults(d *config.YAMLConfig) {
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	viper.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	viper.SetDefault("server.rate_limit", d.Server.RateLimit)
	viper.SetDefault("server.cors.origins", d.Server.CORS.Origins)

	viper.SetDefault("backend.provider", d.Backend.Provider)
	viper.SetDefault("backend.base_url", d.Backend.BaseURL)
	viper.SetDefault("backend.api_key", "")
	viper.SetDefault("backend.retries", d.Backend.Retries)
	viper.SetDefault("backend.backoff", d.Backend.Backoff)
	viper.SetDefault("backend.timeout", d.Backend.Timeout)
	viper.SetDefault("backend.temperature", d.Backend.Temperature)
	viper.SetDefault("backend.top_p", d.Backend.TopP)
	viper.SetDefault("backend.max_tokens", d.Backend.MaxTokens)

	viper.SetDefault("database.driver", d.Database.Driver)
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	viper.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	viper.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	viper.SetDefault("database.acquire_timeout", d.Database.AcquireTimeout)
	viper.SetDefault("database.query_timeout", d.Database.QueryTimeout)
	viper.SetDefault("database.max_rows", d.Database.MaxRows)

	viper.SetDefault("auth.enabled", d.Auth.Enabled)
	viper.SetDefault("auth.token_secret", "")
	viper.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("data_dir", "")
}
