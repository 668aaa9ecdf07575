package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/mcp"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/server"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

const banner = `
 ___ _           _   __  __         _
/ __| |_ ___  __| |_|  \/  |__ _ __| |_ ___ _ _
\__ \  _/ _ \/ _| / / |\/| / _' (_-<  _/ -_) '_|
|___/\__\___/\__|_\_\_|  |_\__,_/__/\__\___|_|
`

// settingTokenSecret holds the generated JWT signing secret when none is
// configured, so tokens survive a restart.
const settingTokenSecret = "auth.token_secret"

func newServeCmd() *cobra.Command {
	var (
		port  int
		host  string
		dev   bool
		noMCP bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the StockMaster API server",
		Long:  "Start the HTTP server that answers inventory questions over REST and MCP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), dev, noMCP)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "Do not mount the MCP endpoint at /mcp")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, dev, noMCP bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Print(banner)
	fmt.Println()

	a, err := newApp(dev)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	logger.Info("config store initialized", "path", resolveDataDir())
	logger.Info("connector registry initialized", "drivers", a.registry.Drivers())

	p, err := a.pipeline(ctx, true)
	if err != nil {
		return err
	}
	logger.Info("inventory database connected", "driver", a.cfg.Database.Driver, "dialect", a.dialect())
	logger.Info("completion backend ready", "provider", a.provider.Name(), "models", a.models)

	secretKey, err := tokenSecret(ctx, a)
	if err != nil {
		return err
	}
	authSvc := service.NewAuthService(a.store, secretKey)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = a.cfg.Server.Host
	srvCfg.Port = a.cfg.Server.Port
	srvCfg.CORSOrigins = a.cfg.Server.CORS.Origins
	srvCfg.RateLimit = a.cfg.Server.RateLimit
	srvCfg.AuthEnabled = a.cfg.Auth.Enabled
	srvCfg.Version = versionString()
	if a.res.MaxBodySize > 0 {
		srvCfg.MaxBodySize = a.res.MaxBodySize
	}
	if a.res.ShutdownTimeout > 0 {
		srvCfg.ShutdownTimeout = a.res.ShutdownTimeout
	}
	if a.res.TokenTTL > 0 {
		srvCfg.TokenTTL = a.res.TokenTTL
	}
	if !srvCfg.AuthEnabled {
		logger.Warn("authentication is disabled - question endpoints are open to anyone who can reach the server")
	}

	deps := server.Deps{
		Asker:      p,
		Descriptor: a.descriptor(),
		Driver:     a.cfg.Database.Driver,
		Registry:   a.registry,
		Store:      a.store,
		Auth:       authSvc,
	}
	if !noMCP {
		deps.MCP = mcp.NewMCPServer(p, a.descriptor(), a.dialect(), versionString(), logger).Handler()
	}

	srv := server.New(srvCfg, deps, logger)

	base := fmt.Sprintf("http://%s:%d", srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ StockMaster %s\n", versionString())
	fmt.Printf("→ Listening on %s\n", base)
	fmt.Printf("→ Ask:        POST %s/api/v1/query\n", base)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Printf("→ Health:     %s/healthz\n", base)
	if !noMCP {
		fmt.Printf("→ MCP:        %s/mcp\n", base)
	}
	fmt.Println()

	return srv.ListenAndServe()
}

// tokenSecret returns the configured JWT secret, or the one persisted in the
// config store, generating it on first use.
func tokenSecret(ctx context.Context, a *app) (string, error) {
	if a.cfg.Auth.TokenSecret != "" {
		return a.cfg.Auth.TokenSecret, nil
	}
	v, err := a.store.GetSetting(ctx, settingTokenSecret)
	if err == nil && v != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	v = hex.EncodeToString(buf)
	if err := a.store.SetSetting(ctx, settingTokenSecret, v); err != nil {
		return "", err
	}
	a.logger.Info("generated token signing secret", "setting", settingTokenSecret)
	return v, nil
}
