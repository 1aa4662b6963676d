package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reparigo/reparigo/backend/internal/auth"
	"github.com/reparigo/reparigo/backend/internal/config"
	"github.com/reparigo/reparigo/backend/internal/database"
	"github.com/reparigo/reparigo/backend/internal/generation"
	"github.com/reparigo/reparigo/backend/internal/logging"
	"github.com/reparigo/reparigo/backend/internal/repairers"
	"github.com/reparigo/reparigo/backend/internal/seo"
	"github.com/reparigo/reparigo/backend/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reparigo-api",
		Short: "Reparigo local SEO page engine",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("site-origin", defaults.GetString("site.origin"), "Public origin used in sitemap URLs")
	cmd.PersistentFlags().String("generator-url", defaults.GetString("generator.url"), "Content generation endpoint URL")
	cmd.PersistentFlags().Int("generator-timeout-seconds", defaults.GetInt("generator.timeout_seconds"), "Content generation timeout in seconds")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Admin token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Admin token signing secret (overrides env)")
	cmd.PersistentFlags().String("admin-key", "", "Shared administrative key (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "site.origin", "site-origin")
	bindFlag(cmd, "generator.url", "generator-url")
	bindFlag(cmd, "generator.timeout_seconds", "generator-timeout-seconds")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.admin_key", "admin-key")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "reparigo-auth",
		Audience:      "reparigo-admin",
		TokenTTL:      appConfig.TokenTTL,
	})

	pageStore, err := seo.NewStore(seo.StoreConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: seo.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	directory, err := repairers.NewService(repairers.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	generationClient, err := generation.NewClient(generation.ClientConfig{
		BaseURL: appConfig.GeneratorURL,
		Timeout: appConfig.GeneratorTimeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	pipeline, err := seo.NewPipeline(seo.PipelineConfig{
		Store:        pageStore,
		Generator:    generationClient,
		Testimonials: directory,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	suggester, err := seo.NewSuggester(directory, pageStore)
	if err != nil {
		return err
	}

	coordinator, err := seo.NewCoordinator(seo.CoordinatorConfig{
		Store:     pageStore,
		Pipeline:  pipeline,
		Suggester: suggester,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	sitemapBuilder, err := seo.NewSitemapBuilder(pageStore, appConfig.SiteOrigin)
	if err != nil {
		return err
	}

	tracker, err := seo.NewTracker(pageStore, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: tokenManager,
		AdminKey:     appConfig.AdminKey,
		Store:        pageStore,
		Resolver:     seo.NewResolver(pageStore),
		Pipeline:     pipeline,
		Coordinator:  coordinator,
		Suggester:    suggester,
		Sitemap:      sitemapBuilder,
		Tracker:      tracker,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		tracker.Wait()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
