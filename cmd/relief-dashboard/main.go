package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/apiclient"
	"github.com/MarcoPoloResearchLab/relief/internal/config"
	"github.com/MarcoPoloResearchLab/relief/internal/dashboard"
	"github.com/MarcoPoloResearchLab/relief/internal/logging"
	"github.com/MarcoPoloResearchLab/relief/internal/realtime"
	"github.com/MarcoPoloResearchLab/relief/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const reconnectJitter = 0.5

var (
	cfgFile string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "relief-dashboard",
		Short: "Disaster response coordination dashboard",
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
	cmd.PersistentFlags().Int("rate-limit-rps", defaults.GetInt("http.rate_limit_rps"), "Requests per second allowed across the HTTP surface")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("api.base_url"), "Disaster response backend base URL")
	cmd.PersistentFlags().String("realtime-url", defaults.GetString("realtime.url"), "Live update push endpoint")
	cmd.PersistentFlags().String("realtime-mode", defaults.GetString("realtime.mode"), "Live update source (live, synthetic)")
	cmd.PersistentFlags().Int("realtime-buffer-size", defaults.GetInt("realtime.buffer_size"), "Number of live updates kept")
	cmd.PersistentFlags().Duration("notification-ttl", defaults.GetDuration("notification.ttl"), "How long notifications stay visible")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.rate_limit_rps", "rate-limit-rps")
	bindFlag(cmd, "api.base_url", "api-base-url")
	bindFlag(cmd, "realtime.url", "realtime-url")
	bindFlag(cmd, "realtime.mode", "realtime-mode")
	bindFlag(cmd, "realtime.buffer_size", "realtime-buffer-size")
	bindFlag(cmd, "notification.ttl", "notification-ttl")
	bindFlag(cmd, "log.level", "log-level")
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

func newTransport(cfg config.RealtimeConfig, logger *zap.Logger) (realtime.Transport, error) {
	switch cfg.Mode {
	case config.RealtimeModeSynthetic:
		return realtime.NewSyntheticTransport(realtime.SyntheticConfig{Interval: cfg.SyntheticInterval})
	case config.RealtimeModeLive:
		return realtime.NewSSETransport(realtime.SSEConfig{
			URL:               cfg.URL,
			ConnectTimeout:    cfg.ConnectTimeout,
			ReconnectAttempts: cfg.ReconnectAttempts,
			Backoff: realtime.Backoff{
				Initial: cfg.ReconnectDelay,
				Max:     cfg.ReconnectDelayMax,
				Jitter:  reconnectJitter,
			},
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unsupported realtime mode %q", cfg.Mode)
	}
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

	gin.SetMode(gin.ReleaseMode)

	client := apiclient.New(appConfig.APIBaseURL, apiclient.WithLogger(logger.Named("apiclient")))

	store := dashboard.NewStore(dashboard.InitialState())
	controller, err := dashboard.NewController(dashboard.ControllerConfig{
		Client:          client,
		Store:           store,
		NotificationTTL: appConfig.NotificationTTL,
		IDProvider:      dashboard.NewUUIDProvider(),
		Clock:           time.Now,
		Logger:          logger.Named("dashboard"),
	})
	if err != nil {
		return err
	}
	defer controller.Close()

	dispatcher := server.NewStreamDispatcher()
	unsubscribe := store.Subscribe(dispatcher.PublishState)
	defer unsubscribe()

	transport, err := newTransport(appConfig.Realtime, logger.Named("realtime"))
	if err != nil {
		return err
	}
	var channel *realtime.Channel
	channel, err = realtime.NewChannel(realtime.ChannelConfig{
		Transport: transport,
		Capacity:  appConfig.Realtime.BufferSize,
		Logger:    logger.Named("realtime"),
		OnChange: func() {
			dispatcher.PublishLive(channel.Snapshot())
		},
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Controller:   controller,
		Live:         channel,
		Dispatcher:   dispatcher,
		Logger:       logger,
		RateLimitRPS: appConfig.RateLimitRPS,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
		// Streams end when the process is asked to stop.
		BaseContext: func(net.Listener) context.Context { return signalCtx },
	}

	channel.Open(signalCtx)
	defer channel.Close()

	go controller.LoadAll(signalCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("api_base_url", appConfig.APIBaseURL),
			zap.String("realtime_mode", appConfig.Realtime.Mode))
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
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
