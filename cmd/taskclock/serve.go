package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/taskclock/internal/aggregate"
	"github.com/fentz26/taskclock/internal/api"
	"github.com/fentz26/taskclock/internal/attachment"
	"github.com/fentz26/taskclock/internal/audit"
	"github.com/fentz26/taskclock/internal/blob"
	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/config"
	"github.com/fentz26/taskclock/internal/identity"
	"github.com/fentz26/taskclock/internal/lifecycle"
	"github.com/fentz26/taskclock/internal/logging"
	"github.com/fentz26/taskclock/internal/notify"
	"github.com/fentz26/taskclock/internal/store"
	"github.com/fentz26/taskclock/internal/timer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbDriver   string
	dbDSN      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskclock API server",
	Long:  `Starts the HTTP API for tasks, timers and reports.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite or postgres (overrides config)")
	serveCmd.Flags().StringVar(&dbDSN, "db", "", "Database path or DSN (overrides config)")
}

// service is a fully wired server and what must be released with it.
type service struct {
	server     *api.Server
	store      *store.Store
	dispatcher *notify.Dispatcher
}

func (s *service) close() {
	s.dispatcher.Stop()
	s.store.Close()
}

func newService(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*service, error) {
	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clk := clock.System{}
	recorder := audit.NewRecorder(s, clk)

	var delivery notify.Notifier = notify.NewLogNotifier(log)
	if cfg.Notify.Driver == "smtp" {
		delivery = notify.NewSMTPNotifier(cfg.Notify.SMTP, cfg.Notify.From)
	}
	dispatcher := notify.NewDispatcher(delivery, notify.DispatcherConfig{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	}, log)

	provider, err := identity.NewProvider(cfg.Identity.Provider, cfg.Identity.Audience)
	if err != nil {
		s.Close()
		return nil, err
	}

	deps := api.Deps{
		Lifecycle: lifecycle.New(s, clk, log, lifecycle.NotifyHook(dispatcher), lifecycle.AuditHook(recorder)),
		Timer:     timer.New(s, recorder, log),
		Stats:     aggregate.NewCached(aggregate.NewEngine(s), clk, cfg.Cache.TTL),
		Identity:  provider,
		Users:     s,
		DB:        s,
		Clock:     clk,
		Log:       log,
	}

	if cfg.Blob.Enabled() {
		bs, err := blob.New(cfg.Blob)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("blob store: %w", err)
		}
		if err := bs.EnsureBucket(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("blob bucket: %w", err)
		}
		deps.Attachments = attachment.NewService(s, bs, clk, cfg.Blob.URLExpiry)
		log.WithField("bucket", bs.Bucket()).Info("attachments enabled")
	}

	dispatcher.Start()
	return &service{
		server:     api.NewServer(deps, cfg.Listen),
		store:      s,
		dispatcher: dispatcher,
	}, nil
}

func loadServeConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}
	log, logCloser, err := logging.New(cfg.Log, cfg.Env)
	if err != nil {
		return err
	}
	defer closeQuietly(logCloser)

	log.WithFields(logrus.Fields{"env": cfg.Env, "driver": cfg.Database.Driver}).Info("starting taskclock server")

	svc, err := newService(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := svc.server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server error")
			svc.close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("shutting down HTTP server")
	if err := svc.server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	log.Info("draining notifications and closing database")
	svc.close()

	log.Info("shutdown complete")
	return nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
