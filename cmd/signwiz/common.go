package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	app "github.com/kode4food/signwiz"
	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/source"
	"github.com/kode4food/signwiz/internal/store"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

type (
	signwiz struct {
		cfg   *config.Config
		flags globalFlags
	}

	globalFlags struct {
		environment string
		baseURL     string
		profiles    string
		logLevel    string
		redisAddr   string
		strict      bool
	}
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrOpenStore     = errors.New("failed to connect to store")
)

// configure loads the environment, applies flags that were set explicitly
// and installs the default logger
func (s *signwiz) configure(cmd *cobra.Command) error {
	if err := s.cfg.LoadFromEnv(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	flags := cmd.Flags()
	for name, apply := range map[string]func(){
		"env":       func() { s.cfg.Environment = s.flags.environment },
		"base-url":  func() { s.cfg.BaseURL = s.flags.baseURL },
		"profiles":  func() { s.cfg.ProfilesFile = s.flags.profiles },
		"log-level": func() { s.cfg.LogLevel = s.flags.logLevel },
		"redis":     func() { s.cfg.Store.Addr = s.flags.redisAddr },
		"strict":    func() { s.cfg.StrictNavigation = s.flags.strict },
	} {
		if flags.Changed(name) {
			apply()
		}
	}

	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s.setupLogging()
	return nil
}

func (s *signwiz) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)
	logger := log.NewWithWriter(
		os.Stderr, app.Name, s.cfg.Env, app.Version, level,
	)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	if level != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Debug("Configuration loaded",
		log.Environment(s.cfg.Environment),
		slog.String("log_level", s.cfg.LogLevel),
		slog.Duration("poll_interval", s.cfg.PollInterval),
		slog.Bool("strict_navigation", s.cfg.StrictNavigation),
		slog.Bool("store_enabled", s.cfg.StoreEnabled()))
}

// openStore connects to the configured store. It returns nil without error
// when no store is configured
func (s *signwiz) openStore(ctx context.Context) (*store.Store, error) {
	st, err := store.New(s.cfg.Store)
	if errors.Is(err, store.ErrStoreDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenStore, err)
	}
	return st, nil
}

// newWizard builds a wizard for the endpoints, recording run-all passes in
// the store when one is open
func (s *signwiz) newWizard(
	ep *api.Endpoints, st *store.Store,
) (*wizard.Wizard, error) {
	deps := wizard.Dependencies{
		Endpoints: ep,
		Source:    source.NewURLSource(),
	}
	if st != nil {
		deps.History = st
	}
	return wizard.New(s.cfg, deps)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// listen serves h on ln until ctx is cancelled,
// then shuts it down within the configured timeout
func (s *signwiz) listen(
	ctx context.Context, ln net.Listener, h http.Handler,
) error {
	srv := &http.Server{Handler: h}
	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(ln)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
		return err
	}
	return nil
}
