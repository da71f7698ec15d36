package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/server"
	"github.com/kode4food/signwiz/internal/store"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/log"
)

func newServeCmd(s *signwiz) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the wizard controller over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				s.cfg.APIPort = port
			}
			if cmd.Flags().Changed("host") {
				s.cfg.APIHost = host
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return s.serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultAPIPort,
		"HTTP port (defaults to $API_PORT)")
	cmd.Flags().StringVar(&host, "host", config.DefaultAPIHost,
		"HTTP bind address (defaults to $API_HOST)")
	return cmd
}

func (s *signwiz) serve(ctx context.Context) error {
	ep, err := s.cfg.ResolveEndpoints()
	if err != nil {
		return err
	}

	st, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() { _ = st.Close() }()
	}

	w, err := s.newWizard(ep, st)
	if err != nil {
		return err
	}
	defer w.Close()

	automation := s.restoreSettings(ctx, w, st)

	var ctrlStore server.Store
	if st != nil {
		ctrlStore = st
	}
	srv := server.NewServer(w, ctrlStore, automation)
	defer srv.Close()

	addr := fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	slog.Info("HTTP server starting",
		slog.String("addr", ln.Addr().String()),
		log.Environment(s.cfg.Environment),
		slog.Bool("automation", automation))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.listen(ctx, ln, srv.SetupRoutes())
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.CloseWebSockets()
		return nil
	})

	err = g.Wait()
	slog.Info("Server exited")
	return err
}

// restoreSettings applies persisted operator preferences to the wizard and
// returns whether run-all automation is enabled
func (s *signwiz) restoreSettings(
	ctx context.Context, w *wizard.Wizard, st *store.Store,
) bool {
	if st == nil {
		return s.cfg.EnableAutomation
	}

	settings, err := st.LoadSettings(ctx)
	if errors.Is(err, store.ErrSettingsNotFound) {
		return s.cfg.EnableAutomation
	}
	if err != nil {
		slog.Warn("Unable to load settings", log.Error(err))
		return s.cfg.EnableAutomation
	}
	if err := w.ApplySettings(settings); err != nil {
		slog.Warn("Ignoring persisted settings", log.Error(err))
		return s.cfg.EnableAutomation
	}

	slog.Info("Settings restored",
		log.Environment(settings.Environment),
		slog.Bool("automation", settings.EnableAutomation))
	return settings.EnableAutomation
}
