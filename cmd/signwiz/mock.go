package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/kode4food/signwiz/internal/mock"
	"github.com/kode4food/signwiz/internal/ui"
)

func newMockCmd(s *signwiz) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Host a simulated vendor API",
		Long: "Mock serves every vendor endpoint from memory. Contracts " +
			"whose title contains \"" + mock.FailMarker + "\" fail " +
			"preparation.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return s.mock(ctx, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8081, "HTTP port")
	return cmd
}

func (s *signwiz) mock(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.APIHost, port))
	if err != nil {
		return err
	}

	baseURL := "http://" + ln.Addr().String()
	fmt.Fprintln(os.Stdout, ui.InfoMsg("Mock vendor API on %s", baseURL))
	fmt.Fprint(os.Stdout, ui.KeyValues("  ",
		ui.KV("Base URL", ui.Accent(baseURL)),
		ui.KV("Token", mock.TokenPath),
		ui.KV("Prepare", mock.PreparePath),
		ui.KV("Events", mock.EventsPath),
	))

	srv := mock.NewServer(s.cfg.Tags)
	err = s.listen(ctx, ln, srv.SetupRoutes())
	slog.Info("Mock vendor API exited",
		slog.Int("documents", srv.DocumentCount()))
	return err
}
