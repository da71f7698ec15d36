package main

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/ui"
	"github.com/kode4food/signwiz/pkg/api"
)

func newProfilesCmd(s *signwiz) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Show the endpoints of the selected environment profile",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return s.profiles()
		},
	}
}

func (s *signwiz) profiles() error {
	ep, err := s.cfg.ResolveEndpoints()
	if err != nil {
		return err
	}

	names := slices.Sorted(maps.Keys(config.Profiles()))
	fmt.Fprint(os.Stdout, ui.KeyValues("",
		ui.KV("Environment", ui.Bold(s.cfg.Environment)),
		ui.KV("Built-in", fmt.Sprint(names)),
	))
	fmt.Fprintln(os.Stdout, ui.Table(
		[]string{"Operation", "URL"},
		[][]string{
			{"token", ep.URL(ep.TokenAPI)},
			{"upload url", ep.URL(ep.GetUploadURLAPI)},
			{"upload status", statusURL(ep)},
			{"prepare", ep.URL(ep.PrepareContractAPI)},
			{"prepare and send", ep.URL(ep.PrepareAndSendContractAPI)},
			{"send", ep.URL(ep.SendContractAPI)},
			{"events", ep.URL(ep.GetEventsAPI)},
		},
	))
	return nil
}

func statusURL(ep *api.Endpoints) string {
	if !ep.HasUploadStatus() {
		return ui.Muted("disabled")
	}
	return ep.URL(ep.PollUploadStatusAPI)
}
