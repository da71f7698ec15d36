package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app "github.com/kode4food/signwiz"
	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	s := &signwiz{cfg: config.NewDefaultConfig()}

	root := &cobra.Command{
		Use:           app.Name,
		Short:         "Drive a document e-signature workflow",
		Version:       app.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.configure(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&s.flags.environment, "env", "e", "",
		"Vendor environment profile (development, staging, production)")
	f.StringVar(&s.flags.baseURL, "base-url", "",
		"Override the base URL of the environment profile")
	f.StringVar(&s.flags.profiles, "profiles", "",
		"YAML, TOML or JSON file with additional endpoint profiles")
	f.StringVar(&s.flags.logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	f.StringVar(&s.flags.redisAddr, "redis", "",
		"Redis address for settings and run history")
	f.BoolVar(&s.flags.strict, "strict", false,
		"Refuse to navigate to a step whose inputs are missing")

	root.AddCommand(
		newRunCmd(s),
		newServeCmd(s),
		newMockCmd(s),
		newHistoryCmd(s),
		newProfilesCmd(s),
	)
	return root
}
