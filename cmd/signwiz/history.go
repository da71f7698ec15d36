package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kode4food/signwiz/internal/ui"
)

var ErrNoStore = errors.New("no store configured, set REDIS_ADDR or --redis")

func newHistoryCmd(s *signwiz) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent unattended runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.history(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20,
		"Number of runs to show, 0 for all")
	return cmd
}

func (s *signwiz) history(ctx context.Context, limit int) error {
	st, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNoStore
	}
	defer func() { _ = st.Close() }()

	runs, err := st.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, ui.WarnMsg("No runs recorded"))
		return nil
	}
	fmt.Fprintln(os.Stdout, ui.HistoryTable(runs))
	return nil
}
