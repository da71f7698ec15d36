package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/kode4food/signwiz/internal/mock"
	"github.com/kode4food/signwiz/internal/ui"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

type runFlags struct {
	clientID string
	secret   string
	emails   string
	file     string
	title    string
	action   string
	step     string
	simulate bool
}

var (
	ErrUnknownStep = errors.New("unknown step")
	ErrRunFailed   = errors.New("one or more steps failed")
)

func newRunCmd(s *signwiz) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every workflow step unattended and print the outcome",
		Long: "Run obtains a token, uploads the file, prepares the contract " +
			"and sends it, waiting between steps. With --step only that " +
			"step runs, against whatever state the earlier flags provide.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return s.run(ctx, &f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.clientID, "client-id", "", "Vendor client id")
	fl.StringVar(&f.secret, "client-secret", "",
		"Vendor client secret (defaults to $SIGNWIZ_CLIENT_SECRET)")
	fl.StringVar(&f.emails, "emails", "",
		"Comma-separated recipient emails")
	fl.StringVarP(&f.file, "file", "f", "",
		"Document to sign: a local path or a bucket URL")
	fl.StringVar(&f.title, "title", "",
		"Contract title (defaults to the file name)")
	fl.StringVar(&f.action, "action", string(api.ActionPrepare),
		"prepare or prepare_and_send")
	fl.StringVar(&f.step, "step", "", "Run a single step instead of all")
	fl.BoolVar(&f.simulate, "simulate", false,
		"Run against an in-process mock vendor API")
	return cmd
}

func (s *signwiz) run(ctx context.Context, f *runFlags) error {
	ep, stopMock, err := s.runEndpoints(ctx, f.simulate)
	if err != nil {
		return err
	}
	defer stopMock()

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

	if err := s.seedWizard(ctx, w, f); err != nil {
		return err
	}

	if f.step != "" {
		err = runStep(ctx, w, f.step)
	} else {
		err = w.RunAll(ctx, s.cfg.AutoDelay)
	}

	snap := w.Snapshot()
	fmt.Fprintln(os.Stdout, ui.StateSummary(snap))
	fmt.Fprintln(os.Stdout, ui.StepTable(snap))
	if err != nil {
		return err
	}

	if errs := snap.Errors(); len(errs) > 0 {
		return fmt.Errorf("%w: %d", ErrRunFailed, len(errs))
	}
	fmt.Fprintln(os.Stdout, ui.SuccessMsg("Workflow complete"))
	return nil
}

// runEndpoints resolves the vendor profile, or starts a mock vendor API and
// targets it. The returned func stops the mock
func (s *signwiz) runEndpoints(
	ctx context.Context, simulate bool,
) (*api.Endpoints, func(), error) {
	if !simulate {
		ep, err := s.cfg.ResolveEndpoints()
		return ep, func() {}, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, err
	}
	mockCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		routes := mock.NewServer(s.cfg.Tags).SetupRoutes()
		if err := s.listen(mockCtx, ln, routes); err != nil {
			slog.Error("Mock vendor API failed", log.Error(err))
		}
	}()

	baseURL := "http://" + ln.Addr().String()
	slog.Info("Simulating vendor API", log.URL(baseURL))
	return mock.Endpoints(baseURL), func() {
		cancel()
		<-done
	}, nil
}

func (s *signwiz) seedWizard(
	ctx context.Context, w *wizard.Wizard, f *runFlags,
) error {
	secret := f.secret
	if secret == "" {
		secret = os.Getenv("SIGNWIZ_CLIENT_SECRET")
	}

	for field, value := range map[api.Field]string{
		api.FieldClientID:     f.clientID,
		api.FieldClientSecret: secret,
		api.FieldEmails:       f.emails,
		api.FieldTitle:        f.title,
		api.FieldAction:       f.action,
	} {
		if value == "" {
			continue
		}
		if err := w.SetField(field, value); err != nil {
			return err
		}
	}

	if f.file == "" {
		return nil
	}
	return w.SelectFile(ctx, f.file)
}

func runStep(ctx context.Context, w *wizard.Wizard, name string) error {
	id, ok := api.ParseStepID(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStep, name)
	}
	if err := w.GoTo(id); err != nil {
		return err
	}
	return w.Run(ctx, id)
}
