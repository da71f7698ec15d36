package wizard

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kode4food/signwiz/internal/client"
	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/poller"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

type (
	// Wizard binds the Sequencer to the vendor collaborators and runs the
	// workflow steps against them
	Wizard struct {
		*Sequencer
		client    client.Client
		source    FileSource
		history   HistoryRecorder
		endpoints *api.Endpoints
		events    *poller.Poller[[]api.ContractEvent]
		uploads   *poller.Poller[*api.UploadStatus]
		layout    Layout
		tags      api.TerminalTags
		interval  time.Duration
		autoRun   atomic.Bool
	}

	// Dependencies are the collaborators injected into a Wizard. Only
	// Endpoints is required
	Dependencies struct {
		Client           client.Client
		Source           FileSource
		History          HistoryRecorder
		Endpoints        *api.Endpoints
		TimerConstructor poller.TimerConstructor
	}

	// FileSource resolves an operator's file reference into its contents
	FileSource interface {
		Load(ctx context.Context, ref string) (*api.SelectedFile, error)
	}

	// HistoryRecorder persists the outcome of run-all passes
	HistoryRecorder interface {
		Record(ctx context.Context, run *api.RunSummary) error
	}
)

// New creates a Wizard positioned on the intro page
func New(cfg *config.Config, deps Dependencies) (*Wizard, error) {
	if deps.Endpoints == nil {
		return nil, ErrEndpointsRequired
	}
	cl := deps.Client
	if cl == nil {
		cl = client.NewHTTPClient(cfg.RequestTimeout)
	}

	w := &Wizard{
		Sequencer: NewSequencer(NewState(cfg), cfg.StrictNavigation),
		client:    cl,
		source:    deps.Source,
		history:   deps.History,
		endpoints: deps.Endpoints,
		events:    poller.New[[]api.ContractEvent](deps.TimerConstructor),
		uploads:   poller.New[*api.UploadStatus](deps.TimerConstructor),
		layout:    DefaultLayout,
		tags:      cfg.Tags,
		interval:  cfg.PollInterval,
	}

	slog.Debug("Wizard created",
		log.Environment(cfg.Environment),
		log.URL(deps.Endpoints.BaseURL))
	return w, nil
}

// NewState returns the initial wizard state for a configuration
func NewState(cfg *config.Config) *api.WizardState {
	st := api.NewWizardState()
	st.Environment = cfg.Environment
	st.SignatureClass = cfg.SignatureClass
	st.AutoDelayMs = int(cfg.AutoDelay / time.Millisecond)
	return st
}

// Endpoints returns the vendor profile the wizard calls
func (w *Wizard) Endpoints() *api.Endpoints {
	return w.endpoints
}

// SelectFile loads a file through the configured FileSource and makes it
// the document to upload
func (w *Wizard) SelectFile(ctx context.Context, ref string) error {
	if w.source == nil {
		return ErrNoFileSource
	}
	f, err := w.source.Load(ctx, ref)
	if err != nil {
		return err
	}
	if err := w.SetField(api.FieldFile, f); err != nil {
		return err
	}
	slog.Info("File selected",
		slog.String("name", f.Name),
		slog.Int64("size", f.Size),
		slog.Int("pages", f.Pages))
	return w.SetField(api.FieldFileName, f.Name)
}

// StopPolling cancels the poll attached to a step. It reports whether a
// poll was running
func (w *Wizard) StopPolling(id api.StepID) bool {
	key := string(id)
	stopped := w.events.Stop(key)
	stopped = w.uploads.Stop(key) || stopped
	if stopped {
		slog.Info("Polling stopped", log.StepID(id))
	}
	return stopped
}

// ActivePolls returns the keys of every running poll
func (w *Wizard) ActivePolls() []string {
	return append(w.events.Keys(), w.uploads.Keys()...)
}

// AutoRunning reports whether a run-all pass is in progress
func (w *Wizard) AutoRunning() bool {
	return w.autoRun.Load()
}

// AutoDelay returns the inter-step delay currently held in the state
func (w *Wizard) AutoDelay() time.Duration {
	return time.Duration(w.Snapshot().AutoDelayMs) * time.Millisecond
}

// ApplySettings copies persisted operator preferences into the state
func (w *Wizard) ApplySettings(s *api.Settings) error {
	if s.Environment != "" {
		if err := w.SetField(api.FieldEnvironment, s.Environment); err != nil {
			return err
		}
	}
	if s.Action != "" {
		if err := w.SetField(api.FieldAction, s.Action); err != nil {
			return err
		}
	}
	if err := w.SetField(api.FieldClientID, s.ClientID); err != nil {
		return err
	}
	if err := w.SetField(api.FieldEmails, s.Emails); err != nil {
		return err
	}
	return w.SetField(api.FieldAutoDelayMs, s.AutoDelayMs)
}

// Settings extracts the persistable operator preferences from the state
func (w *Wizard) Settings() *api.Settings {
	st := w.Snapshot()
	return &api.Settings{
		Environment: st.Environment,
		ClientID:    st.ClientID,
		Emails:      st.Emails,
		Action:      st.Action,
		AutoDelayMs: st.AutoDelayMs,
	}
}

// Close stops every poll and snapshot publication
func (w *Wizard) Close() {
	w.events.Close()
	w.uploads.Close()
	w.Sequencer.Close()
}
