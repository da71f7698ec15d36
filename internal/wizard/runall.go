package wizard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

const (
	historyTimeout = 5 * time.Second

	// finishDelay caps the pause before the pass settles on done
	finishDelay = 300 * time.Millisecond
)

// RunAll visits every step from token to done in order, waiting delay
// before each one (at most finishDelay before done), and runs it. A
// failed step does not stop the pass. With prepare_and_send the send
// step is skipped, since prepare already rolled the contract out.
// Context cancellation ends the pass with the context's error
func (w *Wizard) RunAll(ctx context.Context, delay time.Duration) error {
	if !w.autoRun.CompareAndSwap(false, true) {
		return ErrAutoRunActive
	}
	defer w.autoRun.Store(false)

	started := time.Now()
	_ = w.SetField(api.FieldAutoRun, true)
	defer func() { _ = w.SetField(api.FieldAutoRun, false) }()

	err := w.runSequence(ctx, delay)
	w.recordRun(ctx, started, err)
	return err
}

func (w *Wizard) runSequence(ctx context.Context, delay time.Duration) error {
	for _, id := range api.StepOrder {
		if id == api.StepIntro {
			continue
		}
		if id == api.StepSend && w.Snapshot().Action.SendsOnPrepare() {
			slog.Info("Skipping send step, prepare already sent",
				log.StepID(id))
			continue
		}

		if err := w.goTo(id, false); err != nil {
			return err
		}
		wait := delay
		if id == api.StepDone {
			wait = min(delay, finishDelay)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}

		if err := w.Run(ctx, id); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("Continuing after failed step",
				log.StepID(id),
				log.Error(err))
		}
	}
	return nil
}

func (w *Wizard) recordRun(ctx context.Context, started time.Time, err error) {
	run := Summarize(w.Snapshot(), started, time.Now(), err)
	slog.Info("Run-all finished",
		slog.String("run_id", run.ID),
		slog.Bool("succeeded", run.Succeeded()),
		log.DocumentID(run.DocumentID))
	if w.history == nil {
		return
	}

	hctx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx), historyTimeout,
	)
	defer cancel()
	if err := w.history.Record(hctx, run); err != nil {
		slog.Error("Failed to record run history", log.Error(err))
	}
}

// Summarize condenses a state into a run summary
func Summarize(
	st *api.WizardState, started, completed time.Time, err error,
) *api.RunSummary {
	res := &api.RunSummary{
		ID:          uuid.NewString(),
		StartedAt:   started,
		CompletedAt: completed,
		Environment: st.Environment,
		Action:      st.Action,
		FileID:      st.FileID,
		DocumentID:  st.DocumentID,
		Steps:       st.Statuses(),
		Errors:      st.Errors(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
