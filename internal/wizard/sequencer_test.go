package wizard_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	as "github.com/kode4food/signwiz/internal/assert"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
)

func TestNewSequencerNormalizesSteps(t *testing.T) {
	init := api.NewWizardState()
	delete(init.Steps, api.StepSend)
	init.Steps["bogus"] = api.NewStepState("bogus")

	seq := wizard.NewSequencer(init, false)
	defer seq.Close()

	st := seq.Snapshot()
	as.New(t).StepsExhaustive(st)
	assert.Equal(t, api.StepIntro, st.Current)
	assert.Contains(t, init.Steps, api.StepID("bogus"))
}

func TestSetField(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	require.NoError(t, seq.SetField(api.FieldClientID, "client-1"))
	require.NoError(t, seq.SetField(api.FieldAutoRun, true))
	require.NoError(t, seq.SetField(api.FieldAutoDelayMs, 1500))

	st := seq.Snapshot()
	assert.Equal(t, "client-1", st.ClientID)
	assert.True(t, st.AutoRun)
	assert.Equal(t, 1500, st.AutoDelayMs)
}

func TestSetFieldUnknown(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	before := seq.Snapshot()
	err := seq.SetField("favoriteColor", "blue")
	assert.ErrorIs(t, err, wizard.ErrUnknownField)
	assert.Equal(t, before.Version, seq.Snapshot().Version)
}

func TestSetFieldWrongType(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	tests := []struct {
		name  string
		field api.Field
		value any
	}{
		{"string as int", api.FieldClientID, 42},
		{"bool as string", api.FieldAutoRun, "yes"},
		{"fractional delay", api.FieldAutoDelayMs, 1.5},
		{"file as string", api.FieldFile, "contract.pdf"},
		{"bad action", api.FieldAction, "rollout_now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := seq.SetField(tt.field, tt.value)
			assert.ErrorIs(t, err, wizard.ErrFieldType)
		})
	}
}

func TestSetFieldNumericForms(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	require.NoError(t, seq.SetField(api.FieldAutoDelayMs, float64(250)))
	assert.Equal(t, 250, seq.Snapshot().AutoDelayMs)

	require.NoError(t, seq.SetField(api.FieldAutoDelayMs, json.Number("75")))
	assert.Equal(t, 75, seq.Snapshot().AutoDelayMs)

	require.NoError(t, seq.SetField(api.FieldAutoDelayMs, int64(10)))
	assert.Equal(t, 10, seq.Snapshot().AutoDelayMs)
}

func TestSetFieldActionAlias(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	require.NoError(t, seq.SetField(api.FieldAction, "prepare_send"))
	assert.Equal(t, api.ActionPrepareAndSend, seq.Snapshot().Action)

	require.NoError(t, seq.SetField(api.FieldAction, api.ActionPrepare))
	assert.Equal(t, api.ActionPrepare, seq.Snapshot().Action)
}

func TestSetStepMergesShallowly(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	require.NoError(t, seq.SetStep(api.StepPrepare, api.StepPatch{
		Request: map[string]string{"url": "x"},
		Polling: &api.PollingPatch{IsActive: api.Ptr(true)},
	}))
	require.NoError(t, seq.SetStep(api.StepPrepare, api.StepPatch{
		Status: api.Ptr(api.StatusRunning),
		Polling: &api.PollingPatch{
			Logs: []api.ContractEvent{{Status: "created"}},
		},
	}))

	step := seq.Snapshot().Step(api.StepPrepare)
	assert.Equal(t, api.StatusRunning, step.Status)
	assert.Equal(t, map[string]string{"url": "x"}, step.Request)
	require.NotNil(t, step.Polling)
	assert.True(t, step.Polling.IsActive)
	assert.Len(t, step.Polling.Logs, 1)
}

func TestSetStepUnknown(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	err := seq.SetStep("review", api.StepPatch{
		Status: api.Ptr(api.StatusSuccess),
	})
	assert.ErrorIs(t, err, wizard.ErrUnknownStep)
	as.New(t).StepsExhaustive(seq.Snapshot())
}

func TestStepMapStaysExhaustive(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	ids := append([]api.StepID{"extra", ""}, api.StepOrder...)
	for i, id := range ids {
		_ = seq.SetStep(id, api.StepPatch{
			Status: api.Ptr(api.StatusSuccess),
		})
		_ = seq.GoTo(id)
		_ = seq.SetField(api.FieldTitle, string(id))
		if i%2 == 0 {
			_ = seq.SetField("nope", i)
		}
	}

	as.New(t).StepsExhaustive(seq.Snapshot())
}

func TestGoToPermissive(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	require.NoError(t, seq.GoTo(api.StepSend))
	assert.Equal(t, api.StepSend, seq.Snapshot().Current)

	assert.ErrorIs(t, seq.GoTo("finale"), wizard.ErrUnknownStep)
	assert.Equal(t, api.StepSend, seq.Snapshot().Current)
}

func TestGoToStrict(t *testing.T) {
	seq := wizard.NewSequencer(nil, true)
	defer seq.Close()

	require.NoError(t, seq.GoTo(api.StepToken))

	err := seq.GoTo(api.StepPrepare)
	assert.ErrorIs(t, err, wizard.ErrPrecondition)
	var pe *wizard.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, []string{"token", "fileId", "upload"}, pe.Missing)
	assert.Equal(t, api.StepToken, seq.Snapshot().Current)

	require.NoError(t, seq.SetField(api.FieldToken, "tok"))
	require.NoError(t, seq.GoTo(api.StepUploadURL))
	assert.Equal(t, api.StepUploadURL, seq.Snapshot().Current)
}

func TestSnapshotIsolation(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	snap := seq.Snapshot()
	snap.ClientID = "mutated"
	snap.Steps[api.StepToken].Status = api.StatusError

	st := seq.Snapshot()
	assert.Empty(t, st.ClientID)
	assert.Equal(t, api.StatusIdle, st.Step(api.StepToken).Status)
}

func TestVersionIncrements(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	v0 := seq.Snapshot().Version
	require.NoError(t, seq.SetField(api.FieldTitle, "T"))
	require.NoError(t, seq.GoTo(api.StepToken))
	assert.Equal(t, v0+2, seq.Snapshot().Version)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	sub := seq.Subscribe()
	defer sub.Close()

	require.NoError(t, seq.SetField(api.FieldEmails, "a@x.io"))

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-sub.Receive():
			if snap.Emails == "a@x.io" {
				assert.Equal(t, seq.Snapshot().Version, snap.Version)
				return
			}
		case <-deadline:
			t.Fatal("snapshot not received")
		}
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	sub := seq.Subscribe()
	sub.Close()
	sub.Close()
	seq.Close()

	assert.NoError(t, seq.SetField(api.FieldTitle, "after close"))
	assert.Equal(t, "after close", seq.Snapshot().Title)
}

func TestSubscriptionCloseDuringTraffic(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	defer seq.Close()

	keep := seq.Subscribe()
	defer keep.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := seq.Subscribe()
			_ = seq.SetField(api.FieldAutoDelayMs, i)
			sub.Close()
		}()
	}
	wg.Wait()
	require.NoError(t, seq.SetField(api.FieldTitle, "last"))

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-keep.Receive():
			if snap.Title == "last" {
				return
			}
		case <-deadline:
			t.Fatal("publication stopped after subscriptions closed")
		}
	}
}

func TestCloseDrainsSubscriptions(t *testing.T) {
	seq := wizard.NewSequencer(nil, false)
	sub := seq.Subscribe()
	defer sub.Close()

	require.NoError(t, seq.SetField(api.FieldTitle, "final"))
	seq.Close()

	var last *api.WizardState
	for snap := range sub.Receive() {
		last = snap
	}
	require.NotNil(t, last)
	assert.Equal(t, "final", last.Title)

	late := seq.Subscribe()
	_, ok := <-late.Receive()
	assert.False(t, ok)
	late.Close()
}
