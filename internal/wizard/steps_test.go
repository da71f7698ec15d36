package wizard_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	as "github.com/kode4food/signwiz/internal/assert"
	"github.com/kode4food/signwiz/internal/assert/helpers"
	"github.com/kode4food/signwiz/internal/client"
	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
)

func TestRunNavigationSteps(t *testing.T) {
	env := helpers.NewTestWizard(t)
	w := env.Wizard

	assert.NoError(t, w.Run(context.Background(), api.StepIntro))
	assert.NoError(t, w.Run(context.Background(), api.StepDone))
	assert.ErrorIs(t,
		w.Run(context.Background(), "review"), wizard.ErrUnknownStep,
	)
	assert.Empty(t, env.Client.Calls())
}

func TestRunTokenSuccess(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	require.NoError(t, w.SetStep(api.StepToken, api.StepPatch{
		Error: api.Ptr("old failure"),
	}))

	require.NoError(t, w.RunToken(context.Background()))

	st := w.Snapshot()
	as.New(t).StepStatus(st, api.StepToken, api.StatusSuccess)
	assert.Equal(t, "tok-1", st.Token)
	assert.Empty(t, st.Step(api.StepToken).Error)

	req, ok := st.Step(api.StepToken).Request.(*api.HTTPRequest)
	require.True(t, ok)
	assert.Equal(t, "https://vendor.test/identity/token", req.URL)
	assert.Equal(t, "********", req.Form["client_secret"])
	assert.Equal(t, "client", req.Form["client_id"])
	assert.Equal(t, client.GrantClientCredentials, req.Form["grant_type"])

	sent := env.Client.LastRequest(helpers.OpToken)
	assert.Equal(t, "secret", sent.Form["client_secret"])
}

func TestRunTokenPrecondition(t *testing.T) {
	env := helpers.NewTestWizard(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldClientSecret, "secret"))

	err := w.RunToken(context.Background())
	assert.ErrorIs(t, err, wizard.ErrPrecondition)
	as.New(t).StepFailed(w.Snapshot(), api.StepToken, "clientId")
	assert.Zero(t, env.Client.CallCount(helpers.OpToken))
}

func TestRunTokenCollaboratorError(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	env.Client.SetError(helpers.OpToken, client.ErrRequestRejected)

	err := w.RunToken(context.Background())
	assert.ErrorIs(t, err, client.ErrRequestRejected)

	st := w.Snapshot()
	as.New(t).StepFailed(st, api.StepToken, client.ErrRequestRejected.Error())
	assert.Empty(t, st.Token)
}

func TestRunUploadURLGeneratesItemID(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldToken, "tok"))

	require.NoError(t, w.RunUploadURL(context.Background()))

	st := w.Snapshot()
	as.New(t).StepStatus(st, api.StepUploadURL, api.StatusSuccess)
	assert.Equal(t, "https://blob.test/put/item", st.UploadURL)
	assert.NotEmpty(t, st.FileID)

	body, ok := env.Client.LastRequest(helpers.OpUploadURL).
		Body.(*api.UploadURLRequest)
	require.True(t, ok)
	assert.Equal(t, st.FileID, body.ItemID)
	assert.Equal(t, "contract.pdf", body.Name)

	req := st.Step(api.StepUploadURL).Request.(*api.HTTPRequest)
	assert.Equal(t, "bearer ********", req.Headers[client.HeaderAuthorization])
}

func TestRunUploadURLKeepsPresetItemID(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldToken, "tok"))
	require.NoError(t, w.SetField(api.FieldFileID, "item-7"))

	require.NoError(t, w.RunUploadURL(context.Background()))

	body := env.Client.LastRequest(helpers.OpUploadURL).
		Body.(*api.UploadURLRequest)
	assert.Equal(t, "item-7", body.ItemID)
	assert.Equal(t, "item-7", w.Snapshot().FileID)
}

func TestRunUploadURLEchoedItemID(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldToken, "tok"))
	env.Client.SetUploadURL("https://blob.test/put/other", "server-id")

	require.NoError(t, w.RunUploadURL(context.Background()))
	assert.Equal(t, "server-id", w.Snapshot().FileID)
}

func TestRunUploadURLNeedsFile(t *testing.T) {
	env := helpers.NewTestWizard(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldToken, "tok"))

	err := w.RunUploadURL(context.Background())
	assert.ErrorIs(t, err, wizard.ErrPrecondition)
	as.New(t).StepFailed(w.Snapshot(), api.StepUploadURL, "file")
}

func TestRunUploadWithoutStatusEndpoint(t *testing.T) {
	env := helpers.NewTestWizard(t,
		func(_ *config.Config, deps *wizard.Dependencies) {
			deps.Endpoints.PollUploadStatusAPI = ""
		},
	).WithCredentials(t)
	w := env.Wizard
	seedUpload(t, w)

	require.NoError(t, w.RunUpload(context.Background()))

	st := w.Snapshot()
	as.New(t).StepStatus(st, api.StepUpload, api.StatusSuccess)
	assert.Zero(t, env.Client.CallCount(helpers.OpUploadStatus))

	req := st.Step(api.StepUpload).Request.(*api.HTTPRequest)
	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "https://blob.test/put/item", req.URL)
	assert.Equal(t, "application/pdf", req.Headers[client.HeaderContentType])
}

func TestRunUploadPollsStatus(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedUpload(t, w)
	env.Client.SetUploadStatus("Pending", "Uploaded")

	done := runAsync(func() error {
		return w.RunUpload(context.Background())
	})

	timer := env.Timers.WaitTimer(t)
	assert.Equal(t, env.Config.PollInterval, timer.Delay)
	assert.Equal(t, []string{"upload"}, w.ActivePolls())
	timer.Fire()

	require.NoError(t, waitErr(t, done))
	as.New(t).StepStatus(w.Snapshot(), api.StepUpload, api.StatusSuccess)
	assert.Equal(t, 2, env.Client.CallCount(helpers.OpUploadStatus))
	assert.Empty(t, w.ActivePolls())
}

func TestRunUploadRejected(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedUpload(t, w)
	env.Client.SetUploadStatus("Rejected")

	err := w.RunUpload(context.Background())
	assert.ErrorIs(t, err, wizard.ErrUploadFailed)
	as.New(t).StepFailed(w.Snapshot(), api.StepUpload, "Rejected")
}

func TestRunUploadPutFailure(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedUpload(t, w)
	putErr := &client.StatusError{Status: 403, Body: "expired"}
	env.Client.SetError(helpers.OpUpload, putErr)

	err := w.RunUpload(context.Background())
	assert.ErrorIs(t, err, client.ErrHTTPStatus)
	as.New(t).StepFailed(w.Snapshot(), api.StepUpload, "")
	assert.Zero(t, env.Client.CallCount(helpers.OpUploadStatus))
}

func TestRunPrepareImmediateSuccess(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)

	require.NoError(t, w.RunPrepare(context.Background()))

	st := w.Snapshot()
	a := as.New(t)
	a.StepStatus(st, api.StepPrepare, api.StatusSuccess)
	a.PollingActive(st, api.StepPrepare, false)
	assert.Equal(t, "doc-1", st.DocumentID)
	assert.Len(t, st.Step(api.StepPrepare).Polling.Logs, 2)
	assert.Zero(t, env.Timers.Count())

	req := env.Client.LastRequest(helpers.OpPrepare)
	assert.True(t, strings.HasSuffix(req.URL, "contract/prepare"))
	body := req.Body.(*api.PrepareRequest)
	assert.Equal(t, "file-1", body.FileID)
	assert.Equal(t, []api.Signatory{{Email: "a@x.io"}, {Email: "b@x.io"}},
		body.Signatories)
	assert.Equal(t, "contract.pdf", body.Title)

	events := env.Client.LastRequest(helpers.OpEvents)
	assert.Equal(t, "doc-1", events.Body.(*api.EventsRequest).DocumentID)
}

func TestRunPrepareRerunClearsEvents(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)

	require.NoError(t, w.RunPrepare(context.Background()))
	polling := w.Snapshot().Step(api.StepPrepare).Polling
	require.NotNil(t, polling.Last)
	require.Len(t, polling.Logs, 2)

	down := errors.New("prepare unavailable")
	env.Client.SetError(helpers.OpPrepare, down)
	assert.ErrorIs(t, w.RunPrepare(context.Background()), down)

	polling = w.Snapshot().Step(api.StepPrepare).Polling
	assert.Nil(t, polling.Last)
	assert.Empty(t, polling.Logs)
}

func TestRunPreparePollsUntilTerminal(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	env.Client.SetEvents(
		[]api.ContractEvent{{Status: "created"}},
		[]api.ContractEvent{{Status: "created"}, {Status: "processing"}},
		[]api.ContractEvent{
			{Status: "created"},
			{Status: "processing"},
			{Status: api.TagPreparationSuccess},
		},
	)

	done := runAsync(func() error {
		return w.RunPrepare(context.Background())
	})

	timer := env.Timers.WaitTimer(t)
	st := w.Snapshot()
	a := as.New(t)
	a.PollingActive(st, api.StepPrepare, true)
	a.StepStatus(st, api.StepPrepare, api.StatusRunning)
	polling := st.Step(api.StepPrepare).Polling
	assert.Len(t, polling.Logs, 1)
	require.NotNil(t, polling.Last)
	assert.Equal(t, "created", polling.Last.Status)

	timer.Fire()
	timer.WaitReset(t)
	polling = w.Snapshot().Step(api.StepPrepare).Polling
	assert.Len(t, polling.Logs, 2)
	assert.Equal(t, "processing", polling.Last.Status)

	timer.Fire()
	require.NoError(t, waitErr(t, done))

	st = w.Snapshot()
	a.StepStatus(st, api.StepPrepare, api.StatusSuccess)
	a.PollingActive(st, api.StepPrepare, false)
	assert.Equal(t, api.TagPreparationSuccess,
		st.Step(api.StepPrepare).Polling.Last.Status)
	assert.Equal(t, 3, env.Client.CallCount(helpers.OpEvents))
}

func TestRunPrepareFailureTag(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	env.Client.SetEvents([]api.ContractEvent{
		{Status: "created"}, {Status: api.TagPreparationFailed},
	})

	err := w.RunPrepare(context.Background())
	assert.ErrorIs(t, err, wizard.ErrPreparationFailed)

	st := w.Snapshot()
	as.New(t).StepFailed(st, api.StepPrepare,
		wizard.ErrPreparationFailed.Error(),
	)
	assert.False(t, st.Step(api.StepPrepare).Polling.IsActive)
	assert.Equal(t, "doc-1", st.DocumentID)
}

func TestRunPrepareAndSend(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	require.NoError(t, w.SetField(api.FieldAction, api.ActionPrepareAndSend))
	env.Client.SetEvents(
		[]api.ContractEvent{{Status: api.TagPreparationSuccess}},
		[]api.ContractEvent{
			{Status: api.TagPreparationSuccess},
			{Status: api.TagRolloutSuccess},
		},
	)

	done := runAsync(func() error {
		return w.RunPrepare(context.Background())
	})
	env.Timers.WaitTimer(t).Fire()
	require.NoError(t, waitErr(t, done))

	as.New(t).StepStatus(w.Snapshot(), api.StepPrepare, api.StatusSuccess)
	req := env.Client.LastRequest(helpers.OpPrepare)
	assert.True(t, strings.HasSuffix(req.URL, "contract/prepare-send"))
	assert.Equal(t, 2, env.Client.CallCount(helpers.OpEvents))
}

func TestRunPrepareAndSendRolloutFailed(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	require.NoError(t, w.SetField(api.FieldAction, api.ActionPrepareAndSend))
	env.Client.SetEvents([]api.ContractEvent{
		{Status: api.TagPreparationSuccess},
		{Status: api.TagRolloutFailed},
	})

	err := w.RunPrepare(context.Background())
	assert.ErrorIs(t, err, wizard.ErrRolloutFailed)
}

func TestRunPrepareMissingDocumentID(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	env.Client.SetError(helpers.OpPrepare, client.ErrMissingDocumentID)

	err := w.RunPrepare(context.Background())
	assert.ErrorIs(t, err, client.ErrMissingDocumentID)
	assert.Zero(t, env.Client.CallCount(helpers.OpEvents))

	st := w.Snapshot()
	as.New(t).StepFailed(st, api.StepPrepare, "document")
	assert.False(t, st.Step(api.StepPrepare).Polling.IsActive)
}

func TestRunPrepareStopPolling(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	env.Client.SetEvents([]api.ContractEvent{{Status: "created"}})

	done := runAsync(func() error {
		return w.RunPrepare(context.Background())
	})
	env.Timers.WaitTimer(t)

	assert.Equal(t, []string{"prepare"}, w.ActivePolls())
	assert.True(t, w.StopPolling(api.StepPrepare))
	require.NoError(t, waitErr(t, done))

	st := w.Snapshot()
	as.New(t).PollingActive(st, api.StepPrepare, false)
	assert.Equal(t, "created", st.Step(api.StepPrepare).Polling.Last.Status)
	assert.False(t, w.StopPolling(api.StepPrepare))
	assert.Empty(t, w.ActivePolls())
}

func TestRunPreparePollFetchFailure(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	env.Client.SetEvents([]api.ContractEvent{{Status: "created"}})

	done := runAsync(func() error {
		return w.RunPrepare(context.Background())
	})
	timer := env.Timers.WaitTimer(t)
	fetchErr := errors.New("events unavailable")
	env.Client.SetError(helpers.OpEvents, fetchErr)
	timer.Fire()

	assert.ErrorIs(t, waitErr(t, done), fetchErr)
	st := w.Snapshot()
	as.New(t).StepFailed(st, api.StepPrepare, "events unavailable")
	assert.False(t, st.Step(api.StepPrepare).Polling.IsActive)
}

func TestRunPrepareContextCancel(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	env.Client.SetEvents([]api.ContractEvent{{Status: "created"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(func() error {
		return w.RunPrepare(ctx)
	})
	env.Timers.WaitTimer(t)
	cancel()

	assert.ErrorIs(t, waitErr(t, done), context.Canceled)
	as.New(t).StepFailed(w.Snapshot(), api.StepPrepare, "canceled")
}

func TestRunPrepareNeedsEmails(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedPrepare(t, w)
	require.NoError(t, w.SetField(api.FieldEmails, " , "))

	err := w.RunPrepare(context.Background())
	var pe *wizard.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, api.StepPrepare, pe.Step)
	assert.Equal(t, []string{"emails"}, pe.Missing)
}

func TestRunSendPlacements(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedSend(t, w)

	require.NoError(t, w.RunSend(context.Background()))

	st := w.Snapshot()
	as.New(t).StepStatus(st, api.StepSend, api.StatusSuccess)

	body := env.Client.LastRequest(helpers.OpSend).Body.(*api.SendRequest)
	assert.Equal(t, "doc-1", body.DocumentID)
	require.Len(t, body.Stamps, 2)
	assert.Len(t, body.TextFields, 2)
	assert.Len(t, body.PostInfo, 2)
	for _, p := range body.Stamps {
		assert.Equal(t, 3, p.PageNumber)
	}
	assert.Equal(t, "b@x.io", body.Stamps[1].Email)
	assert.Greater(t, body.Stamps[1].Y, body.Stamps[0].Y)
}

func TestRunSendRolloutFailed(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedSend(t, w)
	env.Client.SetEvents([]api.ContractEvent{{Status: api.TagRolloutFailed}})

	err := w.RunSend(context.Background())
	assert.ErrorIs(t, err, wizard.ErrRolloutFailed)
	as.New(t).StepFailed(w.Snapshot(), api.StepSend, "rollout")
}

func TestRunSendIgnoresPreparationTags(t *testing.T) {
	env := helpers.NewTestWizard(t).WithCredentials(t)
	w := env.Wizard
	seedSend(t, w)
	env.Client.SetEvents(
		[]api.ContractEvent{{Status: api.TagPreparationSuccess}},
		[]api.ContractEvent{
			{Status: api.TagPreparationSuccess},
			{Status: api.TagRolloutSuccess},
		},
	)

	done := runAsync(func() error {
		return w.RunSend(context.Background())
	})
	env.Timers.WaitTimer(t).Fire()
	require.NoError(t, waitErr(t, done))
	assert.Equal(t, 2, env.Client.CallCount(helpers.OpEvents))
}

func TestCustomTerminalTags(t *testing.T) {
	env := helpers.NewTestWizard(t,
		func(cfg *config.Config, _ *wizard.Dependencies) {
			cfg.Tags.RolloutSuccess = "signed"
		},
	).WithCredentials(t)
	w := env.Wizard
	seedSend(t, w)
	env.Client.SetEvents([]api.ContractEvent{{Status: "signed"}})

	require.NoError(t, w.RunSend(context.Background()))
	assert.Zero(t, env.Timers.Count())
}

func seedUpload(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	require.NoError(t, w.SetField(api.FieldToken, "tok"))
	require.NoError(t, w.SetField(api.FieldUploadURL,
		"https://blob.test/put/item",
	))
	require.NoError(t, w.SetField(api.FieldFileID, "file-1"))
}

func seedPrepare(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	require.NoError(t, w.SetField(api.FieldToken, "tok"))
	require.NoError(t, w.SetField(api.FieldFileID, "file-1"))
}

func seedSend(t *testing.T, w *wizard.Wizard) {
	t.Helper()
	seedPrepare(t, w)
	require.NoError(t, w.SetField(api.FieldDocumentID, "doc-1"))
}

func runAsync(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("step did not finish")
		return nil
	}
}
