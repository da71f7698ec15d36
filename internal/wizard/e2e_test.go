package wizard_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	as "github.com/kode4food/signwiz/internal/assert"
	"github.com/kode4food/signwiz/internal/assert/helpers"
	"github.com/kode4food/signwiz/internal/client"
	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/mock"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
)

const e2eTimeout = 10 * time.Second

func withMockVendor(
	t *testing.T,
) (*mock.Server, func(*config.Config, *wizard.Dependencies)) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := mock.NewServer(api.DefaultTerminalTags())
	srv := httptest.NewServer(m.SetupRoutes())
	t.Cleanup(srv.Close)

	return m, func(cfg *config.Config, deps *wizard.Dependencies) {
		deps.Client = client.NewHTTPClient(cfg.RequestTimeout)
		deps.Endpoints = mock.Endpoints(srv.URL)
		deps.TimerConstructor = nil
	}
}

func TestEndToEndPrepareThenSend(t *testing.T) {
	m, wire := withMockVendor(t)
	env := helpers.NewTestWizard(t, wire).WithCredentials(t)
	w := env.Wizard

	ctx, cancel := context.WithTimeout(context.Background(), e2eTimeout)
	defer cancel()
	require.NoError(t, w.RunAll(ctx, 0))

	st := w.Snapshot()
	a := as.New(t)
	for _, id := range api.StepOrder[1 : len(api.StepOrder)-1] {
		a.StepStatus(st, id, api.StatusSuccess)
	}
	assert.Equal(t, api.StepDone, st.Current)
	assert.NotEmpty(t, st.Token)
	assert.NotEmpty(t, st.DocumentID)

	data, ok := m.Blob(st.FileID)
	require.True(t, ok)
	assert.Equal(t, st.File.Data, data)

	send := st.Step(api.StepSend).Polling
	a.PollingActive(st, api.StepSend, false)
	assert.Equal(t, api.TagRolloutSuccess, send.Last.Status)
	prep := st.Step(api.StepPrepare).Polling
	assert.Equal(t, api.TagPreparationSuccess, prep.Last.Status)
	assert.Empty(t, w.ActivePolls())
}

func TestEndToEndPrepareAndSend(t *testing.T) {
	_, wire := withMockVendor(t)
	env := helpers.NewTestWizard(t, wire).WithCredentials(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldAction, "prepare_send"))

	ctx, cancel := context.WithTimeout(context.Background(), e2eTimeout)
	defer cancel()
	require.NoError(t, w.RunAll(ctx, 0))

	st := w.Snapshot()
	as.New(t).StepStatus(st, api.StepPrepare, api.StatusSuccess)
	as.New(t).StepStatus(st, api.StepSend, api.StatusIdle)
	assert.Equal(t, api.TagRolloutSuccess,
		st.Step(api.StepPrepare).Polling.Last.Status)
}

func TestEndToEndPreparationFailure(t *testing.T) {
	_, wire := withMockVendor(t)
	env := helpers.NewTestWizard(t, wire).WithCredentials(t)
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldTitle, "fail on purpose"))

	ctx, cancel := context.WithTimeout(context.Background(), e2eTimeout)
	defer cancel()
	require.NoError(t, w.RunAll(ctx, 0))

	st := w.Snapshot()
	as.New(t).StepFailed(st, api.StepPrepare,
		wizard.ErrPreparationFailed.Error(),
	)
	assert.Equal(t, api.StepDone, st.Current)
}

func TestEndToEndStepByStep(t *testing.T) {
	_, wire := withMockVendor(t)
	env := helpers.NewTestWizard(t, wire).WithCredentials(t)
	w := env.Wizard
	ctx, cancel := context.WithTimeout(context.Background(), e2eTimeout)
	defer cancel()

	for _, id := range api.StepOrder {
		require.NoError(t, w.GoTo(id))
		require.NoError(t, w.Run(ctx, id), "step %s", id)
	}
	assert.Equal(t, api.StepDone, w.Snapshot().Current)
}
