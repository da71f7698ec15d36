package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/pkg/api"
)

// Wrapper wraps testify assertions with wizard-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 10 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus wizard-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// StepStatus asserts the status of a step
func (w *Wrapper) StepStatus(
	st *api.WizardState, id api.StepID, expected api.StepStatus,
) {
	w.Helper()
	step := st.Step(id)
	w.Equal(expected, step.Status,
		"step %s: unexpected status (error: %q)", id, step.Error)
}

// StepFailed asserts that a step ended in error with the given text
func (w *Wrapper) StepFailed(
	st *api.WizardState, id api.StepID, contains string,
) {
	w.Helper()
	step := st.Step(id)
	w.Equal(api.StatusError, step.Status, "step %s should have failed", id)
	if contains != "" {
		w.Contains(step.Error, contains)
	}
}

// PollingActive asserts the polling flag of a step
func (w *Wrapper) PollingActive(
	st *api.WizardState, id api.StepID, expected bool,
) {
	w.Helper()
	step := st.Step(id)
	if w.NotNil(step.Polling, "step %s has no polling state", id) {
		w.Equal(expected, step.Polling.IsActive)
	}
}

// StepsExhaustive asserts the step map holds exactly the fixed identifiers
func (w *Wrapper) StepsExhaustive(st *api.WizardState) {
	w.Helper()
	w.Len(st.Steps, len(api.StepOrder))
	for _, id := range api.StepOrder {
		w.Contains(st.Steps, id)
	}
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.PollInterval > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
