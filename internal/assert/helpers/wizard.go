package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/internal/wizard"
	"github.com/kode4food/signwiz/pkg/api"
)

// TestWizardEnv holds a Wizard wired to a MockClient and fake timers
type TestWizardEnv struct {
	Wizard *wizard.Wizard
	Client *MockClient
	Timers *TimerConstructor
	Config *config.Config
}

// TestEndpoints is a complete profile pointing at an unroutable host
var TestEndpoints = &api.Endpoints{
	BaseURL:                   "https://vendor.test",
	TokenAPI:                  "identity/token",
	GetUploadURLAPI:           "storage/upload-url",
	PollUploadStatusAPI:       "storage/status",
	PrepareContractAPI:        "contract/prepare",
	PrepareAndSendContractAPI: "contract/prepare-send",
	SendContractAPI:           "contract/rollout",
	GetEventsAPI:              "contract/events",
}

// NewTestConfig creates a default configuration suited to tests
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.PollInterval = 10 * time.Millisecond
	cfg.AutoDelay = 0
	return cfg
}

// NewTestWizard creates a Wizard with a MockClient and fake poll timers.
// The optional configure hook may adjust the config and dependencies
func NewTestWizard(
	t *testing.T, configure ...func(*config.Config, *wizard.Dependencies),
) *TestWizardEnv {
	t.Helper()

	cfg := NewTestConfig()
	mc := NewMockClient()
	tc := NewTimerConstructor()
	ep := *TestEndpoints
	deps := wizard.Dependencies{
		Client:           mc,
		Endpoints:        &ep,
		TimerConstructor: tc.NewTimer,
	}
	for _, fn := range configure {
		fn(cfg, &deps)
	}

	w, err := wizard.New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	return &TestWizardEnv{
		Wizard: w,
		Client: mc,
		Timers: tc,
		Config: cfg,
	}
}

// WithCredentials fills in everything Token through Send need, apart from
// collaborator outputs
func (env *TestWizardEnv) WithCredentials(t *testing.T) *TestWizardEnv {
	t.Helper()
	w := env.Wizard
	require.NoError(t, w.SetField(api.FieldClientID, "client"))
	require.NoError(t, w.SetField(api.FieldClientSecret, "secret"))
	require.NoError(t, w.SetField(api.FieldEmails, "a@x.io, b@x.io"))
	require.NoError(t, w.SetField(api.FieldFile, &api.SelectedFile{
		Name:        "contract.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 test"),
		Size:        13,
		Pages:       3,
	}))
	require.NoError(t, w.SetField(api.FieldFileName, "contract.pdf"))
	return env
}
