package api

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type (
	// StepID identifies one page of the wizard
	StepID string

	// StepStatus represents the current state of a step run
	StepStatus string

	// Action selects whether Prepare also sends the contract
	Action string

	// StepState contains the request, response and outcome of a step run
	StepState struct {
		Request  any           `json:"request,omitempty"`
		Response any           `json:"response,omitempty"`
		Polling  *PollingState `json:"polling,omitempty"`
		Status   StepStatus    `json:"status"`
		Error    string        `json:"error,omitempty"`
	}

	// PollingState tracks the events poll attached to a step
	PollingState struct {
		Last     *ContractEvent  `json:"last,omitempty"`
		Logs     []ContractEvent `json:"logs"`
		IsActive bool            `json:"isActive"`
	}

	// StepPatch is a partial StepState. Nil fields are left untouched
	StepPatch struct {
		Request  any
		Response any
		Status   *StepStatus
		Error    *string
		Polling  *PollingPatch
	}

	// PollingPatch is a partial PollingState. Nil fields are left untouched.
	// ClearLast drops the last event before Last is applied
	PollingPatch struct {
		IsActive  *bool
		Logs      []ContractEvent
		Last      *ContractEvent
		ClearLast bool
	}
)

const (
	StepIntro     StepID = "intro"
	StepToken     StepID = "token"
	StepUploadURL StepID = "uploadUrl"
	StepUpload    StepID = "upload"
	StepPrepare   StepID = "prepare"
	StepSend      StepID = "send"
	StepDone      StepID = "done"
)

const (
	StatusIdle    StepStatus = "idle"
	StatusRunning StepStatus = "running"
	StatusSuccess StepStatus = "success"
	StatusError   StepStatus = "error"
)

const (
	ActionPrepare        Action = "prepare"
	ActionPrepareAndSend Action = "prepare_and_send"

	actionPrepareSendAlias = "prepare_send"
)

var ErrInvalidAction = errors.New("invalid action")

// StepOrder lists every step identifier in wizard order
var StepOrder = []StepID{
	StepIntro, StepToken, StepUploadURL, StepUpload, StepPrepare, StepSend,
	StepDone,
}

// ParseStepID returns the StepID for a name, reporting whether it is known
func ParseStepID(name string) (StepID, bool) {
	id := StepID(name)
	return id, slices.Contains(StepOrder, id)
}

// Index returns the position of the step in StepOrder, or -1
func (s StepID) Index() int {
	return slices.Index(StepOrder, s)
}

// HasPolling reports whether the step polls the events collaborator
func (s StepID) HasPolling() bool {
	return s == StepPrepare || s == StepSend
}

// IsTerminal reports whether a status is the outcome of a finished run
func (s StepStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// ParseAction accepts the canonical action names and the prepare_send alias
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(ActionPrepare):
		return ActionPrepare, nil
	case string(ActionPrepareAndSend), actionPrepareSendAlias:
		return ActionPrepareAndSend, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidAction, name)
	}
}

// SendsOnPrepare reports whether Prepare also rolls the contract out
func (a Action) SendsOnPrepare() bool {
	return a == ActionPrepareAndSend
}

// NewStepState returns an idle step, with polling state where applicable
func NewStepState(id StepID) *StepState {
	res := &StepState{Status: StatusIdle}
	if id.HasPolling() {
		res.Polling = &PollingState{Logs: []ContractEvent{}}
	}
	return res
}

// Apply shallow-merges a patch into the step
func (s *StepState) Apply(p StepPatch) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Request != nil {
		s.Request = p.Request
	}
	if p.Response != nil {
		s.Response = p.Response
	}
	if p.Error != nil {
		s.Error = *p.Error
	}
	if p.Polling != nil {
		if s.Polling == nil {
			s.Polling = &PollingState{Logs: []ContractEvent{}}
		}
		s.Polling.Apply(*p.Polling)
	}
}

// Apply shallow-merges a patch into the polling state
func (s *PollingState) Apply(p PollingPatch) {
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.Logs != nil {
		s.Logs = slices.Clone(p.Logs)
	}
	if p.ClearLast {
		s.Last = nil
	}
	if p.Last != nil {
		last := *p.Last
		s.Last = &last
	}
}

// Clone returns a copy of the step that shares no mutable state
func (s *StepState) Clone() *StepState {
	res := *s
	if s.Polling != nil {
		p := *s.Polling
		p.Logs = slices.Clone(s.Polling.Logs)
		if s.Polling.Last != nil {
			last := *s.Polling.Last
			p.Last = &last
		}
		res.Polling = &p
	}
	return &res
}

// Ptr returns a pointer to v, for building patches
func Ptr[T any](v T) *T {
	return &v
}
