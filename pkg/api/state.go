package api

import "strings"

type (
	// WizardState is the single aggregate edited by the wizard
	WizardState struct {
		Steps          map[StepID]*StepState `json:"steps"`
		File           *SelectedFile         `json:"file,omitempty"`
		Current        StepID                `json:"current"`
		Environment    string                `json:"environment"`
		ClientID       string                `json:"clientId"`
		ClientSecret   string                `json:"-"`
		FileName       string                `json:"fileName"`
		Token          string                `json:"token,omitempty"`
		UploadURL      string                `json:"uploadUrl,omitempty"`
		FileID         string                `json:"fileId,omitempty"`
		DocumentID     string                `json:"documentId,omitempty"`
		Emails         string                `json:"emails"`
		Title          string                `json:"title,omitempty"`
		SignatureClass string                `json:"signatureClass,omitempty"`
		Action         Action                `json:"action"`
		AutoDelayMs    int                   `json:"autoDelayMs"`
		Version        uint64                `json:"version"`
		AutoRun        bool                  `json:"autoRun"`
	}

	// SelectedFile is the document chosen for upload. Data is never
	// serialized
	SelectedFile struct {
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
		Data        []byte `json:"-"`
		Size        int64  `json:"size"`
		Pages       int    `json:"pages"`
	}
)

// NewWizardState returns a state positioned on the intro page with every
// step idle
func NewWizardState() *WizardState {
	steps := make(map[StepID]*StepState, len(StepOrder))
	for _, id := range StepOrder {
		steps[id] = NewStepState(id)
	}
	return &WizardState{
		Current: StepIntro,
		Action:  ActionPrepare,
		Steps:   steps,
	}
}

// Clone returns a deep copy of the state. File bytes are shared, since they
// are never mutated after selection
func (s *WizardState) Clone() *WizardState {
	res := *s
	res.Steps = make(map[StepID]*StepState, len(s.Steps))
	for id, st := range s.Steps {
		res.Steps[id] = st.Clone()
	}
	if s.File != nil {
		f := *s.File
		res.File = &f
	}
	return &res
}

// Step returns the state of a step, treating a missing entry as idle
func (s *WizardState) Step(id StepID) *StepState {
	if st, ok := s.Steps[id]; ok {
		return st
	}
	return NewStepState(id)
}

// Statuses returns the status of every step
func (s *WizardState) Statuses() map[StepID]StepStatus {
	res := make(map[StepID]StepStatus, len(s.Steps))
	for id, st := range s.Steps {
		res[id] = st.Status
	}
	return res
}

// Errors returns the error text of every failed step
func (s *WizardState) Errors() map[StepID]string {
	res := map[StepID]string{}
	for id, st := range s.Steps {
		if st.Error != "" {
			res[id] = st.Error
		}
	}
	return res
}

// RecipientEmails splits the comma-separated email list, dropping blanks
func (s *WizardState) RecipientEmails() []string {
	var res []string
	for _, e := range strings.Split(s.Emails, ",") {
		if e = strings.TrimSpace(e); e != "" {
			res = append(res, e)
		}
	}
	return res
}

// DocumentTitle returns the configured title, falling back to the file name
func (s *WizardState) DocumentTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.FileName != "" {
		return s.FileName
	}
	if s.File != nil {
		return s.File.Name
	}
	return ""
}
