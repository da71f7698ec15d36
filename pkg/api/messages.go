package api

import "time"

type (
	// FieldRequest carries the new value for PUT /wizard/field/:field
	FieldRequest struct {
		Value any `json:"value"`
	}

	// FileRequest selects a file through the file source
	FileRequest struct {
		Ref string `json:"ref"`
	}

	// RunAcceptedResponse is returned when a run starts in the background
	RunAcceptedResponse struct {
		Message string `json:"message"`
		Step    StepID `json:"step,omitempty"`
	}

	// Settings are the operator preferences that survive restarts. Secrets
	// and tokens are never part of them
	Settings struct {
		Environment      string `json:"environment"`
		ClientID         string `json:"clientId"`
		Emails           string `json:"emails"`
		Action           Action `json:"action"`
		AutoDelayMs      int    `json:"autoDelayMs"`
		EnableAutomation bool   `json:"enableAutomation"`
	}

	// RunSummary records the outcome of one run-all pass
	RunSummary struct {
		StartedAt   time.Time             `json:"started_at"`
		CompletedAt time.Time             `json:"completed_at"`
		Steps       map[StepID]StepStatus `json:"steps"`
		Errors      map[StepID]string     `json:"errors,omitempty"`
		ID          string                `json:"id"`
		Environment string                `json:"environment"`
		Action      Action                `json:"action"`
		FileID      string                `json:"file_id,omitempty"`
		DocumentID  string                `json:"document_id,omitempty"`
		Error       string                `json:"error,omitempty"`
	}

	// HistoryResponse contains the most recent run summaries
	HistoryResponse struct {
		Runs  []*RunSummary `json:"runs"`
		Count int           `json:"count"`
	}

	// SnapshotMessage is sent to websocket clients after every mutation
	SnapshotMessage struct {
		State     *WizardState `json:"state"`
		Type      string       `json:"type"`
		Timestamp int64        `json:"timestamp"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)

// Succeeded reports whether every step of the run ended without error
func (r *RunSummary) Succeeded() bool {
	return r.Error == "" && len(r.Errors) == 0
}
