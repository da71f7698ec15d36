package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kode4food/signwiz/internal/client"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

// uploadResponse is recorded on the upload step while its status is polled
type uploadResponse struct {
	Status       int    `json:"status"`
	UploadStatus string `json:"uploadStatus,omitempty"`
}

// Run executes one step. Intro and done are navigation only. The returned
// error is also recorded on the step
func (w *Wizard) Run(ctx context.Context, id api.StepID) error {
	switch id {
	case api.StepIntro, api.StepDone:
		return nil
	case api.StepToken:
		return w.RunToken(ctx)
	case api.StepUploadURL:
		return w.RunUploadURL(ctx)
	case api.StepUpload:
		return w.RunUpload(ctx)
	case api.StepPrepare:
		return w.RunPrepare(ctx)
	case api.StepSend:
		return w.RunSend(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
}

// RunToken obtains an access token with the operator's client credentials
func (w *Wizard) RunToken(ctx context.Context) error {
	const id = api.StepToken
	st, err := w.begin(id)
	if err != nil {
		return err
	}

	req := client.BuildTokenRequest(w.endpoints, st)
	w.record(id, req)
	res, err := w.client.GetToken(ctx, req)
	if err != nil {
		return w.fail(id, err)
	}

	if err := w.SetField(api.FieldToken, res.AccessToken); err != nil {
		return w.fail(id, err)
	}
	w.respond(id, res)
	w.succeed(id)
	return nil
}

// RunUploadURL requests a presigned upload URL. The storage item id is the
// pre-set fileId or a newly generated one
func (w *Wizard) RunUploadURL(ctx context.Context) error {
	const id = api.StepUploadURL
	st, err := w.begin(id)
	if err != nil {
		return err
	}

	itemID := st.FileID
	if itemID == "" {
		itemID = uuid.NewString()
	}
	req := client.BuildUploadURLRequest(w.endpoints, st, itemID)
	w.record(id, req)
	res, err := w.client.GetUploadURL(ctx, req)
	if err != nil {
		return w.fail(id, err)
	}

	fileID := res.ItemID
	if fileID == "" {
		fileID = itemID
	}
	if err := w.SetField(api.FieldUploadURL, res.UploadURL); err != nil {
		return w.fail(id, err)
	}
	if err := w.SetField(api.FieldFileID, fileID); err != nil {
		return w.fail(id, err)
	}
	w.respond(id, res.Raw)
	w.succeed(id)
	return nil
}

// RunUpload puts the file bytes to the presigned URL and, when the profile
// has an upload status endpoint, waits for the storage service to accept
// the file
func (w *Wizard) RunUpload(ctx context.Context) error {
	const id = api.StepUpload
	st, err := w.begin(id)
	if err != nil {
		return err
	}

	req := client.BuildUploadRequest(st)
	w.record(id, req)
	res, err := w.client.UploadFile(ctx, req, st.File.Data)
	if err != nil {
		return w.fail(id, err)
	}
	w.respond(id, res)

	if w.endpoints.HasUploadStatus() && st.FileID != "" && st.Token != "" {
		if err := w.pollUpload(ctx, st, res.Status); err != nil {
			return w.fail(id, err)
		}
	}
	w.succeed(id)
	return nil
}

// RunPrepare creates the contract and polls its events until preparation
// (or, for prepare_and_send, rollout) settles
func (w *Wizard) RunPrepare(ctx context.Context) error {
	const id = api.StepPrepare
	st, err := w.begin(id)
	if err != nil {
		return err
	}

	req := client.BuildPrepareRequest(w.endpoints, st)
	w.record(id, req)
	res, err := w.client.PrepareContract(ctx, req)
	if err != nil {
		return w.fail(id, err)
	}

	if err := w.SetField(api.FieldDocumentID, res.DocumentID); err != nil {
		return w.fail(id, err)
	}
	w.respond(id, res.Raw)
	slog.Info("Contract prepared",
		log.DocumentID(res.DocumentID),
		slog.String("action", string(st.Action)))

	return w.pollEvents(ctx, id, st.Token, res.DocumentID,
		prepareTerminals(w.tags, st.Action),
	)
}

// RunSend rolls the prepared contract out and polls its events until the
// rollout settles
func (w *Wizard) RunSend(ctx context.Context) error {
	const id = api.StepSend
	st, err := w.begin(id)
	if err != nil {
		return err
	}

	pages := 0
	if st.File != nil {
		pages = st.File.Pages
	}
	stamps, text, post := w.layout.Place(st.RecipientEmails(), pages)
	req := client.BuildSendRequest(w.endpoints, st, stamps, text, post)
	w.record(id, req)
	res, err := w.client.SendContract(ctx, req)
	if err != nil {
		return w.fail(id, err)
	}
	w.respond(id, res.Raw)

	return w.pollEvents(ctx, id, st.Token, st.DocumentID,
		rolloutTerminals(w.tags),
	)
}

// begin marks the step running, clears its error and the events of any
// earlier poll, and checks its inputs
func (w *Wizard) begin(id api.StepID) (*api.WizardState, error) {
	slog.Info("Step started", log.StepID(id))
	p := api.StepPatch{
		Status: api.Ptr(api.StatusRunning),
		Error:  api.Ptr(""),
	}
	if id.HasPolling() {
		p.Polling = resetPolling()
	}
	_ = w.SetStep(id, p)
	st := w.Snapshot()
	if err := CheckRun(st, id); err != nil {
		return nil, w.fail(id, err)
	}
	return st, nil
}

func resetPolling() *api.PollingPatch {
	return &api.PollingPatch{
		Logs:      []api.ContractEvent{},
		ClearLast: true,
	}
}

func (w *Wizard) record(id api.StepID, req *api.HTTPRequest) {
	_ = w.SetStep(id, api.StepPatch{Request: client.Redact(req)})
}

func (w *Wizard) respond(id api.StepID, res any) {
	_ = w.SetStep(id, api.StepPatch{Response: res})
}

func (w *Wizard) succeed(id api.StepID) {
	slog.Info("Step succeeded", log.StepID(id))
	_ = w.SetStep(id, api.StepPatch{Status: api.Ptr(api.StatusSuccess)})
}

func (w *Wizard) fail(id api.StepID, err error) error {
	slog.Error("Step failed",
		log.StepID(id),
		log.Status(api.StatusError),
		log.Error(err))
	_ = w.SetStep(id, api.StepPatch{
		Status: api.Ptr(api.StatusError),
		Error:  api.Ptr(err.Error()),
	})
	return err
}

func (w *Wizard) pollEvents(
	ctx context.Context, id api.StepID, token, documentID string,
	t terminals,
) error {
	reset := resetPolling()
	reset.IsActive = api.Ptr(true)
	_ = w.SetStep(id, api.StepPatch{Polling: reset})

	req := client.BuildEventsRequest(w.endpoints, token, documentID)
	events, err := w.events.Start(ctx, string(id),
		func(batch []api.ContractEvent) {
			p := &api.PollingPatch{Logs: batch}
			if n := len(batch); n > 0 {
				p.Last = &batch[n-1]
			}
			_ = w.SetStep(id, api.StepPatch{Polling: p})
		},
		func(ctx context.Context) ([]api.ContractEvent, error) {
			return w.client.GetEvents(ctx, req)
		},
		t.done, w.interval,
	)

	_ = w.SetStep(id, api.StepPatch{Polling: &api.PollingPatch{
		IsActive: api.Ptr(false),
	}})
	if err != nil {
		return w.fail(id, err)
	}
	if err := t.failed(events); err != nil {
		return w.fail(id, err)
	}
	w.succeed(id)
	return nil
}

func (w *Wizard) pollUpload(
	ctx context.Context, st *api.WizardState, putStatus int,
) error {
	const id = api.StepUpload
	req := client.BuildUploadStatusRequest(w.endpoints, st.Token, st.FileID)
	res, err := w.uploads.Start(ctx, string(id),
		func(s *api.UploadStatus) {
			w.respond(id, &uploadResponse{
				Status:       putStatus,
				UploadStatus: s.Status,
			})
		},
		func(ctx context.Context) (*api.UploadStatus, error) {
			return w.client.GetUploadStatus(ctx, req)
		},
		isUploadSettled, w.interval,
	)
	if err != nil {
		return err
	}
	if isUploadFailed(res) {
		return fmt.Errorf("%w: %s", ErrUploadFailed, res.Status)
	}
	slog.Debug("Upload processed", log.FileID(st.FileID))
	return nil
}
