package wizard

import "github.com/kode4food/signwiz/pkg/api"

type requirement struct {
	met  func(*api.WizardState) bool
	name string
}

var (
	needClientID = requirement{
		name: "clientId",
		met:  func(s *api.WizardState) bool { return s.ClientID != "" },
	}
	needClientSecret = requirement{
		name: "clientSecret",
		met:  func(s *api.WizardState) bool { return s.ClientSecret != "" },
	}
	needToken = requirement{
		name: "token",
		met:  func(s *api.WizardState) bool { return s.Token != "" },
	}
	needFile = requirement{
		name: "file",
		met:  func(s *api.WizardState) bool { return s.File != nil },
	}
	needFileData = requirement{
		name: "file",
		met: func(s *api.WizardState) bool {
			return s.File != nil && len(s.File.Data) > 0
		},
	}
	needUploadURL = requirement{
		name: "uploadUrl",
		met:  func(s *api.WizardState) bool { return s.UploadURL != "" },
	}
	needFileID = requirement{
		name: "fileId",
		met:  func(s *api.WizardState) bool { return s.FileID != "" },
	}
	needUploaded = requirement{
		name: "upload",
		met: func(s *api.WizardState) bool {
			return s.Step(api.StepUpload).Status == api.StatusSuccess
		},
	}
	needDocumentID = requirement{
		name: "documentId",
		met:  func(s *api.WizardState) bool { return s.DocumentID != "" },
	}
	needEmails = requirement{
		name: "emails",
		met: func(s *api.WizardState) bool {
			return len(s.RecipientEmails()) > 0
		},
	}
)

// runRequirements are checked before a step's collaborator call
var runRequirements = map[api.StepID][]requirement{
	api.StepToken:     {needClientID, needClientSecret},
	api.StepUploadURL: {needToken, needFile},
	api.StepUpload:    {needUploadURL, needFileData},
	api.StepPrepare:   {needToken, needFileID, needEmails},
	api.StepSend:      {needToken, needDocumentID, needEmails},
}

// navRequirements are checked by GoTo under strict navigation: the outputs
// of earlier steps that the target page builds on
var navRequirements = map[api.StepID][]requirement{
	api.StepUploadURL: {needToken},
	api.StepUpload:    {needToken, needUploadURL},
	api.StepPrepare:   {needToken, needFileID, needUploaded},
	api.StepSend:      {needToken, needDocumentID},
}

// CheckRun reports the inputs missing for running a step
func CheckRun(st *api.WizardState, id api.StepID) error {
	return check(st, id, runRequirements[id])
}

// CheckNavigation reports the earlier outputs missing for entering a step
func CheckNavigation(st *api.WizardState, id api.StepID) error {
	return check(st, id, navRequirements[id])
}

func check(st *api.WizardState, id api.StepID, reqs []requirement) error {
	var missing []string
	for _, r := range reqs {
		if !r.met(st) {
			missing = append(missing, r.name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &PreconditionError{Step: id, Missing: missing}
}
