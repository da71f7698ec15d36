package wizard

import (
	"strings"

	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/util"
)

// terminals classifies polled event tags. Tags are matched verbatim
type terminals struct {
	success util.Set[string]
	failure map[string]error
}

var (
	uploadDone   = util.SetOf("uploaded", "completed", "complete", "success")
	uploadFailed = util.SetOf("failed", "error", "rejected")
)

func prepareTerminals(tags api.TerminalTags, a api.Action) terminals {
	if a.SendsOnPrepare() {
		return terminals{
			success: util.SetOf(tags.RolloutSuccess),
			failure: map[string]error{
				tags.PreparationFailed: ErrPreparationFailed,
				tags.RolloutFailed:     ErrRolloutFailed,
			},
		}
	}
	return terminals{
		success: util.SetOf(tags.PreparationSuccess),
		failure: map[string]error{
			tags.PreparationFailed: ErrPreparationFailed,
		},
	}
}

func rolloutTerminals(tags api.TerminalTags) terminals {
	return terminals{
		success: util.SetOf(tags.RolloutSuccess),
		failure: map[string]error{
			tags.RolloutFailed: ErrRolloutFailed,
		},
	}
}

func (t terminals) done(events []api.ContractEvent) bool {
	for _, ev := range events {
		if t.success.Contains(ev.Status) {
			return true
		}
		if _, ok := t.failure[ev.Status]; ok {
			return true
		}
	}
	return false
}

// failed returns the error for the first failure tag observed, if any
func (t terminals) failed(events []api.ContractEvent) error {
	for _, ev := range events {
		if err, ok := t.failure[ev.Status]; ok {
			return err
		}
	}
	return nil
}

func isUploadSettled(s *api.UploadStatus) bool {
	if s == nil {
		return false
	}
	status := strings.ToLower(s.Status)
	return uploadDone.Contains(status) || uploadFailed.Contains(status)
}

func isUploadFailed(s *api.UploadStatus) bool {
	return s != nil && uploadFailed.Contains(strings.ToLower(s.Status))
}
