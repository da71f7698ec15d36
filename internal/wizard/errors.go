package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/signwiz/pkg/api"
)

// PreconditionError reports inputs a step needs but the state lacks
type PreconditionError struct {
	Step    api.StepID
	Missing []string
}

var (
	ErrPrecondition      = errors.New("missing precondition")
	ErrPreparationFailed = errors.New("contract preparation failed")
	ErrRolloutFailed     = errors.New("contract rollout failed")
	ErrUploadFailed      = errors.New("file upload was not processed")
	ErrAutoRunActive     = errors.New("run-all already in progress")
	ErrUnknownField      = errors.New("unknown field")
	ErrFieldType         = errors.New("wrong value type for field")
	ErrUnknownStep       = errors.New("unknown step")
	ErrNoFileSource      = errors.New("no file source configured")
	ErrEndpointsRequired = errors.New("endpoints required")
)

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s for %s: %s",
		ErrPrecondition, e.Step, strings.Join(e.Missing, ", "))
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
