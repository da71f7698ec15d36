package api

import (
	"errors"
	"fmt"
	"strings"
)

// Endpoints is one environment profile: a base URL plus the relative path
// of every collaborator
type Endpoints struct {
	BaseURL                   string `json:"baseUrl" mapstructure:"baseUrl"`
	TokenAPI                  string `json:"tokenApi" mapstructure:"tokenApi"`
	GetUploadURLAPI           string `json:"getUploadUrlApi" mapstructure:"getUploadUrlApi"`
	PollUploadStatusAPI       string `json:"pollUploadStatusApi" mapstructure:"pollUploadStatusApi"`
	PrepareContractAPI        string `json:"prepareContractApi" mapstructure:"prepareContractApi"`
	PrepareAndSendContractAPI string `json:"prepareAndSendContractApi" mapstructure:"prepareAndSendContractApi"`
	SendContractAPI           string `json:"sendContractApi" mapstructure:"sendContractApi"`
	GetEventsAPI              string `json:"getEventsApi" mapstructure:"getEventsApi"`
}

var (
	ErrBaseURLEmpty      = errors.New("endpoint base URL empty")
	ErrEndpointPathEmpty = errors.New("endpoint path empty")
)

// URL joins a relative collaborator path onto the base URL
func (e *Endpoints) URL(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// PrepareURL selects the prepare or prepare-and-send endpoint
func (e *Endpoints) PrepareURL(a Action) string {
	if a.SendsOnPrepare() {
		return e.URL(e.PrepareAndSendContractAPI)
	}
	return e.URL(e.PrepareContractAPI)
}

// HasUploadStatus reports whether the profile can poll upload status
func (e *Endpoints) HasUploadStatus() bool {
	return e.PollUploadStatusAPI != ""
}

// Merge returns a copy of e where every non-empty field of o wins
func (e *Endpoints) Merge(o *Endpoints) *Endpoints {
	res := *e
	if o == nil {
		return &res
	}
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&res.BaseURL, o.BaseURL)
	pick(&res.TokenAPI, o.TokenAPI)
	pick(&res.GetUploadURLAPI, o.GetUploadURLAPI)
	pick(&res.PollUploadStatusAPI, o.PollUploadStatusAPI)
	pick(&res.PrepareContractAPI, o.PrepareContractAPI)
	pick(&res.PrepareAndSendContractAPI, o.PrepareAndSendContractAPI)
	pick(&res.SendContractAPI, o.SendContractAPI)
	pick(&res.GetEventsAPI, o.GetEventsAPI)
	return &res
}

// Validate checks that every required collaborator path is present
func (e *Endpoints) Validate() error {
	if e.BaseURL == "" {
		return ErrBaseURLEmpty
	}
	required := []struct {
		name string
		path string
	}{
		{"tokenApi", e.TokenAPI},
		{"getUploadUrlApi", e.GetUploadURLAPI},
		{"prepareContractApi", e.PrepareContractAPI},
		{"prepareAndSendContractApi", e.PrepareAndSendContractAPI},
		{"sendContractApi", e.SendContractAPI},
		{"getEventsApi", e.GetEventsAPI},
	}
	for _, r := range required {
		if r.path == "" {
			return fmt.Errorf("%w: %s", ErrEndpointPathEmpty, r.name)
		}
	}
	return nil
}
