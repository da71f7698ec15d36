package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/signwiz/pkg/api"
)

func TestEndpointsURL(t *testing.T) {
	ep := &api.Endpoints{BaseURL: "https://host/"}
	assert.Equal(t, "https://host/a/b", ep.URL("/a/b"))
	assert.Equal(t, "https://host/a//b", ep.URL("a//b"))
}

func TestPrepareURL(t *testing.T) {
	ep := &api.Endpoints{
		BaseURL:                   "https://host",
		PrepareContractAPI:        "prepare",
		PrepareAndSendContractAPI: "prepare-send",
	}
	assert.Equal(t, "https://host/prepare", ep.PrepareURL(api.ActionPrepare))
	assert.Equal(t, "https://host/prepare-send",
		ep.PrepareURL(api.ActionPrepareAndSend),
	)
}

func TestEndpointsMerge(t *testing.T) {
	base := &api.Endpoints{BaseURL: "https://a", TokenAPI: "token"}
	res := base.Merge(&api.Endpoints{BaseURL: "https://b"})
	assert.Equal(t, "https://b", res.BaseURL)
	assert.Equal(t, "token", res.TokenAPI)
	assert.Equal(t, "https://a", base.BaseURL)

	assert.Equal(t, base, base.Merge(nil))
}

func TestEndpointsValidate(t *testing.T) {
	ep := &api.Endpoints{}
	assert.ErrorIs(t, ep.Validate(), api.ErrBaseURLEmpty)

	ep = &api.Endpoints{
		BaseURL:                   "https://a",
		TokenAPI:                  "t",
		GetUploadURLAPI:           "u",
		PrepareContractAPI:        "p",
		PrepareAndSendContractAPI: "ps",
		SendContractAPI:           "s",
	}
	assert.ErrorIs(t, ep.Validate(), api.ErrEndpointPathEmpty)

	ep.GetEventsAPI = "e"
	assert.NoError(t, ep.Validate())
	assert.False(t, ep.HasUploadStatus())
}

func TestEndpointsValidateNamesFirstMissing(t *testing.T) {
	ep := &api.Endpoints{
		BaseURL:            "https://a",
		PrepareContractAPI: "p",
		SendContractAPI:    "s",
	}
	for range 20 {
		err := ep.Validate()
		assert.ErrorIs(t, err, api.ErrEndpointPathEmpty)
		assert.EqualError(t, err, "endpoint path empty: tokenApi")
	}

	ep.TokenAPI = "t"
	ep.GetUploadURLAPI = "u"
	assert.EqualError(t, ep.Validate(),
		"endpoint path empty: prepareAndSendContractApi",
	)
}
