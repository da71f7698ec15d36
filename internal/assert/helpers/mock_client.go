package helpers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kode4food/signwiz/internal/client"
	"github.com/kode4food/signwiz/pkg/api"
)

// Op names a collaborator call on the MockClient
type Op string

// MockClient is a scriptable implementation of client.Client for testing
type MockClient struct {
	token        *api.TokenResult
	uploadURL    *api.UploadURLResult
	upload       *api.UploadResult
	prepare      *api.PrepareResult
	send         *api.SendResult
	uploadStatus []*api.UploadStatus
	events       [][]api.ContractEvent
	errors       map[Op]error
	requests     map[Op][]*api.HTTPRequest
	calls        []Op
	mu           sync.Mutex
}

const (
	OpToken        Op = "token"
	OpUploadURL    Op = "uploadUrl"
	OpUpload       Op = "upload"
	OpUploadStatus Op = "uploadStatus"
	OpPrepare      Op = "prepare"
	OpSend         Op = "send"
	OpEvents       Op = "events"
)

var _ client.Client = (*MockClient)(nil)

// NewMockClient creates a mock whose every call succeeds and whose events
// carry both the preparation and rollout success tags
func NewMockClient() *MockClient {
	return &MockClient{
		token:     &api.TokenResult{AccessToken: "tok-1"},
		uploadURL: &api.UploadURLResult{
			UploadURL: "https://blob.test/put/item",
			Raw:       json.RawMessage(`{"UploadUrl":"https://blob.test/put/item"}`),
		},
		upload: &api.UploadResult{Status: 200},
		prepare: &api.PrepareResult{
			DocumentID: "doc-1",
			Raw:        json.RawMessage(`{"Result":{"DocumentId":"doc-1"}}`),
		},
		send: &api.SendResult{Raw: json.RawMessage(`{"IsSuccess":true}`)},
		uploadStatus: []*api.UploadStatus{
			{Status: "Uploaded"},
		},
		events: [][]api.ContractEvent{{
			{Status: api.TagPreparationSuccess},
			{Status: api.TagRolloutSuccess},
		}},
		errors:   map[Op]error{},
		requests: map[Op][]*api.HTTPRequest{},
	}
}

// SetEvents scripts successive GetEvents results; the last one repeats
func (c *MockClient) SetEvents(batches ...[]api.ContractEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = batches
}

// SetUploadStatus scripts successive GetUploadStatus results; the last one
// repeats
func (c *MockClient) SetUploadStatus(statuses ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadStatus = nil
	for _, s := range statuses {
		c.uploadStatus = append(c.uploadStatus, &api.UploadStatus{Status: s})
	}
}

// SetUploadURL configures the presigned URL and echoed item id
func (c *MockClient) SetUploadURL(url, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadURL = &api.UploadURLResult{
		UploadURL: url, ItemID: itemID, Raw: json.RawMessage(`{}`),
	}
}

// SetError makes a collaborator call fail
func (c *MockClient) SetError(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[op] = err
}

// Calls returns the collaborator calls made, in order
func (c *MockClient) Calls() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.calls...)
}

// CallCount returns how often a collaborator was called
func (c *MockClient) CallCount(op Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests[op])
}

// LastRequest returns the most recent request for a collaborator
func (c *MockClient) LastRequest(op Op) *api.HTTPRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	reqs := c.requests[op]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func (c *MockClient) GetToken(
	_ context.Context, req *api.HTTPRequest,
) (*api.TokenResult, error) {
	return invoke(c, OpToken, req, func() *api.TokenResult { return c.token })
}

func (c *MockClient) GetUploadURL(
	_ context.Context, req *api.HTTPRequest,
) (*api.UploadURLResult, error) {
	return invoke(c, OpUploadURL, req, func() *api.UploadURLResult {
		return c.uploadURL
	})
}

func (c *MockClient) UploadFile(
	_ context.Context, req *api.HTTPRequest, _ []byte,
) (*api.UploadResult, error) {
	return invoke(c, OpUpload, req, func() *api.UploadResult {
		return c.upload
	})
}

func (c *MockClient) GetUploadStatus(
	_ context.Context, req *api.HTTPRequest,
) (*api.UploadStatus, error) {
	return invoke(c, OpUploadStatus, req, func() *api.UploadStatus {
		idx := min(len(c.requests[OpUploadStatus])-1, len(c.uploadStatus)-1)
		return c.uploadStatus[idx]
	})
}

func (c *MockClient) PrepareContract(
	_ context.Context, req *api.HTTPRequest,
) (*api.PrepareResult, error) {
	return invoke(c, OpPrepare, req, func() *api.PrepareResult {
		return c.prepare
	})
}

func (c *MockClient) SendContract(
	_ context.Context, req *api.HTTPRequest,
) (*api.SendResult, error) {
	return invoke(c, OpSend, req, func() *api.SendResult { return c.send })
}

func (c *MockClient) GetEvents(
	_ context.Context, req *api.HTTPRequest,
) ([]api.ContractEvent, error) {
	return invoke(c, OpEvents, req, func() []api.ContractEvent {
		idx := min(len(c.requests[OpEvents])-1, len(c.events)-1)
		return append([]api.ContractEvent{}, c.events[idx]...)
	})
}

func invoke[T any](
	c *MockClient, op Op, req *api.HTTPRequest, result func() T,
) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
	c.requests[op] = append(c.requests[op], req)
	if err, ok := c.errors[op]; ok {
		var zero T
		return zero, err
	}
	return result(), nil
}
