package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/signwiz/pkg/api"
)

// Vendor responses are duck-typed: the same value can arrive under
// several keys depending on the service version. Each list below is the
// lookup precedence, first present wins
var (
	tokenPaths        = []string{"access_token", "accessToken", "token"}
	uploadURLPaths    = []string{"UploadUrl", "uploadUrl", "Result.UploadUrl", "url"}
	itemIDPaths       = []string{"ItemId", "itemId", "Result.ItemId"}
	documentIDPaths   = []string{"Result.DocumentId", "documentId", "DocumentId"}
	eventListPaths    = []string{"Result", "Events", "Result.Events"}
	eventStatusPaths  = []string{"Status", "status", "Tag", "EventName"}
	eventDocPaths     = []string{"DocumentId", "documentId"}
	eventCreatedPaths = []string{"CreatedAt", "CreateDate", "createdAt"}
	uploadStatusPaths = []string{"UploadStatus", "Status", "Result.Status"}
	rejectedPaths     = []string{"IsSuccess", "isSuccess", "Success"}
	errorsPaths       = []string{"Errors", "errors", "Message", "message"}
)

// DecodeToken extracts the access token from an identity response
func DecodeToken(body []byte) (*api.TokenResult, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	token := firstString(root, tokenPaths...)
	if token == "" {
		return nil, ErrMissingToken
	}
	return &api.TokenResult{
		AccessToken: token,
		TokenType:   root.Get("token_type").String(),
		ExpiresIn:   int(root.Get("expires_in").Int()),
	}, nil
}

// DecodeUploadURL extracts the presigned URL and item id
func DecodeUploadURL(body []byte) (*api.UploadURLResult, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	if err := checkRejected(root); err != nil {
		return nil, err
	}
	url := firstString(root, uploadURLPaths...)
	if url == "" {
		return nil, ErrMissingUploadURL
	}
	return &api.UploadURLResult{
		UploadURL: url,
		ItemID:    firstString(root, itemIDPaths...),
		Raw:       json.RawMessage(body),
	}, nil
}

// DecodeUploadStatus extracts the storage service's status for an item
func DecodeUploadStatus(body []byte) (*api.UploadStatus, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	return &api.UploadStatus{
		ItemID: firstString(root, itemIDPaths...),
		Status: firstString(root, uploadStatusPaths...),
		Raw:    json.RawMessage(body),
	}, nil
}

// DecodePrepare extracts the document id of a prepared contract
func DecodePrepare(body []byte) (*api.PrepareResult, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	if err := checkRejected(root); err != nil {
		return nil, err
	}
	id := firstString(root, documentIDPaths...)
	if id == "" {
		return nil, ErrMissingDocumentID
	}
	return &api.PrepareResult{
		DocumentID: id,
		Raw:        json.RawMessage(body),
	}, nil
}

// DecodeSend checks a rollout acknowledgement
func DecodeSend(body []byte) (*api.SendResult, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return &api.SendResult{Raw: json.RawMessage("{}")}, nil
	}
	root, err := parse(body)
	if err != nil {
		return nil, err
	}
	if err := checkRejected(root); err != nil {
		return nil, err
	}
	return &api.SendResult{Raw: json.RawMessage(body)}, nil
}

// DecodeEvents extracts a document's event list from a bare array or from
// the first of Result, Events or Result.Events that holds one
func DecodeEvents(body []byte) ([]api.ContractEvent, error) {
	root, err := parse(body)
	if err != nil {
		return nil, err
	}

	list := root
	if !root.IsArray() {
		list = gjson.Result{}
		for _, p := range eventListPaths {
			if v := root.Get(p); v.IsArray() {
				list = v
				break
			}
		}
	}

	res := []api.ContractEvent{}
	list.ForEach(func(_, item gjson.Result) bool {
		res = append(res, decodeEvent(item))
		return true
	})
	return res, nil
}

func decodeEvent(item gjson.Result) api.ContractEvent {
	if item.Type == gjson.String {
		return api.ContractEvent{
			Status: item.String(),
			Raw:    json.RawMessage(item.Raw),
		}
	}
	return api.ContractEvent{
		Status:     firstString(item, eventStatusPaths...),
		DocumentID: firstString(item, eventDocPaths...),
		CreatedAt:  firstString(item, eventCreatedPaths...),
		Raw:        json.RawMessage(item.Raw),
	}
}

func parse(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: %.120s", ErrInvalidResponse,
			string(body))
	}
	return gjson.ParseBytes(body), nil
}

func checkRejected(root gjson.Result) error {
	for _, p := range rejectedPaths {
		v := root.Get(p)
		if !v.Exists() {
			continue
		}
		if v.Type == gjson.False {
			return fmt.Errorf("%w: %s", ErrRequestRejected,
				firstRaw(root, errorsPaths...))
		}
		return nil
	}
	return nil
}

func firstString(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := root.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func firstRaw(root gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := root.Get(p); v.Exists() {
			return v.Raw
		}
	}
	return "no details"
}
