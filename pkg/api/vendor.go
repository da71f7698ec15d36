package api

import "encoding/json"

type (
	// HTTPRequest is the recorded shape of an outgoing collaborator call
	HTTPRequest struct {
		Headers map[string]string `json:"headers,omitempty"`
		Form    map[string]string `json:"form,omitempty"`
		Body    any               `json:"body,omitempty"`
		Method  string            `json:"method"`
		URL     string            `json:"url"`
	}

	// TokenResult is the identity service's token grant
	TokenResult struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type,omitempty"`
		ExpiresIn   int    `json:"expires_in,omitempty"`
	}

	// UploadURLRequest asks the storage service for a presigned upload URL
	UploadURLRequest struct {
		ItemID            string `json:"ItemId"`
		MetaData          string `json:"MetaData"`
		Name              string `json:"Name"`
		ParentDirectoryID string `json:"ParentDirectoryId"`
		Tags              string `json:"Tags"`
	}

	// UploadURLResult carries the presigned URL and the storage item id
	UploadURLResult struct {
		Raw       json.RawMessage `json:"-"`
		UploadURL string          `json:"uploadUrl"`
		ItemID    string          `json:"itemId"`
	}

	// UploadResult is the outcome of the raw PUT to the presigned URL
	UploadResult struct {
		Status int `json:"status"`
	}

	// UploadStatusRequest asks the storage service about an uploaded item,
	// addressed by the storage item id
	UploadStatusRequest struct {
		FileID string `json:"fileId"`
	}

	// UploadStatus is the storage service's view of an uploaded item
	UploadStatus struct {
		Raw    json.RawMessage `json:"-"`
		ItemID string          `json:"itemId,omitempty"`
		Status string          `json:"status"`
	}

	// Signatory is one recipient of a contract
	Signatory struct {
		Email string `json:"Email"`
	}

	// PrepareRequest creates a contract from an uploaded file
	PrepareRequest struct {
		Title          string      `json:"Title"`
		FileID         string      `json:"FileId"`
		SignatureClass string      `json:"SignatureClass"`
		Signatories    []Signatory `json:"Signatories"`
	}

	// PrepareResult carries the document id of a prepared contract
	PrepareResult struct {
		Raw        json.RawMessage `json:"-"`
		DocumentID string          `json:"documentId"`
	}

	// Placement positions one recipient's field on a page, in points
	Placement struct {
		Email      string  `json:"Email"`
		PageNumber int     `json:"PageNumber"`
		X          float64 `json:"X"`
		Y          float64 `json:"Y"`
		Width      float64 `json:"Width"`
		Height     float64 `json:"Height"`
	}

	// SendRequest rolls a prepared contract out to its signatories
	SendRequest struct {
		DocumentID string      `json:"DocumentId"`
		Stamps     []Placement `json:"Stamps"`
		TextFields []Placement `json:"TextFields"`
		PostInfo   []Placement `json:"PostInfo"`
	}

	// SendResult is the rollout acknowledgement
	SendResult struct {
		Raw json.RawMessage `json:"-"`
	}

	// EventsRequest asks for the current event list of a document
	EventsRequest struct {
		DocumentID string `json:"DocumentId"`
	}

	// ContractEvent is one entry of a document's event list. Status carries
	// the lifecycle tag
	ContractEvent struct {
		Raw        json.RawMessage `json:"raw,omitempty"`
		Status     string          `json:"status"`
		DocumentID string          `json:"documentId,omitempty"`
		CreatedAt  string          `json:"createdAt,omitempty"`
	}

	// TerminalTags is the vocabulary of event tags that end a poll
	TerminalTags struct {
		PreparationSuccess string `json:"preparationSuccess"`
		PreparationFailed  string `json:"preparationFailed"`
		RolloutSuccess     string `json:"rolloutSuccess"`
		RolloutFailed      string `json:"rolloutFailed"`
	}
)

const (
	TagPreparationSuccess = "preparation_success"
	TagPreparationFailed  = "preperation_failed"
	TagRolloutSuccess     = "rollout_success"
	TagRolloutFailed      = "rollout_failed"
)

// DefaultTerminalTags returns the vendor's event vocabulary
func DefaultTerminalTags() TerminalTags {
	return TerminalTags{
		PreparationSuccess: TagPreparationSuccess,
		PreparationFailed:  TagPreparationFailed,
		RolloutSuccess:     TagRolloutSuccess,
		RolloutFailed:      TagRolloutFailed,
	}
}

// Statuses returns the Status of every event, in order
func Statuses(events []ContractEvent) []string {
	res := make([]string, 0, len(events))
	for _, ev := range events {
		res = append(res, ev.Status)
	}
	return res
}
