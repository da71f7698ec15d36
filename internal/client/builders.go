package client

import (
	"maps"
	"net/http"

	"github.com/kode4food/signwiz/pkg/api"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderOrigin        = "Origin"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	GrantClientCredentials = "client_credentials"
	DefaultContentType     = "application/pdf"

	redactedValue = "********"
)

// BuildTokenRequest builds the client-credentials grant for the identity
// service
func BuildTokenRequest(
	ep *api.Endpoints, st *api.WizardState,
) *api.HTTPRequest {
	return &api.HTTPRequest{
		Method: http.MethodPost,
		URL:    ep.URL(ep.TokenAPI),
		Headers: map[string]string{
			HeaderContentType: ContentTypeForm,
			HeaderOrigin:      ep.BaseURL,
		},
		Form: map[string]string{
			"grant_type":    GrantClientCredentials,
			"client_id":     st.ClientID,
			"client_secret": st.ClientSecret,
		},
	}
}

// BuildUploadURLRequest asks for a presigned URL for the selected file,
// stored under itemID
func BuildUploadURLRequest(
	ep *api.Endpoints, st *api.WizardState, itemID string,
) *api.HTTPRequest {
	return jsonRequest(ep.URL(ep.GetUploadURLAPI), st.Token,
		&api.UploadURLRequest{
			ItemID:            itemID,
			MetaData:          "{}",
			Name:              fileName(st),
			ParentDirectoryID: "",
			Tags:              `["File"]`,
		},
	)
}

// BuildUploadRequest describes the raw PUT of the file bytes to the
// presigned URL. The recorded body carries file metadata, not the bytes
func BuildUploadRequest(st *api.WizardState) *api.HTTPRequest {
	contentType := DefaultContentType
	var size int64
	if st.File != nil {
		if st.File.ContentType != "" {
			contentType = st.File.ContentType
		}
		size = int64(len(st.File.Data))
	}
	return &api.HTTPRequest{
		Method: http.MethodPut,
		URL:    st.UploadURL,
		Headers: map[string]string{
			HeaderContentType: contentType,
		},
		Body: map[string]any{
			"name":        fileName(st),
			"size":        size,
			"contentType": contentType,
		},
	}
}

// BuildUploadStatusRequest asks the storage service about an uploaded item
func BuildUploadStatusRequest(
	ep *api.Endpoints, token, itemID string,
) *api.HTTPRequest {
	return jsonRequest(ep.URL(ep.PollUploadStatusAPI), token,
		&api.UploadStatusRequest{FileID: itemID},
	)
}

// BuildPrepareRequest creates the contract, selecting the prepare or
// prepare-and-send endpoint from the state's action
func BuildPrepareRequest(
	ep *api.Endpoints, st *api.WizardState,
) *api.HTTPRequest {
	emails := st.RecipientEmails()
	signatories := make([]api.Signatory, 0, len(emails))
	for _, e := range emails {
		signatories = append(signatories, api.Signatory{Email: e})
	}
	return jsonRequest(ep.PrepareURL(st.Action), st.Token,
		&api.PrepareRequest{
			Title:          st.DocumentTitle(),
			FileID:         st.FileID,
			Signatories:    signatories,
			SignatureClass: st.SignatureClass,
		},
	)
}

// BuildSendRequest rolls the prepared document out with one set of
// placements per recipient
func BuildSendRequest(
	ep *api.Endpoints, st *api.WizardState, stamps, text, post []api.Placement,
) *api.HTTPRequest {
	return jsonRequest(ep.URL(ep.SendContractAPI), st.Token,
		&api.SendRequest{
			DocumentID: st.DocumentID,
			Stamps:     nonNil(stamps),
			TextFields: nonNil(text),
			PostInfo:   nonNil(post),
		},
	)
}

// BuildEventsRequest fetches the current event list of a document
func BuildEventsRequest(
	ep *api.Endpoints, token, documentID string,
) *api.HTTPRequest {
	return jsonRequest(ep.URL(ep.GetEventsAPI), token,
		&api.EventsRequest{DocumentID: documentID},
	)
}

// Redact returns a copy of the request that is safe to keep in wizard
// state: credentials and bearer tokens are masked
func Redact(req *api.HTTPRequest) *api.HTTPRequest {
	res := *req
	res.Headers = maps.Clone(req.Headers)
	res.Form = maps.Clone(req.Form)
	if _, ok := res.Headers[HeaderAuthorization]; ok {
		res.Headers[HeaderAuthorization] = "bearer " + redactedValue
	}
	if v, ok := res.Form["client_secret"]; ok && v != "" {
		res.Form["client_secret"] = redactedValue
	}
	return &res
}

func jsonRequest(url, token string, body any) *api.HTTPRequest {
	return &api.HTTPRequest{
		Method: http.MethodPost,
		URL:    url,
		Headers: map[string]string{
			HeaderContentType:   ContentTypeJSON,
			HeaderAccept:        ContentTypeJSON,
			HeaderAuthorization: "bearer " + token,
		},
		Body: body,
	}
}

func fileName(st *api.WizardState) string {
	if st.FileName != "" {
		return st.FileName
	}
	if st.File != nil {
		return st.File.Name
	}
	return ""
}

func nonNil(p []api.Placement) []api.Placement {
	if p == nil {
		return []api.Placement{}
	}
	return p
}
