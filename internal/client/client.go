package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kode4food/signwiz"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

type (
	// Client performs the vendor collaborator calls. Every method executes
	// a request produced by one of the Build functions
	Client interface {
		GetToken(context.Context, *api.HTTPRequest) (*api.TokenResult, error)
		GetUploadURL(
			context.Context, *api.HTTPRequest,
		) (*api.UploadURLResult, error)
		UploadFile(
			context.Context, *api.HTTPRequest, []byte,
		) (*api.UploadResult, error)
		GetUploadStatus(
			context.Context, *api.HTTPRequest,
		) (*api.UploadStatus, error)
		PrepareContract(
			context.Context, *api.HTTPRequest,
		) (*api.PrepareResult, error)
		SendContract(context.Context, *api.HTTPRequest) (*api.SendResult, error)
		GetEvents(context.Context, *api.HTTPRequest) ([]api.ContractEvent, error)
	}

	// HTTPClient is the net/http implementation of Client
	HTTPClient struct {
		httpClient *http.Client
		now        func() time.Time
	}
)

// CacheBusterParam is appended to every vendor API request
const CacheBusterParam = "cachebuster"

const maxErrorBody = 512

var (
	ErrHTTPStatus        = errors.New("vendor returned HTTP error")
	ErrInvalidResponse   = errors.New("vendor returned invalid JSON")
	ErrRequestRejected   = errors.New("vendor rejected request")
	ErrMissingToken      = errors.New("token response has no access token")
	ErrMissingUploadURL  = errors.New("upload response has no upload URL")
	ErrMissingDocumentID = errors.New("prepare response has no document id")
)

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a Client. A zero timeout imposes no deadline
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// WithClock returns a copy of the client that stamps cache busters using
// the provided clock
func (c *HTTPClient) WithClock(now func() time.Time) *HTTPClient {
	res := *c
	res.now = now
	return &res
}

func (c *HTTPClient) GetToken(
	ctx context.Context, req *api.HTTPRequest,
) (*api.TokenResult, error) {
	body, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeToken(body)
}

func (c *HTTPClient) GetUploadURL(
	ctx context.Context, req *api.HTTPRequest,
) (*api.UploadURLResult, error) {
	body, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeUploadURL(body)
}

func (c *HTTPClient) UploadFile(
	ctx context.Context, req *api.HTTPRequest, data []byte,
) (*api.UploadResult, error) {
	status, _, err := c.send(ctx, req, req.URL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &api.UploadResult{Status: status}, nil
}

func (c *HTTPClient) GetUploadStatus(
	ctx context.Context, req *api.HTTPRequest,
) (*api.UploadStatus, error) {
	body, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeUploadStatus(body)
}

func (c *HTTPClient) PrepareContract(
	ctx context.Context, req *api.HTTPRequest,
) (*api.PrepareResult, error) {
	body, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodePrepare(body)
}

func (c *HTTPClient) SendContract(
	ctx context.Context, req *api.HTTPRequest,
) (*api.SendResult, error) {
	body, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeSend(body)
}

func (c *HTTPClient) GetEvents(
	ctx context.Context, req *api.HTTPRequest,
) ([]api.ContractEvent, error) {
	body, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeEvents(body)
}

// call sends a vendor API request with its form or JSON body and a cache
// buster, returning the response body
func (c *HTTPClient) call(
	ctx context.Context, req *api.HTTPRequest,
) ([]byte, error) {
	target, err := c.bust(req.URL)
	if err != nil {
		return nil, err
	}
	payload, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	_, body, err := c.send(ctx, req, target, payload)
	return body, err
}

func (c *HTTPClient) send(
	ctx context.Context, req *api.HTTPRequest, target string, body io.Reader,
) (int, []byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		slog.Error("Failed to create HTTP request",
			log.URL(req.URL),
			log.Error(err))
		return 0, nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("User-Agent", signwiz.Name+"/"+signwiz.Version)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)
	if err != nil {
		slog.Error("HTTP request failed",
			log.URL(req.URL),
			slog.Duration("duration", dur),
			log.Error(err))
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Failed to read response body",
			log.URL(req.URL),
			log.Error(err))
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("HTTP error",
			log.URL(req.URL),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", truncate(respBody)))
		return resp.StatusCode, respBody, &StatusError{
			Status: resp.StatusCode,
			Body:   truncate(respBody),
		}
	}

	slog.Debug("HTTP request completed",
		log.URL(req.URL),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", dur))
	return resp.StatusCode, respBody, nil
}

func (c *HTTPClient) bust(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(CacheBusterParam, strconv.FormatInt(c.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeBody(req *api.HTTPRequest) (io.Reader, error) {
	if req.Form != nil {
		form := url.Values{}
		for k, v := range req.Form {
			form.Set(k, v)
		}
		return bytes.NewBufferString(form.Encode()), nil
	}
	if req.Body == nil {
		return nil, nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
