// Package httpclient defines the vault core's HTTP transport contract (§6)
// and a production implementation backed by net/http, grounded on the
// teacher's request/response shaping in internal/http/handlers.go.
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Method is an HTTP method name.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPut    Method = http.MethodPut
	MethodPost   Method = http.MethodPost
	MethodDelete Method = http.MethodDelete
)

// Body is either a fixed byte slice or a streaming reader of known or
// unknown size, matching §6's "bytes or an async reader" contract.
type Body struct {
	Bytes        []byte
	Reader       io.Reader
	Size         int64 // -1 when unknown
	ContentType  string
}

// Request describes one outbound call.
type Request struct {
	Method  Method
	URL     string
	Headers map[string]string
	Body    *Body
}

// Response exposes the result of a Send call. Body must be closed by the
// caller once consumed.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       io.ReadCloser
}

// HttpClient is the injected HTTP transport collaborator.
type HttpClient interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// RealClient is the production HttpClient, backed by net/http.Client.
type RealClient struct {
	client *http.Client
}

// NewRealClient constructs a RealClient with the given request timeout.
func NewRealClient(timeout time.Duration) *RealClient {
	return &RealClient{client: &http.Client{Timeout: timeout}}
}

// Send issues req over HTTP and returns the raw response; callers are
// responsible for status-code interpretation (the remote package owns the
// 401-retry and typed-error logic per §4.C).
func (c *RealClient) Send(ctx context.Context, req Request) (*Response, error) {
	var bodyReader io.Reader
	var contentLength int64 = -1
	if req.Body != nil {
		if req.Body.Reader != nil {
			bodyReader = req.Body.Reader
			contentLength = req.Body.Size
		} else if req.Body.Bytes != nil {
			bodyReader = bytes.NewReader(req.Body.Bytes)
			contentLength = int64(len(req.Body.Bytes))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	if contentLength >= 0 {
		httpReq.ContentLength = contentLength
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Body != nil && req.Body.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.Body.ContentType)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(httpResp.Header))
	for key := range httpResp.Header {
		headers[key] = httpResp.Header.Get(key)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    headers,
		Body:       httpResp.Body,
	}, nil
}
