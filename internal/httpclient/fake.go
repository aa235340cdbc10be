package httpclient

import (
	"context"
	"io"
	"strings"
)

// FakeResponse is a canned response returned by FakeClient.
type FakeResponse struct {
	StatusCode int
	Body       string
	Err        error
}

// FakeClient is a deterministic HttpClient test double: each call to Send
// pops the next queued response (or repeats the last one once the queue is
// drained), recording every request it received.
type FakeClient struct {
	Responses []FakeResponse
	Requests  []Request

	index int
}

// Send records req and returns the next queued FakeResponse.
func (f *FakeClient) Send(ctx context.Context, req Request) (*Response, error) {
	f.Requests = append(f.Requests, req)

	if len(f.Responses) == 0 {
		return &Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	}

	i := f.index
	if i >= len(f.Responses) {
		i = len(f.Responses) - 1
	} else {
		f.index++
	}

	canned := f.Responses[i]
	if canned.Err != nil {
		return nil, canned.Err
	}
	return &Response{
		StatusCode: canned.StatusCode,
		Headers:    map[string]string{},
		Body:       io.NopCloser(strings.NewReader(canned.Body)),
	}, nil
}
