// Package remote implements the vault core's authenticated request layer
// (§4.C): typed methods over an injected HttpClient, exactly-once 401 retry
// via the AuthProvider's forced-refresh signal, and typed RemoteError
// variants, grounded on the teacher's request-shaping idiom adapted to the
// vault's wire contract.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/koofr/vault-sub003/internal/httpclient"
	"github.com/koofr/vault-sub003/internal/logging"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
)

// AuthProvider is the narrow slice of internal/auth.AuthProvider this
// package needs, kept local to avoid an import cycle.
type AuthProvider interface {
	GetAuthorization(ctx context.Context, forceRefresh bool) (string, error)
}

// Client is the authenticated request layer used by every higher-level
// vault-core service.
type Client struct {
	http    httpclient.HttpClient
	auth    AuthProvider
	baseURL string
}

// New constructs a Client against baseURL using http for transport and auth
// for bearer-token acquisition.
func New(http httpclient.HttpClient, auth AuthProvider, baseURL string) *Client {
	return &Client{http: http, auth: auth, baseURL: strings.TrimRight(baseURL, "/")}
}

// call is the shared request path implementing §4.C steps 1-5: attach
// bearer auth, send, retry exactly once on 401/InvalidToken, parse typed
// errors from non-2xx responses.
func (c *Client) call(ctx context.Context, method httpclient.Method, path string, headers map[string]string, body *httpclient.Body) (*httpclient.Response, error) {
	resp, err := c.attempt(ctx, method, path, headers, body, false)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		code := apiErrorCode(resp)
		drainAndClose(resp)
		if code == "InvalidToken" {
			resp, err = c.attempt(ctx, method, path, headers, body, true)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode == http.StatusUnauthorized {
				drainAndClose(resp)
				return nil, vaulterrors.New(vaulterrors.KindUnauthenticated, "authentication failed after refresh")
			}
			return checkStatus(resp)
		}
		return nil, vaulterrors.New(vaulterrors.KindUnauthenticated, "authentication failed")
	}
	return checkStatus(resp)
}

func (c *Client) attempt(ctx context.Context, method httpclient.Method, path string, headers map[string]string, body *httpclient.Body, forceRefresh bool) (*httpclient.Response, error) {
	ctx, log, traceID := logging.WithOutboundTrace(ctx, logging.L())

	authHeader, err := c.auth.GetAuthorization(ctx, forceRefresh)
	if err != nil {
		log.Debug("remote request aborted: authorization failed",
			logging.String("method", string(method)), logging.String("path", path), logging.Error(err))
		return nil, vaulterrors.Wrap(vaulterrors.KindUnauthenticated, err)
	}

	reqHeaders := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		reqHeaders[k] = v
	}
	reqHeaders["Authorization"] = authHeader
	reqHeaders[logging.TraceIDHeader] = traceID

	log.Debug("dispatching remote request",
		logging.String("method", string(method)), logging.String("path", path), logging.Bool("force_refresh", forceRefresh))

	resp, err := c.http.Send(ctx, httpclient.Request{
		Method:  method,
		URL:     c.baseURL + path,
		Headers: reqHeaders,
		Body:    body,
	})
	if err != nil {
		log.Warn("remote request failed",
			logging.String("method", string(method)), logging.String("path", path), logging.Error(err))
		return nil, vaulterrors.Network(err, isRetriableNetErr(err))
	}
	return resp, nil
}

// checkStatus turns a non-2xx response into a typed RemoteError, per §4.C
// steps 4-5. 2xx responses pass through unchanged for the caller to decode.
func checkStatus(resp *httpclient.Response) (*httpclient.Response, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var body ApiErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Code == "" {
		return nil, vaulterrors.New(vaulterrors.KindApiError, fmt.Sprintf("unexpected response (status %d)", resp.StatusCode))
	}

	apiErr := vaulterrors.ApiError(body.Error.Code, body.Error.Message, body.RequestId, body.Error.Extra)
	if resp.StatusCode == http.StatusConflict || body.Error.Code == "Conflict" {
		apiErr.Kind = vaulterrors.KindConflict
	}
	logging.L().Debug("remote request returned an API error",
		logging.String("code", body.Error.Code), logging.String("server_request_id", body.RequestId))
	return nil, apiErr
}

func apiErrorCode(resp *httpclient.Response) string {
	raw, _ := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(strings.NewReader(string(raw)))
	var body ApiErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Error.Code
}

func drainAndClose(resp *httpclient.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func isRetriableNetErr(err error) bool {
	// Timeouts and connection failures are retriable; anything else (e.g.
	// context cancellation) is not.
	type timeout interface{ Timeout() bool }
	if t, ok := err.(timeout); ok {
		return t.Timeout()
	}
	return !strings.Contains(err.Error(), "context canceled")
}

func applyConditional(headers map[string]string, cond *ConditionalWrite) {
	if cond == nil {
		return
	}
	if cond.IfModified != nil {
		headers["If-Modified"] = strconv.FormatInt(*cond.IfModified, 10)
	}
	if cond.IfSize != nil {
		headers["If-Size"] = strconv.FormatInt(*cond.IfSize, 10)
	}
	if cond.IfHash != "" {
		headers["If-Hash"] = cond.IfHash
	}
}

func decodeJSON[T any](resp *httpclient.Response) (T, error) {
	var out T
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, vaulterrors.New(vaulterrors.KindApiError, "failed to read response body")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, vaulterrors.New(vaulterrors.KindApiError, "failed to decode response body")
	}
	return out, nil
}
