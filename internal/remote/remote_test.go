package remote

import (
	"context"
	"strings"
	"testing"

	"github.com/koofr/vault-sub003/internal/auth"
	"github.com/koofr/vault-sub003/internal/httpclient"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
)

// TestInvalidTokenTriggersExactlyOneForcedRefresh covers S5: a 401 response
// carrying code "InvalidToken" must retry exactly once with a forced
// refresh, and succeed if the retried attempt is authorized.
func TestInvalidTokenTriggersExactlyOneForcedRefresh(t *testing.T) {
	fakeHTTP := &httpclient.FakeClient{
		Responses: []httpclient.FakeResponse{
			{StatusCode: 401, Body: `{"error":{"code":"InvalidToken","message":"expired"},"requestId":"r1"}`},
			{StatusCode: 200, Body: `[]`},
		},
	}
	mockAuth := &auth.MockProvider{Token: "stale", RefreshToken: "fresh"}
	client := New(fakeHTTP, mockAuth, "https://example.test/api")

	files, err := client.ListFiles(context.Background(), "m1", "/")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty listing, got %d entries", len(files))
	}
	if mockAuth.RefreshCalls != 1 {
		t.Fatalf("expected exactly one forced refresh, got %d", mockAuth.RefreshCalls)
	}
	if len(fakeHTTP.Requests) != 2 {
		t.Fatalf("expected exactly two HTTP attempts, got %d", len(fakeHTTP.Requests))
	}
	if got := fakeHTTP.Requests[1].Headers["Authorization"]; got != "Bearer fresh" {
		t.Fatalf("expected retried request to carry refreshed token, got %q", got)
	}
}

// TestInvalidTokenStillUnauthenticatedAfterRefresh asserts the retry does
// not loop: a second 401 after the forced refresh surfaces as
// KindUnauthenticated rather than retrying again.
func TestInvalidTokenStillUnauthenticatedAfterRefresh(t *testing.T) {
	fakeHTTP := &httpclient.FakeClient{
		Responses: []httpclient.FakeResponse{
			{StatusCode: 401, Body: `{"error":{"code":"InvalidToken","message":"expired"},"requestId":"r1"}`},
			{StatusCode: 401, Body: `{"error":{"code":"InvalidToken","message":"still expired"},"requestId":"r2"}`},
		},
	}
	mockAuth := &auth.MockProvider{Token: "stale", RefreshToken: "also-stale"}
	client := New(fakeHTTP, mockAuth, "https://example.test/api")

	_, err := client.ListFiles(context.Background(), "m1", "/")
	if err == nil {
		t.Fatal("expected an error after repeated 401s")
	}
	if vaulterrors.KindOf(err) != vaulterrors.KindUnauthenticated {
		t.Fatalf("expected KindUnauthenticated, got %v", vaulterrors.KindOf(err))
	}
	if mockAuth.RefreshCalls != 1 {
		t.Fatalf("expected only one forced refresh, got %d", mockAuth.RefreshCalls)
	}
	if len(fakeHTTP.Requests) != 2 {
		t.Fatalf("expected exactly two HTTP attempts, got %d", len(fakeHTTP.Requests))
	}
}

// TestNonInvalidTokenUnauthorizedDoesNotRetry asserts that a 401 with any
// other code is surfaced immediately without a forced-refresh retry.
func TestNonInvalidTokenUnauthorizedDoesNotRetry(t *testing.T) {
	fakeHTTP := &httpclient.FakeClient{
		Responses: []httpclient.FakeResponse{
			{StatusCode: 401, Body: `{"error":{"code":"AccountSuspended","message":"suspended"},"requestId":"r1"}`},
		},
	}
	mockAuth := &auth.MockProvider{Token: "whatever"}
	client := New(fakeHTTP, mockAuth, "https://example.test/api")

	_, err := client.ListFiles(context.Background(), "m1", "/")
	if err == nil {
		t.Fatal("expected an error")
	}
	if vaulterrors.KindOf(err) != vaulterrors.KindUnauthenticated {
		t.Fatalf("expected KindUnauthenticated, got %v", vaulterrors.KindOf(err))
	}
	if mockAuth.RefreshCalls != 0 {
		t.Fatalf("did not expect a forced refresh, got %d calls", mockAuth.RefreshCalls)
	}
	if len(fakeHTTP.Requests) != 1 {
		t.Fatalf("expected exactly one HTTP attempt, got %d", len(fakeHTTP.Requests))
	}
}

// TestConflictIsDistinguishableFromGenericApiError covers §4.C's
// requirement that the Conflict API code map to a distinct error kind.
func TestConflictIsDistinguishableFromGenericApiError(t *testing.T) {
	fakeHTTP := &httpclient.FakeClient{
		Responses: []httpclient.FakeResponse{
			{StatusCode: 409, Body: `{"error":{"code":"Conflict","message":"file changed"},"requestId":"r1"}`},
		},
	}
	mockAuth := &auth.MockProvider{Token: "ok"}
	client := New(fakeHTTP, mockAuth, "https://example.test/api")

	err := client.MoveFile(context.Background(), "m1", "/a", "/b", false)
	if err == nil {
		t.Fatal("expected a conflict error")
	}
	if vaulterrors.KindOf(err) != vaulterrors.KindConflict {
		t.Fatalf("expected KindConflict, got %v", vaulterrors.KindOf(err))
	}
}

// TestGenericApiErrorKeepsApiErrorKind asserts a non-conflict, non-auth
// error code surfaces as the generic ApiError kind with fields intact.
func TestGenericApiErrorKeepsApiErrorKind(t *testing.T) {
	fakeHTTP := &httpclient.FakeClient{
		Responses: []httpclient.FakeResponse{
			{StatusCode: 400, Body: `{"error":{"code":"InvalidPath","message":"bad path"},"requestId":"r9"}`},
		},
	}
	mockAuth := &auth.MockProvider{Token: "ok"}
	client := New(fakeHTTP, mockAuth, "https://example.test/api")

	_, err := client.ListFiles(context.Background(), "m1", "/broken")
	if err == nil {
		t.Fatal("expected an error")
	}
	apiErr, ok := vaulterrors.Of(err)
	if !ok {
		t.Fatalf("expected a *vaulterrors.Error, got %T", err)
	}
	if apiErr.Kind != vaulterrors.KindApiError {
		t.Fatalf("expected KindApiError, got %v", apiErr.Kind)
	}
	if apiErr.RequestId != "r9" {
		t.Fatalf("expected requestId to be preserved, got %q", apiErr.RequestId)
	}
}

// TestConditionalWriteHeadersForwardedVerbatim asserts PutFile forwards
// ifModified/ifSize/ifHash preconditions unchanged (§4.C).
func TestConditionalWriteHeadersForwardedVerbatim(t *testing.T) {
	fakeHTTP := &httpclient.FakeClient{
		Responses: []httpclient.FakeResponse{
			{StatusCode: 200, Body: `{"name":"a","type":"file","modified":1,"size":2,"contentType":"application/octet-stream"}`},
		},
	}
	mockAuth := &auth.MockProvider{Token: "ok"}
	client := New(fakeHTTP, mockAuth, "https://example.test/api")

	ifModified := int64(42)
	_, err := client.PutFile(context.Background(), "m1", "/a", strings.NewReader("data"), 4, &ConditionalWrite{IfModified: &ifModified, IfHash: "abc"})
	if err != nil {
		t.Fatalf("PutFile failed: %v", err)
	}
	req := fakeHTTP.Requests[0]
	if req.Headers["If-Modified"] != "42" {
		t.Fatalf("expected If-Modified header to be forwarded, got %q", req.Headers["If-Modified"])
	}
	if req.Headers["If-Hash"] != "abc" {
		t.Fatalf("expected If-Hash header to be forwarded, got %q", req.Headers["If-Hash"])
	}
}
