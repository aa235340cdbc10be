package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/koofr/vault-sub003/internal/httpclient"
	"github.com/koofr/vault-sub003/internal/oauth2"
	"github.com/koofr/vault-sub003/internal/runtime"
)

// HTTPRefresher is a concrete TokenRefresher performing the OAuth2
// refresh_token grant over HTTP. It does not perform the authorization-code
// exchange or any interactive login — that acquisition step stays externally
// injected (§1) — it only exchanges an already-known refresh token for a
// fresh access token, which is a plain HTTP call a CLI process can own.
type HTTPRefresher struct {
	http         httpclient.HttpClient
	rt           runtime.Runtime
	tokenURL     string
	clientID     string
	clientSecret string
}

// NewHTTPRefresher constructs an HTTPRefresher posting refresh_token grants
// to tokenURL.
func NewHTTPRefresher(client httpclient.HttpClient, rt runtime.Runtime, tokenURL, clientID, clientSecret string) *HTTPRefresher {
	return &HTTPRefresher{http: client, rt: rt, tokenURL: tokenURL, clientID: clientID, clientSecret: clientSecret}
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges refreshToken for a new TokenSet.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (oauth2.TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if r.clientID != "" {
		form.Set("client_id", r.clientID)
	}
	if r.clientSecret != "" {
		form.Set("client_secret", r.clientSecret)
	}
	body := form.Encode()

	resp, err := r.http.Send(ctx, httpclient.Request{
		Method: httpclient.MethodPost,
		URL:    r.tokenURL,
		Headers: map[string]string{
			"Accept": "application/json",
		},
		Body: &httpclient.Body{
			Bytes:       []byte(body),
			Size:        int64(len(body)),
			ContentType: "application/x-www-form-urlencoded",
		},
	})
	if err != nil {
		return oauth2.TokenSet{}, fmt.Errorf("auth: token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return oauth2.TokenSet{}, fmt.Errorf("auth: reading token refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oauth2.TokenSet{}, fmt.Errorf("auth: token refresh endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed refreshResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return oauth2.TokenSet{}, fmt.Errorf("auth: decoding token refresh response: %w", err)
	}
	if parsed.AccessToken == "" {
		return oauth2.TokenSet{}, fmt.Errorf("auth: token refresh response missing access_token")
	}
	if parsed.RefreshToken == "" {
		parsed.RefreshToken = refreshToken
	}

	expiresAtMs := r.rt.Now()
	if parsed.ExpiresIn > 0 {
		expiresAtMs += parsed.ExpiresIn * 1000
	}

	return oauth2.TokenSet{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresAtMs:  expiresAtMs,
	}, nil
}
