package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/koofr/vault-sub003/internal/httpclient"
)

// ListFiles lists the children of path within mountId.
func (c *Client) ListFiles(ctx context.Context, mountId, path string) ([]FileRecord, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, fmt.Sprintf("/mounts/%s/files/list?path=%s", url.PathEscape(mountId), url.QueryEscape(path)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[[]FileRecord](resp)
}

// GetFileReader opens a streaming download of path within mountId. The
// caller must close the returned reader.
func (c *Client) GetFileReader(ctx context.Context, mountId, path string) (io.ReadCloser, int64, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, fmt.Sprintf("/mounts/%s/files/get?path=%s", url.PathEscape(mountId), url.QueryEscape(path)), nil, nil)
	if err != nil {
		return nil, 0, err
	}
	size := int64(-1)
	if raw, ok := resp.Headers["Content-Length"]; ok {
		fmt.Sscanf(raw, "%d", &size)
	}
	return resp.Body, size, nil
}

// PutFile uploads content to path within mountId, forwarding conditional
// preconditions verbatim (§4.C).
func (c *Client) PutFile(ctx context.Context, mountId, path string, content io.Reader, size int64, cond *ConditionalWrite) (*FileRecord, error) {
	headers := map[string]string{}
	applyConditional(headers, cond)
	resp, err := c.call(ctx, httpclient.MethodPut, fmt.Sprintf("/mounts/%s/files/put?path=%s", url.PathEscape(mountId), url.QueryEscape(path)), headers, &httpclient.Body{
		Reader:      content,
		Size:        size,
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return nil, err
	}
	record, err := decodeJSON[FileRecord](resp)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteFile removes path within mountId.
func (c *Client) DeleteFile(ctx context.Context, mountId, path string) error {
	resp, err := c.call(ctx, httpclient.MethodDelete, fmt.Sprintf("/mounts/%s/files/remove?path=%s", url.PathEscape(mountId), url.QueryEscape(path)), nil, nil)
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

type moveCopyRequest struct {
	DestPath string `json:"destPath"`
}

// MoveFile moves src to dest within mountId; a server-reported conflict
// surfaces as vaulterrors.KindConflict so callers can apply a resolution
// policy (§4.C, §4.F). overwrite forwards the destination-replace intent a
// caller applies after resolving that conflict.
func (c *Client) MoveFile(ctx context.Context, mountId, src, dest string, overwrite bool) error {
	return c.moveOrCopy(ctx, "move", mountId, src, dest, overwrite)
}

// CopyFile copies src to dest within mountId.
func (c *Client) CopyFile(ctx context.Context, mountId, src, dest string, overwrite bool) error {
	return c.moveOrCopy(ctx, "copy", mountId, src, dest, overwrite)
}

func (c *Client) moveOrCopy(ctx context.Context, op, mountId, src, dest string, overwrite bool) error {
	payload, err := json.Marshal(moveCopyRequest{DestPath: dest})
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/mounts/%s/files/%s?path=%s", url.PathEscape(mountId), op, url.QueryEscape(src))
	if overwrite {
		path += "&overwrite=true"
	}
	resp, err := c.call(ctx, httpclient.MethodPost, path, nil, &httpclient.Body{
		Bytes:       payload,
		ContentType: "application/json",
	})
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// ListMounts returns every mount visible to the authenticated user.
func (c *Client) ListMounts(ctx context.Context) ([]MountDTO, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, "/mounts", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[[]MountDTO](resp)
}

// GetSpaceUsage returns used/total bytes for mountId.
func (c *Client) GetSpaceUsage(ctx context.Context, mountId string) (*SpaceUsageDTO, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, fmt.Sprintf("/mounts/%s/spaceusage", url.PathEscape(mountId)), nil, nil)
	if err != nil {
		return nil, err
	}
	usage, err := decodeJSON[SpaceUsageDTO](resp)
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// GetUser returns the authenticated user's profile.
func (c *Client) GetUser(ctx context.Context) (*UserDTO, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, "/user", nil, nil)
	if err != nil {
		return nil, err
	}
	user, err := decodeJSON[UserDTO](resp)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListVaultRepos returns every vault repo the user has created.
func (c *Client) ListVaultRepos(ctx context.Context) ([]VaultRepoDTO, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, "/vaultrepos", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[[]VaultRepoDTO](resp)
}

// CreateVaultRepo registers a new encrypted vault (§4.G.2).
func (c *Client) CreateVaultRepo(ctx context.Context, req CreateVaultRepoRequest) (*VaultRepoDTO, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, httpclient.MethodPost, "/vaultrepos", nil, &httpclient.Body{
		Bytes:       payload,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	repo, err := decodeJSON[VaultRepoDTO](resp)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// RemoveVaultRepo deletes a vault repo (§4.G.2).
func (c *Client) RemoveVaultRepo(ctx context.Context, repoId string) error {
	resp, err := c.call(ctx, httpclient.MethodDelete, fmt.Sprintf("/vaultrepos/%s", url.PathEscape(repoId)), nil, nil)
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// GetVaultRepoConfig fetches one repo's configuration, used by
// internal/repos' config-backup export (§4.G.1).
func (c *Client) GetVaultRepoConfig(ctx context.Context, repoId string) (*VaultRepoDTO, error) {
	resp, err := c.call(ctx, httpclient.MethodGet, fmt.Sprintf("/vaultrepos/%s", url.PathEscape(repoId)), nil, nil)
	if err != nil {
		return nil, err
	}
	repo, err := decodeJSON[VaultRepoDTO](resp)
	if err != nil {
		return nil, err
	}
	return &repo, nil
}
