package remote

// FileRecord mirrors the wire file record from §6:
// {name, type: "file"|"dir", modified, size, contentType, hash?, tags}.
type FileRecord struct {
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	Modified    int64               `json:"modified"`
	Size        int64               `json:"size"`
	ContentType string              `json:"contentType"`
	Hash        string              `json:"hash,omitempty"`
	Tags        map[string][]string `json:"tags,omitempty"`
}

// ApiErrorBody mirrors the wire API error envelope from §6.
type ApiErrorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Extra   map[string]string `json:"extra,omitempty"`
	} `json:"error"`
	RequestId string `json:"requestId"`
}

// MountDTO is the wire shape of a connected remote backend.
type MountDTO struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	ReadOnly  bool   `json:"readOnly"`
	Online    bool   `json:"online"`
	IsPrimary bool   `json:"isPrimary"`
}

// VaultRepoDTO is the wire shape of an encrypted vault entry.
type VaultRepoDTO struct {
	Id                         string `json:"id"`
	Name                       string `json:"name"`
	MountId                    string `json:"mountId"`
	Path                       string `json:"path"`
	Salt                       string `json:"salt,omitempty"`
	PasswordValidator          string `json:"passwordValidator"`
	PasswordValidatorEncrypted string `json:"passwordValidatorEncrypted"`
	AddedMs                    int64  `json:"addedMs"`
}

// CreateVaultRepoRequest is the body for POST .../vaultrepos.
type CreateVaultRepoRequest struct {
	Name                       string `json:"name"`
	MountId                    string `json:"mountId"`
	Path                       string `json:"path"`
	Salt                       string `json:"salt,omitempty"`
	PasswordValidator          string `json:"passwordValidator"`
	PasswordValidatorEncrypted string `json:"passwordValidatorEncrypted"`
}

// SpaceUsageDTO is the wire shape returned for a mount's used/total bytes.
type SpaceUsageDTO struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// UserDTO is the wire shape of the authenticated user's profile.
type UserDTO struct {
	Id             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	ProfilePicture []byte `json:"profilePicture,omitempty"`
}

// ConditionalWrite forwards optimistic-concurrency preconditions verbatim to
// the remote (§4.C).
type ConditionalWrite struct {
	IfModified *int64
	IfSize     *int64
	IfHash     string
}
