package store

import "github.com/koofr/vault-sub003/internal/vaulttypes"

// MutationEvent tags a category of change so subscribers can register
// interest narrowly rather than recomputing on every mutation (§4.A).
type MutationEvent string

const (
	EventLifecycle     MutationEvent = "lifecycle"
	EventEventStream   MutationEvent = "eventstream"
	EventOAuth2        MutationEvent = "oauth2"
	EventUser          MutationEvent = "user"
	EventMounts        MutationEvent = "mounts"
	EventRemoteFiles   MutationEvent = "remote_files"
	EventRepos         MutationEvent = "repos"
	EventRepoFiles     MutationEvent = "repo_files"
	EventTransfers     MutationEvent = "transfers"
	EventNotifications MutationEvent = "notifications"
	EventSelection     MutationEvent = "selection"
	EventSort          MutationEvent = "sort"
	EventSpaceUsage    MutationEvent = "space_usage"
)

// allEvents lists every MutationEvent tag, used by Reset to notify every
// subscriber that the whole tree was just defaulted.
var allEvents = []MutationEvent{
	EventLifecycle,
	EventEventStream,
	EventOAuth2,
	EventUser,
	EventMounts,
	EventRemoteFiles,
	EventRepos,
	EventRepoFiles,
	EventTransfers,
	EventNotifications,
	EventSelection,
	EventSort,
	EventSpaceUsage,
}

// MutationState is a scratch area for recording which remote/repo files
// changed in a mutation. Mutate creates a fresh one after the closure
// returns and passes it to the MutationHook for each event; nothing in this
// module calls its Mark methods, so the sets it hands over are empty.
type MutationState struct {
	ChangedRemoteFiles map[remoteFilesKey]struct{}
	ChangedRepoFiles   map[repoFileKey]struct{}
}

type repoFileKey struct {
	repoID vaulttypes.RepoId
	path   vaulttypes.EncryptedPath
}

func newMutationState() *MutationState {
	return &MutationState{
		ChangedRemoteFiles: make(map[remoteFilesKey]struct{}),
		ChangedRepoFiles:   make(map[repoFileKey]struct{}),
	}
}

// MarkRemoteFilesChanged records that the listing at (mount, path) changed
// during this mutation.
func (m *MutationState) MarkRemoteFilesChanged(mountId vaulttypes.MountId, path vaulttypes.RemotePath) {
	m.ChangedRemoteFiles[remoteFilesKey{mount: mountId, path: path}] = struct{}{}
}

// MarkRepoFileChanged records that one encrypted path within a repo changed.
func (m *MutationState) MarkRepoFileChanged(repoID vaulttypes.RepoId, encryptedPath vaulttypes.EncryptedPath) {
	m.ChangedRepoFiles[repoFileKey{repoID: repoID, path: encryptedPath}] = struct{}{}
}
