package store

import "github.com/koofr/vault-sub003/internal/vaulttypes"

// State is the single root of the vault core's reactive state tree. The
// Store exclusively owns it — no other component ever holds a mutable
// reference outside a Mutate closure.
type State struct {
	OAuth2     OAuth2State
	User       UserState
	Mounts     MountsState
	RemoteFiles RemoteFilesState
	Repos      ReposState
	RepoFiles  RepoFilesState
	Transfers  TransfersState
	EventStream EventStreamState

	Notifications NotificationsState
	Selection     SelectionState
	Sort          SortState
	Lifecycle     LifecycleState
	SpaceUsage    SpaceUsageState

	DirPickers DirPickersState
}

// NewState constructs a State with every slice defaulted.
func NewState() *State {
	s := &State{}
	s.reset()
	return s
}

// reset restores every slice to its defaults while preserving monotonic
// NextId counters — called by NewState and by Store.Reset (which Logout uses).
func (s *State) reset() {
	s.OAuth2.reset()
	s.User.reset()
	s.Mounts.reset()
	s.RemoteFiles.reset()
	s.Repos.reset()
	s.RepoFiles.reset()
	s.Transfers.reset()
	s.EventStream.reset()
	s.Notifications.reset()
	s.Selection.reset()
	s.Sort.reset()
	s.Lifecycle.reset()
	s.SpaceUsage.reset()
	s.DirPickers.reset()
}

// Status is the generic loading/loaded/error tri-state used by several slices.
type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// --- oauth2 ---

// OAuth2Token is the persisted credential set — the only state the host
// application is required to persist across restarts (§6).
type OAuth2Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAtMs  int64
}

type OAuth2State struct {
	Status Status
	Token  *OAuth2Token
}

func (s *OAuth2State) reset() { *s = OAuth2State{Status: StatusLoading} }

// --- user ---

type User struct {
	Id             string
	FirstName      string
	LastName       string
	FullName       string
	Email          string
	ProfilePicture []byte
}

type UserState struct {
	Status Status
	User   *User
}

func (s *UserState) reset() { *s = UserState{Status: StatusLoading} }

// --- mounts ---

type Mount struct {
	Id        vaulttypes.MountId
	Name      string
	ReadOnly  bool
	Online    bool
	IsPrimary bool
}

type MountsState struct {
	Status Status
	ById   map[vaulttypes.MountId]*Mount
}

func (s *MountsState) reset() {
	*s = MountsState{Status: StatusLoading, ById: make(map[vaulttypes.MountId]*Mount)}
}

// --- remote_files ---

type RemoteFileType string

const (
	RemoteFileTypeFile RemoteFileType = "file"
	RemoteFileTypeDir  RemoteFileType = "dir"
)

// RemoteFile mirrors the wire file record from §6.
type RemoteFile struct {
	Name        vaulttypes.RemoteName
	Type        RemoteFileType
	Modified    int64
	Size        int64
	ContentType string
	Hash        string
	Tags        map[string][]string
}

type remoteFilesKey struct {
	mount vaulttypes.MountId
	path  vaulttypes.RemotePath
}

// RemoteFilesState indexes listings by (MountId, RemotePath); each entry
// maintains its children in the order returned by the remote.
type RemoteFilesState struct {
	listings map[remoteFilesKey][]RemoteFile
}

func (s *RemoteFilesState) reset() {
	*s = RemoteFilesState{listings: make(map[remoteFilesKey][]RemoteFile)}
}

// SetListing replaces the listing for (mountId, path), preserving ordering.
func (s *RemoteFilesState) SetListing(mountId vaulttypes.MountId, path vaulttypes.RemotePath, files []RemoteFile) {
	s.listings[remoteFilesKey{mountId, path}] = files
}

// Listing returns the children recorded for (mountId, path).
func (s *RemoteFilesState) Listing(mountId vaulttypes.MountId, path vaulttypes.RemotePath) ([]RemoteFile, bool) {
	files, ok := s.listings[remoteFilesKey{mountId, path}]
	return files, ok
}

// --- repos ---

// RepoLifecycleState is the Locked/Unlocking/Unlocked state machine per §1/§4.E.
type RepoLifecycleState string

const (
	RepoLocked    RepoLifecycleState = "locked"
	RepoUnlocking RepoLifecycleState = "unlocking"
	RepoUnlocked  RepoLifecycleState = "unlocked"
)

// AutoLockConfig controls the sweeper's locking decision for one repo.
type AutoLockConfig struct {
	After        int64 // milliseconds of inactivity
	OnAppHidden  bool
}

// Repo is one encrypted vault entry.
type Repo struct {
	Id                        vaulttypes.RepoId
	Name                      string
	MountId                   vaulttypes.MountId
	Path                      vaulttypes.RemotePath
	Salt                      string
	PasswordValidator         string
	PasswordValidatorEncrypted string
	AddedMs                   int64
	AutoLock                  *AutoLockConfig

	State          RepoLifecycleState
	CipherHandle   string // opaque key into the cipher registry; never serialized
	LastActivityMs int64
}

type ReposState struct {
	ById map[vaulttypes.RepoId]*Repo
}

func (s *ReposState) reset() {
	*s = ReposState{ById: make(map[vaulttypes.RepoId]*Repo)}
}

// --- repo_files ---

// RepoFile is a decrypted projection of one encrypted remote file. NameError
// is set when the name failed to decrypt; the listing still includes the
// entry rather than failing outright (§4.F).
type RepoFile struct {
	EncryptedPath vaulttypes.EncryptedPath
	DecryptedName string
	NameError     error
	Type          RemoteFileType
	Size          int64 // plaintext size, derived from ciphertext size
	Modified      int64
}

type RepoFilesState struct {
	ByEncryptedPath map[vaulttypes.RepoId]map[vaulttypes.EncryptedPath]*RepoFile
}

func (s *RepoFilesState) reset() {
	*s = RepoFilesState{ByEncryptedPath: make(map[vaulttypes.RepoId]map[vaulttypes.EncryptedPath]*RepoFile)}
}

// --- transfers ---

type TransferKind string

const (
	TransferUpload   TransferKind = "upload"
	TransferDownload TransferKind = "download"
)

type TransferStatus string

const (
	TransferQueued     TransferStatus = "queued"
	TransferProcessing TransferStatus = "processing"
	TransferDone       TransferStatus = "done"
	TransferFailed     TransferStatus = "failed"
	TransferAborted    TransferStatus = "aborted"
)

type Transfer struct {
	Id         vaulttypes.TransferId
	Kind       TransferKind
	Status     TransferStatus
	Progress   int64
	Size       int64
	Retryable  bool
	Attempts   int
	LastError  error
}

type TransfersState struct {
	nextId vaulttypes.NextId
	Order  []vaulttypes.TransferId
	ById   map[vaulttypes.TransferId]*Transfer
}

func (s *TransfersState) reset() {
	s.Order = nil
	s.ById = make(map[vaulttypes.TransferId]*Transfer)
}

// NextTransferId allocates the next monotonic transfer id; survives reset.
func (s *TransfersState) NextTransferId() vaulttypes.TransferId {
	return vaulttypes.TransferId(s.nextId.Next())
}

// --- eventstream ---

type EventStreamConnection string

const (
	ConnDisconnected  EventStreamConnection = "disconnected"
	ConnConnecting    EventStreamConnection = "connecting"
	ConnAuthenticated EventStreamConnection = "authenticated"
)

// Subject is the (mount, path) pair a listener is registered against.
type Subject struct {
	MountId vaulttypes.MountId
	Path    vaulttypes.RemotePath
}

type EventStreamListener struct {
	Subject   Subject
	RequestId vaulttypes.RequestId
}

type EventStreamState struct {
	Connection EventStreamConnection
	Listeners  map[vaulttypes.ListenerId]EventStreamListener
	Pending    map[vaulttypes.RequestId]Subject
}

func (s *EventStreamState) reset() {
	*s = EventStreamState{
		Connection: ConnDisconnected,
		Listeners:  make(map[vaulttypes.ListenerId]EventStreamListener),
		Pending:    make(map[vaulttypes.RequestId]Subject),
	}
}

// --- peripheral slices (§2 row J) ---

type NotificationLevel string

const (
	NotificationInfo  NotificationLevel = "info"
	NotificationError NotificationLevel = "error"
)

type Notification struct {
	Id      uint64
	Level   NotificationLevel
	Message string
}

type NotificationsState struct {
	nextId vaulttypes.NextId
	Items  []Notification
}

func (s *NotificationsState) reset() {
	s.Items = nil
}

func (s *NotificationsState) NextNotificationId() uint64 { return s.nextId.Next() }

type SelectionState struct {
	Selected map[string]struct{}
}

func (s *SelectionState) reset() { s.Selected = make(map[string]struct{}) }

type SortField string

const (
	SortByName     SortField = "name"
	SortByModified SortField = "modified"
	SortBySize     SortField = "size"
)

type SortState struct {
	Field     SortField
	Ascending bool
}

func (s *SortState) reset() { *s = SortState{Field: SortByName, Ascending: true} }

type AppVisibility string

const (
	AppVisible AppVisibility = "visible"
	AppHidden  AppVisibility = "hidden"
)

type LifecycleState struct {
	AppVisibility AppVisibility
}

func (s *LifecycleState) reset() { *s = LifecycleState{AppVisibility: AppVisible} }

type SpaceUsage struct {
	Used  int64
	Total int64
}

type SpaceUsageState struct {
	Status Status
	ByMount map[vaulttypes.MountId]SpaceUsage
}

func (s *SpaceUsageState) reset() {
	*s = SpaceUsageState{Status: StatusLoading, ByMount: make(map[vaulttypes.MountId]SpaceUsage)}
}

// DirPickersState models the ephemeral state a remote/repo-files directory
// picker dialog binds to (§4.H.1); no service drives it — only the shape.
type DirPicker struct {
	Id        uint64
	MountId   vaulttypes.MountId
	SelectedPath vaulttypes.RemotePath
}

type DirPickersState struct {
	nextId vaulttypes.NextId
	ById   map[uint64]*DirPicker
}

func (s *DirPickersState) reset() {
	s.ById = make(map[uint64]*DirPicker)
}

func (s *DirPickersState) NextDirPickerId() uint64 { return s.nextId.Next() }
