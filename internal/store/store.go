package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session describes which wallet this instance is acting as, and with what
// privilege level. A session without a private key is read-only: it can look
// up public wallet info but never sign, and it never carries a balance.
type Session struct {
	PublicKey   string `json:"publicKey,omitempty"`
	PrivateKey  string `json:"privateKey,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PayAddress  string `json:"payAddress,omitempty"`
	Balance     *int64 `json:"balance,omitempty"`
	WalletID    string `json:"walletId,omitempty"`
	PrivateMode bool   `json:"privateMode,omitempty"`
}

// Active reports whether any wallet is logged in.
func (s Session) Active() bool {
	return s.PublicKey != ""
}

// CanSign reports whether the session holds signing material.
func (s Session) CanSign() bool {
	return s.PrivateKey != ""
}

// RecordStatus is the lifecycle state of a tracked file operation.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusUploading RecordStatus = "uploading"
	StatusCompleted RecordStatus = "completed"
	StatusFailed    RecordStatus = "failed"
)

// FileRecord tracks one upload/exchange/inscription target from creation to
// completion or failure. Records are owned by the Store and mutated only
// through UpdateRecord.
type FileRecord struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Size        int64        `json:"size"`
	MimeType    string       `json:"mimeType"`
	CreatedAt   time.Time    `json:"createdAt"`
	Status      RecordStatus `json:"status"`
	Progress    int          `json:"progress"`
	ContentHash string       `json:"contentHash,omitempty"`
	ChainTxID   string       `json:"chainTxId,omitempty"`
	BackendID   *int64       `json:"backendId,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// SessionUpdate is a partial session mutation. Nil fields are left untouched.
type SessionUpdate struct {
	PublicKey   *string
	PrivateKey  *string
	DisplayName *string
	PayAddress  *string
	Balance     *int64
	WalletID    *string
	PrivateMode *bool
}

// RecordUpdate is a partial record mutation. Nil fields are left untouched,
// so racing progress callbacks only overwrite what they carry.
type RecordUpdate struct {
	Status      *RecordStatus
	Progress    *int
	ContentHash *string
	ChainTxID   *string
	BackendID   *int64
	Error       *string
}

// State is the durable snapshot handed to a Persister.
type State struct {
	Session Session      `json:"session"`
	Records []FileRecord `json:"records"`
}

// Persister stores snapshots durably so the session and record list survive
// a restart. Implementations decide what they are allowed to keep (see the
// private-key policy on the KV persister).
type Persister interface {
	Save(ctx context.Context, state State) error
	Load(ctx context.Context) (State, bool, error)
}

// Store is the single shared mutable resource: the current session plus its
// tracked operation records. All mutation goes through its methods so
// persistence and subscriber notification stay consistent. Methods are safe
// for concurrent use; subscribers are invoked synchronously after each
// mutation, in registration order.
type Store struct {
	mu      sync.Mutex
	session Session
	records []FileRecord

	subs    map[int]func()
	nextSub int

	persister Persister
	logger    *slog.Logger
}

func New(persister Persister, logger *slog.Logger) *Store {
	return &Store{
		subs:      make(map[int]func()),
		persister: persister,
		logger:    logger,
	}
}

// Restore loads the last persisted snapshot, if any. A restored session that
// lost its private key (because the persister refused to keep it) is
// downgraded to a read-only session.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	state, ok, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.session = state.Session
	s.session.normalize()
	s.records = state.Records
	// No pipeline survives a restart, so in-flight records can never
	// complete. Mark them failed instead of leaving them stuck.
	for i := range s.records {
		r := &s.records[i]
		if r.Status == StatusPending || r.Status == StatusUploading {
			r.Status = StatusFailed
			r.Progress = 0
			r.Error = "upload interrupted, try again"
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// normalize enforces the session invariants: private mode requires signing
// material, and read-only sessions never carry a balance.
func (s *Session) normalize() {
	if s.PrivateKey == "" {
		s.PrivateMode = false
	}
	if !s.PrivateMode {
		s.Balance = nil
	}
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SetSession merges the given fields into the current session.
func (s *Store) SetSession(u SessionUpdate) {
	s.mu.Lock()
	if u.PublicKey != nil {
		s.session.PublicKey = *u.PublicKey
	}
	if u.PrivateKey != nil {
		s.session.PrivateKey = *u.PrivateKey
	}
	if u.DisplayName != nil {
		s.session.DisplayName = *u.DisplayName
	}
	if u.PayAddress != nil {
		s.session.PayAddress = *u.PayAddress
	}
	if u.Balance != nil {
		b := *u.Balance
		s.session.Balance = &b
	}
	if u.WalletID != nil {
		s.session.WalletID = *u.WalletID
	}
	if u.PrivateMode != nil {
		s.session.PrivateMode = *u.PrivateMode
	}
	s.session.normalize()
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// ClearSession resets the session to empty. Records are untouched; callers
// that want a clean slate clear them separately.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.session = Session{}
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// AddRecord appends a new tracked record.
func (s *Store) AddRecord(r FileRecord) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// UpdateRecord merges the given fields into the record with the given id.
// It reports false, without side effects, when no such record exists. A
// late completion callback racing a logout lands here and must be harmless.
func (s *Store) UpdateRecord(id string, u RecordUpdate) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.records {
		if s.records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	r := &s.records[idx]
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Progress != nil {
		r.Progress = *u.Progress
	}
	if u.ContentHash != nil {
		r.ContentHash = *u.ContentHash
	}
	if u.ChainTxID != nil {
		r.ChainTxID = *u.ChainTxID
	}
	if u.BackendID != nil {
		b := *u.BackendID
		r.BackendID = &b
	}
	if u.Error != nil {
		r.Error = *u.Error
	}
	s.mu.Unlock()

	s.persist()
	s.notify()
	return true
}

// RemoveRecord deletes the record with the given id.
func (s *Store) RemoveRecord(id string) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.records {
		if s.records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.mu.Unlock()

	s.persist()
	s.notify()
	return true
}

// ClearRecords drops all tracked records.
func (s *Store) ClearRecords() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()

	s.persist()
	s.notify()
}

// Record returns a copy of the record with the given id.
func (s *Store) Record(id string) (FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return FileRecord{}, false
}

// Records returns a copy of all records in creation order.
func (s *Store) Records() []FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileRecord, len(s.records))
	copy(out, s.records)
	return out
}

// CompletedRecords returns the records available for exchange or download.
func (s *Store) CompletedRecords() []FileRecord {
	return s.filter(func(r FileRecord) bool { return r.Status == StatusCompleted })
}

// FailedRecords returns the records whose operation failed.
func (s *Store) FailedRecords() []FileRecord {
	return s.filter(func(r FileRecord) bool { return r.Status == StatusFailed })
}

// PendingRecords returns the records with an operation still in flight.
func (s *Store) PendingRecords() []FileRecord {
	return s.filter(func(r FileRecord) bool {
		return r.Status == StatusPending || r.Status == StatusUploading
	})
}

func (s *Store) filter(keep func(FileRecord) bool) []FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FileRecord
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Subscribe registers fn to be called synchronously after every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// persist writes a snapshot through the persister. A failed save only loses
// durability, never in-memory consistency, so it is logged and swallowed.
func (s *Store) persist() {
	if s.persister == nil {
		return
	}

	s.mu.Lock()
	state := State{
		Session: s.session,
		Records: make([]FileRecord, len(s.records)),
	}
	copy(state.Records, s.records)
	s.mu.Unlock()

	if err := s.persister.Save(context.Background(), state); err != nil && s.logger != nil {
		s.logger.LogAttrs(
			context.Background(),
			slog.LevelError,
			"failed to persist wallet state",
			slog.String("error", err.Error()),
		)
	}
}
