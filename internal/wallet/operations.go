package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stellum-labs/stellum/internal/spv"
	"github.com/stellum-labs/stellum/internal/store"
)

var (
	ErrRecordNotFound     = errors.New("wallet: file record not found")
	ErrRecordNotCompleted = errors.New("wallet: file is not uploaded yet")
	ErrExchangeFailed     = errors.New("wallet: file exchange failed")
	ErrInscribeFailed     = errors.New("wallet: message inscription failed")
	ErrHistoryFailed      = errors.New("wallet: transaction history unavailable")
)

// User-facing failure notes written into records. Technical detail goes to
// the log only.
const (
	failureUpload = "could not upload file, try again"
)

// Operations are the dashboard actions: upload, exchange, inscribe, history.
// Each write re-reads the session at submission time and refuses without a
// private key before contacting any collaborator.
type Operations struct {
	store   *store.Store
	gw      Gateway
	backend FileBackend
	nc      Publisher
	logger  *slog.Logger
}

func NewOperations(st *store.Store, gw Gateway, backend FileBackend, nc Publisher, logger *slog.Logger) *Operations {
	return &Operations{store: st, gw: gw, backend: backend, nc: nc, logger: logger}
}

// anchor is the metadata payload inscribed on-chain for an uploaded file.
type anchor struct {
	FileID    int64  `json:"fileId"`
	Hash      string `json:"hash"`
	Filename  string `json:"filename"`
	Recipient string `json:"recipient,omitempty"`
	Timestamp string `json:"timestamp"`
}

// StartUpload creates the pending record for a new upload. The actual
// pipeline runs in ProcessUpload, typically on a detached goroutine so the
// caller stays responsive.
func (o *Operations) StartUpload(name, mimeType string, size int64) (store.FileRecord, error) {
	if !o.store.Session().CanSign() {
		return store.FileRecord{}, ErrSigningKeyRequired
	}

	rec := store.FileRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Size:      size,
		MimeType:  mimeType,
		CreatedAt: time.Now(),
		Status:    store.StatusPending,
	}
	o.store.AddRecord(rec)
	return rec, nil
}

// ProcessUpload runs the upload pipeline for a previously started record:
// backend upload, on-chain anchor of {fileId, hash, filename, timestamp},
// then registering the transaction id back with the backend. All outcomes
// land in the record; a record that disappeared mid-flight (logout) makes
// every update a no-op.
func (o *Operations) ProcessUpload(ctx context.Context, id string, r io.Reader) {
	rec, ok := o.store.Record(id)
	if !ok {
		return
	}

	sess := o.store.Session()
	if !sess.CanSign() {
		o.fail(id, failureUpload)
		return
	}

	o.setProgress(id, store.StatusUploading, 10)

	result, err := o.backend.Upload(ctx, rec.Name, rec.Size, r, func(pct int) {
		// Transfer covers the 10-70% band; the rest is anchoring.
		o.setProgress(id, store.StatusUploading, 10+pct*60/100)
	})
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "file upload failed",
			slog.String("record", id),
			slog.String("error", err.Error()),
		)
		o.fail(id, failureUpload)
		return
	}

	o.setProgress(id, store.StatusUploading, 80)

	payload, err := json.Marshal(anchor{
		FileID:    result.ID,
		Hash:      result.Hash,
		Filename:  rec.Name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		o.fail(id, failureUpload)
		return
	}

	txID, err := o.gw.Annotate(ctx, sess.PrivateKey, string(payload))
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "file anchor transaction failed",
			slog.String("record", id),
			slog.String("error", err.Error()),
		)
		o.fail(id, failureUpload)
		return
	}

	if err := o.backend.RegisterTx(ctx, result.ID, txID); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "transaction registration failed",
			slog.String("record", id),
			slog.String("txId", txID),
			slog.String("error", err.Error()),
		)
		o.fail(id, failureUpload)
		return
	}

	completed := store.StatusCompleted
	progress := 100
	o.store.UpdateRecord(id, store.RecordUpdate{
		Status:      &completed,
		Progress:    &progress,
		ContentHash: &result.Hash,
		ChainTxID:   &txID,
		BackendID:   &result.ID,
	})
	o.refresh()
}

// Exchange anchors an exchange reference for a completed file to a
// recipient pay address and returns the transaction id.
func (o *Operations) Exchange(ctx context.Context, recordID, recipient string) (string, error) {
	sess := o.store.Session()
	if !sess.CanSign() {
		return "", ErrSigningKeyRequired
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", &ValidationError{Field: "payAddress"}
	}

	rec, ok := o.store.Record(recordID)
	if !ok {
		return "", ErrRecordNotFound
	}
	if rec.Status != store.StatusCompleted {
		return "", ErrRecordNotCompleted
	}

	var backendID int64
	if rec.BackendID != nil {
		backendID = *rec.BackendID
	}
	payload, err := json.Marshal(anchor{
		FileID:    backendID,
		Hash:      rec.ContentHash,
		Filename:  rec.Name,
		Recipient: recipient,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", ErrExchangeFailed
	}

	txID, err := o.gw.Annotate(ctx, sess.PrivateKey, string(payload))
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "file exchange failed",
			slog.String("record", recordID),
			slog.String("error", err.Error()),
		)
		return "", ErrExchangeFailed
	}

	o.refresh()
	return txID, nil
}

// Inscribe anchors a free-text message on-chain and returns the
// transaction id.
func (o *Operations) Inscribe(ctx context.Context, message string) (string, error) {
	sess := o.store.Session()
	if !sess.CanSign() {
		return "", ErrSigningKeyRequired
	}

	if strings.TrimSpace(message) == "" {
		return "", &ValidationError{Field: "message"}
	}

	txID, err := o.gw.Annotate(ctx, sess.PrivateKey, message)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "message inscription failed",
			slog.String("error", err.Error()),
		)
		return "", ErrInscribeFailed
	}

	o.refresh()
	return txID, nil
}

// Transactions lists the wallet's history. Read-only, so the public key
// suffices.
func (o *Operations) Transactions(ctx context.Context) ([]spv.Transaction, error) {
	sess := o.store.Session()
	if !sess.Active() {
		return nil, ErrSessionRequired
	}

	txs, err := o.gw.Transactions(ctx, sess.PublicKey)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "transaction history fetch failed",
			slog.String("error", err.Error()),
		)
		return nil, ErrHistoryFailed
	}
	return txs, nil
}

func (o *Operations) setProgress(id string, status store.RecordStatus, pct int) {
	o.store.UpdateRecord(id, store.RecordUpdate{Status: &status, Progress: &pct})
}

func (o *Operations) fail(id, msg string) {
	failed := store.StatusFailed
	zero := 0
	o.store.UpdateRecord(id, store.RecordUpdate{Status: &failed, Progress: &zero, Error: &msg})
}

// refresh tells dashboard consumers to refetch. Fire-and-forget; consumers
// treat delivery as at-least-once and refetch idempotently.
func (o *Operations) refresh() {
	if o.nc == nil {
		return
	}
	if err := o.nc.Publish(SubjectRefresh, nil); err != nil {
		o.logger.LogAttrs(context.Background(), slog.LevelWarn, "refresh publish failed",
			slog.String("error", err.Error()),
		)
	}
}
