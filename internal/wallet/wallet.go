// Package wallet holds the session-establishing workflows (registration,
// login) and the signed operations (file upload, file exchange, message
// inscription) built on top of the wallet gateway and the file backend.
package wallet

import (
	"context"
	"errors"
	"io"

	"github.com/stellum-labs/stellum/internal/filestore"
	"github.com/stellum-labs/stellum/internal/spv"
)

// Gateway is the remote wallet capability set consumed by the workflows.
// *spv.Client implements it.
type Gateway interface {
	WalletInfo(ctx context.Context, publicKey string) (spv.WalletInfo, error)
	ResolvePrivate(ctx context.Context, privateKey string) (spv.PrivateInfo, error)
	Transactions(ctx context.Context, publicKey string) ([]spv.Transaction, error)
	Annotate(ctx context.Context, privateKey, payload string) (string, error)
	RegisterWallet(ctx context.Context, publicKey, payAddress, displayName string) (spv.Registration, error)
}

// FileBackend is the slice of the file backend the upload pipeline needs.
// *filestore.Client implements it.
type FileBackend interface {
	Upload(ctx context.Context, name string, size int64, r io.Reader, onProgress func(pct int)) (filestore.UploadResult, error)
	RegisterTx(ctx context.Context, id int64, txID string) error
}

// Publisher emits fire-and-forget in-process signals. *nats.Conn
// implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// SubjectRefresh is published after every state-changing remote operation.
// It carries no payload; subscribers refetch and must tolerate duplicate
// deliveries.
const SubjectRefresh = "wallet.updates"

var (
	// ErrSessionRequired blocks read operations without a logged-in wallet.
	ErrSessionRequired = errors.New("wallet: no active session")

	// ErrSigningKeyRequired blocks write operations in read-only sessions.
	// The check runs before any remote call is made.
	ErrSigningKeyRequired = errors.New("wallet: private key required to sign")
)

// ValidationError reports a missing or malformed input field. It is local:
// no collaborator is contacted when one is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "wallet: missing required field " + e.Field
}
