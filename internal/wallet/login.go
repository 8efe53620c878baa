package wallet

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/stellum-labs/stellum/internal/store"
)

var (
	ErrKeyRequired   = errors.New("wallet: key required")
	ErrLoginFailed   = errors.New("wallet: login failed")
	ErrRefreshFailed = errors.New("wallet: balance refresh failed")
)

// Authenticator validates a supplied public or private key against the
// gateway and populates the session store accordingly.
type Authenticator struct {
	gw     Gateway
	store  *store.Store
	logger *slog.Logger
}

func NewAuthenticator(gw Gateway, st *store.Store, logger *slog.Logger) *Authenticator {
	return &Authenticator{gw: gw, store: st, logger: logger}
}

// LoginPublic establishes a read-only session for a public key. A gateway
// failure still yields a minimal session: the backend being down must not
// prevent read-only browsing. Balance is never populated here, even when the
// gateway returns one, because a public identifier cannot authorize spend.
func (a *Authenticator) LoginPublic(ctx context.Context, publicKey string) error {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return ErrKeyRequired
	}

	private := false
	update := store.SessionUpdate{
		PublicKey:   &publicKey,
		PrivateMode: &private,
	}

	info, err := a.gw.WalletInfo(ctx, publicKey)
	if err != nil {
		a.logger.LogAttrs(
			ctx,
			slog.LevelWarn,
			"wallet info lookup failed, establishing minimal session",
			slog.String("error", err.Error()),
		)
	} else {
		walletID := info.ID
		if walletID == "" {
			walletID = publicKey
		}
		update.WalletID = &walletID
	}

	a.store.ClearSession()
	a.store.SetSession(update)
	return nil
}

// LoginPrivate resolves a private key through the gateway and establishes a
// full session with balance. Any gateway failure surfaces as one generic
// login error.
func (a *Authenticator) LoginPrivate(ctx context.Context, privateKey string) error {
	privateKey = strings.TrimSpace(privateKey)
	if privateKey == "" {
		return ErrKeyRequired
	}

	info, err := a.gw.ResolvePrivate(ctx, privateKey)
	if err != nil {
		a.logger.LogAttrs(
			ctx,
			slog.LevelError,
			"private key resolution failed",
			slog.String("error", err.Error()),
		)
		return ErrLoginFailed
	}

	private := true
	a.store.ClearSession()
	a.store.SetSession(store.SessionUpdate{
		PublicKey:   &info.PublicKey,
		PrivateKey:  &privateKey,
		WalletID:    &info.ID,
		Balance:     &info.Balance,
		PrivateMode: &private,
	})
	return nil
}

// Logout clears the session and the tracked records. In-flight operations
// finish against the cleared record set as no-ops.
func (a *Authenticator) Logout() {
	a.store.ClearSession()
	a.store.ClearRecords()
}

// RefreshBalance refetches the balance for a private session and updates
// the store.
func (a *Authenticator) RefreshBalance(ctx context.Context) (int64, error) {
	sess := a.store.Session()
	if !sess.CanSign() {
		return 0, ErrSigningKeyRequired
	}

	info, err := a.gw.ResolvePrivate(ctx, sess.PrivateKey)
	if err != nil {
		a.logger.LogAttrs(
			ctx,
			slog.LevelError,
			"balance refresh failed",
			slog.String("error", err.Error()),
		)
		return 0, ErrRefreshFailed
	}

	a.store.SetSession(store.SessionUpdate{Balance: &info.Balance})
	return info.Balance, nil
}
