package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dchest/uniuri"
	"github.com/stellum-labs/stellum/internal/keys"
	"github.com/stellum-labs/stellum/internal/store"
)

// Stage is a registration draft's position in the workflow.
type Stage string

const (
	// StageProfile collects name, pay address and display name.
	StageProfile Stage = "profile"
	// StageKeys shows the generated mnemonic and key pair.
	StageKeys Stage = "keys"
	// StageBackup waits for the user to assert they wrote the phrase down.
	StageBackup Stage = "backup"
	// StageConfirm waits for the user to retype the phrase.
	StageConfirm Stage = "confirm"
)

var (
	ErrDraftNotFound         = errors.New("wallet: registration draft not found")
	ErrWrongStage            = errors.New("wallet: action not valid at this registration stage")
	ErrBackupNotAcknowledged = errors.New("wallet: recovery phrase backup not acknowledged")
	ErrMnemonicMismatch      = errors.New("wallet: recovery phrase does not match")
	ErrRegistrationFailed    = errors.New("wallet: registration failed")
)

// Draft is the transient state of one registration attempt. Drafts hold an
// unencrypted mnemonic and private key, so they live in memory only and are
// never persisted.
type Draft struct {
	ID           string
	Stage        Stage
	Name         string
	PayAddress   string
	DisplayName  string
	Keys         keys.Material
	Acknowledged bool
	CreatedAt    time.Time
}

// Abandoned drafts are purged after this long.
const draftTTL = 30 * time.Minute

// Registrar drives the registration workflow: profile entry, key
// generation, backup acknowledgment, mnemonic confirmation, remote wallet
// registration, session establishment.
type Registrar struct {
	mu     sync.Mutex
	drafts map[string]*Draft

	keys   keys.Provider
	gw     Gateway
	store  *store.Store
	logger *slog.Logger
}

func NewRegistrar(provider keys.Provider, gw Gateway, st *store.Store, logger *slog.Logger) *Registrar {
	return &Registrar{
		drafts: make(map[string]*Draft),
		keys:   provider,
		gw:     gw,
		store:  st,
		logger: logger,
	}
}

// Start validates the profile fields, generates one fresh key set and opens
// a draft at the key display stage. No key material is generated when a
// field is missing.
func (r *Registrar) Start(name, payAddress, displayName string) (Draft, error) {
	name = strings.TrimSpace(name)
	payAddress = strings.TrimSpace(payAddress)
	displayName = strings.TrimSpace(displayName)

	switch {
	case name == "":
		return Draft{}, &ValidationError{Field: "name"}
	case payAddress == "":
		return Draft{}, &ValidationError{Field: "payAddress"}
	case displayName == "":
		return Draft{}, &ValidationError{Field: "displayName"}
	}

	material, err := r.keys.Generate()
	if err != nil {
		return Draft{}, fmt.Errorf("generate wallet keys: %w", err)
	}

	draft := &Draft{
		ID:          uniuri.NewLen(24),
		Stage:       StageKeys,
		Name:        name,
		PayAddress:  payAddress,
		DisplayName: displayName,
		Keys:        material,
		CreatedAt:   time.Now(),
	}

	r.mu.Lock()
	r.purgeExpiredLocked()
	r.drafts[draft.ID] = draft
	r.mu.Unlock()

	return *draft, nil
}

// Draft returns a copy of the draft with the given id.
func (r *Registrar) Draft(id string) (Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return *draft, nil
}

// Regenerate replaces the draft's key material with a fresh set and rewinds
// to the key display stage. The previous phrase becomes worthless, so the
// backup acknowledgment is reset as well.
func (r *Registrar) Regenerate(id string) (Draft, error) {
	material, err := r.keys.Generate()
	if err != nil {
		return Draft{}, fmt.Errorf("generate wallet keys: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	draft.Keys = material
	draft.Acknowledged = false
	draft.Stage = StageKeys
	return *draft, nil
}

// Advance moves from the key display stage to the backup stage. There is
// nothing to validate here.
func (r *Registrar) Advance(id string) (Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if draft.Stage != StageKeys {
		return Draft{}, ErrWrongStage
	}
	draft.Stage = StageBackup
	return *draft, nil
}

// ConfirmBackup records the user's assertion that the phrase was written
// down and moves to the confirmation stage. Without the assertion the draft
// stays put.
func (r *Registrar) ConfirmBackup(id string, acknowledged bool) (Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if draft.Stage != StageBackup {
		return Draft{}, ErrWrongStage
	}
	if !acknowledged {
		return Draft{}, ErrBackupNotAcknowledged
	}
	draft.Acknowledged = true
	draft.Stage = StageConfirm
	return *draft, nil
}

// Confirm compares the retyped phrase against the generated one and, on a
// match, registers the wallet remotely and establishes the private session.
// On mismatch or remote failure the draft is kept so the user can retry
// without regenerating keys.
func (r *Registrar) Confirm(ctx context.Context, id, phrase string) error {
	r.mu.Lock()
	draft, ok := r.drafts[id]
	if !ok {
		r.mu.Unlock()
		return ErrDraftNotFound
	}
	if draft.Stage != StageConfirm {
		r.mu.Unlock()
		return ErrWrongStage
	}
	d := *draft
	r.mu.Unlock()

	if NormalizePhrase(phrase) != NormalizePhrase(d.Keys.Mnemonic) {
		return ErrMnemonicMismatch
	}

	reg, err := r.gw.RegisterWallet(ctx, d.Keys.PublicKey, d.PayAddress, d.DisplayName)
	if err != nil {
		r.logger.LogAttrs(
			ctx,
			slog.LevelError,
			"wallet registration call failed",
			slog.String("error", err.Error()),
		)
		return ErrRegistrationFailed
	}
	if !reg.Success {
		r.logger.LogAttrs(ctx, slog.LevelError, "wallet registration rejected")
		return ErrRegistrationFailed
	}

	walletID := reg.ID
	if walletID == "" {
		walletID = d.Keys.PublicKey
	}

	r.store.ClearSession()
	private := true
	r.store.SetSession(store.SessionUpdate{
		PublicKey:   &d.Keys.PublicKey,
		PrivateKey:  &d.Keys.PrivateKey,
		DisplayName: &d.DisplayName,
		PayAddress:  &d.PayAddress,
		Balance:     &reg.Balance,
		WalletID:    &walletID,
		PrivateMode: &private,
	})

	r.mu.Lock()
	delete(r.drafts, id)
	r.mu.Unlock()
	return nil
}

// Discard drops a draft, e.g. when the user navigates away.
func (r *Registrar) Discard(id string) {
	r.mu.Lock()
	delete(r.drafts, id)
	r.mu.Unlock()
}

func (r *Registrar) purgeExpiredLocked() {
	cutoff := time.Now().Add(-draftTTL)
	for id, d := range r.drafts {
		if d.CreatedAt.Before(cutoff) {
			delete(r.drafts, id)
		}
	}
}

// NormalizePhrase prepares a mnemonic for comparison: surrounding and
// internal whitespace runs collapse to single spaces and case is ignored.
// Word order is significant.
func NormalizePhrase(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
