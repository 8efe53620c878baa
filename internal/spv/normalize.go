package spv

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedResponse marks a gateway response whose shape could not be
// mapped to a canonical record. Callers surface it as a remote-call error
// rather than defaulting fields to zero.
var ErrMalformedResponse = errors.New("spv: malformed gateway response")

// WalletInfo is the canonical account record for a public key.
type WalletInfo struct {
	ID        string
	CreatedAt time.Time
	Balance   int64
}

// PrivateInfo is the canonical result of resolving a private key.
type PrivateInfo struct {
	PublicKey string
	ID        string
	Balance   int64
}

// Registration is the canonical result of registering a wallet.
type Registration struct {
	Success bool
	ID      string
	Balance int64
}

// Transaction is the canonical transaction history entry.
type Transaction struct {
	ID          string
	Amount      int64
	Direction   string
	CreatedAt   time.Time
	Description string
}

// The gateway has shipped several response shapes over time; the raw types
// below list every observed alias per field and the normalize methods define
// the total mapping into the canonical records above. An entry missing its
// id in all aliases is an error, never a silent default.

type rawWalletInfo struct {
	ID             string `json:"id"`
	XpubID         string `json:"xpubId"`
	CreatedAt      string `json:"createdAt"`
	CurrentBalance *int64 `json:"currentBalance"`
	Balance        *int64 `json:"balance"`
	Satoshis       *int64 `json:"satoshis"`
}

func (r rawWalletInfo) normalize() (WalletInfo, error) {
	id := firstNonEmpty(r.ID, r.XpubID)
	if id == "" {
		return WalletInfo{}, fmt.Errorf("%w: wallet info without id", ErrMalformedResponse)
	}

	info := WalletInfo{
		ID:      id,
		Balance: firstNonNil(r.CurrentBalance, r.Balance, r.Satoshis),
	}
	if r.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return WalletInfo{}, fmt.Errorf("%w: createdAt %q", ErrMalformedResponse, r.CreatedAt)
		}
		info.CreatedAt = t
	}
	return info, nil
}

type rawPrivateInfo struct {
	PublicKey      string `json:"publicKey"`
	Xpub           string `json:"xpub"`
	ID             string `json:"id"`
	CurrentBalance *int64 `json:"currentBalance"`
	Balance        *int64 `json:"balance"`
}

func (r rawPrivateInfo) normalize() (PrivateInfo, error) {
	pub := firstNonEmpty(r.PublicKey, r.Xpub)
	if pub == "" {
		return PrivateInfo{}, fmt.Errorf("%w: key resolution without public key", ErrMalformedResponse)
	}
	return PrivateInfo{
		PublicKey: pub,
		ID:        firstNonEmpty(r.ID, pub),
		Balance:   firstNonNil(r.CurrentBalance, r.Balance),
	}, nil
}

type rawRegistration struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Balance *int64 `json:"balance"`
}

func (r rawRegistration) normalize() Registration {
	return Registration{
		Success: r.Success,
		ID:      r.ID,
		Balance: firstNonNil(r.Balance),
	}
}

type rawAnnotateResult struct {
	ID   string `json:"id"`
	TxID string `json:"txId"`
}

func (r rawAnnotateResult) normalize() (string, error) {
	id := firstNonEmpty(r.ID, r.TxID)
	if id == "" {
		return "", fmt.Errorf("%w: broadcast result without transaction id", ErrMalformedResponse)
	}
	return id, nil
}

type rawTransaction struct {
	ID          string `json:"id"`
	TxID        string `json:"txId"`
	TxIDSnake   string `json:"tx_id"`
	Amount      *int64 `json:"amount"`
	Satoshis    *int64 `json:"satoshis"`
	Value       *int64 `json:"value"`
	Direction   string `json:"direction"`
	Type        string `json:"type"`
	CreatedAt   string `json:"createdAt"`
	Timestamp   int64  `json:"timestamp"`
	Description string `json:"description"`
	Memo        string `json:"memo"`
}

func (r rawTransaction) normalize() (Transaction, error) {
	id := firstNonEmpty(r.ID, r.TxID, r.TxIDSnake)
	if id == "" {
		return Transaction{}, fmt.Errorf("%w: transaction without id", ErrMalformedResponse)
	}
	if r.Amount == nil && r.Satoshis == nil && r.Value == nil {
		return Transaction{}, fmt.Errorf("%w: transaction %s without amount", ErrMalformedResponse, id)
	}

	tx := Transaction{
		ID:          id,
		Amount:      firstNonNil(r.Amount, r.Satoshis, r.Value),
		Direction:   firstNonEmpty(r.Direction, r.Type),
		Description: firstNonEmpty(r.Description, r.Memo),
	}

	switch {
	case r.CreatedAt != "":
		t, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return Transaction{}, fmt.Errorf("%w: createdAt %q", ErrMalformedResponse, r.CreatedAt)
		}
		tx.CreatedAt = t
	case r.Timestamp > 0:
		// Epoch millis in newer responses, epoch seconds in older ones.
		if r.Timestamp > 1e12 {
			tx.CreatedAt = time.UnixMilli(r.Timestamp)
		} else {
			tx.CreatedAt = time.Unix(r.Timestamp, 0)
		}
	}
	return tx, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(vals ...*int64) int64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}
