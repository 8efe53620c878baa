// Package spv is the client for the remote wallet gateway. The gateway owns
// all cryptography, transaction construction and broadcast; this package
// only speaks its HTTP API and normalizes the loosely-shaped responses into
// canonical records.
package spv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const authKeyHeader = "X-Auth-Key"

// Client talks to one wallet gateway instance.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WalletInfo fetches account info for a public key. Read-only.
func (c *Client) WalletInfo(ctx context.Context, publicKey string) (WalletInfo, error) {
	var raw rawWalletInfo
	if err := c.do(ctx, http.MethodGet, "/v1/users/current", publicKey, nil, &raw); err != nil {
		return WalletInfo{}, err
	}
	return raw.normalize()
}

// ResolvePrivate resolves a private key into its public identity and
// current balance.
func (c *Client) ResolvePrivate(ctx context.Context, privateKey string) (PrivateInfo, error) {
	var raw rawPrivateInfo
	if err := c.do(ctx, http.MethodPost, "/v1/users/resolve", privateKey, nil, &raw); err != nil {
		return PrivateInfo{}, err
	}
	return raw.normalize()
}

// Transactions lists the wallet's transaction history.
func (c *Client) Transactions(ctx context.Context, publicKey string) ([]Transaction, error) {
	var raws []rawTransaction
	if err := c.do(ctx, http.MethodGet, "/v1/transactions", publicKey, nil, &raws); err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(raws))
	for _, raw := range raws {
		tx, err := raw.normalize()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Annotate builds, signs and broadcasts a data-carrying transaction with the
// given payload as its annotation output, returning the transaction id.
func (c *Client) Annotate(ctx context.Context, privateKey, payload string) (string, error) {
	body := struct {
		StringParts []string `json:"stringParts"`
	}{StringParts: []string{payload}}

	var raw rawAnnotateResult
	if err := c.do(ctx, http.MethodPost, "/v1/transactions/annotate", privateKey, body, &raw); err != nil {
		return "", err
	}
	return raw.normalize()
}

// RegisterWallet registers a new wallet for the given public key.
func (c *Client) RegisterWallet(ctx context.Context, publicKey, payAddress, displayName string) (Registration, error) {
	body := struct {
		Xpub       string `json:"xpub"`
		Paymail    string `json:"paymail"`
		PublicName string `json:"publicName"`
	}{Xpub: publicKey, Paymail: payAddress, PublicName: displayName}

	var raw rawRegistration
	if err := c.do(ctx, http.MethodPost, "/v1/wallets", "", body, &raw); err != nil {
		return Registration{}, err
	}
	return raw.normalize(), nil
}

func (c *Client) do(ctx context.Context, method, path, authKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authKey != "" {
		req.Header.Set(authKeyHeader, authKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway request: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %v", ErrMalformedResponse, err)
	}
	return nil
}
