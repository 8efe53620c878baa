package wallet

import (
	"context"
	"io"
	"log/slog"

	"github.com/stellum-labs/stellum/internal/filestore"
	"github.com/stellum-labs/stellum/internal/keys"
	"github.com/stellum-labs/stellum/internal/spv"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockGateway counts calls so tests can assert that gated operations never
// reach the network.
type mockGateway struct {
	walletInfoCalls   int
	walletInfo        spv.WalletInfo
	walletInfoErr     error
	resolveCalls      int
	privateInfo       spv.PrivateInfo
	resolveErr        error
	transactionsCalls int
	transactions      []spv.Transaction
	transactionsErr   error
	annotateCalls     int
	annotatePayloads  []string
	annotateTxID      string
	annotateErr       error
	registerCalls     int
	registration      spv.Registration
	registerErr       error
}

func (m *mockGateway) WalletInfo(ctx context.Context, publicKey string) (spv.WalletInfo, error) {
	m.walletInfoCalls++
	return m.walletInfo, m.walletInfoErr
}

func (m *mockGateway) ResolvePrivate(ctx context.Context, privateKey string) (spv.PrivateInfo, error) {
	m.resolveCalls++
	return m.privateInfo, m.resolveErr
}

func (m *mockGateway) Transactions(ctx context.Context, publicKey string) ([]spv.Transaction, error) {
	m.transactionsCalls++
	return m.transactions, m.transactionsErr
}

func (m *mockGateway) Annotate(ctx context.Context, privateKey, payload string) (string, error) {
	m.annotateCalls++
	m.annotatePayloads = append(m.annotatePayloads, payload)
	return m.annotateTxID, m.annotateErr
}

func (m *mockGateway) RegisterWallet(ctx context.Context, publicKey, payAddress, displayName string) (spv.Registration, error) {
	m.registerCalls++
	return m.registration, m.registerErr
}

type mockBackend struct {
	uploadCalls   int
	uploadResult  filestore.UploadResult
	uploadErr     error
	registerCalls int
	registerErr   error
}

func (m *mockBackend) Upload(ctx context.Context, name string, size int64, r io.Reader, onProgress func(pct int)) (filestore.UploadResult, error) {
	m.uploadCalls++
	if m.uploadErr != nil {
		return filestore.UploadResult{}, m.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return filestore.UploadResult{}, err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return m.uploadResult, nil
}

func (m *mockBackend) RegisterTx(ctx context.Context, id int64, txID string) error {
	m.registerCalls++
	return m.registerErr
}

type mockPublisher struct {
	published []string
}

func (m *mockPublisher) Publish(subject string, data []byte) error {
	m.published = append(m.published, subject)
	return nil
}

// mockKeys hands out fixed material so tests can compare phrases.
type mockKeys struct {
	calls    int
	material []keys.Material
	err      error
}

func (m *mockKeys) Generate() (keys.Material, error) {
	if m.err != nil {
		return keys.Material{}, m.err
	}
	mat := m.material[m.calls%len(m.material)]
	m.calls++
	return mat, nil
}

func (m *mockKeys) FromMnemonic(mnemonic string) (keys.Material, error) {
	for _, mat := range m.material {
		if mat.Mnemonic == mnemonic {
			return mat, nil
		}
	}
	return keys.Material{}, keys.ErrInvalidMnemonic
}
