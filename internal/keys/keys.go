// Package keys generates and derives wallet key material. Keys are extended
// BIP-32 keys serialized in base58 (xprv/xpub), deterministically derived
// from a 12-word BIP-39 mnemonic.
package keys

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// Material is one generated key set. The mnemonic alone is sufficient to
// re-derive both keys; losing it after losing the keys means losing the
// wallet.
type Material struct {
	Mnemonic   string
	PrivateKey string
	PublicKey  string
}

// Provider generates fresh key material and re-derives it from a mnemonic.
type Provider interface {
	Generate() (Material, error)
	FromMnemonic(mnemonic string) (Material, error)
}

var ErrInvalidMnemonic = errors.New("keys: invalid mnemonic phrase")

// mnemonicEntropyBits yields a 12-word phrase.
const mnemonicEntropyBits = 128

// HDProvider derives hierarchical-deterministic key material per BIP-39 and
// BIP-32.
type HDProvider struct{}

func NewHDProvider() *HDProvider {
	return &HDProvider{}
}

func (p *HDProvider) Generate() (Material, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return Material{}, fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Material{}, fmt.Errorf("build mnemonic: %w", err)
	}
	return p.FromMnemonic(mnemonic)
}

func (p *HDProvider) FromMnemonic(mnemonic string) (Material, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return Material{}, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return Material{}, fmt.Errorf("derive master key: %w", err)
	}

	return Material{
		Mnemonic:   mnemonic,
		PrivateKey: master.B58Serialize(),
		PublicKey:  master.PublicKey().B58Serialize(),
	}, nil
}
