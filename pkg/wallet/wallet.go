// Package wallet is the signing boundary. The SDK never touches private key
// material outside of it.
package wallet

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrMissingSigner = errors.New("ErrMissingSigner")
	ErrBadSecretKey  = errors.New("ErrBadSecretKey")
)

// Signer signs transactions on behalf of one identity. Implementations fill
// in their own signature slot and leave the others untouched.
type Signer interface {
	Pubkey() solana.PublicKey
	Sign(tx *solana.Transaction) error
}

// Keypair is a Signer backed by an in-memory ed25519 keypair.
type Keypair struct {
	key solana.PrivateKey
}

func NewKeypair(key solana.PrivateKey) *Keypair {
	return &Keypair{key: key}
}

// NewKeypairFromFile loads a keypair from a solana-keygen JSON file.
func NewKeypairFromFile(path string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, err
	}
	return &Keypair{key: key}, nil
}

// NewKeypairFromBase58 parses a raw base58-encoded 64-byte secret key.
func NewKeypairFromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, ErrBadSecretKey
	}
	if len(raw) != 64 {
		return nil, ErrBadSecretKey
	}
	return &Keypair{key: solana.PrivateKey(raw)}, nil
}

func (kp *Keypair) Pubkey() solana.PublicKey {
	return kp.key.PublicKey()
}

func (kp *Keypair) Sign(tx *solana.Transaction) error {
	_, err := tx.PartialSign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(kp.key.PublicKey()) {
			return &kp.key
		}
		return nil
	})
	return err
}
